package server

import (
	"viptips-platform/internal/handler"
	custommw "viptips-platform/internal/middleware"
	"viptips-platform/internal/repository"
	"viptips-platform/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo           *echo.Echo
	tipHandler     *handler.TipHandler
	tokenHandler   *handler.TokenHandler
	webhookHandler *handler.WebhookHandler
	adminHandler   *handler.AdminHandler
	jwtSecret      string
	userRepo       repository.UserRepository
}

func NewServer(
	jwtSecret string,
	userRepo repository.UserRepository,
	tipService service.TipService,
	tokenService service.TokenService,
	reconciler service.ReconcilerService,
) *Server {
	e := echo.New()

	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:           e,
		tipHandler:     handler.NewTipHandler(tipService),
		tokenHandler:   handler.NewTokenHandler(tokenService),
		webhookHandler: handler.NewWebhookHandler(reconciler),
		adminHandler:   handler.NewAdminHandler(tokenService),
		jwtSecret:      jwtSecret,
		userRepo:       userRepo,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// -------- billing webhooks --------
	api.POST("/stripe/webhook", s.webhookHandler.StripeWebhook)

	// -------- session routes --------
	session := api.Group("", custommw.SessionMiddleware(s.jwtSecret, s.userRepo))

	session.GET("/tips", s.tipHandler.ListTips)
	session.GET("/tips/:id", s.tipHandler.GetTip)

	tokens := session.Group("/tokens", custommw.RequireUser())
	tokens.POST("/redeem", s.tokenHandler.Redeem)
	tokens.GET("", s.tokenHandler.ListMine)

	admin := session.Group("/admin", custommw.RequireAdmin())
	admin.POST("/tokens", s.adminHandler.MintTokens)
}

// Echo exposes the router for httptest-based tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
