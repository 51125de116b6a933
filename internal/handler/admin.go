package handler

import (
	"net/http"
	"time"

	"viptips-platform/internal/dto"
	"viptips-platform/internal/middleware"
	"viptips-platform/internal/service"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	tokenService service.TokenService
}

func NewAdminHandler(tokenService service.TokenService) *AdminHandler {
	return &AdminHandler{
		tokenService: tokenService,
	}
}

func (h *AdminHandler) MintTokens(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.AdminMintRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing user id")
	}
	if req.Count <= 0 || req.ValidDays <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "count and valid_days must be positive")
	}

	admin := middleware.UserFromContext(c)
	validFor := time.Duration(req.ValidDays) * 24 * time.Hour

	tokens, err := h.tokenService.AdminMint(ctx, admin.ID, req.UserID, req.Count, validFor, req.TipID)
	if err != nil {
		return err
	}

	resp := &dto.AdminMintResponse{
		BatchID: tokens[0].BatchID,
		Codes:   make([]string, len(tokens)),
	}
	for i, token := range tokens {
		resp.Codes[i] = token.Code
	}

	return c.JSON(http.StatusCreated, resp)
}
