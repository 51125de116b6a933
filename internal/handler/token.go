package handler

import (
	"errors"
	"net/http"

	"viptips-platform/internal/dto"
	"viptips-platform/internal/middleware"
	"viptips-platform/internal/model"
	"viptips-platform/internal/service"

	"github.com/labstack/echo/v4"
)

type TokenHandler struct {
	tokenService service.TokenService
}

func NewTokenHandler(tokenService service.TokenService) *TokenHandler {
	return &TokenHandler{
		tokenService: tokenService,
	}
}

func (h *TokenHandler) Redeem(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.RedeemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing token code")
	}

	user := middleware.UserFromContext(c)

	err := h.tokenService.Redeem(ctx, user, req.Code)
	if errors.Is(err, service.ErrGuestForbidden) {
		return echo.NewHTTPError(http.StatusForbidden, "VIP features require an account")
	}
	if errors.Is(err, service.ErrTokenNotUsable) {
		return echo.NewHTTPError(http.StatusConflict, "token expired or exhausted")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "redeemed"})
}

func (h *TokenHandler) ListMine(c echo.Context) error {
	ctx := c.Request().Context()

	user := middleware.UserFromContext(c)

	tokens, err := h.tokenService.ListForUser(ctx, user.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenListResponse(tokens))
}

func tokenListResponse(tokens []*model.VIPToken) *dto.TokenListResponse {
	resp := &dto.TokenListResponse{Tokens: make([]*dto.TokenResponse, len(tokens))}
	for i, token := range tokens {
		resp.Tokens[i] = &dto.TokenResponse{
			Code:      token.Code,
			Type:      token.Type,
			TipID:     token.TipID,
			Quantity:  token.Quantity,
			Used:      token.Used,
			ExpiresAt: token.ExpiresAt,
			BatchID:   token.BatchID,
		}
	}
	return resp
}
