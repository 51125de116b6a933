package handler

import (
	"errors"
	"io"
	"net/http"

	"viptips-platform/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const webhookBodyLimit = 1024 * 1024 // 1 MiB

type WebhookHandler struct {
	reconciler service.ReconcilerService
}

func NewWebhookHandler(reconciler service.ReconcilerService) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
	}
}

// StripeWebhook receives billing events. Signature failures are client
// errors so Stripe stops retrying permanently-invalid payloads; processing
// failures are server errors so it redelivers.
func (h *WebhookHandler) StripeWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, webhookBodyLimit))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	sigHeader := c.Request().Header.Get("Stripe-Signature")

	err = h.reconciler.HandleWebhook(ctx, body, sigHeader)
	if errors.Is(err, service.ErrInvalidSignature) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
	}
	if err != nil {
		log.Error().Err(err).Msg("stripe webhook processing failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "processing failed")
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
