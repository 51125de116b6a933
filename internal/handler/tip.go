package handler

import (
	"errors"
	"net/http"
	"strconv"

	"viptips-platform/internal/middleware"
	"viptips-platform/internal/service"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type TipHandler struct {
	tipService service.TipService
}

func NewTipHandler(tipService service.TipService) *TipHandler {
	return &TipHandler{
		tipService: tipService,
	}
}

func (h *TipHandler) GetTip(c echo.Context) error {
	ctx := c.Request().Context()

	tipID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid tip id")
	}

	user := middleware.UserFromContext(c)

	tip, err := h.tipService.GetTip(ctx, user, uint(tipID))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "tip not found")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tip)
}

func (h *TipHandler) ListTips(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	user := middleware.UserFromContext(c)

	tips, err := h.tipService.ListTips(ctx, user, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tips)
}
