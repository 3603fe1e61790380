package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *Handler) GetLoan(c echo.Context) error {
	dto, err := h.ledger.Get(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *Handler) ListInstallments(c echo.Context) error {
	out, err := h.ledger.Installments(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"installments": out})
}
