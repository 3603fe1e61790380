package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"lendflow-backend/internal/domain/payment"
)

// HandleWebhook ingests a provider callback: verify the signature, normalize
// the payload, then hand it to the payment flow. The provider path segment
// names the payment method the gateway was registered under.
func (h *Handler) HandleWebhook(c echo.Context) error {
	method := payment.Method(strings.ToUpper(c.Param("provider")))
	gw, err := h.gateways.ForMethod(method)
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown provider"})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable body"})
	}
	if !gw.VerifySignature(body, c.Request().Header.Get("X-Gateway-Signature")) {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid signature"})
	}
	ev, err := gw.NormalizeWebhook(body)
	if err != nil {
		return writeError(c, err)
	}

	dto, err := h.payments.ConfirmFromGateway(c.Request().Context(), ev, body)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
