package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"lendflow-backend/internal/adapter/gateway"
	applicationUC "lendflow-backend/internal/usecase/application"
	"lendflow-backend/internal/usecase/loanledger"
	paymentUC "lendflow-backend/internal/usecase/payment"
)

type Handler struct {
	applications *applicationUC.Usecase
	payments     *paymentUC.Usecase
	ledger       *loanledger.Usecase
	gateways     *gateway.Factory
}

func NewHandler(apps *applicationUC.Usecase, pays *paymentUC.Usecase, ledger *loanledger.Usecase, gws *gateway.Factory) *Handler {
	return &Handler{applications: apps, payments: pays, ledger: ledger, gateways: gws}
}

// RegisterRoutes wires every route; idem guards the mutating ones. Webhooks
// are authenticated by signature, not by client headers, so they bypass the
// idempotency middleware.
func (h *Handler) RegisterRoutes(e *echo.Echo, idem echo.MiddlewareFunc) {
	e.GET("/health", h.Health)
	e.GET("/loans/:loan_id", h.GetLoan)
	e.GET("/loans/:loan_id/installments", h.ListInstallments)
	e.GET("/payments/:payment_id", h.GetPayment)

	g := e.Group("", idem)
	g.POST("/applications", h.CreateApplication)
	g.POST("/applications/:application_id/transitions", h.TransitionApplication)
	g.POST("/payments", h.CreatePayment)

	e.POST("/webhooks/:provider", h.HandleWebhook)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}
