// Package gateway abstracts the external payment providers. Usecases only
// see the Gateway interface; the concrete provider is picked per payment
// method by the Factory.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"lendflow-backend/internal/domain/errs"
	"lendflow-backend/internal/domain/payment"
)

// NormalizedEvent is a provider webhook reduced to the fields the allocation
// flow cares about. ExternalStatus is the provider's own status string,
// kept verbatim for the gateway transaction log.
type NormalizedEvent struct {
	GatewayReference string
	ExternalStatus   string
	EventType        string
	Succeeded        bool
}

type Gateway interface {
	// Initiate registers the payment with the provider and returns its
	// reference.
	Initiate(ctx context.Context, amount decimal.Decimal, currency, reference string) (string, error)
	// VerifySignature checks a raw webhook body against its signature header.
	VerifySignature(payload []byte, signature string) bool
	// NormalizeWebhook parses a raw webhook body into a NormalizedEvent.
	NormalizeWebhook(payload []byte) (*NormalizedEvent, error)
}

// Factory maps a payment method to its gateway.
type Factory struct {
	gateways map[payment.Method]Gateway
}

func NewFactory() *Factory {
	return &Factory{gateways: make(map[payment.Method]Gateway)}
}

func (f *Factory) Register(m payment.Method, g Gateway) {
	f.gateways[m] = g
}

func (f *Factory) ForMethod(m payment.Method) (Gateway, error) {
	g, ok := f.gateways[m]
	if !ok {
		return nil, errs.Validation("no gateway registered for method %s", m)
	}
	return g, nil
}
