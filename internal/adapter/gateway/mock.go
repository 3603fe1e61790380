package gateway

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lendflow-backend/internal/domain/errs"
)

// MockGateway is the in-process provider used for WALLET payments and in
// tests. Every Initiate succeeds and webhook signatures match when the
// signature equals the configured secret.
type MockGateway struct {
	Secret string
}

func NewMockGateway(secret string) *MockGateway { return &MockGateway{Secret: secret} }

func (g *MockGateway) Initiate(_ context.Context, _ decimal.Decimal, _, _ string) (string, error) {
	u := uuid.New()
	return "mock_" + hex.EncodeToString(u[:])[:12], nil
}

func (g *MockGateway) VerifySignature(_ []byte, signature string) bool {
	return signature == g.Secret
}

type mockWebhookBody struct {
	GatewayReference string `json:"gateway_reference"`
	Status           string `json:"status"`
	EventType        string `json:"event_type"`
}

func (g *MockGateway) NormalizeWebhook(payload []byte) (*NormalizedEvent, error) {
	var body mockWebhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, errs.Validation("malformed webhook payload: %v", err)
	}
	if body.GatewayReference == "" {
		return nil, errs.Validation("webhook payload missing gateway_reference")
	}
	return &NormalizedEvent{
		GatewayReference: body.GatewayReference,
		ExternalStatus:   body.Status,
		EventType:        body.EventType,
		Succeeded:        body.Status == "SUCCESS",
	}, nil
}
