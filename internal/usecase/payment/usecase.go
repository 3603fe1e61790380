// Package payment owns the inbound funds flow: idempotent creation,
// gateway confirmation and the repayment allocation engine.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lendflow-backend/internal/adapter/gateway"
	auditDomain "lendflow-backend/internal/domain/audit"
	"lendflow-backend/internal/domain/errs"
	paymentDomain "lendflow-backend/internal/domain/payment"
	"lendflow-backend/internal/domain/uow"
	"lendflow-backend/pkg/id"
)

type Usecase struct {
	uow      uow.UnitOfWork
	gateways *gateway.Factory
	now      func() time.Time
}

func NewUsecase(u uow.UnitOfWork, gws *gateway.Factory) *Usecase {
	return &Usecase{uow: u, gateways: gws, now: func() time.Time { return time.Now().UTC() }}
}

type CreateInput struct {
	UserID         string
	LoanID         string
	Amount         decimal.Decimal
	Currency       string
	Method         paymentDomain.Method
	IdempotencyKey string
}

type PaymentDTO struct {
	PaymentID        string               `json:"payment_id"`
	Amount           decimal.Decimal      `json:"amount"`
	Currency         string               `json:"currency"`
	Status           paymentDomain.Status `json:"status"`
	Method           paymentDomain.Method `json:"payment_method"`
	GatewayReference string               `json:"gateway_reference,omitempty"`
	IdempotencyKey   string               `json:"idempotency_key"`
	Duplicate        bool                 `json:"-"`
	CreatedAt        time.Time            `json:"created_at"`
}

// Create registers a payment intent with the provider. A retry carrying an
// idempotency key already seen for this user returns the original payment
// untouched, flagged as a duplicate.
func (u *Usecase) Create(ctx context.Context, in CreateInput) (*PaymentDTO, error) {
	if !in.Amount.IsPositive() {
		return nil, errs.Validation("payment amount must be positive")
	}
	if !paymentDomain.KnownMethod(in.Method) {
		return nil, errs.Validation("unknown payment method %q", in.Method)
	}
	if in.Currency == "" {
		in.Currency = "USD"
	}
	if len(in.Currency) != 3 {
		return nil, errs.Validation("currency must be a 3-letter code")
	}
	if in.IdempotencyKey == "" {
		return nil, errs.Validation("idempotency_key is required")
	}

	gw, err := u.gateways.ForMethod(in.Method)
	if err != nil {
		return nil, err
	}

	var dto *PaymentDTO
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		user, err := r.Users.GetByUserID(ctx, in.UserID)
		if err != nil {
			return err
		}
		existing, err := r.Payments.GetByIdempotencyKey(ctx, user.ID, in.IdempotencyKey)
		if err == nil {
			dto = toDTO(existing)
			dto.Duplicate = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		p := &paymentDomain.Payment{
			PaymentID:      id.NewID32(),
			UserID:         user.ID,
			Amount:         in.Amount,
			Currency:       in.Currency,
			Status:         paymentDomain.StatusPending,
			Method:         in.Method,
			IdempotencyKey: in.IdempotencyKey,
			CreatedBy:      user.UserID,
		}
		if in.LoanID != "" {
			l, err := r.Loans.GetByLoanID(ctx, in.LoanID)
			if err != nil {
				return err
			}
			p.LoanID = &l.ID
		}

		ref, err := gw.Initiate(ctx, p.Amount, p.Currency, p.PaymentID)
		if err != nil {
			return err
		}
		p.GatewayReference = &ref

		if err := r.Payments.Create(ctx, p); err != nil {
			// A concurrent request with the same key won the insert race;
			// hand back the winner's row.
			if winner, lookupErr := r.Payments.GetByIdempotencyKey(ctx, user.ID, in.IdempotencyKey); lookupErr == nil {
				dto = toDTO(winner)
				dto.Duplicate = true
				return nil
			}
			return err
		}
		if err := r.PaymentAudit.Append(ctx, &paymentDomain.AuditLog{
			PaymentID:   p.ID,
			EventType:   "INITIATED",
			ToStatus:    paymentDomain.StatusPending,
			Description: "payment registered with gateway",
		}); err != nil {
			return err
		}
		actorID := user.UserID
		if err := r.Audit.Append(ctx, &auditDomain.Entry{
			ActorID:      &actorID,
			TargetType:   auditDomain.TargetPayment,
			TargetID:     p.PaymentID,
			EventType:    auditDomain.EventPaymentInitiated,
			Description:  "payment initiated via " + string(p.Method),
			PayloadAfter: paymentPayload(p),
		}); err != nil {
			return err
		}
		dto = toDTO(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// ConfirmFromGateway records a normalized provider event against the
// payment it references. A success marks the payment COMPLETED and runs the
// allocation pass; anything else marks it FAILED.
func (u *Usecase) ConfirmFromGateway(ctx context.Context, ev *gateway.NormalizedEvent, rawPayload []byte) (*PaymentDTO, error) {
	var dto *PaymentDTO
	runAllocation := false
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		p, err := r.Payments.GetByGatewayReferenceForUpdate(ctx, ev.GatewayReference)
		if err != nil {
			return err
		}
		if err := r.GatewayTx.Append(ctx, &paymentDomain.GatewayTransaction{
			PaymentID:  p.ID,
			Action:     ev.EventType,
			RawPayload: datatypes.JSON(rawPayload),
			IsSuccess:  ev.Succeeded,
		}); err != nil {
			return err
		}

		// A replayed webhook for an already-settled payment records the raw
		// event above and stops.
		if p.Status == paymentDomain.StatusCompleted || p.Status == paymentDomain.StatusFailed {
			dto = toDTO(p)
			runAllocation = p.Status == paymentDomain.StatusCompleted
			return nil
		}

		from := p.Status
		if ev.Succeeded {
			p.Status = paymentDomain.StatusCompleted
		} else {
			p.Status = paymentDomain.StatusFailed
		}
		if err := r.Payments.Save(ctx, p); err != nil {
			return err
		}
		if err := r.PaymentAudit.Append(ctx, &paymentDomain.AuditLog{
			PaymentID:   p.ID,
			EventType:   "GATEWAY_" + ev.EventType,
			FromStatus:  from,
			ToStatus:    p.Status,
			Description: "gateway reported " + ev.ExternalStatus,
		}); err != nil {
			return err
		}
		event := auditDomain.EventPaymentCompleted
		if !ev.Succeeded {
			event = auditDomain.EventPaymentFailed
		}
		if err := r.Audit.Append(ctx, &auditDomain.Entry{
			TargetType:   auditDomain.TargetPayment,
			TargetID:     p.PaymentID,
			EventType:    event,
			Description:  "gateway status " + ev.ExternalStatus,
			PayloadAfter: paymentPayload(p),
		}); err != nil {
			return err
		}
		dto = toDTO(p)
		runAllocation = ev.Succeeded
		return nil
	})
	if err != nil {
		return nil, err
	}
	if runAllocation {
		if _, err := u.ProcessPayment(ctx, dto.PaymentID); err != nil {
			return nil, err
		}
		refreshed, err := u.Get(ctx, dto.PaymentID)
		if err != nil {
			return nil, err
		}
		dto = refreshed
	}
	return dto, nil
}

// Get fetches one payment by its public id.
func (u *Usecase) Get(ctx context.Context, paymentID string) (*PaymentDTO, error) {
	var dto *PaymentDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		p, err := r.Payments.GetByPaymentID(ctx, paymentID)
		if err != nil {
			return err
		}
		dto = toDTO(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func toDTO(p *paymentDomain.Payment) *PaymentDTO {
	dto := &PaymentDTO{
		PaymentID:      p.PaymentID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Status:         p.Status,
		Method:         p.Method,
		IdempotencyKey: p.IdempotencyKey,
		CreatedAt:      p.CreatedAt,
	}
	if p.GatewayReference != nil {
		dto.GatewayReference = *p.GatewayReference
	}
	return dto
}

func paymentPayload(p *paymentDomain.Payment) datatypes.JSON {
	b, _ := json.Marshal(map[string]any{
		"status": p.Status,
		"amount": p.Amount,
	})
	return b
}
