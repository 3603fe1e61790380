package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lendflow-backend/internal/domain/errs"
)

var ErrNotFound = errors.New("payment not found")

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAuthorized Status = "AUTHORIZED"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusRefunded   Status = "REFUNDED"
)

type Method string

const (
	MethodWallet       Method = "WALLET"
	MethodStripe       Method = "STRIPE"
	MethodMpesa        Method = "MPESA"
	MethodBankTransfer Method = "BANK_TRANSFER"
)

func KnownMethod(m Method) bool {
	switch m {
	case MethodWallet, MethodStripe, MethodMpesa, MethodBankTransfer:
		return true
	}
	return false
}

// Payment is the inbound funds intent. idempotency_key is the caller retry
// token; gateway_reference is the provider-side handle, unique when set.
type Payment struct {
	ID               uint64          `gorm:"primaryKey;column:id" json:"-"`
	PaymentID        string          `gorm:"size:32;uniqueIndex:ux_payments_payment_id" json:"payment_id"`
	UserID           uint64          `gorm:"index:idx_payments_user;not null" json:"-"`
	LoanID           *uint64         `gorm:"index:idx_payments_loan" json:"-"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Currency         string          `gorm:"size:3;default:'USD'" json:"currency"`
	Status           Status          `gorm:"size:20;default:'PENDING';index" json:"status"`
	Method           Method          `gorm:"column:payment_method;size:20" json:"payment_method"`
	GatewayReference *string         `gorm:"size:100;uniqueIndex:ux_payments_gateway_reference" json:"gateway_reference,omitempty"`
	IdempotencyKey   string          `gorm:"size:100;uniqueIndex:ux_payments_idempotency_key;not null" json:"idempotency_key"`
	Metadata         datatypes.JSON  `json:"metadata,omitempty"`
	CapturedAt       *time.Time      `json:"captured_at,omitempty"`
	CreatedBy        string          `gorm:"size:32" json:"-"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// Allocation is the immutable split of one payment's funds onto one
// installment.
type Allocation struct {
	ID              uint64          `gorm:"primaryKey;column:id" json:"-"`
	PaymentID       uint64          `gorm:"index:idx_allocations_payment_installment,priority:1;not null" json:"-"`
	InstallmentID   uint64          `gorm:"index:idx_allocations_payment_installment,priority:2;not null" json:"-"`
	PrincipalAmount decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"principal_amount"`
	InterestAmount  decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"interest_amount"`
	PenaltyAmount   decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"penalty_amount"`
	FeeAmount       decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"fee_amount"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Allocation) TableName() string { return "repayment_allocations" }

// GatewayTransaction records each raw interaction with an external gateway.
type GatewayTransaction struct {
	ID         uint64         `gorm:"primaryKey;column:id" json:"-"`
	PaymentID  uint64         `gorm:"index;not null" json:"-"`
	Action     string         `gorm:"size:50" json:"action"`
	RawPayload datatypes.JSON `json:"raw_payload"`
	IsSuccess  bool           `gorm:"default:true" json:"is_success"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (GatewayTransaction) TableName() string { return "payment_gateway_transactions" }

// AuditLog is the payment-scoped audit trail, append-only like the central
// one.
type AuditLog struct {
	ID          uint64         `gorm:"primaryKey;column:id" json:"-"`
	PaymentID   uint64         `gorm:"index;not null" json:"-"`
	EventType   string         `gorm:"size:50;index" json:"event_type"`
	FromStatus  Status         `gorm:"size:20" json:"from_status,omitempty"`
	ToStatus    Status         `gorm:"size:20" json:"to_status,omitempty"`
	Description string         `gorm:"type:text" json:"description"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "payment_audit_logs" }

func (a *AuditLog) BeforeUpdate(*gorm.DB) error {
	return errs.Immutable("payment audit records cannot be updated")
}

func (a *AuditLog) BeforeDelete(*gorm.DB) error {
	return errs.Immutable("payment audit records cannot be deleted")
}
