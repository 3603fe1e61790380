package audit

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lendflow-backend/internal/domain/errs"
)

// TargetType is the tagged-union discriminator for the polymorphic target
// reference. TargetID always carries the target's public identifier.
type TargetType string

const (
	TargetApplication TargetType = "APPLICATION"
	TargetLoan        TargetType = "LOAN"
	TargetInstallment TargetType = "INSTALLMENT"
	TargetPayment     TargetType = "PAYMENT"
	TargetUser        TargetType = "USER"
	TargetBlacklist   TargetType = "BLACKLIST"
)

// Event type tags. Kept stable: reports and the payment audit trail key off
// these strings.
const (
	EventApplicationSubmitted = "LOAN.SUBMITTED"
	EventStatusChanged        = "LOAN.STATUS_CHANGED"
	EventLoanApproved         = "LOAN.APPROVED"
	EventLoanRejected         = "LOAN.REJECTED"
	EventLoanDisbursed        = "LOAN.DISBURSED"

	EventPaymentInitiated = "PAYMENT.INITIATED"
	EventPaymentCompleted = "PAYMENT.COMPLETED"
	EventPaymentFailed    = "PAYMENT.FAILED"
	EventPaymentAllocated = "PAYMENT.ALLOCATED"
	EventAllocationFailed = "PAYMENT.ALLOCATION_FAILED"
	EventStatusOverride   = "ADMIN.STATUS_OVERRIDE"
	EventRiskEvaluation   = "COMPLIANCE.RISK_EVALUATION"
	EventBlacklistUpdated = "COMPLIANCE.BLACKLIST_UPDATED"
)

// Entry is a row in the centralized audit trail. ActorID nil means a
// system-triggered event.
type Entry struct {
	ID            uint64         `gorm:"primaryKey;column:id" json:"-"`
	ActorID       *string        `gorm:"size:32" json:"actor_id"`
	TargetType    TargetType     `gorm:"size:20;index:idx_audit_target,priority:1;not null" json:"target_type"`
	TargetID      string         `gorm:"size:64;index:idx_audit_target,priority:2;not null" json:"target_id"`
	EventType     string         `gorm:"size:100;index" json:"event_type"`
	Description   string         `gorm:"type:text" json:"description"`
	PayloadBefore datatypes.JSON `json:"payload_before,omitempty"`
	PayloadAfter  datatypes.JSON `json:"payload_after,omitempty"`
	Metadata      datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Entry) TableName() string { return "audit_logs" }

// Audit rows are write-once. The repository only exposes Append; these hooks
// are the backstop for anything reaching the table through a bare gorm
// handle.
func (e *Entry) BeforeUpdate(*gorm.DB) error {
	return errs.Immutable("audit records cannot be updated")
}

func (e *Entry) BeforeDelete(*gorm.DB) error {
	return errs.Immutable("audit records cannot be deleted")
}
