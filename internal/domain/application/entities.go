package application

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lendflow-backend/internal/domain/errs"
)

var ErrNotFound = errors.New("loan application not found")

type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusSubmitted   Status = "SUBMITTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusApproved    Status = "APPROVED"
	StatusRejected    Status = "REJECTED"
	StatusDisbursed   Status = "DISBURSED"
)

// transitions is the allowed-edge table. Privileged actors may force edges
// outside it; everyone else is bound by it.
var transitions = map[Status][]Status{
	StatusDraft:       {StatusSubmitted},
	StatusSubmitted:   {StatusUnderReview, StatusRejected},
	StatusUnderReview: {StatusApproved, StatusRejected},
	StatusApproved:    {StatusDisbursed},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func Known(s Status) bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusDisbursed:
		return true
	}
	return false
}

// Terminal statuses accept no further non-forced transitions.
func Terminal(s Status) bool { return s == StatusRejected || s == StatusDisbursed }

type LoanApplication struct {
	ID            uint64          `gorm:"primaryKey;column:id" json:"-"`
	ApplicationID string          `gorm:"size:32;uniqueIndex:ux_applications_application_id" json:"application_id"`
	BorrowerID    uint64          `gorm:"index:idx_applications_borrower;not null" json:"-"`
	ProductID     uint64          `gorm:"not null" json:"-"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Term          int             `gorm:"not null" json:"term"`
	Status        Status          `gorm:"size:20;default:'DRAFT';index" json:"status"`
	Remarks       string          `gorm:"type:text" json:"remarks"`
	CreatedBy     string          `gorm:"size:32" json:"-"`
	UpdatedBy     string          `gorm:"size:32" json:"-"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LoanApplication) TableName() string { return "loan_applications" }

// StatusHistory is the append-only trail of application transitions.
type StatusHistory struct {
	ID            uint64    `gorm:"primaryKey;column:id" json:"-"`
	ApplicationID uint64    `gorm:"index:idx_status_history_application;not null" json:"-"`
	FromStatus    Status    `gorm:"size:20" json:"from_status"`
	ToStatus      Status    `gorm:"size:20" json:"to_status"`
	Reason        string    `gorm:"type:text" json:"reason"`
	ActorID       *string   `gorm:"size:32" json:"actor_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (StatusHistory) TableName() string { return "application_status_histories" }

func (h *StatusHistory) BeforeUpdate(*gorm.DB) error {
	return errs.Immutable("status history records cannot be updated")
}

func (h *StatusHistory) BeforeDelete(*gorm.DB) error {
	return errs.Immutable("status history records cannot be deleted")
}
