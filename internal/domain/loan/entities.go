package loan

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"lendflow-backend/internal/domain/product"
)

var ErrNotFound = errors.New("loan not found")

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPaid      Status = "PAID"
	StatusClosed    Status = "CLOSED"
	StatusDefaulted Status = "DEFAULTED"
)

// ClosureReason distinguishes how a loan left ACTIVE without widening the
// status enum.
type ClosureReason string

const (
	ClosurePaidOff    ClosureReason = "PAID_OFF"
	ClosureWrittenOff ClosureReason = "WRITTEN_OFF"
)

// Loan is created exactly once, at disbursement, copying rate, interest
// type and penalty parameters from the product.
type Loan struct {
	ID               uint64               `gorm:"primaryKey;column:id" json:"-"`
	LoanID           string               `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	ApplicationID    uint64               `gorm:"uniqueIndex:ux_loans_application;not null" json:"-"`
	BorrowerID       uint64               `gorm:"index:idx_loans_borrower;not null" json:"-"`
	ProductID        uint64               `gorm:"not null" json:"-"`
	Principal        decimal.Decimal      `gorm:"type:decimal(12,2)" json:"principal"`
	Rate             decimal.Decimal      `gorm:"type:decimal(5,2)" json:"interest_rate"`
	InterestType     product.InterestType `gorm:"size:20" json:"interest_type"`
	Term             int                  `gorm:"not null" json:"term"`
	GracePeriod      int                  `gorm:"default:0" json:"grace_period"`
	PenaltyRate      decimal.Decimal      `gorm:"type:decimal(5,2);default:0" json:"penalty_rate"`
	PenaltyFlatFee   decimal.Decimal      `gorm:"type:decimal(12,2);default:0" json:"penalty_flat_fee"`
	DisbursementDate time.Time            `gorm:"not null" json:"disbursement_date"`
	Status           Status               `gorm:"size:20;default:'ACTIVE';index" json:"status"`
	ClosureReason    ClosureReason        `gorm:"size:20;default:''" json:"closure_reason,omitempty"`
	IsActive         bool                 `gorm:"default:true" json:"is_active"`
	CreatedBy        string               `gorm:"size:32" json:"-"`
	CreatedAt        time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPartial InstallmentStatus = "PARTIAL"
	InstallmentPaid    InstallmentStatus = "PAID"
	InstallmentOverdue InstallmentStatus = "OVERDUE"
)

type Installment struct {
	ID                uint64            `gorm:"primaryKey;column:id" json:"-"`
	LoanID            uint64            `gorm:"index:idx_installments_loan_due,priority:1;not null" json:"-"`
	Seq               int               `gorm:"not null" json:"seq"`
	DueDate           time.Time         `gorm:"index:idx_installments_loan_due,priority:2;not null" json:"due_date"`
	PrincipalExpected decimal.Decimal   `gorm:"type:decimal(12,2)" json:"principal_expected"`
	InterestExpected  decimal.Decimal   `gorm:"type:decimal(12,2)" json:"interest_expected"`
	PenaltyExpected   decimal.Decimal   `gorm:"type:decimal(12,2);default:0" json:"penalty_expected"`
	PrincipalPaid     decimal.Decimal   `gorm:"type:decimal(12,2);default:0" json:"principal_paid"`
	InterestPaid      decimal.Decimal   `gorm:"type:decimal(12,2);default:0" json:"interest_paid"`
	PenaltyPaid       decimal.Decimal   `gorm:"type:decimal(12,2);default:0" json:"penalty_paid"`
	Status            InstallmentStatus `gorm:"size:20;default:'PENDING';index" json:"status"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Installment) TableName() string { return "loan_installments" }

// PenaltyDue / InterestDue / PrincipalDue are the per-component outstanding
// amounts, floored at zero so an overpaid component never produces a
// negative due.
func (i *Installment) PenaltyDue() decimal.Decimal {
	return maxZero(i.PenaltyExpected.Sub(i.PenaltyPaid))
}

func (i *Installment) InterestDue() decimal.Decimal {
	return maxZero(i.InterestExpected.Sub(i.InterestPaid))
}

func (i *Installment) PrincipalDue() decimal.Decimal {
	return maxZero(i.PrincipalExpected.Sub(i.PrincipalPaid))
}

func (i *Installment) TotalExpected() decimal.Decimal {
	return i.PenaltyExpected.Add(i.InterestExpected).Add(i.PrincipalExpected)
}

func (i *Installment) TotalPaid() decimal.Decimal {
	return i.PenaltyPaid.Add(i.InterestPaid).Add(i.PrincipalPaid)
}

// ApplyFunds credits the three paid components and recomputes the status.
// A status other than PAID/PARTIAL (e.g. OVERDUE with nothing paid yet) is
// left unchanged.
func (i *Installment) ApplyFunds(penalty, interest, principal decimal.Decimal) {
	i.PenaltyPaid = i.PenaltyPaid.Add(penalty)
	i.InterestPaid = i.InterestPaid.Add(interest)
	i.PrincipalPaid = i.PrincipalPaid.Add(principal)

	switch {
	case i.TotalPaid().GreaterThanOrEqual(i.TotalExpected()):
		i.Status = InstallmentPaid
	case i.TotalPaid().IsPositive():
		i.Status = InstallmentPartial
	}
}

func maxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
