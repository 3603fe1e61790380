package loanledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	loanDomain "lendflow-backend/internal/domain/loan"
	"lendflow-backend/internal/domain/uow"
)

type LoanDTO struct {
	LoanID           string                   `json:"loan_id"`
	Principal        decimal.Decimal          `json:"principal"`
	Rate             decimal.Decimal          `json:"interest_rate"`
	InterestType     string                   `json:"interest_type"`
	Term             int                      `json:"term"`
	GracePeriod      int                      `json:"grace_period"`
	DisbursementDate time.Time                `json:"disbursement_date"`
	Status           loanDomain.Status        `json:"status"`
	ClosureReason    loanDomain.ClosureReason `json:"closure_reason,omitempty"`
	Outstanding      decimal.Decimal          `json:"outstanding"`
}

type InstallmentDTO struct {
	Seq               int                          `json:"seq"`
	DueDate           time.Time                    `json:"due_date"`
	PrincipalExpected decimal.Decimal              `json:"principal_expected"`
	InterestExpected  decimal.Decimal              `json:"interest_expected"`
	PenaltyExpected   decimal.Decimal              `json:"penalty_expected"`
	PrincipalPaid     decimal.Decimal              `json:"principal_paid"`
	InterestPaid      decimal.Decimal              `json:"interest_paid"`
	PenaltyPaid       decimal.Decimal              `json:"penalty_paid"`
	Status            loanDomain.InstallmentStatus `json:"status"`
}

// Get returns one loan with its total outstanding across installments.
func (u *Usecase) Get(ctx context.Context, loanID string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanID(ctx, loanID)
		if err != nil {
			return err
		}
		installments, err := r.Installments.ListByLoan(ctx, l.ID)
		if err != nil {
			return err
		}
		outstanding := decimal.Zero
		for i := range installments {
			inst := &installments[i]
			outstanding = outstanding.Add(inst.PenaltyDue()).Add(inst.InterestDue()).Add(inst.PrincipalDue())
		}
		dto = &LoanDTO{
			LoanID:           l.LoanID,
			Principal:        l.Principal,
			Rate:             l.Rate,
			InterestType:     string(l.InterestType),
			Term:             l.Term,
			GracePeriod:      l.GracePeriod,
			DisbursementDate: l.DisbursementDate,
			Status:           l.Status,
			ClosureReason:    l.ClosureReason,
			Outstanding:      outstanding,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Installments returns the full schedule for a loan in due-date order.
func (u *Usecase) Installments(ctx context.Context, loanID string) ([]InstallmentDTO, error) {
	var out []InstallmentDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanID(ctx, loanID)
		if err != nil {
			return err
		}
		installments, err := r.Installments.ListByLoan(ctx, l.ID)
		if err != nil {
			return err
		}
		out = make([]InstallmentDTO, 0, len(installments))
		for _, inst := range installments {
			out = append(out, InstallmentDTO{
				Seq:               inst.Seq,
				DueDate:           inst.DueDate,
				PrincipalExpected: inst.PrincipalExpected,
				InterestExpected:  inst.InterestExpected,
				PenaltyExpected:   inst.PenaltyExpected,
				PrincipalPaid:     inst.PrincipalPaid,
				InterestPaid:      inst.InterestPaid,
				PenaltyPaid:       inst.PenaltyPaid,
				Status:            inst.Status,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
