// Package loanledger owns mutations of a single loan's installment ledger:
// applying funds to one installment and the time-driven overdue sweep.
package loanledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"lendflow-backend/internal/domain/errs"
	loanDomain "lendflow-backend/internal/domain/loan"
	"lendflow-backend/internal/domain/uow"
)

type Usecase struct {
	uow uow.UnitOfWork
	now func() time.Time
}

func NewUsecase(u uow.UnitOfWork) *Usecase {
	return &Usecase{uow: u, now: func() time.Time { return time.Now().UTC() }}
}

// Split is the per-component breakdown of one waterfall pass.
type Split struct {
	Penalty   decimal.Decimal
	Interest  decimal.Decimal
	Principal decimal.Decimal
}

func (s Split) IsZero() bool {
	return s.Penalty.IsZero() && s.Interest.IsZero() && s.Principal.IsZero()
}

// Waterfall distributes amount onto one installment in the fixed order
// penalty, interest, principal, each capped at its outstanding due. The
// installment is not mutated; the caller applies the split. Returns the
// leftover.
func Waterfall(inst *loanDomain.Installment, amount decimal.Decimal) (Split, decimal.Decimal) {
	var s Split
	s.Penalty = decimal.Min(amount, inst.PenaltyDue())
	amount = amount.Sub(s.Penalty)
	s.Interest = decimal.Min(amount, inst.InterestDue())
	amount = amount.Sub(s.Interest)
	s.Principal = decimal.Min(amount, inst.PrincipalDue())
	amount = amount.Sub(s.Principal)
	return s, amount
}

// ApplyPayment applies one amount to one installment within a loan-scoped
// transaction and returns any overflow beyond what the installment could
// absorb.
func (u *Usecase) ApplyPayment(ctx context.Context, loanID string, installmentID uint64, amount decimal.Decimal, actorID string) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, errs.Validation("payment amount cannot be negative")
	}
	leftover := decimal.Zero
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loanDomain.Loan) error {
		installments, err := r.Installments.ListUnpaidByLoanForUpdate(ctx, l.ID)
		if err != nil {
			return err
		}
		var target *loanDomain.Installment
		for _, inst := range installments {
			if inst.ID == installmentID {
				target = inst
				break
			}
		}
		if target == nil {
			return loanDomain.ErrNotFound
		}
		split, rest := Waterfall(target, amount)
		target.ApplyFunds(split.Penalty, split.Interest, split.Principal)
		if err := r.Installments.Save(ctx, target); err != nil {
			return err
		}
		leftover = rest
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return leftover, nil
}

// SweepOverdue flips past-due PENDING/PARTIAL installments to OVERDUE.
// Safe to run on a schedule; a second run over the same rows changes
// nothing.
func (u *Usecase) SweepOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	if asOf.IsZero() {
		asOf = u.now()
	}
	var n int64
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		changed, err := r.Installments.MarkOverdue(ctx, asOf)
		if err != nil {
			return err
		}
		n = changed
		return nil
	})
	return n, err
}
