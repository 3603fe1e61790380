package payment

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	accountDomain "lendflow-backend/internal/domain/account"
	auditDomain "lendflow-backend/internal/domain/audit"
	"lendflow-backend/internal/domain/errs"
	loanDomain "lendflow-backend/internal/domain/loan"
	paymentDomain "lendflow-backend/internal/domain/payment"
	"lendflow-backend/internal/domain/uow"
	"lendflow-backend/internal/usecase/loanledger"
)

// ProcessPayment runs the allocation pass for one payment: waterfall the
// funds across the loan's unpaid installments in due-date order, then sink
// any leftover into the last installment as extra principal. The whole pass
// commits atomically. Re-running it on an allocated payment returns the
// existing allocations and changes nothing.
func (u *Usecase) ProcessPayment(ctx context.Context, paymentID string) ([]paymentDomain.Allocation, error) {
	var result []paymentDomain.Allocation
	err := u.uow.WithinPaymentTx(ctx, paymentID, func(r uow.Repos, p *paymentDomain.Payment) error {
		if p.Status != paymentDomain.StatusCompleted {
			return nil
		}
		exists, err := r.Allocations.ExistsForPayment(ctx, p.ID)
		if err != nil {
			return err
		}
		if exists {
			result, err = r.Allocations.ListByPayment(ctx, p.ID)
			return err
		}
		// A payment carrying no loan reference has nothing to allocate
		// against; the funds stay on the payment.
		if p.LoanID == nil {
			return nil
		}

		l, err := r.Loans.GetByIDForUpdate(ctx, *p.LoanID)
		if err != nil {
			return err
		}
		installments, err := r.Installments.ListUnpaidByLoanForUpdate(ctx, l.ID)
		if err != nil {
			return err
		}

		remaining := p.Amount
		byInstallment := make(map[uint64]*paymentDomain.Allocation)
		var allocs []*paymentDomain.Allocation
		for _, inst := range installments {
			if !remaining.IsPositive() {
				break
			}
			split, rest := loanledger.Waterfall(inst, remaining)
			if split.IsZero() {
				continue
			}
			inst.ApplyFunds(split.Penalty, split.Interest, split.Principal)
			if err := r.Installments.Save(ctx, inst); err != nil {
				return err
			}
			a := &paymentDomain.Allocation{
				PaymentID:       p.ID,
				InstallmentID:   inst.ID,
				PrincipalAmount: split.Principal,
				InterestAmount:  split.Interest,
				PenaltyAmount:   split.Penalty,
			}
			if err := r.Allocations.Create(ctx, a); err != nil {
				return err
			}
			byInstallment[inst.ID] = a
			allocs = append(allocs, a)
			remaining = rest
		}
		if remaining.IsNegative() {
			return errs.Integrity("allocation produced negative remaining funds for payment %s", p.PaymentID)
		}

		if remaining.IsPositive() {
			last, err := r.Installments.LastByLoanForUpdate(ctx, l.ID)
			if err != nil {
				return err
			}
			last.ApplyFunds(decimal.Zero, decimal.Zero, remaining)
			if err := r.Installments.Save(ctx, last); err != nil {
				return err
			}
			if a, ok := byInstallment[last.ID]; ok {
				a.PrincipalAmount = a.PrincipalAmount.Add(remaining)
				if err := r.Allocations.Save(ctx, a); err != nil {
					return err
				}
			} else {
				a := &paymentDomain.Allocation{
					PaymentID:       p.ID,
					InstallmentID:   last.ID,
					PrincipalAmount: remaining,
				}
				if err := r.Allocations.Create(ctx, a); err != nil {
					return err
				}
				allocs = append(allocs, a)
			}
		}

		if err := u.settleWallet(ctx, r, p); err != nil {
			return err
		}
		if err := u.maybeCloseLoan(ctx, r, l); err != nil {
			return err
		}

		now := u.now()
		p.CapturedAt = &now
		if err := r.Payments.Save(ctx, p); err != nil {
			return err
		}

		meta := allocationMetadata(len(allocs))
		if err := r.PaymentAudit.Append(ctx, &paymentDomain.AuditLog{
			PaymentID:   p.ID,
			EventType:   "ALLOCATED",
			FromStatus:  paymentDomain.StatusCompleted,
			ToStatus:    paymentDomain.StatusCompleted,
			Description: "funds allocated to installments",
			Metadata:    meta,
		}); err != nil {
			return err
		}
		if err := r.Audit.Append(ctx, &auditDomain.Entry{
			TargetType:  auditDomain.TargetPayment,
			TargetID:    p.PaymentID,
			EventType:   auditDomain.EventPaymentAllocated,
			Description: "repayment allocated",
			Metadata:    meta,
		}); err != nil {
			return err
		}

		result = make([]paymentDomain.Allocation, 0, len(allocs))
		for _, a := range allocs {
			result = append(result, *a)
		}
		return nil
	})
	if err != nil {
		// The failed pass rolled back; record the failure in a fresh
		// transaction so the audit row survives.
		u.auditAllocationFailure(ctx, paymentID, err)
		return nil, err
	}
	return result, nil
}

// settleWallet debits the payer's balance for wallet payments. Gateway
// methods settle externally; the balance is untouched.
func (u *Usecase) settleWallet(ctx context.Context, r uow.Repos, p *paymentDomain.Payment) error {
	if p.Method != paymentDomain.MethodWallet {
		return nil
	}
	user, err := r.Users.GetByIDForUpdate(ctx, p.UserID)
	if err != nil {
		return err
	}
	if user.Balance.LessThan(p.Amount) {
		return errs.Conflict("insufficient wallet balance for payment %s", p.PaymentID)
	}
	user.Balance = user.Balance.Sub(p.Amount)
	if err := r.Users.Save(ctx, user); err != nil {
		return err
	}
	return r.BalanceTx.Append(ctx, &accountDomain.BalanceTransaction{
		UserID:      user.ID,
		Amount:      p.Amount.Neg(),
		Type:        accountDomain.BalanceTxRepayment,
		Description: "Repayment " + p.PaymentID,
	})
}

// maybeCloseLoan marks the loan PAID once no unpaid installment remains.
func (u *Usecase) maybeCloseLoan(ctx context.Context, r uow.Repos, l *loanDomain.Loan) error {
	open, err := r.Installments.ListUnpaidByLoanForUpdate(ctx, l.ID)
	if err != nil {
		return err
	}
	if len(open) > 0 || l.Status != loanDomain.StatusActive {
		return nil
	}
	l.Status = loanDomain.StatusPaid
	l.ClosureReason = loanDomain.ClosurePaidOff
	l.IsActive = false
	return r.Loans.Save(ctx, l)
}

func (u *Usecase) auditAllocationFailure(ctx context.Context, paymentID string, cause error) {
	_ = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		p, err := r.Payments.GetByPaymentID(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := r.PaymentAudit.Append(ctx, &paymentDomain.AuditLog{
			PaymentID:   p.ID,
			EventType:   "ALLOCATION_FAILED",
			Description: cause.Error(),
		}); err != nil {
			return err
		}
		return r.Audit.Append(ctx, &auditDomain.Entry{
			TargetType:  auditDomain.TargetPayment,
			TargetID:    p.PaymentID,
			EventType:   auditDomain.EventAllocationFailed,
			Description: cause.Error(),
		})
	})
}

func allocationMetadata(count int) datatypes.JSON {
	b, _ := json.Marshal(map[string]any{"allocation_count": count})
	return b
}
