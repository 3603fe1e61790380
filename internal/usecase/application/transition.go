package application

import (
	"context"

	accountDomain "lendflow-backend/internal/domain/account"
	applicationDomain "lendflow-backend/internal/domain/application"
	auditDomain "lendflow-backend/internal/domain/audit"
	"lendflow-backend/internal/domain/errs"
	loanDomain "lendflow-backend/internal/domain/loan"
	"lendflow-backend/internal/domain/product"
	"lendflow-backend/internal/domain/uow"
	"lendflow-backend/internal/schedule"
	"lendflow-backend/internal/usecase/risk"
	"lendflow-backend/pkg/id"
)

// applyTransition enforces the entry guards for the target status, persists
// the new status plus its history record, and runs the status' side effects
// (risk evaluation, loan creation). Runs inside the caller's transaction.
func (u *Usecase) applyTransition(ctx context.Context, r uow.Repos, app *applicationDomain.LoanApplication, to applicationDomain.Status, actor *accountDomain.User, reason string, forced bool) (*ApplicationDTO, error) {
	borrowerRow, err := r.Users.GetByIDForUpdate(ctx, app.BorrowerID)
	if err != nil {
		return nil, err
	}
	prod, err := r.Products.GetByID(ctx, app.ProductID)
	if err != nil {
		return nil, err
	}

	// Entry guards. Forced transitions still may not skip KYC.
	if to == applicationDomain.StatusSubmitted {
		if borrowerRow.KYCStatus != accountDomain.KYCVerified {
			return nil, errs.Validation("KYC must be VERIFIED before submitting an application")
		}
	}
	if app.Status == applicationDomain.StatusDraft && to == applicationDomain.StatusSubmitted {
		if app.Amount.LessThan(prod.MinAmount) || app.Amount.GreaterThan(prod.MaxAmount) {
			return nil, errs.Validation("amount must be between %s and %s",
				prod.MinAmount.StringFixed(2), prod.MaxAmount.StringFixed(2))
		}
		if app.Term < prod.MinTerm || app.Term > prod.MaxTerm {
			return nil, errs.Validation("term must be between %d and %d", prod.MinTerm, prod.MaxTerm)
		}
	}

	from := app.Status
	app.Status = to
	app.UpdatedBy = actor.UserID
	if err := r.Applications.Save(ctx, app); err != nil {
		return nil, err
	}
	if err := r.StatusHistory.Append(ctx, historyRecord(app, from, to, reason, actor)); err != nil {
		return nil, err
	}
	actorID := actor.UserID
	if err := r.Audit.Append(ctx, &auditDomain.Entry{
		ActorID:       &actorID,
		TargetType:    auditDomain.TargetApplication,
		TargetID:      app.ApplicationID,
		EventType:     transitionEvent(to, forced),
		Description:   reason,
		PayloadBefore: statusPayload(from),
		PayloadAfter:  statusPayload(to),
	}); err != nil {
		return nil, err
	}

	loanID := ""
	switch to {
	case applicationDomain.StatusUnderReview:
		res, err := u.risk.Evaluate(ctx, r, app, borrowerRow, &actorID)
		if err != nil {
			return nil, err
		}
		app.Remarks = res.Message
		if err := r.Applications.Save(ctx, app); err != nil {
			return nil, err
		}
		if !res.Passed {
			// failed review auto-rejects with the rule code as reason
			rejected, err := u.applyTransition(ctx, r, app, applicationDomain.StatusRejected, actor, res.FailedRuleCode, false)
			if err != nil {
				return nil, err
			}
			return rejected, nil
		}
	case applicationDomain.StatusDisbursed:
		l, err := u.disburse(ctx, r, app, borrowerRow, prod, actor)
		if err != nil {
			return nil, err
		}
		loanID = l.LoanID
	}

	return toDTO(app, borrowerRow.UserID, "", loanID), nil
}

// disburse converts an application into an active loan: loan row, full
// installment schedule, balance credit plus ledger row. The blacklist is
// re-checked at this exact moment; a hit aborts the whole transition.
func (u *Usecase) disburse(ctx context.Context, r uow.Repos, app *applicationDomain.LoanApplication, borrower *accountDomain.User, prod *product.LoanProduct, actor *accountDomain.User) (*loanDomain.Loan, error) {
	if borrower.IsBlacklisted {
		return nil, errs.Conflict("disbursement blocked: borrower is blacklisted").WithCode(risk.CodeBlacklisted)
	}

	now := u.now()
	l := &loanDomain.Loan{
		LoanID:           id.NewID32(),
		ApplicationID:    app.ID,
		BorrowerID:       borrower.ID,
		ProductID:        prod.ID,
		Principal:        app.Amount,
		Rate:             prod.DefaultRate,
		InterestType:     prod.InterestType,
		Term:             app.Term,
		GracePeriod:      prod.GracePeriod,
		PenaltyRate:      prod.PenaltyRate,
		PenaltyFlatFee:   prod.PenaltyFlatFee,
		DisbursementDate: now,
		Status:           loanDomain.StatusActive,
		IsActive:         true,
		CreatedBy:        actor.UserID,
	}
	if err := r.Loans.Create(ctx, l); err != nil {
		return nil, err
	}

	lines, err := schedule.Generate(schedule.Terms{
		Principal:    l.Principal,
		AnnualRate:   l.Rate,
		TermMonths:   l.Term,
		GraceMonths:  l.GracePeriod,
		InterestType: l.InterestType,
		DisbursedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	installments := make([]*loanDomain.Installment, 0, len(lines))
	for _, line := range lines {
		installments = append(installments, &loanDomain.Installment{
			LoanID:            l.ID,
			Seq:               line.Seq,
			DueDate:           line.DueDate,
			PrincipalExpected: line.Principal,
			InterestExpected:  line.Interest,
			Status:            loanDomain.InstallmentPending,
		})
	}
	if err := r.Installments.CreateBatch(ctx, installments); err != nil {
		return nil, err
	}

	borrower.Balance = borrower.Balance.Add(l.Principal)
	if err := r.Users.Save(ctx, borrower); err != nil {
		return nil, err
	}
	if err := r.BalanceTx.Append(ctx, &accountDomain.BalanceTransaction{
		UserID:      borrower.ID,
		Amount:      l.Principal,
		Type:        accountDomain.BalanceTxDisbursement,
		Description: "Loan " + l.LoanID + " disbursed",
	}); err != nil {
		return nil, err
	}

	return l, nil
}
