package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	accountDomain "lendflow-backend/internal/domain/account"
	applicationDomain "lendflow-backend/internal/domain/application"
	auditDomain "lendflow-backend/internal/domain/audit"
	"lendflow-backend/internal/domain/errs"
	"lendflow-backend/internal/domain/uow"
	"lendflow-backend/internal/usecase/risk"
	"lendflow-backend/pkg/id"
)

type Usecase struct {
	uow  uow.UnitOfWork
	risk *risk.Engine
	now  func() time.Time
}

func NewUsecase(u uow.UnitOfWork, engine *risk.Engine) *Usecase {
	return &Usecase{uow: u, risk: engine, now: func() time.Time { return time.Now().UTC() }}
}

type CreateInput struct {
	BorrowerID string
	ProductID  string
	Amount     decimal.Decimal
	Term       int
}

type ApplicationDTO struct {
	ApplicationID string                   `json:"application_id"`
	BorrowerID    string                   `json:"borrower_id"`
	ProductID     string                   `json:"product_id"`
	Amount        decimal.Decimal          `json:"amount"`
	Term          int                      `json:"term"`
	Status        applicationDomain.Status `json:"status"`
	Remarks       string                   `json:"remarks,omitempty"`
	LoanID        string                   `json:"loan_id,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
}

// Create opens a DRAFT application for the borrower.
func (u *Usecase) Create(ctx context.Context, in CreateInput) (*ApplicationDTO, error) {
	if !in.Amount.IsPositive() {
		return nil, errs.Validation("amount must be positive")
	}
	if in.Term <= 0 {
		return nil, errs.Validation("term must be positive")
	}

	var dto *ApplicationDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		borrower, err := r.Users.GetByUserID(ctx, in.BorrowerID)
		if err != nil {
			return err
		}
		prod, err := r.Products.GetByProductID(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if !prod.IsActive {
			return errs.Validation("product %s is not open for applications", prod.Name)
		}

		app := &applicationDomain.LoanApplication{
			ApplicationID: id.NewID32(),
			BorrowerID:    borrower.ID,
			ProductID:     prod.ID,
			Amount:        in.Amount,
			Term:          in.Term,
			Status:        applicationDomain.StatusDraft,
			CreatedBy:     borrower.UserID,
		}
		if err := r.Applications.Create(ctx, app); err != nil {
			return err
		}
		dto = toDTO(app, borrower.UserID, prod.ProductID, "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Transition drives the application state machine. All sub-steps of one
// transition, disbursement included, commit atomically or not at all.
func (u *Usecase) Transition(ctx context.Context, applicationID string, to applicationDomain.Status, actorUserID, reason string) (*ApplicationDTO, error) {
	if !applicationDomain.Known(to) {
		return nil, errs.Validation("unknown status %q", to)
	}

	var dto *ApplicationDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		app, err := r.Applications.GetByApplicationIDForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		actor, err := r.Users.GetByUserID(ctx, actorUserID)
		if err != nil {
			return err
		}

		// Same-status transitions are a no-op, not an error.
		if app.Status == to {
			dto = toDTO(app, "", "", "")
			return nil
		}

		forced := false
		if !applicationDomain.CanTransition(app.Status, to) {
			if !actor.Privileged() {
				if applicationDomain.Terminal(app.Status) {
					return errs.Conflict("application is %s and accepts no further transitions", app.Status)
				}
				return errs.Permission("transition %s -> %s is not allowed", app.Status, to)
			}
			forced = true
		}

		out, err := u.applyTransition(ctx, r, app, to, actor, reason, forced)
		if err != nil {
			return err
		}
		dto = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func toDTO(app *applicationDomain.LoanApplication, borrowerID, productID, loanID string) *ApplicationDTO {
	return &ApplicationDTO{
		ApplicationID: app.ApplicationID,
		BorrowerID:    borrowerID,
		ProductID:     productID,
		Amount:        app.Amount,
		Term:          app.Term,
		Status:        app.Status,
		Remarks:       app.Remarks,
		LoanID:        loanID,
		CreatedAt:     app.CreatedAt,
	}
}

func transitionEvent(to applicationDomain.Status, forced bool) string {
	if forced {
		return auditDomain.EventStatusOverride
	}
	switch to {
	case applicationDomain.StatusSubmitted:
		return auditDomain.EventApplicationSubmitted
	case applicationDomain.StatusApproved:
		return auditDomain.EventLoanApproved
	case applicationDomain.StatusRejected:
		return auditDomain.EventLoanRejected
	case applicationDomain.StatusDisbursed:
		return auditDomain.EventLoanDisbursed
	}
	return auditDomain.EventStatusChanged
}

func historyRecord(app *applicationDomain.LoanApplication, from, to applicationDomain.Status, reason string, actor *accountDomain.User) *applicationDomain.StatusHistory {
	h := &applicationDomain.StatusHistory{
		ApplicationID: app.ID,
		FromStatus:    from,
		ToStatus:      to,
		Reason:        reason,
	}
	if actor != nil {
		actorID := actor.UserID
		h.ActorID = &actorID
	}
	return h
}

func statusPayload(st applicationDomain.Status) []byte {
	return []byte(fmt.Sprintf(`{"status":%q}`, st))
}
