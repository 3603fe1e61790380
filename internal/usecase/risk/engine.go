package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"lendflow-backend/internal/domain/account"
	applicationDomain "lendflow-backend/internal/domain/application"
	auditDomain "lendflow-backend/internal/domain/audit"
	loanDomain "lendflow-backend/internal/domain/loan"
	"lendflow-backend/internal/domain/uow"
)

// Rule codes, in evaluation order. The first violated rule wins.
const (
	CodeBlacklisted    = "USER_BLACKLISTED"
	CodeMaxActiveLoans = "MAX_ACTIVE_LOANS_EXCEEDED"
	CodeExposureLimit  = "EXPOSURE_LIMIT_REACHED"
	CodePoorRepayment  = "POOR_REPAYMENT_HISTORY"
)

// Config holds the injected thresholds; nothing in the engine is a hard
// constant.
type Config struct {
	MaxActiveLoans            int
	MaxExposure               decimal.Decimal
	LatePaymentThresholdDays  int
	LatePaymentCountThreshold int64
}

func DefaultConfig() Config {
	return Config{
		MaxActiveLoans:            2,
		MaxExposure:               decimal.RequireFromString("5000.00"),
		LatePaymentThresholdDays:  30,
		LatePaymentCountThreshold: 0,
	}
}

type Engine struct {
	cfg Config
	uow uow.UnitOfWork
	now func() time.Time
}

func NewEngine(cfg Config, u uow.UnitOfWork) *Engine {
	return &Engine{cfg: cfg, uow: u, now: func() time.Time { return time.Now().UTC() }}
}

// Result is the outcome of one evaluation. RuleResults holds the pass map
// for every rule that ran.
type Result struct {
	Passed         bool            `json:"is_passed"`
	FailedRuleCode string          `json:"failed_rule_code,omitempty"`
	Message        string          `json:"message"`
	RuleResults    map[string]bool `json:"rule_results"`
}

// rule is one predicate in the ordered chain. A failed rule returns
// ok=false plus its failure code and message.
type rule struct {
	id    string
	check func(ctx context.Context, r uow.Repos, app *applicationDomain.LoanApplication, borrower *account.User) (ok bool, code, msg string, err error)
}

func (e *Engine) rules() []rule {
	return []rule{
		{id: "R01", check: e.checkBlacklist},
		{id: "R02", check: e.checkActiveLoans},
		{id: "R03", check: e.checkExposure},
		{id: "R04", check: e.checkRepaymentHistory},
	}
}

// Evaluate runs the rule chain against the borrower's current state, inside
// the caller's transaction. One audit event is written on both the pass and
// fail path.
func (e *Engine) Evaluate(ctx context.Context, r uow.Repos, app *applicationDomain.LoanApplication, borrower *account.User, actorID *string) (*Result, error) {
	results := make(map[string]bool, 4)
	for _, ru := range e.rules() {
		ok, code, msg, err := ru.check(ctx, r, app, borrower)
		if err != nil {
			return nil, err
		}
		if !ok {
			results[ru.id] = false
			return e.finalize(ctx, r, app, actorID, &Result{
				Passed:         false,
				FailedRuleCode: code,
				Message:        msg,
				RuleResults:    results,
			})
		}
		results[ru.id] = true
	}
	return e.finalize(ctx, r, app, actorID, &Result{
		Passed:      true,
		Message:     "All risk checks passed.",
		RuleResults: results,
	})
}

func (e *Engine) finalize(ctx context.Context, r uow.Repos, app *applicationDomain.LoanApplication, actorID *string, res *Result) (*Result, error) {
	payload, err := json.Marshal(map[string]any{
		"is_passed":        res.Passed,
		"failed_rule_code": res.FailedRuleCode,
		"rule_results":     res.RuleResults,
	})
	if err != nil {
		return nil, err
	}
	meta, _ := json.Marshal(map[string]string{"source": "risk.Engine"})
	entry := &auditDomain.Entry{
		ActorID:      actorID,
		TargetType:   auditDomain.TargetApplication,
		TargetID:     app.ApplicationID,
		EventType:    auditDomain.EventRiskEvaluation,
		Description:  res.Message,
		PayloadAfter: payload,
		Metadata:     meta,
	}
	if err := r.Audit.Append(ctx, entry); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) checkBlacklist(_ context.Context, _ uow.Repos, _ *applicationDomain.LoanApplication, borrower *account.User) (bool, string, string, error) {
	if borrower.IsBlacklisted {
		return false, CodeBlacklisted, "User is on the global blacklist.", nil
	}
	return true, "", "", nil
}

func (e *Engine) checkActiveLoans(ctx context.Context, r uow.Repos, _ *applicationDomain.LoanApplication, borrower *account.User) (bool, string, string, error) {
	n, err := r.Loans.CountByBorrowerAndStatus(ctx, borrower.ID, loanDomain.StatusActive)
	if err != nil {
		return false, "", "", err
	}
	if n >= int64(e.cfg.MaxActiveLoans) {
		return false, CodeMaxActiveLoans,
			fmt.Sprintf("User already has %d active loans (limit: %d).", n, e.cfg.MaxActiveLoans), nil
	}
	return true, "", "", nil
}

func (e *Engine) checkExposure(ctx context.Context, r uow.Repos, app *applicationDomain.LoanApplication, borrower *account.User) (bool, string, string, error) {
	exposure, err := r.Loans.SumPrincipalByBorrowerAndStatus(ctx, borrower.ID, loanDomain.StatusActive)
	if err != nil {
		return false, "", "", err
	}
	total := exposure.Add(app.Amount)
	if total.GreaterThan(e.cfg.MaxExposure) {
		return false, CodeExposureLimit,
			fmt.Sprintf("Total exposure (%s) exceeds limit of %s.", total.StringFixed(2), e.cfg.MaxExposure.StringFixed(2)), nil
	}
	return true, "", "", nil
}

func (e *Engine) checkRepaymentHistory(ctx context.Context, r uow.Repos, _ *applicationDomain.LoanApplication, borrower *account.User) (bool, string, string, error) {
	cutoff := e.now().AddDate(0, 0, -e.cfg.LatePaymentThresholdDays)
	n, err := r.Installments.CountOverdueBefore(ctx, borrower.ID, cutoff)
	if err != nil {
		return false, "", "", err
	}
	if n > e.cfg.LatePaymentCountThreshold {
		return false, CodePoorRepayment,
			fmt.Sprintf("User has %d severely overdue installments.", n), nil
	}
	return true, "", "", nil
}
