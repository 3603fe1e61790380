// Package schedule turns loan terms into a monthly installment plan. The
// generator guarantees the principal components sum to the loan principal
// exactly: the final installment absorbs any rounding residue.
package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"lendflow-backend/internal/domain/errs"
	"lendflow-backend/internal/domain/product"
	"lendflow-backend/internal/money"
)

// Terms is the input to a schedule run, copied off the loan at
// disbursement.
type Terms struct {
	Principal    decimal.Decimal
	AnnualRate   decimal.Decimal
	TermMonths   int
	GraceMonths  int
	InterestType product.InterestType
	DisbursedAt  time.Time
}

// Line is one month of the plan, seq 1..TermMonths.
type Line struct {
	Seq       int
	DueDate   time.Time
	Principal decimal.Decimal
	Interest  decimal.Decimal
}

// Generate builds one line per month. Grace months are interest-only; the
// repayment term for principal is TermMonths - GraceMonths.
func Generate(t Terms) ([]Line, error) {
	if t.TermMonths <= 0 {
		return nil, errs.Validation("term must be positive, got %d", t.TermMonths)
	}
	if t.GraceMonths < 0 || t.GraceMonths >= t.TermMonths {
		return nil, errs.Validation("grace period %d must be shorter than term %d", t.GraceMonths, t.TermMonths)
	}
	if t.InterestType == product.InterestReducing {
		return reducing(t), nil
	}
	return flat(t), nil
}

func flat(t Terms) []Line {
	totalInterest := money.FlatInterest(t.Principal, t.AnnualRate, t.TermMonths)
	monthlyInterest := totalInterest.Div(decimal.NewFromInt(int64(t.TermMonths))).Round(2)

	repayTerm := t.TermMonths - t.GraceMonths
	monthlyPrincipal := t.Principal.Div(decimal.NewFromInt(int64(repayTerm))).Round(2)

	lines := make([]Line, 0, t.TermMonths)
	sumPrincipal, sumInterest := decimal.Zero, decimal.Zero
	for i := 1; i <= t.TermMonths; i++ {
		p := decimal.Zero
		in := monthlyInterest
		if i > t.GraceMonths {
			p = monthlyPrincipal
			if i == t.TermMonths {
				// residue absorption keeps both totals exact
				p = t.Principal.Sub(sumPrincipal)
				in = totalInterest.Sub(sumInterest)
			}
		}
		sumPrincipal = sumPrincipal.Add(p)
		sumInterest = sumInterest.Add(in)
		lines = append(lines, Line{
			Seq:       i,
			DueDate:   t.DisbursedAt.AddDate(0, i, 0),
			Principal: p,
			Interest:  in,
		})
	}
	return lines
}

func reducing(t Terms) []Line {
	monthlyRate := t.AnnualRate.Div(decimal.NewFromInt(1200))
	repayTerm := t.TermMonths - t.GraceMonths
	emi := money.ReducingEMI(t.Principal, t.AnnualRate, repayTerm)

	balance := t.Principal
	lines := make([]Line, 0, t.TermMonths)
	for i := 1; i <= t.TermMonths; i++ {
		interest := balance.Mul(monthlyRate).Round(2)
		p := decimal.Zero
		if i > t.GraceMonths {
			if i == t.TermMonths {
				// last non-grace month takes the balance exactly
				p = balance
				balance = decimal.Zero
			} else {
				p = emi.Sub(interest)
				balance = balance.Sub(p)
			}
		}
		lines = append(lines, Line{
			Seq:       i,
			DueDate:   t.DisbursedAt.AddDate(0, i, 0),
			Principal: p,
			Interest:  interest,
		})
	}
	return lines
}
