// Package money holds the pure decimal calculations behind schedules,
// penalties and payoffs. All results are rounded half-up to 2 decimals at
// the point they become money-visible, and nowhere earlier.
package money

import "github.com/shopspring/decimal"

var (
	hundred       = decimal.NewFromInt(100)
	twelveHundred = decimal.NewFromInt(1200)
	daysPerYear   = decimal.NewFromInt(365)
	one           = decimal.NewFromInt(1)
)

// FlatInterest is P * (annualRate/100/12) * months.
func FlatInterest(principal, annualRate decimal.Decimal, termMonths int) decimal.Decimal {
	monthlyRate := annualRate.Div(hundred).Div(decimal.NewFromInt(12))
	return principal.Mul(monthlyRate).Mul(decimal.NewFromInt(int64(termMonths))).Round(2)
}

// ReducingEMI is the fixed monthly payment under reducing-balance
// amortization: P*r*(1+r)^n / ((1+r)^n - 1) with r = annualRate/1200.
// A zero rate degenerates to straight principal division.
func ReducingEMI(principal, annualRate decimal.Decimal, termMonths int) decimal.Decimal {
	n := decimal.NewFromInt(int64(termMonths))
	r := annualRate.Div(twelveHundred)
	if r.IsZero() {
		return principal.Div(n).Round(2)
	}
	compound := one.Add(r).Pow(n)
	emi := principal.Mul(r).Mul(compound).Div(compound.Sub(one))
	return emi.Round(2)
}

// Penalty is overdue * (annualPenaltyRate/100) * (daysLate/365) + flatFee,
// or zero when nothing is overdue. The flat fee only applies when there is
// an overdue amount.
func Penalty(overdue, annualPenaltyRate decimal.Decimal, daysLate int, flatFee decimal.Decimal) decimal.Decimal {
	if !overdue.IsPositive() {
		return decimal.Zero
	}
	p := overdue.
		Mul(annualPenaltyRate.Div(hundred)).
		Mul(decimal.NewFromInt(int64(daysLate)).Div(daysPerYear)).
		Add(flatFee)
	return p.Round(2)
}

// EarlyPayoff is the total required to close a loan now: the remaining
// principal plus a percentage fee on it.
func EarlyPayoff(remainingPrincipal, penaltyRate decimal.Decimal) decimal.Decimal {
	fee := remainingPrincipal.Mul(penaltyRate.Div(hundred)).Round(2)
	return remainingPrincipal.Add(fee)
}
