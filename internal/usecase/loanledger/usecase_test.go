package loanledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lendflow-backend/internal/adapter/repository/mysql"
	"lendflow-backend/internal/domain/errs"
	loanDomain "lendflow-backend/internal/domain/loan"
	"lendflow-backend/internal/domain/product"
	"lendflow-backend/internal/testutil/dbtest"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func TestWaterfall(t *testing.T) {
	inst := &loanDomain.Installment{
		PrincipalExpected: decimal.RequireFromString("100.00"),
		InterestExpected:  decimal.RequireFromString("20.00"),
		PenaltyExpected:   decimal.RequireFromString("5.00"),
	}

	cases := []struct {
		name      string
		amount    string
		penalty   string
		interest  string
		principal string
		leftover  string
	}{
		{"penalty only", "3.00", "3.00", "0", "0", "0"},
		{"penalty then interest", "15.00", "5.00", "10.00", "0", "0"},
		{"spills into principal", "40.00", "5.00", "20.00", "15.00", "0"},
		{"exact total", "125.00", "5.00", "20.00", "100.00", "0"},
		{"overflow returned", "200.00", "5.00", "20.00", "100.00", "75.00"},
		{"zero amount", "0", "0", "0", "0", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			split, rest := Waterfall(inst, dec(t, tc.amount))
			if !split.Penalty.Equal(dec(t, tc.penalty)) ||
				!split.Interest.Equal(dec(t, tc.interest)) ||
				!split.Principal.Equal(dec(t, tc.principal)) {
				t.Fatalf("split = %+v", split)
			}
			if !rest.Equal(dec(t, tc.leftover)) {
				t.Fatalf("leftover = %s, want %s", rest, tc.leftover)
			}
		})
	}
}

func TestWaterfall_CapsAtPartialPayments(t *testing.T) {
	inst := &loanDomain.Installment{
		PrincipalExpected: decimal.RequireFromString("100.00"),
		InterestExpected:  decimal.RequireFromString("20.00"),
		PrincipalPaid:     decimal.RequireFromString("60.00"),
		InterestPaid:      decimal.RequireFromString("20.00"),
	}

	// Interest is settled; only the 40.00 principal residue can absorb funds.
	split, rest := Waterfall(inst, dec(t, "50.00"))
	if !split.Interest.IsZero() || !split.Principal.Equal(dec(t, "40.00")) {
		t.Fatalf("split = %+v", split)
	}
	if !rest.Equal(dec(t, "10.00")) {
		t.Fatalf("leftover = %s, want 10.00", rest)
	}
}

func seedLedgerLoan(t *testing.T, db *gorm.DB) (*loanDomain.Loan, []*loanDomain.Installment) {
	t.Helper()
	l := &loanDomain.Loan{
		LoanID:           "LN-LEDGER",
		ApplicationID:    42,
		BorrowerID:       1,
		ProductID:        1,
		Principal:        decimal.RequireFromString("200.00"),
		Rate:             decimal.RequireFromString("12.00"),
		InterestType:     product.InterestFlat,
		Term:             2,
		DisbursementDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:           loanDomain.StatusActive,
		IsActive:         true,
	}
	if err := db.Create(l).Error; err != nil {
		t.Fatalf("seed loan: %v", err)
	}
	var insts []*loanDomain.Installment
	for seq := 1; seq <= 2; seq++ {
		i := &loanDomain.Installment{
			LoanID:            l.ID,
			Seq:               seq,
			DueDate:           time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, seq, 0),
			PrincipalExpected: decimal.RequireFromString("100.00"),
			InterestExpected:  decimal.RequireFromString("2.00"),
			Status:            loanDomain.InstallmentPending,
		}
		if err := db.Create(i).Error; err != nil {
			t.Fatalf("seed installment: %v", err)
		}
		insts = append(insts, i)
	}
	return l, insts
}

func TestApplyPayment(t *testing.T) {
	db := dbtest.Open(t)
	uc := NewUsecase(mysql.NewGormUoW(db))
	ctx := context.Background()
	l, insts := seedLedgerLoan(t, db)

	leftover, err := uc.ApplyPayment(ctx, l.LoanID, insts[0].ID, dec(t, "50.00"), "actor")
	if err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
	if !leftover.IsZero() {
		t.Fatalf("leftover = %s", leftover)
	}

	var got loanDomain.Installment
	if err := db.First(&got, insts[0].ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != loanDomain.InstallmentPartial {
		t.Fatalf("status = %s, want PARTIAL", got.Status)
	}
	if got.InterestPaid.StringFixed(2) != "2.00" || got.PrincipalPaid.StringFixed(2) != "48.00" {
		t.Fatalf("split: interest=%s principal=%s", got.InterestPaid, got.PrincipalPaid)
	}

	// Settle the rest; overflow comes back to the caller.
	leftover, err = uc.ApplyPayment(ctx, l.LoanID, insts[0].ID, dec(t, "60.00"), "actor")
	if err != nil {
		t.Fatalf("ApplyPayment 2nd: %v", err)
	}
	if leftover.StringFixed(2) != "8.00" {
		t.Fatalf("leftover = %s, want 8.00", leftover.StringFixed(2))
	}
	if err := db.First(&got, insts[0].ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != loanDomain.InstallmentPaid {
		t.Fatalf("status = %s, want PAID", got.Status)
	}
}

func TestApplyPayment_Validation(t *testing.T) {
	db := dbtest.Open(t)
	uc := NewUsecase(mysql.NewGormUoW(db))
	ctx := context.Background()
	l, insts := seedLedgerLoan(t, db)

	if _, err := uc.ApplyPayment(ctx, l.LoanID, insts[0].ID, dec(t, "-1.00"), "actor"); !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("negative amount: %v", err)
	}
	if _, err := uc.ApplyPayment(ctx, l.LoanID, 999999, dec(t, "10.00"), "actor"); !errors.Is(err, loanDomain.ErrNotFound) {
		t.Fatalf("unknown installment: %v", err)
	}
	if _, err := uc.ApplyPayment(ctx, "LN-MISSING", insts[0].ID, dec(t, "10.00"), "actor"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("unknown loan: %v", err)
	}
}

func TestSweepOverdue(t *testing.T) {
	db := dbtest.Open(t)
	uc := NewUsecase(mysql.NewGormUoW(db))
	ctx := context.Background()
	_, insts := seedLedgerLoan(t, db)

	asOf := insts[1].DueDate.AddDate(0, 0, 1)
	n, err := uc.SweepOverdue(ctx, asOf)
	if err != nil {
		t.Fatalf("SweepOverdue: %v", err)
	}
	if n != 2 {
		t.Fatalf("flipped %d installments, want 2", n)
	}

	n, err = uc.SweepOverdue(ctx, asOf)
	if err != nil || n != 0 {
		t.Fatalf("second sweep: n=%d err=%v", n, err)
	}
}

func TestGet_Outstanding(t *testing.T) {
	db := dbtest.Open(t)
	uc := NewUsecase(mysql.NewGormUoW(db))
	ctx := context.Background()
	l, insts := seedLedgerLoan(t, db)

	if _, err := uc.ApplyPayment(ctx, l.LoanID, insts[0].ID, dec(t, "102.00"), "actor"); err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}

	dto, err := uc.Get(ctx, l.LoanID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if dto.Outstanding.StringFixed(2) != "102.00" {
		t.Fatalf("outstanding = %s, want 102.00", dto.Outstanding.StringFixed(2))
	}

	schedule, err := uc.Installments(ctx, l.LoanID)
	if err != nil {
		t.Fatalf("Installments: %v", err)
	}
	if len(schedule) != 2 || schedule[0].Status != loanDomain.InstallmentPaid || schedule[1].Status != loanDomain.InstallmentPending {
		t.Fatalf("unexpected schedule: %+v", schedule)
	}
}
