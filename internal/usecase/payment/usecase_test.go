package payment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lendflow-backend/internal/adapter/gateway"
	"lendflow-backend/internal/adapter/repository/mysql"
	"lendflow-backend/internal/domain/account"
	"lendflow-backend/internal/domain/errs"
	loanDomain "lendflow-backend/internal/domain/loan"
	paymentDomain "lendflow-backend/internal/domain/payment"
	"lendflow-backend/internal/domain/product"
	"lendflow-backend/internal/domain/uow"
	"lendflow-backend/internal/testutil/dbtest"
	"lendflow-backend/internal/testutil/uowmock"
)

const webhookSecret = "test-secret"

type fixture struct {
	db   *gorm.DB
	uc   *Usecase
	user *account.User
	loan *loanDomain.Loan
	i1   *loanDomain.Installment
	i2   *loanDomain.Installment
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

// newFixture seeds a borrower with an active loan carrying two installments
// due 285.00 (260 principal + 25 interest) and 275.00 (250 + 25).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	unit := mysql.NewGormUoW(db)

	gws := gateway.NewFactory()
	mock := gateway.NewMockGateway(webhookSecret)
	for _, m := range []paymentDomain.Method{paymentDomain.MethodWallet, paymentDomain.MethodBankTransfer} {
		gws.Register(m, mock)
	}
	uc := NewUsecase(unit, gws)

	user := &account.User{
		UserID:    "u000000000000000000000000000000u",
		Username:  "payer",
		KYCStatus: account.KYCVerified,
		Balance:   decimal.RequireFromString("300.00"),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	l := &loanDomain.Loan{
		LoanID:           "l000000000000000000000000000000l",
		ApplicationID:    1,
		BorrowerID:       user.ID,
		ProductID:        1,
		Principal:        decimal.RequireFromString("510.00"),
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

	i1 := &loanDomain.Installment{
		LoanID: l.ID, Seq: 1,
		DueDate:           time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		PrincipalExpected: decimal.RequireFromString("260.00"),
		InterestExpected:  decimal.RequireFromString("25.00"),
		Status:            loanDomain.InstallmentPending,
	}
	i2 := &loanDomain.Installment{
		LoanID: l.ID, Seq: 2,
		DueDate:           time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PrincipalExpected: decimal.RequireFromString("250.00"),
		InterestExpected:  decimal.RequireFromString("25.00"),
		Status:            loanDomain.InstallmentPending,
	}
	for _, i := range []*loanDomain.Installment{i1, i2} {
		if err := db.Create(i).Error; err != nil {
			t.Fatalf("seed installment: %v", err)
		}
	}
	return &fixture{db: db, uc: uc, user: user, loan: l, i1: i1, i2: i2}
}

// completedPayment seeds a payment already confirmed by the gateway, ready
// for allocation.
func (f *fixture) completedPayment(t *testing.T, paymentID, amount string, method paymentDomain.Method) *paymentDomain.Payment {
	t.Helper()
	p := &paymentDomain.Payment{
		PaymentID:      paymentID,
		UserID:         f.user.ID,
		LoanID:         &f.loan.ID,
		Amount:         dec(t, amount),
		Currency:       "USD",
		Status:         paymentDomain.StatusCompleted,
		Method:         method,
		IdempotencyKey: paymentID + "-key",
	}
	if err := f.db.Create(p).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return p
}

func (f *fixture) reloadInstallment(t *testing.T, id uint64) *loanDomain.Installment {
	t.Helper()
	var out loanDomain.Installment
	if err := f.db.First(&out, id).Error; err != nil {
		t.Fatalf("reload installment: %v", err)
	}
	return &out
}

func TestCreate_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := CreateInput{
		UserID:         f.user.UserID,
		LoanID:         f.loan.LoanID,
		Amount:         dec(t, "100.00"),
		Method:         paymentDomain.MethodBankTransfer,
		IdempotencyKey: "retry-key",
	}

	first, err := f.uc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.Duplicate || first.GatewayReference == "" {
		t.Fatalf("unexpected first create: %+v", first)
	}

	second, err := f.uc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create retry: %v", err)
	}
	if !second.Duplicate || second.PaymentID != first.PaymentID {
		t.Fatalf("retry should return the original payment: %+v", second)
	}

	var n int64
	f.db.Model(&paymentDomain.Payment{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected 1 payment row, got %d", n)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := CreateInput{
		UserID:         f.user.UserID,
		Amount:         dec(t, "100.00"),
		Method:         paymentDomain.MethodBankTransfer,
		IdempotencyKey: "k",
	}

	bad := base
	bad.Amount = dec(t, "0")
	if _, err := f.uc.Create(ctx, bad); !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("zero amount: %v", err)
	}

	bad = base
	bad.Method = "CASH"
	if _, err := f.uc.Create(ctx, bad); !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("unknown method: %v", err)
	}

	bad = base
	bad.Currency = "DOLLARS"
	if _, err := f.uc.Create(ctx, bad); !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("bad currency: %v", err)
	}

	bad = base
	bad.IdempotencyKey = ""
	if _, err := f.uc.Create(ctx, bad); !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("missing idempotency key: %v", err)
	}
}

func TestProcessPayment_PendingIsNoOp(t *testing.T) {
	f := newFixture(t)
	p := f.completedPayment(t, "pm-pending", "100.00", paymentDomain.MethodBankTransfer)
	p.Status = paymentDomain.StatusPending
	if err := f.db.Save(p).Error; err != nil {
		t.Fatalf("save: %v", err)
	}

	allocs, err := f.uc.ProcessPayment(context.Background(), p.PaymentID)
	if err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}
	if len(allocs) != 0 {
		t.Fatalf("pending payment allocated %d rows", len(allocs))
	}
	if got := f.reloadInstallment(t, f.i1.ID); got.Status != loanDomain.InstallmentPending {
		t.Fatalf("installment touched: %s", got.Status)
	}
}

func TestProcessPayment_PenaltyFirstPartial(t *testing.T) {
	f := newFixture(t)
	f.i1.PenaltyExpected = dec(t, "10.00")
	if err := f.db.Save(f.i1).Error; err != nil {
		t.Fatalf("save: %v", err)
	}
	p := f.completedPayment(t, "pm-partial", "5.00", paymentDomain.MethodBankTransfer)

	allocs, err := f.uc.ProcessPayment(context.Background(), p.PaymentID)
	if err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}
	if len(allocs) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(allocs))
	}
	if allocs[0].PenaltyAmount.StringFixed(2) != "5.00" || !allocs[0].InterestAmount.IsZero() {
		t.Fatalf("waterfall must hit penalty first: %+v", allocs[0])
	}

	got := f.reloadInstallment(t, f.i1.ID)
	if got.Status != loanDomain.InstallmentPartial || got.PenaltyPaid.StringFixed(2) != "5.00" {
		t.Fatalf("unexpected installment: status=%s penalty_paid=%s", got.Status, got.PenaltyPaid)
	}
}

func TestProcessPayment_ExactInstallment(t *testing.T) {
	f := newFixture(t)
	p := f.completedPayment(t, "pm-exact", "285.00", paymentDomain.MethodBankTransfer)

	allocs, err := f.uc.ProcessPayment(context.Background(), p.PaymentID)
	if err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}
	if len(allocs) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(allocs))
	}

	first := f.reloadInstallment(t, f.i1.ID)
	if first.Status != loanDomain.InstallmentPaid {
		t.Fatalf("first installment status = %s", first.Status)
	}
	if first.InterestPaid.StringFixed(2) != "25.00" || first.PrincipalPaid.StringFixed(2) != "260.00" {
		t.Fatalf("unexpected split: interest=%s principal=%s", first.InterestPaid, first.PrincipalPaid)
	}
	second := f.reloadInstallment(t, f.i2.ID)
	if second.Status != loanDomain.InstallmentPending || !second.TotalPaid().IsZero() {
		t.Fatalf("second installment touched: %+v", second)
	}

	// Capture stamped on success.
	var reloaded paymentDomain.Payment
	if err := f.db.First(&reloaded, p.ID).Error; err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if reloaded.CapturedAt == nil {
		t.Fatalf("capture timestamp missing")
	}
}

func TestProcessPayment_OverpaymentSinksIntoLastInstallment(t *testing.T) {
	f := newFixture(t)
	p := f.completedPayment(t, "pm-over", "600.00", paymentDomain.MethodBankTransfer)

	allocs, err := f.uc.ProcessPayment(context.Background(), p.PaymentID)
	if err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}
	// The residue merges into the second installment's allocation; no third
	// row appears.
	if len(allocs) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocs))
	}

	first := f.reloadInstallment(t, f.i1.ID)
	second := f.reloadInstallment(t, f.i2.ID)
	if first.Status != loanDomain.InstallmentPaid || second.Status != loanDomain.InstallmentPaid {
		t.Fatalf("both installments should be PAID: %s / %s", first.Status, second.Status)
	}
	// 600 - 560 due = 40 extra principal on the last installment.
	if second.PrincipalPaid.StringFixed(2) != "290.00" {
		t.Fatalf("last principal_paid = %s, want 290.00", second.PrincipalPaid.StringFixed(2))
	}
	if allocs[1].PrincipalAmount.StringFixed(2) != "290.00" {
		t.Fatalf("merged allocation principal = %s, want 290.00", allocs[1].PrincipalAmount.StringFixed(2))
	}
}

func TestProcessPayment_Idempotent(t *testing.T) {
	f := newFixture(t)
	p := f.completedPayment(t, "pm-idem", "285.00", paymentDomain.MethodBankTransfer)
	ctx := context.Background()

	if _, err := f.uc.ProcessPayment(ctx, p.PaymentID); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before := f.reloadInstallment(t, f.i1.ID)

	again, err := f.uc.ProcessPayment(ctx, p.PaymentID)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(again) != 1 {
		t.Fatalf("re-run returned %d allocations", len(again))
	}
	after := f.reloadInstallment(t, f.i1.ID)
	if !after.TotalPaid().Equal(before.TotalPaid()) {
		t.Fatalf("re-run mutated the installment: %s -> %s", before.TotalPaid(), after.TotalPaid())
	}
}

func TestProcessPayment_ClosesLoanWhenSettled(t *testing.T) {
	f := newFixture(t)
	p := f.completedPayment(t, "pm-close", "560.00", paymentDomain.MethodBankTransfer)

	if _, err := f.uc.ProcessPayment(context.Background(), p.PaymentID); err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}

	var l loanDomain.Loan
	if err := f.db.First(&l, f.loan.ID).Error; err != nil {
		t.Fatalf("reload loan: %v", err)
	}
	if l.Status != loanDomain.StatusPaid || l.ClosureReason != loanDomain.ClosurePaidOff || l.IsActive {
		t.Fatalf("loan not closed: %+v", l)
	}
}

func TestProcessPayment_WalletSettlement(t *testing.T) {
	f := newFixture(t)
	p := f.completedPayment(t, "pm-wallet", "285.00", paymentDomain.MethodWallet)

	if _, err := f.uc.ProcessPayment(context.Background(), p.PaymentID); err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}

	var u account.User
	if err := f.db.First(&u, f.user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if u.Balance.StringFixed(2) != "15.00" {
		t.Fatalf("balance = %s, want 15.00", u.Balance.StringFixed(2))
	}
	txs, err := mysql.NewBalanceTransactionRepository(f.db).ListByUser(context.Background(), u.ID)
	if err != nil || len(txs) != 1 || txs[0].Type != account.BalanceTxRepayment {
		t.Fatalf("repayment ledger: %+v err=%v", txs, err)
	}
}

func TestProcessPayment_InsufficientWalletRollsBack(t *testing.T) {
	f := newFixture(t)
	p := f.completedPayment(t, "pm-broke", "500.00", paymentDomain.MethodWallet)

	_, err := f.uc.ProcessPayment(context.Background(), p.PaymentID)
	if !errs.IsKind(err, errs.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// Nothing sticks: installments untouched, balance intact.
	if got := f.reloadInstallment(t, f.i1.ID); !got.TotalPaid().IsZero() {
		t.Fatalf("installment mutated after rollback")
	}
	var u account.User
	if err := f.db.First(&u, f.user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if u.Balance.StringFixed(2) != "300.00" {
		t.Fatalf("balance mutated: %s", u.Balance)
	}

	// The failure event is written outside the rolled-back transaction.
	logs, err := mysql.NewPaymentAuditRepository(f.db).ListByPayment(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	found := false
	for _, l := range logs {
		if l.EventType == "ALLOCATION_FAILED" {
			found = true
		}
	}
	if !found {
		t.Fatalf("ALLOCATION_FAILED not recorded: %+v", logs)
	}
}

func TestProcessPayment_LoanlessIsNoOp(t *testing.T) {
	f := newFixture(t)
	p := f.completedPayment(t, "pm-noloan", "100.00", paymentDomain.MethodBankTransfer)
	p.LoanID = nil
	if err := f.db.Save(p).Error; err != nil {
		t.Fatalf("save: %v", err)
	}

	allocs, err := f.uc.ProcessPayment(context.Background(), p.PaymentID)
	if err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}
	if len(allocs) != 0 {
		t.Fatalf("loanless payment allocated %d rows", len(allocs))
	}

	// No failure event either; the funds just sit on the payment.
	logs, err := mysql.NewPaymentAuditRepository(f.db).ListByPayment(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("unexpected audit rows: %+v", logs)
	}
	if got := f.reloadInstallment(t, f.i1.ID); !got.TotalPaid().IsZero() {
		t.Fatalf("installment touched by loanless payment")
	}
}

// Repository stubs for failure paths sqlite cannot produce on demand.
var errStubCall = errors.New("unexpected repository call")

type userRepoStub struct{ user *account.User }

func (s *userRepoStub) Create(context.Context, *account.User) error { return errStubCall }
func (s *userRepoStub) GetByUserID(context.Context, string) (*account.User, error) {
	return s.user, nil
}
func (s *userRepoStub) GetByUserIDForUpdate(context.Context, string) (*account.User, error) {
	return nil, errStubCall
}
func (s *userRepoStub) GetByIDForUpdate(context.Context, uint64) (*account.User, error) {
	return nil, errStubCall
}
func (s *userRepoStub) Save(context.Context, *account.User) error { return errStubCall }

type paymentRepoStub struct {
	getByKeyFn func() (*paymentDomain.Payment, error)
	createFn   func(p *paymentDomain.Payment) error
}

func (s *paymentRepoStub) Create(_ context.Context, p *paymentDomain.Payment) error {
	if s.createFn == nil {
		return errStubCall
	}
	return s.createFn(p)
}
func (s *paymentRepoStub) Save(context.Context, *paymentDomain.Payment) error { return errStubCall }
func (s *paymentRepoStub) GetByPaymentID(context.Context, string) (*paymentDomain.Payment, error) {
	return nil, errStubCall
}
func (s *paymentRepoStub) GetByPaymentIDForUpdate(context.Context, string) (*paymentDomain.Payment, error) {
	return nil, errStubCall
}
func (s *paymentRepoStub) GetByIdempotencyKey(context.Context, uint64, string) (*paymentDomain.Payment, error) {
	return s.getByKeyFn()
}
func (s *paymentRepoStub) GetByGatewayReferenceForUpdate(context.Context, string) (*paymentDomain.Payment, error) {
	return nil, errStubCall
}

func stubUsecase(pr *paymentRepoStub) *Usecase {
	unit := uowmock.New().WithWithinTx(func(ctx context.Context, fn func(uow.Repos) error) error {
		return fn(uow.Repos{
			Users:    &userRepoStub{user: &account.User{ID: 1, UserID: "u000000000000000000000000000000u"}},
			Payments: pr,
		})
	})
	gws := gateway.NewFactory()
	gws.Register(paymentDomain.MethodBankTransfer, gateway.NewMockGateway(webhookSecret))
	return NewUsecase(unit, gws)
}

// A transient lookup error is not "no prior payment": it must surface, not
// trigger a second insert.
func TestCreate_IdempotencyLookupErrorPropagates(t *testing.T) {
	lookupErr := errors.New("connection reset by peer")
	inserted := false
	uc := stubUsecase(&paymentRepoStub{
		getByKeyFn: func() (*paymentDomain.Payment, error) { return nil, lookupErr },
		createFn:   func(*paymentDomain.Payment) error { inserted = true; return nil },
	})

	_, err := uc.Create(context.Background(), CreateInput{
		UserID:         "u000000000000000000000000000000u",
		Amount:         dec(t, "10.00"),
		Method:         paymentDomain.MethodBankTransfer,
		IdempotencyKey: "k-transient",
	})
	if !errors.Is(err, lookupErr) {
		t.Fatalf("expected lookup error, got %v", err)
	}
	if inserted {
		t.Fatalf("insert attempted after failed lookup")
	}
}

// Two racing creates with the same key: the loser's insert hits the unique
// index and must hand back the winner's row instead of a raw DB error.
func TestCreate_InsertRaceReturnsWinner(t *testing.T) {
	winner := &paymentDomain.Payment{
		PaymentID:      "pm-winner00000000000000000000000",
		UserID:         1,
		Amount:         dec(t, "10.00"),
		Currency:       "USD",
		Status:         paymentDomain.StatusPending,
		Method:         paymentDomain.MethodBankTransfer,
		IdempotencyKey: "k-race",
	}
	lookups := 0
	uc := stubUsecase(&paymentRepoStub{
		getByKeyFn: func() (*paymentDomain.Payment, error) {
			lookups++
			if lookups == 1 {
				return nil, gorm.ErrRecordNotFound
			}
			return winner, nil
		},
		createFn: func(*paymentDomain.Payment) error {
			return errors.New("Error 1062 (23000): Duplicate entry 'k-race' for key 'ux_payments_idempotency_key'")
		},
	})

	dto, err := uc.Create(context.Background(), CreateInput{
		UserID:         "u000000000000000000000000000000u",
		Amount:         dec(t, "10.00"),
		Method:         paymentDomain.MethodBankTransfer,
		IdempotencyKey: "k-race",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !dto.Duplicate || dto.PaymentID != winner.PaymentID {
		t.Fatalf("expected the winner's row, got %+v", dto)
	}
}

func TestConfirmFromGateway(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.uc.Create(ctx, CreateInput{
		UserID:         f.user.UserID,
		LoanID:         f.loan.LoanID,
		Amount:         dec(t, "285.00"),
		Method:         paymentDomain.MethodBankTransfer,
		IdempotencyKey: "webhook-key",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	raw, _ := json.Marshal(map[string]string{
		"gateway_reference": created.GatewayReference,
		"status":            "SUCCESS",
		"event_type":        "payment.succeeded",
	})
	ev := &gateway.NormalizedEvent{
		GatewayReference: created.GatewayReference,
		ExternalStatus:   "SUCCESS",
		EventType:        "payment.succeeded",
		Succeeded:        true,
	}

	dto, err := f.uc.ConfirmFromGateway(ctx, ev, raw)
	if err != nil {
		t.Fatalf("ConfirmFromGateway: %v", err)
	}
	if dto.Status != paymentDomain.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", dto.Status)
	}
	// Success runs the allocation pass.
	if got := f.reloadInstallment(t, f.i1.ID); got.Status != loanDomain.InstallmentPaid {
		t.Fatalf("allocation did not run: %s", got.Status)
	}

	// A replayed webhook records the event but allocates nothing further.
	if _, err := f.uc.ConfirmFromGateway(ctx, ev, raw); err != nil {
		t.Fatalf("replay: %v", err)
	}
	var n int64
	f.db.Model(&paymentDomain.Allocation{}).Count(&n)
	if n != 1 {
		t.Fatalf("replay duplicated allocations: %d", n)
	}
}

func TestConfirmFromGateway_Failure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.uc.Create(ctx, CreateInput{
		UserID:         f.user.UserID,
		LoanID:         f.loan.LoanID,
		Amount:         dec(t, "285.00"),
		Method:         paymentDomain.MethodBankTransfer,
		IdempotencyKey: "webhook-fail",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ev := &gateway.NormalizedEvent{
		GatewayReference: created.GatewayReference,
		ExternalStatus:   "DECLINED",
		EventType:        "payment.failed",
	}
	dto, err := f.uc.ConfirmFromGateway(ctx, ev, []byte(`{}`))
	if err != nil {
		t.Fatalf("ConfirmFromGateway: %v", err)
	}
	if dto.Status != paymentDomain.StatusFailed {
		t.Fatalf("status = %s, want FAILED", dto.Status)
	}
	var n int64
	f.db.Model(&paymentDomain.Allocation{}).Count(&n)
	if n != 0 {
		t.Fatalf("failed payment allocated %d rows", n)
	}
}
