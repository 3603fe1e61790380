package account

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("user not found")

type Role string

const (
	RoleBorrower    Role = "BORROWER"
	RoleLoanOfficer Role = "LOAN_OFFICER"
	RoleAdmin       Role = "ADMIN"
)

type KYCStatus string

const (
	KYCUnverified KYCStatus = "UNVERIFIED"
	KYCPending    KYCStatus = "PENDING"
	KYCVerified   KYCStatus = "VERIFIED"
	KYCRejected   KYCStatus = "REJECTED"
)

type User struct {
	ID            uint64          `gorm:"primaryKey;column:id" json:"-"`
	UserID        string          `gorm:"size:32;uniqueIndex:ux_users_user_id" json:"user_id"`
	Username      string          `gorm:"size:150;uniqueIndex:ux_users_username" json:"username"`
	Role          Role            `gorm:"size:20;default:'BORROWER'" json:"role"`
	IsStaff       bool            `gorm:"default:false" json:"is_staff"`
	Balance       decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"balance"`
	IsBlacklisted bool            `gorm:"default:false;index" json:"is_blacklisted"`
	KYCStatus     KYCStatus       `gorm:"column:kyc_status;size:20;default:'UNVERIFIED'" json:"kyc_status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Privileged is the single authorization predicate for forced state-machine
// edges and admin-only operations.
func (u *User) Privileged() bool {
	return u.IsStaff || u.Role == RoleAdmin || u.Role == RoleLoanOfficer
}

// Blacklist is the per-user compliance record. The denormalized
// users.is_blacklisted flag is kept in sync inside the same transaction
// whenever a record is toggled.
type Blacklist struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"-"`
	UserID    uint64    `gorm:"index:idx_blacklists_user;not null" json:"-"`
	Reason    string    `gorm:"type:text" json:"reason"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedBy string    `gorm:"size:32" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Blacklist) TableName() string { return "blacklists" }

type BalanceTxType string

const (
	BalanceTxDisbursement BalanceTxType = "DISBURSEMENT"
	BalanceTxRepayment    BalanceTxType = "REPAYMENT"
)

// BalanceTransaction is the append-only ledger row written whenever a user
// balance mutates.
type BalanceTransaction struct {
	ID          uint64          `gorm:"primaryKey;column:id" json:"-"`
	UserID      uint64          `gorm:"index;not null" json:"-"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Type        BalanceTxType   `gorm:"size:20" json:"type"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (BalanceTransaction) TableName() string { return "balance_transactions" }
