package product

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("loan product not found")

type InterestType string

const (
	InterestFlat     InterestType = "FLAT"
	InterestReducing InterestType = "REDUCING"
)

// LoanProduct is referenced, never mutated, by applications. Rate and
// penalty parameters are copied onto the Loan at disbursement.
type LoanProduct struct {
	ID             uint64          `gorm:"primaryKey;column:id" json:"-"`
	ProductID      string          `gorm:"size:32;uniqueIndex:ux_products_product_id" json:"product_id"`
	Name           string          `gorm:"size:100;uniqueIndex:ux_products_name" json:"name"`
	Description    string          `gorm:"type:text" json:"description"`
	InterestType   InterestType    `gorm:"size:20;default:'FLAT'" json:"interest_type"`
	MinAmount      decimal.Decimal `gorm:"type:decimal(12,2)" json:"min_amount"`
	MaxAmount      decimal.Decimal `gorm:"type:decimal(12,2)" json:"max_amount"`
	MinTerm        int             `gorm:"not null" json:"min_term"`
	MaxTerm        int             `gorm:"not null" json:"max_term"`
	DefaultRate    decimal.Decimal `gorm:"type:decimal(5,2)" json:"default_interest_rate"`
	GracePeriod    int             `gorm:"default:0" json:"grace_period"`
	PenaltyRate    decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"penalty_rate"`
	PenaltyFlatFee decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"penalty_flat_fee"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Fees []Fee `gorm:"foreignKey:ProductID;references:ID" json:"fees,omitempty"`
}

func (LoanProduct) TableName() string { return "loan_products" }

type FeeType string

const (
	FeeFixed      FeeType = "FIXED"
	FeePercentage FeeType = "PERCENTAGE"
)

type Fee struct {
	ID           uint64          `gorm:"primaryKey;column:id" json:"-"`
	ProductID    uint64          `gorm:"index;not null" json:"-"`
	Name         string          `gorm:"size:100" json:"name"`
	FeeType      FeeType         `gorm:"size:20;default:'FIXED'" json:"fee_type"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	IsRefundable bool            `gorm:"default:false" json:"is_refundable"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Fee) TableName() string { return "loan_product_fees" }
