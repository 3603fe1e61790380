// Package dbtest opens in-memory sqlite databases with the full schema
// migrated, for repository and usecase tests.
package dbtest

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lendflow-backend/internal/domain/account"
	"lendflow-backend/internal/domain/application"
	"lendflow-backend/internal/domain/audit"
	"lendflow-backend/internal/domain/loan"
	"lendflow-backend/internal/domain/payment"
	"lendflow-backend/internal/domain/product"
)

// Open creates an in-memory sqlite DB and migrates every domain model.
// Column types like decimal(12,2) are fine under sqlite's type affinity.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&account.User{},
		&account.Blacklist{},
		&account.BalanceTransaction{},
		&product.LoanProduct{},
		&product.Fee{},
		&application.LoanApplication{},
		&application.StatusHistory{},
		&loan.Loan{},
		&loan.Installment{},
		&payment.Payment{},
		&payment.Allocation{},
		&payment.GatewayTransaction{},
		&payment.AuditLog{},
		&audit.Entry{},
	)
	if err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}
