package main

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"lendflow-backend/internal/adapter/gateway"
	httpadp "lendflow-backend/internal/adapter/http"
	"lendflow-backend/internal/adapter/middleware"
	"lendflow-backend/internal/adapter/repository/mysql"
	"lendflow-backend/internal/config"
	"lendflow-backend/internal/domain/account"
	"lendflow-backend/internal/domain/application"
	"lendflow-backend/internal/domain/audit"
	"lendflow-backend/internal/domain/loan"
	"lendflow-backend/internal/domain/payment"
	"lendflow-backend/internal/domain/product"
	"lendflow-backend/internal/infrastructure/cache"
	"lendflow-backend/internal/infrastructure/db"
	applicationUC "lendflow-backend/internal/usecase/application"
	"lendflow-backend/internal/usecase/loanledger"
	paymentUC "lendflow-backend/internal/usecase/payment"
	"lendflow-backend/internal/usecase/risk"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatal(err)
	}
	if err := gdb.AutoMigrate(
		&account.User{}, &account.Blacklist{}, &account.BalanceTransaction{},
		&product.LoanProduct{}, &product.Fee{},
		&application.LoanApplication{}, &application.StatusHistory{},
		&loan.Loan{}, &loan.Installment{},
		&payment.Payment{}, &payment.Allocation{}, &payment.GatewayTransaction{}, &payment.AuditLog{},
		&audit.Entry{},
	); err != nil {
		log.Fatal(err)
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}

	unit := mysql.NewGormUoW(gdb)
	engine := risk.NewEngine(risk.Config{
		MaxActiveLoans:            cfg.MaxActiveLoans,
		MaxExposure:               cfg.MaxExposure,
		LatePaymentThresholdDays:  cfg.LatePaymentDays,
		LatePaymentCountThreshold: int64(cfg.LatePaymentCount),
	}, unit)

	gws := gateway.NewFactory()
	mock := gateway.NewMockGateway(cfg.GatewayWebhookSecret)
	for _, m := range []payment.Method{payment.MethodWallet, payment.MethodStripe, payment.MethodMpesa, payment.MethodBankTransfer} {
		gws.Register(m, mock)
	}

	h := httpadp.NewHandler(
		applicationUC.NewUsecase(unit, engine),
		paymentUC.NewUsecase(unit, gws),
		loanledger.NewUsecase(unit),
		gws,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger(), echomw.Recover())
	e.Validator = httpadp.NewValidator()

	idem := middleware.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)
	h.RegisterRoutes(e, idem)

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
