package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"lendflow-backend/internal/domain/account"
	"lendflow-backend/internal/domain/application"
	"lendflow-backend/internal/domain/errs"
	"lendflow-backend/internal/domain/loan"
	"lendflow-backend/internal/domain/payment"
	"lendflow-backend/internal/domain/product"
)

// writeError maps a usecase error onto an HTTP status. Unrecognized errors
// become opaque 500s; the cause stays in the server log only.
func writeError(c echo.Context, err error) error {
	switch {
	case errs.IsKind(err, errs.KindValidation):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errs.IsKind(err, errs.KindPermission):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errs.IsKind(err, errs.KindConflict), errs.IsKind(err, errs.KindImmutable):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case isNotFound(err):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, account.ErrNotFound) ||
		errors.Is(err, application.ErrNotFound) ||
		errors.Is(err, loan.ErrNotFound) ||
		errors.Is(err, payment.ErrNotFound) ||
		errors.Is(err, product.ErrNotFound)
}
