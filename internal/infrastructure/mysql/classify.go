package mysql

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	apperrors "webshop/internal/errors"
)

const (
	errDeadlock        = 1213
	errLockWaitTimeout = 1205
)

// Classify maps driver and context errors onto the application taxonomy.
// Errors that already belong to it are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if isTyped(err) {
		return err
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case errDeadlock:
			return apperrors.NewConflictError("deadlock detected", err)
		case errLockWaitTimeout:
			return apperrors.NewConflictError("lock wait timeout exceeded", err)
		}
		return apperrors.NewPersistenceError(fmt.Sprintf("mysql error %d", mysqlErr.Number), err)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewPersistenceError("transaction timed out", err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewPersistenceError("transaction canceled", err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, mysql.ErrInvalidConn):
		return apperrors.NewPersistenceError("database connection lost", err)
	}
	return apperrors.NewPersistenceError("database error", err)
}

func isTyped(err error) bool {
	if _, ok := apperrors.IsValidationError(err); ok {
		return true
	}
	if _, ok := apperrors.IsNotFoundError(err); ok {
		return true
	}
	if _, ok := apperrors.IsPersistenceError(err); ok {
		return true
	}
	_, ok := apperrors.IsConflictError(err)
	return ok
}
