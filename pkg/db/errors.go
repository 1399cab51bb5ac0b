package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	pkgerrors "github.com/kimanidev/dukapos-backend/pkg/errors"
)

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint. When constraintName is provided, the helper
// looks for that specific constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if constraintName == "" {
			return true
		}
		return pgErr.ConstraintName == constraintName
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}

// ClassifyRemote translates an error returned by a ledger database call into
// the typed taxonomy the sync and fallback paths branch on. Connectivity-class
// failures become CodeNetwork (retryable / offline fallback); constraint and
// not-found failures become logic errors that must propagate.
func ClassifyRemote(err error, op string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, op)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is a connection exception; everything else Postgres says
		// is a statement-level (logic) failure.
		if strings.HasPrefix(pgErr.Code, "08") {
			return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, op)
		}
		if pgErr.Code == "23505" {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, op)
		}
		if strings.HasPrefix(pgErr.Code, "23") {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, op)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, op)
	}

	if isConnectivityError(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, op)
	}

	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

func isConnectivityError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
