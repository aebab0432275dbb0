package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	apperrors "github.com/ikkim/traceability-backend/internal/errors"
)

const (
	pgUniqueViolation      = "23505"
	pgStringDataTruncation = "22001"
)

// Gateway is the single entry point to the relational store. A Gateway is
// either bound to the pool or to an open transaction.
type Gateway struct {
	conn *gorm.DB
}

func NewGateway(conn *gorm.DB) *Gateway {
	return &Gateway{conn: conn}
}

// DB returns a session scoped to ctx.
func (g *Gateway) DB(ctx context.Context) *gorm.DB {
	return g.conn.WithContext(ctx)
}

// Transaction runs fn in one transaction. A nested call on a transaction-bound
// Gateway uses a savepoint.
func (g *Gateway) Transaction(ctx context.Context, fn func(tx *Gateway) error) error {
	return g.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gateway{conn: tx})
	})
}

// TranslateError converts native store failures into typed errors. Errors
// that are already typed pass through untouched.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case IsUniqueViolation(err):
		return apperrors.Wrap(apperrors.KindConflict, "", err)
	case isValueTooLong(err):
		return apperrors.Wrap(apperrors.KindValidation, apperrors.MsgValueTooLong, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.Wrap(apperrors.KindNotFound, "", err)
	default:
		return apperrors.Internal(err)
	}
}

// IsUniqueViolation inspects driver error codes, never message text.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// isValueTooLong reports a value wider than its varchar column. Only postgres
// enforces the width; sqlite stores it as is.
func isValueTooLong(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgStringDataTruncation
}
