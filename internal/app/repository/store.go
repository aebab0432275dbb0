package repository

import (
	"context"
	"errors"

	"github.com/ikkim/traceability-backend/internal/db"
	apperrors "github.com/ikkim/traceability-backend/internal/errors"
)

// Store groups the entity repositories so multi-step mutations can share
// one transaction.
type Store interface {
	Products() ProductRepository
	Codes() CodeRepository
	// InTx runs fn with repositories bound to a single transaction; any
	// returned error rolls every step back.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

type store struct {
	gw       *db.Gateway
	products ProductRepository
	codes    CodeRepository
}

func NewStore(gw *db.Gateway) Store {
	return &store{
		gw:       gw,
		products: NewProductRepository(gw),
		codes:    NewCodeRepository(gw),
	}
}

func (s *store) Products() ProductRepository { return s.products }
func (s *store) Codes() CodeRepository       { return s.codes }

func (s *store) InTx(ctx context.Context, fn func(tx Store) error) error {
	err := s.gw.Transaction(ctx, func(tx *db.Gateway) error {
		return fn(NewStore(tx))
	})
	return db.TranslateError(err)
}

// translate types a store error and fills in entity-specific messages
// without overriding a message set closer to the failure.
func translate(err error, conflictMsg, notFoundMsg string) error {
	err = db.TranslateError(err)
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Message != "" {
		return err
	}
	switch appErr.Kind {
	case apperrors.KindConflict:
		return apperrors.WithMessage(err, conflictMsg)
	case apperrors.KindNotFound:
		return apperrors.WithMessage(err, notFoundMsg)
	}
	return err
}
