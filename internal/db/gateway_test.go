package db

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ikkim/traceability-backend/internal/app/model"
	apperrors "github.com/ikkim/traceability-backend/internal/errors"
)

func setupGateway(t *testing.T) *Gateway {
	conn, err := SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		CleanupTestDB(conn)
	})
	return NewGateway(conn)
}

func TestTranslateError_UniqueViolationFromSQLite(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	require.NoError(t, gw.DB(ctx).Create(&model.Product{SKU: "SKU-1"}).Error)
	err := gw.DB(ctx).Create(&model.Product{SKU: "SKU-1"}).Error
	require.Error(t, err)

	translated := TranslateError(err)
	assert.True(t, errors.Is(translated, apperrors.ErrConflict))
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(translated))
}

func TestTranslateError_Kinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperrors.Kind
	}{
		{"record not found", gorm.ErrRecordNotFound, apperrors.KindNotFound},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, apperrors.KindConflict},
		{"postgres unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), apperrors.KindConflict},
		{"postgres value too long", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "22001"}), apperrors.KindValidation},
		{"postgres other error", &pgconn.PgError{Code: "40001"}, apperrors.KindInternal},
		{"plain error", errors.New("connection reset"), apperrors.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, apperrors.KindOf(TranslateError(tt.err)))
		})
	}
}

func TestTranslateError_ValueTooLongIsClientError(t *testing.T) {
	err := TranslateError(&pgconn.PgError{Code: "22001", Message: "value too long for type character varying(50)"})

	info := apperrors.ParseError(err)
	assert.Equal(t, http.StatusBadRequest, info.Status)
	assert.Equal(t, apperrors.MsgValueTooLong, info.Message)
}

func TestTranslateError_KeepsTypedErrors(t *testing.T) {
	original := apperrors.Precondition(apperrors.MsgLinkFirst)
	assert.Same(t, original, TranslateError(original))
	assert.NoError(t, TranslateError(nil))
}

func TestGateway_TransactionRollsBack(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	err := gw.Transaction(ctx, func(tx *Gateway) error {
		if err := tx.DB(ctx).Create(&model.Product{SKU: "ROLLBACK"}).Error; err != nil {
			return err
		}
		return apperrors.Validation("stop")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, gw.DB(ctx).Model(&model.Product{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGateway_TransactionCommits(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	err := gw.Transaction(ctx, func(tx *Gateway) error {
		if err := tx.DB(ctx).Create(&model.Product{SKU: "A"}).Error; err != nil {
			return err
		}
		return tx.DB(ctx).Create(&model.TraceabilityCode{Code: "C1", DarkCode: "D1"}).Error
	})
	require.NoError(t, err)

	var products, codes int64
	require.NoError(t, gw.DB(ctx).Model(&model.Product{}).Count(&products).Error)
	require.NoError(t, gw.DB(ctx).Model(&model.TraceabilityCode{}).Count(&codes).Error)
	assert.Equal(t, int64(1), products)
	assert.Equal(t, int64(1), codes)
}
