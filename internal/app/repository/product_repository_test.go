package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikkim/traceability-backend/internal/app/model"
	apperrors "github.com/ikkim/traceability-backend/internal/errors"
)

func TestProductRepository_Create(t *testing.T) {
	_, s := setupStore(t)
	ctx := context.Background()

	product := &model.Product{SKU: "TEA-001", Name: strPtr("Longjing"), Origin: strPtr("Hangzhou")}
	require.NoError(t, s.Products().Create(ctx, product))
	assert.NotZero(t, product.ID)

	found, err := s.Products().FindBySKU(ctx, "TEA-001")
	require.NoError(t, err)
	assert.Equal(t, product.ID, found.ID)
	assert.Equal(t, "Longjing", *found.Name)
	assert.Equal(t, "Hangzhou", *found.Origin)
}

func TestProductRepository_CreateDuplicateSKU(t *testing.T) {
	_, s := setupStore(t)
	createProduct(t, s, "TEA-001")

	err := s.Products().Create(context.Background(), &model.Product{SKU: "TEA-001"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, apperrors.MsgSKUExists, apperrors.ParseError(err).Message)
}

func TestProductRepository_CreateOrIgnore(t *testing.T) {
	_, s := setupStore(t)
	ctx := context.Background()

	first, err := s.Products().CreateOrIgnore(ctx, "TEA-002", model.ProductAttributes{Name: strPtr("Oolong")})
	require.NoError(t, err)

	second, err := s.Products().CreateOrIgnore(ctx, "TEA-002", model.ProductAttributes{Name: strPtr("Renamed")})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Oolong", *second.Name, "existing row must not be modified")

	products, err := s.Products().List(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestProductRepository_FindMissing(t *testing.T) {
	_, s := setupStore(t)
	ctx := context.Background()

	_, err := s.Products().FindByID(ctx, 999)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = s.Products().FindBySKU(ctx, "NOPE")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestProductRepository_Update(t *testing.T) {
	_, s := setupStore(t)
	ctx := context.Background()
	product := createProduct(t, s, "OLD")
	createProduct(t, s, "TAKEN")

	updated, err := s.Products().Update(ctx, product.ID, "NEW", model.ProductAttributes{Origin: strPtr("Yunnan")})
	require.NoError(t, err)
	assert.Equal(t, "NEW", updated.SKU)
	assert.Nil(t, updated.Name)

	stored, err := s.Products().FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "NEW", stored.SKU)
	assert.Nil(t, stored.Name)
	assert.Equal(t, "Yunnan", *stored.Origin)

	t.Run("sku collision", func(t *testing.T) {
		_, err := s.Products().Update(ctx, product.ID, "TAKEN", model.ProductAttributes{})
		assert.True(t, errors.Is(err, apperrors.ErrConflict))
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := s.Products().Update(ctx, 999, "X", model.ProductAttributes{})
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	})
}

func TestProductRepository_DeleteKeepsCodeReference(t *testing.T) {
	_, s := setupStore(t)
	ctx := context.Background()
	product := createProduct(t, s, "GONE")
	code := createCode(t, s, "C-1", "D-1")
	require.NoError(t, s.Codes().LinkProduct(ctx, code.ID, product.ID, DistributorUpdate{}))

	require.NoError(t, s.Products().Delete(ctx, product.ID))

	stored, err := s.Codes().FindByID(ctx, code.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ProductID)
	assert.Equal(t, product.ID, *stored.ProductID)

	err = s.Products().Delete(ctx, product.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestProductRepository_ListNewestFirst(t *testing.T) {
	_, s := setupStore(t)
	createProduct(t, s, "A")
	createProduct(t, s, "B")
	createProduct(t, s, "C")

	products, err := s.Products().List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "C", products[0].SKU)
	assert.Equal(t, "A", products[2].SKU)
}
