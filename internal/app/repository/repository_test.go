package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ikkim/traceability-backend/internal/app/model"
	"github.com/ikkim/traceability-backend/internal/db"
)

func setupStore(t *testing.T) (*gorm.DB, Store) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})
	return testDB, NewStore(db.NewGateway(testDB))
}

func strPtr(s string) *string { return &s }

func createProduct(t *testing.T, s Store, sku string) *model.Product {
	product := &model.Product{SKU: sku, Name: strPtr(sku + " name")}
	require.NoError(t, s.Products().Create(context.Background(), product))
	return product
}

func createCode(t *testing.T, s Store, code, dark string) *model.TraceabilityCode {
	c := &model.TraceabilityCode{Code: code, DarkCode: dark}
	require.NoError(t, s.Codes().Create(context.Background(), c))
	return c
}
