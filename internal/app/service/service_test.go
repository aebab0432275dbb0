package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ikkim/traceability-backend/internal/app/model"
	"github.com/ikkim/traceability-backend/internal/app/repository"
	"github.com/ikkim/traceability-backend/internal/db"
)

func setupStore(t *testing.T) repository.Store {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})
	return repository.NewStore(db.NewGateway(testDB))
}

func strPtr(s string) *string { return &s }

func seedProduct(t *testing.T, store repository.Store, sku string, name *string) *model.Product {
	product := &model.Product{SKU: sku, Name: name}
	require.NoError(t, store.Products().Create(context.Background(), product))
	return product
}

func seedCode(t *testing.T, store repository.Store, code, dark string) *model.TraceabilityCode {
	c := &model.TraceabilityCode{Code: code, DarkCode: dark}
	require.NoError(t, store.Codes().Create(context.Background(), c))
	return c
}
