package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ikkim/traceability-backend/internal/app/repository"
	"github.com/ikkim/traceability-backend/internal/app/service"
	"github.com/ikkim/traceability-backend/internal/db"
	"github.com/ikkim/traceability-backend/internal/metrics"
)

type testEnv struct {
	router  *gin.Engine
	store   repository.Store
	archive *recordingArchive
}

type recordingArchive struct {
	kinds []string
	data  [][]byte
	err   error
}

func (a *recordingArchive) Archive(_ context.Context, kind, _ string, data []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.kinds = append(a.kinds, kind)
	a.data = append(a.data, data)
	return "imports/" + kind + "/key", nil
}

func setupControllerTest(t *testing.T) *testEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	store := repository.NewStore(db.NewGateway(testDB))
	catalog := service.NewCatalogService(store)
	associations := service.NewAssociationService(store)
	verification := service.NewVerificationService(store.Codes(), store.Products())
	imports := service.NewImportService(store, service.ImportOptions{ChunkSize: 100}, nil, nil)
	m := metrics.New()
	archive := &recordingArchive{}

	codes := NewCodeController(catalog, associations, verification, m)
	products := NewProductController(catalog)
	importer := NewImportController(imports, archive, nil, m, 1<<20)

	gin.SetMode(gin.TestMode)
	RegisterValidation()
	router := gin.New()

	api := router.Group("/api")
	api.POST("/import-codes", codes.ImportCode)
	api.POST("/products", codes.AttachProduct)
	api.GET("/products/:dark_code", codes.Verify)
	api.PUT("/products/:id", products.RenameProduct)
	api.GET("/get-codes", codes.ListCodes)
	api.GET("/get-products", codes.ListLinkedProducts)
	api.GET("/debug/codes", codes.DebugCodes)
	api.PUT("/codes/:code/distributor", codes.SetDistributor)
	api.PUT("/codes/:code/product", codes.LinkProduct)
	api.GET("/product-library", products.GetProductLibrary)
	api.POST("/product-library", products.CreateProduct)
	api.PUT("/product-library/:id", products.UpdateProduct)
	api.DELETE("/product-library/:id", products.DeleteProduct)
	api.POST("/batch-import-codes", importer.BatchImportCodes)
	api.POST("/batch-import-products", importer.BatchImportProducts)
	api.GET("/import-progress/:id", importer.GetProgress)
	api.GET("/import-progress/:id/ws", importer.WatchProgress)

	return &testEnv{router: router, store: store, archive: archive}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func (e *testEnv) upload(t *testing.T, path, filename, content string, fields map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile(uploadField, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}
