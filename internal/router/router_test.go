package router

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikkim/traceability-backend/config"
	"github.com/ikkim/traceability-backend/internal/app/controller"
	"github.com/ikkim/traceability-backend/internal/app/repository"
	"github.com/ikkim/traceability-backend/internal/app/service"
	"github.com/ikkim/traceability-backend/internal/db"
	"github.com/ikkim/traceability-backend/internal/metrics"
)

func setupEngine(t *testing.T, staticDir string) *gin.Engine {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	store := repository.NewStore(db.NewGateway(testDB))
	catalog := service.NewCatalogService(store)
	m := metrics.New()

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode, StaticDir: staticDir},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	return NewRouter(
		controller.NewCodeController(catalog, service.NewAssociationService(store), service.NewVerificationService(store.Codes(), store.Products()), m),
		controller.NewProductController(catalog),
		controller.NewImportController(service.NewImportService(store, service.ImportOptions{}, nil, nil), nil, nil, m, 0),
		m,
		cfg,
	).Setup()
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	engine := setupEngine(t, "")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/UNKNOWN", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `route="/api/products/:dark_code"`)
}

func TestRouter_ServesStaticPages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>verify</h1>"), 0o644))
	engine := setupEngine(t, dir)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "verify"))
}
