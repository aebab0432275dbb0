package router

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/ikkim/traceability-backend/config"
	"github.com/ikkim/traceability-backend/internal/app/controller"
	"github.com/ikkim/traceability-backend/internal/metrics"
	"github.com/ikkim/traceability-backend/internal/middleware"
)

type Router struct {
	codeController    *controller.CodeController
	productController *controller.ProductController
	importController  *controller.ImportController
	metrics           *metrics.Metrics
	config            *config.Config
}

func NewRouter(
	codeController *controller.CodeController,
	productController *controller.ProductController,
	importController *controller.ImportController,
	m *metrics.Metrics,
	cfg *config.Config,
) *Router {
	return &Router{
		codeController:    codeController,
		productController: productController,
		importController:  importController,
		metrics:           m,
		config:            cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)
	controller.RegisterValidation()

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware("/health", "/metrics"))
	router.Use(r.metrics.Middleware())
	router.Use(middleware.CORSMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Traceability API is running",
		})
	})
	router.GET("/metrics", r.metrics.Handler())

	// Admin and verification pages are plain static files.
	if dir := r.config.Server.StaticDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			router.StaticFile("/", dir+"/index.html")
			router.Static("/static", dir)
		}
	}

	api := router.Group("/api")
	{
		api.POST("/import-codes", r.codeController.ImportCode)
		api.POST("/products", r.codeController.AttachProduct)
		api.GET("/products/:dark_code", r.codeController.Verify)
		api.PUT("/products/:id", r.productController.RenameProduct)

		api.GET("/get-codes", r.codeController.ListCodes)
		api.GET("/get-products", r.codeController.ListLinkedProducts)
		api.GET("/debug/codes", r.codeController.DebugCodes)

		codes := api.Group("/codes/:code")
		{
			codes.PUT("/distributor", r.codeController.SetDistributor)
			codes.PUT("/product", r.codeController.LinkProduct)
		}

		library := api.Group("/product-library")
		{
			library.GET("", r.productController.GetProductLibrary)
			library.POST("", r.productController.CreateProduct)
			library.PUT("/:id", r.productController.UpdateProduct)
			library.DELETE("/:id", r.productController.DeleteProduct)
		}

		api.POST("/batch-import-codes", r.importController.BatchImportCodes)
		api.POST("/batch-import-products", r.importController.BatchImportProducts)
		api.GET("/import-progress/:id", r.importController.GetProgress)
		api.GET("/import-progress/:id/ws", r.importController.WatchProgress)
	}

	return router
}
