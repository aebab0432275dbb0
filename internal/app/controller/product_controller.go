package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ikkim/traceability-backend/internal/app/model"
	"github.com/ikkim/traceability-backend/internal/app/service"
	apperrors "github.com/ikkim/traceability-backend/internal/errors"
	"github.com/ikkim/traceability-backend/internal/middleware"
)

type ProductController struct {
	catalog service.CatalogService
}

func NewProductController(catalog service.CatalogService) *ProductController {
	return &ProductController{
		catalog: catalog,
	}
}

type ProductRequest struct {
	SKU    string  `json:"sku" binding:"required,max=50"`
	Name   *string `json:"name" binding:"omitempty,max=100"`
	Origin *string `json:"origin" binding:"omitempty,max=100"`
}

type RenameProductRequest struct {
	SKU string `json:"sku" binding:"required,max=50"`
}

// GetProductLibrary returns all products, newest first
// GET /api/product-library
func (ctrl *ProductController) GetProductLibrary(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	products, err := ctrl.catalog.ListProducts(c.Request.Context())
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	log.Debug("Product library fetched", map[string]interface{}{
		"count": len(products),
	})

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"products": products,
	})
}

// CreateProduct
// POST /api/product-library
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if !bindJSON(c, &req, apperrors.MsgSKURequired) {
		return
	}

	product, err := ctrl.catalog.CreateProduct(c.Request.Context(), req.SKU, model.ProductAttributes{
		Name:   req.Name,
		Origin: req.Origin,
	})
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "产品添加成功",
		"product": product,
	})
}

// UpdateProduct replaces sku, name and origin
// PUT /api/product-library/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if !bindJSON(c, &req, "请提供SKU信息") {
		return
	}

	product, err := ctrl.catalog.UpdateProduct(c.Request.Context(), id, req.SKU, model.ProductAttributes{
		Name:   req.Name,
		Origin: req.Origin,
	})
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "产品信息更新成功",
		"product": product,
	})
}

// RenameProduct changes only the sku
// PUT /api/products/:id
func (ctrl *ProductController) RenameProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req RenameProductRequest
	if !bindJSON(c, &req, "请提供SKU信息") {
		return
	}

	if _, err := ctrl.catalog.RenameProduct(c.Request.Context(), id, req.SKU); err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "产品SKU更新成功",
	})
}

// DeleteProduct removes a product; linked codes keep the dangling reference
// DELETE /api/product-library/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "产品删除成功",
	})
}
