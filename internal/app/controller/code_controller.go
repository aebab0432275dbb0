package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ikkim/traceability-backend/internal/app/model"
	"github.com/ikkim/traceability-backend/internal/app/service"
	apperrors "github.com/ikkim/traceability-backend/internal/errors"
	"github.com/ikkim/traceability-backend/internal/metrics"
	"github.com/ikkim/traceability-backend/internal/middleware"
)

type CodeController struct {
	catalog      service.CatalogService
	associations service.AssociationService
	verification service.VerificationService
	metrics      *metrics.Metrics
}

func NewCodeController(
	catalog service.CatalogService,
	associations service.AssociationService,
	verification service.VerificationService,
	m *metrics.Metrics,
) *CodeController {
	return &CodeController{
		catalog:      catalog,
		associations: associations,
		verification: verification,
		metrics:      m,
	}
}

type ImportCodeRequest struct {
	Code     string `json:"code" binding:"required,max=255"`
	DarkCode string `json:"dark_code" binding:"required,max=255"`
}

type AttachProductRequest struct {
	Code        string  `json:"code" binding:"required,max=255"`
	SKU         string  `json:"sku" binding:"max=50"`
	ProductID   *uint   `json:"productId"`
	Distributor *string `json:"distributor" binding:"omitempty,max=100"`
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Origin      *string `json:"origin" binding:"omitempty,max=100"`
}

type SetDistributorRequest struct {
	Distributor string `json:"distributor" binding:"required,max=100"`
}

type LinkProductRequest struct {
	ProductID   uint    `json:"product_id" binding:"required"`
	Distributor *string `json:"distributor" binding:"omitempty,max=100"`
}

// ImportCode provisions one code pair
// POST /api/import-codes
func (ctrl *CodeController) ImportCode(c *gin.Context) {
	var req ImportCodeRequest
	if !bindJSON(c, &req, apperrors.MsgCodeRequired) {
		return
	}

	if _, err := ctrl.catalog.ImportCode(c.Request.Context(), req.Code, req.DarkCode); err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "溯源码信息导入成功",
	})
}

// AttachProduct links an imported code to a product by id or sku
// POST /api/products
func (ctrl *CodeController) AttachProduct(c *gin.Context) {
	var req AttachProductRequest
	if !bindJSON(c, &req, apperrors.MsgProductRequired) {
		return
	}

	err := ctrl.associations.AttachProductToCode(c.Request.Context(), service.AttachRequest{
		Code:        req.Code,
		ProductID:   req.ProductID,
		SKU:         req.SKU,
		Name:        req.Name,
		Origin:      req.Origin,
		Distributor: req.Distributor,
	})
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "产品信息录入成功",
	})
}

// Verify resolves a scanned dark code. An unknown code is a normal answer,
// not an HTTP error.
// GET /api/products/:dark_code
func (ctrl *CodeController) Verify(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	darkCode := c.Param("dark_code")

	result, err := ctrl.verification.Resolve(c.Request.Context(), darkCode)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	ctrl.metrics.ObserveVerification(string(result.Status))

	if !result.Found() {
		log.Info("Verification miss", map[string]interface{}{
			"dark_code": darkCode,
		})
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": model.NotFoundMessage,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"product": result.View,
	})
}

// SetDistributor records the distributor of a linked code
// PUT /api/codes/:code/distributor
func (ctrl *CodeController) SetDistributor(c *gin.Context) {
	var req SetDistributorRequest
	if !bindJSON(c, &req, apperrors.MsgDistributorBlank) {
		return
	}

	if err := ctrl.associations.SetDistributorForCode(c.Request.Context(), c.Param("code"), req.Distributor); err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "分销商信息关联成功",
	})
}

// LinkProduct replaces the product and distributor of a code
// PUT /api/codes/:code/product
func (ctrl *CodeController) LinkProduct(c *gin.Context) {
	var req LinkProductRequest
	if !bindJSON(c, &req, "请选择要关联的产品") {
		return
	}

	err := ctrl.associations.AttachProductAndDistributor(c.Request.Context(), c.Param("code"), req.ProductID, req.Distributor)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "产品关联成功",
	})
}

// ListCodes
// GET /api/get-codes?page=&pageSize=
func (ctrl *CodeController) ListCodes(c *gin.Context) {
	page, err := ctrl.catalog.ListCodes(c.Request.Context(), queryInt(c, "page"), queryInt(c, "pageSize"))
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"codes":      page.Items,
		"total":      page.Total,
		"page":       page.Page,
		"pageSize":   page.PageSize,
		"totalPages": page.TotalPages,
	})
}

// ListLinkedProducts
// GET /api/get-products?page=&pageSize=
func (ctrl *CodeController) ListLinkedProducts(c *gin.Context) {
	page, err := ctrl.catalog.ListLinkedProducts(c.Request.Context(), queryInt(c, "page"), queryInt(c, "pageSize"))
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"products":   page.Items,
		"total":      page.Total,
		"page":       page.Page,
		"pageSize":   page.PageSize,
		"totalPages": page.TotalPages,
	})
}

// DebugCodes lists the latest codes with their product
// GET /api/debug/codes
func (ctrl *CodeController) DebugCodes(c *gin.Context) {
	codes, err := ctrl.catalog.RecentCodes(c.Request.Context())
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"total":   len(codes),
		"codes":   codes,
	})
}
