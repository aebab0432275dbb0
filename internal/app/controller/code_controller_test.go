package controller

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikkim/traceability-backend/internal/app/model"
	apperrors "github.com/ikkim/traceability-backend/internal/errors"
)

func TestCodeController_ImportCode(t *testing.T) {
	env := setupControllerTest(t)

	w, resp := env.do(t, http.MethodPost, "/api/import-codes", map[string]string{"code": "A001", "dark_code": "X001"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])

	w, resp = env.do(t, http.MethodPost, "/api/import-codes", map[string]string{"code": "A002", "dark_code": "X001"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, apperrors.MsgCodeExists, resp["message"])
	assert.Equal(t, string(apperrors.KindConflict), resp["error"])

	w, resp = env.do(t, http.MethodPost, "/api/import-codes", map[string]string{"code": "A003"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.MsgCodeRequired, resp["message"])
	assert.Contains(t, resp["errors"], "dark_code 为必填项")
}

func TestCodeController_ImportCodeLengthLimit(t *testing.T) {
	env := setupControllerTest(t)

	widest := strings.Repeat("A", model.MaxCodeLength)
	w, resp := env.do(t, http.MethodPost, "/api/import-codes", map[string]string{"code": widest, "dark_code": "X001"})
	assert.Equal(t, http.StatusOK, w.Code, resp)

	w, resp = env.do(t, http.MethodPost, "/api/import-codes", map[string]string{"code": widest + "A", "dark_code": "X002"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.MsgCodeRequired, resp["message"])
	assert.Contains(t, resp["errors"], "code 长度不能超过 255")
}

func TestCodeController_VerifyFlow(t *testing.T) {
	env := setupControllerTest(t)

	w, resp := env.do(t, http.MethodGet, "/api/products/UNKNOWN", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, model.NotFoundMessage, resp["message"])

	env.do(t, http.MethodPost, "/api/import-codes", map[string]string{"code": "A001", "dark_code": "X001"})

	w, resp = env.do(t, http.MethodGet, "/api/products/X001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	product := resp["product"].(map[string]interface{})
	assert.Equal(t, model.UnassociatedSKU, product["sku"])
	assert.Equal(t, model.UnsetDistributor, product["distributor"])

	w, resp = env.do(t, http.MethodPost, "/api/products", map[string]string{"code": "A001", "sku": "SKU-1", "name": "Longjing", "distributor": "Shanghai Co"})
	require.Equal(t, http.StatusOK, w.Code, resp)

	_, resp = env.do(t, http.MethodGet, "/api/products/X001", nil)
	product = resp["product"].(map[string]interface{})
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "SKU-1", product["sku"])
	assert.Equal(t, "Longjing", product["name"])
	assert.Equal(t, "Shanghai Co", product["distributor"])
	assert.Equal(t, "X001", product["dark_code"])
	assert.NotEmpty(t, product["created_at"])
}

func TestCodeController_AttachProductErrors(t *testing.T) {
	env := setupControllerTest(t)

	w, resp := env.do(t, http.MethodPost, "/api/products", map[string]string{"code": "A001"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.MsgProductRequired, resp["message"])

	w, resp = env.do(t, http.MethodPost, "/api/products", map[string]string{"code": "NOPE", "sku": "SKU"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.MsgCodeNotImported, resp["message"])
}

func TestCodeController_Distributor(t *testing.T) {
	env := setupControllerTest(t)
	env.do(t, http.MethodPost, "/api/import-codes", map[string]string{"code": "A001", "dark_code": "X001"})

	w, resp := env.do(t, http.MethodPut, "/api/codes/A001/distributor", map[string]string{"distributor": "Co"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.MsgLinkFirst, resp["message"])
	assert.Equal(t, string(apperrors.KindPrecondition), resp["error"])

	w, _ = env.do(t, http.MethodPut, "/api/codes/NOPE/distributor", map[string]string{"distributor": "Co"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, http.MethodPut, "/api/codes/A001/distributor", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = env.do(t, http.MethodPost, "/api/product-library", map[string]string{"sku": "SKU-1"})
	require.Equal(t, http.StatusOK, w.Code)
	productID := resp["product"].(map[string]interface{})["id"]

	w, _ = env.do(t, http.MethodPut, "/api/codes/A001/product", map[string]interface{}{"product_id": productID})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(t, http.MethodPut, "/api/codes/A001/distributor", map[string]string{"distributor": "Co"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])

	w, resp = env.do(t, http.MethodPut, "/api/codes/A001/product", map[string]interface{}{"product_id": 999})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.MsgProductNotFound, resp["message"])
}

func TestCodeController_Listings(t *testing.T) {
	env := setupControllerTest(t)
	for i := 1; i <= 25; i++ {
		env.do(t, http.MethodPost, "/api/import-codes", map[string]string{
			"code":      fmt.Sprintf("A%03d", i),
			"dark_code": fmt.Sprintf("X%03d", i),
		})
	}
	env.do(t, http.MethodPost, "/api/products", map[string]string{"code": "A001", "sku": "SKU-1"})

	w, resp := env.do(t, http.MethodGet, "/api/get-codes?page=2&pageSize=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(25), resp["total"])
	assert.Equal(t, float64(2), resp["page"])
	assert.Equal(t, float64(10), resp["pageSize"])
	assert.Equal(t, float64(3), resp["totalPages"])
	assert.Len(t, resp["codes"], 10)

	_, resp = env.do(t, http.MethodGet, "/api/get-codes?page=abc", nil)
	assert.Equal(t, float64(1), resp["page"])
	assert.Equal(t, float64(100), resp["pageSize"])

	_, resp = env.do(t, http.MethodGet, "/api/get-products", nil)
	assert.Equal(t, float64(1), resp["total"])
	assert.Equal(t, float64(10), resp["pageSize"])
	products := resp["products"].([]interface{})
	require.Len(t, products, 1)
	assert.Equal(t, "SKU-1", products[0].(map[string]interface{})["sku"])

	_, resp = env.do(t, http.MethodGet, "/api/debug/codes", nil)
	assert.Equal(t, float64(10), resp["total"])
}
