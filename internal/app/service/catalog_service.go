package service

import (
	"context"
	"math"
	"strings"

	"github.com/ikkim/traceability-backend/internal/app/model"
	"github.com/ikkim/traceability-backend/internal/app/repository"
	apperrors "github.com/ikkim/traceability-backend/internal/errors"
	"github.com/ikkim/traceability-backend/pkg/logger"
)

const (
	DefaultCodePageSize    = 100
	DefaultProductPageSize = 10
	MaxPageSize            = 1000
	RecentCodesLimit       = 10

	maxRowOffset = math.MaxInt32
)

// CatalogService covers the product library, single code provisioning and
// the paginated read side.
type CatalogService interface {
	ImportCode(ctx context.Context, code, darkCode string) (*model.TraceabilityCode, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	CreateProduct(ctx context.Context, sku string, attrs model.ProductAttributes) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uint, sku string, attrs model.ProductAttributes) (*model.Product, error)
	RenameProduct(ctx context.Context, id uint, sku string) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	ListCodes(ctx context.Context, page, pageSize int) (model.Page[model.CodeListing], error)
	ListLinkedProducts(ctx context.Context, page, pageSize int) (model.Page[model.LinkedCodeListing], error)
	RecentCodes(ctx context.Context) ([]model.CodeListing, error)
	CountDanglingLinks(ctx context.Context) (int64, error)
}

type catalogService struct {
	store repository.Store
}

func NewCatalogService(store repository.Store) CatalogService {
	return &catalogService{store: store}
}

func (s *catalogService) ImportCode(ctx context.Context, codeValue, darkCode string) (*model.TraceabilityCode, error) {
	codeValue = strings.TrimSpace(codeValue)
	darkCode = strings.TrimSpace(darkCode)
	if codeValue == "" || darkCode == "" {
		return nil, apperrors.Validation(apperrors.MsgCodeRequired)
	}

	code := &model.TraceabilityCode{Code: codeValue, DarkCode: darkCode}
	if err := s.store.Codes().Create(ctx, code); err != nil {
		return nil, err
	}

	logger.Info("Traceability code imported", map[string]interface{}{
		"code_id": code.ID,
		"code":    code.Code,
	})
	return code, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]model.Product, error) {
	products, err := s.store.Products().List(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, sku string, attrs model.ProductAttributes) (*model.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, apperrors.Validation(apperrors.MsgSKURequired)
	}

	product := &model.Product{
		SKU:    sku,
		Name:   trimmedOrNil(attrs.Name),
		Origin: trimmedOrNil(attrs.Origin),
	}
	if err := s.store.Products().Create(ctx, product); err != nil {
		return nil, err
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uint, sku string, attrs model.ProductAttributes) (*model.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, apperrors.Validation("请提供SKU信息")
	}
	if id == 0 {
		return nil, apperrors.Validation(apperrors.MsgInvalidID)
	}

	product, err := s.store.Products().Update(ctx, id, sku, model.ProductAttributes{
		Name:   trimmedOrNil(attrs.Name),
		Origin: trimmedOrNil(attrs.Origin),
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Product updated", map[string]interface{}{
		"product_id": id,
		"sku":        sku,
	})
	return product, nil
}

// RenameProduct changes only the SKU and keeps name and origin.
func (s *catalogService) RenameProduct(ctx context.Context, id uint, sku string) (*model.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, apperrors.Validation("请提供SKU信息")
	}
	if id == 0 {
		return nil, apperrors.Validation(apperrors.MsgInvalidID)
	}

	var renamed *model.Product
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		current, err := tx.Products().FindByID(ctx, id)
		if err != nil {
			return err
		}
		renamed, err = tx.Products().Update(ctx, id, sku, model.ProductAttributes{
			Name:   current.Name,
			Origin: current.Origin,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Product SKU renamed", map[string]interface{}{
		"product_id": id,
		"sku":        sku,
	})
	return renamed, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uint) error {
	if id == 0 {
		return apperrors.Validation(apperrors.MsgInvalidID)
	}
	if err := s.store.Products().Delete(ctx, id); err != nil {
		return err
	}

	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

func (s *catalogService) ListCodes(ctx context.Context, page, pageSize int) (model.Page[model.CodeListing], error) {
	page, pageSize = normalizePage(page, pageSize, DefaultCodePageSize)
	return s.store.Codes().List(ctx, page, pageSize)
}

func (s *catalogService) ListLinkedProducts(ctx context.Context, page, pageSize int) (model.Page[model.LinkedCodeListing], error) {
	page, pageSize = normalizePage(page, pageSize, DefaultProductPageSize)
	return s.store.Codes().ListLinked(ctx, page, pageSize)
}

func (s *catalogService) RecentCodes(ctx context.Context) ([]model.CodeListing, error) {
	rows, err := s.store.Codes().Recent(ctx, RecentCodesLimit)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.CodeListing{}
	}
	return rows, nil
}

func (s *catalogService) CountDanglingLinks(ctx context.Context) (int64, error) {
	return s.store.Codes().CountDanglingLinks(ctx)
}

func normalizePage(page, pageSize, defaultSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	// Pages past this point would overflow the row offset; they are empty anyway.
	if lastPage := maxRowOffset/pageSize + 1; page > lastPage {
		page = lastPage
	}
	return page, pageSize
}
