package repository

import (
	"context"
	"errors"

	"github.com/ikkim/traceability-backend/internal/app/model"
	"github.com/ikkim/traceability-backend/internal/db"
	apperrors "github.com/ikkim/traceability-backend/internal/errors"
	"github.com/ikkim/traceability-backend/pkg/logger"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	CreateOrIgnore(ctx context.Context, sku string, attrs model.ProductAttributes) (*model.Product, error)
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	Update(ctx context.Context, id uint, sku string, attrs model.ProductAttributes) (*model.Product, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]model.Product, error)
}

type productRepository struct {
	gw *db.Gateway
}

func NewProductRepository(gw *db.Gateway) ProductRepository {
	return &productRepository{gw: gw}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"sku": product.SKU,
	})

	if err := r.gw.DB(ctx).Create(product).Error; err != nil {
		err = productError(err)
		if !errors.Is(err, apperrors.ErrConflict) {
			logger.Error("Failed to create product in database", err, map[string]interface{}{
				"sku": product.SKU,
			})
		}
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})
	return nil
}

// CreateOrIgnore inserts the product unless the SKU exists, then returns the
// stored row. An existing row is never modified.
func (r *productRepository) CreateOrIgnore(ctx context.Context, sku string, attrs model.ProductAttributes) (*model.Product, error) {
	product := &model.Product{SKU: sku, Name: attrs.Name, Origin: attrs.Origin}

	err := r.gw.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "sku"}}, DoNothing: true}).
		Create(product).Error
	if err != nil {
		logger.Error("Failed to create-or-ignore product", err, map[string]interface{}{
			"sku": sku,
		})
		return nil, productError(err)
	}

	return r.FindBySKU(ctx, sku)
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := r.gw.DB(ctx).First(&product, id).Error; err != nil {
		return nil, productError(err)
	}
	return &product, nil
}

func (r *productRepository) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	if err := r.gw.DB(ctx).Where("sku = ?", sku).First(&product).Error; err != nil {
		return nil, productError(err)
	}
	return &product, nil
}

// Update replaces sku and both descriptive fields; nil attributes are stored as NULL.
func (r *productRepository) Update(ctx context.Context, id uint, sku string, attrs model.ProductAttributes) (*model.Product, error) {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": id,
		"sku":        sku,
	})

	var updated *model.Product
	err := r.gw.Transaction(ctx, func(tx *db.Gateway) error {
		var product model.Product
		if err := tx.DB(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, id).Error; err != nil {
			return err
		}

		err := tx.DB(ctx).Model(&product).Updates(map[string]interface{}{
			"sku":    sku,
			"name":   attrs.Name,
			"origin": attrs.Origin,
		}).Error
		if err != nil {
			return err
		}

		product.SKU = sku
		product.Name = attrs.Name
		product.Origin = attrs.Origin
		updated = &product
		return nil
	})
	if err != nil {
		err = productError(err)
		if apperrors.KindOf(err) == apperrors.KindInternal {
			logger.Error("Failed to update product in database", err, map[string]interface{}{
				"product_id": id,
			})
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes the product only; codes that reference it keep the dangling id.
func (r *productRepository) Delete(ctx context.Context, id uint) error {
	result := r.gw.DB(ctx).Delete(&model.Product{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete product in database", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return productError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound(apperrors.MsgProductNotFound)
	}

	logger.Debug("Product deleted from database", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

func (r *productRepository) List(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.gw.DB(ctx).Order("created_at DESC").Order("id DESC").Find(&products).Error
	if err != nil {
		logger.Error("Failed to list products", err)
		return nil, productError(err)
	}
	return products, nil
}

func productError(err error) error {
	return translate(err, apperrors.MsgSKUExists, apperrors.MsgProductNotFound)
}
