package repository

import (
	"context"

	"github.com/ikkim/traceability-backend/internal/app/model"
	"github.com/ikkim/traceability-backend/internal/db"
	apperrors "github.com/ikkim/traceability-backend/internal/errors"
	"github.com/ikkim/traceability-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DistributorUpdate tells LinkProduct what to do with the distributor column.
// The zero value leaves it untouched.
type DistributorUpdate struct {
	Set   bool
	Value *string
}

// SetDistributorTo replaces the distributor; nil clears it.
func SetDistributorTo(value *string) DistributorUpdate {
	return DistributorUpdate{Set: true, Value: value}
}

type CodeRepository interface {
	Create(ctx context.Context, code *model.TraceabilityCode) error
	BulkCreate(ctx context.Context, codes []model.TraceabilityCode) error
	FindByID(ctx context.Context, id uint) (*model.TraceabilityCode, error)
	FindByCode(ctx context.Context, code string) (*model.TraceabilityCode, error)
	FindByDarkCode(ctx context.Context, darkCode string) (*model.TraceabilityCode, error)
	LinkProduct(ctx context.Context, codeID, productID uint, distributor DistributorUpdate) error
	SetDistributor(ctx context.Context, codeID uint, distributor string) error
	List(ctx context.Context, page, pageSize int) (model.Page[model.CodeListing], error)
	ListLinked(ctx context.Context, page, pageSize int) (model.Page[model.LinkedCodeListing], error)
	Recent(ctx context.Context, limit int) ([]model.CodeListing, error)
	CountDanglingLinks(ctx context.Context) (int64, error)
}

type codeRepository struct {
	gw *db.Gateway
}

func NewCodeRepository(gw *db.Gateway) CodeRepository {
	return &codeRepository{gw: gw}
}

func (r *codeRepository) Create(ctx context.Context, code *model.TraceabilityCode) error {
	if err := r.gw.DB(ctx).Create(code).Error; err != nil {
		err = codeError(err)
		if apperrors.KindOf(err) == apperrors.KindInternal {
			logger.Error("Failed to create traceability code", err, map[string]interface{}{
				"code": code.Code,
			})
		}
		return err
	}

	logger.Debug("Traceability code created", map[string]interface{}{
		"code_id": code.ID,
		"code":    code.Code,
	})
	return nil
}

// InsertBatchSize keeps a multi-row INSERT under SQLite's 32766 bound
// variables (six columns per row).
const InsertBatchSize = 500

// BulkCreate inserts all rows in one transaction; a single conflict rejects
// the whole batch.

func (r *codeRepository) BulkCreate(ctx context.Context, codes []model.TraceabilityCode) error {
	if len(codes) == 0 {
		return nil
	}

	err := r.gw.Transaction(ctx, func(tx *db.Gateway) error {
		return tx.DB(ctx).CreateInBatches(&codes, InsertBatchSize).Error
	})
	if err != nil {
		return codeError(err)
	}
	return nil
}

func (r *codeRepository) FindByID(ctx context.Context, id uint) (*model.TraceabilityCode, error) {
	var code model.TraceabilityCode
	if err := r.gw.DB(ctx).First(&code, id).Error; err != nil {
		return nil, codeError(err)
	}
	return &code, nil
}

func (r *codeRepository) FindByCode(ctx context.Context, code string) (*model.TraceabilityCode, error) {
	return r.findOne(ctx, "code = ?", code)
}

func (r *codeRepository) FindByDarkCode(ctx context.Context, darkCode string) (*model.TraceabilityCode, error) {
	return r.findOne(ctx, "dark_code = ?", darkCode)
}

func (r *codeRepository) findOne(ctx context.Context, query string, arg string) (*model.TraceabilityCode, error) {
	var code model.TraceabilityCode
	if err := r.gw.DB(ctx).Where(query, arg).First(&code).Error; err != nil {
		return nil, codeError(err)
	}
	return &code, nil
}

// LinkProduct points the code at productID. The code row is locked for the
// rest of the transaction where the dialect supports it.
func (r *codeRepository) LinkProduct(ctx context.Context, codeID, productID uint, distributor DistributorUpdate) error {
	logger.Debug("Linking code to product", map[string]interface{}{
		"code_id":    codeID,
		"product_id": productID,
	})

	err := r.gw.Transaction(ctx, func(tx *db.Gateway) error {
		code, err := lockCode(ctx, tx, codeID)
		if err != nil {
			return err
		}

		var product model.Product
		if err := tx.DB(ctx).Select("id").First(&product, productID).Error; err != nil {
			return productError(err)
		}

		updates := map[string]interface{}{"product_id": product.ID}
		if distributor.Set {
			updates["distributor"] = distributor.Value
		}
		return tx.DB(ctx).Model(code).Updates(updates).Error
	})
	if err != nil {
		err = codeError(err)
		if apperrors.KindOf(err) == apperrors.KindInternal {
			logger.Error("Failed to link code to product", err, map[string]interface{}{
				"code_id":    codeID,
				"product_id": productID,
			})
		}
		return err
	}
	return nil
}

// SetDistributor requires the code to be linked to a product first.
func (r *codeRepository) SetDistributor(ctx context.Context, codeID uint, distributor string) error {
	err := r.gw.Transaction(ctx, func(tx *db.Gateway) error {
		code, err := lockCode(ctx, tx, codeID)
		if err != nil {
			return err
		}
		if !code.Linked() {
			return apperrors.Precondition(apperrors.MsgLinkFirst)
		}
		return tx.DB(ctx).Model(code).Update("distributor", distributor).Error
	})
	if err != nil {
		err = codeError(err)
		if apperrors.KindOf(err) == apperrors.KindInternal {
			logger.Error("Failed to set distributor", err, map[string]interface{}{
				"code_id": codeID,
			})
		}
		return err
	}
	return nil
}

func lockCode(ctx context.Context, tx *db.Gateway, codeID uint) (*model.TraceabilityCode, error) {
	var code model.TraceabilityCode
	err := tx.DB(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&code, codeID).Error
	if err != nil {
		return nil, codeError(err)
	}
	return &code, nil
}

const codeListingColumns = "tc.id, tc.code, tc.dark_code, tc.product_id, tc.distributor, " +
	"p.sku AS product_sku, p.name AS product_name, tc.created_at"

func (r *codeRepository) List(ctx context.Context, page, pageSize int) (model.Page[model.CodeListing], error) {
	var total int64
	if err := r.gw.DB(ctx).Model(&model.TraceabilityCode{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count traceability codes", err)
		return model.Page[model.CodeListing]{}, codeError(err)
	}

	var rows []model.CodeListing
	err := r.gw.DB(ctx).
		Table("traceability_codes AS tc").
		Select(codeListingColumns).
		Joins("LEFT JOIN products p ON tc.product_id = p.id").
		Order("tc.created_at DESC").Order("tc.id DESC").
		Limit(pageSize).Offset(model.Offset(page, pageSize)).
		Scan(&rows).Error
	if err != nil {
		logger.Error("Failed to list traceability codes", err, map[string]interface{}{
			"page":      page,
			"page_size": pageSize,
		})
		return model.Page[model.CodeListing]{}, codeError(err)
	}

	return model.NewPage(rows, total, page, pageSize), nil
}

// ListLinked lists codes whose product still exists. Codes with a dangling
// product id are excluded from both the rows and the total.
func (r *codeRepository) ListLinked(ctx context.Context, page, pageSize int) (model.Page[model.LinkedCodeListing], error) {
	base := func() *gorm.DB {
		return r.gw.DB(ctx).
			Table("traceability_codes AS tc").
			Joins("JOIN products p ON tc.product_id = p.id")
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		logger.Error("Failed to count linked codes", err)
		return model.Page[model.LinkedCodeListing]{}, codeError(err)
	}

	var rows []model.LinkedCodeListing
	err := base().
		Select("tc.id, tc.code, tc.dark_code, tc.product_id, p.sku AS sku, p.name AS name, p.origin AS origin, tc.distributor, tc.created_at").
		Order("tc.created_at DESC").Order("tc.id DESC").
		Limit(pageSize).Offset(model.Offset(page, pageSize)).
		Scan(&rows).Error
	if err != nil {
		logger.Error("Failed to list linked codes", err, map[string]interface{}{
			"page":      page,
			"page_size": pageSize,
		})
		return model.Page[model.LinkedCodeListing]{}, codeError(err)
	}

	return model.NewPage(rows, total, page, pageSize), nil
}

func (r *codeRepository) Recent(ctx context.Context, limit int) ([]model.CodeListing, error) {
	var rows []model.CodeListing
	err := r.gw.DB(ctx).
		Table("traceability_codes AS tc").
		Select(codeListingColumns).
		Joins("LEFT JOIN products p ON tc.product_id = p.id").
		Order("tc.created_at DESC").Order("tc.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, codeError(err)
	}
	return rows, nil
}

// CountDanglingLinks counts codes whose product id points at a deleted product.
func (r *codeRepository) CountDanglingLinks(ctx context.Context) (int64, error) {
	var n int64
	err := r.gw.DB(ctx).
		Table("traceability_codes AS tc").
		Joins("LEFT JOIN products p ON tc.product_id = p.id").
		Where("tc.product_id IS NOT NULL AND p.id IS NULL").
		Count(&n).Error
	if err != nil {
		return 0, codeError(err)
	}
	return n, nil
}

func codeError(err error) error {
	return translate(err, apperrors.MsgCodeExists, apperrors.MsgCodeNotFound)
}
