package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ikkim/traceability-backend/internal/app/model"
	"github.com/ikkim/traceability-backend/internal/app/repository"
	apperrors "github.com/ikkim/traceability-backend/internal/errors"
	"github.com/ikkim/traceability-backend/pkg/logger"
)

// AttachRequest links a code either to an existing product (ProductID) or to
// the product with SKU, creating it when absent.
type AttachRequest struct {
	Code        string
	ProductID   *uint
	SKU         string
	Name        *string
	Origin      *string
	Distributor *string
}

type AssociationService interface {
	AttachProductToCode(ctx context.Context, req AttachRequest) error
	SetDistributorForCode(ctx context.Context, code, distributor string) error
	AttachProductAndDistributor(ctx context.Context, code string, productID uint, distributor *string) error
}

type associationService struct {
	store repository.Store
}

func NewAssociationService(store repository.Store) AssociationService {
	return &associationService{store: store}
}

func (s *associationService) AttachProductToCode(ctx context.Context, req AttachRequest) error {
	codeValue := strings.TrimSpace(req.Code)
	sku := strings.TrimSpace(req.SKU)
	hasProductID := req.ProductID != nil && *req.ProductID != 0
	if codeValue == "" || (!hasProductID && sku == "") {
		return apperrors.Validation(apperrors.MsgProductRequired)
	}

	code, err := s.findImportedCode(ctx, codeValue)
	if err != nil {
		return err
	}

	distributor := repository.DistributorUpdate{}
	if d := trimmedOrNil(req.Distributor); d != nil {
		distributor = repository.SetDistributorTo(d)
	}

	if hasProductID {
		if err := s.store.Codes().LinkProduct(ctx, code.ID, *req.ProductID, distributor); err != nil {
			logLinkFailure(err, codeValue, *req.ProductID)
			return err
		}
		logger.Info("Code linked to existing product", map[string]interface{}{
			"code":       codeValue,
			"product_id": *req.ProductID,
		})
		return nil
	}

	var productID uint
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		product, err := tx.Products().CreateOrIgnore(ctx, sku, model.ProductAttributes{
			Name:   trimmedOrNil(req.Name),
			Origin: trimmedOrNil(req.Origin),
		})
		if err != nil {
			return err
		}
		productID = product.ID
		return tx.Codes().LinkProduct(ctx, code.ID, product.ID, distributor)
	})
	if err != nil {
		logLinkFailure(err, codeValue, 0)
		return err
	}

	logger.Info("Code linked to product by SKU", map[string]interface{}{
		"code":       codeValue,
		"sku":        sku,
		"product_id": productID,
	})
	return nil
}

func (s *associationService) SetDistributorForCode(ctx context.Context, codeValue, distributor string) error {
	distributor = strings.TrimSpace(distributor)
	if distributor == "" {
		return apperrors.Validation(apperrors.MsgDistributorBlank)
	}

	code, err := s.store.Codes().FindByCode(ctx, strings.TrimSpace(codeValue))
	if err != nil {
		return err
	}
	if !code.Linked() {
		return apperrors.Precondition(apperrors.MsgLinkFirst)
	}

	if err := s.store.Codes().SetDistributor(ctx, code.ID, distributor); err != nil {
		return err
	}

	logger.Info("Distributor set for code", map[string]interface{}{
		"code":        code.Code,
		"distributor": distributor,
	})
	return nil
}

// AttachProductAndDistributor replaces both the link and the distributor;
// a nil or blank distributor clears it.
func (s *associationService) AttachProductAndDistributor(ctx context.Context, codeValue string, productID uint, distributor *string) error {
	codeValue = strings.TrimSpace(codeValue)
	if codeValue == "" {
		return apperrors.Validation(apperrors.MsgProductRequired)
	}
	if productID == 0 {
		return apperrors.Validation("请选择要关联的产品")
	}

	code, err := s.store.Codes().FindByCode(ctx, codeValue)
	if err != nil {
		return err
	}
	if _, err := s.store.Products().FindByID(ctx, productID); err != nil {
		return err
	}

	err = s.store.Codes().LinkProduct(ctx, code.ID, productID, repository.SetDistributorTo(trimmedOrNil(distributor)))
	if err != nil {
		logLinkFailure(err, codeValue, productID)
		return err
	}

	logger.Info("Code linked to product with distributor", map[string]interface{}{
		"code":       codeValue,
		"product_id": productID,
	})
	return nil
}

// findImportedCode reports a missing code with the two-phase workflow hint.
func (s *associationService) findImportedCode(ctx context.Context, codeValue string) (*model.TraceabilityCode, error) {
	code, err := s.store.Codes().FindByCode(ctx, codeValue)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound(apperrors.MsgCodeNotImported)
	}
	return code, err
}

func logLinkFailure(err error, code string, productID uint) {
	fields := map[string]interface{}{
		"code":       code,
		"product_id": productID,
	}
	if apperrors.KindOf(err) == apperrors.KindInternal {
		logger.Error("Failed to link code to product", err, fields)
		return
	}
	fields["reason"] = err.Error()
	logger.Warn("Code link rejected", fields)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
