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

// VerificationService resolves a scanned dark code for consumers.
type VerificationService interface {
	Resolve(ctx context.Context, darkCode string) (model.VerificationResult, error)
}

type verificationService struct {
	codes    repository.CodeRepository
	products repository.ProductRepository
}

func NewVerificationService(codes repository.CodeRepository, products repository.ProductRepository) VerificationService {
	return &verificationService{codes: codes, products: products}
}

// Resolve never reports an unknown or partially linked code as an error.
// Only a failed code lookup is returned as an error.
func (s *verificationService) Resolve(ctx context.Context, darkCode string) (model.VerificationResult, error) {
	darkCode = strings.TrimSpace(darkCode)
	if darkCode == "" {
		return model.VerificationResult{}, apperrors.Validation("请提供暗码")
	}

	logger.Debug("Resolving dark code", map[string]interface{}{
		"dark_code": darkCode,
	})

	code, err := s.codes.FindByDarkCode(ctx, darkCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Info("Dark code not found", map[string]interface{}{
				"dark_code": darkCode,
			})
			return model.VerificationResult{Status: model.VerificationNotFound}, nil
		}
		logger.Error("Failed to look up dark code", err, map[string]interface{}{
			"dark_code": darkCode,
		})
		return model.VerificationResult{}, err
	}

	view := &model.ProductView{
		SKU:         model.UnassociatedSKU,
		Name:        model.UnsetProductName,
		Distributor: model.UnsetDistributor,
		DarkCode:    code.DarkCode,
		CreatedAt:   code.CreatedAt,
	}
	if code.Distributor != nil && *code.Distributor != "" {
		view.Distributor = *code.Distributor
	}

	if !code.Linked() {
		return model.VerificationResult{Status: model.VerificationFoundUnlinked, View: view}, nil
	}

	product, err := s.products.FindByID(ctx, *code.ProductID)
	if err != nil {
		// The code itself is genuine; degrade the product part only.
		fields := map[string]interface{}{
			"dark_code":  darkCode,
			"product_id": *code.ProductID,
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Code links to a missing product", fields)
		} else {
			logger.Error("Product lookup failed during verification", err, fields)
		}
		return model.VerificationResult{Status: model.VerificationFoundLinked, View: view}, nil
	}

	view.Associated = true
	view.SKU = product.SKU
	if product.Name != nil && *product.Name != "" {
		view.Name = *product.Name
	}
	view.Origin = product.Origin

	logger.Info("Dark code verified", map[string]interface{}{
		"dark_code": darkCode,
		"sku":       product.SKU,
	})
	return model.VerificationResult{Status: model.VerificationFoundLinked, View: view}, nil
}
