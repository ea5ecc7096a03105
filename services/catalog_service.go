package services

import (
	"context"
	"errors"
	"strings"

	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CatalogService manages products and stock locations.
type CatalogService struct {
	products  repository.ProductRepository
	locations repository.LocationRepository
	logger    *zap.Logger
}

func NewCatalogService(products repository.ProductRepository, locations repository.LocationRepository, logger *zap.Logger) *CatalogService {
	return &CatalogService{products: products, locations: locations, logger: logger}
}

// CreateProduct registers an active product. SKUs are unique across the catalog.
func (s *CatalogService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	sku := strings.TrimSpace(req.SKU)
	if _, err := s.products.FindBySKU(ctx, sku); err == nil {
		return nil, ErrProductAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	product := &models.Product{
		Name:     strings.TrimSpace(req.Name),
		SKU:      sku,
		IsActive: true,
	}
	if err := s.products.Create(ctx, product); err != nil {
		// lost a race with a concurrent insert of the same SKU
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrProductAlreadyExists
		}
		return nil, err
	}

	s.logger.Info("Product created", zap.Uint("product_id", product.ID), zap.String("sku", product.SKU))
	return product, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return product, err
}

func (s *CatalogService) ListProducts(ctx context.Context, page, limit int, activeOnly bool) ([]models.Product, int64, error) {
	return s.products.FindAll(ctx, page, limit, activeOnly)
}

// UpdateProduct changes name and/or SKU of an active product.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, req *models.UpdateProductRequest) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductAlreadyInactive
	}

	if req.SKU != nil {
		sku := strings.TrimSpace(*req.SKU)
		if sku != product.SKU {
			existing, err := s.products.FindBySKU(ctx, sku)
			if err == nil && existing.ID != product.ID {
				return nil, ErrProductSkuAlreadyExists
			}
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			product.SKU = sku
		}
	}
	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}

	if err := s.products.Update(ctx, product); err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrProductSkuAlreadyExists
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// DeactivateProduct soft-deletes a product. Its ledger entries and
// reservations stay; new movements and reservations are refused.
func (s *CatalogService) DeactivateProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductAlreadyInactive
	}

	product.IsActive = false
	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	s.logger.Info("Product deactivated", zap.Uint("product_id", product.ID))
	return product, nil
}

func (s *CatalogService) CreateLocation(ctx context.Context, req *models.CreateLocationRequest) (*models.Location, error) {
	name := strings.TrimSpace(req.Name)
	if _, err := s.locations.FindByName(ctx, name); err == nil {
		return nil, ErrLocationAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	location := &models.Location{Name: name, IsActive: true}
	if err := s.locations.Create(ctx, location); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrLocationAlreadyExists
		}
		return nil, err
	}
	return location, nil
}

func (s *CatalogService) GetLocation(ctx context.Context, id uint) (*models.Location, error) {
	location, err := s.locations.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrLocationNotFound
	}
	return location, err
}

func (s *CatalogService) ListLocations(ctx context.Context) ([]models.Location, error) {
	return s.locations.FindAll(ctx)
}
