package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidPrice = errors.New("price must not be negative")

// CatalogService handles product business logic. Display reads go through
// the product cache when one is configured; stock mutations never do.
type CatalogService interface {
	CreateProduct(ctx context.Context, name, description string, price int64, stockQuantity int) (*domain.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, page, pageSize int) ([]*domain.Product, int, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, name, description string, price int64, stockQuantity int) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	productRepo repository.ProductRepository
	cache       *cache.ProductCache
	logger      *zap.Logger
}

// NewCatalogService creates a new CatalogService. productCache may be nil
// when redis is not configured.
func NewCatalogService(productRepo repository.ProductRepository, productCache *cache.ProductCache, logger *zap.Logger) CatalogService {
	return &catalogService{
		productRepo: productRepo,
		cache:       productCache,
		logger:      logger,
	}
}

// CreateProduct adds a product to the catalog
func (s *catalogService) CreateProduct(ctx context.Context, name, description string, price int64, stockQuantity int) (*domain.Product, error) {
	if price < 0 {
		return nil, ErrInvalidPrice
	}
	if stockQuantity < 0 {
		return nil, fmt.Errorf("stock quantity must not be negative, got %d", stockQuantity)
	}

	now := time.Now()
	product := &domain.Product{
		ID:            uuid.New(),
		Name:          name,
		Description:   description,
		Price:         price,
		StockQuantity: stockQuantity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// GetProductByID retrieves a product, serving from cache when possible
func (s *catalogService) GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if s.cache != nil {
		if product, err := s.cache.Get(ctx, id); err == nil {
			return product, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("Product cache read failed", zap.String("product_id", id.String()), zap.Error(err))
		}
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, product); err != nil {
			s.logger.Warn("Product cache write failed", zap.String("product_id", id.String()), zap.Error(err))
		}
	}

	return product, nil
}

// ListProducts retrieves a page of products
func (s *catalogService) ListProducts(ctx context.Context, page, pageSize int) ([]*domain.Product, int, error) {
	return s.productRepo.List(ctx, page, pageSize)
}

// UpdateProduct replaces a product's attributes and drops any cached copy
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, name, description string, price int64, stockQuantity int) (*domain.Product, error) {
	if price < 0 {
		return nil, ErrInvalidPrice
	}
	if stockQuantity < 0 {
		return nil, fmt.Errorf("stock quantity must not be negative, got %d", stockQuantity)
	}

	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Name = name
	existing.Description = description
	existing.Price = price
	existing.StockQuantity = stockQuantity
	existing.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.invalidate(ctx, id)
	return existing, nil
}

// DeleteProduct removes a product from the catalog. Orders that reference it
// keep their price snapshots.
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	return nil
}

func (s *catalogService) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.String("product_id", id.String()), zap.Error(err))
	}
}
