package service

import (
	"context"
	"errors"
	"fmt"

	"cafepos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogItem is what the approval pipeline needs to know about a product:
// the current list price it snapshots and the category tag it routes on.
type CatalogItem struct {
	Name     string
	Price    decimal.Decimal
	Category string
}

// Catalog is the synchronous price/category lookup consumed during approval.
type Catalog interface {
	Lookup(ctx context.Context, productID uuid.UUID) (CatalogItem, error)
}

type catalogService struct {
	products repository.ProductRepository
}

func NewCatalog(products repository.ProductRepository) Catalog {
	return &catalogService{products: products}
}

func (c *catalogService) Lookup(ctx context.Context, productID uuid.UUID) (CatalogItem, error) {
	product, err := c.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CatalogItem{}, fmt.Errorf("%w: unknown product %s", ErrCatalogUnavailable, productID)
		}
		return CatalogItem{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return CatalogItem{
		Name:     product.Name,
		Price:    product.Price,
		Category: product.Category,
	}, nil
}
