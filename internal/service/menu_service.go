package service

import (
	"context"

	"cafepos/internal/repository"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type MenuCategory struct {
	Category string     `json:"category"`
	Items    []MenuItem `json:"items"`
}

// MenuService serves the public QR menu: enabled products grouped by
// category tag.
type MenuService interface {
	Menu(ctx context.Context) ([]MenuCategory, error)
}

type menuService struct {
	products repository.ProductRepository
}

func NewMenuService(products repository.ProductRepository) MenuService {
	return &menuService{products: products}
}

func (s *menuService) Menu(ctx context.Context) ([]MenuCategory, error) {
	ctx, cancel := context.WithTimeout(ctx, repository.StoreTimeout)
	defer cancel()

	products, err := s.products.ListEnabled(ctx)
	if err != nil {
		return nil, storeErr(err)
	}

	// products arrive ordered by category, so grouping preserves order
	var menu []MenuCategory
	for _, product := range products {
		category := product.Category
		if category == "" {
			category = "other"
		}
		if len(menu) == 0 || menu[len(menu)-1].Category != category {
			menu = append(menu, MenuCategory{Category: category})
		}
		last := &menu[len(menu)-1]
		last.Items = append(last.Items, MenuItem{
			ID:    product.ID.String(),
			Name:  product.Name,
			Price: product.Price,
		})
	}

	return menu, nil
}
