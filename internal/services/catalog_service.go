package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/stylenest/api/internal/domain"
	"github.com/stylenest/api/internal/repositories"
)

// DefaultItemSize is assumed when a purchase specifies no size.
const DefaultItemSize = "M"

var (
	// ErrCatalogRepositoryMissing indicates the repository dependency is absent.
	ErrCatalogRepositoryMissing = errors.New("catalog service: repository is not configured")
	// ErrCatalogInvalidInput indicates the caller supplied invalid data to a catalog lookup.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
	// ErrCatalogItemNotFound indicates no purchasable entry matches the requested identifier.
	ErrCatalogItemNotFound = errors.New("catalog service: item not found")
	// ErrCatalogOutOfStock indicates the entry exists but cannot satisfy the requested quantity.
	ErrCatalogOutOfStock = errors.New("catalog service: out of stock")
	// ErrCatalogUnavailable indicates the catalog backend cannot be reached.
	ErrCatalogUnavailable = errors.New("catalog service: unavailable")
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Catalog     repositories.CatalogRepository
	Clock       func() time.Time
	DefaultSize string
}

type catalogService struct {
	repo        repositories.CatalogRepository
	clock       func() time.Time
	defaultSize string
}

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog service: catalog repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	defaultSize := strings.TrimSpace(deps.DefaultSize)
	if defaultSize == "" {
		defaultSize = DefaultItemSize
	}
	return &catalogService{
		repo:        deps.Catalog,
		clock:       func() time.Time { return clock().UTC() },
		defaultSize: defaultSize,
	}, nil
}

// ResolveLineItem validates the catalog entry and produces the snapshot copied
// onto the cart line. The snapshot is frozen at resolution time; later catalog
// edits do not flow back into existing lines.
func (s *catalogService) ResolveLineItem(ctx context.Context, query ResolveLineItemQuery) (CartLineItem, error) {
	if s.repo == nil {
		return CartLineItem{}, ErrCatalogRepositoryMissing
	}

	itemID := strings.TrimSpace(query.ItemID)
	if itemID == "" {
		return CartLineItem{}, fmt.Errorf("%w: item id is required", ErrCatalogInvalidInput)
	}
	if !query.ItemType.Valid() {
		return CartLineItem{}, fmt.Errorf("%w: unknown item type %q", ErrCatalogInvalidInput, string(query.ItemType))
	}
	if !query.ItemType.Resolvable() {
		return CartLineItem{}, fmt.Errorf("%w: item type %q cannot be added to a cart", ErrCatalogInvalidInput, string(query.ItemType))
	}

	quantity := query.Quantity
	if quantity < 1 {
		quantity = 1
	}

	switch query.ItemType {
	case domain.ItemTypeProduct:
		return s.resolveProduct(ctx, itemID, query, quantity)
	case domain.ItemTypeNewArrival:
		return s.resolveNewArrival(ctx, itemID, query, quantity)
	default:
		return CartLineItem{}, fmt.Errorf("%w: item type %q cannot be added to a cart", ErrCatalogInvalidInput, string(query.ItemType))
	}
}

func (s *catalogService) resolveProduct(ctx context.Context, itemID string, query ResolveLineItemQuery, quantity int) (CartLineItem, error) {
	product, err := s.repo.GetProduct(ctx, itemID)
	if err != nil {
		return CartLineItem{}, s.translateRepoError(err)
	}
	if !product.IsActive {
		return CartLineItem{}, ErrCatalogItemNotFound
	}
	if product.Stock < quantity {
		return CartLineItem{}, fmt.Errorf("%w: requested %d, available %d", ErrCatalogOutOfStock, quantity, product.Stock)
	}

	size := strings.TrimSpace(query.Size)
	if size == "" {
		size = strings.TrimSpace(product.Size)
	}
	if size == "" {
		size = s.defaultSize
	}
	color := strings.TrimSpace(query.Color)
	if color == "" {
		color = strings.TrimSpace(product.Color)
	}

	line := CartLineItem{
		ItemID:        product.ID,
		ItemType:      domain.ItemTypeProduct,
		Title:         product.Name,
		Brand:         product.Brand,
		Description:   product.Description,
		Category:      product.Category,
		Price:         product.Price,
		OriginalPrice: product.OriginalPrice,
		Quantity:      quantity,
		Size:          size,
		Color:         color,
	}
	if len(product.Images) > 0 {
		line.Image = product.Images[0]
	}
	if line.OriginalPrice < line.Price {
		line.OriginalPrice = line.Price
	}
	return line, nil
}

func (s *catalogService) resolveNewArrival(ctx context.Context, itemID string, query ResolveLineItemQuery, quantity int) (CartLineItem, error) {
	arrival, err := s.repo.GetNewArrival(ctx, itemID)
	if err != nil {
		return CartLineItem{}, s.translateRepoError(err)
	}
	if !arrival.IsActive {
		return CartLineItem{}, ErrCatalogItemNotFound
	}

	size := strings.TrimSpace(query.Size)
	if size == "" {
		size = s.defaultSize
	}

	// New arrivals track stock per size.
	var stock *domain.SizeStock
	for i := range arrival.AvailableSizes {
		if strings.EqualFold(arrival.AvailableSizes[i].Size, size) {
			stock = &arrival.AvailableSizes[i]
			break
		}
	}
	if stock == nil {
		return CartLineItem{}, fmt.Errorf("%w: size %q is not offered", ErrCatalogOutOfStock, size)
	}
	if !stock.IsAvailable || stock.Stock < quantity {
		return CartLineItem{}, fmt.Errorf("%w: requested %d of size %q, available %d", ErrCatalogOutOfStock, quantity, size, stock.Stock)
	}

	color := strings.TrimSpace(query.Color)
	if color == "" {
		color = strings.TrimSpace(arrival.Color)
	}

	line := CartLineItem{
		ItemID:        arrival.ID,
		ItemType:      domain.ItemTypeNewArrival,
		Title:         arrival.Title,
		Brand:         arrival.Brand,
		Description:   arrival.Description,
		Category:      arrival.Category,
		Price:         arrival.CurrentPrice,
		OriginalPrice: arrival.OriginalPrice,
		Quantity:      quantity,
		Size:          stock.Size,
		Color:         color,
		Image:         arrival.FeaturedImage,
	}
	if line.Image.URL == "" && len(arrival.Images) > 0 {
		line.Image = arrival.Images[0]
	}
	if line.OriginalPrice < line.Price {
		line.OriginalPrice = line.Price
	}
	return line, nil
}

func (s *catalogService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCatalogItemNotFound
		case repoErr.IsUnavailable():
			return ErrCatalogUnavailable
		}
	}
	return ErrCatalogUnavailable
}
