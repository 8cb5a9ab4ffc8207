package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/stylenest/api/internal/domain"
	"github.com/stylenest/api/internal/repositories"
)

type stubCatalogRepository struct {
	productFunc func(ctx context.Context, productID string) (domain.Product, error)
	arrivalFunc func(ctx context.Context, arrivalID string) (domain.NewArrival, error)
}

func (s *stubCatalogRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if s.productFunc == nil {
		return domain.Product{}, &stubRepoError{notFound: true}
	}
	return s.productFunc(ctx, productID)
}

func (s *stubCatalogRepository) GetNewArrival(ctx context.Context, arrivalID string) (domain.NewArrival, error) {
	if s.arrivalFunc == nil {
		return domain.NewArrival{}, &stubRepoError{notFound: true}
	}
	return s.arrivalFunc(ctx, arrivalID)
}

var _ repositories.CatalogRepository = (*stubCatalogRepository)(nil)

func newTestCatalogService(t *testing.T, repo repositories.CatalogRepository) CatalogService {
	t.Helper()
	svc, err := NewCatalogService(CatalogServiceDeps{
		Catalog: repo,
		Clock:   fixedClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}
	return svc
}

func activeProduct() domain.Product {
	return domain.Product{
		ID:            "prod-1",
		Name:          "Linen Shirt",
		Brand:         "Atelier",
		Description:   "Relaxed fit linen shirt",
		Category:      "shirts",
		Price:         4500,
		OriginalPrice: 6000,
		Size:          "L",
		Color:         "white",
		Images:        []domain.ImageRef{{URL: "https://img.example/shirt.jpg", Alt: "1"}},
		Stock:         10,
		IsActive:      true,
	}
}

func activeArrival() domain.NewArrival {
	return domain.NewArrival{
		ID:            "arr-1",
		Title:         "Autumn Coat",
		Brand:         "Atelier",
		Category:      "coats",
		Color:         "camel",
		CurrentPrice:  12000,
		OriginalPrice: 15000,
		FeaturedImage: domain.ImageRef{URL: "https://img.example/coat.jpg", Alt: "featured"},
		Images:        []domain.ImageRef{{URL: "https://img.example/coat-2.jpg", Alt: "2"}},
		AvailableSizes: []domain.SizeStock{
			{Size: "M", Stock: 4, IsAvailable: true},
			{Size: "L", Stock: 0, IsAvailable: false},
		},
		IsActive: true,
	}
}

func TestResolveLineItemProductSnapshot(t *testing.T) {
	repo := &stubCatalogRepository{
		productFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return activeProduct(), nil
		},
	}

	svc := newTestCatalogService(t, repo)

	line, err := svc.ResolveLineItem(context.Background(), ResolveLineItemQuery{
		ItemID:   "prod-1",
		ItemType: domain.ItemTypeProduct,
		Quantity: 2,
		Size:     "M",
		Color:    "black",
	})
	if err != nil {
		t.Fatalf("ResolveLineItem: %v", err)
	}

	if line.ItemID != "prod-1" || line.ItemType != domain.ItemTypeProduct {
		t.Fatalf("unexpected identity: %+v", line)
	}
	if line.Title != "Linen Shirt" || line.Price != 4500 || line.OriginalPrice != 6000 {
		t.Fatalf("unexpected snapshot: %+v", line)
	}
	if line.Size != "M" || line.Color != "black" {
		t.Fatalf("expected requested options to win, got size %s color %s", line.Size, line.Color)
	}
	if line.Image.URL != "https://img.example/shirt.jpg" {
		t.Fatalf("expected first image, got %s", line.Image.URL)
	}
	if line.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", line.Quantity)
	}
}

func TestResolveLineItemProductDefaultsOptions(t *testing.T) {
	repo := &stubCatalogRepository{
		productFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			product := activeProduct()
			product.Size = ""
			return product, nil
		},
	}

	svc := newTestCatalogService(t, repo)

	line, err := svc.ResolveLineItem(context.Background(), ResolveLineItemQuery{
		ItemID:   "prod-1",
		ItemType: domain.ItemTypeProduct,
		Quantity: 1,
	})
	if err != nil {
		t.Fatalf("ResolveLineItem: %v", err)
	}

	if line.Size != DefaultItemSize {
		t.Fatalf("expected default size %s, got %s", DefaultItemSize, line.Size)
	}
	if line.Color != "white" {
		t.Fatalf("expected catalog color, got %s", line.Color)
	}
}

func TestResolveLineItemProductInsufficientStock(t *testing.T) {
	repo := &stubCatalogRepository{
		productFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			product := activeProduct()
			product.Stock = 1
			return product, nil
		},
	}

	svc := newTestCatalogService(t, repo)

	_, err := svc.ResolveLineItem(context.Background(), ResolveLineItemQuery{
		ItemID:   "prod-1",
		ItemType: domain.ItemTypeProduct,
		Quantity: 3,
	})
	if !errors.Is(err, ErrCatalogOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}
}

func TestResolveLineItemInactiveProduct(t *testing.T) {
	repo := &stubCatalogRepository{
		productFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			product := activeProduct()
			product.IsActive = false
			return product, nil
		},
	}

	svc := newTestCatalogService(t, repo)

	_, err := svc.ResolveLineItem(context.Background(), ResolveLineItemQuery{
		ItemID:   "prod-1",
		ItemType: domain.ItemTypeProduct,
	})
	if !errors.Is(err, ErrCatalogItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
}

func TestResolveLineItemProductMissing(t *testing.T) {
	svc := newTestCatalogService(t, &stubCatalogRepository{})

	_, err := svc.ResolveLineItem(context.Background(), ResolveLineItemQuery{
		ItemID:   "ghost",
		ItemType: domain.ItemTypeProduct,
	})
	if !errors.Is(err, ErrCatalogItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
}

func TestResolveLineItemNewArrivalPerSizeStock(t *testing.T) {
	repo := &stubCatalogRepository{
		arrivalFunc: func(ctx context.Context, arrivalID string) (domain.NewArrival, error) {
			return activeArrival(), nil
		},
	}

	svc := newTestCatalogService(t, repo)

	line, err := svc.ResolveLineItem(context.Background(), ResolveLineItemQuery{
		ItemID:   "arr-1",
		ItemType: domain.ItemTypeNewArrival,
		Quantity: 2,
		Size:     "m",
	})
	if err != nil {
		t.Fatalf("ResolveLineItem: %v", err)
	}

	if line.Size != "M" {
		t.Fatalf("expected canonical size M, got %s", line.Size)
	}
	if line.Price != 12000 || line.OriginalPrice != 15000 {
		t.Fatalf("unexpected prices: %+v", line)
	}
	if line.Color != "camel" {
		t.Fatalf("expected catalog color camel, got %s", line.Color)
	}
	if line.Image.URL != "https://img.example/coat.jpg" {
		t.Fatalf("expected featured image, got %s", line.Image.URL)
	}
}

func TestResolveLineItemNewArrivalDefaultsToMediumSize(t *testing.T) {
	repo := &stubCatalogRepository{
		arrivalFunc: func(ctx context.Context, arrivalID string) (domain.NewArrival, error) {
			return activeArrival(), nil
		},
	}

	svc := newTestCatalogService(t, repo)

	line, err := svc.ResolveLineItem(context.Background(), ResolveLineItemQuery{
		ItemID:   "arr-1",
		ItemType: domain.ItemTypeNewArrival,
		Quantity: 1,
	})
	if err != nil {
		t.Fatalf("ResolveLineItem: %v", err)
	}
	if line.Size != "M" {
		t.Fatalf("expected default size M, got %s", line.Size)
	}
}

func TestResolveLineItemNewArrivalSizeNotOffered(t *testing.T) {
	repo := &stubCatalogRepository{
		arrivalFunc: func(ctx context.Context, arrivalID string) (domain.NewArrival, error) {
			return activeArrival(), nil
		},
	}

	svc := newTestCatalogService(t, repo)

	_, err := svc.ResolveLineItem(context.Background(), ResolveLineItemQuery{
		ItemID:   "arr-1",
		ItemType: domain.ItemTypeNewArrival,
		Size:     "XS",
	})
	if !errors.Is(err, ErrCatalogOutOfStock) {
		t.Fatalf("expected out of stock for unoffered size, got %v", err)
	}
}

func TestResolveLineItemNewArrivalUnavailableSize(t *testing.T) {
	repo := &stubCatalogRepository{
		arrivalFunc: func(ctx context.Context, arrivalID string) (domain.NewArrival, error) {
			return activeArrival(), nil
		},
	}

	svc := newTestCatalogService(t, repo)

	_, err := svc.ResolveLineItem(context.Background(), ResolveLineItemQuery{
		ItemID:   "arr-1",
		ItemType: domain.ItemTypeNewArrival,
		Size:     "L",
	})
	if !errors.Is(err, ErrCatalogOutOfStock) {
		t.Fatalf("expected out of stock for unavailable size, got %v", err)
	}
}

func TestResolveLineItemNewArrivalImageFallback(t *testing.T) {
	repo := &stubCatalogRepository{
		arrivalFunc: func(ctx context.Context, arrivalID string) (domain.NewArrival, error) {
			arrival := activeArrival()
			arrival.FeaturedImage = domain.ImageRef{}
			return arrival, nil
		},
	}

	svc := newTestCatalogService(t, repo)

	line, err := svc.ResolveLineItem(context.Background(), ResolveLineItemQuery{
		ItemID:   "arr-1",
		ItemType: domain.ItemTypeNewArrival,
		Size:     "M",
	})
	if err != nil {
		t.Fatalf("ResolveLineItem: %v", err)
	}
	if line.Image.URL != "https://img.example/coat-2.jpg" {
		t.Fatalf("expected gallery fallback image, got %s", line.Image.URL)
	}
}

func TestResolveLineItemValidation(t *testing.T) {
	svc := newTestCatalogService(t, &stubCatalogRepository{})

	cases := []struct {
		name  string
		query ResolveLineItemQuery
	}{
		{"missing item id", ResolveLineItemQuery{ItemType: domain.ItemTypeProduct}},
		{"unknown type", ResolveLineItemQuery{ItemID: "prod-1", ItemType: "bundle"}},
		{"unresolvable type", ResolveLineItemQuery{ItemID: "prod-1", ItemType: domain.ItemTypeBanner}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ResolveLineItem(context.Background(), tc.query); !errors.Is(err, ErrCatalogInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestResolveLineItemTranslatesUnavailable(t *testing.T) {
	repo := &stubCatalogRepository{
		productFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{}, &stubRepoError{unavailable: true}
		},
	}

	svc := newTestCatalogService(t, repo)

	_, err := svc.ResolveLineItem(context.Background(), ResolveLineItemQuery{
		ItemID:   "prod-1",
		ItemType: domain.ItemTypeProduct,
	})
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestNewCatalogServiceRequiresRepository(t *testing.T) {
	if _, err := NewCatalogService(CatalogServiceDeps{}); err == nil {
		t.Fatalf("expected error when repository missing")
	}
}
