package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/stylenest/api/internal/domain"
	pfirestore "github.com/stylenest/api/internal/platform/firestore"
	"github.com/stylenest/api/internal/repositories"
)

const (
	productCollection    = "products"
	newArrivalCollection = "newArrivals"
)

// CatalogRepository reads purchasable catalog entries from Firestore.
type CatalogRepository struct {
	products    *pfirestore.BaseRepository[productDocument]
	newArrivals *pfirestore.BaseRepository[newArrivalDocument]
}

// NewCatalogRepository constructs a Firestore-backed catalog repository.
func NewCatalogRepository(provider *pfirestore.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires firestore provider")
	}
	return &CatalogRepository{
		products:    pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil, nil),
		newArrivals: pfirestore.NewBaseRepository[newArrivalDocument](provider, newArrivalCollection, nil, nil),
	}, nil
}

// GetProduct retrieves a product document by identifier.
func (r *CatalogRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("catalog repository not initialised")
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.Product{}, errors.New("catalog repository: product id is required")
	}

	doc, err := r.products.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	data := doc.Data
	return domain.Product{
		ID:            doc.ID,
		Name:          data.Name,
		Description:   data.Description,
		Category:      data.Category,
		Subcategory:   data.Subcategory,
		Brand:         data.Brand,
		Price:         data.Price,
		OriginalPrice: data.OriginalPrice,
		Size:          data.Size,
		Color:         data.Color,
		Images:        decodeImages(data.Images),
		Stock:         data.Stock,
		IsActive:      data.IsActive,
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
	}, nil
}

// GetNewArrival retrieves a new-arrival document by identifier.
func (r *CatalogRepository) GetNewArrival(ctx context.Context, arrivalID string) (domain.NewArrival, error) {
	if r == nil || r.newArrivals == nil {
		return domain.NewArrival{}, errors.New("catalog repository not initialised")
	}
	id := strings.TrimSpace(arrivalID)
	if id == "" {
		return domain.NewArrival{}, errors.New("catalog repository: arrival id is required")
	}

	doc, err := r.newArrivals.Get(ctx, id)
	if err != nil {
		return domain.NewArrival{}, err
	}

	data := doc.Data
	arrival := domain.NewArrival{
		ID:            doc.ID,
		Title:         data.Title,
		Description:   data.Description,
		Brand:         data.Brand,
		Category:      data.Category,
		Color:         data.Color,
		CurrentPrice:  data.CurrentPrice,
		OriginalPrice: data.OriginalPrice,
		FeaturedImage: domain.ImageRef{URL: data.FeaturedImageURL, Alt: data.FeaturedImageAlt},
		Images:        decodeImages(data.Images),
		IsActive:      data.IsActive,
		ArrivalDate:   data.ArrivalDate,
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
	}
	for _, size := range data.AvailableSizes {
		arrival.AvailableSizes = append(arrival.AvailableSizes, domain.SizeStock{
			Size:        size.Size,
			Stock:       size.Stock,
			IsAvailable: size.IsAvailable,
		})
	}
	return arrival, nil
}

func decodeImages(docs []imageDocument) []domain.ImageRef {
	out := make([]domain.ImageRef, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.ImageRef{URL: doc.URL, Alt: doc.Alt})
	}
	return out
}

type imageDocument struct {
	URL string `firestore:"url"`
	Alt string `firestore:"alt,omitempty"`
}

type productDocument struct {
	Name          string          `firestore:"name"`
	Description   string          `firestore:"description,omitempty"`
	Category      string          `firestore:"category,omitempty"`
	Subcategory   string          `firestore:"subcategory,omitempty"`
	Brand         string          `firestore:"brand,omitempty"`
	Price         int64           `firestore:"price"`
	OriginalPrice int64           `firestore:"originalPrice,omitempty"`
	Size          string          `firestore:"size,omitempty"`
	Color         string          `firestore:"color,omitempty"`
	Images        []imageDocument `firestore:"images,omitempty"`
	Stock         int             `firestore:"stock"`
	IsActive      bool            `firestore:"isActive"`
	CreatedAt     time.Time       `firestore:"createdAt"`
	UpdatedAt     time.Time       `firestore:"updatedAt"`
}

type newArrivalDocument struct {
	Title            string              `firestore:"title"`
	Description      string              `firestore:"description,omitempty"`
	Brand            string              `firestore:"brand,omitempty"`
	Category         string              `firestore:"category,omitempty"`
	Color            string              `firestore:"color,omitempty"`
	CurrentPrice     int64               `firestore:"currentPrice"`
	OriginalPrice    int64               `firestore:"originalPrice,omitempty"`
	FeaturedImageURL string              `firestore:"featuredImageUrl,omitempty"`
	FeaturedImageAlt string              `firestore:"featuredImageAlt,omitempty"`
	Images           []imageDocument     `firestore:"images,omitempty"`
	AvailableSizes   []sizeStockDocument `firestore:"availableSizes,omitempty"`
	IsActive         bool                `firestore:"isActive"`
	ArrivalDate      time.Time           `firestore:"arrivalDate"`
	CreatedAt        time.Time           `firestore:"createdAt"`
	UpdatedAt        time.Time           `firestore:"updatedAt"`
}

type sizeStockDocument struct {
	Size        string `firestore:"size"`
	Stock       int    `firestore:"stock"`
	IsAvailable bool   `firestore:"isAvailable"`
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)
