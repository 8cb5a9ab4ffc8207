package repositories

import (
	"context"
	"time"

	domain "github.com/stylenest/api/internal/domain"
)

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartRepository owns cart persistence keyed by shopping session with
// optimistic locking on replacement.
type CartRepository interface {
	// GetCart loads the active cart for the session. Returns a RepositoryError
	// with IsNotFound when no cart document exists.
	GetCart(ctx context.Context, sessionID string) (domain.Cart, error)
	// UpsertCart writes the full cart document, creating it when absent.
	UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	// ReplaceItems swaps the cart's line items and totals. When expectedUpdate
	// is non-nil the write is guarded by a last-update-time precondition and
	// fails with IsConflict on interleaved writes.
	ReplaceItems(ctx context.Context, sessionID string, items []domain.CartLineItem, totals domain.CartTotals, expectedUpdate *time.Time) (domain.Cart, error)
}

// CatalogRepository provides read access to purchasable catalog entries.
type CatalogRepository interface {
	// GetProduct retrieves a product by identifier. Returns a RepositoryError
	// with IsNotFound when absent.
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	// GetNewArrival retrieves a new-arrival entry by identifier. Returns a
	// RepositoryError with IsNotFound when absent.
	GetNewArrival(ctx context.Context, arrivalID string) (domain.NewArrival, error)
}

// ItemMetricsRepository maintains per-item engagement counters with
// transactional increments.
type ItemMetricsRepository interface {
	Increment(ctx context.Context, itemID string, itemType domain.ItemType, delta ItemMetricsDelta) (domain.ItemMetrics, error)
	Get(ctx context.Context, itemID string, itemType domain.ItemType) (domain.ItemMetrics, error)
}

// ItemMetricsDelta carries counter adjustments applied in a single increment.
type ItemMetricsDelta struct {
	Adds     int64
	Quantity int64
	Now      time.Time
}
