package domain

import (
	"time"
)

// ItemType tags the catalog collection a cart line item was resolved from.
type ItemType string

const (
	// ItemTypeProduct references the main product catalog.
	ItemTypeProduct ItemType = "product"
	// ItemTypeNewArrival references the new-arrivals catalog.
	ItemTypeNewArrival ItemType = "newArrival"
	// ItemTypeBanner is reserved for future banner-sourced items; the catalog
	// lookup does not resolve it today.
	ItemTypeBanner ItemType = "banner"
	// ItemTypeFeatured is reserved for future featured-collection items.
	ItemTypeFeatured ItemType = "featured"
)

// Valid reports whether the tag is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeProduct, ItemTypeNewArrival, ItemTypeBanner, ItemTypeFeatured:
		return true
	}
	return false
}

// Resolvable reports whether the catalog lookup can resolve this tag.
func (t ItemType) Resolvable() bool {
	return t == ItemTypeProduct || t == ItemTypeNewArrival
}

// ImageRef holds a display image snapshot copied onto cart lines at add time.
type ImageRef struct {
	URL string
	Alt string
}

// CartLineItem is one distinct (ItemID, ItemType, Size, Color) entry within a
// cart. Display and pricing fields are snapshots taken from the catalog when
// the line was created; later catalog changes do not propagate.
type CartLineItem struct {
	ID            string
	ItemID        string
	ItemType      ItemType
	Title         string
	Brand         string
	Description   string
	Category      string
	Price         int64
	OriginalPrice int64
	Quantity      int
	Size          string
	Color         string
	Image         ImageRef
	AddedAt       time.Time
}

// IdentityKey is the four-tuple deciding merge-vs-new-line on add. All four
// components must match exactly, empty strings included.
type IdentityKey struct {
	ItemID   string
	ItemType ItemType
	Size     string
	Color    string
}

// Identity returns the merge key for the line.
func (i CartLineItem) Identity() IdentityKey {
	return IdentityKey{
		ItemID:   i.ItemID,
		ItemType: i.ItemType,
		Size:     i.Size,
		Color:    i.Color,
	}
}

// CartTotals carries the aggregate figures derived from the item list. They
// are recomputed from scratch after every mutation, never adjusted in place.
type CartTotals struct {
	TotalItems    int
	Subtotal      int64
	TotalDiscount int64
	TotalAmount   int64
}

// Cart aggregates the shopping state for one session. The session id doubles
// as the document key; at most one active cart exists per session.
type Cart struct {
	ID        string
	SessionID string
	Items     []CartLineItem
	Totals    CartTotals
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecalculateTotals derives the aggregate figures from the full item list.
// Per-line discount floors at zero so a catalog original price below the sale
// price can never produce a negative discount.
func RecalculateTotals(items []CartLineItem) CartTotals {
	var totals CartTotals
	for _, item := range items {
		totals.TotalItems += item.Quantity
		totals.Subtotal += item.Price * int64(item.Quantity)
		if discount := item.OriginalPrice - item.Price; discount > 0 {
			totals.TotalDiscount += discount * int64(item.Quantity)
		}
	}
	totals.TotalAmount = totals.Subtotal
	return totals
}

// CartSummary is the lightweight projection used by badge-style UI. ItemCount
// counts distinct lines; TotalItems sums quantities.
type CartSummary struct {
	TotalItems    int
	Subtotal      int64
	TotalDiscount int64
	TotalAmount   int64
	ItemCount     int
}

// Summary projects the cart's totals without mutating it.
func (c Cart) Summary() CartSummary {
	return CartSummary{
		TotalItems:    c.Totals.TotalItems,
		Subtotal:      c.Totals.Subtotal,
		TotalDiscount: c.Totals.TotalDiscount,
		TotalAmount:   c.Totals.TotalAmount,
		ItemCount:     len(c.Items),
	}
}

// Product is the main catalog document read by the catalog lookup. Prices are
// minor currency units.
type Product struct {
	ID            string
	Name          string
	Description   string
	Category      string
	Subcategory   string
	Brand         string
	Price         int64
	OriginalPrice int64
	Size          string
	Color         string
	Images        []ImageRef
	Stock         int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SizeStock tracks per-size availability for new arrivals.
type SizeStock struct {
	Size        string
	Stock       int
	IsAvailable bool
}

// NewArrival is the new-arrivals catalog document. Stock is tracked per size
// rather than as a single figure.
type NewArrival struct {
	ID             string
	Title          string
	Description    string
	Brand          string
	Category       string
	Color          string
	CurrentPrice   int64
	OriginalPrice  int64
	FeaturedImage  ImageRef
	Images         []ImageRef
	AvailableSizes []SizeStock
	IsActive       bool
	ArrivalDate    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ItemMetrics accumulates add-to-cart analytics for one catalog item.
type ItemMetrics struct {
	ItemID        string
	ItemType      ItemType
	AddCount      int64
	QuantityAdded int64
	UpdatedAt     time.Time
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
