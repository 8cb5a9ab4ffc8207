package services

import (
	"context"
	"time"

	domain "github.com/stylenest/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Cart               = domain.Cart
	CartLineItem       = domain.CartLineItem
	CartTotals         = domain.CartTotals
	CartSummary        = domain.CartSummary
	IdentityKey        = domain.IdentityKey
	ItemType           = domain.ItemType
	ImageRef           = domain.ImageRef
	Product            = domain.Product
	NewArrival         = domain.NewArrival
	ItemMetrics        = domain.ItemMetrics
	SystemHealthReport = domain.SystemHealthReport
)

// CartService manages session-scoped cart state. Every mutation recomputes
// totals from the full item list before persisting.
type CartService interface {
	// GetOrCreateCart loads the session's cart, creating an empty one when absent.
	GetOrCreateCart(ctx context.Context, sessionID string) (Cart, error)
	// GetCart loads the session's cart, returning an unpersisted empty cart
	// when none exists.
	GetCart(ctx context.Context, sessionID string) (Cart, error)
	// AddItem resolves the catalog entry and merges it into the cart. Lines
	// sharing the same (item, type, size, color) identity accumulate quantity.
	AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error)
	// UpdateItemQuantity sets the quantity of an existing line, clamping to a
	// minimum of one.
	UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemQuantityCommand) (Cart, error)
	// RemoveItem deletes a line from the cart.
	RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error)
	// ClearCart removes every line item while keeping the cart document.
	ClearCart(ctx context.Context, sessionID string) (Cart, error)
	// GetSummary returns the badge projection without the item payload.
	GetSummary(ctx context.Context, sessionID string) (CartSummary, error)
}

// AddCartItemCommand carries the input for adding a catalog entry to a cart.
type AddCartItemCommand struct {
	SessionID string
	ItemID    string
	ItemType  ItemType
	Quantity  int
	Size      string
	Color     string
}

// UpdateCartItemQuantityCommand sets an absolute quantity on an existing line.
type UpdateCartItemQuantityCommand struct {
	SessionID string
	LineID    string
	Quantity  int
}

// RemoveCartItemCommand identifies the line to delete.
type RemoveCartItemCommand struct {
	SessionID string
	LineID    string
}

// CatalogService resolves catalog entries into cart line snapshots.
type CatalogService interface {
	// ResolveLineItem validates availability and produces the line item
	// snapshot for the requested catalog entry.
	ResolveLineItem(ctx context.Context, query ResolveLineItemQuery) (CartLineItem, error)
}

// ResolveLineItemQuery identifies the catalog entry and purchase options.
type ResolveLineItemQuery struct {
	ItemID   string
	ItemType ItemType
	Quantity int
	Size     string
	Color    string
}

// MetricsService records engagement counters for catalog items.
type MetricsService interface {
	RecordItemAdded(ctx context.Context, itemID string, itemType ItemType, quantity int) (ItemMetrics, error)
}

// CartEventPublisher emits cart activity events for analytics consumers.
type CartEventPublisher interface {
	PublishCartEvent(ctx context.Context, message CartEventMessage) (string, error)
}

// Cart event names published after successful mutations.
const (
	CartEventItemAdded      = "cart.item_added"
	CartEventItemRemoved    = "cart.item_removed"
	CartEventQuantityUpdate = "cart.quantity_updated"
	CartEventCleared        = "cart.cleared"
)

// CartEventMessage is the payload published for each cart mutation.
type CartEventMessage struct {
	Event       string    `json:"event"`
	SessionID   string    `json:"sessionId"`
	CartID      string    `json:"cartId,omitempty"`
	LineID      string    `json:"lineId,omitempty"`
	ItemID      string    `json:"itemId,omitempty"`
	ItemType    string    `json:"itemType,omitempty"`
	Quantity    int       `json:"quantity,omitempty"`
	TotalItems  int       `json:"totalItems"`
	TotalAmount int64     `json:"totalAmount"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// SystemService exposes operational utilities such as health reporting.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}
