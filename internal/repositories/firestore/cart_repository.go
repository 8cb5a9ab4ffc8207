package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/stylenest/api/internal/domain"
	pfirestore "github.com/stylenest/api/internal/platform/firestore"
	"github.com/stylenest/api/internal/repositories"
)

const (
	cartCollection = "carts"
)

// CartRepository persists carts within Firestore. Line items are embedded in
// the cart document so a session's cart is always read and written as a unit.
type CartRepository struct {
	base     *pfirestore.BaseRepository[cartDocument]
	provider *pfirestore.Provider
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil, nil)
	return &CartRepository{
		base:     base,
		provider: provider,
	}, nil
}

// GetCart loads the cart for the given session ID.
func (r *CartRepository) GetCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return domain.Cart{}, errors.New("cart repository: session id is required")
	}

	doc, err := r.base.Get(ctx, sid)
	if err != nil {
		return domain.Cart{}, err
	}

	return decodeCart(doc), nil
}

// UpsertCart writes the full cart document using the session ID as document identifier.
func (r *CartRepository) UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}

	sid := strings.TrimSpace(cart.SessionID)
	if sid == "" {
		return domain.Cart{}, errors.New("cart repository: session id is required")
	}

	now := time.Now().UTC()
	if !cart.UpdatedAt.IsZero() {
		now = cart.UpdatedAt.UTC()
	}
	createdAt := cart.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	doc := cartDocument{
		SessionID: sid,
		Items:     encodeLineItems(cart.Items),
		Totals:    encodeTotals(cart.Totals),
		IsActive:  cart.IsActive,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}

	result, err := r.base.Set(ctx, sid, doc)
	if err != nil {
		return domain.Cart{}, err
	}

	saved := cloneCart(cart)
	saved.ID = sid
	saved.SessionID = sid
	saved.CreatedAt = createdAt
	saved.UpdatedAt = result.UpdateTime
	return saved, nil
}

// ReplaceItems swaps the cart's line items and recorded totals. A non-nil
// expectedUpdate turns the write into a guarded update that fails with a
// conflict when another writer got there first.
func (r *CartRepository) ReplaceItems(ctx context.Context, sessionID string, items []domain.CartLineItem, totals domain.CartTotals, expectedUpdate *time.Time) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return domain.Cart{}, errors.New("cart repository: session id is required")
	}

	now := time.Now().UTC()
	updates := []firestore.Update{
		{Path: "items", Value: encodeLineItems(items)},
		{Path: "totals", Value: encodeTotals(totals)},
		{Path: "updatedAt", Value: now},
	}

	var preconditions []firestore.Precondition
	if expectedUpdate != nil && !expectedUpdate.IsZero() {
		preconditions = append(preconditions, firestore.LastUpdateTime(expectedUpdate.UTC()))
	}

	result, err := r.base.Update(ctx, sid, updates, preconditions...)
	if err != nil {
		return domain.Cart{}, err
	}

	saved := domain.Cart{
		ID:        sid,
		SessionID: sid,
		Items:     cloneLineItems(items),
		Totals:    totals,
		IsActive:  true,
		UpdatedAt: result.UpdateTime,
	}
	return saved, nil
}

func decodeCart(doc pfirestore.Document[cartDocument]) domain.Cart {
	cart := domain.Cart{
		ID:        doc.ID,
		SessionID: doc.Data.SessionID,
		Items:     decodeLineItems(doc.Data.Items),
		Totals: domain.CartTotals{
			TotalItems:    doc.Data.Totals.TotalItems,
			Subtotal:      doc.Data.Totals.Subtotal,
			TotalDiscount: doc.Data.Totals.TotalDiscount,
			TotalAmount:   doc.Data.Totals.TotalAmount,
		},
		IsActive:  doc.Data.IsActive,
		CreatedAt: doc.Data.CreatedAt,
		UpdatedAt: doc.Data.UpdatedAt,
	}
	if cart.SessionID == "" {
		cart.SessionID = doc.ID
	}
	if !doc.UpdateTime.IsZero() {
		cart.UpdatedAt = doc.UpdateTime
	}
	return cart
}

func encodeLineItems(items []domain.CartLineItem) []cartLineItemDocument {
	out := make([]cartLineItemDocument, 0, len(items))
	for _, item := range items {
		out = append(out, cartLineItemDocument{
			ID:            item.ID,
			ItemID:        item.ItemID,
			ItemType:      string(item.ItemType),
			Title:         item.Title,
			Brand:         item.Brand,
			Description:   item.Description,
			Category:      item.Category,
			Price:         item.Price,
			OriginalPrice: item.OriginalPrice,
			Quantity:      item.Quantity,
			Size:          item.Size,
			Color:         item.Color,
			ImageURL:      item.Image.URL,
			ImageAlt:      item.Image.Alt,
			AddedAt:       item.AddedAt.UTC(),
		})
	}
	return out
}

func decodeLineItems(docs []cartLineItemDocument) []domain.CartLineItem {
	out := make([]domain.CartLineItem, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.CartLineItem{
			ID:            doc.ID,
			ItemID:        doc.ItemID,
			ItemType:      domain.ItemType(doc.ItemType),
			Title:         doc.Title,
			Brand:         doc.Brand,
			Description:   doc.Description,
			Category:      doc.Category,
			Price:         doc.Price,
			OriginalPrice: doc.OriginalPrice,
			Quantity:      doc.Quantity,
			Size:          doc.Size,
			Color:         doc.Color,
			Image:         domain.ImageRef{URL: doc.ImageURL, Alt: doc.ImageAlt},
			AddedAt:       doc.AddedAt,
		})
	}
	return out
}

func encodeTotals(totals domain.CartTotals) cartTotalsDocument {
	return cartTotalsDocument{
		TotalItems:    totals.TotalItems,
		Subtotal:      totals.Subtotal,
		TotalDiscount: totals.TotalDiscount,
		TotalAmount:   totals.TotalAmount,
	}
}

func cloneCart(cart domain.Cart) domain.Cart {
	dup := cart
	dup.Items = cloneLineItems(cart.Items)
	return dup
}

func cloneLineItems(items []domain.CartLineItem) []domain.CartLineItem {
	if items == nil {
		return nil
	}
	out := make([]domain.CartLineItem, len(items))
	copy(out, items)
	return out
}

type cartDocument struct {
	SessionID string                 `firestore:"sessionId"`
	Items     []cartLineItemDocument `firestore:"items"`
	Totals    cartTotalsDocument     `firestore:"totals"`
	IsActive  bool                   `firestore:"isActive"`
	CreatedAt time.Time              `firestore:"createdAt"`
	UpdatedAt time.Time              `firestore:"updatedAt"`
}

type cartLineItemDocument struct {
	ID            string    `firestore:"id"`
	ItemID        string    `firestore:"itemId"`
	ItemType      string    `firestore:"itemType"`
	Title         string    `firestore:"title"`
	Brand         string    `firestore:"brand,omitempty"`
	Description   string    `firestore:"description,omitempty"`
	Category      string    `firestore:"category,omitempty"`
	Price         int64     `firestore:"price"`
	OriginalPrice int64     `firestore:"originalPrice,omitempty"`
	Quantity      int       `firestore:"quantity"`
	Size          string    `firestore:"size"`
	Color         string    `firestore:"color,omitempty"`
	ImageURL      string    `firestore:"imageUrl,omitempty"`
	ImageAlt      string    `firestore:"imageAlt,omitempty"`
	AddedAt       time.Time `firestore:"addedAt"`
}

type cartTotalsDocument struct {
	TotalItems    int   `firestore:"totalItems"`
	Subtotal      int64 `firestore:"subtotal"`
	TotalDiscount int64 `firestore:"totalDiscount"`
	TotalAmount   int64 `firestore:"totalAmount"`
}

var _ repositories.CartRepository = (*CartRepository)(nil)
