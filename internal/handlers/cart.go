package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stylenest/api/internal/platform/httpx"
	"github.com/stylenest/api/internal/platform/requestctx"
	"github.com/stylenest/api/internal/services"
)

// CartHandlers exposes the session-scoped cart endpoints.
type CartHandlers struct {
	carts   services.CartService
	maxBody int64
	limiter rateLimiter
}

const defaultCartBodySize = 16 * 1024

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

// CartOption customises cart handler construction.
type CartOption func(*CartHandlers)

// WithCartMaxBodyBytes caps the accepted request body size.
func WithCartMaxBodyBytes(limit int64) CartOption {
	return func(h *CartHandlers) {
		if limit > 0 {
			h.maxBody = limit
		}
	}
}

// WithCartRateLimit caps cart mutations per session within the window.
func WithCartRateLimit(limit int, window time.Duration) CartOption {
	return func(h *CartHandlers) {
		h.limiter = newSimpleRateLimiter(limit, window, nil)
	}
}

// NewCartHandlers constructs handlers backed by the cart service.
func NewCartHandlers(carts services.CartService, opts ...CartOption) *CartHandlers {
	h := &CartHandlers{
		carts:   carts,
		maxBody: defaultCartBodySize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Get("/summary", h.getSummary)

	mutations := r
	if h.limiter != nil {
		mutations = r.With(sessionRateLimit(h.limiter))
	}
	mutations.Delete("/", h.clearCart)
	mutations.Post("/items", h.addItem)
	mutations.Patch("/items/{lineID}", h.updateItemQuantity)
	mutations.Delete("/items/{lineID}", h.removeItem)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(ctx, sessionID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	setCartResponseHeaders(w, cart)
	httpx.WriteJSON(ctx, w, http.StatusOK, "", buildCartResponse(cart))
}

func (h *CartHandlers) getSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w)
	if !ok {
		return
	}

	summary, err := h.carts.GetSummary(ctx, sessionID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	httpx.WriteJSON(ctx, w, http.StatusOK, "", summaryResponse{Summary: buildSummaryPayload(summary)})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, h.maxBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	req, err := parseAddItemRequest(body)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cart, err := h.carts.AddItem(ctx, services.AddCartItemCommand{
		SessionID: sessionID,
		ItemID:    req.ItemID,
		ItemType:  services.ItemType(req.ItemType),
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	setCartResponseHeaders(w, cart)
	httpx.WriteJSON(ctx, w, http.StatusOK, "Item added to cart", buildCartResponse(cart))
}

func (h *CartHandlers) updateItemQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w)
	if !ok {
		return
	}

	lineID := strings.TrimSpace(chi.URLParam(r, "lineID"))
	if lineID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "line item id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, h.maxBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	req, err := parseUpdateQuantityRequest(body)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cart, err := h.carts.UpdateItemQuantity(ctx, services.UpdateCartItemQuantityCommand{
		SessionID: sessionID,
		LineID:    lineID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	setCartResponseHeaders(w, cart)
	httpx.WriteJSON(ctx, w, http.StatusOK, "Quantity updated", buildCartResponse(cart))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w)
	if !ok {
		return
	}

	lineID := strings.TrimSpace(chi.URLParam(r, "lineID"))
	if lineID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "line item id is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.RemoveItem(ctx, services.RemoveCartItemCommand{
		SessionID: sessionID,
		LineID:    lineID,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	setCartResponseHeaders(w, cart)
	httpx.WriteJSON(ctx, w, http.StatusOK, "Item removed from cart", buildCartResponse(cart))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w)
	if !ok {
		return
	}

	cart, err := h.carts.ClearCart(ctx, sessionID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	setCartResponseHeaders(w, cart)
	httpx.WriteJSON(ctx, w, http.StatusOK, "Cart cleared", buildCartResponse(cart))
}

func (h *CartHandlers) requireSession(ctx context.Context, w http.ResponseWriter) (string, bool) {
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	info, ok := requestctx.Session(ctx)
	if !ok || strings.TrimSpace(info.ID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_required", "a shopping session is required", http.StatusBadRequest))
		return "", false
	}
	return strings.TrimSpace(info.ID), true
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCartInvalidInput), errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_item_not_found", "item not found in cart", http.StatusNotFound))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_found", "cart not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("item_not_found", "catalog item not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogOutOfStock):
		httpx.WriteError(ctx, w, httpx.NewError("out_of_stock", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartConflict):
		httpx.WriteError(ctx, w, httpx.NewError("cart_conflict", "cart has been modified; refresh and retry", http.StatusConflict))
	case errors.Is(err, services.ErrCartUnavailable), errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "cart operation failed", http.StatusInternalServerError))
	}
}

func setCartResponseHeaders(w http.ResponseWriter, cart services.Cart) {
	w.Header().Set("Cache-Control", "no-store, no-cache, max-age=0, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	if !cart.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", cart.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	if etag := buildCartETag(cart); etag != "" {
		w.Header().Set("ETag", etag)
	}
}

func buildCartETag(cart services.Cart) string {
	if strings.TrimSpace(cart.SessionID) == "" || cart.UpdatedAt.IsZero() {
		return ""
	}
	input := fmt.Sprintf("%s:%d", strings.TrimSpace(cart.SessionID), cart.UpdatedAt.UTC().UnixNano())
	sum := sha256.Sum256([]byte(input))
	token := hex.EncodeToString(sum[:8])
	return fmt.Sprintf(`W/"%s"`, token)
}

type cartResponse struct {
	Cart    cartPayload    `json:"cart"`
	Summary summaryPayload `json:"summary"`
}

func buildCartResponse(cart services.Cart) cartResponse {
	return cartResponse{
		Cart:    buildCartPayload(cart),
		Summary: buildSummaryPayload(cart.Summary()),
	}
}

type summaryResponse struct {
	Summary summaryPayload `json:"summary"`
}

type cartPayload struct {
	ID        string            `json:"id"`
	SessionID string            `json:"sessionId"`
	Items     []cartItemPayload `json:"items"`
	Totals    cartTotalsPayload `json:"totals"`
	IsActive  bool              `json:"isActive"`
	CreatedAt string            `json:"createdAt,omitempty"`
	UpdatedAt string            `json:"updatedAt,omitempty"`
}

type cartItemPayload struct {
	ID            string `json:"id"`
	ItemID        string `json:"itemId"`
	ItemType      string `json:"itemType"`
	Title         string `json:"title"`
	Brand         string `json:"brand,omitempty"`
	Description   string `json:"description,omitempty"`
	Category      string `json:"category,omitempty"`
	Price         int64  `json:"price"`
	OriginalPrice int64  `json:"originalPrice,omitempty"`
	Quantity      int    `json:"quantity"`
	Size          string `json:"size,omitempty"`
	Color         string `json:"color,omitempty"`
	ImageURL      string `json:"imageUrl,omitempty"`
	ImageAlt      string `json:"imageAlt,omitempty"`
	AddedAt       string `json:"addedAt,omitempty"`
}

type cartTotalsPayload struct {
	TotalItems    int   `json:"totalItems"`
	Subtotal      int64 `json:"subtotal"`
	TotalDiscount int64 `json:"totalDiscount"`
	TotalAmount   int64 `json:"totalAmount"`
}

type summaryPayload struct {
	TotalItems    int   `json:"totalItems"`
	Subtotal      int64 `json:"subtotal"`
	TotalDiscount int64 `json:"totalDiscount"`
	TotalAmount   int64 `json:"totalAmount"`
	ItemCount     int   `json:"itemCount"`
}

func buildCartPayload(cart services.Cart) cartPayload {
	payload := cartPayload{
		ID:        strings.TrimSpace(cart.ID),
		SessionID: strings.TrimSpace(cart.SessionID),
		Items:     buildCartItems(cart.Items),
		Totals: cartTotalsPayload{
			TotalItems:    cart.Totals.TotalItems,
			Subtotal:      cart.Totals.Subtotal,
			TotalDiscount: cart.Totals.TotalDiscount,
			TotalAmount:   cart.Totals.TotalAmount,
		},
		IsActive: cart.IsActive,
	}
	if !cart.CreatedAt.IsZero() {
		payload.CreatedAt = formatTime(cart.CreatedAt)
	}
	if !cart.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(cart.UpdatedAt)
	}
	return payload
}

func buildCartItems(items []services.CartLineItem) []cartItemPayload {
	if len(items) == 0 {
		return []cartItemPayload{}
	}

	payload := make([]cartItemPayload, 0, len(items))
	for _, item := range items {
		entry := cartItemPayload{
			ID:            strings.TrimSpace(item.ID),
			ItemID:        strings.TrimSpace(item.ItemID),
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
		}
		if !item.AddedAt.IsZero() {
			entry.AddedAt = formatTime(item.AddedAt)
		}
		payload = append(payload, entry)
	}
	return payload
}

func buildSummaryPayload(summary services.CartSummary) summaryPayload {
	return summaryPayload{
		TotalItems:    summary.TotalItems,
		Subtotal:      summary.Subtotal,
		TotalDiscount: summary.TotalDiscount,
		TotalAmount:   summary.TotalAmount,
		ItemCount:     summary.ItemCount,
	}
}

type addItemRequest struct {
	ItemID   string
	ItemType string
	Quantity int
	Size     string
	Color    string
}

func parseAddItemRequest(body []byte) (addItemRequest, error) {
	var raw struct {
		ItemID   *string `json:"itemId"`
		ItemType *string `json:"itemType"`
		Quantity *int    `json:"quantity"`
		Size     string  `json:"size"`
		Color    string  `json:"color"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return addItemRequest{}, errors.New("invalid JSON payload")
	}

	req := addItemRequest{Size: strings.TrimSpace(raw.Size), Color: strings.TrimSpace(raw.Color)}
	if raw.ItemID == nil || strings.TrimSpace(*raw.ItemID) == "" {
		return addItemRequest{}, errors.New("itemId is required")
	}
	req.ItemID = strings.TrimSpace(*raw.ItemID)

	if raw.ItemType == nil || strings.TrimSpace(*raw.ItemType) == "" {
		return addItemRequest{}, errors.New("itemType is required")
	}
	req.ItemType = strings.TrimSpace(*raw.ItemType)

	req.Quantity = 1
	if raw.Quantity != nil {
		if *raw.Quantity < 1 {
			return addItemRequest{}, errors.New("quantity must be at least 1")
		}
		req.Quantity = *raw.Quantity
	}
	return req, nil
}

type updateQuantityRequest struct {
	Quantity int
}

func parseUpdateQuantityRequest(body []byte) (updateQuantityRequest, error) {
	var raw struct {
		Quantity *int `json:"quantity"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return updateQuantityRequest{}, errors.New("invalid JSON payload")
	}
	if raw.Quantity == nil {
		return updateQuantityRequest{}, errors.New("quantity is required")
	}
	if *raw.Quantity < 1 {
		return updateQuantityRequest{}, errors.New("quantity must be at least 1")
	}
	return updateQuantityRequest{Quantity: *raw.Quantity}, nil
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultCartBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
