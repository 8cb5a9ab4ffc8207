package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/stylenest/api/internal/domain"
	"github.com/stylenest/api/internal/platform/locking"
	"github.com/stylenest/api/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartCatalogRequired    = errors.New("cart service: catalog is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to missing dependencies or backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// ErrCartNotFound indicates the requested cart does not exist.
var ErrCartNotFound = errors.New("cart service: cart not found")

// ErrCartItemNotFound indicates the referenced line item is not in the cart.
var ErrCartItemNotFound = errors.New("cart service: item not found")

// ErrCartConflict indicates the cart could not be updated due to concurrent modifications.
var ErrCartConflict = errors.New("cart service: conflict")

// SessionLocker serialises cart mutations that share a session.
type SessionLocker interface {
	Lock(key string)
	Unlock(key string)
}

// CartServiceDeps wires the repository and catalog dependencies for cart operations.
type CartServiceDeps struct {
	Repository  repositories.CartRepository
	Catalog     CatalogService
	Metrics     MetricsService
	Events      CartEventPublisher
	Locker      SessionLocker
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type cartService struct {
	repo    repositories.CartRepository
	catalog CatalogService
	metrics MetricsService
	events  CartEventPublisher
	locker  SessionLocker
	newID   func() string
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Catalog == nil {
		return nil, errCartCatalogRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	locker := deps.Locker
	if locker == nil {
		locker = locking.NewKeyedMutex()
	}

	service := &cartService{
		repo:    deps.Repository,
		catalog: deps.Catalog,
		metrics: deps.Metrics,
		events:  deps.Events,
		locker:  locker,
		newID:   idGen,
		now:     func() time.Time { return deps.Clock().UTC() },
		logger:  logger,
	}
	return service, nil
}

// GetOrCreateCart loads the active cart for the session, creating a new cart when absent.
func (s *cartService) GetOrCreateCart(ctx context.Context, sessionID string) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}

	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return Cart{}, ErrCartInvalidInput
	}

	s.locker.Lock(sid)
	defer s.locker.Unlock(sid)

	cart, err := s.repo.GetCart(ctx, sid)
	if err != nil {
		if !isRepoNotFound(err) {
			return Cart{}, s.translateRepoError(err)
		}
		saved, err := s.repo.UpsertCart(ctx, s.newCart(sid))
		if err != nil {
			return Cart{}, s.translateRepoError(err)
		}
		cart = saved
	}

	return s.normaliseCart(cart, sid), nil
}

// GetCart loads the session's cart. A missing cart yields an empty placeholder
// without touching storage.
func (s *cartService) GetCart(ctx context.Context, sessionID string) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}

	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.repo.GetCart(ctx, sid)
	if err != nil {
		if isRepoNotFound(err) {
			return s.newCart(sid), nil
		}
		return Cart{}, s.translateRepoError(err)
	}

	return s.normaliseCart(cart, sid), nil
}

// AddItem resolves the catalog entry and merges it into the session's cart.
func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error) {
	if s == nil || s.repo == nil || s.catalog == nil {
		return Cart{}, ErrCartUnavailable
	}

	sid := strings.TrimSpace(cmd.SessionID)
	if sid == "" {
		return Cart{}, ErrCartInvalidInput
	}
	itemID := strings.TrimSpace(cmd.ItemID)
	if itemID == "" {
		return Cart{}, fmt.Errorf("%w: item id is required", ErrCartInvalidInput)
	}
	if !cmd.ItemType.Valid() {
		return Cart{}, fmt.Errorf("%w: unknown item type %q", ErrCartInvalidInput, string(cmd.ItemType))
	}

	quantity := cmd.Quantity
	if quantity < 1 {
		quantity = 1
	}

	resolved, err := s.catalog.ResolveLineItem(ctx, ResolveLineItemQuery{
		ItemID:   itemID,
		ItemType: cmd.ItemType,
		Quantity: quantity,
		Size:     cmd.Size,
		Color:    cmd.Color,
	})
	if err != nil {
		return Cart{}, err
	}

	s.locker.Lock(sid)
	defer s.locker.Unlock(sid)

	cart, err := s.repo.GetCart(ctx, sid)
	exists := true
	if err != nil {
		if isRepoNotFound(err) {
			cart = s.newCart(sid)
			exists = false
		} else {
			return Cart{}, s.translateRepoError(err)
		}
	}
	cart = s.normaliseCart(cart, sid)

	items := cloneLineItems(cart.Items)
	now := s.now()
	identity := resolved.Identity()

	merged := false
	var line CartLineItem
	for i := range items {
		if items[i].Identity() == identity {
			// Merge bumps quantity only; the original snapshot keeps its price
			// and display fields.
			items[i].Quantity += quantity
			line = items[i]
			merged = true
			break
		}
	}
	if !merged {
		line = resolved
		line.ID = strings.TrimSpace(s.newID())
		if line.ID == "" {
			line.ID = fmt.Sprintf("line-%d", now.UnixNano())
		}
		line.Quantity = quantity
		line.AddedAt = now
		items = append(items, line)
	}

	saved, err := s.persistItems(ctx, cart, items, exists)
	if err != nil {
		return Cart{}, err
	}

	s.recordItemAdded(ctx, resolved, quantity)
	s.publishEvent(ctx, CartEventItemAdded, saved, line.ID, resolved, quantity)

	return saved, nil
}

// UpdateItemQuantity sets the absolute quantity on an existing line, clamping
// to a minimum of one.
func (s *cartService) UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemQuantityCommand) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}

	sid := strings.TrimSpace(cmd.SessionID)
	if sid == "" {
		return Cart{}, ErrCartInvalidInput
	}
	lineID := strings.TrimSpace(cmd.LineID)
	if lineID == "" {
		return Cart{}, ErrCartInvalidInput
	}

	quantity := cmd.Quantity
	if quantity < 1 {
		quantity = 1
	}

	s.locker.Lock(sid)
	defer s.locker.Unlock(sid)

	cart, err := s.repo.GetCart(ctx, sid)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, s.translateRepoError(err)
	}
	cart = s.normaliseCart(cart, sid)

	items := cloneLineItems(cart.Items)
	idx := indexOfLineItem(items, lineID)
	if idx < 0 {
		return Cart{}, ErrCartItemNotFound
	}
	items[idx].Quantity = quantity
	line := items[idx]

	saved, err := s.persistItems(ctx, cart, items, true)
	if err != nil {
		return Cart{}, err
	}

	s.publishEvent(ctx, CartEventQuantityUpdate, saved, line.ID, line, quantity)

	return saved, nil
}

// RemoveItem deletes a line from the session's cart.
func (s *cartService) RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}

	sid := strings.TrimSpace(cmd.SessionID)
	if sid == "" {
		return Cart{}, ErrCartInvalidInput
	}
	lineID := strings.TrimSpace(cmd.LineID)
	if lineID == "" {
		return Cart{}, ErrCartInvalidInput
	}

	s.locker.Lock(sid)
	defer s.locker.Unlock(sid)

	cart, err := s.repo.GetCart(ctx, sid)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, s.translateRepoError(err)
	}
	cart = s.normaliseCart(cart, sid)

	items := cloneLineItems(cart.Items)
	idx := indexOfLineItem(items, lineID)
	if idx < 0 {
		return Cart{}, ErrCartItemNotFound
	}
	removed := items[idx]
	items = append(items[:idx], items[idx+1:]...)

	saved, err := s.persistItems(ctx, cart, items, true)
	if err != nil {
		return Cart{}, err
	}

	s.publishEvent(ctx, CartEventItemRemoved, saved, removed.ID, removed, removed.Quantity)

	return saved, nil
}

// ClearCart removes every line item. Clearing a cart that was never created is
// a no-op returning an empty cart.
func (s *cartService) ClearCart(ctx context.Context, sessionID string) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}

	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return Cart{}, ErrCartInvalidInput
	}

	s.locker.Lock(sid)
	defer s.locker.Unlock(sid)

	cart, err := s.repo.GetCart(ctx, sid)
	if err != nil {
		if isRepoNotFound(err) {
			return s.newCart(sid), nil
		}
		return Cart{}, s.translateRepoError(err)
	}
	cart = s.normaliseCart(cart, sid)

	saved, err := s.persistItems(ctx, cart, []CartLineItem{}, true)
	if err != nil {
		return Cart{}, err
	}

	s.publishEvent(ctx, CartEventCleared, saved, "", CartLineItem{}, 0)

	return saved, nil
}

// GetSummary projects the cart's totals for badge-style consumers.
func (s *cartService) GetSummary(ctx context.Context, sessionID string) (CartSummary, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return CartSummary{}, err
	}
	return cart.Summary(), nil
}

// persistItems writes the new item list with recomputed totals. Existing carts
// are guarded by the last known update time so interleaved writers surface as
// conflicts rather than lost updates.
func (s *cartService) persistItems(ctx context.Context, cart Cart, items []CartLineItem, exists bool) (Cart, error) {
	totals := domain.RecalculateTotals(items)

	if !exists {
		cart.Items = items
		cart.Totals = totals
		cart.UpdatedAt = s.now()
		saved, err := s.repo.UpsertCart(ctx, cart)
		if err != nil {
			return Cart{}, s.translateRepoError(err)
		}
		return s.normaliseCart(saved, cart.SessionID), nil
	}

	var expected *time.Time
	if !cart.UpdatedAt.IsZero() {
		ts := cart.UpdatedAt.UTC()
		expected = &ts
	}

	saved, err := s.repo.ReplaceItems(ctx, cart.SessionID, items, totals, expected)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	saved.CreatedAt = cart.CreatedAt
	return s.normaliseCart(saved, cart.SessionID), nil
}

func (s *cartService) recordItemAdded(ctx context.Context, line CartLineItem, quantity int) {
	if s.metrics == nil {
		return
	}
	if _, err := s.metrics.RecordItemAdded(ctx, line.ItemID, line.ItemType, quantity); err != nil {
		s.logger(ctx, "cart.metrics_failed", map[string]any{
			"itemID": line.ItemID,
			"error":  err.Error(),
		})
	}
}

func (s *cartService) publishEvent(ctx context.Context, event string, cart Cart, lineID string, line CartLineItem, quantity int) {
	if s.events == nil {
		return
	}
	message := CartEventMessage{
		Event:       event,
		SessionID:   cart.SessionID,
		CartID:      cart.ID,
		LineID:      lineID,
		ItemID:      line.ItemID,
		ItemType:    string(line.ItemType),
		Quantity:    quantity,
		TotalItems:  cart.Totals.TotalItems,
		TotalAmount: cart.Totals.TotalAmount,
		OccurredAt:  s.now(),
	}
	if _, err := s.events.PublishCartEvent(ctx, message); err != nil {
		s.logger(ctx, "cart.event_publish_failed", map[string]any{
			"event":     event,
			"sessionID": cart.SessionID,
			"error":     err.Error(),
		})
	}
}

func (s *cartService) newCart(sessionID string) domain.Cart {
	now := s.now()
	return domain.Cart{
		ID:        sessionID,
		SessionID: sessionID,
		Items:     []domain.CartLineItem{},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *cartService) normaliseCart(cart domain.Cart, sessionID string) domain.Cart {
	if cart.ID = strings.TrimSpace(cart.ID); cart.ID == "" {
		cart.ID = sessionID
	}
	cart.SessionID = strings.TrimSpace(firstNonEmpty(cart.SessionID, sessionID))
	if cart.Items == nil {
		cart.Items = []domain.CartLineItem{}
	}
	cart.IsActive = true
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = s.now()
	}
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = s.now()
	}
	return cart
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCartNotFound
		case repoErr.IsConflict():
			return ErrCartConflict
		case repoErr.IsUnavailable():
			return ErrCartUnavailable
		}
		return ErrCartUnavailable
	}
	return ErrCartUnavailable
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func cloneLineItems(items []domain.CartLineItem) []domain.CartLineItem {
	if len(items) == 0 {
		return []domain.CartLineItem{}
	}
	dup := make([]domain.CartLineItem, len(items))
	copy(dup, items)
	return dup
}

func indexOfLineItem(items []domain.CartLineItem, lineID string) int {
	target := strings.TrimSpace(lineID)
	if target == "" {
		return -1
	}
	for i, item := range items {
		if strings.EqualFold(strings.TrimSpace(item.ID), target) {
			return i
		}
	}
	return -1
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}
