package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stylenest/api/internal/repositories"
)

// ErrMetricsInvalidInput indicates the caller supplied invalid metrics input.
var ErrMetricsInvalidInput = errors.New("metrics service: invalid input")

// ErrMetricsUnavailable indicates the metrics backend cannot be reached.
var ErrMetricsUnavailable = errors.New("metrics service: unavailable")

// MetricsServiceDeps bundles constructor inputs for the metrics service.
type MetricsServiceDeps struct {
	Repository repositories.ItemMetricsRepository
	Clock      func() time.Time
}

type metricsService struct {
	repo  repositories.ItemMetricsRepository
	clock func() time.Time
}

// NewMetricsService constructs the item metrics service.
func NewMetricsService(deps MetricsServiceDeps) (MetricsService, error) {
	if deps.Repository == nil {
		return nil, errors.New("metrics service: repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &metricsService{
		repo:  deps.Repository,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

// RecordItemAdded bumps the add counters for the catalog item.
func (s *metricsService) RecordItemAdded(ctx context.Context, itemID string, itemType ItemType, quantity int) (ItemMetrics, error) {
	if s == nil || s.repo == nil {
		return ItemMetrics{}, ErrMetricsUnavailable
	}
	id := strings.TrimSpace(itemID)
	if id == "" || !itemType.Valid() {
		return ItemMetrics{}, ErrMetricsInvalidInput
	}
	if quantity < 1 {
		quantity = 1
	}

	metrics, err := s.repo.Increment(ctx, id, itemType, repositories.ItemMetricsDelta{
		Adds:     1,
		Quantity: int64(quantity),
		Now:      s.clock(),
	})
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
			return ItemMetrics{}, ErrMetricsUnavailable
		}
		return ItemMetrics{}, ErrMetricsUnavailable
	}
	return metrics, nil
}

var _ MetricsService = (*metricsService)(nil)
