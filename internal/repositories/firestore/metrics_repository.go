package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/stylenest/api/internal/domain"
	pfirestore "github.com/stylenest/api/internal/platform/firestore"
	"github.com/stylenest/api/internal/repositories"
)

const itemMetricsCollection = "itemMetrics"

type itemMetricsDocument struct {
	ItemID        string    `firestore:"itemId"`
	ItemType      string    `firestore:"itemType"`
	AddCount      int64     `firestore:"addCount"`
	QuantityAdded int64     `firestore:"quantityAdded"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

// ItemMetricsRepository implements repositories.ItemMetricsRepository backed by
// Firestore transactions so concurrent increments never lose updates.
type ItemMetricsRepository struct {
	provider *pfirestore.Provider
	metrics  *pfirestore.BaseRepository[itemMetricsDocument]
}

// NewItemMetricsRepository constructs a Firestore-backed item metrics repository.
func NewItemMetricsRepository(provider *pfirestore.Provider) (*ItemMetricsRepository, error) {
	if provider == nil {
		return nil, errors.New("item metrics repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[itemMetricsDocument](provider, itemMetricsCollection, nil, nil)
	return &ItemMetricsRepository{
		provider: provider,
		metrics:  base,
	}, nil
}

// Increment atomically applies the delta to the item's counters, creating the
// document on first use.
func (r *ItemMetricsRepository) Increment(ctx context.Context, itemID string, itemType domain.ItemType, delta repositories.ItemMetricsDelta) (domain.ItemMetrics, error) {
	if r == nil || r.provider == nil {
		return domain.ItemMetrics{}, errors.New("item metrics repository not initialised")
	}
	id := metricsDocumentID(itemID, itemType)
	if id == "" {
		return domain.ItemMetrics{}, errors.New("item metrics repository: item id and type are required")
	}

	now := delta.Now.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var saved itemMetricsDocument

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.metrics.DocumentRef(ctx, id)
		if err != nil {
			return err
		}

		snapshot, err := tx.Get(ref)
		switch status.Code(err) {
		case codes.NotFound:
			doc := itemMetricsDocument{
				ItemID:        strings.TrimSpace(itemID),
				ItemType:      string(itemType),
				AddCount:      delta.Adds,
				QuantityAdded: delta.Quantity,
				UpdatedAt:     now,
			}
			if err := tx.Create(ref, doc); err != nil {
				return err
			}
			saved = doc
			return nil
		case codes.OK:
			// proceed
		default:
			return err
		}

		var doc itemMetricsDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return fmt.Errorf("firestore itemMetrics decode %s: %w", id, err)
		}

		doc.ItemID = strings.TrimSpace(itemID)
		doc.ItemType = string(itemType)
		doc.AddCount += delta.Adds
		doc.QuantityAdded += delta.Quantity
		doc.UpdatedAt = now

		// Full set: MergeAll rejects struct data, and doc carries every field.
		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		saved = doc
		return nil
	})
	if err != nil {
		return domain.ItemMetrics{}, pfirestore.WrapError("itemMetrics.increment", err)
	}

	return decodeItemMetrics(saved), nil
}

// Get loads the item's counters.
func (r *ItemMetricsRepository) Get(ctx context.Context, itemID string, itemType domain.ItemType) (domain.ItemMetrics, error) {
	if r == nil || r.metrics == nil {
		return domain.ItemMetrics{}, errors.New("item metrics repository not initialised")
	}
	id := metricsDocumentID(itemID, itemType)
	if id == "" {
		return domain.ItemMetrics{}, errors.New("item metrics repository: item id and type are required")
	}

	doc, err := r.metrics.Get(ctx, id)
	if err != nil {
		return domain.ItemMetrics{}, err
	}
	return decodeItemMetrics(doc.Data), nil
}

func metricsDocumentID(itemID string, itemType domain.ItemType) string {
	id := strings.TrimSpace(itemID)
	kind := strings.TrimSpace(string(itemType))
	if id == "" || kind == "" {
		return ""
	}
	return kind + ":" + id
}

func decodeItemMetrics(doc itemMetricsDocument) domain.ItemMetrics {
	return domain.ItemMetrics{
		ItemID:        doc.ItemID,
		ItemType:      domain.ItemType(doc.ItemType),
		AddCount:      doc.AddCount,
		QuantityAdded: doc.QuantityAdded,
		UpdatedAt:     doc.UpdatedAt,
	}
}

var _ repositories.ItemMetricsRepository = (*ItemMetricsRepository)(nil)
