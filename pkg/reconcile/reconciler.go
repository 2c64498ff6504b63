// Package reconcile idempotently upserts canonical records into the store.
// It is a pure function of the incoming record and current store state; it
// knows nothing about vendor semantics or where a record came from.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	shared "github.com/dylannguyen2/annas-app-sub001/pkg"
	"github.com/dylannguyen2/annas-app-sub001/pkg/domain"
)

type Reconciler struct {
	store shared.RecordStore
}

func New(store shared.RecordStore) *Reconciler {
	return &Reconciler{store: store}
}

// UpsertActivity writes exactly one logical record keyed by
// (owner_id, external_activity_id): update in place if the key exists,
// insert otherwise. Returns whether a new row was created.
func (r *Reconciler) UpsertActivity(ctx context.Context, act *domain.Activity) (created bool, err error) {
	if act.OwnerID == "" || act.ExternalActivityID == "" {
		return false, fmt.Errorf("activity missing reconciliation key (owner=%q, external_id=%q)", act.OwnerID, act.ExternalActivityID)
	}

	_, err = r.store.GetActivity(ctx, act.OwnerID, act.ExternalActivityID)
	switch {
	case err == nil:
		if err := r.store.UpdateActivity(ctx, act); err != nil {
			return false, fmt.Errorf("update activity %s: %w", act.ExternalActivityID, err)
		}
		return false, nil
	case errors.Is(err, shared.ErrNotFound):
		if err := r.store.InsertActivity(ctx, act); err != nil {
			return false, fmt.Errorf("insert activity %s: %w", act.ExternalActivityID, err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("look up activity %s: %w", act.ExternalActivityID, err)
	}
}

// UpsertHealthSample replaces the full day's row keyed by (owner_id, date).
func (r *Reconciler) UpsertHealthSample(ctx context.Context, sample *domain.HealthSample) (created bool, err error) {
	if sample.OwnerID == "" || sample.Date == "" {
		return false, fmt.Errorf("health sample missing reconciliation key (owner=%q, date=%q)", sample.OwnerID, sample.Date)
	}

	_, err = r.store.GetHealthSample(ctx, sample.OwnerID, sample.Date)
	switch {
	case err == nil:
		if err := r.store.UpdateHealthSample(ctx, sample); err != nil {
			return false, fmt.Errorf("update health sample %s: %w", sample.Date, err)
		}
		return false, nil
	case errors.Is(err, shared.ErrNotFound):
		if err := r.store.InsertHealthSample(ctx, sample); err != nil {
			return false, fmt.Errorf("insert health sample %s: %w", sample.Date, err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("look up health sample %s: %w", sample.Date, err)
	}
}
