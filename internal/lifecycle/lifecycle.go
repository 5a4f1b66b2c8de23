// Package lifecycle implements the state machine governing a procedure's
// status. Legality is positional: a transition may only move forward (or
// stay put) in the fixed Pending → InReview → Approved → Rejected →
// Archived sequence. Skipping states is allowed; regressing is not. A
// rejected procedure leaves that state only through the resend workflow,
// which mints a new version instead of transitioning the old one.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"backend/internal/apperr"
	"backend/internal/model"
	"backend/internal/repository"
)

// Engine advances procedure records and persists the result. It touches
// nothing besides the record store.
type Engine struct {
	store repository.RecordStore
	now   func() time.Time
}

func NewEngine(store repository.RecordStore) *Engine {
	return &Engine{store: store, now: time.Now}
}

// Transition moves rec to target on behalf of actor. A same-state target is
// an accepted no-op re-confirmation and still appends a history entry.
// Returns the updated record, or ErrInvalidState / ErrIllegalTransition.
func (e *Engine) Transition(ctx context.Context, rec *model.Procedure, target model.Status, actor string) (*model.Procedure, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %q is not a recognized state", apperr.ErrInvalidState, target)
	}
	if target.Order() < rec.Status.Order() {
		return nil, fmt.Errorf("%w: cannot move backward from %s to %s", apperr.ErrIllegalTransition, rec.Status, target)
	}

	updated := *rec
	now := e.now().UTC()
	updated.History = append(append([]model.HistoryEntry{}, rec.History...), model.HistoryEntry{
		Action:    model.ActionStateChange,
		From:      rec.Status,
		To:        target,
		Actor:     actor,
		Timestamp: now,
	})
	updated.Status = target
	updated.UpdatedAt = now
	updated.UpdatedBy = actor

	if err := e.store.ReplaceVersion(ctx, updated.ID, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}
