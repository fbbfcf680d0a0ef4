// internal/sequence/allocator.go
package sequence

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/common/logger"
	"codavert-workers/internal/common/metrics"
	"codavert-workers/internal/common/observability"
	"codavert-workers/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

const defaultMaxRetries = 5

// Allocator issues document numbers such as "INV-0007".
type Allocator struct {
	counter    Counter
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
	obs        *observability.Observability
}

type Option func(*Allocator)

func WithMaxRetries(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxRetries = n
		}
	}
}

func WithBackoff(d time.Duration) Option {
	return func(a *Allocator) { a.backoff = d }
}

func WithObservability(obs *observability.Observability) Option {
	return func(a *Allocator) { a.obs = obs }
}

func NewAllocator(counter Counter, log logger.Logger, opts ...Option) *Allocator {
	a := &Allocator{
		counter:    counter,
		maxRetries: defaultMaxRetries,
		backoff:    10 * time.Millisecond,
		logger:     log.WithFields(map[string]interface{}{"component": "sequence", "backend": counter.Backend()}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocation is a formatted number together with its raw value.
type Allocation struct {
	Kind      models.DocumentKind
	OwnerID   int64
	Value     int64
	Formatted string
}

// Allocate returns the next number for (kind, ownerID). Conflicts reported
// by the counter are retried with linear backoff.
func (a *Allocator) Allocate(ctx context.Context, kind models.DocumentKind, ownerID int64) (string, error) {
	alloc, err := a.Next(ctx, kind, ownerID)
	if err != nil {
		return "", err
	}
	return alloc.Formatted, nil
}

func (a *Allocator) Next(ctx context.Context, kind models.DocumentKind, ownerID int64) (*Allocation, error) {
	if !kind.Valid() {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown document kind %q", kind))
	}
	if ownerID <= 0 {
		return nil, errors.NewValidationError("ownerId must be positive")
	}

	ctx, span := a.obs.StartSpan(ctx, "sequence.allocate",
		attribute.String("document.kind", string(kind)),
		attribute.Int64("document.owner_id", ownerID),
	)
	defer span.End()
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		value, err := a.counter.Increment(ctx, kind, ownerID)
		if err == nil {
			metrics.SequenceAllocations.WithLabelValues(string(kind), a.counter.Backend()).Inc()
			a.recordAllocation(ctx, kind, "allocated", start)
			return &Allocation{
				Kind:      kind,
				OwnerID:   ownerID,
				Value:     value,
				Formatted: Format(kind, value),
			}, nil
		}

		lastErr = err
		if !stderrors.Is(err, errors.ErrAllocationConflict) {
			break
		}

		metrics.SequenceConflicts.WithLabelValues(string(kind), a.counter.Backend()).Inc()
		a.logger.Warn("Sequence allocation conflict, retrying", map[string]interface{}{
			"kind":    kind,
			"ownerId": ownerID,
			"attempt": attempt,
		})

		select {
		case <-ctx.Done():
			a.recordAllocation(ctx, kind, "cancelled", start)
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * a.backoff):
		}
	}

	span.RecordError(lastErr)
	a.recordAllocation(ctx, kind, "failed", start)
	a.logger.Error("Sequence allocation failed", map[string]interface{}{
		"kind":    kind,
		"ownerId": ownerID,
		"error":   lastErr,
	})
	return nil, lastErr
}

// Seed migrates an owner from numbers issued before the counter existed.
// The counter is raised to the highest parseable value in existing.
func (a *Allocator) Seed(ctx context.Context, kind models.DocumentKind, ownerID int64, existing []string) (int64, error) {
	if !kind.Valid() {
		return 0, errors.NewValidationError(fmt.Sprintf("unknown document kind %q", kind))
	}
	floor := HighestExisting(kind, existing)
	if floor == 0 {
		return 0, nil
	}
	if err := a.counter.Seed(ctx, kind, ownerID, floor); err != nil {
		return 0, err
	}
	a.logger.Info("Seeded document sequence", map[string]interface{}{
		"kind":    kind,
		"ownerId": ownerID,
		"floor":   floor,
	})
	return floor, nil
}

func (a *Allocator) recordAllocation(ctx context.Context, kind models.DocumentKind, outcome string, start time.Time) {
	if a.obs != nil {
		a.obs.RecordAllocation(ctx, string(kind), outcome, time.Since(start))
	}
}
