// internal/sequence/counter.go
package sequence

import (
	"context"
	"fmt"
	"sync"

	"codavert-workers/internal/models"
)

// Counter hands out strictly increasing values per (kind, owner).
type Counter interface {
	// Increment atomically advances the counter and returns the new value.
	// The first call for a pair returns 1.
	Increment(ctx context.Context, kind models.DocumentKind, ownerID int64) (int64, error)
	// Seed raises the counter to at least floor. It never lowers it.
	Seed(ctx context.Context, kind models.DocumentKind, ownerID int64, floor int64) error
	Backend() string
}

type counterKey struct {
	kind  models.DocumentKind
	owner int64
}

// MemoryCounter serializes every allocation behind one mutex. It is only
// correct when this process is the sole writer.
type MemoryCounter struct {
	mu     sync.Mutex
	values map[counterKey]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{values: make(map[counterKey]int64)}
}

func (c *MemoryCounter) Increment(ctx context.Context, kind models.DocumentKind, ownerID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	k := counterKey{kind, ownerID}
	c.values[k]++
	return c.values[k], nil
}

func (c *MemoryCounter) Seed(ctx context.Context, kind models.DocumentKind, ownerID int64, floor int64) error {
	if floor < 0 {
		return fmt.Errorf("negative seed %d", floor)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	k := counterKey{kind, ownerID}
	if c.values[k] < floor {
		c.values[k] = floor
	}
	return nil
}

func (c *MemoryCounter) Backend() string { return "memory" }
