// internal/sequence/postgres.go
package sequence

import (
	"context"

	"codavert-workers/internal/common/database"
	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/models"
)

const (
	incrementQuery = `
		INSERT INTO document_sequences (kind, owner_id, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind, owner_id)
		DO UPDATE SET value = document_sequences.value + 1, updated_at = NOW()
		RETURNING value`

	seedQuery = `
		INSERT INTO document_sequences (kind, owner_id, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind, owner_id)
		DO UPDATE SET value = GREATEST(document_sequences.value, EXCLUDED.value), updated_at = NOW()`
)

// PostgresCounter keeps one row per (kind, owner) and advances it with a
// single upsert, so the row lock serializes concurrent writers.
type PostgresCounter struct {
	db database.Queryer
}

func NewPostgresCounter(db database.Queryer) *PostgresCounter {
	return &PostgresCounter{db: db}
}

func (c *PostgresCounter) Increment(ctx context.Context, kind models.DocumentKind, ownerID int64) (int64, error) {
	var value int64
	err := c.db.QueryRowContext(ctx, incrementQuery, string(kind), ownerID).Scan(&value)
	if err != nil {
		if database.IsConcurrencyFailure(err) || database.IsUniqueViolation(err) {
			return 0, errors.NewAllocationConflictError(string(kind), ownerID, err)
		}
		return 0, errors.NewDatabaseError("increment document sequence", err)
	}
	return value, nil
}

func (c *PostgresCounter) Seed(ctx context.Context, kind models.DocumentKind, ownerID int64, floor int64) error {
	if _, err := c.db.ExecContext(ctx, seedQuery, string(kind), ownerID, floor); err != nil {
		if database.IsConcurrencyFailure(err) || database.IsUniqueViolation(err) {
			return errors.NewAllocationConflictError(string(kind), ownerID, err)
		}
		return errors.NewDatabaseError("seed document sequence", err)
	}
	return nil
}

func (c *PostgresCounter) Backend() string { return "postgres" }
