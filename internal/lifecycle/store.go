package lifecycle

import (
	"context"

	"codavert-workers/internal/models"
	"codavert-workers/internal/provisioning"
)

// Store persists application records. Every mutation runs inside WithinTx
// so a transition and its provisioning commit or roll back together.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Get(ctx context.Context, id int64) (*models.ApplicationRecord, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]*models.ApplicationRecord, error)
	AppendAudit(ctx context.Context, entry models.AuditEntry) error
}

// Tx is a unit of work over the application and identity stores.
type Tx interface {
	// GetForUpdate loads the record and holds it until the tx ends.
	GetForUpdate(ctx context.Context, id int64) (*models.ApplicationRecord, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	Insert(ctx context.Context, record *models.ApplicationRecord) (int64, error)
	Save(ctx context.Context, record *models.ApplicationRecord) error
	Delete(ctx context.Context, id int64) error
	// Identities is bound to this transaction.
	Identities() provisioning.IdentityStore
}
