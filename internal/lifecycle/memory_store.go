package lifecycle

import (
	"context"
	"sort"
	"sync"

	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/models"
	"codavert-workers/internal/provisioning"
)

// MemoryStore keeps records in process. Transactions are serialized by a
// single mutex and writes are staged until commit.
type MemoryStore struct {
	mu         sync.Mutex
	nextID     int64
	records    map[int64]*models.ApplicationRecord
	identities *provisioning.MemoryIdentityStore

	auditMu sync.Mutex
	audit   []models.AuditEntry
}

func NewMemoryStore(identities *provisioning.MemoryIdentityStore) *MemoryStore {
	if identities == nil {
		identities = provisioning.NewMemoryIdentityStore()
	}
	return &MemoryStore{
		records:    make(map[int64]*models.ApplicationRecord),
		identities: identities,
	}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		store:   s,
		staged:  make(map[int64]*models.ApplicationRecord),
		deleted: make(map[int64]bool),
	}
	if err := fn(tx); err != nil {
		for _, id := range tx.createdAccounts {
			s.identities.Remove(id)
		}
		return err
	}

	for id := range tx.deleted {
		delete(s.records, id)
	}
	for id, rec := range tx.staged {
		s.records[id] = rec
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (*models.ApplicationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, errors.NewApplicationNotFoundError(id)
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, filter models.ApplicationFilter) ([]*models.ApplicationRecord, error) {
	s.mu.Lock()
	out := make([]*models.ApplicationRecord, 0, len(s.records))
	for _, rec := range s.records {
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		out = append(out, rec.Clone())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].AppliedAt.Equal(out[j].AppliedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].AppliedAt.After(out[j].AppliedAt)
	})
	return out, nil
}

func (s *MemoryStore) AppendAudit(_ context.Context, entry models.AuditEntry) error {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

// AuditTrail returns a copy of the recorded audit entries.
func (s *MemoryStore) AuditTrail() []models.AuditEntry {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()
	return append([]models.AuditEntry(nil), s.audit...)
}

func (s *MemoryStore) IdentityStore() *provisioning.MemoryIdentityStore {
	return s.identities
}

type memoryTx struct {
	store           *MemoryStore
	staged          map[int64]*models.ApplicationRecord
	deleted         map[int64]bool
	createdAccounts []int64
}

func (tx *memoryTx) lookup(id int64) (*models.ApplicationRecord, bool) {
	if tx.deleted[id] {
		return nil, false
	}
	if rec, ok := tx.staged[id]; ok {
		return rec, true
	}
	rec, ok := tx.store.records[id]
	return rec, ok
}

func (tx *memoryTx) GetForUpdate(_ context.Context, id int64) (*models.ApplicationRecord, error) {
	rec, ok := tx.lookup(id)
	if !ok {
		return nil, errors.NewApplicationNotFoundError(id)
	}
	return rec.Clone(), nil
}

func (tx *memoryTx) EmailTaken(_ context.Context, email string, excludeID int64) (bool, error) {
	email = models.NormalizeEmail(email)
	for id := range tx.store.records {
		if rec, ok := tx.lookup(id); ok && id != excludeID && rec.Email == email {
			return true, nil
		}
	}
	for id, rec := range tx.staged {
		if id != excludeID && rec.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryTx) Insert(ctx context.Context, record *models.ApplicationRecord) (int64, error) {
	taken, _ := tx.EmailTaken(ctx, record.Email, 0)
	if taken {
		return 0, errors.NewDuplicateApplicationError(record.Email)
	}
	tx.store.nextID++
	stored := record.Clone()
	stored.ID = tx.store.nextID
	tx.staged[stored.ID] = stored
	return stored.ID, nil
}

func (tx *memoryTx) Save(ctx context.Context, record *models.ApplicationRecord) error {
	if _, ok := tx.lookup(record.ID); !ok {
		return errors.NewApplicationNotFoundError(record.ID)
	}
	taken, _ := tx.EmailTaken(ctx, record.Email, record.ID)
	if taken {
		return errors.NewDuplicateApplicationError(record.Email)
	}
	tx.staged[record.ID] = record.Clone()
	return nil
}

func (tx *memoryTx) Delete(_ context.Context, id int64) error {
	if _, ok := tx.lookup(id); !ok {
		return errors.NewApplicationNotFoundError(id)
	}
	delete(tx.staged, id)
	tx.deleted[id] = true
	return nil
}

func (tx *memoryTx) Identities() provisioning.IdentityStore {
	return &memoryTxIdentities{tx: tx}
}

// memoryTxIdentities remembers what it created so a rollback can undo it.
type memoryTxIdentities struct {
	tx *memoryTx
}

func (m *memoryTxIdentities) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.tx.store.identities.ExistsByEmail(ctx, email)
}

func (m *memoryTxIdentities) Create(ctx context.Context, account *models.StaffAccount) (int64, error) {
	id, err := m.tx.store.identities.Create(ctx, account)
	if err != nil {
		return 0, err
	}
	m.tx.createdAccounts = append(m.tx.createdAccounts, id)
	return id, nil
}
