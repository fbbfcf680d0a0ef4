package provisioning

import (
	"context"
	"sync"

	"codavert-workers/internal/common/database"
	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/models"
)

// SQLIdentityStore writes to the users table. Pass a *sql.Tx to make the
// insert part of a larger transaction.
type SQLIdentityStore struct {
	db database.Queryer
}

func NewSQLIdentityStore(db database.Queryer) *SQLIdentityStore {
	return &SQLIdentityStore{db: db}
}

func (s *SQLIdentityStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM users
			WHERE LOWER(email) = $1 OR LOWER(username) = $1
		)`, email).Scan(&exists)
	return exists, err
}

func (s *SQLIdentityStore) Create(ctx context.Context, account *models.StaffAccount) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (
			username, email, password_hash, first_name, last_name,
			phone, role, status, must_rotate_password, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Phone,
		account.Role,
		account.Status,
		account.MustRotatePassword,
		account.CreatedAt,
	).Scan(&id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, errors.NewEmailAlreadyRegisteredError(account.Email)
		}
		return 0, errors.NewDatabaseError("insert staff account", err)
	}
	return id, nil
}

// MemoryIdentityStore keeps accounts in process. It backs the in-memory
// application store and tests.
type MemoryIdentityStore struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*models.StaffAccount
	byEmail  map[string]int64
}

func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{
		accounts: make(map[int64]*models.StaffAccount),
		byEmail:  make(map[string]int64),
	}
}

func (s *MemoryIdentityStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byEmail[models.NormalizeEmail(email)]
	return ok, nil
}

func (s *MemoryIdentityStore) Create(_ context.Context, account *models.StaffAccount) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := models.NormalizeEmail(account.Email)
	if _, ok := s.byEmail[email]; ok {
		return 0, errors.NewEmailAlreadyRegisteredError(email)
	}
	s.nextID++
	stored := *account
	stored.ID = s.nextID
	s.accounts[stored.ID] = &stored
	s.byEmail[email] = stored.ID
	return stored.ID, nil
}

// Remove deletes an account. It is used to undo a staged create.
func (s *MemoryIdentityStore) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[id]; ok {
		delete(s.byEmail, models.NormalizeEmail(acc.Email))
		delete(s.accounts, id)
	}
}

func (s *MemoryIdentityStore) Get(id int64) (*models.StaffAccount, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, false
	}
	c := *acc
	return &c, true
}

func (s *MemoryIdentityStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}
