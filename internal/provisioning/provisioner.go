// Package provisioning turns an accepted application into a staff login.
package provisioning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/common/logger"
	"codavert-workers/internal/common/metrics"
	"codavert-workers/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the fixed initial password given to every new staff
// account. It is weak on purpose and the account is flagged for rotation.
const DefaultPassword = "1234"

// IdentityStore is the slice of the identity subsystem the provisioner
// needs. Implementations bound to a transaction must not commit on their own.
type IdentityStore interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, account *models.StaffAccount) (int64, error)
}

// Result carries the new account and the plaintext password for the
// welcome email.
type Result struct {
	Account           *models.StaffAccount
	TemporaryPassword string
}

type Provisioner struct {
	defaultPassword string
	bcryptCost      int
	logger          logger.Logger
	now             func() time.Time
}

func NewProvisioner(defaultPassword string, bcryptCost int, log logger.Logger) *Provisioner {
	if defaultPassword == "" {
		defaultPassword = DefaultPassword
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if defaultPassword == DefaultPassword {
		log.Warn("Staff accounts are provisioned with the documented default password", map[string]interface{}{
			"mustRotatePassword": true,
		})
	}
	return &Provisioner{
		defaultPassword: defaultPassword,
		bcryptCost:      bcryptCost,
		logger:          log.WithFields(map[string]interface{}{"component": "provisioner"}),
		now:             time.Now,
	}
}

// Provision creates exactly one STAFF identity for record on identities.
// The caller must hold the record lock and run this inside the same
// transaction that flips the record to OFFER_ACCEPTED.
func (p *Provisioner) Provision(ctx context.Context, identities IdentityStore, record *models.ApplicationRecord) (*Result, error) {
	email := models.NormalizeEmail(record.Email)

	exists, err := identities.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, errors.NewDatabaseError("check identity email", err)
	}
	if exists {
		return nil, errors.NewEmailAlreadyRegisteredError(email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.defaultPassword), p.bcryptCost)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("hash default password: %w", err))
	}

	first, last := SplitFullName(record.FullName)
	account := &models.StaffAccount{
		Username:           email,
		Email:              email,
		PasswordHash:       string(hash),
		FirstName:          first,
		LastName:           last,
		Phone:              record.Phone,
		Role:               models.RoleStaff,
		Status:             models.StatusActive,
		MustRotatePassword: true,
		CreatedAt:          p.now().UTC(),
	}

	id, err := identities.Create(ctx, account)
	if err != nil {
		return nil, err
	}
	account.ID = id

	metrics.StaffAccountsProvisioned.Inc()
	p.logger.Info("Staff account provisioned", map[string]interface{}{
		"applicationId":  record.ID,
		"staffAccountId": id,
		"username":       account.Username,
	})

	return &Result{Account: account, TemporaryPassword: p.defaultPassword}, nil
}

// SplitFullName splits on the first space. A single-token name yields an
// empty last name.
func SplitFullName(fullName string) (first, last string) {
	first, last, _ = strings.Cut(strings.TrimSpace(fullName), " ")
	return first, strings.TrimSpace(last)
}

// VerifyPassword reports whether plain matches the stored hash.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
