// Package lifecycletest builds in-memory engines for worker tests.
package lifecycletest

import (
	"context"
	"sync"
	"testing"
	"time"

	"codavert-workers/internal/common/logger"
	"codavert-workers/internal/lifecycle"
	"codavert-workers/internal/lock"
	"codavert-workers/internal/models"
	"codavert-workers/internal/provisioning"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Notifier records every event it is handed.
type Notifier struct {
	mu     sync.Mutex
	Events []models.Event
}

func (n *Notifier) Enqueue(evt models.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Events = append(n.Events, evt)
	return true
}

// Last returns the most recent event, or a zero Event.
func (n *Notifier) Last() models.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Events) == 0 {
		return models.Event{}
	}
	return n.Events[len(n.Events)-1]
}

type Fixture struct {
	Engine   *lifecycle.Engine
	Store    *lifecycle.MemoryStore
	Notifier *Notifier
}

func New(t testing.TB) *Fixture {
	t.Helper()
	log := logger.NewTestLogger(t)
	store := lifecycle.NewMemoryStore(nil)
	notifier := &Notifier{}
	return &Fixture{
		Engine: lifecycle.NewEngine(lifecycle.Dependencies{
			Store:       store,
			Locker:      lock.NewKeyedMutex(time.Second),
			Provisioner: provisioning.NewProvisioner("", bcrypt.MinCost, log),
			Notifier:    notifier,
			Logger:      log,
		}),
		Store:    store,
		Notifier: notifier,
	}
}

// Submit records an application in NEW.
func (f *Fixture) Submit(t testing.TB, email string) *models.ApplicationRecord {
	t.Helper()
	rec, err := f.Engine.Submit(context.Background(), models.ApplicantData{
		FullName: "Asha Rao",
		Email:    email,
		Position: "Engineer",
	})
	require.NoError(t, err)
	return rec
}

// Hire submits and moves the application to HIRED with complete details.
func (f *Fixture) Hire(t testing.TB, email string) *models.ApplicationRecord {
	t.Helper()
	rec := f.Submit(t, email)
	stipend := 1000.0
	res, err := f.Engine.SetStatus(context.Background(), rec.ID, models.StatusHired, models.StatusChange{
		Hire: models.HireDetails{
			AssignedRole:   "SDE",
			Stipend:        &stipend,
			JoiningDate:    "2025-01-01",
			EmploymentType: "Full-time",
		},
	})
	require.NoError(t, err)
	return res.Record
}
