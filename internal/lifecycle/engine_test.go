package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/common/logger"
	"codavert-workers/internal/lock"
	"codavert-workers/internal/models"
	"codavert-workers/internal/provisioning"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

// ==========================
// Test helpers
// ==========================

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.Event
}

func (n *recordingNotifier) Enqueue(evt models.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
	return true
}

func (n *recordingNotifier) kinds() []models.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.EventKind, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Kind)
	}
	return out
}

func (n *recordingNotifier) last() models.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

type fixture struct {
	engine   *Engine
	store    *MemoryStore
	notifier *recordingNotifier
}

func newFixture(t *testing.T, protect bool) *fixture {
	t.Helper()
	store := NewMemoryStore(nil)
	notifier := &recordingNotifier{}
	log := logger.NewTestLogger(t)

	engine := NewEngine(Dependencies{
		Store:              store,
		Locker:             lock.NewKeyedMutex(5 * time.Second),
		Provisioner:        provisioning.NewProvisioner("", bcrypt.MinCost, log),
		Notifier:           notifier,
		Logger:             log,
		ProtectProvisioned: protect,
	})

	clock := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	engine.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Minute)
		return clock
	}
	return &fixture{engine: engine, store: store, notifier: notifier}
}

func stipend(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

func fullHire() models.HireDetails {
	return models.HireDetails{
		AssignedRole:   "SDE",
		Stipend:        stipend(1000),
		JoiningDate:    "2025-01-01",
		EmploymentType: "Full-time",
	}
}

func (f *fixture) submit(t *testing.T, email string) *models.ApplicationRecord {
	t.Helper()
	rec, err := f.engine.Submit(context.Background(), models.ApplicantData{
		FullName: "Asha Rao",
		Email:    email,
		Position: "Engineer",
	})
	require.NoError(t, err)
	return rec
}

func (f *fixture) hired(t *testing.T, email string) *models.ApplicationRecord {
	t.Helper()
	rec := f.submit(t, email)
	res, err := f.engine.SetStatus(context.Background(), rec.ID, models.StatusHired, models.StatusChange{Hire: fullHire()})
	require.NoError(t, err)
	return res.Record
}

// ==========================
// Scenario
// ==========================

func TestEngine_HireAndAcceptScenario(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	rec, err := f.engine.Submit(ctx, models.ApplicantData{Email: "a@x.com", Position: "Engineer"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, rec.Status)
	assert.NotZero(t, rec.ID)

	res, err := f.engine.SetStatus(ctx, rec.ID, models.StatusHired, models.StatusChange{Hire: fullHire()})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, res.PreviousStatus)
	assert.Equal(t, models.StatusHired, res.Record.Status)
	require.NotNil(t, res.Record.HiredAt)
	assert.Equal(t, "SDE", res.Record.Hire.AssignedRole)

	accepted, err := f.engine.AcceptOffer(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOfferAccepted, accepted.Record.Status)
	assert.True(t, accepted.Record.OfferAccepted)
	require.NotNil(t, accepted.Record.StaffAccountID)
	assert.Equal(t, accepted.Account.ID, *accepted.Record.StaffAccountID)
	assert.Equal(t, models.RoleStaff, accepted.Account.Role)

	before, err := f.engine.Get(ctx, rec.ID)
	require.NoError(t, err)

	_, err = f.engine.AcceptOffer(ctx, rec.ID)
	assert.ErrorIs(t, err, errors.ErrAlreadyAccepted)

	after, err := f.engine.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, f.store.IdentityStore().Count())

	assert.Equal(t, []models.EventKind{
		models.EventApplicationReceived,
		models.EventOfferLetter,
		models.EventAccountCreated,
	}, f.notifier.kinds())

	welcome := f.notifier.last()
	require.NotNil(t, welcome.Credentials)
	assert.Equal(t, "a@x.com", welcome.Credentials.Username)
	assert.Equal(t, provisioning.DefaultPassword, welcome.Credentials.TemporaryPassword)
}

// ==========================
// Submit
// ==========================

func TestEngine_Submit_Validation(t *testing.T) {
	f := newFixture(t, false)
	negative := -1

	tests := []struct {
		name string
		data models.ApplicantData
	}{
		{"missing email", models.ApplicantData{Position: "Engineer"}},
		{"bad email", models.ApplicantData{Email: "not-an-email", Position: "Engineer"}},
		{"missing position", models.ApplicantData{Email: "a@x.com", Position: "  "}},
		{"negative experience", models.ApplicantData{Email: "a@x.com", Position: "Engineer", YearsOfExperience: &negative}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Submit(context.Background(), tt.data)
			assert.ErrorIs(t, err, errors.ErrValidation)
		})
	}
}

func TestEngine_Submit_DuplicateEmail(t *testing.T) {
	f := newFixture(t, false)
	f.submit(t, "dup@x.com")

	_, err := f.engine.Submit(context.Background(), models.ApplicantData{Email: " DUP@x.com ", Position: "Designer"})
	assert.ErrorIs(t, err, errors.ErrDuplicateApplication)

	all, err := f.engine.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// ==========================
// SetStatus
// ==========================

func TestEngine_SetStatus_IncompleteHireLeavesRecord(t *testing.T) {
	f := newFixture(t, false)
	rec := f.submit(t, "c@x.com")

	_, err := f.engine.SetStatus(context.Background(), rec.ID, models.StatusHired, models.StatusChange{
		Hire: models.HireDetails{AssignedRole: "SDE"},
	})
	require.ErrorIs(t, err, errors.ErrIncompleteHireDetails)

	std, ok := errors.As(err)
	require.True(t, ok)
	assert.Contains(t, std.Details, "stipend")
	assert.Contains(t, std.Details, "joiningDate")

	got, err := f.engine.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, got.Status)
	assert.Nil(t, got.HiredAt)
	assert.True(t, got.Hire.IsZero())
	assert.Equal(t, []models.EventKind{models.EventApplicationReceived}, f.notifier.kinds())
}

func TestEngine_SetStatus_HireUsesStoredDetails(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	hired := f.hired(t, "d@x.com")

	// Move away and back; the stored details satisfy the requirement.
	_, err := f.engine.SetStatus(ctx, hired.ID, models.StatusInterviewed, models.StatusChange{})
	require.NoError(t, err)
	res, err := f.engine.SetStatus(ctx, hired.ID, models.StatusHired, models.StatusChange{
		Hire: models.HireDetails{Department: "Platform"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SDE", res.Record.Hire.AssignedRole)
	assert.Equal(t, "Platform", res.Record.Hire.Department)
}

func TestEngine_SetStatus_InvalidTransitions(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	rec := f.submit(t, "e@x.com")

	_, err := f.engine.SetStatus(ctx, rec.ID, models.StatusOfferAccepted, models.StatusChange{})
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
	stdErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, AllowedTargets(models.StatusNew), stdErr.Metadata["allowed"])

	_, err = f.engine.SetStatus(ctx, rec.ID, models.StatusNew, models.StatusChange{})
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)

	_, err = f.engine.SetStatus(ctx, rec.ID, models.ApplicationStatus("ARCHIVED"), models.StatusChange{})
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = f.engine.SetStatus(ctx, rec.ID, models.StatusReviewing, models.StatusChange{Hire: fullHire()})
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = f.engine.SetStatus(ctx, rec.ID, models.StatusWithdrawn, models.StatusChange{})
	require.NoError(t, err)
	_, err = f.engine.SetStatus(ctx, rec.ID, models.StatusReviewing, models.StatusChange{})
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)

	_, err = f.engine.SetStatus(ctx, 9999, models.StatusReviewing, models.StatusChange{})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestEngine_SetStatus_ReviewedAtSetOnce(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	rec := f.submit(t, "f@x.com")

	first, err := f.engine.SetStatus(ctx, rec.ID, models.StatusReviewing, models.StatusChange{})
	require.NoError(t, err)
	require.NotNil(t, first.Record.ReviewedAt)
	reviewedAt := *first.Record.ReviewedAt

	second, err := f.engine.SetStatus(ctx, rec.ID, models.StatusShortlisted, models.StatusChange{})
	require.NoError(t, err)
	assert.Equal(t, reviewedAt, *second.Record.ReviewedAt)
	assert.True(t, second.Record.UpdatedAt.After(first.Record.UpdatedAt))
}

func TestEngine_SetStatus_LowercaseTarget(t *testing.T) {
	f := newFixture(t, false)
	rec := f.submit(t, "lc@x.com")

	res, err := f.engine.SetStatus(context.Background(), rec.ID, models.ApplicationStatus("reviewing"), models.StatusChange{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewing, res.Record.Status)
}

func TestEngine_SetStatus_RejectionNotifies(t *testing.T) {
	f := newFixture(t, false)
	rec := f.submit(t, "g@x.com")

	res, err := f.engine.SetStatus(context.Background(), rec.ID, models.StatusRejected, models.StatusChange{
		AdminNotes: strPtr("Not a fit this round"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Not a fit this round", res.Record.AdminNotes)

	evt := f.notifier.last()
	assert.Equal(t, models.EventRejection, evt.Kind)
	assert.Equal(t, "Not a fit this round", evt.Notes)
	assert.Equal(t, rec.ID, evt.Applicant.ApplicationID)
}

func TestEngine_SetStatus_WritesAudit(t *testing.T) {
	f := newFixture(t, false)
	rec := f.submit(t, "audit@x.com")

	_, err := f.engine.SetStatus(context.Background(), rec.ID, models.StatusReviewing, models.StatusChange{})
	require.NoError(t, err)

	trail := f.store.AuditTrail()
	require.Len(t, trail, 2)
	assert.Equal(t, "application_submitted", trail[0].EventType)
	assert.Equal(t, "status_changed", trail[1].EventType)
	assert.Equal(t, models.AuditResource, trail[1].ResourceType)
	assert.Equal(t, fmt.Sprint(rec.ID), trail[1].ResourceID)
}

// ==========================
// AcceptOffer
// ==========================

func TestEngine_AcceptOffer_RequiresHired(t *testing.T) {
	f := newFixture(t, false)
	rec := f.submit(t, "h@x.com")

	_, err := f.engine.AcceptOffer(context.Background(), rec.ID)
	assert.ErrorIs(t, err, errors.ErrInvalidState)
	assert.Equal(t, 0, f.store.IdentityStore().Count())
}

func TestEngine_AcceptOffer_EmailAlreadyRegistered(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	rec := f.hired(t, "taken@x.com")

	_, err := f.store.IdentityStore().Create(ctx, &models.StaffAccount{Username: "taken@x.com", Email: "taken@x.com"})
	require.NoError(t, err)

	_, err = f.engine.AcceptOffer(ctx, rec.ID)
	assert.ErrorIs(t, err, errors.ErrEmailAlreadyRegistered)

	got, err := f.engine.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusHired, got.Status)
	assert.False(t, got.OfferAccepted)
	assert.Nil(t, got.StaffAccountID)
}

func TestEngine_AcceptOffer_Concurrent(t *testing.T) {
	f := newFixture(t, false)
	rec := f.hired(t, "race@x.com")

	const callers = 16
	var (
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			_, err := f.engine.AcceptOffer(context.Background(), rec.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.CodeOf(err) == errors.ErrCodeAlreadyAccepted:
				rejected++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, rejected)
	assert.Equal(t, 1, f.store.IdentityStore().Count())
}

// ==========================
// Update
// ==========================

func TestEngine_Update(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	rec := f.submit(t, "i@x.com")
	f.submit(t, "other@x.com")

	updated, err := f.engine.Update(ctx, rec.ID, models.ApplicationPatch{
		Phone:  strPtr("+1 555 0100"),
		Skills: strPtr("go, sql"),
	})
	require.NoError(t, err)
	assert.Equal(t, "+1 555 0100", updated.Phone)
	assert.Equal(t, models.StatusNew, updated.Status)

	_, err = f.engine.Update(ctx, rec.ID, models.ApplicationPatch{Email: strPtr("OTHER@x.com")})
	assert.ErrorIs(t, err, errors.ErrDuplicateApplication)

	_, err = f.engine.Update(ctx, rec.ID, models.ApplicationPatch{AssignedRole: strPtr("SDE")})
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = f.engine.Update(ctx, rec.ID, models.ApplicationPatch{FullName: strPtr(" ")})
	assert.ErrorIs(t, err, errors.ErrValidation)

	moved, err := f.engine.Update(ctx, rec.ID, models.ApplicationPatch{Email: strPtr("I-new@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "i-new@x.com", moved.Email)
}

func TestEngine_Update_HireDetailsAfterHire(t *testing.T) {
	f := newFixture(t, false)
	rec := f.hired(t, "j@x.com")

	updated, err := f.engine.Update(context.Background(), rec.ID, models.ApplicationPatch{
		Stipend:      stipend(1500),
		WorkLocation: strPtr("Remote"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1500.0, *updated.Hire.Stipend)
	assert.Equal(t, "Remote", updated.Hire.WorkLocation)
	assert.Equal(t, models.StatusHired, updated.Status)
}

// ==========================
// Delete
// ==========================

func TestEngine_Delete(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	rec := f.submit(t, "k@x.com")

	require.NoError(t, f.engine.Delete(ctx, rec.ID))
	_, err := f.engine.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	assert.ErrorIs(t, f.engine.Delete(ctx, rec.ID), errors.ErrNotFound)
}

func TestEngine_Delete_ProvisionedRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("allowed by default, account kept", func(t *testing.T) {
		f := newFixture(t, false)
		rec := f.hired(t, "l@x.com")
		_, err := f.engine.AcceptOffer(ctx, rec.ID)
		require.NoError(t, err)

		require.NoError(t, f.engine.Delete(ctx, rec.ID))
		assert.Equal(t, 1, f.store.IdentityStore().Count())
	})

	t.Run("blocked when protected", func(t *testing.T) {
		f := newFixture(t, true)
		rec := f.hired(t, "m@x.com")
		_, err := f.engine.AcceptOffer(ctx, rec.ID)
		require.NoError(t, err)

		assert.ErrorIs(t, f.engine.Delete(ctx, rec.ID), errors.ErrLinkedAccountExists)
		_, err = f.engine.Get(ctx, rec.ID)
		assert.NoError(t, err)
	})
}

// ==========================
// Queries
// ==========================

func TestEngine_ListOrdering(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	first := f.submit(t, "n1@x.com")
	second := f.submit(t, "n2@x.com")
	third := f.submit(t, "n3@x.com")

	_, err := f.engine.SetStatus(ctx, second.ID, models.StatusReviewing, models.StatusChange{})
	require.NoError(t, err)

	all, err := f.engine.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{third.ID, second.ID, first.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	reviewing, err := f.engine.ListByStatus(ctx, models.StatusReviewing)
	require.NoError(t, err)
	require.Len(t, reviewing, 1)
	assert.Equal(t, second.ID, reviewing[0].ID)

	_, err = f.engine.ListByStatus(ctx, models.ApplicationStatus("bogus"))
	assert.ErrorIs(t, err, errors.ErrValidation)
}

// ==========================
// Candidate emails
// ==========================

func TestEngine_SendOfferLetter(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	pending := f.submit(t, "o@x.com")

	_, err := f.engine.SendOfferLetter(ctx, pending.ID, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidState)

	hired := f.hired(t, "p@x.com")
	queued, err := f.engine.SendOfferLetter(ctx, hired.ID, &models.Attachment{
		Filename:    "offer.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4"),
	})
	require.NoError(t, err)
	assert.True(t, queued)

	evt := f.notifier.last()
	assert.Equal(t, models.EventOfferLetter, evt.Kind)
	require.NotNil(t, evt.Attachment)
	assert.Equal(t, "offer.pdf", evt.Attachment.Filename)

	_, err = f.engine.SendOfferLetter(ctx, hired.ID, &models.Attachment{Filename: "empty.pdf"})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestEngine_SendInterviewInvitation(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	rec := f.submit(t, "q@x.com")

	_, err := f.engine.SendInterviewInvitation(ctx, rec.ID, models.InterviewDetails{Date: "2025-02-01"})
	require.ErrorIs(t, err, errors.ErrValidation)
	assert.Contains(t, err.Error(), "meetLink")

	queued, err := f.engine.SendInterviewInvitation(ctx, rec.ID, models.InterviewDetails{
		Date:     "2025-02-01",
		Time:     "10:00",
		MeetLink: "https://meet.example.com/abc",
	})
	require.NoError(t, err)
	assert.True(t, queued)
	require.NotNil(t, f.notifier.last().Interview)

	_, err = f.engine.SetStatus(ctx, rec.ID, models.StatusWithdrawn, models.StatusChange{})
	require.NoError(t, err)
	_, err = f.engine.SendInterviewInvitation(ctx, rec.ID, models.InterviewDetails{
		Date:     "2025-02-01",
		Time:     "10:00",
		MeetLink: "https://meet.example.com/abc",
	})
	assert.ErrorIs(t, err, errors.ErrInvalidState)
}

func TestEngine_SendRejection(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	rec := f.hired(t, "r@x.com")

	queued, err := f.engine.SendRejection(ctx, rec.ID, "Position filled")
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Equal(t, "Position filled", f.notifier.last().Notes)

	_, err = f.engine.AcceptOffer(ctx, rec.ID)
	require.NoError(t, err)
	_, err = f.engine.SendRejection(ctx, rec.ID, "")
	assert.ErrorIs(t, err, errors.ErrInvalidState)
}

func TestEngine_NoNotifier(t *testing.T) {
	store := NewMemoryStore(nil)
	engine := NewEngine(Dependencies{
		Store:       store,
		Provisioner: provisioning.NewProvisioner("", bcrypt.MinCost, logger.NewNoOpLogger()),
		Logger:      logger.NewNoOpLogger(),
	})

	rec, err := engine.Submit(context.Background(), models.ApplicantData{Email: "s@x.com", Position: "QA"})
	require.NoError(t, err)

	queued, err := engine.SendRejection(context.Background(), rec.ID, "")
	require.NoError(t, err)
	assert.False(t, queued)
}
