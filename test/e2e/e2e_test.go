// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/common/logger"
	"codavert-workers/internal/lifecycle"
	"codavert-workers/internal/lock"
	"codavert-workers/internal/models"
	"codavert-workers/internal/notification"
	"codavert-workers/internal/provisioning"
	"codavert-workers/internal/sequence"

	acceptoffer "codavert-workers/internal/workers/application/accept-offer"
	deleteapplication "codavert-workers/internal/workers/application/delete-application"
	queryapplications "codavert-workers/internal/workers/application/query-applications"
	sendcandidateemail "codavert-workers/internal/workers/application/send-candidate-email"
	setapplicationstatus "codavert-workers/internal/workers/application/set-application-status"
	submitapplication "codavert-workers/internal/workers/application/submit-application"
	updateapplication "codavert-workers/internal/workers/application/update-application"
	allocatedocumentnumber "codavert-workers/internal/workers/documents/allocate-document-number"
)

// outbox is the mail transport for the whole run.
type outbox struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (o *outbox) Send(_ context.Context, msg notification.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) Name() string { return "outbox" }

func (o *outbox) to(email string) []notification.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []notification.Message
	for _, m := range o.sent {
		if m.To == email {
			out = append(out, m)
		}
	}
	return out
}

type stack struct {
	identities *provisioning.MemoryIdentityStore
	dispatcher *notification.Dispatcher
	outbox     *outbox

	submit   *submitapplication.Handler
	status   *setapplicationstatus.Handler
	accept   *acceptoffer.Handler
	update   *updateapplication.Handler
	remove   *deleteapplication.Handler
	query    *queryapplications.Handler
	email    *sendcandidateemail.Handler
	allocate *allocatedocumentnumber.Handler
}

// newStack wires every worker the way the worker manager does, with Redis
// served by miniredis and the application store kept in memory.
func newStack(t *testing.T) *stack {
	t.Helper()
	log := logger.NewNoOpLogger()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	identities := provisioning.NewMemoryIdentityStore()
	box := &outbox{}
	dispatcher := notification.NewDispatcher(notification.Config{
		FromEmail: "careers@codavert.dev",
		FromName:  "Codavert Careers",
		Branding:  notification.Branding{CompanyName: "Codavert", PortalURL: "https://portal.codavert.dev"},
	}, box, nil, log)
	dispatcher.Start()

	engine := lifecycle.NewEngine(lifecycle.Dependencies{
		Store:       lifecycle.NewMemoryStore(identities),
		Locker:      lock.NewRedisLocker(rdb, 5*time.Second, 5*time.Second, log),
		Provisioner: provisioning.NewProvisioner("1234", bcrypt.MinCost, log),
		Notifier:    dispatcher,
		Logger:      log,
	})
	allocator := sequence.NewAllocator(sequence.NewRedisCounter(rdb, "sequence"), log)

	s := &stack{identities: identities, dispatcher: dispatcher, outbox: box}
	var err error

	s.submit, err = submitapplication.NewHandler(submitapplication.HandlerOptions{CustomConfig: submitapplication.DefaultConfig(), Engine: engine, Logger: log})
	require.NoError(t, err)
	s.status, err = setapplicationstatus.NewHandler(setapplicationstatus.HandlerOptions{CustomConfig: setapplicationstatus.DefaultConfig(), Engine: engine, Logger: log})
	require.NoError(t, err)
	s.accept, err = acceptoffer.NewHandler(acceptoffer.HandlerOptions{CustomConfig: acceptoffer.DefaultConfig(), Engine: engine, Logger: log})
	require.NoError(t, err)
	s.update, err = updateapplication.NewHandler(updateapplication.HandlerOptions{CustomConfig: updateapplication.DefaultConfig(), Engine: engine, Logger: log})
	require.NoError(t, err)
	s.remove, err = deleteapplication.NewHandler(deleteapplication.HandlerOptions{CustomConfig: deleteapplication.DefaultConfig(), Engine: engine, Logger: log})
	require.NoError(t, err)
	s.query, err = queryapplications.NewHandler(queryapplications.HandlerOptions{CustomConfig: queryapplications.DefaultConfig(), Engine: engine, Logger: log})
	require.NoError(t, err)
	s.email, err = sendcandidateemail.NewHandler(sendcandidateemail.HandlerOptions{CustomConfig: sendcandidateemail.DefaultConfig(), Engine: engine, Logger: log})
	require.NoError(t, err)
	s.allocate, err = allocatedocumentnumber.NewHandler(allocatedocumentnumber.HandlerOptions{CustomConfig: allocatedocumentnumber.DefaultConfig(), Allocator: allocator, Logger: log})
	require.NoError(t, err)

	return s
}

// drain flushes queued emails so the outbox can be inspected.
func (s *stack) drain(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.dispatcher.Shutdown(ctx))
}

func (s *stack) setStatus(t *testing.T, id int64, status string) *setapplicationstatus.Output {
	t.Helper()
	out, err := s.status.Execute(context.Background(), &setapplicationstatus.Input{ApplicationID: id, Status: status})
	require.NoError(t, err, "transition to %s", status)
	return out
}

func strPtr(s string) *string { return &s }

func TestHiringFlow(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	t.Log("Submitting application...")
	years := 2
	submitted, err := s.submit.Execute(ctx, &submitapplication.Input{ApplicantData: models.ApplicantData{
		FullName:          "Asha Rao Kumar",
		Email:             "Asha@Example.com",
		Phone:             "+91 90000 00000",
		Position:          "Backend Engineer",
		YearsOfExperience: &years,
		Skills:            "go, postgres",
	}})
	require.NoError(t, err)
	assert.Equal(t, "NEW", submitted.Status)
	id := submitted.ApplicationID

	_, err = s.submit.Execute(ctx, &submitapplication.Input{ApplicantData: models.ApplicantData{
		FullName: "Someone Else",
		Email:    "asha@example.com",
		Phone:    "1",
		Position: "Designer",
	}})
	assert.ErrorIs(t, err, errors.ErrDuplicateApplication)

	t.Log("Reviewing and shortlisting...")
	s.setStatus(t, id, "REVIEWING")
	s.setStatus(t, id, "shortlisted")

	queued, err := s.email.Execute(ctx, &sendcandidateemail.Input{
		ApplicationID: id,
		EmailType:     sendcandidateemail.EmailInterviewInvitation,
		Interview:     &models.InterviewDetails{Date: "2025-02-10", Time: "11:00 IST", MeetLink: "https://meet.example.com/abc"},
	})
	require.NoError(t, err)
	assert.True(t, queued.Queued)

	s.setStatus(t, id, "INTERVIEWED")

	t.Log("Hiring...")
	_, err = s.status.Execute(ctx, &setapplicationstatus.Input{ApplicationID: id, Status: "HIRED", AssignedRole: "SDE"})
	assert.Equal(t, errors.ErrCodeIncompleteHireDetails, errors.CodeOf(err))

	stipend := 25000.0
	hired, err := s.status.Execute(ctx, &setapplicationstatus.Input{
		ApplicationID:  id,
		Status:         "HIRED",
		AssignedRole:   "SDE",
		Stipend:        &stipend,
		JoiningDate:    "2025-03-01",
		EmploymentType: "Full-time",
		Department:     "Platform",
	})
	require.NoError(t, err)
	assert.Equal(t, "INTERVIEWED", hired.PreviousStatus)
	assert.NotEmpty(t, hired.HiredAt)

	updated, err := s.update.Execute(ctx, &updateapplication.Input{
		ApplicationID:    id,
		ApplicationPatch: models.ApplicationPatch{WorkLocation: strPtr("Bengaluru")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bengaluru", updated.Application.Hire.WorkLocation)

	t.Log("Accepting offer from several process instances at once...")
	var (
		mu       sync.Mutex
		accepted []*acceptoffer.Output
		refused  int
	)
	var g errgroup.Group
	for i := 0; i < 6; i++ {
		g.Go(func() error {
			out, err := s.accept.Execute(ctx, &acceptoffer.Input{ApplicationID: id})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.CodeOf(err) != errors.ErrCodeAlreadyAccepted {
					return err
				}
				refused++
				return nil
			}
			accepted = append(accepted, out)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Len(t, accepted, 1)
	assert.Equal(t, 5, refused)
	assert.Equal(t, 1, s.identities.Count())
	assert.Equal(t, "asha@example.com", accepted[0].Username)
	assert.Equal(t, "OFFER_ACCEPTED", accepted[0].Status)

	account, ok := s.identities.Get(accepted[0].StaffAccountID)
	require.True(t, ok)
	assert.Equal(t, "Asha", account.FirstName)
	assert.Equal(t, "Rao Kumar", account.LastName)
	assert.True(t, provisioning.VerifyPassword(account.PasswordHash, "1234"))

	_, err = s.status.Execute(ctx, &setapplicationstatus.Input{ApplicationID: id, Status: "REVIEWING"})
	assert.Equal(t, errors.ErrCodeInvalidTransition, errors.CodeOf(err))

	t.Log("Allocating the new hire's contract number...")
	first, err := s.allocate.Execute(ctx, &allocatedocumentnumber.Input{DocumentKind: "MOU", OwnerID: accepted[0].StaffAccountID})
	require.NoError(t, err)
	second, err := s.allocate.Execute(ctx, &allocatedocumentnumber.Input{DocumentKind: "MOU", OwnerID: accepted[0].StaffAccountID})
	require.NoError(t, err)
	assert.Equal(t, "MOU-0001", first.DocumentNumber)
	assert.Equal(t, "MOU-0002", second.DocumentNumber)

	result, err := s.query.Execute(ctx, &queryapplications.Input{Status: "OFFER_ACCEPTED"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, id, result.Applications[0].ID)

	s.drain(t)

	mails := s.outbox.to("asha@example.com")
	subjects := make([]string, 0, len(mails))
	for _, m := range mails {
		subjects = append(subjects, m.Subject)
	}
	require.Len(t, mails, 4, "got %v", subjects)
	assert.Contains(t, subjects, "We received your application for Backend Engineer")
	assert.Contains(t, subjects, "Interview invitation for Backend Engineer")
	assert.Contains(t, subjects, "Offer letter: SDE at Codavert")
	assert.Contains(t, subjects, "Your Codavert staff account")
	for _, m := range mails {
		if strings.HasPrefix(m.Subject, "Your Codavert staff account") {
			assert.Contains(t, m.Text, "Temporary password: 1234")
		}
	}
}

func TestRejectionFlow(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	submitted, err := s.submit.Execute(ctx, &submitapplication.Input{ApplicantData: models.ApplicantData{
		FullName: "Ravi",
		Email:    "ravi@example.com",
		Phone:    "1",
		Position: "Designer",
	}})
	require.NoError(t, err)
	id := submitted.ApplicationID

	s.setStatus(t, id, "REVIEWING")
	rejected, err := s.status.Execute(ctx, &setapplicationstatus.Input{
		ApplicationID: id,
		Status:        "REJECTED",
		AdminNotes:    strPtr("We are looking for more experience with design systems."),
	})
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", rejected.Status)

	_, err = s.accept.Execute(ctx, &acceptoffer.Input{ApplicationID: id})
	assert.Equal(t, errors.ErrCodeInvalidState, errors.CodeOf(err))

	_, err = s.status.Execute(ctx, &setapplicationstatus.Input{ApplicationID: id, Status: "REVIEWING"})
	assert.Equal(t, errors.ErrCodeInvalidTransition, errors.CodeOf(err))

	deleted, err := s.remove.Execute(ctx, &deleteapplication.Input{ApplicationID: id})
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)

	_, err = s.query.Execute(ctx, &queryapplications.Input{ApplicationID: id})
	assert.Equal(t, errors.ErrCodeApplicationNotFound, errors.CodeOf(err))

	s.drain(t)

	mails := s.outbox.to("ravi@example.com")
	require.Len(t, mails, 2)
	var rejection *notification.Message
	for i := range mails {
		if strings.HasPrefix(mails[i].Subject, "Update on your application") {
			rejection = &mails[i]
		}
	}
	require.NotNil(t, rejection)
	assert.Contains(t, rejection.Text, "design systems")
}
