// Package lifecycle moves job applications through the hiring states and
// fires the side effects each state requires.
package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/common/logger"
	"codavert-workers/internal/common/metrics"
	"codavert-workers/internal/common/observability"
	"codavert-workers/internal/common/validation"
	"codavert-workers/internal/lock"
	"codavert-workers/internal/models"
	"codavert-workers/internal/provisioning"

	"go.opentelemetry.io/otel/attribute"
)

// Notifier accepts candidate emails without blocking.
type Notifier interface {
	Enqueue(evt models.Event) bool
}

type Dependencies struct {
	Store         Store
	Locker        lock.Locker
	Provisioner   *provisioning.Provisioner
	Notifier      Notifier
	Logger        logger.Logger
	Observability *observability.Observability
	// ProtectProvisioned blocks deleting records that own a staff account.
	ProtectProvisioned bool
}

type Engine struct {
	store              Store
	locker             lock.Locker
	provisioner        *provisioning.Provisioner
	notifier           Notifier
	logger             logger.Logger
	obs                *observability.Observability
	protectProvisioned bool
	now                func() time.Time
}

func NewEngine(deps Dependencies) *Engine {
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewKeyedMutex(0)
	}
	return &Engine{
		store:              deps.Store,
		locker:             locker,
		provisioner:        deps.Provisioner,
		notifier:           deps.Notifier,
		logger:             deps.Logger.WithFields(map[string]interface{}{"component": "lifecycle"}),
		obs:                deps.Observability,
		protectProvisioned: deps.ProtectProvisioned,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// TransitionResult describes an applied status change.
type TransitionResult struct {
	Record         *models.ApplicationRecord
	PreviousStatus models.ApplicationStatus
}

// AcceptResult is returned by AcceptOffer.
type AcceptResult struct {
	Record  *models.ApplicationRecord
	Account *models.StaffAccount
}

// ==========================
// Submit
// ==========================

// Submit records a new application in NEW.
func (e *Engine) Submit(ctx context.Context, data models.ApplicantData) (rec *models.ApplicationRecord, err error) {
	ctx, done := e.observe(ctx, "submit", 0)
	defer func() { done(err) }()

	if err := validateApplicant(data); err != nil {
		return nil, err
	}

	now := e.now()
	rec = models.NewApplicationRecord(data, now)

	err = e.store.WithinTx(ctx, func(tx Tx) error {
		taken, err := tx.EmailTaken(ctx, rec.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return errors.NewDuplicateApplicationError(rec.Email)
		}
		id, err := tx.Insert(ctx, rec)
		if err != nil {
			return err
		}
		rec.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Application submitted", map[string]interface{}{
		"applicationId": rec.ID,
		"position":      rec.Position,
	})
	e.audit(ctx, "application_submitted", rec.ID, map[string]interface{}{
		"email":    rec.Email,
		"position": rec.Position,
	})
	e.enqueue(models.Event{Kind: models.EventApplicationReceived, Applicant: models.ApplicantOf(rec)})
	return rec, nil
}

func validateApplicant(data models.ApplicantData) error {
	email := models.NormalizeEmail(data.Email)
	switch {
	case email == "":
		return errors.NewValidationError("email is required")
	case !validation.ValidateEmail(email):
		return errors.NewValidationError(fmt.Sprintf("email %q is not a valid address", data.Email))
	case strings.TrimSpace(data.Position) == "":
		return errors.NewValidationError("position is required")
	case data.YearsOfExperience != nil && *data.YearsOfExperience < 0:
		return errors.NewValidationError("yearsOfExperience must not be negative")
	}
	return nil
}

// ==========================
// SetStatus
// ==========================

// SetStatus moves a record to target and applies the effects of entering it.
func (e *Engine) SetStatus(ctx context.Context, id int64, target models.ApplicationStatus, change models.StatusChange) (result *TransitionResult, err error) {
	ctx, done := e.observe(ctx, "set_status", id)
	defer func() { done(err) }()

	parsed, ok := models.ParseStatus(string(target))
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown status %q", target))
	}
	target = parsed
	if target != models.StatusHired && !change.Hire.IsZero() {
		return nil, errors.NewValidationError("hire details can only be set when moving to HIRED")
	}

	var events []models.EventKind
	err = e.withRecordLock(ctx, id, func() error {
		return e.store.WithinTx(ctx, func(tx Tx) error {
			rec, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}

			from := rec.Status
			if !CanTransition(from, target) {
				terr := errors.NewInvalidTransitionError(string(from), string(target))
				terr.Metadata["allowed"] = AllowedTargets(from)
				return terr
			}

			now := e.now()
			events = events[:0]
			for _, eff := range effectsOf(target) {
				switch eff := eff.(type) {
				case markReviewed:
					if rec.ReviewedAt == nil {
						rec.ReviewedAt = &now
					}
				case markHired:
					hire := rec.Hire.Merge(change.Hire)
					if missing := hire.Missing(); len(missing) > 0 {
						return errors.NewIncompleteHireDetailsError(missing)
					}
					rec.Hire = hire
					if from != models.StatusHired || rec.HiredAt == nil {
						rec.HiredAt = &now
					}
				case notify:
					events = append(events, eff.kind)
				}
			}

			if change.AdminNotes != nil {
				rec.AdminNotes = *change.AdminNotes
			}
			rec.Status = target
			rec.UpdatedAt = now
			if err := tx.Save(ctx, rec); err != nil {
				return err
			}

			result = &TransitionResult{Record: rec, PreviousStatus: from}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	rec := result.Record
	metrics.LifecycleTransitions.WithLabelValues(string(result.PreviousStatus), string(target)).Inc()
	e.logger.Info("Application status changed", map[string]interface{}{
		"applicationId": id,
		"from":          result.PreviousStatus,
		"to":            target,
	})
	e.audit(ctx, "status_changed", id, map[string]interface{}{
		"from": result.PreviousStatus,
		"to":   target,
	})
	for _, kind := range events {
		e.enqueue(models.Event{
			Kind:      kind,
			Applicant: models.ApplicantOf(rec),
			Notes:     rec.AdminNotes,
		})
	}
	return result, nil
}

// ==========================
// AcceptOffer
// ==========================

// AcceptOffer provisions the staff account and marks the offer accepted in
// one transaction. A second call fails with AlreadyAccepted.
func (e *Engine) AcceptOffer(ctx context.Context, id int64) (result *AcceptResult, err error) {
	ctx, done := e.observe(ctx, "accept_offer", id)
	defer func() { done(err) }()

	var password string
	err = e.withRecordLock(ctx, id, func() error {
		return e.store.WithinTx(ctx, func(tx Tx) error {
			rec, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if rec.OfferAccepted || rec.Status == models.StatusOfferAccepted {
				return errors.NewAlreadyAcceptedError(id)
			}
			if rec.Status != models.StatusHired {
				return errors.NewInvalidStateError("acceptOffer", string(rec.Status))
			}

			provisioned, err := e.provisioner.Provision(ctx, tx.Identities(), rec)
			if err != nil {
				return err
			}

			staffID := provisioned.Account.ID
			rec.OfferAccepted = true
			rec.Status = models.StatusOfferAccepted
			rec.StaffAccountID = &staffID
			rec.UpdatedAt = e.now()
			if err := tx.Save(ctx, rec); err != nil {
				return err
			}

			password = provisioned.TemporaryPassword
			result = &AcceptResult{Record: rec, Account: provisioned.Account}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	rec := result.Record
	metrics.LifecycleTransitions.WithLabelValues(string(models.StatusHired), string(models.StatusOfferAccepted)).Inc()
	e.logger.Info("Offer accepted", map[string]interface{}{
		"applicationId":  id,
		"staffAccountId": result.Account.ID,
	})
	e.audit(ctx, "offer_accepted", id, map[string]interface{}{
		"staffAccountId": result.Account.ID,
		"username":       result.Account.Username,
	})
	e.enqueue(models.Event{
		Kind:      models.EventAccountCreated,
		Applicant: models.ApplicantOf(rec),
		Credentials: &models.Credentials{
			Username:          result.Account.Username,
			TemporaryPassword: password,
		},
	})
	return result, nil
}

// ==========================
// Update / Delete
// ==========================

// Update patches a record. The status never changes here.
func (e *Engine) Update(ctx context.Context, id int64, patch models.ApplicationPatch) (rec *models.ApplicationRecord, err error) {
	ctx, done := e.observe(ctx, "update", id)
	defer func() { done(err) }()

	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	err = e.withRecordLock(ctx, id, func() error {
		return e.store.WithinTx(ctx, func(tx Tx) error {
			current, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if patch.TouchesHireDetails() &&
				current.Status != models.StatusHired && current.Status != models.StatusOfferAccepted {
				return errors.NewValidationError(fmt.Sprintf(
					"hire details can only be changed from HIRED onward, application is %s", current.Status))
			}
			if patch.Email != nil {
				email := models.NormalizeEmail(*patch.Email)
				if email != current.Email {
					taken, err := tx.EmailTaken(ctx, email, id)
					if err != nil {
						return err
					}
					if taken {
						return errors.NewDuplicateApplicationError(email)
					}
				}
			}

			patch.ApplyTo(current)
			current.UpdatedAt = e.now()
			if err := tx.Save(ctx, current); err != nil {
				return err
			}
			rec = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.audit(ctx, "application_updated", id, nil)
	return rec, nil
}

func validatePatch(p models.ApplicationPatch) error {
	if p.FullName != nil && strings.TrimSpace(*p.FullName) == "" {
		return errors.NewValidationError("fullName must not be blank")
	}
	if p.Email != nil && !validation.ValidateEmail(models.NormalizeEmail(*p.Email)) {
		return errors.NewValidationError(fmt.Sprintf("email %q is not a valid address", *p.Email))
	}
	if p.Position != nil && strings.TrimSpace(*p.Position) == "" {
		return errors.NewValidationError("position must not be blank")
	}
	if p.Stipend != nil && *p.Stipend < 0 {
		return errors.NewValidationError("stipend must not be negative")
	}
	return nil
}

// Delete removes a record in any state. A linked staff account is kept.
func (e *Engine) Delete(ctx context.Context, id int64) (err error) {
	ctx, done := e.observe(ctx, "delete", id)
	defer func() { done(err) }()

	var staffID *int64
	err = e.withRecordLock(ctx, id, func() error {
		return e.store.WithinTx(ctx, func(tx Tx) error {
			rec, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if rec.StaffAccountID != nil && e.protectProvisioned {
				return errors.NewLinkedAccountExistsError(id, *rec.StaffAccountID)
			}
			staffID = rec.StaffAccountID
			return tx.Delete(ctx, id)
		})
	})
	if err != nil {
		return err
	}

	fields := map[string]interface{}{"applicationId": id}
	if staffID != nil {
		fields["staffAccountId"] = *staffID
		e.logger.Warn("Deleted application still has a staff account", fields)
	} else {
		e.logger.Info("Application deleted", fields)
	}
	e.audit(ctx, "application_deleted", id, fields)
	return nil
}

// ==========================
// Queries
// ==========================

func (e *Engine) Get(ctx context.Context, id int64) (*models.ApplicationRecord, error) {
	return e.store.Get(ctx, id)
}

// List returns every application, newest first.
func (e *Engine) List(ctx context.Context) ([]*models.ApplicationRecord, error) {
	return e.store.List(ctx, models.ApplicationFilter{})
}

func (e *Engine) ListByStatus(ctx context.Context, status models.ApplicationStatus) ([]*models.ApplicationRecord, error) {
	parsed, ok := models.ParseStatus(string(status))
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown status %q", status))
	}
	return e.store.List(ctx, models.ApplicationFilter{Status: &parsed})
}

// ==========================
// Candidate emails
// ==========================

// SendOfferLetter queues the offer letter, optionally with the rendered PDF.
func (e *Engine) SendOfferLetter(ctx context.Context, id int64, attachment *models.Attachment) (bool, error) {
	rec, err := e.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if rec.Status != models.StatusHired && rec.Status != models.StatusOfferAccepted {
		return false, errors.NewInvalidStateError("sendOfferLetter", string(rec.Status))
	}
	if attachment != nil && (attachment.Filename == "" || len(attachment.Data) == 0) {
		return false, errors.NewValidationError("attachment needs a filename and content")
	}
	return e.enqueue(models.Event{
		Kind:       models.EventOfferLetter,
		Applicant:  models.ApplicantOf(rec),
		Attachment: attachment,
	}), nil
}

func (e *Engine) SendInterviewInvitation(ctx context.Context, id int64, details models.InterviewDetails) (bool, error) {
	var missing []string
	if strings.TrimSpace(details.Date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(details.Time) == "" {
		missing = append(missing, "time")
	}
	if strings.TrimSpace(details.MeetLink) == "" {
		missing = append(missing, "meetLink")
	}
	if len(missing) > 0 {
		return false, errors.NewValidationError("interview is missing " + strings.Join(missing, ", "))
	}

	rec, err := e.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if rec.Status.Terminal() {
		return false, errors.NewInvalidStateError("sendInterviewInvitation", string(rec.Status))
	}
	return e.enqueue(models.Event{
		Kind:      models.EventInterviewInvitation,
		Applicant: models.ApplicantOf(rec),
		Interview: &details,
	}), nil
}

func (e *Engine) SendRejection(ctx context.Context, id int64, notes string) (bool, error) {
	rec, err := e.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if rec.Status == models.StatusOfferAccepted {
		return false, errors.NewInvalidStateError("sendRejection", string(rec.Status))
	}
	return e.enqueue(models.Event{
		Kind:      models.EventRejection,
		Applicant: models.ApplicantOf(rec),
		Notes:     notes,
	}), nil
}

// ==========================
// Helpers
// ==========================

func (e *Engine) withRecordLock(ctx context.Context, id int64, fn func() error) error {
	release, err := e.locker.Acquire(ctx, lock.RecordKey(id))
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (e *Engine) enqueue(evt models.Event) bool {
	if e.notifier == nil {
		return false
	}
	return e.notifier.Enqueue(evt)
}

// audit is best effort; the operation has already committed.
func (e *Engine) audit(ctx context.Context, eventType string, id int64, details map[string]interface{}) {
	entry := models.AuditEntry{
		EventType:    eventType,
		ResourceType: models.AuditResource,
		ResourceID:   strconv.FormatInt(id, 10),
		Details:      details,
		CreatedAt:    e.now(),
	}
	if err := e.store.AppendAudit(ctx, entry); err != nil {
		e.logger.Warn("Audit log insert failed", map[string]interface{}{
			"applicationId": id,
			"eventType":     eventType,
			"error":         err,
		})
	}
}

func (e *Engine) observe(ctx context.Context, op string, id int64) (context.Context, func(error)) {
	ctx, span := e.obs.StartSpan(ctx, "lifecycle."+op, attribute.Int64("application.id", id))
	start := time.Now()
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = string(errors.CodeOf(err))
			span.RecordError(err)
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		span.End()
		if e.obs != nil {
			e.obs.RecordOperation(ctx, op, outcome, time.Since(start))
		}
	}
}
