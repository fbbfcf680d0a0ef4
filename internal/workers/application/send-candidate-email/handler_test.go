package sendcandidateemail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/common/logger"
	"codavert-workers/internal/lifecycle/lifecycletest"
	"codavert-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMockJob(variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       11,
		Type:      TaskType,
		Retries:   1,
		Variables: string(variablesJSON),
	}}
}

func newTestHandler(t *testing.T, engine EmailSender) *Handler {
	h, err := NewHandler(HandlerOptions{
		CustomConfig: DefaultConfig(),
		Engine:       engine,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func TestHandler_OfferLetterWithAttachment(t *testing.T) {
	f := lifecycletest.New(t)
	h := newTestHandler(t, f.Engine)
	rec := f.Hire(t, "offer@example.com")

	input, err := h.parseInput(createMockJob(map[string]interface{}{
		"applicationId": rec.ID,
		"emailType":     EmailOfferLetter,
		"attachment": map[string]interface{}{
			"filename": "offer.pdf",
			"data":     base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 offer")),
		},
	}))
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, out.Queued)

	evt := f.Notifier.Last()
	assert.Equal(t, models.EventOfferLetter, evt.Kind)
	require.NotNil(t, evt.Attachment)
	assert.Equal(t, "application/pdf", evt.Attachment.ContentType)
	assert.Equal(t, []byte("%PDF-1.4 offer"), evt.Attachment.Data)
}

func TestHandler_InterviewInvitation(t *testing.T) {
	f := lifecycletest.New(t)
	h := newTestHandler(t, f.Engine)
	rec := f.Submit(t, "interview@example.com")

	_, err := h.Execute(context.Background(), &Input{ApplicationID: rec.ID, EmailType: EmailInterviewInvitation})
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.CodeOf(err))

	out, err := h.Execute(context.Background(), &Input{
		ApplicationID: rec.ID,
		EmailType:     EmailInterviewInvitation,
		Interview: &models.InterviewDetails{
			Date:     "2025-02-01",
			Time:     "10:30",
			MeetLink: "https://meet.example.com/xyz",
		},
	})
	require.NoError(t, err)
	assert.True(t, out.Queued)
	assert.Equal(t, models.EventInterviewInvitation, f.Notifier.Last().Kind)
}

func TestHandler_Rejection(t *testing.T) {
	f := lifecycletest.New(t)
	h := newTestHandler(t, f.Engine)
	rec := f.Submit(t, "reject@example.com")

	_, err := h.Execute(context.Background(), &Input{ApplicationID: rec.ID, EmailType: EmailRejection, Notes: "Role closed"})
	require.NoError(t, err)
	assert.Equal(t, "Role closed", f.Notifier.Last().Notes)
}

func TestHandler_InvalidInput(t *testing.T) {
	f := lifecycletest.New(t)
	h := newTestHandler(t, f.Engine)
	rec := f.Hire(t, "bad@example.com")

	_, err := h.parseInput(createMockJob(map[string]interface{}{"applicationId": rec.ID, "emailType": "welcome"}))
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.CodeOf(err))

	_, err = h.Execute(context.Background(), &Input{
		ApplicationID: rec.ID,
		EmailType:     EmailOfferLetter,
		Attachment:    &AttachmentInput{Filename: "offer.pdf", Data: "***"},
	})
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.CodeOf(err))
}
