package sendcandidateemail

import "codavert-workers/internal/models"

const (
	EmailOfferLetter         = "offer-letter"
	EmailInterviewInvitation = "interview-invitation"
	EmailRejection           = "rejection"
)

type Input struct {
	ApplicationID int64                    `json:"applicationId"`
	EmailType     string                   `json:"emailType"`
	Notes         string                   `json:"notes,omitempty"`
	Interview     *models.InterviewDetails `json:"interview,omitempty"`
	Attachment    *AttachmentInput         `json:"attachment,omitempty"`
}

// AttachmentInput carries file content base64 encoded, since process
// variables are JSON.
type AttachmentInput struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
	Data        string `json:"data"`
}

type Output struct {
	ApplicationID int64  `json:"applicationId"`
	EmailType     string `json:"emailType"`
	Queued        bool   `json:"queued"`
}
