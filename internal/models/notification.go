// internal/models/notification.go
package models

import "time"

type EventKind string

const (
	EventApplicationReceived EventKind = "application-received"
	EventOfferLetter         EventKind = "offer-letter"
	EventInterviewInvitation EventKind = "interview-invitation"
	EventRejection           EventKind = "rejection"
	EventAccountCreated      EventKind = "account-created"
)

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

type InterviewDetails struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	MeetLink string `json:"meetLink"`
	Notes    string `json:"notes,omitempty"`
}

// Credentials are only carried by account-created events.
type Credentials struct {
	Username          string `json:"username"`
	TemporaryPassword string `json:"-"`
}

// Applicant is the snapshot of the record taken when the event is raised.
type Applicant struct {
	ApplicationID int64       `json:"applicationId"`
	FullName      string      `json:"fullName"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone,omitempty"`
	Position      string      `json:"position"`
	Hire          HireDetails `json:"hire"`
}

func ApplicantOf(r *ApplicationRecord) Applicant {
	return Applicant{
		ApplicationID: r.ID,
		FullName:      r.FullName,
		Email:         r.Email,
		Phone:         r.Phone,
		Position:      r.Position,
		Hire:          r.Hire,
	}
}

type Event struct {
	ID          string            `json:"id"`
	Kind        EventKind         `json:"kind"`
	Applicant   Applicant         `json:"applicant"`
	Attachment  *Attachment       `json:"attachment,omitempty"`
	Interview   *InterviewDetails `json:"interview,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Credentials *Credentials      `json:"credentials,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}
