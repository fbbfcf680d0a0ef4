package submitapplication

import "codavert-workers/internal/models"

// Input mirrors the public application form.
type Input struct {
	models.ApplicantData
}

type Output struct {
	ApplicationID int64  `json:"applicationId"`
	Status        string `json:"status"`
	AppliedAt     string `json:"appliedAt"` // RFC 3339
}
