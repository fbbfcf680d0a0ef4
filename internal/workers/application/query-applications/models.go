package queryapplications

import "codavert-workers/internal/models"

// Input selects one application by id, or lists them, optionally filtered by
// status.
type Input struct {
	ApplicationID int64  `json:"applicationId,omitempty"`
	Status        string `json:"status,omitempty"`
}

type Output struct {
	Applications []*models.ApplicationRecord `json:"applications"`
	Count        int                         `json:"count"`
}
