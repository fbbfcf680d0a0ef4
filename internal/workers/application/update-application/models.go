package updateapplication

import "codavert-workers/internal/models"

type Input struct {
	ApplicationID int64 `json:"applicationId"`
	models.ApplicationPatch
}

type Output struct {
	Application *models.ApplicationRecord `json:"application"`
}
