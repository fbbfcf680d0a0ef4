package allocatedocumentnumber

// Input.ExistingNumbers carries numbers issued before the counter existed;
// the sequence for the owner is raised past them before allocating.
type Input struct {
	DocumentKind    string   `json:"documentKind"`
	OwnerID         int64    `json:"ownerId"`
	ExistingNumbers []string `json:"existingNumbers,omitempty"`
}

type Output struct {
	DocumentNumber string `json:"documentNumber"`
	Sequence       int64  `json:"sequence"`
}
