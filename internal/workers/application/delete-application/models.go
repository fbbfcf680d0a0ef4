package deleteapplication

type Input struct {
	ApplicationID int64 `json:"applicationId"`
}

type Output struct {
	ApplicationID int64 `json:"applicationId"`
	Deleted       bool  `json:"deleted"`
}
