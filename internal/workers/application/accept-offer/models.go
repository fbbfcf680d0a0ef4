package acceptoffer

type Input struct {
	ApplicationID int64 `json:"applicationId"`
}

// Output never carries the temporary password; it only travels in the
// welcome email.
type Output struct {
	ApplicationID  int64  `json:"applicationId"`
	StaffAccountID int64  `json:"staffAccountId"`
	Username       string `json:"username"`
	Status         string `json:"status"`
}
