package setapplicationstatus

type Input struct {
	ApplicationID  int64    `json:"applicationId"`
	Status         string   `json:"status"`
	AdminNotes     *string  `json:"adminNotes,omitempty"`
	AssignedRole   string   `json:"assignedRole,omitempty"`
	Stipend        *float64 `json:"stipend,omitempty"`
	JoiningDate    string   `json:"joiningDate,omitempty"`
	EmploymentType string   `json:"employmentType,omitempty"`
	Department     string   `json:"department,omitempty"`
	WorkLocation   string   `json:"workLocation,omitempty"`
}

type Output struct {
	ApplicationID  int64  `json:"applicationId"`
	PreviousStatus string `json:"previousStatus"`
	Status         string `json:"status"`
	HiredAt        string `json:"hiredAt,omitempty"`
}
