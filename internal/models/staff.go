// internal/models/staff.go
package models

import "time"

const (
	RoleStaff     = "STAFF"
	StatusActive  = "ACTIVE"
	AuditResource = "job_application"
)

// StaffAccount is the login identity created when an offer is accepted.
type StaffAccount struct {
	ID                 int64     `json:"id"`
	Username           string    `json:"username"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"`
	FirstName          string    `json:"firstName"`
	LastName           string    `json:"lastName"`
	Phone              string    `json:"phone,omitempty"`
	Role               string    `json:"role"`
	Status             string    `json:"status"`
	MustRotatePassword bool      `json:"mustRotatePassword"`
	CreatedAt          time.Time `json:"createdAt"`
}

// AuditEntry is one row of audit_log.
type AuditEntry struct {
	EventType    string                 `json:"eventType"`
	ResourceType string                 `json:"resourceType"`
	ResourceID   string                 `json:"resourceId"`
	Details      map[string]interface{} `json:"details,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}
