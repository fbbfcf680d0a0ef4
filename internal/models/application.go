// internal/models/application.go
package models

import (
	"strings"
	"time"
)

type ApplicationStatus string

const (
	StatusNew           ApplicationStatus = "NEW"
	StatusReviewing     ApplicationStatus = "REVIEWING"
	StatusShortlisted   ApplicationStatus = "SHORTLISTED"
	StatusInterviewed   ApplicationStatus = "INTERVIEWED"
	StatusHired         ApplicationStatus = "HIRED"
	StatusOfferAccepted ApplicationStatus = "OFFER_ACCEPTED"
	StatusRejected      ApplicationStatus = "REJECTED"
	StatusWithdrawn     ApplicationStatus = "WITHDRAWN"
)

var AllStatuses = []ApplicationStatus{
	StatusNew,
	StatusReviewing,
	StatusShortlisted,
	StatusInterviewed,
	StatusHired,
	StatusOfferAccepted,
	StatusRejected,
	StatusWithdrawn,
}

func ParseStatus(s string) (ApplicationStatus, bool) {
	candidate := ApplicationStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range AllStatuses {
		if st == candidate {
			return st, true
		}
	}
	return "", false
}

func (s ApplicationStatus) String() string { return string(s) }

// Terminal reports whether no further transition may leave s.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusOfferAccepted || s == StatusRejected || s == StatusWithdrawn
}

// HireDetails is populated from HIRED onward.
type HireDetails struct {
	AssignedRole   string   `json:"assignedRole,omitempty"`
	Stipend        *float64 `json:"stipend,omitempty"`
	JoiningDate    string   `json:"joiningDate,omitempty"`
	EmploymentType string   `json:"employmentType,omitempty"`
	Department     string   `json:"department,omitempty"`
	WorkLocation   string   `json:"workLocation,omitempty"`
}

// Missing lists the required hire fields that are blank. Department and
// work location are optional.
func (h HireDetails) Missing() []string {
	var missing []string
	if strings.TrimSpace(h.AssignedRole) == "" {
		missing = append(missing, "assignedRole")
	}
	if h.Stipend == nil {
		missing = append(missing, "stipend")
	}
	if strings.TrimSpace(h.JoiningDate) == "" {
		missing = append(missing, "joiningDate")
	}
	if strings.TrimSpace(h.EmploymentType) == "" {
		missing = append(missing, "employmentType")
	}
	return missing
}

// Merge overlays the non-empty fields of other onto h.
func (h HireDetails) Merge(other HireDetails) HireDetails {
	if other.AssignedRole != "" {
		h.AssignedRole = other.AssignedRole
	}
	if other.Stipend != nil {
		v := *other.Stipend
		h.Stipend = &v
	}
	if other.JoiningDate != "" {
		h.JoiningDate = other.JoiningDate
	}
	if other.EmploymentType != "" {
		h.EmploymentType = other.EmploymentType
	}
	if other.Department != "" {
		h.Department = other.Department
	}
	if other.WorkLocation != "" {
		h.WorkLocation = other.WorkLocation
	}
	return h
}

func (h HireDetails) IsZero() bool {
	return h.AssignedRole == "" && h.Stipend == nil && h.JoiningDate == "" &&
		h.EmploymentType == "" && h.Department == "" && h.WorkLocation == ""
}

// ApplicantData is what a candidate submits.
type ApplicantData struct {
	FullName          string `json:"fullName"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Position          string `json:"position"`
	CoverLetter       string `json:"coverLetter,omitempty"`
	ResumeURL         string `json:"resumeUrl,omitempty"`
	PortfolioURL      string `json:"portfolioUrl,omitempty"`
	LinkedinURL       string `json:"linkedinUrl,omitempty"`
	GithubURL         string `json:"githubUrl,omitempty"`
	YearsOfExperience *int   `json:"yearsOfExperience,omitempty"`
	Skills            string `json:"skills,omitempty"`
}

type ApplicationRecord struct {
	ID                int64             `json:"id"`
	FullName          string            `json:"fullName"`
	Email             string            `json:"email"`
	Phone             string            `json:"phone"`
	Position          string            `json:"position"`
	CoverLetter       string            `json:"coverLetter,omitempty"`
	ResumeURL         string            `json:"resumeUrl,omitempty"`
	PortfolioURL      string            `json:"portfolioUrl,omitempty"`
	LinkedinURL       string            `json:"linkedinUrl,omitempty"`
	GithubURL         string            `json:"githubUrl,omitempty"`
	YearsOfExperience *int              `json:"yearsOfExperience,omitempty"`
	Skills            string            `json:"skills,omitempty"`
	Status            ApplicationStatus `json:"status"`
	AdminNotes        string            `json:"adminNotes,omitempty"`
	Hire              HireDetails       `json:"hire"`
	OfferAccepted     bool              `json:"offerAccepted"`
	StaffAccountID    *int64            `json:"staffAccountId,omitempty"`
	AppliedAt         time.Time         `json:"appliedAt"`
	ReviewedAt        *time.Time        `json:"reviewedAt,omitempty"`
	HiredAt           *time.Time        `json:"hiredAt,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// Clone returns a deep copy so stores never share pointers with callers.
func (r *ApplicationRecord) Clone() *ApplicationRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.YearsOfExperience != nil {
		v := *r.YearsOfExperience
		c.YearsOfExperience = &v
	}
	if r.Hire.Stipend != nil {
		v := *r.Hire.Stipend
		c.Hire.Stipend = &v
	}
	if r.StaffAccountID != nil {
		v := *r.StaffAccountID
		c.StaffAccountID = &v
	}
	if r.ReviewedAt != nil {
		v := *r.ReviewedAt
		c.ReviewedAt = &v
	}
	if r.HiredAt != nil {
		v := *r.HiredAt
		c.HiredAt = &v
	}
	return &c
}

// NewApplicationRecord builds a NEW record from submitted data.
func NewApplicationRecord(data ApplicantData, now time.Time) *ApplicationRecord {
	return &ApplicationRecord{
		FullName:          strings.TrimSpace(data.FullName),
		Email:             NormalizeEmail(data.Email),
		Phone:             strings.TrimSpace(data.Phone),
		Position:          strings.TrimSpace(data.Position),
		CoverLetter:       data.CoverLetter,
		ResumeURL:         data.ResumeURL,
		PortfolioURL:      data.PortfolioURL,
		LinkedinURL:       data.LinkedinURL,
		GithubURL:         data.GithubURL,
		YearsOfExperience: data.YearsOfExperience,
		Skills:            data.Skills,
		Status:            StatusNew,
		AppliedAt:         now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ApplicationPatch is a partial update. Nil fields are left untouched.
type ApplicationPatch struct {
	FullName          *string  `json:"fullName,omitempty"`
	Email             *string  `json:"email,omitempty"`
	Phone             *string  `json:"phone,omitempty"`
	Position          *string  `json:"position,omitempty"`
	CoverLetter       *string  `json:"coverLetter,omitempty"`
	ResumeURL         *string  `json:"resumeUrl,omitempty"`
	PortfolioURL      *string  `json:"portfolioUrl,omitempty"`
	LinkedinURL       *string  `json:"linkedinUrl,omitempty"`
	GithubURL         *string  `json:"githubUrl,omitempty"`
	YearsOfExperience *int     `json:"yearsOfExperience,omitempty"`
	Skills            *string  `json:"skills,omitempty"`
	AdminNotes        *string  `json:"adminNotes,omitempty"`
	AssignedRole      *string  `json:"assignedRole,omitempty"`
	Stipend           *float64 `json:"stipend,omitempty"`
	JoiningDate       *string  `json:"joiningDate,omitempty"`
	EmploymentType    *string  `json:"employmentType,omitempty"`
	Department        *string  `json:"department,omitempty"`
	WorkLocation      *string  `json:"workLocation,omitempty"`
}

func (p ApplicationPatch) TouchesHireDetails() bool {
	return p.AssignedRole != nil || p.Stipend != nil || p.JoiningDate != nil ||
		p.EmploymentType != nil || p.Department != nil || p.WorkLocation != nil
}

// ApplyTo writes the patch onto r. It never touches status or the
// acceptance fields.
func (p ApplicationPatch) ApplyTo(r *ApplicationRecord) {
	setString(&r.FullName, p.FullName)
	if p.Email != nil {
		r.Email = NormalizeEmail(*p.Email)
	}
	setString(&r.Phone, p.Phone)
	setString(&r.Position, p.Position)
	setString(&r.CoverLetter, p.CoverLetter)
	setString(&r.ResumeURL, p.ResumeURL)
	setString(&r.PortfolioURL, p.PortfolioURL)
	setString(&r.LinkedinURL, p.LinkedinURL)
	setString(&r.GithubURL, p.GithubURL)
	if p.YearsOfExperience != nil {
		v := *p.YearsOfExperience
		r.YearsOfExperience = &v
	}
	setString(&r.Skills, p.Skills)
	setString(&r.AdminNotes, p.AdminNotes)
	setString(&r.Hire.AssignedRole, p.AssignedRole)
	if p.Stipend != nil {
		v := *p.Stipend
		r.Hire.Stipend = &v
	}
	setString(&r.Hire.JoiningDate, p.JoiningDate)
	setString(&r.Hire.EmploymentType, p.EmploymentType)
	setString(&r.Hire.Department, p.Department)
	setString(&r.Hire.WorkLocation, p.WorkLocation)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// StatusChange carries the optional payload of a status update.
type StatusChange struct {
	AdminNotes *string     `json:"adminNotes,omitempty"`
	Hire       HireDetails `json:"hire"`
}

// ApplicationFilter narrows List. A zero filter lists everything.
type ApplicationFilter struct {
	Status *ApplicationStatus
}
