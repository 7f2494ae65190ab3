package models

import "time"

// LeadStatus is the lifecycle status of a lead
type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "new"
	LeadStatusContacted    LeadStatus = "contacted"
	LeadStatusEngaged      LeadStatus = "engaged"
	LeadStatusQualified    LeadStatus = "qualified"
	LeadStatusConverted    LeadStatus = "converted"
	LeadStatusUnresponsive LeadStatus = "unresponsive"
	LeadStatusContested    LeadStatus = "contested"
)

// Lead is a prospective counterparty being pursued by campaigns.
// Email is unique within an organization.
type Lead struct {
	ID              string     `json:"id"`
	OrganizationID  string     `json:"organization_id"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Status          LeadStatus `json:"status"`
	Source          string     `json:"source,omitempty"`
	ResponseCount   int        `json:"response_count"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`
	ConvertedAt     *time.Time `json:"converted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// FullName returns the lead's display name
func (l *Lead) FullName() string {
	if l.FirstName == "" {
		return l.LastName
	}
	if l.LastName == "" {
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}

// LeadListFilter for listing leads
type LeadListFilter struct {
	Status      LeadStatus
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Skip        int
	Take        int
}

// LeadRecord is one raw record in an import batch
type LeadRecord struct {
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Source    string `json:"source,omitempty"`
}

// ImportResult summarizes a batch import
type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}
