package domain

import "time"

// SourceID identifies a job-board source.
type SourceID string

const (
	SourceIndeed         SourceID = "indeed"
	SourceGlassdoor      SourceID = "glassdoor"
	SourceLinkedInAlerts SourceID = "linkedin-alerts"
)

// JobRecord is the canonical shape every source result is mapped into.
// URL (after canonicalization) is the record's identity.
type JobRecord struct {
	Source        SourceID   `json:"source"`
	Title         string     `json:"title"`
	Company       string     `json:"company"`
	Location      string     `json:"location"`
	DatePosted    *time.Time `json:"date_posted,omitempty"`
	JobType       string     `json:"job_type,omitempty"`
	URL           string     `json:"url"`
	Description   string     `json:"description,omitempty"`
	SearchCountry string     `json:"search_country"`
	SearchRole    string     `json:"search_role"`
	ScrapedAt     time.Time  `json:"scraped_at"`
	VisaMentioned bool       `json:"visa_mentioned"`
	Note          string     `json:"note,omitempty"`
}

// SearchTask is one (role, country, source) query unit.
type SearchTask struct {
	Role    string
	Country string
	Source  SourceID
}

type TaskFailure struct {
	Task   SearchTask `json:"task"`
	Reason string     `json:"reason"`
}
