package models

import "time"

// Schedule is a request to run an experiment repeatedly. Cron and Repeat are
// optional; a nil Repeat means no bound.
type Schedule struct {
	ID           string
	UserID       string
	OrgID        string
	WorkspaceID  string
	ExperimentID string
	TokenID      string
	Cron         *string
	ActiveFrom   time.Time
	ActiveUntil  *time.Time
	Repeat       *int
	Status       string
}

// ScheduleListing is a Schedule enriched for display.
type ScheduleListing struct {
	Schedule
	OrgName         string
	WorkspaceName   string
	UserName        string
	UserOrgName     string
	ExperimentTitle string
	Plan            []time.Time
}

// Experiment is the read-only subset of an experiment record used to
// enrich listings.
type Experiment struct {
	ID          string
	Title       string
	OrgID       string
	WorkspaceID string
}
