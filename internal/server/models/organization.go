package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/accounts/internal/common"
)

// OrgKind is the closed set of organization kinds.
type OrgKind int

const (
	OrgKindCollaborative OrgKind = iota + 1
	OrgKindPersonal
)

func (k OrgKind) String() string {
	switch k {
	case OrgKindPersonal:
		return "personal"
	case OrgKindCollaborative:
		return "collaborative"
	default:
		return fmt.Sprintf("OrgKind(%d)", int(k))
	}
}

// ParseOrgKind maps the stored name of a kind back to its value.
func ParseOrgKind(s string) (OrgKind, error) {
	switch s {
	case "personal":
		return OrgKindPersonal, nil
	case "collaborative":
		return OrgKindCollaborative, nil
	default:
		return 0, common.Validation("kind", fmt.Sprintf("unknown organization kind %q", s))
	}
}

// OrgSettings is the structured settings blob of an organization.
type OrgSettings struct {
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Logo        string `json:"logo,omitempty"`
	Email       string `json:"email,omitempty"`
}

type Organization struct {
	ID         string
	Name       string
	Kind       OrgKind
	Settings   *OrgSettings
	CreatedAt  time.Time
	Workspaces []Workspace
}
