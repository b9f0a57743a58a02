package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/accounts/internal/common"
)

// WorkspaceKind is the closed set of workspace kinds.
type WorkspaceKind int

const (
	WorkspaceKindPublic WorkspaceKind = iota + 1
	WorkspaceKindProtected
	WorkspaceKindPersonal
)

func (k WorkspaceKind) String() string {
	switch k {
	case WorkspaceKindPublic:
		return "public"
	case WorkspaceKindProtected:
		return "protected"
	case WorkspaceKindPersonal:
		return "personal"
	default:
		return fmt.Sprintf("WorkspaceKind(%d)", int(k))
	}
}

func ParseWorkspaceKind(s string) (WorkspaceKind, error) {
	switch s {
	case "public":
		return WorkspaceKindPublic, nil
	case "protected":
		return WorkspaceKindProtected, nil
	case "personal":
		return WorkspaceKindPersonal, nil
	default:
		return 0, common.Validation("kind", fmt.Sprintf("unknown workspace kind %q", s))
	}
}

// Visibility is a policy applied to one category of workspace content.
type Visibility string

const (
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
	VisibilityPublic    Visibility = "public"
	VisibilityNone      Visibility = "none"
	VisibilityStatus    Visibility = "status"
	VisibilityFull      Visibility = "full"
)

func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(s); v {
	case VisibilityPrivate, VisibilityProtected, VisibilityPublic,
		VisibilityNone, VisibilityStatus, VisibilityFull:
		return v, nil
	default:
		return "", common.Validation("visibility", fmt.Sprintf("unknown visibility %q", s))
	}
}

// WorkspaceVisibility holds one policy per content category.
type WorkspaceVisibility struct {
	Execution  Visibility `json:"execution"`
	Experiment Visibility `json:"experiment"`
}

// DefaultVisibility is applied when a workspace is created without one.
func DefaultVisibility() WorkspaceVisibility {
	return WorkspaceVisibility{Execution: VisibilityNone, Experiment: VisibilityPublic}
}

// Validate reports an unknown policy in any category.
func (v WorkspaceVisibility) Validate() error {
	if _, err := ParseVisibility(string(v.Execution)); err != nil {
		return common.Validation("visibility.execution", err.Error())
	}
	if _, err := ParseVisibility(string(v.Experiment)); err != nil {
		return common.Validation("visibility.experiment", err.Error())
	}
	return nil
}

type Workspace struct {
	ID         string
	Name       string
	OrgID      string
	Kind       WorkspaceKind
	Visibility WorkspaceVisibility
	CreatedAt  time.Time
}
