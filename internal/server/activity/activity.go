// Package activity records audit events emitted after state changes of the
// account graph.
package activity

import (
	"context"
	"errors"
	"time"
)

// Event types.
const (
	TypeOrganization = "organization"
	TypeWorkspace    = "workspace"
	TypeUser         = "user"
)

// Phases.
const (
	PhaseCreate          = "create"
	PhaseDelete          = "delete"
	PhaseRename          = "rename"
	PhaseEdit            = "edit"
	PhaseLinkOrg         = "link-organization"
	PhaseUnlinkOrg       = "unlink-organization"
	PhaseLinkWorkspace   = "link-workspace"
	PhaseUnlinkWorkspace = "unlink-workspace"
)

// Event is one audit record. Payload is event specific, e.g. {"old_name": ...}
// for a rename.
type Event struct {
	Type        string         `json:"event_type"`
	Phase       string         `json:"phase"`
	ActorID     string         `json:"actor_id,omitempty"`
	UserID      string         `json:"user_id,omitempty"`
	OrgID       string         `json:"org_id,omitempty"`
	WorkspaceID string         `json:"workspace_id,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Recorder receives events after the mutation they describe has committed.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Multi fans an event out to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, e Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }
