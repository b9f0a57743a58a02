package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/logging"
	"github.com/dmitrijs2005/accounts/internal/server/activity"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/repomanager"
)

// WorkspaceService manages workspaces and their collaborators.
type WorkspaceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	events      events
	logger      logging.Logger
}

func NewWorkspaceService(db *sql.DB, m repomanager.RepositoryManager, r activity.Recorder, l logging.Logger) *WorkspaceService {
	l = l.With("module", "workspace_service")
	return &WorkspaceService{db: db, repomanager: m, events: newEvents(r, l), logger: l}
}

// Create adds a workspace under orgID owned by ownerID. A zero kind means
// public and a nil visibility the default policy. The name must be free in
// the organization; an unknown organization is a validation error on "org".
func (s *WorkspaceService) Create(ctx context.Context, name, orgID, ownerID string,
	visibility *models.WorkspaceVisibility, kind models.WorkspaceKind) (*models.Workspace, error) {

	name, err := checkName("name", name)
	if err != nil {
		return nil, err
	}
	if err := checkID("org", orgID); err != nil {
		return nil, err
	}
	if err := checkID("owner", ownerID); err != nil {
		return nil, err
	}

	switch kind {
	case 0:
		kind = models.WorkspaceKindPublic
	case models.WorkspaceKindPublic, models.WorkspaceKindProtected, models.WorkspaceKindPersonal:
	default:
		return nil, common.Validation("kind", "unknown workspace kind")
	}

	vis := models.DefaultVisibility()
	if visibility != nil {
		if err := visibility.Validate(); err != nil {
			return nil, err
		}
		vis = *visibility
	}

	var ws *models.Workspace
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		ws, err = s.repomanager.Workspaces(tx).Create(ctx, &models.Workspace{
			Name: name, OrgID: orgID, Kind: kind, Visibility: vis,
		})
		if err != nil {
			return err
		}
		return s.repomanager.Memberships(tx).AddWorkspaceMember(ctx,
			models.WorkspaceMembership{WorkspaceID: ws.ID, UserID: ownerID, IsOwner: true})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "workspace created", "workspace_id", ws.ID, "org_id", orgID, "owner", ownerID)
	s.events.emit(ctx, activity.Event{
		Type: activity.TypeWorkspace, Phase: activity.PhaseCreate,
		ActorID: ownerID, UserID: ownerID, OrgID: orgID, WorkspaceID: ws.ID,
	})
	return ws, nil
}

func (s *WorkspaceService) Get(ctx context.Context, id string) (*models.Workspace, error) {
	if err := checkID("workspace", id); err != nil {
		return nil, err
	}
	return s.repomanager.Workspaces(s.db).Get(ctx, id)
}

func (s *WorkspaceService) GetByName(ctx context.Context, orgID, name string) (*models.Workspace, error) {
	if err := checkID("org", orgID); err != nil {
		return nil, err
	}
	return s.repomanager.Workspaces(s.db).GetByName(ctx, orgID, name)
}

// LookupByName resolves "<org>/<workspace>" style references.
func (s *WorkspaceService) LookupByName(ctx context.Context, orgName, name string) (*models.Workspace, error) {
	return s.repomanager.Workspaces(s.db).LookupByName(ctx, orgName, name)
}

func (s *WorkspaceService) ListAll(ctx context.Context) ([]models.Workspace, error) {
	return s.repomanager.Workspaces(s.db).ListAll(ctx)
}

// GetMany skips unknown and malformed ids.
func (s *WorkspaceService) GetMany(ctx context.Context, ids []string) ([]models.Workspace, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if checkID("workspace", id) == nil {
			valid = append(valid, id)
		}
	}
	return s.repomanager.Workspaces(s.db).GetMany(ctx, valid)
}

func (s *WorkspaceService) GetByUser(ctx context.Context, userID string) ([]models.Workspace, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	return s.repomanager.Workspaces(s.db).GetByUser(ctx, userID)
}

// Delete removes a workspace the actor owns, with its memberships. An absent
// workspace is a no-op.
func (s *WorkspaceService) Delete(ctx context.Context, actorID, id string) error {
	if err := checkID("workspace", id); err != nil {
		return err
	}
	ws, err := s.repomanager.Workspaces(s.db).Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}
	owner, err := s.IsOwner(ctx, id, actorID)
	if err != nil {
		return err
	}
	if !owner {
		return common.ErrorNotFound
	}

	if err := s.repomanager.Workspaces(s.db).Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info(ctx, "workspace deleted", "workspace_id", id, "actor", actorID)
	s.events.emit(ctx, activity.Event{
		Type: activity.TypeWorkspace, Phase: activity.PhaseDelete,
		ActorID: actorID, UserID: actorID, OrgID: ws.OrgID, WorkspaceID: id,
	})
	return nil
}

func (s *WorkspaceService) GetCollaborators(ctx context.Context, id string) ([]models.WorkspaceMembership, error) {
	if err := checkID("workspace", id); err != nil {
		return nil, err
	}
	return s.repomanager.Memberships(s.db).ListWorkspaceMembers(ctx, id)
}

func (s *WorkspaceService) GetCollaborator(ctx context.Context, id, userID string) (*models.WorkspaceMembership, error) {
	if err := checkID("workspace", id); err != nil {
		return nil, err
	}
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	return s.repomanager.Memberships(s.db).GetWorkspaceMember(ctx, id, userID)
}

func (s *WorkspaceService) IsOwner(ctx context.Context, id, userID string) (bool, error) {
	m, err := s.collaborator(ctx, id, userID)
	if err != nil || m == nil {
		return false, err
	}
	return m.IsOwner, nil
}

func (s *WorkspaceService) IsCollaborator(ctx context.Context, id, userID string) (bool, error) {
	m, err := s.collaborator(ctx, id, userID)
	return m != nil, err
}

func (s *WorkspaceService) collaborator(ctx context.Context, id, userID string) (*models.WorkspaceMembership, error) {
	m, err := s.GetCollaborator(ctx, id, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorValidation) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}
