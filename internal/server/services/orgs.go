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

// OrgService manages organizations and their memberships.
//
// Mutations are owner-only. A caller that does not own the organization
// gets common.ErrorNotFound, so existence is not revealed.
type OrgService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	events      events
	logger      logging.Logger
}

func NewOrgService(db *sql.DB, m repomanager.RepositoryManager, r activity.Recorder, l logging.Logger) *OrgService {
	l = l.With("module", "org_service")
	return &OrgService{db: db, repomanager: m, events: newEvents(r, l), logger: l}
}

// Create adds a collaborative organization owned by ownerID. A taken name,
// compared case-insensitively, is a Conflict on "name".
func (s *OrgService) Create(ctx context.Context, name, ownerID string) (*models.Organization, error) {
	name, err := checkName("name", name)
	if err != nil {
		return nil, err
	}
	if err := checkID("owner", ownerID); err != nil {
		return nil, err
	}

	var org *models.Organization
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		org, err = s.repomanager.Orgs(tx).Create(ctx, &models.Organization{Name: name, Kind: models.OrgKindCollaborative})
		if err != nil {
			return err
		}
		return s.repomanager.Memberships(tx).AddOrgMember(ctx, models.OrgMembership{OrgID: org.ID, UserID: ownerID, IsOwner: true})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "organization created", "org_id", org.ID, "owner", ownerID)
	s.events.emit(ctx, activity.Event{
		Type: activity.TypeOrganization, Phase: activity.PhaseCreate,
		ActorID: ownerID, UserID: ownerID, OrgID: org.ID,
	})
	return org, nil
}

// Get returns the organization with its workspaces.
func (s *OrgService) Get(ctx context.Context, id string) (*models.Organization, error) {
	if err := checkID("org", id); err != nil {
		return nil, err
	}
	org, err := s.repomanager.Orgs(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withWorkspaces(ctx, org)
}

func (s *OrgService) GetByName(ctx context.Context, name string) (*models.Organization, error) {
	org, err := s.repomanager.Orgs(s.db).GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.withWorkspaces(ctx, org)
}

func (s *OrgService) withWorkspaces(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	ws, err := s.repomanager.Workspaces(s.db).GetByOrg(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	org.Workspaces = ws
	return org, nil
}

func (s *OrgService) ListAll(ctx context.Context) ([]models.Organization, error) {
	return s.repomanager.Orgs(s.db).ListAll(ctx)
}

// GetMany returns the known organizations among ids. Unknown and malformed
// ids are skipped.
func (s *OrgService) GetMany(ctx context.Context, ids []string) ([]models.Organization, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if checkID("org", id) == nil {
			valid = append(valid, id)
		}
	}
	return s.repomanager.Orgs(s.db).GetMany(ctx, valid)
}

func (s *OrgService) GetByUser(ctx context.Context, userID string) ([]models.Organization, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	return s.repomanager.Orgs(s.db).GetByUser(ctx, userID)
}

func (s *OrgService) GetWorkspaces(ctx context.Context, orgID string) ([]models.Workspace, error) {
	if err := checkID("org", orgID); err != nil {
		return nil, err
	}
	if _, err := s.repomanager.Orgs(s.db).Get(ctx, orgID); err != nil {
		return nil, err
	}
	return s.repomanager.Workspaces(s.db).GetByOrg(ctx, orgID)
}

// Rename changes the organization name. The new name must be free.
func (s *OrgService) Rename(ctx context.Context, actorID, orgID, newName string) error {
	newName, err := checkName("name", newName)
	if err != nil {
		return err
	}
	org, err := s.owned(ctx, actorID, orgID)
	if err != nil {
		return err
	}

	oldName := org.Name
	if oldName == newName {
		return nil
	}
	org.Name = newName
	if err := s.repomanager.Orgs(s.db).Save(ctx, org); err != nil {
		return err
	}

	s.logger.Info(ctx, "organization renamed", "org_id", orgID, "actor", actorID)
	s.events.emit(ctx, activity.Event{
		Type: activity.TypeOrganization, Phase: activity.PhaseRename,
		ActorID: actorID, UserID: actorID, OrgID: orgID,
		Payload: map[string]any{"old_name": oldName},
	})
	return nil
}

// UpdateSettings replaces the settings blob of the organization.
func (s *OrgService) UpdateSettings(ctx context.Context, actorID, orgID string, settings models.OrgSettings) error {
	org, err := s.owned(ctx, actorID, orgID)
	if err != nil {
		return err
	}

	old := org.Settings
	org.Settings = &settings
	if err := s.repomanager.Orgs(s.db).Save(ctx, org); err != nil {
		return err
	}

	s.logger.Info(ctx, "organization settings updated", "org_id", orgID, "actor", actorID)
	s.events.emit(ctx, activity.Event{
		Type: activity.TypeOrganization, Phase: activity.PhaseEdit,
		ActorID: actorID, UserID: actorID, OrgID: orgID,
		Payload: map[string]any{"old_settings": old},
	})
	return nil
}

// Delete removes a collaborative organization together with its workspaces
// and memberships. An absent organization is a no-op; a personal one is an
// IllegalOperation and is left untouched.
func (s *OrgService) Delete(ctx context.Context, actorID, orgID string) error {
	if err := checkID("org", orgID); err != nil {
		return err
	}
	org, err := s.repomanager.Orgs(s.db).Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}
	if err := s.requireOwner(ctx, orgID, actorID); err != nil {
		return err
	}

	switch org.Kind {
	case models.OrgKindPersonal:
		return common.NewFieldError(common.ErrorIllegalOperation, "kind", "personal organizations cannot be deleted")
	case models.OrgKindCollaborative:
	default:
		return common.Validation("kind", "unknown organization kind")
	}

	if err := s.repomanager.Orgs(s.db).Delete(ctx, orgID); err != nil {
		return err
	}

	s.logger.Info(ctx, "organization deleted", "org_id", orgID, "actor", actorID)
	s.events.emit(ctx, activity.Event{
		Type: activity.TypeOrganization, Phase: activity.PhaseDelete,
		ActorID: actorID, UserID: actorID, OrgID: orgID,
	})
	return nil
}

func (s *OrgService) IsOwner(ctx context.Context, orgID, userID string) (bool, error) {
	m, err := s.membership(ctx, orgID, userID)
	if err != nil || m == nil {
		return false, err
	}
	return m.IsOwner, nil
}

func (s *OrgService) IsMember(ctx context.Context, orgID, userID string) (bool, error) {
	m, err := s.membership(ctx, orgID, userID)
	return m != nil, err
}

func (s *OrgService) GetMembers(ctx context.Context, orgID string) ([]models.OrgMembership, error) {
	if err := checkID("org", orgID); err != nil {
		return nil, err
	}
	return s.repomanager.Memberships(s.db).ListOrgMembers(ctx, orgID)
}

func (s *OrgService) GetMember(ctx context.Context, orgID, userID string) (*models.OrgMembership, error) {
	if err := checkID("org", orgID); err != nil {
		return nil, err
	}
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	return s.repomanager.Memberships(s.db).GetOrgMember(ctx, orgID, userID)
}

// AddMember adds userID to the organization. The member does not own it
// unless owner is true. Adding an existing member is a Conflict.
func (s *OrgService) AddMember(ctx context.Context, actorID, orgID, userID string, owner bool) error {
	if err := checkID("user", userID); err != nil {
		return err
	}
	if _, err := s.owned(ctx, actorID, orgID); err != nil {
		return err
	}

	m := models.OrgMembership{OrgID: orgID, UserID: userID, IsOwner: owner}
	if err := s.repomanager.Memberships(s.db).AddOrgMember(ctx, m); err != nil {
		return err
	}

	s.logger.Info(ctx, "organization member added", "org_id", orgID, "user_id", userID, "owner", owner)
	s.events.emit(ctx, activity.Event{
		Type: activity.TypeUser, Phase: activity.PhaseLinkOrg,
		ActorID: actorID, UserID: userID, OrgID: orgID,
	})
	return nil
}

func (s *OrgService) membership(ctx context.Context, orgID, userID string) (*models.OrgMembership, error) {
	if checkID("org", orgID) != nil || checkID("user", userID) != nil {
		return nil, nil
	}
	m, err := s.repomanager.Memberships(s.db).GetOrgMember(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// owned loads the organization if actorID owns it, and reports
// ErrorNotFound otherwise.
func (s *OrgService) owned(ctx context.Context, actorID, orgID string) (*models.Organization, error) {
	if err := checkID("org", orgID); err != nil {
		return nil, err
	}
	org, err := s.repomanager.Orgs(s.db).Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, orgID, actorID); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *OrgService) requireOwner(ctx context.Context, orgID, actorID string) error {
	owner, err := s.IsOwner(ctx, orgID, actorID)
	if err != nil {
		return err
	}
	if !owner {
		return common.ErrorNotFound
	}
	return nil
}
