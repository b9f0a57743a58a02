package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/logging"
	"github.com/dmitrijs2005/accounts/internal/server/activity"
	"github.com/dmitrijs2005/accounts/internal/server/auth"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/repomanager"
)

// UserService manages users and provisions their personal organization and
// workspace.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	events      events
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, r activity.Recorder, l logging.Logger) *UserService {
	l = l.With("module", "user_service")
	return &UserService{db: db, repomanager: m, events: newEvents(r, l), logger: l}
}

// Create registers a user and, in the same transaction, a personal
// organization and workspace named after them, both owned by the new user.
func (s *UserService) Create(ctx context.Context, username, fullname, email string) (*models.User, error) {
	name, err := checkName("username", username)
	if err != nil {
		return nil, err
	}
	return s.provision(ctx, &models.User{UserName: name, FullName: fullname, Email: email, IsActive: true})
}

// CreateLocal registers a user that authenticates with a password kept here.
func (s *UserService) CreateLocal(ctx context.Context, username, password string) (*models.User, error) {
	name, err := checkName("username", username)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, common.Validation("password", "must not be empty")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return s.provision(ctx, &models.User{UserName: name, IsActive: true, IsLocal: true, PasswordHash: hash})
}

func (s *UserService) provision(ctx context.Context, u *models.User) (*models.User, error) {
	var (
		user *models.User
		org  *models.Organization
		ws   *models.Workspace
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if user, err = s.repomanager.Users(tx).Create(ctx, u); err != nil {
			return err
		}
		if org, err = s.repomanager.Orgs(tx).Create(ctx, &models.Organization{
			Name: user.UserName,
			Kind: models.OrgKindPersonal,
		}); err != nil {
			return err
		}
		if ws, err = s.repomanager.Workspaces(tx).Create(ctx, &models.Workspace{
			Name:       user.UserName,
			OrgID:      org.ID,
			Kind:       models.WorkspaceKindPersonal,
			Visibility: models.DefaultVisibility(),
		}); err != nil {
			return err
		}

		members := s.repomanager.Memberships(tx)
		if err := members.AddOrgMember(ctx, models.OrgMembership{OrgID: org.ID, UserID: user.ID, IsOwner: true}); err != nil {
			return err
		}
		return members.AddWorkspaceMember(ctx, models.WorkspaceMembership{WorkspaceID: ws.ID, UserID: user.ID, IsOwner: true})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user created", "user_id", user.ID, "org_id", org.ID, "workspace_id", ws.ID)
	s.events.emit(ctx,
		activity.Event{Type: activity.TypeUser, Phase: activity.PhaseCreate, ActorID: user.ID, UserID: user.ID},
		activity.Event{Type: activity.TypeOrganization, Phase: activity.PhaseCreate, ActorID: user.ID, UserID: user.ID, OrgID: org.ID},
		activity.Event{Type: activity.TypeWorkspace, Phase: activity.PhaseCreate, ActorID: user.ID, UserID: user.ID, OrgID: org.ID, WorkspaceID: ws.ID},
	)
	return user, nil
}

// ValidatePassword reports whether password is the one of the local user
// userID. Unknown and non-local users never validate.
func (s *UserService) ValidatePassword(ctx context.Context, userID, password string) (bool, error) {
	if err := checkID("user", userID); err != nil {
		return false, err
	}
	u, err := s.repomanager.Users(s.db).Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	if !u.IsLocal {
		return false, nil
	}
	return auth.CheckPassword(u.PasswordHash, password), nil
}

// Get returns the user with their memberships and personal org name.
func (s *UserService) Get(ctx context.Context, id string) (*models.UserDetails, error) {
	if err := checkID("user", id); err != nil {
		return nil, err
	}
	u, err := s.repomanager.Users(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}

	members := s.repomanager.Memberships(s.db)
	details := &models.UserDetails{User: *u}
	if details.Orgs, err = members.ListUserOrgs(ctx, id); err != nil {
		return nil, err
	}
	if details.Workspaces, err = members.ListUserWorkspaces(ctx, id); err != nil {
		return nil, err
	}

	orgs, err := s.repomanager.Orgs(s.db).GetByUser(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, o := range orgs {
		if o.Kind == models.OrgKindPersonal {
			details.PersonalOrgName = o.Name
			break
		}
	}
	return details, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByUsername(ctx, username)
}

// Delete removes the user and their memberships. Organizations the user
// owns, their personal one included, are left in place.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := checkID("user", id); err != nil {
		return err
	}
	if err := s.repomanager.Users(s.db).Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "user deleted", "user_id", id)
	s.events.emit(ctx, activity.Event{Type: activity.TypeUser, Phase: activity.PhaseDelete, ActorID: id, UserID: id})
	return nil
}

// AddOrg links the user to an organization. An existing link is a Conflict.
func (s *UserService) AddOrg(ctx context.Context, userID, orgID string, owner bool) error {
	if err := checkID("user", userID); err != nil {
		return err
	}
	if err := checkID("org", orgID); err != nil {
		return err
	}
	m := models.OrgMembership{OrgID: orgID, UserID: userID, IsOwner: owner}
	if err := s.repomanager.Memberships(s.db).AddOrgMember(ctx, m); err != nil {
		return err
	}
	s.events.emit(ctx, activity.Event{Type: activity.TypeUser, Phase: activity.PhaseLinkOrg, UserID: userID, OrgID: orgID})
	return nil
}

// RemoveOrg unlinks the user from an organization. It may leave the
// organization without any owner.
func (s *UserService) RemoveOrg(ctx context.Context, userID, orgID string) error {
	if err := checkID("user", userID); err != nil {
		return err
	}
	if err := checkID("org", orgID); err != nil {
		return err
	}
	if err := s.repomanager.Memberships(s.db).RemoveOrgMember(ctx, orgID, userID); err != nil {
		return err
	}
	s.events.emit(ctx, activity.Event{Type: activity.TypeUser, Phase: activity.PhaseUnlinkOrg, UserID: userID, OrgID: orgID})
	return nil
}

func (s *UserService) AddWorkspace(ctx context.Context, userID, workspaceID string, owner bool) error {
	if err := checkID("user", userID); err != nil {
		return err
	}
	if err := checkID("workspace", workspaceID); err != nil {
		return err
	}
	m := models.WorkspaceMembership{WorkspaceID: workspaceID, UserID: userID, IsOwner: owner}
	if err := s.repomanager.Memberships(s.db).AddWorkspaceMember(ctx, m); err != nil {
		return err
	}
	s.events.emit(ctx, activity.Event{Type: activity.TypeUser, Phase: activity.PhaseLinkWorkspace, UserID: userID, WorkspaceID: workspaceID})
	return nil
}

func (s *UserService) RemoveWorkspace(ctx context.Context, userID, workspaceID string) error {
	if err := checkID("user", userID); err != nil {
		return err
	}
	if err := checkID("workspace", workspaceID); err != nil {
		return err
	}
	if err := s.repomanager.Memberships(s.db).RemoveWorkspaceMember(ctx, workspaceID, userID); err != nil {
		return err
	}
	s.events.emit(ctx, activity.Event{Type: activity.TypeUser, Phase: activity.PhaseUnlinkWorkspace, UserID: userID, WorkspaceID: workspaceID})
	return nil
}
