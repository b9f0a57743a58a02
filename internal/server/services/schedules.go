package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/logging"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/dmitrijs2005/accounts/internal/server/recurrence"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/repomanager"
)

// ScheduleSource supplies schedules owned by the scheduling service.
type ScheduleSource interface {
	GetByOrg(ctx context.Context, orgID string) ([]models.Schedule, error)
	GetByWorkspace(ctx context.Context, workspaceID string) ([]models.Schedule, error)
	GetByUser(ctx context.Context, userID string) ([]models.Schedule, error)
}

// ExperimentSource supplies read-only experiment records. Get returns
// common.ErrorNotFound for unknown ids.
type ExperimentSource interface {
	Get(ctx context.Context, id string) (*models.Experiment, error)
}

// ScheduleService lists schedules enriched with account names and their
// recurrence plan for a reporting window.
type ScheduleService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	schedules   ScheduleSource
	experiments ExperimentSource
	logger      logging.Logger
}

func NewScheduleService(db *sql.DB, m repomanager.RepositoryManager, ss ScheduleSource, es ExperimentSource, l logging.Logger) *ScheduleService {
	return &ScheduleService{
		db:          db,
		repomanager: m,
		schedules:   ss,
		experiments: es,
		logger:      l.With("module", "schedule_service"),
	}
}

func (s *ScheduleService) ListByOrg(ctx context.Context, orgID string, w recurrence.Window) ([]models.ScheduleListing, error) {
	if err := checkID("org", orgID); err != nil {
		return nil, err
	}
	if _, err := s.repomanager.Orgs(s.db).Get(ctx, orgID); err != nil {
		return nil, err
	}
	list, err := s.schedules.GetByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, list, w)
}

func (s *ScheduleService) ListByWorkspace(ctx context.Context, workspaceID string, w recurrence.Window) ([]models.ScheduleListing, error) {
	if err := checkID("workspace", workspaceID); err != nil {
		return nil, err
	}
	if _, err := s.repomanager.Workspaces(s.db).Get(ctx, workspaceID); err != nil {
		return nil, err
	}
	list, err := s.schedules.GetByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, list, w)
}

func (s *ScheduleService) ListByUser(ctx context.Context, userID string, w recurrence.Window) ([]models.ScheduleListing, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	if _, err := s.repomanager.Users(s.db).Get(ctx, userID); err != nil {
		return nil, err
	}
	list, err := s.schedules.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, list, w)
}

// nameCache memoizes lookups across the schedules of one listing.
type nameCache struct {
	orgs       map[string]string
	workspaces map[string]string
	users      map[string][2]string
}

func (s *ScheduleService) enrich(ctx context.Context, list []models.Schedule, w recurrence.Window) ([]models.ScheduleListing, error) {
	c := nameCache{
		orgs:       map[string]string{},
		workspaces: map[string]string{},
		users:      map[string][2]string{},
	}

	out := make([]models.ScheduleListing, 0, len(list))
	for _, sc := range list {
		l := models.ScheduleListing{Schedule: sc}

		var err error
		if l.OrgName, err = s.orgName(ctx, c, sc.OrgID); err != nil {
			return nil, err
		}
		if l.WorkspaceName, err = s.workspaceName(ctx, c, sc.WorkspaceID); err != nil {
			return nil, err
		}
		names, err := s.userNames(ctx, c, sc.UserID)
		if err != nil {
			return nil, err
		}
		l.UserName, l.UserOrgName = names[0], names[1]

		l.ExperimentTitle = s.experimentTitle(ctx, sc.ExperimentID)

		if sc.Cron != nil {
			plan, err := recurrence.Plan(recurrence.Spec{
				Cron:        sc.Cron,
				ActiveFrom:  sc.ActiveFrom,
				ActiveUntil: sc.ActiveUntil,
				Repeat:      sc.Repeat,
			}, w)
			if err != nil {
				s.logger.Warn(ctx, "schedule cannot be planned", "schedule_id", sc.ID, "error", err)
			} else {
				l.Plan = plan
			}
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *ScheduleService) orgName(ctx context.Context, c nameCache, id string) (string, error) {
	if n, ok := c.orgs[id]; ok {
		return n, nil
	}
	org, err := s.repomanager.Orgs(s.db).Get(ctx, id)
	if err != nil {
		return "", err
	}
	c.orgs[id] = org.Name
	return org.Name, nil
}

func (s *ScheduleService) workspaceName(ctx context.Context, c nameCache, id string) (string, error) {
	if n, ok := c.workspaces[id]; ok {
		return n, nil
	}
	ws, err := s.repomanager.Workspaces(s.db).Get(ctx, id)
	if err != nil {
		return "", err
	}
	c.workspaces[id] = ws.Name
	return ws.Name, nil
}

// userNames returns the username and personal org name. A deleted user
// leaves both empty.
func (s *ScheduleService) userNames(ctx context.Context, c nameCache, id string) ([2]string, error) {
	if n, ok := c.users[id]; ok {
		return n, nil
	}
	var names [2]string
	u, err := s.repomanager.Users(s.db).Get(ctx, id)
	switch {
	case errors.Is(err, common.ErrorNotFound):
	case err != nil:
		return names, err
	default:
		names[0] = u.UserName
		orgs, err := s.repomanager.Orgs(s.db).GetByUser(ctx, id)
		if err != nil {
			return names, err
		}
		for _, o := range orgs {
			if o.Kind == models.OrgKindPersonal {
				names[1] = o.Name
				break
			}
		}
	}
	c.users[id] = names
	return names, nil
}

func (s *ScheduleService) experimentTitle(ctx context.Context, id string) string {
	if s.experiments == nil || id == "" {
		return ""
	}
	e, err := s.experiments.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "experiment lookup failed", "experiment_id", id, "error", err)
		}
		return ""
	}
	return e.Title
}
