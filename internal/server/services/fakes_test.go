package services

import (
	"context"
	"database/sql"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/logging"
	"github.com/dmitrijs2005/accounts/internal/server/activity"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/memberships"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/orgs"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/users"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/workspaces"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory account graph that enforces the same unique,
// foreign key and cascade rules as the schema.
type fakeStore struct {
	mu         sync.Mutex
	users      map[string]models.User
	orgs       map[string]models.Organization
	workspaces map[string]models.Workspace
	orgMembers map[[2]string]bool
	wsMembers  map[[2]string]bool
	fail       map[string]error
	calls      map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[string]models.User{},
		orgs:       map[string]models.Organization{},
		workspaces: map[string]models.Workspace{},
		orgMembers: map[[2]string]bool{},
		wsMembers:  map[[2]string]bool{},
		fail:       map[string]error{},
		calls:      map[string]int{},
	}
}

func (s *fakeStore) hit(op string) error {
	s.calls[op]++
	return s.fail[op]
}

type fakeRepoManager struct{ s *fakeStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return fakeUsers{m.s} }
func (m *fakeRepoManager) Orgs(dbx.DBTX) orgs.Repository               { return fakeOrgs{m.s} }
func (m *fakeRepoManager) Workspaces(dbx.DBTX) workspaces.Repository   { return fakeWorkspaces{m.s} }
func (m *fakeRepoManager) Memberships(dbx.DBTX) memberships.Repository { return fakeMembers{m.s} }

type fakeUsers struct{ s *fakeStore }

func (r fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.create"); err != nil {
		return nil, err
	}
	for _, other := range r.s.users {
		if strings.EqualFold(other.UserName, u.UserName) {
			return nil, common.Conflict("username", "username already exists", nil)
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	r.s.users[u.ID] = *u
	return u, nil
}

func (r fakeUsers) Get(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r fakeUsers) GetByUsername(_ context.Context, name string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.UserName, name) {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r fakeUsers) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.delete"); err != nil {
		return err
	}
	delete(r.s.users, id)
	for k := range r.s.orgMembers {
		if k[1] == id {
			delete(r.s.orgMembers, k)
		}
	}
	for k := range r.s.wsMembers {
		if k[1] == id {
			delete(r.s.wsMembers, k)
		}
	}
	return nil
}

type fakeOrgs struct{ s *fakeStore }

func (r fakeOrgs) Create(_ context.Context, o *models.Organization) (*models.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("orgs.create"); err != nil {
		return nil, err
	}
	if r.nameTaken(o.Name, "") {
		return nil, common.Conflict("name", "organization name already exists", nil)
	}
	o.ID = uuid.NewString()
	o.CreatedAt = time.Now()
	r.s.orgs[o.ID] = *o
	return o, nil
}

func (r fakeOrgs) nameTaken(name, except string) bool {
	for id, other := range r.s.orgs {
		if id != except && strings.EqualFold(other.Name, name) {
			return true
		}
	}
	return false
}

func (r fakeOrgs) Get(_ context.Context, id string) (*models.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.calls["orgs.get"]++
	o, ok := r.s.orgs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &o, nil
}

func (r fakeOrgs) GetByName(_ context.Context, name string) (*models.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orgs {
		if strings.EqualFold(o.Name, name) {
			return &o, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r fakeOrgs) ListAll(context.Context) ([]models.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(models.Organization) bool { return true }), nil
}

func (r fakeOrgs) GetMany(_ context.Context, ids []string) ([]models.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return r.sorted(func(o models.Organization) bool { return want[o.ID] }), nil
}

func (r fakeOrgs) GetByUser(_ context.Context, userID string) ([]models.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(o models.Organization) bool {
		_, ok := r.s.orgMembers[[2]string{o.ID, userID}]
		return ok
	}), nil
}

func (r fakeOrgs) sorted(keep func(models.Organization) bool) []models.Organization {
	out := []models.Organization{}
	for _, o := range r.s.orgs {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out
}

func (r fakeOrgs) Save(_ context.Context, o *models.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("orgs.save"); err != nil {
		return err
	}
	cur, ok := r.s.orgs[o.ID]
	if !ok {
		return common.ErrorNotFound
	}
	if r.nameTaken(o.Name, o.ID) {
		return common.Conflict("name", "organization name already exists", nil)
	}
	cur.Name, cur.Settings = o.Name, o.Settings
	r.s.orgs[o.ID] = cur
	return nil
}

func (r fakeOrgs) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("orgs.delete"); err != nil {
		return err
	}
	delete(r.s.orgs, id)
	for k := range r.s.orgMembers {
		if k[0] == id {
			delete(r.s.orgMembers, k)
		}
	}
	for wid, w := range r.s.workspaces {
		if w.OrgID == id {
			r.s.deleteWorkspace(wid)
		}
	}
	return nil
}

func (s *fakeStore) deleteWorkspace(id string) {
	delete(s.workspaces, id)
	for k := range s.wsMembers {
		if k[0] == id {
			delete(s.wsMembers, k)
		}
	}
}

type fakeWorkspaces struct{ s *fakeStore }

func (r fakeWorkspaces) Create(_ context.Context, w *models.Workspace) (*models.Workspace, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("workspaces.create"); err != nil {
		return nil, err
	}
	if _, ok := r.s.orgs[w.OrgID]; !ok {
		return nil, common.Validation("org", "unknown organization")
	}
	for _, other := range r.s.workspaces {
		if other.OrgID == w.OrgID && strings.EqualFold(other.Name, w.Name) {
			return nil, common.Conflict("name", "workspace name already exists in organization", nil)
		}
	}
	w.ID = uuid.NewString()
	w.CreatedAt = time.Now()
	r.s.workspaces[w.ID] = *w
	return w, nil
}

func (r fakeWorkspaces) Get(_ context.Context, id string) (*models.Workspace, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.workspaces[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &w, nil
}

func (r fakeWorkspaces) GetByName(_ context.Context, orgID, name string) (*models.Workspace, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.workspaces {
		if w.OrgID == orgID && strings.EqualFold(w.Name, name) {
			return &w, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r fakeWorkspaces) LookupByName(_ context.Context, orgName, name string) (*models.Workspace, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.workspaces {
		if strings.EqualFold(r.s.orgs[w.OrgID].Name, orgName) && strings.EqualFold(w.Name, name) {
			return &w, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r fakeWorkspaces) ListAll(context.Context) ([]models.Workspace, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(models.Workspace) bool { return true }), nil
}

func (r fakeWorkspaces) GetMany(_ context.Context, ids []string) ([]models.Workspace, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return r.sorted(func(w models.Workspace) bool { return want[w.ID] }), nil
}

func (r fakeWorkspaces) GetByUser(_ context.Context, userID string) ([]models.Workspace, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(w models.Workspace) bool {
		_, ok := r.s.wsMembers[[2]string{w.ID, userID}]
		return ok
	}), nil
}

func (r fakeWorkspaces) GetByOrg(_ context.Context, orgID string) ([]models.Workspace, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(w models.Workspace) bool { return w.OrgID == orgID }), nil
}

func (r fakeWorkspaces) sorted(keep func(models.Workspace) bool) []models.Workspace {
	out := []models.Workspace{}
	for _, w := range r.s.workspaces {
		if keep(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out
}

func (r fakeWorkspaces) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("workspaces.delete"); err != nil {
		return err
	}
	r.s.deleteWorkspace(id)
	return nil
}

type fakeMembers struct{ s *fakeStore }

func (r fakeMembers) AddOrgMember(_ context.Context, m models.OrgMembership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("members.addOrg"); err != nil {
		return err
	}
	if _, ok := r.s.orgs[m.OrgID]; !ok {
		return common.Validation("org", "unknown org")
	}
	if _, ok := r.s.users[m.UserID]; !ok {
		return common.Validation("user", "unknown user")
	}
	k := [2]string{m.OrgID, m.UserID}
	if _, ok := r.s.orgMembers[k]; ok {
		return common.Conflict("user", "user is already a member", nil)
	}
	r.s.orgMembers[k] = m.IsOwner
	return nil
}

func (r fakeMembers) RemoveOrgMember(_ context.Context, orgID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.orgMembers, [2]string{orgID, userID})
	return nil
}

func (r fakeMembers) GetOrgMember(_ context.Context, orgID, userID string) (*models.OrgMembership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	owner, ok := r.s.orgMembers[[2]string{orgID, userID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.OrgMembership{OrgID: orgID, UserID: userID, IsOwner: owner, OrgName: r.s.orgs[orgID].Name}, nil
}

func (r fakeMembers) ListOrgMembers(_ context.Context, orgID string) ([]models.OrgMembership, error) {
	return r.listOrg(func(k [2]string) bool { return k[0] == orgID }), nil
}

func (r fakeMembers) ListUserOrgs(_ context.Context, userID string) ([]models.OrgMembership, error) {
	return r.listOrg(func(k [2]string) bool { return k[1] == userID }), nil
}

func (r fakeMembers) listOrg(keep func([2]string) bool) []models.OrgMembership {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.OrgMembership{}
	for k, owner := range r.s.orgMembers {
		if keep(k) {
			out = append(out, models.OrgMembership{OrgID: k[0], UserID: k[1], IsOwner: owner, OrgName: r.s.orgs[k[0]].Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrgID+out[i].UserID < out[j].OrgID+out[j].UserID })
	return out
}

func (r fakeMembers) AddWorkspaceMember(_ context.Context, m models.WorkspaceMembership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("members.addWorkspace"); err != nil {
		return err
	}
	if _, ok := r.s.workspaces[m.WorkspaceID]; !ok {
		return common.Validation("workspace", "unknown workspace")
	}
	if _, ok := r.s.users[m.UserID]; !ok {
		return common.Validation("user", "unknown user")
	}
	k := [2]string{m.WorkspaceID, m.UserID}
	if _, ok := r.s.wsMembers[k]; ok {
		return common.Conflict("user", "user is already a member", nil)
	}
	r.s.wsMembers[k] = m.IsOwner
	return nil
}

func (r fakeMembers) RemoveWorkspaceMember(_ context.Context, workspaceID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.wsMembers, [2]string{workspaceID, userID})
	return nil
}

func (r fakeMembers) GetWorkspaceMember(_ context.Context, workspaceID, userID string) (*models.WorkspaceMembership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	owner, ok := r.s.wsMembers[[2]string{workspaceID, userID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.WorkspaceMembership{
		WorkspaceID: workspaceID, UserID: userID, IsOwner: owner,
		WorkspaceName: r.s.workspaces[workspaceID].Name,
	}, nil
}

func (r fakeMembers) ListWorkspaceMembers(_ context.Context, workspaceID string) ([]models.WorkspaceMembership, error) {
	return r.listWorkspace(func(k [2]string) bool { return k[0] == workspaceID }), nil
}

func (r fakeMembers) ListUserWorkspaces(_ context.Context, userID string) ([]models.WorkspaceMembership, error) {
	return r.listWorkspace(func(k [2]string) bool { return k[1] == userID }), nil
}

func (r fakeMembers) listWorkspace(keep func([2]string) bool) []models.WorkspaceMembership {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.WorkspaceMembership{}
	for k, owner := range r.s.wsMembers {
		if keep(k) {
			out = append(out, models.WorkspaceMembership{
				WorkspaceID: k[0], UserID: k[1], IsOwner: owner,
				WorkspaceName: r.s.workspaces[k[0]].Name,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkspaceID+out[i].UserID < out[j].WorkspaceID+out[j].UserID })
	return out
}

// captureRecorder keeps every recorded event.
type captureRecorder struct {
	mu     sync.Mutex
	events []activity.Event
	err    error
}

func (c *captureRecorder) Record(_ context.Context, e activity.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return c.err
}

func (c *captureRecorder) phases() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type + "/" + e.Phase
	}
	return out
}

type env struct {
	store *fakeStore
	m     *fakeRepoManager
	db    *sql.DB
	mock  sqlmock.Sqlmock
	rec   *captureRecorder
	log   logging.Logger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := newFakeStore()
	return &env{
		store: store,
		m:     &fakeRepoManager{s: store},
		db:    db,
		mock:  mock,
		rec:   &captureRecorder{},
		log:   logging.New(io.Discard, logging.FormatJSON, "error"),
	}
}

// tx expects one transaction that commits.
func (e *env) tx() {
	e.mock.ExpectBegin()
	e.mock.ExpectCommit()
}

func (e *env) users() *UserService { return NewUserService(e.db, e.m, e.rec, e.log) }
func (e *env) orgs() *OrgService   { return NewOrgService(e.db, e.m, e.rec, e.log) }
func (e *env) workspaces() *WorkspaceService {
	return NewWorkspaceService(e.db, e.m, e.rec, e.log)
}

// newUser provisions a user through UserService.Create.
func (e *env) newUser(t *testing.T, name string) *models.User {
	t.Helper()
	e.tx()
	u, err := e.users().Create(context.Background(), name, name+" Full", name+"@example.com")
	require.NoError(t, err)
	return u
}
