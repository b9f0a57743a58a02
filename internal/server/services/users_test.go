package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreate_ProvisionsPersonalOrgAndWorkspace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u := e.newUser(t, "alice")
	require.NoError(t, e.mock.ExpectationsWereMet())

	orgs, err := e.orgs().GetByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "alice", orgs[0].Name)
	assert.Equal(t, models.OrgKindPersonal, orgs[0].Kind)

	members, err := e.orgs().GetMembers(ctx, orgs[0].ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, u.ID, members[0].UserID)
	assert.True(t, members[0].IsOwner)

	ws, err := e.workspaces().GetByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "alice", ws[0].Name)
	assert.Equal(t, orgs[0].ID, ws[0].OrgID)
	assert.Equal(t, models.WorkspaceKindPersonal, ws[0].Kind)
	assert.Equal(t, models.DefaultVisibility(), ws[0].Visibility)

	collaborators, err := e.workspaces().GetCollaborators(ctx, ws[0].ID)
	require.NoError(t, err)
	require.Len(t, collaborators, 1)
	assert.True(t, collaborators[0].IsOwner)

	assert.Equal(t, []string{"user/create", "organization/create", "workspace/create"}, e.rec.phases())
}

func TestUserCreate_UsernameTakenCaseInsensitive(t *testing.T) {
	e := newEnv(t)
	e.newUser(t, "alice")

	e.mock.ExpectBegin()
	e.mock.ExpectRollback()
	_, err := e.users().Create(context.Background(), "ALICE", "", "")
	require.ErrorIs(t, err, common.ErrorConflict)
	assert.Equal(t, []string{"username"}, common.Fields(err))
	require.NoError(t, e.mock.ExpectationsWereMet())
}

func TestUserCreate_RollsBackWhenProvisioningFails(t *testing.T) {
	e := newEnv(t)
	e.store.fail["workspaces.create"] = errors.New("disk full")

	e.mock.ExpectBegin()
	e.mock.ExpectRollback()
	_, err := e.users().Create(context.Background(), "bob", "", "")
	require.ErrorContains(t, err, "disk full")
	require.NoError(t, e.mock.ExpectationsWereMet())
	assert.Empty(t, e.rec.phases())
}

func TestUserCreate_EmptyName(t *testing.T) {
	e := newEnv(t)

	_, err := e.users().Create(context.Background(), "  ", "", "")
	require.ErrorIs(t, err, common.ErrorValidation)
	assert.Equal(t, []string{"username"}, common.Fields(err))
}

func TestUserCreate_ActivityFailureDoesNotFail(t *testing.T) {
	e := newEnv(t)
	e.rec.err = errors.New("archive down")

	u := e.newUser(t, "carol")
	assert.NotEmpty(t, u.ID)
	assert.Len(t, e.rec.phases(), 3)
}

func TestCreateLocal_AndValidatePassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.tx()
	u, err := e.users().CreateLocal(ctx, "dave", "s3cret")
	require.NoError(t, err)
	assert.True(t, u.IsLocal)

	ok, err := e.users().ValidatePassword(ctx, u.ID, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.users().ValidatePassword(ctx, u.ID, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	remote := e.newUser(t, "erin")
	ok, err = e.users().ValidatePassword(ctx, remote.ID, "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.users().CreateLocal(ctx, "frank", "")
	require.ErrorIs(t, err, common.ErrorValidation)
}

func TestUserGet_Details(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.newUser(t, "alice")

	e.tx()
	team, err := e.orgs().Create(ctx, "team", u.ID)
	require.NoError(t, err)

	d, err := e.users().Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", d.PersonalOrgName)
	assert.Len(t, d.Orgs, 2)
	assert.Len(t, d.Workspaces, 1)

	var names []string
	for _, m := range d.Orgs {
		names = append(names, m.OrgName)
		assert.True(t, m.IsOwner)
	}
	assert.ElementsMatch(t, []string{"alice", team.Name}, names)

	got, err := e.users().GetByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestUserGet_NotFoundAndMalformed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users().Get(ctx, "00000000-0000-0000-0000-000000000001")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = e.users().Get(ctx, "not-a-uuid")
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = e.users().GetByUsername(ctx, "ghost")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUserDelete_KeepsOwnedOrgs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.newUser(t, "alice")
	personal, err := e.orgs().GetByName(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, e.users().Delete(ctx, u.ID))

	_, err = e.users().Get(ctx, u.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)

	org, err := e.orgs().Get(ctx, personal.ID)
	require.NoError(t, err, "personal org outlives its user")
	members, err := e.orgs().GetMembers(ctx, org.ID)
	require.NoError(t, err)
	assert.Empty(t, members)

	// Absent user.
	require.NoError(t, e.users().Delete(ctx, u.ID))
}

func TestUserMemberships_DuplicateIsConflict(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.newUser(t, "alice")
	bob := e.newUser(t, "bob")
	org, err := e.orgs().GetByName(ctx, "alice")
	require.NoError(t, err)
	ws, err := e.workspaces().GetByName(ctx, org.ID, "alice")
	require.NoError(t, err)

	require.NoError(t, e.users().AddOrg(ctx, bob.ID, org.ID, false))
	err = e.users().AddOrg(ctx, bob.ID, org.ID, false)
	require.ErrorIs(t, err, common.ErrorConflict)

	require.NoError(t, e.users().AddWorkspace(ctx, bob.ID, ws.ID, false))
	require.ErrorIs(t, e.users().AddWorkspace(ctx, bob.ID, ws.ID, true), common.ErrorConflict)

	ok, err := e.workspaces().IsCollaborator(ctx, ws.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, e.users().RemoveWorkspace(ctx, bob.ID, ws.ID))
	require.NoError(t, e.users().RemoveOrg(ctx, bob.ID, org.ID))

	ok, err = e.orgs().IsMember(ctx, org.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.orgs().IsOwner(ctx, org.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

// Nothing keeps an organization from losing its last owner.
func TestUserRemoveOrg_CanLeaveOrgWithoutOwner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.newUser(t, "alice")

	e.tx()
	org, err := e.orgs().Create(ctx, "team", u.ID)
	require.NoError(t, err)

	require.NoError(t, e.users().RemoveOrg(ctx, u.ID, org.ID))

	members, err := e.orgs().GetMembers(ctx, org.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
	_, err = e.orgs().Get(ctx, org.ID)
	require.NoError(t, err)
}

func TestUserMemberships_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.newUser(t, "alice")

	err := e.users().AddOrg(ctx, u.ID, "bad", false)
	require.ErrorIs(t, err, common.ErrorValidation)
	assert.Equal(t, []string{"org"}, common.Fields(err))

	err = e.users().AddWorkspace(ctx, u.ID, "00000000-0000-0000-0000-000000000009", false)
	require.ErrorIs(t, err, common.ErrorValidation)
	assert.Equal(t, []string{"workspace"}, common.Fields(err))
}
