package db

import (
	"testing"

	"chatrelay/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGroupEnrollsCreatorAsAdmin(t *testing.T) {
	database := newTestDB(t)
	alice := mustCreateUser(t, database, "alice")

	groupID, err := database.CreateGroup("gophers", alice)
	require.NoError(t, err)
	require.Positive(t, groupID)

	name, err := database.GroupName(groupID)
	require.NoError(t, err)
	assert.Equal(t, "gophers", name)

	members, err := database.GroupMembers(groupID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "alice", members[0].Username)
	assert.Equal(t, models.RoleAdmin, members[0].Role)
}

func TestAddGroupMember(t *testing.T) {
	database := newTestDB(t)
	alice := mustCreateUser(t, database, "alice")
	bob := mustCreateUser(t, database, "bob")

	groupID, err := database.CreateGroup("gophers", alice)
	require.NoError(t, err)

	require.NoError(t, database.AddGroupMember(groupID, bob, models.RoleMember))
	require.ErrorIs(t, database.AddGroupMember(groupID, bob, models.RoleMember), ErrAlreadyMember)

	isMember, err := database.IsGroupMember(groupID, bob)
	require.NoError(t, err)
	assert.True(t, isMember)

	count, err := database.MemberCount(groupID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRemoveGroupMember(t *testing.T) {
	database := newTestDB(t)
	alice := mustCreateUser(t, database, "alice")
	bob := mustCreateUser(t, database, "bob")

	groupID, err := database.CreateGroup("gophers", alice)
	require.NoError(t, err)
	require.NoError(t, database.AddGroupMember(groupID, bob, models.RoleMember))

	require.NoError(t, database.RemoveGroupMember(groupID, bob))
	require.ErrorIs(t, database.RemoveGroupMember(groupID, bob), ErrNotFound)

	isMember, err := database.IsGroupMember(groupID, bob)
	require.NoError(t, err)
	assert.False(t, isMember)
}

func TestDeleteGroupRemovesEverything(t *testing.T) {
	database := newTestDB(t)
	alice := mustCreateUser(t, database, "alice")

	groupID, err := database.CreateGroup("gophers", alice)
	require.NoError(t, err)
	_, err = database.SaveGroupMessage(groupID, alice, "hello", testTime())
	require.NoError(t, err)

	require.NoError(t, database.DeleteGroup(groupID))

	_, err = database.GroupName(groupID)
	require.ErrorIs(t, err, ErrNotFound)

	count, err := database.MemberCount(groupID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, total, err := database.GroupHistory(groupID, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUserGroupsAndAllGroups(t *testing.T) {
	database := newTestDB(t)
	alice := mustCreateUser(t, database, "alice")
	bob := mustCreateUser(t, database, "bob")

	g1, err := database.CreateGroup("first", alice)
	require.NoError(t, err)
	g2, err := database.CreateGroup("second", bob)
	require.NoError(t, err)
	require.NoError(t, database.AddGroupMember(g2, alice, models.RoleMember))

	mine, err := database.UserGroups(alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, g1, mine[0].ID)
	assert.Equal(t, 1, mine[0].MemberCount)
	assert.Equal(t, g2, mine[1].ID)
	assert.Equal(t, 2, mine[1].MemberCount)

	theirs, err := database.UserGroups(bob)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, g2, theirs[0].ID)

	all, err := database.AllGroups()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
