package chat

import (
	"testing"

	"chat-service/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGroupUniqueName(t *testing.T) {
	db := testDB(t)
	groups := NewGroups(db)
	alice := testUser(t, db, "alice", "alice@example.com")

	group, err := groups.Create(alice.ID, "team", "a.png", "the team")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, group.AdminID)
	require.Len(t, group.Members, 1)
	assert.Equal(t, alice.ID, group.Members[0].ID)

	_, err = groups.Create(alice.ID, "team", "b.png", "another")
	assert.ErrorIs(t, err, ErrGroupExists)
}

func TestAddMemberAdminGated(t *testing.T) {
	db := testDB(t)
	groups := NewGroups(db)
	alice := testUser(t, db, "alice", "alice@example.com")
	bob := testUser(t, db, "bob", "bob@example.com")
	carol := testUser(t, db, "carol", "carol@example.com")

	group, err := groups.Create(alice.ID, "team", "a.png", "d")
	require.NoError(t, err)

	_, _, err = groups.AddMember(bob.ID, group.ID, carol.Email)
	assert.ErrorIs(t, err, ErrNotAdmin)

	updated, member, err := groups.AddMember(alice.ID, group.ID, bob.Email)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, member.ID)
	require.Len(t, updated.Members, 2)
	assert.ElementsMatch(t, []uint{alice.ID, bob.ID}, []uint{updated.Members[0].ID, updated.Members[1].ID})

	// The returned group matches what a fresh load sees.
	stored, err := groups.Get(group.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Members, 2)

	_, _, err = groups.AddMember(alice.ID, group.ID, bob.Email)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, _, err = groups.AddMember(alice.ID, group.ID, "nobody@example.com")
	assert.ErrorIs(t, err, ErrPeerNotFound)
}

func TestRemoveMemberRules(t *testing.T) {
	db := testDB(t)
	groups := NewGroups(db)
	alice := testUser(t, db, "alice", "alice@example.com")
	bob := testUser(t, db, "bob", "bob@example.com")

	group, err := groups.Create(alice.ID, "team", "a.png", "d")
	require.NoError(t, err)
	_, _, err = groups.AddMember(alice.ID, group.ID, bob.Email)
	require.NoError(t, err)

	// Admin cannot be removed, state unchanged.
	_, _, err = groups.RemoveMember(alice.ID, group.ID, alice.Email)
	assert.ErrorIs(t, err, ErrAdminLocked)
	current, err := groups.Get(group.ID)
	require.NoError(t, err)
	assert.Len(t, current.Members, 2)

	_, member, err := groups.RemoveMember(alice.ID, group.ID, bob.Email)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, member.ID)

	current, err = groups.Get(group.ID)
	require.NoError(t, err)
	assert.Len(t, current.Members, 1)
}

func TestLeaveGroup(t *testing.T) {
	db := testDB(t)
	groups := NewGroups(db)
	alice := testUser(t, db, "alice", "alice@example.com")
	bob := testUser(t, db, "bob", "bob@example.com")

	group, err := groups.Create(alice.ID, "team", "a.png", "d")
	require.NoError(t, err)
	_, _, err = groups.AddMember(alice.ID, group.ID, bob.Email)
	require.NoError(t, err)

	// Admin cannot leave without transfer.
	assert.ErrorIs(t, groups.Leave(alice.ID, group.ID), ErrAdminLocked)

	require.NoError(t, groups.Leave(bob.ID, group.ID))
	member, err := groups.IsMember(bob.ID, group.ID)
	require.NoError(t, err)
	assert.False(t, member)

	// Subsequent sends from the leaver are rejected.
	_, err = groups.SendMessage(bob.ID, group.ID, "am i still here")
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestSendGroupMessage(t *testing.T) {
	db := testDB(t)
	groups := NewGroups(db)
	alice := testUser(t, db, "alice", "alice@example.com")
	bob := testUser(t, db, "bob", "bob@example.com")

	group, err := groups.Create(alice.ID, "team", "a.png", "d")
	require.NoError(t, err)

	_, err = groups.SendMessage(bob.ID, group.ID, "not yet a member")
	assert.ErrorIs(t, err, ErrNotMember)

	message, err := groups.SendMessage(alice.ID, group.ID, "hello team")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, message.SenderID)

	current, err := groups.Get(group.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello team", current.LastMessage)

	messages, err := groups.Messages(alice.ID, group.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello team", messages[0].Text)

	// Non-members cannot read the log either.
	_, err = groups.Messages(bob.ID, group.ID)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestGroupListAndDetails(t *testing.T) {
	db := testDB(t)
	groups := NewGroups(db)
	alice := testUser(t, db, "alice", "alice@example.com")
	bob := testUser(t, db, "bob", "bob@example.com")

	first, err := groups.Create(alice.ID, "first", "a.png", "d")
	require.NoError(t, err)
	_, err = groups.Create(bob.ID, "second", "b.png", "d")
	require.NoError(t, err)

	list, err := groups.ListFor(alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "first", list[0].Name)

	_, err = groups.Details(bob.ID, first.ID)
	assert.ErrorIs(t, err, ErrNotMember)

	details, err := groups.Details(alice.ID, first.ID)
	require.NoError(t, err)
	assert.Len(t, details.Members, 1)

	var unknown uint = 9999
	_, err = groups.Details(alice.ID, unknown)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestGroupMessageModelAppendOnly(t *testing.T) {
	db := testDB(t)
	groups := NewGroups(db)
	alice := testUser(t, db, "alice", "alice@example.com")

	group, err := groups.Create(alice.ID, "team", "a.png", "d")
	require.NoError(t, err)

	for _, text := range []string{"a", "b", "c"} {
		_, err := groups.SendMessage(alice.ID, group.ID, text)
		require.NoError(t, err)
	}

	messages := []model.GroupMessage{}
	require.NoError(t, db.Where(&model.GroupMessage{GroupID: group.ID}).Order("timestamp asc").Find(&messages).Error)
	require.Len(t, messages, 3)
	assert.Equal(t, "a", messages[0].Text)
	assert.Equal(t, "c", messages[2].Text)
}
