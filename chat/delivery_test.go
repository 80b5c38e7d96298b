package chat

import (
	"testing"

	"chat-service/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendToOfflineReceiverIsSent(t *testing.T) {
	db := testDB(t)
	contacts := NewContacts(db)
	presence := NewTracker()
	delivery := NewDelivery(db, contacts, presence)
	alice, bob := testPair(t, db, contacts)

	res, err := delivery.Send(alice.ID, bob.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, MessageSent, res.Message.Status)
	assert.Equal(t, RoomFor(alice.ID, bob.ID), res.Room)
	assert.False(t, res.ReceiverInRoom)
}

func TestSendToOnlineReceiverNotInRoomIsDelivered(t *testing.T) {
	db := testDB(t)
	contacts := NewContacts(db)
	presence := NewTracker()
	delivery := NewDelivery(db, contacts, presence)
	alice, bob := testPair(t, db, contacts)

	presence.SetOnline(bob.ID)
	require.NoError(t, contacts.SetPeerStatus(bob.ID, StatusOnline))

	res, err := delivery.Send(alice.ID, bob.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, MessageDelivered, res.Message.Status)
}

func TestSendWithBothViewingIsRead(t *testing.T) {
	db := testDB(t)
	contacts := NewContacts(db)
	presence := NewTracker()
	delivery := NewDelivery(db, contacts, presence)
	alice, bob := testPair(t, db, contacts)

	presence.SetOnline(alice.ID)
	presence.SetOnline(bob.ID)
	require.NoError(t, contacts.SetPeerStatus(alice.ID, StatusOnline))
	require.NoError(t, contacts.SetPeerStatus(bob.ID, StatusOnline))

	_, err := delivery.JoinRoom(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = delivery.JoinRoom(bob.ID, alice.ID)
	require.NoError(t, err)

	res, err := delivery.Send(alice.ID, bob.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, MessageRead, res.Message.Status)
}

func TestPassiveRoomMembershipIsNotRead(t *testing.T) {
	db := testDB(t)
	contacts := NewContacts(db)
	presence := NewTracker()
	delivery := NewDelivery(db, contacts, presence)
	alice, bob := testPair(t, db, contacts)

	presence.SetOnline(alice.ID)
	presence.SetOnline(bob.ID)
	require.NoError(t, contacts.SetPeerStatus(bob.ID, StatusOnline))

	// Both connections joined to the room (join_all_rooms style) but
	// the receiver's viewing flag never went up.
	room := RoomFor(alice.ID, bob.ID)
	presence.EnterRoom(alice.ID, room)
	presence.EnterRoom(bob.ID, room)

	res, err := delivery.Send(alice.ID, bob.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, MessageDelivered, res.Message.Status)
}

func TestSendWithoutRelationshipFailsClosed(t *testing.T) {
	db := testDB(t)
	contacts := NewContacts(db)
	delivery := NewDelivery(db, contacts, NewTracker())
	alice := testUser(t, db, "alice", "alice@example.com")
	mallory := testUser(t, db, "mallory", "mallory@example.com")

	_, err := delivery.Send(alice.ID, mallory.ID, "hi")
	assert.ErrorIs(t, err, ErrNotContact)

	var count int64
	require.NoError(t, db.Model(&model.Message{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestGoOnlineAloneDoesNotAdvanceStatus(t *testing.T) {
	db := testDB(t)
	contacts := NewContacts(db)
	presence := NewTracker()
	delivery := NewDelivery(db, contacts, presence)
	alice, bob := testPair(t, db, contacts)

	res, err := delivery.Send(alice.ID, bob.ID, "while offline")
	require.NoError(t, err)
	require.Equal(t, MessageSent, res.Message.Status)

	// Bob comes online without joining the room.
	presence.SetOnline(bob.ID)
	require.NoError(t, contacts.SetPeerStatus(bob.ID, StatusOnline))

	stored := new(model.Message)
	require.NoError(t, db.First(stored, res.Message.ID).Error)
	assert.Equal(t, MessageSent, stored.Status)
}

func TestJoinRoomPromotesPendingToRead(t *testing.T) {
	db := testDB(t)
	contacts := NewContacts(db)
	presence := NewTracker()
	delivery := NewDelivery(db, contacts, presence)
	alice, bob := testPair(t, db, contacts)

	// One message while bob is offline, one while online.
	first, err := delivery.Send(alice.ID, bob.ID, "one")
	require.NoError(t, err)
	require.Equal(t, MessageSent, first.Message.Status)

	presence.SetOnline(bob.ID)
	require.NoError(t, contacts.SetPeerStatus(bob.ID, StatusOnline))
	second, err := delivery.Send(alice.ID, bob.ID, "two")
	require.NoError(t, err)
	require.Equal(t, MessageDelivered, second.Message.Status)

	_, err = contacts.RecordIncoming(bob.ID, alice.ID, "two", second.Message.Timestamp, false)
	require.NoError(t, err)

	res, err := delivery.JoinRoom(bob.ID, alice.ID)
	require.NoError(t, err)

	// One promotion per pending message, both now read.
	require.Len(t, res.Promoted, 2)
	for _, message := range res.Promoted {
		assert.Equal(t, MessageRead, message.Status)
	}

	messages := []model.Message{}
	require.NoError(t, db.Where(&model.Message{RoomID: res.Room}).Find(&messages).Error)
	for _, message := range messages {
		assert.Equal(t, MessageRead, message.Status)
	}

	// Unread reset to exactly zero, viewing flag up, membership live.
	view, err := contacts.Get(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Unread)
	assert.True(t, view.InRoom)
	assert.True(t, presence.InRoom(bob.ID, res.Room))
}

func TestJoinRoomWithoutRelationshipIsAuthorizationFailure(t *testing.T) {
	db := testDB(t)
	contacts := NewContacts(db)
	delivery := NewDelivery(db, contacts, NewTracker())
	alice := testUser(t, db, "alice", "alice@example.com")
	mallory := testUser(t, db, "mallory", "mallory@example.com")

	_, err := delivery.JoinRoom(alice.ID, mallory.ID)
	assert.ErrorIs(t, err, ErrNotContact)
}

func TestLeaveRoomClearsViewingState(t *testing.T) {
	db := testDB(t)
	contacts := NewContacts(db)
	presence := NewTracker()
	delivery := NewDelivery(db, contacts, presence)
	alice, bob := testPair(t, db, contacts)

	res, err := delivery.JoinRoom(bob.ID, alice.ID)
	require.NoError(t, err)
	require.True(t, presence.InRoom(bob.ID, res.Room))

	room, err := delivery.LeaveRoom(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Room, room)
	assert.False(t, presence.InRoom(bob.ID, room))

	view, err := contacts.Get(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, view.InRoom)
}

func TestMessagesReturnedInSubmissionOrder(t *testing.T) {
	db := testDB(t)
	contacts := NewContacts(db)
	delivery := NewDelivery(db, contacts, NewTracker())
	alice, bob := testPair(t, db, contacts)

	for _, text := range []string{"a", "b", "c"} {
		_, err := delivery.Send(alice.ID, bob.ID, text)
		require.NoError(t, err)
	}

	messages, err := delivery.Messages(bob.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "a", messages[0].Text)
	assert.Equal(t, "b", messages[1].Text)
	assert.Equal(t, "c", messages[2].Text)

	// Same gate as join: strangers get nothing.
	mallory := testUser(t, db, "mallory", "mallory@example.com")
	_, err = delivery.Messages(mallory.ID, alice.ID)
	assert.ErrorIs(t, err, ErrNotContact)
}

func TestInitialStatusPriority(t *testing.T) {
	cases := []struct {
		name           string
		bothPresent    bool
		receiverInRoom bool
		peerStatus     string
		want           string
	}{
		{"both viewing", true, true, StatusOnline, MessageRead},
		{"online not viewing", false, false, StatusOnline, MessageDelivered},
		{"present but flag down", true, false, StatusOnline, MessageDelivered},
		{"viewing flag without presence", false, true, StatusOnline, MessageSent},
		{"offline", false, false, StatusOffline, MessageSent},
		{"stale flag while offline", true, true, StatusOffline, MessageRead},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, initialStatus(tc.bothPresent, tc.receiverInRoom, tc.peerStatus))
		})
	}
}
