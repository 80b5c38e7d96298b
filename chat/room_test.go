package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomCommutative(t *testing.T) {
	cases := [][2]string{
		{"1", "2"},
		{"42", "7"},
		{"abc", "abd"},
		{"same", "same"},
	}
	for _, pair := range cases {
		assert.Equal(t, Room(pair[0], pair[1]), Room(pair[1], pair[0]))
	}
}

func TestRoomDistinctPairs(t *testing.T) {
	assert.NotEqual(t, Room("1", "2"), Room("1", "3"))
	assert.NotEqual(t, RoomFor(1, 2), RoomFor(2, 3))
}

func TestRoomLayout(t *testing.T) {
	assert.Equal(t, "1-2", Room("2", "1"))
	assert.Equal(t, "1-2", RoomFor(2, 1))

	// Lexicographic, not numeric: both sides agree as long as both
	// compute it the same way.
	assert.Equal(t, "10-9", RoomFor(9, 10))
}

func TestGroupRoomDoesNotCollideWithUserRooms(t *testing.T) {
	assert.NotEqual(t, "5", GroupRoom(5))
	assert.Equal(t, "group-5", GroupRoom(5))
}
