package chat

import "strconv"

const roomSeparator = "-"

// User presence status as stored on contact records.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Direct message delivery status. Monotonic: sent -> delivered -> read.
const (
	MessageSent      = "sent"
	MessageDelivered = "delivered"
	MessageRead      = "read"
)

// Room returns the canonical room key shared by two participants:
// the identifiers sorted lexicographically and joined. Both sides of a
// conversation compute the same key, and the same key scopes broadcast,
// message persistence and message queries.
func Room(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + roomSeparator + b
}

// RoomFor is Room over numeric user ids.
func RoomFor(a, b uint) string {
	return Room(strconv.FormatUint(uint64(a), 10), strconv.FormatUint(uint64(b), 10))
}

// GroupRoom returns the broadcast room of a group, keyed by the group
// id itself rather than a pairwise key.
func GroupRoom(groupID uint) string {
	return "group" + roomSeparator + strconv.FormatUint(uint64(groupID), 10)
}
