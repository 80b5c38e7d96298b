package model

import (
	"time"

	"gorm.io/gorm"
)

// Contact is one owner's directional view of a mutual relationship.
// A relationship between two users is always stored as exactly two of
// these rows, one per direction, created together. Status and InRoom
// describe the peer as seen by the owner, never the owner itself.
type Contact struct {
	gorm.Model
	OwnerID     uint      `gorm:"uniqueIndex:idx_contact_pair;not null" json:"ownerId"`
	PeerID      uint      `gorm:"uniqueIndex:idx_contact_pair;not null" json:"peerId"`
	Owner       User      `gorm:"not null; foreignKey:OwnerID" json:"-"`
	Peer        User      `gorm:"not null; foreignKey:PeerID" json:"peer"`
	Status      string    `gorm:"not null; default:offline" json:"status"`
	LastMessage string    `json:"lastMessage"`
	LastTime    time.Time `json:"time"`
	Unread      int       `gorm:"not null; default:0" json:"unread"`
	InRoom      bool      `gorm:"not null; default:false" json:"inroom"`
}

// Message is a direct message, partitioned by its room key. Status is
// sent|delivered|read and only ever advances.
type Message struct {
	gorm.Model
	RoomID     string    `gorm:"index;not null" json:"roomId"`
	SenderID   uint      `gorm:"not null" json:"senderId"`
	ReceiverID uint      `gorm:"not null" json:"receiverId"`
	Text       string    `gorm:"not null" json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Status     string    `gorm:"not null; default:sent" json:"status"`
}

type Group struct {
	gorm.Model
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	AvatarUrl   string `json:"avatarUrl"`
	Description string `json:"description"`
	AdminID     uint   `gorm:"not null" json:"admin"`
	LastMessage string `json:"lastmessage"`
	Members     []User `gorm:"many2many:group_members;" json:"members"`
}

// GroupMessage has no per-member delivery lifecycle, membership is the
// only gate.
type GroupMessage struct {
	gorm.Model
	GroupID   uint      `gorm:"index;not null" json:"groupId"`
	SenderID  uint      `gorm:"not null" json:"senderId"`
	Text      string    `gorm:"not null" json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
