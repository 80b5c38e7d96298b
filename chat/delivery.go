package chat

import (
	"errors"
	"fmt"
	"time"

	"chat-service/model"

	"gorm.io/gorm"
)

var ErrSenderMismatch = errors.New("sender id does not match the connection identity")

// Delivery decides the initial status of a new direct message and
// advances already-stored messages when room membership changes.
// Liveness comes from the tracker's room membership, viewing from the
// receiver-side contact record.
type Delivery struct {
	db       *gorm.DB
	contacts *Contacts
	presence *Tracker
}

func NewDelivery(db *gorm.DB, contacts *Contacts, presence *Tracker) *Delivery {
	return &Delivery{db: db, contacts: contacts, presence: presence}
}

// SendResult carries everything the dispatcher needs to fan a send
// out: the stored message, its room, and whether the receiver was
// viewing the room at send time (decides the unread increment).
type SendResult struct {
	Message        *model.Message
	Room           string
	ReceiverInRoom bool
}

// Send validates the relationship, decides the initial status and
// persists the message. Both directional contact records must exist;
// a missing one fails closed before anything is written.
func (d *Delivery) Send(senderID, receiverID uint, text string) (*SendResult, error) {
	senderContact, err := d.contacts.Get(senderID, receiverID)
	if err != nil {
		return nil, err
	}
	receiverContact, err := d.contacts.Get(receiverID, senderID)
	if err != nil {
		return nil, err
	}

	room := RoomFor(senderID, receiverID)
	bothPresent := d.presence.InRoom(senderID, room) && d.presence.InRoom(receiverID, room)

	message := &model.Message{
		RoomID:     room,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Timestamp:  time.Now(),
		Status:     initialStatus(bothPresent, receiverContact.InRoom, senderContact.Status),
	}
	if err := d.db.Create(message).Error; err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	return &SendResult{
		Message:        message,
		Room:           room,
		ReceiverInRoom: receiverContact.InRoom,
	}, nil
}

// initialStatus is the priority decision of the state machine. Read
// requires proof the receiver is actively looking: both connections
// joined to the room and the receiver-side viewing flag set. Delivered
// only requires the receiver's connection to be live, as cached on the
// sender's own record. Sent is the default when the receiver is
// offline or state is indeterminate.
func initialStatus(bothPresent, receiverInRoom bool, peerStatus string) string {
	switch {
	case bothPresent && receiverInRoom:
		return MessageRead
	case peerStatus == StatusOnline && !receiverInRoom:
		return MessageDelivered
	default:
		return MessageSent
	}
}

// JoinResult carries the outcome of a room join: the room key, the
// messages retroactively promoted to read, and the peer's own record
// so the notification can include the peer's status and viewing flag.
type JoinResult struct {
	Room     string
	Promoted []model.Message
	PeerSide *model.Contact
}

// JoinRoom performs the retroactive promotion: the joining user's
// unread counter resets, every message addressed to the user in the
// channel still sent or delivered advances to read, and the user is
// recorded as viewing the room in both the tracker and the contact
// record. Absence of the user->peer record is an authorization
// failure, not missing data.
func (d *Delivery) JoinRoom(userID, peerID uint) (*JoinResult, error) {
	if _, err := d.contacts.Get(userID, peerID); err != nil {
		return nil, err
	}

	room := RoomFor(userID, peerID)

	if err := d.contacts.MarkRead(userID, peerID); err != nil {
		return nil, err
	}

	promoted := []model.Message{}
	err := d.db.
		Where("room_id = ? AND receiver_id = ? AND status IN ?",
			room, userID, []string{MessageSent, MessageDelivered}).
		Find(&promoted).Error
	if err != nil {
		return nil, fmt.Errorf("find pending messages: %w", err)
	}

	if len(promoted) > 0 {
		ids := make([]uint, len(promoted))
		for i := range promoted {
			ids[i] = promoted[i].ID
			promoted[i].Status = MessageRead
		}
		err := d.db.Model(&model.Message{}).
			Where("id IN ?", ids).
			Update("status", MessageRead).Error
		if err != nil {
			return nil, fmt.Errorf("promote messages: %w", err)
		}
	}

	if err := d.contacts.SetInRoom(userID, peerID, true); err != nil {
		return nil, err
	}
	d.presence.EnterRoom(userID, room)

	// Best effort: the reverse record may be mid-creation.
	peerSide, err := d.contacts.Get(peerID, userID)
	if err != nil && !errors.Is(err, ErrNotContact) {
		return nil, err
	}

	return &JoinResult{Room: room, Promoted: promoted, PeerSide: peerSide}, nil
}

// LeaveRoom clears the viewing flag and room membership. Authorization
// is checked the same way as JoinRoom.
func (d *Delivery) LeaveRoom(userID, peerID uint) (string, error) {
	if _, err := d.contacts.Get(userID, peerID); err != nil {
		return "", err
	}

	room := RoomFor(userID, peerID)
	if err := d.contacts.SetInRoom(userID, peerID, false); err != nil {
		return "", err
	}
	d.presence.LeaveRoom(userID, room)
	return room, nil
}

// Messages returns the channel history in submission order. Gated on
// the relationship like JoinRoom.
func (d *Delivery) Messages(userID, peerID uint) ([]model.Message, error) {
	if _, err := d.contacts.Get(userID, peerID); err != nil {
		return nil, err
	}

	messages := []model.Message{}
	err := d.db.
		Where(&model.Message{RoomID: RoomFor(userID, peerID)}).
		Order("timestamp asc").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}
