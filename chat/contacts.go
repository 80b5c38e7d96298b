package chat

import (
	"errors"
	"fmt"
	"time"

	"chat-service/model"

	"gorm.io/gorm"
)

// Expected domain outcomes. Callers branch on these with errors.Is
// rather than treating them as faults.
var (
	ErrPeerNotFound = errors.New("peer not found")
	ErrNotContact   = errors.New("no contact relationship")
)

// Contacts maintains the two linked per-direction contact records of
// every relationship. Reads and writes are independent row operations;
// a crash between the two creates of a pair can leave a transient gap
// that heals on the next full fetch.
type Contacts struct {
	db *gorm.DB
}

func NewContacts(db *gorm.DB) *Contacts {
	return &Contacts{db: db}
}

// Add looks up the peer by email and creates both directional records
// with zeroed counters. Re-adding an existing pair is a no-op that
// returns the existing owner-side record with created=false.
func (c *Contacts) Add(ownerID uint, peerEmail string) (*model.Contact, bool, error) {
	peer := new(model.User)
	if err := c.db.Where(&model.User{Email: peerEmail}).First(peer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrPeerNotFound
		}
		return nil, false, fmt.Errorf("lookup peer: %w", err)
	}

	existing := new(model.Contact)
	err := c.db.Where(&model.Contact{OwnerID: ownerID, PeerID: peer.ID}).First(existing).Error
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup contact: %w", err)
	}

	now := time.Now()
	ownerSide := &model.Contact{
		OwnerID:  ownerID,
		PeerID:   peer.ID,
		Status:   StatusOffline,
		LastTime: now,
	}
	if err := c.db.Create(ownerSide).Error; err != nil {
		return nil, false, fmt.Errorf("create contact: %w", err)
	}

	peerSide := &model.Contact{
		OwnerID:  peer.ID,
		PeerID:   ownerID,
		Status:   StatusOffline,
		LastTime: now,
	}
	if err := c.db.Create(peerSide).Error; err != nil {
		return nil, false, fmt.Errorf("create reverse contact: %w", err)
	}

	return ownerSide, true, nil
}

// List returns the owner's contacts joined with the peer profile,
// most recently messaged first.
func (c *Contacts) List(ownerID uint) ([]model.Contact, error) {
	contacts := []model.Contact{}
	err := c.db.
		Where(&model.Contact{OwnerID: ownerID}).
		Preload("Peer").
		Order("last_time desc").
		Find(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

// Get returns the owner's directional view of the peer. Absence of the
// record means the pair were never contacts: ErrNotContact.
func (c *Contacts) Get(ownerID, peerID uint) (*model.Contact, error) {
	contact := new(model.Contact)
	err := c.db.Where(&model.Contact{OwnerID: ownerID, PeerID: peerID}).First(contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotContact
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return contact, nil
}

// PeerIDs returns the ids of everyone the owner has as a contact.
func (c *Contacts) PeerIDs(ownerID uint) ([]uint, error) {
	var ids []uint
	err := c.db.Model(&model.Contact{}).
		Where("owner_id = ?", ownerID).
		Pluck("peer_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list peer ids: %w", err)
	}
	return ids, nil
}

// SetPeerStatus updates every record that has the given user as its
// peer, so each counterpart's contact list reflects the new status.
func (c *Contacts) SetPeerStatus(peerID uint, status string) error {
	err := c.db.Model(&model.Contact{}).
		Where("peer_id = ?", peerID).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("set peer status: %w", err)
	}
	return nil
}

// MarkRead resets the owner's unread counter for the peer. Idempotent.
func (c *Contacts) MarkRead(ownerID, peerID uint) error {
	err := c.db.Model(&model.Contact{}).
		Where(&model.Contact{OwnerID: ownerID, PeerID: peerID}).
		Update("unread", 0).Error
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// SetInRoom flips the owner's viewing flag for the peer's channel.
func (c *Contacts) SetInRoom(ownerID, peerID uint, in bool) error {
	err := c.db.Model(&model.Contact{}).
		Where(&model.Contact{OwnerID: ownerID, PeerID: peerID}).
		Update("in_room", in).Error
	if err != nil {
		return fmt.Errorf("set in_room: %w", err)
	}
	return nil
}

// ClearInRoom invalidates every viewing flag the owner holds. Called
// on disconnect, when no room can still be on screen.
func (c *Contacts) ClearInRoom(ownerID uint) error {
	err := c.db.Model(&model.Contact{}).
		Where("owner_id = ?", ownerID).
		Update("in_room", false).Error
	if err != nil {
		return fmt.Errorf("clear in_room: %w", err)
	}
	return nil
}

// RecordIncoming updates the receiver-side summary after a send: last
// message and time unconditionally, unread incremented by one only
// when the receiver was not viewing the room at send time. Returns the
// updated record.
func (c *Contacts) RecordIncoming(receiverID, senderID uint, text string, at time.Time, wasInRoom bool) (*model.Contact, error) {
	updates := map[string]interface{}{
		"last_message": text,
		"last_time":    at,
	}
	if !wasInRoom {
		updates["unread"] = gorm.Expr("unread + 1")
	}

	err := c.db.Model(&model.Contact{}).
		Where(&model.Contact{OwnerID: receiverID, PeerID: senderID}).
		Updates(updates).Error
	if err != nil {
		return nil, fmt.Errorf("record incoming: %w", err)
	}

	return c.Get(receiverID, senderID)
}
