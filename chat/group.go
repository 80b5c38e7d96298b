package chat

import (
	"errors"
	"fmt"
	"time"

	"chat-service/model"

	"gorm.io/gorm"
)

var (
	ErrGroupNotFound = errors.New("group not found")
	ErrGroupExists   = errors.New("group name already taken")
	ErrNotAdmin      = errors.New("only the group admin may do this")
	ErrNotMember     = errors.New("not a group member")
	ErrAlreadyMember = errors.New("already a group member")
	ErrAdminLocked   = errors.New("admin must transfer rights before leaving")
)

// Groups coordinates membership-gated group fan-out. No per-member
// delivery lifecycle: membership is the only gate and the message log
// is append-only.
type Groups struct {
	db *gorm.DB
}

func NewGroups(db *gorm.DB) *Groups {
	return &Groups{db: db}
}

// Create makes a group with the creator as admin and sole member.
// Group names are unique; a duplicate is a conflict.
func (g *Groups) Create(adminID uint, name, avatarUrl, description string) (*model.Group, error) {
	err := g.db.Where(&model.Group{Name: name}).First(new(model.Group)).Error
	if err == nil {
		return nil, ErrGroupExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup group name: %w", err)
	}

	admin := new(model.User)
	if err := g.db.First(admin, adminID).Error; err != nil {
		return nil, fmt.Errorf("lookup admin: %w", err)
	}

	group := &model.Group{
		Name:        name,
		AvatarUrl:   avatarUrl,
		Description: description,
		AdminID:     adminID,
		Members:     []model.User{*admin},
	}
	if err := g.db.Create(group).Error; err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

// Get loads a group with its members.
func (g *Groups) Get(groupID uint) (*model.Group, error) {
	group := new(model.Group)
	err := g.db.Preload("Members").First(group, groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

// ListFor returns every group the user is a member of.
func (g *Groups) ListFor(userID uint) ([]model.Group, error) {
	groups := []model.Group{}
	err := g.db.
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// Details returns the populated group, member-gated.
func (g *Groups) Details(userID, groupID uint) (*model.Group, error) {
	group, err := g.Get(groupID)
	if err != nil {
		return nil, err
	}
	if !isMember(group, userID) {
		return nil, ErrNotMember
	}
	return group, nil
}

// AddMember adds the user with the given email. Admin-gated. Returns
// the group and the added user so live connections can be joined to
// the broadcast room.
func (g *Groups) AddMember(adminID, groupID uint, email string) (*model.Group, *model.User, error) {
	member := new(model.User)
	if err := g.db.Where(&model.User{Email: email}).First(member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPeerNotFound
		}
		return nil, nil, fmt.Errorf("lookup member: %w", err)
	}

	group, err := g.Get(groupID)
	if err != nil {
		return nil, nil, err
	}
	if group.AdminID != adminID {
		return nil, nil, ErrNotAdmin
	}
	if isMember(group, member.ID) {
		return nil, nil, ErrAlreadyMember
	}

	// Append also adds the member to the loaded Members slice.
	if err := g.db.Model(group).Association("Members").Append(member); err != nil {
		return nil, nil, fmt.Errorf("add member: %w", err)
	}
	return group, member, nil
}

// RemoveMember removes the user with the given email. Admin-gated; the
// admin itself cannot be removed.
func (g *Groups) RemoveMember(adminID, groupID uint, email string) (*model.Group, *model.User, error) {
	member := new(model.User)
	if err := g.db.Where(&model.User{Email: email}).First(member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPeerNotFound
		}
		return nil, nil, fmt.Errorf("lookup member: %w", err)
	}

	group, err := g.Get(groupID)
	if err != nil {
		return nil, nil, err
	}
	if group.AdminID != adminID {
		return nil, nil, ErrNotAdmin
	}
	if member.ID == group.AdminID {
		return nil, nil, ErrAdminLocked
	}
	if !isMember(group, member.ID) {
		return nil, nil, ErrNotMember
	}

	if err := g.db.Model(group).Association("Members").Delete(member); err != nil {
		return nil, nil, fmt.Errorf("remove member: %w", err)
	}
	return group, member, nil
}

// Leave removes the caller from the group. The admin cannot leave
// without transferring rights first.
func (g *Groups) Leave(userID, groupID uint) error {
	group, err := g.Get(groupID)
	if err != nil {
		return err
	}
	if group.AdminID == userID {
		return ErrAdminLocked
	}
	if !isMember(group, userID) {
		return ErrNotMember
	}

	if err := g.db.Model(group).Association("Members").Delete(&model.User{Model: gorm.Model{ID: userID}}); err != nil {
		return fmt.Errorf("leave group: %w", err)
	}
	return nil
}

// SendMessage appends to the group log and updates the last-message
// summary. Member-gated.
func (g *Groups) SendMessage(senderID, groupID uint, text string) (*model.GroupMessage, error) {
	group, err := g.Get(groupID)
	if err != nil {
		return nil, err
	}
	if !isMember(group, senderID) {
		return nil, ErrNotMember
	}

	message := &model.GroupMessage{
		GroupID:   groupID,
		SenderID:  senderID,
		Text:      text,
		Timestamp: time.Now(),
	}
	if err := g.db.Create(message).Error; err != nil {
		return nil, fmt.Errorf("persist group message: %w", err)
	}

	err = g.db.Model(&model.Group{}).
		Where("id = ?", groupID).
		Update("last_message", text).Error
	if err != nil {
		return nil, fmt.Errorf("update last message: %w", err)
	}
	return message, nil
}

// Messages returns the group log in submission order. Member-gated.
func (g *Groups) Messages(userID, groupID uint) ([]model.GroupMessage, error) {
	group, err := g.Get(groupID)
	if err != nil {
		return nil, err
	}
	if !isMember(group, userID) {
		return nil, ErrNotMember
	}

	messages := []model.GroupMessage{}
	err = g.db.
		Where(&model.GroupMessage{GroupID: groupID}).
		Order("timestamp asc").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list group messages: %w", err)
	}
	return messages, nil
}

// IsMember reports membership without loading the full group.
func (g *Groups) IsMember(userID, groupID uint) (bool, error) {
	var count int64
	err := g.db.Table("group_members").
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}

func isMember(group *model.Group, userID uint) bool {
	for _, member := range group.Members {
		if member.ID == userID {
			return true
		}
	}
	return false
}
