package router

import (
	"errors"
	"log"
	"strconv"
	"time"

	"chat-service/chat"
	"chat-service/database"
	"chat-service/event"
	"chat-service/model"
	"chat-service/utils"

	"github.com/zishang520/socket.io/v2/socket"
)

type ErrorPayload struct {
	Error string `json:"error"`
}

type SuccessPayload struct {
	Message string `json:"message"`
}

type ContactStatusUpdate struct {
	ContactId uint   `json:"contactId"`
	Status    string `json:"status"`
}

type MessageStatusUpdate struct {
	MessageId uint   `json:"messageId"`
	Status    string `json:"status"`
	UpdatedBy uint   `json:"updatedBy"`
}

type MessageEnvelope struct {
	Message *model.Message `json:"message"`
	Room    string         `json:"room"`
}

type ContactsChanges struct {
	ReceiverId  uint      `json:"receiverId"`
	SenderId    uint      `json:"senderId"`
	Unread      int       `json:"unread"`
	LastMessage string    `json:"lastMessage"`
	Time        time.Time `json:"time"`
}

type ContactJoined struct {
	ContactId uint   `json:"contactId"`
	UserId    uint   `json:"userId"`
	Status    string `json:"status"`
	InRoom    bool   `json:"inroom"`
}

type TypingPayload struct {
	SenderId uint `json:"senderId"`
}

// Socket wires every inbound client event to the chat components and
// translates each result into exactly one success or one error event.
// The dispatcher owns no state beyond being the composition root; the
// presence tracker is handed in from main.
func Socket(server *socket.Server, presence *chat.Tracker) {
	contacts := chat.NewContacts(database.Postgres)
	delivery := chat.NewDelivery(database.Postgres, contacts, presence)
	groups := chat.NewGroups(database.Postgres)

	// Announce a status flip to every shared pairwise room, never
	// globally: fan-out stays bounded by contact count.
	notifyStatus := func(client *socket.Socket, user uint, status string) {
		peers, err := contacts.PeerIDs(user)
		if err != nil {
			log.Printf("presence fan-out: %v", err)
			return
		}
		for _, peer := range peers {
			room := chat.RoomFor(user, peer)
			client.To(socket.Room(room)).Emit("contact_status_update", ContactStatusUpdate{
				ContactId: user,
				Status:    status,
			})
		}
	}

	goOnline := func(client *socket.Socket, user uint) {
		presence.SetOnline(user)
		if err := contacts.SetPeerStatus(user, chat.StatusOnline); err != nil {
			fail(client, "handleOnline_error", err)
			return
		}
		notifyStatus(client, user, chat.StatusOnline)
		event.Emit("chat", event.ActionPresenceChanged, ContactStatusUpdate{ContactId: user, Status: chat.StatusOnline})
		client.Emit("handleOnline_success", SuccessPayload{Message: "You are online"})
	}

	goOffline := func(client *socket.Socket, user uint, announce bool) {
		left := presence.SetOffline(user)
		if err := contacts.SetPeerStatus(user, chat.StatusOffline); err != nil {
			if announce {
				fail(client, "handleOffline_error", err)
			}
			return
		}
		// A dropped connection is not viewing anything anymore: clear
		// the derived flag and tell each room the user had joined.
		if err := contacts.ClearInRoom(user); err != nil {
			log.Printf("clear in_room: %v", err)
		}
		for _, room := range left {
			client.To(socket.Room(room)).Emit("contact_left", map[string]interface{}{
				"contactId": user,
			})
		}
		notifyStatus(client, user, chat.StatusOffline)
		event.Emit("chat", event.ActionPresenceChanged, ContactStatusUpdate{ContactId: user, Status: chat.StatusOffline})
		if announce {
			client.Emit("handleOffline_success", SuccessPayload{Message: "You are offline"})
		}
	}

	server.On("connection", func(clients ...interface{}) {
		client := clients[0].(*socket.Socket)

		user, ok := identity(client)
		if !ok {
			client.Emit("auth_error", ErrorPayload{Error: "Authentication failed: token missing or invalid"})
			client.Disconnect(true)
			return
		}

		goOnline(client, user)

		client.On("go_online", func(args ...interface{}) {
			goOnline(client, user)
		})

		client.On("go_offline", func(args ...interface{}) {
			goOffline(client, user, true)
		})

		client.On("disconnect", func(args ...interface{}) {
			goOffline(client, user, false)
		})

		client.On("add_contact", func(args ...interface{}) {
			email := payloadString(payload(args), "email")
			if email == "" {
				client.Emit("add_contact_error", ErrorPayload{Error: "Email is required"})
				return
			}

			contact, created, err := contacts.Add(user, email)
			if err != nil {
				fail(client, "add_contact_error", err)
				return
			}

			message := "Contact added successfully"
			if !created {
				message = "Already added as contact"
			}
			client.Emit("add_contact_success", map[string]interface{}{
				"message": message,
				"contact": contact,
			})
		})

		client.On("get_contacts", func(args ...interface{}) {
			list, err := contacts.List(user)
			if err != nil {
				fail(client, "get_contacts_error", err)
				return
			}

			message := "Contacts fetched successfully"
			if len(list) == 0 {
				message = "No contacts found. Start by adding someone!"
			}
			client.Emit("get_contacts_success", map[string]interface{}{
				"message":  message,
				"contacts": list,
			})
		})

		client.On("join_room", func(args ...interface{}) {
			peer := payloadUint(payload(args), "contactId")
			if peer == 0 {
				client.Emit("join_room_error", ErrorPayload{Error: "Valid Contact ID is required"})
				return
			}

			res, err := delivery.JoinRoom(user, peer)
			if err != nil {
				fail(client, "join_room_error", err)
				return
			}

			client.Join(socket.Room(res.Room))

			client.Emit("messages_updated", map[string]interface{}{
				"room":    res.Room,
				"updated": true,
			})
			for _, message := range res.Promoted {
				client.To(socket.Room(res.Room)).Emit("message_status_updated", MessageStatusUpdate{
					MessageId: message.ID,
					Status:    message.Status,
					UpdatedBy: user,
				})
			}

			joined := ContactJoined{ContactId: peer, UserId: user}
			if res.PeerSide != nil {
				joined.Status = res.PeerSide.Status
				joined.InRoom = res.PeerSide.InRoom
			}
			client.To(socket.Room(res.Room)).Emit("contact_joined", joined)

			client.Emit("unread_reset", map[string]interface{}{"contactId": peer})
			client.Emit("join_room_success", map[string]interface{}{
				"message": "Room joined successfully",
				"room":    res.Room,
			})
		})

		client.On("leave_room", func(args ...interface{}) {
			peer := payloadUint(payload(args), "contactId")
			if peer == 0 {
				client.Emit("leave_room_error", ErrorPayload{Error: "Valid Contact ID is required."})
				return
			}

			room, err := delivery.LeaveRoom(user, peer)
			if err != nil {
				fail(client, "leave_room_error", err)
				return
			}

			client.Leave(socket.Room(room))
			client.To(socket.Room(room)).Emit("contact_left", map[string]interface{}{
				"contactId": user,
				"userId":    peer,
			})
			client.Emit("leave_room_success", map[string]interface{}{
				"message": "Successfully left the room.",
				"room":    room,
			})
		})

		client.On("join_all_rooms", func(args ...interface{}) {
			peers, err := contacts.PeerIDs(user)
			if err != nil {
				fail(client, "join_all_rooms_error", err)
				return
			}

			// Passive membership: broadcasts arrive, but the viewing
			// flag stays down, so this never upgrades receipts to read
			// on its own.
			for _, peer := range peers {
				room := chat.RoomFor(user, peer)
				client.Join(socket.Room(room))
				presence.EnterRoom(user, room)
			}
			client.Emit("join_all_rooms_success", SuccessPayload{Message: "All rooms joined successfully"})
		})

		client.On("send_message", func(args ...interface{}) {
			p := payload(args)
			sender := payloadUint(p, "senderId")
			receiver := payloadUint(p, "receiverId")
			text := payloadString(p, "text")
			if sender == 0 || receiver == 0 || text == "" {
				client.Emit("message_error", ErrorPayload{Error: "Missing senderId, receiverId, or text"})
				return
			}
			if sender != user {
				fail(client, "message_error", chat.ErrSenderMismatch)
				return
			}

			res, err := delivery.Send(sender, receiver, text)
			if err != nil {
				fail(client, "message_error", err)
				return
			}

			client.To(socket.Room(res.Room)).Emit("message_received", MessageEnvelope{
				Message: res.Message,
				Room:    res.Room,
			})
			client.Emit("message_sent", MessageEnvelope{
				Message: res.Message,
				Room:    res.Room,
			})

			summary, err := contacts.RecordIncoming(receiver, sender, text, res.Message.Timestamp, res.ReceiverInRoom)
			if err != nil {
				log.Printf("record incoming: %v", err)
				return
			}
			client.To(socket.Room(res.Room)).Emit("contacts_changes", ContactsChanges{
				ReceiverId:  receiver,
				SenderId:    sender,
				Unread:      summary.Unread,
				LastMessage: summary.LastMessage,
				Time:        summary.LastTime,
			})

			event.Emit("chat", event.ActionMessageStored, res.Message)
		})

		client.On("get_messages", func(args ...interface{}) {
			peer := payloadUint(payload(args), "contactId")
			if peer == 0 {
				client.Emit("message_error", ErrorPayload{Error: "Valid Contact ID is required"})
				return
			}

			messages, err := delivery.Messages(user, peer)
			if err != nil {
				fail(client, "message_error", err)
				return
			}
			client.Emit("get_messages_success", map[string]interface{}{"messages": messages})
		})

		client.On("typing_started", func(args ...interface{}) {
			typing(client, user, args, "typing_started")
		})

		client.On("typing_stopped", func(args ...interface{}) {
			typing(client, user, args, "typing_stopped")
		})

		client.On("get_profile", func(args ...interface{}) {
			profile := new(model.User)
			if err := database.Postgres.First(profile, user).Error; err != nil {
				fail(client, "getProfile_error", err)
				return
			}
			client.Emit("getProfile_success", map[string]interface{}{
				"message": "Profile fetched successfully",
				"user":    profile,
			})
		})

		client.On("updateProfile", func(args ...interface{}) {
			avatarUrl := payloadString(payload(args), "avatarUrl")
			if avatarUrl == "" {
				client.Emit("updateProfile_error", ErrorPayload{Error: "No avatar URL provided for update."})
				return
			}

			profile := new(model.User)
			if err := database.Postgres.First(profile, user).Error; err != nil {
				fail(client, "updateProfile_error", err)
				return
			}
			profile.AvatarUrl = avatarUrl
			if err := database.Postgres.Save(profile).Error; err != nil {
				fail(client, "updateProfile_error", err)
				return
			}

			peers, err := contacts.PeerIDs(user)
			if err == nil {
				for _, peer := range peers {
					room := chat.RoomFor(user, peer)
					client.To(socket.Room(room)).Emit("contact_profile_updated", map[string]interface{}{
						"contactId": user,
						"updatedData": map[string]interface{}{
							"name":      profile.Name,
							"email":     profile.Email,
							"avatarUrl": profile.AvatarUrl,
						},
					})
				}
			}

			client.Emit("updateProfile_success", map[string]interface{}{
				"message": "Profile updated successfully!",
				"user":    profile,
			})
		})

		groupEvents(client, user, groups)
	})
}

// typing relays a typing indicator to the pairwise room. Broadcast
// only, nothing persisted.
func typing(client *socket.Socket, user uint, args []interface{}, eventName string) {
	p := payload(args)
	sender := payloadUint(p, "senderId")
	receiver := payloadUint(p, "receiverId")
	if sender == 0 || receiver == 0 {
		client.Emit("typing_error", ErrorPayload{Error: "Missing sender or receiver ID"})
		return
	}
	if sender != user {
		client.Emit("typing_error", ErrorPayload{Error: "Unauthorized typing event"})
		return
	}

	room := chat.RoomFor(sender, receiver)
	client.To(socket.Room(room)).Emit(eventName, TypingPayload{SenderId: sender})
}

// identity resolves the authenticated user attached to the connection
// by the handshake middleware. The dispatcher never authenticates.
func identity(client *socket.Socket) (uint, bool) {
	claims, ok := client.Data().(*utils.TokenMetadata)
	if !ok || claims == nil {
		return 0, false
	}
	id, err := strconv.ParseUint(claims.Id, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func payload(args []interface{}) map[string]interface{} {
	if len(args) == 0 {
		return nil
	}
	p, _ := args[0].(map[string]interface{})
	return p
}

func payloadString(p map[string]interface{}, key string) string {
	if p == nil {
		return ""
	}
	value, _ := p[key].(string)
	return value
}

func payloadUint(p map[string]interface{}, key string) uint {
	if p == nil {
		return 0
	}
	switch value := p[key].(type) {
	case float64:
		return uint(value)
	case string:
		id, _ := strconv.ParseUint(value, 10, 64)
		return uint(id)
	}
	return 0
}

// fail reports an error to the initiating connection only. Expected
// domain outcomes map to their client-facing message; anything else is
// logged and reported as a generic, retryable failure.
func fail(client *socket.Socket, eventName string, err error) {
	client.Emit(eventName, ErrorPayload{Error: errorMessage(err)})
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrPeerNotFound):
		return "Contact user not found"
	case errors.Is(err, chat.ErrNotContact):
		return "You are not allowed to chat with this user."
	case errors.Is(err, chat.ErrSenderMismatch):
		return "Unauthorized: Sender ID mismatch"
	case errors.Is(err, chat.ErrGroupNotFound):
		return "Group not found."
	case errors.Is(err, chat.ErrGroupExists):
		return "A group with this name already exists."
	case errors.Is(err, chat.ErrNotAdmin):
		return "Only group admins can manage members."
	case errors.Is(err, chat.ErrNotMember):
		return "You are not a member of this group."
	case errors.Is(err, chat.ErrAlreadyMember):
		return "User is already a member of the group."
	case errors.Is(err, chat.ErrAdminLocked):
		return "Admin cannot leave or be removed. Transfer admin rights first."
	default:
		log.Printf("socket handler: %v", err)
		return "Something went wrong"
	}
}
