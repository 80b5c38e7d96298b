package router

import (
	"strconv"
	"strings"

	"chat-service/chat"
	"chat-service/event"
	"chat-service/model"
	"chat-service/socketio"

	"github.com/zishang520/socket.io/v2/socket"
)

type GroupMessageEnvelope struct {
	Message *model.GroupMessage `json:"message"`
	GroupId uint                `json:"groupId"`
}

type GroupMembershipChange struct {
	GroupId  uint `json:"groupId"`
	MemberId uint `json:"memberId"`
}

// groupEvents registers the group fan-out handlers on a connection.
// Groups have binary membership and no per-member delivery lifecycle;
// their broadcast room is keyed by the group id, not a pairwise key.
func groupEvents(client *socket.Socket, user uint, groups *chat.Groups) {
	client.On("create_group", func(args ...interface{}) {
		p := payload(args)
		name := payloadString(p, "name")
		avatarUrl := payloadString(p, "avatarUrl")
		description := payloadString(p, "description")
		if name == "" || avatarUrl == "" || description == "" {
			client.Emit("create_group_error", ErrorPayload{Error: "Name, avatarUrl, and description are required."})
			return
		}

		group, err := groups.Create(user, name, avatarUrl, description)
		if err != nil {
			fail(client, "create_group_error", err)
			return
		}

		// The creator's live connections start receiving group
		// broadcasts immediately.
		socketio.JoinUserSockets(userRoom(user), chat.GroupRoom(group.ID))

		client.Emit("create_group_success", map[string]interface{}{
			"message": "Group created successfully",
			"group":   group,
		})
	})

	client.On("get_groups", func(args ...interface{}) {
		list, err := groups.ListFor(user)
		if err != nil {
			fail(client, "get_groups_error", err)
			return
		}

		message := "Groups fetched successfully"
		if len(list) == 0 {
			message = "No groups found"
		}
		client.Emit("get_groups_success", map[string]interface{}{
			"message": message,
			"groups":  list,
		})
	})

	client.On("get_group_details", func(args ...interface{}) {
		groupID := payloadUint(payload(args), "groupId")
		if groupID == 0 {
			client.Emit("get_group_details_error", ErrorPayload{Error: "Group ID is required"})
			return
		}

		group, err := groups.Details(user, groupID)
		if err != nil {
			fail(client, "get_group_details_error", err)
			return
		}
		client.Emit("get_group_details_success", map[string]interface{}{
			"message": "Group details fetched successfully",
			"group":   group,
		})
	})

	client.On("add_member", func(args ...interface{}) {
		p := payload(args)
		email := payloadString(p, "email")
		groupID := payloadUint(p, "groupId")
		if email == "" || groupID == 0 {
			client.Emit("add_member_error", ErrorPayload{Error: "Email and groupId are required."})
			return
		}

		group, member, err := groups.AddMember(user, groupID, email)
		if err != nil {
			fail(client, "add_member_error", err)
			return
		}

		client.Emit("add_member_success", map[string]interface{}{
			"message": "Member added successfully.",
			"group":   group,
		})
		client.To(socket.Room(chat.GroupRoom(groupID))).Emit("member_added", map[string]interface{}{
			"groupId": groupID,
			"member": map[string]interface{}{
				"id":        member.ID,
				"name":      member.Name,
				"email":     member.Email,
				"avatarUrl": member.AvatarUrl,
			},
		})

		// Membership changes take effect mid-session: every live
		// connection of the added user joins the broadcast room now.
		socketio.JoinUserSockets(userRoom(member.ID), chat.GroupRoom(groupID))

		event.Emit("chat", event.ActionGroupMembership, GroupMembershipChange{GroupId: groupID, MemberId: member.ID})
	})

	client.On("remove_member", func(args ...interface{}) {
		p := payload(args)
		email := payloadString(p, "email")
		groupID := payloadUint(p, "groupId")
		if email == "" || groupID == 0 {
			client.Emit("remove_member_error", ErrorPayload{Error: "Email and groupId are required."})
			return
		}

		_, member, err := groups.RemoveMember(user, groupID, email)
		if err != nil {
			fail(client, "remove_member_error", err)
			return
		}

		client.Emit("remove_member_success", map[string]interface{}{
			"message":  "Member removed successfully.",
			"groupId":  groupID,
			"memberId": member.ID,
		})
		client.To(socket.Room(chat.GroupRoom(groupID))).Emit("member_removed", GroupMembershipChange{
			GroupId:  groupID,
			MemberId: member.ID,
		})

		socketio.LeaveUserSockets(userRoom(member.ID), chat.GroupRoom(groupID))

		event.Emit("chat", event.ActionGroupMembership, GroupMembershipChange{GroupId: groupID, MemberId: member.ID})
	})

	client.On("leave_group", func(args ...interface{}) {
		groupID := payloadUint(payload(args), "groupId")
		if groupID == 0 {
			client.Emit("leave_group_error", ErrorPayload{Error: "Group ID is required."})
			return
		}

		if err := groups.Leave(user, groupID); err != nil {
			fail(client, "leave_group_error", err)
			return
		}

		socketio.LeaveUserSockets(userRoom(user), chat.GroupRoom(groupID))

		client.Emit("leave_group_success", map[string]interface{}{
			"message": "You have left the group.",
			"groupId": groupID,
		})
		client.To(socket.Room(chat.GroupRoom(groupID))).Emit("member_left", GroupMembershipChange{
			GroupId:  groupID,
			MemberId: user,
		})

		event.Emit("chat", event.ActionGroupMembership, GroupMembershipChange{GroupId: groupID, MemberId: user})
	})

	client.On("send_group_message", func(args ...interface{}) {
		p := payload(args)
		groupID := payloadUint(p, "groupId")
		text := payloadString(p, "text")
		if groupID == 0 || strings.TrimSpace(text) == "" {
			client.Emit("group_message_error", ErrorPayload{Error: "Group ID and non-empty message text are required."})
			return
		}

		message, err := groups.SendMessage(user, groupID, text)
		if err != nil {
			fail(client, "group_message_error", err)
			return
		}

		client.To(socket.Room(chat.GroupRoom(groupID))).Emit("group_message_received", GroupMessageEnvelope{
			Message: message,
			GroupId: groupID,
		})
		client.Emit("group_message_sent", GroupMessageEnvelope{
			Message: message,
			GroupId: groupID,
		})
	})

	client.On("get_group_messages", func(args ...interface{}) {
		groupID := payloadUint(payload(args), "groupId")
		if groupID == 0 {
			client.Emit("get_group_messages_error", ErrorPayload{Error: "Group ID is required."})
			return
		}

		messages, err := groups.Messages(user, groupID)
		if err != nil {
			fail(client, "get_group_messages_error", err)
			return
		}
		client.Emit("get_group_messages_success", map[string]interface{}{
			"messages": messages,
			"groupId":  groupID,
		})
	})

	client.On("group_typing_started", func(args ...interface{}) {
		groupTyping(client, user, args, groups, "group_typing_started")
	})

	client.On("group_typing_stopped", func(args ...interface{}) {
		groupTyping(client, user, args, groups, "group_typing_stopped")
	})
}

func groupTyping(client *socket.Socket, user uint, args []interface{}, groups *chat.Groups, eventName string) {
	groupID := payloadUint(payload(args), "groupId")
	if groupID == 0 {
		client.Emit("group_typing_error", ErrorPayload{Error: "Group ID is required"})
		return
	}

	member, err := groups.IsMember(user, groupID)
	if err != nil {
		fail(client, "group_typing_error", err)
		return
	}
	if !member {
		fail(client, "group_typing_error", chat.ErrNotMember)
		return
	}

	client.To(socket.Room(chat.GroupRoom(groupID))).Emit(eventName, TypingPayload{SenderId: user})
}

func userRoom(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
