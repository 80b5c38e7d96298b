package listener

import (
	"log"

	"chat-service/event"
)

var (
	ChatChannel = make(chan event.ChannelData)
)

// Chat drains the chat queue. Downstream consumers (analytics,
// moderation) hang off this stream; the service itself only logs.
func Chat() {
	for e := range ChatChannel {
		log.Printf("chat event [%s]: %s", e.Action, e.Data)
	}
}
