package socketio

import (
	"context"
	"time"

	"chat-service/database"
	"chat-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/zishang520/socket.io-go-redis/adapter"
	r_type "github.com/zishang520/socket.io-go-redis/types"
	"github.com/zishang520/socket.io/v2/socket"
)

var server *socket.Server

// Init mounts the socket.io server on the fiber app. Authentication
// happens in the handshake middleware: a valid token attaches the
// claims to the connection and joins it to the per-user room, which is
// the scope for direct notifications to that user.
func Init(app *fiber.App) *socket.Server {
	options := socket.DefaultServerOptions()
	options.SetServeClient(true)
	options.SetAllowEIO3(true)
	options.SetPingInterval(25 * time.Second)
	options.SetPingTimeout(20 * time.Second)
	options.SetConnectTimeout(45 * time.Second)
	options.SetAdapter(&adapter.RedisAdapterBuilder{
		Redis: r_type.NewRedisClient(context.Background(), database.Redis[1]),
		Opts:  &adapter.RedisAdapterOptions{},
	})

	server = socket.NewServer(nil, nil)

	server.Use(func(client *socket.Socket, next func(*socket.ExtendedError)) {
		token, auth := client.Conn().Request().Query().Get("token")

		if auth {
			claims, err := utils.CheckAndExtractTokenMetadata(token, "JWT_ACCESS_KEY")

			if err == nil {
				if !claims.Otp {
					client.Join(socket.Room(claims.Id))
					client.SetData(claims)
				}
			}
		}

		next(nil)
	})

	app.Get("/socket.io/", adaptor.HTTPHandler(server.ServeHandler(options)))
	app.Post("/socket.io/", adaptor.HTTPHandler(server.ServeHandler(options)))

	return server
}

// Emit sends an event to every socket in a room.
func Emit(room string, event string, message any) {
	server.To(socket.Room(room)).Emit(event, message)
}

// JoinUserSockets joins every live connection of a user to a room, so
// mid-session membership changes take effect without reconnect.
func JoinUserSockets(userRoom string, room string) {
	server.To(socket.Room(userRoom)).SocketsJoin(socket.Room(room))
}

// LeaveUserSockets removes every live connection of a user from a room.
func LeaveUserSockets(userRoom string, room string) {
	server.To(socket.Room(userRoom)).SocketsLeave(socket.Room(room))
}
