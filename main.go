package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chat-service/chat"
	"chat-service/config"
	"chat-service/database"
	"chat-service/event"
	"chat-service/event/listener"
	"chat-service/router"
	"chat-service/socketio"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	log.SetPrefix("chat-service: ")

	rest := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StrictRouting:         true,
		AppName:               "chat-service",
	})

	rest.Use(cors.New())

	database.RedisConnect()
	database.PostgresConnect()

	event.RabbitMQConnect([]string{
		"chat",
	})

	// Run chat queue listener
	go listener.Chat()

	event.RabbitMQSubscribe([]event.SubscribeListener{
		{
			Queue:   "chat",
			Channel: listener.ChatChannel,
		},
	})

	socket := socketio.Init(rest)

	// Process-scoped presence state, owned here, handed to the
	// dispatcher. Initialized empty, cleared on stop.
	presence := chat.NewTracker()

	router.Rest(rest)
	router.Socket(socket, presence)

	go rest.Listen(fmt.Sprintf(":%s", config.Config("SERVER_PORT")))

	exit := make(chan struct{})
	SignalC := make(chan os.Signal, 1)

	signal.Notify(SignalC, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range SignalC {
			switch s {
			case syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	presence.Clear()
	socket.Close(nil)
	event.RabbitMQChannel.Close()
	event.RabbitMQConnection.Close()
	event.InLogFile.Close()
	event.OutLogFile.Close()
	os.Exit(0)
}
