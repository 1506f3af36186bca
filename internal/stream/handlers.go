package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func RegisterRoutes(r fiber.Router, hub *Hub) {
	r.Get("/ws/party/:partyID", websocket.New(func(c *websocket.Conn) {
		serve(c, hub, "party:"+c.Params("partyID"))
	}))

	r.Get("/ws/sos", websocket.New(func(c *websocket.Conn) {
		serve(c, hub, "sos")
	}))
}

func serve(c *websocket.Conn, hub *Hub, topic string) {
	client := hub.Register(topic)

	done := make(chan struct{})
	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
		close(done)
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}

	// closing Send lets the writer drain and exit
	hub.Unregister(client)
	<-done
}
