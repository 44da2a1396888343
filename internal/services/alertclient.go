package services

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Control messages are small
	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

// NewAlertClient creates a client for an upgraded connection
func NewAlertClient(hub *AlertHub, conn *websocket.Conn, remoteAddr string) *AlertClient {
	return &AlertClient{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		cameras:    make(map[string]bool),
		remoteAddr: remoteAddr,
	}
}

// ReadPump handles subscribe/unsubscribe/ping messages until the peer goes away
func (c *AlertClient) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stop:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ WebSocket error: %v", err)
			}
			break
		}

		var msg HubMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("⚠️ Invalid message from %s: %v", c.remoteAddr, err)
			c.reply(HubMessage{Type: "error", Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case "subscribe":
			if msg.Camera != "" {
				c.addCamera(msg.Camera)
				log.Printf("📺 Client %s watching camera %s", c.remoteAddr, msg.Camera)
			}
			c.reply(HubMessage{Type: "subscribed", Camera: msg.Camera})

		case "unsubscribe":
			if msg.Camera != "" {
				c.removeCamera(msg.Camera)
			}
			c.reply(HubMessage{Type: "unsubscribed", Camera: msg.Camera})

		case "ping":
			c.reply(HubMessage{Type: "pong"})

		default:
			log.Printf("⚠️ Unknown message type: %s", msg.Type)
			c.reply(HubMessage{Type: "error", Error: "unknown message type: " + msg.Type})
		}
	}
}

// WritePump pushes queued messages and keepalive pings to the connection
func (c *AlertClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *AlertClient) reply(msg HubMessage) {
	data, _ := json.Marshal(msg)

	// the hub closes send under the write lock once the client is dropped
	c.hub.clientsMu.RLock()
	defer c.hub.clientsMu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
