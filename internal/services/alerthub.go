package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/irisdrone/bladealert/internal/models"
	"github.com/nats-io/nats.go"
)

// AlertSubjectPrefix is the NATS subject prefix alerts are published under.
// The full subject is alerts.<camera_id>.
const AlertSubjectPrefix = "alerts"

// AlertSubject returns the subject for a camera's alerts
func AlertSubject(cameraID string) string {
	return fmt.Sprintf("%s.%s", AlertSubjectPrefix, cameraID)
}

// AlertHub fans newly ingested alerts out to WebSocket clients
type AlertHub struct {
	natsConn *nats.Conn
	natsSub  *nats.Subscription

	clients   map[*AlertClient]bool
	clientsMu sync.RWMutex

	register   chan *AlertClient
	unregister chan *AlertClient
	stop       chan struct{}
	stopOnce   sync.Once

	delivered uint64
	dropped   uint64
	countMu   sync.Mutex
}

// AlertClient is one WebSocket connection watching alerts. An empty camera
// set means every camera.
type AlertClient struct {
	hub        *AlertHub
	conn       *websocket.Conn
	send       chan []byte
	cameras    map[string]bool
	camerasMu  sync.RWMutex
	remoteAddr string
}

// HubMessage is a message sent to or from clients
type HubMessage struct {
	Type   string          `json:"type"` // subscribe, unsubscribe, ping, alert, pong, error
	Camera string          `json:"camera,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// NewAlertHub creates a hub. natsConn may be nil, in which case alerts only
// arrive through Broadcast.
func NewAlertHub(natsConn *nats.Conn) *AlertHub {
	return &AlertHub{
		natsConn:   natsConn,
		clients:    make(map[*AlertClient]bool),
		register:   make(chan *AlertClient),
		unregister: make(chan *AlertClient),
		stop:       make(chan struct{}),
	}
}

// Subscribe starts listening on alerts.> when a NATS connection is set
func (h *AlertHub) Subscribe() error {
	if h.natsConn == nil {
		return nil
	}
	sub, err := h.natsConn.Subscribe(AlertSubjectPrefix+".>", func(msg *nats.Msg) {
		var a models.Alert
		if err := json.Unmarshal(msg.Data, &a); err != nil {
			log.Printf("⚠️ Failed to decode alert message on %s: %v", msg.Subject, err)
			return
		}
		h.Broadcast(a)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to alerts: %w", err)
	}
	h.natsSub = sub
	log.Printf("📡 Alert hub subscribed to %s.>", AlertSubjectPrefix)
	return nil
}

// Register adds a client to the hub. It is a no-op once the hub stopped.
func (h *AlertHub) Register(client *AlertClient) {
	select {
	case h.register <- client:
	case <-h.stop:
	}
}

// Run starts the hub's main loop
func (h *AlertHub) Run() {
	log.Println("📺 Alert hub started")

	for {
		select {
		case <-h.stop:
			h.clientsMu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientsMu.Unlock()
			return

		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client] = true
			h.clientsMu.Unlock()
			log.Printf("📺 Client connected: %s", client.remoteAddr)

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientsMu.Unlock()
			log.Printf("📺 Client disconnected: %s", client.remoteAddr)
		}
	}
}

// Stop ends the main loop and drops every client
func (h *AlertHub) Stop() {
	h.stopOnce.Do(func() {
		if h.natsSub != nil {
			h.natsSub.Unsubscribe()
		}
		close(h.stop)
	})
}

// Broadcast sends an alert to every client watching its camera
func (h *AlertHub) Broadcast(a models.Alert) {
	data, err := json.Marshal(a)
	if err != nil {
		log.Printf("⚠️ Failed to encode alert %s: %v", a.AlertID, err)
		return
	}
	msg, _ := json.Marshal(HubMessage{Type: "alert", Camera: a.CameraID, Data: data})

	var delivered, dropped uint64
	h.clientsMu.RLock()
	for client := range h.clients {
		if !client.watches(a.CameraID) {
			continue
		}
		select {
		case client.send <- msg:
			delivered++
		default:
			// Client buffer full, skip
			dropped++
		}
	}
	h.clientsMu.RUnlock()

	h.countMu.Lock()
	h.delivered += delivered
	h.dropped += dropped
	h.countMu.Unlock()
}

// HubStats reports hub activity
type HubStats struct {
	Clients   int    `json:"clients"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
}

// Stats returns hub statistics
func (h *AlertHub) Stats() HubStats {
	h.clientsMu.RLock()
	clientCount := len(h.clients)
	h.clientsMu.RUnlock()

	h.countMu.Lock()
	defer h.countMu.Unlock()
	return HubStats{
		Clients:   clientCount,
		Delivered: h.delivered,
		Dropped:   h.dropped,
	}
}

func (c *AlertClient) watches(cameraID string) bool {
	c.camerasMu.RLock()
	defer c.camerasMu.RUnlock()
	return len(c.cameras) == 0 || c.cameras[cameraID]
}

func (c *AlertClient) addCamera(cameraID string) {
	c.camerasMu.Lock()
	c.cameras[cameraID] = true
	c.camerasMu.Unlock()
}

func (c *AlertClient) removeCamera(cameraID string) {
	c.camerasMu.Lock()
	delete(c.cameras, cameraID)
	c.camerasMu.Unlock()
}
