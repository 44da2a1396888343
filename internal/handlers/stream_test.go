package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/irisdrone/bladealert/internal/services"
)

func dialStream(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/alerts"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readHubMessage(t *testing.T, conn *websocket.Conn) services.HubMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg services.HubMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return msg
}

func waitForHubClients(t *testing.T, api *API, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for api.Hub.Stats().Clients != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d clients, want %d", api.Hub.Stats().Clients, n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamAlerts(t *testing.T) {
	api, router := newTestAPI(t, nil)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dialStream(t, srv)
	waitForHubClients(t, api, 1)

	conn.WriteJSON(services.HubMessage{Type: "ping"})
	if msg := readHubMessage(t, conn); msg.Type != "pong" {
		t.Errorf("ping reply = %+v", msg)
	}

	conn.WriteJSON(services.HubMessage{Type: "subscribe", Camera: "B02"})
	if msg := readHubMessage(t, conn); msg.Type != "subscribed" || msg.Camera != "B02" {
		t.Errorf("subscribe reply = %+v", msg)
	}

	// A01 is filtered out so the first alert seen is B02's
	postJSON(router, "/api/alerts", `{"alert_id":"w1","camera_id":"A01","detection_time":"2024-05-01T08:00:00"}`)
	postJSON(router, "/api/alerts", `{"alert_id":"w2","camera_id":"B02","detection_time":"2024-05-01T08:00:01"}`)

	msg := readHubMessage(t, conn)
	if msg.Type != "alert" || msg.Camera != "B02" {
		t.Fatalf("alert message = %+v", msg)
	}
	var payload struct {
		AlertID string `json:"alert_id"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.AlertID != "w2" {
		t.Errorf("payload = %s", msg.Data)
	}

	conn.WriteJSON(services.HubMessage{Type: "bogus"})
	if msg := readHubMessage(t, conn); msg.Type != "error" {
		t.Errorf("unknown type reply = %+v", msg)
	}

	conn.Close()
	waitForHubClients(t, api, 0)
}

func TestStreamAlerts_NoHub(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	api.Hub = nil

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ws/alerts", nil)
	api.StreamAlerts(c)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
