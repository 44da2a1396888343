package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/irisdrone/bladealert/internal/models"
)

func waitForClients(t *testing.T, h *AlertHub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Stats().Clients != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d clients, want %d", h.Stats().Clients, n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, c *AlertClient) HubMessage {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var msg HubMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("bad hub message: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
	return HubMessage{}
}

func TestAlertHub_BroadcastRespectsCameraFilter(t *testing.T) {
	hub := NewAlertHub(nil)
	go hub.Run()
	defer hub.Stop()

	all := NewAlertClient(hub, nil, "all")
	onlyB := NewAlertClient(hub, nil, "only-b")
	onlyB.addCamera("B02")
	hub.Register(all)
	hub.Register(onlyB)
	waitForClients(t, hub, 2)

	hub.Broadcast(models.Alert{AlertID: "x1", CameraID: "A01"})
	hub.Broadcast(models.Alert{AlertID: "x2", CameraID: "B02"})

	msg := receive(t, all)
	if msg.Type != "alert" || msg.Camera != "A01" {
		t.Errorf("first message = %+v", msg)
	}
	var a models.Alert
	if err := json.Unmarshal(msg.Data, &a); err != nil || a.AlertID != "x1" {
		t.Errorf("payload = %s (%v)", msg.Data, err)
	}
	if msg := receive(t, all); msg.Camera != "B02" {
		t.Errorf("second message = %+v", msg)
	}
	if msg := receive(t, onlyB); msg.Camera != "B02" {
		t.Errorf("filtered client got %+v", msg)
	}
	if len(onlyB.send) != 0 {
		t.Error("filtered client received extra messages")
	}

	if stats := hub.Stats(); stats.Delivered != 3 || stats.Dropped != 0 {
		t.Errorf("stats = %+v", stats)
	}

	onlyB.removeCamera("B02")
	if !onlyB.watches("A01") {
		t.Error("client with no cameras should watch everything")
	}
}

func TestAlertHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewAlertHub(nil)
	go hub.Run()
	defer hub.Stop()

	slow := NewAlertClient(hub, nil, "slow")
	hub.Register(slow)
	waitForClients(t, hub, 1)

	for i := 0; i < sendBufferSize+5; i++ {
		hub.Broadcast(models.Alert{AlertID: "a", CameraID: "A01"})
	}
	if stats := hub.Stats(); stats.Dropped != 5 {
		t.Errorf("dropped = %d, want 5", stats.Dropped)
	}
}

func TestAlertHub_StopClosesClients(t *testing.T) {
	hub := NewAlertHub(nil)
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	c := NewAlertClient(hub, nil, "c")
	hub.Register(c)
	waitForClients(t, hub, 1)

	hub.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	if _, ok := <-c.send; ok {
		t.Error("client channel still open")
	}

	// registering after stop must not block
	hub.Register(NewAlertClient(hub, nil, "late"))
}

func TestAlertSubject(t *testing.T) {
	if got := AlertSubject("A01"); got != "alerts.A01" {
		t.Errorf("AlertSubject = %q", got)
	}
}
