package main

import (
	"encoding/json"

	"github.com/irisdrone/bladealert/internal/models"
	"github.com/irisdrone/bladealert/internal/services"
)

// hubPublisher hands alerts straight to the hub when the broker is disabled
type hubPublisher struct {
	hub *services.AlertHub
}

func (p hubPublisher) Publish(subject string, data []byte) error {
	var a models.Alert
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	p.hub.Broadcast(a)
	return nil
}
