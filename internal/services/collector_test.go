package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/irisdrone/bladealert/internal/models"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return p.err
}

type memoryIndex struct {
	mu      sync.Mutex
	alerts  map[string]models.Alert
	upserts int
}

func (m *memoryIndex) Upsert(ctx context.Context, a models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.alerts == nil {
		m.alerts = make(map[string]models.Alert)
	}
	m.alerts[a.AlertID] = a
	m.upserts++
	return nil
}

func (m *memoryIndex) Search(ctx context.Context, p models.SearchParams) (*models.AlertPage, error) {
	return nil, errors.New("not implemented")
}

func newTestCollector(t *testing.T, limit int) (*Collector, *FileStore, *AlertCache) {
	t.Helper()
	store := newTestStore(t)
	cache := NewAlertCache(limit)
	cameras := NewCameraIndex(store, cache, 0)
	return NewCollector(store, cache, cameras, nil, CollectorConfig{}), store, cache
}

func TestCollector_ScanOnce(t *testing.T) {
	c, store, cache := newTestCollector(t, 3)
	idx := &memoryIndex{}
	c.SetIndex(idx)

	saveAlert(t, store, "a2", "A01", "2024-05-02T08:00:00")
	saveAlert(t, store, "a1", "A01", "2024-05-01T08:00:00")
	saveAlert(t, store, "a4", "B02", "2024-05-04T08:00:00")
	saveAlert(t, store, "a3", "B02", "2024-05-03T08:00:00")

	added, err := c.ScanOnce()
	if err != nil {
		t.Fatalf("ScanOnce failed: %v", err)
	}
	if added != 3 {
		t.Errorf("added = %d, want 3", added)
	}
	if got := fmt.Sprint(cachedIDs(cache)); got != "[a4 a3 a2]" {
		t.Errorf("cache = %s, want [a4 a3 a2]", got)
	}
	if idx.upserts != 4 {
		t.Errorf("indexed %d alerts, want 4", idx.upserts)
	}
}

func TestCollector_RepeatedScansKeepNewest(t *testing.T) {
	c, store, cache := newTestCollector(t, 2)
	idx := &memoryIndex{}
	c.SetIndex(idx)

	saveAlert(t, store, "a1", "A01", "2024-05-01T08:00:00")
	saveAlert(t, store, "a2", "A01", "2024-05-02T08:00:00")
	saveAlert(t, store, "a3", "A01", "2024-05-03T08:00:00")

	for i := 1; i <= 3; i++ {
		added, err := c.ScanOnce()
		if err != nil {
			t.Fatalf("scan %d failed: %v", i, err)
		}
		if i > 1 && added != 0 {
			t.Errorf("scan %d added %d, want 0", i, added)
		}
		if got := fmt.Sprint(cachedIDs(cache)); got != "[a3 a2]" {
			t.Errorf("scan %d cache = %s, want [a3 a2]", i, got)
		}
	}
	if idx.upserts != 3 {
		t.Errorf("upserts = %d, want 3", idx.upserts)
	}

	// a late file older than the cache is indexed but stays out of the live view
	saveAlert(t, store, "a0", "A01", "2024-04-30T08:00:00")
	saveAlert(t, store, "a4", "A01", "2024-05-04T08:00:00")
	if added, _ := c.ScanOnce(); added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
	if got := fmt.Sprint(cachedIDs(cache)); got != "[a4 a3]" {
		t.Errorf("cache = %s, want [a4 a3]", got)
	}
	if idx.upserts != 5 {
		t.Errorf("upserts = %d, want 5", idx.upserts)
	}
}

func TestCollector_ScanSkipsIngested(t *testing.T) {
	c, _, cache := newTestCollector(t, 1)
	ctx := context.Background()

	for _, id := range []string{"i1", "i2"} {
		a := &models.Alert{AlertID: id, CameraID: "A01", DetectionTime: "2024-05-01T08:00:00"}
		if err := c.Ingest(ctx, a, nil); err != nil {
			t.Fatalf("Ingest(%s) failed: %v", id, err)
		}
	}
	if added, _ := c.ScanOnce(); added != 0 {
		t.Errorf("scan re-added %d ingested alerts", added)
	}
	if got := fmt.Sprint(cachedIDs(cache)); got != "[i2]" {
		t.Errorf("cache = %s, want [i2]", got)
	}
}

func TestCollector_Ingest(t *testing.T) {
	c, _, cache := newTestCollector(t, 10)
	pub := &recordingPublisher{}
	idx := &memoryIndex{}
	c.SetPublisher(pub)
	c.SetIndex(idx)

	a := &models.Alert{
		CameraID:      "C07",
		DetectionTime: "2024-05-01T08:00:00",
		Detections:    []models.Detection{{Name: "fushi", Confidence: 0.4}},
	}
	if err := c.Ingest(context.Background(), a, []byte("img")); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if a.AlertID == "" {
		t.Fatal("alert id not assigned")
	}
	if !cache.Contains(a.AlertID) {
		t.Error("alert not cached")
	}
	if _, ok := idx.alerts[a.AlertID]; !ok {
		t.Error("alert not indexed")
	}
	if len(pub.subjects) != 1 || pub.subjects[0] != "alerts.C07" {
		t.Fatalf("published subjects = %v", pub.subjects)
	}

	var sent models.Alert
	if err := json.Unmarshal(pub.payloads[0], &sent); err != nil {
		t.Fatalf("payload not an alert: %v", err)
	}
	if sent.Detections[0].NameChinese != "腐蚀" {
		t.Errorf("published alert not annotated: %+v", sent.Detections[0])
	}

	list := c.cameras.List()
	if len(list.Cameras) != 1 || list.Cameras[0] != "C07" {
		t.Errorf("cameras = %v", list.Cameras)
	}
}

func TestCollector_IngestPublishFailureStillStores(t *testing.T) {
	c, _, cache := newTestCollector(t, 10)
	c.SetPublisher(&recordingPublisher{err: errors.New("nats down")})

	a := &models.Alert{AlertID: "p1", CameraID: "A01", DetectionTime: "2024-05-01T08:00:00"}
	if err := c.Ingest(context.Background(), a, nil); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if !cache.Contains("p1") {
		t.Error("alert not cached")
	}
}

func TestCollector_IngestRejectsBadTime(t *testing.T) {
	c, _, cache := newTestCollector(t, 10)

	a := &models.Alert{AlertID: "bad", CameraID: "A01", DetectionTime: "yesterday"}
	err := c.Ingest(context.Background(), a, nil)
	if !errors.Is(err, ErrInvalidTime) {
		t.Errorf("err = %v, want ErrInvalidTime", err)
	}
	if cache.Len() != 0 {
		t.Error("rejected alert was cached")
	}
}

func TestCollector_StartStop(t *testing.T) {
	c, store, cache := newTestCollector(t, 10)
	saveAlert(t, store, "s1", "A01", "2024-05-01T08:00:00")

	c.Start()
	c.Stop()
	c.Stop()

	// the first scan runs immediately, but Stop may win the race
	if cache.Len() > 1 {
		t.Errorf("cache size = %d", cache.Len())
	}
}
