package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/irisdrone/bladealert/internal/models"
)

// Publisher sends a message on a subject
type Publisher interface {
	Publish(subject string, data []byte) error
}

// AlertIndex is a searchable copy of persisted alerts
type AlertIndex interface {
	Upsert(ctx context.Context, a models.Alert) error
	Search(ctx context.Context, p models.SearchParams) (*models.AlertPage, error)
}

// CollectorConfig tunes the background scan
type CollectorConfig struct {
	ScanInterval time.Duration
	ErrorBackoff time.Duration
}

// Collector keeps the live cache in step with the alert directory and
// handles pushed alerts.
type Collector struct {
	store      *FileStore
	cache      *AlertCache
	cameras    *CameraIndex
	translator *DefectTranslator
	publisher  Publisher
	index      AlertIndex

	scanInterval time.Duration
	errorBackoff time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu        sync.Mutex
	lastCount int
	seen      map[string]struct{}
}

// NewCollector wires the collector's dependencies
func NewCollector(store *FileStore, cache *AlertCache, cameras *CameraIndex, translator *DefectTranslator, cfg CollectorConfig) *Collector {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 5 * time.Second
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 10 * time.Second
	}
	if translator == nil {
		translator = NewDefectTranslator()
	}
	return &Collector{
		store:        store,
		cache:        cache,
		cameras:      cameras,
		translator:   translator,
		scanInterval: cfg.ScanInterval,
		errorBackoff: cfg.ErrorBackoff,
		stopChan:     make(chan struct{}),
		seen:         make(map[string]struct{}),
	}
}

// SetPublisher enables publishing ingested alerts
func (c *Collector) SetPublisher(p Publisher) {
	c.publisher = p
}

// SetIndex enables the search index
func (c *Collector) SetIndex(idx AlertIndex) {
	c.index = idx
}

// Index returns the configured search index, or nil
func (c *Collector) Index() AlertIndex {
	return c.index
}

// Start launches the background scan loop
func (c *Collector) Start() {
	c.wg.Add(1)
	go c.scanLoop()
	log.Printf("✅ Alert collector started (dir: %s, every %s)", c.store.Root(), c.scanInterval)
}

// Stop ends the scan loop and waits for it
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	c.wg.Wait()
	log.Println("✅ Alert collector stopped")
}

func (c *Collector) scanLoop() {
	defer c.wg.Done()

	delay := time.Duration(0)
	for {
		select {
		case <-c.stopChan:
			return
		case <-time.After(delay):
		}

		if _, err := c.ScanOnce(); err != nil {
			log.Printf("⚠️ Alert scan failed: %v", err)
			delay = c.errorBackoff
			continue
		}
		delay = c.scanInterval
	}
}

// ScanOnce loads persisted alerts that were not loaded or ingested before.
// New alerts are indexed and merged into the live cache by detection time.
// It returns how many entered the cache.
func (c *Collector) ScanOnce() (int, error) {
	alerts, err := c.store.Scan()
	if err != nil {
		return 0, err
	}

	fresh := make([]models.Alert, 0)
	c.mu.Lock()
	for _, a := range alerts {
		key := seenKey(a)
		if _, ok := c.seen[key]; ok {
			continue
		}
		c.seen[key] = struct{}{}
		fresh = append(fresh, a)
	}
	c.mu.Unlock()

	if len(fresh) == 0 {
		return 0, nil
	}

	// newest first so older alerts cannot push newer ones out of a full cache
	sortNewestFirst(fresh)
	added := c.cache.Merge(fresh)

	log.Printf("📥 Loaded %d new alerts from disk, %d cached, cache size %d", len(fresh), added, c.cache.Len())
	if c.index != nil {
		for _, a := range fresh {
			if err := c.index.Upsert(context.Background(), a); err != nil {
				log.Printf("⚠️ Failed to index alert %s: %v", a.AlertID, err)
			}
		}
	}

	size := c.cache.Len()
	c.mu.Lock()
	if size != c.lastCount {
		log.Printf("📊 Cache size changed: %d -> %d", c.lastCount, size)
		c.lastCount = size
	}
	c.mu.Unlock()

	return added, nil
}

// seenKey identifies an alert across scans. Files without an id fall back to
// camera and detection time.
func seenKey(a models.Alert) string {
	if a.AlertID != "" {
		return a.AlertID
	}
	return a.CameraID + "|" + a.DetectionTime
}

// Ingest persists a pushed alert, puts it at the head of the live cache and
// announces it.
func (c *Collector) Ingest(ctx context.Context, a *models.Alert, image []byte) error {
	if err := c.store.Save(a, image); err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	c.translator.Annotate(a)

	c.mu.Lock()
	c.seen[seenKey(*a)] = struct{}{}
	c.mu.Unlock()

	c.cache.Push(*a)
	if c.cameras != nil {
		c.cameras.Add(a.CameraID)
	}

	if c.index != nil {
		if err := c.index.Upsert(ctx, *a); err != nil {
			log.Printf("⚠️ Failed to index alert %s: %v", a.AlertID, err)
		}
	}

	if c.publisher != nil {
		data, err := json.Marshal(a)
		if err == nil {
			err = c.publisher.Publish(AlertSubject(a.CameraID), data)
		}
		if err != nil {
			log.Printf("⚠️ Failed to publish alert %s: %v", a.AlertID, err)
		}
	}

	log.Printf("📥 Alert received: %s (camera %s, %d detections)", a.AlertID, a.CameraID, len(a.Detections))
	return nil
}
