package services

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/irisdrone/bladealert/internal/dashboard"
	"github.com/irisdrone/bladealert/internal/models"
)

// CameraIndex caches the set of camera ids the server knows about. The set
// is rebuilt from the alert directory plus the live cache once it expires;
// ingestion adds ids directly.
type CameraIndex struct {
	store *FileStore
	cache *AlertCache
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	cameras   map[string]struct{}
	refreshed time.Time
}

// NewCameraIndex creates an empty index
func NewCameraIndex(store *FileStore, cache *AlertCache, ttl time.Duration) *CameraIndex {
	if ttl <= 0 {
		ttl = dashboard.DefaultCameraCacheDuration
	}
	return &CameraIndex{
		store:   store,
		cache:   cache,
		ttl:     ttl,
		now:     time.Now,
		cameras: make(map[string]struct{}),
	}
}

// Add records a camera id seen on ingestion
func (c *CameraIndex) Add(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	c.cameras[id] = struct{}{}
	c.mu.Unlock()
}

// List returns the known cameras, rescanning when the cache is stale or
// empty.
func (c *CameraIndex) List() models.CameraList {
	c.mu.Lock()
	if len(c.cameras) > 0 && c.now().Sub(c.refreshed) < c.ttl {
		list := make([]string, 0, len(c.cameras))
		for id := range c.cameras {
			list = append(list, id)
		}
		c.mu.Unlock()
		sort.Strings(list)
		return models.CameraList{
			Status:  models.StatusSuccess,
			Cameras: list,
			Count:   len(list),
			Source:  "cache",
			Cached:  true,
		}
	}
	c.mu.Unlock()

	found := make(map[string]struct{})
	dirs, err := c.store.CameraDirs()
	if err != nil {
		log.Printf("⚠️ Failed to scan camera directories: %v", err)
	}
	for _, id := range dirs {
		found[id] = struct{}{}
	}
	for _, id := range c.cache.CameraIDs() {
		found[id] = struct{}{}
	}

	c.mu.Lock()
	c.cameras = found
	c.refreshed = c.now()
	c.mu.Unlock()

	list := make([]string, 0, len(found))
	for id := range found {
		list = append(list, id)
	}
	list = dashboard.OrderCameras(list)

	log.Printf("📷 Camera directory scan found %d cameras", len(list))
	return models.CameraList{
		Status:  models.StatusSuccess,
		Cameras: list,
		Count:   len(list),
		Source:  "directory_scan",
		Cached:  false,
	}
}
