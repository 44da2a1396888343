// Package services provides the alert server's business logic
package services

import (
	"sort"
	"sync"

	"github.com/irisdrone/bladealert/internal/models"
)

// DefaultAlertCacheSize is how many recent alerts the live view keeps
const DefaultAlertCacheSize = 1000

// AlertCache holds the most recent alerts, newest first. When full, the
// oldest entry is evicted.
type AlertCache struct {
	mu     sync.RWMutex
	alerts []models.Alert
	ids    map[string]struct{}
	limit  int
}

// NewAlertCache creates a cache bounded to limit entries
func NewAlertCache(limit int) *AlertCache {
	if limit <= 0 {
		limit = DefaultAlertCacheSize
	}
	return &AlertCache{
		alerts: make([]models.Alert, 0, limit),
		ids:    make(map[string]struct{}, limit),
		limit:  limit,
	}
}

// Push places an alert at the head of the cache. It returns false when an
// alert with the same id is already cached.
func (c *AlertCache) Push(a models.Alert) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushLocked(a)
}

// Merge inserts a batch by detection time, keeping the cache newest first.
// Alerts older than everything in a full cache are not added. It returns how
// many alerts were inserted.
func (c *AlertCache) Merge(batch []models.Alert) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, a := range batch {
		if a.AlertID != "" {
			if _, dup := c.ids[a.AlertID]; dup {
				continue
			}
		}
		pos := sort.Search(len(c.alerts), func(i int) bool {
			return !newerThan(c.alerts[i], a)
		})
		if pos >= c.limit {
			continue
		}
		c.insertLocked(pos, a)
		added++
	}
	return added
}

func (c *AlertCache) pushLocked(a models.Alert) bool {
	if a.AlertID != "" {
		if _, dup := c.ids[a.AlertID]; dup {
			return false
		}
	}
	c.insertLocked(0, a)
	return true
}

// insertLocked places a at pos and evicts the tail beyond the limit
func (c *AlertCache) insertLocked(pos int, a models.Alert) {
	c.alerts = append(c.alerts, models.Alert{})
	copy(c.alerts[pos+1:], c.alerts[pos:len(c.alerts)-1])
	c.alerts[pos] = a
	if a.AlertID != "" {
		c.ids[a.AlertID] = struct{}{}
	}

	if len(c.alerts) > c.limit {
		evicted := c.alerts[len(c.alerts)-1]
		c.alerts = c.alerts[:len(c.alerts)-1]
		delete(c.ids, evicted.AlertID)
	}
}

// newerThan orders alerts by detection time, falling back to the raw string
// when either time does not parse
func newerThan(a, b models.Alert) bool {
	ta, ea := a.DetectedAt()
	tb, eb := b.DetectedAt()
	if ea != nil || eb != nil {
		return a.DetectionTime > b.DetectionTime
	}
	return ta.After(tb)
}

// Contains reports whether an alert id is cached
func (c *AlertCache) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ids[id]
	return ok
}

// Page returns one page of cached alerts
func (c *AlertCache) Page(page, perPage int) ([]models.Alert, models.Pagination) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := models.NewPagination(page, perPage, len(c.alerts))
	start, end := p.Bounds()
	out := make([]models.Alert, end-start)
	copy(out, c.alerts[start:end])
	return out, p
}

// Stats reports occupancy
func (c *AlertCache) Stats() models.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.CacheStats{
		TotalAlerts:       len(c.alerts),
		CachedAlertsLimit: c.limit,
	}
}

// Len returns the number of cached alerts
func (c *AlertCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.alerts)
}

// CameraIDs returns the distinct camera ids of cached alerts
func (c *AlertCache) CameraIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, a := range c.alerts {
		if a.CameraID == "" {
			continue
		}
		if _, ok := seen[a.CameraID]; !ok {
			seen[a.CameraID] = struct{}{}
			out = append(out, a.CameraID)
		}
	}
	return out
}
