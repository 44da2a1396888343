package dashboard

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// DefaultCameraCacheDuration is how long a loaded camera list stays fresh
const DefaultCameraCacheDuration = 5 * time.Minute

// CameraSource lists known camera ids
type CameraSource interface {
	Cameras(ctx context.Context) ([]string, error)
}

// CameraDirectory caches the set of known camera ids and refreshes it from
// the listing endpoint once the cache goes stale. A failed refresh keeps the
// previous list.
type CameraDirectory struct {
	source        CameraSource
	clock         Clock
	cacheDuration time.Duration

	mu          sync.Mutex
	cameras     map[string]struct{}
	sorted      []string
	lastRefresh time.Time
	loading     bool
}

// NewCameraDirectory creates an empty directory
func NewCameraDirectory(source CameraSource, cacheDuration time.Duration, clock Clock) *CameraDirectory {
	if cacheDuration <= 0 {
		cacheDuration = DefaultCameraCacheDuration
	}
	if clock == nil {
		clock = RealClock()
	}
	return &CameraDirectory{
		source:        source,
		clock:         clock,
		cacheDuration: cacheDuration,
		cameras:       make(map[string]struct{}),
	}
}

// Load returns the camera list, fetching it when the cache is stale or empty.
// While a fetch is in flight further calls return the current list without
// issuing another request.
func (d *CameraDirectory) Load(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	if d.loading {
		list := d.snapshotLocked()
		d.mu.Unlock()
		log.Println("📷 Camera list load already in progress")
		return list, nil
	}
	if d.freshLocked() && len(d.sorted) > 0 {
		list := d.snapshotLocked()
		d.mu.Unlock()
		return list, nil
	}
	d.loading = true
	d.mu.Unlock()

	ids, err := d.source.Cameras(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false

	if err != nil {
		log.Printf("⚠️ Failed to load camera list: %v", err)
		return nil, fmt.Errorf("failed to load camera list: %w", err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil, ErrEmptyDirectory
	}

	d.cameras = set
	d.rebuildLocked()
	d.lastRefresh = d.clock.Now()

	log.Printf("📷 Camera list updated: %d cameras", len(d.sorted))
	return d.snapshotLocked(), nil
}

// Add inserts a camera id and extends the freshness window. It returns false
// when the id is empty or already known.
func (d *CameraDirectory) Add(id string) bool {
	if id == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.cameras[id]; exists {
		return false
	}
	d.cameras[id] = struct{}{}
	d.rebuildLocked()
	d.lastRefresh = d.clock.Now()
	return true
}

// ForceRefresh expires the cache and loads the list again
func (d *CameraDirectory) ForceRefresh(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	d.lastRefresh = time.Time{}
	d.mu.Unlock()
	return d.Load(ctx)
}

// Has reports whether id is known
func (d *CameraDirectory) Has(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.cameras[id]
	return ok
}

// GetAll returns a copy of the sorted camera list
func (d *CameraDirectory) GetAll() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// Fresh reports whether the cache is inside its freshness window
func (d *CameraDirectory) Fresh() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.freshLocked()
}

func (d *CameraDirectory) freshLocked() bool {
	if d.lastRefresh.IsZero() {
		return false
	}
	return d.clock.Now().Sub(d.lastRefresh) < d.cacheDuration
}

func (d *CameraDirectory) rebuildLocked() {
	list := make([]string, 0, len(d.cameras))
	for id := range d.cameras {
		list = append(list, id)
	}
	sort.Strings(list)
	d.sorted = list
}

func (d *CameraDirectory) snapshotLocked() []string {
	out := make([]string, len(d.sorted))
	copy(out, d.sorted)
	return out
}

// DefaultCameras is the fallback list shown when the listing endpoint is
// unavailable or empty.
func DefaultCameras() []string {
	return []string{
		"A01", "A02", "A03", "A04", "A05", "A06", "A07", "A08", "A09", "A10", "A11", "A12",
		"B01", "B02", "B03", "B04", "B05", "B06", "B07", "B08", "B09", "B10", "B11", "B12", "B13",
		"C01", "C02", "C03", "C04", "C05", "C06", "C07", "C08", "C09", "C10", "C11",
		"D01", "D02", "D03", "D04", "D05", "D06", "D07", "D08", "D09", "D10", "D11", "D12", "D13", "D15",
	}
}
