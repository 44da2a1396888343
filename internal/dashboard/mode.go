// Package dashboard holds the alert dashboard's query-mode and camera state
package dashboard

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/irisdrone/bladealert/internal/models"
)

// Mode selects which backend endpoint serves alert fetches
type Mode int

const (
	// ModeLive reads the server's recent-alert cache
	ModeLive Mode = iota
	// ModeHistorical searches persisted alerts by time range
	ModeHistorical
)

func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "live"
	case ModeHistorical:
		return "historical"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// DefaultRevertAfter is how long historical mode lasts before the
// coordinator returns to live mode on its own.
const DefaultRevertAfter = 5 * time.Minute

// AlertSource serves live and historical alert pages
type AlertSource interface {
	Live(ctx context.Context, page, perPage int) (*models.AlertPage, error)
	Search(ctx context.Context, p models.SearchParams) (*models.AlertPage, error)
}

// RevertFunc receives the live fetch issued after a historical timeout
type RevertFunc func(page *models.AlertPage, err error)

// ModeCoordinator routes alert fetches to the live or historical endpoint
// and bounds how long historical mode can last.
type ModeCoordinator struct {
	source      AlertSource
	clock       Clock
	revertAfter time.Duration

	mu         sync.Mutex
	mode       Mode
	enteredAt  time.Time
	timer      Timer
	timerGen   uint64
	lastSearch *models.SearchParams
	page       int
	perPage    int
	onRevert   RevertFunc
}

// CoordinatorOption configures a ModeCoordinator
type CoordinatorOption func(*ModeCoordinator)

// WithClock replaces the wall clock and timer source
func WithClock(c Clock) CoordinatorOption {
	return func(m *ModeCoordinator) {
		m.clock = c
	}
}

// WithRevertAfter sets how long historical mode lasts
func WithRevertAfter(d time.Duration) CoordinatorOption {
	return func(m *ModeCoordinator) {
		if d > 0 {
			m.revertAfter = d
		}
	}
}

// WithRevertHandler registers the receiver of post-timeout live fetches
func WithRevertHandler(fn RevertFunc) CoordinatorOption {
	return func(m *ModeCoordinator) {
		m.onRevert = fn
	}
}

// NewModeCoordinator creates a coordinator in live mode
func NewModeCoordinator(source AlertSource, opts ...CoordinatorOption) *ModeCoordinator {
	m := &ModeCoordinator{
		source:      source,
		clock:       RealClock(),
		revertAfter: DefaultRevertAfter,
		mode:        ModeLive,
		page:        1,
		perPage:     9,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetRevertHandler replaces the receiver of post-timeout live fetches
func (m *ModeCoordinator) SetRevertHandler(fn RevertFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRevert = fn
}

// Mode returns the current query mode
func (m *ModeCoordinator) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// LastSearchParams returns the parameters of the last historical fetch
func (m *ModeCoordinator) LastSearchParams() (models.SearchParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastSearch == nil {
		return models.SearchParams{}, false
	}
	return *m.lastSearch, true
}

// SwitchToHistorical enters historical mode and arms the revert timer.
// Calling it while already historical does nothing; the timer is not reset.
func (m *ModeCoordinator) SwitchToHistorical() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode == ModeHistorical {
		return
	}

	m.mode = ModeHistorical
	m.enteredAt = m.clock.Now()

	m.stopTimerLocked()
	gen := m.timerGen
	m.timer = m.clock.AfterFunc(m.revertAfter, func() {
		m.onTimeout(gen)
	})

	log.Printf("🔎 Switched to historical mode (auto-revert in %s)", m.revertAfter)
}

// SwitchToLive returns to live mode, dropping search state and the timer
func (m *ModeCoordinator) SwitchToLive() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.switchToLiveLocked()
}

func (m *ModeCoordinator) switchToLiveLocked() bool {
	if m.mode == ModeLive {
		return false
	}

	m.mode = ModeLive
	m.lastSearch = nil
	m.enteredAt = time.Time{}
	m.stopTimerLocked()

	log.Println("📡 Switched to live mode")
	return true
}

// stopTimerLocked cancels the pending timer. Bumping the generation makes a
// callback that already started treat itself as stale.
func (m *ModeCoordinator) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerGen++
}

// onTimeout runs when the revert timer fires
func (m *ModeCoordinator) onTimeout(gen uint64) {
	m.mu.Lock()
	if gen != m.timerGen || m.mode != ModeHistorical {
		m.mu.Unlock()
		return
	}
	log.Printf("⏰ Historical mode expired after %s, returning to live mode", m.revertAfter)
	m.switchToLiveLocked()
	page, perPage := m.page, m.perPage
	notify := m.onRevert
	m.mu.Unlock()

	result, err := m.source.Live(context.Background(), page, perPage)
	if err != nil {
		log.Printf("⚠️ Live refresh after revert failed: %v", err)
	}
	if notify != nil {
		notify(result, err)
	}
}

// Fetch loads one page of alerts from the endpoint the current mode selects.
// In live mode only paging is sent; filters are applied by the caller.
// A historical fetch without both time bounds, or one that fails, leaves the
// coordinator in live mode.
func (m *ModeCoordinator) Fetch(ctx context.Context, params models.SearchParams) (*models.AlertPage, error) {
	m.mu.Lock()
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 {
		params.PerPage = m.perPage
	}
	m.page, m.perPage = params.Page, params.PerPage

	if m.mode == ModeLive {
		m.mu.Unlock()
		page, err := m.source.Live(ctx, params.Page, params.PerPage)
		if err != nil {
			return nil, fmt.Errorf("live fetch failed: %w", err)
		}
		return page, nil
	}

	if !params.HasTimeRange() {
		m.switchToLiveLocked()
		m.mu.Unlock()
		return nil, ErrMissingTimeRange
	}

	stored := params
	m.lastSearch = &stored
	m.mu.Unlock()

	page, err := m.source.Search(ctx, params)
	if err != nil {
		m.SwitchToLive()
		return nil, fmt.Errorf("historical fetch failed: %w", err)
	}
	return page, nil
}

// Remaining returns how long until historical mode reverts, clamped to zero.
// It is recomputed from the wall clock on every call, so a system clock change
// moves the countdown with it.
func (m *ModeCoordinator) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != ModeHistorical {
		return 0
	}
	remaining := m.revertAfter - m.clock.Now().Sub(m.enteredAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Close cancels the revert timer. Call it before discarding the coordinator.
func (m *ModeCoordinator) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
}

// hasPendingTimer reports whether a revert timer is armed
func (m *ModeCoordinator) hasPendingTimer() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer != nil
}
