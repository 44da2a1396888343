package dashboard

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/irisdrone/bladealert/internal/models"
)

// Source is the full alert server surface a session needs
type Source interface {
	AlertSource
	CameraSource
}

// Listener receives what the render layer shows
type Listener interface {
	AlertsLoaded(mode Mode, page *models.AlertPage, shown []models.Alert)
	LoadFailed(mode Mode, err error)
	ModeTick(mode Mode, remaining time.Duration)
}

// SessionConfig tunes a dashboard session
type SessionConfig struct {
	PageSize       int
	RefreshEvery   time.Duration
	TickEvery      time.Duration
	RevertAfter    time.Duration
	CameraCacheTTL time.Duration
	Clock          Clock
}

// Session owns one coordinator and one camera directory for the lifetime of
// a dashboard, plus the periodic live refresh.
type Session struct {
	Modes   *ModeCoordinator
	Cameras *CameraDirectory

	listener     Listener
	clock        Clock
	refreshEvery time.Duration
	tickEvery    time.Duration

	mu       sync.Mutex
	filter   Filter
	page     int
	perPage  int
	lastPage *models.AlertPage
}

// NewSession wires a coordinator and directory to source
func NewSession(source Source, cfg SessionConfig, listener Listener) *Session {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 9
	}
	if cfg.RefreshEvery <= 0 {
		cfg.RefreshEvery = 30 * time.Second
	}
	if cfg.TickEvery <= 0 {
		cfg.TickEvery = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}

	s := &Session{
		Cameras:      NewCameraDirectory(source, cfg.CameraCacheTTL, cfg.Clock),
		listener:     listener,
		clock:        cfg.Clock,
		refreshEvery: cfg.RefreshEvery,
		tickEvery:    cfg.TickEvery,
		page:         1,
		perPage:      cfg.PageSize,
	}
	s.Modes = NewModeCoordinator(source,
		WithClock(cfg.Clock),
		WithRevertAfter(cfg.RevertAfter),
		WithRevertHandler(s.handleRevert),
	)
	return s
}

// Refresh fetches the current page in the current mode
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	params := s.filter.ToSearchParams(s.page, s.perPage)
	s.mu.Unlock()

	page, err := s.Modes.Fetch(ctx, params)
	mode := s.Modes.Mode()
	if err != nil {
		if errors.Is(err, ErrMissingTimeRange) {
			log.Println("⚠️ Historical search needs a start and end time")
		}
		if s.listener != nil {
			s.listener.LoadFailed(mode, err)
		}
		return err
	}

	s.deliver(mode, page)
	return nil
}

// SearchHistory switches to historical mode and runs a search with f
func (s *Session) SearchHistory(ctx context.Context, f Filter) error {
	s.mu.Lock()
	s.filter = f
	s.page = 1
	s.mu.Unlock()

	s.Modes.SwitchToHistorical()
	return s.Refresh(ctx)
}

// ShowLive switches to live mode and reloads the first page
func (s *Session) ShowLive(ctx context.Context) error {
	s.mu.Lock()
	s.page = 1
	s.mu.Unlock()

	s.Modes.SwitchToLive()
	return s.Refresh(ctx)
}

// SetFilter changes the filter. Historical mode re-queries the server; live
// mode re-filters the page already loaded.
func (s *Session) SetFilter(ctx context.Context, f Filter) error {
	s.mu.Lock()
	s.filter = f
	s.page = 1
	last := s.lastPage
	s.mu.Unlock()

	if s.Modes.Mode() == ModeHistorical || last == nil {
		return s.Refresh(ctx)
	}
	s.deliver(ModeLive, last)
	return nil
}

// SetPage moves to page n and reloads
func (s *Session) SetPage(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	s.mu.Lock()
	s.page = n
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// LoadCameras returns the camera list in presentation order, falling back to
// the default list when the server has none to offer.
func (s *Session) LoadCameras(ctx context.Context) []string {
	list, err := s.Cameras.Load(ctx)
	if err != nil {
		if cached := s.Cameras.GetAll(); len(cached) > 0 {
			return OrderCameras(cached)
		}
		log.Printf("⚠️ Using default camera list: %v", err)
		return OrderCameras(DefaultCameras())
	}
	return OrderCameras(list)
}

// Run drives the periodic refresh until ctx is done. Live mode is
// re-fetched every refresh interval; the mode countdown is reported every
// tick regardless of mode.
func (s *Session) Run(ctx context.Context) {
	s.LoadCameras(ctx)
	s.Refresh(ctx)

	refresh := s.clock.NewTicker(s.refreshEvery)
	defer refresh.Stop()
	tick := s.clock.NewTicker(s.tickEvery)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C():
			if s.Modes.Mode() == ModeLive {
				s.Refresh(ctx)
			}
			s.reportTick()
		case <-tick.C():
			s.reportTick()
		}
	}
}

// Close stops the revert timer
func (s *Session) Close() {
	s.Modes.Close()
}

func (s *Session) reportTick() {
	if s.listener != nil {
		s.listener.ModeTick(s.Modes.Mode(), s.Modes.Remaining())
	}
}

func (s *Session) handleRevert(page *models.AlertPage, err error) {
	if err != nil {
		if s.listener != nil {
			s.listener.LoadFailed(ModeLive, err)
		}
		return
	}
	if page.Pagination.Page > 0 {
		s.mu.Lock()
		s.page = page.Pagination.Page
		s.mu.Unlock()
	}
	s.deliver(ModeLive, page)
}

func (s *Session) deliver(mode Mode, page *models.AlertPage) {
	s.mu.Lock()
	f := s.filter
	s.lastPage = page
	s.mu.Unlock()

	shown := page.Alerts
	if mode == ModeLive && !f.IsZero() {
		shown = FilterAlerts(page.Alerts, f)
	}
	if s.listener != nil {
		s.listener.AlertsLoaded(mode, page, shown)
	}
}
