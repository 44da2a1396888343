package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/irisdrone/bladealert/internal/models"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	tickers []*fakeTicker
}

// fakeTicker fires at most once per Advance and drops ticks nobody reads,
// as time.Ticker does.
type fakeTicker struct {
	clock   *fakeClock
	period  time.Duration
	next    time.Time
	ch      chan time.Time
	stopped bool
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{clock: c, period: d, next: c.now.Add(d), ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

func (t *fakeTicker) C() <-chan time.Time {
	return t.ch
}

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}

// activeTickers counts tickers that have not been stopped
func (c *fakeClock) activeTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward, runs the callbacks of timers that came due and
// fires tickers whose period elapsed.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	for _, t := range c.tickers {
		if t.stopped || t.next.After(c.now) {
			continue
		}
		for !t.next.After(c.now) {
			t.next = t.next.Add(t.period)
		}
		select {
		case t.ch <- c.now:
		default:
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// pending counts armed timers
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeSource struct {
	mu          sync.Mutex
	liveCalls   int
	searchCalls int
	cameraCalls int
	lastLive    [2]int
	lastSearch  models.SearchParams

	alerts    []models.Alert
	cameras   []string
	liveErr   error
	searchErr error
	cameraErr error

	// when set, Cameras signals started and waits on release
	started chan struct{}
	release chan struct{}
}

func (f *fakeSource) Live(ctx context.Context, page, perPage int) (*models.AlertPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liveCalls++
	f.lastLive = [2]int{page, perPage}
	if f.liveErr != nil {
		return nil, f.liveErr
	}
	return &models.AlertPage{
		Status:     models.StatusSuccess,
		Alerts:     f.alerts,
		Pagination: models.NewPagination(page, perPage, len(f.alerts)),
	}, nil
}

func (f *fakeSource) Search(ctx context.Context, p models.SearchParams) (*models.AlertPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.lastSearch = p
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &models.AlertPage{
		Status:     models.StatusSuccess,
		Alerts:     f.alerts,
		Pagination: models.NewPagination(p.Page, p.PerPage, len(f.alerts)),
		SearchMode: "file",
	}, nil
}

func (f *fakeSource) Cameras(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	f.cameraCalls++
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		close(started)
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cameraErr != nil {
		return nil, f.cameraErr
	}
	out := make([]string, len(f.cameras))
	copy(out, f.cameras)
	return out, nil
}

func (f *fakeSource) counts() (live, search, cameras int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.liveCalls, f.searchCalls, f.cameraCalls
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}
