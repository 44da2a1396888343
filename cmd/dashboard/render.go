package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/irisdrone/bladealert/internal/dashboard"
	"github.com/irisdrone/bladealert/internal/models"
)

// terminal renders session events as plain text
type terminal struct {
	mu       sync.Mutex
	out      io.Writer
	showTick bool
	lastMode dashboard.Mode
}

func newTerminal(out io.Writer) *terminal {
	return &terminal{out: out, lastMode: dashboard.ModeLive}
}

func (t *terminal) AlertsLoaded(mode dashboard.Mode, page *models.AlertPage, shown []models.Alert) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := page.Pagination
	fmt.Fprintf(t.out, "\n[%s] %s  page %d/%d  total %d  showing %d\n",
		time.Now().Format("15:04:05"), modeLabel(mode), p.Page, p.TotalPages, p.Total, len(shown))
	if len(shown) == 0 {
		fmt.Fprintln(t.out, "  (no alerts)")
		return
	}
	for _, a := range shown {
		fmt.Fprintf(t.out, "  %-20s %-6s %s\n", a.DetectionTime, a.CameraID, describeDetections(a.Detections))
		if a.ImageFilename != "" {
			fmt.Fprintf(t.out, "  %20s image: %s\n", "", a.ImageFilename)
		}
	}
}

func (t *terminal) LoadFailed(mode dashboard.Mode, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "\n[%s] %s load failed: %v\n", time.Now().Format("15:04:05"), modeLabel(mode), err)
}

func (t *terminal) ModeTick(mode dashboard.Mode, remaining time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if mode != t.lastMode {
		fmt.Fprintf(t.out, "\n→ %s\n", modeLabel(mode))
		t.lastMode = mode
	}
	if t.showTick && mode == dashboard.ModeHistorical {
		fmt.Fprintf(t.out, "\rreturning to live in %s ", formatRemaining(remaining))
	}
}

func (t *terminal) Cameras(ids []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "cameras (%d): %s\n", len(ids), strings.Join(ids, " "))
}

func modeLabel(mode dashboard.Mode) string {
	if mode == dashboard.ModeHistorical {
		return "HISTORY"
	}
	return "LIVE"
}

func describeDetections(dets []models.Detection) string {
	if len(dets) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(dets))
	for _, d := range dets {
		name := d.Name
		if d.NameChinese != "" && d.NameChinese != d.Name {
			name = fmt.Sprintf("%s(%s)", d.NameChinese, d.Name)
		}
		parts = append(parts, fmt.Sprintf("%s %.0f%%", name, d.Confidence*100))
	}
	return strings.Join(parts, ", ")
}

// formatRemaining renders m:ss
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
