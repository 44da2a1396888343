package dashboard

import (
	"sort"
	"time"

	"github.com/irisdrone/bladealert/internal/models"
)

// Filter narrows a live page locally. The live endpoint ignores filters, so
// the dashboard applies them after the fetch.
type Filter struct {
	CameraID      string
	DefectName    string
	MinConfidence float64
	Start         time.Time
	End           time.Time
}

// IsZero reports whether the filter lets everything through
func (f Filter) IsZero() bool {
	return f.CameraID == "" && f.DefectName == "" && f.MinConfidence <= 0 && f.Start.IsZero() && f.End.IsZero()
}

// FilterAlerts returns the alerts matching f, newest first. With a positive
// confidence floor, alerts without detections are dropped. Alerts whose
// detection time does not parse only pass when no time bound is set.
func FilterAlerts(alerts []models.Alert, f Filter) []models.Alert {
	type dated struct {
		alert models.Alert
		at    time.Time
	}

	kept := make([]dated, 0, len(alerts))
	for _, a := range alerts {
		if f.CameraID != "" && a.CameraID != f.CameraID {
			continue
		}
		if f.DefectName != "" && !a.HasDefect(f.DefectName) {
			continue
		}
		if f.MinConfidence > 0 {
			best, ok := a.MaxConfidence()
			if !ok || best < f.MinConfidence {
				continue
			}
		}

		at, err := a.DetectedAt()
		if err != nil {
			if !f.Start.IsZero() || !f.End.IsZero() {
				continue
			}
		} else {
			if !f.Start.IsZero() && at.Before(f.Start) {
				continue
			}
			if !f.End.IsZero() && at.After(f.End) {
				continue
			}
		}
		kept = append(kept, dated{alert: a, at: at})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].at.After(kept[j].at)
	})

	out := make([]models.Alert, len(kept))
	for i, k := range kept {
		out[i] = k.alert
	}
	return out
}

// ToSearchParams renders the filter as historical query parameters
func (f Filter) ToSearchParams(page, perPage int) models.SearchParams {
	p := models.SearchParams{
		CameraID:      f.CameraID,
		DefectName:    f.DefectName,
		MinConfidence: f.MinConfidence,
		Page:          page,
		PerPage:       perPage,
	}
	if !f.Start.IsZero() {
		p.StartTime = f.Start.Format(time.RFC3339)
	}
	if !f.End.IsZero() {
		p.EndTime = f.End.Format(time.RFC3339)
	}
	return p
}
