package models

import (
	"encoding/json"
	"time"
)

// Detection is one defect found on a captured blade image.
// Geometry is a rotated box: centre (x, y), size (w, h), angle r. Keys the
// system does not interpret (points, masks, ...) are kept in Extra.
type Detection struct {
	ClassID     int       `json:"clsId,omitempty"`
	Name        string    `json:"name"`
	NameChinese string    `json:"name_chinese,omitempty"`
	Confidence  float64   `json:"conf"`
	BBox        []float64 `json:"bbox,omitempty"`
	X           float64   `json:"x,omitempty"`
	Y           float64   `json:"y,omitempty"`
	W           float64   `json:"w,omitempty"`
	H           float64   `json:"h,omitempty"`
	R           float64   `json:"r,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type detectionFields Detection

var knownDetectionKeys = []string{
	"clsId", "name", "name_chinese", "conf", "bbox", "x", "y", "w", "h", "r",
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Detection) UnmarshalJSON(data []byte) error {
	var fields detectionFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	extra, err := extraKeys(data, knownDetectionKeys)
	if err != nil {
		return err
	}
	fields.Extra = extra
	*d = Detection(fields)
	return nil
}

// MarshalJSON implements json.Marshaler
func (d Detection) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(detectionFields(d))
	if err != nil {
		return nil, err
	}
	return mergeExtra(known, d.Extra)
}

// Alert is a detection alert raised by an inspection worker.
// Fields the system does not interpret are kept in Extra and written back
// unchanged.
type Alert struct {
	AlertID        string      `json:"alert_id"`
	CameraID       string      `json:"camera_id"`
	CameraName     string      `json:"camera_name,omitempty"`
	DetectionTime  string      `json:"detection_time"`
	ReceivedTime   string      `json:"received_time,omitempty"`
	Detections     []Detection `json:"detections"`
	DetectionCount int         `json:"detection_count,omitempty"`
	ImageFilename  string      `json:"image_filename,omitempty"`
	RelativePath   string      `json:"relative_path,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// alertFields mirrors Alert without methods so it can be (un)marshaled
// without recursing into Alert's own JSON methods.
type alertFields Alert

var knownAlertKeys = []string{
	"alert_id", "camera_id", "camera_name", "detection_time", "received_time",
	"detections", "detection_count", "image_filename", "relative_path",
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Alert) UnmarshalJSON(data []byte) error {
	var fields alertFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	extra, err := extraKeys(data, knownAlertKeys)
	if err != nil {
		return err
	}
	fields.Extra = extra
	*a = Alert(fields)
	return nil
}

// MarshalJSON implements json.Marshaler
func (a Alert) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(alertFields(a))
	if err != nil {
		return nil, err
	}
	return mergeExtra(known, a.Extra)
}

// extraKeys returns the members of a JSON object not named in known, or nil
func extraKeys(data []byte, known []string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// mergeExtra adds extra members to an encoded object. Known fields win.
func mergeExtra(known []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return known, nil
	}
	var knownMap map[string]json.RawMessage
	if err := json.Unmarshal(known, &knownMap); err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(extra)+len(knownMap))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range knownMap {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// MaxConfidence returns the highest detection confidence, and false when the
// alert carries no detections.
func (a *Alert) MaxConfidence() (float64, bool) {
	if len(a.Detections) == 0 {
		return 0, false
	}
	best := a.Detections[0].Confidence
	for _, d := range a.Detections[1:] {
		if d.Confidence > best {
			best = d.Confidence
		}
	}
	return best, true
}

// HasDefect reports whether any detection carries the given defect name.
func (a *Alert) HasDefect(name string) bool {
	for _, d := range a.Detections {
		if d.Name == name {
			return true
		}
	}
	return false
}

// DetectedAt parses DetectionTime.
func (a *Alert) DetectedAt() (time.Time, error) {
	return ParseTime(a.DetectionTime)
}

// Pagination describes one page of a paginated alert listing.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes total pages; an empty result still reports one page.
func NewPagination(page, perPage, total int) Pagination {
	totalPages := 1
	if total > 0 && perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Bounds returns the slice bounds of the page within total items.
func (p Pagination) Bounds() (start, end int) {
	start = (p.Page - 1) * p.PerPage
	if start > p.Total || start < 0 {
		return p.Total, p.Total
	}
	end = start + p.PerPage
	if end > p.Total {
		end = p.Total
	}
	return start, end
}

// CacheStats reports live cache occupancy.
type CacheStats struct {
	TotalAlerts       int `json:"total_alerts"`
	CachedAlertsLimit int `json:"cached_alerts_limit"`
}

// AlertPage is the response shape shared by the live and historical endpoints.
type AlertPage struct {
	Status     string      `json:"status"`
	Message    string      `json:"message,omitempty"`
	Alerts     []Alert     `json:"alerts"`
	Pagination Pagination  `json:"pagination"`
	Stats      *CacheStats `json:"stats,omitempty"`
	SearchMode string      `json:"search_mode,omitempty"`
}

// CameraList is the response of the camera listing endpoint.
type CameraList struct {
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
	Cameras []string `json:"cameras"`
	Count   int      `json:"count"`
	Source  string   `json:"source,omitempty"`
	Cached  bool     `json:"cached"`
}

// SearchParams are the historical query filters.
type SearchParams struct {
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	CameraID      string  `json:"camera_id,omitempty"`
	DefectName    string  `json:"defect_name,omitempty"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
	Page          int     `json:"page"`
	PerPage       int     `json:"per_page"`
}

// HasTimeRange reports whether both bounds are set.
func (p SearchParams) HasTimeRange() bool {
	return p.StartTime != "" && p.EndTime != ""
}

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseTime accepts the ISO-8601 variants workers and browsers send: with or
// without zone, seconds or fraction. Zone-less values are read as local time.
func ParseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
