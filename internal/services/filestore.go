package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/irisdrone/bladealert/internal/models"
)

var (
	// ErrInvalidPath is returned for image paths that leave the alert root
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidTime is returned when a search bound does not parse
	ErrInvalidTime = errors.New("invalid time format")
)

// directories under the alert root that never hold a camera
var nonCameraDirs = map[string]bool{
	"images": true,
	"jsons":  true,
	"temp":   true,
	"backup": true,
	"log":    true,
	"logs":   true,
	".git":   true,
}

// FileStore persists alerts under
// <root>/<camera>/<yyyy>/<mm>/<dd>/{jsons,images}/<alert_id>.{json,jpg}
type FileStore struct {
	root       string
	translator *DefectTranslator
}

// NewFileStore creates the alert root if needed
func NewFileStore(root string, translator *DefectTranslator) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create alert directory %s: %w", root, err)
	}
	if translator == nil {
		translator = NewDefectTranslator()
	}
	return &FileStore{root: root, translator: translator}, nil
}

// Root returns the alert directory
func (s *FileStore) Root() string {
	return s.root
}

// Save fills missing identity and time fields, then writes the image (when
// given) and the alert JSON. The alert is updated in place with its
// relative_path and image_filename.
func (s *FileStore) Save(a *models.Alert, image []byte) error {
	now := time.Now()
	if a.AlertID == "" {
		a.AlertID = uuid.New().String()
	}
	if a.ReceivedTime == "" {
		a.ReceivedTime = now.Format("2006-01-02T15:04:05.000000")
	}
	if a.DetectionTime == "" {
		a.DetectionTime = now.Format("2006-01-02T15:04:05.000000")
	}
	if a.CameraID == "" {
		a.CameraID = "unknown"
	}
	if !safeSegment(a.AlertID) || !safeSegment(a.CameraID) {
		return fmt.Errorf("%w: alert %q camera %q", ErrInvalidPath, a.AlertID, a.CameraID)
	}

	detectedAt, err := a.DetectedAt()
	if err != nil {
		return fmt.Errorf("%w: detection_time %q", ErrInvalidTime, a.DetectionTime)
	}

	datePath := fmt.Sprintf("%s/%04d/%02d/%02d", a.CameraID, detectedAt.Year(), int(detectedAt.Month()), detectedAt.Day())
	imageDir := filepath.Join(s.root, filepath.FromSlash(datePath), "images")
	jsonDir := filepath.Join(s.root, filepath.FromSlash(datePath), "jsons")
	for _, dir := range []string{imageDir, jsonDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if len(image) > 0 {
		if err := os.WriteFile(filepath.Join(imageDir, a.AlertID+".jpg"), image, 0644); err != nil {
			return fmt.Errorf("failed to write image: %w", err)
		}
	}

	a.ImageFilename = datePath + "/images/" + a.AlertID + ".jpg"
	a.RelativePath = datePath
	if a.DetectionCount == 0 {
		a.DetectionCount = len(a.Detections)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}
	if err := os.WriteFile(filepath.Join(jsonDir, a.AlertID+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write alert: %w", err)
	}
	return nil
}

// Scan loads every persisted alert
func (s *FileStore) Scan() ([]models.Alert, error) {
	return s.loadDir(s.root)
}

// Search runs a historical query over the alert files. Both time bounds are
// inclusive. With a camera id only that camera's month directories covering
// the range are read.
func (s *FileStore) Search(ctx context.Context, p models.SearchParams) (*models.AlertPage, error) {
	start, end, err := parseRange(p)
	if err != nil {
		return nil, err
	}

	dirs := []string{s.root}
	if p.CameraID != "" {
		if !safeSegment(p.CameraID) {
			return nil, fmt.Errorf("%w: camera %q", ErrInvalidPath, p.CameraID)
		}
		dirs = s.monthDirs(p.CameraID, start, end)
	}

	var matched []models.Alert
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		alerts, err := s.loadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, a := range alerts {
			if matchesSearch(a, p, start, end) {
				matched = append(matched, a)
			}
		}
	}

	sortNewestFirst(matched)
	return paginate(matched, p.Page, p.PerPage), nil
}

// CameraDirs lists first-level directories that hold alerts: either JSON
// files somewhere below, or a four-digit year subdirectory.
func (s *FileStore) CameraDirs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read alert directory: %w", err)
	}

	var cameras []string
	for _, entry := range entries {
		if !entry.IsDir() || nonCameraDirs[entry.Name()] {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())
		if hasJSON(dir) || hasYearDir(dir) {
			cameras = append(cameras, entry.Name())
		}
	}
	return cameras, nil
}

// ImagePath resolves a path relative to the alert root. Paths that escape
// the root return ErrInvalidPath.
func (s *FileStore) ImagePath(rel string) (string, error) {
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return "", ErrInvalidPath
	}
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	within, err := filepath.Rel(s.root, full)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return full, nil
}

func (s *FileStore) monthDirs(cameraID string, start, end time.Time) []string {
	var dirs []string
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	for !cur.After(end) {
		dir := filepath.Join(s.root, cameraID, fmt.Sprintf("%04d", cur.Year()), fmt.Sprintf("%02d", int(cur.Month())))
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
		cur = cur.AddDate(0, 1, 0)
	}
	return dirs
}

// loadDir reads every alert JSON below dir. Unreadable files are logged and
// skipped.
func (s *FileStore) loadDir(dir string) ([]models.Alert, error) {
	var alerts []models.Alert
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			log.Printf("⚠️ Skipping %s: %v", path, err)
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("⚠️ Failed to read alert file %s: %v", path, err)
			return nil
		}
		var a models.Alert
		if err := json.Unmarshal(data, &a); err != nil {
			log.Printf("⚠️ Failed to parse alert file %s: %v", path, err)
			return nil
		}
		s.normalize(&a)
		alerts = append(alerts, a)
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return alerts, nil
}

// normalize fixes the image path and translates defect names of a loaded alert
func (s *FileStore) normalize(a *models.Alert) {
	id := a.AlertID
	if id == "" {
		id = "unknown"
	}
	if a.RelativePath != "" {
		a.ImageFilename = a.RelativePath + "/images/" + id + ".jpg"
	} else if a.ImageFilename == "" {
		a.ImageFilename = id + ".jpg"
	}
	s.translator.Annotate(a)
}

func parseRange(p models.SearchParams) (time.Time, time.Time, error) {
	start, err := models.ParseTime(p.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start_time %q", ErrInvalidTime, p.StartTime)
	}
	end, err := models.ParseTime(p.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end_time %q", ErrInvalidTime, p.EndTime)
	}
	return start, end, nil
}

func matchesSearch(a models.Alert, p models.SearchParams, start, end time.Time) bool {
	if a.DetectionTime == "" {
		return false
	}
	at, err := a.DetectedAt()
	if err != nil || at.Before(start) || at.After(end) {
		return false
	}
	if p.CameraID != "" && a.CameraID != p.CameraID {
		return false
	}
	if p.DefectName != "" && !a.HasDefect(p.DefectName) {
		return false
	}
	if p.MinConfidence > 0 {
		// alerts without detections pass the confidence filter
		if best, ok := a.MaxConfidence(); ok && best < p.MinConfidence {
			return false
		}
	}
	return true
}

func sortNewestFirst(alerts []models.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return newerThan(alerts[i], alerts[j])
	})
}

func paginate(alerts []models.Alert, page, perPage int) *models.AlertPage {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 100
	}
	p := models.NewPagination(page, perPage, len(alerts))
	start, end := p.Bounds()
	out := make([]models.Alert, end-start)
	copy(out, alerts[start:end])
	return &models.AlertPage{
		Status:     models.StatusSuccess,
		Alerts:     out,
		Pagination: p,
		SearchMode: "file",
	}
}

func hasJSON(dir string) bool {
	found := false
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}

func hasYearDir(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() && len(e.Name()) == 4 && isDigits(e.Name()) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// safeSegment reports whether s can be used as a single path element
func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
