package database

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/irisdrone/bladealert/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Index is the database-backed alert search
type Index struct {
	db *gorm.DB
}

// NewIndex wraps db. A nil db uses the package connection.
func NewIndex(db *gorm.DB) *Index {
	if db == nil {
		db = DB
	}
	return &Index{db: db}
}

// Upsert writes or replaces the index row for an alert
func (i *Index) Upsert(ctx context.Context, a models.Alert) error {
	rec, err := models.NewAlertRecord(a)
	if err != nil {
		return err
	}
	rec.DetectedAt = rec.DetectedAt.UTC()

	err = i.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "alert_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"camera_id", "detected_at", "max_confidence", "defect_names", "relative_path", "payload"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert alert record: %w", err)
	}
	return nil
}

// Search runs a historical query against the index with the same filter
// semantics as the file scan.
func (i *Index) Search(ctx context.Context, p models.SearchParams) (*models.AlertPage, error) {
	start, err := models.ParseTime(p.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start_time %q: %w", p.StartTime, err)
	}
	end, err := models.ParseTime(p.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid end_time %q: %w", p.EndTime, err)
	}

	page, perPage := p.Page, p.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 100
	}

	query := i.db.WithContext(ctx).Model(&models.AlertRecord{}).
		Where("detected_at >= ? AND detected_at <= ?", start.UTC(), end.UTC())

	if p.CameraID != "" {
		query = query.Where("camera_id = ?", p.CameraID)
	}
	if p.DefectName != "" {
		query = query.Where(`defect_names LIKE ? ESCAPE '\'`, "%,"+escapeLike(p.DefectName)+",%")
	}
	if p.MinConfidence > 0 {
		// alerts without detections have no max_confidence and pass
		query = query.Where("(max_confidence IS NULL OR max_confidence >= ?)", p.MinConfidence)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}

	var records []models.AlertRecord
	err = query.Order("detected_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alerts: %w", err)
	}

	alerts := make([]models.Alert, 0, len(records))
	for _, rec := range records {
		a, err := rec.Alert()
		if err != nil {
			log.Printf("⚠️ Failed to decode indexed alert %s: %v", rec.AlertID, err)
			continue
		}
		alerts = append(alerts, a)
	}

	return &models.AlertPage{
		Status:     models.StatusSuccess,
		Alerts:     alerts,
		Pagination: models.NewPagination(page, perPage, int(total)),
		SearchMode: "index",
	}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern escaped with '\'
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Count returns the number of indexed alerts
func (i *Index) Count(ctx context.Context) (int64, error) {
	var n int64
	err := i.db.WithContext(ctx).Model(&models.AlertRecord{}).Count(&n).Error
	return n, err
}

// Reset deletes every index row
func (i *Index) Reset(ctx context.Context) (int64, error) {
	res := i.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.AlertRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reset alert index: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Rebuild upserts every given alert and returns how many were written.
// Alerts that cannot be indexed are logged and skipped.
func (i *Index) Rebuild(ctx context.Context, alerts []models.Alert) (int, error) {
	written := 0
	for _, a := range alerts {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if err := i.Upsert(ctx, a); err != nil {
			log.Printf("⚠️ Skipping alert %s: %v", a.AlertID, err)
			continue
		}
		written++
	}
	return written, nil
}
