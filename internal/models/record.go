package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JSONB type for GORM - stores any JSON-serialisable value
type JSONB struct {
	Data interface{} `json:"-"`
}

// NewJSONB creates a new JSONB from any value
func NewJSONB(v interface{}) JSONB {
	return JSONB{Data: v}
}

// UnmarshalJSON implements json.Unmarshaler
func (j *JSONB) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &j.Data)
}

// MarshalJSON implements json.Marshaler
func (j JSONB) MarshalJSON() ([]byte, error) {
	if j.Data == nil {
		return []byte("null"), nil
	}
	return json.Marshal(j.Data)
}

func (j JSONB) Value() (driver.Value, error) {
	if j.Data == nil {
		return nil, nil
	}
	return json.Marshal(j.Data)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		j.Data = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, &j.Data)
	case string:
		return json.Unmarshal([]byte(v), &j.Data)
	default:
		return fmt.Errorf("unsupported JSONB source type %T", value)
	}
}

// AlertRecord indexes a persisted alert for historical search
type AlertRecord struct {
	AlertID       string    `gorm:"primaryKey;column:alert_id" json:"alertId"`
	CameraID      string    `gorm:"column:camera_id;index" json:"cameraId"`
	DetectedAt    time.Time `gorm:"column:detected_at;index" json:"detectedAt"`
	MaxConfidence *float64  `gorm:"column:max_confidence" json:"maxConfidence,omitempty"`
	// DefectNames is a comma-wrapped list (",youwu,liewen,") so a single
	// LIKE matches one exact name.
	DefectNames  string `gorm:"column:defect_names" json:"defectNames"`
	RelativePath string `gorm:"column:relative_path" json:"relativePath"`
	Payload      JSONB  `gorm:"type:jsonb;column:payload" json:"payload"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (AlertRecord) TableName() string {
	return "alert_records"
}

// NewAlertRecord builds the index row for an alert. The alert's
// detection time must parse.
func NewAlertRecord(a Alert) (AlertRecord, error) {
	detectedAt, err := a.DetectedAt()
	if err != nil {
		return AlertRecord{}, fmt.Errorf("invalid detection_time %q: %w", a.DetectionTime, err)
	}

	rec := AlertRecord{
		AlertID:      a.AlertID,
		CameraID:     a.CameraID,
		DetectedAt:   detectedAt,
		DefectNames:  DefectNameList(a.Detections),
		RelativePath: a.RelativePath,
		Payload:      NewJSONB(a),
	}
	if conf, ok := a.MaxConfidence(); ok {
		rec.MaxConfidence = &conf
	}
	return rec, nil
}

// DefectNameList renders detection names in the comma-wrapped index format.
func DefectNameList(detections []Detection) string {
	if len(detections) == 0 {
		return ""
	}
	names := make([]string, 0, len(detections))
	for _, d := range detections {
		names = append(names, d.Name)
	}
	return "," + strings.Join(names, ",") + ","
}

// Alert decodes the stored payload back into an Alert.
func (r AlertRecord) Alert() (Alert, error) {
	var a Alert
	raw, err := json.Marshal(r.Payload.Data)
	if err != nil {
		return a, err
	}
	err = json.Unmarshal(raw, &a)
	return a, err
}
