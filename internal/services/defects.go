package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/irisdrone/bladealert/internal/models"
)

var defaultDefectNames = map[string]string{
	"youwu":      "油污",
	"gubao":      "鼓包",
	"leiji":      "雷击",
	"hangbiaoqi": "航标漆",
	"liewen":     "裂纹",
	"kailie":     "开裂",
	"tuoluo":     "脱落",
	"fushi":      "腐蚀",
	"mosunhuai":  "膜损坏",
	"aoxian":     "凹陷",
	"juchi":      "锯齿",
	"raoliutiao": "扰流条",
	"fubing":     "覆冰",
}

// DefectTranslator maps model class names to display names
type DefectTranslator struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewDefectTranslator creates a translator with the built-in names
func NewDefectTranslator() *DefectTranslator {
	names := make(map[string]string, len(defaultDefectNames))
	for k, v := range defaultDefectNames {
		names[k] = v
	}
	return &DefectTranslator{names: names}
}

// classEntry is one element of a classes.json file
type classEntry struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	NameChinese string `json:"name_chinese"`
}

// LoadClasses merges names from a classes.json file. The file holds either a
// list of {id, name, name_chinese} objects or a flat name → display map.
func (t *DefectTranslator) LoadClasses(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read classes file: %w", err)
	}

	loaded := make(map[string]string)
	var entries []classEntry
	if err := json.Unmarshal(data, &entries); err == nil {
		for _, e := range entries {
			if e.Name != "" && e.NameChinese != "" {
				loaded[e.Name] = e.NameChinese
			}
		}
	} else if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to parse classes file: %w", err)
	}

	t.mu.Lock()
	for k, v := range loaded {
		t.names[k] = v
	}
	t.mu.Unlock()

	log.Printf("✅ Loaded %d defect class names from %s", len(loaded), path)
	return nil
}

// Translate returns the display name, or name itself when unknown
func (t *DefectTranslator) Translate(name string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.names[name]; ok {
		return v
	}
	return name
}

// Annotate fills NameChinese on every detection of a
func (t *DefectTranslator) Annotate(a *models.Alert) {
	for i := range a.Detections {
		a.Detections[i].NameChinese = t.Translate(a.Detections[i].Name)
	}
}
