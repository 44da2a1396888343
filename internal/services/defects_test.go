package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/irisdrone/bladealert/internal/models"
)

func TestDefectTranslator_Defaults(t *testing.T) {
	tr := NewDefectTranslator()

	tests := map[string]string{
		"liewen":  "裂纹",
		"fubing":  "覆冰",
		"unknown": "unknown",
	}
	for in, want := range tests {
		if got := tr.Translate(in); got != want {
			t.Errorf("Translate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefectTranslator_LoadClasses(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"list", `[{"id":0,"name":"crack","name_chinese":"裂缝"},{"id":1,"name":"liewen","name_chinese":"裂纹X"}]`, false},
		{"map", `{"crack":"裂缝","liewen":"裂纹X"}`, false},
		{"garbage", `not json`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "classes.json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			tr := NewDefectTranslator()
			err := tr.LoadClasses(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadClasses err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := tr.Translate("crack"); got != "裂缝" {
				t.Errorf("crack = %q", got)
			}
			if got := tr.Translate("liewen"); got != "裂纹X" {
				t.Errorf("liewen override = %q", got)
			}
			if got := tr.Translate("gubao"); got != "鼓包" {
				t.Errorf("defaults lost: gubao = %q", got)
			}
		})
	}
}

func TestDefectTranslator_MissingFile(t *testing.T) {
	if err := NewDefectTranslator().LoadClasses(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefectTranslator_Annotate(t *testing.T) {
	a := models.Alert{Detections: []models.Detection{{Name: "youwu"}, {Name: "other"}}}
	NewDefectTranslator().Annotate(&a)
	if a.Detections[0].NameChinese != "油污" || a.Detections[1].NameChinese != "other" {
		t.Errorf("detections = %+v", a.Detections)
	}
}
