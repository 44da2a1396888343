package models

import (
	"encoding/json"
	"testing"
)

func TestDetection_KeepsUnknownKeys(t *testing.T) {
	in := `{"name":"crack","conf":0.9,"bbox":[1,2,3,4],"points":[[0,0]]}`

	var d Detection
	if err := json.Unmarshal([]byte(in), &d); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(d.BBox) != 4 || d.BBox[3] != 4 {
		t.Errorf("bbox = %v", d.BBox)
	}
	if string(d.Extra["points"]) != `[[0,0]]` {
		t.Errorf("points = %s", d.Extra["points"])
	}

	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"clsId", "x", "y", "w", "h", "r", "name_chinese"} {
		if _, ok := got[key]; ok {
			t.Errorf("%s written although never sent: %s", key, out)
		}
	}
	for key, want := range map[string]string{
		"name":   `"crack"`,
		"conf":   `0.9`,
		"bbox":   `[1,2,3,4]`,
		"points": `[[0,0]]`,
	} {
		if string(got[key]) != want {
			t.Errorf("%s = %s, want %s", key, got[key], want)
		}
	}
}

func TestAlert_RoundTripNested(t *testing.T) {
	in := `{"alert_id":"a1","camera_id":"A01","detection_time":"2024-05-01T08:00:00","blade":"2",` +
		`"detections":[{"name":"liewen","conf":0.5,"x":10,"mask":"rle"}]}`

	var a Alert
	if err := json.Unmarshal([]byte(in), &a); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	a.Detections[0].NameChinese = "裂纹"

	out, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var back Alert
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("re-Unmarshal failed: %v", err)
	}
	if string(back.Extra["blade"]) != `"2"` {
		t.Errorf("alert extra lost: %s", out)
	}
	d := back.Detections[0]
	if d.X != 10 || d.NameChinese != "裂纹" || string(d.Extra["mask"]) != `"rle"` {
		t.Errorf("detection = %+v", d)
	}
}

func TestAlert_MaxConfidence(t *testing.T) {
	a := Alert{Detections: []Detection{{Confidence: 0.2}, {Confidence: 0.7}}}
	if best, ok := a.MaxConfidence(); !ok || best != 0.7 {
		t.Errorf("MaxConfidence = %v, %v", best, ok)
	}
	if _, ok := (&Alert{}).MaxConfidence(); ok {
		t.Error("empty alert reported a confidence")
	}
}

func TestPagination(t *testing.T) {
	tests := []struct {
		page, perPage, total int
		wantPages            int
		wantStart, wantEnd   int
	}{
		{1, 10, 0, 1, 0, 0},
		{1, 10, 25, 3, 0, 10},
		{3, 10, 25, 3, 20, 25},
		{5, 10, 25, 3, 25, 25},
	}
	for _, tt := range tests {
		p := NewPagination(tt.page, tt.perPage, tt.total)
		start, end := p.Bounds()
		if p.TotalPages != tt.wantPages || start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("NewPagination(%d,%d,%d) = %+v bounds [%d,%d)", tt.page, tt.perPage, tt.total, p, start, end)
		}
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{
		"2024-05-01T08:00:00Z",
		"2024-05-01T08:00:00+08:00",
		"2024-05-01T08:00:00.123456",
		"2024-05-01T08:00:00",
		"2024-05-01T08:00",
		"2024-05-01 08:00:00",
	} {
		if _, err := ParseTime(s); err != nil {
			t.Errorf("ParseTime(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("expected error for yesterday")
	}
}
