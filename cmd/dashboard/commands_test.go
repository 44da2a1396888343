package main

import (
	"testing"
	"time"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		name    string
		wantErr bool
	}{
		{"live", "live", false},
		{"  LIVE  ", "live", false},
		{"page 3", "page", false},
		{"page 0", "page", true},
		{"page", "page", true},
		{"search start=2024-05-01 end=2024-05-31 camera=A01", "search", false},
		{"search start=yesterday", "search", true},
		{"filter conf=1.5", "filter", true},
		{"filter color=red", "filter", true},
		{"dance", "dance", true},
		{"", "", true},
	}

	for _, tt := range tests {
		cmd, err := parseCommand(tt.line)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseCommand(%q) err = %v, wantErr %v", tt.line, err, tt.wantErr)
			continue
		}
		if cmd.name != tt.name {
			t.Errorf("parseCommand(%q) name = %q, want %q", tt.line, cmd.name, tt.name)
		}
	}
}

func TestParseFilter(t *testing.T) {
	f, err := parseFilter([]string{"start=2024-05-01", "end=2024-05-31T23:59", "camera=B02", "defect=liewen", "conf=0.6"})
	if err != nil {
		t.Fatalf("parseFilter failed: %v", err)
	}
	if f.CameraID != "B02" || f.DefectName != "liewen" || f.MinConfidence != 0.6 {
		t.Errorf("filter = %+v", f)
	}
	if want := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local); !f.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", f.Start, want)
	}
	if want := time.Date(2024, 5, 31, 23, 59, 0, 0, time.Local); !f.End.Equal(want) {
		t.Errorf("End = %v, want %v", f.End, want)
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := map[time.Duration]string{
		5 * time.Minute:         "5:00",
		61 * time.Second:        "1:01",
		1500 * time.Millisecond: "0:02",
		-3 * time.Second:        "0:00",
		249 * time.Second:       "4:09",
	}
	for d, want := range tests {
		if got := formatRemaining(d); got != want {
			t.Errorf("formatRemaining(%v) = %q, want %q", d, got, want)
		}
	}
}
