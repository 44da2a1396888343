package alertsource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/irisdrone/bladealert/internal/models"
)

func TestLive_SendsOnlyPaging(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/alerts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("per_page") != "9" {
			t.Errorf("unexpected paging %v", q)
		}
		if len(q) != 2 {
			t.Errorf("live request should only carry page and per_page, got %v", q)
		}
		json.NewEncoder(w).Encode(models.AlertPage{
			Status:     models.StatusSuccess,
			Alerts:     []models.Alert{{AlertID: "a1", CameraID: "A01"}},
			Pagination: models.NewPagination(2, 9, 10),
		})
	}))
	defer srv.Close()

	page, err := NewClient(srv.URL, time.Second).Live(context.Background(), 2, 9)
	if err != nil {
		t.Fatalf("Live failed: %v", err)
	}
	if len(page.Alerts) != 1 || page.Alerts[0].AlertID != "a1" {
		t.Errorf("unexpected alerts %+v", page.Alerts)
	}
	if page.Pagination.TotalPages != 2 {
		t.Errorf("TotalPages = %d, want 2", page.Pagination.TotalPages)
	}
}

func TestSearch_SendsAllFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/alerts/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		want := map[string]string{
			"page":           "1",
			"per_page":       "20",
			"start_time":     "2024-05-01T00:00",
			"end_time":       "2024-05-02T00:00",
			"camera_id":      "B03",
			"defect_name":    "liewen",
			"min_confidence": "0.5",
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("%s = %q, want %q", k, q.Get(k), v)
			}
		}
		json.NewEncoder(w).Encode(models.AlertPage{Status: models.StatusSuccess, Pagination: models.NewPagination(1, 20, 0)})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Search(context.Background(), models.SearchParams{
		StartTime:     "2024-05-01T00:00",
		EndTime:       "2024-05-02T00:00",
		CameraID:      "B03",
		DefectName:    "liewen",
		MinConfidence: 0.5,
		Page:          1,
		PerPage:       20,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
}

func TestCameras(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.CameraList{Status: models.StatusSuccess, Cameras: []string{"A01", "B02"}, Count: 2})
	}))
	defer srv.Close()

	cams, err := NewClient(srv.URL+"/", time.Second).Cameras(context.Background())
	if err != nil {
		t.Fatalf("Cameras failed: %v", err)
	}
	if len(cams) != 2 || cams[0] != "A01" {
		t.Errorf("unexpected cameras %v", cams)
	}
}

func TestErrorsAreNetworkErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{
			name: "http 500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			status: http.StatusInternalServerError,
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{not json"))
			},
			status: http.StatusOK,
		},
		{
			name: "error status in payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(models.AlertPage{Status: models.StatusError, Message: "collector not ready"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Live(context.Background(), 1, 10)
			var netErr *NetworkError
			if !errors.As(err, &netErr) {
				t.Fatalf("expected *NetworkError, got %v", err)
			}
			if netErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", netErr.StatusCode, tt.status)
			}
		})
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := NewClient(addr, time.Second).Cameras(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}
	if netErr.Op != "list cameras" {
		t.Errorf("Op = %q", netErr.Op)
	}
}
