package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/irisdrone/bladealert/internal/config"
	"github.com/irisdrone/bladealert/internal/dashboard"
	"github.com/irisdrone/bladealert/internal/models"
	"github.com/irisdrone/bladealert/internal/services"
)

var defectClasses = []string{
	"youwu", "gubao", "leiji", "hangbiaoqi", "liewen", "kailie", "tuoluo",
	"fushi", "mosunhuai", "aoxian", "juchi", "raoliutiao", "fubing",
}

// seedOptions controls how much sample data is generated
type seedOptions struct {
	Cameras   int
	Days      int
	PerCamera int
	Now       time.Time
}

func main() {
	config.LoadEnvFile()
	cfg := config.ServerFromEnv()

	dir := flag.String("dir", cfg.AlertDir, "Alert directory to write into")
	cameras := flag.Int("cameras", 8, "Number of cameras")
	days := flag.Int("days", 14, "Spread alerts over this many past days")
	perCamera := flag.Int("per-camera", 20, "Alerts per camera")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	store, err := services.NewFileStore(*dir, nil)
	if err != nil {
		log.Fatalf("❌ Failed to open alert directory: %v", err)
	}

	fmt.Println("🌱 Starting alert seed...")

	alerts := sampleAlerts(rand.New(rand.NewSource(*seed)), seedOptions{
		Cameras:   *cameras,
		Days:      *days,
		PerCamera: *perCamera,
		Now:       time.Now(),
	})

	totalCreated := 0
	for i := range alerts {
		if err := store.Save(&alerts[i], nil); err != nil {
			log.Printf("⚠️ Failed to save alert: %v", err)
			continue
		}
		totalCreated++
	}

	fmt.Printf("✅ Created %d alerts under %s\n", totalCreated, store.Root())
}

// sampleAlerts builds synthetic alerts for the first opts.Cameras default
// cameras. Roughly one alert in five carries no detections.
func sampleAlerts(rng *rand.Rand, opts seedOptions) []models.Alert {
	cameras := dashboard.DefaultCameras()
	if opts.Cameras < len(cameras) {
		cameras = cameras[:opts.Cameras]
	}
	window := time.Duration(opts.Days) * 24 * time.Hour
	if window <= 0 {
		window = time.Hour
	}

	var alerts []models.Alert
	for _, cam := range cameras {
		for i := 0; i < opts.PerCamera; i++ {
			at := opts.Now.Add(-time.Duration(rng.Int63n(int64(window))))

			var dets []models.Detection
			if rng.Intn(5) > 0 {
				n := rng.Intn(3) + 1
				for j := 0; j < n; j++ {
					class := rng.Intn(len(defectClasses))
					dets = append(dets, models.Detection{
						ClassID:    class,
						Name:       defectClasses[class],
						Confidence: 0.3 + rng.Float64()*0.7,
						X:          rng.Float64() * 1920,
						Y:          rng.Float64() * 1080,
						W:          20 + rng.Float64()*200,
						H:          20 + rng.Float64()*200,
						R:          rng.Float64() * 180,
					})
				}
			}

			alerts = append(alerts, models.Alert{
				CameraID:      cam,
				CameraName:    "Blade camera " + cam,
				DetectionTime: at.Format("2006-01-02T15:04:05.000000"),
				Detections:    dets,
			})
		}
	}
	return alerts
}
