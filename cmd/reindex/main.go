package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/irisdrone/bladealert/internal/config"
	"github.com/irisdrone/bladealert/internal/database"
	"github.com/irisdrone/bladealert/internal/services"
)

func main() {
	reset := flag.Bool("reset", false, "Delete every index row before rebuilding")
	flag.Parse()

	config.LoadEnvFile()
	cfg := config.ServerFromEnv()

	if err := database.Connect(cfg.DatabaseURL); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	translator := services.NewDefectTranslator()
	if cfg.ClassesFile != "" {
		if err := translator.LoadClasses(cfg.ClassesFile); err != nil {
			log.Printf("⚠️ Using built-in defect names: %v", err)
		}
	}
	store, err := services.NewFileStore(cfg.AlertDir, translator)
	if err != nil {
		log.Fatalf("❌ Failed to open alert directory: %v", err)
	}

	ctx := context.Background()
	idx := database.NewIndex(database.DB)

	if *reset {
		removed, err := idx.Reset(ctx)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		fmt.Printf("✅ Removed %d index rows\n", removed)
	}

	fmt.Printf("Scanning %s...\n", store.Root())
	alerts, err := store.Scan()
	if err != nil {
		log.Fatalf("❌ Failed to scan alerts: %v", err)
	}

	written, err := idx.Rebuild(ctx, alerts)
	if err != nil {
		log.Fatalf("❌ Reindex interrupted after %d alerts: %v", written, err)
	}
	fmt.Printf("✅ Indexed %d of %d alerts\n", written, len(alerts))
}
