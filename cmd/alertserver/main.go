package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/irisdrone/bladealert/internal/config"
	"github.com/irisdrone/bladealert/internal/database"
	"github.com/irisdrone/bladealert/internal/handlers"
	"github.com/irisdrone/bladealert/internal/natsserver"
	"github.com/irisdrone/bladealert/internal/services"
)

func main() {
	envFile := flag.String("env", "", "Path to .env file (default: ./.env)")
	hashPassword := flag.String("hash-password", "", "Print a bcrypt hash for AUTH_PASSWORD_HASH and exit")
	flag.Parse()

	if *hashPassword != "" {
		hashed, err := handlers.HashPassword(*hashPassword)
		if err != nil {
			log.Fatalf("❌ Failed to hash password: %v", err)
		}
		fmt.Println(hashed)
		return
	}

	if *envFile != "" {
		config.LoadEnvFile(*envFile)
	} else {
		config.LoadEnvFile()
	}
	cfg := config.ServerFromEnv()

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
	cache := services.NewAlertCache(cfg.AlertCacheSize)
	cameras := services.NewCameraIndex(store, cache, cfg.CameraCacheTTL)
	collector := services.NewCollector(store, cache, cameras, translator, services.CollectorConfig{
		ScanInterval: cfg.ScanInterval,
	})

	// Optional search index
	if cfg.DatabaseURL != "" {
		if err := database.Connect(cfg.DatabaseURL); err != nil {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
		defer database.Close()
		collector.SetIndex(database.NewIndex(database.DB))
	}

	api := &handlers.API{
		Cache:     cache,
		Store:     store,
		Collector: collector,
		Cameras:   cameras,
		Auth:      handlers.NewAuth(cfg.JWTSecret, cfg.AuthUsername, cfg.AuthPasswordHash, cfg.TokenTTL),
	}

	// Embedded NATS carries ingested alerts to the WebSocket hub and any
	// external subscriber
	if cfg.NATSPort != 0 {
		natsCfg := natsserver.DefaultConfig()
		natsCfg.Port = cfg.NATSPort
		ns, err := natsserver.New(natsCfg)
		if err != nil {
			log.Fatalf("❌ Failed to start NATS server: %v", err)
		}
		defer ns.Shutdown()
		collector.SetPublisher(ns)
		api.NATS = ns
		api.Hub = services.NewAlertHub(ns.Conn())
	} else {
		api.Hub = services.NewAlertHub(nil)
		collector.SetPublisher(hubPublisher{api.Hub})
	}
	if err := api.Hub.Subscribe(); err != nil {
		log.Fatalf("❌ Failed to start alert hub: %v", err)
	}
	go api.Hub.Run()
	defer api.Hub.Stop()

	collector.Start()
	defer collector.Stop()

	router := handlers.NewRouter(api, cfg.Production)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("🚀 Server running on http://localhost:%s", cfg.Port)
		log.Printf("📁 Alert directory: %s", cfg.AlertDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
}
