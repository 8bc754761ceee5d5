package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/JustJay7/highcourt-fetcher/internal/cache"
	"github.com/JustJay7/highcourt-fetcher/internal/config"
	"github.com/JustJay7/highcourt-fetcher/internal/database"
	"github.com/JustJay7/highcourt-fetcher/internal/server"
	"github.com/JustJay7/highcourt-fetcher/pkg/logger"
)

func main() {
	var migrate bool
	flag.BoolVar(&migrate, "migrate", false, "Run database migrations")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}

	if migrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal("Failed to run migrations", "error", err)
		}
		log.Info("Database migrations completed successfully")
		return
	}

	if err := os.MkdirAll(cfg.ArtifactDir, 0755); err != nil {
		log.Fatal("Failed to create artifact directory", "dir", cfg.ArtifactDir, "error", err)
	}

	cacheService := cache.NewCache(cfg.CacheSize, cfg.CacheTTL)

	srv, err := server.New(cfg, db, cacheService, log)
	if err != nil {
		log.Fatal("Failed to initialize server", "error", err)
	}

	log.Info("Starting High Court fetcher",
		"host", cfg.Host,
		"port", cfg.Port,
		"portal", cfg.PortalURL,
		"court", cfg.CourtName,
	)

	if err := srv.Run(); err != nil {
		log.Fatal("Server failed", "error", err)
	}
}
