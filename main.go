package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"contentforge/config"
	"contentforge/internal/api"
	"contentforge/internal/archive"
	"contentforge/internal/generate"
	"contentforge/internal/ledger"
	"contentforge/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present (API keys usually live there)
	_ = godotenv.Load()

	// Determine config path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		execPath, _ := os.Executable()
		configPath = filepath.Join(filepath.Dir(execPath), "config.yaml")
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Warning: Could not load config: %v, using defaults", err)
		cfg = config.DefaultConfig()
	}
	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	// Initialize storage
	dbPath := cfg.Storage.DBPath
	if !filepath.IsAbs(dbPath) {
		execPath, _ := os.Executable()
		dbPath = filepath.Join(filepath.Dir(execPath), dbPath)
	}

	storage, err := ledger.NewStorage(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer storage.Close()

	// Initialize components
	archiveStore := archive.NewStore(storage.DB())

	client, err := provider.NewOpenAIClient(&cfg.Provider)
	if err != nil {
		log.Fatalf("Failed to initialize provider: %v", err)
	}

	svc := generate.NewService(storage, archiveStore, client, client, cfg)
	apiHandler := api.NewHandler(svc, storage, archiveStore, client, cfg)

	// Setup Gin
	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	apiHandler.Register(r)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("ContentForge starting on http://%s", addr)
	log.Printf("Generate API: http://%s/api/generate", addr)

	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
