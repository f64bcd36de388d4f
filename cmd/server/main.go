package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mnemos-ai/mnemos/internal/config"
	"github.com/mnemos-ai/mnemos/internal/logging"
	"github.com/mnemos-ai/mnemos/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Could not load %s, using defaults: %v", cfgPath, err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize server", zap.Error(err))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	r := srv.SetupRouter()
	logger.Info("starting server", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
