package main

import (
	"context"
	"log"

	"devops_proxy/internal/config"
	"devops_proxy/internal/handler"
	"devops_proxy/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	client, err := handler.BuildClient(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to build Azure DevOps client: %v", err)
	}

	r := handler.BuildRouter(cfg, client)

	logger.GetLogger().Info("Starting Azure DevOps proxy on :" + cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
