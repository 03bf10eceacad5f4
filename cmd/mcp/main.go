package main

import (
	"context"
	"fmt"
	"log"

	"devops_proxy/internal/config"
	"devops_proxy/internal/handler"
	"devops_proxy/internal/logger"
	mcpserver "devops_proxy/internal/service/mcp-server"
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

	server, err := mcpserver.NewServer(client)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	fmt.Println("Starting Azure DevOps proxy MCP server...")
	if err := mcpserver.Serve(server); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
