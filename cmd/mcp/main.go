package main

import (
	"context"
	"log"
	"os"

	"vizora/internal/config"
	"vizora/internal/container"
	"vizora/internal/mcp"

	"github.com/joho/godotenv"
)

const version = "0.1.0"

func main() {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	c, err := container.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer c.Shutdown(ctx)

	log.Printf("[MCP] Serving %d tools on stdio", len(mcp.ToolNames()))
	if err := mcp.Run(c.Analysis, version); err != nil {
		log.Printf("[MCP] Server stopped: %v", err)
	}
}
