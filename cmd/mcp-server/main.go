// Command health-risk-mcp-server serves the risk tools over MCP stdio. It
// needs no external database: reports go to SQLite under HRA_DATA_DIR.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/health-risk-server/internal/config"
	"github.com/health-risk-server/internal/mcp"
)

func main() {
	// stdout carries the protocol.
	log.SetOutput(os.Stderr)

	cfg := config.LoadLiteConfig()

	server, err := mcp.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("MCP server failed: %v", err)
		server.Close()
		os.Exit(1)
	}
}
