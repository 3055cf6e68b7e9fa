package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vizora/domain/dataset"
	"vizora/internal/admin"
	"vizora/internal/config"
	"vizora/internal/container"
	"vizora/ui"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(ctx, appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}

	runErr := run(ctx, appContainer)
	if err := appContainer.Shutdown(context.Background()); err != nil {
		log.Printf("Shutdown: %v", err)
	}
	if runErr != nil {
		log.Printf("Server failed: %v", runErr)
		stop()
		os.Exit(1)
	}
	log.Println("Server stopped")
}

// run serves until ctx is done or the listener fails. The caller owns the
// container and shuts it down afterwards.
func run(ctx context.Context, c *container.Container) error {
	cfg := c.Config

	if cfg.Admin.Enabled {
		go func() {
			if err := admin.New(c.Store).ListenAndServe(":" + cfg.Admin.Port); err != nil {
				log.Printf("[Admin] Server failed: %v", err)
			}
		}()
	}

	if cfg.Data.InboxDir != "" {
		if err := c.InitInbox(); err != nil {
			return err
		}
		c.Inbox.OnUpload(func(f *dataset.UploadedFile) {
			log.Printf("[Inbox] %s available as %s", f.Filename, f.FileID)
		})
		go func() {
			if err := c.Inbox.Run(ctx, cfg.Data.InboxDir); err != nil && ctx.Err() == nil {
				log.Printf("[Inbox] Watcher stopped: %v", err)
			}
		}()
	}

	server := ui.NewServer(c.Analysis, cfg.Server)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Server] Shutdown: %v", err)
		}
	}()

	log.Printf("Starting Vizora server on port %s", cfg.Server.Port)
	return server.Start(":" + cfg.Server.Port)
}
