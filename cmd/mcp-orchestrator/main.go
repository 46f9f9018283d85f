// SPDX-License-Identifier: AGPL-3.0-only
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sriram687/adya-mcp-hackathon/internal/config"
	"github.com/sriram687/adya-mcp-hackathon/internal/engine"
	"github.com/sriram687/adya-mcp-hackathon/internal/logging"
	"github.com/sriram687/adya-mcp-hackathon/internal/model"
	"github.com/sriram687/adya-mcp-hackathon/internal/registry"
	"github.com/sriram687/adya-mcp-hackathon/internal/server"
	"github.com/sriram687/adya-mcp-hackathon/internal/singleton"
	"github.com/sriram687/adya-mcp-hackathon/internal/store"
)

var (
	address       = flag.String("address", "", "The address to bind the server to")
	port          = flag.Int("port", 0, "The port to bind the server to")
	logLevel      = flag.String("log-level", "", "Logging level: debug, info, warn, error, fatal")
	logFile       = flag.String("log-file", "", "Log file path (default: stderr)")
	version       = flag.Bool("version", false, "Show version information and exit")
	mcpConfigPath = flag.String("mcp-config-path", "", "Path to MCP servers configuration file")
	dbPath        = flag.String("db-path", "", "Path to SQLite database for run history")
)

func main() {
	// Optional .env file for local development
	_ = godotenv.Load()

	flag.Parse()

	cfg := loadConfig()

	if *version {
		log.Printf("%s version %s", cfg.Server.Name, cfg.Server.Version)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := createApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	app.Start()

	waitForShutdown(cancel, app)
}

// loadConfig loads configuration from environment and command line flags
func loadConfig() *config.Config {
	cfg := config.DefaultConfig()

	config.FromEnv(cfg)

	applyCommandLineFlagsToConfig(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// applyCommandLineFlagsToConfig applies command line flags to the configuration
func applyCommandLineFlagsToConfig(cfg *config.Config) {
	if *address != "" {
		cfg.Server.Address = *address
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFile != "" {
		cfg.Logging.FilePath = *logFile
	}
	if *mcpConfigPath != "" {
		cfg.Registry.ConfigFilePath = *mcpConfigPath
	}
	if *dbPath != "" {
		cfg.Store.DBPath = *dbPath
	}
}

// Application represents the running application
type Application struct {
	registry *registry.Registry
	runStore model.RunStore
	server   *server.Server
	lock     *singleton.Lock
	logger   *logging.Logger
}

// createApp wires the application together
func createApp(ctx context.Context, cfg *config.Config) (*Application, error) {
	logger, err := buildLogger(cfg)
	if err != nil {
		return nil, err
	}
	logging.SetDefaultLogger(logger)

	// Only one orchestrator may own the configured MCP servers: stdio
	// servers are child processes and must not be spawned twice.
	lock, acquired, err := singleton.TryAcquire(cfg.LockFile)
	if err != nil {
		return nil, fmt.Errorf("acquire singleton lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("another instance is already running (lock: %s)", cfg.LockFile)
	}

	runStore, err := store.NewSQLiteStore(cfg.Store.DBPath)
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("create run store: %w", err)
	}

	reg := registry.New(logger)
	if err := reg.LoadFromConfig(ctx, cfg); err != nil {
		logger.Errorf("Failed to load MCP server config: %v", err)
	}

	eng := engine.New(cfg, reg, logger, runStore)
	validator := engine.NewValidator(reg)
	srv := server.New(cfg, eng, validator, runStore, logger)

	return &Application{
		registry: reg,
		runStore: runStore,
		server:   srv,
		lock:     lock,
		logger:   logger,
	}, nil
}

func buildLogger(cfg *config.Config) (*logging.Logger, error) {
	level := logging.ParseLevel(cfg.Logging.Level)
	if cfg.Logging.FilePath != "" {
		return logging.FileLogger(cfg.Logging.FilePath, level)
	}
	return logging.New(logging.Options{Level: level}), nil
}

// Start starts the application
func (a *Application) Start() {
	a.server.Start()
	a.logger.Infof("Orchestrator started with servers: %v", a.registry.Names())
}

// Stop stops the application
func (a *Application) Stop() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.server.Stop(shutdownCtx); err != nil {
		a.logger.Errorf("Error stopping HTTP server: %v", err)
	}
	if err := a.registry.Close(); err != nil {
		a.logger.Errorf("Error closing MCP sessions: %v", err)
	}
	if err := a.runStore.Close(); err != nil {
		a.logger.Errorf("Error closing run store: %v", err)
	}
	if err := a.lock.Release(); err != nil {
		a.logger.Errorf("Error releasing singleton lock: %v", err)
	}
	a.logger.Infof("Orchestrator stopped")
	return nil
}

// waitForShutdown waits for termination signals or server exit and performs cleanup
func waitForShutdown(cancel context.CancelFunc, app *Application) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-signalCh:
		app.logger.Infof("Received termination signal, shutting down...")
	case <-app.server.Done():
		app.logger.Infof("Server listener exited, shutting down...")
	}

	cancel()

	shutdownDone := make(chan struct{})
	go func() {
		if err := app.Stop(); err != nil {
			app.logger.Errorf("Error during shutdown: %v", err)
		}
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		app.logger.Infof("Graceful shutdown completed")
	case <-time.After(10 * time.Second):
		app.logger.Warnf("Shutdown timed out")
	}
}
