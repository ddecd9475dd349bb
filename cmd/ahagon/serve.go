package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"ahagon/internal/config"
	"ahagon/internal/handler"
	"ahagon/internal/history"
	"ahagon/internal/server"
	"ahagon/pkg/fileutil"

	"github.com/spf13/cobra"
)

var (
	logFile  string
	logLevel string
	host     string
	port     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long: `Start the HTTP server to receive GitHub and Travis CI webhooks.

GitHub deliveries are posted to /github and Travis CI notifications to /travis.
The server runs until it receives SIGINT or SIGTERM, then drains in-flight actions.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&logFile, "log", getEnvOrDefault("AHAGON_LOG_FILE", "./ahagon.log"), "Path to log file")
	serveCmd.Flags().StringVar(&logLevel, "log-level", getEnvOrDefault("AHAGON_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&host, "host", getEnvOrDefault("AHAGON_HOST", ""), "Host to bind to (overrides web.host)")
	serveCmd.Flags().StringVarP(&port, "port", "p", getEnvOrDefault("AHAGON_PORT", ""), "Port to listen on (overrides web.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	// Set up logging
	logger, logFileHandle, err := setupLogging(logFile, logLevel)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logFileHandle.Close()

	logger.Info("Starting ahagon", "version", version)

	// Load configuration
	logger.Info("Loading configuration", "config", path)
	cfg, repos, err := config.LoadConfig(path)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if host != "" {
		cfg.Web.Host = host
	}
	if port != "" {
		cfg.Web.Port = port
	}

	logger.Info("Configuration validated successfully", "repos", repos.List(), "actions", len(cfg.Actions))

	if repos.Count() == 0 {
		logger.Warn("No repos configured in config file", "config", path)
		logger.Warn("The server will start but will reject every webhook until repos are added")
	}
	if err := config.CheckPermissions(path); err != nil {
		logger.Warn("Insecure configuration file permissions", "error", err)
	}
	for _, repo := range repos.All() {
		if config.IsWeakSecret(repo.Secret) {
			logger.Warn("Webhook secret looks weak", "repo", repo.Slug())
		}
	}
	if err := fileutil.CheckAssets(cfg.Web.Assets); err != nil {
		logger.Warn("Index page unavailable, / will answer 404", "error", err)
	}

	handlers, err := handler.FromConfig(cfg.Actions, logger)
	if err != nil {
		return fmt.Errorf("failed to build handlers: %w", err)
	}

	// Initialize history database
	var recorder server.Recorder
	if cfg.DB.File != "" {
		logger.Info("Initializing history database", "db", cfg.DB.File)
		hist, err := history.NewHistory(cfg.DB.File)
		if err != nil {
			logger.Error("Failed to initialize history database", "error", err)
			return fmt.Errorf("failed to initialize history database: %w", err)
		}
		defer hist.Close()
		recorder = hist
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(cfg, repos, handlers, recorder, logger)
	if err := srv.Start(ctx); err != nil {
		logger.Error("Server failed", "error", err)
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// resolveConfigPath returns --config or the first default location that exists
func resolveConfigPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}

	searchPaths := fileutil.ConfigCandidates(fileutil.DefaultConfigName)
	path := fileutil.FindFile(searchPaths)
	if path == "" {
		fmt.Fprintf(os.Stderr, "Error: No configuration file found in default locations:\n")
		for _, p := range searchPaths {
			fmt.Fprintf(os.Stderr, "  - %s\n", p)
		}
		fmt.Fprintf(os.Stderr, "Use --config flag to specify a custom location\n")
		return "", fmt.Errorf("configuration file not found")
	}
	return path, nil
}

// setupLogging configures slog for console and file logging
// Returns both the logger and the file handle (caller must close the file)
func setupLogging(logPath, level string) (*slog.Logger, *os.File, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	// Create log directory if needed
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Open log file with secure permissions
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Create multi-writer to log to both file and console
	multiWriter := io.MultiWriter(os.Stdout, file)

	h := slog.NewJSONHandler(multiWriter, &slog.HandlerOptions{
		Level: lvl,
	})

	return slog.New(h), file, nil
}

// Helper functions for environment variables
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
