package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mescon/neonclock/internal/api"
	"github.com/mescon/neonclock/internal/auth"
	"github.com/mescon/neonclock/internal/config"
	"github.com/mescon/neonclock/internal/eventbus"
	"github.com/mescon/neonclock/internal/logger"
	"github.com/mescon/neonclock/internal/metrics"
	"github.com/mescon/neonclock/internal/notifier"
	"github.com/mescon/neonclock/internal/services"
	"github.com/mescon/neonclock/internal/settings"
	"github.com/mescon/neonclock/internal/weather"
)

func main() {
	// Define command line flags (these override environment variables)
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.BoolVar(showVersion, "v", false, "Print version and exit (shorthand)")

	flagConfig := flag.String("config", "", "YAML config file (env: NEONCLOCK_CONFIG_FILE)")
	flagPort := flag.String("port", "", "HTTP server port (env: NEONCLOCK_PORT, default: 3095)")
	flagBasePath := flag.String("base-path", "", "URL base path for reverse proxy (env: NEONCLOCK_BASE_PATH, default: /)")
	flagLogLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (env: NEONCLOCK_LOG_LEVEL, default: info)")
	flagDataDir := flag.String("data-dir", "", "Data directory path (env: NEONCLOCK_DATA_DIR)")
	flagWebDir := flag.String("web-dir", "", "Clock face bundle directory (env: NEONCLOCK_WEB_DIR)")
	flagCORSOrigin := flag.String("cors-origin", "", "Allowed CORS origins, comma separated (env: NEONCLOCK_CORS_ORIGIN)")
	flagFrameRate := flag.Int("frame-rate", 0, "Clock frames per second (env: NEONCLOCK_FRAME_RATE, default: 60)")
	flagPushRate := flag.Int("push-rate", 0, "WebSocket snapshots per second (env: NEONCLOCK_PUSH_RATE, default: 10)")
	flagCountdown := flag.Duration("default-countdown", 0, "Initial countdown duration (env: NEONCLOCK_DEFAULT_COUNTDOWN, default: 5m)")
	flagLat := flag.Float64("lat", 0, "Weather latitude (env: NEONCLOCK_LATITUDE)")
	flagLon := flag.Float64("lon", 0, "Weather longitude (env: NEONCLOCK_LONGITUDE)")

	flag.Parse()

	if *showVersion {
		fmt.Printf("Neonclock %s\n", config.Version)
		os.Exit(0)
	}

	if _, err := config.Load(*flagConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	flagOverrides := config.FlagOverrides{
		Port:             flagPort,
		BasePath:         flagBasePath,
		LogLevel:         flagLogLevel,
		DataDir:          flagDataDir,
		WebDir:           flagWebDir,
		CORSOrigin:       flagCORSOrigin,
		FrameRate:        flagFrameRate,
		PushRate:         flagPushRate,
		DefaultCountdown: flagCountdown,
	}
	// 0,0 is a valid location, so only pass coordinates given on the command line
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lat":
			flagOverrides.Latitude = flagLat
		case "lon":
			flagOverrides.Longitude = flagLon
		}
	})
	config.ApplyFlags(flagOverrides)

	cfg := config.Get()

	if err := logger.Init(cfg.LogDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize log file, logging to stdout only: %v\n", err)
	}
	defer logger.Close()
	logger.SetLevel(cfg.LogLevel)

	logger.Infof("========================================")
	logger.Infof("Starting Neonclock %s...", config.Version)
	logger.Infof("========================================")

	logger.Infof("Configuration:")
	if cfg.ConfigFile != "" {
		logger.Infof("  Config File: %s", cfg.ConfigFile)
	}
	logger.Infof("  Port: %s", cfg.Port)
	logger.Infof("  Base Path: %s", cfg.BasePath)
	logger.Infof("  Log Level: %s", cfg.LogLevel)
	logger.Infof("  Log Directory: %s", cfg.LogDir)
	logger.Infof("  Frame Rate: %d fps (push %d/s)", cfg.FrameRate, cfg.PushRate)
	logger.Infof("  Default Countdown: %s", cfg.DefaultCountdown)
	if cfg.Weather.HasLocation() {
		logger.Infof("  Weather: refresh %s", cfg.Weather.Refresh)
	} else {
		logger.Infof("  Weather: no location configured")
	}

	credentials, err := auth.NewCredentials(cfg.APIKey, cfg.Password)
	if err != nil {
		logger.Errorf("Failed to initialize credentials: %v", err)
		os.Exit(1)
	}
	if credentials.Enabled() {
		logger.Infof("  Auth: API key required for commands")
	} else {
		logger.Infof("  Auth: disabled (set NEONCLOCK_API_KEY to protect commands)")
	}

	logger.Infof("Initializing Event Bus...")
	eb := eventbus.NewEventBus()
	logger.Infof("✓ Event Bus initialized")

	logger.Infof("Initializing Metrics Service...")
	metricsService := metrics.NewMetricsService(eb)
	metricsService.Start()
	logger.Infof("✓ Metrics Service (Prometheus endpoint at /metrics)")

	logger.Infof("Initializing core services...")
	clockService := services.NewClockService(eb, services.ClockOptions{
		FrameRate:        cfg.FrameRate,
		DefaultCountdown: cfg.DefaultCountdown,
		TickCueSeconds:   cfg.CountdownTickSeconds,
	})
	clockService.OnFrame(metricsService.ObserveFrame)
	logger.Infof("✓ Clock Service (frames, timer, alarms)")

	var location *weather.Location
	if cfg.Weather.HasLocation() {
		location = &weather.Location{Latitude: *cfg.Weather.Latitude, Longitude: *cfg.Weather.Longitude}
	}
	weatherClient := weather.NewClient(weather.ClientOptions{
		BaseURL:      cfg.Weather.BaseURL,
		Timeout:      cfg.Weather.Timeout,
		RateLimitRPS: cfg.Weather.RateLimitRPS,
	})
	weatherService := services.NewWeatherService(eb, weatherClient, location, cfg.Weather.Refresh)
	logger.Infof("✓ Weather Service")

	initialSettings := settings.FromConfig(cfg.Display)
	settingsService := services.NewSettingsService(eb, initialSettings, weatherService)
	logger.Infof("✓ Settings Service (theme %s)", initialSettings.Theme)

	logger.Infof("Initializing Notification Service...")
	notifierService := notifier.NewNotifier(eb, cfg.Notifications.URLs, cfg.Notifications.Throttle)
	notifierService.Start()

	logger.Infof("Starting background services...")
	clockService.Start()
	if err := weatherService.Start(initialSettings.ShowWeather); err != nil {
		logger.Errorf("Failed to start weather service: %v", err)
		os.Exit(1)
	}
	logger.Infof("✓ All background services started")

	logger.Infof("Initializing REST API and WebSocket server...")
	apiServer := api.NewRESTServer(api.ServerDeps{
		EventBus:    eb,
		Clock:       clockService,
		Weather:     weatherService,
		Settings:    settingsService,
		Notifier:    notifierService,
		Metrics:     metricsService,
		Credentials: credentials,
	})
	go func() {
		addr := ":" + cfg.Port
		if err := apiServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Failed to start API server: %v", err)
			os.Exit(1)
		}
	}()

	logger.Infof("========================================")
	logger.Infof("✓ Neonclock %s started successfully", config.Version)
	logger.Infof("✓ Server listening on port %s", cfg.Port)
	logger.Infof("========================================")

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Infof("========================================")
	logger.Infof("Received signal %v, initiating graceful shutdown...", sig)
	logger.Infof("========================================")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown in reverse order of startup
	logger.Infof("Stopping API Server...")
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API Server shutdown error: %v", err)
	} else {
		logger.Infof("✓ API Server stopped")
	}

	logger.Infof("Stopping Weather Service...")
	weatherService.Stop()
	logger.Infof("✓ Weather Service stopped")

	logger.Infof("Stopping Clock Service...")
	clockService.Stop()
	logger.Infof("✓ Clock Service stopped")

	logger.Infof("Stopping Notification Service...")
	notifierService.Stop()
	logger.Infof("✓ Notification Service stopped")

	logger.Infof("Stopping Event Bus...")
	eb.Shutdown()
	logger.Infof("✓ Event Bus stopped")

	logger.Infof("========================================")
	logger.Infof("✓ Neonclock shutdown complete")
	logger.Infof("========================================")
}
