// Package api provides the REST API and WebSocket render boundary of the
// clock daemon: timer and alarm commands, snapshots, weather, display
// settings and live updates.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mescon/neonclock/internal/auth"
	"github.com/mescon/neonclock/internal/clock"
	"github.com/mescon/neonclock/internal/config"
	"github.com/mescon/neonclock/internal/eventbus"
	"github.com/mescon/neonclock/internal/logger"
	"github.com/mescon/neonclock/internal/metrics"
	"github.com/mescon/neonclock/internal/notifier"
	"github.com/mescon/neonclock/internal/services"
)

type RESTServer struct {
	router      *gin.Engine
	httpServer  *http.Server
	eventBus    *eventbus.EventBus
	clock       *services.ClockService
	weather     *services.WeatherService
	settings    *services.SettingsService
	notifier    *notifier.Notifier
	metrics     *metrics.MetricsService
	credentials *auth.Credentials
	hub         *WebSocketHub
	clk         clock.Clock
	startTime   time.Time
}

// ServerDeps contains all dependencies required for the REST server
type ServerDeps struct {
	EventBus    *eventbus.EventBus
	Clock       *services.ClockService
	Weather     *services.WeatherService
	Settings    *services.SettingsService
	Notifier    *notifier.Notifier
	Metrics     *metrics.MetricsService
	Credentials *auth.Credentials
	// Time drives uptime and the snapshot push. Defaults to the real clock.
	Time clock.Clock
}

func NewRESTServer(deps ServerDeps) *RESTServer {
	// Set Gin to release mode for production (suppresses debug warnings)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Request ID middleware for correlation/tracing
	r.Use(func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("request_id", reqID)
		c.Header("X-Request-ID", reqID)
		c.Next()
	})

	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		reqID := c.GetString("request_id")
		logger.Errorf("[PANIC RECOVERY] request_id=%s path=%s method=%s error=%v",
			reqID, c.Request.URL.Path, c.Request.Method, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":      ErrMsgInternalError,
			"request_id": reqID,
		})
	}))

	cfg := config.Get()
	r.Use(corsMiddleware(cfg.CORSOrigin))

	clk := clock.OrReal(deps.Time)

	creds := deps.Credentials
	if creds == nil {
		creds = &auth.Credentials{}
	}

	s := &RESTServer{
		router:      r,
		eventBus:    deps.EventBus,
		clock:       deps.Clock,
		weather:     deps.Weather,
		settings:    deps.Settings,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		credentials: creds,
		clk:         clk,
		startTime:   clk.Now(),
	}

	hubOpts := HubOptions{
		CORSOrigin: cfg.CORSOrigin,
		RelayLogs:  true,
	}
	if deps.Clock != nil && cfg.PushRate > 0 {
		hubOpts.Snapshot = func() interface{} { return deps.Clock.Snapshot() }
		hubOpts.PushInterval = time.Second / time.Duration(cfg.PushRate)
	}
	if deps.Metrics != nil {
		hubOpts.OnClients = deps.Metrics.SetWebSocketClients
	}
	s.hub = NewWebSocketHub(deps.EventBus, hubOpts, clk)

	s.setupRoutes(cfg.BasePath, cfg.WebDir)

	return s
}

// corsMiddleware allows the configured origins. With none configured no
// CORS header is set and browsers enforce same-origin.
func corsMiddleware(corsOrigins string) gin.HandlerFunc {
	allowedOrigins := make(map[string]bool)
	for _, origin := range strings.Split(corsOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowedOrigins[origin] = true
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if allowedOrigins["*"] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" && allowedOrigins[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, X-API-Key, X-Request-ID, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *RESTServer) setupRoutes(basePath, webDir string) {
	// Prometheus metrics endpoint at root level (standard convention, not behind base path)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	var base *gin.RouterGroup
	if basePath == "/" {
		base = s.router.Group("")
	} else {
		base = s.router.Group(basePath)
	}

	api := base.Group("/api")
	{
		// Health check endpoint (no authentication required)
		api.GET("/health", s.handleHealth)
		api.GET("/system/info", s.handleSystemInfo)
		if s.metrics != nil {
			api.GET("/metrics", gin.WrapH(s.metrics.Handler()))
		}

		api.POST("/auth/login", LoginLimiter.Middleware(), s.handleLogin)
		api.GET("/auth/status", s.handleAuthStatus)

		// Read-only render state
		api.GET("/snapshot", s.getSnapshot)
		api.GET("/time", s.getTime)
		api.GET("/timer", s.getTimer)
		api.GET("/alarms", s.getAlarms)
		api.GET("/alarms/active", s.getActiveAlarm)
		api.GET("/weather", s.getWeather)
		api.GET("/settings", s.getSettings)
		api.GET("/events/recent", s.getRecentEvents)
		api.GET("/ws", s.hub.HandleConnection)

		// Commands (require the API key when one is configured)
		protected := api.Group("")
		protected.Use(APILimiter.Middleware(), s.authMiddleware())
		{
			protected.POST("/timer/start", s.startTimer)
			protected.POST("/timer/pause", s.pauseTimer)
			protected.POST("/timer/reset", s.resetTimer)
			protected.POST("/timer/mode", s.setTimerMode)

			// Specific routes MUST come before :id parameter routes
			protected.POST("/alarms", s.addAlarm)
			protected.POST("/alarms/dismiss", s.dismissAlarm)
			protected.POST("/alarms/:id/toggle", s.toggleAlarm)
			protected.DELETE("/alarms/:id", s.deleteAlarm)

			protected.POST("/weather/refresh", s.refreshWeather)
			protected.PUT("/settings", s.updateSettings)

			protected.GET("/notifications", s.getNotifications)
			protected.POST("/notifications/test", s.testNotification)

			protected.GET("/logs/recent", s.handleRecentLogs)
			protected.GET("/logs/download", s.handleDownloadLogs)
		}
	}

	s.setupWebAssets(base, basePath, webDir)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *RESTServer) Handler() http.Handler {
	return s.router
}

func (s *RESTServer) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown closes WebSocket clients, then gracefully shuts down the HTTP server.
func (s *RESTServer) Shutdown(ctx context.Context) error {
	s.hub.Shutdown()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// authMiddleware accepts the API key from X-API-Key, a Bearer token, or the
// token query parameter (for WebSockets). Everything passes when no key is
// configured.
func (s *RESTServer) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.credentials.Enabled() {
			c.Next()
			return
		}

		token := c.GetHeader("X-API-Key")
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			respondWithError(c, http.StatusUnauthorized, ErrMsgNoToken, nil)
			c.Abort()
			return
		}
		if !s.credentials.ValidKey(token) {
			respondWithError(c, http.StatusUnauthorized, ErrMsgInvalidToken, nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
