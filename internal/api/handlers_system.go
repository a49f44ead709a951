package api

import (
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mescon/neonclock/internal/config"
)

// SystemInfo contains runtime environment information
type SystemInfo struct {
	Version     string           `json:"version"`
	Environment string           `json:"environment"` // "docker" or "native"
	OS          string           `json:"os"`
	Arch        string           `json:"arch"`
	GoVersion   string           `json:"go_version"`
	Uptime      string           `json:"uptime"`
	UptimeSecs  int64            `json:"uptime_seconds"`
	StartedAt   time.Time        `json:"started_at"`
	Config      SystemConfigInfo `json:"config"`
	Links       SystemLinks      `json:"links"`
}

// SystemConfigInfo contains configuration details. Secrets and the
// location are never included.
type SystemConfigInfo struct {
	Port                 string   `json:"port"`
	BasePath             string   `json:"base_path"`
	LogLevel             string   `json:"log_level"`
	DataDir              string   `json:"data_dir"`
	LogDir               string   `json:"log_dir"`
	ConfigFile           string   `json:"config_file,omitempty"`
	FrameRate            int      `json:"frame_rate"`
	PushRate             int      `json:"push_rate"`
	DefaultCountdown     string   `json:"default_countdown"`
	CountdownTickSeconds int      `json:"countdown_tick_seconds"`
	WeatherRefresh       string   `json:"weather_refresh"`
	WeatherLocationSet   bool     `json:"weather_location_set"`
	NotificationServices []string `json:"notification_services"`
	AuthEnabled          bool     `json:"auth_enabled"`
}

// SystemLinks contains useful links
type SystemLinks struct {
	GitHub   string `json:"github"`
	Issues   string `json:"issues"`
	Releases string `json:"releases"`
}

// handleSystemInfo returns runtime environment information
func (s *RESTServer) handleSystemInfo(c *gin.Context) {
	cfg := config.Get()
	uptime := s.clk.Now().Sub(s.startTime)

	environment := "native"
	if isDockerEnvironment() {
		environment = "docker"
	}

	providers := []string{}
	if s.notifier != nil {
		providers = s.notifier.Providers()
	}

	info := SystemInfo{
		Version:     config.Version,
		Environment: environment,
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		GoVersion:   runtime.Version(),
		Uptime:      formatUptime(uptime),
		UptimeSecs:  int64(uptime.Seconds()),
		StartedAt:   s.startTime,
		Config: SystemConfigInfo{
			Port:                 cfg.Port,
			BasePath:             cfg.BasePath,
			LogLevel:             cfg.LogLevel,
			DataDir:              cfg.DataDir,
			LogDir:               cfg.LogDir,
			ConfigFile:           cfg.ConfigFile,
			FrameRate:            cfg.FrameRate,
			PushRate:             cfg.PushRate,
			DefaultCountdown:     cfg.DefaultCountdown.String(),
			CountdownTickSeconds: cfg.CountdownTickSeconds,
			WeatherRefresh:       cfg.Weather.Refresh,
			WeatherLocationSet:   cfg.Weather.HasLocation(),
			NotificationServices: providers,
			AuthEnabled:          s.credentials.Enabled(),
		},
		Links: SystemLinks{
			GitHub:   "https://github.com/mescon/neonclock",
			Issues:   "https://github.com/mescon/neonclock/issues",
			Releases: "https://github.com/mescon/neonclock/releases",
		},
	}

	c.JSON(http.StatusOK, info)
}

// isDockerEnvironment checks if we're running inside a Docker container
func isDockerEnvironment() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		content := string(data)
		if strings.Contains(content, "docker") || strings.Contains(content, "containerd") {
			return true
		}
	}

	// podman
	if _, err := os.Stat("/run/.containerenv"); err == nil {
		return true
	}

	return false
}
