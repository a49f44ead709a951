// Package config loads daemon configuration from defaults, an optional YAML
// file, NEONCLOCK_* environment variables and command-line flags, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

const (
	defaultPort             = "3095"
	defaultFrameRate        = 60
	defaultPushRate         = 10
	defaultCountdown        = 5 * time.Minute
	defaultTickSeconds      = 3
	defaultWeatherRefresh   = "@every 30m"
	defaultWeatherBaseURL   = "https://api.open-meteo.com/v1/forecast"
	defaultWeatherTimeout   = 10 * time.Second
	defaultNotifyThrottle   = time.Minute
	defaultWeatherRateLimit = 0.2
)

// DisplayConfig holds the initial display settings served to clients.
type DisplayConfig struct {
	Is24Hour    bool   `yaml:"is_24_hour"`
	ShowSeconds bool   `yaml:"show_seconds"`
	ShowDate    bool   `yaml:"show_date"`
	ShowWeather bool   `yaml:"show_weather"`
	Theme       string `yaml:"theme"`
	Mode        string `yaml:"mode"`
	Skin        string `yaml:"skin"`
	MatrixSpeed int    `yaml:"matrix_speed"`
}

// WeatherConfig controls the Open-Meteo client.
type WeatherConfig struct {
	// Latitude and Longitude are nil when no location is configured.
	Latitude  *float64 `yaml:"latitude"`
	Longitude *float64 `yaml:"longitude"`

	// Refresh is a robfig/cron spec (default "@every 30m")
	Refresh string `yaml:"refresh"`

	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`

	// RateLimitRPS bounds outbound requests (default 0.2, one every 5s)
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

// HasLocation reports whether both coordinates are set.
func (w WeatherConfig) HasLocation() bool {
	return w.Latitude != nil && w.Longitude != nil
}

// NotificationConfig lists shoutrrr URLs for alarm and timer alerts.
type NotificationConfig struct {
	URLs []string `yaml:"urls"`

	// Throttle is the minimum gap between two sends to the same URL
	Throttle time.Duration `yaml:"throttle"`
}

// Config holds all daemon configuration.
type Config struct {
	// Port is the HTTP listen port (default: 3095)
	Port string `yaml:"port"`

	// BasePath is the URL base path for reverse proxy setups (default: "/")
	BasePath string `yaml:"base_path"`

	// LogLevel is one of debug, info, warn, error (default: info)
	LogLevel string `yaml:"log_level"`

	// CORSOrigin enables CORS for a single origin, or "*" (default: disabled)
	CORSOrigin string `yaml:"cors_origin"`

	// DataDir holds logs (default: ./data next to the executable)
	DataDir string `yaml:"data_dir"`

	// LogDir is always <DataDir>/logs
	LogDir string `yaml:"-"`

	// ConfigFile is the YAML file that was loaded, if any
	ConfigFile string `yaml:"-"`

	// WebDir holds an optional clock face bundle (index.html and assets)
	WebDir string `yaml:"web_dir"`

	// FrameRate is the clock sample rate in Hz (default: 60)
	FrameRate int `yaml:"frame_rate"`

	// PushRate is the WebSocket snapshot rate in Hz (default: 10)
	PushRate int `yaml:"push_rate"`

	// DefaultCountdown is the initial countdown duration (default: 5m)
	DefaultCountdown time.Duration `yaml:"default_countdown"`

	// CountdownTickSeconds plays a tick cue for each of the last N seconds
	// of a countdown; 0 disables it (default: 3)
	CountdownTickSeconds int `yaml:"countdown_tick_seconds"`

	Display       DisplayConfig      `yaml:"display"`
	Weather       WeatherConfig      `yaml:"weather"`
	Notifications NotificationConfig `yaml:"notifications"`

	// APIKey protects command and settings endpoints when set.
	// Environment only.
	APIKey string `yaml:"-"`

	// Password can be traded for the API key at /api/auth/login.
	// Environment only.
	Password string `yaml:"-"`
}

// Global singleton
var cfg *Config

// Defaults returns a Config with every field at its default value.
func Defaults() *Config {
	return &Config{
		Port:                 defaultPort,
		BasePath:             "/",
		LogLevel:             "info",
		FrameRate:            defaultFrameRate,
		PushRate:             defaultPushRate,
		DefaultCountdown:     defaultCountdown,
		CountdownTickSeconds: defaultTickSeconds,
		Display: DisplayConfig{
			Is24Hour:    true,
			ShowSeconds: true,
			ShowDate:    true,
			ShowWeather: true,
			Theme:       "cyber_blue",
			Mode:        "digital",
			Skin:        "cyberpunk",
			MatrixSpeed: 8,
		},
		Weather: WeatherConfig{
			Refresh:      defaultWeatherRefresh,
			BaseURL:      defaultWeatherBaseURL,
			Timeout:      defaultWeatherTimeout,
			RateLimitRPS: defaultWeatherRateLimit,
		},
		Notifications: NotificationConfig{
			Throttle: defaultNotifyThrottle,
		},
	}
}

// Load builds the configuration. configFile overrides NEONCLOCK_CONFIG_FILE;
// when both are empty no file is read. Should be called once at startup.
func Load(configFile string) (*Config, error) {
	c := Defaults()

	if configFile == "" {
		configFile = os.Getenv("NEONCLOCK_CONFIG_FILE")
	}
	if configFile != "" {
		if err := loadFile(c, configFile); err != nil {
			return nil, err
		}
		c.ConfigFile = configFile
	}

	applyEnv(c)

	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	if abs, err := filepath.Abs(c.DataDir); err == nil {
		c.DataDir = abs
	}
	c.LogDir = filepath.Join(c.DataDir, "logs")

	c.normalize()
	cfg = c
	return cfg, nil
}

// loadFile decodes the YAML file on top of c. Keys absent from the file
// keep their current values.
func loadFile(c *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Port = getEnvOrDefault("NEONCLOCK_PORT", c.Port)
	c.BasePath = getEnvOrDefault("NEONCLOCK_BASE_PATH", c.BasePath)
	c.LogLevel = getEnvOrDefault("NEONCLOCK_LOG_LEVEL", c.LogLevel)
	c.CORSOrigin = getEnvOrDefault("NEONCLOCK_CORS_ORIGIN", c.CORSOrigin)
	c.DataDir = getEnvOrDefault("NEONCLOCK_DATA_DIR", c.DataDir)
	c.WebDir = getEnvOrDefault("NEONCLOCK_WEB_DIR", c.WebDir)
	c.FrameRate = getEnvIntOrDefault("NEONCLOCK_FRAME_RATE", c.FrameRate)
	c.PushRate = getEnvIntOrDefault("NEONCLOCK_PUSH_RATE", c.PushRate)
	c.DefaultCountdown = getEnvDurationOrDefault("NEONCLOCK_DEFAULT_COUNTDOWN", c.DefaultCountdown)
	c.CountdownTickSeconds = getEnvIntOrDefault("NEONCLOCK_COUNTDOWN_TICK_SECONDS", c.CountdownTickSeconds)

	c.Display.ShowWeather = getEnvBoolOrDefault("NEONCLOCK_SHOW_WEATHER", c.Display.ShowWeather)
	c.Display.Is24Hour = getEnvBoolOrDefault("NEONCLOCK_24_HOUR", c.Display.Is24Hour)
	c.Display.Theme = getEnvOrDefault("NEONCLOCK_THEME", c.Display.Theme)

	c.Weather.Latitude = getEnvFloatPtr("NEONCLOCK_LATITUDE", c.Weather.Latitude)
	c.Weather.Longitude = getEnvFloatPtr("NEONCLOCK_LONGITUDE", c.Weather.Longitude)
	c.Weather.Refresh = getEnvOrDefault("NEONCLOCK_WEATHER_REFRESH", c.Weather.Refresh)
	c.Weather.BaseURL = getEnvOrDefault("NEONCLOCK_WEATHER_URL", c.Weather.BaseURL)

	if urls := os.Getenv("NEONCLOCK_NOTIFY_URLS"); urls != "" {
		c.Notifications.URLs = splitList(urls)
	}
	c.Notifications.Throttle = getEnvDurationOrDefault("NEONCLOCK_NOTIFY_THROTTLE", c.Notifications.Throttle)

	c.APIKey = getEnvOrDefault("NEONCLOCK_API_KEY", c.APIKey)
	c.Password = getEnvOrDefault("NEONCLOCK_PASSWORD", c.Password)
}

// normalize repairs out-of-range values in place.
func (c *Config) normalize() {
	c.BasePath = normalizeBasePath(c.BasePath)

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}

	if c.FrameRate < 1 || c.FrameRate > 240 {
		c.FrameRate = defaultFrameRate
	}
	if c.PushRate < 1 || c.PushRate > c.FrameRate {
		c.PushRate = min(defaultPushRate, c.FrameRate)
	}
	if c.DefaultCountdown < 0 {
		c.DefaultCountdown = defaultCountdown
	}
	if c.CountdownTickSeconds < 0 {
		c.CountdownTickSeconds = 0
	}
	if c.Weather.Refresh == "" {
		c.Weather.Refresh = defaultWeatherRefresh
	}
	if c.Weather.Timeout <= 0 {
		c.Weather.Timeout = defaultWeatherTimeout
	}
	if c.Weather.RateLimitRPS <= 0 {
		c.Weather.RateLimitRPS = defaultWeatherRateLimit
	}
	if c.Notifications.Throttle < 0 {
		c.Notifications.Throttle = 0
	}
}

// defaultDataDir is ./data next to the executable, or under the working
// directory when the executable path is unknown.
func defaultDataDir() string {
	if execPath, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(execPath), "data")
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, "data")
	}
	return "./data"
}

// normalizeBasePath ensures a leading slash and no trailing slash.
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimSuffix(p, "/")
}

// Get returns the current configuration. Panics if Load() hasn't been called.
func Get() *Config {
	if cfg == nil {
		panic("config.Load() must be called before config.Get()")
	}
	return cfg
}

// SetForTesting allows tests to set the global config without calling Load().
// This should ONLY be used in test code.
func SetForTesting(c *Config) {
	cfg = c
}

// NewTestConfig returns a minimal Config suitable for unit tests.
func NewTestConfig() *Config {
	c := Defaults()
	c.Port = "8080"
	c.LogLevel = "debug"
	c.DataDir = "/tmp/neonclock-test"
	c.LogDir = "/tmp/neonclock-test/logs"
	c.Display.ShowWeather = false
	c.Notifications.Throttle = 0
	return c
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns the environment variable as an int or the default if not set/invalid.
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go duration strings like "30s", "5m" and
// falls back on unset or invalid values.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBoolOrDefault accepts "true", "1", "yes" as true values (case-insensitive).
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

func getEnvFloatPtr(key string, defaultValue *float64) *float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return &f
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' }) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// FlagOverrides holds command-line flag values that can override environment variables
type FlagOverrides struct {
	Port             *string
	BasePath         *string
	LogLevel         *string
	DataDir          *string
	WebDir           *string
	CORSOrigin       *string
	FrameRate        *int
	PushRate         *int
	DefaultCountdown *time.Duration
	Latitude         *float64
	Longitude        *float64
}

// ApplyFlags applies command-line flag overrides to the configuration.
// Should be called after Load(). Zero values do not override.
func ApplyFlags(flags FlagOverrides) {
	if cfg == nil {
		return
	}

	if flags.Port != nil && *flags.Port != "" {
		cfg.Port = *flags.Port
	}
	if flags.BasePath != nil && *flags.BasePath != "" {
		cfg.BasePath = *flags.BasePath
	}
	if flags.LogLevel != nil && *flags.LogLevel != "" {
		cfg.LogLevel = *flags.LogLevel
	}
	if flags.DataDir != nil && *flags.DataDir != "" {
		cfg.DataDir = *flags.DataDir
		cfg.LogDir = filepath.Join(cfg.DataDir, "logs")
	}
	if flags.WebDir != nil && *flags.WebDir != "" {
		cfg.WebDir = *flags.WebDir
	}
	if flags.CORSOrigin != nil && *flags.CORSOrigin != "" {
		cfg.CORSOrigin = *flags.CORSOrigin
	}
	if flags.FrameRate != nil && *flags.FrameRate != 0 {
		cfg.FrameRate = *flags.FrameRate
	}
	if flags.PushRate != nil && *flags.PushRate != 0 {
		cfg.PushRate = *flags.PushRate
	}
	if flags.DefaultCountdown != nil && *flags.DefaultCountdown != 0 {
		cfg.DefaultCountdown = *flags.DefaultCountdown
	}
	if flags.Latitude != nil && flags.Longitude != nil {
		lat, lon := *flags.Latitude, *flags.Longitude
		cfg.Weather.Latitude = &lat
		cfg.Weather.Longitude = &lon
	}

	cfg.normalize()
}
