// Package settings holds the display preferences served to presentation
// clients.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mescon/neonclock/internal/config"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid settings")

// Theme is a named neon accent colour.
type Theme string

const (
	CyberBlue   Theme = "cyber_blue"
	NeonRed     Theme = "neon_red"
	MatrixGreen Theme = "matrix_green"
	PurpleHaze  Theme = "purple_haze"
	SolarYellow Theme = "solar_yellow"
)

var themeColors = map[Theme]string{
	CyberBlue:   "#00f3ff",
	NeonRed:     "#ff003c",
	MatrixGreen: "#0aff00",
	PurpleHaze:  "#bc13fe",
	SolarYellow: "#ffee00",
}

// Color returns the theme's hex colour, or "" for unknown themes.
func (t Theme) Color() string {
	return themeColors[t]
}

// ClockMode selects the clock face.
type ClockMode string

const (
	Digital ClockMode = "digital"
	Analog  ClockMode = "analog"
)

// Skin selects the digital face style.
type Skin string

const (
	Cyberpunk Skin = "cyberpunk"
	Retro     Skin = "retro"
	Minimal   Skin = "minimal"
)

const (
	MinMatrixSpeed = 1
	MaxMatrixSpeed = 20
)

// AppSettings is the full display configuration.
type AppSettings struct {
	Is24Hour    bool      `json:"is_24_hour"`
	ShowSeconds bool      `json:"show_seconds"`
	ShowDate    bool      `json:"show_date"`
	ShowWeather bool      `json:"show_weather"`
	Theme       Theme     `json:"theme"`
	ThemeColor  string    `json:"theme_color"`
	Mode        ClockMode `json:"mode"`
	Skin        Skin      `json:"skin"`
	MatrixSpeed int       `json:"matrix_speed"`
}

// Validate checks every enumerated field and the matrix speed range.
func (s AppSettings) Validate() error {
	if _, ok := themeColors[s.Theme]; !ok {
		return fmt.Errorf("%w: unknown theme %q", ErrInvalid, s.Theme)
	}
	switch s.Mode {
	case Digital, Analog:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalid, s.Mode)
	}
	switch s.Skin {
	case Cyberpunk, Retro, Minimal:
	default:
		return fmt.Errorf("%w: unknown skin %q", ErrInvalid, s.Skin)
	}
	if s.MatrixSpeed < MinMatrixSpeed || s.MatrixSpeed > MaxMatrixSpeed {
		return fmt.Errorf("%w: matrix_speed %d out of range %d-%d", ErrInvalid, s.MatrixSpeed, MinMatrixSpeed, MaxMatrixSpeed)
	}
	return nil
}

// Defaults mirrors the stock clock appearance.
func Defaults() AppSettings {
	return AppSettings{
		Is24Hour:    true,
		ShowSeconds: true,
		ShowDate:    true,
		ShowWeather: true,
		Theme:       CyberBlue,
		ThemeColor:  CyberBlue.Color(),
		Mode:        Digital,
		Skin:        Cyberpunk,
		MatrixSpeed: 8,
	}
}

// FromConfig converts configured display values, falling back to the
// default for each invalid field.
func FromConfig(d config.DisplayConfig) AppSettings {
	s := AppSettings{
		Is24Hour:    d.Is24Hour,
		ShowSeconds: d.ShowSeconds,
		ShowDate:    d.ShowDate,
		ShowWeather: d.ShowWeather,
		Theme:       Theme(normalize(d.Theme)),
		Mode:        ClockMode(normalize(d.Mode)),
		Skin:        Skin(normalize(d.Skin)),
		MatrixSpeed: d.MatrixSpeed,
	}

	def := Defaults()
	if _, ok := themeColors[s.Theme]; !ok {
		s.Theme = def.Theme
	}
	if s.Mode != Digital && s.Mode != Analog {
		s.Mode = def.Mode
	}
	if s.Skin != Cyberpunk && s.Skin != Retro && s.Skin != Minimal {
		s.Skin = def.Skin
	}
	if s.MatrixSpeed < MinMatrixSpeed || s.MatrixSpeed > MaxMatrixSpeed {
		s.MatrixSpeed = def.MatrixSpeed
	}
	s.ThemeColor = s.Theme.Color()
	return s
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Is24Hour    *bool   `json:"is_24_hour,omitempty"`
	ShowSeconds *bool   `json:"show_seconds,omitempty"`
	ShowDate    *bool   `json:"show_date,omitempty"`
	ShowWeather *bool   `json:"show_weather,omitempty"`
	Theme       *string `json:"theme,omitempty"`
	Mode        *string `json:"mode,omitempty"`
	Skin        *string `json:"skin,omitempty"`
	MatrixSpeed *int    `json:"matrix_speed,omitempty"`
}

// Apply returns s with the patch applied. The result is not validated.
func (p Patch) Apply(s AppSettings) AppSettings {
	if p.Is24Hour != nil {
		s.Is24Hour = *p.Is24Hour
	}
	if p.ShowSeconds != nil {
		s.ShowSeconds = *p.ShowSeconds
	}
	if p.ShowDate != nil {
		s.ShowDate = *p.ShowDate
	}
	if p.ShowWeather != nil {
		s.ShowWeather = *p.ShowWeather
	}
	if p.Theme != nil {
		s.Theme = Theme(normalize(*p.Theme))
	}
	if p.Mode != nil {
		s.Mode = ClockMode(normalize(*p.Mode))
	}
	if p.Skin != nil {
		s.Skin = Skin(normalize(*p.Skin))
	}
	if p.MatrixSpeed != nil {
		s.MatrixSpeed = *p.MatrixSpeed
	}
	s.ThemeColor = s.Theme.Color()
	return s
}

// Store guards the current settings.
type Store struct {
	mu      sync.RWMutex
	current AppSettings
}

// NewStore creates a store holding initial.
func NewStore(initial AppSettings) *Store {
	initial.ThemeColor = initial.Theme.Color()
	return &Store{current: initial}
}

// Get returns a copy of the current settings.
func (s *Store) Get() AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates and applies p. On error the settings are unchanged.
// Returns the previous and the new settings.
func (s *Store) Update(p Patch) (prev, next AppSettings, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev = s.current
	next = p.Apply(prev)
	if err := next.Validate(); err != nil {
		return prev, prev, err
	}
	s.current = next
	return prev, next, nil
}
