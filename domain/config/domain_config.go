package config

import (
	"errors"
	"fmt"
	"time"
)

// DomainConfig holds the geometric rules and tunables of the canvas
type DomainConfig struct {
	// Card footprint used for containment, clamping and auto-fit
	CardWidth   float64 `yaml:"card_width"`
	CardHeight  float64 `yaml:"card_height"`
	ZonePadding float64 `yaml:"zone_padding"`

	// Viewport limits
	MinZoom       float64 `yaml:"min_zoom"`
	MaxZoom       float64 `yaml:"max_zoom"`
	WheelZoomStep float64 `yaml:"wheel_zoom_step"`

	// Background image limits
	MinBackgroundScale      float64 `yaml:"min_background_scale"`
	MaxBackgroundScale      float64 `yaml:"max_background_scale"`
	DefaultBackgroundWidth  float64 `yaml:"default_background_width"`
	DefaultBackgroundHeight float64 `yaml:"default_background_height"`

	// Input
	DoubleTapWindow time.Duration `yaml:"double_tap_window"`

	// Zones
	AutoFit         bool    `yaml:"auto_fit"`
	NestedZoneInset float64 `yaml:"nested_zone_inset"`
	ForkOffset      float64 `yaml:"fork_offset"`

	// Smart View
	SimilarityThreshold float64         `yaml:"similarity_threshold"`
	EmbedTextLimit      int             `yaml:"embed_text_limit"`
	EmbedConcurrency    int             `yaml:"embed_concurrency"`
	SmartViewLayout     SmartViewLayout `yaml:"smart_view_layout"`

	// Persistence
	PersistFailureThreshold int `yaml:"persist_failure_threshold"`
}

// SmartViewLayout describes the grid the clustering result is arranged on
type SmartViewLayout struct {
	Columns      int     `yaml:"columns"`
	ZoneWidth    float64 `yaml:"zone_width"`
	ZonePadding  float64 `yaml:"zone_padding"`
	HeaderHeight float64 `yaml:"header_height"`
	CardWidth    float64 `yaml:"card_width"`
	CardHeight   float64 `yaml:"card_height"`
	CardGap      float64 `yaml:"card_gap"`
	ZoneGap      float64 `yaml:"zone_gap"`
	RowHeight    float64 `yaml:"row_height"`
	OriginX      float64 `yaml:"origin_x"`
	OriginY      float64 `yaml:"origin_y"`
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		CardWidth:   280,
		CardHeight:  200,
		ZonePadding: 15,

		MinZoom:       0.1,
		MaxZoom:       5,
		WheelZoomStep: 0.01,

		MinBackgroundScale:      0.1,
		MaxBackgroundScale:      5,
		DefaultBackgroundWidth:  1600,
		DefaultBackgroundHeight: 900,

		DoubleTapWindow: 300 * time.Millisecond,

		AutoFit:         true,
		NestedZoneInset: 20,
		ForkOffset:      50,

		SimilarityThreshold: 0.8,
		EmbedTextLimit:      200,
		EmbedConcurrency:    8,
		SmartViewLayout: SmartViewLayout{
			Columns:      3,
			ZoneWidth:    420,
			ZonePadding:  48,
			HeaderHeight: 80,
			CardWidth:    324,
			CardHeight:   140,
			CardGap:      32,
			ZoneGap:      80,
			RowHeight:    1000,
			OriginX:      100,
			OriginY:      220,
		},

		PersistFailureThreshold: 3,
	}
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Fewer concurrent embedding calls against a local model server
	config.EmbedConcurrency = 2

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// MinZoneWidth is the smallest width a zone may take: one card plus padding
func (c *DomainConfig) MinZoneWidth() float64 {
	return c.CardWidth + 2*c.ZonePadding
}

// MinZoneHeight is the smallest height a zone may take
func (c *DomainConfig) MinZoneHeight() float64 {
	return c.CardHeight + 2*c.ZonePadding
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.CardWidth <= 0 || c.CardHeight <= 0 {
		return errors.New("card dimensions must be positive")
	}
	if c.ZonePadding < 0 {
		return errors.New("zone padding cannot be negative")
	}
	if c.MinZoom <= 0 || c.MaxZoom < c.MinZoom {
		return fmt.Errorf("invalid zoom range [%v, %v]", c.MinZoom, c.MaxZoom)
	}
	if c.MinBackgroundScale <= 0 || c.MaxBackgroundScale < c.MinBackgroundScale {
		return fmt.Errorf("invalid background scale range [%v, %v]", c.MinBackgroundScale, c.MaxBackgroundScale)
	}
	if c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1 {
		return errors.New("similarity threshold must be within [-1, 1]")
	}
	if c.EmbedTextLimit <= 0 {
		return errors.New("embed text limit must be positive")
	}
	if c.EmbedConcurrency <= 0 {
		return errors.New("embed concurrency must be positive")
	}
	if c.SmartViewLayout.Columns <= 0 {
		return errors.New("smart view layout needs at least one column")
	}
	return nil
}
