// Package layout defines CardConfig, the JSON layout description consumed by
// the card renderer, and its component variants.
//
// A CardConfig is immutable once parsed. Components render in declaration
// order, later ones drawing over earlier ones.
package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrInvalidConfig is returned for layouts that cannot be rendered.
var ErrInvalidConfig = errors.New("invalid card configuration")

// Background types.
const (
	BackgroundColor    = "color"
	BackgroundGradient = "gradient"
	BackgroundCover    = "cover"
)

// CardConfig describes one card layout.
type CardConfig struct {
	Width            int
	Height           int
	CardCornerRadius float64
	// BaseColor fills the card silhouette before any background is drawn.
	BaseColor  string
	Background *BackgroundConfig
	Components []Component
	ConfigName string
}

// BackgroundConfig is the optional background layer.
type BackgroundConfig struct {
	Type     string   `json:"type" jsonschema:"enum=color,enum=gradient,enum=cover"`
	Color    string   `json:"color,omitempty"`
	SrcField string   `json:"srcField,omitempty"`
	Blur     float64  `json:"blur,omitempty"`
	Colors   []string `json:"colors,omitempty"`
}

// cardWire is the on-disk form of CardConfig.
type cardWire struct {
	Width            int               `json:"width"`
	Height           int               `json:"height"`
	CardCornerRadius float64           `json:"cardCornerRadius"`
	BaseColor        string            `json:"baseColor,omitempty"`
	Background       *BackgroundConfig `json:"background,omitempty"`
	Components       []componentWire   `json:"components"`
	ConfigName       string            `json:"configName,omitempty"`
}

// UnmarshalJSON decodes the wire format, mapping each component onto its
// variant by "type".
func (c *CardConfig) UnmarshalJSON(data []byte) error {
	var w cardWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = CardConfig{
		Width:            w.Width,
		Height:           w.Height,
		CardCornerRadius: w.CardCornerRadius,
		BaseColor:        w.BaseColor,
		Background:       w.Background,
		ConfigName:       w.ConfigName,
		Components:       make([]Component, 0, len(w.Components)),
	}
	for i, cw := range w.Components {
		comp, err := cw.component()
		if err != nil {
			return fmt.Errorf("%w: component %d (%s): %v", ErrInvalidConfig, i, Kind(cw.Type), err)
		}
		c.Components = append(c.Components, comp)
	}
	return nil
}

// MarshalJSON encodes the wire format.
func (c CardConfig) MarshalJSON() ([]byte, error) {
	w := cardWire{
		Width:            c.Width,
		Height:           c.Height,
		CardCornerRadius: c.CardCornerRadius,
		BaseColor:        c.BaseColor,
		Background:       c.Background,
		ConfigName:       c.ConfigName,
		Components:       make([]componentWire, 0, len(c.Components)),
	}
	for _, comp := range c.Components {
		w.Components = append(w.Components, comp.toWire())
	}
	return json.Marshal(w)
}

// Parse decodes and validates a layout.
func Parse(data []byte) (*CardConfig, error) {
	var cfg CardConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		if errors.Is(err, ErrInvalidConfig) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads and parses a layout file.
func LoadFile(path string) (*CardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the card dimensions and the required geometry of every
// component. Unknown component types are not an error.
func (c *CardConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: width and height must be positive, got %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.CardCornerRadius < 0 {
		return fmt.Errorf("%w: cardCornerRadius must not be negative", ErrInvalidConfig)
	}
	if c.Background != nil {
		switch c.Background.Type {
		case BackgroundColor, BackgroundGradient, BackgroundCover, "":
		default:
			return fmt.Errorf("%w: unknown background type %q", ErrInvalidConfig, c.Background.Type)
		}
	}
	for i, comp := range c.Components {
		if err := comp.validate(); err != nil {
			return fmt.Errorf("%w: component %d (%s): %v", ErrInvalidConfig, i, comp.Kind(), err)
		}
	}
	return nil
}
