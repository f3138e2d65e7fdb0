package layout

import (
	"errors"
	"image"
)

// Kind names a component variant.
type Kind string

const (
	KindText        Kind = "text"
	KindImage       Kind = "image"
	KindRoundedRect Kind = "roundedRect"
	KindStarRating  Kind = "starRating"
)

// Component is one draw operation. The set of implementations is closed:
// *TextComponent, *ImageComponent, *RoundedRectComponent,
// *StarRatingComponent and *UnknownComponent.
type Component interface {
	Kind() Kind
	toWire() componentWire
	validate() error
}

// Geometry is the placement shared by all components. Width and Height are
// optional for some variants.
type Geometry struct {
	X      float64
	Y      float64
	Width  *float64
	Height *float64
}

// Shadow is a drop shadow drawn under a rounded rectangle.
type Shadow struct {
	Color   string  `json:"color,omitempty"`
	OffsetX float64 `json:"offsetX,omitempty"`
	OffsetY float64 `json:"offsetY,omitempty"`
	Blur    float64 `json:"blur,omitempty"`
}

// RatingEntry is one pill in a star rating row. Rating is either a literal
// or a {path} reference into the render data.
type RatingEntry struct {
	Label  string `json:"label,omitempty"`
	Rating string `json:"rating"`
	Color  string `json:"color,omitempty"`
}

// TextComponent draws interpolated text.
type TextComponent struct {
	Geometry
	Text      string
	Font      string
	FillStyle string
	TextAlign string
	MaxWidth  *float64
}

// ImageComponent draws an image, optionally clipped to a rounded rectangle.
type ImageComponent struct {
	Geometry
	ImageURL     string
	SrcField     string
	Clip         bool
	CornerRadius *float64
	// Image is an already decoded source used instead of ImageURL and
	// SrcField. It is never serialized.
	Image image.Image
}

// RoundedRectComponent fills a rounded rectangle with an optional shadow.
type RoundedRectComponent struct {
	Geometry
	FillStyle    string
	CornerRadius float64
	Shadow       *Shadow
}

// StarRatingComponent draws a row of rating pills.
type StarRatingComponent struct {
	Geometry
	Ratings        []RatingEntry
	Font           string
	TextColor      string
	DefaultWidth   *float64
	DefaultSpacing *float64
	SpecialWidth   *float64
	SpecialSpacing *float64
}

// UnknownComponent keeps a component whose type this version does not know.
type UnknownComponent struct {
	Type string
}

func (*TextComponent) Kind() Kind        { return KindText }
func (*ImageComponent) Kind() Kind       { return KindImage }
func (*RoundedRectComponent) Kind() Kind { return KindRoundedRect }
func (*StarRatingComponent) Kind() Kind  { return KindStarRating }
func (u *UnknownComponent) Kind() Kind   { return Kind(u.Type) }

var (
	errMissingPosition = errors.New("x and y are required")
	errMissingSize     = errors.New("width and height are required")
	errMissingSource   = errors.New("imageUrl or srcField is required")
	errNegativeSize    = errors.New("width and height must not be negative")
)

func (g Geometry) validateSize() error {
	if (g.Width != nil && *g.Width < 0) || (g.Height != nil && *g.Height < 0) {
		return errNegativeSize
	}
	return nil
}

func (c *TextComponent) validate() error { return c.validateSize() }

func (c *ImageComponent) validate() error {
	if c.Image == nil && c.ImageURL == "" && c.SrcField == "" {
		return errMissingSource
	}
	return c.validateSize()
}

func (c *RoundedRectComponent) validate() error {
	if c.Width == nil || c.Height == nil {
		return errMissingSize
	}
	return c.validateSize()
}

func (c *StarRatingComponent) validate() error { return c.validateSize() }

func (*UnknownComponent) validate() error { return nil }

// Star rating defaults.
const (
	DefaultPillWidth     = 100.0
	DefaultPillSpacing   = 110.0
	SpecialPillWidth     = 120.0
	SpecialPillSpacing   = 130.0
	DefaultPillHeight    = 40.0
	PillCornerRadius     = 10.0
	DefaultImageRadius   = 10.0
	DefaultTextFont      = "10px sans-serif"
	DefaultPillFont      = "bold 20px sans"
	DefaultTextFillStyle = "#000"
	DefaultPillTextColor = "#fff"
)

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// PillWidth returns the pill width for a normal or special value.
func (c *StarRatingComponent) PillWidth(special bool) float64 {
	if special {
		return valueOr(c.SpecialWidth, SpecialPillWidth)
	}
	return valueOr(c.DefaultWidth, DefaultPillWidth)
}

// PillSpacing returns the advance after a normal or special pill.
func (c *StarRatingComponent) PillSpacing(special bool) float64 {
	if special {
		return valueOr(c.SpecialSpacing, SpecialPillSpacing)
	}
	return valueOr(c.DefaultSpacing, DefaultPillSpacing)
}

// PillHeight returns the configured height or the default.
func (c *StarRatingComponent) PillHeight() float64 {
	return valueOr(c.Height, DefaultPillHeight)
}

// Radius returns the clip radius for the image.
func (c *ImageComponent) Radius() float64 {
	return valueOr(c.CornerRadius, DefaultImageRadius)
}

// Float is a convenience for building optional geometry in code.
func Float(v float64) *float64 { return &v }
