// Package render turns a layout.CardConfig plus a data object into a PNG.
//
// Rendering is a fixed sequence: fill and clip the rounded card silhouette,
// draw the background layer, then run every component through the Executor
// in declaration order. Each render allocates its own Surface, so renders
// may run concurrently.
package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/color"
	"image/png"
	"log/slog"
	"time"

	imagepkg "github.com/youruser/cardforge/internal/image"
	"github.com/youruser/cardforge/internal/layout"
	"github.com/youruser/cardforge/internal/metrics"
	"github.com/youruser/cardforge/internal/tiers"
	"github.com/youruser/cardforge/internal/tmpl"
)

// DefaultBaseColor fills the card when the layout sets no baseColor.
const DefaultBaseColor = "#000000"

// Renderer renders card layouts.
type Renderer struct {
	fonts  *FontCache
	images ImageLoader
	logger *slog.Logger

	// NewSurface allocates the drawing surface; tests swap it for a recorder.
	NewSurface func(w, h int) (Surface, error)
}

// New creates a Renderer drawing on gg canvases.
func New(fonts *FontCache, images ImageLoader, logger *slog.Logger) *Renderer {
	if fonts == nil {
		fonts = NewFontCache("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{fonts: fonts, images: images, logger: logger}
	r.NewSurface = func(w, h int) (Surface, error) { return NewCanvas(w, h, r.fonts) }
	return r
}

// RenderCard renders cfg and returns PNG bytes. An invalid layout or a
// surface that cannot be allocated fails the call; anything else that goes
// wrong is confined to the component or background involved.
func (r *Renderer) RenderCard(ctx context.Context, cfg *layout.CardConfig, data map[string]any, ratings tiers.Ratings, useBackground bool) ([]byte, error) {
	start := time.Now()
	s, err := r.Compose(ctx, cfg, data, ratings, useBackground)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.Image()); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	metrics.RenderDuration.Observe(time.Since(start).Seconds())
	metrics.CardsRendered.WithLabelValues(kindOf(cfg)).Inc()
	return buf.Bytes(), nil
}

// Compose draws cfg onto a new surface and returns it without encoding.
func (r *Renderer) Compose(ctx context.Context, cfg *layout.CardConfig, data map[string]any, ratings tiers.Ratings, useBackground bool) (Surface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil layout", layout.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := r.NewSurface(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}

	w, h := float64(cfg.Width), float64(cfg.Height)
	base := DefaultBaseColor
	if cfg.BaseColor != "" {
		base = cfg.BaseColor
	}
	s.SetFill(colorOr(base, black))
	s.FillRoundedRect(0, 0, w, h, cfg.CardCornerRadius)
	s.ClipRoundedRect(0, 0, w, h, cfg.CardCornerRadius)

	full := BuildData(data, ratings, useBackground)
	r.background(ctx, s, cfg, full, useBackground)

	exec := &Executor{Images: r.images, Logger: r.logger}
	for _, comp := range cfg.Components {
		exec.Execute(ctx, s, comp, full)
	}
	return s, nil
}

func (r *Renderer) background(ctx context.Context, s Surface, cfg *layout.CardConfig, data map[string]any, useBackground bool) {
	bg := cfg.Background
	if bg == nil {
		return
	}
	w, h := float64(cfg.Width), float64(cfg.Height)
	switch {
	case useBackground && bg.Type == layout.BackgroundCover && bg.SrcField != "":
		r.cover(ctx, s, cfg, data)
	case bg.Type == layout.BackgroundColor:
		s.Push()
		s.SetFill(colorOr(bg.Color, black))
		s.FillRect(0, 0, w, h)
		s.Pop()
	case bg.Type == layout.BackgroundGradient:
		stops := make([]color.Color, 0, len(bg.Colors))
		for _, c := range bg.Colors {
			if parsed, err := ParseColor(c); err == nil {
				stops = append(stops, parsed)
			}
		}
		if len(stops) == 0 && bg.Color != "" {
			stops = append(stops, colorOr(bg.Color, black))
		}
		s.FillLinearGradient(0, 0, w, h, stops)
	}
}

// cover draws the blurred cover image over the whole card. A missing or
// unloadable image leaves the base fill in place.
func (r *Renderer) cover(ctx context.Context, s Surface, cfg *layout.CardConfig, data map[string]any) {
	bg := cfg.Background
	v, ok := tmpl.ResolvePath(data, bg.SrcField)
	src := tmpl.Stringify(v)
	if !ok || src == "" {
		r.logger.Warn("cover background source not found", "srcField", bg.SrcField)
		return
	}
	if r.images == nil {
		r.logger.Warn("no image loader configured, skipping cover background")
		return
	}
	img, err := r.images.Load(ctx, src)
	if err != nil {
		r.logger.Warn("failed to load cover background", "src", shortSrc(src), "error", err)
		metrics.ComponentsSkipped.WithLabelValues("background_load").Inc()
		return
	}
	blurred := imagepkg.BlurCover(img, cfg.Width, cfg.Height, bg.Blur)
	s.DrawImage(blurred, 0, 0, float64(cfg.Width), float64(cfg.Height))
}

// kindOf keeps the metric label set small: built-in presets by name,
// everything else as "layout".
func kindOf(cfg *layout.CardConfig) string {
	switch cfg.ConfigName {
	case "map", "reweight":
		return cfg.ConfigName
	}
	return "layout"
}

// DataURL wraps PNG bytes in a data: URL.
func DataURL(pngBytes []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}
