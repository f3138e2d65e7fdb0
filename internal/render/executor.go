package render

import (
	"context"
	"image"
	"image/color"
	"log/slog"

	"github.com/youruser/cardforge/internal/layout"
	"github.com/youruser/cardforge/internal/metrics"
	"github.com/youruser/cardforge/internal/textfit"
	"github.com/youruser/cardforge/internal/tiers"
	"github.com/youruser/cardforge/internal/tmpl"
)

// ImageLoader resolves an image source (URL, data URL or path) to a decoded
// image.
type ImageLoader interface {
	Load(ctx context.Context, src string) (image.Image, error)
}

var (
	transparent = color.NRGBA{}
	black       = color.NRGBA{A: 255}
	white       = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// Executor draws single components onto a surface.
type Executor struct {
	Images ImageLoader
	Logger *slog.Logger
}

// Execute draws comp onto s. Failures that only affect this component are
// logged and the component is skipped.
func (e *Executor) Execute(ctx context.Context, s Surface, comp layout.Component, data map[string]any) {
	switch c := comp.(type) {
	case *layout.RoundedRectComponent:
		e.roundedRect(s, c)
	case *layout.TextComponent:
		e.text(s, c, data)
	case *layout.ImageComponent:
		e.image(ctx, s, c, data)
	case *layout.StarRatingComponent:
		e.starRating(s, c, data)
	default:
		e.logger().Warn("skipping unknown component", "type", comp.Kind().String())
		metrics.ComponentsSkipped.WithLabelValues("unknown_type").Inc()
	}
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Executor) roundedRect(s Surface, c *layout.RoundedRectComponent) {
	s.Push()
	defer s.Pop()
	if sh := c.Shadow; sh != nil {
		s.SetShadow(ShadowStyle{
			Color:   colorOr(sh.Color, black),
			OffsetX: sh.OffsetX,
			OffsetY: sh.OffsetY,
			Blur:    sh.Blur,
		})
	}
	s.SetFill(colorOr(c.FillStyle, transparent))
	s.FillRoundedRect(c.X, c.Y, *c.Width, *c.Height, c.CornerRadius)
}

func (e *Executor) text(s Surface, c *layout.TextComponent, data map[string]any) {
	txt := tmpl.Interpolate(c.Text, data)

	s.Push()
	defer s.Pop()
	e.setFont(s, c.Font, layout.DefaultTextFont)
	s.SetFill(colorOr(c.FillStyle, black))

	if c.MaxWidth != nil {
		txt = textfit.FitWidth(s.Measure, txt, *c.MaxWidth)
	}
	y, baseline := c.Y, BaselineAlphabetic
	if c.Height != nil {
		y, baseline = c.Y+*c.Height/2, BaselineMiddle
	}
	s.DrawText(txt, c.X, y, ParseAlign(c.TextAlign), baseline)
}

func (e *Executor) image(ctx context.Context, s Surface, c *layout.ImageComponent, data map[string]any) {
	img := c.Image
	if img == nil {
		img = e.loadImage(ctx, c, data)
		if img == nil {
			return
		}
	}

	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if c.Width != nil {
		w = *c.Width
	}
	if c.Height != nil {
		h = *c.Height
	}

	s.Push()
	defer s.Pop()
	if c.Clip {
		s.ClipRoundedRect(c.X, c.Y, w, h, c.Radius())
	}
	s.DrawImage(img, c.X, c.Y, w, h)
}

func (e *Executor) loadImage(ctx context.Context, c *layout.ImageComponent, data map[string]any) image.Image {
	src := c.ImageURL
	if src == "" {
		if v, ok := tmpl.ResolvePath(data, c.SrcField); ok {
			src = tmpl.Stringify(v)
		}
	}
	if src == "" {
		e.logger().Debug("image component has no source", "srcField", c.SrcField)
		metrics.ComponentsSkipped.WithLabelValues("no_source").Inc()
		return nil
	}
	if e.Images == nil {
		e.logger().Warn("no image loader configured, skipping image")
		metrics.ComponentsSkipped.WithLabelValues("image_load").Inc()
		return nil
	}
	img, err := e.Images.Load(ctx, src)
	if err != nil {
		e.logger().Warn("failed to load image, skipping component", "src", shortSrc(src), "error", err)
		metrics.ComponentsSkipped.WithLabelValues("image_load").Inc()
		return nil
	}
	return img
}

// starSuffix follows numeric ratings in a pill.
const starSuffix = " ★"

func (e *Executor) starRating(s Surface, c *layout.StarRatingComponent, data map[string]any) {
	textColor := colorOr(c.TextColor, white)
	font := c.Font
	if font == "" {
		font = layout.DefaultPillFont
	}
	h := c.PillHeight()

	x := c.X
	for _, entry := range c.Ratings {
		value := ResolveRating(entry.Rating, data)
		if value == "" {
			continue
		}
		special := tiers.IsSpecial(value)
		w := c.PillWidth(special)

		label := value
		if !special {
			label += starSuffix
		}

		s.Push()
		s.SetFill(colorOr(entry.Color, transparent))
		s.FillRoundedRect(x, c.Y, w, h, layout.PillCornerRadius)
		e.setFont(s, font, layout.DefaultPillFont)
		s.SetFill(textColor)
		s.DrawText(label, x+w/2, c.Y+h/2, AlignCenter, BaselineMiddle)
		s.Pop()

		x += c.PillSpacing(special)
	}
}

// ResolveRating returns the display value of a rating entry: a whole-string
// {path} reference is looked up in data, anything else is used literally.
func ResolveRating(raw string, data map[string]any) string {
	path, ok := tmpl.IsReference(raw)
	if !ok {
		return raw
	}
	v, ok := tmpl.ResolvePath(data, path)
	if !ok {
		return ""
	}
	return tmpl.Stringify(v)
}

func (e *Executor) setFont(s Surface, spec, fallback string) {
	if spec == "" {
		spec = fallback
	}
	if err := s.SetFont(ParseFont(spec)); err != nil {
		e.logger().Warn("font unavailable, using default", "font", spec, "error", err)
		_ = s.SetFont(ParseFont(fallback))
	}
}

func shortSrc(src string) string {
	if len(src) > 80 {
		return src[:77] + "..."
	}
	return src
}
