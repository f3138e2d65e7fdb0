// Package presets builds the two fixed card layouts: the map card and the
// reweight comparison card. Both render through render.Renderer like any
// user layout.
package presets

import (
	"context"
	"fmt"

	"github.com/youruser/cardforge/internal/catalog"
	imagepkg "github.com/youruser/cardforge/internal/image"
	"github.com/youruser/cardforge/internal/layout"
	"github.com/youruser/cardforge/internal/render"
	"github.com/youruser/cardforge/internal/tiers"
)

const (
	MapWidth  = 900
	MapHeight = 300

	qrSize = 110
)

// MapOptions tune the map card.
type MapOptions struct {
	UseBackground bool
	// QR adds a QR code of the catalog page when the metadata has one.
	QR bool
}

// MapCardConfig returns the map card layout for meta.
func MapCardConfig(meta *catalog.Metadata, opts MapOptions) (*layout.CardConfig, error) {
	textWidth := 570.0
	var comps []layout.Component

	comps = append(comps,
		&layout.ImageComponent{
			Geometry:     layout.Geometry{X: 20, Y: 20, Width: layout.Float(260), Height: layout.Float(260)},
			SrcField:     "coverImageUrl",
			Clip:         true,
			CornerRadius: layout.Float(16),
		},
	)

	if opts.QR && meta.PageURL != "" {
		qr, err := imagepkg.GenerateQRImage(meta.PageURL, qrSize*2)
		if err != nil {
			return nil, fmt.Errorf("qr code: %w", err)
		}
		comps = append(comps,
			&layout.RoundedRectComponent{
				Geometry:     layout.Geometry{X: MapWidth - qrSize - 26, Y: 14, Width: layout.Float(qrSize + 12), Height: layout.Float(qrSize + 12)},
				FillStyle:    "#ffffff",
				CornerRadius: 8,
			},
			&layout.ImageComponent{
				Geometry: layout.Geometry{X: MapWidth - qrSize - 20, Y: 20, Width: layout.Float(qrSize), Height: layout.Float(qrSize)},
				Image:    qr,
			},
		)
		textWidth -= qrSize + 20
	}

	text := func(y float64, tmpl, font, fill string, maxWidth float64) *layout.TextComponent {
		return &layout.TextComponent{
			Geometry:  layout.Geometry{X: 300, Y: y},
			Text:      tmpl,
			Font:      font,
			FillStyle: fill,
			TextAlign: "left",
			MaxWidth:  layout.Float(maxWidth),
		}
	}
	comps = append(comps,
		text(28, "{displayName}", "bold 36px sans", "#ffffff", textWidth),
		text(74, "{subName}", "22px sans", "#d0d0d0", textWidth),
		text(110, "{authorName}", "22px sans", "#ffffff", textWidth),
		text(146, "Mapped by {levelAuthor}", "italic 20px sans", "#c0c0c0", textWidth),
		text(180, "{durationFormatted}", "20px mono", "#c0c0c0", 200),
	)

	entries := make([]layout.RatingEntry, 0, len(tiers.All))
	for _, t := range tiers.All {
		entries = append(entries, layout.RatingEntry{
			Label:  t.Key(),
			Rating: "{" + render.KeyStarRatings + "." + t.Key() + "}",
			Color:  tiers.Colors[t],
		})
	}
	comps = append(comps, &layout.StarRatingComponent{
		Geometry:       layout.Geometry{X: 300, Y: 236, Height: layout.Float(40)},
		Ratings:        entries,
		Font:           "bold 18px sans",
		TextColor:      "#ffffff",
		DefaultWidth:   layout.Float(100),
		DefaultSpacing: layout.Float(108),
		SpecialWidth:   layout.Float(110),
		SpecialSpacing: layout.Float(118),
	})

	return &layout.CardConfig{
		Width:            MapWidth,
		Height:           MapHeight,
		CardCornerRadius: 20,
		BaseColor:        "#1c1c24",
		Background: &layout.BackgroundConfig{
			Type:     layout.BackgroundCover,
			SrcField: "coverImageUrl",
			Blur:     14,
		},
		Components: append([]layout.Component{
			// darkens the blurred cover so text stays readable
			&layout.RoundedRectComponent{
				Geometry:  layout.Geometry{Width: layout.Float(MapWidth), Height: layout.Float(MapHeight)},
				FillStyle: "rgba(0,0,0,0.55)",
			},
		}, comps...),
		ConfigName: "map",
	}, nil
}

// MapCard renders the map card for meta with the given ratings.
func MapCard(ctx context.Context, r *render.Renderer, meta *catalog.Metadata, ratings tiers.Ratings, opts MapOptions) ([]byte, error) {
	cfg, err := MapCardConfig(meta, opts)
	if err != nil {
		return nil, err
	}
	return r.RenderCard(ctx, cfg, meta.Data(), ratings, opts.UseBackground)
}
