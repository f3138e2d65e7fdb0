package presets

import (
	"context"
	"fmt"

	"github.com/youruser/cardforge/internal/batch"
	"github.com/youruser/cardforge/internal/catalog"
	"github.com/youruser/cardforge/internal/layout"
	"github.com/youruser/cardforge/internal/render"
)

// Batch card kinds.
const (
	ModeMap      = "map"
	ModeReweight = "reweight"
	ModeLayout   = "layout"
)

// GroupOptions select what a batch renders per group.
type GroupOptions struct {
	Mode          string
	Layout        *layout.CardConfig // required for ModeLayout
	UseBackground bool
	QR            bool
}

// GroupRenderer returns the batch render function for opts. Uploaded names
// fill in metadata fields the catalog left empty.
func GroupRenderer(r *render.Renderer, opts GroupOptions) (batch.RenderFunc, error) {
	switch opts.Mode {
	case "", ModeMap, ModeReweight:
	case ModeLayout:
		if opts.Layout == nil {
			return nil, fmt.Errorf("%w: layout mode without a layout", layout.ErrInvalidConfig)
		}
		if err := opts.Layout.Validate(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown batch mode %q", opts.Mode)
	}

	return func(ctx context.Context, meta *catalog.Metadata, g *batch.Group) ([]byte, error) {
		m := *meta
		if m.SubName == "" {
			m.SubName = g.SubName
		}
		if m.AuthorName == "" {
			m.AuthorName = g.AuthorName
		}
		switch opts.Mode {
		case ModeReweight:
			return ReweightCard(ctx, r, &m, DiffRows(g.OldRatings, g.Ratings))
		case ModeLayout:
			return r.RenderCard(ctx, opts.Layout, m.Data(), g.Ratings, opts.UseBackground)
		default:
			return MapCard(ctx, r, &m, g.Ratings, MapOptions{UseBackground: opts.UseBackground, QR: opts.QR})
		}
	}, nil
}
