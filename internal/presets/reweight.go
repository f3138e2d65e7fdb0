package presets

import (
	"context"
	"strconv"

	"github.com/youruser/cardforge/internal/catalog"
	"github.com/youruser/cardforge/internal/layout"
	"github.com/youruser/cardforge/internal/render"
	"github.com/youruser/cardforge/internal/tiers"
)

const (
	ReweightWidth = 1000

	reweightHeader = 120
	reweightRow    = 70
)

// Pill colours of the new value.
const (
	ColorUp        = "#2e9e4f"
	ColorDown      = "#c8373a"
	ColorUnchanged = "#6b6b75"
)

// Change is a reweight export: ratings before and after, keyed in the legacy
// ES..EXP_PLUS scheme.
type Change struct {
	Old map[string]string `json:"old"`
	New map[string]string `json:"new"`
}

// ReweightRow is one changed tier.
type ReweightRow struct {
	Tier tiers.Tier
	Old  string
	New  string
}

// Rows converts the legacy keyed change to canonical tiers and diffs it.
func (c Change) Rows() []ReweightRow {
	return DiffRows(tiers.ConvertLegacy(c.Old), tiers.ConvertLegacy(c.New))
}

// DiffRows returns the tiers whose value differs, in tier order. A missing
// side reads Unranked.
func DiffRows(oldR, newR tiers.Ratings) []ReweightRow {
	var rows []ReweightRow
	for _, t := range tiers.All {
		o, n := oldR[t], newR[t]
		if o == "" && n == "" {
			continue
		}
		if o == "" {
			o = tiers.Unranked
		}
		if n == "" {
			n = tiers.Unranked
		}
		if o == n {
			continue
		}
		rows = append(rows, ReweightRow{Tier: t, Old: o, New: n})
	}
	return rows
}

// Direction returns 1 when the rating went up, -1 when it went down and 0
// when the values cannot be compared. A ranked value counts as above any
// special one.
func (r ReweightRow) Direction() int {
	o, oErr := strconv.ParseFloat(r.Old, 64)
	n, nErr := strconv.ParseFloat(r.New, 64)
	switch {
	case oErr == nil && nErr == nil:
		if n > o {
			return 1
		}
		if n < o {
			return -1
		}
		return 0
	case oErr != nil && nErr == nil:
		return 1
	case oErr == nil && nErr != nil:
		return -1
	}
	return 0
}

func (r ReweightRow) color() string {
	switch r.Direction() {
	case 1:
		return ColorUp
	case -1:
		return ColorDown
	}
	return ColorUnchanged
}

// ReweightHeight is the card height for n changed tiers.
func ReweightHeight(n int) int {
	return reweightHeader + reweightRow*n
}

// ReweightCardConfig lays out the title row and one row per change.
func ReweightCardConfig(rows []ReweightRow) *layout.CardConfig {
	comps := []layout.Component{
		&layout.TextComponent{
			Geometry:  layout.Geometry{X: 30, Y: 24},
			Text:      "{displayName}",
			Font:      "bold 36px sans",
			FillStyle: "#ffffff",
			MaxWidth:  layout.Float(ReweightWidth - 60),
		},
		&layout.TextComponent{
			Geometry:  layout.Geometry{X: 30, Y: 72},
			Text:      "{authorName}",
			Font:      "20px sans",
			FillStyle: "#b0b0b8",
			MaxWidth:  layout.Float(ReweightWidth - 60),
		},
	}

	pill := func(x, y float64, value, color string) *layout.StarRatingComponent {
		return &layout.StarRatingComponent{
			Geometry:     layout.Geometry{X: x, Y: y},
			Ratings:      []layout.RatingEntry{{Rating: value, Color: color}},
			Font:         "bold 22px sans",
			TextColor:    "#ffffff",
			DefaultWidth: layout.Float(200),
			SpecialWidth: layout.Float(200),
		}
	}

	for i, row := range rows {
		y := float64(reweightHeader + reweightRow*i)
		comps = append(comps,
			&layout.RoundedRectComponent{
				Geometry:     layout.Geometry{X: 20, Y: y, Width: layout.Float(ReweightWidth - 40), Height: layout.Float(reweightRow - 10)},
				FillStyle:    "rgba(255,255,255,0.06)",
				CornerRadius: 10,
			},
			&layout.RoundedRectComponent{
				Geometry:     layout.Geometry{X: 20, Y: y, Width: layout.Float(8), Height: layout.Float(reweightRow - 10)},
				FillStyle:    tiers.Colors[row.Tier],
				CornerRadius: 4,
			},
			&layout.TextComponent{
				Geometry:  layout.Geometry{X: 44, Y: y, Height: layout.Float(reweightRow - 10)},
				Text:      row.Tier.Label(),
				Font:      "bold 24px sans",
				FillStyle: "#ffffff",
			},
			pill(300, y+10, row.Old, ColorUnchanged),
			&layout.TextComponent{
				Geometry:  layout.Geometry{X: 560, Y: y, Height: layout.Float(reweightRow - 10)},
				Text:      "→",
				Font:      "bold 30px sans",
				FillStyle: "#ffffff",
				TextAlign: "center",
			},
			pill(660, y+10, row.New, row.color()),
		)
	}

	return &layout.CardConfig{
		Width:            ReweightWidth,
		Height:           ReweightHeight(len(rows)),
		CardCornerRadius: 20,
		BaseColor:        "#18181f",
		Components:       comps,
		ConfigName:       "reweight",
	}
}

// ReweightCard renders the comparison card for meta.
func ReweightCard(ctx context.Context, r *render.Renderer, meta *catalog.Metadata, rows []ReweightRow) ([]byte, error) {
	cfg := ReweightCardConfig(rows)
	return r.RenderCard(ctx, cfg, meta.Data(), nil, false)
}
