package layout

// componentWire is the flat JSON shape shared by every component type.
type componentWire struct {
	Type   string   `json:"type" jsonschema:"enum=text,enum=image,enum=roundedRect,enum=starRating"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	Text      string   `json:"text,omitempty"`
	Font      string   `json:"font,omitempty"`
	FillStyle string   `json:"fillStyle,omitempty"`
	TextAlign string   `json:"textAlign,omitempty" jsonschema:"enum=left,enum=start,enum=center,enum=right,enum=end"`
	MaxWidth  *float64 `json:"maxWidth,omitempty"`

	ImageURL     string   `json:"imageUrl,omitempty"`
	SrcField     string   `json:"srcField,omitempty"`
	Clip         bool     `json:"clip,omitempty"`
	CornerRadius *float64 `json:"cornerRadius,omitempty"`

	Shadow *Shadow `json:"shadow,omitempty"`

	Ratings        []RatingEntry `json:"ratings,omitempty"`
	TextColor      string        `json:"textColor,omitempty"`
	DefaultWidth   *float64      `json:"defaultWidth,omitempty"`
	DefaultSpacing *float64      `json:"defaultSpacing,omitempty"`
	SpecialWidth   *float64      `json:"specialWidth,omitempty"`
	SpecialSpacing *float64      `json:"specialSpacing,omitempty"`
}

func (w componentWire) geometry() Geometry {
	return Geometry{X: valueOr(w.X, 0), Y: valueOr(w.Y, 0), Width: w.Width, Height: w.Height}
}

// component maps the wire shape onto its variant. Known variants must carry
// both x and y.
func (w componentWire) component() (Component, error) {
	var c Component
	switch Kind(w.Type) {
	case KindText:
		c = &TextComponent{
			Geometry:  w.geometry(),
			Text:      w.Text,
			Font:      w.Font,
			FillStyle: w.FillStyle,
			TextAlign: w.TextAlign,
			MaxWidth:  w.MaxWidth,
		}
	case KindImage:
		c = &ImageComponent{
			Geometry:     w.geometry(),
			ImageURL:     w.ImageURL,
			SrcField:     w.SrcField,
			Clip:         w.Clip,
			CornerRadius: w.CornerRadius,
		}
	case KindRoundedRect:
		c = &RoundedRectComponent{
			Geometry:     w.geometry(),
			FillStyle:    w.FillStyle,
			CornerRadius: valueOr(w.CornerRadius, 0),
			Shadow:       w.Shadow,
		}
	case KindStarRating:
		c = &StarRatingComponent{
			Geometry:       w.geometry(),
			Ratings:        w.Ratings,
			Font:           w.Font,
			TextColor:      w.TextColor,
			DefaultWidth:   w.DefaultWidth,
			DefaultSpacing: w.DefaultSpacing,
			SpecialWidth:   w.SpecialWidth,
			SpecialSpacing: w.SpecialSpacing,
		}
	default:
		return &UnknownComponent{Type: w.Type}, nil
	}
	if w.X == nil || w.Y == nil {
		return nil, errMissingPosition
	}
	return c, nil
}

func pos(g Geometry) (x, y *float64) {
	return Float(g.X), Float(g.Y)
}

func (c *TextComponent) toWire() componentWire {
	x, y := pos(c.Geometry)
	return componentWire{
		Type: string(KindText), X: x, Y: y, Width: c.Width, Height: c.Height,
		Text: c.Text, Font: c.Font, FillStyle: c.FillStyle, TextAlign: c.TextAlign, MaxWidth: c.MaxWidth,
	}
}

func (c *ImageComponent) toWire() componentWire {
	x, y := pos(c.Geometry)
	return componentWire{
		Type: string(KindImage), X: x, Y: y, Width: c.Width, Height: c.Height,
		ImageURL: c.ImageURL, SrcField: c.SrcField, Clip: c.Clip, CornerRadius: c.CornerRadius,
	}
}

func (c *RoundedRectComponent) toWire() componentWire {
	x, y := pos(c.Geometry)
	return componentWire{
		Type: string(KindRoundedRect), X: x, Y: y, Width: c.Width, Height: c.Height,
		FillStyle: c.FillStyle, CornerRadius: Float(c.CornerRadius), Shadow: c.Shadow,
	}
}

func (c *StarRatingComponent) toWire() componentWire {
	x, y := pos(c.Geometry)
	return componentWire{
		Type: string(KindStarRating), X: x, Y: y, Width: c.Width, Height: c.Height,
		Ratings: c.Ratings, Font: c.Font, TextColor: c.TextColor,
		DefaultWidth: c.DefaultWidth, DefaultSpacing: c.DefaultSpacing,
		SpecialWidth: c.SpecialWidth, SpecialSpacing: c.SpecialSpacing,
	}
}

func (u *UnknownComponent) toWire() componentWire {
	return componentWire{Type: u.Type}
}

func (k Kind) String() string {
	if k == "" {
		return "<empty>"
	}
	return string(k)
}
