package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	imagepkg "github.com/youruser/cardforge/internal/image"
)

// Align is the horizontal anchor of drawn text.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// ParseAlign maps canvas textAlign values; unknown values mean left.
func ParseAlign(s string) Align {
	switch strings.ToLower(s) {
	case "center":
		return AlignCenter
	case "right", "end":
		return AlignRight
	default:
		return AlignLeft
	}
}

// Baseline is the vertical anchor of drawn text.
type Baseline int

const (
	BaselineAlphabetic Baseline = iota
	BaselineMiddle
	BaselineTop
)

// ShadowStyle is the drop shadow applied to fills. The zero value draws no
// shadow.
type ShadowStyle struct {
	Color   color.NRGBA
	OffsetX float64
	OffsetY float64
	Blur    float64
}

func (s ShadowStyle) visible() bool {
	return s.Color.A > 0 && (s.Blur > 0 || s.OffsetX != 0 || s.OffsetY != 0)
}

// Surface is the mutable drawing target of one render. Fill colour, shadow,
// font and clip are state: Push saves all of it and Pop restores it, so an
// operation that changes state brackets its drawing with Push/Pop.
type Surface interface {
	Size() (w, h int)
	Push()
	Pop()
	SetFill(c color.Color)
	SetShadow(s ShadowStyle)
	SetFont(spec FontSpec) error
	Measure(s string) float64
	FillRect(x, y, w, h float64)
	FillRoundedRect(x, y, w, h, r float64)
	FillLinearGradient(x, y, w, h float64, stops []color.Color)
	ClipRoundedRect(x, y, w, h, r float64)
	DrawText(s string, x, y float64, align Align, baseline Baseline)
	DrawImage(img image.Image, x, y, w, h float64)
	Image() image.Image
}

// ErrSurface is returned when a drawing surface cannot be allocated.
var ErrSurface = errors.New("cannot allocate drawing surface")

// maxPixels bounds surface allocation.
const maxPixels = 8192 * 8192

type canvasState struct {
	fill   color.Color
	shadow ShadowStyle
	font   FontSpec
	face   font.Face
	mask   *image.Alpha
}

// Canvas is the gg-backed Surface.
type Canvas struct {
	dc    *gg.Context
	fonts *FontCache
	faces map[FontSpec]font.Face
	st    canvasState
	stack []canvasState
}

// NewCanvas allocates a transparent w×h canvas.
func NewCanvas(w, h int, fonts *FontCache) (*Canvas, error) {
	if w <= 0 || h <= 0 || w*h > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrSurface, w, h)
	}
	if fonts == nil {
		fonts = NewFontCache("")
	}
	c := &Canvas{
		dc:    gg.NewContext(w, h),
		fonts: fonts,
		faces: make(map[FontSpec]font.Face),
		st:    canvasState{fill: color.Black},
	}
	if err := c.SetFont(ParseFont("")); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Canvas) Size() (int, int) { return c.dc.Width(), c.dc.Height() }

func (c *Canvas) Push() {
	c.dc.Push()
	c.stack = append(c.stack, c.st)
}

func (c *Canvas) Pop() {
	if len(c.stack) == 0 {
		return
	}
	c.dc.Pop()
	c.st = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	c.dc.SetFontFace(c.st.face)
	// gg keeps the current mask across Pop.
	if c.st.mask == nil {
		c.dc.ResetClip()
	} else {
		_ = c.dc.SetMask(c.st.mask)
	}
}

func (c *Canvas) SetFill(col color.Color) { c.st.fill = col }

func (c *Canvas) SetShadow(s ShadowStyle) { c.st.shadow = s }

// SetFont switches to spec. Faces are cached per canvas.
func (c *Canvas) SetFont(spec FontSpec) error {
	face, ok := c.faces[spec]
	if !ok {
		var err error
		face, err = c.fonts.NewFace(spec)
		if err != nil {
			return err
		}
		c.faces[spec] = face
	}
	c.st.font = spec
	c.st.face = face
	c.dc.SetFontFace(face)
	return nil
}

// Measure returns the advance width of s under the current font.
func (c *Canvas) Measure(s string) float64 {
	text, star := c.splitStar(s)
	w, _ := c.dc.MeasureString(text)
	if star {
		w += c.starAdvance()
	}
	return w
}

func (c *Canvas) FillRect(x, y, w, h float64) {
	c.fillPath(func(dc *gg.Context, dx, dy float64) { dc.DrawRectangle(x+dx, y+dy, w, h) })
}

func (c *Canvas) FillRoundedRect(x, y, w, h, r float64) {
	c.fillPath(func(dc *gg.Context, dx, dy float64) { roundedRect(dc, x+dx, y+dy, w, h, r) })
}

func (c *Canvas) fillPath(path func(dc *gg.Context, dx, dy float64)) {
	if isTransparent(c.st.fill) {
		return
	}
	if sh := c.st.shadow; sh.visible() {
		layer := gg.NewContext(c.dc.Width(), c.dc.Height())
		layer.SetColor(sh.Color)
		path(layer, sh.OffsetX, sh.OffsetY)
		layer.Fill()
		c.dc.DrawImage(imagepkg.Blur(layer.Image(), sh.Blur/2), 0, 0)
	}
	c.dc.SetColor(c.st.fill)
	path(c.dc, 0, 0)
	c.dc.Fill()
}

func (c *Canvas) FillLinearGradient(x, y, w, h float64, stops []color.Color) {
	if len(stops) == 0 {
		return
	}
	if len(stops) == 1 {
		c.dc.SetColor(stops[0])
	} else {
		grad := gg.NewLinearGradient(x, y, x, y+h)
		for i, s := range stops {
			grad.AddColorStop(float64(i)/float64(len(stops)-1), s)
		}
		c.dc.SetFillStyle(grad)
	}
	c.dc.DrawRectangle(x, y, w, h)
	c.dc.Fill()
}

// ClipRoundedRect intersects the clip region with a rounded rectangle. The
// mask is rebuilt rather than narrowed in place so Pop can restore the saved
// one.
func (c *Canvas) ClipRoundedRect(x, y, w, h, r float64) {
	scratch := gg.NewContext(c.dc.Width(), c.dc.Height())
	scratch.SetRGB(0, 0, 0)
	roundedRect(scratch, x, y, w, h, r)
	scratch.Fill()
	mask := scratch.AsMask()
	if prev := c.st.mask; prev != nil {
		for i, a := range prev.Pix {
			mask.Pix[i] = uint8(uint16(mask.Pix[i]) * uint16(a) / 255)
		}
	}
	if err := c.dc.SetMask(mask); err != nil {
		return
	}
	c.st.mask = mask
}

// DrawText draws s anchored at (x, y). Glyphs the face lacks for ★ are
// replaced by a vector star so rating pills render with any font.
func (c *Canvas) DrawText(s string, x, y float64, align Align, baseline Baseline) {
	if s == "" {
		return
	}
	c.dc.SetColor(c.st.fill)
	ay := 0.0
	switch baseline {
	case BaselineMiddle:
		ay = 0.5
	case BaselineTop:
		ay = 1
	}
	total := c.Measure(s)
	left := x
	switch align {
	case AlignCenter:
		left = x - total/2
	case AlignRight:
		left = x - total
	}
	text, star := c.splitStar(s)
	c.dc.DrawStringAnchored(text, left, y, 0, ay)
	if star {
		tw, _ := c.dc.MeasureString(text)
		size := c.st.font.Size
		cy := y + ay*c.dc.FontHeight() - size*0.35
		drawStar(c.dc, left+tw+c.starAdvance()/2, cy, size*0.45)
		c.dc.Fill()
	}
}

// DrawImage draws img stretched to w×h at (x, y).
func (c *Canvas) DrawImage(img image.Image, x, y, w, h float64) {
	iw, ih := int(math.Round(w)), int(math.Round(h))
	if iw <= 0 || ih <= 0 {
		return
	}
	b := img.Bounds()
	if b.Dx() != iw || b.Dy() != ih {
		img = imagepkg.Stretch(img, iw, ih)
	}
	c.dc.DrawImage(img, int(math.Round(x)), int(math.Round(y)))
}

func (c *Canvas) Image() image.Image { return c.dc.Image() }

const starRune = '★'

// splitStar reports whether s ends in a ★ the current face cannot draw and
// returns the text before it.
func (c *Canvas) splitStar(s string) (string, bool) {
	if !strings.HasSuffix(s, string(starRune)) || c.st.face == nil {
		return s, false
	}
	if _, ok := c.st.face.GlyphAdvance(starRune); ok {
		return s, false
	}
	return strings.TrimSuffix(s, string(starRune)), true
}

func (c *Canvas) starAdvance() float64 { return c.st.font.Size }

func roundedRect(dc *gg.Context, x, y, w, h, r float64) {
	r = math.Min(r, math.Min(w, h)/2)
	if r <= 0 {
		dc.DrawRectangle(x, y, w, h)
		return
	}
	dc.DrawRoundedRectangle(x, y, w, h, r)
}

func drawStar(dc *gg.Context, cx, cy, r float64) {
	inner := r * 0.45
	for i := 0; i < 10; i++ {
		rad := r
		if i%2 == 1 {
			rad = inner
		}
		a := -math.Pi/2 + float64(i)*math.Pi/5
		px, py := cx+rad*math.Cos(a), cy+rad*math.Sin(a)
		if i == 0 {
			dc.MoveTo(px, py)
		} else {
			dc.LineTo(px, py)
		}
	}
	dc.ClosePath()
}

func isTransparent(c color.Color) bool {
	if c == nil {
		return true
	}
	_, _, _, a := c.RGBA()
	return a == 0
}
