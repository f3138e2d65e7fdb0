package render

import (
	"image"
	"image/color"
	"unicode/utf8"
)

// op is one recorded drawing call.
type op struct {
	name     string
	x, y     float64
	w, h, r  float64
	text     string
	fill     color.Color
	align    Align
	baseline Baseline
	shadow   bool
	clips    int
}

type recState struct {
	fill   color.Color
	shadow ShadowStyle
	font   FontSpec
	clips  int
}

// recorder is a Surface that records calls instead of drawing. Every rune
// measures half the font size.
type recorder struct {
	w, h  int
	st    recState
	stack []recState
	ops   []op
}

func newRecorder(w, h int) *recorder {
	return &recorder{w: w, h: h, st: recState{fill: color.Black, font: ParseFont("")}}
}

func (r *recorder) Size() (int, int) { return r.w, r.h }
func (r *recorder) Push() { r.stack = append(r.stack, r.st) }
func (r *recorder) Pop() {
	r.st = r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
}
func (r *recorder) SetFill(c color.Color) { r.st.fill = c }
func (r *recorder) SetShadow(s ShadowStyle) { r.st.shadow = s }
func (r *recorder) SetFont(spec FontSpec) error { r.st.font = spec; return nil }
func (r *recorder) Measure(s string) float64 { return float64(utf8.RuneCountInString(s)) * r.st.font.Size / 2 }
func (r *recorder) Image() image.Image { return image.NewNRGBA(image.Rect(0, 0, r.w, r.h)) }

func (r *recorder) record(o op) {
	o.fill = r.st.fill
	o.shadow = r.st.shadow.visible()
	o.clips = r.st.clips
	r.ops = append(r.ops, o)
}

func (r *recorder) FillRect(x, y, w, h float64) {
	r.record(op{name: "fillRect", x: x, y: y, w: w, h: h})
}

func (r *recorder) FillRoundedRect(x, y, w, h, rad float64) {
	r.record(op{name: "fillRoundedRect", x: x, y: y, w: w, h: h, r: rad})
}

func (r *recorder) FillLinearGradient(x, y, w, h float64, stops []color.Color) {
	r.record(op{name: "gradient", x: x, y: y, w: w, h: h})
}

func (r *recorder) ClipRoundedRect(x, y, w, h, rad float64) {
	r.st.clips++
	r.record(op{name: "clip", x: x, y: y, w: w, h: h, r: rad})
}

func (r *recorder) DrawText(s string, x, y float64, align Align, baseline Baseline) {
	r.record(op{name: "text", x: x, y: y, text: s, align: align, baseline: baseline})
}

func (r *recorder) DrawImage(img image.Image, x, y, w, h float64) {
	r.record(op{name: "image", x: x, y: y, w: w, h: h})
}

func (r *recorder) named(name string) []op {
	var out []op
	for _, o := range r.ops {
		if o.name == name {
			out = append(out, o)
		}
	}
	return out
}
