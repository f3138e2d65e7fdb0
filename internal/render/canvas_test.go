package render

import (
	"context"
	"image"
	"image/color"
	"testing"
)

func rgbaAt(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func TestCanvasPopRestoresClip(t *testing.T) {
	c, err := NewCanvas(100, 100, nil)
	if err != nil {
		t.Fatal(err)
	}
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}
	green := color.NRGBA{G: 255, A: 255}

	c.Push()
	c.ClipRoundedRect(0, 0, 20, 20, 0)
	c.SetFill(blue)
	c.FillRect(0, 0, 100, 100)
	c.Push()
	c.ClipRoundedRect(10, 10, 20, 20, 0)
	c.SetFill(red)
	c.FillRect(0, 0, 100, 100)
	c.Pop()
	// the outer clip is still in force
	c.SetFill(green)
	c.FillRect(22, 22, 10, 10)
	c.Pop()
	c.SetFill(green)
	c.FillRect(50, 50, 20, 20)

	img := c.Image()
	tests := []struct {
		name string
		x, y int
		want color.NRGBA
	}{
		{"outer clip only", 5, 5, blue},
		{"nested clips intersect", 15, 15, red},
		{"outside both clips", 25, 25, color.NRGBA{}},
		{"after both pops", 60, 60, green},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rgbaAt(img, tt.x, tt.y); got != tt.want {
				t.Errorf("pixel(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestClippedImageDoesNotMaskLaterComponents(t *testing.T) {
	images := &fakeImages{imgs: map[string]image.Image{"tile.png": solid(10, 10)}}
	r := New(nil, images, nil)
	cfg := mustParse(t, `{"width": 100, "height": 100, "baseColor": "#000",
		"components": [
			{"type": "image", "x": 0, "y": 0, "width": 10, "height": 10, "imageUrl": "tile.png", "clip": true, "cornerRadius": 2},
			{"type": "roundedRect", "x": 50, "y": 50, "width": 20, "height": 20, "fillStyle": "#f00"}
		]}`)
	s, err := r.Compose(context.Background(), cfg, nil, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	img := s.Image()
	if got := rgbaAt(img, 60, 60); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("rect after clipped image = %v, want red", got)
	}
	if got := rgbaAt(img, 5, 5); got != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("clipped image pixel = %v, want white", got)
	}
}

func TestCanvasShadowScopedToComponent(t *testing.T) {
	r := New(nil, nil, nil)
	cfg := mustParse(t, `{"width": 200, "height": 100, "baseColor": "transparent",
		"components": [
			{"type": "roundedRect", "x": 10, "y": 10, "width": 30, "height": 30, "fillStyle": "#fff",
			 "shadow": {"color": "#000", "offsetX": 20, "offsetY": 20, "blur": 2}},
			{"type": "roundedRect", "x": 100, "y": 10, "width": 30, "height": 30, "fillStyle": "#fff"}
		]}`)
	s, err := r.Compose(context.Background(), cfg, nil, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	img := s.Image()
	if got := rgbaAt(img, 45, 45); got.A < 200 || got.R > 40 {
		t.Errorf("shadow of first rect = %v, want dark and opaque", got)
	}
	if got := rgbaAt(img, 145, 45); got.A != 0 {
		t.Errorf("second rect cast a shadow: pixel = %v", got)
	}
	if got := rgbaAt(img, 115, 25); got != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("second rect = %v, want white", got)
	}
}
