package presets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/youruser/cardforge/internal/batch"
	"github.com/youruser/cardforge/internal/catalog"
	imagepkg "github.com/youruser/cardforge/internal/image"
	"github.com/youruser/cardforge/internal/layout"
	"github.com/youruser/cardforge/internal/render"
	"github.com/youruser/cardforge/internal/tiers"
)

func newRenderer() *render.Renderer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return render.New(render.NewFontCache(""), imagepkg.NewLoader(time.Second, 4), logger)
}

func coverDataURL(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xc0
	}
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return render.DataURL(buf.Bytes())
}

func sampleMeta(t *testing.T) *catalog.Metadata {
	return &catalog.Metadata{
		ID:              "3a2f1",
		DisplayName:     "Song",
		SubName:         "Extended",
		AuthorName:      "Artist",
		LevelAuthor:     "Mapper",
		DurationSeconds: 187,
		CoverImageURL:   coverDataURL(t),
		PageURL:         "https://maps.example/3a2f1",
	}
}

func decode(t *testing.T, b []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	return img
}

func TestMapCardConfig(t *testing.T) {
	meta := sampleMeta(t)

	plain, err := MapCardConfig(meta, MapOptions{})
	if err != nil {
		t.Fatalf("MapCardConfig() error: %v", err)
	}
	withQR, err := MapCardConfig(meta, MapOptions{QR: true})
	if err != nil {
		t.Fatalf("MapCardConfig(QR) error: %v", err)
	}
	if len(withQR.Components) != len(plain.Components)+2 {
		t.Errorf("QR adds %d components, want 2", len(withQR.Components)-len(plain.Components))
	}
	var qr *layout.ImageComponent
	for _, c := range withQR.Components {
		if img, ok := c.(*layout.ImageComponent); ok && img.Image != nil {
			qr = img
		}
	}
	if qr == nil || qr.ImageURL != "" || qr.Image.Bounds().Dx() != 2*qrSize {
		t.Errorf("QR component = %+v, want an in-memory %dpx image", qr, 2*qrSize)
	}
	if err := withQR.Validate(); err != nil {
		t.Errorf("map layout invalid: %v", err)
	}

	var row *layout.StarRatingComponent
	for _, c := range plain.Components {
		if s, ok := c.(*layout.StarRatingComponent); ok {
			row = s
		}
	}
	if row == nil || len(row.Ratings) != len(tiers.All) {
		t.Fatalf("map card rating row = %+v", row)
	}
	if row.Ratings[3].Rating != "{starRatings.EX}" {
		t.Errorf("fourth entry rating = %q", row.Ratings[3].Rating)
	}
	// five special pills must fit inside the card
	last := row.X + 4*row.PillSpacing(true) + row.PillWidth(true)
	if last > MapWidth {
		t.Errorf("rating row ends at %v, past the card width", last)
	}

	meta.PageURL = ""
	noPage, _ := MapCardConfig(meta, MapOptions{QR: true})
	if len(noPage.Components) != len(plain.Components) {
		t.Error("QR drawn without a page URL")
	}
}

func TestMapCardRender(t *testing.T) {
	meta := sampleMeta(t)
	ratings := tiers.Ratings{tiers.ES: "2.10", tiers.HARD: tiers.Qualified}
	out, err := MapCard(context.Background(), newRenderer(), meta, ratings, MapOptions{UseBackground: true, QR: true})
	if err != nil {
		t.Fatalf("MapCard() error: %v", err)
	}
	img := decode(t, out)
	if b := img.Bounds(); b.Dx() != MapWidth || b.Dy() != MapHeight {
		t.Errorf("map card is %dx%d", b.Dx(), b.Dy())
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Error("rounded corner is not transparent")
	}

	// The clipped cover comes first; nothing after it may be masked.
	es := color.NRGBAModel.Convert(img.At(305, 256)).(color.NRGBA)
	if !near(es, color.NRGBA{R: 0x3c, G: 0xb3, B: 0x71, A: 0xff}, 8) {
		t.Errorf("ES pill pixel = %v, want about #3cb371", es)
	}
	if !hasBrightPixel(img, image.Rect(300, 0, 700, 120)) {
		t.Error("no title or author text visible beside the cover")
	}
}

func near(a, b color.NRGBA, tol int) bool {
	d := func(x, y uint8) bool { return abs(int(x)-int(y)) <= tol }
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B) && d(a.A, b.A)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func hasBrightPixel(img image.Image, r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R > 200 && c.G > 200 && c.B > 200 {
				return true
			}
		}
	}
	return false
}

func TestChangeRows(t *testing.T) {
	change := Change{
		Old: map[string]string{"ES": "2.00", "NOR": "3.00", "HARD": "5.00", "EXP_PLUS": "9.00"},
		New: map[string]string{"ES": "2.50", "NOR": "3.00", "HARD": "4.00", "EXP": "7.10", "EXP_PLUS": "Unranked"},
	}
	rows := change.Rows()
	want := []struct {
		tier tiers.Tier
		old  string
		new  string
		dir  int
	}{
		{tiers.ES, "2.00", "2.50", 1},
		{tiers.HARD, "5.00", "4.00", -1},
		{tiers.EX, tiers.Unranked, "7.10", 1},
		{tiers.EXP, "9.00", tiers.Unranked, -1},
	}
	if len(rows) != len(want) {
		t.Fatalf("Rows() = %+v", rows)
	}
	for i, w := range want {
		r := rows[i]
		if r.Tier != w.tier || r.Old != w.old || r.New != w.new || r.Direction() != w.dir {
			t.Errorf("row %d = %+v dir %d, want %+v", i, r, r.Direction(), w)
		}
	}
	if (ReweightRow{Old: "Qualified", New: "Unranked"}).color() != ColorUnchanged {
		t.Error("special to special should be unchanged colour")
	}
}

func TestReweightCard(t *testing.T) {
	change := Change{
		Old: map[string]string{"ES": "2.00", "HARD": "5.00"},
		New: map[string]string{"ES": "2.50", "HARD": "4.00"},
	}
	cfg := ReweightCardConfig(change.Rows())
	if cfg.Width != ReweightWidth || cfg.Height != 120+70*2 {
		t.Errorf("reweight card is %dx%d", cfg.Width, cfg.Height)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("reweight layout invalid: %v", err)
	}

	out, err := ReweightCard(context.Background(), newRenderer(), sampleMeta(t), change.Rows())
	if err != nil {
		t.Fatalf("ReweightCard() error: %v", err)
	}
	if b := decode(t, out).Bounds(); b.Dx() != 1000 || b.Dy() != 260 {
		t.Errorf("rendered reweight card is %dx%d", b.Dx(), b.Dy())
	}
	if empty := ReweightCardConfig(nil); empty.Height != 120 {
		t.Errorf("empty reweight height = %d", empty.Height)
	}
}

func TestGroupRenderer(t *testing.T) {
	r := newRenderer()
	g := &batch.Group{
		Hash:       "abcd",
		AuthorName: "Uploaded Artist",
		Ratings:    tiers.Ratings{tiers.ES: "2.50"},
		OldRatings: tiers.Ratings{tiers.ES: "2.00"},
	}
	meta := &catalog.Metadata{ID: "1", DisplayName: "Song"}

	tests := []struct {
		opts   GroupOptions
		width  int
		height int
	}{
		{GroupOptions{}, MapWidth, MapHeight},
		{GroupOptions{Mode: ModeReweight}, ReweightWidth, ReweightHeight(1)},
		{GroupOptions{Mode: ModeLayout, Layout: &layout.CardConfig{Width: 320, Height: 100}}, 320, 100},
	}
	for _, tt := range tests {
		fn, err := GroupRenderer(r, tt.opts)
		if err != nil {
			t.Fatalf("GroupRenderer(%q) error: %v", tt.opts.Mode, err)
		}
		out, err := fn(context.Background(), meta, g)
		if err != nil {
			t.Fatalf("render %q error: %v", tt.opts.Mode, err)
		}
		if b := decode(t, out).Bounds(); b.Dx() != tt.width || b.Dy() != tt.height {
			t.Errorf("mode %q rendered %dx%d", tt.opts.Mode, b.Dx(), b.Dy())
		}
	}
	if meta.AuthorName != "" {
		t.Error("GroupRenderer modified the caller's metadata")
	}

	if _, err := GroupRenderer(r, GroupOptions{Mode: ModeLayout}); !errors.Is(err, layout.ErrInvalidConfig) {
		t.Errorf("layout mode without layout error = %v", err)
	}
	if _, err := GroupRenderer(r, GroupOptions{Mode: "poster"}); err == nil {
		t.Error("unknown mode accepted")
	}
}
