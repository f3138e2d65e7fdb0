package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// FontSpec is a parsed CSS font shorthand such as "bold 24px sans".
type FontSpec struct {
	Family string
	Size   float64
	Bold   bool
	Italic bool
}

// ParseFont parses the subset of the CSS font shorthand that layouts use:
// optional style and weight keywords, a size in px, pt or em, and a family
// list of which only the first entry is kept.
func ParseFont(s string) FontSpec {
	spec := FontSpec{Family: "sans-serif", Size: 10}
	fields := strings.Fields(s)
	for i, f := range fields {
		lf := strings.ToLower(f)
		if size, ok := parseSize(lf); ok {
			spec.Size = size
			if fam := strings.Join(fields[i+1:], " "); fam != "" {
				fam = strings.TrimSpace(strings.Split(fam, ",")[0])
				spec.Family = strings.Trim(fam, `"'`)
			}
			break
		}
		switch lf {
		case "bold", "bolder", "600", "700", "800", "900":
			spec.Bold = true
		case "italic", "oblique":
			spec.Italic = true
		}
	}
	return spec
}

func parseSize(s string) (float64, bool) {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	var unit string
	for _, u := range []string{"px", "pt", "em"} {
		if strings.HasSuffix(s, u) {
			unit = u
			s = strings.TrimSuffix(s, u)
			break
		}
	}
	if unit == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	switch unit {
	case "pt":
		return v * 96 / 72, true
	case "em":
		return v * 16, true
	}
	return v, true
}

func (f FontSpec) String() string {
	var b strings.Builder
	if f.Italic {
		b.WriteString("italic ")
	}
	if f.Bold {
		b.WriteString("bold ")
	}
	b.WriteString(strconv.FormatFloat(f.Size, 'f', -1, 64))
	b.WriteString("px ")
	b.WriteString(f.Family)
	return b.String()
}

// FontCache parses font files once and hands out faces. Parsed fonts are
// shared; faces are not safe for concurrent use, so callers create one per
// surface through NewFace.
type FontCache struct {
	dir string

	mu    sync.RWMutex
	fonts map[string]*truetype.Font
}

// NewFontCache creates a cache that looks up families in dir (may be empty)
// before falling back to the embedded Go fonts.
func NewFontCache(dir string) *FontCache {
	return &FontCache{dir: dir, fonts: make(map[string]*truetype.Font)}
}

// NewFace returns a fresh face for spec.
func (fc *FontCache) NewFace(spec FontSpec) (font.Face, error) {
	f, err := fc.font(spec)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: spec.Size, DPI: 72, Hinting: font.HintingFull}), nil
}

func variantKey(spec FontSpec) string {
	key := strings.ToLower(strings.ReplaceAll(spec.Family, " ", ""))
	if spec.Bold {
		key += "-bold"
	}
	if spec.Italic {
		key += "-italic"
	}
	return key
}

func (fc *FontCache) font(spec FontSpec) (*truetype.Font, error) {
	key := variantKey(spec)
	fc.mu.RLock()
	f, ok := fc.fonts[key]
	fc.mu.RUnlock()
	if ok {
		return f, nil
	}

	data := fc.fromDir(key)
	if data == nil {
		data = builtin(spec)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", spec, err)
	}

	fc.mu.Lock()
	fc.fonts[key] = f
	fc.mu.Unlock()
	return f, nil
}

// fromDir looks for <key>.ttf in the font directory, e.g. "inter-bold.ttf".
func (fc *FontCache) fromDir(key string) []byte {
	if fc.dir == "" {
		return nil
	}
	for _, ext := range []string{".ttf", ".otf"} {
		data, err := os.ReadFile(filepath.Join(fc.dir, key+ext))
		if err == nil {
			return data
		}
	}
	return nil
}

func builtin(spec FontSpec) []byte {
	mono := strings.Contains(strings.ToLower(spec.Family), "mono")
	switch {
	case mono && spec.Bold && spec.Italic:
		return gomonobolditalic.TTF
	case mono && spec.Bold:
		return gomonobold.TTF
	case mono && spec.Italic:
		return gomonoitalic.TTF
	case mono:
		return gomono.TTF
	case spec.Bold && spec.Italic:
		return gobolditalic.TTF
	case spec.Bold:
		return gobold.TTF
	case spec.Italic:
		return goitalic.TTF
	default:
		return goregular.TTF
	}
}
