package api

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/youruser/cardforge/internal/catalog"
	imagepkg "github.com/youruser/cardforge/internal/image"
	"github.com/youruser/cardforge/internal/layout"
	"github.com/youruser/cardforge/internal/presets"
	"github.com/youruser/cardforge/internal/render"
	"github.com/youruser/cardforge/internal/tiers"
)

const maxScaledWidth = 4096

func (h *Handler) health(c *gin.Context) {
	n := 0
	if h.Layouts != nil {
		n = len(h.Layouts.Names())
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "layouts": n})
}

// qr endpoint returns a PNG of a QR for "text" query param
func qrHandler(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadRequest, "detail": "text is required"})
		return
	}
	size := 400
	if v, err := strconv.Atoi(c.Query("size")); err == nil && v >= 64 && v <= 2048 {
		size = v
	}
	b, err := imagepkg.GenerateQRPNG(text, size)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", b)
}

func (h *Handler) listLayouts(c *gin.Context) {
	names := []string{}
	if h.Layouts != nil {
		names = h.Layouts.Names()
	}
	c.JSON(http.StatusOK, gin.H{"layouts": names})
}

func layoutSchema(c *gin.Context) {
	c.JSON(http.StatusOK, layout.Schema())
}

type renderRequest struct {
	Config        *layout.CardConfig `json:"config"`
	Layout        string             `json:"layout"`
	Data          map[string]any     `json:"data"`
	Ratings       map[string]string  `json:"ratings"`
	LegacyRatings bool               `json:"legacyRatings"`
	UseBackground bool               `json:"useBackground"`
	Format        string             `json:"format"` // "png" (default) or "dataurl"
}

// renderHandler renders an inline or named layout against caller data.
func (h *Handler) renderHandler(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, layout.ErrInvalidConfig) {
			h.fail(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	cfg := req.Config
	if cfg == nil {
		var err error
		if cfg, err = h.namedLayout(req.Layout); err != nil {
			h.fail(c, err)
			return
		}
	}
	ratings := tiers.ParseKeyed(req.Ratings)
	if req.LegacyRatings {
		ratings = tiers.ConvertLegacy(req.Ratings)
	}

	out, err := h.Renderer.RenderCard(c.Request.Context(), cfg, req.Data, ratings, req.UseBackground)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.writeImage(c, out, req.Format)
}

// cardHandler looks up a map by hash and renders its card, either the
// built-in map card or the layout named by ?layout=.
func (h *Handler) cardHandler(c *gin.Context) {
	ctx := c.Request.Context()
	hash := strings.ToLower(strings.TrimSpace(c.Param("hash")))
	if h.Catalog == nil {
		h.fail(c, fmt.Errorf("%w: no catalog configured", catalog.ErrUnavailable))
		return
	}
	meta, err := h.Catalog.Metadata(ctx, hash)
	if err != nil {
		h.fail(c, err)
		return
	}
	ratings := tiers.Ratings{}
	if h.Ratings != nil {
		if ratings, err = h.Ratings.Tiers(ctx, hash); err != nil {
			h.fail(c, err)
			return
		}
	}

	useBackground := c.DefaultQuery("background", "true") != "false"
	var out []byte
	if name := c.Query("layout"); name != "" {
		cfg, lerr := h.namedLayout(name)
		if lerr != nil {
			h.fail(c, lerr)
			return
		}
		out, err = h.Renderer.RenderCard(ctx, cfg, meta.Data(), ratings, useBackground)
	} else {
		opts := presets.MapOptions{UseBackground: useBackground, QR: c.Query("qr") == "true"}
		out, err = presets.MapCard(ctx, h.Renderer, meta, ratings, opts)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.writeImage(c, out, c.Query("format"))
}

type reweightRequest struct {
	Hash        string            `json:"hash"`
	DisplayName string            `json:"displayName"`
	AuthorName  string            `json:"authorName"`
	Old         map[string]string `json:"old"`
	New         map[string]string `json:"new"`
	Format      string            `json:"format"`
}

// reweightHandler renders the comparison card. Ratings use the legacy keys.
func (h *Handler) reweightHandler(c *gin.Context) {
	var req reweightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	meta := &catalog.Metadata{DisplayName: req.DisplayName, AuthorName: req.AuthorName, ContentHash: req.Hash}
	if req.Hash != "" && h.Catalog != nil {
		m, err := h.Catalog.Metadata(ctx, req.Hash)
		if err != nil {
			h.fail(c, err)
			return
		}
		meta = m
	}
	rows := presets.Change{Old: req.Old, New: req.New}.Rows()
	out, err := presets.ReweightCard(ctx, h.Renderer, meta, rows)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.writeImage(c, out, req.Format)
}

func (h *Handler) namedLayout(name string) (*layout.CardConfig, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: config or layout is required", layout.ErrInvalidConfig)
	}
	if h.Layouts == nil {
		return nil, fmt.Errorf("%w: unknown layout %q", layout.ErrInvalidConfig, name)
	}
	cfg, ok := h.Layouts.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown layout %q", layout.ErrInvalidConfig, name)
	}
	return cfg, nil
}

// writeImage sends PNG bytes, scaled when ?width= is given, as a PNG body or
// as a JSON data URL.
func (h *Handler) writeImage(c *gin.Context, out []byte, format string) {
	if w, err := strconv.Atoi(c.Query("width")); err == nil && w > 0 && w <= maxScaledWidth {
		if scaled, serr := scalePNG(out, w); serr == nil {
			out = scaled
		} else {
			h.Logger.Warn("scaling card failed", "error", serr)
		}
	}
	if format == "dataurl" {
		c.JSON(http.StatusOK, gin.H{"image": render.DataURL(out)})
		return
	}
	c.Data(http.StatusOK, "image/png", out)
}

func scalePNG(b []byte, w int) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, imagepkg.ScaleToWidth(img, w)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
