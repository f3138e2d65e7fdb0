// Package api exposes card rendering and batch generation over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/youruser/cardforge/internal/batch"
	"github.com/youruser/cardforge/internal/catalog"
	"github.com/youruser/cardforge/internal/layout"
	"github.com/youruser/cardforge/internal/render"
	"github.com/youruser/cardforge/internal/tiers"
)

// MetadataSource resolves content hashes to catalog metadata.
type MetadataSource interface {
	Metadata(ctx context.Context, hash string) (*catalog.Metadata, error)
}

// RatingSource fetches per-tier ratings.
type RatingSource interface {
	Tiers(ctx context.Context, hash string) (tiers.Ratings, error)
}

// LayoutSource lists named layouts.
type LayoutSource interface {
	Get(name string) (*layout.CardConfig, bool)
	Names() []string
}

// Options are the tunables the handlers need from the configuration.
type Options struct {
	MaxUploadBytes int64
	MaxRecords     int
	RetryDelay     time.Duration
	MaxRetries     int
}

// Handler carries the collaborators shared by all routes.
type Handler struct {
	Renderer *render.Renderer
	Layouts  LayoutSource
	Catalog  MetadataSource
	Ratings  RatingSource
	Logger   *slog.Logger
	Options  Options

	upgrader websocket.Upgrader
}

// NewHandler fills in defaults for a Handler.
func NewHandler(h Handler) *Handler {
	if h.Logger == nil {
		h.Logger = slog.Default()
	}
	if h.Options.MaxUploadBytes <= 0 {
		h.Options.MaxUploadBytes = 16 << 20
	}
	if h.Options.MaxRecords <= 0 {
		h.Options.MaxRecords = 5000
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1 << 16,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	return &h
}

// Messages shown to users for call-fatal failures.
const (
	msgBadConfig   = "bad configuration"
	msgUpstream    = "upstream unavailable"
	msgNotFound    = "not found"
	msgBadRequest  = "bad request"
	msgInternal    = "internal error"
	msgCanceled    = "canceled"
	msgTooManyRecs = "too many records"
)

// classify maps an error onto a status code and a user-facing message.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, layout.ErrInvalidConfig):
		return http.StatusBadRequest, msgBadConfig
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, catalog.ErrRateLimited), errors.Is(err, catalog.ErrUnavailable):
		return http.StatusBadGateway, msgUpstream
	case errors.Is(err, batch.ErrCanceled), errors.Is(err, context.Canceled):
		return 499, msgCanceled
	}
	return http.StatusInternalServerError, msgInternal
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := classify(err)
	if status >= 500 {
		h.Logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": msg, "detail": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msgBadRequest, "detail": err.Error()})
}
