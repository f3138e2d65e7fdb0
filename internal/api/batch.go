package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/youruser/cardforge/internal/batch"
	"github.com/youruser/cardforge/internal/presets"
	"github.com/youruser/cardforge/internal/records"
	"github.com/youruser/cardforge/internal/tiers"
)

// batchOptions are read from the query string of both batch endpoints, or
// from the start message of the websocket.
type batchOptions struct {
	Mode          string   `json:"mode" form:"mode"`
	Layout        string   `json:"layout" form:"layout"`
	UseBackground bool     `json:"useBackground" form:"background"`
	QR            bool     `json:"qr" form:"qr"`
	SkipUnranked  bool     `json:"skipUnranked" form:"skipUnranked"`
	Tiers         []string `json:"tiers" form:"tier"`
}

func (o batchOptions) filter() records.FilterOptions {
	f := records.FilterOptions{SkipUnranked: o.SkipUnranked}
	for _, k := range o.Tiers {
		if t, ok := tiers.FromKey(k); ok {
			f.Tiers = append(f.Tiers, t)
		}
	}
	return f
}

// pipeline builds the batch pipeline for opts.
func (h *Handler) pipeline(opts batchOptions) (*batch.Pipeline, error) {
	g := presets.GroupOptions{Mode: opts.Mode, UseBackground: opts.UseBackground, QR: opts.QR}
	if opts.Layout != "" {
		cfg, err := h.namedLayout(opts.Layout)
		if err != nil {
			return nil, err
		}
		g.Mode, g.Layout = presets.ModeLayout, cfg
	}
	render, err := presets.GroupRenderer(h.Renderer, g)
	if err != nil {
		return nil, err
	}
	p := &batch.Pipeline{
		Render:     render,
		RetryDelay: h.Options.RetryDelay,
		MaxRetries: h.Options.MaxRetries,
		Logger:     h.Logger,
	}
	if h.Catalog != nil {
		p.Lookup = h.Catalog
	}
	return p, nil
}

// readRecords reads an upload: a multipart "file" field, or a CSV or JSON
// request body.
func (h *Handler) readRecords(c *gin.Context) ([]records.UploadedRecord, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Options.MaxUploadBytes)

	ct, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	switch ct {
	case "multipart/form-data":
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return parseRecords(f, filepath.Ext(fh.Filename))
	case "text/csv":
		return parseRecords(c.Request.Body, ".csv")
	default:
		return parseRecords(c.Request.Body, ".json")
	}
}

func parseRecords(r io.Reader, ext string) ([]records.UploadedRecord, error) {
	switch strings.ToLower(ext) {
	case ".csv":
		return records.LoadCSV(r)
	case ".json":
		return records.LoadJSON(r)
	}
	return nil, fmt.Errorf("%w: %s", records.ErrUnsupportedFormat, ext)
}

func (h *Handler) checkRecords(recs []records.UploadedRecord) error {
	if len(recs) == 0 {
		return fmt.Errorf("no records")
	}
	if len(recs) > h.Options.MaxRecords {
		return fmt.Errorf("%s: %d > %d", msgTooManyRecs, len(recs), h.Options.MaxRecords)
	}
	return nil
}

// batchHandler renders an upload synchronously and answers with the zip.
func (h *Handler) batchHandler(c *gin.Context) {
	var opts batchOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		badRequest(c, err)
		return
	}
	recs, err := h.readRecords(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	recs = records.Filter(recs, opts.filter())
	if err := h.checkRecords(recs); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.pipeline(opts)
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := p.Process(c.Request.Context(), recs, nil, nil)
	if err != nil {
		h.fail(c, err)
		return
	}
	summary, _ := json.Marshal(res)
	c.Header("Content-Disposition", `attachment; filename="cards.zip"`)
	c.Header("X-Batch-Summary", string(summary))
	c.Header("X-Batch-Rendered", strconv.Itoa(len(res.Rendered)))
	c.Header("X-Batch-Skipped", strconv.Itoa(len(res.Skipped)))
	c.Data(http.StatusOK, "application/zip", res.Archive)
}

// Websocket messages. The client opens with a start message, may send a
// cancel message at any time, and receives progress events followed by a
// result event and one binary frame holding the zip.
type socketRequest struct {
	Type    string                   `json:"type"`
	Records []records.UploadedRecord `json:"records,omitempty"`
	CSV     string                   `json:"csv,omitempty"`
	Options batchOptions             `json:"options"`
}

type socketEvent struct {
	Type     string       `json:"type"` // progress, result, canceled, error
	Stage    string       `json:"stage,omitempty"`
	Percent  int          `json:"percent,omitempty"`
	Error    string       `json:"error,omitempty"`
	Rendered []string     `json:"rendered,omitempty"`
	Skipped  []batch.Skip `json:"skipped,omitempty"`
	Size     int          `json:"size,omitempty"`
}

const socketWriteWait = 10 * time.Second

func (h *Handler) batchSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(h.Options.MaxUploadBytes)

	writeJSON := func(ev socketEvent) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	var start socketRequest
	if err := conn.ReadJSON(&start); err != nil || start.Type != "start" {
		writeJSON(socketEvent{Type: "error", Error: "expected start message"})
		return
	}
	recs := start.Records
	if start.CSV != "" {
		if recs, err = records.LoadCSV(strings.NewReader(start.CSV)); err != nil {
			writeJSON(socketEvent{Type: "error", Error: err.Error()})
			return
		}
	}
	recs = records.Filter(recs, start.Options.filter())
	if err := h.checkRecords(recs); err != nil {
		writeJSON(socketEvent{Type: "error", Error: err.Error()})
		return
	}
	p, err := h.pipeline(start.Options)
	if err != nil {
		_, msg := classify(err)
		writeJSON(socketEvent{Type: "error", Error: msg + ": " + err.Error()})
		return
	}

	ctx, stop := context.WithCancel(c.Request.Context())
	defer stop()

	// The reader goroutine only flips the flag; the pipeline polls it once
	// per group. A closed connection cancels the context as well.
	var canceled atomic.Bool
	go func() {
		for {
			var msg socketRequest
			if err := conn.ReadJSON(&msg); err != nil {
				stop()
				return
			}
			if msg.Type == "cancel" {
				canceled.Store(true)
			}
		}
	}()

	progress := func(stage string, pct int) {
		if err := writeJSON(socketEvent{Type: "progress", Stage: stage, Percent: pct}); err != nil {
			stop()
		}
	}
	res, err := p.Process(ctx, recs, canceled.Load, progress)
	switch {
	case errors.Is(err, batch.ErrCanceled):
		writeJSON(socketEvent{Type: "canceled"})
	case err != nil:
		_, msg := classify(err)
		writeJSON(socketEvent{Type: "error", Error: msg})
	default:
		if err := writeJSON(socketEvent{Type: "result", Rendered: res.Rendered, Skipped: res.Skipped, Size: len(res.Archive)}); err != nil {
			return
		}
		conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
		if err := conn.WriteMessage(websocket.BinaryMessage, res.Archive); err != nil {
			h.Logger.Warn("sending archive failed", "error", err)
		}
	}
	conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
