// Package batch renders one card per distinct content hash of an upload and
// packs the results into a zip archive.
//
// Groups are processed strictly one after another so the metadata service
// sees at most one request at a time. Cancellation is checked once per
// group; a canceled run returns ErrCanceled and no archive.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/youruser/cardforge/internal/archive"
	"github.com/youruser/cardforge/internal/catalog"
	"github.com/youruser/cardforge/internal/metrics"
	"github.com/youruser/cardforge/internal/records"
)

const (
	DefaultRetryDelay = 1500 * time.Millisecond
	DefaultMaxRetries = 20
)

// Progress stages.
const (
	StageProcessing = "processing"
	StagePacking    = "packing"
	StageDone       = "done"
)

// ErrCanceled is returned when the run was canceled before it finished.
var ErrCanceled = errors.New("batch canceled")

// MetadataLookup resolves a content hash to catalog metadata.
type MetadataLookup interface {
	Metadata(ctx context.Context, hash string) (*catalog.Metadata, error)
}

// RenderFunc renders the card of one group.
type RenderFunc func(ctx context.Context, meta *catalog.Metadata, g *Group) ([]byte, error)

// ProgressFunc receives a stage label and a percentage in [0, 100].
type ProgressFunc func(stage string, pct int)

// Skip records a group that produced no card.
type Skip struct {
	Hash   string `json:"hash"`
	Reason string `json:"reason"`
}

// Result of a finished run.
type Result struct {
	Archive  []byte   `json:"-"`
	Rendered []string `json:"rendered"`
	Skipped  []Skip   `json:"skipped"`
	Records  int      `json:"records"`
	Groups   int      `json:"groups"`
}

// Pipeline holds the collaborators of a batch run. The zero values of
// RetryDelay and MaxRetries select the defaults; a negative MaxRetries
// retries without limit.
type Pipeline struct {
	Lookup     MetadataLookup
	Render     RenderFunc
	RetryDelay time.Duration
	MaxRetries int
	Logger     *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// Process runs the batch. cancel and progress may be nil.
func (p *Pipeline) Process(ctx context.Context, recs []records.UploadedRecord, cancel func() bool, progress ProgressFunc) (*Result, error) {
	if p.Render == nil {
		return nil, fmt.Errorf("batch: no render function")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if progress == nil {
		progress = func(string, int) {}
	}

	groups := Groups(recs)
	res := &Result{Records: len(recs), Groups: len(groups)}
	zip := archive.New()

	for i := range groups {
		if ctx.Err() != nil || (cancel != nil && cancel()) {
			logger.Info("batch canceled", "done", i, "total", len(groups))
			return nil, ErrCanceled
		}
		g := &groups[i]

		name, err := p.processGroup(ctx, g, zip)
		switch {
		case errors.Is(err, ErrCanceled):
			logger.Info("batch canceled", "done", i, "total", len(groups))
			return nil, ErrCanceled
		case err != nil:
			logger.Warn("skipping group", "hash", g.Hash, "error", err)
			res.Skipped = append(res.Skipped, Skip{Hash: g.Hash, Reason: err.Error()})
		default:
			res.Rendered = append(res.Rendered, name)
			metrics.BatchGroups.WithLabelValues("rendered").Inc()
		}
		progress(StageProcessing, percent(i+1, len(groups)))
	}

	progress(StagePacking, 100)
	data, err := zip.Bytes()
	if err != nil {
		return nil, fmt.Errorf("packing archive: %w", err)
	}
	res.Archive = data
	logger.Info("batch finished", "groups", len(groups), "rendered", len(res.Rendered), "skipped", len(res.Skipped))
	progress(StageDone, 100)
	return res, nil
}

func (p *Pipeline) processGroup(ctx context.Context, g *Group, zip *archive.Archive) (string, error) {
	meta, err := p.lookup(ctx, g)
	if err != nil {
		if !errors.Is(err, ErrCanceled) {
			metrics.BatchGroups.WithLabelValues("lookup_failed").Inc()
		}
		return "", err
	}
	png, err := p.Render(ctx, meta, g)
	if err != nil {
		metrics.BatchGroups.WithLabelValues("render_failed").Inc()
		return "", fmt.Errorf("render: %w", err)
	}
	name := archive.FileName(meta.DisplayName, meta.ID, g.TierCodes(), zip.Has)
	if err := zip.Add(name, png); err != nil {
		return "", err
	}
	return name, nil
}

// lookup resolves metadata, waiting out rate limits with a fixed delay.
func (p *Pipeline) lookup(ctx context.Context, g *Group) (*catalog.Metadata, error) {
	if p.Lookup == nil {
		return fallbackMetadata(g), nil
	}
	delay := p.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	maxRetries := p.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for attempt := 0; ; attempt++ {
		meta, err := p.Lookup.Metadata(ctx, g.Hash)
		if err == nil && meta == nil {
			return nil, fmt.Errorf("metadata lookup: empty result: %w", catalog.ErrNotFound)
		}
		if err == nil {
			if meta.DisplayName == "" {
				meta.DisplayName = g.DisplayName
			}
			return meta, nil
		}
		if ctx.Err() != nil {
			return nil, ErrCanceled
		}
		if !errors.Is(err, catalog.ErrRateLimited) {
			return nil, fmt.Errorf("metadata lookup: %w", err)
		}
		if maxRetries > 0 && attempt >= maxRetries {
			return nil, fmt.Errorf("metadata lookup: gave up after %d retries: %w", attempt, err)
		}
		metrics.RateLimitRetries.Inc()
		if err := sleep(ctx, delay); err != nil {
			return nil, ErrCanceled
		}
	}
}

// fallbackMetadata builds metadata from the uploaded fields alone.
func fallbackMetadata(g *Group) *catalog.Metadata {
	return &catalog.Metadata{
		DisplayName: g.DisplayName,
		SubName:     g.SubName,
		AuthorName:  g.AuthorName,
		ContentHash: g.Hash,
	}
}

func percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
