// Command cardgen renders cards from the command line: a single layout
// against a JSON data file, or a whole batch of records into a zip.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/youruser/cardforge/internal/batch"
	"github.com/youruser/cardforge/internal/catalog"
	"github.com/youruser/cardforge/internal/config"
	imagepkg "github.com/youruser/cardforge/internal/image"
	"github.com/youruser/cardforge/internal/layout"
	"github.com/youruser/cardforge/internal/logging"
	"github.com/youruser/cardforge/internal/presets"
	"github.com/youruser/cardforge/internal/records"
	"github.com/youruser/cardforge/internal/render"
	"github.com/youruser/cardforge/internal/tiers"
	"github.com/youruser/cardforge/internal/util"
)

const usage = `usage:
  cardgen render -layout card.json [-data data.json] [-ratings ES=2.1,HARD=Qualified] [-background] -o card.png
  cardgen batch -in records.csv [-mode map|reweight] [-layout card.json] [-offline] -o cards.zip`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(ctx, os.Args[2:])
	case "batch":
		err = runBatch(ctx, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "cardgen:", err)
		os.Exit(1)
	}
}

type common struct {
	configPath string
	out        string
	logger     *slog.Logger
	closer     io.Closer
	cfg        *config.Config
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "optional YAML or TOML config file")
	fs.StringVar(&c.out, "o", "", "output file")
}

func (c *common) setup() error {
	if c.out == "" {
		return fmt.Errorf("-o is required")
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if cfg.Log.File == "" {
		cfg.Log.Format = "text"
	}
	c.cfg = cfg
	c.logger, c.closer = logging.NewLogger(cfg.Log)
	return nil
}

func (c *common) renderer() *render.Renderer {
	images := imagepkg.NewLoader(c.cfg.Render.ImageTimeout, c.cfg.Render.ImageCacheSize)
	return render.New(render.NewFontCache(c.cfg.Render.FontsDir), images, c.logger)
}

func runRender(ctx context.Context, args []string) error {
	var c common
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	c.register(fs)
	layoutPath := fs.String("layout", "", "layout JSON file")
	dataPath := fs.String("data", "", "JSON data object")
	ratingsArg := fs.String("ratings", "", "comma separated TIER=value pairs")
	useBackground := fs.Bool("background", false, "draw the cover background")
	fs.Parse(args)

	if err := c.setup(); err != nil {
		return err
	}
	defer c.closer.Close()
	if *layoutPath == "" {
		return fmt.Errorf("-layout is required")
	}
	cfg, err := layout.LoadFile(*layoutPath)
	if err != nil {
		return err
	}

	data := map[string]any{}
	if *dataPath != "" {
		raw, err := os.ReadFile(*dataPath)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("parsing %s: %w", *dataPath, err)
		}
	}

	out, err := c.renderer().RenderCard(ctx, cfg, data, parseRatings(*ratingsArg), *useBackground)
	if err != nil {
		return err
	}
	return util.WriteFile(c.out, out)
}

func parseRatings(s string) tiers.Ratings {
	m := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if ok {
			m[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return tiers.ParseKeyed(m)
}

func runBatch(ctx context.Context, args []string) error {
	var c common
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	c.register(fs)
	in := fs.String("in", "", "records file (.csv or .json)")
	mode := fs.String("mode", presets.ModeMap, "card kind: map or reweight")
	layoutPath := fs.String("layout", "", "render every group with this layout file")
	useBackground := fs.Bool("background", true, "draw the cover background")
	qr := fs.Bool("qr", false, "add a QR code to map cards")
	offline := fs.Bool("offline", false, "skip catalog lookups and use uploaded names")
	skipUnranked := fs.Bool("skip-unranked", false, "drop unranked records")
	fs.Parse(args)

	if err := c.setup(); err != nil {
		return err
	}
	defer c.closer.Close()
	if *in == "" {
		return fmt.Errorf("-in is required")
	}
	recs, err := records.LoadFile(*in)
	if err != nil {
		return err
	}
	recs = records.Filter(recs, records.FilterOptions{SkipUnranked: *skipUnranked})

	opts := presets.GroupOptions{Mode: *mode, UseBackground: *useBackground, QR: *qr}
	if *layoutPath != "" {
		if opts.Layout, err = layout.LoadFile(*layoutPath); err != nil {
			return err
		}
		opts.Mode = presets.ModeLayout
	}
	renderFn, err := presets.GroupRenderer(c.renderer(), opts)
	if err != nil {
		return err
	}

	p := &batch.Pipeline{
		Render:     renderFn,
		RetryDelay: c.cfg.Batch.RetryDelay,
		MaxRetries: c.cfg.Batch.MaxRetries,
		Logger:     c.logger,
	}
	if !*offline {
		p.Lookup = catalog.NewMetadataClient(c.cfg.Catalog.BaseURL, c.cfg.Catalog.PageURL, c.cfg.Catalog.Timeout, c.cfg.Catalog.RetryMax)
	}

	last := -1
	res, err := p.Process(ctx, recs, nil, func(stage string, pct int) {
		if stage == batch.StageProcessing && pct != last {
			last = pct
			fmt.Fprintf(os.Stderr, "\r%3d%%", pct)
		}
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	if err := util.WriteFile(c.out, res.Archive); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d cards written to %s, %d skipped\n", len(res.Rendered), c.out, len(res.Skipped))
	for _, s := range res.Skipped {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", s.Hash, s.Reason)
	}
	return nil
}
