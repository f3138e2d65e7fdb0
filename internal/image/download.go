package imagepkg

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/youruser/cardforge/internal/util"
)

// maxImageBytes bounds a single download.
const maxImageBytes = 20 << 20

// ErrUnsupportedSource is returned for sources that are neither URLs nor
// readable files.
var ErrUnsupportedSource = errors.New("unsupported image source")

// Loader fetches and decodes images from http(s) URLs, data URLs and local
// paths. Decoded images are cached by source string; cached images are
// shared and must not be modified.
type Loader struct {
	client *retryablehttp.Client

	mu    sync.Mutex
	cache map[string]image.Image
	order []string
	limit int
}

// NewLoader creates a Loader whose HTTP requests time out after timeout and
// which keeps at most cacheSize decoded images.
func NewLoader(timeout time.Duration, cacheSize int) *Loader {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = nil
	return &Loader{client: client, cache: map[string]image.Image{}, limit: cacheSize}
}

// Load returns the decoded image at src.
func (l *Loader) Load(ctx context.Context, src string) (image.Image, error) {
	if img, ok := l.cached(src); ok {
		return img, nil
	}

	var (
		body []byte
		err  error
	)
	switch {
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		body, err = l.download(ctx, src)
	case strings.HasPrefix(src, "data:"):
		body, err = decodeDataURL(src)
	case src != "":
		body, err = os.ReadFile(src)
	default:
		err = ErrUnsupportedSource
	}
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(body), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", shorten(src), err)
	}
	l.store(src, img)
	return img, nil
}

// download fetches the raw bytes at url.
func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", util.UserAgent)
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return body, nil
}

func decodeDataURL(src string) ([]byte, error) {
	comma := strings.IndexByte(src, ',')
	if comma < 0 || !strings.HasSuffix(src[:comma], ";base64") {
		return nil, fmt.Errorf("%w: data URL must be base64", ErrUnsupportedSource)
	}
	return base64.StdEncoding.DecodeString(src[comma+1:])
}

func (l *Loader) cached(src string) (image.Image, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	img, ok := l.cache[src]
	return img, ok
}

// store inserts img and evicts the oldest entries past the limit.
func (l *Loader) store(src string, img image.Image) {
	if l.limit <= 0 || strings.HasPrefix(src, "data:") {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.cache[src]; ok {
		return
	}
	l.cache[src] = img
	l.order = append(l.order, src)
	for len(l.order) > l.limit {
		delete(l.cache, l.order[0])
		l.order = l.order[1:]
	}
}

func shorten(src string) string {
	if len(src) > 64 {
		return src[:61] + "..."
	}
	return src
}
