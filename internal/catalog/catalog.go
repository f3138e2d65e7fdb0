// Package catalog talks to the two upstream services: the map catalog, which
// resolves a content hash to metadata, and the rating service, which holds
// per-tier star ratings.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/youruser/cardforge/internal/util"
)

var (
	// ErrRateLimited means the upstream answered 429; the call may be retried.
	ErrRateLimited = errors.New("upstream rate limited")
	// ErrNotFound means the upstream has no entry for the hash.
	ErrNotFound = errors.New("not found upstream")
	// ErrUnavailable wraps every other upstream failure.
	ErrUnavailable = errors.New("upstream unavailable")
)

// Metadata is the catalog entry for one map version. The JSON names are the
// keys layouts reference in templates.
type Metadata struct {
	ID              string  `json:"id"`
	DisplayName     string  `json:"displayName"`
	SubName         string  `json:"subName"`
	AuthorName      string  `json:"authorName"`
	LevelAuthor     string  `json:"levelAuthor"`
	DurationSeconds float64 `json:"durationSeconds"`
	CoverImageURL   string  `json:"coverImageUrl"`
	ContentHash     string  `json:"contentHash"`
	PageURL         string  `json:"pageUrl"`
}

// Data returns the metadata as a render data object.
func (m *Metadata) Data() map[string]any {
	return map[string]any{
		"id":              m.ID,
		"displayName":     m.DisplayName,
		"subName":         m.SubName,
		"authorName":      m.AuthorName,
		"levelAuthor":     m.LevelAuthor,
		"durationSeconds": m.DurationSeconds,
		"coverImageUrl":   m.CoverImageURL,
		"contentHash":     m.ContentHash,
		"pageUrl":         m.PageURL,
	}
}

// MetadataClient resolves content hashes against a BeatSaver-compatible
// catalog API.
type MetadataClient struct {
	baseURL  string
	pageBase string
	client   *retryablehttp.Client
}

// NewMetadataClient creates a client for baseURL (e.g.
// "https://api.beatsaver.com"). pageBase, when set, is used to build
// Metadata.PageURL as pageBase + "/" + id.
func NewMetadataClient(baseURL, pageBase string, timeout time.Duration, retryMax int) *MetadataClient {
	return &MetadataClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageBase: strings.TrimRight(pageBase, "/"),
		client:   util.NewClient(timeout, retryMax),
	}
}

type mapResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Metadata struct {
		Duration        float64 `json:"duration"`
		SongName        string  `json:"songName"`
		SongSubName     string  `json:"songSubName"`
		SongAuthorName  string  `json:"songAuthorName"`
		LevelAuthorName string  `json:"levelAuthorName"`
	} `json:"metadata"`
	Versions []struct {
		Hash     string `json:"hash"`
		CoverURL string `json:"coverURL"`
	} `json:"versions"`
}

// Metadata looks up the map version with the given content hash.
func (c *MetadataClient) Metadata(ctx context.Context, hash string) (*Metadata, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	u := c.baseURL + "/maps/hash/" + url.PathEscape(hash)

	var resp mapResponse
	if err := util.GetJSON(ctx, c.client, u, &resp); err != nil {
		return nil, classify(err)
	}

	m := &Metadata{
		ID:              resp.ID,
		DisplayName:     resp.Metadata.SongName,
		SubName:         resp.Metadata.SongSubName,
		AuthorName:      resp.Metadata.SongAuthorName,
		LevelAuthor:     resp.Metadata.LevelAuthorName,
		DurationSeconds: resp.Metadata.Duration,
		ContentHash:     hash,
	}
	if m.DisplayName == "" {
		m.DisplayName = resp.Name
	}
	for i, v := range resp.Versions {
		if i == 0 || strings.EqualFold(v.Hash, hash) {
			m.CoverImageURL = v.CoverURL
		}
	}
	if c.pageBase != "" && m.ID != "" {
		m.PageURL = c.pageBase + "/" + m.ID
	}
	return m, nil
}

// classify maps transport and status errors onto the package sentinels.
func classify(err error) error {
	var se *util.StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
