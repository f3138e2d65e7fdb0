package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/youruser/cardforge/internal/tiers"
	"github.com/youruser/cardforge/internal/util"
)

// RatingClient reads per-tier star ratings from a ScoreSaber-compatible
// leaderboard API.
type RatingClient struct {
	baseURL  string
	gameMode string
	client   *retryablehttp.Client
	logger   *slog.Logger
}

// NewRatingClient creates a client for baseURL (e.g.
// "https://scoresaber.com/api").
func NewRatingClient(baseURL string, timeout time.Duration, retryMax int, logger *slog.Logger) *RatingClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &RatingClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		gameMode: "SoloStandard",
		client:   util.NewClient(timeout, retryMax),
		logger:   logger,
	}
}

type leaderboardInfo struct {
	Stars     float64 `json:"stars"`
	Ranked    bool    `json:"ranked"`
	Qualified bool    `json:"qualified"`
}

// FormatRating renders a leaderboard's state the way cards display it.
func FormatRating(stars float64, ranked, qualified bool) string {
	switch {
	case ranked:
		return strconv.FormatFloat(stars, 'f', 2, 64)
	case qualified:
		return tiers.Qualified
	default:
		return tiers.Unranked
	}
}

// Tiers fetches the rating of every tier, one request each. A tier whose
// request fails is left out; only cancellation of ctx is an error.
func (c *RatingClient) Tiers(ctx context.Context, hash string) (tiers.Ratings, error) {
	out := tiers.Ratings{}
	for _, t := range tiers.All {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := c.Tier(ctx, hash, t)
		if err != nil {
			c.logger.Debug("rating lookup failed", "hash", hash, "tier", t.Key(), "error", err)
			continue
		}
		out.Set(t, v)
	}
	return out, nil
}

// Tier fetches the rating of a single tier.
func (c *RatingClient) Tier(ctx context.Context, hash string, t tiers.Tier) (string, error) {
	q := url.Values{}
	q.Set("difficulty", strconv.Itoa(t.Code()))
	q.Set("gameMode", c.gameMode)
	u := fmt.Sprintf("%s/leaderboard/by-hash/%s/info?%s", c.baseURL, url.PathEscape(strings.ToUpper(hash)), q.Encode())

	var info leaderboardInfo
	if err := util.GetJSON(ctx, c.client, u, &info); err != nil {
		return "", classify(err)
	}
	return FormatRating(info.Stars, info.Ranked, info.Qualified), nil
}
