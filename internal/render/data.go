package render

import (
	"fmt"
	"math"

	"github.com/youruser/cardforge/internal/tiers"
)

// Keys injected into the render data.
const (
	KeyStarRatings       = "starRatings"
	KeyLegacyStarRatings = "legacyStarRatings"
	KeyUseBackground     = "useBackground"
	KeyDurationFormatted = "durationFormatted"
)

// BuildData returns a shallow copy of data with the rating map, background
// flag and formatted duration added. The caller's map is not modified.
func BuildData(data map[string]any, ratings tiers.Ratings, useBackground bool) map[string]any {
	out := make(map[string]any, len(data)+4)
	for k, v := range data {
		out[k] = v
	}
	if ratings == nil {
		ratings = tiers.Ratings{}
	}
	out[KeyStarRatings] = ratings.Map()
	out[KeyLegacyStarRatings] = ratings.LegacyMap()
	out[KeyUseBackground] = useBackground
	if secs, ok := durationSeconds(data); ok {
		out[KeyDurationFormatted] = FormatDuration(secs)
	}
	return out
}

func durationSeconds(data map[string]any) (float64, bool) {
	for _, key := range []string{"durationSeconds", "duration"} {
		switch v := data[key].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		}
	}
	return 0, false
}

// FormatDuration renders seconds as m:ss, or h:mm:ss from one hour up.
func FormatDuration(secs float64) string {
	if secs < 0 || math.IsNaN(secs) {
		secs = 0
	}
	total := int(math.Round(secs))
	h, m, s := total/3600, total/60%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
