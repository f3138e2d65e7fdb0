package batch

import (
	"github.com/youruser/cardforge/internal/records"
	"github.com/youruser/cardforge/internal/tiers"
)

// Group is every record of one content hash, merged.
type Group struct {
	Hash        string
	DisplayName string
	SubName     string
	AuthorName  string
	Ratings     tiers.Ratings
	OldRatings  tiers.Ratings
	Records     int
}

// Data returns the group's uploaded fields as render data. Catalog metadata
// normally replaces these.
func (g *Group) Data() map[string]any {
	return map[string]any{
		"contentHash": g.Hash,
		"displayName": g.DisplayName,
		"subName":     g.SubName,
		"authorName":  g.AuthorName,
	}
}

// TierCodes returns the codes of the tiers present in the group, ascending.
func (g *Group) TierCodes() []int {
	return g.Ratings.Codes()
}

// Groups merges records by content hash. Groups come out in first-seen
// order; within a group a later record for the same tier wins.
func Groups(recs []records.UploadedRecord) []Group {
	index := map[string]int{}
	var out []Group
	for _, r := range recs {
		i, ok := index[r.ContentHash]
		if !ok {
			i = len(out)
			index[r.ContentHash] = i
			out = append(out, Group{
				Hash:       r.ContentHash,
				Ratings:    tiers.Ratings{},
				OldRatings: tiers.Ratings{},
			})
		}
		g := &out[i]
		g.Records++
		if g.DisplayName == "" {
			g.DisplayName = r.DisplayName
		}
		if g.SubName == "" {
			g.SubName = r.SubName
		}
		if g.AuthorName == "" {
			g.AuthorName = r.AuthorName
		}
		t := r.TierKey()
		g.Ratings.Set(t, r.Rating)
		g.OldRatings.Set(t, r.OldRating)
	}
	return out
}
