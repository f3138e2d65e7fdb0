package records

import "github.com/youruser/cardforge/internal/tiers"

// UploadedRecord is one row of batch input: one difficulty tier of one map.
// Several records may share a ContentHash.
type UploadedRecord struct {
	ContentHash string `json:"contentHash"`
	DisplayName string `json:"displayName"`
	SubName     string `json:"subName"`
	AuthorName  string `json:"authorName"`
	Tier        int    `json:"tier"` // numeric code, see tiers.FromCode
	Rating      string `json:"rating"`
	OldRating   string `json:"oldRating,omitempty"`
}

// TierKey is the canonical tier of the record's code.
func (r UploadedRecord) TierKey() tiers.Tier {
	return tiers.FromCode(r.Tier)
}
