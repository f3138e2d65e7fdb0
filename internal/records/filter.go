package records

import (
	"strings"

	"github.com/youruser/cardforge/internal/tiers"
)

type FilterOptions struct {
	Tiers        []tiers.Tier
	Hashes       []string
	SkipUnranked bool // drop records whose rating is Unranked or blank
}

// Filter returns the records matching every non-empty option, in input order.
func Filter(recs []UploadedRecord, opt FilterOptions) []UploadedRecord {
	var out []UploadedRecord
	for _, r := range recs {
		if len(opt.Tiers) > 0 {
			matched := false
			for _, t := range opt.Tiers {
				if r.TierKey() == t {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if len(opt.Hashes) > 0 {
			matched := false
			for _, h := range opt.Hashes {
				if strings.EqualFold(r.ContentHash, strings.TrimSpace(h)) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if opt.SkipUnranked && (r.Rating == "" || r.Rating == tiers.Unranked) {
			continue
		}
		out = append(out, r)
	}
	return out
}
