// Package records reads batch input files.
package records

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/youruser/cardforge/internal/tiers"
)

// ErrUnsupportedFormat is returned by LoadFile for unknown extensions.
var ErrUnsupportedFormat = errors.New("unsupported record format")

// header aliases, matched case-insensitively
var columns = map[string][]string{
	"hash":      {"contenthash", "hash", "content_hash"},
	"name":      {"displayname", "name", "songname", "display_name"},
	"sub":       {"subname", "sub_name", "songsubname"},
	"author":    {"authorname", "author", "author_name", "songauthorname"},
	"tier":      {"tier", "difficulty", "diff"},
	"rating":    {"rating", "stars", "newrating", "new_rating"},
	"oldRating": {"oldrating", "old_rating", "oldstars"},
}

// LoadFile loads records from a .csv or .json file.
func LoadFile(path string) ([]UploadedRecord, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	var out []UploadedRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		out, err = LoadCSV(fp)
	case ".json":
		out, err = LoadJSON(fp)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return out, nil
}

// LoadCSV reads records from CSV with a header row. Rows without a content
// hash are dropped.
func LoadCSV(r io.Reader) ([]UploadedRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, errors.New("csv has no header")
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		for field, aliases := range columns {
			for _, a := range aliases {
				if h == a {
					if _, seen := cols[field]; !seen {
						cols[field] = i
					}
				}
			}
		}
	}
	if _, ok := cols["hash"]; !ok {
		return nil, errors.New("csv has no content hash column")
	}

	get := func(row []string, name string) string {
		if idx, ok := cols[name]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	out := []UploadedRecord{}
	for _, row := range rows[1:] {
		rec := UploadedRecord{
			ContentHash: normalizeHash(get(row, "hash")),
			DisplayName: get(row, "name"),
			SubName:     get(row, "sub"),
			AuthorName:  get(row, "author"),
			Tier:        parseTier(get(row, "tier")),
			Rating:      get(row, "rating"),
			OldRating:   get(row, "oldRating"),
		}
		if rec.ContentHash == "" {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// LoadJSON reads a JSON array of records. The tier may be given as a code or
// as a tier key.
func LoadJSON(r io.Reader) ([]UploadedRecord, error) {
	var raw []struct {
		UploadedRecord
		Tier   json.RawMessage `json:"tier"`
		Rating json.RawMessage `json:"rating"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]UploadedRecord, 0, len(raw))
	for _, item := range raw {
		rec := item.UploadedRecord
		rec.ContentHash = normalizeHash(rec.ContentHash)
		if rec.ContentHash == "" {
			continue
		}
		rec.Tier = parseTier(unquote(item.Tier))
		rec.Rating = unquote(item.Rating)
		out = append(out, rec)
	}
	return out, nil
}

func normalizeHash(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// parseTier accepts a numeric code or a canonical or legacy tier key.
func parseTier(s string) int {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	if t, ok := tiers.FromKey(strings.ToUpper(s)); ok {
		return t.Code()
	}
	if t, ok := tiers.FromLegacyKey(strings.ToUpper(s)); ok {
		return t.Code()
	}
	return tiers.ES.Code()
}

// unquote turns a JSON string or number into its text.
func unquote(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}
