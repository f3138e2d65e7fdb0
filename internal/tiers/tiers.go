// Package tiers defines the five difficulty tiers a catalog item can be rated
// for, and the conversions between tier codes, canonical keys and the legacy
// key scheme still used by reweight exports.
package tiers

import (
	"sort"
	"strings"
)

// Tier is one of the five canonical difficulty tiers, in ascending order.
type Tier int

const (
	ES Tier = iota
	NOR
	HARD
	EX
	EXP
)

// All lists the tiers in display order.
var All = []Tier{ES, NOR, HARD, EX, EXP}

var keys = [...]string{"ES", "NOR", "HARD", "EX", "EXP"}

// legacyKeys is the older naming where the top two tiers were EXP and EXP_PLUS.
var legacyKeys = [...]string{"ES", "NOR", "HARD", "EXP", "EXP_PLUS"}

// codes are the numeric difficulty codes used by the rating service.
var codes = [...]int{1, 3, 5, 7, 9}

// labels are the human-readable names drawn on cards.
var labels = [...]string{"Easy", "Normal", "Hard", "Expert", "Expert+"}

// Key returns the canonical key (ES, NOR, HARD, EX, EXP).
func (t Tier) Key() string {
	if t < ES || t > EXP {
		return keys[ES]
	}
	return keys[t]
}

// LegacyKey returns the key in the legacy ES..EXP_PLUS scheme.
func (t Tier) LegacyKey() string {
	if t < ES || t > EXP {
		return legacyKeys[ES]
	}
	return legacyKeys[t]
}

// Code returns the numeric difficulty code (1, 3, 5, 7, 9).
func (t Tier) Code() int {
	if t < ES || t > EXP {
		return codes[ES]
	}
	return codes[t]
}

// Label returns the display label.
func (t Tier) Label() string {
	if t < ES || t > EXP {
		return labels[ES]
	}
	return labels[t]
}

func (t Tier) String() string { return t.Key() }

// FromCode maps a difficulty code to its tier. Unrecognized codes fall into
// the lowest bucket.
func FromCode(code int) Tier {
	for i, c := range codes {
		if c == code {
			return Tier(i)
		}
	}
	return ES
}

// FromKey parses a canonical key, case-insensitively.
func FromKey(key string) (Tier, bool) {
	key = strings.ToUpper(strings.TrimSpace(key))
	for i, k := range keys {
		if k == key {
			return Tier(i), true
		}
	}
	return ES, false
}

// FromLegacyKey parses a key from the legacy scheme. Note that "EXP" means
// the fourth tier here, not the fifth.
func FromLegacyKey(key string) (Tier, bool) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "EXP+" {
		key = "EXP_PLUS"
	}
	for i, k := range legacyKeys {
		if k == key {
			return Tier(i), true
		}
	}
	return ES, false
}

// Ratings holds one rating string per tier. Missing tiers are unrated.
type Ratings map[Tier]string

// Set stores v for t, ignoring blank values.
func (r Ratings) Set(t Tier, v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	r[t] = v
}

// Map returns a template-friendly map keyed by canonical key. Every tier is
// present; unrated tiers are empty strings.
func (r Ratings) Map() map[string]any {
	out := make(map[string]any, len(All))
	for _, t := range All {
		out[t.Key()] = r[t]
	}
	return out
}

// LegacyMap is Map keyed by the legacy scheme.
func (r Ratings) LegacyMap() map[string]any {
	out := make(map[string]any, len(All))
	for _, t := range All {
		out[t.LegacyKey()] = r[t]
	}
	return out
}

// Codes returns the difficulty codes of the rated tiers in ascending order.
func (r Ratings) Codes() []int {
	out := make([]int, 0, len(r))
	for t, v := range r {
		if v != "" {
			out = append(out, t.Code())
		}
	}
	sort.Ints(out)
	return out
}

// ConvertLegacy converts a legacy-keyed map into canonical Ratings. Unknown
// keys are dropped.
func ConvertLegacy(m map[string]string) Ratings {
	out := Ratings{}
	for k, v := range m {
		if t, ok := FromLegacyKey(k); ok {
			out.Set(t, v)
		}
	}
	return out
}

// ParseKeyed converts a canonical-keyed map into Ratings. Unknown keys are
// dropped.
func ParseKeyed(m map[string]string) Ratings {
	out := Ratings{}
	for k, v := range m {
		if t, ok := FromKey(k); ok {
			out.Set(t, v)
		}
	}
	return out
}

// Colors are the default pill colours per tier.
var Colors = map[Tier]string{
	ES:   "#3cb371",
	NOR:  "#59b0f4",
	HARD: "#ff6347",
	EX:   "#bf2a42",
	EXP:  "#8f48db",
}

// Special rating values that are not numeric star ratings.
const (
	Unranked  = "Unranked"
	Qualified = "Qualified"
)

// IsSpecial reports whether v is one of the non-numeric rating values.
func IsSpecial(v string) bool {
	return v == Unranked || v == Qualified
}
