package tiers

import (
	"reflect"
	"testing"
)

func TestFromCode(t *testing.T) {
	tests := []struct {
		code int
		want Tier
	}{
		{1, ES},
		{3, NOR},
		{5, HARD},
		{7, EX},
		{9, EXP},
		{0, ES},
		{4, ES},
		{42, ES},
	}
	for _, tt := range tests {
		if got := FromCode(tt.code); got != tt.want {
			t.Errorf("FromCode(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestLegacyKeysShiftTopTiers(t *testing.T) {
	tier, ok := FromLegacyKey("EXP")
	if !ok || tier != EX {
		t.Errorf("FromLegacyKey(EXP) = %v, %v; want EX, true", tier, ok)
	}
	tier, ok = FromLegacyKey("EXP_PLUS")
	if !ok || tier != EXP {
		t.Errorf("FromLegacyKey(EXP_PLUS) = %v, %v; want EXP, true", tier, ok)
	}
	tier, ok = FromLegacyKey("exp+")
	if !ok || tier != EXP {
		t.Errorf("FromLegacyKey(exp+) = %v, %v; want EXP, true", tier, ok)
	}
	if EXP.LegacyKey() != "EXP_PLUS" {
		t.Errorf("EXP.LegacyKey() = %q", EXP.LegacyKey())
	}
}

func TestConvertLegacy(t *testing.T) {
	got := ConvertLegacy(map[string]string{
		"ES":       "1.5",
		"EXP":      "8.1",
		"EXP_PLUS": "Qualified",
		"BOGUS":    "3",
		"HARD":     "  ",
	})
	want := Ratings{ES: "1.5", EX: "8.1", EXP: "Qualified"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ConvertLegacy() = %v, want %v", got, want)
	}
}

func TestRatingsMap(t *testing.T) {
	r := Ratings{ES: "2.1", HARD: "Qualified"}
	m := r.Map()
	if len(m) != 5 {
		t.Fatalf("len(Map()) = %d, want 5", len(m))
	}
	if m["ES"] != "2.1" || m["NOR"] != "" || m["HARD"] != "Qualified" {
		t.Errorf("Map() = %v", m)
	}
	if got := r.Codes(); !reflect.DeepEqual(got, []int{1, 5}) {
		t.Errorf("Codes() = %v, want [1 5]", got)
	}
}
