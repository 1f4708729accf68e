package features

import (
	"math"
	"strconv"
	"strings"
)

// Stance codes. Anything that is not a known stance, including an empty
// value, maps to StanceOther.
const (
	StanceOrthodox = 4
	StanceSouthpaw = 3
	StanceSwitch   = 2
	StanceOther    = 1
)

// NormalizeStance trims surrounding whitespace. The public dataset contains
// "Switch " for a handful of fighters.
func NormalizeStance(raw string) string {
	return strings.TrimSpace(raw)
}

// EncodeStance maps a normalized stance label to its ordinal code. The
// comparison is case-sensitive.
func EncodeStance(stance string) float64 {
	switch stance {
	case "Orthodox":
		return StanceOrthodox
	case "Southpaw":
		return StanceSouthpaw
	case "Switch":
		return StanceSwitch
	default:
		return StanceOther
	}
}

// EncodeBetterRank maps the better-ranked corner to -1 (red), +1 (blue) or 0.
func EncodeBetterRank(rank string) float64 {
	switch rank {
	case "Red":
		return -1
	case "Blue":
		return 1
	default:
		return 0
	}
}

// EncodeTitleBout maps a truthy flag to 1 and anything else, including a
// missing value, to 0.
func EncodeTitleBout(raw string) float64 {
	s := strings.TrimSpace(raw)
	if b, err := strconv.ParseBool(s); err == nil {
		if b {
			return 1
		}
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && f != 0 {
		return 1
	}
	return 0
}
