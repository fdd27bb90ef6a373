package monitor

import (
	"strings"

	"restockwatch/internal/product"
	"restockwatch/lib/textutil"

	"github.com/antzucaro/matchr"
)

// labels closer than this are considered the same color, it tolerates
// "Midnight Blue" vs "Midnight-Blue" but not "Blue" vs "Navy Blue".
const fuzzyLabelThreshold = 0.9

// Tracker decides which variants are watched. An empty tracker watches everything.
type Tracker struct {
	entries []string
}

func NewTracker(entries []string) Tracker {
	var cleaned []string
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e != "" {
			cleaned = append(cleaned, e)
		}
	}
	return Tracker{entries: cleaned}
}

func (t Tracker) All() bool {
	return len(t.entries) == 0
}

func (t Tracker) Entries() []string {
	return t.entries
}

func exactMatch(entry string, v product.ColorVariant) bool {
	return entry == string(v.ID) || strings.EqualFold(entry, v.Label)
}

func fuzzyMatch(entry string, v product.ColorVariant) bool {
	a := textutil.NormalizeKey(entry)
	b := textutil.NormalizeKey(v.Label)
	if a == "" || b == "" {
		return false
	}
	return matchr.JaroWinkler(a, b, false) >= fuzzyLabelThreshold
}

// Filter returns the record restricted to tracked variants and the entries that
// matched none of them. An entry only falls back to fuzzy label matching when no
// variant matches it by id or label, "Black" never pulls in "Black Camo" next
// to an actual "Black".
func (t Tracker) Filter(record product.Record) (product.Record, []string) {
	if t.All() {
		return record, nil
	}

	tracked := make([]bool, len(record.Variants))
	var unmatched []string
	for _, entry := range t.entries {
		found := false
		for i, v := range record.Variants {
			if exactMatch(entry, v) {
				tracked[i] = true
				found = true
			}
		}
		if !found {
			for i, v := range record.Variants {
				if fuzzyMatch(entry, v) {
					tracked[i] = true
					found = true
				}
			}
		}
		if !found {
			unmatched = append(unmatched, entry)
		}
	}

	var kept []product.ColorVariant
	for i, v := range record.Variants {
		if tracked[i] {
			kept = append(kept, v)
		}
	}
	return record.WithVariants(kept), unmatched
}
