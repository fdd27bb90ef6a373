package monitor

import (
	"testing"

	"restockwatch/internal/product"

	"github.com/stretchr/testify/require"
)

func TestTrackerFilter(t *testing.T) {
	record := product.NewRecord("tee", "Tee", "test", []product.ColorVariant{
		{ID: "101", Label: "Midnight Blue"},
		{ID: "102", Label: "Navy"},
		{ID: "103", Label: "Blue"},
		{ID: "104", Label: "Forest Green"},
	})

	table := []struct {
		name      string
		entries   []string
		kept      []product.VariantID
		unmatched []string
	}{
		{name: "empty tracks everything", entries: nil, kept: []product.VariantID{"101", "102", "103", "104"}},
		{name: "blank entries are ignored", entries: []string{" ", ""}, kept: []product.VariantID{"101", "102", "103", "104"}},
		{name: "by id", entries: []string{"102"}, kept: []product.VariantID{"102"}},
		{name: "by label", entries: []string{"forest green"}, kept: []product.VariantID{"104"}},
		{name: "fuzzy label", entries: []string{"Midnight-Blue"}, kept: []product.VariantID{"101"}},
		{name: "fuzzy is not loose", entries: []string{"Blue"}, kept: []product.VariantID{"103"}},
		{
			name:      "unmatched",
			entries:   []string{"Crimson", "102"},
			kept:      []product.VariantID{"102"},
			unmatched: []string{"Crimson"},
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			filtered, unmatched := NewTracker(row.entries).Filter(record)
			var kept []product.VariantID
			for _, v := range filtered.Variants {
				kept = append(kept, v.ID)
			}
			require.Equal(t, row.kept, kept)
			require.Equal(t, row.unmatched, unmatched)
		})
	}
}

func TestTrackerExactMatchWinsOverFuzzy(t *testing.T) {
	record := product.NewRecord("tee", "Tee", "test", []product.ColorVariant{
		{ID: "1", Label: "Black"},
		{ID: "2", Label: "Black Camo"},
		{ID: "3", Label: "Green"},
		{ID: "4", Label: "Greenery"},
	})

	table := []struct {
		entry string
		kept  []product.VariantID
	}{
		{entry: "Black", kept: []product.VariantID{"1"}},
		{entry: "green", kept: []product.VariantID{"3"}},
		{entry: "4", kept: []product.VariantID{"4"}},
	}
	for _, row := range table {
		filtered, unmatched := NewTracker([]string{row.entry}).Filter(record)
		var kept []product.VariantID
		for _, v := range filtered.Variants {
			kept = append(kept, v.ID)
		}
		require.Equal(t, row.kept, kept, row.entry)
		require.Empty(t, unmatched)
	}
}
