package restock

import (
	"testing"
	"time"

	"restockwatch/internal/product"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var (
	t0 = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(5 * time.Minute)
)

func snap(at time.Time, pairs ...any) product.Snapshot {
	var entries []product.Entry
	for i := 0; i+1 < len(pairs); i += 2 {
		id := pairs[i].(string)
		entries = append(entries, product.Entry{
			ID:           product.VariantID(id),
			Label:        "Label " + id,
			Availability: pairs[i+1].(product.Availability),
		})
	}
	return product.NewSnapshot(at, entries)
}

func TestDiffBaseline(t *testing.T) {
	current := snap(t0, "A", product.Available, "B", product.Unavailable)
	events := Diff(nil, current)
	require.NotNil(t, events)
	require.Empty(t, events)
}

func TestDiff(t *testing.T) {
	cases := []struct {
		name     string
		previous product.Snapshot
		current  product.Snapshot
		expected []Event
	}{
		{
			name:     "true restock",
			previous: snap(t0, "A", product.Available, "B", product.Unavailable),
			current:  snap(t1, "A", product.Available, "B", product.Available),
			expected: []Event{{VariantID: "B", Label: "Label B", DetectedAt: t1}},
		},
		{
			name:     "unknown predecessor is not a restock",
			previous: snap(t0, "B", product.Unknown),
			current:  snap(t1, "B", product.Available),
			expected: []Event{},
		},
		{
			name:     "still available",
			previous: snap(t0, "A", product.Available),
			current:  snap(t1, "A", product.Available),
			expected: []Event{},
		},
		{
			name:     "newly discovered variant",
			previous: snap(t0, "A", product.Unavailable),
			current:  snap(t1, "A", product.Unavailable, "N", product.Available),
			expected: []Event{},
		},
		{
			name:     "went out of stock",
			previous: snap(t0, "A", product.Available),
			current:  snap(t1, "A", product.Unavailable),
			expected: []Event{},
		},
		{
			name:     "unavailable to unknown",
			previous: snap(t0, "A", product.Unavailable),
			current:  snap(t1, "A", product.Unknown),
			expected: []Event{},
		},
		{
			name: "order follows current",
			previous: snap(t0,
				"C", product.Unavailable,
				"A", product.Unavailable,
				"B", product.Unavailable,
			),
			current: snap(t1,
				"B", product.Available,
				"C", product.Available,
				"A", product.Unknown,
			),
			expected: []Event{
				{VariantID: "B", Label: "Label B", DetectedAt: t1},
				{VariantID: "C", Label: "Label C", DetectedAt: t1},
			},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			previous := test.previous
			events := Diff(&previous, test.current)
			diff := cmp.Diff(test.expected, events)
			if diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestDiffIdempotent(t *testing.T) {
	previous := snap(t0, "A", product.Unavailable, "B", product.Unknown, "C", product.Unavailable)
	current := snap(t1, "A", product.Available, "B", product.Available, "C", product.Unavailable)

	previousBefore := previous.Entries()
	currentBefore := current.Entries()

	first := Diff(&previous, current)
	second := Diff(&previous, current)

	require.Equal(t, first, second)
	require.Len(t, first, 1)
	require.Equal(t, product.VariantID("A"), first[0].VariantID)

	require.Equal(t, previousBefore, previous.Entries())
	require.Equal(t, currentBefore, current.Entries())
}
