package product

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	record := NewRecord("", "Tee", "test", []ColorVariant{
		{ID: "red", Label: "Red"},
		{ID: "", Label: "No id"},
		{ID: "red", Label: "Duplicate red"},
		{ID: "blue"},
	})

	require.Equal(t, FallbackProductID, record.ProductID)
	require.Len(t, record.Variants, 2)
	require.Equal(t, "Red", record.Variants[0].Label)
	require.Equal(t, "blue", record.Variants[1].Label)
}

func TestWithAvailabilityCopies(t *testing.T) {
	original := ColorVariant{ID: "a", Swatch: map[string]any{"hex": "#fff"}}
	changed := original.WithAvailability(Available)
	changed.Swatch["hex"] = "#000"

	require.Equal(t, Unknown, original.Availability)
	require.Equal(t, "#fff", original.Swatch["hex"])
	require.Equal(t, Available, changed.Availability)
}

func TestSnapshotPartitions(t *testing.T) {
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	snap := NewSnapshot(now, []Entry{
		{ID: "a", Availability: Available},
		{ID: "b", Availability: Unavailable},
		{ID: "c", Availability: Unknown},
		{ID: "a", Availability: Unavailable},
	})

	require.Equal(t, 3, snap.Len())
	require.Equal(t, now, snap.Time())

	a, ok := snap.Availability("a")
	require.True(t, ok)
	require.Equal(t, Available, a)

	_, ok = snap.Availability("missing")
	require.False(t, ok)

	require.Len(t, snap.Available(), 1)
	require.Len(t, snap.Unavailable(), 1)
	require.Len(t, snap.Unknown(), 1)

	entries := snap.Entries()
	entries[0].Availability = Unavailable
	a, _ = snap.Availability("a")
	require.Equal(t, Available, a)
}
