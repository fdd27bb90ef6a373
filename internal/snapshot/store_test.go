package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"restockwatch/internal/components/telemetry"
	"restockwatch/internal/product"
	"restockwatch/internal/restock"

	"github.com/stretchr/testify/require"
)

type failingPersister struct{}

func (failingPersister) Load(context.Context) (product.Snapshot, bool, error) {
	return product.Snapshot{}, false, errors.New("disk on fire")
}

func (failingPersister) Save(context.Context, product.Snapshot) error {
	return errors.New("disk on fire")
}

func testSnapshot(at time.Time) product.Snapshot {
	return product.NewSnapshot(at, []product.Entry{
		{ID: "red", Label: "Red", Availability: product.Available},
		{ID: "blue", Label: "Blue", Availability: product.Unavailable},
		{ID: "green", Label: "Green", Availability: product.Unknown},
	})
}

func TestStoreCommit(t *testing.T) {
	store := NewStore(telemetry.SlogAPI{}, nil)

	_, ok := store.Current()
	require.False(t, ok)

	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	store.Commit(context.Background(), testSnapshot(now))

	current, ok := store.Current()
	require.True(t, ok)
	require.Equal(t, now, current.Time())
	require.Equal(t, 3, current.Len())

	later := product.NewSnapshot(now.Add(time.Minute), nil)
	store.Commit(context.Background(), later)
	current, _ = store.Current()
	require.Equal(t, 0, current.Len())
}

func TestStorePersistFailureStillCommits(t *testing.T) {
	tel := &telemetry.Recorder{}
	store := NewStore(tel, failingPersister{})

	err := store.Restore(context.Background())
	require.Error(t, err)

	store.Commit(context.Background(), testSnapshot(time.Now()))
	_, ok := store.Current()
	require.True(t, ok)
	require.Len(t, tel.Find("broken", report_store_persist), 1)
}

func TestDBRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	database, err := OpenDB(":memory:", "tee-01")
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	_, ok, err := database.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	first := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, database.Save(ctx, testSnapshot(first)))
	second := product.NewSnapshot(first.Add(time.Hour), []product.Entry{
		{ID: "blue", Label: "Blue", Availability: product.Available},
		{ID: "red", Label: "Red", Availability: product.Unavailable},
	})
	require.NoError(t, database.Save(ctx, second))

	loaded, ok, err := database.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, second.Time(), loaded.Time())
	require.Equal(t, second.Entries(), loaded.Entries())

	store := NewStore(telemetry.SlogAPI{}, database)
	require.NoError(t, store.Restore(ctx))
	current, ok := store.Current()
	require.True(t, ok)
	require.Equal(t, second.Entries(), current.Entries())
}

func TestDBRestockHistory(t *testing.T) {
	ctx := context.Background()

	database, err := OpenDB(":memory:", "tee-01")
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	at := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	previous := product.NewSnapshot(at, []product.Entry{
		{ID: "red", Label: "Red", Availability: product.Unavailable},
		{ID: "blue", Label: "Blue", Availability: product.Unavailable},
	})
	current := product.NewSnapshot(at.Add(time.Hour), []product.Entry{
		{ID: "red", Label: "Red", Availability: product.Available},
		{ID: "blue", Label: "Blue", Availability: product.Available},
	})
	events := restock.Diff(&previous, current)
	require.Len(t, events, 2)

	require.NoError(t, database.RecordRestocks(ctx, events))

	history, err := database.RecentRestocks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "tee-01", history[0].ProductID)
	require.Equal(t, at.Add(time.Hour), history[0].DetectedAt)
}

func TestDBSnapshotsAreScopedToProduct(t *testing.T) {
	ctx := context.Background()

	tee, err := OpenDB(":memory:", "https://shop.example/tee")
	if err != nil {
		t.Fatal(err)
	}
	defer tee.Close()
	hoodie := NewDB(tee.db, "https://shop.example/hoodie")

	at := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	teeSnapshot := product.NewSnapshot(at, []product.Entry{
		{ID: "black", Label: "Black", Availability: product.Unavailable},
	})
	require.NoError(t, tee.Save(ctx, teeSnapshot))

	_, ok, err := hoodie.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok, "a different product must start from a baseline")

	store := NewStore(telemetry.SlogAPI{}, hoodie)
	require.NoError(t, store.Restore(ctx))
	_, ok = store.Current()
	require.False(t, ok)

	hoodieSnapshot := product.NewSnapshot(at.Add(time.Hour), []product.Entry{
		{ID: "black", Label: "Black", Availability: product.Available},
	})
	require.NoError(t, hoodie.Save(ctx, hoodieSnapshot))

	loaded, ok, err := tee.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok, "saving another product must not remove this one")
	require.Equal(t, teeSnapshot.Entries(), loaded.Entries())

	loaded, ok, err = hoodie.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, hoodieSnapshot.Entries(), loaded.Entries())
}
