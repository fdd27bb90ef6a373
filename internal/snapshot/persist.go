package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"restockwatch/internal/product"
	"restockwatch/internal/restock"
	"restockwatch/internal/snapshot/db"

	_ "modernc.org/sqlite"
)

// DB persists snapshots and the restock history to sqlite.
type DB struct {
	db        *sql.DB
	qry       *db.Queries
	productId string
}

// OpenDB opens (or creates) the sqlite database at path, ":memory:" is allowed.
func OpenDB(path, productId string) (DB, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return DB{}, err
	}
	// a single connection keeps ":memory:" databases from being created per connection.
	database.SetMaxOpenConns(1)

	_, err = database.Exec(db.Schema)
	if err != nil {
		database.Close()
		return DB{}, fmt.Errorf("apply schema: %w", err)
	}
	return NewDB(database, productId), nil
}

func NewDB(database *sql.DB, productId string) DB {
	return DB{
		db:        database,
		qry:       db.New(database),
		productId: productId,
	}
}

func (d DB) Close() error {
	return d.db.Close()
}

func (d DB) Load(ctx context.Context) (product.Snapshot, bool, error) {
	latest, err := d.qry.GetLatestSnapshot(ctx, d.productId)
	if errors.Is(err, sql.ErrNoRows) {
		return product.Snapshot{}, false, nil
	}
	if err != nil {
		return product.Snapshot{}, false, err
	}

	rows, err := d.qry.GetSnapshotEntries(ctx, latest.ID)
	if err != nil {
		return product.Snapshot{}, false, err
	}

	entries := make([]product.Entry, len(rows))
	for i, r := range rows {
		entries[i] = product.Entry{
			ID:           product.VariantID(r.VariantID),
			Label:        r.Label,
			Availability: product.Availability(r.Availability),
		}
	}
	return product.NewSnapshot(time.UnixMilli(latest.TakenAt).UTC(), entries), true, nil
}

func (d DB) Save(ctx context.Context, snap product.Snapshot) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := d.qry.WithTx(tx)

	id, err := txqry.CreateSnapshot(ctx, db.CreateSnapshotParams{
		ProductID: d.productId,
		TakenAt:   snap.Time().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	for i, e := range snap.Entries() {
		err = txqry.CreateSnapshotEntry(ctx, db.SnapshotEntry{
			SnapshotID:   id,
			Position:     int64(i),
			VariantID:    string(e.ID),
			Label:        e.Label,
			Availability: int64(e.Availability),
		})
		if err != nil {
			return fmt.Errorf("create snapshot entry: %w", err)
		}
	}

	// only the latest snapshot of this product is kept, other products sharing
	// the database are left alone.
	err = txqry.DeleteEntriesExcept(ctx, db.DeleteEntriesExceptParams{
		ProductID:  d.productId,
		SnapshotID: id,
	})
	if err != nil {
		return err
	}
	err = txqry.DeleteSnapshotsExcept(ctx, db.DeleteSnapshotsExceptParams{
		ProductID: d.productId,
		ID:        id,
	})
	if err != nil {
		return err
	}

	return tx.Commit()
}

// RecordRestocks appends events to the restock history.
func (d DB) RecordRestocks(ctx context.Context, events []restock.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := d.qry.WithTx(tx)

	for _, e := range events {
		err := txqry.CreateRestockEvent(ctx, db.CreateRestockEventParams{
			ProductID:  d.productId,
			VariantID:  string(e.VariantID),
			Label:      e.Label,
			DetectedAt: e.DetectedAt.UnixMilli(),
		})
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// HistoryEntry is a restock event read back from the history.
type HistoryEntry struct {
	ProductID  string
	VariantID  product.VariantID
	Label      string
	DetectedAt time.Time
}

// RecentRestocks returns up to limit of the most recent restocks, newest first.
func (d DB) RecentRestocks(ctx context.Context, limit int) ([]HistoryEntry, error) {
	rows, err := d.qry.GetRecentRestockEvents(ctx, int64(limit))
	if err != nil {
		return nil, err
	}

	out := make([]HistoryEntry, len(rows))
	for i, r := range rows {
		out[i] = HistoryEntry{
			ProductID:  r.ProductID,
			VariantID:  product.VariantID(r.VariantID),
			Label:      r.Label,
			DetectedAt: time.UnixMilli(r.DetectedAt).UTC(),
		}
	}
	return out, nil
}
