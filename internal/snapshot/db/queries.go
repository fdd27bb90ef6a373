package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Snapshot struct {
	ID        int64
	ProductID string
	TakenAt   int64
}

type SnapshotEntry struct {
	SnapshotID   int64
	Position     int64
	VariantID    string
	Label        string
	Availability int64
}

type RestockEvent struct {
	ID         int64
	ProductID  string
	VariantID  string
	Label      string
	DetectedAt int64
}

const createSnapshot = `insert into snapshot (product_id, taken_at) values (?, ?) returning id`

type CreateSnapshotParams struct {
	ProductID string
	TakenAt   int64
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createSnapshot, arg.ProductID, arg.TakenAt)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const deleteSnapshotsExcept = `delete from snapshot where product_id = ? and id != ?`

type DeleteSnapshotsExceptParams struct {
	ProductID string
	ID        int64
}

func (q *Queries) DeleteSnapshotsExcept(ctx context.Context, arg DeleteSnapshotsExceptParams) error {
	_, err := q.db.ExecContext(ctx, deleteSnapshotsExcept, arg.ProductID, arg.ID)
	return err
}

const deleteEntriesExcept = `delete from snapshot_entry where snapshot_id in (
	select id from snapshot where product_id = ? and id != ?
)`

type DeleteEntriesExceptParams struct {
	ProductID  string
	SnapshotID int64
}

func (q *Queries) DeleteEntriesExcept(ctx context.Context, arg DeleteEntriesExceptParams) error {
	_, err := q.db.ExecContext(ctx, deleteEntriesExcept, arg.ProductID, arg.SnapshotID)
	return err
}

const createSnapshotEntry = `insert into snapshot_entry (snapshot_id, position, variant_id, label, availability) values (?, ?, ?, ?, ?)`

func (q *Queries) CreateSnapshotEntry(ctx context.Context, arg SnapshotEntry) error {
	_, err := q.db.ExecContext(
		ctx,
		createSnapshotEntry,
		arg.SnapshotID,
		arg.Position,
		arg.VariantID,
		arg.Label,
		arg.Availability,
	)
	return err
}

const getLatestSnapshot = `select id, product_id, taken_at from snapshot
where product_id = ? order by taken_at desc, id desc limit 1`

func (q *Queries) GetLatestSnapshot(ctx context.Context, productId string) (Snapshot, error) {
	row := q.db.QueryRowContext(ctx, getLatestSnapshot, productId)
	var s Snapshot
	err := row.Scan(&s.ID, &s.ProductID, &s.TakenAt)
	return s, err
}

const getSnapshotEntries = `select snapshot_id, position, variant_id, label, availability
from snapshot_entry where snapshot_id = ? order by position asc`

func (q *Queries) GetSnapshotEntries(ctx context.Context, snapshotId int64) ([]SnapshotEntry, error) {
	rows, err := q.db.QueryContext(ctx, getSnapshotEntries, snapshotId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SnapshotEntry
	for rows.Next() {
		var i SnapshotEntry
		err := rows.Scan(&i.SnapshotID, &i.Position, &i.VariantID, &i.Label, &i.Availability)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createRestockEvent = `insert into restock_event (product_id, variant_id, label, detected_at) values (?, ?, ?, ?)`

type CreateRestockEventParams struct {
	ProductID  string
	VariantID  string
	Label      string
	DetectedAt int64
}

func (q *Queries) CreateRestockEvent(ctx context.Context, arg CreateRestockEventParams) error {
	_, err := q.db.ExecContext(ctx, createRestockEvent, arg.ProductID, arg.VariantID, arg.Label, arg.DetectedAt)
	return err
}

const getRecentRestockEvents = `select id, product_id, variant_id, label, detected_at
from restock_event order by detected_at desc, id desc limit ?`

func (q *Queries) GetRecentRestockEvents(ctx context.Context, limit int64) ([]RestockEvent, error) {
	rows, err := q.db.QueryContext(ctx, getRecentRestockEvents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RestockEvent
	for rows.Next() {
		var i RestockEvent
		err := rows.Scan(&i.ID, &i.ProductID, &i.VariantID, &i.Label, &i.DetectedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
