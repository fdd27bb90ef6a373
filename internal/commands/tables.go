package commands

import (
	"fmt"
	"time"

	"restockwatch/internal/product"
	"restockwatch/internal/restock"
	"restockwatch/internal/snapshot"

	"github.com/jedib0t/go-pretty/v6/table"
)

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

// VariantsTable renders every variant of a record along with where its
// availability came from.
func VariantsTable(record product.Record) table.Writer {
	t := NewTable()
	t.SetTitle(fmt.Sprintf("%s (%s, source: %s)", record.Name, record.ProductID, record.Source))
	t.AppendHeader(table.Row{"Variant", "Label", "Availability"})
	for _, v := range record.Variants {
		t.AppendRow(table.Row{v.ID, v.Label, v.Availability})
	}
	return t
}

func SnapshotTable(snap product.Snapshot) table.Writer {
	t := NewTable()
	t.SetTitle(fmt.Sprintf("Observed %s", snap.Time().Format(time.RFC1123)))
	t.AppendHeader(table.Row{"Variant", "Label", "Availability"})
	for _, e := range snap.Entries() {
		t.AppendRow(table.Row{e.ID, e.Label, e.Availability})
	}
	t.AppendFooter(table.Row{
		"",
		"Available",
		fmt.Sprintf("%d of %d", len(snap.Available()), snap.Len()),
	})
	return t
}

func EventsTable(events []restock.Event) table.Writer {
	t := NewTable()
	t.AppendHeader(table.Row{"Restocked", "Label", "Detected at"})
	for _, e := range events {
		t.AppendRow(table.Row{e.VariantID, e.Label, e.DetectedAt.Format(time.RFC1123)})
	}
	return t
}

func HistoryTable(entries []snapshot.HistoryEntry) table.Writer {
	t := NewTable()
	t.AppendHeader(table.Row{"Detected at", "Variant", "Label"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.DetectedAt.Format(time.RFC1123), e.VariantID, e.Label})
	}
	return t
}
