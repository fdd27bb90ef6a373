package restock

import (
	"time"

	"restockwatch/internal/product"
)

// Event is a variant that went from Unavailable to Available between two
// consecutive snapshots. Events are only ever produced by Diff.
type Event struct {
	VariantID  product.VariantID
	Label      string
	DetectedAt time.Time
}

// Diff returns the restock events between the previously committed snapshot and the
// current one, in the order variants appear in current.
//
// A nil previous snapshot is the baseline and never yields events. Only an exact
// Unavailable -> Available transition counts, Unknown -> Available does not.
func Diff(previous *product.Snapshot, current product.Snapshot) []Event {
	events := []Event{}
	if previous == nil {
		return events
	}

	for _, entry := range current.Entries() {
		if entry.Availability != product.Available {
			continue
		}
		before, ok := previous.Availability(entry.ID)
		if !ok || before != product.Unavailable {
			continue
		}
		events = append(events, Event{
			VariantID:  entry.ID,
			Label:      entry.Label,
			DetectedAt: current.Time(),
		})
	}
	return events
}
