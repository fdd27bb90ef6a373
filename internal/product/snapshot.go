package product

import (
	"time"
)

// Entry is the availability of one variant inside a Snapshot.
type Entry struct {
	ID           VariantID
	Label        string
	Availability Availability
}

// Snapshot is the complete availability state of every known variant at one point
// in time. It is immutable: every accessor returns a copy.
type Snapshot struct {
	time    time.Time
	entries []Entry
	index   map[VariantID]int
}

// NewSnapshot builds a snapshot out of entries, keeping the first entry of
// any duplicated id.
func NewSnapshot(at time.Time, entries []Entry) Snapshot {
	s := Snapshot{
		time:    at,
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[VariantID]int, len(entries)),
	}
	for _, e := range entries {
		if _, ok := s.index[e.ID]; ok {
			continue
		}
		s.index[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return s
}

// SnapshotOf builds a snapshot from the variants of a resolved record.
func SnapshotOf(at time.Time, record Record) Snapshot {
	entries := make([]Entry, len(record.Variants))
	for i, v := range record.Variants {
		entries[i] = Entry{ID: v.ID, Label: v.Label, Availability: v.Availability}
	}
	return NewSnapshot(at, entries)
}

func (s Snapshot) Time() time.Time {
	return s.time
}

func (s Snapshot) Len() int {
	return len(s.entries)
}

// Entries returns the entries in the order variants were observed.
func (s Snapshot) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Availability returns the availability of a variant, ok is false if the
// variant was not part of the snapshot.
func (s Snapshot) Availability(id VariantID) (Availability, bool) {
	i, ok := s.index[id]
	if !ok {
		return Unknown, false
	}
	return s.entries[i].Availability, true
}

func (s Snapshot) filter(a Availability) []Entry {
	var out []Entry
	for _, e := range s.entries {
		if e.Availability == a {
			out = append(out, e)
		}
	}
	return out
}

func (s Snapshot) Available() []Entry {
	return s.filter(Available)
}

func (s Snapshot) Unavailable() []Entry {
	return s.filter(Unavailable)
}

func (s Snapshot) Unknown() []Entry {
	return s.filter(Unknown)
}
