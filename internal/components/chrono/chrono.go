package chrono

import (
	"sync"
	"time"
)

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct {
	location *time.Location
}

// NewStandardTime is the constructor of StandardTime, a nil location means UTC.
func NewStandardTime(location *time.Location) StandardTime {
	if location == nil {
		location = time.UTC
	}
	return StandardTime{location: location}
}

func (s StandardTime) Now() time.Time {
	if s.location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(s.location)
}

// ManualTime is a TimeAPI that only moves when told to.
type ManualTime struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualTime(start time.Time) *ManualTime {
	return &ManualTime{now: start}
}

func (m *ManualTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
