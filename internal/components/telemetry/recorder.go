package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call recorded by Recorder.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

// Recorder is an API that keeps every report in memory, it is meant for tests
// that need to assert something was (or was not) reported.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *Recorder) add(kind, id string, params []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any)  { r.add("broken", id, params) }
func (r *Recorder) ReportWarning(id string, params ...any) { r.add("warning", id, params) }
func (r *Recorder) ReportDebug(msg string, params ...any)  { r.add("debug", msg, params) }
func (r *Recorder) ReportCount(id string, count int64)     { r.add("count", id, []any{count}) }

// Find returns every report of the given kind whose id contains `id`.
func (r *Recorder) Find(kind, id string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Report
	for _, rep := range r.reports {
		if rep.Kind == kind && strings.Contains(rep.ID, id) {
			out = append(out, rep)
		}
	}
	return out
}
