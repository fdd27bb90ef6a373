package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"restockwatch/internal/monitor"
	"restockwatch/internal/product"
	"restockwatch/internal/scheduler"
	"restockwatch/internal/snapshot"
)

// Scheduler is the part of *scheduler.Scheduler the commands use.
type Scheduler interface {
	State() scheduler.State
	Skipped() int64
	Trigger(ctx context.Context) bool
}

// Monitor is the part of *monitor.Monitor the commands use.
type Monitor interface {
	Cycles() int64
	Last() (monitor.Result, bool)
}

type SnapshotSource interface {
	Current() (product.Snapshot, bool)
}

// History is the part of snapshot.DB the commands use.
type History interface {
	RecentRestocks(ctx context.Context, limit int) ([]snapshot.HistoryEntry, error)
}

type help struct {
	registry *Registry
}

func Help(registry *Registry) Command {
	return help{registry: registry}
}

func (help) Name() string        { return "help" }
func (help) Description() string { return "Lists the available commands." }

func (h help) Run(context.Context, []string) (string, error) {
	var sb strings.Builder
	sb.WriteString("Commands:\n")
	for _, c := range h.registry.Commands() {
		fmt.Fprintf(&sb, "  %-10s %s\n", c.Name(), c.Description())
	}
	return sb.String(), nil
}

type status struct {
	scheduler Scheduler
	monitor   Monitor
	store     SnapshotSource
}

func Status(s Scheduler, m Monitor, store SnapshotSource) Command {
	return status{scheduler: s, monitor: m, store: store}
}

func (status) Name() string        { return "status" }
func (status) Description() string { return "Shows the scheduler state and the last cycle." }

func (s status) Run(context.Context, []string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "state: %s\n", s.scheduler.State())
	fmt.Fprintf(&sb, "cycles: %d (skipped triggers: %d)\n", s.monitor.Cycles(), s.scheduler.Skipped())

	last, ok := s.monitor.Last()
	if ok {
		fmt.Fprintf(
			&sb, "last cycle: %s at %s, %d restocked\n",
			last.ID, last.FinishedAt.Format(time.RFC1123), len(last.Events),
		)
	}

	snap, ok := s.store.Current()
	if !ok {
		sb.WriteString("no snapshot committed yet\n")
		return sb.String(), nil
	}
	fmt.Fprintf(
		&sb, "available: %d, unavailable: %d, unknown: %d\n",
		len(snap.Available()), len(snap.Unavailable()), len(snap.Unknown()),
	)
	return sb.String(), nil
}

type variants struct {
	store SnapshotSource
}

func Variants(store SnapshotSource) Command {
	return variants{store: store}
}

func (variants) Name() string        { return "variants" }
func (variants) Description() string { return "Shows the availability of every tracked variant." }

func (v variants) Run(context.Context, []string) (string, error) {
	snap, ok := v.store.Current()
	if !ok {
		return "no snapshot committed yet", nil
	}
	return SnapshotTable(snap).Render(), nil
}

type check struct {
	scheduler Scheduler
	monitor   Monitor
}

func Check(s Scheduler, m Monitor) Command {
	return check{scheduler: s, monitor: m}
}

func (check) Name() string        { return "check" }
func (check) Description() string { return "Runs a cycle now, unless one is already running." }

func (c check) Run(ctx context.Context, _ []string) (string, error) {
	before := c.monitor.Cycles()
	if !c.scheduler.Trigger(ctx) {
		return "a cycle is already running, skipped", nil
	}
	last, ok := c.monitor.Last()
	if !ok || c.monitor.Cycles() == before {
		return "cycle failed, see the error report", nil
	}
	if len(last.Events) == 0 {
		return fmt.Sprintf("cycle %s done, nothing restocked", last.ID), nil
	}
	return EventsTable(last.Events).Render(), nil
}

type history struct {
	history History
}

const defaultHistoryLimit = 10

func HistoryCommand(h History) Command {
	return history{history: h}
}

func (history) Name() string        { return "history" }
func (history) Description() string { return "Lists recent restocks, takes an optional limit." }

func (h history) Run(ctx context.Context, args []string) (string, error) {
	if h.history == nil {
		return "history is disabled, configure a database to enable it", nil
	}

	limit := defaultHistoryLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return "", fmt.Errorf("limit must be a positive integer, got %q", args[0])
		}
		limit = n
	}

	entries, err := h.history.RecentRestocks(ctx, limit)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "no restocks recorded yet", nil
	}
	return HistoryTable(entries).Render(), nil
}

// Builtins registers every builtin command, h may be nil when history is disabled.
func Builtins(s Scheduler, m Monitor, store SnapshotSource, h History) *Registry {
	registry := NewRegistry(
		Status(s, m, store),
		Variants(store),
		Check(s, m),
		HistoryCommand(h),
	)
	registry.Register(Help(registry))
	return registry
}
