package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"restockwatch/internal/components/telemetry"
	"restockwatch/internal/monitor"
	"restockwatch/internal/product"
	"restockwatch/internal/restock"
	"restockwatch/internal/scheduler"
	"restockwatch/internal/snapshot"

	"github.com/stretchr/testify/require"
)

var observedAt = time.Date(2024, 11, 2, 9, 0, 0, 0, time.UTC)

type fakeScheduler struct {
	state     scheduler.State
	skipped   int64
	busy      bool
	onTrigger func()
}

func (s *fakeScheduler) State() scheduler.State { return s.state }
func (s *fakeScheduler) Skipped() int64         { return s.skipped }

func (s *fakeScheduler) Trigger(context.Context) bool {
	if s.busy {
		return false
	}
	if s.onTrigger != nil {
		s.onTrigger()
	}
	return true
}

type fakeMonitor struct {
	cycles int64
	last   *monitor.Result
}

func (m *fakeMonitor) Cycles() int64 { return m.cycles }

func (m *fakeMonitor) Last() (monitor.Result, bool) {
	if m.last == nil {
		return monitor.Result{}, false
	}
	return *m.last, true
}

type fakeStore struct {
	snap *product.Snapshot
}

func (s fakeStore) Current() (product.Snapshot, bool) {
	if s.snap == nil {
		return product.Snapshot{}, false
	}
	return *s.snap, true
}

type fakeHistory struct {
	entries   []snapshot.HistoryEntry
	lastLimit int
}

func (h *fakeHistory) RecentRestocks(_ context.Context, limit int) ([]snapshot.HistoryEntry, error) {
	h.lastLimit = limit
	if limit < len(h.entries) {
		return h.entries[:limit], nil
	}
	return h.entries, nil
}

func committed() *product.Snapshot {
	snap := product.NewSnapshot(observedAt, []product.Entry{
		{ID: "black", Label: "Black", Availability: product.Available},
		{ID: "white", Label: "White", Availability: product.Unavailable},
		{ID: "navy", Label: "Navy"},
	})
	return &snap
}

func TestParse(t *testing.T) {
	table := []struct {
		line string
		name string
		args []string
	}{
		{line: "status", name: "status", args: []string{}},
		{line: "  !History 5 ", name: "history", args: []string{"5"}},
		{line: "/check", name: "check", args: []string{}},
		{line: "   ", name: "", args: nil},
	}
	for _, row := range table {
		name, args := Parse(row.line)
		require.Equal(t, row.name, name)
		require.Equal(t, row.args, args)
	}
}

func TestDispatchUnknown(t *testing.T) {
	registry := Builtins(&fakeScheduler{}, &fakeMonitor{}, fakeStore{}, nil)
	_, err := registry.Dispatch(context.Background(), "restock-now")
	require.True(t, errors.Is(err, ErrUnknownCommand))

	out, err := registry.Dispatch(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestHelpListsEveryCommand(t *testing.T) {
	registry := Builtins(&fakeScheduler{}, &fakeMonitor{}, fakeStore{}, nil)
	out, err := registry.Dispatch(context.Background(), "help")
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, c := range registry.Commands() {
		names = append(names, c.Name())
		require.Contains(t, out, c.Description())
	}
	require.Equal(t, []string{"check", "help", "history", "status", "variants"}, names)
}

func TestStatus(t *testing.T) {
	m := &fakeMonitor{cycles: 4, last: &monitor.Result{ID: "abcd1234", FinishedAt: observedAt}}
	s := &fakeScheduler{state: scheduler.Running, skipped: 1}

	out, err := Status(s, m, fakeStore{snap: committed()}).Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	require.Contains(t, out, "state: running\n")
	require.Contains(t, out, "cycles: 4 (skipped triggers: 1)\n")
	require.Contains(t, out, "last cycle: abcd1234")
	require.Contains(t, out, "available: 1, unavailable: 1, unknown: 1\n")

	out, err = Status(&fakeScheduler{}, &fakeMonitor{}, fakeStore{}).Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	require.Contains(t, out, "no snapshot committed yet")
}

func TestVariants(t *testing.T) {
	out, err := Variants(fakeStore{snap: committed()}).Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"Black", "White", "Navy", "available", "unavailable", "unknown", "1 of 3"} {
		require.Contains(t, strings.ToLower(out), strings.ToLower(s))
	}
}

func TestCheck(t *testing.T) {
	m := &fakeMonitor{cycles: 1, last: &monitor.Result{ID: "first"}}

	busy := Check(&fakeScheduler{busy: true}, m)
	out, err := busy.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "a cycle is already running, skipped", out)

	failing := Check(&fakeScheduler{}, m)
	out, err = failing.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "cycle failed, see the error report", out)

	quiet := Check(&fakeScheduler{onTrigger: func() {
		m.cycles++
		m.last = &monitor.Result{ID: "second"}
	}}, m)
	out, err = quiet.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "cycle second done, nothing restocked", out)

	restocked := Check(&fakeScheduler{onTrigger: func() {
		m.cycles++
		m.last = &monitor.Result{ID: "third", Events: []restock.Event{
			{VariantID: "white", Label: "White", DetectedAt: observedAt},
		}}
	}}, m)
	out, err = restocked.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Contains(t, out, "White")
}

func TestHistory(t *testing.T) {
	out, err := HistoryCommand(nil).Run(context.Background(), nil)
	require.NoError(t, err)
	require.Contains(t, out, "history is disabled")

	h := &fakeHistory{}
	out, err = HistoryCommand(h).Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "no restocks recorded yet", out)
	require.Equal(t, defaultHistoryLimit, h.lastLimit)

	h.entries = []snapshot.HistoryEntry{
		{ProductID: "tee", VariantID: "white", Label: "White", DetectedAt: observedAt},
		{ProductID: "tee", VariantID: "navy", Label: "Navy", DetectedAt: observedAt.Add(-time.Hour)},
	}
	out, err = HistoryCommand(h).Run(context.Background(), []string{"1"})
	require.NoError(t, err)
	require.Equal(t, 1, h.lastLimit)
	require.Contains(t, out, "White")
	require.NotContains(t, out, "Navy")

	_, err = HistoryCommand(h).Run(context.Background(), []string{"-2"})
	require.Error(t, err)
}

func TestConsole(t *testing.T) {
	registry := Builtins(&fakeScheduler{}, &fakeMonitor{}, fakeStore{snap: committed()}, nil)
	in := strings.NewReader("status\n\nfoo\n!variants\n")
	var out bytes.Buffer

	err := NewConsole(registry, in, &out, telemetry.SlogAPI{}).Serve(context.Background())
	require.NoError(t, err)

	text := out.String()
	require.Contains(t, text, "state: idle")
	require.Contains(t, text, `error: unknown command "foo"`)
	require.Contains(t, text, "Navy")
}

func TestConsoleStopsOnContextDone(t *testing.T) {
	registry := Builtins(&fakeScheduler{}, &fakeMonitor{}, fakeStore{}, nil)
	reader, writer := io.Pipe()
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- NewConsole(registry, reader, &bytes.Buffer{}, telemetry.SlogAPI{}).Serve(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("console did not stop")
	}
}
