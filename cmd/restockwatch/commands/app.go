package commands

import (
	"context"
	"errors"

	"restockwatch/internal/components/chrono"
	"restockwatch/internal/components/telemetry"
	"restockwatch/internal/config"
	"restockwatch/internal/extract"
	"restockwatch/internal/fetch"
	"restockwatch/internal/monitor"
	"restockwatch/internal/notify"
	"restockwatch/internal/resolve"
	"restockwatch/internal/snapshot"
	"restockwatch/lib/restyutil"
)

// app is the monitor with every dependency it was built from.
type app struct {
	extractor  extract.Extractor
	store      *snapshot.Store
	db         *snapshot.DB
	dispatcher notify.Dispatcher
	monitor    *monitor.Monitor
}

func (a app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// history returns nil when no database is configured, so callers can compare
// against nil without tripping over a typed nil interface.
func (a app) history() monitor.History {
	if a.db == nil {
		return nil
	}
	return *a.db
}

func openDB(cfg config.Config) (*snapshot.DB, error) {
	if cfg.Database == "" {
		return nil, nil
	}
	db, err := snapshot.OpenDB(cfg.Database, cfg.ProductURL)
	if err != nil {
		return nil, err
	}
	return &db, nil
}

// newApp builds the monitor, dispatcher may be empty for dry runs and dump may
// be nil.
func newApp(ctx context.Context, cfg config.Config, dispatcher notify.Dispatcher, dump restyutil.InstrumentOutput) (app, error) {
	tel := telemetry.SlogAPI{}

	opts := cfg.FetchOptions()
	opts.Dump = dump
	client, err := fetch.NewClient(opts, tel)
	if err != nil {
		return app{}, err
	}

	db, err := openDB(cfg)
	if err != nil {
		return app{}, err
	}
	a := app{
		extractor:  extract.New(tel),
		db:         db,
		dispatcher: dispatcher,
	}

	var persist snapshot.Persister
	if db != nil {
		persist = *db
	}
	a.store = snapshot.NewStore(tel, persist)
	err = a.store.Restore(ctx)
	if err != nil {
		return app{}, errors.Join(err, a.Close())
	}

	resolver := resolve.New(client, cfg.ResolveOptions(), tel)
	a.monitor = monitor.New(monitor.Dependencies{
		Fetcher:    client,
		Extractor:  a.extractor,
		Resolver:   resolver,
		Store:      a.store,
		Dispatcher: dispatcher,
		History:    a.history(),
		Time:       chrono.NewStandardTime(nil),
	}, monitor.Options{
		ProductURL:   cfg.ProductURL,
		Tracker:      monitor.NewTracker(cfg.TrackedVariants),
		SummaryEvery: cfg.SummaryEvery(),
	}, tel)

	return a, nil
}
