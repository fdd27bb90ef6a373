package chrono

import (
	"context"
	"fmt"
	"time"

	"restockwatch/internal/components/telemetry"

	"github.com/robfig/cron/v3"
)

// CronAPI is the interface that anything depending on things to happen on a cron job should use.
type CronAPI interface {
	Every(interval time.Duration, callback func()) error
	Start()
	// Stop halts future invocations, the returned context is done once the running
	// callbacks have returned.
	Stop() context.Context
}

// StandardCron is the standard implementation of CronAPI using `github.com/robfig/cron/v3`
type StandardCron struct {
	cron *cron.Cron
}

// NewStandardCron is the constructor of StandardCron.
func NewStandardCron(tel telemetry.API) StandardCron {
	cronner := cron.New(
		cron.WithLogger(cronLogger{tel: tel}),
	)
	return StandardCron{
		cron: cronner,
	}
}

func (s StandardCron) Every(interval time.Duration, callback func()) error {
	if interval <= 0 {
		return fmt.Errorf("cron: interval must be positive, got %s", interval)
	}
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), callback)
	return err
}

func (s StandardCron) Start() {
	s.cron.Start()
}

func (s StandardCron) Stop() context.Context {
	return s.cron.Stop()
}

type cronLogger struct {
	tel telemetry.API
}

func (l cronLogger) formatParams(keysAndValues []any) []any {
	params := []any{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, telemetry.KV{
			Key:   fmt.Sprint(keysAndValues[i]),
			Value: keysAndValues[i+1],
		})
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug(
		fmt.Sprintf("cron: %s", msg),
		l.formatParams(keysAndValues)...,
	)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.tel.ReportBroken(
		"cron",
		append([]any{fmt.Errorf("%s: %w", msg, err)}, l.formatParams(keysAndValues)...)...,
	)
}
