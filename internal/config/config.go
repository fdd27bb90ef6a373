// Package config is the configuration of the restock monitor, read from
// config.json5 (and config.local.json5) with environment overrides on top.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"restockwatch/internal/components/telemetry"
	"restockwatch/internal/fetch"
	"restockwatch/internal/notify"
	"restockwatch/internal/resolve"
	"restockwatch/lib/configutil"
)

type SmtpConfig struct {
	Server         string   `json:"server"`
	Port           int      `json:"port"`
	EmailAddress   string   `json:"email_address"`
	Password       string   `json:"password"`
	To             []string `json:"to"`
	// TimeoutSeconds bounds a single send, 0 means 30 seconds.
	TimeoutSeconds int      `json:"timeout_seconds"`
}

func (c SmtpConfig) enabled() bool {
	return c.Server != ""
}

type ProbeConfig struct {
	MinDelayMs     int `json:"min_delay_ms"`
	TimeoutSeconds int `json:"timeout_seconds"`
	Concurrency    int `json:"concurrency"`
}

type Config struct {
	ProductURL string `json:"product_url"`
	// PollMinutes is the interval between two cycles.
	PollMinutes  int               `json:"poll_minutes"`
	VariantParam string            `json:"variant_param"`
	GraphQLURL   string            `json:"graphql_url"`
	GraphQLQuery string            `json:"graphql_query"`
	Headers      map[string]string `json:"headers"`

	WebhookURL      string     `json:"webhook_url"`
	WebhookUsername string     `json:"webhook_username"`
	Smtp            SmtpConfig `json:"smtp"`

	EnableCommands bool `json:"enable_commands"`
	// TrackedVariants restricts alerts to these variant ids or labels, empty
	// means every discovered variant is tracked.
	TrackedVariants []string `json:"tracked_variants"`

	Probe ProbeConfig `json:"probe"`
	// SummaryEveryCycles sends an inventory summary every n cycles, 0 disables it.
	SummaryEveryCycles *int `json:"summary_every_cycles"`

	Database string               `json:"database"`
	Otlp     telemetry.OtlpConfig `json:"otlp"`
	Debug    bool                 `json:"debug"`
}

const (
	DefaultPollMinutes        = 5
	DefaultVariantParam       = "color"
	DefaultSummaryEveryCycles = 12
	DefaultProbeMinDelayMs    = 1500
	DefaultProbeTimeout       = 20
	DefaultProbeConcurrency   = 2
	DefaultWebhookUsername    = "Restock Watch"
)

// WithDefaults fills every option that was left unset.
func (c Config) WithDefaults() Config {
	if c.PollMinutes == 0 {
		c.PollMinutes = DefaultPollMinutes
	}
	if c.VariantParam == "" {
		c.VariantParam = DefaultVariantParam
	}
	if c.WebhookUsername == "" {
		c.WebhookUsername = DefaultWebhookUsername
	}
	if c.SummaryEveryCycles == nil {
		every := DefaultSummaryEveryCycles
		c.SummaryEveryCycles = &every
	}
	if c.Probe.MinDelayMs == 0 {
		c.Probe.MinDelayMs = DefaultProbeMinDelayMs
	}
	if c.Probe.TimeoutSeconds == 0 {
		c.Probe.TimeoutSeconds = DefaultProbeTimeout
	}
	if c.Probe.Concurrency == 0 {
		c.Probe.Concurrency = DefaultProbeConcurrency
	}
	if c.Smtp.enabled() && c.Smtp.Port == 0 {
		c.Smtp.Port = 587
	}
	return c
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ApplyEnv overrides options with the RESTOCK_* environment variables found
// through lookup.
func (c Config) ApplyEnv(lookup func(string) (string, bool)) (Config, error) {
	if v, ok := lookup("RESTOCK_PRODUCT_URL"); ok {
		c.ProductURL = v
	}
	if v, ok := lookup("RESTOCK_POLL_MINUTES"); ok {
		minutes, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return c, fmt.Errorf("RESTOCK_POLL_MINUTES: %w", err)
		}
		c.PollMinutes = minutes
	}
	if v, ok := lookup("RESTOCK_WEBHOOK_URL"); ok {
		c.WebhookURL = v
	}
	if v, ok := lookup("RESTOCK_COMMANDS"); ok {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return c, fmt.Errorf("RESTOCK_COMMANDS: %w", err)
		}
		c.EnableCommands = enabled
	}
	if v, ok := lookup("RESTOCK_TRACKED"); ok {
		c.TrackedVariants = splitList(v)
	}
	if v, ok := lookup("RESTOCK_DB"); ok {
		c.Database = v
	}
	return c, nil
}

// Validate reports every misconfiguration that must prevent startup.
func (c Config) Validate() error {
	var errs []error
	if c.ProductURL == "" {
		errs = append(errs, errors.New("product_url is required"))
	} else if parsed, err := url.Parse(c.ProductURL); err != nil || !parsed.IsAbs() {
		errs = append(errs, fmt.Errorf("product_url %q is not an absolute url", c.ProductURL))
	}
	if c.PollMinutes <= 0 {
		errs = append(errs, fmt.Errorf("poll_minutes must be a positive integer, got %d", c.PollMinutes))
	}
	if c.WebhookURL == "" && !c.Smtp.enabled() {
		errs = append(errs, errors.New("no notification endpoint configured, set webhook_url or smtp"))
	}
	if c.Smtp.enabled() && len(c.Smtp.To) == 0 {
		errs = append(errs, errors.New("smtp.to must list at least one recipient"))
	}
	if (c.GraphQLURL == "") != (c.GraphQLQuery == "") {
		errs = append(errs, errors.New("graphql_url and graphql_query must be set together"))
	}
	if c.SummaryEveryCycles != nil && *c.SummaryEveryCycles < 0 {
		errs = append(errs, errors.New("summary_every_cycles cannot be negative"))
	}
	return errors.Join(errs...)
}

// Load reads the config file, a missing file is allowed so the monitor can be
// configured through the environment alone.
func Load(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err = cfg.ApplyEnv(os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	return cfg.WithDefaults(), nil
}

func (c Config) Interval() time.Duration {
	return time.Duration(c.PollMinutes) * time.Minute
}

func (c Config) SummaryEvery() int {
	if c.SummaryEveryCycles == nil {
		return DefaultSummaryEveryCycles
	}
	return *c.SummaryEveryCycles
}

func (c Config) FetchOptions() fetch.Options {
	return fetch.Options{
		ProductURL:   c.ProductURL,
		VariantParam: c.VariantParam,
		GraphQLURL:   c.GraphQLURL,
		GraphQLQuery: c.GraphQLQuery,
		Headers:      c.Headers,
		MinDelay:     time.Duration(c.Probe.MinDelayMs) * time.Millisecond,
	}
}

// ResolveOptions leaves pacing to the fetch client, which spaces the probes
// together with the page and graphql requests.
func (c Config) ResolveOptions() resolve.Options {
	return resolve.Options{
		Timeout:     time.Duration(c.Probe.TimeoutSeconds) * time.Second,
		Concurrency: c.Probe.Concurrency,
	}
}

// Dispatchers creates a dispatcher for every configured endpoint.
func (c Config) Dispatchers(tel telemetry.API) (notify.Multi, error) {
	var out notify.Multi
	if c.WebhookURL != "" {
		webhook, err := notify.NewWebhook(c.WebhookURL, c.WebhookUsername, tel)
		if err != nil {
			return nil, err
		}
		out = append(out, webhook)
	}
	if c.Smtp.enabled() {
		out = append(out, notify.NewEmail(notify.EmailConfig{
			Server:       c.Smtp.Server,
			Port:         c.Smtp.Port,
			EmailAddress: c.Smtp.EmailAddress,
			Password:     c.Smtp.Password,
			To:           c.Smtp.To,
			Timeout:      time.Duration(c.Smtp.TimeoutSeconds) * time.Second,
		}, tel))
	}
	return out, nil
}
