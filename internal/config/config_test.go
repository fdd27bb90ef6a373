package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"restockwatch/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg := Config{ProductURL: "https://shop.example/tee", WebhookURL: "https://hooks.example/1"}.WithDefaults()

	require.Equal(t, 5*time.Minute, cfg.Interval())
	require.Equal(t, "color", cfg.VariantParam)
	require.Equal(t, 12, cfg.SummaryEvery())
	require.Equal(t, 1500*time.Millisecond, cfg.FetchOptions().MinDelay)
	require.Zero(t, cfg.ResolveOptions().MinDelay)
	require.Equal(t, 20*time.Second, cfg.ResolveOptions().Timeout)
	require.Equal(t, 2, cfg.ResolveOptions().Concurrency)
	require.NoError(t, cfg.Validate())
}

func TestSummaryCanBeDisabled(t *testing.T) {
	zero := 0
	cfg := Config{SummaryEveryCycles: &zero}.WithDefaults()
	require.Equal(t, 0, cfg.SummaryEvery())
}

func TestApplyEnv(t *testing.T) {
	cfg, err := Config{
		ProductURL:  "https://shop.example/old",
		PollMinutes: 10,
	}.ApplyEnv(env(map[string]string{
		"RESTOCK_PRODUCT_URL":  "https://shop.example/tee",
		"RESTOCK_POLL_MINUTES": " 3 ",
		"RESTOCK_WEBHOOK_URL":  "https://hooks.example/1",
		"RESTOCK_COMMANDS":     "true",
		"RESTOCK_TRACKED":      "black, Midnight Blue,,",
		"RESTOCK_DB":           "restock.db",
	}))
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, "https://shop.example/tee", cfg.ProductURL)
	require.Equal(t, 3, cfg.PollMinutes)
	require.Equal(t, "https://hooks.example/1", cfg.WebhookURL)
	require.True(t, cfg.EnableCommands)
	require.Equal(t, []string{"black", "Midnight Blue"}, cfg.TrackedVariants)
	require.Equal(t, "restock.db", cfg.Database)
}

func TestApplyEnvInvalid(t *testing.T) {
	_, err := Config{}.ApplyEnv(env(map[string]string{"RESTOCK_POLL_MINUTES": "five"}))
	require.ErrorContains(t, err, "RESTOCK_POLL_MINUTES")

	_, err = Config{}.ApplyEnv(env(map[string]string{"RESTOCK_COMMANDS": "maybe"}))
	require.ErrorContains(t, err, "RESTOCK_COMMANDS")
}

func TestValidate(t *testing.T) {
	valid := Config{
		ProductURL: "https://shop.example/tee",
		WebhookURL: "https://hooks.example/1",
	}.WithDefaults()

	table := []struct {
		name   string
		modify func(c *Config)
		errMsg string
	}{
		{name: "valid", modify: func(c *Config) {}},
		{
			name:   "missing url",
			modify: func(c *Config) { c.ProductURL = "" },
			errMsg: "product_url is required",
		},
		{
			name:   "relative url",
			modify: func(c *Config) { c.ProductURL = "/p/tee" },
			errMsg: "not an absolute url",
		},
		{
			name:   "non positive interval",
			modify: func(c *Config) { c.PollMinutes = -1 },
			errMsg: "poll_minutes",
		},
		{
			name:   "no endpoint",
			modify: func(c *Config) { c.WebhookURL = "" },
			errMsg: "no notification endpoint",
		},
		{
			name: "smtp only",
			modify: func(c *Config) {
				c.WebhookURL = ""
				c.Smtp = SmtpConfig{Server: "smtp.example.com", Port: 587, To: []string{"me@example.com"}}
			},
		},
		{
			name: "smtp without recipients",
			modify: func(c *Config) {
				c.Smtp = SmtpConfig{Server: "smtp.example.com"}
			},
			errMsg: "smtp.to",
		},
		{
			name:   "graphql url without query",
			modify: func(c *Config) { c.GraphQLURL = "https://shop.example/graphql" },
			errMsg: "graphql_url and graphql_query",
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			cfg := valid
			row.modify(&cfg)
			err := cfg.Validate()
			if row.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, row.errMsg)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	err := os.WriteFile(path, []byte(`{
		// the product to watch
		product_url: "https://shop.example/tee",
		poll_minutes: 15,
		webhook_url: "https://hooks.example/1",
		tracked_variants: ["black"],
		probe: { min_delay_ms: 500 },
	}`), 0600)
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		poll_minutes: 1,
	}`), 0600)
	if err != nil {
		t.Fatal(err)
	}

	t.Setenv("RESTOCK_DB", filepath.Join(dir, "restock.db"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "https://shop.example/tee", cfg.ProductURL)
	require.Equal(t, 1, cfg.PollMinutes)
	require.Equal(t, []string{"black"}, cfg.TrackedVariants)
	require.Equal(t, 500, cfg.Probe.MinDelayMs)
	require.Equal(t, DefaultProbeConcurrency, cfg.Probe.Concurrency)
	require.Equal(t, filepath.Join(dir, "restock.db"), cfg.Database)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("RESTOCK_PRODUCT_URL", "https://shop.example/tee")
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json5"))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "https://shop.example/tee", cfg.ProductURL)
	require.ErrorContains(t, cfg.Validate(), "no notification endpoint")
}

func TestDispatchers(t *testing.T) {
	cfg := Config{
		WebhookURL: "https://hooks.example/1",
		Smtp:       SmtpConfig{Server: "smtp.example.com", To: []string{"me@example.com"}},
	}.WithDefaults()
	dispatchers, err := cfg.Dispatchers(telemetry.SlogAPI{})
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, dispatchers, 2)
}
