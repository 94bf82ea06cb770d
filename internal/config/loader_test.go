package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "imposter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoaderAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "{}\n")

	l, err := NewLoader(path)
	require.NoError(t, err)

	cfg := l.Config()
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 10*time.Minute, cfg.TTL.Email())
	assert.Equal(t, 10*time.Minute, cfg.TTL.Phone())
	assert.Equal(t, 24*time.Hour, cfg.TTL.Card())
	assert.Equal(t, 5*time.Second, cfg.Sync.PollInterval())
	assert.Equal(t, 16, cfg.Stream.Buffer)
	assert.Equal(t, float64(20), cfg.RateLimit.PerSecond)
	assert.False(t, cfg.Simulation.Disabled, "simulation runs by default")
}

func TestLoaderParsesValues(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9090"
cron_secret: "s3cret"
ttl:
  email_ms: 60000
providers:
  mailtm:
    enabled: true
simulation:
  disabled: true
`)

	l, err := NewLoader(path)
	require.NoError(t, err)

	cfg := l.Config()
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "s3cret", cfg.CronSecret)
	assert.Equal(t, time.Minute, cfg.TTL.Email())
	assert.Equal(t, 10*time.Minute, cfg.TTL.Phone(), "unset fields still defaulted")
	assert.True(t, cfg.Providers.MailTM.Enabled)
	assert.True(t, cfg.Simulation.Disabled)
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoaderBadYAML(t *testing.T) {
	path := writeConfig(t, "listen_addr: [unclosed\n")
	_, err := NewLoader(path)
	assert.Error(t, err)
}

func TestReloadNotifiesCallbacks(t *testing.T) {
	path := writeConfig(t, "listen_addr: \":9090\"\n")

	l, err := NewLoader(path)
	require.NoError(t, err)

	var got *Config
	l.OnChange(func(c *Config) { got = c })

	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":7070\"\n"), 0o644))
	cfg, err := l.Reload()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.ListenAddr)
	require.NotNil(t, got)
	assert.Equal(t, ":7070", got.ListenAddr)
	assert.Equal(t, ":7070", l.Config().ListenAddr)
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, "{}\n")
	l, err := NewLoader(path)
	require.NoError(t, err)
	assert.NoError(t, Validate(l.Config()))

	bad := *l.Config()
	bad.TTL.EmailMs = -1
	bad.RateLimit.PerSecond = -5
	err = Validate(&bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ttl")
}
