package shared

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestParseJsoncConfig(t *testing.T) {
	src := []byte(`{
		// Comments and trailing commas are fine
		"log_level": "Info",
		"service_port": 8080,
		"db_file": "bots.sqlite",
		"reclaim_interval_sec": 600,
		"publisher": {
			"relay_url": "https://relay.example/post",
			"timeout_sec": 10,
			"dry_run": true,
		},
	}`)
	var cfg Config
	require.Nil(t, parseJsonc(src, &cfg))
	assert.Equal(t, "Info", cfg.LogLevel)
	assert.Equal(t, uint(8080), cfg.ServicePort)
	assert.Equal(t, "bots.sqlite", cfg.DbFile)
	assert.Equal(t, 600, cfg.ReclaimIntervalSec)
	assert.Equal(t, "https://relay.example/post", cfg.Publisher.RelayUrl)
	assert.True(t, cfg.Publisher.DryRun)
}

func TestParseJsoncSecrets(t *testing.T) {
	var secrets Secrets
	require.Nil(t, parseJsonc([]byte(`{"api_keys": ["k1", "k2",], "metrics_auth": "m"}`), &secrets))
	assert.Equal(t, []string{"k1", "k2"}, secrets.ApiKeys)
	assert.Equal(t, "m", secrets.MetricsAuth)
}

func TestParseJsoncBroken(t *testing.T) {
	var cfg Config
	assert.NotNil(t, parseJsonc([]byte(`{"log_level": `), &cfg))
}
