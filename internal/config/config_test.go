package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tkerrors "github.com/systmms/ticketrot/internal/errors"
	"github.com/systmms/ticketrot/internal/logging"
)

func writeConfig(t *testing.T, content string) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticketrot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return &Config{Path: path, Logger: logging.New(false, true)}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg := writeConfig(t, `
servers:
  - web1.example.com
`)
	require.NoError(t, cfg.Load())

	def := cfg.Definition
	assert.Equal(t, DefaultStorageRoot, def.StorageRoot)
	assert.Equal(t, DefaultGenerations, def.Generations)
	assert.Equal(t, DefaultKeyBytes, def.KeyBytes)
	assert.Equal(t, "nginx", def.ServerBinary)
	assert.Equal(t, 12*time.Hour, def.RotationDuration())
	assert.Equal(t, 12*time.Hour+10*time.Minute, def.ReloadDuration())
}

func TestLoadFullConfig(t *testing.T) {
	cfg := writeConfig(t, `
version: 0
storage_root: /mnt/ticket-keys
generations: 5
key_bytes: 80
rotation_interval: 6h
reload_interval: 6h5m
reload_command: systemctl reload nginx
server_binary: nginx
min_server_version: "1.5.9"
metrics_textfile: /var/lib/node_exporter/ticketrot.prom
servers:
  - web1
  - web2.example.com
`)
	require.NoError(t, cfg.Load())

	def := cfg.Definition
	assert.Equal(t, "/mnt/ticket-keys", def.StorageRoot)
	assert.Equal(t, 5, def.Generations)
	assert.Equal(t, 80, def.KeyBytes)
	assert.Equal(t, []string{"web1", "web2.example.com"}, def.Servers)
	assert.Equal(t, "1.5.9", def.MinServerVersion)
}

func TestLoadMissingFile(t *testing.T) {
	cfg := &Config{
		Path:   filepath.Join(t.TempDir(), "absent.yaml"),
		Logger: logging.New(false, true),
	}

	err := cfg.Load()
	var cfgErr tkerrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadInvalidYAML(t *testing.T) {
	cfg := writeConfig(t, "servers: [unclosed\n  nested: wrong")
	err := cfg.Load()
	var cfgErr tkerrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadSchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no servers", "generations: 3\n"},
		{"empty servers", "servers: []\n"},
		{"zero generations", "generations: 0\nservers: [web1]\n"},
		{"too many generations", "generations: 64\nservers: [web1]\n"},
		{"tiny key", "key_bytes: 4\nservers: [web1]\n"},
		{"bad server name", "servers: ['../etc/passwd']\n"},
		{"leading dash server", "servers: ['-web1']\n"},
		{"unknown field", "servers: [web1]\nfrobnicate: yes\n"},
		{"wrong version", "version: 3\nservers: [web1]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := writeConfig(t, tt.content)
			err := cfg.Load()
			var cfgErr tkerrors.ConfigError
			require.ErrorAs(t, err, &cfgErr, "expected ConfigError, got %v", err)
		})
	}
}

func TestLoadSemanticViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			"duplicate servers",
			"servers: [web1, web1]\n",
			"duplicate",
		},
		{
			"bad rotation interval",
			"rotation_interval: soonish\nservers: [web1]\n",
			"duration",
		},
		{
			"rotation interval too short",
			"rotation_interval: 10s\nreload_interval: 20s\nservers: [web1]\n",
			"at least one minute",
		},
		{
			"reload before rotation",
			"rotation_interval: 12h\nreload_interval: 6h\nservers: [web1]\n",
			"must exceed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := writeConfig(t, tt.content)
			err := cfg.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
