package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "memory" {
		t.Fatalf("expected default backend memory, got %q", cfg.Storage.Backend)
	}
	if cfg.Ingest.Workers != 4 || cfg.Ingest.QueueDepth != 64 {
		t.Fatalf("expected default ingest settings, got %+v", cfg.Ingest)
	}
	if !cfg.Logging.Development {
		t.Fatalf("expected development logging by default")
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
storage:
  backend: postgres
  postgres:
    dsn: postgres://localhost/storygraph
    max_conns: 16
    min_conns: 2
ingest:
  workers: 8
  queue_depth: 256
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "postgres" || cfg.Storage.Postgres.DSN == "" {
		t.Fatalf("expected postgres overrides to apply: %+v", cfg.Storage)
	}
	if cfg.Storage.Postgres.MaxConns != 16 || cfg.Storage.Postgres.MinConns != 2 {
		t.Fatalf("expected pool sizes to apply: %+v", cfg.Storage.Postgres)
	}
	if cfg.Ingest.Workers != 8 || cfg.Ingest.QueueDepth != 256 {
		t.Fatalf("expected ingest overrides to apply: %+v", cfg.Ingest)
	}
	if cfg.Logging.Development {
		t.Fatalf("expected development logging to be off")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080},
		Storage: StorageConfig{Backend: "memory"},
		Ingest:  IngestConfig{Workers: 4, QueueDepth: 64},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "invalid workers",
			cfg: func() Config {
				c := base
				c.Ingest.Workers = 0
				return c
			}(),
			want: "ingest.workers",
		},
		{
			name: "invalid queue depth",
			cfg: func() Config {
				c := base
				c.Ingest.QueueDepth = 0
				return c
			}(),
			want: "ingest.queue_depth",
		},
		{
			name: "unknown backend",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "dynamo"
				return c
			}(),
			want: "storage.backend",
		},
		{
			name: "postgres without dsn",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "postgres"
				return c
			}(),
			want: "storage.postgres.dsn",
		},
		{
			name: "mongodb without uri",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "mongodb"
				return c
			}(),
			want: "storage.mongo.uri",
		},
		{
			name: "mongodb without database",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "mongodb"
				c.Storage.Mongo.URI = "mongodb://localhost"
				return c
			}(),
			want: "storage.mongo.database",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
