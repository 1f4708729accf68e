package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadRequiresArtifactPath(t *testing.T) {
	t.Setenv("ARTIFACT_PATH", "")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "ARTIFACT_PATH") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ARTIFACT_PATH", "models/artifact.json")
	t.Setenv("DATA_DIR", "/srv/data")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("FLUSH_INTERVAL", "250ms")
	t.Setenv("WORKER_COUNT", "not-a-number")
	for _, key := range []string{"ENV", "PORT", "REDIS_URL", "MASTER_DATASET", "UPCOMING_DATASET"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"port", cfg.Port, 5000},
		{"master", cfg.MasterDataset, "/srv/data/ufc-master.csv"},
		{"upcoming", cfg.UpcomingDataset, "/srv/data/upcoming.csv"},
		{"origins", len(cfg.AllowedOrigins), 2},
		{"flush", cfg.FlushInterval, 250 * time.Millisecond},
		{"workers", cfg.WorkerCount, 2},
		{"redis", cfg.RedisURL, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadValidates(t *testing.T) {
	t.Setenv("ARTIFACT_PATH", "artifact.json")
	t.Setenv("ENV", "staging")
	if _, err := Load(); err == nil {
		t.Error("expected validation error for unknown ENV")
	}
}
