package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const baseConfig = `fxrisk:
  name: "TestApp"
  version: "1.0"
api:
  account: "5WX00000"
stream:
  snapshot_timeout: 30s
storage:
  sqlite:
    path: "test.db"
`

// writeTempConfig creates a configuration file with content and returns its
// path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("APP_ENV", "")
	path := writeTempConfig(t, baseConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.App.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.App.Name)
	}
	if cfg.Stream.Channel != 3 {
		t.Errorf("unexpected default channel: %d", cfg.Stream.Channel)
	}
	if cfg.Stream.SnapshotTimeout != 30*time.Second {
		t.Errorf("unexpected snapshot timeout: %s", cfg.Stream.SnapshotTimeout)
	}
	if cfg.Stream.KeepaliveTimeout != 15 || cfg.Stream.AcceptKeepaliveTimeout != 20 {
		t.Errorf("unexpected keepalive defaults: %+v", cfg.Stream)
	}
	if got := cfg.Stream.KeepaliveEvery(); got != 7500*time.Millisecond {
		t.Errorf("keepalive every = %s", got)
	}
	if len(cfg.API.OptionRoots) != 5 {
		t.Errorf("unexpected option roots: %v", cfg.API.OptionRoots)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("TASTY_USER", "alice")
	t.Setenv("TASTY_PASSWORD", "secret")
	t.Setenv("TASTY_ACCOUNT", "5WX11111")
	t.Setenv("FXRISK_DB_PATH", "/tmp/override.db")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.example/hook")

	cfg, err := LoadConfig(writeTempConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.API.Username != "alice" || cfg.API.Password != "secret" || cfg.API.Account != "5WX11111" {
		t.Errorf("credentials not overridden: %+v", cfg.API)
	}
	if cfg.Storage.SQLite.Path != "/tmp/override.db" {
		t.Errorf("db path not overridden: %s", cfg.Storage.SQLite.Path)
	}
	if cfg.Notify.Discord.WebhookURL != "https://discord.example/hook" {
		t.Errorf("webhook not overridden: %s", cfg.Notify.Discord.WebhookURL)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("APP_ENV", "")
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing snapshot timeout",
			content: strings.Replace(baseConfig, "  snapshot_timeout: 30s\n", "", 1),
			wantErr: "snapshot_timeout",
		},
		{
			name:    "control channel",
			content: strings.Replace(baseConfig, "snapshot_timeout: 30s", "snapshot_timeout: 30s\n  channel: 0", 1),
			wantErr: "stream.channel",
		},
		{
			name:    "keepalive interval too long",
			content: strings.Replace(baseConfig, "snapshot_timeout: 30s", "snapshot_timeout: 30s\n  keepalive_interval: 20s", 1),
			wantErr: "keepalive_interval",
		},
		{
			name:    "bad bucket",
			content: baseConfig + "  s3:\n    enabled: true\n    bucket: \"Bad_Bucket\"\n    region: \"us-east-1\"\n",
			wantErr: "bucket",
		},
		{
			name:    "discord without url",
			content: baseConfig + "notify:\n  discord:\n    enabled: true\n",
			wantErr: "webhook_url",
		},
		{
			name:    "missing name",
			content: strings.Replace(baseConfig, "  name: \"TestApp\"\n", "", 1),
			wantErr: "fxrisk.name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeTempConfig(t, tt.content))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigProductionRequiresNotifier(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	_, err := LoadConfig(writeTempConfig(t, baseConfig))
	if err == nil || !strings.Contains(err.Error(), "notify.discord") {
		t.Fatalf("expected notifier requirement in production, got %v", err)
	}
}

func TestResolveEnvSpecificPath(t *testing.T) {
	paths := map[string]string{"production": "prod.yml"}

	t.Setenv("APP_ENV", "production")
	if got := resolveEnvSpecificPath("", "default.yml", paths); got != "prod.yml" {
		t.Errorf("default path resolved to %s", got)
	}
	if got := resolveEnvSpecificPath("custom.yml", "default.yml", paths); got != "custom.yml" {
		t.Errorf("explicit path resolved to %s", got)
	}

	t.Setenv("APP_ENV", "dev")
	if got := resolveEnvSpecificPath("", "default.yml", paths); got != "default.yml" {
		t.Errorf("development path resolved to %s", got)
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	cases := map[string]bool{
		"fx-risk-snapshots": true,
		"ab":                false,
		"Upper":             false,
		"a..b":              false,
		"bucket.":           false,
	}
	for name, want := range cases {
		if got := isValidS3Bucket(name); got != want {
			t.Errorf("isValidS3Bucket(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDeskLocation(t *testing.T) {
	loc, err := RiskConfig{DeskUTCOffsetHours: -6}.DeskLocation()
	if err != nil {
		t.Fatalf("DeskLocation: %v", err)
	}
	_, offset := time.Date(2024, 7, 1, 0, 0, 0, 0, loc).Zone()
	if offset != -6*3600 {
		t.Fatalf("offset = %d", offset)
	}

	if _, err := (RiskConfig{DeskTimezone: "Not/AZone"}).DeskLocation(); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}
