package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Fetch.TimeoutSeconds != 60 || cfg.Fetch.Attempts != 3 || cfg.Fetch.RetryDelaySeconds != 5 {
		t.Errorf("fetch defaults = %+v", cfg.Fetch)
	}
	if cfg.Profiles == "" {
		t.Error("profiles path must have a default")
	}
	if cfg.Debug {
		t.Error("debug defaults to off")
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err != nil {
		t.Errorf("missing config file: %v", err)
	}
}

func TestLoadInvalidFileFails(t *testing.T) {
	path := writeConfig(t, "profiles: [unclosed")
	if _, err := Load(path, nil); err == nil {
		t.Error("expected parse failure")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeConfig(t, `
profiles: /srv/opds/servers.json
download_dir: /srv/opds/incoming
debug: true
fetch:
  timeout_seconds: 10
  attempts: 5
  retry_delay_seconds: 1
auth:
  hash_key: "abcd"
`)
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Profiles != "/srv/opds/servers.json" {
		t.Errorf("profiles = %q", cfg.Profiles)
	}
	if cfg.DownloadDir != "/srv/opds/incoming" {
		t.Errorf("download_dir = %q", cfg.DownloadDir)
	}
	if !cfg.Debug {
		t.Error("debug not read")
	}
	if cfg.Fetch.Attempts != 5 || cfg.Fetch.TimeoutSeconds != 10 || cfg.Fetch.RetryDelaySeconds != 1 {
		t.Errorf("fetch = %+v", cfg.Fetch)
	}
	if cfg.Auth.HashKey != "abcd" {
		t.Errorf("auth.hash_key = %q", cfg.Auth.HashKey)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "fetch:\n  attempts: 5\n")
	t.Setenv("OPDS_CLIENT_FETCH__ATTEMPTS", "7")
	t.Setenv("OPDS_CLIENT_DOWNLOAD_DIR", "/tmp/env-downloads")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Fetch.Attempts != 7 {
		t.Errorf("attempts = %d, want env value 7", cfg.Fetch.Attempts)
	}
	if cfg.DownloadDir != "/tmp/env-downloads" {
		t.Errorf("download_dir = %q", cfg.DownloadDir)
	}
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("download-dir", "", "")
	flags.Bool("debug", false, "")
	return flags
}

func TestFlagsOverrideEverything(t *testing.T) {
	path := writeConfig(t, "download_dir: /from/file\n")
	t.Setenv("OPDS_CLIENT_DOWNLOAD_DIR", "/from/env")

	flags := newFlags()
	if err := flags.Parse([]string{"--download-dir", "/from/flag", "--debug"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DownloadDir != "/from/flag" {
		t.Errorf("download_dir = %q, want flag value", cfg.DownloadDir)
	}
	if !cfg.Debug {
		t.Error("debug flag not applied")
	}
}

func TestUnchangedFlagsDoNotOverride(t *testing.T) {
	path := writeConfig(t, "download_dir: /from/file\n")

	flags := newFlags()
	if err := flags.Parse(nil); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DownloadDir != "/from/file" {
		t.Errorf("download_dir = %q, default flag value clobbered the file", cfg.DownloadDir)
	}
}

func TestBackfillRestoresBlankedValues(t *testing.T) {
	path := writeConfig(t, `
profiles: ""
fetch:
  timeout_seconds: 0
  attempts: -1
`)
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.Profiles != def.Profiles {
		t.Errorf("profiles = %q, want default", cfg.Profiles)
	}
	if cfg.Fetch.TimeoutSeconds != def.Fetch.TimeoutSeconds {
		t.Errorf("timeout = %d, want default", cfg.Fetch.TimeoutSeconds)
	}
	if cfg.Fetch.Attempts != def.Fetch.Attempts {
		t.Errorf("attempts = %d, want default", cfg.Fetch.Attempts)
	}
}

func TestEnvKeyMapping(t *testing.T) {
	cases := []struct{ raw, want string }{
		{"OPDS_CLIENT_DEBUG", "debug"},
		{"OPDS_CLIENT_DOWNLOAD_DIR", "download_dir"},
		{"OPDS_CLIENT_FETCH__TIMEOUT_SECONDS", "fetch.timeout_seconds"},
		{"OPDS_CLIENT_AUTH__HASH_KEY", "auth.hash_key"},
	}
	for _, c := range cases {
		if got := envKey(c.raw); got != c.want {
			t.Errorf("envKey(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}
