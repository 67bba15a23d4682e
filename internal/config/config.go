package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix marks environment variables consumed by the client; a double
// underscore descends into a sub-section (OPDS_CLIENT_FETCH__ATTEMPTS).
const envPrefix = "OPDS_CLIENT_"

// Config is the application configuration, merged from defaults, an
// optional YAML file, environment variables, and CLI flags (highest wins).
type Config struct {
	// Profiles is the path of the server-profile store file
	Profiles string `koanf:"profiles"`
	// DownloadDir receives downloaded files; empty means the system temp dir
	DownloadDir string `koanf:"download_dir"`
	Debug       bool   `koanf:"debug"`
	Fetch       Fetch  `koanf:"fetch"`
	Auth        Auth   `koanf:"auth"`
}

// Fetch tunes the feed fetcher's retry policy
type Fetch struct {
	TimeoutSeconds    int `koanf:"timeout_seconds"`
	Attempts          int `koanf:"attempts"`
	RetryDelaySeconds int `koanf:"retry_delay_seconds"`
}

// Auth carries the optional hex keys enabling at-rest encoding of stored
// credentials
type Auth struct {
	HashKey  string `koanf:"hash_key"`
	BlockKey string `koanf:"block_key"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Profiles: filepath.Join(configDir(), "servers.json"),
		Fetch: Fetch{
			TimeoutSeconds:    60,
			Attempts:          3,
			RetryDelaySeconds: 5,
		},
	}
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "opds-client")
}

// Load merges configuration for the given file path and flag set. A
// missing config file is not an error; an unreadable or invalid one is.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config %q: %w", path, err)
			}
		}
	}

	if err := k.Load(Provider(envPrefix, ".", envKey), kjson.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// only explicitly passed flags override file/env values
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flag config: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.backfill()
	return &cfg, nil
}

// backfill restores built-in defaults for values an override blanked out
func (c *Config) backfill() {
	def := Default()
	if c.Profiles == "" {
		c.Profiles = def.Profiles
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = def.Fetch.TimeoutSeconds
	}
	if c.Fetch.Attempts <= 0 {
		c.Fetch.Attempts = def.Fetch.Attempts
	}
	if c.Fetch.RetryDelaySeconds <= 0 {
		c.Fetch.RetryDelaySeconds = def.Fetch.RetryDelaySeconds
	}
}

// envKey maps OPDS_CLIENT_FETCH__TIMEOUT_SECONDS to fetch.timeout_seconds
func envKey(raw string) string {
	key := strings.ToLower(strings.TrimPrefix(raw, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}
