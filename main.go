package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gorilla/securecookie"
	"github.com/spf13/pflag"

	"github.com/evan-buss/opds-client/internal/config"
	"github.com/evan-buss/opds-client/internal/profile"
)

func main() {
	flags := pflag.NewFlagSet("opds-client", pflag.ExitOnError)

	configPath := flags.String("config", defaultConfigPath(), "path to the YAML config file")
	flags.String("profiles", "", "path to the server profile store")
	flags.String("download-dir", "", "directory for downloaded files")
	flags.Bool("debug", false, "verbose human-readable logging")

	opts := options{}
	flags.StringVar(&opts.server, "server", "", "name of the stored server to browse")
	flags.StringVar(&opts.url, "url", "", "browse an ad-hoc feed URL instead of a stored server")
	flags.StringVar(&opts.username, "username", "", "basic auth username for --url")
	flags.StringVar(&opts.password, "password", "", "basic auth password for --url")
	flags.StringVar(&opts.search, "search", "", "search the server catalog")
	flags.IntVar(&opts.downloadIdx, "download", -1, "download the entry at this index of the listed feed")
	flags.StringVar(&opts.formatExt, "format", "", "preferred format extension for --download (e.g. epub)")
	flags.BoolVar(&opts.listServers, "list-servers", false, "list stored servers and exit")
	flags.BoolVar(&opts.addServer, "add", false, "store --server/--url/--username/--password as a new profile")

	if err := flags.Parse(os.Args[1:]); err != nil {
		fatal(err)
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		fatal(err)
	}

	if cfg.Debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	} else {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}

	a, err := newApp(cfg)
	if err != nil {
		fatal(err)
	}

	if err := a.run(context.Background(), opts); err != nil {
		fatal(err)
	}
}

// codecOptions builds the profile store's credential codec from the
// configured hex keys. No keys means credentials stay plaintext, matching
// stores written by older versions.
func codecOptions(cfg *config.Config) ([]profile.Option, error) {
	if cfg.Auth.HashKey == "" {
		return nil, nil
	}
	hashKey, err := hex.DecodeString(cfg.Auth.HashKey)
	if err != nil {
		return nil, fmt.Errorf("invalid auth.hash_key: %w", err)
	}
	var blockKey []byte
	if cfg.Auth.BlockKey != "" {
		blockKey, err = hex.DecodeString(cfg.Auth.BlockKey)
		if err != nil {
			return nil, fmt.Errorf("invalid auth.block_key: %w", err)
		}
	}
	return []profile.Option{profile.WithCodec(securecookie.New(hashKey, blockKey))}, nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "opds-client", "config.yaml")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
