package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/evan-buss/opds-client/catalog"
	"github.com/evan-buss/opds-client/download"
	"github.com/evan-buss/opds-client/internal/config"
	"github.com/evan-buss/opds-client/internal/fetch"
	"github.com/evan-buss/opds-client/internal/formats"
	"github.com/evan-buss/opds-client/internal/profile"
	"github.com/evan-buss/opds-client/opds"
)

type options struct {
	server       string
	url          string
	username     string
	password     string
	search       string
	downloadIdx  int
	formatExt    string
	listServers  bool
	addServer    bool
}

type app struct {
	cfg     *config.Config
	store   *profile.Store
	session *catalog.Session
	dl      *download.Orchestrator
}

func newApp(cfg *config.Config) (*app, error) {
	storeOpts, err := codecOptions(cfg)
	if err != nil {
		return nil, err
	}
	store, err := profile.Open(cfg.Profiles, storeOpts...)
	if err != nil {
		return nil, err
	}

	fetcher := fetch.New()
	fetcher.Timeout = time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	fetcher.Attempts = cfg.Fetch.Attempts
	fetcher.RetryDelay = time.Duration(cfg.Fetch.RetryDelaySeconds) * time.Second

	return &app{
		cfg:     cfg,
		store:   store,
		session: catalog.NewSession(fetcher),
		dl:      download.NewOrchestrator(fetcher, nil, cfg.DownloadDir),
	}, nil
}

func (a *app) run(ctx context.Context, opts options) error {
	if opts.listServers {
		return a.listServers()
	}

	server, fromStore, index, err := a.selectServer(opts)
	if err != nil {
		return err
	}

	if opts.addServer {
		if err := a.store.Add(server); err != nil {
			return err
		}
		fmt.Printf("Added server %q\n", server.Name)
		return nil
	}

	seq, err := a.session.Open(server)
	if err != nil {
		return err
	}
	ev, err := a.session.Wait(ctx, seq)
	if err != nil {
		return err
	}
	if ev.Err != nil {
		return fmt.Errorf("failed to open %q: %w", server.URL, ev.Err)
	}

	if fromStore {
		if err := a.store.SetLastSelected(index); err != nil {
			slog.Warn("Failed to persist server selection", slog.Any("error", err))
		}
	}

	if opts.search != "" {
		seq, err = a.session.Search(opts.search)
		if err != nil {
			return err
		}
		ev, err = a.session.Wait(ctx, seq)
		if err != nil {
			return err
		}
		if ev.Err != nil {
			return fmt.Errorf("search failed: %w", ev.Err)
		}
	}

	if err := renderFeed(os.Stdout, a.session.Current(), a.session.Breadcrumbs()); err != nil {
		return err
	}

	if opts.downloadIdx >= 0 {
		return a.downloadEntry(ctx, opts)
	}
	return nil
}

func (a *app) listServers() error {
	servers := a.store.List()
	if len(servers) == 0 {
		fmt.Println("No servers configured")
		return nil
	}
	last := a.store.LastSelected()
	for i, s := range servers {
		marker := " "
		if i == last {
			marker = "*"
		}
		fmt.Printf("%s [%d] %s  %s (auth: %s)\n", marker, i, s.Name, s.URL, s.Auth)
	}
	return nil
}

// selectServer resolves the profile to browse: an ad-hoc --url profile, a
// named stored profile, or the last selected one.
func (a *app) selectServer(opts options) (profile.Server, bool, int, error) {
	if opts.url != "" {
		server := profile.Server{
			Name: "ad-hoc",
			URL:  opts.url,
			Auth: profile.AuthNone,
		}
		if opts.server != "" {
			server.Name = opts.server
		}
		if opts.username != "" {
			server.Auth = profile.AuthBasic
			server.Username = opts.username
			server.Password = opts.password
		}
		return server, false, 0, profile.Validate(server)
	}

	if opts.server != "" {
		servers := a.store.List()
		for i, s := range servers {
			if s.Name == opts.server {
				return s, true, i, nil
			}
		}
		return profile.Server{}, false, 0, fmt.Errorf("no server named %q; run with --list-servers", opts.server)
	}

	index := a.store.LastSelected()
	server, err := a.store.Get(index)
	if err != nil {
		return profile.Server{}, false, 0, errors.New("no servers configured; pass --url or add one with --add")
	}
	return server, true, index, nil
}

func (a *app) downloadEntry(ctx context.Context, opts options) error {
	current := a.session.Current()
	if current.Kind != opds.KindAcquisition {
		return errors.New("current feed has no downloadable entries")
	}
	entries := current.Acquisition.Entries
	if opts.downloadIdx >= len(entries) {
		return fmt.Errorf("no entry at index %d", opts.downloadIdx)
	}
	entry := entries[opts.downloadIdx]

	if len(entry.Formats) == 0 {
		// informational, not an error
		fmt.Printf("%q has no downloadable formats\n", entry.Title)
		return nil
	}

	format, err := pickFormat(entry, opts.formatExt)
	if err != nil {
		return err
	}

	path, err := a.dl.Download(ctx, download.Request{
		Entry:   entry,
		Format:  format,
		BaseURL: a.session.CurrentURL(),
		Server:  a.session.Profile(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Downloaded %q (%s, %s) to %s\n",
		entry.Title, format.Type, formats.DisplaySize(format.Size), path)
	return nil
}

// pickFormat chooses the requested extension, or the only/first format
// when none was requested.
func pickFormat(entry opds.BookEntry, ext string) (opds.Format, error) {
	if ext == "" {
		return entry.Formats[0], nil
	}
	for _, f := range entry.Formats {
		if f.Type == ext {
			return f, nil
		}
	}
	return opds.Format{}, fmt.Errorf("%q has no %s format", entry.Title, ext)
}
