// Package catalog implements the browsing session over an OPDS server:
// a current feed, a back-navigation stack with breadcrumbs, and a forward
// pagination cursor. All network work runs off the calling goroutine;
// completions arrive as events and a stale completion is never applied
// after a newer request has been issued (last-request-wins).
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/evan-buss/opds-client/internal/fetch"
	"github.com/evan-buss/opds-client/internal/profile"
	"github.com/evan-buss/opds-client/opds"
)

// State is the session lifecycle state
type State int

const (
	StateIdle State = iota
	StateLoading
	StateViewing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateViewing:
		return "viewing"
	case StateFailed:
		return "failed"
	}
	return "idle"
}

// Crumb is one back-stack frame: the URL to return to and the label of the
// entry that was followed away from it.
type Crumb struct {
	URL   string
	Label string
}

// Event is one fetch completion delivered on the session's event channel.
// Feed is nil when Err is set. Events for superseded requests are never
// delivered.
type Event struct {
	Seq  uint64
	URL  string
	Feed *opds.Result
	Err  error
}

// ErrNotNavigation is returned by Enter when the current feed is not a
// navigation feed
var ErrNotNavigation = errors.New("current feed is not a navigation feed")

// ErrNoSession is returned by operations that need an open session
var ErrNoSession = errors.New("no feed is open")

// Session walks one OPDS catalog tree. Methods are safe for concurrent
// use; session state is only ever mutated under the session lock by the
// completion that still owns the latest sequence number.
type Session struct {
	fetcher *fetch.Client
	events  chan Event

	mu          sync.Mutex
	profile     profile.Server
	state       State
	currentURL  string
	current     *opds.Result
	backStack   []Crumb
	breadcrumbs []string
	pageStack   []string
	seq         uint64
	cancel      context.CancelFunc
}

// NewSession creates an idle session using the given fetcher
func NewSession(fetcher *fetch.Client) *Session {
	return &Session{
		fetcher: fetcher,
		events:  make(chan Event, 16),
	}
}

// Events delivers fetch completions. Callers must drain it; stale
// completions are filtered out before delivery.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Open loads the profile's root feed, resetting all navigation state once
// the load succeeds. Returns the sequence number of the started fetch.
func (s *Session) Open(server profile.Server) (uint64, error) {
	if err := profile.Validate(server); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.profile = server

	// stacks reset only on success, so a failed open leaves the prior
	// feed's navigation state intact for retry
	return s.startFetch(server.URL, func(res *opds.Result, fetched string) {
		s.backStack = nil
		s.pageStack = nil
		s.breadcrumbs = []string{"Home"}
		s.current = res
		s.currentURL = fetched
	}), nil
}

// Enter follows a navigation entry into its sub-catalog. The current feed
// must be a navigation feed and the entry must have a target URL.
func (s *Session) Enter(entry opds.NavEntry) (uint64, error) {
	if entry.URL == "" {
		return 0, fmt.Errorf("entry %q has no target URL", entry.Title)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.Kind != opds.KindNavigation {
		return 0, ErrNotNavigation
	}

	target := resolveURL(s.currentURL, entry.URL)
	label := entry.Title

	return s.startFetch(target, func(res *opds.Result, fetched string) {
		s.backStack = append(s.backStack, Crumb{URL: s.currentURL, Label: label})
		s.breadcrumbs = append(s.breadcrumbs, label)
		s.pageStack = nil
		s.current = res
		s.currentURL = fetched
	}), nil
}

// Back re-fetches the previous location. Always a live refetch, so the
// target is never stale after a server-side edit. No-op (seq 0) when the
// back stack is empty.
func (s *Session) Back() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.backStack) == 0 {
		return 0, nil
	}
	target := s.backStack[len(s.backStack)-1].URL

	return s.startFetch(target, func(res *opds.Result, fetched string) {
		s.backStack = s.backStack[:len(s.backStack)-1]
		s.breadcrumbs = s.breadcrumbs[:len(s.breadcrumbs)-1]
		s.pageStack = nil
		s.current = res
		s.currentURL = fetched
	}), nil
}

// Search queries the server by appending an encoded q parameter to the
// profile's base URL. Allowed from either feed kind; the breadcrumb is
// labeled with the query itself.
func (s *Session) Search(query string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentURL == "" {
		return 0, ErrNoSession
	}

	target := searchURL(s.profile.URL, query)

	return s.startFetch(target, func(res *opds.Result, fetched string) {
		s.backStack = append(s.backStack, Crumb{URL: s.currentURL, Label: query})
		s.breadcrumbs = append(s.breadcrumbs, query)
		s.pageStack = nil
		s.current = res
		s.currentURL = fetched
	}), nil
}

// NextPage advances within the current acquisition feed. Paging is lateral
// movement: breadcrumbs and the back stack stay untouched, and the prior
// page URL is remembered on the forward-page stack. No-op (seq 0) when the
// feed has no next link.
func (s *Session) NextPage() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return 0, ErrNoSession
	}
	next := s.current.NextURL()
	if next == "" {
		return 0, nil
	}

	target := resolveURL(s.currentURL, next)

	return s.startFetch(target, func(res *opds.Result, fetched string) {
		s.pageStack = append(s.pageStack, s.currentURL)
		s.current = res
		s.currentURL = fetched
	}), nil
}

// Refresh re-fetches the current URL with no stack mutation
func (s *Session) Refresh() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentURL == "" {
		return 0, ErrNoSession
	}

	return s.startFetch(s.currentURL, func(res *opds.Result, fetched string) {
		s.current = res
		s.currentURL = fetched
	}), nil
}

// Wait drains events until the completion for seq arrives. Events for
// older sequences are discarded along the way.
func (s *Session) Wait(ctx context.Context, seq uint64) (Event, error) {
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case ev := <-s.events:
			if ev.Seq < seq {
				continue
			}
			return ev, nil
		}
	}
}

// State returns the session lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the feed being viewed. On a failed load this is still
// the prior feed, so the caller can retry from it.
func (s *Session) Current() *opds.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CurrentURL returns the URL of the feed being viewed
func (s *Session) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentURL
}

// Breadcrumbs returns the navigation path labels from root to current
func (s *Session) Breadcrumbs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.breadcrumbs))
	copy(out, s.breadcrumbs)
	return out
}

// CanGoBack reports whether Back would navigate
func (s *Session) CanGoBack() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.backStack) > 0
}

// Profile returns the server profile the session is bound to
func (s *Session) Profile() profile.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// startFetch begins an asynchronous fetch+parse of target. A fetch already
// in flight is cancelled and its result discarded. The apply mutation runs
// under the session lock only when this fetch still owns the latest
// sequence number at completion. Callers must hold s.mu.
func (s *Session) startFetch(target string, apply func(res *opds.Result, fetched string)) uint64 {
	s.seq++
	seq := s.seq

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.state = StateLoading
	server := s.profile

	go func() {
		data, err := s.fetcher.Fetch(ctx, target, server)
		var res *opds.Result
		if err == nil {
			res, err = opds.Parse(data)
		}

		s.mu.Lock()
		if seq != s.seq {
			// superseded by a newer request
			s.mu.Unlock()
			return
		}
		if err != nil {
			// a failed load is not navigation: prior feed stays current
			s.state = StateFailed
			s.mu.Unlock()
			s.events <- Event{Seq: seq, URL: target, Err: err}
			return
		}
		apply(res, target)
		s.state = StateViewing
		s.mu.Unlock()
		s.events <- Event{Seq: seq, URL: target, Feed: res}
	}()

	return seq
}

// resolveURL resolves ref against base, tolerating an unparsable base
func resolveURL(base, ref string) string {
	if base == "" {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// searchURL appends an encoded q parameter to the profile's base URL
func searchURL(base, query string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "q=" + url.QueryEscape(query)
}
