package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorilla/securecookie"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const credentialsName = "credentials"

// Store is the ordered server-profile record store backed by a JSON file:
// {"servers": [...], "last_server": n}.
type Store struct {
	path  string
	codec *securecookie.SecureCookie

	mu           sync.Mutex
	servers      []Server
	lastSelected int
}

// Option configures a Store
type Option func(*Store)

// WithCodec enables at-rest encoding of stored credentials. Profiles saved
// while a codec is configured carry an encoded credentials blob instead of
// plaintext username/password fields.
func WithCodec(codec *securecookie.SecureCookie) Option {
	return func(s *Store) { s.codec = codec }
}

// Open loads the profile store at path. A missing file yields an empty
// store; the file is created on first save.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load profile store %q: %w", path, err)
	}

	if err := k.Unmarshal("servers", &s.servers); err != nil {
		return nil, fmt.Errorf("failed to decode servers in %q: %w", path, err)
	}
	s.lastSelected = k.Int("last_server")

	for i := range s.servers {
		s.migrate(&s.servers[i])
	}

	return s, nil
}

// migrate fills defaults for legacy records: entries written before the
// auth field existed are treated as basic, and encoded credentials are
// decoded back into the in-memory profile.
func (s *Store) migrate(srv *Server) {
	if srv.Auth == "" {
		srv.Auth = AuthBasic
	}
	if srv.Credentials != "" && s.codec != nil {
		var creds struct{ Username, Password string }
		if err := s.codec.Decode(credentialsName, srv.Credentials, &creds); err == nil {
			srv.Username = creds.Username
			srv.Password = creds.Password
		}
	}
}

// List returns a copy of the ordered profile list
func (s *Store) List() []Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Server, len(s.servers))
	copy(out, s.servers)
	return out
}

// Get returns the profile at index
func (s *Store) Get(index int) (Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.servers) {
		return Server{}, fmt.Errorf("no server at index %d", index)
	}
	return s.servers[index], nil
}

// Find returns the first profile whose name matches, or an error
func (s *Store) Find(name string) (Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, srv := range s.servers {
		if srv.Name == name {
			return srv, nil
		}
	}
	return Server{}, fmt.Errorf("no server named %q", name)
}

// Add validates and appends a profile, then persists
func (s *Store) Add(srv Server) error {
	if err := Validate(srv); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers = append(s.servers, srv)
	return s.save()
}

// Update validates and replaces the profile at index, then persists
func (s *Store) Update(index int, srv Server) error {
	if err := Validate(srv); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.servers) {
		return fmt.Errorf("no server at index %d", index)
	}
	s.servers[index] = srv
	return s.save()
}

// Remove deletes the profile at index, then persists
func (s *Store) Remove(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.servers) {
		return fmt.Errorf("no server at index %d", index)
	}
	s.servers = append(s.servers[:index], s.servers[index+1:]...)
	if s.lastSelected >= len(s.servers) && s.lastSelected > 0 {
		s.lastSelected = len(s.servers) - 1
	}
	return s.save()
}

// MoveUp swaps the profile at index with its predecessor
func (s *Store) MoveUp(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index <= 0 || index >= len(s.servers) {
		return nil
	}
	s.servers[index-1], s.servers[index] = s.servers[index], s.servers[index-1]
	return s.save()
}

// MoveDown swaps the profile at index with its successor
func (s *Store) MoveDown(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.servers)-1 {
		return nil
	}
	s.servers[index+1], s.servers[index] = s.servers[index], s.servers[index+1]
	return s.save()
}

// LastSelected returns the index of the most recently active server
func (s *Store) LastSelected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSelected
}

// SetLastSelected records the active server index and persists
func (s *Store) SetLastSelected(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSelected = index
	return s.save()
}

// save persists the store. Callers must hold s.mu.
func (s *Store) save() error {
	type storeFile struct {
		Servers    []Server `json:"servers"`
		LastServer int      `json:"last_server"`
	}

	out := storeFile{Servers: make([]Server, len(s.servers)), LastServer: s.lastSelected}
	copy(out.Servers, s.servers)

	for i := range out.Servers {
		srv := &out.Servers[i]
		if srv.Username == "" && srv.Password == "" {
			continue
		}
		if s.codec == nil {
			// plaintext is authoritative; a stale blob left over from a
			// codec-era file would otherwise decode over these fields on a
			// later codec-enabled load
			srv.Credentials = ""
			continue
		}
		creds := struct{ Username, Password string }{srv.Username, srv.Password}
		encoded, err := s.codec.Encode(credentialsName, creds)
		if err != nil {
			return fmt.Errorf("failed to encode credentials for %q: %w", srv.Name, err)
		}
		srv.Credentials = encoded
		srv.Username = ""
		srv.Password = ""
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0o600)
}
