package profile

import (
	"fmt"
	"strings"
)

// AuthMethod selects how requests to a server are authenticated
type AuthMethod string

const (
	AuthNone  AuthMethod = "none"
	AuthBasic AuthMethod = "basic"
)

// Server is one stored OPDS server profile. Identity is positional within
// the store's ordered list; Name is a display label, not a key.
type Server struct {
	Name     string     `json:"name" koanf:"name"`
	URL      string     `json:"url" koanf:"url"`
	Auth     AuthMethod `json:"auth" koanf:"auth"`
	Username string     `json:"username,omitempty" koanf:"username"`
	Password string     `json:"password,omitempty" koanf:"password"`
	// Credentials holds the securecookie-encoded username/password when
	// at-rest encoding is configured; plaintext fields are blanked on save.
	Credentials string `json:"credentials,omitempty" koanf:"credentials"`
}

// UseBasicAuth reports whether requests should carry basic credentials
func (s Server) UseBasicAuth() bool {
	return s.Auth == AuthBasic
}

// ValidationError reports caller-side profile input problems. These never
// reach the network layer.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid profile %s: %s", e.Field, e.Reason)
}

// Validate checks a profile before it is stored or used
func Validate(s Server) error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !strings.HasPrefix(s.URL, "http://") && !strings.HasPrefix(s.URL, "https://") {
		return &ValidationError{Field: "url", Reason: "must start with http:// or https://"}
	}
	return nil
}
