package config

import (
	"errors"
	"os"
	"strings"

	"github.com/tidwall/sjson"
)

// Env is a koanf provider that reads configuration from environment
// variables, building a nested JSON document with sjson so dotted keys map
// into sub-sections.
type Env struct {
	prefix string
	delim  string
	cb     func(key string, value string) (string, interface{})
	out    string
}

// Provider returns an Env provider for variables carrying the given
// prefix. cb maps a raw variable name to a koanf key; returning "" omits
// the variable.
func Provider(prefix, delim string, cb func(s string) string) *Env {
	e := &Env{
		prefix: prefix,
		delim:  delim,
		out:    "{}",
	}
	if cb != nil {
		e.cb = func(key string, value string) (string, interface{}) {
			return cb(key), value
		}
	}
	return e
}

// ReadBytes collects the matching environment variables into JSON bytes
// for a JSON parser to consume.
func (e *Env) ReadBytes() ([]byte, error) {
	var keys []string
	for _, k := range os.Environ() {
		if e.prefix == "" || strings.HasPrefix(k, e.prefix) {
			keys = append(keys, k)
		}
	}

	for _, k := range keys {
		parts := strings.SplitN(k, "=", 2)

		var (
			key   string
			value interface{}
		)
		if e.cb != nil {
			key, value = e.cb(parts[0], parts[1])
			if key == "" {
				continue
			}
		} else {
			key = parts[0]
			value = parts[1]
		}

		if err := e.set(key, value); err != nil {
			return []byte{}, err
		}
	}

	if e.out == "" {
		return []byte("{}"), nil
	}
	return []byte(e.out), nil
}

func (e *Env) set(key string, value interface{}) error {
	out, err := sjson.Set(e.out, strings.Replace(key, e.delim, ".", -1), value)
	if err != nil {
		return err
	}
	e.out = out
	return nil
}

// Read is not supported; use ReadBytes with a JSON parser.
func (e *Env) Read() (map[string]interface{}, error) {
	return nil, errors.New("env provider does not support this method")
}
