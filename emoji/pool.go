// Package emoji turns text into runs of emoji, one glyph per character.
package emoji

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Returned when a pool source cannot be read or parsed.
type ConfigurationError struct {
	// The local path or URL the pool was loaded from
	Source string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("emoji pool %q: %v", e.Source, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// An immutable mapping from a character to its candidate glyphs.
type Pool struct {
	entries map[rune][]string
}

// Builds a Pool from an in-memory mapping.
//
// Every key must be exactly one character.
func NewPool(entries map[string][]string) (*Pool, error) {
	pool := &Pool{entries: make(map[rune][]string, len(entries))}
	for key, glyphs := range entries {
		if utf8.RuneCountInString(key) != 1 {
			return nil, errors.Errorf("key %q is not a single character", key)
		}
		r, _ := utf8.DecodeRuneInString(key)
		pool.entries[r] = append([]string(nil), glyphs...)
	}
	return pool, nil
}

// Parses a JSON object of single-character keys to arrays of glyphs.
func ParsePool(r io.Reader) (*Pool, error) {
	var raw map[string][]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "failed to decode pool")
	}
	if raw == nil {
		return nil, errors.New("pool is not a JSON object")
	}
	return NewPool(raw)
}

// Loads a Pool from a local path or an http(s) URL.
//
// A nil client uses http.DefaultClient. Any failure is a *ConfigurationError.
func LoadPool(ctx context.Context, source string, client *http.Client) (*Pool, error) {
	var (
		body []byte
		err  error
	)
	if isHTTP(source) {
		body, err = fetch(ctx, source, client)
	} else {
		body, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, &ConfigurationError{Source: source, Err: err}
	}

	pool, err := ParsePool(bytes.NewReader(body))
	if err != nil {
		return nil, &ConfigurationError{Source: source, Err: err}
	}
	return pool, nil
}

func isHTTP(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func fetch(ctx context.Context, url string, client *http.Client) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("GET %q unexpected status: %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read resp.Body")
	}
	return body, nil
}

// Returns a copy of the candidates for r, or nil if r has none.
func (p *Pool) Candidates(r rune) []string {
	glyphs, ok := p.entries[r]
	if !ok || len(glyphs) == 0 {
		return nil
	}
	return append([]string(nil), glyphs...)
}

// The number of characters in the pool.
func (p *Pool) Len() int {
	return len(p.entries)
}
