package client

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/tbourn/go-estate-backend/internal/search"
)

// Storage keys. The first three live in the session tier, the rest in the
// durable tier.
const (
	KeyProperties    = "search_properties"
	KeyFilters       = "search_filters"
	KeyInteracted    = "search_interacted"
	KeyToken         = "token"
	KeyUsername      = "username"
	KeySearchHistory = "search_history"
)

// DefaultLocalHistory is how many past queries the durable tier keeps.
const DefaultLocalHistory = 20

// Cache is the client-side state cache. Favorites are never cached; callers
// always fetch them from the backend.
type Cache struct {
	session      Storage
	durable      Storage
	historyLimit int
}

// NewCache combines a session tier and a durable tier.
func NewCache(session, durable Storage) *Cache {
	return &Cache{session: session, durable: durable, historyLimit: DefaultLocalHistory}
}

func getJSON(s Storage, key string, dst any) (bool, error) {
	raw, found, err := s.Get(key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func setJSON(s Storage, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(key, raw)
}

// Results returns the last successful search results.
func (c *Cache) Results() ([]Listing, error) {
	var out []Listing
	if _, err := getJSON(c.session, KeyProperties, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetResults overwrites the stored results.
func (c *Cache) SetResults(listings []Listing) error {
	if listings == nil {
		listings = []Listing{}
	}
	return setJSON(c.session, KeyProperties, listings)
}

// Filters returns the active structured filters (zero value if none).
func (c *Cache) Filters() (search.Filters, error) {
	var f search.Filters
	_, err := getJSON(c.session, KeyFilters, &f)
	return f, err
}

// SetFilters stores f; a zero f removes the key.
func (c *Cache) SetFilters(f search.Filters) error {
	if f.IsZero() {
		return c.session.Delete(KeyFilters)
	}
	return setJSON(c.session, KeyFilters, f)
}

// Interacted reports whether the user has searched or filtered in this
// session.
func (c *Cache) Interacted() (bool, error) {
	var v bool
	_, err := getJSON(c.session, KeyInteracted, &v)
	return v, err
}

// MarkInteracted sets the interaction flag. It is never unset except by
// ClearSearch.
func (c *Cache) MarkInteracted() error {
	return setJSON(c.session, KeyInteracted, true)
}

// ClearSearch drops results, filters and the interaction flag. Credentials
// and local history stay.
func (c *Cache) ClearSearch() error {
	for _, k := range []string{KeyProperties, KeyFilters, KeyInteracted} {
		if err := c.session.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Credentials returns the stored session token and display name.
func (c *Cache) Credentials() (token, username string, err error) {
	if _, err = getJSON(c.durable, KeyToken, &token); err != nil {
		return "", "", err
	}
	if _, err = getJSON(c.durable, KeyUsername, &username); err != nil {
		return "", "", err
	}
	return token, username, nil
}

func (c *Cache) SetCredentials(token, username string) error {
	if err := setJSON(c.durable, KeyToken, token); err != nil {
		return err
	}
	return setJSON(c.durable, KeyUsername, username)
}

func (c *Cache) ClearCredentials() error {
	if err := c.durable.Delete(KeyToken); err != nil {
		return err
	}
	return c.durable.Delete(KeyUsername)
}

// LocalHistory returns past queries, newest first.
func (c *Cache) LocalHistory() ([]string, error) {
	var out []string
	if _, err := getJSON(c.durable, KeySearchHistory, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddLocalHistory moves q to the front of the local history, dropping an
// older copy and anything past the limit.
func (c *Cache) AddLocalHistory(q string) error {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	prev, err := c.LocalHistory()
	if err != nil {
		return err
	}
	next := make([]string, 0, len(prev)+1)
	next = append(next, q)
	for _, p := range prev {
		if p != q && len(next) < c.historyLimit {
			next = append(next, p)
		}
	}
	return setJSON(c.durable, KeySearchHistory, next)
}
