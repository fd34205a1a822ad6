// Package history keeps the bounded recent-search list, the last searched
// city and the theme preference in durable key-value storage.
//
// Storage failures never reach callers: reads fall back to defaults and
// failed writes are logged, with the returned values still reflecting the
// intended state for the current session.
package history

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/bobby-s-dev/weather-lookup/internal/storage"
	"go.uber.org/zap"
)

const (
	KeyRecent = "weather_recent"
	KeyLast   = "weather_last"
	KeyTheme  = "weather_theme"

	// KeyLegacy is read when KeyRecent has never been written. It is never written.
	KeyLegacy = "weather_history"

	DefaultCapacity = 5
)

type Store struct {
	mu       sync.Mutex
	kv       storage.Store
	capacity int
	logger   *zap.Logger
}

func NewStore(kv storage.Store, capacity int, logger *zap.Logger) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{kv: kv, capacity: capacity, logger: logger}
}

func (s *Store) Capacity() int {
	return s.capacity
}

// List returns the recent searches, most recent first.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list()
}

func (s *Store) list() []string {
	var entries []string
	if !s.readJSON(KeyRecent, &entries) {
		s.readJSON(KeyLegacy, &entries)
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" && !containsFold(out, e) {
			out = append(out, e)
		}
		if len(out) == s.capacity {
			break
		}
	}
	return out
}

// Add moves city to the front of the list, replacing any entry that differs
// only by case, and evicts the oldest entries beyond capacity.
func (s *Store) Add(city string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	city = strings.TrimSpace(city)
	current := s.list()
	if city == "" {
		return current
	}

	updated := make([]string, 0, s.capacity)
	updated = append(updated, city)
	for _, e := range current {
		if len(updated) == s.capacity {
			break
		}
		if !strings.EqualFold(e, city) {
			updated = append(updated, e)
		}
	}

	s.writeJSON(KeyRecent, updated)
	return updated
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeJSON(KeyRecent, []string{})
}

func (s *Store) LastCity() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var city string
	s.readJSON(KeyLast, &city)
	city = strings.TrimSpace(city)
	return city, city != ""
}

func (s *Store) SetLastCity(city string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeJSON(KeyLast, strings.TrimSpace(city))
}

// Theme returns the stored theme preference, or "" when none is set.
func (s *Store) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var theme string
	s.readJSON(KeyTheme, &theme)
	return theme
}

func (s *Store) SetTheme(theme string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeJSON(KeyTheme, theme)
}

// readJSON decodes key into dst and reports whether the key exists.
// Corrupt values are logged and otherwise ignored.
func (s *Store) readJSON(key string, dst any) bool {
	raw, ok, err := s.kv.Get(key)
	if err != nil {
		s.logger.Warn("Failed to read storage", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("Ignoring corrupt storage value", zap.String("key", key), zap.Error(err))
	}
	return true
}

// writeJSON serializes before touching storage so a failed encode never
// replaces the previously stored value.
func (s *Store) writeJSON(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("Failed to encode storage value", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.kv.Set(key, string(data)); err != nil {
		s.logger.Warn("Failed to persist storage value", zap.String("key", key), zap.Error(err))
	}
}

func containsFold(list []string, s string) bool {
	for _, e := range list {
		if strings.EqualFold(e, s) {
			return true
		}
	}
	return false
}
