package settings

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// ErrUnknownKey is returned for keys outside the registered set.
var ErrUnknownKey = errors.New("unknown settings key")

// Known settings keys with their defaults. Values are stored as strings;
// clients interpret them.
var defaults = map[string]string{
	"library.sort_order":   string(music.SortDateAddedDesc),
	"library.group_ghosts": "false",
	"playback.repeat":      "OFF",
	"playback.shuffle":     "false",
	"playback.volume":      "1.0",
	"ui.theme":             "dark",
}

// Change is one observed settings mutation.
type Change struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Service is a typed layer over the preferences store with change
// notification for long-lived observers.
type Service struct {
	prefs music.Preferences

	mu   sync.Mutex
	subs map[int]chan Change
	next int
}

// NewService creates a new settings service.
func NewService(prefs music.Preferences) *Service {
	return &Service{
		prefs: prefs,
		subs:  make(map[int]chan Change),
	}
}

// Get returns the stored value for key, falling back to its default.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	fallback, ok := defaults[key]
	if !ok {
		return "", ErrUnknownKey
	}

	value, err := s.prefs.GetPref(ctx, key)
	if errors.Is(err, music.ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// GetAll returns every known setting with defaults applied.
func (s *Service) GetAll(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(defaults))
	for key := range defaults {
		value, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

// Set stores a value and notifies observers.
func (s *Service) Set(ctx context.Context, key, value string) error {
	if _, ok := defaults[key]; !ok {
		return ErrUnknownKey
	}
	if err := s.prefs.SetPref(ctx, key, value); err != nil {
		slog.Error("Failed to store setting", "key", key, "error", err)
		return err
	}
	slog.Debug("Setting changed", "key", key, "value", value)
	s.notify(Change{Key: key, Value: value})
	return nil
}

// Observe returns a channel of settings changes. Call the returned function
// to unsubscribe. Slow observers lose intermediate changes.
func (s *Service) Observe() (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	ch := make(chan Change, 8)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
	return ch, cancel
}

func (s *Service) notify(change Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- change:
		default:
		}
	}
}
