package settings

import (
	"context"
	"testing"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// MockPrefs is an in-memory preferences store.
type MockPrefs struct {
	values map[string]string
}

func NewMockPrefs() *MockPrefs {
	return &MockPrefs{values: make(map[string]string)}
}

func (m *MockPrefs) GetPref(ctx context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", music.ErrNotFound
	}
	return value, nil
}

func (m *MockPrefs) SetPref(ctx context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func TestGet_FallsBackToDefault(t *testing.T) {
	service := NewService(NewMockPrefs())
	ctx := context.Background()

	value, err := service.Get(ctx, "playback.repeat")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if value != "OFF" {
		t.Errorf("expected default OFF, got %q", value)
	}

	if _, err := service.Get(ctx, "no.such.key"); err != ErrUnknownKey {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}

func TestSet_StoresAndShadowsDefault(t *testing.T) {
	service := NewService(NewMockPrefs())
	ctx := context.Background()

	if err := service.Set(ctx, "playback.repeat", "ALL"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	value, err := service.Get(ctx, "playback.repeat")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if value != "ALL" {
		t.Errorf("expected ALL, got %q", value)
	}

	if err := service.Set(ctx, "no.such.key", "x"); err != ErrUnknownKey {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}

func TestObserve_DeliversChanges(t *testing.T) {
	service := NewService(NewMockPrefs())
	ctx := context.Background()

	ch, cancel := service.Observe()
	defer cancel()

	if err := service.Set(ctx, "ui.theme", "light"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	change := <-ch
	if change.Key != "ui.theme" || change.Value != "light" {
		t.Errorf("unexpected change %+v", change)
	}
}

func TestGetAll_CoversEveryKnownKey(t *testing.T) {
	service := NewService(NewMockPrefs())

	all, err := service.GetAll(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(all) != len(defaults) {
		t.Errorf("expected %d settings, got %d", len(defaults), len(all))
	}
	for key := range defaults {
		if _, ok := all[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
}
