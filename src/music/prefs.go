package music

import "context"

// Preferences is the typed key-value store behind the settings feature.
// Reads after writes from the same process are eventually consistent; the
// settings service layers change notification on top.
type Preferences interface {
	GetPref(ctx context.Context, key string) (string, error)
	SetPref(ctx context.Context, key, value string) error
}
