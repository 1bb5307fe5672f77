package scanning

import (
	"context"
	"testing"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

func TestEnumerator_NormalizesRows(t *testing.T) {
	index := &MockIndex{rows: []*music.Track{
		{
			ContentURI:   "/storage/Music/Album/01 - Song.flac",
			Title:        "Song",
			Artist:       "Björk",
			AlbumArtist:  "",
			Album:        "Album",
			Duration:     200_000,
			Size:         512,
			DateModified: testModTime(),
		},
	}}
	enumerator := NewEnumerator(index, 30_000)

	tracks, err := enumerator.Enumerate(context.Background(), []string{"/storage/Music"}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}

	got := tracks[0]
	if got.FileName != "01 - Song.flac" {
		t.Errorf("expected file name from URI, got %q", got.FileName)
	}
	if got.FolderPath != "/storage/Music/Album" {
		t.Errorf("expected folder from URI, got %q", got.FolderPath)
	}
	if got.DisplayPath != "Storage / storage / Music / Album" {
		t.Errorf("unexpected display path %q", got.DisplayPath)
	}
	if got.ArtistKey != "bjork" {
		t.Errorf("expected ASCII-folded artist key, got %q", got.ArtistKey)
	}
	if got.Status != music.StatusActive {
		t.Errorf("expected ACTIVE status, got %q", got.Status)
	}
}

func TestEnumerator_DropsRowsUnderDurationFloor(t *testing.T) {
	index := &MockIndex{rows: []*music.Track{
		row("/music/song.mp3", 31_000),
		row("/music/jingle.mp3", 29_000),
		row("/music/exactly.mp3", 30_000),
	}}
	enumerator := NewEnumerator(index, 30_000)

	tracks, err := enumerator.Enumerate(context.Background(), []string{"/music"}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks above the floor, got %d", len(tracks))
	}
	for _, track := range tracks {
		if track.Duration < 30_000 {
			t.Errorf("track under floor slipped through: %s (%dms)", track.ContentURI, track.Duration)
		}
	}
}

func TestEnumerator_ReportsProgress(t *testing.T) {
	var rows []*music.Track
	for i := 0; i < 130; i++ {
		rows = append(rows, row(trackURI(i), 180_000))
	}
	index := &MockIndex{rows: rows}
	enumerator := NewEnumerator(index, 0)

	var calls [][2]int
	_, err := enumerator.Enumerate(context.Background(), []string{"/music"}, func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// 130 rows: callbacks at 50, 100 and the final 130.
	if len(calls) != 3 {
		t.Fatalf("expected 3 progress callbacks, got %d: %v", len(calls), calls)
	}
	last := calls[len(calls)-1]
	if last[0] != 130 || last[1] != 130 {
		t.Errorf("final callback should report all rows, got %v", last)
	}
}

func TestDisplayPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/storage/emulated/0/Music", "Storage / storage / emulated / 0 / Music"},
		{"Music/Albums", "Storage / Music / Albums"},
		{"", "Storage"},
		{"/", "Storage"},
	}
	for _, tc := range cases {
		if got := DisplayPath(tc.in); got != tc.want {
			t.Errorf("DisplayPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
