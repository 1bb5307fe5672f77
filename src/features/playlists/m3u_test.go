package playlists

import (
	"strings"
	"testing"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

func TestParseM3U(t *testing.T) {
	content := `#EXTM3U
#EXTINF:213,Artist - Song One
/storage/Music/song1.mp3

#EXTINF:187,Artist - Song Two
"/storage/Music/song two.mp3"
# trailing comment
`
	paths, err := ParseM3U(content)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d: %v", len(paths), paths)
	}
	if paths[0] != "/storage/Music/song1.mp3" {
		t.Errorf("unexpected first path %q", paths[0])
	}
	if paths[1] != "/storage/Music/song two.mp3" {
		t.Errorf("expected quotes stripped, got %q", paths[1])
	}
}

func TestGenerateM3U(t *testing.T) {
	tracks := []*music.Track{
		{ContentURI: "/storage/Music/a.mp3", Title: "Alpha", Artist: "Someone", Duration: 213_000},
		{ContentURI: "/storage/Music/b.mp3", FileName: "b.mp3", Duration: 90_000},
	}

	content := GenerateM3U(tracks)

	if !strings.HasPrefix(content, "#EXTM3U\n") {
		t.Error("missing EXTM3U header")
	}
	if !strings.Contains(content, "#EXTINF:213,Someone - Alpha\n/storage/Music/a.mp3\n") {
		t.Errorf("missing first entry, got:\n%s", content)
	}
	if !strings.Contains(content, "#EXTINF:90,Unknown Artist - b\n/storage/Music/b.mp3\n") {
		t.Errorf("missing fallback entry, got:\n%s", content)
	}
}

func TestM3URoundTrip(t *testing.T) {
	tracks := []*music.Track{
		{ContentURI: "/a.flac", Title: "A", Artist: "X", Duration: 60_000},
		{ContentURI: "/b.flac", Title: "B", Artist: "Y", Duration: 61_000},
	}

	paths, err := ParseM3U(GenerateM3U(tracks))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(paths) != 2 || paths[0] != "/a.flac" || paths[1] != "/b.flac" {
		t.Errorf("round trip lost entries: %v", paths)
	}
}
