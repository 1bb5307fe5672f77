package playlists

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// ParseM3U extracts entry paths from M3U content. Comment and directive
// lines are skipped; quotes around paths are stripped.
func ParseM3U(content string) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(strings.NewReader(content))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		path := strings.Trim(line, "\"'")
		if path != "" {
			paths = append(paths, path)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error parsing M3U content: %w", err)
	}
	return paths, nil
}

// GenerateM3U renders tracks as extended M3U. EXTINF durations are in
// seconds.
func GenerateM3U(tracks []*music.Track) string {
	var builder strings.Builder
	builder.WriteString("#EXTM3U\n")

	for _, track := range tracks {
		seconds := track.Duration / 1000
		fmt.Fprintf(&builder, "#EXTINF:%d,%s - %s\n", seconds, track.DisplayArtist(), track.DisplayTitle())
		builder.WriteString(track.ContentURI + "\n")
	}
	return builder.String()
}
