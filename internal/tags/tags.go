// Package tags reads embedded audio metadata and maps cue points from the
// reference timeline onto an aligned target timeline.
package tags

import (
	"fmt"
	"os"

	"github.com/dhowden/tag"
)

// FileTags is the embedded metadata of an audio file that survives the
// alignment run onto its outputs.
type FileTags struct {
	Title  string
	Artist string
	Album  string
	Genre  string
	Year   int
	Track  int
}

// ReadFile extracts the embedded tags from the audio file at path. Files
// with no recognizable tag block return empty tags rather than an error.
func ReadFile(path string) (*FileTags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err == tag.ErrNoTagsFound {
		return &FileTags{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading tags from %s: %w", path, err)
	}
	track, _ := m.Track()
	return &FileTags{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Genre:  m.Genre(),
		Year:   m.Year(),
		Track:  track,
	}, nil
}
