package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// Metadata holds the subset of container/stream information cuesync needs for
// preflight checks and display.
type Metadata struct {
	Filename    string
	Title       string
	Artist      string
	Album       string
	DurationSec float64
	SampleRate  int
	Channels    int
	Format      string
}

type ffprobeOutput struct {
	Format struct {
		Filename string            `json:"filename"`
		Duration string            `json:"duration"`
		Format   string            `json:"format_name"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

func (p *ffprobeOutput) firstAudioStream() *ffprobeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "audio" {
			return &p.Streams[i]
		}
	}
	return nil
}

// Probe inspects path with ffprobe without decoding it.
func Probe(ctx context.Context, path string) (*Metadata, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: ffprobe on %s: %v", ErrDecode, path, err)
	}

	var probed ffprobeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		return nil, fmt.Errorf("%w: parsing ffprobe output for %s: %v", ErrDecode, path, err)
	}

	meta := &Metadata{
		Filename: probed.Format.Filename,
		Format:   probed.Format.Format,
	}
	if d, err := strconv.ParseFloat(probed.Format.Duration, 64); err == nil {
		meta.DurationSec = d
	}
	if tags := probed.Format.Tags; tags != nil {
		meta.Title = tags["title"]
		meta.Artist = tags["artist"]
		meta.Album = tags["album"]
	}
	if s := probed.firstAudioStream(); s != nil {
		meta.Channels = s.Channels
		if sr, err := strconv.Atoi(s.SampleRate); err == nil {
			meta.SampleRate = sr
		}
	}
	return meta, nil
}
