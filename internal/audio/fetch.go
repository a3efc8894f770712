package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// RemoteMetadata describes a recording fetched from a streaming site.
type RemoteMetadata struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Uploader string  `json:"uploader"`
	Channel  string  `json:"channel"`
	Duration float64 `json:"duration"`
}

// FetchRemote downloads the best audio stream for url into outputDir using
// yt-dlp and returns the local path plus the remote metadata. The caller
// decodes the result like any local file.
func FetchRemote(ctx context.Context, url, outputDir string) (string, *RemoteMetadata, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating %s: %w", outputDir, err)
	}

	metaCmd := exec.CommandContext(ctx, "yt-dlp",
		"-J",
		"--no-warnings",
		"--no-playlist",
		url,
	)
	var stdout, stderr bytes.Buffer
	metaCmd.Stdout = &stdout
	metaCmd.Stderr = &stderr
	if err := metaCmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		return "", nil, fmt.Errorf("yt-dlp metadata for %s: %v (%s)", url, err, stderr.String())
	}

	var meta RemoteMetadata
	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		return "", nil, fmt.Errorf("parsing yt-dlp metadata: %w", err)
	}
	if strings.TrimSpace(meta.ID) == "" {
		return "", nil, fmt.Errorf("yt-dlp returned no media id for %s", url)
	}

	outputTemplate := filepath.Join(outputDir, meta.ID+".%(ext)s")
	dlCmd := exec.CommandContext(ctx, "yt-dlp",
		"-f", "ba",
		"--no-warnings",
		"--no-playlist",
		"-o", outputTemplate,
		url,
	)
	var dlStderr bytes.Buffer
	dlCmd.Stderr = &dlStderr
	if err := dlCmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		return "", nil, fmt.Errorf("yt-dlp download for %s: %v (%s)", url, err, dlStderr.String())
	}

	for _, ext := range []string{".m4a", ".webm", ".opus", ".mp3", ".aac", ".ogg"} {
		candidate := filepath.Join(outputDir, meta.ID+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, &meta, nil
		}
	}
	return "", nil, fmt.Errorf("downloaded audio for %s not found in %s", url, outputDir)
}
