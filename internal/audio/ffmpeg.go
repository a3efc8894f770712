package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// DecodeFile decodes any ffmpeg-readable audio file into a mono Stream at the
// requested sample rate by piping raw f32le PCM out of ffmpeg. WAV files are
// decoded natively when they already match the requested rate.
func DecodeFile(ctx context.Context, path string, sampleRate int) (*Stream, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	if filepath.Ext(path) == ".wav" {
		s, err := ReadWAV(path)
		if err == nil && s.SampleRate() == sampleRate {
			return s, nil
		}
		// fall through to ffmpeg for resampling or odd encodings
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-v", "error",
		"-i", path,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "f32le",
		"pipe:1",
	)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: ffmpeg on %s: %v (%s)", ErrDecode, path, err, errBuf.String())
	}

	raw := out.Bytes()
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("%w: %s: truncated f32le payload", ErrDecode, path)
	}
	n := len(raw) / 4
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = float64(math.Float32frombits(bits))
	}
	return NewStream(path, sampleRate, samples)
}

// DefaultSampleRate is the processing rate used when the caller does not pick
// one. Correlation does not need full bandwidth; a low rate keeps chunk FFTs
// small.
const DefaultSampleRate = 11025

// ConvertToMonoWAV rewrites inputPath as a mono 16-bit PCM WAV in outputDir
// at the given rate and returns the new path. Used to stage compressed inputs
// for tools that only speak WAV.
func ConvertToMonoWAV(ctx context.Context, inputPath, outputDir string, sampleRate int) (string, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", outputDir, err)
	}

	base := filepath.Base(inputPath)
	outputPath := filepath.Join(outputDir, base[:len(base)-len(filepath.Ext(base))]+".wav")
	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: ffmpeg on %s: %v (%s)", ErrDecode, inputPath, err, out)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		return "", fmt.Errorf("moving converted file: %w", err)
	}
	return outputPath, nil
}
