// Package marker reads and writes Audacity label tracks, the tab-separated
// "start\tend\ttitle" text format Audacity imports as a label layer.
package marker

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// TimeLabel is one Audacity label: a span on the recording with a title.
// Point labels have Start == End.
type TimeLabel struct {
	Start time.Duration
	End   time.Duration
	Title string
}

func (l TimeLabel) String() string {
	return fmt.Sprintf("%.4f\t%.4f\t%s", l.Start.Seconds(), l.End.Seconds(), l.Title)
}

// Write renders labels to w, one per line, in the order given.
func Write(w io.Writer, labels []TimeLabel) error {
	bw := bufio.NewWriter(w)
	for _, l := range labels {
		if _, err := fmt.Fprintln(bw, l.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes labels to path, creating parent directories as needed.
// The file is written to a temp sibling first and renamed into place so a
// failed run never leaves a truncated label track behind.
func WriteFile(path string, labels []TimeLabel) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".labels-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, labels); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Read parses a label track from r. Blank lines and # comments are skipped;
// a malformed line fails the whole read with its line number.
func Read(r io.Reader) ([]TimeLabel, error) {
	var labels []TimeLabel
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r\n")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		label, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		labels = append(labels, label)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}

// ReadFile parses the label track at path.
func ReadFile(path string) ([]TimeLabel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

func parseLine(line string) (TimeLabel, error) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) < 2 {
		return TimeLabel{}, fmt.Errorf("expected at least two tab-separated fields, got %q", line)
	}
	start, err := parseSeconds(parts[0])
	if err != nil {
		return TimeLabel{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseSeconds(parts[1])
	if err != nil {
		return TimeLabel{}, fmt.Errorf("end: %w", err)
	}
	label := TimeLabel{Start: start, End: end}
	if len(parts) == 3 {
		label.Title = parts[2]
	}
	return label, nil
}

func parseSeconds(s string) (time.Duration, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(v * float64(time.Second)), nil
}

// AutoOutPath derives the default label file for an audio file: the same
// path with the extension swapped for .txt.
func AutoOutPath(audioPath string) string {
	ext := filepath.Ext(audioPath)
	return strings.TrimSuffix(audioPath, ext) + ".txt"
}
