package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"cuesync/internal/audio"
	"cuesync/internal/tags"
	"cuesync/pkg/cuesync"
	"cuesync/pkg/logger"
	"cuesync/pkg/marker"
	"cuesync/pkg/utils"
)

var alignCmd = &cobra.Command{
	Use:   "align <reference> <target>",
	Short: "Align a target recording against a reference",
	Long: `Align the target recording (the edited cut) against the reference (the raw
capture). Both arguments are audio files in any format ffmpeg can decode, or
streaming-site URLs when --fetch is given. Matched spans are written as an
Audacity label track next to the target unless --no-out is set.`,
	Args: cobra.ExactArgs(2),
	RunE: runAlign,
}

var (
	chunkDur    time.Duration
	overlap     float64
	window      time.Duration
	threshold   float64
	prominence  float64
	distance    time.Duration
	workers     int
	sampleRate  int
	outPath     string
	noOut       bool
	gapsOut     string
	cuesPath    string
	dryRun      bool
	assumeYes   bool
	minCoverage float64
	noArchive   bool
	fetch       bool
	tmpDir      string
)

func init() {
	alignCmd.Flags().DurationVar(&chunkDur, "chunk", 60*time.Second, "reference chunk duration")
	alignCmd.Flags().Float64Var(&overlap, "overlap", 0, "fraction of chunk shared by consecutive chunks, in [0,1)")
	alignCmd.Flags().DurationVar(&window, "window", 10*time.Minute, "search window around the running offset estimate (0 = full search)")
	alignCmd.Flags().Float64Var(&threshold, "threshold", 0.1, "absolute correlation score floor for a peak")
	alignCmd.Flags().Float64Var(&prominence, "prominence", 0.13, "minimum peak prominence")
	alignCmd.Flags().DurationVar(&distance, "distance", 8*time.Minute, "minimum distance between peaks on one curve")
	alignCmd.Flags().IntVarP(&workers, "workers", "j", 0, "correlation workers (default GOMAXPROCS)")
	alignCmd.Flags().IntVar(&sampleRate, "sample-rate", audio.DefaultSampleRate, "analysis sample rate in Hz")
	alignCmd.Flags().StringVarP(&outPath, "out", "o", "", "label track path (default: <target>.txt)")
	alignCmd.Flags().BoolVar(&noOut, "no-out", false, "do not write a label track")
	alignCmd.Flags().StringVar(&gapsOut, "gaps-out", "", "also write cut reference spans as labels to this path")
	alignCmd.Flags().StringVar(&cuesPath, "cues", "", "reference cue labels to carry onto the target timeline")
	alignCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print labels instead of writing files")
	alignCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "overwrite existing outputs without asking")
	alignCmd.Flags().Float64Var(&minCoverage, "min-coverage", 0, "fail when matched coverage is below this fraction")
	alignCmd.Flags().BoolVar(&noArchive, "no-archive", false, "do not archive the run")
	alignCmd.Flags().BoolVar(&fetch, "fetch", false, "treat URL arguments as remote media and download them first")
	alignCmd.Flags().StringVar(&tmpDir, "tmp", os.TempDir(), "staging directory for fetched and converted audio")

	rootCmd.AddCommand(alignCmd)
}

func runAlign(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refPath, err := resolveInput(ctx, args[0])
	if err != nil {
		return err
	}
	targetPath, err := resolveInput(ctx, args[1])
	if err != nil {
		return err
	}

	opts := []cuesync.Option{
		cuesync.WithChunkDuration(chunkDur),
		cuesync.WithOverlap(overlap),
		cuesync.WithSearchWindow(window),
		cuesync.WithScoreThreshold(threshold),
		cuesync.WithProminence(prominence),
		cuesync.WithMinPeakDistance(distance),
		cuesync.WithWorkers(workers),
		cuesync.WithSampleRate(sampleRate),
	}
	if noArchive {
		opts = append(opts, cuesync.WithoutArchive())
	} else if dbPath != "" {
		opts = append(opts, cuesync.WithDBPath(dbPath))
	}

	var bar *alignBar
	if !quiet {
		bar = newAlignBar()
		opts = append(opts, cuesync.WithProgress(bar))
	}

	svc, err := cuesync.NewService(opts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	preflight(ctx, refPath, targetPath)
	if meta, err := tags.ReadFile(refPath); err == nil && meta.Title != "" {
		logger.Info("Reference tags: %s - %s", meta.Artist, meta.Title)
	}

	res, err := svc.AlignFiles(ctx, refPath, targetPath)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	printSummary(res)

	if minCoverage > 0 && res.Coverage < minCoverage {
		return fmt.Errorf("coverage %.1f%% below required %.1f%%", res.Coverage*100, minCoverage*100)
	}

	if !noOut {
		path := outPath
		if path == "" {
			path = marker.AutoOutPath(targetPath)
		}
		if err := emitLabels(path, cuesync.Labels(res)); err != nil {
			return err
		}
	}
	if gapsOut != "" {
		if err := emitLabels(gapsOut, cuesync.CutLabels(res)); err != nil {
			return err
		}
	}
	if cuesPath != "" {
		cues, err := marker.ReadFile(cuesPath)
		if err != nil {
			return fmt.Errorf("reading cues: %w", err)
		}
		mapped := cuesync.MapCues(res, cues)
		logger.Info("Carried %d of %d cues onto the target timeline", len(mapped), len(cues))
		if err := emitLabels(cueOutPath(cuesPath), mapped); err != nil {
			return err
		}
	}
	return nil
}

// resolveInput downloads URL arguments when --fetch is set and stages them
// as mono WAV so later decodes take the native path; local paths pass through
// after an existence check.
func resolveInput(ctx context.Context, arg string) (string, error) {
	if fetch && (strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")) {
		logger.Info("Fetching %s", arg)
		path, meta, err := audio.FetchRemote(ctx, arg, tmpDir)
		if err != nil {
			return "", err
		}
		logger.Info("Fetched %q (%.0fs)", meta.Title, meta.Duration)
		return audio.ConvertToMonoWAV(ctx, path, tmpDir, sampleRate)
	}
	if _, err := os.Stat(arg); err != nil {
		return "", fmt.Errorf("input not found: %s", arg)
	}
	return arg, nil
}

// preflight probes both inputs and flags the suspicious case of an edited
// cut that is longer than its raw capture.
func preflight(ctx context.Context, refPath, targetPath string) {
	ref, err := audio.Probe(ctx, refPath)
	if err != nil {
		logger.Debug("ffprobe on %s: %v", refPath, err)
		return
	}
	target, err := audio.Probe(ctx, targetPath)
	if err != nil {
		logger.Debug("ffprobe on %s: %v", targetPath, err)
		return
	}
	logger.Debug("Reference %s: %.1fs %s, target %s: %.1fs %s",
		refPath, ref.DurationSec, ref.Format, targetPath, target.DurationSec, target.Format)
	if target.DurationSec > ref.DurationSec {
		logger.Warn("Target (%.0fs) is longer than the reference (%.0fs); arguments may be swapped",
			target.DurationSec, ref.DurationSec)
	}
}

func cueOutPath(cuesPath string) string {
	return strings.TrimSuffix(marker.AutoOutPath(cuesPath), ".txt") + ".mapped.txt"
}

func emitLabels(path string, labels []marker.TimeLabel) error {
	if dryRun {
		fmt.Printf("--- %s (dry run)\n", path)
		return marker.Write(os.Stdout, labels)
	}
	if !assumeYes && utils.FileExists(path) && !confirm(fmt.Sprintf("%s exists, overwrite?", path)) {
		logger.Warn("Skipped %s", path)
		return nil
	}
	if err := marker.WriteFile(path, labels); err != nil {
		return err
	}
	logger.Info("Wrote %d labels to %s", len(labels), path)
	return nil
}

func confirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func printSummary(res *cuesync.Result) {
	fmt.Printf("%-10s %-21s %-21s %-12s %s\n", "KIND", "REFERENCE", "TARGET", "OFFSET", "CONF")
	for _, seg := range res.Segments {
		target, offset := "-", "-"
		if seg.Kind != cuesync.Gap {
			target = fmt.Sprintf("%s-%s", clock(seg.TargetStart), clock(seg.TargetEnd))
			offset = fmt.Sprintf("%+.2fs", seg.Offset().Seconds())
		}
		conf := "-"
		if seg.Kind != cuesync.Gap {
			conf = fmt.Sprintf("%.2f", seg.Confidence)
		}
		fmt.Printf("%-10s %s-%s %-21s %-12s %s\n",
			seg.Kind, clock(seg.RefStart), clock(seg.RefEnd), target, offset, conf)
	}
	fmt.Printf("coverage: %.1f%% of %s", res.Coverage*100, clock(res.RefDuration))
	if res.RunID != "" {
		fmt.Printf("  run: %s", res.RunID)
	}
	fmt.Println()
}

func clock(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := d.Seconds() - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%04.1f", h, m, s)
}

// alignBar adapts an mpb bar to the progress interface. The job total grows
// batch by batch, so the bar runs in dynamic-total mode until Finish.
type alignBar struct {
	p     *mpb.Progress
	bar   *mpb.Bar
	total atomic.Int64
}

func newAlignBar() *alignBar {
	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
	bar := p.AddBar(0,
		mpb.PrependDecorators(
			decor.Name("Correlating: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)
	return &alignBar{p: p, bar: bar}
}

func (b *alignBar) AddTotal(n int) {
	b.bar.SetTotal(b.total.Add(int64(n)), false)
}

func (b *alignBar) Increment() {
	b.bar.Increment()
}

func (b *alignBar) Finish() {
	b.bar.SetTotal(b.total.Load(), true)
	b.p.Wait()
}
