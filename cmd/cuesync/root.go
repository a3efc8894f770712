package main

import (
	"github.com/spf13/cobra"

	"cuesync/pkg/logger"
)

var (
	verbose bool
	quiet   bool
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "cuesync",
	Short: "Align a raw recording against its edited cut",
	Long: `Cuesync aligns two recordings of overlapping audio content, typically a
long raw capture and an edited cut of it, and reports which spans survived,
where they moved to, and what was cut. Matched spans are written as an
Audacity label track for review.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	SilenceUsage:  true,
	SilenceErrors: false,
}

func setupLogging() {
	if verbose {
		logger.SetLevel(logger.DEBUG)
	}
	if quiet {
		logger.SetLevel(logger.ERROR)
	}
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "run archive path (default cuesync.sqlite3, CUESYNC_DB_PATH)")
}
