package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cuesync/pkg/cuesync"
	"cuesync/pkg/logger"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect archived alignment runs",
}

var runsLimit int

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc cuesync.Service) error {
			runs, err := svc.ListRuns(runsLimit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no archived runs")
				return nil
			}
			fmt.Printf("%-36s  %-19s  %8s  %s\n", "ID", "CREATED", "COVERAGE", "TARGET")
			for _, r := range runs {
				fmt.Printf("%-36s  %-19s  %7.1f%%  %s\n",
					r.ID, r.CreatedAt.Format(time.DateTime), r.Coverage*100, r.TargetPath)
			}
			return nil
		})
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one archived run with its segments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc cuesync.Service) error {
			run, err := svc.GetRun(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("run %s\n  reference: %s\n  target:    %s\n  created:   %s\n  coverage:  %.1f%%\n",
				run.ID, run.ReferencePath, run.TargetPath,
				run.CreatedAt.Format(time.DateTime), run.Coverage*100)
			for _, seg := range run.Segments {
				target := "-"
				if seg.Kind != cuesync.Gap {
					target = fmt.Sprintf("%s-%s", clock(seg.TargetStart), clock(seg.TargetEnd))
				}
				fmt.Printf("  %-10s %s-%s  %s\n", seg.Kind, clock(seg.RefStart), clock(seg.RefEnd), target)
			}
			return nil
		})
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc cuesync.Service) error {
			if err := svc.DeleteRun(args[0]); err != nil {
				return err
			}
			logger.Info("Deleted run %s", args[0])
			return nil
		})
	},
}

func withService(fn func(svc cuesync.Service) error) error {
	opts := []cuesync.Option{}
	if dbPath != "" {
		opts = append(opts, cuesync.WithDBPath(dbPath))
	}
	svc, err := cuesync.NewService(opts...)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}

func init() {
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum runs to list (0 = all)")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}
