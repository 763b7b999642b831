package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/config"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/logger"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/pipeline"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/publish"
)

func main() {
	root := &cobra.Command{
		Use:           "digest",
		Short:         "Daily AI news digest: fetch sources, summarize, publish to GitHub",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("date", "", "Snapshot date (YYYY-MM-DD, default today in UTC)")

	root.AddCommand(
		runCmd(),
		fetchCmd(),
		generateCmd(),
		publishCmd(),
		analyzeCmd(),
		scheduleCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		var missing *config.MissingError
		if errors.As(err, &missing) {
			log.Printf("Configuration error: %v", err)
		} else {
			log.Printf("Error: %v", err)
		}
		stop()
		os.Exit(1)
	}
}

// dateFlag returns --date or today's UTC date.
func dateFlag(cmd *cobra.Command, p *pipeline.Pipeline) (string, error) {
	date, _ := cmd.Flags().GetString("date")
	if date == "" {
		return p.Today(), nil
	}
	if err := pipeline.ValidateDate(date); err != nil {
		return "", err
	}
	return date, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch, summarize and publish today's digest once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			_, err = a.pipeline.Run(cmd.Context())
			return err
		},
	}
}

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch every source and store the day's snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			date, err := dateFlag(cmd, a.pipeline)
			if err != nil {
				return err
			}
			counts, err := a.pipeline.FetchAndStore(cmd.Context(), date)
			for _, t := range a.pipeline.Registry.Types() {
				fmt.Printf("%-14s %d\n", t, counts[t])
			}
			return err
		},
	}
}

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Summarize stored snapshots and print the digest and podcast script",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			date, err := dateFlag(cmd, a.pipeline)
			if err != nil {
				return err
			}
			art, err := a.pipeline.Generate(cmd.Context(), date)
			if err != nil {
				return err
			}
			fmt.Println(publish.FormatMarkdown(art.DailySummary))
			fmt.Println("---")
			fmt.Println(art.PodcastScript)
			return nil
		},
	}
}

func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Summarize stored snapshots and publish them to GitHub",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			date, err := dateFlag(cmd, a.pipeline)
			if err != nil {
				return err
			}
			art, err := a.pipeline.Generate(cmd.Context(), date)
			if err != nil {
				return err
			}
			results, err := a.pipeline.Publish(cmd.Context(), date, art)
			for _, r := range results {
				fmt.Printf("%-24s %s\n", r.Path, r.Status)
			}
			return err
		},
	}
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Print a trend analysis of the stored snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			date, err := dateFlag(cmd, a.pipeline)
			if err != nil {
				return err
			}
			out, err := a.pipeline.Analyze(cmd.Context(), date)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the full pipeline every day at SCHEDULE_HOUR_UTC",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			hour := a.cfg.ScheduleHourUTC
			if cmd.Flags().Changed("hour") {
				hour, _ = cmd.Flags().GetInt("hour")
			}
			if hour < 0 || hour > 23 {
				return fmt.Errorf("--hour must be between 0 and 23, got %d", hour)
			}
			if now, _ := cmd.Flags().GetBool("now"); now {
				if _, err := a.pipeline.Run(cmd.Context()); err != nil {
					a.log.Error("Initial run failed: %v", err)
				}
			}
			err = a.pipeline.Schedule(cmd.Context(), hour)
			if errors.Is(err, context.Canceled) {
				a.log.Info("Scheduler stopped")
				return nil
			}
			return err
		},
	}
	cmd.Flags().Int("hour", 0, "Override SCHEDULE_HOUR_UTC")
	cmd.Flags().Bool("now", false, "Also run once immediately")
	return cmd
}

// logFromConfig builds the root logger. Config errors are reported through
// the standard logger since there is no configured one yet.
func logFromConfig(cfg config.Config) (*logger.Logger, error) {
	return logger.NewLogger("DIGEST", logger.Options{
		Path:       cfg.Log.Path,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		MinLevel:   logger.GetLogLevelFromString(cfg.Log.Level),
	})
}
