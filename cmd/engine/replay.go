package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/gexpin-engine/internal/engine"
	"github.com/dgnsrekt/gexpin-engine/internal/feed"
	"github.com/dgnsrekt/gexpin-engine/internal/journal"
)

func replayCmd() *cobra.Command {
	var (
		journalDate string
		noJournal   bool
	)

	cmd := &cobra.Command{
		Use:   "replay STREAM_FILE",
		Short: "Replay a recorded session deterministically",
		Long: `Replay a recorded session stream through the decision engine at full
speed and print the run summary.

The stream is a JSONL file of gex and chain events, optionally
zstd-compressed (.jsonl.zst). Replaying the same stream always produces
the same setups, transitions, and summary.

Examples:
  # Replay one session
  gexpin-engine replay sessions/2025-11-14.jsonl

  # Replay a compressed stream without journaling
  gexpin-engine replay --no-journal sessions/2025-11-14.jsonl.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			streamPath := args[0]

			var sinks []engine.Sink
			if !noJournal {
				j, err := journal.Open(cfg.Engine.JournalDir, journalDate, cfg.Engine.CompressJournal, logger)
				if err != nil {
					return err
				}
				defer func() {
					if err := j.Close(); err != nil {
						logger.Warn("closing journal", zap.Error(err))
					}
				}()
				sinks = append(sinks, journal.NewSink(j, logger))
			}

			eng, err := engine.New(cfg, logger, sinks...)
			if err != nil {
				return err
			}

			replayer, err := feed.OpenReplayer(streamPath, 0, logger)
			if err != nil {
				return err
			}
			defer func() { _ = replayer.Close() }()

			stats, err := eng.Run(ctx, replayer)
			if err != nil {
				return err
			}

			logger.Info("replay complete",
				zap.Int("snapshots", stats.Snapshots),
				zap.Int("chains", stats.Chains),
				zap.Int("opened", stats.Opened),
				zap.Float64("realized_pnl", stats.RealizedPnL),
			)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(stats); err != nil {
				return fmt.Errorf("printing summary: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&journalDate, "journal-date", "replay", "label for the journal file name")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "disable decision journaling")

	return cmd
}
