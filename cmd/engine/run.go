package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/gexpin-engine/internal/engine"
	"github.com/dgnsrekt/gexpin-engine/internal/feed"
	"github.com/dgnsrekt/gexpin-engine/internal/journal"
	"github.com/dgnsrekt/gexpin-engine/internal/server"
)

func runCmd() *cobra.Command {
	var (
		streams      []string
		eventsPerSec float64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine over session streams with the status server",
		Long: `Run the decision engine over one or more session streams, paced to
simulate live delivery, with the HTTP status server and WebSocket event
stream attached.

Each stream file carries one ticker's session and is consumed by its own
goroutine; positions for different tickers advance independently.

Examples:
  # One ticker at the configured pace
  gexpin-engine run --stream sessions/spx_2025-11-14.jsonl

  # Two tickers side by side
  gexpin-engine run --stream sessions/spx.jsonl --stream sessions/ndx.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(streams) == 0 {
				return errors.New("at least one --stream is required")
			}

			date := time.Now().Format("2006-01-02")
			j, err := journal.Open(cfg.Engine.JournalDir, date, cfg.Engine.CompressJournal, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := j.Close(); err != nil {
					logger.Warn("closing journal", zap.Error(err))
				}
			}()

			eng, err := engine.New(cfg, logger)
			if err != nil {
				return err
			}
			eng.AddSink(journal.NewSink(j, logger))

			var srv *server.Server
			if cfg.Server.Enabled {
				srv = server.New(eng, cfg.Server.Addr, cfg.Server.StreamPerSec, logger)
				eng.AddSink(srv)
			}

			serverErr := make(chan error, 1)
			if srv != nil {
				go func() {
					if err := srv.Start(ctx); err != nil {
						serverErr <- err
					}
				}()
			}

			pace := eventsPerSec
			if pace <= 0 && cfg.Engine.PollInterval > 0 {
				pace = float64(time.Second) / float64(cfg.Engine.PollInterval) * 2
			}

			var wg sync.WaitGroup
			streamErrs := make(chan error, len(streams))
			for _, path := range streams {
				wg.Add(1)
				go func(path string) {
					defer wg.Done()

					replayer, err := feed.OpenReplayer(path, pace, logger)
					if err != nil {
						streamErrs <- err
						return
					}
					defer func() { _ = replayer.Close() }()

					stats, err := eng.Run(ctx, replayer)
					if err != nil {
						streamErrs <- fmt.Errorf("stream %s: %w", path, err)
						return
					}
					logger.Info("stream exhausted",
						zap.String("stream", path),
						zap.Int("snapshots", stats.Snapshots),
						zap.Int("opened", stats.Opened),
					)
				}(path)
			}

			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutdown signal received")
				wg.Wait()
				return nil
			case err := <-serverErr:
				return err
			case err := <-streamErrs:
				return err
			case <-done:
				stats := eng.StatsSnapshot()
				logger.Info("session complete",
					zap.Int("snapshots", stats.Snapshots),
					zap.Int("chains", stats.Chains),
					zap.Int("opened", stats.Opened),
					zap.Float64("realized_pnl", stats.RealizedPnL),
				)
				return nil
			}
		},
	}

	cmd.Flags().StringSliceVar(&streams, "stream", nil, "session stream file, one per ticker (repeatable)")
	cmd.Flags().Float64Var(&eventsPerSec, "events-per-sec", 0, "replay pacing per stream (0 derives from poll_interval)")

	return cmd
}
