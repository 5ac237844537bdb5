package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// Chain lines carry full quote arrays; allow long lines.
	maxLineSize = 4 * 1024 * 1024
)

// Replayer yields recorded session events from a JSONL file in stored
// order. Files with a .zst suffix are decompressed on the fly. A positive
// eventsPerSec paces delivery for live-like runs; zero replays flat out.
type Replayer struct {
	scanner *bufio.Scanner
	file    *os.File
	zstd    *zstd.Decoder
	limiter *rate.Limiter
	line    int
	logger  *zap.Logger
}

// OpenReplayer opens a recorded stream file.
func OpenReplayer(path string, eventsPerSec float64, logger *zap.Logger) (*Replayer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stream: %w", err)
	}

	r := &Replayer{file: file, logger: logger}

	var reader io.Reader = file
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		r.zstd = dec
		reader = dec
	}

	r.scanner = bufio.NewScanner(reader)
	r.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	if eventsPerSec > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(eventsPerSec), 1)
	}

	logger.Info("replayer opened",
		zap.String("path", path),
		zap.Bool("compressed", r.zstd != nil),
		zap.Float64("events_per_sec", eventsPerSec),
	)
	return r, nil
}

// Next returns the next event, or io.EOF when the stream is exhausted.
// Blank and malformed lines are skipped with a warning so one bad capture
// does not kill a whole replay.
func (r *Replayer) Next(ctx context.Context) (*Event, error) {
	for {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return nil, fmt.Errorf("reading stream: %w", err)
			}
			return nil, io.EOF
		}
		r.line++

		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			r.logger.Warn("skipping malformed line",
				zap.Int("line", r.line),
				zap.Error(err),
			)
			continue
		}

		switch event.Type {
		case "gex":
			if event.Gex == nil {
				r.logger.Warn("gex event without payload", zap.Int("line", r.line))
				continue
			}
		case "chain":
			if event.Chain == nil {
				r.logger.Warn("chain event without payload", zap.Int("line", r.line))
				continue
			}
		default:
			r.logger.Warn("unknown event type",
				zap.Int("line", r.line),
				zap.String("type", event.Type),
			)
			continue
		}

		return &event, nil
	}
}

// Close releases the underlying file and decoder.
func (r *Replayer) Close() error {
	if r.zstd != nil {
		r.zstd.Close()
	}
	return r.file.Close()
}
