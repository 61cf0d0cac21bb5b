package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/yanun0323/logs"

	"github.com/tianhm/nautilus-trader/internal/chaos"
	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/recorder"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// chaos rewrites an event journal through the chaos engine, so recovery and replay can be exercised
// against dropped, duplicated and reordered events.
func main() {
	inputDir := flag.String("input-dir", "testdata/journal", "Input journal directory")
	inputPrefix := flag.String("input-prefix", "", "Input segment prefix (default: events)")
	outputDir := flag.String("output-dir", "testdata/journal_chaos", "Output journal directory")
	outputPrefix := flag.String("output-prefix", "chaos", "Output segment prefix")
	seed := flag.Int64("seed", 0, "RNG seed (0=now)")
	dropRate := flag.Float64("drop-rate", 0, "Drop probability [0-1]")
	dupRate := flag.Float64("dup-rate", 0, "Duplicate probability [0-1]")
	reorderWindow := flag.Int("reorder-window", 1, "Reorder window (>=1)")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "Max payload size in bytes (0=unlimited)")
	flag.Parse()

	in := recorder.PlaybackConfig{
		Dir:             *inputDir,
		FilePrefix:      *inputPrefix,
		DisableChecksum: *noChecksum,
		MaxPayloadSize:  *maxPayload,
	}
	out := recorder.DefaultConfig(*outputDir)
	out.FilePrefix = *outputPrefix
	cfg := chaos.Config{
		Seed:          *seed,
		DropRate:      *dropRate,
		DuplicateRate: *dupRate,
		ReorderWindow: *reorderWindow,
	}

	read, written, err := rewrite(context.Background(), in, out, cfg)
	if err != nil {
		logs.Errorf("chaos rewrite failed, err: %+v", err)
		os.Exit(1)
	}
	logs.Infof("chaos rewrite done, read: %d, written: %d", read, written)
}

func rewrite(ctx context.Context, in recorder.PlaybackConfig, out recorder.Config, cfg chaos.Config) (int, int, error) {
	pb, err := recorder.NewPlayback(in)
	if err != nil {
		return 0, 0, err
	}
	engine, err := chaos.NewEngine(cfg)
	if err != nil {
		return 0, 0, errors.Wrap(err, "chaos config")
	}
	writer, err := recorder.NewWriter(out)
	if err != nil {
		return 0, 0, err
	}
	if err := writer.Start(ctx); err != nil {
		return 0, 0, err
	}

	var read, written int
	emit := func(ds []chaos.Delivery) error {
		for _, d := range ds {
			if err := appendEvent(ctx, writer, d.Event); err != nil {
				return err
			}
			written++
		}
		return nil
	}
	err = pb.Run(ctx, func(ev schema.Event) error {
		read++
		return emit(engine.Process(ev))
	})
	if err == nil {
		err = emit(engine.Flush())
	}
	if cerr := writer.Close(); err == nil {
		err = cerr
	}
	return read, written, err
}

// appendEvent retries while the writer queue is full.
func appendEvent(ctx context.Context, w *recorder.Writer, ev schema.Event) error {
	for {
		err := w.TryAppend(ev)
		if !errors.Is(err, exception.ErrJournalQueueFull) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}
