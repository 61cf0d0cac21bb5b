package recorder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tianhm/nautilus-trader/internal/codec"
	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// PlaybackConfig controls journal playback.
type PlaybackConfig struct {
	Dir             string
	FilePrefix      string
	Speed           float64
	DisableChecksum bool
	MaxPayloadSize  int
}

// Sleeper paces playback. Tests swap it for one that records the waits.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Playback replays journal segments in file order.
type Playback struct {
	cfg     PlaybackConfig
	sleeper Sleeper
}

// NewPlayback validates the config and creates a playback.
func NewPlayback(cfg PlaybackConfig) (*Playback, error) {
	if cfg.FilePrefix == "" {
		cfg.FilePrefix = defaultFilePrefix
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Playback{cfg: cfg, sleeper: realSleeper{}}, nil
}

// WithSleeper swaps the pacing implementation.
func (p *Playback) WithSleeper(s Sleeper) *Playback {
	if s != nil {
		p.sleeper = s
	}
	return p
}

// Validate checks if the config is usable.
func (c PlaybackConfig) Validate() error {
	switch {
	case c.Dir == "":
		return errors.Wrap(exception.ErrInvalidArgument, "playback dir is empty")
	case c.Speed < 0:
		return errors.Wrapf(exception.ErrInvalidArgument, "playback speed %v must be >= 0", c.Speed)
	case c.MaxPayloadSize < 0:
		return errors.Wrapf(exception.ErrInvalidArgument, "playback maxPayloadSize %d must be >= 0", c.MaxPayloadSize)
	}
	return nil
}

// Run decodes every journaled event and calls handler with it. A Speed above zero sleeps the event
// time gaps divided by Speed.
func (p *Playback) Run(ctx context.Context, handler func(schema.Event) error) error {
	if handler == nil {
		return errors.Wrap(exception.ErrNilInstance, "playback handler")
	}
	files, err := p.segments()
	if err != nil {
		return err
	}

	var prev time.Time
	for _, path := range files {
		if err := p.play(ctx, path, handler, &prev); err != nil {
			return err
		}
	}
	return nil
}

func (p *Playback) segments() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read journal dir %s", p.cfg.Dir)
	}
	prefix := p.cfg.FilePrefix + "-"
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, segmentSuffix) {
			continue
		}
		files = append(files, filepath.Join(p.cfg.Dir, name))
	}
	sort.Strings(files)
	return files, nil
}

func (p *Playback) play(ctx context.Context, path string, handler func(schema.Event) error, prev *time.Time) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open segment %s", path)
	}
	defer file.Close()

	reader := NewReader(file, ReaderOptions{
		DisableChecksum: p.cfg.DisableChecksum,
		MaxPayloadSize:  p.cfg.MaxPayloadSize,
	})
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		ev, err := codec.DecodeEvent(rec.Payload)
		if err != nil {
			return errors.Wrapf(err, "decode %s event %s", rec.Kind, rec.EventID)
		}
		if ev.Kind() != rec.Kind || ev.EventID() != rec.EventID {
			return errors.Wrapf(exception.ErrJournalCorrupted, "frame %s %s holds %s %s", rec.Kind, rec.EventID, ev.Kind(), ev.EventID())
		}

		if err := p.pace(ctx, rec.Timestamp, prev); err != nil {
			return err
		}
		if err := handler(ev); err != nil {
			return err
		}
	}
}

func (p *Playback) pace(ctx context.Context, ts time.Time, prev *time.Time) error {
	if p.cfg.Speed <= 0 || ts.IsZero() {
		return nil
	}
	if !prev.IsZero() {
		if delta := ts.Sub(*prev); delta > 0 {
			if err := p.sleeper.Sleep(ctx, time.Duration(float64(delta)/p.cfg.Speed)); err != nil {
				return err
			}
		}
	}
	*prev = ts
	return nil
}
