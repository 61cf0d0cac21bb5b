package recorder

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

var start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func accountState(n int, total string) schema.AccountState {
	return schema.AccountState{
		EventHeader:    schema.NewHeader(uuid.New(), start.Add(time.Duration(n)*time.Second)),
		AccountID:      model.NewAccountID("SIM", "001"),
		Balances:       []model.Money{model.MustMoney(total, model.USD)},
		BalancesFree:   []model.Money{model.MustMoney(total, model.USD)},
		BalancesLocked: []model.Money{model.ZeroMoney(model.USD)},
	}
}

func submitted(n int) schema.OrderSubmitted {
	return schema.OrderSubmitted{
		EventHeader:   schema.NewHeader(uuid.New(), start.Add(time.Duration(n)*time.Second)),
		AccountID:     model.NewAccountID("SIM", "001"),
		ClientOrderID: "O-1",
		SubmittedTime: start,
	}
}

func record(t *testing.T, cfg Config, events ...schema.Event) {
	t.Helper()
	w, err := NewWriter(cfg)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	for _, ev := range events {
		require.NoError(t, w.TryAppend(ev))
	}
	require.NoError(t, w.Close())
	assert.Equal(t, uint64(len(events)), w.Written())
}

func replay(t *testing.T, cfg PlaybackConfig) []schema.Event {
	t.Helper()
	p, err := NewPlayback(cfg)
	require.NoError(t, err)
	var out []schema.Event
	require.NoError(t, p.Run(context.Background(), func(ev schema.Event) error {
		out = append(out, ev)
		return nil
	}))
	return out
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		desc   string
		modify func(cfg *Config)
		ok     bool
	}{
		{desc: "default", ok: true},
		{desc: "empty dir", modify: func(cfg *Config) { cfg.Dir = "" }},
		{desc: "negative segment size", modify: func(cfg *Config) { cfg.SegmentMaxBytes = -1 }},
		{desc: "negative flush interval", modify: func(cfg *Config) { cfg.FlushInterval = -time.Second }},
		{desc: "negative sync interval", modify: func(cfg *Config) { cfg.SyncInterval = -time.Second }},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := DefaultConfig("journal")
			if tc.modify != nil {
				tc.modify(&cfg)
			}
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, exception.ErrInvalidArgument)
		})
	}
}

func TestRecordAndReplay(t *testing.T) {
	dir := t.TempDir()
	events := []schema.Event{
		accountState(0, "1000000.00"),
		submitted(1),
		accountState(2, "999998.00"),
	}
	record(t, DefaultConfig(dir), events...)

	got := replay(t, PlaybackConfig{Dir: dir})
	require.Len(t, got, len(events))
	for i, ev := range got {
		assert.Equal(t, events[i].Kind(), ev.Kind())
		assert.Equal(t, events[i].EventID(), ev.EventID())
	}
	acc, ok := got[2].(schema.AccountState)
	require.True(t, ok)
	assert.Equal(t, "999,998.00 USD", acc.Balances[0].String())
}

func TestSegmentRotation(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.SegmentMaxBytes = 1

	var events []schema.Event
	for i := 0; i < 5; i++ {
		events = append(events, submitted(i))
	}
	record(t, cfg, events...)

	files, err := filepath.Glob(filepath.Join(dir, "*"+segmentSuffix))
	require.NoError(t, err)
	assert.Len(t, files, 5)

	got := replay(t, PlaybackConfig{Dir: dir})
	require.Len(t, got, 5)
	for i, ev := range got {
		assert.Equal(t, events[i].EventID(), ev.EventID())
	}
}

func TestAppendLifecycle(t *testing.T) {
	w, err := NewWriter(DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	assert.ErrorIs(t, w.TryAppend(submitted(0)), exception.ErrJournalNotStarted)

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.TryAppend(submitted(0)), exception.ErrJournalClosed)
}

func TestReaderDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	record(t, DefaultConfig(dir), accountState(0, "1000000.00"))
	files, err := filepath.Glob(filepath.Join(dir, "*"+segmentSuffix))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)

	testCases := []struct {
		desc   string
		mutate func(b []byte) []byte
		err    error
	}{
		{
			desc:   "payload byte flipped",
			mutate: func(b []byte) []byte { b[frameHeaderSize+2] ^= 0xff; return b },
			err:    exception.ErrJournalCorrupted,
		},
		{
			desc:   "bad magic",
			mutate: func(b []byte) []byte { b[0] = 'X'; return b },
			err:    exception.ErrJournalCorrupted,
		},
		{
			desc:   "truncated",
			mutate: func(b []byte) []byte { return b[:len(b)-2] },
			err:    io.ErrUnexpectedEOF,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			b := tc.mutate(append([]byte(nil), data...))
			_, err := NewReader(bytes.NewReader(b), ReaderOptions{}).Next()
			assert.ErrorIs(t, err, tc.err)
		})
	}

	_, err = NewReader(bytes.NewReader(nil), ReaderOptions{}).Next()
	assert.ErrorIs(t, err, io.EOF)

	_, err = NewReader(bytes.NewReader(data), ReaderOptions{MaxPayloadSize: 8}).Next()
	assert.ErrorIs(t, err, exception.ErrJournalPayloadTooLarge)
}

type recordingSleeper struct{ waits []time.Duration }

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func TestPlaybackPacing(t *testing.T) {
	dir := t.TempDir()
	record(t, DefaultConfig(dir), submitted(0), submitted(2), submitted(6))

	p, err := NewPlayback(PlaybackConfig{Dir: dir, Speed: 2})
	require.NoError(t, err)
	sleeper := &recordingSleeper{}
	p.WithSleeper(sleeper)
	require.NoError(t, p.Run(context.Background(), func(schema.Event) error { return nil }))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.waits)
}

func TestPlaybackStopsOnHandlerError(t *testing.T) {
	dir := t.TempDir()
	record(t, DefaultConfig(dir), submitted(0), submitted(1))

	p, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)
	calls := 0
	err = p.Run(context.Background(), func(schema.Event) error {
		calls++
		return exception.ErrInternal
	})
	assert.ErrorIs(t, err, exception.ErrInternal)
	assert.Equal(t, 1, calls)

	assert.ErrorIs(t, p.Run(context.Background(), nil), exception.ErrNilInstance)
}
