package recorder

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"github.com/tianhm/nautilus-trader/internal/codec"
	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

const segmentSuffix = ".evj"

// Writer appends events to journal segments from a buffered queue. One goroutine owns the files.
type Writer struct {
	cfg Config
	ch  chan Record
	wg  sync.WaitGroup
	err atomic.Pointer[error]

	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	written   atomic.Uint64
}

// NewWriter creates a journal writer and ensures the target directory exists.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create journal dir %s", cfg.Dir)
	}
	return &Writer{
		cfg: cfg,
		ch:  make(chan Record, cfg.QueueSize),
	}, nil
}

// Start runs the writer loop in a new goroutine.
func (w *Writer) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.Wrap(exception.ErrInvalidArgument, "journal writer already started")
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	return nil
}

// Close stops accepting events, writes everything queued and closes the open segment.
func (w *Writer) Close() error {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		close(w.ch)
	})
	w.wg.Wait()
	logs.Infof("journal %s closed, records: %d", w.cfg.Dir, w.written.Load())
	return w.Err()
}

// Err returns the first error observed by the writer, if any.
func (w *Writer) Err() error {
	if p := w.err.Load(); p != nil {
		return *p
	}
	return nil
}

// Written returns how many records reached a segment buffer.
func (w *Writer) Written() uint64 { return w.written.Load() }

// TryAppend encodes ev and enqueues it without blocking.
func (w *Writer) TryAppend(ev schema.Event) error {
	if w.closed.Load() {
		return exception.ErrJournalClosed
	}
	if !w.started.Load() {
		return exception.ErrJournalNotStarted
	}
	if err := w.Err(); err != nil {
		return err
	}
	payload, err := codec.EncodeEvent(ev)
	if err != nil {
		return err
	}
	if uint64(len(payload)) > maxPayloadLen {
		return errors.Wrapf(exception.ErrJournalPayloadTooLarge, "%d bytes", len(payload))
	}

	rec := Record{Kind: ev.Kind(), EventID: ev.EventID(), Timestamp: ev.EventTime(), Payload: payload}
	select {
	case w.ch <- rec:
		return nil
	default:
		return exception.ErrJournalQueueFull
	}
}

func (w *Writer) run(ctx context.Context) {
	var (
		seg         *segment
		segID       uint64
		headerBuf   = make([]byte, frameHeaderSize)
		flushC      <-chan time.Time
		syncC       <-chan time.Time
		flushTicker *time.Ticker
		syncTicker  *time.Ticker
	)

	if w.cfg.FlushInterval > 0 {
		flushTicker = time.NewTicker(w.cfg.FlushInterval)
		flushC = flushTicker.C
	}
	if w.cfg.SyncInterval > 0 {
		syncTicker = time.NewTicker(w.cfg.SyncInterval)
		syncC = syncTicker.C
	}

	defer func() {
		if flushTicker != nil {
			flushTicker.Stop()
		}
		if syncTicker != nil {
			syncTicker.Stop()
		}
		w.setErr(seg.close())
	}()

	for {
		select {
		case <-ctx.Done():
			w.drain(&seg, &segID, headerBuf)
			return
		case rec, ok := <-w.ch:
			if !ok {
				return
			}
			if err := w.write(&seg, &segID, headerBuf, rec); err != nil {
				w.setErr(err)
				return
			}
		case <-flushC:
			if err := seg.flush(); err != nil {
				w.setErr(err)
				return
			}
		case <-syncC:
			if err := seg.sync(); err != nil {
				w.setErr(err)
				return
			}
		}
	}
}

func (w *Writer) drain(seg **segment, segID *uint64, headerBuf []byte) {
	for {
		select {
		case rec, ok := <-w.ch:
			if !ok {
				return
			}
			if err := w.write(seg, segID, headerBuf, rec); err != nil {
				w.setErr(err)
				return
			}
		default:
			return
		}
	}
}

func (w *Writer) write(seg **segment, segID *uint64, headerBuf []byte, rec Record) error {
	now := time.Now().UTC()
	size := int64(frameHeaderSize + len(rec.Payload) + frameChecksumSize)
	if w.shouldRotate(*seg, now, size) {
		if err := (*seg).close(); err != nil {
			return err
		}
		opened, err := w.open(segID, now)
		if err != nil {
			return err
		}
		*seg = opened
	}

	encodeHeader(headerBuf, rec)
	var sum [frameChecksumSize]byte
	binary.LittleEndian.PutUint32(sum[:], checksum(headerBuf, rec.Payload))

	buf := (*seg).buf
	if _, err := buf.Write(headerBuf); err != nil {
		return err
	}
	if _, err := buf.Write(rec.Payload); err != nil {
		return err
	}
	if _, err := buf.Write(sum[:]); err != nil {
		return err
	}
	(*seg).size += size
	w.written.Add(1)
	return nil
}

func (w *Writer) shouldRotate(seg *segment, now time.Time, next int64) bool {
	switch {
	case seg == nil:
		return true
	case seg.size > 0 && seg.size+next > w.cfg.SegmentMaxBytes:
		return true
	case w.cfg.SegmentMaxDuration > 0 && now.Sub(seg.openedAt) >= w.cfg.SegmentMaxDuration:
		return true
	}
	return false
}

func (w *Writer) open(segID *uint64, now time.Time) (*segment, error) {
	ts := now.Format("20060102-150405")
	for {
		*segID++
		name := fmt.Sprintf("%s-%s-%06d%s", w.cfg.FilePrefix, ts, *segID, segmentSuffix)
		path := filepath.Join(w.cfg.Dir, name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return nil, errors.Wrapf(err, "open segment %s", path)
		}
		return &segment{
			file:     file,
			buf:      bufio.NewWriterSize(file, w.cfg.BufferSize),
			openedAt: now,
		}, nil
	}
}

func (w *Writer) setErr(err error) {
	if err == nil {
		return
	}
	if w.err.CompareAndSwap(nil, &err) {
		logs.Errorf("journal %s failed, err: %+v", w.cfg.Dir, err)
	}
}

type segment struct {
	file     *os.File
	buf      *bufio.Writer
	size     int64
	openedAt time.Time
}

func (s *segment) flush() error {
	if s == nil {
		return nil
	}
	return s.buf.Flush()
}

func (s *segment) sync() error {
	if s == nil {
		return nil
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *segment) close() error {
	if s == nil {
		return nil
	}
	if err := s.sync(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}
