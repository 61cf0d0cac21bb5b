package recorder

import (
	"time"

	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

const (
	defaultSegmentMaxBytes int64 = 256 << 20
	defaultQueueSize             = 4096
	defaultBufferSize            = 64 * 1024
	defaultFilePrefix            = "events"
)

var defaultSegmentMaxDuration = time.Hour

// Config controls the journal writer.
type Config struct {
	Dir                string        `json:"dir"`
	SegmentMaxBytes    int64         `json:"segmentMaxBytes"`
	SegmentMaxDuration time.Duration `json:"segmentMaxDuration"`
	QueueSize          int           `json:"queueSize"`
	BufferSize         int           `json:"bufferSize"`
	FilePrefix         string        `json:"filePrefix"`
	FlushInterval      time.Duration `json:"flushInterval"`
	SyncInterval       time.Duration `json:"syncInterval"`
}

// DefaultConfig returns a baseline configuration for a journal in dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:                dir,
		SegmentMaxBytes:    defaultSegmentMaxBytes,
		SegmentMaxDuration: defaultSegmentMaxDuration,
		QueueSize:          defaultQueueSize,
		BufferSize:         defaultBufferSize,
		FilePrefix:         defaultFilePrefix,
		FlushInterval:      time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = defaultSegmentMaxBytes
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	switch {
	case c.Dir == "":
		return errors.Wrap(exception.ErrInvalidArgument, "journal dir is empty")
	case c.SegmentMaxBytes <= 0:
		return errors.Wrapf(exception.ErrInvalidArgument, "journal segmentMaxBytes %d must be > 0", c.SegmentMaxBytes)
	case c.QueueSize <= 0:
		return errors.Wrapf(exception.ErrInvalidArgument, "journal queueSize %d must be > 0", c.QueueSize)
	case c.BufferSize <= 0:
		return errors.Wrapf(exception.ErrInvalidArgument, "journal bufferSize %d must be > 0", c.BufferSize)
	case c.FilePrefix == "":
		return errors.Wrap(exception.ErrInvalidArgument, "journal filePrefix is empty")
	case c.FlushInterval < 0:
		return errors.Wrapf(exception.ErrInvalidArgument, "journal flushInterval %s must be >= 0", c.FlushInterval)
	case c.SyncInterval < 0:
		return errors.Wrapf(exception.ErrInvalidArgument, "journal syncInterval %s must be >= 0", c.SyncInterval)
	}
	return nil
}
