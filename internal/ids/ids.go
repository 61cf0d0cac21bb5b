package ids

import (
	"encoding/binary"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tianhm/nautilus-trader/internal/clock"
)

// Factory creates event and command ids.
type Factory interface {
	New() uuid.UUID
}

// Random returns version 4 UUIDs.
type Random struct{}

func (Random) New() uuid.UUID { return uuid.New() }

// Sequential returns UUIDs whose last eight bytes count up from a seed. It is deterministic and is
// meant for tests and replays.
type Sequential struct {
	next uint64
}

// NewSequential returns a factory whose first id encodes seed+1.
func NewSequential(seed uint64) *Sequential {
	return &Sequential{next: seed}
}

func (s *Sequential) New() uuid.UUID {
	n := atomic.AddUint64(&s.next, 1)
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[8:], n)
	id[6] = 0x40
	id[8] |= 0x80
	return id
}

// Generator produces identifiers of the form PREFIX-YYYYMMDD-HHMMSS-TRADER-STRATEGY-N.
// It is not safe for concurrent use.
type Generator struct {
	prefix      string
	traderTag   string
	strategyTag string
	clock       clock.Clock
	count       int
}

func NewGenerator(prefix, traderTag, strategyTag string, c clock.Clock) *Generator {
	return &Generator{
		prefix:      prefix,
		traderTag:   traderTag,
		strategyTag: strategyTag,
		clock:       c,
	}
}

func (g *Generator) Generate() string {
	g.count++
	buf := make([]byte, 0, 48)
	buf = append(buf, g.prefix...)
	buf = append(buf, '-')
	buf = g.clock.Now().UTC().AppendFormat(buf, "20060102-150405")
	buf = append(buf, '-')
	buf = append(buf, g.traderTag...)
	buf = append(buf, '-')
	buf = append(buf, g.strategyTag...)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, int64(g.count), 10)
	return string(buf)
}

// Count returns how many ids were generated.
func (g *Generator) Count() int { return g.count }

// SetCount resumes numbering after recovery.
func (g *Generator) SetCount(n int) { g.count = n }

func (g *Generator) Reset() { g.count = 0 }
