package schema

import (
	"strings"

	"github.com/google/uuid"
)

// formatter renders Kind(k=v, ..., id=<uuid>).
type formatter struct {
	b     strings.Builder
	first bool
}

func newFormatter(kind EventKind) *formatter {
	f := &formatter{first: true}
	f.b.Grow(128)
	f.b.WriteString(kind.String())
	f.b.WriteByte('(')
	return f
}

func (f *formatter) field(key, value string) *formatter {
	if !f.first {
		f.b.WriteString(", ")
	}
	f.first = false
	f.b.WriteString(key)
	f.b.WriteByte('=')
	f.b.WriteString(value)
	return f
}

func (f *formatter) quoted(key, value string) *formatter {
	return f.field(key, "'"+value+"'")
}

func (f *formatter) done(id uuid.UUID) string {
	f.field("id", id.String())
	f.b.WriteByte(')')
	return f.b.String()
}
