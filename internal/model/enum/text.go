package enum

import "fmt"

type textEnum interface {
	~uint8
	String() string
}

// parseText scans [first, end) for a value whose String matches b. The zero value's name and an
// empty input decode to the zero value.
func parseText[T textEnum](b []byte, dst *T, first, end T) error {
	var zero T
	if len(b) == 0 || string(b) == zero.String() {
		*dst = zero
		return nil
	}
	for v := first; v < end; v++ {
		if v.String() == string(b) {
			*dst = v
			return nil
		}
	}
	return fmt.Errorf("enum: unknown value %q", b)
}
