package enum

// PositionSide flat, long, short
type PositionSide uint8

const (
	PositionSideFlat PositionSide = iota
	PositionSideLong
	PositionSideShort
	_position_side_end
)

func (s PositionSide) String() string {
	switch s {
	case PositionSideLong:
		return "LONG"
	case PositionSideShort:
		return "SHORT"
	default:
		return "FLAT"
	}
}

func (s PositionSide) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *PositionSide) UnmarshalText(b []byte) error {
	return parseText(b, s, PositionSideFlat, _position_side_end)
}
