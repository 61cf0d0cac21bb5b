package model

import (
	"strings"

	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// TraderID identifies a trader instance, e.g. TESTER-000.
type TraderID struct {
	Name string
	Tag  string
}

func NewTraderID(name, tag string) TraderID { return TraderID{Name: name, Tag: tag} }

// ParseTraderID splits on the last '-'.
func ParseTraderID(s string) (TraderID, error) {
	name, tag, err := splitLast(s, '-')
	if err != nil {
		return TraderID{}, err
	}
	return TraderID{Name: name, Tag: tag}, nil
}

func (id TraderID) String() string { return id.Name + "-" + id.Tag }
func (id TraderID) IsNull() bool   { return id.Name == "" && id.Tag == "" }

func (id TraderID) MarshalText() ([]byte, error) {
	if id.IsNull() {
		return nil, nil
	}
	return []byte(id.String()), nil
}

func (id *TraderID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*id = TraderID{}
		return nil
	}
	v, err := ParseTraderID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// StrategyID identifies a strategy instance, e.g. SCALPER-001.
type StrategyID struct {
	Name string
	Tag  string
}

func NewStrategyID(name, tag string) StrategyID { return StrategyID{Name: name, Tag: tag} }

func ParseStrategyID(s string) (StrategyID, error) {
	name, tag, err := splitLast(s, '-')
	if err != nil {
		return StrategyID{}, err
	}
	return StrategyID{Name: name, Tag: tag}, nil
}

func (id StrategyID) String() string { return id.Name + "-" + id.Tag }
func (id StrategyID) IsNull() bool   { return id.Name == "" && id.Tag == "" }

func (id StrategyID) MarshalText() ([]byte, error) {
	if id.IsNull() {
		return nil, nil
	}
	return []byte(id.String()), nil
}

func (id *StrategyID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*id = StrategyID{}
		return nil
	}
	v, err := ParseStrategyID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// AccountID is an issuer and account number, e.g. SIM-000.
type AccountID struct {
	Issuer string
	Number string
}

func NewAccountID(issuer, number string) AccountID { return AccountID{Issuer: issuer, Number: number} }

func ParseAccountID(s string) (AccountID, error) {
	issuer, number, err := splitLast(s, '-')
	if err != nil {
		return AccountID{}, err
	}
	return AccountID{Issuer: issuer, Number: number}, nil
}

func (id AccountID) String() string { return id.Issuer + "-" + id.Number }
func (id AccountID) IsNull() bool   { return id.Issuer == "" && id.Number == "" }

func (id AccountID) MarshalText() ([]byte, error) {
	if id.IsNull() {
		return nil, nil
	}
	return []byte(id.String()), nil
}

func (id *AccountID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*id = AccountID{}
		return nil
	}
	v, err := ParseAccountID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// Venue names a trading venue, e.g. BINANCE.
type Venue string

func (v Venue) String() string { return string(v) }
func (v Venue) IsNull() bool   { return v == "" }

// Symbol is an instrument code at a venue, e.g. BTC/USDT.BINANCE.
type Symbol struct {
	Code  string
	Venue Venue
}

func NewSymbol(code string, venue Venue) Symbol { return Symbol{Code: code, Venue: venue} }

// ParseSymbol splits on the last '.'.
func ParseSymbol(s string) (Symbol, error) {
	code, venue, err := splitLast(s, '.')
	if err != nil {
		return Symbol{}, err
	}
	return Symbol{Code: code, Venue: Venue(venue)}, nil
}

func (s Symbol) String() string { return s.Code + "." + string(s.Venue) }
func (s Symbol) IsNull() bool   { return s.Code == "" && s.Venue == "" }

func (s Symbol) MarshalText() ([]byte, error) {
	if s.IsNull() {
		return nil, nil
	}
	return []byte(s.String()), nil
}

func (s *Symbol) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*s = Symbol{}
		return nil
	}
	v, err := ParseSymbol(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ClientOrderID is assigned on the strategy side and unique per trader.
type ClientOrderID string

func (id ClientOrderID) String() string { return string(id) }
func (id ClientOrderID) IsNull() bool   { return id == "" }

// OrderID is assigned by the venue once the order is accepted.
type OrderID string

func (id OrderID) String() string { return string(id) }
func (id OrderID) IsNull() bool   { return id == "" }

// PositionID is assigned by the engine on the first fill of a flat position.
type PositionID string

func (id PositionID) String() string { return string(id) }
func (id PositionID) IsNull() bool   { return id == "" }

// ExecutionID is assigned by the venue per fill.
type ExecutionID string

func (id ExecutionID) String() string { return string(id) }
func (id ExecutionID) IsNull() bool   { return id == "" }

func splitLast(s string, sep byte) (string, string, error) {
	i := strings.LastIndexByte(s, sep)
	if i <= 0 || i == len(s)-1 {
		return "", "", errors.Wrapf(exception.ErrInvalidIdentifier, "%q", s)
	}
	return s[:i], s[i+1:], nil
}
