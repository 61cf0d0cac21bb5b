package model

import (
	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// Instrument holds the precisions an order for Symbol must use.
type Instrument struct {
	Symbol         Symbol
	PricePrecision uint8
	SizePrecision  uint8
	QuoteCurrency  Currency
}

// InstrumentRegistry stores venues and instruments. It is built once at startup and read afterwards.
type InstrumentRegistry struct {
	venues      []Venue
	venueIndex  map[Venue]int
	instruments []Instrument
	bySymbol    map[Symbol]int
}

// NewInstrumentRegistry creates an empty registry.
func NewInstrumentRegistry() *InstrumentRegistry {
	return &InstrumentRegistry{
		venueIndex: make(map[Venue]int),
		bySymbol:   make(map[Symbol]int),
	}
}

// AddVenue registers a venue.
func (r *InstrumentRegistry) AddVenue(venue Venue) error {
	if venue.IsNull() {
		return errors.Wrap(exception.ErrInvalidArgument, "venue name is empty")
	}
	if _, ok := r.venueIndex[venue]; ok {
		return errors.Wrapf(exception.ErrInvalidArgument, "venue already exists: %s", venue)
	}
	r.venueIndex[venue] = len(r.venues)
	r.venues = append(r.venues, venue)
	return nil
}

// AddInstrument registers an instrument. Its venue must already be registered.
func (r *InstrumentRegistry) AddInstrument(ins Instrument) error {
	if ins.Symbol.Code == "" {
		return errors.Wrap(exception.ErrInvalidArgument, "symbol code is empty")
	}
	if _, ok := r.venueIndex[ins.Symbol.Venue]; !ok {
		return errors.Wrapf(exception.ErrNotFound, "venue not found: %s", ins.Symbol.Venue)
	}
	if ins.PricePrecision > MaxPrecision || ins.SizePrecision > MaxPrecision {
		return errors.Wrapf(exception.ErrPrecisionTooHigh, "instrument %s", ins.Symbol)
	}
	if _, ok := r.bySymbol[ins.Symbol]; ok {
		return errors.Wrapf(exception.ErrInvalidArgument, "instrument already exists: %s", ins.Symbol)
	}
	r.bySymbol[ins.Symbol] = len(r.instruments)
	r.instruments = append(r.instruments, ins)
	return nil
}

// HasVenue reports whether venue was registered.
func (r *InstrumentRegistry) HasVenue(venue Venue) bool {
	_, ok := r.venueIndex[venue]
	return ok
}

// Instrument returns the instrument for symbol.
func (r *InstrumentRegistry) Instrument(symbol Symbol) (Instrument, bool) {
	idx, ok := r.bySymbol[symbol]
	if !ok {
		return Instrument{}, false
	}
	return r.instruments[idx], true
}

// Venues returns the registered venues in insertion order.
func (r *InstrumentRegistry) Venues() []Venue {
	return append([]Venue(nil), r.venues...)
}

// InstrumentCount returns the number of instruments in the registry.
func (r *InstrumentRegistry) InstrumentCount() int {
	return len(r.instruments)
}

// InstrumentAt returns the instrument by zero-based index.
func (r *InstrumentRegistry) InstrumentAt(index int) (Instrument, bool) {
	if index < 0 || index >= len(r.instruments) {
		return Instrument{}, false
	}
	return r.instruments[index], true
}
