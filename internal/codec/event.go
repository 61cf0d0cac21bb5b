package codec

import (
	"encoding/json"

	"github.com/bytedance/sonic"

	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// Envelope tags an encoded event with its kind.
type Envelope struct {
	Version uint16          `json:"v"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

var api = sonic.ConfigStd

// EncodeEvent serializes ev inside an envelope.
func EncodeEvent(ev schema.Event) ([]byte, error) {
	env, err := envelope(ev)
	if err != nil {
		return nil, err
	}
	return api.Marshal(env)
}

// DecodeEvent parses an envelope produced by EncodeEvent.
func DecodeEvent(data []byte) (schema.Event, error) {
	var env Envelope
	if err := api.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "decode envelope")
	}
	return open(env)
}

// EncodeEvents serializes an event log as an array of envelopes.
func EncodeEvents[T schema.Event](events []T) ([]byte, error) {
	envs := make([]Envelope, 0, len(events))
	for _, ev := range events {
		env, err := envelope(ev)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return api.Marshal(envs)
}

// DecodeEvents parses an event log produced by EncodeEvents.
func DecodeEvents(data []byte) ([]schema.Event, error) {
	var envs []Envelope
	if err := api.Unmarshal(data, &envs); err != nil {
		return nil, errors.Wrap(err, "decode event log")
	}
	out := make([]schema.Event, 0, len(envs))
	for i, env := range envs {
		ev, err := open(env)
		if err != nil {
			return nil, errors.Wrapf(err, "event %d", i)
		}
		out = append(out, ev)
	}
	return out, nil
}

// DecodeOrderEvents parses an order's event log.
func DecodeOrderEvents(data []byte) ([]schema.OrderEvent, error) {
	return decodeAs[schema.OrderEvent](data)
}

// DecodePositionEvents parses a position's event log.
func DecodePositionEvents(data []byte) ([]schema.PositionEvent, error) {
	return decodeAs[schema.PositionEvent](data)
}

// DecodeAccountStates parses an account's state log.
func DecodeAccountStates(data []byte) ([]schema.AccountState, error) {
	return decodeAs[schema.AccountState](data)
}

func decodeAs[T schema.Event](data []byte) ([]T, error) {
	events, err := DecodeEvents(data)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(events))
	for _, ev := range events {
		v, ok := ev.(T)
		if !ok {
			return nil, errors.Wrapf(exception.ErrTypeUnsupported, "unexpected %s in log", ev.Kind())
		}
		out = append(out, v)
	}
	return out, nil
}

func envelope(ev schema.Event) (Envelope, error) {
	if ev == nil {
		return Envelope{}, exception.ErrNilInstance
	}
	if !ev.Kind().IsAvailable() {
		return Envelope{}, errors.Wrapf(exception.ErrTypeUnsupported, "event kind %d", ev.Kind())
	}
	payload, err := api.Marshal(ev)
	if err != nil {
		return Envelope{}, errors.Wrapf(err, "encode %s", ev.Kind())
	}
	return Envelope{Version: schema.SchemaVersion, Kind: ev.Kind().String(), Payload: payload}, nil
}

func open(env Envelope) (schema.Event, error) {
	if env.Version != schema.SchemaVersion {
		return nil, errors.Wrapf(exception.ErrArgumentUnsupported, "schema version %d", env.Version)
	}
	kind, ok := schema.ParseEventKind(env.Kind)
	if !ok {
		return nil, errors.Wrapf(exception.ErrTypeUnsupported, "event kind %q", env.Kind)
	}
	switch kind {
	case schema.EventOrderInitialized:
		return decode[schema.OrderInitialized](env.Payload)
	case schema.EventOrderDenied:
		return decode[schema.OrderDenied](env.Payload)
	case schema.EventOrderInvalid:
		return decode[schema.OrderInvalid](env.Payload)
	case schema.EventOrderSubmitted:
		return decode[schema.OrderSubmitted](env.Payload)
	case schema.EventOrderRejected:
		return decode[schema.OrderRejected](env.Payload)
	case schema.EventOrderAccepted:
		return decode[schema.OrderAccepted](env.Payload)
	case schema.EventOrderCancelReject:
		return decode[schema.OrderCancelReject](env.Payload)
	case schema.EventOrderCancelled:
		return decode[schema.OrderCancelled](env.Payload)
	case schema.EventOrderAmended:
		return decode[schema.OrderAmended](env.Payload)
	case schema.EventOrderExpired:
		return decode[schema.OrderExpired](env.Payload)
	case schema.EventOrderFilled:
		return decode[schema.OrderFilled](env.Payload)
	case schema.EventPositionOpened:
		return decode[schema.PositionOpened](env.Payload)
	case schema.EventPositionModified:
		return decode[schema.PositionModified](env.Payload)
	case schema.EventPositionClosed:
		return decode[schema.PositionClosed](env.Payload)
	case schema.EventAccountState:
		return decode[schema.AccountState](env.Payload)
	default:
		return nil, errors.Wrapf(exception.ErrTypeUnsupported, "event kind %s", kind)
	}
}

func decode[T schema.Event](payload []byte) (schema.Event, error) {
	var v T
	if err := api.Unmarshal(payload, &v); err != nil {
		return nil, errors.Wrapf(err, "decode %s", v.Kind())
	}
	return v, nil
}
