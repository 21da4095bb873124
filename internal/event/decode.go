package event

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed rawevent.schema.json
var rawEventSchema []byte

// wireEvent mirrors the payload shape delivered by a capture source.
type wireEvent struct {
	Timestamp   int64     `json:"timestamp"`
	MachineName string    `json:"machineName"`
	Type        string    `json:"type"`
	Event       string    `json:"event"`
	Chain       Chain     `json:"chain"`
	Value       wireValue `json:"value"`
}

type wireValue struct {
	Key string  `json:"key"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

// Validator decodes wire payloads into RawEvents after validating them
// against the embedded JSON schema. Safe for concurrent use.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded raw-event schema.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("rawevent.json", bytes.NewReader(rawEventSchema)); err != nil {
		return nil, fmt.Errorf("add raw event schema: %w", err)
	}
	schema, err := compiler.Compile("rawevent.json")
	if err != nil {
		return nil, fmt.Errorf("compile raw event schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Decode validates and decodes one wire payload. Malformed payloads
// return an error and must be dropped by the caller; an invalid event
// never propagates past the connection boundary.
func (v *Validator) Decode(data []byte) (RawEvent, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return RawEvent{}, fmt.Errorf("unmarshal event payload: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return RawEvent{}, fmt.Errorf("validate event payload: %w", err)
	}

	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return RawEvent{}, fmt.Errorf("decode event payload: %w", err)
	}
	return fromWire(w)
}

// fromWire converts a validated wire payload into the closed RawEvent
// union, resolving phase and button enums exactly once.
func fromWire(w wireEvent) (RawEvent, error) {
	raw := RawEvent{
		Timestamp:   w.Timestamp,
		MachineName: w.MachineName,
		Kind:        Kind(w.Type),
		Phase:       parsePhase(w.Event),
		Chain:       w.Chain,
		X:           w.Value.X,
		Y:           w.Value.Y,
	}

	switch raw.Kind {
	case KindPointer:
		raw.Button = parseButton(w.Event)
	case KindKeyboard:
		if w.Value.Key == "" {
			return RawEvent{}, fmt.Errorf("keyboard event %q carries no key", w.Event)
		}
		raw.Key = w.Value.Key
	default:
		return RawEvent{}, fmt.Errorf("unrecognized event type %q", w.Type)
	}

	if raw.Phase == PhaseUnknown {
		return RawEvent{}, fmt.Errorf("unrecognized event phase in %q", w.Event)
	}
	return raw, nil
}
