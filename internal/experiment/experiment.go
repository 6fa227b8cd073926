// Package experiment demonstrates hybrid JSON/relational persistence: typed
// experiment details serialized into a single JSON column, decoded through a
// closed codec table keyed by an explicit "kind" tag.
package experiment

import (
	"encoding/json"
	"fmt"
)

// Kind tags a Details payload inside its JSON envelope.
type Kind string

const (
	KindText       Kind = "text"
	KindNumber     Kind = "number"
	KindFieldNotes Kind = "field_notes"
)

// Details is the closed set of experiment payload types.
type Details interface {
	Kind() Kind
}

// TextDetails carries free-form textual details.
type TextDetails struct {
	Text string `json:"text"`
}

func (TextDetails) Kind() Kind { return KindText }

// NumberDetails carries a single numeric measurement.
type NumberDetails struct {
	Number int `json:"number"`
}

func (NumberDetails) Kind() Kind { return KindNumber }

// FieldNotes carries attributed field observations.
type FieldNotes struct {
	Scientist string `json:"scientist"`
	Year      int    `json:"year"`
}

func (FieldNotes) Kind() Kind { return KindFieldNotes }

// decoders is the full codec table. Decoding never consults type names at
// runtime; an unknown kind is an error.
var decoders = map[Kind]func(json.RawMessage) (Details, error){
	KindText: func(raw json.RawMessage) (Details, error) {
		var d TextDetails
		err := json.Unmarshal(raw, &d)
		return d, err
	},
	KindNumber: func(raw json.RawMessage) (Details, error) {
		var d NumberDetails
		err := json.Unmarshal(raw, &d)
		return d, err
	},
	KindFieldNotes: func(raw json.RawMessage) (Details, error) {
		var d FieldNotes
		err := json.Unmarshal(raw, &d)
		return d, err
	},
}

// EncodeDetails renders the payload as a flat JSON object with a "kind" tag
// alongside the payload fields.
func EncodeDetails(d Details) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("nil details")
	}
	if _, known := decoders[d.Kind()]; !known {
		return nil, fmt.Errorf("unknown details kind %q", d.Kind())
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode details: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode details: %w", err)
	}
	fields["kind"] = d.Kind()
	return json.Marshal(fields)
}

// DecodeDetails dispatches on the "kind" tag through the codec table.
func DecodeDetails(data []byte) (Details, error) {
	var probe struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode details: %w", err)
	}
	decode, ok := decoders[probe.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown details kind %q", probe.Kind)
	}
	d, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s details: %w", probe.Kind, err)
	}
	return d, nil
}

// Experiment pairs a unique name with typed details.
type Experiment struct {
	Name    string
	Details Details
}

type experimentEnvelope struct {
	Name    string          `json:"name"`
	Details json.RawMessage `json:"details"`
}

// MarshalJSON encodes the experiment with its details envelope inline.
func (e Experiment) MarshalJSON() ([]byte, error) {
	details, err := EncodeDetails(e.Details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(experimentEnvelope{Name: e.Name, Details: details})
}

// UnmarshalJSON decodes the experiment, dispatching details by kind.
func (e *Experiment) UnmarshalJSON(data []byte) error {
	var env experimentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	details, err := DecodeDetails(env.Details)
	if err != nil {
		return err
	}
	e.Name = env.Name
	e.Details = details
	return nil
}
