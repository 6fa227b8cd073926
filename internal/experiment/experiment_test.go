package experiment

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExperimentJSONRoundtrip(t *testing.T) {
	cases := []Experiment{
		{Name: "with text", Details: TextDetails{Text: "text content"}},
		{Name: "with number", Details: NumberDetails{Number: 1234}},
		{Name: "first", Details: FieldNotes{Scientist: "Marie Curie", Year: 1903}},
	}
	for _, want := range cases {
		t.Run(want.Name, func(t *testing.T) {
			data, err := json.Marshal(want)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var got Experiment
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("roundtrip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodedEnvelopeIsFlatWithKindTag(t *testing.T) {
	raw, err := EncodeDetails(TextDetails{Text: "hi"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fields["kind"] != "text" || fields["text"] != "hi" || len(fields) != 2 {
		t.Fatalf("unexpected envelope %v", fields)
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	if _, err := DecodeDetails([]byte(`{"kind":"potion","potion":"syrup"}`)); err == nil {
		t.Fatal("unknown kind must be rejected")
	}
	if _, err := DecodeDetails([]byte(`{"no_kind_tag":true}`)); err == nil {
		t.Fatal("missing kind tag must be rejected")
	}
	if _, err := DecodeDetails([]byte(`not json`)); err == nil {
		t.Fatal("malformed payload must be rejected")
	}
}

func TestEncodeRejectsNilDetails(t *testing.T) {
	if _, err := EncodeDetails(nil); err == nil {
		t.Fatal("nil details must be rejected")
	}
	if _, err := json.Marshal(Experiment{Name: "empty"}); err == nil {
		t.Fatal("experiment without details must not marshal")
	}
}
