package envelope_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-herdform/pkg/envelope"
)

func TestDecode_SplitsPayload(t *testing.T) {
	body := `{"success": true, "dry": {"7": "2024-03-01", "3": "2024-01-15"}}`

	result, err := envelope.Decode(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success flag")
	}
	if result.Message != "" {
		t.Fatalf("expected empty message, got %q", result.Message)
	}

	var dry map[string]string
	if err := result.Decode("dry", &dry); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	want := map[string]string{"7": "2024-03-01", "3": "2024-01-15"}
	if diff := cmp.Diff(want, dry); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"dry"}, result.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_Failures(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "empty", body: "  "},
		{name: "array", body: `[{"cow_id": 1}]`},
		{name: "missing success", body: `{"message": "ok"}`},
		{name: "success not bool", body: `{"success": "yes"}`},
		{name: "html", body: `<html></html>`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := envelope.Decode(strings.NewReader(tc.body))
			var decodeErr *envelope.DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
		})
	}
}

func TestDecode_NonStringMessage(t *testing.T) {
	result, err := envelope.DecodeBytes([]byte(`{"success": false, "message": 42}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Message != "42" {
		t.Fatalf("expected stringified message, got %q", result.Message)
	}

	result, err = envelope.DecodeBytes([]byte(`{"success": false, "message": null}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Message != "" {
		t.Fatalf("expected empty message for null, got %q", result.Message)
	}
}

func TestResult_DecodeMissingKey(t *testing.T) {
	result := envelope.OK("done")
	err := result.Decode("stock", &map[string]int{})
	if !errors.Is(err, envelope.ErrMissingPayload) {
		t.Fatalf("expected ErrMissingPayload, got %v", err)
	}
}

func TestResult_MarshalJSON(t *testing.T) {
	result := envelope.Result{
		Success: false,
		Message: "bad",
		Payload: map[string]json.RawMessage{"calving": json.RawMessage(`{}`)},
	}
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"success": false,
		"message": "bad",
		"calving": map[string]any{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("wire form mismatch (-want +got):\n%s", diff)
	}
}
