// Package envelope decodes the uniform `{success, message?}` response shape
// returned by the herd server and classifies responses by content type.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// ErrMissingPayload reports that a payload key is absent from a Result.
var ErrMissingPayload = errors.New("envelope: payload key missing")

// Result is the response envelope. Keys other than success and message are
// kept verbatim in Payload so endpoint specific data (stock, dry, ...) can be
// decoded on demand.
type Result struct {
	Success bool
	Message string
	Payload map[string]json.RawMessage
}

// DecodeError wraps malformed envelope bodies.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("envelope: %s: %v", e.Reason, e.Err)
	}
	return "envelope: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode reads a JSON object from r and splits it into a Result.
func Decode(r io.Reader) (Result, error) {
	if r == nil {
		return Result{}, &DecodeError{Reason: "body is nil"}
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return Result{}, &DecodeError{Reason: "read body", Err: err}
	}
	return DecodeBytes(raw)
}

// DecodeBytes is Decode for an in-memory body.
func DecodeBytes(raw []byte) (Result, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Result{}, &DecodeError{Reason: "empty body"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Result{}, &DecodeError{Reason: "body is not a JSON object", Err: err}
	}

	rawSuccess, ok := fields["success"]
	if !ok {
		return Result{}, &DecodeError{Reason: `missing "success" flag`}
	}

	var result Result
	if err := json.Unmarshal(rawSuccess, &result.Success); err != nil {
		return Result{}, &DecodeError{Reason: `"success" is not a boolean`, Err: err}
	}
	delete(fields, "success")

	if rawMessage, ok := fields["message"]; ok {
		result.Message = messageText(rawMessage)
		delete(fields, "message")
	}

	if len(fields) > 0 {
		result.Payload = fields
	}
	return result, nil
}

// messageText accepts string messages and stringifies anything else the
// server might send (numbers, null, nested errors).
func messageText(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	return string(trimmed)
}

// Has reports whether the payload carries key.
func (r Result) Has(key string) bool {
	_, ok := r.Payload[key]
	return ok
}

// Decode unmarshals the payload stored under key into v.
func (r Result) Decode(key string, v any) error {
	raw, ok := r.Payload[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrMissingPayload, key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &DecodeError{Reason: fmt.Sprintf("payload %q", key), Err: err}
	}
	return nil
}

// Keys lists payload keys in sorted order.
func (r Result) Keys() []string {
	if len(r.Payload) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.Payload))
	for key := range r.Payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON writes the envelope back in wire form.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Payload)+2)
	for key, value := range r.Payload {
		out[key] = value
	}
	out["success"] = r.Success
	if r.Message != "" {
		out["message"] = r.Message
	}
	return json.Marshal(out)
}

// OK builds a success envelope.
func OK(message string) Result {
	return Result{Success: true, Message: message}
}

// Fail builds a failure envelope.
func Fail(message string) Result {
	return Result{Success: false, Message: message}
}
