package api

import (
	"bytes"
	"context"
	"encoding/json"
)

// Envelope is the shape of every backend reply. Data is nil when absent or null.
type Envelope[T any] struct {
	Success bool            `json:"success"`
	Data    *T              `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Token   string          `json:"token,omitempty"`
	Admin   json.RawMessage `json:"admin,omitempty"`
}

// Result is either a value or an error. Match forces both branches to be handled.
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] { return Result[T]{value: v} }

// Err wraps a failure.
func Err[T any](err error) Result[T] { return Result[T]{err: err} }

// IsOk reports the success branch.
func (r Result[T]) IsOk() bool { return r.err == nil }

// Get unpacks the result in the usual Go shape.
func (r Result[T]) Get() (T, error) { return r.value, r.err }

// Match calls exactly one of ok or fail.
func (r Result[T]) Match(ok func(T), fail func(error)) {
	if r.err != nil {
		fail(r.err)
		return
	}
	ok(r.value)
}

// Fetch performs req and decodes the envelope's data as T.
func Fetch[T any](ctx context.Context, c *Client, req Request) Result[Envelope[T]] {
	raw, err := c.do(ctx, req)
	if err != nil {
		return Err[Envelope[T]](err)
	}
	env := Envelope[T]{
		Success: raw.Success == nil || *raw.Success,
		Message: raw.Message,
		Token:   raw.Token,
		Admin:   raw.Admin,
	}
	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		var data T
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			return Err[Envelope[T]](&TransportError{Op: "decode data", Err: err})
		}
		env.Data = &data
	}
	return Ok(env)
}

// rawEnvelope keeps data undecoded and tells an absent success flag from false.
type rawEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Admin   json.RawMessage `json:"admin"`
}

// parseEnvelope accepts both backend contracts: the {success,data,message} envelope and
// a bare JSON object or array, which is taken as the data itself.
func parseEnvelope(payload json.RawMessage) (*rawEnvelope, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return &rawEnvelope{Data: trimmed}, nil
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return nil, err
	}
	_, hasSuccess := keys["success"]
	_, hasData := keys["data"]
	_, hasMessage := keys["message"]
	if !hasSuccess && !hasData && !hasMessage {
		return &rawEnvelope{Data: trimmed}, nil
	}
	var env rawEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
