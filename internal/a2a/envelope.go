// Package a2a adapts the Telex A2A JSON-RPC webhook contract, and a flat
// {message, session_id} shape, to message text plus a session key.
package a2a

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	JSONRPCVersion = "2.0"

	MethodMessageSend = "message/send"
	MethodTasksSend   = "tasks/send"

	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

var (
	ErrNotObject = errors.New("a2a: request body is not a JSON object")
	// ErrInvalidSimple marks a body detected as the flat shape whose fields
	// do not decode, so callers can answer in the flat format.
	ErrInvalidSimple = errors.New("a2a: invalid flat request")
)

// RPCRequest is the JSON-RPC shape. Params stay loosely typed because the
// sender varies where it puts things.
type RPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`

	// HasID is set by Decode when the body carries an "id" key, even a null one.
	HasID bool `json:"-"`
}

type SimpleRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type SimpleResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type SimpleError struct {
	Error string `json:"error"`
}

// Envelope is exactly one of RPC or Simple.
type Envelope struct {
	RPC    *RPCRequest
	Simple *SimpleRequest
}

func (e Envelope) IsRPC() bool { return e.RPC != nil }

// Decode picks the shape by key presence: a body carrying "jsonrpc" or
// "method" is JSON-RPC, anything else is the flat shape.
func Decode(body []byte) (Envelope, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return Envelope{}, fmt.Errorf("decode body: %w", err)
	}
	if probe == nil {
		return Envelope{}, ErrNotObject
	}

	_, hasRPC := probe["jsonrpc"]
	_, hasMethod := probe["method"]
	if !hasRPC && !hasMethod {
		var s SimpleRequest
		if err := json.Unmarshal(body, &s); err != nil {
			return Envelope{}, fmt.Errorf("%w: %w", ErrInvalidSimple, err)
		}
		return Envelope{Simple: &s}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var r RPCRequest
	if err := dec.Decode(&r); err != nil {
		return Envelope{}, fmt.Errorf("decode rpc request: %w", err)
	}
	_, r.HasID = probe["id"]
	return Envelope{RPC: &r}, nil
}

// PartialID recovers a request id from a body that failed to decode as a
// whole, so error responses can still echo it.
func PartialID(body []byte) any {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || len(probe.ID) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(probe.ID))
	dec.UseNumber()
	var id any
	if err := dec.Decode(&id); err != nil {
		return nil
	}
	return id
}

// SupportedMethod reports whether the method is one this agent answers.
func SupportedMethod(m string) bool {
	return m == MethodMessageSend || m == MethodTasksSend
}
