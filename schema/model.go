// Package schema describes the structured output requested from a model.
//
// A [ResponseModel] pairs a display name with a JSON Schema and a validator.
// Schemas are inferred from Go types with github.com/google/jsonschema-go or
// loaded from JSON Schema documents at runtime:
//
//	type Person struct {
//	    Name string `json:"name" jsonschema:"the person's full name"`
//	    Age  int    `json:"age"`
//	}
//
//	rm, err := schema.For[Person]("Person", schema.WithDescription("A person mentioned in the text"))
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// ResponseModel is the target schema of an extraction together with its
// display name. A ResponseModel is immutable and safe for concurrent use.
type ResponseModel[T any] struct {
	name        string
	description string
	strict      bool

	schema   *jsonschema.Schema
	resolved *jsonschema.Resolved
	raw      json.RawMessage
}

// Option configures a ResponseModel.
type Option func(*options)

type options struct {
	description string
	strict      bool
}

// WithDescription sets the human-readable description sent alongside the
// schema. It overrides the schema's own description.
func WithDescription(d string) Option {
	return func(o *options) { o.description = d }
}

// WithStrict asks providers that support strict structured outputs to
// enforce the schema exactly.
func WithStrict() Option {
	return func(o *options) { o.strict = true }
}

// For infers the schema of T.
func For[T any](name string, opts ...Option) (*ResponseModel[T], error) {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("infer schema for %s: %w", name, err)
	}
	return newModel[T](name, s, opts)
}

// MustFor is like For but panics on error. Intended for package-level vars.
func MustFor[T any](name string, opts ...Option) *ResponseModel[T] {
	rm, err := For[T](name, opts...)
	if err != nil {
		panic(err)
	}
	return rm
}

// FromJSON loads a JSON Schema document. Accepted values decode into
// map[string]any.
func FromJSON(name string, doc []byte, opts ...Option) (*ResponseModel[map[string]any], error) {
	var s jsonschema.Schema
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", name, err)
	}
	if s.Type != "" && s.Type != "object" {
		return nil, fmt.Errorf("schema %s: root type must be object, got %q", name, s.Type)
	}
	return newModel[map[string]any](name, &s, opts)
}

func newModel[T any](name string, s *jsonschema.Schema, opts []Option) (*ResponseModel[T], error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("response model name required")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.description == "" {
		o.description = s.Description
	}

	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema %s: %w", name, err)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode schema %s: %w", name, err)
	}
	return &ResponseModel[T]{
		name:        name,
		description: o.description,
		strict:      o.strict,
		schema:      s,
		resolved:    resolved,
		raw:         raw,
	}, nil
}

// Name returns the display name, used as the tool or function name.
func (m *ResponseModel[T]) Name() string { return m.name }

// Description returns the description sent to the model.
func (m *ResponseModel[T]) Description() string { return m.description }

// Strict reports whether strict structured output was requested.
func (m *ResponseModel[T]) Strict() bool { return m.strict }

// JSONSchema returns the encoded schema. Callers must not modify it.
func (m *ResponseModel[T]) JSONSchema() json.RawMessage { return m.raw }

// Schema returns the underlying schema.
func (m *ResponseModel[T]) Schema() *jsonschema.Schema { return m.schema }

// Validate checks a decoded JSON value (as produced by encoding/json into
// an any) against the schema. It returns nil or a *ValidationError.
func (m *ResponseModel[T]) Validate(instance any) error {
	if err := m.resolved.Validate(instance); err != nil {
		return &ValidationError{Model: m.name, Message: err.Error(), Err: err}
	}
	return nil
}

// Decode converts an accepted instance into T. A value the schema allows
// but T cannot hold is reported as a *ValidationError.
func (m *ResponseModel[T]) Decode(instance any) (T, error) {
	var out T
	b, err := json.Marshal(instance)
	if err != nil {
		return out, &ValidationError{Model: m.name, Message: err.Error(), Err: err}
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, &ValidationError{Model: m.name, Message: err.Error(), Err: err}
	}
	return out, nil
}

// DecodePartial converts an incomplete instance into T without validation.
// Properties whose partial value does not fit T are left at their zero
// value; encoding/json keeps decoding past type mismatches.
func (m *ResponseModel[T]) DecodePartial(instance any) T {
	var out T
	b, err := json.Marshal(instance)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(b, &out)
	return out
}
