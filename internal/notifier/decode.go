package notifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"

	"ahagon/internal/events"

	"github.com/google/go-github/v57/github"
)

// PayloadField is the form field Travis CI puts its JSON document in.
const PayloadField = "payload"

// Payload is a decoded notifier payload.
type Payload struct {
	// Raw is the JSON document exactly as received.
	Raw json.RawMessage

	// Fields is the decoded top-level object. Numbers are json.Number.
	Fields map[string]any
}

// DecodeJSON decodes a JSON request body. The body must be a single JSON object.
func DecodeJSON(raw []byte) (*Payload, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrMalformedJSON)
	}

	fields, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotObject, doc)
	}

	return &Payload{Raw: json.RawMessage(raw), Fields: fields}, nil
}

// DecodeForm decodes a URL-encoded body whose payload field holds JSON.
func DecodeForm(raw []byte) (*Payload, error) {
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedForm, err)
	}

	docs, ok := values[PayloadField]
	if !ok || len(docs) == 0 {
		return nil, ErrMissingPayloadField
	}

	return DecodeJSON([]byte(docs[0]))
}

// Typed parses a GitHub payload into the matching go-github event struct.
func (p *Payload) Typed(kind events.Kind) (any, error) {
	return github.ParseWebHook(kind.String(), p.Raw)
}

// String walks nested objects and returns the string at path, or "".
func (p *Payload) String(path ...string) string {
	var cur any = p.Fields
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = obj[key]
	}
	s, _ := cur.(string)
	return s
}
