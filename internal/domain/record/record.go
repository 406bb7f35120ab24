// Package record implements the canonical persisted encoding of an
// event: a flat ordered sequence of field name / value pairs that can
// be stored as a single string and decoded losslessly back into a
// field map.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/okian/feedrelay/internal/domain/model"
)

// Canonical field names, in their fixed encoded order.
const (
	FieldID          = "id"
	FieldText        = "text"
	FieldEntities    = "entities"
	FieldAuthorName  = "user:name"
	FieldAuthorURL   = "user:url"
	FieldAuthorImage = "user:profileImageUrlHttps"
)

// Pairs encodes an event into the flat ordered pair sequence. The field
// order is fixed: id, text, entities, user:name, user:url,
// user:profileImageUrlHttps.
func Pairs(e model.Event) []any {
	return []any{
		FieldID, e.ID,
		FieldText, e.Text,
		FieldEntities, e.Entities,
		FieldAuthorName, e.Author.Name,
		FieldAuthorURL, e.Author.URL,
		FieldAuthorImage, e.Author.ImageURL,
	}
}

// Marshal returns the stored string form of an event's canonical record.
func Marshal(e model.Event) (string, error) {
	b, err := json.Marshal(Pairs(e))
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return string(b), nil
}

// UnmarshalPairs parses a stored record back into its pair sequence.
// Numbers come back as json.Number so large ids keep their digits.
func UnmarshalPairs(s string) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var pairs []any
	if err := dec.Decode(&pairs); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return pairs, nil
}

// Decode turns a pair sequence into a field map. Pair order carries no
// meaning on the decoded side; values are preserved as-is.
func Decode(pairs []any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("%w: odd pair count %d", ErrMalformed, len(pairs))
	}
	fields := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("%w: field name at %d is %T", ErrMalformed, i, pairs[i])
		}
		fields[name] = pairs[i+1]
	}
	return fields, nil
}

// DecodeString parses a stored record string straight into a field map.
func DecodeString(s string) (map[string]any, error) {
	pairs, err := UnmarshalPairs(s)
	if err != nil {
		return nil, err
	}
	return Decode(pairs)
}

// Envelope is the relay message body placed on the queue: the canonical
// pair sequence wrapped under a data key.
type Envelope struct {
	Data []any `json:"data"`
}

// MarshalEnvelope returns the queue message body for an event.
func MarshalEnvelope(e model.Event) (string, error) {
	b, err := json.Marshal(Envelope{Data: Pairs(e)})
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	return string(b), nil
}

// DecodeEnvelope parses a queue message body into a field map.
func DecodeEnvelope(body string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	var env Envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrMalformed)
	}
	return Decode(env.Data)
}
