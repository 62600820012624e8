package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/common"
)

// Envelope keys. Domain types must not use these names.
const (
	KeyID         = "id"
	KeyUserID     = "userId"
	KeyIsArchived = "isArchived"
	KeyCreatedAt  = "createdAt"
	KeyUpdatedAt  = "updatedAt"
)

var envelopeKeys = []string{KeyID, KeyUserID, KeyIsArchived, KeyCreatedAt, KeyUpdatedAt}

// Envelope is the part of a record owned by the sync layer rather than by
// the collection.
type Envelope struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	IsArchived bool      `json:"isArchived"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MergePayload flattens env and the domain object data into one JSON object.
// Envelope values win over same-named keys in data.
func MergePayload(env Envelope, data json.RawMessage) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("failed to decode record data: %w", err)
		}
	}

	put := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fields[key] = b
		return nil
	}
	for key, v := range map[string]any{
		KeyID:         env.ID,
		KeyUserID:     env.UserID,
		KeyIsArchived: env.IsArchived,
		KeyCreatedAt:  env.CreatedAt.UTC(),
		KeyUpdatedAt:  env.UpdatedAt.UTC(),
	} {
		if err := put(key, v); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
	}

	return json.Marshal(fields)
}

// SplitPayload is the inverse of MergePayload. Missing envelope keys are
// left at their zero values.
func SplitPayload(payload json.RawMessage) (Envelope, json.RawMessage, error) {
	var env Envelope
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return env, nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	envFields := map[string]json.RawMessage{}
	for _, key := range envelopeKeys {
		if v, ok := fields[key]; ok {
			envFields[key] = v
			delete(fields, key)
		}
	}
	b, err := json.Marshal(envFields)
	if err != nil {
		return env, nil, err
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return env, nil, fmt.Errorf("failed to decode envelope: %w", err)
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return env, nil, err
	}
	return env, data, nil
}

// KeyPayload is the minimal body for an archive (DELETE) mutation.
func KeyPayload(env Envelope) (json.RawMessage, error) {
	return json.Marshal(map[string]any{
		KeyID:         env.ID,
		KeyUserID:     env.UserID,
		KeyIsArchived: env.IsArchived,
		KeyUpdatedAt:  env.UpdatedAt.UTC(),
	})
}

// Decode parses domain JSON for collection c without validating it.
func Decode(c Collection, data json.RawMessage) (Domain, error) {
	d, err := New(c)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return d, nil
}

// ValidatePayload decodes and validates domain JSON for collection c.
// Errors wrap common.ErrValidation.
func ValidatePayload(c Collection, data json.RawMessage) error {
	d, err := Decode(c, data)
	if err != nil {
		return err
	}
	return d.Validate()
}

// Normalize validates domain JSON for c and re-encodes it through the domain
// type, which drops unknown fields and fixes the JSON shape.
func Normalize(c Collection, data json.RawMessage) (json.RawMessage, error) {
	d, err := Decode(c, data)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	out, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", c, err)
	}
	return out, nil
}

// EventDate returns the record's "date" field, used for range queries.
// Records without one yield "".
func EventDate(data json.RawMessage) string {
	var v struct {
		Date string `json:"date"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return ""
	}
	return v.Date
}
