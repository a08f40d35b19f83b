package recordstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedRow is returned by the Row accessors when a field is missing
// or holds a value of an unexpected type.
var ErrMalformedRow = errors.New("malformed record")

// FieldValue is the store's envelope around a single cell value.
type FieldValue struct {
	Value any `json:"value"`
}

// Row maps a field ID (in string form) to its value.
type Row map[string]FieldValue

// Int64 returns the value stored under key as an integer.
func (r Row) Int64(key string) (int64, error) {
	fv, ok := r[key]
	if !ok || fv.Value == nil {
		return 0, fmt.Errorf("field %s: %w", key, ErrMalformedRow)
	}
	switch v := fv.Value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("field %s: %q is not an integer: %w", key, v, ErrMalformedRow)
		}
		return int64(f), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("field %s: %v is not an integer: %w", key, v, ErrMalformedRow)
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("field %s: %q is not an integer: %w", key, v, ErrMalformedRow)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("field %s: unexpected type %T: %w", key, v, ErrMalformedRow)
	}
}

// String returns the value stored under key as text. Missing and empty
// cells yield "".
func (r Row) String(key string) string {
	fv, ok := r[key]
	if !ok || fv.Value == nil {
		return ""
	}
	switch v := fv.Value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Float64 returns the value stored under key as a float. Missing and empty
// cells yield 0.
func (r Row) Float64(key string) (float64, error) {
	fv, ok := r[key]
	if !ok || fv.Value == nil {
		return 0, nil
	}
	switch v := fv.Value.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("field %s: %q is not a number: %w", key, v, ErrMalformedRow)
		}
		return f, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("field %s: %q is not a number: %w", key, v, ErrMalformedRow)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("field %s: unexpected type %T: %w", key, v, ErrMalformedRow)
	}
}

// Bool returns the value stored under key as a boolean. Missing and empty
// cells yield false.
func (r Row) Bool(key string) (bool, error) {
	fv, ok := r[key]
	if !ok || fv.Value == nil {
		return false, nil
	}
	switch v := fv.Value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("field %s: %q is not a boolean: %w", key, v, ErrMalformedRow)
		}
		return b, nil
	default:
		return false, fmt.Errorf("field %s: unexpected type %T: %w", key, v, ErrMalformedRow)
	}
}

// QueryRequest is the body of a records query.
type QueryRequest struct {
	// From is the table ID to query.
	From string `json:"from"`
	// Where is a store-specific filter expression, forwarded verbatim.
	Where string `json:"where,omitempty"`
	// Select lists the field IDs to return.
	Select []int `json:"select"`
}

// UpsertRequest is the body of an insert-or-update call.
type UpsertRequest struct {
	// To is the table ID to write.
	To string `json:"to"`
	// Data holds the rows; a row updating an existing record carries the
	// primary key field.
	Data []Row `json:"data"`
}

// UpsertMetadata summarizes what the store did with an upsert.
type UpsertMetadata struct {
	CreatedRecordIDs              []int64 `json:"createdRecordIds"`
	UpdatedRecordIDs              []int64 `json:"updatedRecordIds"`
	UnchangedRecordIDs            []int64 `json:"unchangedRecordIds"`
	TotalNumberOfRecordsProcessed int64   `json:"totalNumberOfRecordsProcessed"`
}

// UpsertResult is the store's raw acknowledgment of an upsert.
type UpsertResult struct {
	Data     []Row          `json:"data"`
	Metadata UpsertMetadata `json:"metadata"`
}

type queryResponse struct {
	Data []Row `json:"data"`
}
