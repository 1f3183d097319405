// Package record decodes JSON-lines post records.
//
// Each line of the data file is expected to hold one JSON object such as
//
//	{"message": "I just saw a movie! It was amazing.", "author": "Eve", "category": "movies"}
//
// Only the author and category fields matter to the interaction graph; every
// other field is kept in [Record.Fields] untouched. Missing fields default to
// [Unknown].
package record

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/livegraph/pkg/errors"
)

// Unknown is substituted for a missing or null author or category.
const Unknown = "unknown"

// Field names read from each record.
const (
	FieldAuthor   = "author"
	FieldCategory = "category"
)

// Record is one decoded line.
type Record struct {
	Author   string
	Category string
	Fields   map[string]any // Whole decoded object, including author and category
}

// Decode parses one line.
//
// The returned bool is false when the line is valid JSON but not an object
// (a number, string, array or null); such lines are silently ignored by
// callers and err is nil.
//
// Errors carry one of two codes:
//   - MALFORMED_RECORD: the line is not valid JSON (or is blank)
//   - PROCESSING_ERROR: author or category holds an object or an array
func Decode(line string) (Record, bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Record{}, false, errors.New(errors.ErrCodeMalformedRecord, "invalid JSON message: empty line")
	}

	var v any
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return Record{}, false, errors.Wrap(errors.ErrCodeMalformedRecord, err, "invalid JSON message: %s", trimmed)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Record{}, false, errors.New(errors.ErrCodeMalformedRecord, "invalid JSON message: trailing data: %s", trimmed)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return Record{}, false, nil
	}

	author, err := keyOf(obj, FieldAuthor)
	if err != nil {
		return Record{}, false, err
	}
	category, err := keyOf(obj, FieldCategory)
	if err != nil {
		return Record{}, false, err
	}

	return Record{Author: author, Category: category, Fields: obj}, true, nil
}

// keyOf turns a field into a node key. Scalars keep their JSON text so that
// {"author": 42} and {"author": "42"} land on the same node.
func keyOf(obj map[string]any, field string) (string, error) {
	raw, ok := obj[field]
	if !ok || raw == nil {
		return Unknown, nil
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		var buf bytes.Buffer
		_ = json.NewEncoder(&buf).Encode(raw)
		return "", errors.New(errors.ErrCodeProcessing, "field %q has unsupported type: %s",
			field, strings.TrimSpace(buf.String()))
	}
}
