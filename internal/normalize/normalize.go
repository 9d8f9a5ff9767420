// Package normalize detects the shape of a conversation export and converts
// it into uniform conversation records ready for delivery.
//
// Three vendor shapes are recognized, in precedence order: a single export
// object (node-graph root with a "mapping" key), an array of such objects,
// and an array of flat message objects. A previously cleaned file
// ({"messages": [...]}) round-trips unchanged.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/MikeSquared-Agency/scribe/internal/sanitize"
)

// Record is one normalized conversation. SourceID identifies the export
// unit (filename or array index) the record came from and anchors
// idempotent-skip bookkeeping. Records are immutable once created.
type Record struct {
	Messages   []sanitize.Message `json:"messages"`
	Title      string             `json:"title,omitempty"`
	CreateTime *float64           `json:"create_time,omitempty"`

	SourceID       string `json:"-"`
	OriginalFormat string `json:"-"` // "mapping", "mapping-array", "array", "cleaned"
}

// flatMessage tolerates the three historical flat-message spellings:
// {author, content}, {role, content}, {from, text}.
type flatMessage struct {
	Author  string `json:"author"`
	Role    string `json:"role"`
	From    string `json:"from"`
	Content string `json:"content"`
	Text    string `json:"text"`
}

// Normalize converts raw export JSON into one or more Records.
//
// Conversations that yield zero messages are dropped from array results
// unless every element yields zero, which is ErrNoMessages. Unrecognized
// input fails with an *InvalidFormatError.
func Normalize(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &InvalidFormatError{Reason: "empty input"}
	}

	switch trimmed[0] {
	case '{':
		rec, err := normalizeObject(trimmed)
		if err != nil {
			return nil, err
		}
		return []Record{*rec}, nil
	case '[':
		return normalizeArray(trimmed)
	default:
		return nil, &InvalidFormatError{Reason: "input is not a JSON object or array"}
	}
}

func normalizeObject(data []byte) (*Record, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &InvalidFormatError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if _, ok := probe["mapping"]; ok {
		var export sanitize.Export
		if err := json.Unmarshal(data, &export); err != nil {
			return nil, &InvalidFormatError{Reason: fmt.Sprintf("malformed export object: %v", err)}
		}
		res := sanitize.Sanitize(export)
		if len(res.Messages) == 0 {
			return nil, ErrNoMessages
		}
		return &Record{
			Messages:       res.Messages,
			Title:          res.Title,
			CreateTime:     res.CreateTime,
			OriginalFormat: "mapping",
		}, nil
	}

	// A file this module wrote earlier: {"messages": [...], ...}.
	if _, ok := probe["messages"]; ok {
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, &InvalidFormatError{Reason: fmt.Sprintf("malformed cleaned file: %v", err)}
		}
		if len(rec.Messages) == 0 {
			return nil, ErrNoMessages
		}
		rec.OriginalFormat = "cleaned"
		return &rec, nil
	}

	return nil, &InvalidFormatError{
		Reason: "object has neither a mapping node graph nor a messages list",
		Keys:   mapKeys(probe),
	}
}

func normalizeArray(data []byte) ([]Record, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, &InvalidFormatError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if len(elems) == 0 {
		return nil, &InvalidFormatError{Reason: "empty array"}
	}

	var first map[string]json.RawMessage
	if err := json.Unmarshal(elems[0], &first); err != nil {
		return nil, &InvalidFormatError{Reason: "array elements are not objects"}
	}

	if _, ok := first["mapping"]; ok {
		return normalizeExportArray(elems)
	}
	return normalizeFlatArray(elems)
}

// normalizeExportArray handles an array of raw export objects. Elements
// yielding zero messages are dropped, not errors, unless all do.
func normalizeExportArray(elems []json.RawMessage) ([]Record, error) {
	var records []Record
	for i, elem := range elems {
		var export sanitize.Export
		if err := json.Unmarshal(elem, &export); err != nil {
			continue // malformed element, evaluated independently
		}
		res := sanitize.Sanitize(export)
		if len(res.Messages) == 0 {
			continue
		}
		records = append(records, Record{
			Messages:       res.Messages,
			Title:          res.Title,
			CreateTime:     res.CreateTime,
			SourceID:       strconv.Itoa(i),
			OriginalFormat: "mapping-array",
		})
	}
	if len(records) == 0 {
		return nil, ErrNoMessages
	}
	return records, nil
}

// normalizeFlatArray handles an array of flat message objects, producing a
// single record.
func normalizeFlatArray(elems []json.RawMessage) ([]Record, error) {
	msgs := make([]sanitize.Message, 0, len(elems))
	for _, elem := range elems {
		var fm flatMessage
		if err := json.Unmarshal(elem, &fm); err != nil {
			return nil, &InvalidFormatError{Reason: "array elements are not objects"}
		}

		author := firstNonEmpty(fm.Author, fm.Role, fm.From)
		content := firstNonEmpty(fm.Content, fm.Text)
		if author == "" || content == "" {
			var probe map[string]json.RawMessage
			_ = json.Unmarshal(elem, &probe)
			return nil, &InvalidFormatError{
				Reason: "array item matches no known message shape",
				Keys:   mapKeys(probe),
			}
		}

		content = sanitize.Clean(content)
		if content == "" {
			continue
		}
		msgs = append(msgs, sanitize.Message{Author: author, Content: content})
	}
	if len(msgs) == 0 {
		return nil, ErrNoMessages
	}
	return []Record{{Messages: msgs, OriginalFormat: "array"}}, nil
}

// Validate checks whether the input matches a recognized shape without
// performing extraction work. It is side-effect free and suitable as a
// pre-check producing a user-facing message.
func Validate(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &InvalidFormatError{Reason: "empty input"}
	}

	switch trimmed[0] {
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return &InvalidFormatError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
		}
		if _, ok := probe["mapping"]; ok {
			return nil
		}
		if _, ok := probe["messages"]; ok {
			return nil
		}
		return &InvalidFormatError{
			Reason: "object has neither a mapping node graph nor a messages list",
			Keys:   mapKeys(probe),
		}
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return &InvalidFormatError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
		}
		if len(elems) == 0 {
			return &InvalidFormatError{Reason: "empty array"}
		}
		var first map[string]json.RawMessage
		if err := json.Unmarshal(elems[0], &first); err != nil {
			return &InvalidFormatError{Reason: "array elements are not objects"}
		}
		if _, ok := first["mapping"]; ok {
			return nil
		}
		var fm flatMessage
		_ = json.Unmarshal(elems[0], &fm)
		if firstNonEmpty(fm.Author, fm.Role, fm.From) != "" && firstNonEmpty(fm.Content, fm.Text) != "" {
			return nil
		}
		return &InvalidFormatError{
			Reason: "array item matches no known message shape",
			Keys:   mapKeys(first),
		}
	default:
		return &InvalidFormatError{Reason: "input is not a JSON object or array"}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func mapKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
