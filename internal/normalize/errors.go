package normalize

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFormat is the sentinel all *InvalidFormatError values match
// with errors.Is.
var ErrInvalidFormat = errors.New("unrecognized export format")

// ErrNoMessages indicates normalization succeeded structurally but yielded
// zero usable messages.
var ErrNoMessages = errors.New("no messages found in export")

// acceptedShapes is included in format errors to aid debugging of future
// vendor format drift.
const acceptedShapes = "accepted shapes: export object with mapping, array of export objects, array of {author|role|from, content|text} messages"

// InvalidFormatError describes input matching none of the supported shapes.
// Keys, when present, are the offending item's JSON keys.
type InvalidFormatError struct {
	Reason string
	Keys   []string
}

func (e *InvalidFormatError) Error() string {
	if len(e.Keys) == 0 {
		return fmt.Sprintf("unrecognized export format: %s (%s)", e.Reason, acceptedShapes)
	}
	return fmt.Sprintf("unrecognized export format: %s; item keys: [%s] (%s)",
		e.Reason, strings.Join(e.Keys, ", "), acceptedShapes)
}

func (e *InvalidFormatError) Is(target error) bool {
	return target == ErrInvalidFormat
}
