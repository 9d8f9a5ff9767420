package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	sessionDropRe  = regexp.MustCompile(`[^A-Za-z0-9\-_ ]+`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	sourceIDDropRe = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)
)

// SessionID derives the identifier a conversation's messages are grouped
// under in the remote store. The derivation is deterministic: it anchors
// both idempotent-skip detection and cross-run correlation with the store,
// so the same input must always yield the same id.
//
// The title is reduced to [A-Za-z0-9-_ ], whitespace runs become single
// hyphens, and the integer-truncated create time is appended. When no
// usable title exists, a sanitized form of the source id is used instead.
func SessionID(title string, createTime *float64, sourceID string) string {
	base := sessionDropRe.ReplaceAllString(title, "")
	base = whitespaceRe.ReplaceAllString(strings.TrimSpace(base), "-")
	if base == "" {
		return sanitizeSourceID(sourceID)
	}
	if createTime != nil {
		base += "-" + strconv.FormatInt(int64(*createTime), 10)
	}
	return base
}

func sanitizeSourceID(sourceID string) string {
	name := strings.TrimSuffix(sourceID, ".json")
	return sourceIDDropRe.ReplaceAllString(name, "-")
}
