// Package sanitize converts a raw vendor conversation export into a flat,
// chronologically ordered message list. It performs no I/O.
package sanitize

import (
	"encoding/json"
	"sort"
	"strings"
)

// Export is the root of one vendor conversation export: a title, an optional
// creation timestamp, and an unordered node graph keyed by node id.
type Export struct {
	Title      string          `json:"title"`
	CreateTime *float64        `json:"create_time"`
	Mapping    map[string]Node `json:"mapping"`
}

// Node is a single entry in the export's node graph. A node without a
// message carries no content.
type Node struct {
	Message *NodeMessage `json:"message"`
}

// NodeMessage is the message payload of a graph node.
type NodeMessage struct {
	Author     Author         `json:"author"`
	CreateTime *float64       `json:"create_time"`
	Content    NodeContent    `json:"content"`
	Recipient  string         `json:"recipient"`
	Metadata   map[string]any `json:"metadata"`
}

// Author carries the role of the message sender. Roles are free-form: both
// human roles and automated ones (system, tool, ...) appear in exports.
type Author struct {
	Role string `json:"role"`
}

// NodeContent holds either a multi-part content array or a single flat text
// field, depending on export vintage.
type NodeContent struct {
	ContentType string            `json:"content_type"`
	Parts       []json.RawMessage `json:"parts"`
	Text        string            `json:"text"`
}

// Message is one cleaned conversation turn.
type Message struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Result is the output of Sanitize: the cleaned message sequence plus the
// export-level metadata that survives normalization.
type Result struct {
	Messages   []Message
	Title      string
	CreateTime *float64
}

// hiddenFlagKeys are the metadata spellings the vendor has used for the
// "hidden from conversation" flag across export vintages.
var hiddenFlagKeys = []string{
	"is_visually_hidden_from_conversation",
	"is_hidden_from_conversation",
}

// Sanitize extracts the visible user/assistant messages from an export's
// node graph and orders them by message timestamp. Nodes are evaluated
// independently; malformed nodes are dropped, never abort the extraction.
//
// Ordering is best-effort: missing timestamps sort as 0, and the source
// graph does not guarantee true conversational order when timestamps
// collide or are absent.
func Sanitize(e Export) Result {
	type entry struct {
		msg Message
		ts  float64
		id  string
	}

	var entries []entry
	for id, node := range e.Mapping {
		m := node.Message
		if m == nil {
			continue
		}
		if m.Author.Role != "user" && m.Author.Role != "assistant" {
			continue
		}
		// A recipient other than the whole conversation marks a
		// machine-directed side channel (browser, python, ...).
		if m.Recipient != "" && m.Recipient != "all" {
			continue
		}
		if m.Author.Role == "assistant" && isHidden(m.Metadata) {
			continue
		}

		text := Clean(extractText(m.Content))
		if text == "" {
			continue
		}

		ts := 0.0
		if m.CreateTime != nil {
			ts = *m.CreateTime
		}
		entries = append(entries, entry{
			msg: Message{Author: m.Author.Role, Content: text},
			ts:  ts,
			id:  id,
		})
	}

	// Map iteration order is random; tie-break equal timestamps on node id
	// so repeated runs of the same export stay deterministic.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ts != entries[j].ts {
			return entries[i].ts < entries[j].ts
		}
		return entries[i].id < entries[j].id
	})

	msgs := make([]Message, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, e.msg)
	}

	return Result{
		Messages:   msgs,
		Title:      strings.TrimSpace(e.Title),
		CreateTime: e.CreateTime,
	}
}

// extractText prefers the multi-part content array (parts joined with no
// separator) over the single flat text field.
func extractText(c NodeContent) string {
	if len(c.Parts) > 0 {
		var sb strings.Builder
		for _, part := range c.Parts {
			var s string
			if err := json.Unmarshal(part, &s); err != nil {
				continue // non-text part (image pointer, etc.)
			}
			sb.WriteString(s)
		}
		return sb.String()
	}
	return c.Text
}

// isHidden reports whether any known spelling of the hidden flag is set.
func isHidden(meta map[string]any) bool {
	for _, key := range hiddenFlagKeys {
		if v, ok := meta[key]; ok {
			if b, ok := v.(bool); ok && b {
				return true
			}
		}
	}
	return false
}
