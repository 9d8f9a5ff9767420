package sanitize

import (
	"encoding/json"
	"testing"
)

func ts(v float64) *float64 {
	return &v
}

func rawParts(parts ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(parts))
	for i, p := range parts {
		out[i] = json.RawMessage(p)
	}
	return out
}

func textNode(role, text string, createTime float64) Node {
	return Node{Message: &NodeMessage{
		Author:     Author{Role: role},
		CreateTime: ts(createTime),
		Content:    NodeContent{Text: text},
		Recipient:  "all",
	}}
}

func TestSanitize_DropsNonConversationRoles(t *testing.T) {
	export := Export{Mapping: map[string]Node{
		"a": textNode("system", "You are a helpful assistant", 1),
		"b": textNode("user", "Hello", 2),
		"c": textNode("tool", "search results", 3),
		"d": textNode("assistant", "Hi there", 4),
		"e": textNode("function", "{}", 5),
	}}

	res := Sanitize(export)
	if len(res.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d: %+v", len(res.Messages), res.Messages)
	}
	if res.Messages[0].Author != "user" || res.Messages[0].Content != "Hello" {
		t.Errorf("msg[0] = %+v, want user/Hello", res.Messages[0])
	}
	if res.Messages[1].Author != "assistant" || res.Messages[1].Content != "Hi there" {
		t.Errorf("msg[1] = %+v, want assistant/Hi there", res.Messages[1])
	}
}

func TestSanitize_DropsNodesWithoutMessage(t *testing.T) {
	export := Export{Mapping: map[string]Node{
		"root": {},
		"a":    textNode("user", "Hello", 1),
	}}

	res := Sanitize(export)
	if len(res.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(res.Messages))
	}
}

func TestSanitize_DropsMachineDirectedMessages(t *testing.T) {
	browser := textNode("assistant", "open_url(example.com)", 2)
	browser.Message.Recipient = "browser"
	empty := textNode("assistant", "Visible reply", 3)
	empty.Message.Recipient = ""

	export := Export{Mapping: map[string]Node{
		"a": textNode("user", "Look this up", 1),
		"b": browser,
		"c": empty,
	}}

	res := Sanitize(export)
	if len(res.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d: %+v", len(res.Messages), res.Messages)
	}
	if res.Messages[1].Content != "Visible reply" {
		t.Errorf("msg[1] = %+v, want the visible reply", res.Messages[1])
	}
}

func TestSanitize_DropsHiddenAssistantMessages(t *testing.T) {
	for _, key := range []string{
		"is_visually_hidden_from_conversation",
		"is_hidden_from_conversation",
	} {
		t.Run(key, func(t *testing.T) {
			hidden := textNode("assistant", "internal reasoning", 2)
			hidden.Message.Metadata = map[string]any{key: true}

			export := Export{Mapping: map[string]Node{
				"a": textNode("user", "Question", 1),
				"b": hidden,
				"c": textNode("assistant", "Answer", 3),
			}}

			res := Sanitize(export)
			if len(res.Messages) != 2 {
				t.Fatalf("expected 2 messages, got %d: %+v", len(res.Messages), res.Messages)
			}
			if res.Messages[1].Content != "Answer" {
				t.Errorf("hidden message leaked: %+v", res.Messages)
			}
		})
	}
}

func TestSanitize_HiddenFlagFalseIsKept(t *testing.T) {
	visible := textNode("assistant", "Answer", 2)
	visible.Message.Metadata = map[string]any{"is_visually_hidden_from_conversation": false}

	export := Export{Mapping: map[string]Node{
		"a": textNode("user", "Question", 1),
		"b": visible,
	}}

	if res := Sanitize(export); len(res.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(res.Messages))
	}
}

func TestSanitize_PrefersPartsOverText(t *testing.T) {
	node := Node{Message: &NodeMessage{
		Author:     Author{Role: "assistant"},
		CreateTime: ts(1),
		Content: NodeContent{
			ContentType: "text",
			Parts:       rawParts(`"Hello, "`, `"world"`),
			Text:        "ignored",
		},
	}}

	res := Sanitize(Export{Mapping: map[string]Node{"a": node}})
	if len(res.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(res.Messages))
	}
	if res.Messages[0].Content != "Hello, world" {
		t.Errorf("content = %q, want parts joined with no separator", res.Messages[0].Content)
	}
}

func TestSanitize_SkipsNonTextParts(t *testing.T) {
	node := Node{Message: &NodeMessage{
		Author:     Author{Role: "user"},
		CreateTime: ts(1),
		Content: NodeContent{
			ContentType: "multimodal_text",
			Parts:       rawParts(`{"asset_pointer":"file-service://abc"}`, `"describe this image"`),
		},
	}}

	res := Sanitize(Export{Mapping: map[string]Node{"a": node}})
	if len(res.Messages) != 1 || res.Messages[0].Content != "describe this image" {
		t.Fatalf("unexpected messages: %+v", res.Messages)
	}
}

func TestSanitize_DropsEmptyAfterCleaning(t *testing.T) {
	export := Export{Mapping: map[string]Node{
		"a": textNode("user", "   ​  ", 1),
		"b": textNode("assistant", "", 2),
		"c": textNode("user", "real content", 3),
	}}

	res := Sanitize(export)
	if len(res.Messages) != 1 || res.Messages[0].Content != "real content" {
		t.Fatalf("unexpected messages: %+v", res.Messages)
	}
}

func TestSanitize_OrdersByCreateTime(t *testing.T) {
	missing := textNode("user", "no timestamp", 0)
	missing.Message.CreateTime = nil

	export := Export{Mapping: map[string]Node{
		"z": textNode("assistant", "second", 200),
		"a": textNode("user", "third", 300),
		"m": textNode("user", "first", 100),
		"q": missing,
	}}

	res := Sanitize(export)
	want := []string{"no timestamp", "first", "second", "third"}
	if len(res.Messages) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(res.Messages))
	}
	for i, w := range want {
		if res.Messages[i].Content != w {
			t.Errorf("msg[%d] = %q, want %q", i, res.Messages[i].Content, w)
		}
	}
}

func TestSanitize_ExportScenario(t *testing.T) {
	hidden := textNode("assistant", "secret", 3)
	hidden.Message.Metadata = map[string]any{"is_visually_hidden_from_conversation": true}

	export := Export{
		Title:      "Greetings",
		CreateTime: ts(1700000000),
		Mapping: map[string]Node{
			"n1": textNode("system", "be helpful", 1),
			"n2": textNode("user", "Hi\x00", 2),
			"n3": hidden,
			"n4": textNode("assistant", "Hello ", 4),
		},
	}

	res := Sanitize(export)
	if res.Title != "Greetings" {
		t.Errorf("title = %q", res.Title)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d: %+v", len(res.Messages), res.Messages)
	}
	if res.Messages[0].Author != "user" || res.Messages[0].Content != "Hi" {
		t.Errorf("msg[0] = %+v, want user/Hi", res.Messages[0])
	}
	if res.Messages[1].Author != "assistant" || res.Messages[1].Content != "Hello" {
		t.Errorf("msg[1] = %+v, want assistant/Hello", res.Messages[1])
	}
}

func TestSanitize_EmptyGraph(t *testing.T) {
	if res := Sanitize(Export{}); len(res.Messages) != 0 {
		t.Fatalf("expected no messages, got %+v", res.Messages)
	}
}
