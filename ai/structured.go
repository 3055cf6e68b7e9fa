package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"vizora/internal"

	"github.com/tidwall/gjson"
)

// cleanJSONContent strips markdown fences and leading chatter from model output.
func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)

	// fenced block anywhere in the text: keep only its body
	if start := strings.Index(content, "```"); start >= 0 {
		body := content[start+3:]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
			body = body[nl+1:] // drop the language tag line
		} else {
			body = strings.TrimPrefix(body, "json")
		}
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		content = strings.TrimSpace(body)
	}
	content = strings.Trim(content, "`")
	content = strings.TrimSpace(content)

	if gjson.Valid(content) {
		return content
	}

	// trim prose before the first bracket and after the last matching one
	open := strings.IndexAny(content, "{[")
	if open < 0 {
		return content
	}
	closer := byte('}')
	if content[open] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(content, closer)
	if end > open {
		trimmed := content[open : end+1]
		if gjson.Valid(trimmed) {
			internal.DefaultLogger.Debug("[StructuredOutput] Trimmed %d bytes of chatter around JSON", len(content)-len(trimmed))
			return trimmed
		}
	}
	return content
}

func parseJSON(raw string) (gjson.Result, error) {
	content := cleanJSONContent(raw)
	if content == "" {
		return gjson.Result{}, fmt.Errorf("empty response")
	}
	if !gjson.Valid(content) {
		return gjson.Result{}, fmt.Errorf("invalid JSON: %s", truncate(content, 200))
	}
	return gjson.Parse(content), nil
}

// parseObject expects one JSON object.
func parseObject(raw string) (gjson.Result, error) {
	doc, err := parseJSON(raw)
	if err != nil {
		return doc, err
	}
	if !doc.IsObject() {
		return doc, fmt.Errorf("expected a JSON object, got %s", doc.Type)
	}
	return doc, nil
}

// parseList expects a JSON array; a lone object is treated as a one-element list.
func parseList(raw string) ([]gjson.Result, error) {
	doc, err := parseJSON(raw)
	if err != nil {
		return nil, err
	}
	switch {
	case doc.IsArray():
		return doc.Array(), nil
	case doc.IsObject():
		return []gjson.Result{doc}, nil
	}
	return nil, fmt.Errorf("expected a JSON list, got %s", doc.Type)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
