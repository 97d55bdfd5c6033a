package provider

import (
	"context"
	"encoding/json"
	"strings"
)

// InvokeStructured sends a prompt and decodes the response into T. LLMs
// often wrap JSON in prose or markdown fences, so the first balanced JSON
// object or array in the response is extracted before decoding. A response
// with no parseable JSON, or JSON missing the expected shape, yields a
// MalformedOutputError carrying the offending text.
func InvokeStructured[T any](ctx context.Context, p Provider, model, prompt string) (T, error) {
	var out T

	var raw string
	var err error
	if model != "" {
		raw, err = p.GenerateWithModel(ctx, prompt, model)
	} else {
		raw, err = p.Generate(ctx, prompt)
	}
	if err != nil {
		return out, err
	}

	payload, ok := ExtractJSON(raw)
	if !ok {
		return out, &MalformedOutputError{Reason: "no JSON object found", Raw: raw}
	}

	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return out, &MalformedOutputError{Reason: err.Error(), Raw: raw}
	}

	return out, nil
}

// ExtractJSON returns the first balanced JSON object or array embedded in s.
func ExtractJSON(s string) (string, bool) {
	start := -1
	var opener, closer byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			opener = s[i]
			if opener == '{' {
				closer = '}'
			} else {
				closer = ']'
			}
			break
		}
	}
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// StripThinking removes a leading chain-of-thought block that some models
// emit before their answer.
func StripThinking(s string) string {
	if idx := strings.LastIndex(s, "</think>"); idx != -1 {
		return strings.TrimSpace(s[idx+len("</think>"):])
	}
	return s
}
