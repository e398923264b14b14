// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"strings"

	"github.com/tidwall/gjson"
)

// CleanJSON strips the decoration completion services habitually wrap around
// structured output: markdown code fences, leading prose, trailing notes. It
// returns the innermost substring that starts at the first '{' or '[' and
// ends at the last matching '}' or ']'. Returns "" when no JSON-like payload
// is present.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Drop ``` fences, with or without a language tag.
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "\n"); j >= 0 && !strings.ContainsAny(s[:j], "{[") {
			s = s[j+1:]
		}
		if j := strings.LastIndex(s, "```"); j >= 0 {
			s = s[:j]
		}
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

// StringList extracts a list of strings from raw completion output. It tries
// each named path in order, then a top-level array, accepting both
// ["a", "b"] and [{"query": "a"}, ...] shapes. Returns nil when nothing
// usable is found — callers degrade rather than abort.
func StringList(raw string, paths ...string) []string {
	payload := CleanJSON(raw)
	if payload == "" {
		return nil
	}

	collect := func(v gjson.Result) []string {
		var out []string
		v.ForEach(func(_, item gjson.Result) bool {
			switch {
			case item.Type == gjson.String:
				if s := strings.TrimSpace(item.String()); s != "" {
					out = append(out, s)
				}
			case item.IsObject():
				// Dict-shaped items: take the first string field.
				item.ForEach(func(_, field gjson.Result) bool {
					if field.Type == gjson.String && strings.TrimSpace(field.String()) != "" {
						out = append(out, strings.TrimSpace(field.String()))
						return false
					}
					return true
				})
			}
			return true
		})
		return out
	}

	for _, path := range paths {
		if v := gjson.Get(payload, path); v.IsArray() {
			if out := collect(v); len(out) > 0 {
				return out
			}
		}
	}
	if v := gjson.Parse(payload); v.IsArray() {
		return collect(v)
	}
	return nil
}

// YesNo interprets a completion as a yes/no verdict. The second return is
// false when the response cannot be parsed either way.
func YesNo(raw string) (verdict, ok bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	// Tolerate JSON-shaped answers like {"supported": true}.
	if payload := CleanJSON(s); payload != "" {
		for _, path := range []string{"supported", "answer", "verdict"} {
			if v := gjson.Get(payload, path); v.Exists() {
				switch v.Type {
				case gjson.True:
					return true, true
				case gjson.False:
					return false, true
				case gjson.String:
					s = strings.ToLower(v.String())
				}
			}
		}
	}
	switch {
	case strings.HasPrefix(s, "yes"), strings.HasPrefix(s, "true"):
		return true, true
	case strings.HasPrefix(s, "no"), strings.HasPrefix(s, "false"):
		return false, true
	}
	return false, false
}
