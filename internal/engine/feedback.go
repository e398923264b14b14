// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/internal/outline"
)

var (
	keepDirectiveRe   = regexp.MustCompile(`(?i)\bkeep\b[:\s]*([\d,\s(and)]+)`)
	removeDirectiveRe = regexp.MustCompile(`(?i)\b(?:remove|drop|delete|skip)\b[:\s]*([\d,\s(and)]+)`)
	numberRe          = regexp.MustCompile(`\d+`)
)

// parseFeedback turns a user's outline response into keep/remove directives.
// Explicit index directives ("keep 1, 3; remove 2") are parsed directly;
// anything else goes to the completion service for intent extraction. A
// message that cannot be interpreted either way degrades to "no change" —
// never an error.
func (e *Engine) parseFeedback(ctx context.Context, message string, topicCount int) outline.Feedback {
	if fb, ok := parseIndexDirectives(message); ok {
		return clampFeedback(fb, topicCount)
	}

	prompt := `A research outline has ` + strconv.Itoa(topicCount) + ` numbered topics. The user replied to it with:

"` + message + `"

Which topic numbers does the user want to keep and which to remove?
Respond with only a JSON object: {"keep": [..], "remove": [..]}.
Use empty arrays when the user expresses no opinion.`

	raw, err := llm.CompleteWithRetry(ctx, e.Completer, prompt, e.Config.LLM.MaxRetries)
	if err != nil {
		return outline.Feedback{}
	}
	payload := llm.CleanJSON(raw)
	if payload == "" {
		return outline.Feedback{}
	}

	var fb outline.Feedback
	gjson.Get(payload, "keep").ForEach(func(_, v gjson.Result) bool {
		fb.Keep = append(fb.Keep, int(v.Int()))
		return true
	})
	gjson.Get(payload, "remove").ForEach(func(_, v gjson.Result) bool {
		fb.Remove = append(fb.Remove, int(v.Int()))
		return true
	})
	return clampFeedback(fb, topicCount)
}

// parseIndexDirectives handles the explicit "keep 1,3; remove 2" form.
func parseIndexDirectives(message string) (outline.Feedback, bool) {
	var fb outline.Feedback
	if m := keepDirectiveRe.FindStringSubmatch(message); m != nil {
		fb.Keep = parseNumbers(m[1])
	}
	if m := removeDirectiveRe.FindStringSubmatch(message); m != nil {
		fb.Remove = parseNumbers(m[1])
	}
	return fb, len(fb.Keep) > 0 || len(fb.Remove) > 0
}

func parseNumbers(s string) []int {
	var out []int
	for _, m := range numberRe.FindAllString(s, -1) {
		if n, err := strconv.Atoi(strings.TrimSpace(m)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// clampFeedback drops out-of-range indices and removes from the remove set
// anything also kept (keep wins on conflict).
func clampFeedback(fb outline.Feedback, topicCount int) outline.Feedback {
	kept := make(map[int]bool)
	var out outline.Feedback
	for _, n := range fb.Keep {
		if n >= 1 && n <= topicCount && !kept[n] {
			kept[n] = true
			out.Keep = append(out.Keep, n)
		}
	}
	for _, n := range fb.Remove {
		if n >= 1 && n <= topicCount && !kept[n] {
			out.Remove = append(out.Remove, n)
		}
	}
	return out
}
