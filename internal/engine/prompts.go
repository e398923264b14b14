// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/pkg/types"
)

// generateSeedQueries asks the completion service for initial search queries
// covering the user's request. Degrades to the request itself as a single
// query.
func (e *Engine) generateSeedQueries(ctx context.Context, request string, n int) []string {
	prompt := fmt.Sprintf(`Generate %d distinct web search queries to begin researching:

%s

Respond with only a JSON array of query strings.`, n, request)

	raw, err := llm.CompleteWithRetry(ctx, e.Completer, prompt, e.Config.LLM.MaxRetries)
	if err == nil {
		if queries := llm.StringList(raw, "queries"); len(queries) > 0 {
			if len(queries) > n {
				queries = queries[:n]
			}
			return queries
		}
	}
	return []string{request}
}

// generateOutline asks for research topics given the request and any context
// gathered by the seed fetches. Degrades to a single topic: the request.
func (e *Engine) generateOutline(ctx context.Context, request, gathered string) []string {
	prompt := fmt.Sprintf(`You are planning a research report on:

%s

Early findings:
%s

Propose 3-6 focused research topics that together cover the request.
Respond with only a JSON array of topic titles.`, request, clip(gathered, 4000))

	raw, err := llm.CompleteWithRetry(ctx, e.Completer, prompt, e.Config.LLM.MaxRetries)
	if err == nil {
		if topics := llm.StringList(raw, "topics", "outline"); len(topics) > 0 {
			return topics
		}
	}
	return []string{request}
}

// generateTopicQueries asks for search queries advancing one topic. Degrades
// to the topic title.
func (e *Engine) generateTopicQueries(ctx context.Context, seed string, topic *types.Topic, n int) []string {
	prompt := fmt.Sprintf(`Research request: %s
Current topic: %s

Generate %d distinct web search queries that advance this topic.
Respond with only a JSON array of query strings.`, seed, topic.Title, n)

	raw, err := llm.CompleteWithRetry(ctx, e.Completer, prompt, e.Config.LLM.MaxRetries)
	if err == nil {
		if queries := llm.StringList(raw, "queries"); len(queries) > 0 {
			if len(queries) > n {
				queries = queries[:n]
			}
			return queries
		}
	}
	return []string{topic.Title}
}

// cycleAnalysis is the parsed post-cycle verdict for one topic.
type cycleAnalysis struct {
	Completed bool
	NewTopics []string
}

// analyzeTopic asks whether the cycle's findings complete the topic and
// whether they surfaced follow-up topics. An unparseable response degrades
// to "no change".
func (e *Engine) analyzeTopic(ctx context.Context, topic *types.Topic, findings string) cycleAnalysis {
	prompt := fmt.Sprintf(`Research topic: %s

New findings this cycle:
%s

Respond with only a JSON object:
{"completed": true/false, "new_topics": ["..."]}
"completed" means the findings sufficiently cover the topic.
"new_topics" lists at most 2 follow-up topics the findings surfaced, or [].`,
		topic.Title, clip(findings, 4000))

	raw, err := llm.CompleteWithRetry(ctx, e.Completer, prompt, e.Config.LLM.MaxRetries)
	if err != nil {
		return cycleAnalysis{}
	}
	payload := llm.CleanJSON(raw)
	if payload == "" {
		return cycleAnalysis{}
	}

	analysis := cycleAnalysis{Completed: gjson.Get(payload, "completed").Bool()}
	for _, t := range llm.StringList(raw, "new_topics") {
		analysis.NewTopics = append(analysis.NewTopics, t)
		if len(analysis.NewTopics) >= 2 {
			break
		}
	}
	return analysis
}

// clip truncates s to at most n bytes, backing up to a space or a rune
// boundary so multibyte text is never cut mid-sequence.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := strings.ToValidUTF8(s[:n], "")
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + " ..."
}
