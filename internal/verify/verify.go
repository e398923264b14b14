// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify re-checks each report citation against its source text and
// marks unsupported claims. Verification is per-citation and independent:
// one failed check never blocks the others, and unverifiable claims are
// visibly marked rather than silently dropped.
package verify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/pkg/types"
)

// sourceTextLimit caps how much source material goes into one verification
// prompt.
const sourceTextLimit = 6000

// Verifier asks the completion oracle a yes/no question per citation.
type Verifier struct {
	Completer llm.Completer
	Config    types.LLMConfig
	Log       *zap.Logger
}

// New returns a verifier using the given completion client.
func New(c llm.Completer, cfg types.LLMConfig, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{Completer: c, Config: cfg, Log: log}
}

// VerifyReport checks every citation in the report against its cached source
// text. sourceText maps a result id to the compressed text that backed it;
// citations whose sources are gone are marked unverified. Claims that fail
// verification are wrapped in a visible strikethrough marker in the section
// content.
func (v *Verifier) VerifyReport(ctx context.Context, report *types.Report, sourceText func(resultID string) string) {
	for si := range report.Sections {
		sec := &report.Sections[si]
		for ci := range sec.Citations {
			cite := &sec.Citations[ci]

			supported := v.verifyOne(ctx, *cite, sourceText)
			if supported {
				cite.Verified = types.VerifyConfirmed
				continue
			}
			cite.Verified = types.VerifyUnverified
			sec.Content = markUnverified(sec.Content, cite.Claim)
			v.Log.Warn("citation unverified",
				zap.Int("citation", cite.Index),
				zap.String("section", sec.Title),
				zap.String("source", cite.SourceURL))
		}
	}
}

// verifyOne asks the oracle whether the source supports the claim. The
// question is retried once on an unparseable answer; still-unparseable
// responses count as unsupported.
func (v *Verifier) verifyOne(ctx context.Context, cite types.Citation, sourceText func(resultID string) string) bool {
	var source string
	for _, id := range cite.ResultIDs {
		if t := sourceText(id); t != "" {
			source += t + "\n\n"
		}
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return false
	}
	if len(source) > sourceTextLimit {
		// Cut on a rune boundary; a split multibyte sequence would garble
		// the prompt.
		source = strings.ToValidUTF8(source[:sourceTextLimit], "")
	}

	prompt := fmt.Sprintf(`Does the source text below support the following claim?

Claim: %s

Source:
%s

Answer with exactly "yes" or "no".`, cite.Claim, source)

	for attempt := 0; attempt < 2; attempt++ {
		raw, err := llm.CompleteWithRetry(ctx, v.Completer, prompt, v.Config.MaxRetries)
		if err != nil {
			return false
		}
		if verdict, ok := llm.YesNo(raw); ok {
			return verdict
		}
	}
	return false
}

// markUnverified wraps the claim text in strikethrough with an explicit
// marker. The claim stays in the document; it is never silently dropped.
func markUnverified(content, claim string) string {
	if claim == "" || strings.Contains(content, "~~"+claim+"~~") {
		return content
	}
	marked := "~~" + claim + "~~ *[unverified]*"
	return strings.Replace(content, claim, marked, 1)
}
