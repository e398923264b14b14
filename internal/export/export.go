// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes the plain-text session trace: every query, the
// results it produced, and the compressed content that fed synthesis. The
// trace is human-readable and written once research concludes; it is not
// meant for re-ingestion.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/internal/session"
)

// WriteTrace renders the full session trace to w, one record per
// query/result pair, followed by a yaml snapshot of the final outline.
func WriteTrace(w io.Writer, sess *session.Session) error {
	fmt.Fprintf(w, "session: %s\n", sess.ID)
	fmt.Fprintf(w, "seed: %s\n", sess.Seed)
	fmt.Fprintf(w, "cycles: %d\n", sess.Cycle())
	fmt.Fprintf(w, "exported: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintln(w, strings.Repeat("=", 72))

	queries := sess.Queries()
	results := sess.Results()

	byQuery := make(map[string][]int)
	for i, r := range results {
		byQuery[r.QueryID] = append(byQuery[r.QueryID], i)
	}

	for _, q := range queries {
		idxs := byQuery[q.ID]
		if len(idxs) == 0 {
			fmt.Fprintf(w, "\n[cycle %d] query: %s\n  (no results)\n", q.Cycle, q.Text)
			continue
		}
		for _, i := range idxs {
			r := results[i]
			fmt.Fprintf(w, "\n[cycle %d] query: %s\n", q.Cycle, q.Text)
			fmt.Fprintf(w, "  url: %s\n", r.URL)
			fmt.Fprintf(w, "  status: %s\n", r.Status)
			fmt.Fprintf(w, "  raw_length: %d\n", r.RawLength)
			for _, p := range r.Passages {
				fmt.Fprintf(w, "  passage (relevance %.3f):\n", p.Relevance)
				for _, line := range strings.Split(p.Text, "\n") {
					fmt.Fprintf(w, "    %s\n", line)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%s\noutline:\n", strings.Repeat("=", 72))
	snapshot, err := yaml.Marshal(sess.Outline.Snapshot())
	if err != nil {
		return fmt.Errorf("marshaling outline snapshot: %w", err)
	}
	if _, err := w.Write(snapshot); err != nil {
		return fmt.Errorf("writing outline snapshot: %w", err)
	}
	return nil
}

// WriteTraceFile writes the trace to dir/<session-id>-trace.txt and returns
// the path.
func WriteTraceFile(dir string, sess *session.Session) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(dir, sess.ID+"-trace.txt")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating trace file: %w", err)
	}
	defer f.Close()

	if err := WriteTrace(f, sess); err != nil {
		return "", err
	}
	return path, nil
}
