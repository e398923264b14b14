// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"fmt"
	"io"
)

// Emitter receives the user-visible output stream: incremental status lines
// while research runs and exactly one final report text per completed
// session. The host platform adapts this to its own message events.
type Emitter interface {
	Status(format string, args ...any)
	Final(text string)
}

// WriterEmitter writes status lines and the final report to an io.Writer.
type WriterEmitter struct {
	W io.Writer
}

// Status writes one human-readable progress line.
func (e *WriterEmitter) Status(format string, args ...any) {
	fmt.Fprintf(e.W, format+"\n", args...)
}

// Final writes the report text.
func (e *WriterEmitter) Final(text string) {
	fmt.Fprintln(e.W)
	fmt.Fprintln(e.W, text)
}
