// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// extractPDF writes the PDF bytes to a temp file and runs the configured
// extraction tool (pdftotext by default) over it. The tool must accept
// "<input> -" and write plain text to stdout.
func (f *Fetcher) extractPDF(ctx context.Context, body []byte) (string, error) {
	tool := f.Config.PDFTool
	if tool == "" {
		tool = "pdftotext"
	}

	dir, err := os.MkdirTemp("", "deep-research-pdf-")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "source.pdf")
	if err := os.WriteFile(pdfPath, body, 0o644); err != nil {
		return "", fmt.Errorf("writing temp PDF: %w", err)
	}

	var out, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tool, pdfPath, "-")
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running %s: %w (%s)", tool, err, bytes.TrimSpace(stderr.Bytes()))
	}

	if out.Len() == 0 {
		return "", fmt.Errorf("%s produced empty output", tool)
	}
	return out.String(), nil
}
