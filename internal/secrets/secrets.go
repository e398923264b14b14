// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files. Each
// file in the directory is one secret: the filename is the key name and the
// file contents (trimmed) are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Key files the engine looks for.
const (
	LLMKey       = "llm-api-key"
	EmbeddingKey = "embedding-api-key"
)

// Store holds a loaded secret set, keyed by filename.
type Store map[string]string

// Load reads all files in dir and returns the secret set. A missing
// directory or missing files are not errors; Load returns an empty store.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Store)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LLMAPIKey returns the completion service key. An explicit override (for
// example from the config file) takes precedence over the key file.
func (s Store) LLMAPIKey(override string) string {
	return s.lookup(LLMKey, override)
}

// EmbeddingAPIKey returns the embedding service key, with the same override
// precedence as LLMAPIKey.
func (s Store) EmbeddingAPIKey(override string) string {
	return s.lookup(EmbeddingKey, override)
}

func (s Store) lookup(key, override string) string {
	if override != "" {
		return override
	}
	return s[key]
}
