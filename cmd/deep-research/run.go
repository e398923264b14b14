// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/archive"
	"github.com/pdiddy/deep-research/internal/engine"
	"github.com/pdiddy/deep-research/internal/fetch"
	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/internal/logging"
	"github.com/pdiddy/deep-research/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Run a research session for a query",
	Long: `Run starts a research conversation for the given query. When interactive
feedback is enabled the proposed outline is printed and further input is
read from stdin (e.g. "keep 1, 3; remove 2"); research then proceeds
through its cycles and prints the final report.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if noFeedback, _ := cmd.Flags().GetBool("no-feedback"); noFeedback {
			cfg.Research.InteractiveFeedback = false
		}

		logLevel, _ := cmd.Flags().GetString("log-level")
		log, err := logging.New(logLevel)
		if err != nil {
			return err
		}
		defer log.Sync()

		eng, err := buildEngine(cfg, log)
		if err != nil {
			return err
		}

		conversationID, _ := cmd.Flags().GetString("conversation")
		if conversationID == "" {
			conversationID = uuid.NewString()
		}

		em := &engine.WriterEmitter{W: os.Stdout}
		query := strings.Join(args, " ")

		if err := eng.HandleMessage(cmd.Context(), conversationID, query, em); err != nil {
			return fmt.Errorf("research failed: %w", err)
		}

		// The engine yields entirely while awaiting outline feedback;
		// control resumes on the next inbound message.
		scanner := bufio.NewScanner(os.Stdin)
		for {
			sess, ok := eng.Store.Get(conversationID)
			if !ok || sess.Phase() != types.PhaseAwaitingFeedback {
				break
			}
			fmt.Fprint(os.Stdout, "> ")
			if !scanner.Scan() {
				break
			}
			if err := eng.HandleMessage(cmd.Context(), conversationID, scanner.Text(), em); err != nil {
				return fmt.Errorf("research failed: %w", err)
			}
		}
		return scanner.Err()
	},
}

// buildEngine wires the engine's collaborators from config.
func buildEngine(cfg types.Config, log *zap.Logger) (*engine.Engine, error) {
	completer := llm.NewClient(cfg.LLM)
	embedder := llm.NewEmbeddingClient(cfg.Embedding)
	search := fetch.NewSearxBackend(cfg.Search)
	fetcher := fetch.NewFetcher(cfg.Fetch)

	eng := engine.New(cfg, completer, embedder, search, fetcher, log)

	if cfg.Archive.Dir != "" {
		store, err := archive.NewStore(cfg.Archive.Dir)
		if err != nil {
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		eng.Archive = store
	}
	return eng, nil
}

func init() {
	runCmd.Flags().String("conversation", "", "conversation id (default: random)")
	runCmd.Flags().Bool("no-feedback", false, "skip the outline feedback pause")
	runCmd.Flags().String("log-level", "warn", "log level: debug, info, warn, error")

	rootCmd.AddCommand(runCmd)
}
