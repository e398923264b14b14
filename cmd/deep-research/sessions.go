// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deep-research/internal/archive"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List archived research sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := store.ListSessions()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(os.Stderr, "no archived sessions")
			return nil
		}
		for _, s := range sessions {
			fmt.Printf("%s  %s  cycles=%d  %s\n",
				s.ArchivedAt.Format("2006-01-02 15:04"), s.ID, s.Cycles, s.Seed)
		}
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Print the archived report of a finished session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		report, err := store.LoadReport(args[0])
		if err != nil {
			return err
		}
		fmt.Print(report)
		return nil
	},
}

func openArchive() (*archive.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Archive.Dir == "" {
		return nil, fmt.Errorf("archiving is disabled; set archive.dir in the config")
	}
	return archive.NewStore(cfg.Archive.Dir)
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(reportCmd)
}
