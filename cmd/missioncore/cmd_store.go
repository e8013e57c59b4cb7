package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect and maintain the tool result store",
	}
	cmd.AddCommand(newStoreStatsCmd(), newStoreCleanupCmd())
	return cmd
}

func newStoreStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show result store statistics",
		RunE:  runStoreStats,
	}
}

func newStoreCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup <session>",
		Short: "Delete all stored results belonging to a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runStoreCleanup,
	}
}

func runStoreStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := buildStoreOnly(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Results: %d\n", stats.TotalResults)
	fmt.Printf("Bytes:   %d\n", stats.TotalBytes)
	if stats.TotalResults > 0 {
		fmt.Printf("Oldest:  %s\n", stats.Oldest.Format("2006-01-02 15:04:05"))
		fmt.Printf("Newest:  %s\n", stats.Newest.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runStoreCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := buildStoreOnly(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.CleanupSession(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d stored results for session %s\n", removed, args[0])
	return nil
}
