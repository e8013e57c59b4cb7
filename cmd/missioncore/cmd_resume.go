package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <session> <reply...>",
		Short: "Answer a paused session's question and continue it",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runResume,
	}
}

func runResume(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	reply := strings.Join(args[1:], " ")

	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return printResult(rt.agent.Resume(ctx, sessionID, reply))
}
