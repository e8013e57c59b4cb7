package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/typhonlabs/missioncore/pkg/agent"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [mission...]",
		Short: "Execute a mission (reads stdin when no mission is given)",
		RunE:  runRun,
	}
	cmd.Flags().StringP("session", "s", "", "Session ID (generated when empty; reuse to continue a session)")
	cmd.Flags().Bool("progress", false, "Print progress events while the mission runs")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	mission := strings.TrimSpace(strings.Join(args, " "))
	if mission == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading mission from stdin: %w", err)
		}
		mission = strings.TrimSpace(string(data))
	}
	if mission == "" {
		return fmt.Errorf("no mission given")
	}

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

	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		sessionID = "cli-" + uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress, _ := cmd.Flags().GetBool("progress")
	var result *agent.ExecutionResult
	if progress {
		result = runWithProgress(ctx, rt.agent, mission, sessionID)
	} else {
		result = rt.agent.Execute(ctx, mission, sessionID)
	}

	return printResult(result)
}

func runWithProgress(ctx context.Context, ag *agent.Agent, mission, sessionID string) *agent.ExecutionResult {
	var result *agent.ExecutionResult
	for ev := range ag.ExecuteStream(ctx, mission, sessionID) {
		switch ev.Type {
		case agent.EventStepStarted:
			if d, ok := ev.Data.(agent.StepStartedData); ok {
				fmt.Fprintf(os.Stderr, "-- step %d\n", d.Step+1)
			}
		case agent.EventToolCallStarted:
			if d, ok := ev.Data.(agent.ToolCallStartedData); ok {
				fmt.Fprintf(os.Stderr, "   tool %s ...\n", d.Name)
			}
		case agent.EventToolCallCompleted:
			if d, ok := ev.Data.(agent.ToolCallCompletedData); ok {
				status := "ok"
				if !d.Success {
					status = "failed"
				}
				fmt.Fprintf(os.Stderr, "   tool %s %s\n", d.Name, status)
			}
		case agent.EventCompressionApplied:
			if d, ok := ev.Data.(agent.CompressionAppliedData); ok {
				fmt.Fprintf(os.Stderr, "   compressed history %d -> %d messages\n", d.Before, d.After)
			}
		case agent.EventResultStored:
			if d, ok := ev.Data.(agent.ResultStoredData); ok {
				fmt.Fprintf(os.Stderr, "   stored %s result as %s (%d chars)\n", d.Tool, d.Handle, d.SizeChars)
			}
		case agent.EventCompleted, agent.EventPaused, agent.EventFailed:
			if d, ok := ev.Data.(agent.ResultData); ok {
				result = d.Result
			}
		}
	}
	return result
}

func printResult(result *agent.ExecutionResult) error {
	if result == nil {
		return fmt.Errorf("run produced no result")
	}

	switch result.Status {
	case agent.StatusCompleted:
		fmt.Println(result.Content)
		if result.Usage.TotalTokens > 0 {
			fmt.Fprintf(os.Stderr, "\n[session %s, %d steps, %d tokens]\n",
				result.SessionID, result.Steps, result.Usage.TotalTokens)
		}
		return nil
	case agent.StatusPaused:
		fmt.Printf("The agent needs more input:\n\n  %s\n", result.PendingQuestion.Question)
		if result.PendingQuestion.Context != "" {
			fmt.Printf("\n  (%s)\n", result.PendingQuestion.Context)
		}
		fmt.Printf("\nAnswer with: missioncore resume %s \"<your reply>\"\n", result.SessionID)
		return nil
	default:
		return fmt.Errorf("mission failed: %s", result.Error)
	}
}
