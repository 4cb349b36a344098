package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/relaydial/relaydial/internal/model"
	"github.com/relaydial/relaydial/internal/session"
	"github.com/relaydial/relaydial/internal/store"
)

func newCallsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "Inspect and initiate calls",
	}
	cmd.AddCommand(newCallsListCommand(ctx))
	cmd.AddCommand(newCallsStartCommand(ctx))
	cmd.AddCommand(newCallsStatsCommand(ctx))
	cmd.AddCommand(newCallsWebCommand(ctx))
	return cmd
}

func newCallsListCommand(ctx *commandContext) *cobra.Command {
	var search, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List call history",
		RunE: func(cmd *cobra.Command, args []string) error {
			calls, err := ctx.client.ListCalls(cmd.Context())
			if err != nil {
				return fmt.Errorf("list calls: %w", err)
			}
			calls = store.FilterCalls(calls, search, status)

			rows := make([][]string, 0, len(calls))
			for _, c := range calls {
				rows = append(rows, []string{
					c.ID, c.DriverName, c.LoadNumber, string(c.Status),
					c.Duration, c.Timestamp.Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Driver", "Load", "Status", "Duration", "Started"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "match driver name or load number")
	cmd.Flags().StringVar(&status, "status", "all", "filter by status")
	return cmd
}

func newCallsStartCommand(ctx *commandContext) *cobra.Command {
	var req model.CallRequest

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start an outbound check call",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.PhoneNumber == "" {
				return fmt.Errorf("--phone is required")
			}
			call, err := ctx.client.CreatePhoneCall(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("start call: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "call started: %s (status %s)\n", call.ID, call.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.DriverName, "driver", "", "driver name")
	cmd.Flags().StringVar(&req.PhoneNumber, "phone", "", "driver phone number")
	cmd.Flags().StringVar(&req.LoadNumber, "load", "", "load number")
	cmd.Flags().StringVar(&req.AgentID, "agent", "", "agent ID")
	cmd.Flags().StringVar(&req.Scenario, "scenario", "driver_checkin", "call scenario")
	return cmd
}

func newCallsStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show call statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			calls, err := ctx.client.ListCalls(cmd.Context())
			if err != nil {
				return fmt.Errorf("list calls: %w", err)
			}
			stats := store.ComputeCallStats(calls)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total calls:       %d\n", stats.TotalCalls)
			fmt.Fprintf(out, "Active calls:      %d\n", stats.ActiveCalls)
			fmt.Fprintf(out, "Completed calls:   %d\n", stats.CompletedCalls)
			fmt.Fprintf(out, "Failed calls:      %d\n", stats.FailedCalls)
			fmt.Fprintf(out, "Success rate:      %d%%\n", stats.SuccessRate)
			fmt.Fprintf(out, "Average duration:  %s\n", stats.AverageDuration)
			fmt.Fprintf(out, "Average confidence: %.2f\n", stats.AvgConfidence)
			return nil
		},
	}
}

// newCallsWebCommand runs a live browser-style session from the terminal:
// registers a web call, bridges the live transport, and prints the
// transcript as it updates.
func newCallsWebCommand(ctx *commandContext) *cobra.Command {
	var agentID, driver, load string

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Start a live web call session and stream the transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			if agentID == "" {
				return fmt.Errorf("--agent is required")
			}
			if ctx.cfg.Session.LiveEndpoint == "" {
				return fmt.Errorf("session.live_endpoint is not configured")
			}

			vars := map[string]string{}
			if driver != "" {
				vars["driver_name"] = driver
			}
			if load != "" {
				vars["load_number"] = load
			}
			web, err := ctx.client.CreateWebCall(cmd.Context(), agentID, vars)
			if err != nil {
				return fmt.Errorf("create web call: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "web call registered: %s\n", web.CallID)

			done := make(chan struct{})
			sink := &printingSink{out: cmd.OutOrStdout(), done: done}

			bridge := session.NewBridge(
				func(context.Context) error { return nil },
				func() session.Transport {
					return session.NewRealtimeTransport(ctx.cfg.Session.LiveEndpoint)
				},
				sink,
				session.WithOnEnded(func(res session.Result) {
					fmt.Fprintf(cmd.OutOrStdout(), "\ncall ended after %s\n", res.Duration)
					for _, entry := range res.Transcript {
						fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", entry.Timestamp, entry.Speaker, entry.Text)
					}
				}),
			)

			if err := bridge.Start(cmd.Context(), web.CallID, web.AccessToken); err != nil {
				return fmt.Errorf("start session: %w", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)
			select {
			case <-sigCh:
				fmt.Fprintln(cmd.OutOrStdout(), "\nending call...")
				_ = bridge.End()
				<-done
			case <-done:
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "agent ID")
	cmd.Flags().StringVar(&driver, "driver", "", "driver name")
	cmd.Flags().StringVar(&load, "load", "", "load number")
	return cmd
}

// printingSink satisfies session.CallSink for the CLI, closing done when the
// session reaches a terminal event.
type printingSink struct {
	out  io.Writer
	done chan struct{}
}

func (p *printingSink) ApplyEvent(ev store.CallEvent) {
	switch ev.Type {
	case store.EventCallStarted:
		fmt.Fprintf(p.out, "call %s is live\n", ev.CallID)
	case store.EventCallEnded:
		close(p.done)
	}
}

func (p *printingSink) MarkFailed(callID, reason string) {
	fmt.Fprintf(p.out, "call %s failed: %s\n", callID, reason)
	close(p.done)
}
