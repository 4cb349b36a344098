package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAgentsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage voice agents",
	}
	cmd.AddCommand(newAgentsListCommand(ctx))
	cmd.AddCommand(newAgentsGetCommand(ctx))
	cmd.AddCommand(newAgentsDeleteCommand(ctx))
	return cmd
}

func newAgentsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			agents, err := ctx.client.ListAgents(cmd.Context())
			if err != nil {
				return fmt.Errorf("list agents: %w", err)
			}

			rows := make([][]string, 0, len(agents))
			for _, a := range agents {
				rows = append(rows, []string{a.ID, a.Name, string(a.Status), a.VoiceID, a.Language})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Status", "Voice", "Language"}, rows))
			return nil
		},
	}
}

func newAgentsGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <agent-id>",
		Short: "Show one agent including its prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := ctx.client.GetAgent(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get agent: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:      %s\n", agent.ID)
			fmt.Fprintf(out, "Name:    %s\n", agent.Name)
			fmt.Fprintf(out, "Status:  %s\n", agent.Status)
			fmt.Fprintf(out, "Voice:   %s\n", agent.VoiceID)
			if agent.Prompt != "" {
				fmt.Fprintf(out, "\nPrompt:\n%s\n", agent.Prompt)
			}
			return nil
		},
	}
}

func newAgentsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <agent-id>",
		Short: "Delete an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.client.DeleteAgent(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete agent: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "agent deleted")
			return nil
		},
	}
}
