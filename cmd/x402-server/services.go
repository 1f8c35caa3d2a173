package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ultravioletadao/x402-go/config"
	"github.com/ultravioletadao/x402-go/facilitator"
	"github.com/ultravioletadao/x402-go/types"
)

func newEscrowClient(cfg *config.Config) *facilitator.EscrowClient {
	c := facilitator.NewEscrowClient(cfg.Escrow.URL, cfg.Escrow.APIKey)
	c.API.Timeout = cfg.Facilitator.Timeout
	return c
}

func newEscrowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escrow",
		Short: "Inspect payments held by the escrow service",
	}

	var filter facilitator.EscrowFilter
	var status string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List escrowed payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			filter.Status = facilitator.EscrowStatus(status)
			return runEscrowList(cmd.Context(), cmd.OutOrStdout(), newEscrowClient(cfg), filter)
		},
	}
	listCmd.Flags().StringVar(&status, "status", "", "pending, held, released, refunded, disputed or expired")
	listCmd.Flags().StringVar(&filter.Payer, "payer", "", "filter by payer address")
	listCmd.Flags().StringVar(&filter.Recipient, "recipient", "", "filter by recipient address")
	listCmd.Flags().IntVar(&filter.Page, "page", 1, "page number")
	listCmd.Flags().IntVar(&filter.Limit, "limit", 20, "page size")

	getCmd := &cobra.Command{
		Use:   "get <escrow-id>",
		Short: "Show one escrowed payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			escrow, err := newEscrowClient(cfg).GetEscrow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), escrow)
		},
	}

	cmd.AddCommand(listCmd, getCmd)
	return cmd
}

func runEscrowList(ctx context.Context, out io.Writer, client *facilitator.EscrowClient, filter facilitator.EscrowFilter) error {
	list, err := client.ListEscrows(ctx, filter)
	if err != nil {
		return err
	}

	now := time.Now()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tNETWORK\tAMOUNT\tEXPIRES IN\tRELEASABLE")
	for i := range list.Escrows {
		e := &list.Escrows[i]
		remaining := "expired"
		if !e.Expired(now) {
			remaining = e.TimeRemaining(now).Truncate(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n", e.ID, e.Status, e.Network, e.Amount, remaining, e.CanRelease(now))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "page %d, %d of %d\n", list.Page, len(list.Escrows), list.Total)
	return err
}

func newReputationCmd() *cobra.Command {
	var q facilitator.ReputationQuery

	cmd := &cobra.Command{
		Use:   "reputation <network> <agent-id>",
		Short: "Show an ERC-8004 agent's identity and reputation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			client := facilitator.NewReputationClient(newFacilitator(cfg))
			return runReputation(cmd.Context(), cmd.OutOrStdout(), client, args[0], args[1], q)
		},
	}
	cmd.Flags().StringVar(&q.Tag1, "tag1", "", "filter by primary tag")
	cmd.Flags().StringVar(&q.Tag2, "tag2", "", "filter by secondary tag")
	cmd.Flags().BoolVar(&q.IncludeFeedback, "feedback", false, "include individual feedback entries")

	return cmd
}

func runReputation(ctx context.Context, out io.Writer, client *facilitator.ReputationClient, network, agent string, q facilitator.ReputationQuery) error {
	agentID, err := strconv.ParseUint(agent, 10, 64)
	if err != nil {
		return types.Malformed("agent id %q is not a number", agent)
	}
	n := types.Network(network)

	identity, err := client.GetIdentity(ctx, n, agentID)
	if err != nil {
		return err
	}
	rep, err := client.GetReputation(ctx, n, agentID, q)
	if err != nil {
		return err
	}
	return writeIndented(out, map[string]interface{}{
		"identity":   identity,
		"reputation": rep,
	})
}
