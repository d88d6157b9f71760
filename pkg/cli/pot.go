package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/moneypot/moneypot/internal/ledger"
	"github.com/moneypot/moneypot/internal/store"
	"github.com/moneypot/moneypot/pkg/sharecode"
	"github.com/moneypot/moneypot/pkg/types"
)

func (c *CLI) newPotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pot",
		Short: "Manage pots in the local ledger",
	}

	cmd.AddCommand(
		c.newPotCreateCmd(),
		c.newPotListCmd(),
		c.newPotShowCmd(),
		c.newPotJoinCmd(),
		c.newPotLeaveCmd(),
		c.newPotRecalcCmd(),
		c.newPotDeleteCmd(),
	)
	return cmd
}

func (c *CLI) newPotCreateCmd() *cobra.Command {
	var target string
	var expires string
	var name string

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a pot owned by --user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(target)
			if err != nil {
				return fmt.Errorf("invalid target %q: %w", target, err)
			}

			data := types.CreatePotData{Title: args[0], TargetAmount: amount, CreatorName: name}
			if data.CreatorName == "" {
				data.CreatorName = c.app.UserName
			}
			if expires != "" {
				at, err := parseDate(expires)
				if err != nil {
					return err
				}
				data.ExpirationDate = &at
			}

			svc, err := c.service()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd.Context(), "pot.create", c.user())
			pot, err := svc.CreatePot(ctx, c.user(), data)
			if err != nil {
				return err
			}

			c.printSuccess(fmt.Sprintf("Created pot %s", pot.Title))
			c.printInfo(fmt.Sprintf("Pot id: %s", pot.ID))
			c.printInfo(fmt.Sprintf("Share code: %s", pot.ShareCode))
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "target amount")
	cmd.Flags().StringVar(&expires, "expires", "", "expiration date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&name, "name", "", "creator display name")
	cmd.MarkFlagRequired("target")
	return cmd
}

func (c *CLI) newPotListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pots created by --user, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd.Context(), "pot.list", c.user())

			var pots []types.MoneyPot
			if all {
				pots, err = svc.ListPots(ctx)
			} else {
				pots, err = svc.GetUserPots(ctx, c.user())
			}
			if err != nil {
				return err
			}

			if len(pots) == 0 {
				c.printInfo("No pots found")
				return nil
			}
			renderPots(c.output, pots, c.now())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every pot in the ledger")
	return cmd
}

func (c *CLI) newPotShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <share-code|pot-id>",
		Short: "Show a pot and its current allocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd.Context(), "pot.show", c.user())

			summary, err := c.lookup(ctx, svc, args[0])
			if err != nil {
				return err
			}
			renderSummary(c.output, summary)
			return nil
		},
	}
}

func (c *CLI) newPotJoinCmd() *cobra.Command {
	var name string
	var maxPledge string

	cmd := &cobra.Command{
		Use:   "join <share-code|pot-id>",
		Short: "Pledge up to --max toward a pot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(maxPledge)
			if err != nil {
				return fmt.Errorf("invalid max pledge %q: %w", maxPledge, err)
			}

			svc, err := c.service()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd.Context(), "pot.join", c.user())

			summary, err := c.lookup(ctx, svc, args[0])
			if err != nil {
				return err
			}

			data := types.JoinPotData{Name: name, MaxPledge: amount}
			if data.Name == "" {
				data.Name = c.app.UserName
			}
			if user := c.user(); user != "" {
				data.UserID = &user
			}

			participant, err := svc.JoinPot(ctx, summary.Pot.ID, data)
			if err != nil {
				return err
			}

			c.printSuccess(fmt.Sprintf("%s joined %s", participant.DisplayName(), summary.Pot.Title))
			c.printInfo(fmt.Sprintf("Participant id: %s", participant.ID))
			c.printInfo(fmt.Sprintf("Current contribution: %s of max %s",
				money(participant.CalculatedContribution), money(participant.MaxPledge)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&maxPledge, "max", "m", "", "maximum pledge")
	cmd.MarkFlagRequired("max")
	return cmd
}

func (c *CLI) newPotLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <participant-id>",
		Short: "Withdraw a pledge and recalculate the pot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd.Context(), "pot.leave", c.user())

			potID, err := svc.DeleteParticipant(ctx, args[0])
			if err != nil {
				return err
			}
			c.printSuccess(fmt.Sprintf("Removed participant %s from pot %s", args[0], potID))
			return nil
		},
	}
}

func (c *CLI) newPotRecalcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalc [pot-id]",
		Short: "Recalculate contributions for one pot or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd.Context(), "pot.recalc", c.user())

			if len(args) == 1 {
				dist, err := svc.Recalculate(ctx, args[0])
				if err != nil {
					return err
				}
				renderDistribution(c.output, dist)
				return nil
			}

			count, err := svc.RecalculateAll(ctx)
			if err != nil {
				return err
			}
			c.printSuccess(fmt.Sprintf("Recalculated %d pot(s)", count))
			return nil
		},
	}
}

func (c *CLI) newPotDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <pot-id>",
		Short: "Delete a pot created by --user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd.Context(), "pot.delete", c.user())

			if err := svc.DeletePot(ctx, c.user(), args[0]); err != nil {
				return err
			}
			c.printSuccess(fmt.Sprintf("Deleted pot %s", args[0]))
			return nil
		},
	}
}

// lookup resolves a share code first and falls back to a pot id
func (c *CLI) lookup(ctx context.Context, svc *ledger.Service, ref string) (*types.PotSummary, error) {
	if sharecode.Valid(ref) {
		summary, err := svc.GetPotByShareCode(ctx, ref)
		if err == nil {
			return summary, nil
		}
		if !errors.Is(err, store.ErrPotNotFound) {
			return nil, err
		}
	}
	return svc.GetPot(ctx, ref)
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC3339", value)
	}
	// A bare date means the end of that day.
	return t.Add(24*time.Hour - time.Second), nil
}
