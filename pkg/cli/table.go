package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"github.com/moneypot/moneypot/pkg/allocation"
	"github.com/moneypot/moneypot/pkg/types"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(allocation.CurrencyPlaces)
}

// renderDistribution prints one row per participant followed by the totals
func renderDistribution(out io.Writer, dist *types.Distribution) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARTICIPANT\tMAX PLEDGE\tCONTRIBUTION\tCAPPED")
	fmt.Fprintln(w, "-----------\t----------\t------------\t------")

	for _, p := range dist.Participants {
		capped := "-"
		if p.MaxPledge.IsPositive() && p.CalculatedContribution.Equal(allocation.RoundAmount(p.MaxPledge)) {
			capped = color.YellowString("yes")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			p.DisplayName(), money(p.MaxPledge), money(p.CalculatedContribution), capped)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTarget %s, pledged %s, contributed %s\n",
		money(dist.TargetAmount), money(dist.TotalPledged), money(dist.TotalContribution))
	if dist.Funded() {
		fmt.Fprintln(out, color.GreenString("Target covered"))
	} else {
		fmt.Fprintln(out, color.RedString("Short by %s", money(dist.Shortfall)))
	}
}

// renderSummary prints a pot header and its participants
func renderSummary(out io.Writer, summary *types.PotSummary) {
	pot := summary.Pot
	fmt.Fprintf(out, "%s (%s)\n", color.New(color.Bold).Sprint(pot.Title), statusText(summary.Status))
	fmt.Fprintf(out, "  id:         %s\n", pot.ID)
	fmt.Fprintf(out, "  share code: %s\n", pot.ShareCode)
	fmt.Fprintf(out, "  created by: %s\n", pot.CreatorName)
	if pot.ExpirationDate != nil {
		fmt.Fprintf(out, "  expires:    %s\n", pot.ExpirationDate.Format(time.RFC3339))
	}
	fmt.Fprintln(out)

	renderDistribution(out, &types.Distribution{
		PotID:             pot.ID,
		TargetAmount:      pot.TargetAmount,
		TotalPledged:      summary.TotalPledged,
		TotalContribution: summary.TotalContribution,
		Shortfall:         shortfall(pot.TargetAmount, summary.TotalPledged),
		Participants:      summary.Participants,
	})
}

// renderPots prints a list of pots
func renderPots(out io.Writer, pots []types.MoneyPot, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTARGET\tSHARE CODE\tCREATED\tEXPIRES")
	fmt.Fprintln(w, "--\t-----\t------\t----------\t-------\t-------")

	for _, p := range pots {
		expires := "-"
		if p.ExpirationDate != nil {
			expires = p.ExpirationDate.Format("2006-01-02")
			if p.IsExpired(now) {
				expires = color.RedString(expires)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Title, money(p.TargetAmount), p.ShareCode, p.CreatedAt.Format("2006-01-02 15:04"), expires)
	}
	w.Flush()
}

func statusText(status types.PotStatus) string {
	switch status {
	case types.PotStatusFunded:
		return color.GreenString(string(status))
	case types.PotStatusExpired:
		return color.RedString(string(status))
	default:
		return color.CyanString(string(status))
	}
}

func shortfall(target, pledged decimal.Decimal) decimal.Decimal {
	if target.GreaterThan(pledged) {
		return target.Sub(pledged)
	}
	return decimal.Zero
}
