package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/moneypot/moneypot/internal/ledger"
	"github.com/moneypot/moneypot/internal/watcher"
	"github.com/moneypot/moneypot/pkg/logger"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Recalculate pots whenever their ledger files change",
		Long: `Watch the ledger directory and recalculate a pot's contributions whenever its
file changes, for example after another process or an editor adds a pledge.

Every pot is recalculated once at startup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.runWatch(ctx, quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print distributions")
	return cmd
}

func (c *CLI) runWatch(ctx context.Context, quiet bool) error {
	svc, err := c.service()
	if err != nil {
		return err
	}
	ctx = commandContext(ctx, "watch", c.user())

	count, err := svc.RecalculateAll(ctx)
	if err != nil {
		return fmt.Errorf("initial recalculation failed: %w", err)
	}
	c.printInfo(fmt.Sprintf("Recalculated %d pot(s)", count))

	debounce := time.Duration(c.app.Watch.DebounceMs) * time.Millisecond
	w := watcher.New(c.ledgerDir(), debounce, c.logger)
	if err := w.Start(ctx, c.onLedgerEvent(svc, quiet)); err != nil {
		return err
	}

	c.printInfo(fmt.Sprintf("Watching %s", c.ledgerDir()))
	w.Wait()
	c.printSuccess("Stopped watching")
	return nil
}

func (c *CLI) onLedgerEvent(svc *ledger.Service, quiet bool) watcher.Callback {
	return func(ctx context.Context, event watcher.Event) {
		log := c.logger.WithPot(event.PotID)
		if event.Type == watcher.EventTypeRemoved {
			log.Info("Pot removed from ledger")
			return
		}

		dist, err := svc.Recalculate(ctx, event.PotID)
		if err != nil {
			log.Warn("Recalculation failed", logger.WithError(err))
			return
		}
		if quiet {
			return
		}

		c.printInfo(fmt.Sprintf("Pot %s changed", event.PotID))
		renderDistribution(c.output, dist)
	}
}
