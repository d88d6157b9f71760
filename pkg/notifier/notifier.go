// Package notifier provides desktop notifications for pot events
package notifier

import (
	"fmt"

	"github.com/gen2brain/beeep"
	"github.com/shopspring/decimal"

	"github.com/moneypot/moneypot/pkg/allocation"
	"github.com/moneypot/moneypot/pkg/logger"
	"github.com/moneypot/moneypot/pkg/types"
)

// SendFunc delivers one notification
type SendFunc func(title, message string) error

// PotNotifier handles pot notifications
type PotNotifier struct {
	enabled bool
	sound   bool
	send    SendFunc
	logger  logger.Logger
}

// Config represents notification configuration
type Config struct {
	Enabled bool
	// Sound beeps when a pot is funded
	Sound bool
}

// Option customises a PotNotifier
type Option func(*PotNotifier)

// WithSender replaces the desktop notification backend
func WithSender(send SendFunc) Option {
	return func(n *PotNotifier) {
		n.send = send
	}
}

// New creates a new pot notifier
func New(config Config, log logger.Logger, opts ...Option) *PotNotifier {
	if log == nil {
		log = logger.Discard()
	}
	n := &PotNotifier{
		enabled: config.Enabled,
		sound:   config.Sound,
		send:    func(title, message string) error { return beeep.Notify(title, message, "") },
		logger:  log,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifyParticipantJoined notifies that someone pledged to a pot
func (n *PotNotifier) NotifyParticipantJoined(pot types.MoneyPot, participant types.Participant) {
	if !n.enabled {
		return
	}

	title := "💰 " + pot.Title
	message := fmt.Sprintf("%s pledged up to %s", participant.DisplayName(), formatAmount(participant.MaxPledge))

	n.sendNotification(title, message)
}

// NotifyPotFunded notifies that a pot reached its target
func (n *PotNotifier) NotifyPotFunded(pot types.MoneyPot, total decimal.Decimal) {
	if !n.enabled {
		return
	}

	title := "✅ Pot Funded"
	message := fmt.Sprintf("%s reached %s of %s", pot.Title, formatAmount(total), formatAmount(pot.TargetAmount))

	n.sendNotification(title, message)

	if n.sound {
		if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithError(err))
		}
	}
}

// NotifyPotExpired notifies that a pot expired short of its target
func (n *PotNotifier) NotifyPotExpired(pot types.MoneyPot) {
	if !n.enabled {
		return
	}

	title := "⌛ Pot Expired"
	message := fmt.Sprintf("%s expired before reaching %s", pot.Title, formatAmount(pot.TargetAmount))

	n.sendNotification(title, message)
}

// Private methods

func (n *PotNotifier) sendNotification(title, message string) {
	if err := n.send(title, message); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithError(err))
		n.logger.Info(fmt.Sprintf("%s: %s", title, message))
	}
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(allocation.CurrencyPlaces)
}
