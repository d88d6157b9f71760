package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneypot/moneypot/pkg/types"
)

// Store persists pots and participants
type Store interface {
	CreatePot(ctx context.Context, pot types.MoneyPot) error
	GetPot(ctx context.Context, potID string) (*types.MoneyPot, error)
	GetPotByShareCode(ctx context.Context, code string) (*types.MoneyPot, error)
	ListPots(ctx context.Context) ([]types.MoneyPot, error)
	ListPotsByCreator(ctx context.Context, userID string) ([]types.MoneyPot, error)
	AddParticipant(ctx context.Context, participant types.Participant) error
	ListParticipants(ctx context.Context, potID string) ([]types.Participant, error)
	DeleteParticipant(ctx context.Context, participantID string) (string, error)
	SaveContributions(ctx context.Context, potID string, contributions map[string]decimal.Decimal, at time.Time) error
	DeletePot(ctx context.Context, potID string) error
}

// Notifier is told about pot lifecycle events
type Notifier interface {
	NotifyParticipantJoined(pot types.MoneyPot, participant types.Participant)
	NotifyPotFunded(pot types.MoneyPot, total decimal.Decimal)
	NotifyPotExpired(pot types.MoneyPot)
}

type nopNotifier struct{}

func (nopNotifier) NotifyParticipantJoined(types.MoneyPot, types.Participant) {}
func (nopNotifier) NotifyPotFunded(types.MoneyPot, decimal.Decimal)         {}
func (nopNotifier) NotifyPotExpired(types.MoneyPot)                          {}
