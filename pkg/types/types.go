// Package types provides the core pot and participant records for moneypot
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// LogLevel represents logging verbosity levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// PotStatus represents where a pot stands relative to its target
type PotStatus string

const (
	PotStatusOpen    PotStatus = "open"
	PotStatusFunded  PotStatus = "funded"
	PotStatusExpired PotStatus = "expired"
)

// MoneyPot is a shared monetary target that participants pledge toward
type MoneyPot struct {
	ID             string          `json:"id" yaml:"id"`
	Title          string          `json:"title" yaml:"title"`
	TargetAmount   decimal.Decimal `json:"target_amount" yaml:"target_amount"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty" yaml:"expiration_date,omitempty"`
	CreatedAt      time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" yaml:"updated_at"`
	CreatedBy      string          `json:"created_by" yaml:"created_by"`
	CreatorName    string          `json:"creator_name" yaml:"creator_name"`
	ShareCode      string          `json:"share_code" yaml:"share_code"`
}

// IsExpired reports whether the pot's expiration date lies before now
func (p *MoneyPot) IsExpired(now time.Time) bool {
	if p.ExpirationDate == nil {
		return false
	}
	return p.ExpirationDate.Before(now)
}

// Participant is one person's pledge toward a pot.
// CalculatedContribution is an output of allocation and is overwritten on every run.
type Participant struct {
	ID                     string          `json:"id" yaml:"id"`
	PotID                  string          `json:"pot_id,omitempty" yaml:"pot_id,omitempty"`
	Name                   string          `json:"name,omitempty" yaml:"name,omitempty"`
	MaxPledge              decimal.Decimal `json:"max_pledge" yaml:"max_pledge"`
	CalculatedContribution decimal.Decimal `json:"calculated_contribution" yaml:"calculated_contribution"`
	JoinedAt               time.Time       `json:"joined_at,omitempty" yaml:"joined_at,omitempty"`
	UserID                 *string         `json:"user_id" yaml:"user_id,omitempty"`
}

// DisplayName returns the participant name, falling back to the id
func (p Participant) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// PotSummary is the read model shown for a pot
type PotSummary struct {
	Pot               MoneyPot        `json:"pot"`
	Participants      []Participant   `json:"participants"`
	TotalPledged      decimal.Decimal `json:"total_pledged"`
	TotalContribution decimal.Decimal `json:"total_contribution"`
	ParticipantCount  int             `json:"participant_count"`
	IsExpired         bool            `json:"is_expired"`
	IsFunded          bool            `json:"is_funded"`
	Status            PotStatus       `json:"status"`
}

// CreatePotData is the input for creating a pot
type CreatePotData struct {
	Title          string          `json:"title" yaml:"title"`
	TargetAmount   decimal.Decimal `json:"target_amount" yaml:"target_amount"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty" yaml:"expiration_date,omitempty"`
	CreatorName    string          `json:"creator_name,omitempty" yaml:"creator_name,omitempty"`
}

// JoinPotData is the input for joining a pot
type JoinPotData struct {
	Name      string          `json:"name" yaml:"name"`
	MaxPledge decimal.Decimal `json:"max_pledge" yaml:"max_pledge"`
	UserID    *string         `json:"user_id,omitempty" yaml:"user_id,omitempty"`
}

// Distribution is the result of running allocation over a participant set
type Distribution struct {
	PotID             string          `json:"pot_id,omitempty"`
	TargetAmount      decimal.Decimal `json:"target_amount"`
	TotalPledged      decimal.Decimal `json:"total_pledged"`
	TotalContribution decimal.Decimal `json:"total_contribution"`
	Shortfall         decimal.Decimal `json:"shortfall"`
	Participants      []Participant   `json:"participants"`
}

// Funded reports whether the pledged caps cover the whole target
func (d *Distribution) Funded() bool {
	return d.TargetAmount.IsPositive() && d.TotalPledged.GreaterThanOrEqual(d.TargetAmount)
}

// StatusFor derives the pot status from expiry and funding.
// A funded pot stays funded after it expires.
func StatusFor(expired, funded bool) PotStatus {
	switch {
	case funded:
		return PotStatusFunded
	case expired:
		return PotStatusExpired
	default:
		return PotStatusOpen
	}
}
