// Package ledger implements pot lifecycle operations on top of a Store and
// keeps every participant's calculated contribution in step with the
// allocation engine.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moneypot/moneypot/internal/store"
	"github.com/moneypot/moneypot/pkg/allocation"
	"github.com/moneypot/moneypot/pkg/logger"
	"github.com/moneypot/moneypot/pkg/sharecode"
	"github.com/moneypot/moneypot/pkg/types"
	"github.com/moneypot/moneypot/pkg/validation"
)

const maxShareCodeAttempts = 5

var (
	// ErrUnauthenticated is returned when an operation needs a user and none was given
	ErrUnauthenticated = errors.New("user must be authenticated")

	// ErrPotExpired is returned when joining a pot past its expiration date
	ErrPotExpired = errors.New("pot has expired")

	// ErrNotOwner is returned when a user acts on a pot they did not create
	ErrNotOwner = errors.New("pot belongs to another user")

	// ErrShareCodeExhausted is returned when no free share code was found
	ErrShareCodeExhausted = errors.New("could not allocate a unique share code")
)

// Options configures a Service
type Options struct {
	Store       Store
	Notifier    Notifier
	Logger      logger.Logger
	Clock       func() time.Time
	Parallelism int

	// Overridable for tests
	NewID        func() string
	NewShareCode func() (string, error)
}

// Service runs pot operations and recalculates contributions after every
// change to a pot's participants
type Service struct {
	store        Store
	validator    *validation.PotValidator
	notifier     Notifier
	logger       logger.Logger
	now          func() time.Time
	newID        func() string
	newShareCode func() (string, error)
	parallelism  int

	mu       sync.Mutex
	potLocks map[string]*sync.Mutex
	expired  map[string]bool
}

// NewService creates a Service. Only Store is required.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("ledger: store is required")
	}

	s := &Service{
		store:        opts.Store,
		notifier:     opts.Notifier,
		logger:       opts.Logger,
		now:          opts.Clock,
		newID:        opts.NewID,
		newShareCode: opts.NewShareCode,
		parallelism:  opts.Parallelism,
		potLocks:     make(map[string]*sync.Mutex),
		expired:      make(map[string]bool),
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.logger == nil {
		s.logger = logger.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.New().String() }
	}
	if s.newShareCode == nil {
		s.newShareCode = sharecode.New
	}
	s.validator = validation.NewPotValidator(s.now)

	return s, nil
}

// CreatePot validates data and stores a new pot owned by creator
func (s *Service) CreatePot(ctx context.Context, creator string, data types.CreatePotData) (*types.MoneyPot, error) {
	creator = strings.TrimSpace(creator)
	if creator == "" {
		return nil, ErrUnauthenticated
	}

	result := s.validator.ValidateCreate(data)
	if err := result.Err(); err != nil {
		return nil, err
	}
	s.logWarnings(ctx, result)

	now := s.now().UTC()
	creatorName := strings.TrimSpace(data.CreatorName)
	if creatorName == "" {
		creatorName = creator
	}

	pot := types.MoneyPot{
		ID:             s.newID(),
		Title:          strings.TrimSpace(data.Title),
		TargetAmount:   allocation.RoundAmount(data.TargetAmount),
		ExpirationDate: data.ExpirationDate,
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      creator,
		CreatorName:    creatorName,
	}

	for attempt := 1; attempt <= maxShareCodeAttempts; attempt++ {
		code, err := s.newShareCode()
		if err != nil {
			return nil, err
		}
		pot.ShareCode = code

		err = s.store.CreatePot(ctx, pot)
		if err == nil {
			logger.WithContext(ctx, s.logger.WithPot(pot.ID)).Success("Pot created",
				logger.WithField("title", pot.Title),
				logger.WithField("target", pot.TargetAmount.StringFixed(allocation.CurrencyPlaces)),
				logger.WithField("share_code", pot.ShareCode))
			return &pot, nil
		}
		if !errors.Is(err, store.ErrShareCodeTaken) {
			return nil, fmt.Errorf("failed to create pot: %w", err)
		}
		s.logger.Debug("Share code collision, retrying",
			logger.WithField("attempt", attempt),
			logger.WithField("share_code", code))
	}

	return nil, ErrShareCodeExhausted
}

// GetPot returns the summary of the pot with the given id
func (s *Service) GetPot(ctx context.Context, potID string) (*types.PotSummary, error) {
	pot, err := s.store.GetPot(ctx, potID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, pot)
}

// GetPotByShareCode returns the summary of the pot behind a share code
func (s *Service) GetPotByShareCode(ctx context.Context, code string) (*types.PotSummary, error) {
	pot, err := s.store.GetPotByShareCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, pot)
}

// GetUserPots lists the pots created by creator, newest first
func (s *Service) GetUserPots(ctx context.Context, creator string) ([]types.MoneyPot, error) {
	creator = strings.TrimSpace(creator)
	if creator == "" {
		return nil, ErrUnauthenticated
	}
	return s.store.ListPotsByCreator(ctx, creator)
}

// ListPots lists every pot, newest first
func (s *Service) ListPots(ctx context.Context) ([]types.MoneyPot, error) {
	return s.store.ListPots(ctx)
}

// JoinPot adds a pledge to a pot and recalculates every contribution.
// The returned participant carries its freshly calculated contribution.
func (s *Service) JoinPot(ctx context.Context, potID string, data types.JoinPotData) (*types.Participant, error) {
	result := s.validator.ValidateJoin(data)
	if err := result.Err(); err != nil {
		return nil, err
	}
	s.logWarnings(ctx, result)

	pot, err := s.store.GetPot(ctx, potID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if pot.IsExpired(now) {
		return nil, fmt.Errorf("%w: %s", ErrPotExpired, pot.Title)
	}

	before, err := s.store.ListParticipants(ctx, potID)
	if err != nil {
		return nil, err
	}
	wasFunded := pot.TargetAmount.IsPositive() &&
		allocation.TotalMaxPledge(before).GreaterThanOrEqual(pot.TargetAmount)

	participant := types.Participant{
		ID:                     s.newID(),
		PotID:                  potID,
		Name:                   strings.TrimSpace(data.Name),
		MaxPledge:              allocation.RoundAmount(data.MaxPledge),
		CalculatedContribution: decimal.Zero,
		JoinedAt:               now,
		UserID:                 data.UserID,
	}
	if err := s.store.AddParticipant(ctx, participant); err != nil {
		return nil, fmt.Errorf("failed to add participant: %w", err)
	}

	dist, err := s.Recalculate(ctx, potID)
	if err != nil {
		return nil, err
	}
	for _, p := range dist.Participants {
		if p.ID == participant.ID {
			participant.CalculatedContribution = p.CalculatedContribution
		}
	}

	log := logger.WithContext(ctx, s.logger.WithPot(potID))
	log.Info("Participant joined",
		logger.WithField("participant", participant.Name),
		logger.WithField("max_pledge", participant.MaxPledge.StringFixed(allocation.CurrencyPlaces)))
	s.notifier.NotifyParticipantJoined(*pot, participant)

	if !wasFunded && dist.Funded() {
		log.Success("Pot funded",
			logger.WithField("total", dist.TotalContribution.StringFixed(allocation.CurrencyPlaces)))
		s.notifier.NotifyPotFunded(*pot, dist.TotalContribution)
	}

	return &participant, nil
}

// DeleteParticipant removes a participant and recalculates the pot they
// belonged to. It returns that pot's id.
func (s *Service) DeleteParticipant(ctx context.Context, participantID string) (string, error) {
	potID, err := s.store.DeleteParticipant(ctx, participantID)
	if err != nil {
		return "", err
	}

	if _, err := s.Recalculate(ctx, potID); err != nil {
		return potID, err
	}

	logger.WithContext(ctx, s.logger.WithPot(potID)).Info("Participant removed",
		logger.WithField("participant_id", participantID))
	return potID, nil
}

// DeletePot removes a pot created by creator
func (s *Service) DeletePot(ctx context.Context, creator, potID string) error {
	creator = strings.TrimSpace(creator)
	if creator == "" {
		return ErrUnauthenticated
	}

	pot, err := s.store.GetPot(ctx, potID)
	if err != nil {
		return err
	}
	if pot.CreatedBy != creator {
		return ErrNotOwner
	}

	if err := s.store.DeletePot(ctx, potID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.potLocks, potID)
	delete(s.expired, potID)
	s.mu.Unlock()

	logger.WithContext(ctx, s.logger.WithPot(potID)).Info("Pot deleted")
	return nil
}

// Distribution runs allocation for a pot without persisting the result
func (s *Service) Distribution(ctx context.Context, potID string) (*types.Distribution, error) {
	pot, err := s.store.GetPot(ctx, potID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.ListParticipants(ctx, potID)
	if err != nil {
		return nil, err
	}
	return allocation.Summarize(pot.ID, participants, pot.TargetAmount)
}

// Recalculate runs allocation for a pot and persists every contribution
func (s *Service) Recalculate(ctx context.Context, potID string) (*types.Distribution, error) {
	lock := s.potLock(potID)
	lock.Lock()
	defer lock.Unlock()

	dist, err := s.Distribution(ctx, potID)
	if err != nil {
		return nil, err
	}

	contributions := make(map[string]decimal.Decimal, len(dist.Participants))
	for _, p := range dist.Participants {
		contributions[p.ID] = p.CalculatedContribution
	}
	if err := s.store.SaveContributions(ctx, potID, contributions, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to save contributions: %w", err)
	}

	s.logger.WithPot(potID).Debug("Contributions recalculated",
		logger.WithField("participants", len(dist.Participants)),
		logger.WithField("total", dist.TotalContribution.StringFixed(allocation.CurrencyPlaces)))
	return dist, nil
}

// RecalculateAll recalculates every stored pot concurrently and notifies
// once for each pot that expired without being funded. It returns the
// number of pots visited and the first error encountered.
func (s *Service) RecalculateAll(ctx context.Context) (int, error) {
	pots, err := s.store.ListPots(ctx)
	if err != nil {
		return 0, err
	}

	group, gctx := NewSafeGroup(ctx, s.logger)
	group.SetLimit(s.parallelism)

	now := s.now().UTC()
	for _, pot := range pots {
		group.Go(func() error {
			dist, err := s.Recalculate(gctx, pot.ID)
			if err != nil {
				return fmt.Errorf("pot %s: %w", pot.ID, err)
			}
			if pot.IsExpired(now) && !dist.Funded() {
				s.notifyExpiredOnce(pot)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return len(pots), err
	}
	return len(pots), nil
}

// Private methods

func (s *Service) summarize(ctx context.Context, pot *types.MoneyPot) (*types.PotSummary, error) {
	participants, err := s.store.ListParticipants(ctx, pot.ID)
	if err != nil {
		return nil, err
	}

	dist, err := allocation.Summarize(pot.ID, participants, pot.TargetAmount)
	if err != nil {
		return nil, err
	}

	expired := pot.IsExpired(s.now())
	funded := dist.Funded()
	return &types.PotSummary{
		Pot:               *pot,
		Participants:      dist.Participants,
		TotalPledged:      dist.TotalPledged,
		TotalContribution: dist.TotalContribution,
		ParticipantCount:  len(dist.Participants),
		IsExpired:         expired,
		IsFunded:          funded,
		Status:            types.StatusFor(expired, funded),
	}, nil
}

func (s *Service) potLock(potID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.potLocks[potID]
	if !ok {
		lock = &sync.Mutex{}
		s.potLocks[potID] = lock
	}
	return lock
}

func (s *Service) notifyExpiredOnce(pot types.MoneyPot) {
	s.mu.Lock()
	seen := s.expired[pot.ID]
	s.expired[pot.ID] = true
	s.mu.Unlock()

	if seen {
		return
	}
	s.logger.WithPot(pot.ID).Warn("Pot expired before reaching its target")
	s.notifier.NotifyPotExpired(pot)
}

func (s *Service) logWarnings(ctx context.Context, result *validation.ValidationResult) {
	for _, w := range result.Warnings() {
		logger.WithContext(ctx, s.logger).Warn(w.Message, logger.WithField("field", w.Field))
	}
}
