// Package mocks provides in-memory test doubles for the ledger's collaborators
package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneypot/moneypot/internal/store"
	"github.com/moneypot/moneypot/pkg/types"
)

// MockStore is an in-memory pot store that mirrors the file store's errors
type MockStore struct {
	mu           sync.RWMutex
	pots         map[string]types.MoneyPot
	participants map[string][]types.Participant
	createErr    error
	saveErr      error
	createCalls  int
	saveCalls    int
	takenCodes   map[string]bool
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		pots:         make(map[string]types.MoneyPot),
		participants: make(map[string][]types.Participant),
		takenCodes:   make(map[string]bool),
	}
}

// CreatePot stores a pot
func (m *MockStore) CreatePot(ctx context.Context, pot types.MoneyPot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.pots[pot.ID]; ok {
		return fmt.Errorf("%w: %s", store.ErrPotExists, pot.ID)
	}
	if m.takenCodes[pot.ShareCode] {
		return fmt.Errorf("%w: %s", store.ErrShareCodeTaken, pot.ShareCode)
	}
	for _, p := range m.pots {
		if p.ShareCode == pot.ShareCode {
			return fmt.Errorf("%w: %s", store.ErrShareCodeTaken, pot.ShareCode)
		}
	}

	m.pots[pot.ID] = pot
	return nil
}

// GetPot returns a pot by id
func (m *MockStore) GetPot(ctx context.Context, potID string) (*types.MoneyPot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pot, ok := m.pots[potID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrPotNotFound, potID)
	}
	return &pot, nil
}

// GetPotByShareCode returns a pot by share code
func (m *MockStore) GetPotByShareCode(ctx context.Context, code string) (*types.MoneyPot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, pot := range m.pots {
		if pot.ShareCode == code {
			return &pot, nil
		}
	}
	return nil, fmt.Errorf("%w: share code %s", store.ErrPotNotFound, code)
}

// ListPots returns every pot, newest first
func (m *MockStore) ListPots(ctx context.Context) ([]types.MoneyPot, error) {
	return m.list(func(types.MoneyPot) bool { return true }), nil
}

// ListPotsByCreator returns a creator's pots, newest first
func (m *MockStore) ListPotsByCreator(ctx context.Context, userID string) ([]types.MoneyPot, error) {
	return m.list(func(p types.MoneyPot) bool { return p.CreatedBy == userID }), nil
}

// AddParticipant appends a participant to its pot
func (m *MockStore) AddParticipant(ctx context.Context, participant types.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pots[participant.PotID]; !ok {
		return fmt.Errorf("%w: %s", store.ErrPotNotFound, participant.PotID)
	}
	for _, p := range m.participants[participant.PotID] {
		if p.ID == participant.ID {
			return fmt.Errorf("%w: %s", store.ErrParticipantExists, participant.ID)
		}
	}
	m.participants[participant.PotID] = append(m.participants[participant.PotID], participant)
	return nil
}

// ListParticipants returns a pot's participants by join time
func (m *MockStore) ListParticipants(ctx context.Context, potID string) ([]types.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.pots[potID]; !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrPotNotFound, potID)
	}
	out := append([]types.Participant{}, m.participants[potID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

// DeleteParticipant removes a participant and returns its pot id
func (m *MockStore) DeleteParticipant(ctx context.Context, participantID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for potID, ps := range m.participants {
		for i, p := range ps {
			if p.ID == participantID {
				m.participants[potID] = append(ps[:i:i], ps[i+1:]...)
				return potID, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", store.ErrParticipantNotFound, participantID)
}

// SaveContributions overwrites calculated contributions
func (m *MockStore) SaveContributions(ctx context.Context, potID string, contributions map[string]decimal.Decimal, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	pot, ok := m.pots[potID]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrPotNotFound, potID)
	}
	ps := m.participants[potID]
	for i := range ps {
		if c, ok := contributions[ps[i].ID]; ok {
			ps[i].CalculatedContribution = c
		}
	}
	pot.UpdatedAt = at
	m.pots[potID] = pot
	return nil
}

// DeletePot removes a pot and its participants
func (m *MockStore) DeletePot(ctx context.Context, potID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pots[potID]; !ok {
		return fmt.Errorf("%w: %s", store.ErrPotNotFound, potID)
	}
	delete(m.pots, potID)
	delete(m.participants, potID)
	return nil
}

// SetCreateError sets the error to return from CreatePot
func (m *MockStore) SetCreateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErr = err
}

// SetSaveError sets the error to return from SaveContributions
func (m *MockStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// TakeShareCode marks a share code as already used by another pot
func (m *MockStore) TakeShareCode(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.takenCodes[code] = true
}

// GetCreateCallCount returns how many times CreatePot was called
func (m *MockStore) GetCreateCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.createCalls
}

// GetSaveCallCount returns how many times SaveContributions was called
func (m *MockStore) GetSaveCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveCalls
}

func (m *MockStore) list(keep func(types.MoneyPot) bool) []types.MoneyPot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.MoneyPot, 0, len(m.pots))
	for _, p := range m.pots {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// MockNotifier records every notification it receives
type MockNotifier struct {
	mu      sync.Mutex
	joined  []string
	funded  []string
	expired []string
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// NotifyParticipantJoined records the participant's name
func (m *MockNotifier) NotifyParticipantJoined(pot types.MoneyPot, participant types.Participant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joined = append(m.joined, participant.Name)
}

// NotifyPotFunded records the pot id
func (m *MockNotifier) NotifyPotFunded(pot types.MoneyPot, total decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funded = append(m.funded, pot.ID)
}

// NotifyPotExpired records the pot id
func (m *MockNotifier) NotifyPotExpired(pot types.MoneyPot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired = append(m.expired, pot.ID)
}

// Joined returns the names of participants announced so far
func (m *MockNotifier) Joined() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.joined...)
}

// Funded returns the ids of pots announced as funded
func (m *MockNotifier) Funded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.funded...)
}

// Expired returns the ids of pots announced as expired
func (m *MockNotifier) Expired() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.expired...)
}
