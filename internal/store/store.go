// Package store persists pots and their participants as JSON files
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneypot/moneypot/pkg/logger"
	"github.com/moneypot/moneypot/pkg/types"
)

// FileExt is the extension of pot files in the ledger directory
const FileExt = ".json"

var (
	// ErrPotNotFound indicates no pot matches the lookup
	ErrPotNotFound = errors.New("pot not found")

	// ErrPotExists indicates a pot with the same id is already stored
	ErrPotExists = errors.New("pot already exists")

	// ErrShareCodeTaken indicates another pot already uses the share code
	ErrShareCodeTaken = errors.New("share code already in use")

	// ErrParticipantNotFound indicates no participant matches the lookup
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrParticipantExists indicates a participant with the same id is already in the pot
	ErrParticipantExists = errors.New("participant already exists")
)

// potFile is the on-disk layout of one pot
type potFile struct {
	Pot          types.MoneyPot      `json:"pot"`
	Participants []types.Participant `json:"participants"`
}

// FileStore keeps one JSON file per pot under dir
type FileStore struct {
	dir    string
	logger logger.Logger
	mu     sync.RWMutex
}

// NewFileStore creates the ledger directory if needed and returns a store over it
func NewFileStore(dir string, log logger.Logger) (*FileStore, error) {
	if log == nil {
		log = logger.Discard()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &FileStore{dir: dir, logger: log}, nil
}

// Dir returns the ledger directory
func (s *FileStore) Dir() string {
	return s.dir
}

// CreatePot stores a new pot with no participants
func (s *FileStore) CreatePot(ctx context.Context, pot types.MoneyPot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !validID(pot.ID) {
		return fmt.Errorf("invalid pot id %q", pot.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(pot.ID)); err == nil {
		return fmt.Errorf("%w: %s", ErrPotExists, pot.ID)
	}

	files, err := s.loadAll()
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.Pot.ShareCode == pot.ShareCode {
			return fmt.Errorf("%w: %s", ErrShareCodeTaken, pot.ShareCode)
		}
	}

	return s.save(&potFile{Pot: pot, Participants: []types.Participant{}})
}

// GetPot returns the pot with the given id
func (s *FileStore) GetPot(ctx context.Context, potID string) (*types.MoneyPot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.load(potID)
	if err != nil {
		return nil, err
	}
	return &f.Pot, nil
}

// GetPotByShareCode returns the pot carrying the given share code
func (s *FileStore) GetPotByShareCode(ctx context.Context, code string) (*types.MoneyPot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.Pot.ShareCode == code {
			pot := f.Pot
			return &pot, nil
		}
	}
	return nil, fmt.Errorf("%w: share code %s", ErrPotNotFound, code)
}

// ListPots returns every pot, newest first
func (s *FileStore) ListPots(ctx context.Context) ([]types.MoneyPot, error) {
	return s.listPots(ctx, func(types.MoneyPot) bool { return true })
}

// ListPotsByCreator returns the pots created by userID, newest first
func (s *FileStore) ListPotsByCreator(ctx context.Context, userID string) ([]types.MoneyPot, error) {
	return s.listPots(ctx, func(p types.MoneyPot) bool { return p.CreatedBy == userID })
}

func (s *FileStore) listPots(ctx context.Context, keep func(types.MoneyPot) bool) ([]types.MoneyPot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := s.loadAll()
	if err != nil {
		return nil, err
	}

	pots := make([]types.MoneyPot, 0, len(files))
	for _, f := range files {
		if keep(f.Pot) {
			pots = append(pots, f.Pot)
		}
	}
	sort.SliceStable(pots, func(i, j int) bool {
		return pots[i].CreatedAt.After(pots[j].CreatedAt)
	})
	return pots, nil
}

// AddParticipant appends a participant to its pot
func (s *FileStore) AddParticipant(ctx context.Context, participant types.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(participant.PotID)
	if err != nil {
		return err
	}
	for _, p := range f.Participants {
		if p.ID == participant.ID {
			return fmt.Errorf("%w: %s", ErrParticipantExists, participant.ID)
		}
	}

	f.Participants = append(f.Participants, participant)
	return s.save(f)
}

// ListParticipants returns a pot's participants ordered by join time
func (s *FileStore) ListParticipants(ctx context.Context, potID string) ([]types.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.load(potID)
	if err != nil {
		return nil, err
	}

	participants := make([]types.Participant, len(f.Participants))
	copy(participants, f.Participants)
	sort.SliceStable(participants, func(i, j int) bool {
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})
	return participants, nil
}

// DeleteParticipant removes a participant from whichever pot holds it and
// returns that pot's id
func (s *FileStore) DeleteParticipant(ctx context.Context, participantID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.loadAll()
	if err != nil {
		return "", err
	}

	for _, f := range files {
		for i, p := range f.Participants {
			if p.ID != participantID {
				continue
			}
			f.Participants = append(f.Participants[:i], f.Participants[i+1:]...)
			if err := s.save(f); err != nil {
				return "", err
			}
			return f.Pot.ID, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrParticipantNotFound, participantID)
}

// SaveContributions overwrites calculated contributions by participant id
// and stamps the pot's update time. Unknown ids are ignored.
func (s *FileStore) SaveContributions(ctx context.Context, potID string, contributions map[string]decimal.Decimal, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(potID)
	if err != nil {
		return err
	}

	changed := false
	for i := range f.Participants {
		c, ok := contributions[f.Participants[i].ID]
		if !ok || c.Equal(f.Participants[i].CalculatedContribution) {
			continue
		}
		f.Participants[i].CalculatedContribution = c
		changed = true
	}
	if !changed {
		return nil
	}

	f.Pot.UpdatedAt = at
	return s.save(f)
}

// DeletePot removes a pot and all its participants
func (s *FileStore) DeletePot(ctx context.Context, potID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !validID(potID) {
		return fmt.Errorf("%w: %q", ErrPotNotFound, potID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(potID)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrPotNotFound, potID)
		}
		return fmt.Errorf("failed to remove pot file: %w", err)
	}
	return nil
}

// PotIDFromPath returns the pot id for a ledger file path, or false when
// the path is not a pot file
func PotIDFromPath(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, FileExt) || strings.HasPrefix(name, ".") {
		return "", false
	}
	return strings.TrimSuffix(name, FileExt), true
}

// Private methods

func (s *FileStore) path(potID string) string {
	return filepath.Join(s.dir, potID+FileExt)
}

func (s *FileStore) load(potID string) (*potFile, error) {
	if !validID(potID) {
		return nil, fmt.Errorf("%w: %q", ErrPotNotFound, potID)
	}

	data, err := os.ReadFile(s.path(potID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPotNotFound, potID)
		}
		return nil, fmt.Errorf("failed to read pot file: %w", err)
	}

	var f potFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse pot file %s: %w", potID, err)
	}
	return &f, nil
}

func validID(id string) bool {
	return id != "" && !strings.HasPrefix(id, ".") && !strings.ContainsAny(id, `/\`)
}

func (s *FileStore) loadAll() ([]*potFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read ledger directory: %w", err)
	}

	var files []*potFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		potID, ok := PotIDFromPath(entry.Name())
		if !ok {
			continue
		}
		f, err := s.load(potID)
		if err != nil {
			s.logger.Warn("Skipping unreadable pot file",
				logger.WithField("pot", potID),
				logger.WithError(err))
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

func (s *FileStore) save(f *potFile) error {
	potFilePath := s.path(f.Pot.ID)

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pot: %w", err)
	}

	// Write atomically
	tempFile := potFilePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write pot file: %w", err)
	}

	if err := os.Rename(tempFile, potFilePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename pot file: %w", err)
	}

	return nil
}
