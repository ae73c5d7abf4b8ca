package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/brickvest/coinvest_layer/internal/app/storage"
)

// Store is an in-memory implementation of the state store. It is safe for
// concurrent use and is primarily intended for tests and stateless runs.
type Store struct {
	mu          sync.RWMutex
	creds       *storage.Credentials
	wallet      *storage.WalletSession
	commits     map[string]storage.PendingCommit
	commitOrder []string
}

var _ storage.StateStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{commits: make(map[string]storage.PendingCommit)}
}

func (s *Store) SaveCredentials(ctx context.Context, creds storage.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds.UpdatedAt = time.Now().UTC()
	s.creds = &creds
	return nil
}

func (s *Store) LoadCredentials(ctx context.Context) (storage.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return storage.Credentials{}, storage.ErrNotFound
	}
	return *s.creds, nil
}

func (s *Store) ClearCredentials(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}

func (s *Store) SaveWalletSession(ctx context.Context, ws storage.WalletSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws.UpdatedAt = time.Now().UTC()
	s.wallet = &ws
	return nil
}

func (s *Store) LoadWalletSession(ctx context.Context) (storage.WalletSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wallet == nil {
		return storage.WalletSession{}, storage.ErrNotFound
	}
	return *s.wallet, nil
}

func (s *Store) ClearWalletSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = nil
	return nil
}

func (s *Store) CreatePendingCommit(ctx context.Context, pc storage.PendingCommit) (storage.PendingCommit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pc.Key == "" {
		return storage.PendingCommit{}, fmt.Errorf("pending commit key is required")
	}
	if _, exists := s.commits[pc.Key]; exists {
		return storage.PendingCommit{}, fmt.Errorf("pending commit %s already exists", pc.Key)
	}
	now := time.Now().UTC()
	pc.CreatedAt = now
	pc.UpdatedAt = now
	s.commits[pc.Key] = pc
	s.commitOrder = append(s.commitOrder, pc.Key)
	return pc, nil
}

func (s *Store) UpdatePendingCommit(ctx context.Context, pc storage.PendingCommit) (storage.PendingCommit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.commits[pc.Key]
	if !ok {
		return storage.PendingCommit{}, storage.ErrNotFound
	}
	pc.CreatedAt = existing.CreatedAt
	pc.UpdatedAt = time.Now().UTC()
	s.commits[pc.Key] = pc
	return pc, nil
}

func (s *Store) GetPendingCommit(ctx context.Context, key string) (storage.PendingCommit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pc, ok := s.commits[key]
	if !ok {
		return storage.PendingCommit{}, storage.ErrNotFound
	}
	return pc, nil
}

func (s *Store) ListUnresolvedCommits(ctx context.Context) ([]storage.PendingCommit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.PendingCommit
	for _, key := range s.commitOrder {
		pc := s.commits[key]
		if pc.State != storage.CommitCompleted {
			out = append(out, pc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
