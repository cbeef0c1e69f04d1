package walletstore

import (
	"context"
	"sync"

	"github.com/custodia-labs/solana-wallet-middleware/pkg/wallet"
)

// MemoryStore is an in-memory registry. All issued codes live for the life of
// the process; entries are created once and never updated or deleted.
type MemoryStore struct {
	mu         sync.RWMutex
	byCode     map[string]*wallet.Record
	byIdentity map[string]*wallet.Record
}

// NewMemoryStore creates an empty in-memory registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byCode:     make(map[string]*wallet.Record),
		byIdentity: make(map[string]*wallet.Record),
	}
}

func (s *MemoryStore) IssueCode(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for range maxIssueAttempts {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		if _, taken := s.byCode[code]; !taken {
			return code, nil
		}
	}
	return "", ErrAllocationExhausted
}

func (s *MemoryStore) Register(_ context.Context, rec *wallet.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byIdentity[rec.Identity]; exists {
		return ErrIdentityExists
	}
	if _, exists := s.byCode[rec.Code]; exists {
		return ErrCodeExists
	}

	stored := *rec
	s.byCode[stored.Code] = &stored
	s.byIdentity[stored.Identity] = &stored
	return nil
}

func (s *MemoryStore) GetByCode(_ context.Context, code string) (*wallet.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byCode[code]
	if !ok {
		return nil, ErrCodeNotFound
	}
	out := *rec
	return &out, nil
}

func (s *MemoryStore) GetByIdentity(_ context.Context, identity string) (*wallet.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byIdentity[identity]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	out := *rec
	return &out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byCode)), nil
}
