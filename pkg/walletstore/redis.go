package walletstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/solana-wallet-middleware/pkg/wallet"
)

// Redis key layout. Codes are permanent once issued, so no TTL is set.
const (
	codeKeyPrefix     = "wallet:code:"
	identityKeyPrefix = "wallet:identity:"
	countKey          = "wallet:count"
)

type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed implementation of the registry store.
// The client lifecycle is managed by the caller.
func NewRedisStore(client *redis.Client) *redisStore {
	return &redisStore{client: client}
}

// redisRecord is the JSON shape stored under the code key.
type redisRecord struct {
	Identity       string `json:"identity"`
	Code           string `json:"code"`
	EncryptedShare string `json:"encrypted_share"`
	Address        string `json:"address"`
	WalletID       string `json:"wallet_id,omitempty"`
	CreatedAtUnix  int64  `json:"created_at"`
}

func (s *redisStore) IssueCode(ctx context.Context) (string, error) {
	for range maxIssueAttempts {
		code, err := generateCode()
		if err != nil {
			return "", err
		}

		taken, err := s.client.Exists(ctx, codeKeyPrefix+code).Result()
		if err != nil {
			return "", fmt.Errorf("failed to check code: %w", err)
		}
		if taken == 0 {
			return code, nil
		}
	}
	return "", ErrAllocationExhausted
}

func (s *redisStore) Register(ctx context.Context, rec *wallet.Record) error {
	payload, err := json.Marshal(redisRecord{
		Identity:       rec.Identity,
		Code:           rec.Code,
		EncryptedShare: rec.EncryptedShare,
		Address:        rec.Address,
		WalletID:       rec.WalletID,
		CreatedAtUnix:  rec.CreatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	// SETNX on the identity key is the per-identity atomicity point.
	ok, err := s.client.SetNX(ctx, identityKeyPrefix+rec.Identity, rec.Code, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to register identity: %w", err)
	}
	if !ok {
		return ErrIdentityExists
	}

	ok, err = s.client.SetNX(ctx, codeKeyPrefix+rec.Code, payload, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to register code: %w", err)
	}
	if !ok {
		// Undo the identity claim so the caller can retry with a fresh code.
		_ = s.client.Del(ctx, identityKeyPrefix+rec.Identity).Err()
		return ErrCodeExists
	}

	if err := s.client.Incr(ctx, countKey).Err(); err != nil {
		return fmt.Errorf("failed to bump wallet count: %w", err)
	}
	return nil
}

func (s *redisStore) GetByCode(ctx context.Context, code string) (*wallet.Record, error) {
	raw, err := s.client.Get(ctx, codeKeyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet by code: %w", err)
	}
	return unmarshalRecord(raw)
}

func (s *redisStore) GetByIdentity(ctx context.Context, identity string) (*wallet.Record, error) {
	code, err := s.client.Get(ctx, identityKeyPrefix+identity).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get code by identity: %w", err)
	}

	rec, err := s.GetByCode(ctx, code)
	if errors.Is(err, ErrCodeNotFound) {
		// Identity points at a code with no record; surface as missing identity.
		return nil, ErrIdentityNotFound
	}
	return rec, err
}

func (s *redisStore) Count(ctx context.Context) (int64, error) {
	count, err := s.client.Get(ctx, countKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get wallet count: %w", err)
	}
	return count, nil
}

func unmarshalRecord(raw string) (*wallet.Record, error) {
	var rr redisRecord
	if err := json.Unmarshal([]byte(raw), &rr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	rec := &wallet.Record{
		Identity:       rr.Identity,
		Code:           rr.Code,
		EncryptedShare: rr.EncryptedShare,
		Address:        rr.Address,
		WalletID:       rr.WalletID,
	}
	if rr.CreatedAtUnix > 0 {
		rec.CreatedAt = time.Unix(rr.CreatedAtUnix, 0)
	}
	return rec, nil
}
