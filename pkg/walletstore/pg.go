package walletstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/custodia-labs/solana-wallet-middleware/pkg/wallet"
)

type pgStore struct {
	db *bun.DB
}

// NewPGStore creates a new postgres implementation of the registry store.
func NewPGStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) IssueCode(ctx context.Context) (string, error) {
	for range maxIssueAttempts {
		code, err := generateCode()
		if err != nil {
			return "", err
		}

		taken, err := s.db.NewSelect().
			Model((*WalletDao)(nil)).
			Where("code = ?", code).
			Exists(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to check code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrAllocationExhausted
}

func (s *pgStore) Register(ctx context.Context, rec *wallet.Record) error {
	dao := toWalletDao(rec)

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			// The unique constraints on identity and code make the insert the
			// atomicity point; disambiguate which one fired.
			if _, lookupErr := s.GetByIdentity(ctx, rec.Identity); lookupErr == nil {
				return ErrIdentityExists
			}
			return ErrCodeExists
		}
		return fmt.Errorf("failed to register wallet: %w", err)
	}

	return nil
}

func (s *pgStore) GetByCode(ctx context.Context, code string) (*wallet.Record, error) {
	dao := new(WalletDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("code = ?", code).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to get wallet by code: %w", err)
	}
	return toRecord(dao), nil
}

func (s *pgStore) GetByIdentity(ctx context.Context, identity string) (*wallet.Record, error) {
	dao := new(WalletDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("identity = ?", identity).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get wallet by identity: %w", err)
	}
	return toRecord(dao), nil
}

func (s *pgStore) Count(ctx context.Context) (int64, error) {
	count, err := s.db.NewSelect().
		Model((*WalletDao)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count wallets: %w", err)
	}
	return int64(count), nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return false
}
