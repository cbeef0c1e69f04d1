// Package walletstore implements the credential registry: the mapping from
// 6-digit credential codes to sealed user shares, and from external identities
// to their issued codes. Three backends are provided (memory, postgres, redis);
// all enforce a conditional insert so one identity can never hold two codes.
package walletstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/custodia-labs/solana-wallet-middleware/pkg/wallet"
)

var (
	// ErrCodeNotFound is returned when no wallet is registered under a code.
	ErrCodeNotFound = errors.New("code not found")
	// ErrIdentityNotFound is returned when no code has been issued for an identity.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrIdentityExists is returned by Register when the identity already holds a code.
	ErrIdentityExists = errors.New("identity already registered")
	// ErrCodeExists is returned by Register when the code is already taken.
	ErrCodeExists = errors.New("code already registered")
	// ErrAllocationExhausted is returned when the issue-code retry bound is hit.
	ErrAllocationExhausted = errors.New("could not allocate a unique code")
)

const (
	// codeMin and codeSpan define the credential code space [100000, 999999].
	codeMin  = 100000
	codeSpan = 900000

	// maxIssueAttempts bounds collision retries during code issuance. The
	// collision probability is birthday-bound over 900k values, so the bound
	// acts as a circuit breaker rather than an expected path.
	maxIssueAttempts = 100
)

// Store defines the credential registry persistence contract.
// Register must be atomic per identity: a second Register for the same
// identity fails with ErrIdentityExists instead of issuing a second code.
type Store interface {
	// IssueCode allocates a 6-digit code not currently registered,
	// retrying up to the attempt bound and failing with ErrAllocationExhausted.
	IssueCode(ctx context.Context) (string, error)
	// Register records the wallet under both its code and its identity.
	Register(ctx context.Context, rec *wallet.Record) error
	// GetByCode returns the wallet registered under the code.
	GetByCode(ctx context.Context, code string) (*wallet.Record, error)
	// GetByIdentity returns the wallet registered for the identity.
	GetByIdentity(ctx context.Context, identity string) (*wallet.Record, error)
	// Count reports the number of registered wallets.
	Count(ctx context.Context) (int64, error)
}

// generateCode draws a uniformly random code from the code space.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
