// Package service implements the wallet business logic: provisioning wallets
// through the custody provider, registering them under credential codes, and
// driving transfers through the submission pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/solana-wallet-middleware/internal/metrics"
	apperrors "github.com/custodia-labs/solana-wallet-middleware/pkg/app/errors"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/custody"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/keys"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/solana"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/wallet"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/walletstore"
)

// registerAttempts bounds re-issuance when a freshly issued code loses a
// cross-process race at registration time.
const registerAttempts = 3

var (
	ErrUnknownCode     = errors.New("no wallet registered under this code")
	ErrNoWallet        = errors.New("no wallet registered for this number")
	ErrUnmanagedWallet = errors.New("wallet exists but is not managed by this service")
)

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Pipeline is the narrow ledger surface the service needs.
// Defined here to keep the service decoupled from the RPC client.
type Pipeline interface {
	Transfer(ctx context.Context, userShare, destination string, amount decimal.Decimal) (*solana.Receipt, error)
	Balance(ctx context.Context, userShare string) (uint64, string, error)
	Address(ctx context.Context, userShare string) (string, error)
}

// Service defines the wallet business logic surface shared by the chat bot
// and the HTTP API.
type Service interface {
	// CreateWallet provisions a wallet for the identity, or returns the
	// existing registration when the identity already holds a code.
	CreateWallet(ctx context.Context, identity string) (*wallet.CreateResult, error)
	// Address returns the wallet address registered under the code.
	Address(ctx context.Context, code string) (string, error)
	// Balance queries the on-chain balance of the wallet behind the code.
	Balance(ctx context.Context, code string) (*wallet.BalanceResult, error)
	// Send submits a transfer signed by the wallet behind the code.
	Send(ctx context.Context, code, destination string, amount decimal.Decimal) (*wallet.SendResult, error)
	// SendWithShare submits a transfer signed with a caller-supplied share,
	// bypassing the credential registry.
	SendWithShare(ctx context.Context, userShare, destination string, amount decimal.Decimal) (*wallet.SendResult, error)
	// HasProvisionedWallet reports whether the custody provider holds a
	// pregenerated wallet for the identity.
	HasProvisionedWallet(ctx context.Context, identity string) (bool, error)
	// WalletCount reports the number of registered wallets.
	WalletCount(ctx context.Context) (int64, error)
}

type walletService struct {
	store    walletstore.Store
	provider custody.Client
	pipeline Pipeline
	cipher   keys.ShareCipher
	logger   *zap.Logger

	// create collapses concurrent creation requests for the same identity
	// so at most one provisioning call is in flight per identity.
	create singleflight.Group
}

// NewService creates the wallet service.
func NewService(
	store walletstore.Store,
	provider custody.Client,
	pipeline Pipeline,
	cipher keys.ShareCipher,
	logger *zap.Logger,
) Service {
	return &walletService{
		store:    store,
		provider: provider,
		pipeline: pipeline,
		cipher:   cipher,
		logger:   logger,
	}
}

// CreateWallet provisions a wallet for the identity.
//
// The creation flow:
//  1. Returns the existing registration if the identity already holds a code
//  2. Rejects identities whose wallet exists at the provider but not here
//  3. Provisions a fresh wallet through the custody provider
//  4. Seals the returned user share and registers it under a new code
//
// Concurrent requests for the same identity are collapsed; whichever request
// provisions first wins and the rest observe its registration.
func (s *walletService) CreateWallet(ctx context.Context, identity string) (*wallet.CreateResult, error) {
	if identity == "" {
		return nil, apperrors.BadRequestError(errors.New("identity is required"), "identity is required")
	}

	res, err, _ := s.create.Do(identity, func() (interface{}, error) {
		return s.createWallet(ctx, identity)
	})
	if err != nil {
		return nil, err
	}
	return res.(*wallet.CreateResult), nil
}

func (s *walletService) createWallet(ctx context.Context, identity string) (*wallet.CreateResult, error) {
	existing, err := s.store.GetByIdentity(ctx, identity)
	if err == nil {
		metrics.WalletsCreated.WithLabelValues("exists").Inc()
		return &wallet.CreateResult{
			Identity: identity,
			Code:     existing.Code,
			Address:  existing.Address,
			WalletID: existing.WalletID,
			Existing: true,
		}, nil
	}
	if !errors.Is(err, walletstore.ErrIdentityNotFound) {
		return nil, fmt.Errorf("failed to check registration: %w", err)
	}

	held, err := s.provider.HasWallet(ctx, identity)
	if err != nil {
		return nil, apperrors.DependencyFailureError(err, "custody provider unavailable")
	}
	if held {
		// Provisioned upstream but never registered here; refusing avoids
		// issuing a code for a share this service never saw.
		return nil, apperrors.ConflictError(ErrUnmanagedWallet, "wallet exists but is not managed by this service")
	}

	provisioned, err := s.provider.CreateWallet(ctx, identity)
	if err != nil {
		metrics.WalletsCreated.WithLabelValues("failed").Inc()
		return nil, apperrors.DependencyFailureError(err, "wallet provisioning failed")
	}

	sealed, err := s.cipher.Encrypt(provisioned.UserShare)
	if err != nil {
		return nil, fmt.Errorf("failed to seal user share: %w", err)
	}

	rec, err := s.register(ctx, identity, sealed, provisioned)
	if err != nil {
		return nil, err
	}

	metrics.WalletsCreated.WithLabelValues("created").Inc()
	if count, countErr := s.store.Count(ctx); countErr == nil {
		metrics.RegisteredWallets.Set(float64(count))
		s.logger.Info("Wallet registered",
			zap.String("identity", identity),
			zap.String("address", rec.Address),
			zap.Int64("total_wallets", count))
	}

	return &wallet.CreateResult{
		Identity:  identity,
		Code:      rec.Code,
		Address:   rec.Address,
		WalletID:  rec.WalletID,
		UserShare: provisioned.UserShare,
	}, nil
}

// register issues a code and inserts the record, re-issuing on code
// collisions. An identity collision means another process won the race;
// its registration is returned instead.
func (s *walletService) register(ctx context.Context, identity, sealed string, provisioned *custody.ProvisionedWallet) (*wallet.Record, error) {
	for range registerAttempts {
		code, err := s.store.IssueCode(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to issue code: %w", err)
		}

		rec := wallet.New(identity, code, sealed, provisioned.Address, provisioned.WalletID)
		err = s.store.Register(ctx, rec)
		if err == nil {
			return rec, nil
		}
		if errors.Is(err, walletstore.ErrIdentityExists) {
			return s.store.GetByIdentity(ctx, identity)
		}
		if errors.Is(err, walletstore.ErrCodeExists) {
			continue
		}
		return nil, fmt.Errorf("failed to register wallet: %w", err)
	}
	return nil, apperrors.GeneralError(walletstore.ErrAllocationExhausted)
}

func (s *walletService) Address(ctx context.Context, code string) (string, error) {
	rec, share, err := s.resolveByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if rec.Address != "" {
		return rec.Address, nil
	}

	address, err := s.pipeline.Address(ctx, share)
	if err != nil {
		return "", mapPipelineError(err)
	}
	return address, nil
}

func (s *walletService) Balance(ctx context.Context, code string) (*wallet.BalanceResult, error) {
	_, share, err := s.resolveByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	lamports, address, err := s.pipeline.Balance(ctx, share)
	if err != nil {
		return nil, mapPipelineError(err)
	}

	return &wallet.BalanceResult{
		Address:  address,
		Lamports: lamports,
		SOL:      decimal.NewFromUint64(lamports).Div(decimal.NewFromInt(solana.LamportsPerSOL)),
	}, nil
}

func (s *walletService) Send(ctx context.Context, code, destination string, amount decimal.Decimal) (*wallet.SendResult, error) {
	_, share, err := s.resolveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, share, destination, amount)
}

func (s *walletService) SendWithShare(ctx context.Context, userShare, destination string, amount decimal.Decimal) (*wallet.SendResult, error) {
	if userShare == "" {
		return nil, apperrors.BadRequestError(errors.New("user share is required"), "user share is required")
	}
	return s.submit(ctx, userShare, destination, amount)
}

func (s *walletService) HasProvisionedWallet(ctx context.Context, identity string) (bool, error) {
	held, err := s.provider.HasWallet(ctx, identity)
	if err != nil {
		return false, apperrors.DependencyFailureError(err, "custody provider unavailable")
	}
	return held, nil
}

func (s *walletService) WalletCount(ctx context.Context) (int64, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count wallets: %w", err)
	}
	return count, nil
}

func (s *walletService) submit(ctx context.Context, share, destination string, amount decimal.Decimal) (*wallet.SendResult, error) {
	receipt, err := s.pipeline.Transfer(ctx, share, destination, amount)
	if err != nil {
		return nil, mapPipelineError(err)
	}

	return &wallet.SendResult{
		Signature: receipt.Signature,
		From:      receipt.From,
		To:        receipt.To,
		Amount:    amount,
	}, nil
}

// resolveByCode looks up the registration and unseals its user share.
// No network interaction happens here; an unknown code fails before any
// provider or ledger call.
func (s *walletService) resolveByCode(ctx context.Context, code string) (*wallet.Record, string, error) {
	if !codePattern.MatchString(code) {
		return nil, "", apperrors.ResourceNotFoundError(ErrUnknownCode, "no wallet registered under this code")
	}

	rec, err := s.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, walletstore.ErrCodeNotFound) {
			return nil, "", apperrors.ResourceNotFoundError(ErrUnknownCode, "no wallet registered under this code")
		}
		return nil, "", fmt.Errorf("failed to look up code: %w", err)
	}

	share, err := s.cipher.Decrypt(rec.EncryptedShare)
	if err != nil {
		return nil, "", fmt.Errorf("failed to unseal user share: %w", err)
	}
	return rec, share, nil
}

// mapPipelineError translates pipeline failures into service error categories.
func mapPipelineError(err error) error {
	switch {
	case errors.Is(err, solana.ErrInvalidDestination),
		errors.Is(err, solana.ErrInvalidAmount):
		return apperrors.BadRequestError(err, err.Error())
	case errors.Is(err, solana.ErrSignerInit):
		return apperrors.GeneralError(err)
	case errors.Is(err, solana.ErrConfirmationTimeout):
		return apperrors.DependencyFailureError(err, "transaction was submitted but not confirmed in time")
	default:
		return apperrors.DependencyFailureError(err, "ledger interaction failed")
	}
}
