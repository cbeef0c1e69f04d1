// Package solana implements the transaction submission pipeline over the
// Solana JSON-RPC API: resolve signer, validate inputs, fetch a recent
// blockhash, build and sign a transfer, submit, and await confirmation.
package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/custodia-labs/solana-wallet-middleware/internal/metrics"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/custody"
)

// LamportsPerSOL is the fixed multiplier between whole SOL and the ledger's
// smallest unit.
const LamportsPerSOL = 1_000_000_000

// addressSize is the byte length of a Solana public key.
const addressSize = 32

var (
	// ErrSignerInit is returned when a share cannot be turned into a signer.
	ErrSignerInit = errors.New("failed to initialize signer from user share")
	// ErrInvalidDestination is returned for malformed destination addresses.
	ErrInvalidDestination = errors.New("invalid destination address")
	// ErrInvalidAmount is returned for non-positive or unrepresentable amounts.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrConfirmationTimeout is returned when a submitted transaction is not
	// confirmed within the configured window.
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
)

const (
	defaultConfirmationTimeout = 60 * time.Second
	defaultConfirmationPoll    = 2 * time.Second
)

// ShareLoader reconstructs signing capability from a user share.
// Satisfied by custody.Client.
type ShareLoader interface {
	LoadShare(ctx context.Context, userShare string) (*custody.SigningHandle, error)
}

// ledgerClient is the narrow RPC surface the pipeline needs; satisfied by
// the solana-go-sdk client.
type ledgerClient interface {
	GetLatestBlockhash(ctx context.Context) (rpc.GetLatestBlockhashValue, error)
	SendTransaction(ctx context.Context, tx types.Transaction) (string, error)
	GetBalance(ctx context.Context, base58Addr string) (uint64, error)
	GetSignatureStatus(ctx context.Context, signature string) (*rpc.SignatureStatus, error)
}

// Receipt reports a submitted, confirmed transfer.
type Receipt struct {
	Signature string
	From      string
	To        string
	Lamports  uint64
}

// Pipeline executes transfer submissions and balance queries for wallets
// whose signing capability is reconstructed from user shares.
type Pipeline struct {
	ledger              ledgerClient
	loader              ShareLoader
	confirmationTimeout time.Duration
	confirmationPoll    time.Duration
	logger              *zap.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithConfirmation overrides the confirmation timeout and poll interval.
func WithConfirmation(timeout, poll time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if timeout > 0 {
			p.confirmationTimeout = timeout
		}
		if poll > 0 {
			p.confirmationPoll = poll
		}
	}
}

// NewPipeline creates a pipeline against the given RPC endpoint.
func NewPipeline(rpcURL string, loader ShareLoader, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		ledger:              client.NewClient(rpcURL),
		loader:              loader,
		confirmationTimeout: defaultConfirmationTimeout,
		confirmationPoll:    defaultConfirmationPoll,
		logger:              zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ValidateDestination parses a destination string into a ledger public key.
func ValidateDestination(destination string) (common.PublicKey, error) {
	raw, err := base58.Decode(destination)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	}
	if len(raw) != addressSize {
		return common.PublicKey{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidDestination, addressSize, len(raw))
	}
	return common.PublicKeyFromBytes(raw), nil
}

// ToLamports converts a whole-SOL amount to lamports. The amount must be
// strictly positive and representable as a uint64 lamport count.
func ToLamports(amount decimal.Decimal) (uint64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}

	lamports := amount.Mul(decimal.NewFromInt(LamportsPerSOL)).Truncate(0)
	if !lamports.IsPositive() {
		return 0, fmt.Errorf("%w: amount is below one lamport", ErrInvalidAmount)
	}

	big := lamports.BigInt()
	if !big.IsUint64() {
		return 0, fmt.Errorf("%w: amount exceeds ledger range", ErrInvalidAmount)
	}
	return big.Uint64(), nil
}

// ResolveSigner loads the share and reconstructs a signing account.
func (p *Pipeline) ResolveSigner(ctx context.Context, userShare string) (types.Account, error) {
	handle, err := p.loader.LoadShare(ctx, userShare)
	if err != nil {
		return types.Account{}, fmt.Errorf("%w: %v", ErrSignerInit, err)
	}
	if handle.Address() == "" {
		return types.Account{}, fmt.Errorf("%w: provider returned no address", ErrSignerInit)
	}

	account, err := types.AccountFromBytes(handle.SigningKey())
	if err != nil {
		return types.Account{}, fmt.Errorf("%w: %v", ErrSignerInit, err)
	}
	return account, nil
}

// Transfer runs the full submission pipeline for a native transfer.
// Destination and amount are validated before any signer or network
// interaction; the blockhash fetch is not retried.
func (p *Pipeline) Transfer(ctx context.Context, userShare, destination string, amount decimal.Decimal) (*Receipt, error) {
	start := time.Now()

	toPubkey, err := ValidateDestination(destination)
	if err != nil {
		return nil, err
	}

	lamports, err := ToLamports(amount)
	if err != nil {
		return nil, err
	}

	account, err := p.ResolveSigner(ctx, userShare)
	if err != nil {
		return nil, err
	}
	sender := account.PublicKey.ToBase58()

	blockhash, err := p.ledger.GetLatestBlockhash(ctx)
	if err != nil {
		metrics.TransfersTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to fetch recent blockhash: %w", err)
	}

	tx, err := types.NewTransaction(types.NewTransactionParam{
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        account.PublicKey,
			RecentBlockhash: blockhash.Blockhash,
			Instructions: []types.Instruction{
				system.Transfer(system.TransferParam{
					From:   account.PublicKey,
					To:     toPubkey,
					Amount: lamports,
				}),
			},
		}),
		Signers: []types.Account{account},
	})
	if err != nil {
		metrics.TransfersTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	signature, err := p.ledger.SendTransaction(ctx, tx)
	if err != nil {
		metrics.TransfersTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to submit transaction: %w", err)
	}

	p.logger.Info("Transaction submitted",
		zap.String("signature", signature),
		zap.String("from", sender),
		zap.String("to", destination),
		zap.Uint64("lamports", lamports))

	if err := p.awaitConfirmation(ctx, signature); err != nil {
		metrics.TransfersTotal.WithLabelValues("unconfirmed").Inc()
		return nil, err
	}

	metrics.TransfersTotal.WithLabelValues("confirmed").Inc()
	metrics.PipelineDuration.WithLabelValues("transfer").Observe(time.Since(start).Seconds())

	return &Receipt{
		Signature: signature,
		From:      sender,
		To:        destination,
		Lamports:  lamports,
	}, nil
}

// Balance resolves the signer and queries the wallet's lamport balance.
func (p *Pipeline) Balance(ctx context.Context, userShare string) (uint64, string, error) {
	account, err := p.ResolveSigner(ctx, userShare)
	if err != nil {
		return 0, "", err
	}

	address := account.PublicKey.ToBase58()
	lamports, err := p.ledger.GetBalance(ctx, address)
	if err != nil {
		return 0, "", fmt.Errorf("failed to fetch balance: %w", err)
	}
	return lamports, address, nil
}

// Address resolves the signer and returns the derived wallet address.
func (p *Pipeline) Address(ctx context.Context, userShare string) (string, error) {
	account, err := p.ResolveSigner(ctx, userShare)
	if err != nil {
		return "", err
	}
	return account.PublicKey.ToBase58(), nil
}

// awaitConfirmation polls the signature status until the transaction reaches
// confirmed or finalized commitment, bounded by the configured timeout.
func (p *Pipeline) awaitConfirmation(ctx context.Context, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, p.confirmationTimeout)
	defer cancel()

	ticker := time.NewTicker(p.confirmationPoll)
	defer ticker.Stop()

	for {
		status, err := p.ledger.GetSignatureStatus(ctx, signature)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature)
			}
			return fmt.Errorf("failed to check signature status: %w", err)
		}

		if status != nil {
			if status.Err != nil {
				return fmt.Errorf("transaction failed on chain: %v", status.Err)
			}
			if status.ConfirmationStatus != nil {
				switch *status.ConfirmationStatus {
				case rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
					return nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature)
		case <-ticker.C:
		}
	}
}

// ExplorerTxURL builds an explorer link for a confirmed transaction.
func ExplorerTxURL(cluster, signature string) string {
	if cluster == "" || cluster == "mainnet" || cluster == "mainnet-beta" {
		return fmt.Sprintf("https://explorer.solana.com/tx/%s", signature)
	}
	return fmt.Sprintf("https://explorer.solana.com/tx/%s?cluster=%s", signature, cluster)
}
