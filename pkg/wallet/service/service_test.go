package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/custodia-labs/solana-wallet-middleware/pkg/app/errors"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/custody"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/keys"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/solana"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/walletstore"
)

var codeRegexp = regexp.MustCompile(`^[0-9]{6}$`)

func testCipher(t *testing.T) keys.ShareCipher {
	t.Helper()
	cipher, err := keys.NewMasterKeyCipher(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	return cipher
}

func newTestService(t *testing.T, provider *MockCustodyClient, pipeline *MockPipeline) (Service, *walletstore.MemoryStore) {
	t.Helper()
	store := walletstore.NewMemoryStore()
	return NewService(store, provider, pipeline, testCipher(t), zap.NewNop()), store
}

func TestWalletService_CreateWallet_Fresh(t *testing.T) {
	provider := &MockCustodyClient{
		CreateWalletFunc: func(_ context.Context, identity string) (*custody.ProvisionedWallet, error) {
			assert.Equal(t, "+10000000001", identity)
			return &custody.ProvisionedWallet{
				WalletID:  "w-123",
				Address:   "7Np41oeYqPefeNQEHSv1UDhYrehxin3NStELsSKCT4K2",
				UserShare: "share-plaintext",
			}, nil
		},
	}
	svc, store := newTestService(t, provider, &MockPipeline{})

	res, err := svc.CreateWallet(context.Background(), "+10000000001")
	require.NoError(t, err)

	assert.Regexp(t, codeRegexp, res.Code)
	assert.False(t, res.Existing)
	assert.Equal(t, "share-plaintext", res.UserShare)
	assert.Equal(t, "w-123", res.WalletID)
	assert.Equal(t, "7Np41oeYqPefeNQEHSv1UDhYrehxin3NStELsSKCT4K2", res.Address)

	// The registry never holds the plaintext share.
	rec, err := store.GetByCode(context.Background(), res.Code)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.EncryptedShare)
	assert.NotEqual(t, "share-plaintext", rec.EncryptedShare)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestWalletService_CreateWallet_Idempotent(t *testing.T) {
	provider := &MockCustodyClient{
		CreateWalletFunc: func(_ context.Context, _ string) (*custody.ProvisionedWallet, error) {
			return &custody.ProvisionedWallet{
				WalletID:  "w-1",
				Address:   "addr",
				UserShare: "share",
			}, nil
		},
	}
	svc, _ := newTestService(t, provider, &MockPipeline{})

	first, err := svc.CreateWallet(context.Background(), "+10000000001")
	require.NoError(t, err)

	second, err := svc.CreateWallet(context.Background(), "+10000000001")
	require.NoError(t, err)

	assert.True(t, second.Existing)
	assert.Equal(t, first.Code, second.Code)
	assert.Empty(t, second.UserShare, "share is only returned on fresh creation")
	assert.Equal(t, 1, provider.CreateWalletCalls)
}

func TestWalletService_CreateWallet_Concurrent(t *testing.T) {
	provider := &MockCustodyClient{
		CreateWalletFunc: func(_ context.Context, _ string) (*custody.ProvisionedWallet, error) {
			return &custody.ProvisionedWallet{
				WalletID:  "w-1",
				Address:   "addr",
				UserShare: "share",
			}, nil
		},
	}
	svc, _ := newTestService(t, provider, &MockPipeline{})

	const workers = 10
	codes := make([]string, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.CreateWallet(context.Background(), "+10000000001")
			require.NoError(t, err)
			codes[i] = res.Code
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, provider.CreateWalletCalls, "concurrent creations must provision exactly once")
	for _, code := range codes {
		assert.Equal(t, codes[0], code)
	}
}

func TestWalletService_CreateWallet_UnmanagedWallet(t *testing.T) {
	provider := &MockCustodyClient{
		HasWalletFunc: func(_ context.Context, _ string) (bool, error) {
			return true, nil
		},
	}
	svc, _ := newTestService(t, provider, &MockPipeline{})

	_, err := svc.CreateWallet(context.Background(), "+10000000001")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDataConflict))
	assert.Zero(t, provider.CreateWalletCalls)
}

func TestWalletService_CreateWallet_ProviderFailure(t *testing.T) {
	provider := &MockCustodyClient{
		CreateWalletFunc: func(_ context.Context, _ string) (*custody.ProvisionedWallet, error) {
			return nil, errors.New("provider returned 500")
		},
	}
	svc, _ := newTestService(t, provider, &MockPipeline{})

	_, err := svc.CreateWallet(context.Background(), "+10000000001")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDependencyFailure))
}

func TestWalletService_Send_UnknownCode_NoNetworkCalls(t *testing.T) {
	provider := &MockCustodyClient{}
	pipeline := &MockPipeline{}
	svc, _ := newTestService(t, provider, pipeline)

	_, err := svc.Send(context.Background(), "123456", "dest", decimal.NewFromInt(1))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryResourceNotFound))
	assert.Zero(t, pipeline.TransferCalls)
	assert.Zero(t, provider.LoadShareCalls)
}

func TestWalletService_Send_MalformedCode(t *testing.T) {
	pipeline := &MockPipeline{}
	svc, _ := newTestService(t, &MockCustodyClient{}, pipeline)

	for _, code := range []string{"", "12345", "1234567", "12a456"} {
		_, err := svc.Send(context.Background(), code, "dest", decimal.NewFromInt(1))
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.CategoryResourceNotFound))
	}
	assert.Zero(t, pipeline.TransferCalls)
}

func TestWalletService_Send_RoundTrip(t *testing.T) {
	provider := &MockCustodyClient{
		CreateWalletFunc: func(_ context.Context, _ string) (*custody.ProvisionedWallet, error) {
			return &custody.ProvisionedWallet{
				WalletID:  "w-1",
				Address:   "sender-addr",
				UserShare: "share-plaintext",
			}, nil
		},
	}
	pipeline := &MockPipeline{
		TransferFunc: func(_ context.Context, userShare, destination string, amount decimal.Decimal) (*solana.Receipt, error) {
			// The share handed to the pipeline is the unsealed original.
			assert.Equal(t, "share-plaintext", userShare)
			assert.Equal(t, "dest-addr", destination)
			assert.True(t, amount.Equal(decimal.RequireFromString("0.5")))
			return &solana.Receipt{
				Signature: "sig-1",
				From:      "sender-addr",
				To:        destination,
				Lamports:  500_000_000,
			}, nil
		},
	}
	svc, _ := newTestService(t, provider, pipeline)

	created, err := svc.CreateWallet(context.Background(), "+10000000001")
	require.NoError(t, err)

	res, err := svc.Send(context.Background(), created.Code, "dest-addr", decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	assert.Equal(t, "sig-1", res.Signature)
	assert.Equal(t, "sender-addr", res.From)
	assert.Equal(t, 1, pipeline.TransferCalls)
}

func TestWalletService_Send_PipelineErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		category apperrors.Category
	}{
		{"invalid destination", fmt.Errorf("%w: bad base58", solana.ErrInvalidDestination), apperrors.CategoryDataError},
		{"invalid amount", fmt.Errorf("%w: not positive", solana.ErrInvalidAmount), apperrors.CategoryDataError},
		{"signer init", fmt.Errorf("%w: bad key", solana.ErrSignerInit), apperrors.CategoryGeneralError},
		{"confirmation timeout", fmt.Errorf("%w: sig", solana.ErrConfirmationTimeout), apperrors.CategoryDependencyFailure},
		{"rpc failure", errors.New("connection refused"), apperrors.CategoryDependencyFailure},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pipeline := &MockPipeline{
				TransferFunc: func(_ context.Context, _, _ string, _ decimal.Decimal) (*solana.Receipt, error) {
					return nil, tc.err
				},
			}
			svc, _ := newTestService(t, &MockCustodyClient{}, pipeline)

			_, err := svc.SendWithShare(context.Background(), "share", "dest", decimal.NewFromInt(1))
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tc.category), "expected %s, got %v", tc.category, err)
		})
	}
}

func TestWalletService_SendWithShare_MissingShare(t *testing.T) {
	pipeline := &MockPipeline{}
	svc, _ := newTestService(t, &MockCustodyClient{}, pipeline)

	_, err := svc.SendWithShare(context.Background(), "", "dest", decimal.NewFromInt(1))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDataError))
	assert.Zero(t, pipeline.TransferCalls)
}

func TestWalletService_Balance(t *testing.T) {
	provider := &MockCustodyClient{
		CreateWalletFunc: func(_ context.Context, _ string) (*custody.ProvisionedWallet, error) {
			return &custody.ProvisionedWallet{WalletID: "w", Address: "addr", UserShare: "share"}, nil
		},
	}
	pipeline := &MockPipeline{
		BalanceFunc: func(_ context.Context, userShare string) (uint64, string, error) {
			assert.Equal(t, "share", userShare)
			return 2_500_000_000, "addr", nil
		},
	}
	svc, _ := newTestService(t, provider, pipeline)

	created, err := svc.CreateWallet(context.Background(), "+10000000001")
	require.NoError(t, err)

	res, err := svc.Balance(context.Background(), created.Code)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000_000), res.Lamports)
	assert.True(t, res.SOL.Equal(decimal.RequireFromString("2.5")), "got %s", res.SOL)
}

func TestWalletService_Address_FromRegistry(t *testing.T) {
	provider := &MockCustodyClient{
		CreateWalletFunc: func(_ context.Context, _ string) (*custody.ProvisionedWallet, error) {
			return &custody.ProvisionedWallet{WalletID: "w", Address: "registered-addr", UserShare: "share"}, nil
		},
	}
	pipeline := &MockPipeline{}
	svc, _ := newTestService(t, provider, pipeline)

	created, err := svc.CreateWallet(context.Background(), "+10000000001")
	require.NoError(t, err)

	address, err := svc.Address(context.Background(), created.Code)
	require.NoError(t, err)
	assert.Equal(t, "registered-addr", address)
	assert.Zero(t, pipeline.AddressCalls, "registered address is served without a ledger round trip")
}
