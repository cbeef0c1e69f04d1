package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/custodia-labs/solana-wallet-middleware/pkg/custody"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/solana"
)

// MockCustodyClient is a mock implementation of custody.Client
type MockCustodyClient struct {
	HasWalletFunc    func(ctx context.Context, identity string) (bool, error)
	CreateWalletFunc func(ctx context.Context, identity string) (*custody.ProvisionedWallet, error)
	LoadShareFunc    func(ctx context.Context, userShare string) (*custody.SigningHandle, error)

	HasWalletCalls    int
	CreateWalletCalls int
	LoadShareCalls    int
}

func (m *MockCustodyClient) HasWallet(ctx context.Context, identity string) (bool, error) {
	m.HasWalletCalls++
	if m.HasWalletFunc != nil {
		return m.HasWalletFunc(ctx, identity)
	}
	return false, nil
}

func (m *MockCustodyClient) CreateWallet(ctx context.Context, identity string) (*custody.ProvisionedWallet, error) {
	m.CreateWalletCalls++
	if m.CreateWalletFunc != nil {
		return m.CreateWalletFunc(ctx, identity)
	}
	return nil, nil
}

func (m *MockCustodyClient) LoadShare(ctx context.Context, userShare string) (*custody.SigningHandle, error) {
	m.LoadShareCalls++
	if m.LoadShareFunc != nil {
		return m.LoadShareFunc(ctx, userShare)
	}
	return nil, nil
}

// MockPipeline is a mock implementation of Pipeline
type MockPipeline struct {
	TransferFunc func(ctx context.Context, userShare, destination string, amount decimal.Decimal) (*solana.Receipt, error)
	BalanceFunc  func(ctx context.Context, userShare string) (uint64, string, error)
	AddressFunc  func(ctx context.Context, userShare string) (string, error)

	TransferCalls int
	BalanceCalls  int
	AddressCalls  int
}

func (m *MockPipeline) Transfer(ctx context.Context, userShare, destination string, amount decimal.Decimal) (*solana.Receipt, error) {
	m.TransferCalls++
	if m.TransferFunc != nil {
		return m.TransferFunc(ctx, userShare, destination, amount)
	}
	return &solana.Receipt{}, nil
}

func (m *MockPipeline) Balance(ctx context.Context, userShare string) (uint64, string, error) {
	m.BalanceCalls++
	if m.BalanceFunc != nil {
		return m.BalanceFunc(ctx, userShare)
	}
	return 0, "", nil
}

func (m *MockPipeline) Address(ctx context.Context, userShare string) (string, error) {
	m.AddressCalls++
	if m.AddressFunc != nil {
		return m.AddressFunc(ctx, userShare)
	}
	return "", nil
}
