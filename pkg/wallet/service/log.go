package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/custodia-labs/solana-wallet-middleware/pkg/wallet"
)

const serviceName = "WalletService"

// shareDisplaySize is how many characters of a user share are kept in logs.
const shareDisplaySize = 6

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the wallet Service.
// It logs method entry/exit, duration, errors, and sanitized request data;
// user shares and credential codes are never logged in full.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

// CreateWallet wraps the service method with logging
func (ls *logService) CreateWallet(ctx context.Context, identity string) (res *wallet.CreateResult, err error) {
	start := time.Now()

	ls.logger.Info("CreateWallet started",
		zap.String("service", serviceName),
		zap.String("method", "CreateWallet"),
		zap.String("identity", identity),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("CreateWallet failed",
				zap.String("service", serviceName),
				zap.String("method", "CreateWallet"),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("CreateWallet completed",
				zap.String("service", serviceName),
				zap.String("method", "CreateWallet"),
				zap.String("address", res.Address),
				zap.String("wallet_id", res.WalletID),
				zap.Bool("existing", res.Existing),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.CreateWallet(ctx, identity)
}

// Address wraps the service method with logging
func (ls *logService) Address(ctx context.Context, code string) (address string, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("Address failed",
				zap.String("service", serviceName),
				zap.String("method", "Address"),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Address completed",
				zap.String("service", serviceName),
				zap.String("method", "Address"),
				zap.String("address", address),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Address(ctx, code)
}

// Balance wraps the service method with logging
func (ls *logService) Balance(ctx context.Context, code string) (res *wallet.BalanceResult, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("Balance failed",
				zap.String("service", serviceName),
				zap.String("method", "Balance"),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Balance completed",
				zap.String("service", serviceName),
				zap.String("method", "Balance"),
				zap.String("address", res.Address),
				zap.Uint64("lamports", res.Lamports),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Balance(ctx, code)
}

// Send wraps the service method with logging
func (ls *logService) Send(ctx context.Context, code, destination string, amount decimal.Decimal) (res *wallet.SendResult, err error) {
	start := time.Now()

	ls.logger.Info("Send started",
		zap.String("service", serviceName),
		zap.String("method", "Send"),
		zap.String("destination", destination),
		zap.String("amount", amount.String()),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("Send failed",
				zap.String("service", serviceName),
				zap.String("method", "Send"),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Send completed",
				zap.String("service", serviceName),
				zap.String("method", "Send"),
				zap.String("signature", res.Signature),
				zap.String("from", res.From),
				zap.String("to", res.To),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Send(ctx, code, destination, amount)
}

// SendWithShare wraps the service method with logging
func (ls *logService) SendWithShare(ctx context.Context, userShare, destination string, amount decimal.Decimal) (res *wallet.SendResult, err error) {
	start := time.Now()

	ls.logger.Info("SendWithShare started",
		zap.String("service", serviceName),
		zap.String("method", "SendWithShare"),
		zap.String("user_share", redactShare(userShare)),
		zap.String("destination", destination),
		zap.String("amount", amount.String()),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("SendWithShare failed",
				zap.String("service", serviceName),
				zap.String("method", "SendWithShare"),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("SendWithShare completed",
				zap.String("service", serviceName),
				zap.String("method", "SendWithShare"),
				zap.String("signature", res.Signature),
				zap.String("to", res.To),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.SendWithShare(ctx, userShare, destination, amount)
}

// HasProvisionedWallet wraps the service method with logging
func (ls *logService) HasProvisionedWallet(ctx context.Context, identity string) (held bool, err error) {
	defer func() {
		if err != nil {
			ls.logger.Error("HasProvisionedWallet failed",
				zap.String("service", serviceName),
				zap.String("method", "HasProvisionedWallet"),
				zap.String("identity", identity),
				zap.Error(err),
			)
		}
	}()

	return ls.svc.HasProvisionedWallet(ctx, identity)
}

// WalletCount wraps the service method with logging
func (ls *logService) WalletCount(ctx context.Context) (count int64, err error) {
	defer func() {
		if err != nil {
			ls.logger.Error("WalletCount failed",
				zap.String("service", serviceName),
				zap.String("method", "WalletCount"),
				zap.Error(err),
			)
		}
	}()

	return ls.svc.WalletCount(ctx)
}

// redactShare keeps a short prefix of a user share for correlation and
// masks the rest.
func redactShare(share string) string {
	if len(share) <= shareDisplaySize {
		return "***"
	}
	return share[:shareDisplaySize] + "..."
}
