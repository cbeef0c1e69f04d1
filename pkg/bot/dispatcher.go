// Package bot implements the Telegram chat surface: command parsing,
// response formatting, and the long-polling update loop.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/custodia-labs/solana-wallet-middleware/pkg/app/errors"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/solana"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/wallet/service"
)

const helpText = `🪙 Solana Wallet Bot

Commands:
/createwallet <phone> — create a wallet for a phone number
/myaddress <code> — show your wallet address
/balance <code> — show your wallet balance
/send <code> <receiver> <amount> — send SOL to an address

Examples:
/createwallet +10000000001
/send 123456 7Np41oeYqPefeNQEHSv1UDhYrehxin3NStELsSKCT4K2 0.1

⚠️ Keep your wallet code secret. Anyone who knows it can spend your funds.`

const (
	usageCreateWallet = "Usage: /createwallet <phone>"
	usageMyAddress    = "Usage: /myaddress <code>"
	usageBalance      = "Usage: /balance <code>"
	usageSend         = "Usage: /send <code> <receiver> <amount>"

	unknownCommandText = "Unknown command. Send /help to see what I can do."
	internalErrorText  = "Something went wrong, please try again later."
)

// Dispatcher parses chat commands and formats replies. It is independent of
// the Telegram transport so command handling can be tested directly.
type Dispatcher struct {
	svc     service.Service
	cluster string
	logger  *zap.Logger
}

// NewDispatcher creates a command dispatcher. cluster is used for explorer
// links in transfer replies.
func NewDispatcher(svc service.Service, cluster string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		svc:     svc,
		cluster: cluster,
		logger:  logger,
	}
}

// Dispatch handles one inbound message. reply is invoked for each outbound
// message in order; long-running commands send a progress message first.
// Command keywords are case-sensitive and arguments are whitespace-split.
func (d *Dispatcher) Dispatch(ctx context.Context, text string, reply func(string)) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "/start", "/help":
		reply(helpText)
	case "/createwallet":
		d.createWallet(ctx, fields[1:], reply)
	case "/myaddress":
		d.myAddress(ctx, fields[1:], reply)
	case "/balance":
		d.balance(ctx, fields[1:], reply)
	case "/send":
		d.send(ctx, fields[1:], reply)
	default:
		reply(unknownCommandText)
	}
}

func (d *Dispatcher) createWallet(ctx context.Context, args []string, reply func(string)) {
	if len(args) != 1 {
		reply(usageCreateWallet)
		return
	}
	identity := args[0]

	reply("Creating your wallet… ⏳")

	res, err := d.svc.CreateWallet(ctx, identity)
	if err != nil {
		reply(errorText(err))
		return
	}

	if res.Existing {
		reply(fmt.Sprintf(
			"A wallet already exists for %s.\n🔑 Wallet code: %s\n📬 Address: %s",
			res.Identity, res.Code, res.Address))
		return
	}

	reply(fmt.Sprintf(
		"✅ Wallet created for %s!\n\n🔑 Wallet code: %s\n📬 Address: %s\n\n"+
			"Use the code with /myaddress, /balance and /send, e.g.\n/balance %s\n\n"+
			"⚠️ Keep your wallet code secret. Anyone who knows it can spend your funds.",
		res.Identity, res.Code, res.Address, res.Code))
}

func (d *Dispatcher) myAddress(ctx context.Context, args []string, reply func(string)) {
	if len(args) != 1 {
		reply(usageMyAddress)
		return
	}

	address, err := d.svc.Address(ctx, args[0])
	if err != nil {
		reply(errorText(err))
		return
	}
	reply(fmt.Sprintf("📬 Your wallet address:\n%s", address))
}

func (d *Dispatcher) balance(ctx context.Context, args []string, reply func(string)) {
	if len(args) != 1 {
		reply(usageBalance)
		return
	}

	res, err := d.svc.Balance(ctx, args[0])
	if err != nil {
		reply(errorText(err))
		return
	}
	reply(fmt.Sprintf("💰 Balance: %s SOL\n📬 Address: %s", res.SOL.String(), res.Address))
}

func (d *Dispatcher) send(ctx context.Context, args []string, reply func(string)) {
	if len(args) != 3 {
		reply(usageSend)
		return
	}
	code, destination := args[0], args[1]

	amount, err := decimal.NewFromString(args[2])
	if err != nil {
		reply("Invalid amount. Use a positive number, e.g. 0.1")
		return
	}

	reply("Processing transaction… ⏳")

	res, err := d.svc.Send(ctx, code, destination, amount)
	if err != nil {
		reply(errorText(err))
		return
	}

	reply(fmt.Sprintf(
		"✅ Sent %s SOL\nFrom: %s\nTo: %s\n\nSignature: %s\n%s",
		res.Amount.String(), res.From, res.To, res.Signature,
		solana.ExplorerTxURL(d.cluster, res.Signature)))
}

// errorText converts a service error into user-facing chat text. Internal
// failures are masked; categorized errors surface their message.
func errorText(err error) string {
	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) && svcErr.Category != apperrors.CategoryGeneralError {
		return "❌ " + svcErr.Message
	}
	return "❌ " + internalErrorText
}
