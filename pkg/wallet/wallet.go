// Package wallet holds the domain model for phone-keyed custodial wallets.
package wallet

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Record is a provisioned wallet as held by the credential registry.
// EncryptedShare is the provider-issued user share sealed by the share cipher;
// whoever holds the plaintext share can sign for the wallet.
type Record struct {
	Identity       string // external identifier, e.g. "+10000000001"
	Code           string // 6-digit credential code
	EncryptedShare string
	Address        string // base58 Solana address
	WalletID       string // provider-assigned wallet id
	CreatedAt      time.Time
}

// New creates a registry Record from provisioning results.
func New(identity, code, encryptedShare, address, walletID string) *Record {
	return &Record{
		Identity:       identity,
		Code:           code,
		EncryptedShare: encryptedShare,
		Address:        address,
		WalletID:       walletID,
		CreatedAt:      time.Now(),
	}
}

// CreateResult is the outcome of a wallet-creation request.
// Existing is true when the identity already had a code issued; in that case
// Code is the previously issued code and no provisioning call was made.
type CreateResult struct {
	Identity  string
	Code      string
	Address   string
	WalletID  string
	UserShare string // plaintext share, returned to the caller exactly once
	Existing  bool
}

// BalanceResult is the outcome of a balance query.
type BalanceResult struct {
	Address  string
	Lamports uint64
	SOL      decimal.Decimal
}

// SendResult is the outcome of a transfer submission.
type SendResult struct {
	Signature string
	From      string
	To        string
	Amount    decimal.Decimal
}

// CreateRequest is the POST /create body.
type CreateRequest struct {
	Number string `json:"number" validate:"required"`
}

// CreateResponse is the POST /create body on success. Status is "Ok" for a
// fresh wallet and "Exists" when the number already had one; the share is only
// returned on fresh creation.
type CreateResponse struct {
	Status    string `json:"status"`
	Code      string `json:"code"`
	WalletID  string `json:"walletId,omitempty"`
	Pubkey    string `json:"pubkey"`
	UserShare string `json:"userShare,omitempty"`
}

// SignRequest is the POST /sign body. Amount is in whole SOL.
type SignRequest struct {
	Number    string      `json:"number" validate:"required"`
	UserShare string      `json:"userShare" validate:"required"`
	Receiver  string      `json:"receiver" validate:"required"`
	Amount    json.Number `json:"amount" validate:"required"`
}

// SignResponse is the POST /sign body.
type SignResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Sig     string `json:"sig,omitempty"`
}
