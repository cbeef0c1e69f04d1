// Package custody talks to the external wallet provisioning provider. The
// provider owns all key-share generation and splitting; this package only
// routes requests to it and carries opaque user shares back and forth.
package custody

import (
	"context"
	"encoding/base64"
	"fmt"
)

// signingKeySize is the ed25519 keypair material size the provider returns
// when a share is loaded (32-byte seed || 32-byte public key).
const signingKeySize = 64

// ProvisionedWallet is the provider's response to a wallet creation.
// UserShare is opaque to this system; it is the sole credential for the wallet.
type ProvisionedWallet struct {
	WalletID  string
	Address   string
	UserShare string
}

// SigningHandle is a reconstructed signing capability for one wallet,
// valid for the current request only.
type SigningHandle struct {
	signingKey []byte
	address    string
}

// NewSigningHandle builds a handle from provider-returned key material.
func NewSigningHandle(signingKey []byte, address string) (*SigningHandle, error) {
	if len(signingKey) != signingKeySize {
		return nil, fmt.Errorf("signing key must be %d bytes, got %d", signingKeySize, len(signingKey))
	}
	return &SigningHandle{signingKey: signingKey, address: address}, nil
}

// Address returns the wallet's base58 address. Empty when the provider could
// not derive one from the share.
func (h *SigningHandle) Address() string {
	return h.address
}

// SigningKey returns the raw ed25519 keypair material for transaction signing.
func (h *SigningHandle) SigningKey() []byte {
	return h.signingKey
}

// Client is the wallet provisioning contract this system requires from the
// provider. CreateWallet must only be called after HasWallet reported false;
// provider behavior for a duplicate create is undefined and not relied upon.
type Client interface {
	// HasWallet reports whether the provider already holds a pregenerated
	// wallet for the identity.
	HasWallet(ctx context.Context, identity string) (bool, error)
	// CreateWallet provisions a wallet for the identity and returns its
	// address together with the user share.
	CreateWallet(ctx context.Context, identity string) (*ProvisionedWallet, error)
	// LoadShare reconstructs signing capability from a previously issued share.
	LoadShare(ctx context.Context, userShare string) (*SigningHandle, error)
}

// decodeSigningKey decodes the provider's base64 signing key payload.
func decodeSigningKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signing key: %w", err)
	}
	return key, nil
}
