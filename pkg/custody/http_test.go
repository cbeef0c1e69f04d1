package custody

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(srv.URL, "test-api-key")
	require.NoError(t, err)
	return client
}

func TestNewHTTPClient_Validation(t *testing.T) {
	_, err := NewHTTPClient("", "key")
	assert.Error(t, err)

	_, err = NewHTTPClient("http://provider", "")
	assert.Error(t, err)
}

func TestHTTPClient_HasWallet(t *testing.T) {
	client := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/pregen-wallets/exists", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("X-API-Key"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		var q walletQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		assert.Equal(t, "+10000000001", q.Identifier)
		assert.Equal(t, "PHONE", q.IdentifierType)

		_ = json.NewEncoder(w).Encode(existsResponse{Exists: true})
	})

	exists, err := client.HasWallet(context.Background(), "+10000000001")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestHTTPClient_CreateWallet(t *testing.T) {
	client := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/pregen-wallets", r.URL.Path)
		_ = json.NewEncoder(w).Encode(createResponse{
			WalletID:  "w-1",
			Address:   "addr-1",
			UserShare: "share-1",
		})
	})

	provisioned, err := client.CreateWallet(context.Background(), "+10000000001")
	require.NoError(t, err)
	assert.Equal(t, "w-1", provisioned.WalletID)
	assert.Equal(t, "addr-1", provisioned.Address)
	assert.Equal(t, "share-1", provisioned.UserShare)
}

func TestHTTPClient_CreateWallet_IncompleteResponse(t *testing.T) {
	client := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(createResponse{WalletID: "w-1"})
	})

	_, err := client.CreateWallet(context.Background(), "+10000000001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete")
}

func TestHTTPClient_LoadShare(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	client := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/shares/load", r.URL.Path)

		var req loadShareRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "share-1", req.UserShare)

		_ = json.NewEncoder(w).Encode(loadShareResponse{
			SigningKey: base64.StdEncoding.EncodeToString(priv),
			Address:    "addr-1",
		})
	})

	handle, err := client.LoadShare(context.Background(), "share-1")
	require.NoError(t, err)
	assert.Equal(t, "addr-1", handle.Address())
	assert.Equal(t, []byte(priv), handle.SigningKey())
}

func TestHTTPClient_LoadShare_BadKeySize(t *testing.T) {
	client := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(loadShareResponse{
			SigningKey: base64.StdEncoding.EncodeToString([]byte("too-short")),
			Address:    "addr-1",
		})
	})

	_, err := client.LoadShare(context.Background(), "share-1")
	assert.Error(t, err)
}

func TestHTTPClient_ProviderError(t *testing.T) {
	client := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(providerError{Message: "identifier already has a wallet"})
	})

	_, err := client.CreateWallet(context.Background(), "+10000000001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identifier already has a wallet")
	assert.Contains(t, err.Error(), "422")
}

func TestHTTPClient_ProviderErrorWithoutBody(t *testing.T) {
	client := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.HasWallet(context.Background(), "+10000000001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
