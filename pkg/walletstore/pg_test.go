package walletstore

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/solana-wallet-middleware/pkg/pgutil"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/wallet"
)

func setupPGStore(t *testing.T) (context.Context, *pgStore) {
	t.Helper()
	requireDockerAccess(t)

	ctx := context.Background()
	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	_, err := db.NewCreateTable().Model(&WalletDao{}).Exec(ctx)
	require.NoError(t, err)

	return ctx, NewPGStore(db)
}

func requireDockerAccess(t *testing.T) {
	t.Helper()

	candidates := []string{
		"/var/run/docker.sock",
		filepath.Join(os.Getenv("HOME"), ".docker/run/docker.sock"),
	}

	for _, sock := range candidates {
		if sock == "" {
			continue
		}
		if _, err := os.Stat(sock); err != nil {
			continue
		}
		conn, err := (&net.Dialer{}).DialContext(context.Background(), "unix", sock)
		if err == nil {
			_ = conn.Close()
			return
		}
	}

	t.Skip("docker daemon socket is not accessible; skipping testcontainer-backed registry tests")
}

func TestWalletPGStore_RegisterAndLookup(t *testing.T) {
	ctx, store := setupPGStore(t)

	rec := wallet.New("+10000000001", "123456", "sealed-share", "addr-1", "w-1")
	require.NoError(t, store.Register(ctx, rec))

	byCode, err := store.GetByCode(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, "sealed-share", byCode.EncryptedShare)
	assert.Equal(t, "w-1", byCode.WalletID)
	assert.False(t, byCode.CreatedAt.IsZero())

	byIdentity, err := store.GetByIdentity(ctx, "+10000000001")
	require.NoError(t, err)
	assert.Equal(t, "123456", byIdentity.Code)
}

func TestWalletPGStore_Constraints(t *testing.T) {
	ctx, store := setupPGStore(t)

	require.NoError(t, store.Register(ctx, wallet.New("+10000000001", "111111", "s1", "a1", "w1")))

	err := store.Register(ctx, wallet.New("+10000000001", "222222", "s2", "a2", "w2"))
	assert.ErrorIs(t, err, ErrIdentityExists)

	err = store.Register(ctx, wallet.New("+10000000002", "111111", "s2", "a2", "w2"))
	assert.ErrorIs(t, err, ErrCodeExists)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestWalletPGStore_LookupMisses(t *testing.T) {
	ctx, store := setupPGStore(t)

	_, err := store.GetByCode(ctx, "000000")
	assert.ErrorIs(t, err, ErrCodeNotFound)

	_, err = store.GetByIdentity(ctx, "+19999999999")
	assert.ErrorIs(t, err, ErrIdentityNotFound)
}

func TestWalletPGStore_IssueCode(t *testing.T) {
	ctx, store := setupPGStore(t)

	code, err := store.IssueCode(ctx)
	require.NoError(t, err)
	assert.Regexp(t, codeFormat, code)
}

func TestWalletPGStore_EmptyWalletID(t *testing.T) {
	ctx, store := setupPGStore(t)

	require.NoError(t, store.Register(ctx, wallet.New("+10000000003", "333333", "s3", "a3", "")))

	rec, err := store.GetByCode(ctx, "333333")
	require.NoError(t, err)
	assert.Empty(t, rec.WalletID)
}
