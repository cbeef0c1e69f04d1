package walletstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/custodia-labs/solana-wallet-middleware/pkg/wallet"
)

// WalletDao is a data access object that maps directly to the 'wallets' table in PostgreSQL.
type WalletDao struct {
	bun.BaseModel  `bun:"table:wallets,alias:w"`
	ID             int64     `bun:"id,pk,autoincrement"`
	Identity       string    `bun:"identity,unique,notnull,type:varchar(64)"`
	Code           string    `bun:"code,unique,notnull,type:varchar(6)"`
	EncryptedShare string    `bun:"encrypted_share,notnull,type:text"`
	Address        string    `bun:"address,notnull,type:varchar(64)"`
	WalletID       *string   `bun:"wallet_id,type:varchar(255)"`
	CreatedAt      time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// toWalletDao converts a wallet.Record to WalletDao.
func toWalletDao(rec *wallet.Record) *WalletDao {
	dao := &WalletDao{
		Identity:       rec.Identity,
		Code:           rec.Code,
		EncryptedShare: rec.EncryptedShare,
		Address:        rec.Address,
		CreatedAt:      rec.CreatedAt,
	}
	if rec.WalletID != "" {
		dao.WalletID = &rec.WalletID
	}
	return dao
}

// toRecord converts a WalletDao to wallet.Record.
func toRecord(dao *WalletDao) *wallet.Record {
	rec := &wallet.Record{
		Identity:       dao.Identity,
		Code:           dao.Code,
		EncryptedShare: dao.EncryptedShare,
		Address:        dao.Address,
		CreatedAt:      dao.CreatedAt,
	}
	if dao.WalletID != nil {
		rec.WalletID = *dao.WalletID
	}
	return rec
}
