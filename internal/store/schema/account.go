package schema

import (
	"time"

	"github.com/tradeforge/ledger-core/internal/domain"
)

// Account represents the accounts table - one ledger account per
// (owner, asset) pair. Accounts are created lazily on first use and are
// never deleted; tombstoned owners keep their accounts and history.
type Account struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// OwnerID references a real user or one of the reserved system owners
	OwnerID domain.Owner `gorm:"column:owner_id;not null;type:text;uniqueIndex:idx_accounts_owner_asset,priority:1"`
	// AssetID references the asset this account holds
	AssetID uint64 `gorm:"column:asset_id;not null;uniqueIndex:idx_accounts_owner_asset,priority:2"`
	// Status is active or frozen; frozen accounts reject debits and new holds
	Status domain.AccountStatus `gorm:"column:status;not null;type:text;default:'active'"`
	// CreatedAt is the timestamp when the account was first referenced
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`

	// Associations
	Asset Asset `gorm:"foreignKey:AssetID"`
}

// TableName specifies the table name for the Account model
func (Account) TableName() string {
	return "accounts"
}
