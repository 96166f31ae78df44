package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceSnapshot represents the balance_snapshots table - a cached running
// total of posted and held per account, maintained transactionally alongside
// every journal/hold mutation. The journal is the ground truth; this row is
// an optimization and must always be reconstructible by replaying it
// (verified by the auditor binary). The row also serves as the per-account
// lock target for check-then-act sections.
type BalanceSnapshot struct {
	// AccountID is the account this snapshot caches
	AccountID uint64 `gorm:"column:account_id;primaryKey"`
	// Posted is the sum of the account's journal line amounts
	Posted decimal.Decimal `gorm:"column:posted;not null;type:numeric(38,18);default:0"`
	// Held is the sum of remaining_amount over the account's active holds
	Held decimal.Decimal `gorm:"column:held;not null;type:numeric(38,18);default:0"`
	// Version increments on every mutation touching this account
	Version int64 `gorm:"column:version;not null;default:0"`
	// UpdatedAt is the timestamp of the last mutation
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Account Account `gorm:"foreignKey:AccountID"`
}

// TableName specifies the table name for the BalanceSnapshot model
func (BalanceSnapshot) TableName() string {
	return "balance_snapshots"
}
