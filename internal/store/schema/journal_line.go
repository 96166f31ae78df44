package schema

import (
	"github.com/shopspring/decimal"
)

// JournalLine represents the journal_lines table - a signed amount applied
// to one account as part of a balanced entry. Lines are immutable and are
// never deleted individually; posted balance is the sum of a given account's
// line amounts.
type JournalLine struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// EntryID references the entry this line belongs to
	EntryID uint64 `gorm:"column:entry_id;not null;index"`
	// AccountID references the account the amount applies to
	AccountID uint64 `gorm:"column:account_id;not null;index:idx_journal_lines_account"`
	// AssetID denormalizes the account's asset for per-asset balance checks
	AssetID uint64 `gorm:"column:asset_id;not null"`
	// Amount is a signed fixed-point decimal; positive credits, negative debits
	Amount decimal.Decimal `gorm:"column:amount;not null;type:numeric(38,18)"`

	// Associations
	Entry   JournalEntry `gorm:"foreignKey:EntryID"`
	Account Account      `gorm:"foreignKey:AccountID"`
}

// TableName specifies the table name for the JournalLine model
func (JournalLine) TableName() string {
	return "journal_lines"
}
