package schema

import (
	"time"

	"github.com/tradeforge/ledger-core/internal/domain"
)

// Asset represents the assets table - the canonical registry of fungible
// assets the ledger can account for. Rows are immutable once referenced by
// any account; disabling is the only supported change.
type Asset struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Chain identifies the network the asset lives on using CAIP-2 format, or "internal"
	Chain domain.Chain `gorm:"column:chain;not null;type:text;uniqueIndex:idx_assets_chain_symbol,priority:1"`
	// Symbol is the asset ticker (e.g. "USDT", "BTC")
	Symbol string `gorm:"column:symbol;not null;type:text;uniqueIndex:idx_assets_chain_symbol,priority:2"`
	// Decimals is the maximum number of fractional digits an amount of this asset may carry
	Decimals int32 `gorm:"column:decimals;not null"`
	// Enabled gates new accounts and entries; existing history stays readable when false
	Enabled bool `gorm:"column:enabled;not null;default:true"`
	// CreatedAt is the timestamp when the asset was registered
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Asset model
func (Asset) TableName() string {
	return "assets"
}
