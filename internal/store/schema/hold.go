package schema

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeforge/ledger-core/internal/domain"
)

// Hold represents the holds table - a reservation against an account that
// reduces available balance without moving posted balance. Lifecycle:
// active -> released (funds returned) or consumed (funds moved by a
// balanced entry). RemainingAmount only ever decreases.
type Hold struct {
	// ID is the external hold identifier handed to callers
	ID uuid.UUID `gorm:"column:id;primaryKey;type:uuid;default:gen_random_uuid()"`
	// AccountID references the account the reservation is against
	AccountID uint64 `gorm:"column:account_id;not null;index:idx_holds_account_status,priority:1"`
	// AssetID denormalizes the account's asset
	AssetID uint64 `gorm:"column:asset_id;not null"`
	// Amount is the originally reserved amount
	Amount decimal.Decimal `gorm:"column:amount;not null;type:numeric(38,18)"`
	// RemainingAmount starts equal to Amount and decreases on partial
	// consumption; zeroed on release or full consumption
	RemainingAmount decimal.Decimal `gorm:"column:remaining_amount;not null;type:numeric(38,18)"`
	// Reason is a short caller-supplied label (e.g. "withdrawal", "order")
	Reason string `gorm:"column:reason;not null;type:text"`
	// Status is active, released or consumed
	Status domain.HoldStatus `gorm:"column:status;not null;type:text;index:idx_holds_account_status,priority:2"`
	// CreatedAt is the timestamp when the hold was placed
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// ReleasedAt is set when the hold leaves the active state
	ReleasedAt *time.Time `gorm:"column:released_at;type:timestamptz"`

	// Associations
	Account Account `gorm:"foreignKey:AccountID"`
}

// TableName specifies the table name for the Hold model
func (Hold) TableName() string {
	return "holds"
}
