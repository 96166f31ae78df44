package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/tradeforge/ledger-core/internal/domain"
)

// JournalEntry represents the journal_entries table - one atomic, balanced
// group of journal lines describing a single economic event. Entries are
// append-only; normal operation never updates or deletes them.
type JournalEntry struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Type is the closed entry taxonomy (trade_settlement, withdrawal, ...)
	Type domain.EntryType `gorm:"column:type;not null;type:text;index:idx_journal_entries_type_reference,unique,where:reference IS NOT NULL,priority:1"`
	// Reference is an optional caller-supplied idempotency/correlation key,
	// unique per (type, reference) when present
	Reference *string `gorm:"column:reference;type:text;index:idx_journal_entries_type_reference,unique,where:reference IS NOT NULL,priority:2"`
	// Metadata is an opaque payload the ledger never inspects
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb"`
	// CreatedAt is the timestamp when the entry was posted
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`

	// Associations
	Lines []JournalLine `gorm:"foreignKey:EntryID"`
}

// TableName specifies the table name for the JournalEntry model
func (JournalEntry) TableName() string {
	return "journal_entries"
}
