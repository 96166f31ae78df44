package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryLineEvent is one line of a posted entry as seen by downstream
// consumers.
type EntryLineEvent struct {
	AccountID uint64          `json:"account_id"`
	AssetID   uint64          `json:"asset_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// EntryPostedEvent is published after a journal entry commits. It is a
// notification for reporting and reconciliation consumers, never a second
// source of truth; the journal row is authoritative.
type EntryPostedEvent struct {
	EntryID   uint64           `json:"entry_id"`
	Type      EntryType        `json:"type"`
	Reference *string          `json:"reference,omitempty"`
	Lines     []EntryLineEvent `json:"lines"`
	CreatedAt time.Time        `json:"created_at"`
}
