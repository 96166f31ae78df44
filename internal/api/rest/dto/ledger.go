package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradeforge/ledger-core/internal/store"
	"github.com/tradeforge/ledger-core/internal/store/schema"
)

// CreateAssetRequest registers a new asset
type CreateAssetRequest struct {
	Chain    string `json:"chain" binding:"required"`
	Symbol   string `json:"symbol" binding:"required"`
	Decimals int32  `json:"decimals"`
}

// EnsureAccountRequest lazily creates the account for (owner, asset)
type EnsureAccountRequest struct {
	Owner   string `json:"owner" binding:"required"`
	AssetID uint64 `json:"asset_id" binding:"required"`
}

// EntryLineRequest is one signed posting of an entry
type EntryLineRequest struct {
	AccountID uint64          `json:"account_id" binding:"required"`
	AssetID   uint64          `json:"asset_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
}

// PostEntryRequest posts one balanced journal entry
type PostEntryRequest struct {
	Type      string             `json:"type" binding:"required"`
	Reference *string            `json:"reference,omitempty"`
	Metadata  json.RawMessage    `json:"metadata,omitempty"`
	Lines     []EntryLineRequest `json:"lines" binding:"required"`
}

// CreateHoldRequest reserves amount against an account
type CreateHoldRequest struct {
	AccountID uint64          `json:"account_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reason    string          `json:"reason" binding:"required"`
}

// ConsumeHoldRequest settles part or all of a hold with a balanced entry
type ConsumeHoldRequest struct {
	Entry PostEntryRequest `json:"entry" binding:"required"`
}

// AdjustRequest sets an account's posted balance to a target value
type AdjustRequest struct {
	AccountID    uint64          `json:"account_id" binding:"required"`
	Target       decimal.Decimal `json:"target"`
	Counterparty string          `json:"counterparty" binding:"required"`
	Reference    string          `json:"reference" binding:"required"`
}

// ZeroOutOwnerRequest zeroes every account of an owner and freezes them
type ZeroOutOwnerRequest struct {
	Owner     string `json:"owner" binding:"required"`
	Reference string `json:"reference" binding:"required"`
}

// AssetResponse is the API representation of an asset
type AssetResponse struct {
	ID        uint64    `json:"id"`
	Chain     string    `json:"chain"`
	Symbol    string    `json:"symbol"`
	Decimals  int32     `json:"decimals"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountResponse is the API representation of an account
type AccountResponse struct {
	ID        uint64    `json:"id"`
	Owner     string    `json:"owner"`
	AssetID   uint64    `json:"asset_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// BalanceResponse is the projected balance of an account
type BalanceResponse struct {
	AccountID uint64          `json:"account_id"`
	Posted    decimal.Decimal `json:"posted"`
	Held      decimal.Decimal `json:"held"`
	Available decimal.Decimal `json:"available"`
}

// EntryLineResponse is one line of a journal entry
type EntryLineResponse struct {
	ID        uint64          `json:"id"`
	AccountID uint64          `json:"account_id"`
	AssetID   uint64          `json:"asset_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// EntryResponse is the API representation of a journal entry
type EntryResponse struct {
	ID        uint64              `json:"id"`
	Type      string              `json:"type"`
	Reference *string             `json:"reference,omitempty"`
	Metadata  json.RawMessage     `json:"metadata,omitempty"`
	Lines     []EntryLineResponse `json:"lines"`
	CreatedAt time.Time           `json:"created_at"`
}

// HoldResponse is the API representation of a hold
type HoldResponse struct {
	ID              string          `json:"id"`
	AccountID       uint64          `json:"account_id"`
	AssetID         uint64          `json:"asset_id"`
	Amount          decimal.Decimal `json:"amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Reason          string          `json:"reason"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	ReleasedAt      *time.Time      `json:"released_at,omitempty"`
}

// ConsumeHoldResponse bundles the settlement entry with the updated hold
type ConsumeHoldResponse struct {
	Entry *EntryResponse `json:"entry"`
	Hold  *HoldResponse  `json:"hold"`
}

// FromAsset maps a schema asset to its API representation
func FromAsset(asset *schema.Asset) *AssetResponse {
	return &AssetResponse{
		ID:        asset.ID,
		Chain:     string(asset.Chain),
		Symbol:    asset.Symbol,
		Decimals:  asset.Decimals,
		Enabled:   asset.Enabled,
		CreatedAt: asset.CreatedAt,
	}
}

// FromAccount maps a schema account to its API representation
func FromAccount(account *schema.Account) *AccountResponse {
	return &AccountResponse{
		ID:        account.ID,
		Owner:     string(account.OwnerID),
		AssetID:   account.AssetID,
		Status:    string(account.Status),
		CreatedAt: account.CreatedAt,
	}
}

// FromBalance maps a store balance to its API representation
func FromBalance(balance *store.Balance) *BalanceResponse {
	return &BalanceResponse{
		AccountID: balance.AccountID,
		Posted:    balance.Posted,
		Held:      balance.Held,
		Available: balance.Available,
	}
}

// FromEntry maps a schema entry with lines to its API representation
func FromEntry(entry *schema.JournalEntry) *EntryResponse {
	response := &EntryResponse{
		ID:        entry.ID,
		Type:      string(entry.Type),
		Reference: entry.Reference,
		Metadata:  json.RawMessage(entry.Metadata),
		Lines:     make([]EntryLineResponse, 0, len(entry.Lines)),
		CreatedAt: entry.CreatedAt,
	}
	for _, line := range entry.Lines {
		response.Lines = append(response.Lines, EntryLineResponse{
			ID:        line.ID,
			AccountID: line.AccountID,
			AssetID:   line.AssetID,
			Amount:    line.Amount,
		})
	}
	return response
}

// FromHold maps a schema hold to its API representation
func FromHold(hold *schema.Hold) *HoldResponse {
	return &HoldResponse{
		ID:              hold.ID.String(),
		AccountID:       hold.AccountID,
		AssetID:         hold.AssetID,
		Amount:          hold.Amount,
		RemainingAmount: hold.RemainingAmount,
		Reason:          hold.Reason,
		Status:          string(hold.Status),
		CreatedAt:       hold.CreatedAt,
		ReleasedAt:      hold.ReleasedAt,
	}
}
