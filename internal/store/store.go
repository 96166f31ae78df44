package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/tradeforge/ledger-core/internal/domain"
	"github.com/tradeforge/ledger-core/internal/store/schema"
)

// LineInput is one signed posting applied to an account as part of an entry.
type LineInput struct {
	AccountID uint64
	AssetID   uint64
	Amount    decimal.Decimal
}

// PostEntryInput is the write model for a balanced journal entry.
type PostEntryInput struct {
	Type      domain.EntryType
	Reference *string
	Metadata  datatypes.JSON
	Lines     []LineInput
}

// Balance is the projected balance of one account.
type Balance struct {
	AccountID uint64          `json:"account_id"`
	Posted    decimal.Decimal `json:"posted"`
	Held      decimal.Decimal `json:"held"`
	Available decimal.Decimal `json:"available"`
}

// Store defines the interface for ledger database operations. Only the
// ledger engine calls the mutating methods; readers (projector, auditor,
// reporting) use the Get/List/Recompute methods.
type Store interface {
	// CreateAsset registers a new asset; (chain, symbol) must be unique
	CreateAsset(ctx context.Context, asset *schema.Asset) error
	// GetAssetByID retrieves an asset by its internal ID
	GetAssetByID(ctx context.Context, assetID uint64) (*schema.Asset, error)
	// GetAssetBySymbol retrieves an asset by its (chain, symbol) pair
	GetAssetBySymbol(ctx context.Context, chain domain.Chain, symbol string) (*schema.Asset, error)
	// ListAssets retrieves every registered asset
	ListAssets(ctx context.Context) ([]*schema.Asset, error)

	// EnsureAccount upserts the account for (owner, asset) and returns it
	EnsureAccount(ctx context.Context, owner domain.Owner, assetID uint64) (*schema.Account, error)
	// GetAccountByID retrieves an account by its internal ID
	GetAccountByID(ctx context.Context, accountID uint64) (*schema.Account, error)
	// ListAccountsByOwner retrieves every account owned by the given owner
	ListAccountsByOwner(ctx context.Context, owner domain.Owner) ([]*schema.Account, error)
	// ListAccounts pages through all accounts ordered by ID (audit read)
	ListAccounts(ctx context.Context, afterID uint64, limit int) ([]*schema.Account, error)
	// SetAccountStatus transitions an account between active and frozen
	SetAccountStatus(ctx context.Context, accountID uint64, status domain.AccountStatus) error

	// PostEntry atomically writes a balanced entry with its lines and
	// updates the affected balance snapshots
	PostEntry(ctx context.Context, input PostEntryInput) (*schema.JournalEntry, error)
	// GetEntryWithLines retrieves an entry and its lines by ID
	GetEntryWithLines(ctx context.Context, entryID uint64) (*schema.JournalEntry, error)
	// GetEntryByReference retrieves an entry by its (type, reference) key
	GetEntryByReference(ctx context.Context, entryType domain.EntryType, reference string) (*schema.JournalEntry, error)
	// ListEntries pages through entries with lines ordered by ID (audit read)
	ListEntries(ctx context.Context, afterID uint64, limit int) ([]*schema.JournalEntry, error)

	// CreateHold reserves amount against an account; the available check and
	// the insert happen in one transaction
	CreateHold(ctx context.Context, accountID uint64, amount decimal.Decimal, reason string) (*schema.Hold, error)
	// GetHoldByID retrieves a hold by its ID
	GetHoldByID(ctx context.Context, holdID uuid.UUID) (*schema.Hold, error)
	// ReleaseHold returns an active hold's remaining amount to available
	ReleaseHold(ctx context.Context, holdID uuid.UUID) (*schema.Hold, error)
	// ConsumeHold posts a balanced entry spending part or all of an active
	// hold and decrements its remaining amount in the same transaction
	ConsumeHold(ctx context.Context, holdID uuid.UUID, entry PostEntryInput) (*schema.JournalEntry, *schema.Hold, error)

	// GetBalance reads the snapshot-backed posted/held/available projection
	GetBalance(ctx context.Context, accountID uint64) (*Balance, error)
	// RecomputeBalance derives the projection from the journal and holds,
	// bypassing the snapshot cache (audit read)
	RecomputeBalance(ctx context.Context, accountID uint64) (*Balance, error)
}
