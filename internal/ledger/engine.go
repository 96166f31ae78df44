package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradeforge/ledger-core/internal/domain"
	"github.com/tradeforge/ledger-core/internal/logger"
	"github.com/tradeforge/ledger-core/internal/messaging"
	"github.com/tradeforge/ledger-core/internal/store"
	"github.com/tradeforge/ledger-core/internal/store/schema"
)

const (
	maxAssetDecimals = 18
	maxEntryPageSize = 200
)

// Engine is the ledger orchestrator: the only mutation path for journal
// entries and holds. External callers (settlement, withdrawal flow, admin
// tooling) go through it; readers may use the Projector directly.
type Engine struct {
	store     store.Store
	publisher messaging.Publisher

	conflictRetries   uint64
	conflictRetryBase time.Duration
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithPublisher wires a post-commit event publisher. Publishing is
// best-effort; failures are logged and never fail the operation.
func WithPublisher(p messaging.Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithConflictRetry bounds internal retries on transient storage conflicts.
func WithConflictRetry(retries uint64, base time.Duration) Option {
	return func(e *Engine) {
		e.conflictRetries = retries
		e.conflictRetryBase = base
	}
}

// New creates a new ledger engine backed by the given store.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:             s,
		conflictRetries:   3,
		conflictRetryBase: 25 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// withConflictRetry runs op, retrying with exponential backoff while it
// fails with a transient storage conflict. Everything else surfaces
// immediately.
func (e *Engine) withConflictRetry(ctx context.Context, op func() error) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = e.conflictRetryBase

	bo := backoff.WithContext(backoff.WithMaxRetries(expo, e.conflictRetries), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
}

// ---------------------------------------------------------------------------
// Asset registry
// ---------------------------------------------------------------------------

// CreateAsset registers a new asset in the registry.
func (e *Engine) CreateAsset(ctx context.Context, chain domain.Chain, symbol string, decimals int32) (*schema.Asset, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is empty", domain.ErrInvalidInput)
	}
	if decimals < 0 || decimals > maxAssetDecimals {
		return nil, fmt.Errorf("%w: decimals must be between 0 and %d", domain.ErrInvalidInput, maxAssetDecimals)
	}

	asset := &schema.Asset{
		Chain:    chain,
		Symbol:   symbol,
		Decimals: decimals,
		Enabled:  true,
	}
	if err := e.store.CreateAsset(ctx, asset); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Registered asset",
		zap.Uint64("asset_id", asset.ID),
		zap.String("chain", string(chain)),
		zap.String("symbol", symbol),
	)
	return asset, nil
}

// GetAsset retrieves an asset by ID.
func (e *Engine) GetAsset(ctx context.Context, assetID uint64) (*schema.Asset, error) {
	asset, err := e.store.GetAssetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: asset %d", domain.ErrUnknownAsset, assetID)
	}
	return asset, nil
}

// ListAssets retrieves every registered asset.
func (e *Engine) ListAssets(ctx context.Context) ([]*schema.Asset, error) {
	return e.store.ListAssets(ctx)
}

// ---------------------------------------------------------------------------
// Account directory
// ---------------------------------------------------------------------------

// EnsureAccount idempotently creates the account for (owner, asset).
func (e *Engine) EnsureAccount(ctx context.Context, owner domain.Owner, assetID uint64) (*schema.Account, error) {
	if err := domain.ValidateOwner(owner); err != nil {
		return nil, err
	}

	asset, err := e.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !asset.Enabled {
		return nil, fmt.Errorf("%w: asset %d", domain.ErrAssetDisabled, assetID)
	}

	return e.store.EnsureAccount(ctx, owner, assetID)
}

// GetAccount retrieves an account by ID.
func (e *Engine) GetAccount(ctx context.Context, accountID uint64) (*schema.Account, error) {
	account, err := e.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account %d", domain.ErrUnknownAccount, accountID)
	}
	return account, nil
}

// FreezeAccount blocks debits and new holds on an account. Credits still
// post so in-flight settlements can complete.
func (e *Engine) FreezeAccount(ctx context.Context, accountID uint64) error {
	return e.store.SetAccountStatus(ctx, accountID, domain.AccountStatusFrozen)
}

// UnfreezeAccount returns a frozen account to active.
func (e *Engine) UnfreezeAccount(ctx context.Context, accountID uint64) error {
	return e.store.SetAccountStatus(ctx, accountID, domain.AccountStatusActive)
}

// ---------------------------------------------------------------------------
// Journal
// ---------------------------------------------------------------------------

// PostEntry validates and posts one balanced journal entry. This is the only
// way balance-changing records enter the system.
func (e *Engine) PostEntry(ctx context.Context, input store.PostEntryInput) (*schema.JournalEntry, error) {
	if err := e.validateForPosting(ctx, &input); err != nil {
		return nil, err
	}

	var entry *schema.JournalEntry
	err := e.withConflictRetry(ctx, func() error {
		var opErr error
		entry, opErr = e.store.PostEntry(ctx, input)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Posted journal entry",
		zap.Uint64("entry_id", entry.ID),
		zap.String("type", string(entry.Type)),
		zap.Int("lines", len(entry.Lines)),
	)
	e.publishEntry(ctx, entry)

	return entry, nil
}

// Entry retrieves an entry with its lines (audit read).
func (e *Engine) Entry(ctx context.Context, entryID uint64) (*schema.JournalEntry, error) {
	entry, err := e.store.GetEntryWithLines(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: entry %d", domain.ErrEntryNotFound, entryID)
	}
	return entry, nil
}

// Entries pages through the journal in ascending ID order.
func (e *Engine) Entries(ctx context.Context, afterID uint64, limit int) ([]*schema.JournalEntry, error) {
	if limit <= 0 || limit > maxEntryPageSize {
		limit = maxEntryPageSize
	}
	return e.store.ListEntries(ctx, afterID, limit)
}

// EntryByReference resolves the entry a DuplicateReference points at, so
// callers can treat the duplicate as success-already-happened.
func (e *Engine) EntryByReference(ctx context.Context, entryType domain.EntryType, reference string) (*schema.JournalEntry, error) {
	entry, err := e.store.GetEntryByReference(ctx, entryType, reference)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrEntryNotFound, entryType, reference)
	}
	return entry, nil
}

// validateForPosting runs the pure input checks plus the asset registry
// checks (existence, enabled flag, precision). Account checks stay inside
// the store transaction where they are race-free.
func (e *Engine) validateForPosting(ctx context.Context, input *store.PostEntryInput) error {
	if input.Reference != nil && strings.TrimSpace(*input.Reference) == "" {
		input.Reference = nil
	}

	if err := ValidateEntryInput(*input); err != nil {
		return err
	}

	decimalsByAsset := make(map[uint64]int32)
	for _, assetID := range LineAssetIDs(input.Lines) {
		asset, err := e.store.GetAssetByID(ctx, assetID)
		if err != nil {
			return err
		}
		if asset == nil {
			return fmt.Errorf("%w: asset %d", domain.ErrUnknownAsset, assetID)
		}
		if !asset.Enabled {
			return fmt.Errorf("%w: asset %d", domain.ErrAssetDisabled, assetID)
		}
		decimalsByAsset[assetID] = asset.Decimals
	}

	for _, line := range input.Lines {
		if err := CheckPrecision(line.Amount, decimalsByAsset[line.AssetID]); err != nil {
			return err
		}
	}

	return nil
}

// publishEntry emits the post-commit event. Best-effort: the entry is
// already durable, so a broker failure only costs the notification.
func (e *Engine) publishEntry(ctx context.Context, entry *schema.JournalEntry) {
	if e.publisher == nil {
		return
	}

	event := &domain.EntryPostedEvent{
		EntryID:   entry.ID,
		Type:      entry.Type,
		Reference: entry.Reference,
		CreatedAt: entry.CreatedAt,
	}
	for _, line := range entry.Lines {
		event.Lines = append(event.Lines, domain.EntryLineEvent{
			AccountID: line.AccountID,
			AssetID:   line.AssetID,
			Amount:    line.Amount,
		})
	}

	if err := e.publisher.PublishEntryPosted(ctx, event); err != nil {
		logger.WarnCtx(ctx, "Failed to publish entry event",
			zap.Uint64("entry_id", entry.ID),
			zap.Error(err),
		)
	}
}

// ---------------------------------------------------------------------------
// Holds
// ---------------------------------------------------------------------------

// CreateHold reserves amount against an account ahead of an asynchronous
// settlement (withdrawal broadcast, order resting in the book).
func (e *Engine) CreateHold(ctx context.Context, accountID uint64, amount decimal.Decimal, reason string) (*schema.Hold, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: hold amount must be positive, got %s", domain.ErrInvalidAmount, amount)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: hold reason is empty", domain.ErrInvalidInput)
	}

	account, err := e.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	asset, err := e.GetAsset(ctx, account.AssetID)
	if err != nil {
		return nil, err
	}
	if err := CheckPrecision(amount, asset.Decimals); err != nil {
		return nil, err
	}

	var hold *schema.Hold
	err = e.withConflictRetry(ctx, func() error {
		var opErr error
		hold, opErr = e.store.CreateHold(ctx, accountID, amount, reason)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Created hold",
		zap.String("hold_id", hold.ID.String()),
		zap.Uint64("account_id", accountID),
		zap.String("amount", amount.String()),
		zap.String("reason", reason),
	)
	return hold, nil
}

// GetHold retrieves a hold by ID.
func (e *Engine) GetHold(ctx context.Context, holdID uuid.UUID) (*schema.Hold, error) {
	hold, err := e.store.GetHoldByID(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrHoldNotFound, holdID)
	}
	return hold, nil
}

// ReleaseHold returns an active hold's remaining amount to available with
// no journal movement.
func (e *Engine) ReleaseHold(ctx context.Context, holdID uuid.UUID) (*schema.Hold, error) {
	var hold *schema.Hold
	err := e.withConflictRetry(ctx, func() error {
		var opErr error
		hold, opErr = e.store.ReleaseHold(ctx, holdID)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Released hold",
		zap.String("hold_id", holdID.String()),
		zap.Uint64("account_id", hold.AccountID),
	)
	return hold, nil
}

// ConsumeHold settles part or all of an active hold by posting a balanced
// entry that debits the held account. Partial fills leave the hold active
// with a reduced remaining amount.
func (e *Engine) ConsumeHold(ctx context.Context, holdID uuid.UUID, input store.PostEntryInput) (*schema.JournalEntry, *schema.Hold, error) {
	if err := e.validateForPosting(ctx, &input); err != nil {
		return nil, nil, err
	}

	var (
		entry *schema.JournalEntry
		hold  *schema.Hold
	)
	err := e.withConflictRetry(ctx, func() error {
		var opErr error
		entry, hold, opErr = e.store.ConsumeHold(ctx, holdID, input)
		return opErr
	})
	if err != nil {
		return nil, nil, err
	}

	logger.InfoCtx(ctx, "Consumed hold",
		zap.String("hold_id", holdID.String()),
		zap.Uint64("entry_id", entry.ID),
		zap.String("remaining", hold.RemainingAmount.String()),
		zap.String("status", string(hold.Status)),
	)
	e.publishEntry(ctx, entry)

	return entry, hold, nil
}

// ---------------------------------------------------------------------------
// Balance read path
// ---------------------------------------------------------------------------

// Balance returns the posted/held/available projection for an account.
func (e *Engine) Balance(ctx context.Context, accountID uint64) (*store.Balance, error) {
	return e.store.GetBalance(ctx, accountID)
}
