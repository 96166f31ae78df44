package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradeforge/ledger-core/internal/domain"
	"github.com/tradeforge/ledger-core/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults:
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// translateError maps low-level Postgres errors onto the ledger taxonomy.
// Serialization failures and deadlocks become ErrStorageConflict so the
// engine can retry; a unique violation on the idempotency index becomes
// ErrDuplicateReference (backstop for the race two concurrent posters lose).
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", domain.ErrStorageConflict, pgErr.Code)
		case "23505": // unique_violation
			if pgErr.ConstraintName == "idx_journal_entries_type_reference" {
				return domain.ErrDuplicateReference
			}
		}
	}

	return err
}

// ---------------------------------------------------------------------------
// Assets
// ---------------------------------------------------------------------------

// CreateAsset registers a new asset
func (s *pgStore) CreateAsset(ctx context.Context, asset *schema.Asset) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(asset).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", translateError(err))
	}
	return nil
}

// GetAssetByID retrieves an asset by its internal ID
func (s *pgStore) GetAssetByID(ctx context.Context, assetID uint64) (*schema.Asset, error) {
	var asset schema.Asset
	err := s.db.WithContext(ctx).Where("id = ?", assetID).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return &asset, nil
}

// GetAssetBySymbol retrieves an asset by its (chain, symbol) pair
func (s *pgStore) GetAssetBySymbol(ctx context.Context, chain domain.Chain, symbol string) (*schema.Asset, error) {
	var asset schema.Asset
	err := s.db.WithContext(ctx).
		Where("chain = ? AND symbol = ?", string(chain), symbol).
		First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get asset by symbol: %w", err)
	}
	return &asset, nil
}

// ListAssets retrieves every registered asset
func (s *pgStore) ListAssets(ctx context.Context) ([]*schema.Asset, error) {
	var assets []*schema.Asset
	err := s.db.WithContext(ctx).Order("id").Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, nil
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

// EnsureAccount upserts the account for (owner, asset) and returns it.
// The matching balance snapshot row is created alongside so later mutations
// always have a lock target.
func (s *pgStore) EnsureAccount(ctx context.Context, owner domain.Owner, assetID uint64) (*schema.Account, error) {
	var account schema.Account

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var asset schema.Asset
		if err := tx.Where("id = ?", assetID).First(&asset).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: asset %d", domain.ErrUnknownAsset, assetID)
			}
			return fmt.Errorf("failed to get asset: %w", err)
		}

		account = schema.Account{
			OwnerID: owner,
			AssetID: assetID,
			Status:  domain.AccountStatusActive,
		}

		// ON CONFLICT DO NOTHING on (owner_id, asset_id); ID stays 0 when
		// the account already existed
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "asset_id"}},
			DoNothing: true,
		}).Clauses(clause.Returning{Columns: []clause.Column{}}).
			Create(&account).Error; err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}

		if account.ID == 0 {
			if err := tx.Where("owner_id = ? AND asset_id = ?", string(owner), assetID).
				First(&account).Error; err != nil {
				return fmt.Errorf("failed to get existing account: %w", err)
			}
		}

		snapshot := schema.BalanceSnapshot{AccountID: account.ID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoNothing: true,
		}).Create(&snapshot).Error; err != nil {
			return fmt.Errorf("failed to create balance snapshot: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &account, nil
}

// GetAccountByID retrieves an account by its internal ID
func (s *pgStore) GetAccountByID(ctx context.Context, accountID uint64) (*schema.Account, error) {
	var account schema.Account
	err := s.db.WithContext(ctx).Where("id = ?", accountID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// ListAccountsByOwner retrieves every account owned by the given owner
func (s *pgStore) ListAccountsByOwner(ctx context.Context, owner domain.Owner) ([]*schema.Account, error) {
	var accounts []*schema.Account
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", string(owner)).
		Order("id").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts by owner: %w", err)
	}
	return accounts, nil
}

// ListAccounts pages through all accounts ordered by ID
func (s *pgStore) ListAccounts(ctx context.Context, afterID uint64, limit int) ([]*schema.Account, error) {
	var accounts []*schema.Account
	err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id").
		Limit(limit).
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// SetAccountStatus transitions an account between active and frozen
func (s *pgStore) SetAccountStatus(ctx context.Context, accountID uint64, status domain.AccountStatus) error {
	result := s.db.WithContext(ctx).
		Model(&schema.Account{}).
		Where("id = ?", accountID).
		Update("status", string(status))
	if result.Error != nil {
		return fmt.Errorf("failed to set account status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: account %d", domain.ErrUnknownAccount, accountID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Journal
// ---------------------------------------------------------------------------

// lockSnapshots locks the balance snapshot rows of the given accounts with
// SELECT ... FOR UPDATE in ascending account ID order. Consistent lock
// ordering is what keeps concurrent multi-account entries deadlock-free.
func lockSnapshots(tx *gorm.DB, accountIDs []uint64) (map[uint64]*schema.BalanceSnapshot, error) {
	ids := make([]uint64, len(accountIDs))
	copy(ids, accountIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var rows []*schema.BalanceSnapshot
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id IN ?", ids).
		Order("account_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock balance snapshots: %w", err)
	}

	snapshots := make(map[uint64]*schema.BalanceSnapshot, len(rows))
	for _, row := range rows {
		snapshots[row.AccountID] = row
	}
	for _, id := range ids {
		if _, ok := snapshots[id]; !ok {
			return nil, fmt.Errorf("%w: account %d", domain.ErrUnknownAccount, id)
		}
	}

	return snapshots, nil
}

// postEntryTx validates and writes one balanced entry inside an open
// transaction. holdAllowance credits back held funds being consumed in the
// same transaction, so spending out of a hold does not trip the available
// check it already passed at reservation time.
func postEntryTx(tx *gorm.DB, input PostEntryInput, holdAllowance map[uint64]decimal.Decimal) (*schema.JournalEntry, error) {
	if len(input.Lines) < 2 {
		return nil, fmt.Errorf("%w: entry requires at least 2 lines, got %d", domain.ErrInvalidInput, len(input.Lines))
	}

	// Idempotency guard: a prior entry with the same (type, reference) makes
	// this call a detectable no-op. The partial unique index catches the
	// race where two posters pass this check concurrently.
	if input.Reference != nil && *input.Reference != "" {
		var count int64
		err := tx.Model(&schema.JournalEntry{}).
			Where("type = ? AND reference = ?", string(input.Type), *input.Reference).
			Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check entry reference: %w", err)
		}
		if count > 0 {
			return nil, domain.ErrDuplicateReference
		}
	}

	// Per-asset zero-sum check and per-account net deltas
	assetSums := make(map[uint64]decimal.Decimal)
	accountDeltas := make(map[uint64]decimal.Decimal)
	for _, line := range input.Lines {
		if line.Amount.IsZero() {
			return nil, fmt.Errorf("%w: zero-amount line on account %d", domain.ErrInvalidAmount, line.AccountID)
		}
		assetSums[line.AssetID] = assetSums[line.AssetID].Add(line.Amount)
		accountDeltas[line.AccountID] = accountDeltas[line.AccountID].Add(line.Amount)
	}
	for assetID, sum := range assetSums {
		if !sum.IsZero() {
			return nil, &domain.UnbalancedEntryError{AssetID: assetID, Residual: sum}
		}
	}

	accountIDs := make([]uint64, 0, len(accountDeltas))
	for accountID := range accountDeltas {
		accountIDs = append(accountIDs, accountID)
	}

	var accounts []*schema.Account
	if err := tx.Where("id IN ?", accountIDs).Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	accountsByID := make(map[uint64]*schema.Account, len(accounts))
	for _, account := range accounts {
		accountsByID[account.ID] = account
	}

	for _, line := range input.Lines {
		account, ok := accountsByID[line.AccountID]
		if !ok {
			return nil, fmt.Errorf("%w: account %d", domain.ErrUnknownAccount, line.AccountID)
		}
		if account.AssetID != line.AssetID {
			return nil, fmt.Errorf("%w: line asset %d does not match account %d asset %d",
				domain.ErrInvalidInput, line.AssetID, account.ID, account.AssetID)
		}
	}

	snapshots, err := lockSnapshots(tx, accountIDs)
	if err != nil {
		return nil, err
	}

	// Accounts debited by this entry must stay non-negative on available
	// and must not be frozen. Credits post to frozen accounts so in-flight
	// settlements can still complete. System-owned accounts (treasury,
	// issuance, ...) sit on the other side of the books and may run
	// negative: a deposit debits issuance below zero on purpose.
	for accountID, delta := range accountDeltas {
		if delta.IsNegative() {
			if accountsByID[accountID].Status == domain.AccountStatusFrozen {
				return nil, fmt.Errorf("%w: account %d", domain.ErrAccountFrozen, accountID)
			}
			if domain.IsSystemOwner(accountsByID[accountID].OwnerID) {
				continue
			}

			snapshot := snapshots[accountID]
			held := snapshot.Held
			if allowance, ok := holdAllowance[accountID]; ok {
				held = held.Sub(allowance)
			}
			available := snapshot.Posted.Sub(held)
			if available.Add(delta).IsNegative() {
				return nil, &domain.InsufficientAvailableError{
					AccountID: accountID,
					Requested: delta.Neg(),
					Available: available,
				}
			}
		}
	}

	entry := schema.JournalEntry{
		Type:      input.Type,
		Reference: input.Reference,
		Metadata:  input.Metadata,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	lines := make([]schema.JournalLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		lines = append(lines, schema.JournalLine{
			EntryID:   entry.ID,
			AccountID: line.AccountID,
			AssetID:   line.AssetID,
			Amount:    line.Amount,
		})
	}
	if err := tx.Create(&lines).Error; err != nil {
		return nil, fmt.Errorf("failed to create entry lines: %w", err)
	}
	entry.Lines = lines

	now := time.Now().UTC()
	for accountID, delta := range accountDeltas {
		snapshot := snapshots[accountID]
		updates := map[string]interface{}{
			"posted":     snapshot.Posted.Add(delta),
			"version":    snapshot.Version + 1,
			"updated_at": now,
		}
		if err := tx.Model(&schema.BalanceSnapshot{}).
			Where("account_id = ?", accountID).
			Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update balance snapshot: %w", err)
		}
	}

	return &entry, nil
}

// PostEntry atomically writes a balanced entry with its lines and updates
// the affected balance snapshots. This is the only way journal lines are
// created.
func (s *pgStore) PostEntry(ctx context.Context, input PostEntryInput) (*schema.JournalEntry, error) {
	var entry *schema.JournalEntry

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		entry, txErr = postEntryTx(tx, input, nil)
		return txErr
	})
	if err != nil {
		return nil, translateError(err)
	}

	return entry, nil
}

// GetEntryWithLines retrieves an entry and its lines by ID
func (s *pgStore) GetEntryWithLines(ctx context.Context, entryID uint64) (*schema.JournalEntry, error) {
	var entry schema.JournalEntry
	err := s.db.WithContext(ctx).
		Preload("Lines").
		Where("id = ?", entryID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return &entry, nil
}

// GetEntryByReference retrieves an entry by its (type, reference) key
func (s *pgStore) GetEntryByReference(ctx context.Context, entryType domain.EntryType, reference string) (*schema.JournalEntry, error) {
	var entry schema.JournalEntry
	err := s.db.WithContext(ctx).
		Preload("Lines").
		Where("type = ? AND reference = ?", string(entryType), reference).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entry by reference: %w", err)
	}
	return &entry, nil
}

// ListEntries pages through entries with lines ordered by ID
func (s *pgStore) ListEntries(ctx context.Context, afterID uint64, limit int) ([]*schema.JournalEntry, error) {
	var entries []*schema.JournalEntry
	err := s.db.WithContext(ctx).
		Preload("Lines").
		Where("id > ?", afterID).
		Order("id").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// ---------------------------------------------------------------------------
// Holds
// ---------------------------------------------------------------------------

// CreateHold reserves amount against an account. The available read happens
// under the snapshot row lock in the same transaction as the insert, so two
// concurrent holds can never both pass a stale check.
func (s *pgStore) CreateHold(ctx context.Context, accountID uint64, amount decimal.Decimal, reason string) (*schema.Hold, error) {
	var hold schema.Hold

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account schema.Account
		if err := tx.Where("id = ?", accountID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: account %d", domain.ErrUnknownAccount, accountID)
			}
			return fmt.Errorf("failed to get account: %w", err)
		}
		if account.Status == domain.AccountStatusFrozen {
			return fmt.Errorf("%w: account %d", domain.ErrAccountFrozen, accountID)
		}

		snapshots, err := lockSnapshots(tx, []uint64{accountID})
		if err != nil {
			return err
		}
		snapshot := snapshots[accountID]

		available := snapshot.Posted.Sub(snapshot.Held)
		if amount.GreaterThan(available) {
			return &domain.InsufficientAvailableError{
				AccountID: accountID,
				Requested: amount,
				Available: available,
			}
		}

		hold = schema.Hold{
			ID:              uuid.New(),
			AccountID:       accountID,
			AssetID:         account.AssetID,
			Amount:          amount,
			RemainingAmount: amount,
			Reason:          reason,
			Status:          domain.HoldStatusActive,
		}
		if err := tx.Create(&hold).Error; err != nil {
			return fmt.Errorf("failed to create hold: %w", err)
		}

		return tx.Model(&schema.BalanceSnapshot{}).
			Where("account_id = ?", accountID).
			Updates(map[string]interface{}{
				"held":       snapshot.Held.Add(amount),
				"version":    snapshot.Version + 1,
				"updated_at": time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &hold, nil
}

// GetHoldByID retrieves a hold by its ID
func (s *pgStore) GetHoldByID(ctx context.Context, holdID uuid.UUID) (*schema.Hold, error) {
	var hold schema.Hold
	err := s.db.WithContext(ctx).Where("id = ?", holdID).First(&hold).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}
	return &hold, nil
}

// lockActiveHold loads a hold under FOR UPDATE and verifies it is active.
func lockActiveHold(tx *gorm.DB, holdID uuid.UUID) (*schema.Hold, error) {
	var hold schema.Hold
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", holdID).
		First(&hold).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrHoldNotFound, holdID)
		}
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}

	switch hold.Status {
	case domain.HoldStatusActive:
		return &hold, nil
	case domain.HoldStatusReleased:
		return nil, domain.ErrAlreadyReleased
	case domain.HoldStatusConsumed:
		return nil, domain.ErrAlreadyConsumed
	default:
		return nil, fmt.Errorf("%w: unexpected status %q", domain.ErrInvalidHoldState, hold.Status)
	}
}

// ReleaseHold returns an active hold's remaining amount to available.
// No journal movement occurs; the funds become available again because held
// no longer includes them.
func (s *pgStore) ReleaseHold(ctx context.Context, holdID uuid.UUID) (*schema.Hold, error) {
	var released schema.Hold

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hold, err := lockActiveHold(tx, holdID)
		if err != nil {
			return err
		}

		snapshots, err := lockSnapshots(tx, []uint64{hold.AccountID})
		if err != nil {
			return err
		}
		snapshot := snapshots[hold.AccountID]

		now := time.Now().UTC()
		remaining := hold.RemainingAmount
		if err := tx.Model(&schema.Hold{}).
			Where("id = ?", hold.ID).
			Updates(map[string]interface{}{
				"status":           string(domain.HoldStatusReleased),
				"remaining_amount": decimal.Zero,
				"released_at":      now,
			}).Error; err != nil {
			return fmt.Errorf("failed to release hold: %w", err)
		}

		if err := tx.Model(&schema.BalanceSnapshot{}).
			Where("account_id = ?", hold.AccountID).
			Updates(map[string]interface{}{
				"held":       snapshot.Held.Sub(remaining),
				"version":    snapshot.Version + 1,
				"updated_at": now,
			}).Error; err != nil {
			return fmt.Errorf("failed to update balance snapshot: %w", err)
		}

		released = *hold
		released.Status = domain.HoldStatusReleased
		released.RemainingAmount = decimal.Zero
		released.ReleasedAt = &now
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &released, nil
}

// ConsumeHold posts a balanced entry spending part or all of an active hold
// and decrements its remaining amount in the same transaction. The consumed
// amount is the net debit the entry applies to the hold's account; it must
// not exceed the hold's remaining amount. The hold flips to consumed when
// remaining reaches zero, otherwise it stays active for the remainder.
func (s *pgStore) ConsumeHold(ctx context.Context, holdID uuid.UUID, input PostEntryInput) (*schema.JournalEntry, *schema.Hold, error) {
	var (
		entry   *schema.JournalEntry
		updated schema.Hold
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hold, err := lockActiveHold(tx, holdID)
		if err != nil {
			return err
		}

		consumed := decimal.Zero
		for _, line := range input.Lines {
			if line.AccountID == hold.AccountID && line.AssetID == hold.AssetID {
				consumed = consumed.Sub(line.Amount)
			}
		}
		if !consumed.IsPositive() {
			return fmt.Errorf("%w: consume entry must debit the held account", domain.ErrInvalidInput)
		}
		if consumed.GreaterThan(hold.RemainingAmount) {
			return fmt.Errorf("%w: consume amount %s exceeds hold remaining %s",
				domain.ErrInvalidAmount, consumed, hold.RemainingAmount)
		}

		entry, err = postEntryTx(tx, input, map[uint64]decimal.Decimal{hold.AccountID: consumed})
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		remaining := hold.RemainingAmount.Sub(consumed)
		holdUpdates := map[string]interface{}{
			"remaining_amount": remaining,
		}
		status := domain.HoldStatusActive
		var releasedAt *time.Time
		if remaining.IsZero() {
			status = domain.HoldStatusConsumed
			releasedAt = &now
			holdUpdates["status"] = string(status)
			holdUpdates["released_at"] = now
		}
		if err := tx.Model(&schema.Hold{}).
			Where("id = ?", hold.ID).
			Updates(holdUpdates).Error; err != nil {
			return fmt.Errorf("failed to update hold: %w", err)
		}

		// postEntryTx already moved posted; held comes down by the consumed
		// amount on the same locked snapshot row
		var snapshot schema.BalanceSnapshot
		if err := tx.Where("account_id = ?", hold.AccountID).First(&snapshot).Error; err != nil {
			return fmt.Errorf("failed to reload balance snapshot: %w", err)
		}
		if err := tx.Model(&schema.BalanceSnapshot{}).
			Where("account_id = ?", hold.AccountID).
			Updates(map[string]interface{}{
				"held":       snapshot.Held.Sub(consumed),
				"version":    snapshot.Version + 1,
				"updated_at": now,
			}).Error; err != nil {
			return fmt.Errorf("failed to update balance snapshot: %w", err)
		}

		updated = *hold
		updated.RemainingAmount = remaining
		updated.Status = status
		updated.ReleasedAt = releasedAt
		return nil
	})
	if err != nil {
		return nil, nil, translateError(err)
	}

	return entry, &updated, nil
}

// ---------------------------------------------------------------------------
// Balance projection
// ---------------------------------------------------------------------------

// GetBalance reads the snapshot-backed posted/held/available projection
func (s *pgStore) GetBalance(ctx context.Context, accountID uint64) (*Balance, error) {
	var snapshot schema.BalanceSnapshot
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: account %d", domain.ErrUnknownAccount, accountID)
		}
		return nil, fmt.Errorf("failed to get balance snapshot: %w", err)
	}

	return &Balance{
		AccountID: accountID,
		Posted:    snapshot.Posted,
		Held:      snapshot.Held,
		Available: snapshot.Posted.Sub(snapshot.Held),
	}, nil
}

// RecomputeBalance derives the projection from the journal and holds,
// bypassing the snapshot cache. The journal is the ground truth; the auditor
// compares this against GetBalance to detect snapshot drift.
func (s *pgStore) RecomputeBalance(ctx context.Context, accountID uint64) (*Balance, error) {
	var posted decimal.Decimal
	err := s.db.WithContext(ctx).
		Model(&schema.JournalLine{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("account_id = ?", accountID).
		Scan(&posted).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum journal lines: %w", err)
	}

	var held decimal.Decimal
	err = s.db.WithContext(ctx).
		Model(&schema.Hold{}).
		Select("COALESCE(SUM(remaining_amount), 0)").
		Where("account_id = ? AND status = ?", accountID, string(domain.HoldStatusActive)).
		Scan(&held).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum active holds: %w", err)
	}

	return &Balance{
		AccountID: accountID,
		Posted:    posted,
		Held:      held,
		Available: posted.Sub(held),
	}, nil
}
