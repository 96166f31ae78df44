package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/tradeforge/ledger-core/internal/domain"
	"github.com/tradeforge/ledger-core/internal/store/schema"
)

// =============================================================================
// Test Data Builders
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// createTestAsset registers an asset with a unique symbol per test
func createTestAsset(t *testing.T, store Store, symbol string) *schema.Asset {
	t.Helper()
	asset := &schema.Asset{
		Chain:    domain.ChainEthereumMainnet,
		Symbol:   symbol,
		Decimals: 6,
		Enabled:  true,
	}
	require.NoError(t, store.CreateAsset(context.Background(), asset))
	require.NotZero(t, asset.ID)
	return asset
}

// createFundedAccount creates an account for owner and credits it from the
// issuance account with a deposit entry
func createFundedAccount(t *testing.T, store Store, assetID uint64, owner domain.Owner, amount string) *schema.Account {
	t.Helper()
	ctx := context.Background()

	account, err := store.EnsureAccount(ctx, owner, assetID)
	require.NoError(t, err)
	if dec(amount).IsZero() {
		return account
	}

	issuance, err := store.EnsureAccount(ctx, domain.OwnerIssuance, assetID)
	require.NoError(t, err)

	_, err = store.PostEntry(ctx, PostEntryInput{
		Type: domain.EntryTypeDeposit,
		Lines: []LineInput{
			{AccountID: issuance.ID, AssetID: assetID, Amount: dec(amount).Neg()},
			{AccountID: account.ID, AssetID: assetID, Amount: dec(amount)},
		},
	})
	require.NoError(t, err)
	return account
}

func requireBalance(t *testing.T, store Store, accountID uint64, posted, held string) {
	t.Helper()
	balance, err := store.GetBalance(context.Background(), accountID)
	require.NoError(t, err)
	assert.True(t, balance.Posted.Equal(dec(posted)),
		"posted: got %s, want %s", balance.Posted, posted)
	assert.True(t, balance.Held.Equal(dec(held)),
		"held: got %s, want %s", balance.Held, held)
	assert.True(t, balance.Available.Equal(dec(posted).Sub(dec(held))),
		"available: got %s", balance.Available)
}

// =============================================================================
// Test: Asset registry
// =============================================================================

func testAssetRegistry(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("create and read back", func(t *testing.T) {
		asset := createTestAsset(t, store, "USDT")

		byID, err := store.GetAssetByID(ctx, asset.ID)
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, "USDT", byID.Symbol)
		assert.Equal(t, int32(6), byID.Decimals)
		assert.True(t, byID.Enabled)

		bySymbol, err := store.GetAssetBySymbol(ctx, domain.ChainEthereumMainnet, "USDT")
		require.NoError(t, err)
		require.NotNil(t, bySymbol)
		assert.Equal(t, asset.ID, bySymbol.ID)
	})

	t.Run("duplicate chain and symbol rejected", func(t *testing.T) {
		createTestAsset(t, store, "DUP")
		err := store.CreateAsset(ctx, &schema.Asset{
			Chain:    domain.ChainEthereumMainnet,
			Symbol:   "DUP",
			Decimals: 8,
			Enabled:  true,
		})
		require.Error(t, err)
	})

	t.Run("same symbol on another chain allowed", func(t *testing.T) {
		createTestAsset(t, store, "MULTI")
		err := store.CreateAsset(ctx, &schema.Asset{
			Chain:    domain.ChainTronMainnet,
			Symbol:   "MULTI",
			Decimals: 6,
			Enabled:  true,
		})
		require.NoError(t, err)
	})

	t.Run("missing asset returns nil", func(t *testing.T) {
		asset, err := store.GetAssetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, asset)
	})

	t.Run("list assets", func(t *testing.T) {
		assets, err := store.ListAssets(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(assets), 3)
	})
}

// =============================================================================
// Test: Account directory
// =============================================================================

func testEnsureAccount(t *testing.T, store Store) {
	ctx := context.Background()
	asset := createTestAsset(t, store, "ACCT")

	t.Run("upsert is idempotent", func(t *testing.T) {
		first, err := store.EnsureAccount(ctx, "user-1", asset.ID)
		require.NoError(t, err)
		require.NotZero(t, first.ID)
		assert.Equal(t, domain.AccountStatusActive, first.Status)

		second, err := store.EnsureAccount(ctx, "user-1", asset.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("snapshot row created with the account", func(t *testing.T) {
		account, err := store.EnsureAccount(ctx, "user-2", asset.ID)
		require.NoError(t, err)

		requireBalance(t, store, account.ID, "0", "0")
	})

	t.Run("unknown asset rejected", func(t *testing.T) {
		_, err := store.EnsureAccount(ctx, "user-3", 999999)
		assert.ErrorIs(t, err, domain.ErrUnknownAsset)
	})

	t.Run("one owner many assets", func(t *testing.T) {
		other := createTestAsset(t, store, "ACCT2")
		_, err := store.EnsureAccount(ctx, "user-4", asset.ID)
		require.NoError(t, err)
		_, err = store.EnsureAccount(ctx, "user-4", other.ID)
		require.NoError(t, err)

		accounts, err := store.ListAccountsByOwner(ctx, "user-4")
		require.NoError(t, err)
		assert.Len(t, accounts, 2)
	})

	t.Run("status transitions", func(t *testing.T) {
		account, err := store.EnsureAccount(ctx, "user-5", asset.ID)
		require.NoError(t, err)

		require.NoError(t, store.SetAccountStatus(ctx, account.ID, domain.AccountStatusFrozen))
		got, err := store.GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AccountStatusFrozen, got.Status)

		require.NoError(t, store.SetAccountStatus(ctx, account.ID, domain.AccountStatusActive))

		err = store.SetAccountStatus(ctx, 999999, domain.AccountStatusFrozen)
		assert.ErrorIs(t, err, domain.ErrUnknownAccount)
	})
}

// =============================================================================
// Test: PostEntry
// =============================================================================

func testPostEntry(t *testing.T, store Store) {
	ctx := context.Background()
	asset := createTestAsset(t, store, "POST")

	t.Run("balanced entry moves posted", func(t *testing.T) {
		from := createFundedAccount(t, store, asset.ID, "sender", "100")
		to := createFundedAccount(t, store, asset.ID, "receiver", "0")

		metadata := datatypes.JSON([]byte(`{"memo":"rent"}`))
		entry, err := store.PostEntry(ctx, PostEntryInput{
			Type:     domain.EntryTypeTransfer,
			Metadata: metadata,
			Lines: []LineInput{
				{AccountID: from.ID, AssetID: asset.ID, Amount: dec("-25")},
				{AccountID: to.ID, AssetID: asset.ID, Amount: dec("25")},
			},
		})
		require.NoError(t, err)
		require.NotZero(t, entry.ID)
		require.Len(t, entry.Lines, 2)

		requireBalance(t, store, from.ID, "75", "0")
		requireBalance(t, store, to.ID, "25", "0")

		got, err := store.GetEntryWithLines(ctx, entry.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Len(t, got.Lines, 2)
		assert.JSONEq(t, `{"memo":"rent"}`, string(got.Metadata))
	})

	t.Run("unbalanced entry writes nothing", func(t *testing.T) {
		a := createFundedAccount(t, store, asset.ID, "unbal-a", "50")
		b := createFundedAccount(t, store, asset.ID, "unbal-b", "0")

		_, err := store.PostEntry(ctx, PostEntryInput{
			Type: domain.EntryTypeTransfer,
			Lines: []LineInput{
				{AccountID: a.ID, AssetID: asset.ID, Amount: dec("10")},
				{AccountID: b.ID, AssetID: asset.ID, Amount: dec("-7")},
			},
		})
		require.ErrorIs(t, err, domain.ErrUnbalancedEntry)

		requireBalance(t, store, a.ID, "50", "0")
		requireBalance(t, store, b.ID, "0", "0")
	})

	t.Run("single line rejected", func(t *testing.T) {
		a := createFundedAccount(t, store, asset.ID, "single", "50")
		_, err := store.PostEntry(ctx, PostEntryInput{
			Type: domain.EntryTypeDeposit,
			Lines: []LineInput{
				{AccountID: a.ID, AssetID: asset.ID, Amount: dec("10")},
			},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("zero-amount line rejected", func(t *testing.T) {
		a := createFundedAccount(t, store, asset.ID, "zero-a", "50")
		b := createFundedAccount(t, store, asset.ID, "zero-b", "0")
		_, err := store.PostEntry(ctx, PostEntryInput{
			Type: domain.EntryTypeTransfer,
			Lines: []LineInput{
				{AccountID: a.ID, AssetID: asset.ID, Amount: decimal.Zero},
				{AccountID: b.ID, AssetID: asset.ID, Amount: decimal.Zero},
			},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("unknown account rejected", func(t *testing.T) {
		a := createFundedAccount(t, store, asset.ID, "known", "50")
		_, err := store.PostEntry(ctx, PostEntryInput{
			Type: domain.EntryTypeTransfer,
			Lines: []LineInput{
				{AccountID: a.ID, AssetID: asset.ID, Amount: dec("-10")},
				{AccountID: 999999, AssetID: asset.ID, Amount: dec("10")},
			},
		})
		assert.ErrorIs(t, err, domain.ErrUnknownAccount)
	})

	t.Run("line asset must match account asset", func(t *testing.T) {
		other := createTestAsset(t, store, "POST2")
		a := createFundedAccount(t, store, asset.ID, "mismatch-a", "50")
		b := createFundedAccount(t, store, asset.ID, "mismatch-b", "0")

		_, err := store.PostEntry(ctx, PostEntryInput{
			Type: domain.EntryTypeTransfer,
			Lines: []LineInput{
				{AccountID: a.ID, AssetID: other.ID, Amount: dec("-10")},
				{AccountID: b.ID, AssetID: other.ID, Amount: dec("10")},
			},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("debit beyond available rejected", func(t *testing.T) {
		a := createFundedAccount(t, store, asset.ID, "poor", "30")
		b := createFundedAccount(t, store, asset.ID, "rich", "0")

		_, err := store.PostEntry(ctx, PostEntryInput{
			Type: domain.EntryTypeTransfer,
			Lines: []LineInput{
				{AccountID: a.ID, AssetID: asset.ID, Amount: dec("-31")},
				{AccountID: b.ID, AssetID: asset.ID, Amount: dec("31")},
			},
		})
		require.ErrorIs(t, err, domain.ErrInsufficientAvailable)

		var insufficient *domain.InsufficientAvailableError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, a.ID, insufficient.AccountID)
		assert.True(t, insufficient.Available.Equal(dec("30")))
	})

	t.Run("system accounts may run negative", func(t *testing.T) {
		treasury, err := store.EnsureAccount(ctx, domain.OwnerTreasury, asset.ID)
		require.NoError(t, err)
		user := createFundedAccount(t, store, asset.ID, "negative-sys", "0")

		_, err = store.PostEntry(ctx, PostEntryInput{
			Type: domain.EntryTypeAdminAdjustment,
			Lines: []LineInput{
				{AccountID: treasury.ID, AssetID: asset.ID, Amount: dec("-500")},
				{AccountID: user.ID, AssetID: asset.ID, Amount: dec("500")},
			},
		})
		require.NoError(t, err)

		balance, err := store.GetBalance(ctx, treasury.ID)
		require.NoError(t, err)
		assert.True(t, balance.Posted.IsNegative())
	})

	t.Run("frozen account rejects debits accepts credits", func(t *testing.T) {
		frozen := createFundedAccount(t, store, asset.ID, "frozen", "50")
		peer := createFundedAccount(t, store, asset.ID, "peer", "50")
		require.NoError(t, store.SetAccountStatus(ctx, frozen.ID, domain.AccountStatusFrozen))

		_, err := store.PostEntry(ctx, PostEntryInput{
			Type: domain.EntryTypeTransfer,
			Lines: []LineInput{
				{AccountID: frozen.ID, AssetID: asset.ID, Amount: dec("-10")},
				{AccountID: peer.ID, AssetID: asset.ID, Amount: dec("10")},
			},
		})
		assert.ErrorIs(t, err, domain.ErrAccountFrozen)

		_, err = store.PostEntry(ctx, PostEntryInput{
			Type: domain.EntryTypeTransfer,
			Lines: []LineInput{
				{AccountID: peer.ID, AssetID: asset.ID, Amount: dec("-10")},
				{AccountID: frozen.ID, AssetID: asset.ID, Amount: dec("10")},
			},
		})
		require.NoError(t, err)
		requireBalance(t, store, frozen.ID, "60", "0")
	})

	t.Run("multi-asset trade settlement", func(t *testing.T) {
		btc := createTestAsset(t, store, "TBTC")
		buyerUSDT := createFundedAccount(t, store, asset.ID, "buyer", "50000")
		sellerUSDT := createFundedAccount(t, store, asset.ID, "seller", "0")
		buyerBTC := createFundedAccount(t, store, btc.ID, "buyer", "0")
		sellerBTC := createFundedAccount(t, store, btc.ID, "seller", "1")

		_, err := store.PostEntry(ctx, PostEntryInput{
			Type: domain.EntryTypeTradeSettlement,
			Lines: []LineInput{
				{AccountID: buyerUSDT.ID, AssetID: asset.ID, Amount: dec("-50000")},
				{AccountID: sellerUSDT.ID, AssetID: asset.ID, Amount: dec("50000")},
				{AccountID: sellerBTC.ID, AssetID: btc.ID, Amount: dec("-1")},
				{AccountID: buyerBTC.ID, AssetID: btc.ID, Amount: dec("1")},
			},
		})
		require.NoError(t, err)

		requireBalance(t, store, buyerUSDT.ID, "0", "0")
		requireBalance(t, store, sellerUSDT.ID, "50000", "0")
		requireBalance(t, store, buyerBTC.ID, "1", "0")
		requireBalance(t, store, sellerBTC.ID, "0", "0")
	})
}

// =============================================================================
// Test: Idempotency
// =============================================================================

func testPostEntryIdempotency(t *testing.T, store Store) {
	ctx := context.Background()
	asset := createTestAsset(t, store, "IDEM")
	user := createFundedAccount(t, store, asset.ID, "idem-user", "0")
	treasury, err := store.EnsureAccount(ctx, domain.OwnerTreasury, asset.ID)
	require.NoError(t, err)

	ref := "set:IDEM:idem-user"
	input := PostEntryInput{
		Type:      domain.EntryTypeAdminAdjustment,
		Reference: &ref,
		Lines: []LineInput{
			{AccountID: user.ID, AssetID: asset.ID, Amount: dec("50")},
			{AccountID: treasury.ID, AssetID: asset.ID, Amount: dec("-50")},
		},
	}

	first, err := store.PostEntry(ctx, input)
	require.NoError(t, err)

	_, err = store.PostEntry(ctx, input)
	require.ErrorIs(t, err, domain.ErrDuplicateReference)

	// Exactly one entry exists and the balance moved once
	requireBalance(t, store, user.ID, "50", "0")

	existing, err := store.GetEntryByReference(ctx, domain.EntryTypeAdminAdjustment, ref)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, first.ID, existing.ID)

	// The same reference under a different type is a different operation
	withdrawRef := ref
	_, err = store.PostEntry(ctx, PostEntryInput{
		Type:      domain.EntryTypeWithdrawal,
		Reference: &withdrawRef,
		Lines: []LineInput{
			{AccountID: user.ID, AssetID: asset.ID, Amount: dec("-10")},
			{AccountID: treasury.ID, AssetID: asset.ID, Amount: dec("10")},
		},
	})
	require.NoError(t, err)
	requireBalance(t, store, user.ID, "40", "0")
}

// =============================================================================
// Test: Hold lifecycle
// =============================================================================

func testHoldLifecycle(t *testing.T, store Store) {
	ctx := context.Background()
	asset := createTestAsset(t, store, "HOLD")

	t.Run("create reduces available not posted", func(t *testing.T) {
		account := createFundedAccount(t, store, asset.ID, "holder", "100")

		hold, err := store.CreateHold(ctx, account.ID, dec("60"), "withdrawal")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, hold.ID)
		assert.Equal(t, domain.HoldStatusActive, hold.Status)
		assert.True(t, hold.RemainingAmount.Equal(dec("60")))
		assert.Equal(t, asset.ID, hold.AssetID)

		requireBalance(t, store, account.ID, "100", "60")

		got, err := store.GetHoldByID(ctx, hold.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "withdrawal", got.Reason)
	})

	t.Run("hold beyond available rejected", func(t *testing.T) {
		account := createFundedAccount(t, store, asset.ID, "limited", "100")
		_, err := store.CreateHold(ctx, account.ID, dec("60"), "order")
		require.NoError(t, err)

		_, err = store.CreateHold(ctx, account.ID, dec("41"), "order")
		require.ErrorIs(t, err, domain.ErrInsufficientAvailable)

		// But up to the remaining available is fine
		_, err = store.CreateHold(ctx, account.ID, dec("40"), "order")
		require.NoError(t, err)
		requireBalance(t, store, account.ID, "100", "100")
	})

	t.Run("held funds cannot be spent", func(t *testing.T) {
		account := createFundedAccount(t, store, asset.ID, "locked", "100")
		peer := createFundedAccount(t, store, asset.ID, "locked-peer", "0")
		_, err := store.CreateHold(ctx, account.ID, dec("80"), "order")
		require.NoError(t, err)

		_, err = store.PostEntry(ctx, PostEntryInput{
			Type: domain.EntryTypeTransfer,
			Lines: []LineInput{
				{AccountID: account.ID, AssetID: asset.ID, Amount: dec("-30")},
				{AccountID: peer.ID, AssetID: asset.ID, Amount: dec("30")},
			},
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientAvailable)
	})

	t.Run("release restores available without journal movement", func(t *testing.T) {
		account := createFundedAccount(t, store, asset.ID, "releaser", "100")
		hold, err := store.CreateHold(ctx, account.ID, dec("60"), "order")
		require.NoError(t, err)

		released, err := store.ReleaseHold(ctx, hold.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.HoldStatusReleased, released.Status)
		assert.True(t, released.RemainingAmount.IsZero())
		require.NotNil(t, released.ReleasedAt)

		requireBalance(t, store, account.ID, "100", "0")

		// No journal entry was written for the release
		recomputed, err := store.RecomputeBalance(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, recomputed.Posted.Equal(dec("100")))
	})

	t.Run("double release rejected", func(t *testing.T) {
		account := createFundedAccount(t, store, asset.ID, "doubler", "100")
		hold, err := store.CreateHold(ctx, account.ID, dec("10"), "order")
		require.NoError(t, err)

		_, err = store.ReleaseHold(ctx, hold.ID)
		require.NoError(t, err)

		_, err = store.ReleaseHold(ctx, hold.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadyReleased)
		requireBalance(t, store, account.ID, "100", "0")
	})

	t.Run("unknown hold rejected", func(t *testing.T) {
		_, err := store.ReleaseHold(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrHoldNotFound)
	})

	t.Run("frozen account rejects new holds", func(t *testing.T) {
		account := createFundedAccount(t, store, asset.ID, "frosty", "100")
		require.NoError(t, store.SetAccountStatus(ctx, account.ID, domain.AccountStatusFrozen))

		_, err := store.CreateHold(ctx, account.ID, dec("10"), "order")
		assert.ErrorIs(t, err, domain.ErrAccountFrozen)
	})
}

// =============================================================================
// Test: ConsumeHold
// =============================================================================

func testConsumeHold(t *testing.T, store Store) {
	ctx := context.Background()
	asset := createTestAsset(t, store, "CONS")

	t.Run("full consumption", func(t *testing.T) {
		account := createFundedAccount(t, store, asset.ID, "spender", "40")
		counterparty := createFundedAccount(t, store, asset.ID, "merchant", "0")

		hold, err := store.CreateHold(ctx, account.ID, dec("40"), "withdrawal")
		require.NoError(t, err)

		entry, consumed, err := store.ConsumeHold(ctx, hold.ID, PostEntryInput{
			Type: domain.EntryTypeHoldConsume,
			Lines: []LineInput{
				{AccountID: account.ID, AssetID: asset.ID, Amount: dec("-40")},
				{AccountID: counterparty.ID, AssetID: asset.ID, Amount: dec("40")},
			},
		})
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, domain.HoldStatusConsumed, consumed.Status)
		assert.True(t, consumed.RemainingAmount.IsZero())
		require.NotNil(t, consumed.ReleasedAt)

		requireBalance(t, store, account.ID, "0", "0")
		requireBalance(t, store, counterparty.ID, "40", "0")
	})

	t.Run("partial consumption keeps hold active", func(t *testing.T) {
		account := createFundedAccount(t, store, asset.ID, "partial", "100")
		counterparty := createFundedAccount(t, store, asset.ID, "partial-peer", "0")

		hold, err := store.CreateHold(ctx, account.ID, dec("50"), "order")
		require.NoError(t, err)

		_, updated, err := store.ConsumeHold(ctx, hold.ID, PostEntryInput{
			Type: domain.EntryTypeHoldConsume,
			Lines: []LineInput{
				{AccountID: account.ID, AssetID: asset.ID, Amount: dec("-20")},
				{AccountID: counterparty.ID, AssetID: asset.ID, Amount: dec("20")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.HoldStatusActive, updated.Status)
		assert.True(t, updated.RemainingAmount.Equal(dec("30")))

		requireBalance(t, store, account.ID, "80", "30")

		// A second partial fill drains the rest
		_, final, err := store.ConsumeHold(ctx, hold.ID, PostEntryInput{
			Type: domain.EntryTypeHoldConsume,
			Lines: []LineInput{
				{AccountID: account.ID, AssetID: asset.ID, Amount: dec("-30")},
				{AccountID: counterparty.ID, AssetID: asset.ID, Amount: dec("30")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.HoldStatusConsumed, final.Status)
		requireBalance(t, store, account.ID, "50", "0")
	})

	t.Run("consumption beyond remaining rejected", func(t *testing.T) {
		account := createFundedAccount(t, store, asset.ID, "overdraw", "100")
		counterparty := createFundedAccount(t, store, asset.ID, "overdraw-peer", "0")

		hold, err := store.CreateHold(ctx, account.ID, dec("30"), "order")
		require.NoError(t, err)

		_, _, err = store.ConsumeHold(ctx, hold.ID, PostEntryInput{
			Type: domain.EntryTypeHoldConsume,
			Lines: []LineInput{
				{AccountID: account.ID, AssetID: asset.ID, Amount: dec("-31")},
				{AccountID: counterparty.ID, AssetID: asset.ID, Amount: dec("31")},
			},
		})
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
		requireBalance(t, store, account.ID, "100", "30")
	})

	t.Run("entry must debit the held account", func(t *testing.T) {
		account := createFundedAccount(t, store, asset.ID, "bystander", "100")
		other := createFundedAccount(t, store, asset.ID, "actor", "100")
		counterparty := createFundedAccount(t, store, asset.ID, "actor-peer", "0")

		hold, err := store.CreateHold(ctx, account.ID, dec("30"), "order")
		require.NoError(t, err)

		_, _, err = store.ConsumeHold(ctx, hold.ID, PostEntryInput{
			Type: domain.EntryTypeHoldConsume,
			Lines: []LineInput{
				{AccountID: other.ID, AssetID: asset.ID, Amount: dec("-10")},
				{AccountID: counterparty.ID, AssetID: asset.ID, Amount: dec("10")},
			},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("consumed hold cannot be released or reconsumed", func(t *testing.T) {
		account := createFundedAccount(t, store, asset.ID, "finished", "40")
		counterparty := createFundedAccount(t, store, asset.ID, "finished-peer", "0")

		hold, err := store.CreateHold(ctx, account.ID, dec("40"), "order")
		require.NoError(t, err)

		_, _, err = store.ConsumeHold(ctx, hold.ID, PostEntryInput{
			Type: domain.EntryTypeHoldConsume,
			Lines: []LineInput{
				{AccountID: account.ID, AssetID: asset.ID, Amount: dec("-40")},
				{AccountID: counterparty.ID, AssetID: asset.ID, Amount: dec("40")},
			},
		})
		require.NoError(t, err)

		_, err = store.ReleaseHold(ctx, hold.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadyConsumed)
	})

	t.Run("consume with idempotency reference", func(t *testing.T) {
		account := createFundedAccount(t, store, asset.ID, "ref-spender", "100")
		counterparty := createFundedAccount(t, store, asset.ID, "ref-peer", "0")

		hold, err := store.CreateHold(ctx, account.ID, dec("50"), "withdrawal")
		require.NoError(t, err)

		ref := fmt.Sprintf("withdrawal:%s", hold.ID)
		input := PostEntryInput{
			Type:      domain.EntryTypeHoldConsume,
			Reference: &ref,
			Lines: []LineInput{
				{AccountID: account.ID, AssetID: asset.ID, Amount: dec("-50")},
				{AccountID: counterparty.ID, AssetID: asset.ID, Amount: dec("50")},
			},
		}
		_, _, err = store.ConsumeHold(ctx, hold.ID, input)
		require.NoError(t, err)

		// A retry fails on the hold state before the reference even matters
		_, _, err = store.ConsumeHold(ctx, hold.ID, input)
		assert.ErrorIs(t, err, domain.ErrAlreadyConsumed)
		requireBalance(t, store, account.ID, "50", "0")
	})
}

// =============================================================================
// Test: Balance projection
// =============================================================================

func testBalanceProjection(t *testing.T, store Store) {
	ctx := context.Background()
	asset := createTestAsset(t, store, "PROJ")

	t.Run("snapshot matches replay", func(t *testing.T) {
		account := createFundedAccount(t, store, asset.ID, "projected", "100")
		peer := createFundedAccount(t, store, asset.ID, "projected-peer", "0")

		_, err := store.PostEntry(ctx, PostEntryInput{
			Type: domain.EntryTypeTransfer,
			Lines: []LineInput{
				{AccountID: account.ID, AssetID: asset.ID, Amount: dec("-15")},
				{AccountID: peer.ID, AssetID: asset.ID, Amount: dec("15")},
			},
		})
		require.NoError(t, err)
		_, err = store.CreateHold(ctx, account.ID, dec("25"), "order")
		require.NoError(t, err)

		cached, err := store.GetBalance(ctx, account.ID)
		require.NoError(t, err)
		replayed, err := store.RecomputeBalance(ctx, account.ID)
		require.NoError(t, err)

		assert.True(t, cached.Posted.Equal(replayed.Posted))
		assert.True(t, cached.Held.Equal(replayed.Held))
		assert.True(t, replayed.Posted.Equal(dec("85")))
		assert.True(t, replayed.Held.Equal(dec("25")))
		assert.True(t, replayed.Available.Equal(dec("60")))
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := store.GetBalance(ctx, 999999)
		assert.ErrorIs(t, err, domain.ErrUnknownAccount)
	})

	t.Run("fractional amounts survive the round trip", func(t *testing.T) {
		account := createFundedAccount(t, store, asset.ID, "fractional", "0.000001")
		balance, err := store.GetBalance(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, balance.Posted.Equal(dec("0.000001")))
	})
}

// =============================================================================
// Test: Paging reads
// =============================================================================

func testPagedReads(t *testing.T, store Store) {
	ctx := context.Background()
	asset := createTestAsset(t, store, "PAGE")
	a := createFundedAccount(t, store, asset.ID, "pager-a", "100")
	b := createFundedAccount(t, store, asset.ID, "pager-b", "100")

	for i := 0; i < 3; i++ {
		_, err := store.PostEntry(ctx, PostEntryInput{
			Type: domain.EntryTypeTransfer,
			Lines: []LineInput{
				{AccountID: a.ID, AssetID: asset.ID, Amount: dec("-1")},
				{AccountID: b.ID, AssetID: asset.ID, Amount: dec("1")},
			},
		})
		require.NoError(t, err)
	}

	var (
		afterID uint64
		total   int
	)
	for {
		entries, err := store.ListEntries(ctx, afterID, 2)
		require.NoError(t, err)
		if len(entries) == 0 {
			break
		}
		for _, entry := range entries {
			assert.Greater(t, entry.ID, afterID)
			assert.NotEmpty(t, entry.Lines)
			afterID = entry.ID
			total++
		}
	}
	// 2 deposits + 3 transfers
	assert.GreaterOrEqual(t, total, 5)

	var accounts int
	afterID = 0
	for {
		page, err := store.ListAccounts(ctx, afterID, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		afterID = page[len(page)-1].ID
		accounts += len(page)
	}
	assert.GreaterOrEqual(t, accounts, 3)
}

// RunStoreTests runs the shared store test suite against an implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"AssetRegistry", testAssetRegistry},
		{"EnsureAccount", testEnsureAccount},
		{"PostEntry", testPostEntry},
		{"PostEntryIdempotency", testPostEntryIdempotency},
		{"HoldLifecycle", testHoldLifecycle},
		{"ConsumeHold", testConsumeHold},
		{"BalanceProjection", testBalanceProjection},
		{"PagedReads", testPagedReads},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
