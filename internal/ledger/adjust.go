package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradeforge/ledger-core/internal/domain"
	"github.com/tradeforge/ledger-core/internal/logger"
	"github.com/tradeforge/ledger-core/internal/store"
	"github.com/tradeforge/ledger-core/internal/store/schema"
)

// adjustmentEpsilon is the threshold under which a set-balance adjustment is
// a no-op. Smaller than any supported asset precision (max 18 dp would be
// 1e-18, but adjustments target display balances well above that).
var adjustmentEpsilon = decimal.New(1, -12)

// AdjustToTarget sets an account's posted balance to target by posting a
// two-line entry against a system counterparty. There is no backdoor that
// mutates a balance without one: the delta lands on the target account and
// its negation on the counterparty, so the entry stays balanced.
//
// Returns nil entry when the delta is under epsilon (nothing to do) or when
// the reference was already applied (retry after success).
func (e *Engine) AdjustToTarget(ctx context.Context, accountID uint64, target decimal.Decimal, counterparty domain.Owner, reference string) (*schema.JournalEntry, error) {
	if !domain.IsSystemOwner(counterparty) {
		return nil, fmt.Errorf("%w: adjustment counterparty must be a system owner, got %q", domain.ErrInvalidInput, counterparty)
	}

	account, err := e.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	balance, err := e.store.GetBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}

	delta := target.Sub(balance.Posted)
	if delta.Abs().LessThan(adjustmentEpsilon) {
		logger.InfoCtx(ctx, "Adjustment is a no-op",
			zap.Uint64("account_id", accountID),
			zap.String("target", target.String()),
		)
		return nil, nil
	}

	counterpartyAccount, err := e.EnsureAccount(ctx, counterparty, account.AssetID)
	if err != nil {
		return nil, err
	}

	entry, err := e.PostEntry(ctx, store.PostEntryInput{
		Type:      domain.EntryTypeAdminAdjustment,
		Reference: &reference,
		Lines: []store.LineInput{
			{AccountID: account.ID, AssetID: account.AssetID, Amount: delta},
			{AccountID: counterpartyAccount.ID, AssetID: account.AssetID, Amount: delta.Neg()},
		},
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			logger.InfoCtx(ctx, "Adjustment already applied",
				zap.Uint64("account_id", accountID),
				zap.String("reference", reference),
			)
			return nil, nil
		}
		return nil, err
	}

	return entry, nil
}

// ZeroOutOwner erases an owner's economic footprint the only sanctioned
// way: an adjustment to zero on every account, with the treasury as
// counterparty. Journal history stays intact; tombstoning the owner record
// itself is the caller's job. Accounts are frozen afterwards so nothing new
// accrues.
func (e *Engine) ZeroOutOwner(ctx context.Context, owner domain.Owner, reference string) error {
	if domain.IsSystemOwner(owner) {
		return fmt.Errorf("%w: cannot zero out a system owner", domain.ErrInvalidInput)
	}

	accounts, err := e.store.ListAccountsByOwner(ctx, owner)
	if err != nil {
		return err
	}

	for _, account := range accounts {
		accountRef := fmt.Sprintf("%s:account:%d", reference, account.ID)
		if _, err := e.AdjustToTarget(ctx, account.ID, decimal.Zero, domain.OwnerTreasury, accountRef); err != nil {
			return fmt.Errorf("failed to zero out account %d: %w", account.ID, err)
		}
		if err := e.FreezeAccount(ctx, account.ID); err != nil {
			return err
		}
	}

	logger.InfoCtx(ctx, "Zeroed out owner",
		zap.String("owner", string(owner)),
		zap.Int("accounts", len(accounts)),
	)
	return nil
}
