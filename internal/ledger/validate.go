package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tradeforge/ledger-core/internal/domain"
	"github.com/tradeforge/ledger-core/internal/store"
)

// ValidateEntryInput performs the storage-independent checks on an entry:
// known type, at least two lines, no zero-amount lines, and a zero per-asset
// sum. The store repeats the balance check inside the transaction; failing
// here just avoids opening one for input that can never post.
func ValidateEntryInput(input store.PostEntryInput) error {
	if !domain.IsValidEntryType(input.Type) {
		return fmt.Errorf("%w: unknown entry type %q", domain.ErrInvalidInput, input.Type)
	}
	if len(input.Lines) < 2 {
		return fmt.Errorf("%w: entry requires at least 2 lines, got %d", domain.ErrInvalidInput, len(input.Lines))
	}

	assetSums := make(map[uint64]decimal.Decimal)
	for _, line := range input.Lines {
		if line.Amount.IsZero() {
			return fmt.Errorf("%w: zero-amount line on account %d", domain.ErrInvalidAmount, line.AccountID)
		}
		assetSums[line.AssetID] = assetSums[line.AssetID].Add(line.Amount)
	}

	for assetID, sum := range assetSums {
		if !sum.IsZero() {
			return &domain.UnbalancedEntryError{AssetID: assetID, Residual: sum}
		}
	}

	return nil
}

// CheckPrecision verifies that an amount carries no more fractional digits
// than the asset supports.
func CheckPrecision(amount decimal.Decimal, decimals int32) error {
	if !amount.Equal(amount.Truncate(decimals)) {
		return fmt.Errorf("%w: %s exceeds %d decimal places", domain.ErrInvalidAmount, amount, decimals)
	}
	return nil
}

// LineAssetIDs returns the distinct asset IDs referenced by an entry's lines.
func LineAssetIDs(lines []store.LineInput) []uint64 {
	seen := make(map[uint64]struct{}, len(lines))
	ids := make([]uint64, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.AssetID]; !ok {
			seen[line.AssetID] = struct{}{}
			ids = append(ids, line.AssetID)
		}
	}
	return ids
}
