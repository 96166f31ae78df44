package domain

import (
	"fmt"
	"strings"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainTronMainnet     Chain = "tron:mainnet"
	ChainBitcoinMainnet  Chain = "bip122:000000000019d6689c085ae165831e93"
	// ChainInternal is used for assets that exist only inside the exchange
	// (arcade credits, promo balances) and never touch a blockchain.
	ChainInternal Chain = "internal"
)

// Owner identifies the owner of a ledger account. Real users are referenced
// by their user ID; a small fixed set of system owners is reserved for
// entries that create or absorb value.
type Owner string

const (
	// OwnerTreasury is the operational float account set; counterparty for
	// admin balance adjustments and treasury top-ups.
	OwnerTreasury Owner = "system:treasury"
	// OwnerEquity is the capital/equity account set; counterparty for
	// balance corrections that change the exchange's net position.
	OwnerEquity Owner = "system:equity"
	// OwnerBurn absorbs value permanently removed from circulation.
	OwnerBurn Owner = "system:burn"
	// OwnerIssuance is the source of newly issued value (deposits credited
	// before on-chain sweep, promo credit minting).
	OwnerIssuance Owner = "system:issuance"
)

// SystemOwners lists every reserved system owner.
var SystemOwners = []Owner{OwnerTreasury, OwnerEquity, OwnerBurn, OwnerIssuance}

// IsSystemOwner reports whether an owner is one of the reserved system owners.
func IsSystemOwner(owner Owner) bool {
	switch owner {
	case OwnerTreasury, OwnerEquity, OwnerBurn, OwnerIssuance:
		return true
	}
	return false
}

// ValidateOwner checks that an owner ID is non-empty and, if it uses the
// system prefix, that it names a known system owner.
func ValidateOwner(owner Owner) error {
	if strings.TrimSpace(string(owner)) == "" {
		return fmt.Errorf("%w: owner is empty", ErrInvalidInput)
	}
	if strings.HasPrefix(string(owner), "system:") && !IsSystemOwner(owner) {
		return fmt.Errorf("%w: unknown system owner %q", ErrInvalidInput, owner)
	}
	return nil
}

// EntryType is the closed taxonomy of journal entry types.
type EntryType string

const (
	EntryTypeTradeSettlement   EntryType = "trade_settlement"
	EntryTypeDeposit           EntryType = "deposit"
	EntryTypeWithdrawal        EntryType = "withdrawal"
	EntryTypeAdminAdjustment   EntryType = "admin_adjustment"
	EntryTypeHoldConsume       EntryType = "hold_consume"
	EntryTypeHoldReleaseAdjust EntryType = "hold_release_adjustment"
	EntryTypeTransfer          EntryType = "transfer"
	EntryTypeFee               EntryType = "fee"
)

// IsValidEntryType reports whether a type belongs to the closed taxonomy.
func IsValidEntryType(t EntryType) bool {
	switch t {
	case EntryTypeTradeSettlement, EntryTypeDeposit, EntryTypeWithdrawal,
		EntryTypeAdminAdjustment, EntryTypeHoldConsume,
		EntryTypeHoldReleaseAdjust, EntryTypeTransfer, EntryTypeFee:
		return true
	}
	return false
}

// AccountStatus is the lifecycle status of a ledger account.
type AccountStatus string

const (
	// AccountStatusActive accepts all operations.
	AccountStatusActive AccountStatus = "active"
	// AccountStatusFrozen rejects new holds and debits; credits still post
	// so in-flight settlements can complete. Used when an owner is
	// tombstoned or under review.
	AccountStatusFrozen AccountStatus = "frozen"
)

// HoldStatus is the lifecycle status of a hold.
type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "active"
	HoldStatusReleased HoldStatus = "released"
	HoldStatusConsumed HoldStatus = "consumed"
)
