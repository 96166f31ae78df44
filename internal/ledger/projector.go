package ledger

import (
	"context"

	"github.com/tradeforge/ledger-core/internal/store"
)

// Projector is the read path for balances. It serves the snapshot-backed
// projection by default and can reconstruct it from the journal, which is
// the ground truth; the snapshot is only ever an optimization.
type Projector struct {
	store store.Store
}

// NewProjector creates a projector over the given store.
func NewProjector(s store.Store) *Projector {
	return &Projector{store: s}
}

// Balance returns the cached posted/held/available projection.
func (p *Projector) Balance(ctx context.Context, accountID uint64) (*store.Balance, error) {
	return p.store.GetBalance(ctx, accountID)
}

// Reconstruct derives the projection by replaying the journal and active
// holds, bypassing the snapshot.
func (p *Projector) Reconstruct(ctx context.Context, accountID uint64) (*store.Balance, error) {
	return p.store.RecomputeBalance(ctx, accountID)
}
