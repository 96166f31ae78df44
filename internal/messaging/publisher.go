package messaging

import (
	"context"

	"github.com/tradeforge/ledger-core/internal/domain"
)

// Publisher defines the interface for publishing ledger events to a message
// broker. Publishing happens strictly after the database transaction
// commits; a failed publish never rolls back a posted entry.
type Publisher interface {
	// PublishEntryPosted publishes a committed journal entry
	PublishEntryPosted(ctx context.Context, event *domain.EntryPostedEvent) error
	// Close closes the connection
	Close()
}
