package token

import "context"

// Repo is the durable side of a session: the two token entries that survive a
// restart. Implementations must treat the pair as one unit.
type Repo interface {
	// Load returns the persisted pair. A missing or incomplete pair is returned
	// as the zero Pair with a nil error.
	Load(ctx context.Context) (Pair, error)

	// Save replaces both entries.
	Save(ctx context.Context, pair Pair) error

	// Clear removes both entries. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
