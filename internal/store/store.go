package store

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/entitlement-registry/internal/domain"
)

// Store defines the interface for registry state operations over the three
// owned tables: content records, holdings, and fee balances.
//
// Lookups that find nothing return (nil, domain.ErrNotFound) for content and
// (nil, nil) for holdings, because an absent holding is an ordinary state
// (quantity zero) while an absent content record is an error to most callers.
type Store interface {
	// GetContent retrieves a content record by its content id
	GetContent(ctx context.Context, contentID *big.Int) (*domain.ContentRecord, error)
	// CreateContent creates a content record; the caller guarantees the id is unseen
	CreateContent(ctx context.Context, record *domain.ContentRecord) error
	// IncrementSupply advances a content's total supply by one, consuming the mint nonce
	IncrementSupply(ctx context.Context, contentID *big.Int) error
	// SetContentURI updates a content's metadata URI
	SetContentURI(ctx context.Context, contentID *big.Int, uri string) error

	// GetHolding retrieves a (holder, content id) holding, or nil if none exists
	GetHolding(ctx context.Context, holder common.Address, contentID *big.Int) (*domain.Holding, error)
	// UpsertHolding creates or replaces a holding's quantity and expiry
	UpsertHolding(ctx context.Context, holding *domain.Holding) error
	// DeleteHolding removes a fully disposed holding
	DeleteHolding(ctx context.Context, holder common.Address, contentID *big.Int) error

	// GetFeeBalance reports a provider's withdrawable balance (zero if never credited)
	GetFeeBalance(ctx context.Context, provider common.Address) (*big.Int, error)
	// AddFeeBalance credits amount to a provider's withdrawable balance
	AddFeeBalance(ctx context.Context, provider common.Address, amount *big.Int) error
	// ZeroFeeBalance zeroes a provider's balance and returns the prior value
	ZeroFeeBalance(ctx context.Context, provider common.Address) (*big.Int, error)

	// Atomically runs fn against a transactional view of the store; all writes
	// commit together or not at all
	Atomically(ctx context.Context, fn func(Store) error) error
}
