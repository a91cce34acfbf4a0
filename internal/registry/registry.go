// Package registry implements the entitlement registry: signature-authorized
// minting, validity-splitting transfers, and provider fee settlement, composed
// over the store, the signature authorizer, and the settlement currency.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/entitlement-registry/internal/adapter"
	"github.com/feral-file/entitlement-registry/internal/authorizer"
	"github.com/feral-file/entitlement-registry/internal/currency"
	"github.com/feral-file/entitlement-registry/internal/domain"
	"github.com/feral-file/entitlement-registry/internal/entitlement"
	"github.com/feral-file/entitlement-registry/internal/logger"
	"github.com/feral-file/entitlement-registry/internal/messaging"
	"github.com/feral-file/entitlement-registry/internal/store"
)

// MintParams carries one mint authorization. On the first mint of a content id
// the terms (provider, fee, royalty, validity, name) are fixed permanently;
// subsequent mints must present identical terms.
type MintParams struct {
	ContentID               *big.Int
	UnitValidity            uint64
	Holder                  common.Address
	RoyaltyRateMilliPercent *big.Int
	UnitFee                 *big.Int
	ServiceProvider         common.Address
	Name                    string
	Signature               []byte
}

// TransferResult reports the validity window and royalty settled by a transfer
type TransferResult struct {
	// RemainingValidity is the seconds of validity transplanted to the receiver
	RemainingValidity uint64
	// Royalty is the settlement amount pulled from the sender for the provider
	Royalty *big.Int
}

// Registry orchestrates mint, transfer, and withdrawal as atomic operations
// over the three state tables.
//
// All state-mutating calls are serialized behind one mutex so no two mints can
// verify against the same supply nonce and no transfer can interleave with a
// mint on the same holding. Reads take no lock; they observe committed state.
type Registry struct {
	mu         sync.Mutex
	address    common.Address
	store      store.Store
	auth       authorizer.Authorizer
	settlement currency.Settlement
	publisher  messaging.Publisher
	clock      adapter.Clock
}

// New creates a registry bound to address. Signatures verified by this
// instance must commit to the same address, which prevents cross-instance
// replay of mint authorizations.
func New(
	address common.Address,
	st store.Store,
	auth authorizer.Authorizer,
	settlement currency.Settlement,
	publisher messaging.Publisher,
	clock adapter.Clock,
) *Registry {
	return &Registry{
		address:    address,
		store:      st,
		auth:       auth,
		settlement: settlement,
		publisher:  publisher,
		clock:      clock,
	}
}

// Address returns the registry instance address signatures are bound to
func (r *Registry) Address() common.Address {
	return r.address
}

// Mint verifies a service-provider authorization for the next supply index of
// the content, pulls the unit fee from the holder, and grants one unit with a
// fresh validity window.
//
// Ordering inside the transaction: all local writes are staged first and the
// external fee pull runs last, so a failed payment rolls back every state
// change and a successful payment is followed only by the commit.
func (r *Registry) Mint(ctx context.Context, p MintParams) error {
	if p.UnitValidity > entitlement.MaxUnitValidity {
		return fmt.Errorf("unit validity %d exceeds maximum %d seconds", p.UnitValidity, entitlement.MaxUnitValidity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()

	record, err := r.store.GetContent(ctx, p.ContentID)
	firstMint := errors.Is(err, domain.ErrNotFound)
	if err != nil && !firstMint {
		return err
	}

	if firstMint {
		record = &domain.ContentRecord{
			ContentID:               new(big.Int).Set(p.ContentID),
			ServiceProvider:         p.ServiceProvider,
			UnitFee:                 new(big.Int).Set(p.UnitFee),
			RoyaltyRateMilliPercent: new(big.Int).Set(p.RoyaltyRateMilliPercent),
			UnitValidity:            p.UnitValidity,
			TotalSupply:             new(big.Int),
			Name:                    p.Name,
		}
	} else if err := matchTerms(record, p); err != nil {
		return err
	}

	// The signature commits to the supply as read before increment, so it
	// authorizes exactly this mint and no other.
	nonce := record.TotalSupply
	digest := r.auth.MintDigest(r.address, p.ContentID, nonce)
	if !r.auth.Verify(digest, p.Signature, record.ServiceProvider) {
		return domain.ErrBadAuthorization
	}

	err = r.store.Atomically(ctx, func(tx store.Store) error {
		if firstMint {
			if err := tx.CreateContent(ctx, record); err != nil {
				return err
			}
		}

		holding, err := tx.GetHolding(ctx, p.Holder, p.ContentID)
		if err != nil {
			return err
		}

		quantity := big.NewInt(1)
		if holding != nil {
			quantity.Add(quantity, holding.Quantity)
		}

		// Re-minting grants a fresh full window; it does not extend or
		// average the previous one.
		err = tx.UpsertHolding(ctx, &domain.Holding{
			Holder:    p.Holder,
			ContentID: p.ContentID,
			Quantity:  quantity,
			ExpiresAt: now.Add(time.Duration(record.UnitValidity) * time.Second),
		})
		if err != nil {
			return err
		}

		if err := tx.IncrementSupply(ctx, p.ContentID); err != nil {
			return err
		}

		if err := tx.AddFeeBalance(ctx, record.ServiceProvider, record.UnitFee); err != nil {
			return err
		}

		if err := r.settlement.TransferFrom(ctx, p.Holder, r.address, record.UnitFee); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.publish(ctx, &domain.RegistryEvent{
		EventID:         ulid.Make().String(),
		EventType:       domain.EventTypeNewAccess,
		Timestamp:       now.Unix(),
		ContentID:       p.ContentID.String(),
		ServiceProvider: record.ServiceProvider.Hex(),
		UnitValidity:    record.UnitValidity,
		UnitFee:         record.UnitFee.String(),
		Holder:          p.Holder.Hex(),
		RoyaltyRate:     record.RoyaltyRateMilliPercent.String(),
		ContentName:     record.Name,
	})

	return nil
}

// matchTerms rejects mints whose terms differ from the ones fixed at first mint
func matchTerms(record *domain.ContentRecord, p MintParams) error {
	switch {
	case record.ServiceProvider != p.ServiceProvider:
		return fmt.Errorf("%w: service provider %s does not match %s",
			domain.ErrTermsMismatch, p.ServiceProvider.Hex(), record.ServiceProvider.Hex())
	case record.UnitFee.Cmp(p.UnitFee) != 0:
		return fmt.Errorf("%w: unit fee %s does not match %s",
			domain.ErrTermsMismatch, p.UnitFee, record.UnitFee)
	case record.RoyaltyRateMilliPercent.Cmp(p.RoyaltyRateMilliPercent) != 0:
		return fmt.Errorf("%w: royalty rate %s does not match %s",
			domain.ErrTermsMismatch, p.RoyaltyRateMilliPercent, record.RoyaltyRateMilliPercent)
	case record.UnitValidity != p.UnitValidity:
		return fmt.Errorf("%w: unit validity %d does not match %d",
			domain.ErrTermsMismatch, p.UnitValidity, record.UnitValidity)
	case record.Name != p.Name:
		return fmt.Errorf("%w: name %q does not match %q",
			domain.ErrTermsMismatch, p.Name, record.Name)
	}
	return nil
}

// Transfer moves amount units of contentID from one holder to another. The
// receiver inherits the sender's entire remaining validity window as a fresh
// expiry; the sender pays the pro-rated royalty to the content's provider. An
// expired holding still transfers, with zero remaining validity and zero
// royalty.
func (r *Registry) Transfer(ctx context.Context, from, to common.Address, contentID *big.Int, amount *big.Int) (*TransferResult, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("transfer amount must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()

	record, err := r.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}

	var result TransferResult
	err = r.store.Atomically(ctx, func(tx store.Store) error {
		fromHolding, err := tx.GetHolding(ctx, from, contentID)
		if err != nil {
			return err
		}
		if fromHolding == nil || fromHolding.Quantity.Cmp(amount) < 0 {
			return domain.ErrInsufficientBalance
		}

		remaining := entitlement.Remaining(fromHolding.ExpiresAt, now)

		left := new(big.Int).Sub(fromHolding.Quantity, amount)
		if left.Sign() == 0 {
			// Full disposal clears the holding; no residual validity survives
			if err := tx.DeleteHolding(ctx, from, contentID); err != nil {
				return err
			}
		} else {
			fromHolding.Quantity = left
			if err := tx.UpsertHolding(ctx, fromHolding); err != nil {
				return err
			}
		}

		toQuantity := new(big.Int).Set(amount)
		toHolding, err := tx.GetHolding(ctx, to, contentID)
		if err != nil {
			return err
		}
		if toHolding != nil {
			toQuantity.Add(toQuantity, toHolding.Quantity)
		}

		// The sender's unconsumed window is transplanted unchanged onto the
		// receiver's whole holding of this content.
		err = tx.UpsertHolding(ctx, &domain.Holding{
			Holder:    to,
			ContentID: contentID,
			Quantity:  toQuantity,
			ExpiresAt: now.Add(time.Duration(remaining) * time.Second),
		})
		if err != nil {
			return err
		}

		royalty := entitlement.RoyaltyOwed(
			record.RoyaltyRateMilliPercent,
			record.UnitFee,
			remaining,
			record.UnitValidity,
		)

		if err := tx.AddFeeBalance(ctx, record.ServiceProvider, royalty); err != nil {
			return err
		}

		// The royalty pull is the last step so a refused payment rolls back
		// the holding mutations above.
		if royalty.Sign() > 0 {
			if err := r.settlement.TransferFrom(ctx, from, r.address, royalty); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
			}
		}

		result = TransferResult{RemainingValidity: remaining, Royalty: royalty}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.publish(ctx, &domain.RegistryEvent{
		EventID:         ulid.Make().String(),
		EventType:       domain.EventTypeTransferSingle,
		Timestamp:       now.Unix(),
		ContentID:       contentID.String(),
		ServiceProvider: record.ServiceProvider.Hex(),
		Operator:        from.Hex(),
		From:            from.Hex(),
		To:              to.Hex(),
		Quantity:        amount.String(),
		Royalty:         result.Royalty.String(),
	})

	return &result, nil
}

// WithdrawFee zeroes the provider's accrued balance and pays it out from the
// registry's custodial settlement balance. The zero and the payout commit
// together: a refused currency transfer restores the balance.
func (r *Registry) WithdrawFee(ctx context.Context, provider common.Address) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()

	var amount *big.Int
	err := r.store.Atomically(ctx, func(tx store.Store) error {
		var err error
		amount, err = tx.ZeroFeeBalance(ctx, provider)
		if err != nil {
			return err
		}
		if amount.Sign() == 0 {
			return domain.ErrNothingToWithdraw
		}

		if err := r.settlement.Transfer(ctx, provider, amount); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.publish(ctx, &domain.RegistryEvent{
		EventID:         ulid.Make().String(),
		EventType:       domain.EventTypeFeeWithdrawal,
		Timestamp:       now.Unix(),
		ServiceProvider: provider.Hex(),
		Withdrawn:       amount.String(),
	})

	return amount, nil
}

// CheckValidityLeft reports the seconds of validity left on a holding. A
// holder with no holding, or an expired one, reads zero.
func (r *Registry) CheckValidityLeft(ctx context.Context, holder common.Address, contentID *big.Int) (uint64, error) {
	holding, err := r.store.GetHolding(ctx, holder, contentID)
	if err != nil {
		return 0, err
	}
	if holding == nil {
		return 0, nil
	}
	return entitlement.Remaining(holding.ExpiresAt, r.clock.Now()), nil
}

// CheckNetRoyalty reports the royalty a transfer of the holding would owe the
// content's provider right now
func (r *Registry) CheckNetRoyalty(ctx context.Context, holder common.Address, contentID *big.Int) (*big.Int, error) {
	record, err := r.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}

	holding, err := r.store.GetHolding(ctx, holder, contentID)
	if err != nil {
		return nil, err
	}
	if holding == nil {
		return new(big.Int), nil
	}

	remaining := entitlement.Remaining(holding.ExpiresAt, r.clock.Now())
	return entitlement.RoyaltyOwed(
		record.RoyaltyRateMilliPercent,
		record.UnitFee,
		remaining,
		record.UnitValidity,
	), nil
}

// Content retrieves a content record
func (r *Registry) Content(ctx context.Context, contentID *big.Int) (*domain.ContentRecord, error) {
	return r.store.GetContent(ctx, contentID)
}

// SetURI updates a content's metadata URI; only the service provider may call it
func (r *Registry) SetURI(ctx context.Context, caller common.Address, contentID *big.Int, uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, err := r.store.GetContent(ctx, contentID)
	if err != nil {
		return err
	}
	if record.ServiceProvider != caller {
		return domain.ErrUnauthorized
	}

	return r.store.SetContentURI(ctx, contentID, uri)
}

// FeeBalance reports a provider's withdrawable balance
func (r *Registry) FeeBalance(ctx context.Context, provider common.Address) (*big.Int, error) {
	return r.store.GetFeeBalance(ctx, provider)
}

// publish sends a committed event to the broker; failures are logged, never
// surfaced, because the state change already committed
func (r *Registry) publish(ctx context.Context, event *domain.RegistryEvent) {
	if err := r.publisher.PublishEvent(ctx, event); err != nil {
		logger.Error(err,
			zap.String("event_id", event.EventID),
			zap.String("event_type", string(event.EventType)),
		)
	}
}
