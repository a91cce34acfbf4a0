package store_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/entitlement-registry/internal/domain"
	"github.com/feral-file/entitlement-registry/internal/store"
)

var (
	provider = common.HexToAddress("0xc75fbf7cd0b58e1fff9b91a2d5b0682ef0880b22")
	holder   = common.HexToAddress("0x0b950d128f6a33651257f95cbaf59c02b7f6019f")
)

func newContentRecord(id int64) *domain.ContentRecord {
	return &domain.ContentRecord{
		ContentID:               big.NewInt(id),
		ServiceProvider:         provider,
		UnitFee:                 big.NewInt(100),
		RoyaltyRateMilliPercent: big.NewInt(10),
		UnitValidity:            5000,
		TotalSupply:             new(big.Int),
		Name:                    "content",
		URI:                     "ipfs://content",
	}
}

func TestMemoryStoreContent(t *testing.T) {
	ctx := context.Background()

	t.Run("get of unknown content fails with not found", func(t *testing.T) {
		s := store.NewMemoryStore()
		_, err := s.GetContent(ctx, big.NewInt(7))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("create then get round-trips", func(t *testing.T) {
		s := store.NewMemoryStore()
		require.NoError(t, s.CreateContent(ctx, newContentRecord(0)))

		got, err := s.GetContent(ctx, big.NewInt(0))
		require.NoError(t, err)
		assert.Equal(t, provider, got.ServiceProvider)
		assert.Equal(t, uint64(5000), got.UnitValidity)
		assert.Zero(t, got.TotalSupply.Sign())
	})

	t.Run("duplicate create fails", func(t *testing.T) {
		s := store.NewMemoryStore()
		require.NoError(t, s.CreateContent(ctx, newContentRecord(0)))
		assert.Error(t, s.CreateContent(ctx, newContentRecord(0)))
	})

	t.Run("increment supply advances the nonce", func(t *testing.T) {
		s := store.NewMemoryStore()
		require.NoError(t, s.CreateContent(ctx, newContentRecord(0)))
		require.NoError(t, s.IncrementSupply(ctx, big.NewInt(0)))
		require.NoError(t, s.IncrementSupply(ctx, big.NewInt(0)))

		got, err := s.GetContent(ctx, big.NewInt(0))
		require.NoError(t, err)
		assert.Zero(t, got.TotalSupply.Cmp(big.NewInt(2)))
	})

	t.Run("set uri on unknown content fails with not found", func(t *testing.T) {
		s := store.NewMemoryStore()
		assert.ErrorIs(t, s.SetContentURI(ctx, big.NewInt(9), "ipfs://x"), domain.ErrNotFound)
	})
}

func TestMemoryStoreHoldings(t *testing.T) {
	ctx := context.Background()
	expires := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("absent holding reads as nil", func(t *testing.T) {
		s := store.NewMemoryStore()
		got, err := s.GetHolding(ctx, holder, big.NewInt(0))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("upsert replaces quantity and expiry", func(t *testing.T) {
		s := store.NewMemoryStore()
		require.NoError(t, s.UpsertHolding(ctx, &domain.Holding{
			Holder: holder, ContentID: big.NewInt(0),
			Quantity: big.NewInt(1), ExpiresAt: expires,
		}))
		require.NoError(t, s.UpsertHolding(ctx, &domain.Holding{
			Holder: holder, ContentID: big.NewInt(0),
			Quantity: big.NewInt(3), ExpiresAt: expires.Add(time.Hour),
		}))

		got, err := s.GetHolding(ctx, holder, big.NewInt(0))
		require.NoError(t, err)
		assert.Zero(t, got.Quantity.Cmp(big.NewInt(3)))
		assert.True(t, got.ExpiresAt.Equal(expires.Add(time.Hour)))
	})

	t.Run("delete clears the holding", func(t *testing.T) {
		s := store.NewMemoryStore()
		require.NoError(t, s.UpsertHolding(ctx, &domain.Holding{
			Holder: holder, ContentID: big.NewInt(0),
			Quantity: big.NewInt(1), ExpiresAt: expires,
		}))
		require.NoError(t, s.DeleteHolding(ctx, holder, big.NewInt(0)))

		got, err := s.GetHolding(ctx, holder, big.NewInt(0))
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestMemoryStoreFeeBalances(t *testing.T) {
	ctx := context.Background()

	t.Run("uncredited provider reads zero", func(t *testing.T) {
		s := store.NewMemoryStore()
		got, err := s.GetFeeBalance(ctx, provider)
		require.NoError(t, err)
		assert.Zero(t, got.Sign())
	})

	t.Run("credits accumulate and zero returns the prior value", func(t *testing.T) {
		s := store.NewMemoryStore()
		require.NoError(t, s.AddFeeBalance(ctx, provider, big.NewInt(100)))
		require.NoError(t, s.AddFeeBalance(ctx, provider, big.NewInt(20)))

		prior, err := s.ZeroFeeBalance(ctx, provider)
		require.NoError(t, err)
		assert.Zero(t, prior.Cmp(big.NewInt(120)))

		got, err := s.GetFeeBalance(ctx, provider)
		require.NoError(t, err)
		assert.Zero(t, got.Sign())
	})
}

func TestMemoryStoreAtomically(t *testing.T) {
	ctx := context.Background()

	t.Run("commits all writes on success", func(t *testing.T) {
		s := store.NewMemoryStore()
		err := s.Atomically(ctx, func(tx store.Store) error {
			if err := tx.CreateContent(ctx, newContentRecord(0)); err != nil {
				return err
			}
			return tx.AddFeeBalance(ctx, provider, big.NewInt(5))
		})
		require.NoError(t, err)

		_, err = s.GetContent(ctx, big.NewInt(0))
		assert.NoError(t, err)

		balance, err := s.GetFeeBalance(ctx, provider)
		require.NoError(t, err)
		assert.Zero(t, balance.Cmp(big.NewInt(5)))
	})

	t.Run("discards all writes on failure", func(t *testing.T) {
		s := store.NewMemoryStore()
		boom := errors.New("boom")

		err := s.Atomically(ctx, func(tx store.Store) error {
			if err := tx.CreateContent(ctx, newContentRecord(0)); err != nil {
				return err
			}
			if err := tx.AddFeeBalance(ctx, provider, big.NewInt(5)); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = s.GetContent(ctx, big.NewInt(0))
		assert.ErrorIs(t, err, domain.ErrNotFound)

		balance, err := s.GetFeeBalance(ctx, provider)
		require.NoError(t, err)
		assert.Zero(t, balance.Sign())
	})

	t.Run("reads inside the transaction observe staged writes", func(t *testing.T) {
		s := store.NewMemoryStore()
		err := s.Atomically(ctx, func(tx store.Store) error {
			if err := tx.CreateContent(ctx, newContentRecord(0)); err != nil {
				return err
			}
			if err := tx.IncrementSupply(ctx, big.NewInt(0)); err != nil {
				return err
			}
			got, err := tx.GetContent(ctx, big.NewInt(0))
			if err != nil {
				return err
			}
			assert.Zero(t, got.TotalSupply.Cmp(big.NewInt(1)))
			return nil
		})
		require.NoError(t, err)
	})
}
