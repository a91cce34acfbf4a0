package entitlement_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/entitlement-registry/internal/entitlement"
)

// ether scales a whole-unit amount into the 18-decimal settlement denomination
func ether(n int64) *big.Int {
	wei := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return wei.Mul(wei, big.NewInt(n))
}

func TestRoyaltyOwed(t *testing.T) {
	rate := big.NewInt(10)
	fee := ether(100)

	t.Run("reproduces the reference figures", func(t *testing.T) {
		// rate 10, fee 100e18, validity 5000, remaining 4000 -> 0.8e18
		got := entitlement.RoyaltyOwed(rate, fee, 4000, 5000)

		want, ok := new(big.Int).SetString("800000000000000000", 10)
		require.True(t, ok)
		assert.Zero(t, got.Cmp(want))
	})

	t.Run("is zero with no remaining validity", func(t *testing.T) {
		assert.Zero(t, entitlement.RoyaltyOwed(rate, fee, 0, 5000).Sign())
	})

	t.Run("equals rate*fee/1000 at full validity", func(t *testing.T) {
		got := entitlement.RoyaltyOwed(rate, fee, 5000, 5000)

		want := new(big.Int).Mul(rate, fee)
		want.Quo(want, big.NewInt(1000))
		assert.Zero(t, got.Cmp(want))
	})

	t.Run("is monotonically non-decreasing in remaining validity", func(t *testing.T) {
		prev := new(big.Int)
		for remaining := uint64(0); remaining <= 5000; remaining += 250 {
			got := entitlement.RoyaltyOwed(rate, fee, remaining, 5000)
			assert.True(t, got.Cmp(prev) >= 0, "royalty decreased at remaining=%d", remaining)
			prev = got
		}
	})

	t.Run("truncates toward zero", func(t *testing.T) {
		// 7 * 3 * 1 / (2 * 1000) = 21/2000 -> 0
		got := entitlement.RoyaltyOwed(big.NewInt(7), big.NewInt(3), 1, 2)
		assert.Zero(t, got.Sign())
	})

	t.Run("handles zero unit validity without dividing by zero", func(t *testing.T) {
		assert.Zero(t, entitlement.RoyaltyOwed(rate, fee, 100, 0).Sign())
	})

	t.Run("does not mutate its inputs", func(t *testing.T) {
		rateCopy := new(big.Int).Set(rate)
		feeCopy := new(big.Int).Set(fee)
		entitlement.RoyaltyOwed(rate, fee, 4000, 5000)
		assert.Zero(t, rate.Cmp(rateCopy))
		assert.Zero(t, fee.Cmp(feeCopy))
	})
}
