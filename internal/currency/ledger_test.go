package currency_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/entitlement-registry/internal/currency"
)

var (
	custodian = common.HexToAddress("0x3ebac880caf0e76231837d19fba3b4119137aae1")
	alice     = common.HexToAddress("0x0b950d128f6a33651257f95cbaf59c02b7f6019f")
	bob       = common.HexToAddress("0x2b9cc1db0cf684f43a623990ae21213cc9f7460d")
)

func TestLedgerTransferFrom(t *testing.T) {
	ctx := context.Background()

	t.Run("moves approved funds", func(t *testing.T) {
		l := currency.NewLedger(custodian)
		l.Mint(alice, big.NewInt(100))
		l.Approve(alice, custodian, big.NewInt(60))

		require.NoError(t, l.TransferFrom(ctx, alice, custodian, big.NewInt(60)))

		aliceBal, err := l.BalanceOf(ctx, alice)
		require.NoError(t, err)
		assert.Zero(t, aliceBal.Cmp(big.NewInt(40)))

		custodianBal, err := l.BalanceOf(ctx, custodian)
		require.NoError(t, err)
		assert.Zero(t, custodianBal.Cmp(big.NewInt(60)))

		assert.Zero(t, l.Allowance(alice, custodian).Sign())
	})

	t.Run("rejects pulls beyond the approval", func(t *testing.T) {
		l := currency.NewLedger(custodian)
		l.Mint(alice, big.NewInt(100))
		l.Approve(alice, custodian, big.NewInt(10))

		err := l.TransferFrom(ctx, alice, custodian, big.NewInt(11))
		assert.ErrorIs(t, err, currency.ErrInsufficientAllowance)
	})

	t.Run("rejects pulls beyond the balance", func(t *testing.T) {
		l := currency.NewLedger(custodian)
		l.Mint(alice, big.NewInt(5))
		l.Approve(alice, custodian, big.NewInt(100))

		err := l.TransferFrom(ctx, alice, custodian, big.NewInt(6))
		assert.ErrorIs(t, err, currency.ErrInsufficientFunds)

		// failed pull leaves balance and allowance untouched
		bal, _ := l.BalanceOf(ctx, alice)
		assert.Zero(t, bal.Cmp(big.NewInt(5)))
		assert.Zero(t, l.Allowance(alice, custodian).Cmp(big.NewInt(100)))
	})

	t.Run("zero-amount pull needs no approval", func(t *testing.T) {
		l := currency.NewLedger(custodian)
		assert.NoError(t, l.TransferFrom(ctx, alice, custodian, new(big.Int)))
	})
}

func TestLedgerTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("spends the custodial balance", func(t *testing.T) {
		l := currency.NewLedger(custodian)
		l.Mint(custodian, big.NewInt(30))

		require.NoError(t, l.Transfer(ctx, bob, big.NewInt(30)))

		bobBal, err := l.BalanceOf(ctx, bob)
		require.NoError(t, err)
		assert.Zero(t, bobBal.Cmp(big.NewInt(30)))
	})

	t.Run("fails when the custodian is short", func(t *testing.T) {
		l := currency.NewLedger(custodian)
		err := l.Transfer(ctx, bob, big.NewInt(1))
		assert.ErrorIs(t, err, currency.ErrInsufficientFunds)
	})
}
