// Package currency defines the settlement-currency boundary the registry
// settles through. The registry only moves currency; it never mints or burns.
package currency

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Settlement is the external fungible-balance collaborator. TransferFrom pulls
// from a previously approved allowance; Transfer spends the registry's own
// custodial balance.
type Settlement interface {
	// TransferFrom moves amount from owner to recipient against owner's approval
	TransferFrom(ctx context.Context, owner common.Address, recipient common.Address, amount *big.Int) error

	// Transfer moves amount from the registry's custodial balance to recipient
	Transfer(ctx context.Context, recipient common.Address, amount *big.Int) error

	// BalanceOf reports the settlement balance of an account
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
}
