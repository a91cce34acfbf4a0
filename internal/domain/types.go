package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ContentID is the u256 identifier of a piece of content
type ContentID = *big.Int

// Amount is a u256 settlement-currency amount
type Amount = *big.Int

// ParseUint256 parses a decimal string into a non-negative u256 value.
// It rejects negative values and values wider than 256 bits.
func ParseUint256(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal number %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative value %q", s)
	}
	if v.BitLen() > 256 {
		return nil, fmt.Errorf("value %q exceeds 256 bits", s)
	}
	return v, nil
}

// ParseAddress parses a hex string into an Ethereum address
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// ContentRecord is the per-content registration fixed at first mint.
// ServiceProvider is immutable once set; TotalSupply only ever increases.
type ContentRecord struct {
	ContentID       ContentID
	ServiceProvider common.Address
	// UnitFee is the settlement-currency cost per minted unit
	UnitFee Amount
	// RoyaltyRateMilliPercent is the transfer royalty in parts-per-thousand of UnitFee
	RoyaltyRateMilliPercent Amount
	// UnitValidity is the validity window granted per minted unit, in seconds
	UnitValidity uint64
	// TotalSupply counts units ever minted and doubles as the mint nonce
	TotalSupply Amount
	Name        string
	URI         string
}

// Holding is one holder's position in one content id: a quantity sharing a
// single decaying validity window
type Holding struct {
	Holder    common.Address
	ContentID ContentID
	Quantity  Amount
	ExpiresAt time.Time
}

// FeeBalance is a service provider's accrued withdrawable settlement balance
type FeeBalance struct {
	ServiceProvider common.Address
	Withdrawable    Amount
}
