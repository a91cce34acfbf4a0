package entitlement

import "math/big"

var milliPercentDenominator = big.NewInt(1000)

// RoyaltyOwed computes the pro-rated fee owed to a service provider when a
// partially-consumed entitlement changes hands:
//
//	rateMilliPercent * unitFee * remainingValidity / (unitValidity * 1000)
//
// The numerator is multiplied out in full before the single truncating
// division so no precision is lost to intermediate rounding. A zero
// unitValidity yields zero rather than dividing by zero; such a content grants
// no window, so no unconsumed value exists to compensate.
func RoyaltyOwed(rateMilliPercent *big.Int, unitFee *big.Int, remainingValidity uint64, unitValidity uint64) *big.Int {
	if unitValidity == 0 || remainingValidity == 0 {
		return new(big.Int)
	}

	num := new(big.Int).Mul(rateMilliPercent, unitFee)
	num.Mul(num, new(big.Int).SetUint64(remainingValidity))

	den := new(big.Int).SetUint64(unitValidity)
	den.Mul(den, milliPercentDenominator)

	return num.Quo(num, den)
}
