// Package entitlement holds the pure arithmetic of the registry: validity
// decay and pro-rated royalty computation. Nothing here touches storage or
// the settlement currency.
package entitlement

import (
	"math"
	"time"
)

// MaxUnitValidity is the largest validity window, in seconds, that fits in a
// time.Duration. Windows above it would wrap negative when converted, so they
// are rejected at mint time.
const MaxUnitValidity = uint64(math.MaxInt64 / int64(time.Second))

// Remaining returns the whole seconds of validity left on a holding expiring
// at expiresAt as observed at now. Never negative.
func Remaining(expiresAt time.Time, now time.Time) uint64 {
	if !expiresAt.After(now) {
		return 0
	}
	return uint64(expiresAt.Sub(now) / time.Second)
}
