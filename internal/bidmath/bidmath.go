// Package bidmath holds the bid-increment arithmetic. All functions are
// pure; amounts are whole currency units.
package bidmath

import "math"

// IncrementUnit is the granularity every increment is rounded up to, and
// the floor for the increment itself.
const IncrementUnit int64 = 5

// IncrementFor returns the required increment over currentBid for the
// next legal bid: five percent of the current bid, at least IncrementUnit,
// rounded up to the nearest IncrementUnit.
func IncrementFor(currentBid int64) int64 {
	raw := float64(currentBid) * 0.05
	if raw < float64(IncrementUnit) {
		raw = float64(IncrementUnit)
	}
	return int64(math.Ceil(raw/float64(IncrementUnit))) * IncrementUnit
}

// MinimumBid returns the lowest amount the next bid may carry. With no
// current bid the starting bid itself is legal; otherwise the current bid
// plus its increment.
func MinimumBid(startingBid int64, currentBid *int64) int64 {
	if currentBid == nil {
		return startingBid
	}
	return *currentBid + IncrementFor(*currentBid)
}

// NudgeUp returns the stepper value one increment above amount, relative
// to the lot's current bid.
func NudgeUp(amount, currentBid int64) int64 {
	return amount + IncrementFor(currentBid)
}

// NudgeDown returns the stepper value one increment below amount, never
// going under the minimum legal bid.
func NudgeDown(amount, currentBid int64, minimum int64) int64 {
	next := amount - IncrementFor(currentBid)
	if next < minimum {
		return minimum
	}
	return next
}
