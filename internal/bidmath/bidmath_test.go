package bidmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementFor(t *testing.T) {
	cases := []struct {
		name       string
		currentBid int64
		want       int64
	}{
		{name: "zero bid floors at unit", currentBid: 0, want: 5},
		{name: "small bid floors at unit", currentBid: 40, want: 5},
		{name: "exactly at floor boundary", currentBid: 100, want: 5},
		{name: "five percent rounds up", currentBid: 120, want: 10},
		{name: "mid-range lot", currentBid: 300, want: 15},
		{name: "non-round five percent", currentBid: 310, want: 20},
		{name: "large lot", currentBid: 1000, want: 50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IncrementFor(tc.currentBid))
		})
	}
}

func TestIncrementForProperties(t *testing.T) {
	for bid := int64(0); bid <= 5000; bid++ {
		inc := IncrementFor(bid)
		require.GreaterOrEqual(t, inc, int64(5), "bid %d", bid)
		require.Zero(t, inc%5, "bid %d increment %d not a multiple of 5", bid, inc)
	}
}

func TestMinimumBid(t *testing.T) {
	cur := func(v int64) *int64 { return &v }

	cases := []struct {
		name        string
		startingBid int64
		currentBid  *int64
		want        int64
	}{
		{name: "no bids yet means starting bid", startingBid: 100, currentBid: nil, want: 100},
		{name: "first bid at starting amount", startingBid: 100, currentBid: cur(100), want: 105},
		{name: "mid-range current bid", startingBid: 100, currentBid: cur(300), want: 315},
		{name: "zero starting bid", startingBid: 0, currentBid: nil, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MinimumBid(tc.startingBid, tc.currentBid))
		})
	}
}

// MinimumBid must be strictly increasing in the current bid so that two
// successive accepted bids can never demand the same next amount.
func TestMinimumBidStrictlyIncreasing(t *testing.T) {
	prev := MinimumBid(100, nil)
	for bid := int64(100); bid <= 3000; bid++ {
		b := bid
		min := MinimumBid(100, &b)
		require.Greater(t, min, bid, "minimum must exceed current bid %d", bid)
		require.Greater(t, min, prev, "minimum did not increase at bid %d", bid)
		prev = min
	}
}

func TestNudge(t *testing.T) {
	assert.Equal(t, int64(110), NudgeUp(105, 100))
	assert.Equal(t, int64(105), NudgeDown(110, 100, 105))
	// stepping down at the minimum stays at the minimum
	assert.Equal(t, int64(105), NudgeDown(105, 100, 105))
}
