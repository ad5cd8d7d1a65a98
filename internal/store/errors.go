package store

import "errors"

var (
	ErrLotNotFound  = errors.New("lot not found")
	ErrLotNotActive = errors.New("lot is not accepting bids")
	ErrBidTooLow    = errors.New("bid amount is below the minimum")
)
