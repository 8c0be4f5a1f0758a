package channel

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrChannelNotFound     = errors.New("channel not found")
	ErrChannelClosed       = errors.New("channel is closed")
	ErrUnknownParty        = errors.New("address is not a party to this channel")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadySettled      = errors.New("channel already settled")
	ErrNoSigner            = errors.New("no chain client configured")
	ErrSettleTimeout       = errors.New("on-chain settlement not confirmed in time")
	ErrSettleInFlight      = errors.New("on-chain settlement already in flight")
)
