package tip

import "errors"

// Every write operation fails with exactly one of these. They abort the
// call before any owned record is persisted; callers discriminate with
// errors.Is.
var (
	// ErrUnauthorized means the caller's proof does not cover the named
	// participant.
	ErrUnauthorized = errors.New("caller does not control participant")

	// ErrInvalidAmount means the amount was zero or negative.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrSelfTip means sender and recipient are the same participant.
	ErrSelfTip = errors.New("cannot send a tip to yourself")

	// ErrMessageTooLong means the tip message exceeds MaxMessageChars.
	ErrMessageTooLong = errors.New("message exceeds 256 characters")

	// ErrNoBalance means a withdrawal was attempted with no balance record
	// for the (participant, token) pair.
	ErrNoBalance = errors.New("no balance to withdraw")

	// ErrInsufficientBalance means the withdrawal exceeds the available
	// amount.
	ErrInsufficientBalance = errors.New("insufficient available balance")

	// ErrTransferFailed means the external asset movement was rejected.
	ErrTransferFailed = errors.New("asset transfer failed")
)
