package domain

import "errors"

var (
	// ErrBadAuthorization is returned when a mint authorization signature does not
	// verify against the content's service provider for the current supply nonce
	ErrBadAuthorization = errors.New("bad authorization")

	// ErrPaymentFailed is returned when the settlement currency refuses a pull
	// (insufficient balance or missing approval)
	ErrPaymentFailed = errors.New("payment failed")

	// ErrInsufficientBalance is returned when a transfer amount exceeds the holding
	ErrInsufficientBalance = errors.New("insufficient entitlement balance")

	// ErrUnauthorized is returned when a caller is not the content's service provider
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when a content record does not exist
	ErrNotFound = errors.New("content not found")

	// ErrNothingToWithdraw is returned when a provider withdraws a zero fee balance
	ErrNothingToWithdraw = errors.New("nothing to withdraw")

	// ErrTransferFailed is returned when the settlement currency refuses an outbound
	// transfer during fee withdrawal
	ErrTransferFailed = errors.New("currency transfer failed")

	// ErrTermsMismatch is returned when a mint presents fee, royalty, validity or
	// name terms that differ from the ones fixed at the content's first mint
	ErrTermsMismatch = errors.New("content terms mismatch")
)
