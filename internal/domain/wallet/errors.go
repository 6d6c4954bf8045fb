package wallet

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrBelowMinimum        = errors.New("amount below minimum withdrawal")
	ErrInsufficientFunds   = errors.New("insufficient wallet balance")
	ErrUnknownMethod       = errors.New("unknown payment method")
	ErrNotLoggedIn         = errors.New("not logged in")
	ErrTransactionRejected = errors.New("transaction rejected")
)
