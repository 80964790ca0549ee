package services

import "errors"

// Sentinel errors surfaced to handlers. Anything not listed here is treated
// as a storage failure and mapped to a 500.
var (
	ErrTicketNotFound           = errors.New("ticket not found")
	ErrUserNotFound             = errors.New("user not found")
	ErrOrderNotFound            = errors.New("order not found")
	ErrInvalidTransition        = errors.New("invalid ticket status transition")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrUserExists               = errors.New("username or email already exists")
	ErrInvalidOrAlreadyRedeemed = errors.New("invalid or already redeemed code")
	ErrInsufficientPoints       = errors.New("insufficient points")
	ErrMinRedemption            = errors.New("minimum redemption is 500 points")
	ErrNotAuthorized            = errors.New("not authorized")
	ErrAlreadyReviewed          = errors.New("order already reviewed")
	ErrConflict                 = errors.New("duplicate value")
)
