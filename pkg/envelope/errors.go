package envelope

import "errors"

// Error kinds returned by Codec.Decrypt, matching the taxonomy observable
// at the auth gate boundary.
var (
	ErrInvalidFormat  = errors.New("envelope: invalid token format")
	ErrInvalidPadding = errors.New("envelope: invalid padding")
	ErrInvalidPayload = errors.New("envelope: invalid token data")
	ErrExpired        = errors.New("envelope: token has expired")
	ErrIPMismatch     = errors.New("envelope: ip mismatch")
	ErrInternal       = errors.New("envelope: internal serialization error")
)
