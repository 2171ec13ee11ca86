package apperrors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInviteUsed          = errors.New("invite already used")
	ErrInviteEmailMismatch = errors.New("invite not issued for this email")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)
