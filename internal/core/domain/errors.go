package domain

import "errors"

var (
	ErrTokenExchange    = errors.New("failed to exchange code for token")
	ErrFetchUser        = errors.New("failed to fetch user data")
	ErrCodeAlreadyUsed  = errors.New("authorization code already used")
	ErrMissingCode      = errors.New("missing authorization code")
	ErrInvalidRole      = errors.New("invalid role")
	ErrNotAuthenticated = errors.New("session is not authenticated")
	ErrSessionNotFound  = errors.New("session not found")
	ErrForbidden        = errors.New("access forbidden")
)
