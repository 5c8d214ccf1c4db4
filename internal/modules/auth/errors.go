package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidRole        = errors.New("role must be teacher or student")
	ErrUnauthorized       = errors.New("unauthorized")
)
