// Package repository holds the MySQL access for the identity provider
// adapter.  Sentinel errors let the identity service tell failure
// scenarios apart without looking at driver errors.
package repository

import "errors"

// ErrEmailExists is returned by UserRepo.Create when the email is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrTokenInvalid is returned for refresh tokens that are unknown,
// revoked or expired.
var ErrTokenInvalid = errors.New("refresh token invalid")
