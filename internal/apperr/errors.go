// Package apperr holds sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrTimeout       = errors.New("timeout")
	ErrCreateFailed  = errors.New("create failed")
	ErrClosed        = errors.New("closed")
)
