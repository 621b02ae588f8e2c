package service

import "errors"

var (
	ErrNotFound         = errors.New("error not found")
	ErrAlreadyExists    = errors.New("error already exists")
	ErrInvalidInput     = errors.New("error invalid input")
	ErrPriceUnavailable = errors.New("error price unavailable")
	ErrStorageDisabled  = errors.New("error cloud storage disabled")
)
