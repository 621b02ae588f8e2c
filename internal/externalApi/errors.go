package externalApi

import "errors"

var (
	ErrNotFound = errors.New("error not found")
	ErrNoData   = errors.New("error no data in response")
)
