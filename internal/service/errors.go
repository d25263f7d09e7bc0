package service

import "errors"

var (
	ErrNotFound    = errors.New("error not found")
	ErrFetchFailed = errors.New("error fetching security data")
)
