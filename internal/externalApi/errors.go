package externalApi

import "errors"

var (
	ErrNotFound       = errors.New("error not found")
	ErrUnexpectedResp = errors.New("unexpected response")
)
