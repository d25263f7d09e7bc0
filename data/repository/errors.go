package repository

import "errors"

var ErrQuoteStoreUnavailable = errors.New("quote store unavailable")
