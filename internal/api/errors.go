package api

import "errors"

var (
	ErrRateLimited = errors.New("rate limited by API")
	ErrServer      = errors.New("server error")
)
