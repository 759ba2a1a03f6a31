package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrBadCredentials     = errors.New("bad credentials")
	ErrAuthUnavailable    = errors.New("authentication service unavailable")
	ErrProtocol           = errors.New("unexpected upstream response")
	ErrUnsupportedLink    = errors.New("link not supported by premium service")
	ErrInvalidPremiumKey  = errors.New("invalid premium api key")
	ErrInvalidProxyURL    = errors.New("invalid proxy url")
	ErrBlockedProxyTarget = errors.New("blocked proxy target")
)
