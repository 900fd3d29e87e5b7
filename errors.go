package gotweet

import (
	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
)

// Sentinel errors matched with errors.Is against an *APIError.
var (
	ErrBadRequest      = pkgerrs.ErrBadRequest
	ErrUnauthorized    = pkgerrs.ErrUnauthorized
	ErrForbidden       = pkgerrs.ErrForbidden
	ErrNotFound        = pkgerrs.ErrNotFound
	ErrConflict        = pkgerrs.ErrConflict
	ErrTooManyRequests = pkgerrs.ErrTooManyRequests
	ErrServer          = pkgerrs.ErrServer

	// ErrIteratorDone is returned by iterators once every item has been consumed.
	ErrIteratorDone = internal.ErrIteratorDone
)

type (
	APIError        = pkgerrs.APIError
	ConfigError     = pkgerrs.ConfigError
	ValidationError = pkgerrs.ValidationError
	AuthError       = pkgerrs.AuthError
	StateError      = pkgerrs.StateError
	RequestError    = pkgerrs.RequestError
	ParseError      = pkgerrs.ParseError
	ClientError     = pkgerrs.ClientError
)
