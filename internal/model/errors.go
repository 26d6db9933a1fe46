package model

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
)

// Error kinds shared across the analysis engine.
var (
	ErrInvalidBoundary   = eris.New("invalid boundary")
	ErrDataUnavailable   = eris.New("spectral data unavailable")
	ErrAuthentication    = eris.New("authentication failure")
	ErrIntersectionCheck = eris.New("intersection check failed")
	ErrChannelDelivery   = eris.New("progress delivery failed")
)

// Wire codes carried by analysis-error events.
const (
	CodeInvalidBoundary = "invalid_boundary"
	CodeDataUnavailable = "data_unavailable"
	CodeAuthentication  = "authentication_failure"
	CodeCanceled        = "canceled"
	CodeInternal        = "internal"
)

// ErrorCode maps an error to its wire code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidBoundary):
		return CodeInvalidBoundary
	case errors.Is(err, ErrAuthentication):
		return CodeAuthentication
	case errors.Is(err, ErrDataUnavailable):
		return CodeDataUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	default:
		return CodeInternal
	}
}
