package model

import (
	"context"
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"invalid boundary", eris.Wrap(ErrInvalidBoundary, "geo: zero area"), CodeInvalidBoundary},
		{"auth", eris.Wrap(ErrAuthentication, "spectral: rejected"), CodeAuthentication},
		{"data", eris.Wrapf(ErrDataUnavailable, "cell %d", 3), CodeDataUnavailable},
		{"canceled", eris.Wrap(context.Canceled, "analysis"), CodeCanceled},
		{"deadline", context.DeadlineExceeded, CodeCanceled},
		{"other", errors.New("boom"), CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}
