// SPDX-License-Identifier: MIT

package apierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := map[Kind]int{
		KindTransportUnavailable: 503,
		KindValidation:           422,
		KindAuth:                 401,
		KindStorage:              500,
		KindConfig:               409,
	}
	for kind, want := range cases {
		require.Equal(t, want, StatusCode(kind))
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Storage("cleanup failed", cause)
	require.ErrorIs(t, err, cause)
}

func TestAsUnwrapsThroughFmtErrorf(t *testing.T) {
	inner := TransportUnavailable("broker not connected")
	wrapped := fmt.Errorf("publish pulse: %w", inner)

	got, ok := As(wrapped)
	require.True(t, ok)
	require.Equal(t, KindTransportUnavailable, got.Kind)
}
