package ailink

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tutorlink/tutorlink/internal/ailink/driver"
)

func TestClassifyProviderErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		wantCode   string
	}{
		{"auth", 401, CodeAuth},
		{"forbidden", 403, CodeAuth},
		{"rate", 429, CodeRateLimit},
		{"bad", 400, CodeBadRequest},
		{"unavail", 503, CodeUnavailable},
		{"no status", 0, CodeError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := &driver.ProviderError{Provider: "openai", StatusCode: tc.statusCode, Message: "boom"}
			mapped := ClassifyProviderError(err)
			require.NotNil(t, mapped)
			require.Equal(t, tc.wantCode, mapped.Code)
			require.Equal(t, tc.wantCode, mapped.ErrorCode())
			require.ErrorIs(t, mapped, err)
		})
	}
}

func TestClassifyProviderErrorTimeout(t *testing.T) {
	err := fmt.Errorf("request failed: %w", context.DeadlineExceeded)
	mapped := ClassifyProviderError(err)
	require.Equal(t, CodeTimeout, mapped.Code)
	require.ErrorIs(t, mapped, context.DeadlineExceeded)
}

func TestClassifyProviderErrorPassthrough(t *testing.T) {
	require.Nil(t, ClassifyProviderError(nil))

	original := &ProviderFailure{Code: CodeNotReady, Message: "no provider"}
	require.Same(t, original, ClassifyProviderError(fmt.Errorf("wrapped: %w", original)))

	mapped := ClassifyProviderError(errors.New("dial tcp: refused"))
	require.Equal(t, CodeError, mapped.Code)
	require.Contains(t, mapped.Error(), "refused")
}
