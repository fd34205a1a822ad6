package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bobby-s-dev/weather-lookup/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestMessageFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"invalid query", apperr.New(apperr.KindInvalidQuery, ""), MsgInvalidQuery},
		{"offline", apperr.New(apperr.KindOffline, "No internet connection"), MsgOffline},
		{"timeout", apperr.Wrap(apperr.KindTimeout, context.DeadlineExceeded), MsgTimeout},
		{"parse", apperr.New(apperr.KindParseError, "bad json"), MsgGeneric},
		{"config", apperr.New(apperr.KindConfigError, "missing key"), MsgServer},
		{"404", apperr.Provider(404, "city not found"), MsgNotFound},
		{"not found text", apperr.Provider(400, "City not found"), MsgNotFound},
		{"401", apperr.Provider(401, "Invalid API key. Please see https://openweathermap.org/faq#error401"), MsgAuth},
		{"429", apperr.Provider(429, ""), MsgRateLimited},
		{"5xx", apperr.Provider(502, "Network error"), MsgServer},
		{"unreachable", &apperr.Error{Kind: apperr.KindProviderError, Message: "Failed to fetch", Err: errors.New("dial tcp: connection refused")}, MsgUnreachable},
		{"pass through", apperr.Provider(400, "Nothing to geocode"), "Nothing to geocode"},
		{"provider without message", apperr.Provider(418, ""), MsgGeneric},
		{"plain wrapped timeout", fmt.Errorf("get: %w", context.DeadlineExceeded), MsgTimeout},
		{"plain unknown", errors.New("kaboom"), MsgGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MessageFor(tt.err))
		})
	}
}
