// Package gateway talks to the same-origin weather proxy and translates its
// responses into the application's data model.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bobby-s-dev/weather-lookup/internal/apperr"
	"go.uber.org/zap"
)

const DefaultTimeout = 10 * time.Second

// Connectivity reports whether the host currently believes it is online.
type Connectivity interface {
	Online() bool
}

// ConnectivityFunc adapts a function to Connectivity.
type ConnectivityFunc func() bool

func (f ConnectivityFunc) Online() bool { return f() }

// AlwaysOnline is used when the platform exposes no connectivity signal.
var AlwaysOnline Connectivity = ConnectivityFunc(func() bool { return true })

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL      string // proxy origin, e.g. http://localhost:8080
	Timeout      time.Duration
	HTTPClient   HTTPClient
	Connectivity Connectivity
}

type base struct {
	baseURL string
	client  HTTPClient
	timeout time.Duration
	online  Connectivity
	logger  *zap.Logger
}

func newBase(cfg Config, logger *zap.Logger) base {
	b := base{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  cfg.HTTPClient,
		timeout: cfg.Timeout,
		online:  cfg.Connectivity,
		logger:  logger,
	}
	if b.client == nil {
		b.client = http.DefaultClient
	}
	if b.timeout <= 0 {
		b.timeout = DefaultTimeout
	}
	if b.online == nil {
		b.online = AlwaysOnline
	}
	return b
}

// transportError classifies a failed round trip using the request context.
func transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperr.Wrap(apperr.KindTimeout, err)
	case errors.Is(ctx.Err(), context.Canceled):
		return apperr.Wrap(apperr.KindCanceled, err)
	default:
		return &apperr.Error{Kind: apperr.KindProviderError, Message: "Failed to fetch", Err: err}
	}
}
