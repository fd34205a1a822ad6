// Package search drives the lookup panel: debounced suggestions, one live
// weather request at a time, and the welcome/loading/result/error states.
package search

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bobby-s-dev/weather-lookup/internal/apperr"
	"github.com/bobby-s-dev/weather-lookup/internal/gateway"
	"github.com/bobby-s-dev/weather-lookup/internal/models"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const DefaultDebounce = 300 * time.Millisecond

type Deps struct {
	Weather     WeatherFetcher
	Suggestions SuggestionFetcher
	History     History
	Presenter   Presenter
	Logger      *zap.Logger
}

type Option func(*Controller)

// WithClock replaces the wall clock driving the debounce timer.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// Controller serializes all state changes behind one mutex; network calls
// run on their own goroutines and report back through it.
type Controller struct {
	mu sync.Mutex

	weather     WeatherFetcher
	suggestions SuggestionFetcher
	history     History
	view        Presenter
	logger      *zap.Logger
	clock       clockwork.Clock
	debounce    time.Duration

	ctx  context.Context
	stop context.CancelFunc

	panel      State // Welcome, Loading, Result or Error
	suggesting bool
	closed     bool

	timer         clockwork.Timer
	debounceGen   uint64
	suggestCancel context.CancelFunc

	seq     uint64
	cancel  context.CancelFunc
	settled chan struct{}
}

func New(deps Deps, opts ...Option) *Controller {
	ctx, stop := context.WithCancel(context.Background())
	c := &Controller{
		weather:     deps.Weather,
		suggestions: deps.Suggestions,
		history:     deps.History,
		view:        deps.Presenter,
		logger:      deps.Logger,
		clock:       clockwork.NewRealClock(),
		debounce:    DefaultDebounce,
		ctx:         ctx,
		stop:        stop,
		panel:       StateWelcome,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins the session: the last successful city is searched again,
// otherwise the welcome panel is shown.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if city, ok := c.history.LastCity(); ok {
		c.logger.Debug("Restoring last city", zap.String("city", city))
		c.submitLocked(city)
		return
	}
	c.showWelcomeLocked()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suggesting {
		return StateSuggesting
	}
	return c.panel
}

// Input handles a change of the search text.
func (c *Controller) Input(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	query := strings.TrimSpace(text)
	if query == "" {
		c.clearLocked()
		return
	}

	c.cancelDebounceLocked()
	if utf8.RuneCountInString(query) < gateway.MinQueryLength {
		c.hideSuggestionsLocked()
		return
	}

	gen := c.debounceGen
	c.timer = c.clock.AfterFunc(c.debounce, func() {
		c.loadSuggestions(gen, query)
	})
}

func (c *Controller) loadSuggestions(gen uint64, query string) {
	c.mu.Lock()
	if gen != c.debounceGen || c.closed {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	ctx, cancel := context.WithCancel(c.ctx)
	c.suggestCancel = cancel
	c.mu.Unlock()
	defer cancel()

	list := c.suggestions.FetchSuggestions(ctx, query)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.debounceGen || c.closed {
		return
	}
	c.suggestCancel = nil

	c.suggesting = true
	if len(list) == 0 {
		c.view.HideSuggestions()
		return
	}
	c.view.RenderSuggestions(list)
}

// Submit searches for the given text.
func (c *Controller) Submit(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.submitLocked(text)
}

// Select searches for a picked suggestion or history entry.
func (c *Controller) Select(text string) {
	c.Submit(text)
}

func (c *Controller) SelectSuggestion(s models.Suggestion) {
	c.Submit(s.Query())
}

// Clear returns to the welcome panel, dropping any pending work.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.clearLocked()
}

// ClearHistory empties the recent-search list.
func (c *Controller) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history.Clear()
	if c.panel == StateWelcome && !c.closed {
		c.view.RenderWelcome(c.history.List())
	}
}

// Wait blocks until the most recently issued search has settled.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	settled := c.settled
	c.mu.Unlock()

	if settled == nil {
		return nil
	}
	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops timers and abandons outstanding requests.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancelDebounceLocked()
	c.supersedeLocked()
	c.stop()
}

func (c *Controller) submitLocked(text string) {
	c.cancelDebounceLocked()
	c.hideSuggestionsLocked()
	c.supersedeLocked()
	c.settled = nil

	city := strings.TrimSpace(text)
	if !gateway.IsValidQuery(city) {
		c.panel = StateError
		c.view.RenderError(MessageFor(apperr.New(apperr.KindInvalidQuery, "")))
		return
	}

	c.panel = StateLoading
	c.view.RenderLoading()

	ctx, cancel := context.WithCancel(c.ctx)
	settled := make(chan struct{})
	c.cancel = cancel
	c.settled = settled
	seq := c.seq

	go func() {
		defer close(settled)
		defer cancel()
		result, err := c.weather.FetchWeather(ctx, city)
		c.complete(seq, city, result, err)
	}()
}

func (c *Controller) complete(seq uint64, city string, result *models.WeatherResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq || c.closed {
		c.logger.Debug("Discarding superseded weather response",
			zap.String("city", city),
			zap.Uint64("seq", seq),
			zap.Uint64("latest", c.seq))
		return
	}
	c.cancel = nil

	if err != nil {
		c.logger.Info("Weather lookup failed", zap.String("city", city), zap.Error(err))
		c.panel = StateError
		c.view.RenderError(MessageFor(err))
		return
	}

	c.history.Add(city)
	c.history.SetLastCity(city)
	c.panel = StateResult
	c.view.RenderResult(result)
}

func (c *Controller) clearLocked() {
	c.cancelDebounceLocked()
	c.hideSuggestionsLocked()
	c.supersedeLocked()
	c.showWelcomeLocked()
}

func (c *Controller) showWelcomeLocked() {
	c.panel = StateWelcome
	c.view.RenderWelcome(c.history.List())
}

// supersedeLocked invalidates the in-flight search, if any.
func (c *Controller) supersedeLocked() {
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// cancelDebounceLocked drops the pending timer and aborts a suggestion fetch
// already in flight.
func (c *Controller) cancelDebounceLocked() {
	c.debounceGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.suggestCancel != nil {
		c.suggestCancel()
		c.suggestCancel = nil
	}
}

func (c *Controller) hideSuggestionsLocked() {
	if c.suggesting {
		c.suggesting = false
		c.view.HideSuggestions()
	}
}
