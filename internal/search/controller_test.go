package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobby-s-dev/weather-lookup/internal/apperr"
	"github.com/bobby-s-dev/weather-lookup/internal/history"
	"github.com/bobby-s-dev/weather-lookup/internal/models"
	"github.com/bobby-s-dev/weather-lookup/internal/storage"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type recordingPresenter struct {
	mu          sync.Mutex
	events      []string
	result      *models.WeatherResult
	errMsg      string
	welcome     []string
	suggestions []models.Suggestion
}

func (p *recordingPresenter) record(event string) {
	p.events = append(p.events, event)
}

func (p *recordingPresenter) RenderWelcome(h []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.welcome = h
	p.record("welcome")
}

func (p *recordingPresenter) RenderLoading() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("loading")
}

func (p *recordingPresenter) RenderResult(r *models.WeatherResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result = r
	p.record("result:" + r.City)
}

func (p *recordingPresenter) RenderError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errMsg = msg
	p.record("error")
}

func (p *recordingPresenter) RenderSuggestions(s []models.Suggestion) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.suggestions = s
	p.record("suggestions")
}

func (p *recordingPresenter) HideSuggestions() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("hide")
}

func (p *recordingPresenter) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *recordingPresenter) Last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return ""
	}
	return p.events[len(p.events)-1]
}

// gatedWeather blocks each lookup until its city is released.
type gatedWeather struct {
	mu      sync.Mutex
	calls   []string
	gates   map[string]chan struct{}
	errs    map[string]error
	ignores bool // keep waiting for the gate even after cancellation
}

func newGatedWeather() *gatedWeather {
	return &gatedWeather{gates: make(map[string]chan struct{}), errs: make(map[string]error)}
}

func (g *gatedWeather) gate(city string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[city]
	if !ok {
		ch = make(chan struct{})
		g.gates[city] = ch
	}
	return ch
}

func (g *gatedWeather) release(city string) { close(g.gate(city)) }

func (g *gatedWeather) FetchWeather(ctx context.Context, city string) (*models.WeatherResult, error) {
	g.mu.Lock()
	g.calls = append(g.calls, city)
	ignores := g.ignores
	err := g.errs[city]
	g.mu.Unlock()

	if ignores {
		<-g.gate(city)
	} else {
		select {
		case <-g.gate(city):
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.KindCanceled, ctx.Err())
		}
	}
	if err != nil {
		return nil, err
	}
	return &models.WeatherResult{City: city, Temperature: 10}, nil
}

func (g *gatedWeather) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// instantWeather answers immediately.
type instantWeather struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (w *instantWeather) FetchWeather(_ context.Context, city string) (*models.WeatherResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.err != nil {
		return nil, w.err
	}
	return &models.WeatherResult{City: city}, nil
}

func (w *instantWeather) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

type countingSuggester struct {
	mu      sync.Mutex
	queries []string
	result  []models.Suggestion
}

func (s *countingSuggester) FetchSuggestions(_ context.Context, q string) []models.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	return s.result
}

func (s *countingSuggester) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// blockingSuggester holds each fetch open until its context is cancelled.
type blockingSuggester struct {
	started  chan string
	canceled chan string
}

func newBlockingSuggester() *blockingSuggester {
	return &blockingSuggester{started: make(chan string, 4), canceled: make(chan string, 4)}
}

func (s *blockingSuggester) FetchSuggestions(ctx context.Context, q string) []models.Suggestion {
	s.started <- q
	<-ctx.Done()
	s.canceled <- q
	return nil
}

type fixture struct {
	ctrl      *Controller
	view      *recordingPresenter
	history   *history.Store
	clock     *clockwork.FakeClock
	suggester *countingSuggester
}

func newFixture(t *testing.T, weather WeatherFetcher) *fixture {
	t.Helper()
	f := &fixture{
		view:      &recordingPresenter{},
		history:   history.NewStore(storage.NewMemory(), history.DefaultCapacity, zap.NewNop()),
		clock:     clockwork.NewFakeClock(),
		suggester: &countingSuggester{},
	}
	f.ctrl = New(Deps{
		Weather:     weather,
		Suggestions: f.suggester,
		History:     f.history,
		Presenter:   f.view,
		Logger:      zap.NewNop(),
	}, WithClock(f.clock))
	t.Cleanup(f.ctrl.Close)
	return f
}

func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, f.ctrl.Wait(ctx))
}

func TestStartWithoutLastCityShowsWelcome(t *testing.T) {
	f := newFixture(t, &instantWeather{})
	f.history.Add("Oslo")

	f.ctrl.Start()

	assert.Equal(t, StateWelcome, f.ctrl.State())
	assert.Equal(t, []string{"welcome"}, f.view.Events())
	assert.Equal(t, []string{"Oslo"}, f.view.welcome)
}

func TestStartSearchesLastCity(t *testing.T) {
	weather := &instantWeather{}
	f := newFixture(t, weather)
	f.history.SetLastCity("Lisbon")

	f.ctrl.Start()
	f.wait(t)

	assert.Equal(t, StateResult, f.ctrl.State())
	assert.Equal(t, []string{"loading", "result:Lisbon"}, f.view.Events())
	assert.Equal(t, 1, weather.Calls())
}

func TestSubmitSuccessUpdatesHistory(t *testing.T) {
	f := newFixture(t, &instantWeather{})

	f.ctrl.Submit("  Paris ")
	f.wait(t)

	assert.Equal(t, StateResult, f.ctrl.State())
	assert.Equal(t, []string{"Paris"}, f.history.List())
	city, ok := f.history.LastCity()
	assert.True(t, ok)
	assert.Equal(t, "Paris", city)
}

func TestSubmitFailureLeavesHistory(t *testing.T) {
	weather := &instantWeather{err: apperr.Provider(404, "city not found")}
	f := newFixture(t, weather)
	f.history.Add("Rome")
	f.history.SetLastCity("Rome")

	f.ctrl.Submit("Atlantis")
	f.wait(t)

	assert.Equal(t, StateError, f.ctrl.State())
	assert.Equal(t, MsgNotFound, f.view.errMsg)
	assert.Equal(t, []string{"Rome"}, f.history.List())
	city, _ := f.history.LastCity()
	assert.Equal(t, "Rome", city)
}

func TestSubmitInvalidQueryMakesNoCall(t *testing.T) {
	weather := &instantWeather{}
	f := newFixture(t, weather)

	for _, q := range []string{"123", "x", ""} {
		f.ctrl.Submit(q)
		f.wait(t)
		assert.Equal(t, StateError, f.ctrl.State())
		assert.Equal(t, MsgInvalidQuery, f.view.errMsg)
	}
	assert.Zero(t, weather.Calls())
	assert.Empty(t, f.history.List())
}

func TestLatestRequestWins(t *testing.T) {
	weather := newGatedWeather()
	weather.ignores = true
	f := newFixture(t, weather)

	f.ctrl.Submit("Athens")
	f.ctrl.Submit("Berlin")
	require.Eventually(t, func() bool { return len(weather.Calls()) == 2 }, waitFor, tick)

	weather.release("Berlin")
	f.wait(t)
	assert.Equal(t, "result:Berlin", f.view.Last())

	// Athens answers late and must be ignored.
	weather.release("Athens")
	assert.Never(t, func() bool { return f.view.Last() != "result:Berlin" }, 100*time.Millisecond, tick)

	assert.Equal(t, StateResult, f.ctrl.State())
	assert.Equal(t, "Berlin", f.view.result.City)
	assert.Equal(t, []string{"Berlin"}, f.history.List())
}

func TestSupersededRequestIsCanceled(t *testing.T) {
	weather := newGatedWeather()
	f := newFixture(t, weather)

	f.ctrl.Submit("Athens")
	f.ctrl.Submit("Berlin")
	weather.release("Berlin")
	f.wait(t)

	assert.Equal(t, StateResult, f.ctrl.State())
	assert.NotContains(t, f.view.Events(), "error")
	assert.Equal(t, []string{"Berlin"}, f.history.List())
}

func TestLateFailureDoesNotOverrideResult(t *testing.T) {
	weather := newGatedWeather()
	weather.ignores = true
	weather.errs["Athens"] = apperr.Provider(500, "boom")
	f := newFixture(t, weather)

	f.ctrl.Submit("Athens")
	f.ctrl.Submit("Berlin")
	weather.release("Berlin")
	f.wait(t)
	weather.release("Athens")

	assert.Never(t, func() bool { return f.ctrl.State() != StateResult }, 100*time.Millisecond, tick)
}

func TestDebounceFetchesOnceWithLastValue(t *testing.T) {
	f := newFixture(t, &instantWeather{})
	f.suggester.result = []models.Suggestion{{Name: "London", Country: "GB"}}

	for _, text := range []string{"Lo", "Lon", "Lond", "Londo"} {
		f.ctrl.Input(text)
		f.clock.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, f.suggester.Queries())

	f.clock.Advance(200 * time.Millisecond)
	require.Eventually(t, func() bool { return len(f.suggester.Queries()) == 1 }, waitFor, tick)
	assert.Equal(t, []string{"Londo"}, f.suggester.Queries())

	require.Eventually(t, func() bool { return f.ctrl.State() == StateSuggesting }, waitFor, tick)
	assert.Equal(t, "suggestions", f.view.Last())

	f.clock.Advance(time.Second)
	assert.Never(t, func() bool { return len(f.suggester.Queries()) > 1 }, 50*time.Millisecond, tick)
}

func TestShortInputCancelsPendingSuggestions(t *testing.T) {
	f := newFixture(t, &instantWeather{})

	f.ctrl.Input("Lo")
	f.ctrl.Input("L")
	f.clock.Advance(time.Second)

	assert.Never(t, func() bool { return len(f.suggester.Queries()) > 0 }, 50*time.Millisecond, tick)
	assert.Equal(t, StateWelcome, f.ctrl.State())
}

func TestShortInputHidesVisibleSuggestions(t *testing.T) {
	f := newFixture(t, &instantWeather{})
	f.suggester.result = []models.Suggestion{{Name: "Lima"}}

	f.ctrl.Input("Li")
	f.clock.Advance(DefaultDebounce)
	require.Eventually(t, func() bool { return f.ctrl.State() == StateSuggesting }, waitFor, tick)

	f.ctrl.Input("L")
	assert.Equal(t, StateWelcome, f.ctrl.State())
	assert.Equal(t, "hide", f.view.Last())
}

func TestEmptySuggestionsStayHidden(t *testing.T) {
	f := newFixture(t, &instantWeather{})

	f.ctrl.Input("Zz")
	f.clock.Advance(DefaultDebounce)

	require.Eventually(t, func() bool { return len(f.suggester.Queries()) == 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return f.view.Last() == "hide" }, waitFor, tick)
	assert.NotContains(t, f.view.Events(), "suggestions")
}

func TestSubmitCancelsPendingSuggestions(t *testing.T) {
	f := newFixture(t, &instantWeather{})

	f.ctrl.Input("Pa")
	f.ctrl.Submit("Paris")
	f.wait(t)
	f.clock.Advance(time.Second)

	assert.Never(t, func() bool { return len(f.suggester.Queries()) > 0 }, 50*time.Millisecond, tick)
	assert.Equal(t, StateResult, f.ctrl.State())
}

func TestSelectSuggestionSubmitsQuery(t *testing.T) {
	weather := newGatedWeather()
	f := newFixture(t, weather)

	f.ctrl.SelectSuggestion(models.Suggestion{Name: "Portland", State: "Oregon", Country: "US"})
	weather.release("Portland,US")
	f.wait(t)

	assert.Equal(t, []string{"Portland,US"}, weather.Calls())
	assert.Equal(t, StateResult, f.ctrl.State())
}

func TestClearReturnsToWelcome(t *testing.T) {
	weather := newGatedWeather()
	weather.ignores = true
	f := newFixture(t, weather)
	f.history.Add("Quito")

	f.ctrl.Submit("Lagos")
	f.ctrl.Clear()
	weather.release("Lagos")

	assert.Never(t, func() bool { return f.ctrl.State() != StateWelcome }, 100*time.Millisecond, tick)
	assert.Equal(t, []string{"Quito"}, f.view.welcome)
	assert.Equal(t, []string{"Quito"}, f.history.List())
}

func TestEmptyInputClears(t *testing.T) {
	f := newFixture(t, &instantWeather{})
	f.ctrl.Submit("Seoul")
	f.wait(t)

	f.ctrl.Input("   ")

	assert.Equal(t, StateWelcome, f.ctrl.State())
	assert.Equal(t, []string{"Seoul"}, f.view.welcome)
}

func TestClearHistory(t *testing.T) {
	f := newFixture(t, &instantWeather{})
	f.history.Add("Nairobi")
	f.ctrl.Start()

	f.ctrl.ClearHistory()

	assert.Empty(t, f.history.List())
	assert.Equal(t, []string{"welcome", "welcome"}, f.view.Events())
	assert.Empty(t, f.view.welcome)
}

func TestHistoryBoundedThroughController(t *testing.T) {
	f := newFixture(t, &instantWeather{})

	for i := 0; i < 7; i++ {
		f.ctrl.Submit(fmt.Sprintf("Town%d", i))
		f.wait(t)
	}

	assert.Equal(t, []string{"Town6", "Town5", "Town4", "Town3", "Town2"}, f.history.List())
}

func TestCloseIgnoresFurtherEvents(t *testing.T) {
	weather := &instantWeather{}
	f := newFixture(t, weather)

	f.ctrl.Close()
	f.ctrl.Submit("Paris")
	f.ctrl.Input("Pa")
	f.clock.Advance(time.Second)

	assert.Empty(t, f.view.Events())
	assert.Zero(t, weather.Calls())
}

func TestStartAfterCloseDoesNothing(t *testing.T) {
	weather := &instantWeather{}
	f := newFixture(t, weather)
	f.history.SetLastCity("Lisbon")

	f.ctrl.Close()
	f.ctrl.Start()

	assert.Empty(t, f.view.Events())
	assert.Zero(t, weather.Calls())
}

func TestInFlightSuggestionsAbortedBy(t *testing.T) {
	tests := []struct {
		name   string
		action func(c *Controller)
	}{
		{"keystroke", func(c *Controller) { c.Input("Lon") }},
		{"submit", func(c *Controller) { c.Submit("Lima") }},
		{"clear", func(c *Controller) { c.Clear() }},
		{"close", func(c *Controller) { c.Close() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggester := newBlockingSuggester()
			clock := clockwork.NewFakeClock()
			view := &recordingPresenter{}
			ctrl := New(Deps{
				Weather:     &instantWeather{},
				Suggestions: suggester,
				History:     history.NewStore(storage.NewMemory(), history.DefaultCapacity, zap.NewNop()),
				Presenter:   view,
				Logger:      zap.NewNop(),
			}, WithClock(clock))
			t.Cleanup(ctrl.Close)

			ctrl.Input("Lo")
			clock.Advance(DefaultDebounce)

			select {
			case q := <-suggester.started:
				assert.Equal(t, "Lo", q)
			case <-time.After(waitFor):
				t.Fatal("suggestion fetch did not start")
			}

			tt.action(ctrl)

			select {
			case q := <-suggester.canceled:
				assert.Equal(t, "Lo", q)
			case <-time.After(waitFor):
				t.Fatal("stale suggestion fetch kept running")
			}
			assert.NotContains(t, view.Events(), "suggestions")
		})
	}
}

func TestStateString(t *testing.T) {
	names := []string{}
	for _, s := range []State{StateWelcome, StateSuggesting, StateLoading, StateResult, StateError} {
		names = append(names, s.String())
	}
	assert.Equal(t, "welcome suggesting loading result error", strings.Join(names, " "))
}
