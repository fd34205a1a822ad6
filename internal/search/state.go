package search

import (
	"context"

	"github.com/bobby-s-dev/weather-lookup/internal/models"
)

type State int

const (
	StateWelcome State = iota
	StateSuggesting
	StateLoading
	StateResult
	StateError
)

func (s State) String() string {
	switch s {
	case StateWelcome:
		return "welcome"
	case StateSuggesting:
		return "suggesting"
	case StateLoading:
		return "loading"
	case StateResult:
		return "result"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

type WeatherFetcher interface {
	FetchWeather(ctx context.Context, city string) (*models.WeatherResult, error)
}

type SuggestionFetcher interface {
	FetchSuggestions(ctx context.Context, query string) []models.Suggestion
}

type History interface {
	List() []string
	Add(city string) []string
	Clear()
	LastCity() (string, bool)
	SetLastCity(city string)
}

// Presenter renders controller state. Methods are called with the
// controller's lock held and must not call back into the controller.
type Presenter interface {
	RenderWelcome(history []string)
	RenderLoading()
	RenderResult(result *models.WeatherResult)
	RenderError(message string)
	RenderSuggestions(suggestions []models.Suggestion)
	HideSuggestions()
}
