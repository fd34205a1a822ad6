package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/bobby-s-dev/weather-lookup/internal/models"
	"go.uber.org/zap"
)

type SuggestionGateway struct {
	base
}

func NewSuggestionGateway(cfg Config, logger *zap.Logger) *SuggestionGateway {
	return &SuggestionGateway{base: newBase(cfg, logger)}
}

// FetchSuggestions returns place completions in provider order. Suggestions
// are cosmetic, so every failure yields an empty, non-nil slice.
func (g *SuggestionGateway) FetchSuggestions(ctx context.Context, query string) []models.Suggestion {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength || !g.online.Online() {
		return []models.Suggestion{}
	}

	suggestions, err := g.fetch(ctx, query)
	if err != nil {
		g.logger.Debug("Suggestions unavailable", zap.String("query", query), zap.Error(err))
		return []models.Suggestion{}
	}
	return suggestions
}

func (g *SuggestionGateway) fetch(ctx context.Context, query string) ([]models.Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/geocode?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode proxy returned HTTP %d", resp.StatusCode)
	}

	var payload models.GeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding geocode response: %w", err)
	}
	if !payload.Success {
		return nil, fmt.Errorf("geocode proxy reported failure: %s", payload.Message)
	}
	if payload.Suggestions == nil {
		return []models.Suggestion{}, nil
	}
	return payload.Suggestions, nil
}
