package models

// WeatherResult is the normalized current-conditions record. Optional values
// are pointers so that a missing upstream field is never shown as zero.
type WeatherResult struct {
	City        string       `json:"city"`
	Country     string       `json:"country,omitempty"`
	Temperature float64      `json:"temperature"`
	FeelsLike   float64      `json:"feelsLike"`
	TempMin     *float64     `json:"tempMin,omitempty"`
	TempMax     *float64     `json:"tempMax,omitempty"`
	Humidity    float64      `json:"humidity"`
	Pressure    *float64     `json:"pressure,omitempty"`
	WindSpeed   float64      `json:"windSpeed"`
	Visibility  *int         `json:"visibility,omitempty"`
	Clouds      *int         `json:"clouds,omitempty"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	IconURL     string       `json:"iconUrl"`
	Sunrise     *int64       `json:"sunrise,omitempty"`
	Sunset      *int64       `json:"sunset,omitempty"`
	Timezone    *int         `json:"timezone,omitempty"`
	Coord       *Coordinates `json:"coord,omitempty"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Suggestion struct {
	Name    string  `json:"name"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Label is the display form, e.g. "Springfield, Illinois, US".
func (s Suggestion) Label() string {
	label := s.Name
	if s.State != "" {
		label += ", " + s.State
	}
	if s.Country != "" {
		label += ", " + s.Country
	}
	return label
}

// Query is the search text submitted when the suggestion is picked.
func (s Suggestion) Query() string {
	if s.Country == "" {
		return s.Name
	}
	return s.Name + "," + s.Country
}

// WeatherResponse is the body of GET /api/weather.
type WeatherResponse struct {
	Success bool           `json:"success"`
	Data    *WeatherResult `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
}

// GeocodeResponse is the body of GET /api/geocode.
type GeocodeResponse struct {
	Success     bool         `json:"success"`
	Suggestions []Suggestion `json:"suggestions"`
	Message     string       `json:"message,omitempty"`
}
