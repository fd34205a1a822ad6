package presenter

import (
	"fmt"
	"math"
	"time"
)

// FormatTemperature rounds to whole degrees Celsius.
func FormatTemperature(temp float64) string {
	return fmt.Sprintf("%d°C", int(math.Round(temp)))
}

func FormatWindSpeed(speed float64) string {
	return fmt.Sprintf("%d m/s", int(math.Round(speed)))
}

// FormatVisibility shows kilometres from 1000 m upwards.
func FormatVisibility(meters int) string {
	if meters >= 1000 {
		return fmt.Sprintf("%.1f km", float64(meters)/1000)
	}
	return fmt.Sprintf("%d m", meters)
}

// FormatLocalTime renders a unix timestamp in the city's own UTC offset.
func FormatLocalTime(unix int64, offsetSeconds int) string {
	return time.Unix(unix, 0).In(time.FixedZone("", offsetSeconds)).Format("15:04")
}
