package search

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bobby-s-dev/weather-lookup/internal/apperr"
)

const (
	MsgInvalidQuery = "Please enter a valid city name"
	MsgOffline      = "No internet connection"
	MsgTimeout      = "Request timed out. Try again."
	MsgNotFound     = "City not found. Check the name."
	MsgAuth         = "Authentication error."
	MsgRateLimited  = "Too many requests. Try later."
	MsgServer       = "Server error. Try later."
	MsgUnreachable  = "Unable to connect. Check your internet."
	MsgGeneric      = "Something went wrong. Try again."
)

var substringMessages = []struct {
	substr string
	msg    string
}{
	{"failed to fetch", MsgUnreachable},
	{"connection refused", MsgUnreachable},
	{"no such host", MsgUnreachable},
	{"not found", MsgNotFound},
	{"unauthorized", MsgAuth},
	{"invalid api key", MsgAuth},
	{"too many", MsgRateLimited},
	{"rate limit", MsgRateLimited},
	{"timed out", MsgTimeout},
	{"timeout", MsgTimeout},
	{"deadline exceeded", MsgTimeout},
}

// MessageFor converts any gateway error into the text shown to the user.
func MessageFor(err error) string {
	if err == nil {
		return ""
	}

	var e *apperr.Error
	if !errors.As(err, &e) {
		if msg := bySubstring(err.Error()); msg != "" {
			return msg
		}
		return MsgGeneric
	}

	switch e.Kind {
	case apperr.KindInvalidQuery:
		return MsgInvalidQuery
	case apperr.KindOffline:
		return MsgOffline
	case apperr.KindTimeout:
		return MsgTimeout
	case apperr.KindConfigError:
		return MsgServer
	case apperr.KindParseError, apperr.KindCanceled:
		return MsgGeneric
	}

	if msg := byStatus(e.Status); msg != "" {
		return msg
	}
	if msg := bySubstring(e.Message); msg != "" {
		return msg
	}
	if e.Message != "" {
		return e.Message
	}
	return MsgGeneric
}

func byStatus(status int) string {
	switch {
	case status == http.StatusNotFound:
		return MsgNotFound
	case status == http.StatusUnauthorized:
		return MsgAuth
	case status == http.StatusTooManyRequests:
		return MsgRateLimited
	case status >= 500:
		return MsgServer
	}
	return ""
}

func bySubstring(s string) string {
	s = strings.ToLower(s)
	for _, m := range substringMessages {
		if strings.Contains(s, m.substr) {
			return m.msg
		}
	}
	return ""
}
