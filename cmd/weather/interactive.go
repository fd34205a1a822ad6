package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const interactiveHelp = `Enter a city name to search.
  /s <text>   suggest places (debounced)
  /<n>        pick suggestion n
  /history    list recent searches
  /forget     clear recent searches
  /clear      back to the welcome screen
  /quit       exit`

// runInteractive drives a search controller from line-oriented input.
// Searches are awaited before the next line is read.
func runInteractive(ctx context.Context, s *session, in io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctrl := s.controller()
	defer ctrl.Close()

	out := s.view
	ctrl.Start()
	wait(ctx, s, ctrl.Wait)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/q":
			return nil
		case line == "/help" || line == "?":
			s.println(interactiveHelp)
		case line == "/clear":
			ctrl.Clear()
		case line == "/forget":
			ctrl.ClearHistory()
		case line == "/history":
			for i, city := range s.history.List() {
				s.println(fmt.Sprintf("%d. %s", i+1, city))
			}
		case strings.HasPrefix(line, "/s "):
			ctrl.Input(strings.TrimPrefix(line, "/s "))
		case strings.HasPrefix(line, "/"):
			n, err := strconv.Atoi(strings.TrimPrefix(line, "/"))
			if err != nil {
				s.println("Unknown command, type /help")
				continue
			}
			suggestion, ok := out.Suggestion(n)
			if !ok {
				s.println("No such suggestion")
				continue
			}
			ctrl.SelectSuggestion(suggestion)
			wait(ctx, s, ctrl.Wait)
		default:
			ctrl.Submit(line)
			wait(ctx, s, ctrl.Wait)
		}
	}
	return scanner.Err()
}

func wait(ctx context.Context, s *session, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Client.RequestTimeout*2)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.logger.Debug("Stopped waiting for search", zap.Error(err))
	}
}

func (s *session) println(text string) {
	s.view.Println(text)
}
