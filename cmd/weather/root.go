package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bobby-s-dev/weather-lookup/internal/presenter"
	"github.com/bobby-s-dev/weather-lookup/internal/search"
	"github.com/spf13/cobra"
)

var errLookupFailed = errors.New("lookup failed")

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func newRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	opts := &options{}
	ios := &streams{in: in, out: out, err: errOut}
	var sess *session

	cmd := &cobra.Command{
		Use:          "weather",
		Short:        "Look up current weather by city name",
		Long:         "weather queries the weather proxy for current conditions and keeps a short list of recent searches.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(opts, ios)
			if err != nil {
				return err
			}
			sess = s
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if sess != nil {
				sess.Close()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd.Context(), sess, ios.in)
		},
	}

	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.proxyURL, "proxy", "", "Weather proxy origin (overrides WEATHER_PROXY_URL)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Request timeout (overrides REQUEST_TIMEOUT)")
	flags.DurationVar(&opts.debounce, "debounce", 0, "Suggestion debounce (overrides DEBOUNCE)")
	flags.StringVar(&opts.storagePath, "storage", "", "SQLite file for history (overrides STORAGE_PATH)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level written to stderr")
	flags.StringVar(&opts.theme, "theme", "", "Color theme: dark or light")

	cmd.AddCommand(
		newSearchCommand(&sess),
		newSuggestCommand(&sess),
		newHistoryCommand(&sess),
		newThemeCommand(&sess),
	)
	return cmd
}

func newSearchCommand(sess **session) *cobra.Command {
	return &cobra.Command{
		Use:   "search <city>",
		Short: "Show current weather for a city",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *sess
			ctrl := s.controller()
			defer ctrl.Close()

			ctrl.Submit(strings.Join(args, " "))

			ctx, cancel := context.WithTimeout(cmd.Context(), s.cfg.Client.RequestTimeout*2)
			defer cancel()
			if err := ctrl.Wait(ctx); err != nil {
				return err
			}
			if ctrl.State() == search.StateError {
				return errLookupFailed
			}
			return nil
		},
	}
}

func newSuggestCommand(sess **session) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <partial name>",
		Short: "List matching place names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *sess
			suggestions := s.suggestions.FetchSuggestions(cmd.Context(), strings.Join(args, " "))
			if len(suggestions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matches")
				return nil
			}
			s.view.RenderSuggestions(suggestions)
			return nil
		},
	}
}

func newHistoryCommand(sess **session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := *sess
			for _, city := range s.history.List() {
				fmt.Fprintln(cmd.OutOrStdout(), city)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			(*sess).history.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	})
	return cmd
}

func newThemeCommand(sess **session) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [dark|light]",
		Short:     "Show or store the color theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{presenter.ThemeDark, presenter.ThemeLight},
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *sess
			if len(args) == 0 {
				theme := s.history.Theme()
				if theme == "" {
					theme = presenter.ThemeDark
				}
				fmt.Fprintln(cmd.OutOrStdout(), theme)
				return nil
			}
			if args[0] != presenter.ThemeDark && args[0] != presenter.ThemeLight {
				return fmt.Errorf("unknown theme %q", args[0])
			}
			s.history.SetTheme(args[0])
			return nil
		},
	}
}
