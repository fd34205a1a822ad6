package main

import (
	"os"
	"time"

	"github.com/bobby-s-dev/weather-lookup/internal/config"
	"github.com/bobby-s-dev/weather-lookup/internal/gateway"
	"github.com/bobby-s-dev/weather-lookup/internal/history"
	"github.com/bobby-s-dev/weather-lookup/internal/presenter"
	"github.com/bobby-s-dev/weather-lookup/internal/search"
	"github.com/bobby-s-dev/weather-lookup/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	proxyURL    string
	timeout     time.Duration
	debounce    time.Duration
	storagePath string
	logLevel    string
	theme       string
}

// apply lets explicitly set flags win over environment configuration.
func (o *options) apply(cfg *config.Config) {
	if o.proxyURL != "" {
		cfg.Client.ProxyURL = o.proxyURL
	}
	if o.timeout > 0 {
		cfg.Client.RequestTimeout = o.timeout
	}
	if o.debounce > 0 {
		cfg.Client.Debounce = o.debounce
	}
	if cfg.Client.RequestTimeout <= 0 {
		cfg.Client.RequestTimeout = gateway.DefaultTimeout
	}
	if o.storagePath != "" {
		cfg.Client.StoragePath = o.storagePath
	}
	if o.logLevel != "" {
		cfg.Server.LogLevel = o.logLevel
	} else if os.Getenv("LOG_LEVEL") == "" {
		cfg.Server.LogLevel = "warn"
	}
}

type session struct {
	cfg         *config.Config
	logger      *zap.Logger
	kv          storage.Store
	history     *history.Store
	weather     *gateway.WeatherGateway
	suggestions *gateway.SuggestionGateway
	view        *presenter.Terminal
}

func openSession(opts *options, streams *streams) (*session, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	opts.apply(cfg)

	logger, err := newLogger(cfg.Server.LogLevel, streams)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)

	var kv storage.Store
	kv, err = storage.NewSQLite(cfg.Client.StoragePath, logger)
	if err != nil {
		logger.Warn("Durable storage unavailable, history will not persist",
			zap.String("path", cfg.Client.StoragePath),
			zap.Error(err))
		kv = storage.NewMemory()
	}

	hist := history.NewStore(kv, cfg.Client.HistoryCapacity, logger)

	theme := opts.theme
	if theme == "" {
		theme = hist.Theme()
	}

	gwConfig := gateway.Config{
		BaseURL: cfg.Client.ProxyURL,
		Timeout: cfg.Client.RequestTimeout,
	}

	return &session{
		cfg:         cfg,
		logger:      logger,
		kv:          kv,
		history:     hist,
		weather:     gateway.NewWeatherGateway(gwConfig, logger),
		suggestions: gateway.NewSuggestionGateway(gwConfig, logger),
		view:        presenter.NewTerminal(streams.out, theme),
	}, nil
}

func (s *session) controller() *search.Controller {
	return search.New(search.Deps{
		Weather:     s.weather,
		Suggestions: s.suggestions,
		History:     s.history,
		Presenter:   s.view,
		Logger:      s.logger,
	}, search.WithDebounce(s.cfg.Client.Debounce))
}

func (s *session) Close() {
	if err := s.kv.Close(); err != nil {
		s.logger.Warn("Failed to close storage", zap.Error(err))
	}
	s.logger.Sync()
}

func newLogger(level string, streams *streams) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.WarnLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(streams.err),
		lvl,
	)
	return zap.New(core), nil
}
