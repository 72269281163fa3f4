package main

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"wordcraft/internal/app"
	"wordcraft/internal/domain"
	"wordcraft/internal/gateway/httpgw"
	"wordcraft/internal/infra"
	"wordcraft/internal/pipeline"
	"wordcraft/internal/storage"
	"wordcraft/internal/transform"
)

// watcher is implemented by gateways that can follow remote session events.
type watcher interface {
	Watch(ctx context.Context) error
}

// client is what every command runs against.
type client struct {
	app    *app.App
	gw     domain.IdentityGateway
	locale language.Tag
	logger zerolog.Logger
}

// opener builds a client. Tests swap in an in-memory gateway.
type opener func(ctx context.Context, stderr io.Writer) (*client, error)

func openClient(_ context.Context, stderr io.Writer) (*client, error) {
	cfg, err := infra.LoadClientConfig()
	if err != nil {
		return nil, err
	}
	logger := infra.NewLoggerTo(stderr, cfg.AppEnv)

	files, err := storage.NewFileStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	locale := pipeline.ParseLocale(cfg.Locale)
	gw, err := httpgw.New(httpgw.Options{
		BaseURL: cfg.APIURL,
		Tokens:  storage.NewSessionFile(files),
		Locale:  locale.String(),
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	a := app.New(gw, logger, app.Options{Transformer: newTransformer(cfg, logger), Locale: locale})
	return &client{app: a, gw: gw, locale: locale, logger: logger}, nil
}

// newTransformer prefers the model backed tools when an OpenAI key is set and
// keeps the simulated ones as fallback.
func newTransformer(cfg *infra.ClientConfig, logger zerolog.Logger) domain.Transformer {
	simulated := transform.NewSimulated(transform.SimulatedOptions{Delay: transform.DefaultDelay})
	if cfg.OpenAIAPIKey == "" {
		return simulated
	}
	oa, err := transform.NewOpenAI(transform.OpenAIOptions{
		APIKey:       cfg.OpenAIAPIKey,
		Model:        cfg.OpenAIModel,
		BaseURL:      cfg.OpenAIBaseURL,
		Organization: cfg.OpenAIOrg,
		Fallback:     simulated,
		OnFallback: func(reason string, err error) {
			logger.Warn().Err(err).Str("reason", reason).Msg("openai fallback")
		},
		OnWarning: func(reason, detail string) {
			logger.Warn().Str("reason", reason).Str("detail", detail).Msg("openai config")
		},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("openai disabled")
		return simulated
	}
	return oa
}
