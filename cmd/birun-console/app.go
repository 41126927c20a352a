package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/birun/console/pkg/api"
	"github.com/birun/console/pkg/cmd"
	"github.com/birun/console/pkg/config"
	"github.com/birun/console/pkg/eventbus"
	"github.com/birun/console/pkg/log"
	"github.com/birun/console/pkg/otelhelper"
	"github.com/birun/console/pkg/persistence"
	"github.com/birun/console/pkg/services"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrAPIRequired = errors.New("this command needs --api-url")
	ErrMissingArg  = errors.New("missing argument")
)

// settings are the connection options after merging flags over the profile.
type settings struct {
	apiURL         string
	token          string
	databaseURL    string
	logLevel       string
	pollInterval   time.Duration
	connectTimeout time.Duration
	otel           bool
}

func loadSettings(command *cli.Command) (settings, error) {
	s := settings{
		apiURL:         command.String("api-url"),
		token:          command.String("token"),
		databaseURL:    command.String("database-url"),
		logLevel:       command.String("log-level"),
		pollInterval:   command.Duration("poll-interval"),
		connectTimeout: command.Duration("connect-timeout"),
		otel:           command.Bool("otel"),
	}

	path := command.String("config")
	if path == "" {
		return s, nil
	}

	profile, err := config.LoadProfile(path, command.String("profile"))
	if err != nil {
		return settings{}, err
	}

	pick := func(flag, current, fromProfile string) string {
		if command.IsSet(flag) || fromProfile == "" {
			return current
		}

		return fromProfile
	}

	s.apiURL = pick("api-url", s.apiURL, profile.APIURL)
	s.token = pick("token", s.token, profile.Token)
	s.databaseURL = pick("database-url", s.databaseURL, profile.DatabaseURL)
	s.logLevel = pick("log-level", s.logLevel, profile.LogLevel)

	if !command.IsSet("poll-interval") && profile.PollInterval > 0 {
		s.pollInterval = profile.PollInterval
	}

	if !command.IsSet("connect-timeout") && profile.ConnectTimeout > 0 {
		s.connectTimeout = profile.ConnectTimeout
	}

	s.otel = s.otel || profile.Otel

	return s, nil
}

// app holds what a command needs. client is nil when only a file store is configured.
type app struct {
	settings  settings
	logger    *slog.Logger
	tracer    trace.Tracer
	client    *api.Client
	store     persistence.Persistence
	bus       eventbus.EventBus
	workflows *services.Workflow
	shutdown  otelhelper.ShutdownFunc
}

func newApp(ctx context.Context, command *cli.Command) (*app, error) {
	s, err := loadSettings(command)
	if err != nil {
		return nil, err
	}

	log.Setup(s.logLevel)
	logger := log.WithModule("console")

	tracer, shutdown, err := cmd.NewTracer(ctx, s.otel)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	a := &app{settings: s, logger: logger, tracer: tracer, shutdown: shutdown}

	apiURL := s.apiURL
	if apiURL == "" && (strings.HasPrefix(s.databaseURL, "http://") || strings.HasPrefix(s.databaseURL, "https://")) {
		apiURL = s.databaseURL
	}

	if apiURL != "" {
		a.client, err = cmd.NewClient(apiURL, s.token, tracer, logger)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	a.store, err = cmd.NewPersistence(s.databaseURL, a.client)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.bus, err = cmd.NewEventBus(logger)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.workflows = services.NewWorkflow(a.store, a.bus, logger)

	return a, nil
}

func (a *app) api() (*api.Client, error) {
	if a.client == nil {
		return nil, ErrAPIRequired
	}

	return a.client, nil
}

func (a *app) Close(ctx context.Context) {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}

	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			a.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}

	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			a.logger.ErrorContext(ctx, "Failed to shut down tracing", "error", err)
		}
	}
}

// withApp builds the app for one command invocation and tears it down afterwards.
func withApp(run func(ctx context.Context, command *cli.Command, a *app) error) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		a, err := newApp(ctx, command)
		if err != nil {
			return err
		}
		defer a.Close(context.WithoutCancel(ctx))

		return run(ctx, command, a)
	}
}

func idArg(command *cli.Command, i int, name string) (int64, error) {
	raw := command.Args().Get(i)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingArg, name)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}

	return id, nil
}
