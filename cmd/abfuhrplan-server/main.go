// abfuhrplan-server runs the schedule API as a plain HTTP server for local
// development, without the Spin runtime. Schedules are cached in memory only.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/timgluz/abfuhrplan/collection"
	applog "github.com/timgluz/abfuhrplan/log"
	"github.com/timgluz/abfuhrplan/middleware"
	"github.com/timgluz/abfuhrplan/response"
	"github.com/timgluz/abfuhrplan/secret"
)

type Config struct {
	Addr   string `env:"AP_ADDR" envDefault:":8080"`
	APIKey string `env:"AP_API_KEY"`

	ScriptURL   string `env:"AP_SCRIPT_URL"`
	APIEndpoint string `env:"AP_API_ENDPOINT"`
	LogLevel    string `env:"AP_LOG_LEVEL" envDefault:"info"`

	// Addresses to warm the cache for at startup, "street number" pairs
	// separated by semicolons.
	Addresses []string `env:"AP_ADDRESSES" envSeparator:";"`

	RequestTimeout time.Duration `env:"AP_REQUEST_TIMEOUT" envDefault:"30s"`
}

func main() {
	fx.New(
		fx.Provide(
			loadConfig,
			newZapLogger,
			newSlogLogger,
			newSecretStore,
			newScheduleRepository,
			newScheduleProvider,
			newRouter,
			newHTTPServer,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		fx.Invoke(registerCacheWarmup),
		fx.Invoke(func(*http.Server) {}),
	).Run()
}

// registerCacheWarmup seeds the schedule cache for the configured addresses
// once the server is up. Failures are logged, not fatal, the cache fills on
// demand anyway.
func registerCacheWarmup(lc fx.Lifecycle, config *Config,
	provider collection.Provider, repository collection.Repository,
	logger *zap.Logger, slogLogger *slog.Logger) {
	addresses := make([]collection.Address, 0, len(config.Addresses))
	for _, rawAddress := range config.Addresses {
		address, err := collection.ParseAddress(rawAddress)
		if err != nil {
			logger.Warn("Skipping invalid warmup address", zap.String("address", rawAddress), zap.Error(err))
			continue
		}
		addresses = append(addresses, address)
	}

	if len(addresses) == 0 {
		return
	}

	seeder := collection.NewScheduleSeeder(slogLogger)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := seeder.Seed(context.Background(), provider, repository, addresses); err != nil {
					logger.Warn("Schedule cache warmup failed", zap.Error(err))
				}
			}()

			return nil
		},
	})
}

func loadConfig() (*Config, error) {
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Printf(".env load warning: %v\n", err)
		}
	}

	var config Config
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	return &config, nil
}

func newZapLogger(config *Config) (*zap.Logger, error) {
	if config.LogLevel == "debug" {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

func newSlogLogger(config *Config) *slog.Logger {
	return applog.NewTextLogger(os.Stderr, config.LogLevel).With("component", "server")
}

func newSecretStore(config *Config) (secret.Store, error) {
	secretStore := secret.NewInMemoryStore()
	if config.APIKey == "" {
		return secretStore, nil
	}

	if err := secretStore.Set(config.APIKey, config.APIKey); err != nil {
		return nil, fmt.Errorf("failed to store API key: %w", err)
	}

	return secretStore, nil
}

func newScheduleRepository(logger *slog.Logger) collection.Repository {
	return collection.NewMemoryRepository(logger)
}

func newScheduleProvider(config *Config, logger *slog.Logger) collection.Provider {
	httpClient := &http.Client{Timeout: config.RequestTimeout}

	return collection.NewWasWobProvider(config.ScriptURL, config.APIEndpoint, httpClient, logger)
}

func newRouter(config *Config, repository collection.Repository, provider collection.Provider,
	secretStore secret.Store, logger *slog.Logger) *httprouter.Router {
	authorized := func(h httprouter.Handle) httprouter.Handle {
		if config.APIKey == "" {
			return h
		}

		return middleware.BearerAuth(h, secretStore)
	}

	if config.APIKey == "" {
		logger.Warn("AP_API_KEY is not set, serving without authentication")
	}

	router := httprouter.New()
	router.GET("/schedule", authorized(newScheduleHandler(repository, provider, logger)))
	router.GET("/streets", authorized(newStreetsHandler(provider, logger)))
	router.GET("/healthz", newHealthzHandler(repository, provider))

	router.NotFound = response.NewNotFoundHandler(logger)

	return router
}

func newHTTPServer(lc fx.Lifecycle, config *Config, router *httprouter.Router, logger *zap.Logger) *http.Server {
	srv := &http.Server{Addr: config.Addr, Handler: router}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}

			logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server stopped", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})

	return srv
}

func newScheduleHandler(repository collection.Repository, provider collection.Provider, logger *slog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		address, err := addressFromRequest(r)
		if err != nil {
			response.RenderError(w, err, http.StatusBadRequest)
			return
		}

		refresh := r.URL.Query().Get("refresh") == "true"

		logger.Debug("Fetching schedule", "street", address.Street, "number", address.Number, "refresh", refresh)
		schedule, err := fetchCachedSchedule(repository, provider, address, refresh)
		if err != nil {
			logger.Error("Failed to fetch schedule", "error", err)
			renderCollectionError(w, err)
			return
		}

		if periodStr := r.URL.Query().Get("period"); periodStr != "" {
			period, err := collection.NewUpcomingPeriod(periodStr)
			if err != nil {
				response.RenderError(w, fmt.Errorf("invalid period"), http.StatusBadRequest)
				return
			}

			upcoming := *schedule
			upcoming.Entries = schedule.Upcoming(*period)
			response.RenderJSON(w, &upcoming)
			return
		}

		response.RenderJSON(w, schedule)
	}
}

func newStreetsHandler(provider collection.Provider, logger *slog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		pagination := response.NewPaginationFromRequest(r)

		directory, err := provider.GetStreets(r.Context())
		if err != nil {
			logger.Error("Failed to fetch street directory", "error", err)
			renderCollectionError(w, err)
			return
		}

		pagination.Total = directory.Len()
		page := directory.Page(pagination.Offset, pagination.Limit)
		response.RenderJSON(w, response.NewCollectionResponse(page, &pagination))
	}
}

func newHealthzHandler(repository collection.Repository, provider collection.Provider) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if !repository.IsReady() || !provider.IsReady() {
			response.RenderError(w, fmt.Errorf("service is not ready"), http.StatusServiceUnavailable)
			return
		}

		response.RenderSuccess(w, []byte(`{"status": "ok"}`))
	}
}

func addressFromRequest(r *http.Request) (collection.Address, error) {
	address := collection.NewAddress(r.URL.Query().Get("street"), r.URL.Query().Get("number"))
	if !address.IsValid() {
		return collection.Address{}, fmt.Errorf("street and number are required")
	}

	return address, nil
}

func fetchCachedSchedule(repository collection.Repository, provider collection.Provider,
	address collection.Address, refresh bool) (*collection.Schedule, error) {
	if !refresh {
		schedule, err := repository.GetByAddress(context.Background(), address)
		if err == nil && schedule != nil {
			return schedule, nil
		}
	}

	schedule, err := provider.GetSchedule(context.Background(), address)
	if err != nil {
		return nil, err
	}

	if repository.Has(context.Background(), address) {
		if err := repository.Delete(context.Background(), address); err != nil {
			return nil, fmt.Errorf("failed to replace cached schedule: %w", err)
		}
	}

	if err := repository.Create(context.Background(), schedule); err != nil {
		return nil, fmt.Errorf("failed to add schedule to repository: %w", err)
	}

	return schedule, nil
}

func renderCollectionError(w http.ResponseWriter, err error) {
	var argErr *collection.ArgumentNotFoundError
	if errors.As(err, &argErr) {
		response.RenderSuggestions(w, http.StatusNotFound,
			response.NewSuggestionsResponse(argErr.Error(), argErr.Field, argErr.Value, argErr.Suggestions))
		return
	}

	var transportErr *collection.TransportError
	var formatErr *collection.DataFormatError
	switch {
	case errors.Is(err, collection.ErrTokenNotFound):
		response.RenderError(w, err, http.StatusBadGateway)
	case errors.As(err, &transportErr):
		response.RenderError(w, err, http.StatusBadGateway)
	case errors.As(err, &formatErr):
		response.RenderError(w, err, http.StatusBadGateway)
	default:
		response.RenderFatal(w, err)
	}
}
