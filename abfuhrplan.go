package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	spinhttp "github.com/spinframework/spin-go-sdk/v2/http"
	spinvars "github.com/spinframework/spin-go-sdk/v2/variables"

	"github.com/timgluz/abfuhrplan/collection"
	"github.com/timgluz/abfuhrplan/history"
	"github.com/timgluz/abfuhrplan/log"
	"github.com/timgluz/abfuhrplan/middleware"
	"github.com/timgluz/abfuhrplan/response"
	"github.com/timgluz/abfuhrplan/secret"
	"github.com/timgluz/abfuhrplan/task"
)

const DefaultHistoryPeriod = "P90D"

type ScheduleAppConfig struct {
	ScheduleStoreName string `validate:"required"`
	HistoryDBName     string `validate:"required"`
	ApiKey            string `validate:"required"`

	ScriptURL   string
	APIEndpoint string
	LogLevel    string
}

func NewScheduleAppConfigFromSpinVariables() (*ScheduleAppConfig, error) {
	apiKey, err := spinvars.Get("api_key")
	if err != nil {
		return nil, fmt.Errorf("failed to get api_key from Spin variables: %w", err)
	}

	storeName, err := spinvars.Get("schedule_store_name")
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule_store_name from Spin variables: %w", err)
	}

	historyDBName, err := spinvars.Get("history_db_name")
	if err != nil {
		return nil, fmt.Errorf("failed to get history_db_name from Spin variables: %w", err)
	}

	scriptURL, err := spinvars.Get("script_url")
	if err != nil {
		scriptURL = collection.DefaultScriptURL
	}

	apiEndpoint, err := spinvars.Get("api_endpoint")
	if err != nil {
		apiEndpoint = collection.DefaultAPIEndpoint
	}

	logLevel, err := spinvars.Get("log_level")
	if err != nil {
		logLevel = "info"
	}

	return &ScheduleAppConfig{
		ScheduleStoreName: storeName,
		HistoryDBName:     historyDBName,
		ApiKey:            apiKey,
		ScriptURL:         scriptURL,
		APIEndpoint:       apiEndpoint,
		LogLevel:          logLevel,
	}, nil
}

// scheduleAppComponent holds the stateful components of the schedule service.
// it is inspired by Clojure components library: https://github.com/stuartsierra/component
type scheduleAppComponent struct {
	scheduleRepository collection.Repository
	historyRepository  history.Repository
	provider           collection.Provider
	secretStore        secret.Store
	logger             *slog.Logger
}

func (s *scheduleAppComponent) Close() {
	if s.scheduleRepository != nil {
		if err := s.scheduleRepository.Close(); err != nil {
			s.logger.Error("Failed to close schedule repository", "error", err)
		}
		s.scheduleRepository = nil
	}

	if s.historyRepository != nil {
		if err := s.historyRepository.Close(); err != nil {
			s.logger.Error("Failed to close history repository", "error", err)
		}
		s.historyRepository = nil
	}
}

// IsReady checks if all components of the schedule app are ready.
func (s *scheduleAppComponent) IsReady() bool {
	if s.logger == nil {
		fmt.Println("Logger of scheduleAppComponent is not initialized")
		return false
	}

	if s.scheduleRepository == nil || !s.scheduleRepository.IsReady() {
		s.logger.Error("Schedule repository is not initialized or not ready")
		return false
	}

	if s.historyRepository == nil || !s.historyRepository.IsReady() {
		s.logger.Error("History repository is not initialized or not ready")
		return false
	}

	if s.provider == nil || !s.provider.IsReady() {
		s.logger.Error("Schedule provider is not initialized or not ready")
		return false
	}

	if s.secretStore == nil || !s.secretStore.IsReady() {
		s.logger.Error("Secret store is not initialized or not ready")
		return false
	}

	s.logger.Info("Schedule app component is ready")
	return true
}

func init() {
	spinhttp.Handle(func(w http.ResponseWriter, r *http.Request) {
		config, err := NewScheduleAppConfigFromSpinVariables()
		if err != nil {
			response.RenderFatal(w, fmt.Errorf("failed to load schedule app configuration: %w", err))
			return
		}

		appComponents, err := initScheduleAppComponents(*config)
		if err != nil {
			fmt.Printf("Error initializing schedule service: %v\n", err)
			response.RenderFatal(w, fmt.Errorf("failed to initialize schedule service"))
			return
		}
		defer appComponents.Close()

		if !appComponents.IsReady() {
			fmt.Println("Schedule app components are not ready")
			response.RenderFatal(w, fmt.Errorf("schedule app components are not ready"))
			return
		}

		logger := appComponents.logger
		logger.Info("Schedule app components successfully initialized", "storeName", config.ScheduleStoreName)

		router := spinhttp.NewRouter()
		router.GET("/schedule", middleware.BearerAuth(newScheduleHandler(appComponents), appComponents.secretStore))
		router.GET("/schedule/history", middleware.BearerAuth(newScheduleHistoryHandler(appComponents), appComponents.secretStore))
		router.GET("/streets", middleware.BearerAuth(newStreetsHandler(appComponents), appComponents.secretStore))
		router.GET("/tasks/collectSchedule", middleware.BearerAuth(newCollectScheduleHandler(appComponents), appComponents.secretStore))

		router.NotFound = response.NewNotFoundHandler(logger)

		router.ServeHTTP(w, r)
	})
}

func initScheduleAppComponents(config ScheduleAppConfig) (*scheduleAppComponent, error) {
	logger := log.NewTextLogger(os.Stderr, config.LogLevel).With("component", "schedule")
	logger.Info("Initializing schedule service")

	scheduleRepository, err := collection.NewSpinKVRepository(config.ScheduleStoreName, logger)
	if err != nil {
		logger.Error("Failed to create schedule repository", "error", err)
		return nil, fmt.Errorf("failed to create schedule repository: %w", err)
	}

	historyDB, err := history.NewSpinSqliteDB(config.HistoryDBName)
	if err != nil {
		logger.Error("Failed to open history DB", "error", err)
		return nil, fmt.Errorf("failed to open history DB: %w", err)
	}

	historyRepository, err := history.NewSQLRepository(historyDB, logger)
	if err != nil {
		logger.Error("Failed to create history repository", "error", err)
		return nil, fmt.Errorf("failed to create history repository: %w", err)
	}

	if err := historyRepository.EnsureSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure history schema: %w", err)
	}

	spinHTTPClient := spinhttp.NewClient()
	provider := collection.NewWasWobProvider(config.ScriptURL, config.APIEndpoint, spinHTTPClient, logger)

	secretStore := secret.NewInMemoryStore()
	if err := secretStore.Set(config.ApiKey, config.ApiKey); err != nil {
		logger.Error("Failed to store API key", "error", err)
		return nil, fmt.Errorf("failed to store API key: %w", err)
	}

	return &scheduleAppComponent{scheduleRepository, historyRepository, provider, secretStore, logger}, nil
}

func main() {}

func newScheduleHandler(appComponents *scheduleAppComponent) spinhttp.RouterHandle {
	return func(w http.ResponseWriter, r *http.Request, _ spinhttp.Params) {
		logger := appComponents.logger

		address, err := addressFromRequest(r)
		if err != nil {
			response.RenderError(w, err, http.StatusBadRequest)
			return
		}

		refresh := r.URL.Query().Get("refresh") == "true"

		logger.Debug("Fetching schedule", "street", address.Street, "number", address.Number, "refresh", refresh)
		schedule, err := fetchCachedSchedule(appComponents, address, refresh)
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

func newScheduleHistoryHandler(appComponents *scheduleAppComponent) spinhttp.RouterHandle {
	return func(w http.ResponseWriter, r *http.Request, _ spinhttp.Params) {
		logger := appComponents.logger

		address, err := addressFromRequest(r)
		if err != nil {
			response.RenderError(w, err, http.StatusBadRequest)
			return
		}

		periodStr := r.URL.Query().Get("period")
		if periodStr == "" {
			periodStr = DefaultHistoryPeriod
		}

		period, err := collection.NewPastPeriod(periodStr)
		if err != nil {
			logger.Error("Invalid history period", "period", periodStr, "error", err)
			response.RenderError(w, fmt.Errorf("invalid period"), http.StatusBadRequest)
			return
		}

		entries, err := appComponents.historyRepository.GetEntries(r.Context(), address, *period)
		if err != nil {
			logger.Error("Failed to fetch history entries", "error", err)
			response.RenderFatal(w, err)
			return
		}

		response.RenderJSON(w, response.NewCollectionResponse(entries, nil))
	}
}

func newStreetsHandler(appComponents *scheduleAppComponent) spinhttp.RouterHandle {
	return func(w http.ResponseWriter, r *http.Request, _ spinhttp.Params) {
		logger := appComponents.logger
		pagination := response.NewPaginationFromRequest(r)

		logger.Debug("Fetching street directory", "limit", pagination.Limit, "offset", pagination.Offset)
		directory, err := appComponents.provider.GetStreets(r.Context())
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

func newCollectScheduleHandler(appComponents *scheduleAppComponent) spinhttp.RouterHandle {
	return func(w http.ResponseWriter, r *http.Request, _ spinhttp.Params) {
		logger := appComponents.logger

		address, err := addressFromRequest(r)
		if err != nil {
			response.RenderError(w, err, http.StatusBadRequest)
			return
		}

		logger.Info("Collecting schedule", "street", address.Street, "number", address.Number)
		collector := task.NewScheduleCollector(appComponents.scheduleRepository,
			appComponents.historyRepository,
			appComponents.provider,
			logger,
		)
		if err := collector.Run(r.Context(), address); err != nil {
			logger.Error("Failed to collect schedule", "error", err)
			renderCollectionError(w, err)
			return
		}

		response.RenderJSON(w, response.NewPostResponse(true, "Schedule collected for "+address.String(), nil))
	}
}

func addressFromRequest(r *http.Request) (collection.Address, error) {
	address := collection.NewAddress(r.URL.Query().Get("street"), r.URL.Query().Get("number"))
	if !address.IsValid() {
		return collection.Address{}, fmt.Errorf("street and number are required")
	}

	return address, nil
}

// fetchCachedSchedule serves the cached schedule when one exists and falls
// back to a live fetch, storing the result for the next request. The token
// handling below the provider stays uncached either way.
func fetchCachedSchedule(appComponents *scheduleAppComponent, address collection.Address, refresh bool) (*collection.Schedule, error) {
	logger := appComponents.logger
	scheduleRepository := appComponents.scheduleRepository

	if !scheduleRepository.IsReady() {
		return nil, fmt.Errorf("schedule repository is not ready")
	}

	if !refresh {
		schedule, err := scheduleRepository.GetByAddress(context.Background(), address)
		if err == nil && schedule != nil {
			logger.Debug("Schedule found in repository, returning cached data", "key", address.Key())
			return schedule, nil
		}

		logger.Warn("No cached schedule found in repository, fetching from provider", "key", address.Key())
	}

	schedule, err := appComponents.provider.GetSchedule(context.Background(), address)
	if err != nil {
		logger.Error("Failed to fetch schedule from provider", "error", err)
		return nil, err
	}

	if scheduleRepository.Has(context.Background(), address) {
		if err := scheduleRepository.Delete(context.Background(), address); err != nil {
			return nil, fmt.Errorf("failed to replace cached schedule: %w", err)
		}
	}

	if err := scheduleRepository.Create(context.Background(), schedule); err != nil {
		return nil, fmt.Errorf("failed to add schedule to repository: %w", err)
	}

	logger.Info("Successfully fetched and cached schedule", "key", address.Key())
	return schedule, nil
}

// renderCollectionError maps fetch failures to HTTP responses: rejected
// addresses carry their suggestions, upstream failures surface as 502.
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
