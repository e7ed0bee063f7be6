package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	spinhttp "github.com/spinframework/spin-go-sdk/v2/http"
	spinvars "github.com/spinframework/spin-go-sdk/v2/variables"

	"github.com/timgluz/abfuhrplan/calendar"
	"github.com/timgluz/abfuhrplan/collection"
	"github.com/timgluz/abfuhrplan/log"
	"github.com/timgluz/abfuhrplan/middleware"
	"github.com/timgluz/abfuhrplan/response"
	"github.com/timgluz/abfuhrplan/secret"
)

const (
	FormatICS = "ics"
	FormatCSV = "csv"
)

type calendarAppConfig struct {
	ScheduleStoreName string `json:"schedule_store_name"`
	APIKey            string `json:"api_key"`
	ScriptURL         string `json:"script_url"`
	APIEndpoint       string `json:"api_endpoint"`

	LogLevel string `json:"log_level"`
}

type calendarAppComponents struct {
	config calendarAppConfig

	scheduleRepository collection.Repository
	provider           collection.Provider
	secretStore        secret.Store

	logger *slog.Logger
}

func init() {
	spinhttp.Handle(func(w http.ResponseWriter, r *http.Request) {
		config, err := newCalendarAppConfigFromSpinVariables()
		if err != nil {
			response.RenderFatal(w, fmt.Errorf("failed to load calendar app configuration: %w", err))
			return
		}

		appComponents, err := initCalendarAppComponents(*config)
		if err != nil {
			fmt.Println("Error initializing calendar app components:", err)
			response.RenderFatal(w, fmt.Errorf("failed to initialize calendar app components"))
			return
		}
		defer appComponents.Close()

		if !appComponents.IsReady() {
			fmt.Println("Calendar app components are not ready")
			response.RenderFatal(w, fmt.Errorf("calendar app components are not ready"))
			return
		}

		logger := appComponents.logger
		logger.Info("Calendar app components initialized successfully", "storeName", config.ScheduleStoreName)

		router := spinhttp.NewRouter()
		router.GET("/calendar/download", middleware.BearerAuth(newDownloadHandler(appComponents), appComponents.secretStore))
		// Subscription feeds stay public: calendar clients cannot send
		// Authorization headers when polling a feed URL.
		router.GET("/calendar/subscribe", newSubscribeHandler(appComponents))

		router.NotFound = response.NewNotFoundHandler(logger)
		router.ServeHTTP(w, r)
	})
}

func main() {}

func newDownloadHandler(appComponents *calendarAppComponents) spinhttp.RouterHandle {
	return func(w http.ResponseWriter, r *http.Request, params spinhttp.Params) {
		logger := appComponents.logger

		address, err := addressFromRequest(r)
		if err != nil {
			response.RenderError(w, err, http.StatusBadRequest)
			return
		}

		format := r.URL.Query().Get("format")
		if format == "" {
			format = FormatICS
		}

		if format != FormatICS && format != FormatCSV {
			response.RenderError(w, fmt.Errorf("unsupported format: %s", format), http.StatusBadRequest)
			return
		}

		logger.Debug("Rendering calendar download", "street", address.Street, "number", address.Number, "format", format)
		schedule, err := fetchCachedSchedule(appComponents, address)
		if err != nil {
			logger.Error("Failed to fetch schedule for calendar", "error", err)
			renderCollectionError(w, err)
			return
		}

		switch format {
		case FormatCSV:
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=abfuhrplan-%s.csv", address.Key()))
			if err := calendar.WriteCSV(w, schedule); err != nil {
				logger.Error("Failed to write CSV", "error", err)
			}
		default:
			w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=abfuhrplan-%s.ics", address.Key()))
			opts := calendar.ICSOptions{Reminders: remindersFromRequest(r)}
			if err := calendar.WriteICS(w, schedule, opts); err != nil {
				logger.Error("Failed to write ICS", "error", err)
			}
		}
	}
}

func newSubscribeHandler(appComponents *calendarAppComponents) spinhttp.RouterHandle {
	return func(w http.ResponseWriter, r *http.Request, params spinhttp.Params) {
		logger := appComponents.logger

		address, err := addressFromRequest(r)
		if err != nil {
			response.RenderError(w, err, http.StatusBadRequest)
			return
		}

		logger.Debug("Rendering calendar subscription", "street", address.Street, "number", address.Number)
		schedule, err := fetchCachedSchedule(appComponents, address)
		if err != nil {
			logger.Error("Failed to fetch schedule for subscription", "error", err)
			renderCollectionError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		if err := calendar.WriteSubscriptionICS(w, schedule, calendar.ICSOptions{}); err != nil {
			logger.Error("Failed to write subscription ICS", "error", err)
		}
	}
}

func addressFromRequest(r *http.Request) (collection.Address, error) {
	address := collection.NewAddress(r.URL.Query().Get("street"), r.URL.Query().Get("number"))
	if !address.IsValid() {
		return collection.Address{}, fmt.Errorf("street and number are required")
	}

	return address, nil
}

// remindersFromRequest reads the optional reminder settings. Both values
// must be present, anything unparsable is ignored like the rest of the
// query noise.
func remindersFromRequest(r *http.Request) []calendar.Reminder {
	daysParam := r.URL.Query().Get("reminder_days")
	timeParam := r.URL.Query().Get("reminder_time")
	if daysParam == "" || timeParam == "" {
		return nil
	}

	days, err := strconv.Atoi(daysParam)
	if err != nil || days < 0 {
		return nil
	}

	return []calendar.Reminder{{DaysBefore: days, Time: timeParam}}
}

func fetchCachedSchedule(appComponents *calendarAppComponents, address collection.Address) (*collection.Schedule, error) {
	logger := appComponents.logger
	scheduleRepository := appComponents.scheduleRepository

	schedule, err := scheduleRepository.GetByAddress(context.Background(), address)
	if err == nil && schedule != nil {
		logger.Debug("Schedule found in repository, returning cached data", "key", address.Key())
		return schedule, nil
	}

	logger.Warn("No cached schedule found in repository, fetching from provider", "key", address.Key())
	schedule, err = appComponents.provider.GetSchedule(context.Background(), address)
	if err != nil {
		return nil, err
	}

	if err := scheduleRepository.Create(context.Background(), schedule); err != nil {
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

func newCalendarAppConfigFromSpinVariables() (*calendarAppConfig, error) {
	storeName, err := spinvars.Get("schedule_store_name")
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule_store_name: %w", err)
	}

	apiKey, err := spinvars.Get("api_key")
	if err != nil {
		return nil, fmt.Errorf("failed to get api_key: %w", err)
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

	return &calendarAppConfig{
		ScheduleStoreName: storeName,
		APIKey:            apiKey,
		ScriptURL:         scriptURL,
		APIEndpoint:       apiEndpoint,
		LogLevel:          logLevel,
	}, nil
}

func initCalendarAppComponents(config calendarAppConfig) (*calendarAppComponents, error) {
	logger := log.NewTextLogger(os.Stderr, config.LogLevel).With("component", "calendar")
	logger.Info("Initializing calendar components")

	scheduleRepository, err := collection.NewSpinKVRepository(config.ScheduleStoreName, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule repository: %w", err)
	}

	httpClient := spinhttp.NewClient()
	provider := collection.NewWasWobProvider(config.ScriptURL, config.APIEndpoint, httpClient, logger)

	secretStore := secret.NewInMemoryStore()
	if err := secretStore.Set(config.APIKey, config.APIKey); err != nil {
		return nil, fmt.Errorf("failed to store API key: %w", err)
	}

	return &calendarAppComponents{
		config:             config,
		scheduleRepository: scheduleRepository,
		provider:           provider,
		secretStore:        secretStore,
		logger:             logger,
	}, nil
}

func (c *calendarAppComponents) IsReady() bool {
	if c.logger == nil {
		fmt.Println("Logger of calendar app components is not initialized")
		return false
	}

	if c.scheduleRepository == nil || !c.scheduleRepository.IsReady() {
		c.logger.Error("Schedule repository is not initialized or not ready")
		return false
	}

	if c.provider == nil || !c.provider.IsReady() {
		c.logger.Error("Schedule provider is not initialized or not ready")
		return false
	}

	if c.secretStore == nil || !c.secretStore.IsReady() {
		c.logger.Error("Secret store is not initialized or not ready")
		return false
	}

	return true
}

func (c *calendarAppComponents) Close() error {
	if c.scheduleRepository != nil {
		if err := c.scheduleRepository.Close(); err != nil {
			c.logger.Error("Failed to close schedule repository", "error", err)
			return err
		}
	}

	if c.secretStore != nil {
		if err := c.secretStore.Close(); err != nil {
			c.logger.Error("Failed to close secret store", "error", err)
			return err
		}
	}

	c.logger.Info("Calendar app components closed successfully")
	return nil
}
