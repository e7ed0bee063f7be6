// trigger-collect command is used to trigger a schedule collection for addresses

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/timgluz/abfuhrplan/collection"
)

type Config struct {
	APIEndpoint string `env:"AP_API_ENDPOINT,notEmpty"`
	APIKey      string `env:"AP_API_KEY,notEmpty"`
	TaskAPIPath string `env:"AP_COLLECT_TASK_PATH" envDefault:"/tasks/collectSchedule"`

	// Addresses to collect, "street number" pairs separated by semicolons.
	Addresses []string `env:"AP_ADDRESSES" envSeparator:";"`

	RequestTimeout time.Duration `env:"AP_REQUEST_TIMEOUT" envDefault:"10s"`
}

func main() {
	fmt.Println("Triggering schedule collection...")
	config, err := loadConfigFromEnv()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if len(config.Addresses) == 0 {
		fmt.Println("No addresses configured, set AP_ADDRESSES to 'street number;street number'.")
		os.Exit(1)
	}

	addresses := make([]collection.Address, 0, len(config.Addresses))
	for _, rawAddress := range config.Addresses {
		address, err := collection.ParseAddress(rawAddress)
		if err != nil {
			fmt.Printf("Skipping invalid address %q: %v\n", rawAddress, err)
			continue
		}
		addresses = append(addresses, address)
	}

	if err := triggerAllCollections(config, addresses); err != nil {
		fmt.Printf("Error triggering schedule collection: %v\n", err)
		os.Exit(1)
	}

	if err := showCollectedSchedules(config, addresses); err != nil {
		fmt.Printf("Error reading back collected schedules: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Schedule collection triggered successfully.")
}

func loadConfigFromEnv() (*Config, error) {
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

func triggerAllCollections(config *Config, addresses []collection.Address) error {
	httpClient := &http.Client{
		Timeout: config.RequestTimeout,
	}

	for _, address := range addresses {
		fmt.Printf("Triggering collection for %s...\n", address)
		if err := triggerCollectTask(httpClient, config, address); err != nil {
			return fmt.Errorf("failed to trigger collection for %s: %w", address, err)
		}
	}

	return nil
}

func triggerCollectTask(client *http.Client, config *Config, address collection.Address) error {
	if client == nil {
		return fmt.Errorf("http client is required")
	}

	taskURL, err := url.JoinPath(config.APIEndpoint, config.TaskAPIPath)
	if err != nil {
		return fmt.Errorf("failed to construct task URL: %w", err)
	}

	req, err := http.NewRequest(http.MethodGet, taskURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+config.APIKey)

	q := req.URL.Query()
	q.Add("street", address.Street)
	q.Add("number", address.Number)
	req.URL.RawQuery = q.Encode()

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func(resp *http.Response) {
		if err := resp.Body.Close(); err != nil {
			fmt.Printf("failed to close response body: %v\n", err)
		}
	}(resp)

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d - %s", resp.StatusCode, string(content))
	}

	return nil
}

func showCollectedSchedules(config *Config, addresses []collection.Address) error {
	httpClient := &http.Client{
		Timeout: config.RequestTimeout,
	}

	scheduleRepository := collection.NewAPIRepository(httpClient, config.APIEndpoint, config.APIKey)
	if !scheduleRepository.IsReady() {
		return fmt.Errorf("schedule repository is not ready")
	}

	ctx := context.Background()
	defer ctx.Done()

	for _, address := range addresses {
		schedule, err := scheduleRepository.GetByAddress(ctx, address)
		if err != nil {
			fmt.Printf("No schedule available for %s: %v\n", address, err)
			continue
		}

		fmt.Printf("Next collections for %s:\n", address)
		nextDates := schedule.NextByType()
		for _, wasteType := range collection.AllWasteTypes() {
			date, ok := nextDates[wasteType]
			if !ok {
				continue
			}
			fmt.Printf("  %s: %s\n", wasteType, date)
		}
	}

	return nil
}
