package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// APIRepository reads schedules through the deployed HTTP API instead of a
// local store. Trigger commands use it to inspect what a component has
// collected.
type APIRepository struct {
	client *http.Client

	baseURL string
	apiKey  string
}

func NewAPIRepository(client *http.Client, baseURL, apiKey string) *APIRepository {
	return &APIRepository{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (r *APIRepository) GetByAddress(ctx context.Context, address Address) (*Schedule, error) {
	defer ctx.Done()

	resourceURL := r.baseURL + "/schedule"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Accept", "application/json")

	q := req.URL.Query()
	q.Add("street", address.Street)
	q.Add("number", address.Number)
	req.URL.RawQuery = q.Encode()

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(resp *http.Response) {
		if err := resp.Body.Close(); err != nil {
			fmt.Printf("failed to close response body: %v\n", err)
		}
	}(resp)

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrScheduleNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned non-200 status: %d", resp.StatusCode)
	}

	var schedule Schedule
	if err := json.NewDecoder(resp.Body).Decode(&schedule); err != nil {
		return nil, err
	}

	return &schedule, nil
}

func (r *APIRepository) Has(ctx context.Context, address Address) bool {
	defer ctx.Done()

	schedule, err := r.GetByAddress(ctx, address)
	if err != nil || schedule == nil {
		return false
	}

	return true
}

// TODO: support Create and Delete once the API exposes write endpoints.
func (r *APIRepository) Create(ctx context.Context, schedule *Schedule) error {
	defer ctx.Done()

	return fmt.Errorf("Create operation is not supported in APIRepository")
}

func (r *APIRepository) Delete(ctx context.Context, address Address) error {
	defer ctx.Done()

	return fmt.Errorf("Delete operation is not supported in APIRepository")
}

func (r *APIRepository) IsReady() bool {
	if r.client == nil || r.baseURL == "" {
		return false
	}
	return true
}

func (r *APIRepository) Close() error {
	if r.client != nil {
		r.client = nil
	}

	return nil
}
