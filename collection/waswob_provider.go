package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/timgluz/abfuhrplan/street"
)

const WasWobProviderName = "waswob"

const (
	DefaultScriptURL   = "https://abfuhrtermine.waswob.de/js/main.js"
	DefaultAPIEndpoint = "https://apiabfuhrtermine.waswob.de"

	downloadJSONPath    = "/api/download-json"
	downloadStreetsPath = "/api/download-strassen"
)

// wasWobStreet is one entry of the download-strassen payload, which is an
// object keyed by street id.
type wasWobStreet struct {
	Name         string   `json:"strName"`
	HouseNumbers []string `json:"Hausnummer"`
}

// WasWobProvider fetches waste collection schedules from the WAS Wolfsburg
// download API. The API token is embedded in the upstream JavaScript bundle
// and is re-read on every fetch, tokens are never cached.
type WasWobProvider struct {
	HTTPProvider

	ScriptURL   string `json:"script_url"`
	APIEndpoint string `json:"api_endpoint"`

	logger *slog.Logger
}

func NewWasWobProvider(scriptURL, apiEndpoint string, client *http.Client, logger *slog.Logger) *WasWobProvider {
	if scriptURL == "" {
		scriptURL = DefaultScriptURL
	}
	if apiEndpoint == "" {
		apiEndpoint = DefaultAPIEndpoint
	}

	return &WasWobProvider{
		ScriptURL:   scriptURL,
		APIEndpoint: apiEndpoint,
		logger:      logger,
		HTTPProvider: HTTPProvider{
			client: client,
			logger: logger,
		},
	}
}

func (p *WasWobProvider) IsReady() bool {
	if !p.HTTPProvider.IsReady() {
		return false
	}

	if p.ScriptURL == "" || p.APIEndpoint == "" {
		p.logger.Error("WasWobProvider endpoints are not configured")
		return false
	}

	return true
}

// GetSchedule fetches all published pickup dates for the given address.
// A street or house number the API does not recognize is reported as an
// ArgumentNotFoundError with the valid values attached.
func (p *WasWobProvider) GetSchedule(ctx context.Context, address Address) (*Schedule, error) {
	defer ctx.Done()

	if !p.IsReady() {
		return nil, ErrProviderNotReady
	}

	token, err := p.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("strasse", address.Street)
	query.Set("hausnummer", address.Number)
	query.Set("token", token)
	resourceURL := p.APIEndpoint + downloadJSONPath + "?" + query.Encode()

	jsonContent, err := p.RetrieveContent(ctx, resourceURL)
	if err != nil {
		// A 500 is how the API says "unknown street or house number".
		var transportErr *TransportError
		if errors.As(err, &transportErr) && transportErr.StatusCode == http.StatusInternalServerError {
			return nil, p.resolveAddressError(ctx, token, address)
		}

		return nil, err
	}

	datesByType, err := decodeSchedulePayload(jsonContent)
	if err != nil {
		return nil, err
	}

	entries, err := mapCollections(datesByType)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Successfully fetched schedule", "street", address.Street, "number", address.Number, "entries", len(entries))
	return NewSchedule(address, entries), nil
}

// GetStreets fetches the directory of all serviced streets.
func (p *WasWobProvider) GetStreets(ctx context.Context) (*street.Directory, error) {
	defer ctx.Done()

	if !p.IsReady() {
		return nil, ErrProviderNotReady
	}

	token, err := p.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	return p.getStreets(ctx, token)
}

// fetchToken downloads the upstream JavaScript bundle and extracts the API
// token from it. The result is only valid for the current fetch.
func (p *WasWobProvider) fetchToken(ctx context.Context) (string, error) {
	content, err := p.RetrieveContent(ctx, p.ScriptURL)
	if err != nil {
		return "", err
	}

	script, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("failed to read script content: %w", err)
	}

	token, err := extractToken(string(script))
	if err != nil {
		return "", err
	}

	p.logger.Debug("Extracted API token from script", "url", p.ScriptURL, "length", len(token))
	return token, nil
}

// resolveAddressError figures out which part of the address the API rejected.
// An unknown street gets all street names as suggestions, a known street with
// an unknown house number gets that street's numbers.
func (p *WasWobProvider) resolveAddressError(ctx context.Context, token string, address Address) error {
	directory, err := p.getStreets(ctx, token)
	if err != nil {
		return err
	}

	matched, ok := directory.FindByName(address.Street)
	if !ok {
		p.logger.Warn("Street not found in directory", "street", address.Street)
		return &ArgumentNotFoundError{
			Field:       "street",
			Value:       address.Street,
			Suggestions: directory.Names(),
		}
	}

	p.logger.Warn("House number not found for street", "street", address.Street, "number", address.Number)
	return &ArgumentNotFoundError{
		Field:       "number",
		Value:       address.Number,
		Suggestions: matched.SortedHouseNumbers(),
	}
}

func (p *WasWobProvider) getStreets(ctx context.Context, token string) (*street.Directory, error) {
	query := url.Values{}
	query.Set("token", token)
	resourceURL := p.APIEndpoint + downloadStreetsPath + "?" + query.Encode()

	jsonContent, err := p.RetrieveContent(ctx, resourceURL)
	if err != nil {
		return nil, err
	}

	directory, err := decodeStreetsPayload(jsonContent)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Successfully fetched street directory", "streets", directory.Len())
	return directory, nil
}

// decodeSchedulePayload reads the download-json response: a non-empty JSON
// array whose first element maps waste type names to objects of date strings.
// Only the first element carries data. The decoder walks the tokens itself
// so the date keys keep their document order, a plain map would lose it.
func decodeSchedulePayload(r io.Reader) (map[string][]string, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, &DataFormatError{Reason: "response is not valid JSON", Err: err}
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, &DataFormatError{Reason: "response is not a JSON array"}
	}

	if !dec.More() {
		return nil, &DataFormatError{Reason: "response array is empty"}
	}

	tok, err = dec.Token()
	if err != nil {
		return nil, &DataFormatError{Reason: "response is not valid JSON", Err: err}
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &DataFormatError{Reason: "first array element is not an object"}
	}

	datesByType := make(map[string][]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &DataFormatError{Reason: "response is not valid JSON", Err: err}
		}

		wasteTypeName, ok := keyTok.(string)
		if !ok {
			return nil, &DataFormatError{Reason: "waste type key is not a string"}
		}

		dates, err := decodeDateKeys(dec, wasteTypeName)
		if err != nil {
			return nil, err
		}

		datesByType[wasteTypeName] = dates
	}

	return datesByType, nil
}

// decodeDateKeys reads one {"2026-01-05": "annotation", ...} object and
// returns the date keys in document order. Annotation values are skipped,
// they only carry remarks like "Feiertagsverschiebung".
func decodeDateKeys(dec *json.Decoder, wasteTypeName string) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, &DataFormatError{Reason: "response is not valid JSON", Err: err}
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &DataFormatError{Reason: fmt.Sprintf("dates of %q are not an object", wasteTypeName)}
	}

	dates := make([]string, 0)
	for dec.More() {
		dateTok, err := dec.Token()
		if err != nil {
			return nil, &DataFormatError{Reason: "response is not valid JSON", Err: err}
		}

		dateStr, ok := dateTok.(string)
		if !ok {
			return nil, &DataFormatError{Reason: fmt.Sprintf("date key of %q is not a string", wasteTypeName)}
		}

		var annotation json.RawMessage
		if err := dec.Decode(&annotation); err != nil {
			return nil, &DataFormatError{Reason: "response is not valid JSON", Err: err}
		}

		dates = append(dates, dateStr)
	}

	if _, err := dec.Token(); err != nil {
		return nil, &DataFormatError{Reason: "response is not valid JSON", Err: err}
	}

	return dates, nil
}

// decodeStreetsPayload reads the download-strassen response, an object keyed
// by street id. The token walk keeps the document order so that duplicate
// street names resolve to the first entry, like the upstream web app does.
func decodeStreetsPayload(r io.Reader) (*street.Directory, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, &DataFormatError{Reason: "street directory is not valid JSON", Err: err}
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &DataFormatError{Reason: "street directory is not a JSON object"}
	}

	streets := make([]street.Street, 0)
	for dec.More() {
		idTok, err := dec.Token()
		if err != nil {
			return nil, &DataFormatError{Reason: "street directory is not valid JSON", Err: err}
		}

		id, ok := idTok.(string)
		if !ok {
			return nil, &DataFormatError{Reason: "street id is not a string"}
		}

		var entry wasWobStreet
		if err := dec.Decode(&entry); err != nil {
			return nil, &DataFormatError{Reason: fmt.Sprintf("street entry %q is malformed", id), Err: err}
		}

		streets = append(streets, street.Street{
			ID:           id,
			Name:         entry.Name,
			HouseNumbers: entry.HouseNumbers,
		})
	}

	return street.NewDirectory(streets), nil
}

// mapCollections turns the decoded payload into collection entries: waste
// types in their fixed order, absent types skipped, dates in document order
// within each type. Nothing is deduplicated or re-sorted.
func mapCollections(datesByType map[string][]string) ([]Collection, error) {
	entries := make([]Collection, 0)
	for _, wasteType := range AllWasteTypes() {
		dates, ok := datesByType[string(wasteType)]
		if !ok {
			continue
		}

		for _, dateStr := range dates {
			date, err := ParseDate(dateStr)
			if err != nil {
				return nil, &DataFormatError{Reason: fmt.Sprintf("invalid collection date for %q", wasteType), Err: err}
			}

			entries = append(entries, NewCollection(date, wasteType))
		}
	}

	return entries, nil
}
