package collection

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

type HTTPProvider struct {
	client *http.Client
	logger *slog.Logger
}

func NewHTTPProvider(client *http.Client, logger *slog.Logger) *HTTPProvider {
	return &HTTPProvider{
		client: client,
		logger: logger,
	}
}

func (p *HTTPProvider) IsReady() bool {
	if p.logger == nil {
		fmt.Println("Logger of HTTPProvider is not initialized")
		return false
	}

	if p.client == nil {
		p.logger.Error("HTTP client is not set for HTTPProvider")
		return false
	}

	return true
}

// RetrieveContent fetches the resource and returns its body. Any network
// failure or non-2xx status becomes a TransportError carrying the URL and,
// when available, the status code. An empty body is returned as is, the
// callers decide whether that is an error.
func (p *HTTPProvider) RetrieveContent(ctx context.Context, url string) (io.Reader, error) {
	defer ctx.Done()

	if !p.IsReady() {
		return nil, ErrProviderNotReady
	}

	resp, err := p.client.Get(url)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	defer func(resp *http.Response) {
		if err := resp.Body.Close(); err != nil {
			p.logger.Error("Failed to close response body", "url", url, "error", err)
		}
	}(resp)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		p.logger.Warn("Upstream returned non-success status", "url", url, "status", resp.StatusCode)
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode}
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("failed to read content: %w", err)}
	}

	if len(content) == 0 {
		p.logger.Warn("No content received from URL", "url", url)
	}

	p.logger.Info("Content retrieved successfully", "url", url, "length", len(content))
	return bytes.NewReader(content), nil
}
