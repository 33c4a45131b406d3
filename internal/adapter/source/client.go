package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nikhaldi/mobility-growth/internal/domain"
)

// Client fetches the two source datasets over HTTP. Both are fetched once at
// startup; a failed fetch is a fatal startup error, there are no retries.
type Client struct {
	caseURL     string
	mobilityURL string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a dataset client with a per-request timeout.
func NewClient(caseURL, mobilityURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		caseURL:     caseURL,
		mobilityURL: mobilityURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchCases downloads and parses the case dataset.
func (c *Client) FetchCases(ctx context.Context) (*domain.CaseTable, error) {
	start := time.Now()
	body, err := c.doRequest(ctx, c.caseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch case data: %w", err)
	}
	defer body.Close()

	records, err := ParseCases(body)
	if err != nil {
		return nil, fmt.Errorf("parse case data: %w", err)
	}

	c.logger.Info("case dataset loaded",
		"url", c.caseURL,
		"rows", len(records),
		"duration", time.Since(start),
	)
	return domain.NewCaseTable(records), nil
}

// FetchMobility downloads and parses the mobility dataset.
func (c *Client) FetchMobility(ctx context.Context) (*domain.MobilityTable, error) {
	start := time.Now()
	body, err := c.doRequest(ctx, c.mobilityURL)
	if err != nil {
		return nil, fmt.Errorf("fetch mobility data: %w", err)
	}
	defer body.Close()

	records, err := ParseMobility(body)
	if err != nil {
		return nil, fmt.Errorf("parse mobility data: %w", err)
	}

	c.logger.Info("mobility dataset loaded",
		"url", c.mobilityURL,
		"rows", len(records),
		"duration", time.Since(start),
	)
	return domain.NewMobilityTable(records), nil
}

func (c *Client) doRequest(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("dataset fetch: status %d: %s", resp.StatusCode, body)
	}

	return resp.Body, nil
}
