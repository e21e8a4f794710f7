package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/simulative/grade-ingestion-service/internal/models"
)

// RequestTimeLayout formats the start and end query parameters. The
// fraction is printed only when non-zero.
const RequestTimeLayout = "2006-01-02 15:04:05.999999"

// Client calls the statistics API
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a statistics API client. A zero timeout means the
// request waits for as long as the context allows.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchRaw performs a single GET for the attempts created between start
// and end. There is no retry; any non-2xx status is an error.
func (c *Client) FetchRaw(ctx context.Context, client, clientKey string, start, end time.Time) ([]models.RawAttempt, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid API endpoint %q: %w", c.endpoint, err)
	}
	q := u.Query()
	q.Set("client", client)
	q.Set("client_key", clientKey)
	q.Set("start", start.Format(RequestTimeLayout))
	q.Set("end", end.Format(RequestTimeLayout))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var attempts []models.RawAttempt
	if err := json.Unmarshal(body, &attempts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	log.Info().Int("count", len(attempts)).Msg("attempts received")
	return attempts, nil
}
