package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"advancer/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ScoreRequest asks the oracle to score a set of candidate payback dates
// for one user and bank account. Dates are YYYY-MM-DD strings.
type ScoreRequest struct {
	UserID        int64    `json:"userId"`
	BankAccountID int64    `json:"bankAccountId"`
	Dates         []string `json:"dates"`
}

// DateScore is one scored candidate returned by the oracle
type DateScore struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
}

type scoreRequestBody struct {
	ModelType models.ModelType `json:"modelType"`
	ScoreRequest
}

type scoreResponseBody struct {
	Predictions []DateScore `json:"predictions"`
}

// ClientOptions holds options for creating an oracle client
type ClientOptions struct {
	BaseURL        string
	Version        string
	Timeout        time.Duration
	RequestsPerSec int
}

// Client talks to the external ML scoring service. Calls are bounded by
// the configured timeout; transport and HTTP failures surface as errors
// and are never retried here.
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new oracle client
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 20
	}

	return &Client{
		baseURL:    opts.BaseURL,
		version:    opts.Version,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec),
	}
}

// ScorePaybackDates scores the candidate dates with the given model
func (c *Client) ScorePaybackDates(ctx context.Context, modelType models.ModelType, req ScoreRequest) ([]DateScore, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	payload, err := json.Marshal(scoreRequestBody{ModelType: modelType, ScoreRequest: req})
	if err != nil {
		return nil, fmt.Errorf("failed to encode score request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/payback-dates/score", c.baseURL, c.version)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create score request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read oracle response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.WithFields(log.Fields{
			"status":    resp.StatusCode,
			"modelType": modelType,
		}).Error("Oracle returned non-OK status")
		return nil, fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, body)
	}

	var parsed scoreResponseBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse oracle response: %w", err)
	}

	return parsed.Predictions, nil
}
