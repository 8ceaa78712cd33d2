package apisports

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/itbasis/go-clock"
	"github.com/sirupsen/logrus"

	"github.com/fortuna/nbaduck/internal/logging"
	"github.com/fortuna/nbaduck/internal/record"
)

const (
	BaseURL = "https://v2.nba.api-sports.io"
	Host    = "v2.nba.api-sports.io"

	DefaultTimeout       = 90 * time.Second
	DefaultRateLimitWait = 60 * time.Second

	headerAPIKey = "x-rapidapi-key"
	headerHost   = "x-rapidapi-host"

	pathSeasons = "/seasons"
	pathTeams   = "/teams"
	pathGames   = "/games"

	cacheKeyPrefix = "apisports:"
)

// Cache stores raw response payloads between runs.
type Cache interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Config controls how the client reaches the api-sports NBA API.
type Config struct {
	BaseURL             string
	Host                string
	APIKey              string
	Timeout             time.Duration
	RateLimitWait       time.Duration
	MaxRateLimitRetries int // 0 retries forever
	HTTPClient          *http.Client
	Clock               clock.Clock
	Sleep               Sleeper // overrides Clock for the rate limit wait
	Cache               Cache
	CacheTTL            time.Duration
	Logger              logrus.FieldLogger
}

// Client fetches seasons, teams and games from api-sports.
type Client struct {
	baseURL       string
	host          string
	apiKey        string
	httpClient    *http.Client
	rateLimitWait time.Duration
	maxRetries    int
	sleep         Sleeper
	cache         Cache
	cacheTTL      time.Duration
	logger        logrus.FieldLogger
}

// NewClient creates a client, filling unset fields with defaults.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = BaseURL
	}
	host := cfg.Host
	if host == "" {
		host = Host
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	wait := cfg.RateLimitWait
	if wait <= 0 {
		wait = DefaultRateLimitWait
	}

	sleep := cfg.Sleep
	if sleep == nil {
		clk := cfg.Clock
		if clk == nil {
			clk = clock.New()
		}
		sleep = clockSleeper(clk)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Client{
		baseURL:       baseURL,
		host:          host,
		apiKey:        cfg.APIKey,
		httpClient:    httpClient,
		rateLimitWait: wait,
		maxRetries:    cfg.MaxRateLimitRetries,
		sleep:         sleep,
		cache:         cfg.Cache,
		cacheTTL:      cfg.CacheTTL,
		logger:        logger,
	}
}

// FetchSeasons returns the league years the API knows about.
func (c *Client) FetchSeasons(ctx context.Context) ([]int, error) {
	raw, err := c.fetch(ctx, pathSeasons)
	if err != nil {
		return nil, err
	}

	values, err := decodeArray(raw)
	if err != nil {
		return nil, fmt.Errorf("decode seasons: %w", err)
	}

	seasons := make([]int, 0, len(values))
	for _, v := range values {
		year, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("decode seasons: unexpected season value %v (%T)", v, v)
		}
		seasons = append(seasons, int(year))
	}
	return seasons, nil
}

// FetchTeams returns every team record.
func (c *Client) FetchTeams(ctx context.Context) ([]record.Record, error) {
	raw, err := c.fetch(ctx, pathTeams)
	if err != nil {
		return nil, err
	}
	return decodeRecords(raw)
}

// FetchGames returns every game record of a season.
func (c *Client) FetchGames(ctx context.Context, season int) ([]record.Record, error) {
	query := url.Values{"season": {strconv.Itoa(season)}}
	raw, err := c.fetch(ctx, pathGames+"?"+query.Encode())
	if err != nil {
		return nil, err
	}
	return decodeRecords(raw)
}

// fetch issues a GET for endpoint and returns the response payload. A rate
// limited envelope is waited out and the identical request re-issued.
func (c *Client) fetch(ctx context.Context, endpoint string) (json.RawMessage, error) {
	log := c.logger.WithField(logging.FieldEndpoint, endpoint)

	if cached, ok := c.lookupCache(ctx, endpoint); ok {
		log.Debug("serving response from cache")
		return cached, nil
	}

	for attempt := 1; ; attempt++ {
		env, status, err := c.do(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		if env.rateLimited() {
			if c.maxRetries > 0 && attempt > c.maxRetries {
				return nil, &RateLimitError{Endpoint: endpoint, Attempts: attempt, Detail: env.errorDetail()}
			}
			log.WithField("errors", env.errorDetail()).
				Warnf("rate limited, retrying in %s", c.rateLimitWait)
			if err := c.sleep(ctx, c.rateLimitWait); err != nil {
				return nil, err
			}
			continue
		}

		if status < 200 || status > 299 {
			return nil, &StatusError{Endpoint: endpoint, StatusCode: status, Body: env.errorDetail()}
		}
		if detail := env.errorDetail(); detail != "" {
			log.WithField("errors", detail).Warn("provider reported errors")
		}
		if !env.hasResponse() {
			return nil, fmt.Errorf("%s: %w", endpoint, ErrMissingResponse)
		}

		c.storeCache(ctx, endpoint, env.Response)
		log.WithField("results", env.Results).Info("fetched")
		return env.Response, nil
	}
}

func (c *Client) do(ctx context.Context, endpoint string) (*envelope, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set(headerAPIKey, c.apiKey)
	req.Header.Set(headerHost, c.host)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s: %w", endpoint, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, resp.StatusCode, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: snippet(body)}
		}
		return nil, resp.StatusCode, fmt.Errorf("decoding %s: %w (body: %s)", endpoint, err, snippet(body))
	}
	return &env, resp.StatusCode, nil
}

func (c *Client) lookupCache(ctx context.Context, endpoint string) (json.RawMessage, bool) {
	if c.cache == nil {
		return nil, false
	}
	value, ok, err := c.cache.Lookup(ctx, cacheKeyPrefix+endpoint)
	if err != nil {
		c.logger.WithError(err).WithField(logging.FieldEndpoint, endpoint).Warn("cache lookup failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return json.RawMessage(value), true
}

func (c *Client) storeCache(ctx context.Context, endpoint string, payload json.RawMessage) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, cacheKeyPrefix+endpoint, string(payload), c.cacheTTL); err != nil {
		c.logger.WithError(err).WithField(logging.FieldEndpoint, endpoint).Warn("cache store failed")
	}
}

func clockSleeper(clk clock.Clock) Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clk.After(d):
			return nil
		}
	}
}

func decodeArray(raw json.RawMessage) ([]any, error) {
	v, err := record.Decode(raw)
	if err != nil {
		return nil, err
	}
	values, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON array, got %T", v)
	}
	return values, nil
}

func decodeRecords(raw json.RawMessage) ([]record.Record, error) {
	values, err := decodeArray(raw)
	if err != nil {
		return nil, err
	}
	out := make([]record.Record, 0, len(values))
	for i, v := range values {
		r, ok := v.(record.Record)
		if !ok {
			return nil, fmt.Errorf("element %d is %T, not an object", i, v)
		}
		out = append(out, r)
	}
	return out, nil
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max]
	}
	return s
}
