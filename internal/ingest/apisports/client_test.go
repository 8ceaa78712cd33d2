package apisports

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/itbasis/go-clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	teamsBody = `{"get":"teams","parameters":[],"errors":[],"results":2,"response":[
		{"id":1,"name":"Atlanta Hawks","nickname":"Hawks","nbaFranchise":true,"leagues":{"standard":{"conference":"East","division":"Southeast"}}},
		{"id":2,"name":"Boston Celtics","nickname":"Celtics","nbaFranchise":true,"leagues":{"standard":{"conference":"East","division":"Atlantic"}}}
	]}`
	rateLimitBody = `{"get":"teams","parameters":[],"errors":{"rateLimit":"Too many requests. Your rate limit is 10 requests per minute."},"results":0,"response":[]}`
)

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*Config)) (*Client, *recordingSleeper) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sleeper := &recordingSleeper{}
	cfg := Config{
		BaseURL: srv.URL,
		APIKey:  "secret",
		Sleep:   sleeper.sleep,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewClient(cfg), sleeper
}

func TestFetchTeamsSendsHeadersAndDecodes(t *testing.T) {
	var gotKey, gotHost, gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(headerAPIKey)
		gotHost = r.Header.Get(headerHost)
		gotPath = r.URL.Path
		fmt.Fprint(w, teamsBody)
	}, nil)

	teams, err := c.FetchTeams(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, Host, gotHost)
	assert.Equal(t, "/teams", gotPath)
	require.Len(t, teams, 2)
	assert.Equal(t, []string{"id", "name", "nickname", "nbaFranchise", "leagues"}, teams[0].Keys())
	name, _ := teams[1].Get("name")
	assert.Equal(t, "Boston Celtics", name)
}

func TestFetchSeasons(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/seasons", r.URL.Path)
		fmt.Fprint(w, `{"get":"seasons","errors":[],"results":3,"response":[2015,2016,2017]}`)
	}, nil)

	seasons, err := c.FetchSeasons(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2015, 2016, 2017}, seasons)
}

func TestFetchSeasonsRejectsNonInteger(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[],"response":["2015"]}`)
	}, nil)

	_, err := c.FetchSeasons(context.Background())
	assert.Error(t, err)
}

func TestFetchGamesPassesSeason(t *testing.T) {
	var gotSeason string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/games", r.URL.Path)
		gotSeason = r.URL.Query().Get("season")
		fmt.Fprint(w, `{"errors":[],"response":[{"id":10,"league":"standard","season":2020}]}`)
	}, nil)

	games, err := c.FetchGames(context.Background(), 2020)
	require.NoError(t, err)
	assert.Equal(t, "2020", gotSeason)
	require.Len(t, games, 1)
	id, _ := games[0].Get("id")
	assert.Equal(t, int64(10), id)
}

func TestRateLimitedResponseIsRetriedAfterOneWait(t *testing.T) {
	var calls atomic.Int32
	c, sleeper := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, rateLimitBody)
			return
		}
		fmt.Fprint(w, teamsBody)
	}, nil)

	teams, err := c.FetchTeams(context.Background())
	require.NoError(t, err)

	assert.Len(t, teams, 2)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{DefaultRateLimitWait}, sleeper.waits)
}

func TestRateLimitRetriesUntilProviderRecovers(t *testing.T) {
	var calls atomic.Int32
	c, sleeper := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 4 {
			fmt.Fprint(w, rateLimitBody)
			return
		}
		fmt.Fprint(w, teamsBody)
	}, nil)

	_, err := c.FetchTeams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(5), calls.Load())
	assert.Len(t, sleeper.waits, 4)
}

func TestRateLimitCapReturnsRateLimitError(t *testing.T) {
	var calls atomic.Int32
	c, sleeper := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, rateLimitBody)
	}, func(cfg *Config) {
		cfg.MaxRateLimitRetries = 2
	})

	_, err := c.FetchTeams(context.Background())
	rlErr, ok := AsRateLimitError(err)
	require.True(t, ok, "expected RateLimitError, got %v", err)
	assert.Equal(t, 3, rlErr.Attempts)
	assert.Equal(t, "/teams", rlErr.Endpoint)
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, sleeper.waits, 2)
}

func TestRateLimitWaitUsesClock(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, rateLimitBody)
			return
		}
		fmt.Fprint(w, teamsBody)
	}))
	defer srv.Close()

	mock := clock.NewMock()
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k", Clock: mock})

	done := make(chan error, 1)
	go func() {
		_, err := c.FetchTeams(context.Background())
		done <- err
	}()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			assert.Equal(t, int32(2), calls.Load())
			return
		case <-deadline:
			t.Fatal("fetch did not finish after advancing the clock")
		default:
			mock.Add(DefaultRateLimitWait)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestCanceledContextAbortsRateLimitWait(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rateLimitBody)
	}, func(cfg *Config) {
		cfg.Sleep = nil
		cfg.Clock = clock.NewMock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := c.FetchTeams(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMissingResponseIsFatal(t *testing.T) {
	c, sleeper := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"get":"teams","errors":{"token":"Error/Missing application key."},"results":0}`)
	}, nil)

	_, err := c.FetchTeams(context.Background())
	assert.ErrorIs(t, err, ErrMissingResponse)
	assert.Empty(t, sleeper.waits)
}

func TestNullResponseIsMissing(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[],"response":null}`)
	}, nil)

	_, err := c.FetchTeams(context.Background())
	assert.ErrorIs(t, err, ErrMissingResponse)
}

func TestNon2xxWithoutEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "<html>bad gateway</html>")
	}, nil)

	_, err := c.FetchTeams(context.Background())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "bad gateway")
}

func TestTimeoutIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, sleeper := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, teamsBody)
	}, func(cfg *Config) {
		cfg.HTTPClient = &http.Client{Timeout: 20 * time.Millisecond}
	})

	_, err := c.FetchTeams(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, sleeper.waits)
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCache) Lookup(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.entries[key]
	return v, ok, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func TestCacheServesRepeatedCalls(t *testing.T) {
	var calls atomic.Int32
	cache := newFakeCache()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, teamsBody)
	}, func(cfg *Config) {
		cfg.Cache = cache
		cfg.CacheTTL = time.Hour
	})

	first, err := c.FetchTeams(context.Background())
	require.NoError(t, err)
	second, err := c.FetchTeams(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first, second)
	assert.Equal(t, time.Hour, cache.ttls["apisports:/teams"])
}

func TestRateLimitedPayloadIsNotCached(t *testing.T) {
	var calls atomic.Int32
	cache := newFakeCache()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, rateLimitBody)
			return
		}
		fmt.Fprint(w, `{"errors":[],"response":[2019,2020]}`)
	}, func(cfg *Config) {
		cfg.Cache = cache
	})

	seasons, err := c.FetchSeasons(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2019, 2020}, seasons)
	assert.Equal(t, "[2019,2020]", cache.entries["apisports:/seasons"])
}
