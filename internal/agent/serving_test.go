package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/models"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/resilience"
)

func fastRetry(n uint64) resilience.RetryPolicy {
	return resilience.RetryPolicy{MaxRetries: n, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func newTestClient(t *testing.T, url string, mutate func(*ServingConfig)) *ServingClient {
	t.Helper()
	cfg := ServingConfig{
		EndpointURL: url,
		Token:       "dapi-test",
		Timeout:     time.Second,
		Retry:       fastRetry(2),
		Logger:      logger.Discard(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewServingClient(cfg)
	require.NoError(t, err)
	return c
}

func TestServingClient_SendsPayloadAndParsesPrediction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer dapi-test", r.Header.Get("Authorization"))
		assert.Equal(t, "req-42", r.Header.Get(logger.RequestIDHeader))

		var body servingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Inputs.Messages, 2)
		assert.Equal(t, "system", body.Inputs.Messages[0].Role)
		assert.Equal(t, SystemPrompt, body.Inputs.Messages[0].Content)
		assert.Equal(t, "user", body.Inputs.Messages[1].Role)
		assert.Equal(t, "Mon prochain train ?", body.Inputs.Messages[1].Content)
		require.NotNil(t, body.Inputs.Context)
		assert.Equal(t, "TGV 6241", body.Inputs.Context.TrainNumber)

		_, _ = w.Write([]byte(`{"predictions":[{"message":"Votre TGV 6241 part à 08:47."}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	ctx := logger.ContextWithRequestID(context.Background(), "req-42")

	reply, err := c.Reply(ctx, "Mon prochain train ?", &models.TripContext{TrainNumber: "TGV 6241"})
	require.NoError(t, err)
	assert.Equal(t, "Votre TGV 6241 part à 08:47.", reply)
}

func TestServingClient_AcceptsMessageObjectAndChoices(t *testing.T) {
	bodies := []string{
		`{"predictions":[{"message":{"role":"assistant","content":"depuis un objet"}}]}`,
		`{"choices":[{"message":{"role":"assistant","content":"depuis choices"}}]}`,
	}
	want := []string{"depuis un objet", "depuis choices"}

	for i, b := range bodies {
		body := b
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		c := newTestClient(t, srv.URL, nil)

		reply, err := c.Reply(context.Background(), "bonjour", nil)
		require.NoError(t, err)
		assert.Equal(t, want[i], reply)
		srv.Close()
	}
}

func TestServingClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"predictions":[{"message":"ok"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)

	reply, err := c.Reply(context.Background(), "bonjour", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, int32(3), calls.Load())
}

func TestServingClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":"BAD_REQUEST"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)

	_, err := c.Reply(context.Background(), "bonjour", nil)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.ErrorIs(t, err, ErrUpstreamStatus)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, resilience.StateClosed, c.Breaker().State())
}

func TestServingClient_RetriesTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)

	_, err := c.Reply(context.Background(), "bonjour", nil)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestServingClient_BreakerOpensAndFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	breaker := resilience.NewCircuitBreaker(resilience.Config{
		Name:             "agent",
		FailureThreshold: 2,
		Cooldown:         time.Hour,
		IsFailure:        BreakerFailure,
	}, logger.Discard())

	c := newTestClient(t, srv.URL, func(cfg *ServingConfig) {
		cfg.Retry = fastRetry(0)
		cfg.Breaker = breaker
	})

	for i := 0; i < 2; i++ {
		_, err := c.Reply(context.Background(), "bonjour", nil)
		require.Error(t, err)
	}
	require.Equal(t, resilience.StateOpen, breaker.State())

	_, err := c.Reply(context.Background(), "bonjour", nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestServingClient_ExcludedOutcomesLeaveBreakerAlone(t *testing.T) {
	excluded := map[string]struct {
		status int
		ctx    func() context.Context
		want   error
	}{
		"client error": {
			status: http.StatusBadRequest,
			ctx:    context.Background,
		},
		"caller canceled": {
			status: http.StatusOK,
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			want: context.Canceled,
		},
	}

	for name, tc := range excluded {
		tc := tc

		t.Run(name+"/closed", func(t *testing.T) {
			var status atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(int(status.Load()))
				_, _ = w.Write([]byte(`{"predictions":[{"message":"ok"}]}`))
			}))
			defer srv.Close()

			breaker := resilience.NewCircuitBreaker(resilience.Config{
				Name:             "agent",
				FailureThreshold: 2,
				Cooldown:         time.Hour,
				IsFailure:        BreakerFailure,
			}, logger.Discard())
			c := newTestClient(t, srv.URL, func(cfg *ServingConfig) {
				cfg.Retry = fastRetry(0)
				cfg.Breaker = breaker
			})

			status.Store(http.StatusBadGateway)
			_, err := c.Reply(context.Background(), "bonjour", nil)
			require.Error(t, err)

			status.Store(int32(tc.status))
			_, err = c.Reply(tc.ctx(), "bonjour", nil)
			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
			assert.Equal(t, resilience.StateClosed, breaker.State())
			assert.Equal(t, uint64(0), breaker.Metrics().TotalSuccesses)

			// the earlier failure still counts
			status.Store(http.StatusBadGateway)
			_, err = c.Reply(context.Background(), "bonjour", nil)
			require.Error(t, err)
			assert.Equal(t, resilience.StateOpen, breaker.State())
		})

		t.Run(name+"/half-open", func(t *testing.T) {
			var status atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(int(status.Load()))
				_, _ = w.Write([]byte(`{"predictions":[{"message":"ok"}]}`))
			}))
			defer srv.Close()

			breaker := resilience.NewCircuitBreaker(resilience.Config{
				Name:             "agent",
				FailureThreshold: 1,
				Cooldown:         20 * time.Millisecond,
				IsFailure:        BreakerFailure,
			}, logger.Discard())
			c := newTestClient(t, srv.URL, func(cfg *ServingConfig) {
				cfg.Retry = fastRetry(0)
				cfg.Breaker = breaker
			})

			status.Store(http.StatusBadGateway)
			_, err := c.Reply(context.Background(), "bonjour", nil)
			require.Error(t, err)
			require.Equal(t, resilience.StateOpen, breaker.State())
			time.Sleep(40 * time.Millisecond)

			status.Store(int32(tc.status))
			_, err = c.Reply(tc.ctx(), "bonjour", nil)
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrCircuitOpen)
			assert.Equal(t, resilience.StateHalfOpen, breaker.State())

			// the next call is let through and closes the breaker
			status.Store(http.StatusOK)
			reply, err := c.Reply(context.Background(), "bonjour", nil)
			require.NoError(t, err)
			assert.Equal(t, "ok", reply)
			assert.Equal(t, resilience.StateClosed, breaker.State())
		})
	}
}

func TestServingClient_TotalTimeoutBoundsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *ServingConfig) {
		cfg.Timeout = 100 * time.Millisecond
		cfg.TotalTimeout = 250 * time.Millisecond
		cfg.Retry = fastRetry(50)
	})

	start := time.Now()
	_, err := c.Reply(context.Background(), "bonjour", nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.LessOrEqual(t, calls.Load(), int32(4))
}

func TestServingClient_EmptyAndMalformedReplies(t *testing.T) {
	cases := map[string]error{
		`{"predictions":[]}`:               ErrEmptyReply,
		`{"predictions":[{"message":""}]}`: ErrEmptyReply,
		`not json`:                         ErrMalformedReply,
	}

	for body, want := range cases {
		b := body
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(b))
		}))
		c := newTestClient(t, srv.URL, nil)

		_, err := c.Reply(context.Background(), "bonjour", nil)
		assert.ErrorIs(t, err, want, body)
		assert.Equal(t, int32(1), calls.Load(), body)
		srv.Close()
	}
}

func TestServingClient_TokenFunc(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer from-vault", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"predictions":[{"message":"ok"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *ServingConfig) {
		cfg.TokenFunc = func(context.Context) (string, error) { return "from-vault", nil }
	})

	_, err := c.Reply(context.Background(), "bonjour", nil)
	require.NoError(t, err)
}

func TestNewServingClient_RequiresEndpoint(t *testing.T) {
	_, err := NewServingClient(ServingConfig{EndpointURL: "  "})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&StatusError{StatusCode: 503}))
	assert.True(t, IsTransient(&StatusError{StatusCode: 429}))
	assert.False(t, IsTransient(&StatusError{StatusCode: 404}))
	assert.False(t, IsTransient(context.Canceled))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(nil))
}
