package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/models"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/observability"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/resilience"
)

const maxErrorBody = 4 << 10

var (
	// ErrUpstreamStatus is matched by every *StatusError
	ErrUpstreamStatus = errors.New("agent endpoint returned an error status")
	// ErrEmptyReply means the endpoint answered without any message text
	ErrEmptyReply = errors.New("agent endpoint returned an empty reply")
	// ErrMalformedReply means the endpoint body could not be decoded
	ErrMalformedReply = errors.New("agent endpoint returned a malformed reply")
	// ErrNotConfigured means no endpoint URL was provided
	ErrNotConfigured = errors.New("agent endpoint is not configured")
)

// StatusError is a non-2xx answer from the serving endpoint
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("agent endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("agent endpoint returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUpstreamStatus
}

// IsTransient reports whether a failed call may succeed when retried:
// network errors, attempt timeouts, 429 and 5xx answers.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= http.StatusInternalServerError
	}
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, ErrEmptyReply),
		errors.Is(err, ErrMalformedReply),
		errors.Is(err, ErrCircuitOpen):
		return false
	}
	return true
}

// BreakerFailure reports whether err should count against the circuit
// breaker. Caller cancellations and 4xx rejections do not.
func BreakerFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return IsTransient(err) || errors.Is(err, ErrMalformedReply)
}

// ServingConfig configures a ServingClient
type ServingConfig struct {
	EndpointURL string
	Token       string
	// TokenFunc, when set, is consulted per call and wins over Token
	TokenFunc func(ctx context.Context) (string, error)
	Timeout   time.Duration
	// TotalTimeout bounds the whole retry sequence of one Reply
	TotalTimeout time.Duration
	Retry        resilience.RetryPolicy
	Breaker      *resilience.CircuitBreaker
	HTTPClient   *http.Client
	Metrics      *observability.Metrics
	Logger       *logger.Logger
}

// ServingClient calls a model-serving endpoint over HTTP
type ServingClient struct {
	endpoint  string
	token     string
	tokenFunc func(ctx context.Context) (string, error)
	timeout   time.Duration
	total     time.Duration
	retry     resilience.RetryPolicy
	breaker   *resilience.CircuitBreaker
	client    *http.Client
	metrics   *observability.Metrics
	log       *logger.Logger
}

type servingMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type servingInputs struct {
	Messages []servingMessage    `json:"messages"`
	Context  *models.TripContext `json:"context,omitempty"`
}

type servingRequest struct {
	Inputs servingInputs `json:"inputs"`
}

type servingResponse struct {
	Predictions []struct {
		Message json.RawMessage `json:"message"`
	} `json:"predictions"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewServingClient creates a ServingClient
func NewServingClient(cfg ServingConfig) (*ServingClient, error) {
	if strings.TrimSpace(cfg.EndpointURL) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Global()
	}
	log := cfg.Logger.WithComponent("agent")

	if cfg.Breaker == nil {
		bc := resilience.DefaultConfig("agent")
		bc.IsFailure = BreakerFailure
		cfg.Breaker = resilience.NewCircuitBreaker(bc, cfg.Logger)
	}

	return &ServingClient{
		endpoint:  cfg.EndpointURL,
		token:     cfg.Token,
		tokenFunc: cfg.TokenFunc,
		timeout:   cfg.Timeout,
		total:     cfg.TotalTimeout,
		retry:     cfg.Retry,
		breaker:   cfg.Breaker,
		client:    cfg.HTTPClient,
		metrics:   cfg.Metrics,
		log:       log,
	}, nil
}

// Breaker exposes the circuit breaker guarding the endpoint
func (c *ServingClient) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

// Reply implements Responder
func (c *ServingClient) Reply(ctx context.Context, message string, trip *models.TripContext) (string, error) {
	ctx, span := observability.Tracer().Start(ctx, "agent.invoke")
	defer span.End()

	payload, err := json.Marshal(servingRequest{
		Inputs: servingInputs{
			Messages: []servingMessage{
				{Role: "system", Content: SystemPrompt},
				{Role: "user", Content: message},
			},
			Context: trip,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode agent request: %w", err)
	}

	if c.total > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.total)
		defer cancel()
	}

	log := c.log.WithContext(ctx)
	attempts := 0
	var reply string

	err = c.breaker.Execute(func() error {
		return resilience.Retry(ctx, c.retry, func() error {
			attempts++
			r, err := c.invoke(ctx, payload)
			if err != nil {
				if !IsTransient(err) {
					return resilience.Permanent(err)
				}
				return err
			}
			reply = r
			return nil
		}, func(err error, wait time.Duration) {
			log.Warn("Retrying agent call",
				"attempt", attempts,
				"wait", wait.String(),
				"error", err.Error(),
			)
		})
	})

	span.SetAttributes(attribute.Int("agent.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("agent call failed: %w", err)
	}
	return reply, nil
}

// invoke performs a single attempt bounded by the per-attempt timeout
func (c *ServingClient) invoke(ctx context.Context, payload []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", resilience.Permanent(fmt.Errorf("build agent request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	token, err := c.bearerToken(ctx)
	if err != nil {
		return "", err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(logger.RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordUpstream(ctx, "error", time.Since(start))
		return "", err
	}
	defer resp.Body.Close()
	c.metrics.RecordUpstream(ctx, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var decoded servingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return extractReply(decoded)
}

func (c *ServingClient) bearerToken(ctx context.Context) (string, error) {
	if c.tokenFunc == nil {
		return c.token, nil
	}
	token, err := c.tokenFunc(ctx)
	if err != nil {
		return "", resilience.Permanent(fmt.Errorf("resolve agent token: %w", err))
	}
	return token, nil
}

// extractReply reads predictions[0].message, which is either a string or
// an object with a content field, then falls back to choices[0].message.content
func extractReply(resp servingResponse) (string, error) {
	if len(resp.Predictions) > 0 {
		raw := resp.Predictions[0].Message
		if len(raw) > 0 && string(raw) != "null" {
			var text string
			if err := json.Unmarshal(raw, &text); err == nil {
				return nonEmpty(text)
			}
			var msg struct {
				Content string `json:"content"`
			}
			if err := json.Unmarshal(raw, &msg); err != nil {
				return "", fmt.Errorf("%w: %v", ErrMalformedReply, err)
			}
			return nonEmpty(msg.Content)
		}
	}
	if len(resp.Choices) > 0 {
		return nonEmpty(resp.Choices[0].Message.Content)
	}
	return "", ErrEmptyReply
}

func nonEmpty(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", ErrEmptyReply
	}
	return s, nil
}
