// Package backend fetches record lists from the canister HTTP gateway. The gateway
// occasionally answers with HTML error pages, 503s or mis-assembled JSON, so every
// fetch goes through POST then GET and a decode cascade before giving up.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/spigell/freelance-advisor/internal/logger"
	"github.com/spigell/freelance-advisor/internal/metrics"
	"github.com/spigell/freelance-advisor/internal/record"
)

const (
	contentType = "application/json"

	defaultBaseURL    = "http://127.0.0.1:4943"
	defaultCanisterID = "uzt4z-lp777-77774-qaabq-cai"

	defaultPostTimeout = 15 * time.Second
	defaultGetTimeout  = 10 * time.Second

	maxBodyPreview = 200
)

// Known resources and the canister query methods serving them.
const (
	ResourceJobs    = "jobs"
	ResourceUsers   = "users"
	ResourceRatings = "ratings"
)

var defaultEndpoints = map[string]string{
	ResourceJobs:    "getAllJobs",
	ResourceUsers:   "getAllUsers",
	ResourceRatings: "getAllRatings",
}

// Config configures a Client. Zero values fall back to the local replica defaults.
type Config struct {
	BaseURL     string            `mapstructure:"base-url" validate:"omitempty,url"`
	CanisterID  string            `mapstructure:"canister-id"`
	PostTimeout time.Duration     `mapstructure:"post-timeout" validate:"gte=0"`
	GetTimeout  time.Duration     `mapstructure:"get-timeout" validate:"gte=0"`
	Endpoints   map[string]string `mapstructure:"endpoints"`
	Breaker     BreakerConfig     `mapstructure:"breaker"`
}

type Client struct {
	HTTPClient *http.Client

	baseURL     string
	canisterID  string
	postTimeout time.Duration
	getTimeout  time.Duration
	endpoints   map[string]string

	breakerCfg BreakerConfig
	breakersMu sync.Mutex
	breakers   map[string]*gobreaker.CircuitBreaker

	logger  *zap.Logger
	metrics *metrics.Collector
}

func New(cfg Config, log *zap.Logger, m *metrics.Collector) *Client {
	c := &Client{
		HTTPClient:  &http.Client{},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		canisterID:  cfg.CanisterID,
		postTimeout: cfg.PostTimeout,
		getTimeout:  cfg.GetTimeout,
		endpoints:   make(map[string]string, len(defaultEndpoints)),
		breakerCfg:  cfg.Breaker,
		breakers:    make(map[string]*gobreaker.CircuitBreaker),
		logger:      logger.WithFields(log, zap.String("component", "backend")),
		metrics:     m,
	}

	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.canisterID == "" {
		c.canisterID = defaultCanisterID
	}
	if c.postTimeout <= 0 {
		c.postTimeout = defaultPostTimeout
	}
	if c.getTimeout <= 0 {
		c.getTimeout = defaultGetTimeout
	}
	for k, v := range defaultEndpoints {
		c.endpoints[k] = v
	}
	for k, v := range cfg.Endpoints {
		c.endpoints[k] = v
	}

	return c
}

// Resources lists the resource names the client can fetch.
func (c *Client) Resources() []string {
	out := make([]string, 0, len(c.endpoints))
	for k := range c.endpoints {
		out = append(out, k)
	}
	return out
}

// Fetch returns the records of a resource. It fails with *FetchError only after
// POST and GET were both tried through the whole decode cascade.
func (c *Client) Fetch(ctx context.Context, resource string) ([]record.Record, error) {
	endpoint, ok := c.endpoints[resource]
	if !ok {
		return nil, &FetchError{
			Resource: resource,
			Reason:   ReasonGeneric,
			Attempts: []string{fmt.Sprintf("unknown resource %q", resource)},
		}
	}

	start := time.Now()
	defer func() { c.metrics.FetchDuration(resource, time.Since(start)) }()

	out, err := c.breaker(resource).Execute(func() (interface{}, error) {
		return c.fetch(ctx, resource, endpoint)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &FetchError{Resource: resource, Reason: ReasonCircuitOpen, Attempts: []string{err.Error()}}
		}
		return nil, err
	}

	return out.([]record.Record), nil
}

func (c *Client) fetch(ctx context.Context, resource, endpoint string) ([]record.Record, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	log := c.logger.With(append(logger.FetchFields(resource, "", ""), zap.String("url", url))...)

	var attempts []*attemptError
	for _, verb := range []string{http.MethodPost, http.MethodGet} {
		records, stage, err := c.attempt(ctx, verb, url)
		if err == nil {
			c.metrics.FetchAttempt(resource, verb, string(stage), "ok")
			if stage != StageStrict {
				log.Warn("recovered malformed backend response",
					append(logger.FetchFields("", verb, string(stage)), zap.Int("records", len(records)))...,
				)
			}
			log.Debug("fetched records", zap.String("verb", verb), zap.Int("records", len(records)))
			return records, nil
		}

		var ae *attemptError
		if !errors.As(err, &ae) {
			ae = &attemptError{verb: verb, reason: ReasonGeneric, err: err}
		}
		c.metrics.FetchAttempt(resource, verb, string(stage), string(ae.reason))
		log.Warn("backend attempt failed", append(logger.FetchFields("", verb, ""), zap.Error(err))...)
		attempts = append(attempts, ae)
	}

	lines := make([]string, 0, len(attempts))
	for _, a := range attempts {
		lines = append(lines, a.Error())
	}

	return nil, &FetchError{Resource: resource, Reason: reasonOf(attempts), Attempts: lines}
}

// attempt performs one verb. HTTP level failures skip the decode cascade entirely.
func (c *Client) attempt(ctx context.Context, verb, url string) ([]record.Record, Stage, error) {
	timeout := c.getTimeout
	var body io.Reader
	if verb == http.MethodPost {
		timeout = c.postTimeout
		body = bytes.NewReader([]byte("{}"))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, verb, url, body)
	if err != nil {
		return nil, "", &attemptError{verb: verb, reason: ReasonGeneric, err: err}
	}
	req = c.setHeaders(req)

	resp, err := c.request(req)
	if err != nil {
		return nil, "", &attemptError{verb: verb, reason: ReasonGeneric, err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &attemptError{verb: verb, reason: ReasonGeneric, err: fmt.Errorf("read body: %w", err)}
	}

	if isHTML(resp.Header.Get("Content-Type"), data) {
		return nil, "", &attemptError{
			verb:   verb,
			reason: ReasonHTML,
			err:    fmt.Errorf("returned HTML instead of JSON (status %d): %s", resp.StatusCode, htmlSummary(data, maxBodyPreview)),
		}
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, "", &attemptError{verb: verb, reason: ReasonUnavailable, err: errors.New("503 Service Unavailable")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &attemptError{
			verb:   verb,
			reason: ReasonGeneric,
			err:    fmt.Errorf("bad status: %s: %s", resp.Status, logger.TruncateForLog(string(data), maxBodyPreview)),
		}
	}

	records, stage, err := Decode(data)
	if err != nil {
		c.logger.Debug("undecodable backend body",
			zap.String("verb", verb),
			zap.Int("length", len(data)),
			zap.String("preview", logger.TruncateForLog(string(data), maxBodyPreview)),
		)
		return nil, stage, &attemptError{verb: verb, reason: ReasonGeneric, err: err}
	}

	return records, stage, nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// setHeaders routes the request to the canister through the gateway's virtual host.
func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)
	req.Host = fmt.Sprintf("%s.localhost", c.canisterID)

	return req
}
