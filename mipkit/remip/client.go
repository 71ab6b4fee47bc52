// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package remip solves mpmodel models on a remote ReMIP server.
//
// The model is posted to `{base}/solve` in the PuLP dictionary format. In streaming mode the
// server answers with Server-Sent Events: `log` and `metric` events report progress and a
// final `result` event carries the solution.
package remip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	log "github.com/golang/glog"
	"github.com/mipkit/mip-kit/mipkit/mpmodel"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 200 * time.Millisecond
	maxErrorBody      = 4 << 10
)

// LogEvent is a solver log line streamed by the server.
type LogEvent struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// MetricEvent is a progress report streamed by the server.
type MetricEvent struct {
	Timestamp      string  `json:"timestamp"`
	Iteration      int     `json:"iteration"`
	ObjectiveValue float64 `json:"objective_value"`
	Gap            float64 `json:"gap"`
}

// Client is a ReMIP client. It implements mpmodel.Solver.
type Client struct {
	BaseURL string
	// Stream selects the Server-Sent Events endpoint.
	Stream     bool
	HTTPClient *http.Client
	// MaxRetries is the number of attempts made after the first one fails.
	MaxRetries int
	// Backoff is the delay before the first retry; it doubles on each retry.
	Backoff  time.Duration
	OnLog    func(LogEvent)
	OnMetric func(MetricEvent)
}

// Option configures a Client.
type Option func(*Client)

// WithStream selects the streaming endpoint.
func WithStream(stream bool) Option {
	return func(c *Client) { c.Stream = stream }
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithMaxRetries sets the number of retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.MaxRetries = n }
}

// WithBackoff sets the initial retry delay.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.Backoff = d }
}

// WithLogHandler registers a callback for streamed log events.
func WithLogHandler(f func(LogEvent)) Option {
	return func(c *Client) { c.OnLog = f }
}

// WithMetricHandler registers a callback for streamed metric events.
func WithMetricHandler(f func(MetricEvent)) Option {
	return func(c *Client) { c.OnMetric = f }
}

// NewClient returns a client for the server at `baseURL`.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: http.DefaultClient,
		MaxRetries: defaultMaxRetries,
		Backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("remip: HTTP %d: %s", e.Code, e.Body)
}

func retryable(err error) bool {
	var se *httpStatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// Solve posts `m` to the server. Parameters.TimeLimit bounds the whole exchange, retries
// included; the other parameters are left to the server defaults.
func (c *Client) Solve(ctx context.Context, m *mpmodel.Model, params *mpmodel.Parameters) (*mpmodel.Response, error) {
	if err := m.Validate(); err != nil {
		return &mpmodel.Response{Status: mpmodel.ModelInvalid, Diagnostic: err.Error()}, nil
	}
	p := params.WithDefaults()
	if p.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.TimeLimit)
		defer cancel()
	}
	body, err := json.Marshal(encodeProblem(m))
	if err != nil {
		return nil, fmt.Errorf("remip: encoding %q: %w", m.Name, err)
	}

	start := time.Now()
	sd, err := c.doWithRetry(ctx, body)
	if err != nil {
		return nil, err
	}
	res := decodeSolution(m, *sd)
	res.WallTime = time.Since(start)
	return res, nil
}

func (c *Client) doWithRetry(ctx context.Context, body []byte) (*solutionDict, error) {
	backoff := c.Backoff
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		sd, err := c.do(ctx, body)
		if err == nil {
			return sd, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) || attempt == c.MaxRetries {
			break
		}
		log.Warningf("remip: attempt %d failed, retrying in %v: %v", attempt+1, backoff, err)
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, body []byte) (*solutionDict, error) {
	url := c.BaseURL + "/solve"
	if c.Stream {
		url += "?stream=sse"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if c.Stream {
		return c.readEvents(resp.Body)
	}
	var sd solutionDict
	if err := json.NewDecoder(resp.Body).Decode(&sd); err != nil {
		return nil, fmt.Errorf("remip: decoding response: %w", err)
	}
	return &sd, nil
}
