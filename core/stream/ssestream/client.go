// Package ssestream opens a turn's event channel over a server-sent-events
// HTTP response from the backend agent orchestrator.
package ssestream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/talentradar/activity-core/core/events"
	"github.com/talentradar/activity-core/core/stream"
)

type turnRequest struct {
	Prompt      string   `json:"prompt"`
	Attachments []string `json:"attachments,omitempty"`
}

// Client issues turn requests against one SSE endpoint.
type Client struct {
	endpoint   string
	header     http.Header
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithHeader sets extra request headers, e.g. authorization.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) { c.header = header }
}

func NewClient(endpoint string, opts ...ClientOption) *Client {
	client := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Open posts the turn request and returns the channel carrying the response
// event stream.
func (c *Client) Open(ctx context.Context, prompt string, attachments ...string) (*Channel, error) {
	body, err := json.Marshal(turnRequest{Prompt: prompt, Attachments: attachments})
	if err != nil {
		return nil, fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	for key, values := range c.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code: %d (%s)", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	return &Channel{body: resp.Body, requestedAt: time.Now(), closed: make(chan struct{})}, nil
}

// Channel is a stream.Channel backed by one SSE response body.
type Channel struct {
	body        io.ReadCloser
	requestedAt time.Time

	closeOnce sync.Once
	closed    chan struct{}
}

var _ stream.Channel = (*Channel)(nil)

// Events yields decoded events in delivery order. Frames that fail to decode
// are reported with a skippable error; scanner failures end the stream with
// a transport error unless the channel was closed deliberately.
func (c *Channel) Events(ctx context.Context) func(func(events.Event, error) bool) {
	return func(yield func(events.Event, error) bool) {
		ctx, span := tracer.Start(ctx, "read turn event stream")
		defer span.End()

		firstRecord := true
		scanner := bufio.NewScanner(c.body)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if c.isClosed() {
				return
			}

			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			// The space after the colon is optional in the SSE format.
			data := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
			if data == "[DONE]" {
				return
			}

			if firstRecord {
				span.SetAttributes(attribute.Float64("turn_stream.request_to_first_record_time", time.Since(c.requestedAt).Seconds()))
				span.AddEvent("received first record")
				firstRecord = false
			}

			event, err := stream.Decode([]byte(data))
			if err != nil {
				logger.WarnContext(ctx, "dropping undecodable record", "error", err)
				if !yield(nil, err) {
					return
				}
				continue
			}
			if !yield(event, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil && !c.isClosed() {
			err = fmt.Errorf("event stream read failed: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield(nil, err)
		}
	}
}

func (c *Channel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Close aborts the stream by closing the response body, which unblocks the
// reader.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.body.Close()
	})
	return err
}
