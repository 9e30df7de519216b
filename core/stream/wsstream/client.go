// Package wsstream opens a turn's event channel over a websocket connection
// to the backend agent orchestrator.
package wsstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/talentradar/activity-core/core/events"
	"github.com/talentradar/activity-core/core/stream"
)

// turnRequest is the opening frame that starts a turn on the backend.
type turnRequest struct {
	Prompt      string   `json:"prompt"`
	Attachments []string `json:"attachments,omitempty"`
}

// Channel is a stream.Channel backed by one websocket connection. A Channel
// serves a single turn; open a new one per turn.
type Channel struct {
	conn *websocket.Conn

	// writeMu guards writes, the websocket package allows one writer at a
	// time.
	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

var _ stream.Channel = (*Channel)(nil)

// Dial connects to endpoint, sends the turn request and returns the channel
// carrying the backend's event stream for that turn.
func Dial(ctx context.Context, endpoint string, header http.Header, prompt string, attachments ...string) (*Channel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("failed to open websocket: %w", err)
	}

	channel := &Channel{conn: conn, closed: make(chan struct{})}
	if err := channel.send(turnRequest{Prompt: prompt, Attachments: attachments}); err != nil {
		_ = channel.Close() // Ignored on purpose
		return nil, fmt.Errorf("failed to send turn request: %w", err)
	}
	return channel, nil
}

func (c *Channel) send(message any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Events yields decoded events in delivery order. Records that fail to
// decode are reported with a skippable error and the stream keeps going;
// read failures end the stream with a transport error unless the channel was
// closed deliberately.
func (c *Channel) Events(ctx context.Context) func(func(events.Event, error) bool) {
	return func(yield func(events.Event, error) bool) {
		ctx, span := tracer.Start(ctx, "read turn event stream")
		defer span.End()

		received := 0
		defer func() {
			span.SetAttributes(attribute.Int("turn_stream.received_records", received))
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closed:
				return
			default:
			}

			messageType, message, err := c.conn.ReadMessage()
			if err != nil {
				select {
				case <-c.closed:
					return
				default:
				}
				if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					return
				}
				err = fmt.Errorf("websocket read failed: %w", err)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				yield(nil, err)
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}

			received++
			event, err := stream.Decode(message)
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
	}
}

// Close aborts the stream. Safe to call more than once and from a different
// goroutine than the reader.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.writeMu.Lock()
		_ = c.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	return err
}
