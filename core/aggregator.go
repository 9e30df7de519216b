// Package aggregation turns the live event stream of a backend agent
// orchestrator into a stable, renderable conversation timeline.
//
// The Aggregator owns the streaming lifecycle of one conversation: it opens
// the event channel for a user turn, feeds every received event into that
// turn's activity log, and exposes cancellation plus point-in-time
// snapshots. All derivations the rendering surface needs (render groups,
// sub-agent states) are pure functions in the activity package.
package aggregation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/talentradar/activity-core/core/activity"
)

// ErrNoChannelFactory is returned by StartTurn when no transport was wired.
var ErrNoChannelFactory = errors.New("no channel factory configured")

// TransportError wraps a channel failure that terminated a turn. The items
// upserted before the failure stay visible; resubmitting the same user
// content as a new turn is the recovery path.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Aggregator drives one conversation. Safe for concurrent readers; turns
// are applied by a single event loop at a time.
type Aggregator struct {
	conversation conversation
	openChannel  ChannelFactory
	callbacks    aggregatorCallbacks
	emit         eventEmitter

	baseContext context.Context
}

func New(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		conversation: newConversation(),
		baseContext:  context.Background(),
		emit:         noopEventEmitter,
	}
	a.callbacks.defaults()

	for _, opt := range opts {
		opt(a)
	}

	a.emit = newCallbackEventEmitter(&a.callbacks)
	return a
}

// StartTurn opens the backend event channel for one user message and starts
// aggregating its response stream into a new assistant message. It returns
// the assistant message ID and refuses with ErrTurnActive while a previous
// turn is still streaming.
func (a *Aggregator) StartTurn(ctx context.Context, prompt string, attachments ...Attachment) (string, error) {
	if a.openChannel == nil {
		return "", ErrNoChannelFactory
	}
	if ctx == nil {
		ctx = a.baseContext
	}
	if a.conversation.isStreaming() {
		return "", ErrTurnActive
	}

	channel, err := a.openChannel(ctx, prompt, attachments...)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	userMessage := Message{
		ID:          uuid.NewString(),
		Role:        RoleUser,
		Content:     prompt,
		Status:      TurnCompleted,
		Attachments: attachments,
	}
	turn := newActiveTurn(channel)

	if err := a.conversation.startTurn(userMessage, turn); err != nil {
		_ = channel.Close() // Ignored on purpose
		return "", err
	}

	a.callbacks.onStreamingChanged(true)
	go a.runTurn(ctx, turn)

	return turn.messageID, nil
}

// CancelTurn aborts the streaming turn, if any. The channel is closed and
// the store frozen before the call returns; events that arrive afterwards
// are dropped.
func (a *Aggregator) CancelTurn() {
	turn := a.conversation.active()
	if turn == nil {
		return
	}

	if turn.cancel() {
		a.callbacks.onCancellation()
	}
}

// AwaitTurn blocks until the current turn reaches a terminal state. Returns
// immediately when nothing is streaming.
func (a *Aggregator) AwaitTurn() {
	turn := a.conversation.active()
	if turn == nil {
		return
	}
	<-turn.done
}

// IsStreaming reports whether a turn is currently streaming. Rendering
// surfaces use it to disable input controls.
func (a *Aggregator) IsStreaming() bool {
	return a.conversation.isStreaming()
}

// Conversation returns a point-in-time snapshot of conversation state.
func (a *Aggregator) Conversation() ConversationSnapshot {
	return a.conversation.Snapshot()
}

// CurrentGroups returns the render groups of the streaming message, or of
// the last assistant message once the turn is over.
func (a *Aggregator) CurrentGroups() []activity.Group {
	if turn := a.conversation.active(); turn != nil {
		return activity.Groups(turn.log.Items())
	}

	snapshot := a.conversation.Snapshot()
	for i := len(snapshot.Messages) - 1; i >= 0; i-- {
		if snapshot.Messages[i].Role == RoleAssistant {
			return snapshot.Messages[i].Groups()
		}
	}
	return nil
}

// LoadHistory replaces the conversation wholesale with persisted messages.
// Refused while a turn is streaming.
func (a *Aggregator) LoadHistory(messages []Message) error {
	return a.conversation.replaceHistory(messages)
}

// Reset discards the conversation. Refused while a turn is streaming.
func (a *Aggregator) Reset() error {
	return a.conversation.replaceHistory(nil)
}

// Close cancels any streaming turn and waits for its loop to finish. Safe
// to call repeatedly; each call tears down whatever turn is active then.
func (a *Aggregator) Close() {
	turn := a.conversation.active()
	if turn == nil {
		return
	}
	turn.cancel()
	<-turn.done
}
