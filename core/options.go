package aggregation

import (
	"context"

	"github.com/talentradar/activity-core/core/activity"
	"github.com/talentradar/activity-core/core/stream"
)

type AggregatorOption func(*Aggregator)

// ChannelFactory opens the backend event channel for one turn. It is called
// once per StartTurn with the triggering user content.
type ChannelFactory func(ctx context.Context, prompt string, attachments ...Attachment) (stream.Channel, error)

// WithChannelFactory wires the transport the aggregator reads turn events
// from.
func WithChannelFactory(factory ChannelFactory) AggregatorOption {
	return func(a *Aggregator) { a.openChannel = factory }
}

// WithActivityCallback is invoked with fresh render groups after every
// applied event.
func WithActivityCallback(callback func([]activity.Group)) AggregatorOption {
	return func(a *Aggregator) { a.callbacks.onActivity = callback }
}

// WithTextCallback is invoked for every streamed prose chunk.
func WithTextCallback(callback func(string)) AggregatorOption {
	return func(a *Aggregator) { a.callbacks.onText = callback }
}

// WithReasoningCallback is invoked for every streamed reasoning chunk.
func WithReasoningCallback(callback func(string)) AggregatorOption {
	return func(a *Aggregator) { a.callbacks.onReasoning = callback }
}

// WithToolCallChangedCallback is invoked with the callId whenever a tool
// call record is created or merged.
func WithToolCallChangedCallback(callback func(string)) AggregatorOption {
	return func(a *Aggregator) { a.callbacks.onToolCallChanged = callback }
}

// WithSubAgentChangedCallback is invoked with the agent name whenever a
// sub-agent instance is created or merged.
func WithSubAgentChangedCallback(callback func(string)) AggregatorOption {
	return func(a *Aggregator) { a.callbacks.onSubAgentChanged = callback }
}

// WithStreamingChangedCallback is invoked when streaming starts and when it
// reaches a terminal state, e.g. to toggle input controls.
func WithStreamingChangedCallback(callback func(bool)) AggregatorOption {
	return func(a *Aggregator) { a.callbacks.onStreamingChanged = callback }
}

// WithTurnFinalisedCallback is invoked with the final message once a turn
// reaches any terminal state.
func WithTurnFinalisedCallback(callback func(Message)) AggregatorOption {
	return func(a *Aggregator) { a.callbacks.onTurnFinalised = callback }
}

// WithTurnErrorCallback is invoked when a turn terminates with an error,
// transport failures included.
func WithTurnErrorCallback(callback func(error)) AggregatorOption {
	return func(a *Aggregator) { a.callbacks.onTurnError = callback }
}

// WithCancellationCallback is invoked when a turn is cancelled.
func WithCancellationCallback(callback func()) AggregatorOption {
	return func(a *Aggregator) { a.callbacks.onCancellation = callback }
}

type aggregatorCallbacks struct {
	onActivity         func([]activity.Group)
	onText             func(string)
	onReasoning        func(string)
	onToolCallChanged  func(string)
	onSubAgentChanged  func(string)
	onStreamingChanged func(bool)
	onTurnFinalised    func(Message)
	onTurnError        func(error)
	onCancellation     func()
}

func (c *aggregatorCallbacks) defaults() *aggregatorCallbacks {
	c.onActivity = func([]activity.Group) {}
	c.onText = func(string) {}
	c.onReasoning = func(string) {}
	c.onToolCallChanged = func(string) {}
	c.onSubAgentChanged = func(string) {}
	c.onStreamingChanged = func(bool) {}
	c.onTurnFinalised = func(Message) {}
	c.onTurnError = func(error) {}
	c.onCancellation = func() {}
	return c
}
