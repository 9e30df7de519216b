package aggregation

import "github.com/talentradar/activity-core/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

// newCallbackEventEmitter bridges typed events to the configured scalar
// callbacks. Group-level updates go through onActivity separately.
func newCallbackEventEmitter(callbacks *aggregatorCallbacks) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.TextDelta:
			callbacks.onText(typedEvent.Content)
		case events.ReasoningDelta:
			callbacks.onReasoning(typedEvent.Content)
		case events.ToolCallStarted:
			callbacks.onToolCallChanged(typedEvent.CallID)
		case events.ToolCallUpdated:
			callbacks.onToolCallChanged(typedEvent.CallID)
		case events.ToolCallCompleted:
			callbacks.onToolCallChanged(typedEvent.CallID)
		case events.SubAgentUpdated:
			callbacks.onSubAgentChanged(typedEvent.Agent)
		}
	}
}
