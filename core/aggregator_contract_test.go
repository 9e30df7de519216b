package aggregation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/talentradar/activity-core/core/activity"
	"github.com/talentradar/activity-core/core/events"
	"github.com/talentradar/activity-core/core/stream"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

type scriptedEvent struct {
	event events.Event
	err   error
}

// scriptedChannel lets a test feed events into a running turn.
type scriptedChannel struct {
	feed chan scriptedEvent

	closeOnce sync.Once
	closed    chan struct{}

	// ignoreClose simulates a transport that keeps delivering after the
	// engine closed the channel, to exercise the drop-after-cancel rule.
	ignoreClose bool
}

func newScriptedChannel() *scriptedChannel {
	return &scriptedChannel{feed: make(chan scriptedEvent, 16), closed: make(chan struct{})}
}

func (s *scriptedChannel) emit(event events.Event) { s.feed <- scriptedEvent{event: event} }
func (s *scriptedChannel) fail(err error)          { s.feed <- scriptedEvent{err: err} }
func (s *scriptedChannel) end()                    { close(s.feed) }

func (s *scriptedChannel) Events(ctx context.Context) func(func(events.Event, error) bool) {
	return func(yield func(events.Event, error) bool) {
		for {
			if !s.ignoreClose {
				select {
				case <-s.closed:
					return
				default:
				}
			}

			select {
			case <-ctx.Done():
				return
			case item, ok := <-s.feed:
				if !ok {
					return
				}
				if !yield(item.event, item.err) {
					return
				}
			}
		}
	}
}

func (s *scriptedChannel) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func factoryFor(channel stream.Channel) ChannelFactory {
	return func(context.Context, string, ...Attachment) (stream.Channel, error) {
		return channel, nil
	}
}

func awaitSignal(t *testing.T, signal <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-signal:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestStartTurnWithoutChannelFactoryFails(t *testing.T) {
	a := New()

	if _, err := a.StartTurn(context.Background(), "hello"); !errors.Is(err, ErrNoChannelFactory) {
		t.Fatalf("expected ErrNoChannelFactory, got %v", err)
	}
}

func TestStartTurnRefusedWhileStreaming(t *testing.T) {
	channel := newScriptedChannel()
	a := New(WithChannelFactory(factoryFor(channel)))
	defer a.Close()

	if _, err := a.StartTurn(context.Background(), "first"); err != nil {
		t.Fatalf("first turn failed to start: %v", err)
	}
	if !a.IsStreaming() {
		t.Fatalf("expected streaming after starting a turn")
	}

	if _, err := a.StartTurn(context.Background(), "second"); !errors.Is(err, ErrTurnActive) {
		t.Fatalf("expected ErrTurnActive, got %v", err)
	}

	channel.emit(events.NewMessageCompleted(nil))
	a.AwaitTurn()

	// With the previous turn terminal, a new one may start.
	retryChannel := newScriptedChannel()
	a.openChannel = factoryFor(retryChannel)
	if _, err := a.StartTurn(context.Background(), "second"); err != nil {
		t.Fatalf("expected a new turn after completion, got %v", err)
	}
	retryChannel.emit(events.NewMessageCompleted(nil))
	a.AwaitTurn()
}

func TestTurnAggregatesSubAgentScenario(t *testing.T) {
	running := events.NewSubAgentUpdated("seo")
	running.IsRunning = boolPtr(true)
	running.ReasoningContent = strPtr("Analyzing backlinks")

	firstUpdate := events.NewToolCallUpdated("t1")
	firstUpdate.ToolName = strPtr("domain_rating")
	firstUpdate.IsComplete = boolPtr(false)

	secondUpdate := events.NewToolCallUpdated("t1")
	secondUpdate.IsComplete = boolPtr(true)
	secondUpdate.Output = strPtr("72")

	stopped := events.NewSubAgentUpdated("seo")
	stopped.IsRunning = boolPtr(false)

	replayer := stream.NewReplayer(running, firstUpdate, secondUpdate, stopped, events.NewMessageCompleted(nil))
	a := New(WithChannelFactory(factoryFor(replayer)))

	messageID, err := a.StartTurn(context.Background(), "audit example.com")
	if err != nil {
		t.Fatalf("turn failed to start: %v", err)
	}
	a.AwaitTurn()

	snapshot := a.Conversation()
	if len(snapshot.Messages) != 2 {
		t.Fatalf("expected user and assistant messages, got %d", len(snapshot.Messages))
	}
	assistant := snapshot.Messages[1]
	if assistant.ID != messageID || assistant.Role != RoleAssistant {
		t.Fatalf("unexpected assistant message: %+v", assistant)
	}
	if assistant.IsStreaming || assistant.Status != TurnCompleted {
		t.Fatalf("expected a completed non-streaming message, got status %q", assistant.Status)
	}

	groups := assistant.Groups()
	if len(groups) != 1 || groups[0].Kind != activity.KindSubAgent || len(groups[0].Items) != 1 {
		t.Fatalf("expected one sub-agent group with a single item, got %+v", groups)
	}

	payload := groups[0].Items[0].SubAgent
	if got := activity.ClassifySubAgent(payload); got != activity.StateComplete {
		t.Fatalf("expected state %q, got %q", activity.StateComplete, got)
	}
	if len(payload.ToolCalls) != 1 || !payload.ToolCalls[0].IsComplete {
		t.Fatalf("expected one completed tool call, got %+v", payload.ToolCalls)
	}
	if output := payload.ToolCalls[0].Output; output == nil || *output != "72" {
		t.Fatalf("expected output \"72\", got %v", output)
	}
}

func TestTransportFailureKeepsPartialProgress(t *testing.T) {
	channel := newScriptedChannel()

	turnErrors := make(chan error, 1)
	a := New(
		WithChannelFactory(factoryFor(channel)),
		WithTurnErrorCallback(func(err error) { turnErrors <- err }),
	)

	if _, err := a.StartTurn(context.Background(), "hello"); err != nil {
		t.Fatalf("turn failed to start: %v", err)
	}

	channel.emit(events.NewTextDelta("partial answer"))
	channel.fail(errors.New("connection reset"))
	a.AwaitTurn()

	select {
	case err := <-turnErrors:
		var transportErr *TransportError
		if !errors.As(err, &transportErr) {
			t.Fatalf("expected a TransportError, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the turn error callback")
	}

	snapshot := a.Conversation()
	assistant := snapshot.Messages[len(snapshot.Messages)-1]
	if assistant.Status != TurnErrored || assistant.ErrorReason == "" {
		t.Fatalf("expected an errored message with a reason, got %+v", assistant)
	}
	if len(assistant.Activity) != 1 || assistant.Activity[0].Kind != activity.KindText {
		t.Fatalf("expected the partial text item to survive, got %+v", assistant.Activity)
	}
}

func TestBackendErrorEventTerminatesTurn(t *testing.T) {
	channel := newScriptedChannel()
	a := New(WithChannelFactory(factoryFor(channel)))

	if _, err := a.StartTurn(context.Background(), "hello"); err != nil {
		t.Fatalf("turn failed to start: %v", err)
	}

	channel.emit(events.NewMessageFailed("agent overloaded"))
	a.AwaitTurn()

	snapshot := a.Conversation()
	assistant := snapshot.Messages[len(snapshot.Messages)-1]
	if assistant.Status != TurnErrored || assistant.ErrorReason != "agent overloaded" {
		t.Fatalf("expected an errored message with the backend reason, got %+v", assistant)
	}
}

func TestCancelFreezesStoreAndDropsLateEvents(t *testing.T) {
	channel := newScriptedChannel()
	channel.ignoreClose = true

	applied := make(chan struct{}, 16)
	cancelled := make(chan struct{}, 1)
	a := New(
		WithChannelFactory(factoryFor(channel)),
		WithActivityCallback(func([]activity.Group) { applied <- struct{}{} }),
		WithCancellationCallback(func() { cancelled <- struct{}{} }),
	)

	if _, err := a.StartTurn(context.Background(), "hello"); err != nil {
		t.Fatalf("turn failed to start: %v", err)
	}

	channel.emit(events.NewToolCallStarted("t1", "search", "{}"))
	awaitSignal(t, applied, "the first event to apply")

	a.CancelTurn()
	awaitSignal(t, cancelled, "the cancellation callback")

	// Late events must be dropped, not applied.
	lateUpdate := events.NewToolCallUpdated("t1")
	lateUpdate.Output = strPtr("late")
	channel.emit(lateUpdate)
	channel.emit(events.NewTextDelta("late text"))
	channel.end()
	a.AwaitTurn()

	snapshot := a.Conversation()
	assistant := snapshot.Messages[len(snapshot.Messages)-1]
	if assistant.Status != TurnCancelled {
		t.Fatalf("expected a cancelled message, got status %q", assistant.Status)
	}
	if len(assistant.Activity) != 1 {
		t.Fatalf("expected late events to be dropped, got %+v", assistant.Activity)
	}
	record := assistant.Activity[0].Tool
	if !record.Interrupted || record.IsComplete || record.Output != nil {
		t.Fatalf("expected an interrupted open tool call, got %+v", record)
	}
}

func TestCancelWithoutActiveTurnIsNoop(t *testing.T) {
	cancellations := 0
	a := New(WithCancellationCallback(func() { cancellations++ }))

	a.CancelTurn()
	if cancellations != 0 {
		t.Fatalf("expected no cancellation callback without an active turn")
	}
}

func TestSkippableRecordProblemsDoNotAbortTheTurn(t *testing.T) {
	channel := newScriptedChannel()
	a := New(WithChannelFactory(factoryFor(channel)))

	if _, err := a.StartTurn(context.Background(), "hello"); err != nil {
		t.Fatalf("turn failed to start: %v", err)
	}

	channel.emit(events.NewTextDelta("before"))
	channel.fail(stream.ErrUnknownKind)
	channel.fail(&stream.MalformedEventError{EventKind: "tool_call_update", Err: errors.New("missing callId")})
	channel.emit(events.NewTextDelta("after"))
	channel.emit(events.NewMessageCompleted(nil))
	a.AwaitTurn()

	snapshot := a.Conversation()
	assistant := snapshot.Messages[len(snapshot.Messages)-1]
	if assistant.Status != TurnCompleted {
		t.Fatalf("expected the turn to complete despite skippable problems, got %q", assistant.Status)
	}
	if len(assistant.Activity) != 2 {
		t.Fatalf("expected both text items to be applied, got %+v", assistant.Activity)
	}
	if assistant.Content != "beforeafter" {
		t.Fatalf("expected concatenated content, got %q", assistant.Content)
	}
}

func TestCloseTearsDownEachActiveTurn(t *testing.T) {
	first := newScriptedChannel()
	a := New(WithChannelFactory(factoryFor(first)))

	if _, err := a.StartTurn(context.Background(), "first"); err != nil {
		t.Fatalf("first turn failed to start: %v", err)
	}
	a.Close()
	if a.IsStreaming() {
		t.Fatalf("expected no streaming turn after the first close")
	}

	// Close must stay effective for turns started afterwards.
	second := newScriptedChannel()
	a.openChannel = factoryFor(second)
	if _, err := a.StartTurn(context.Background(), "second"); err != nil {
		t.Fatalf("second turn failed to start: %v", err)
	}
	a.Close()
	if a.IsStreaming() {
		t.Fatalf("expected no streaming turn after the second close")
	}

	snapshot := a.Conversation()
	cancelled := 0
	for _, message := range snapshot.Messages {
		if message.Role == RoleAssistant && message.Status == TurnCancelled {
			cancelled++
		}
	}
	if cancelled != 2 {
		t.Fatalf("expected both turns to end cancelled, got %+v", snapshot.Messages)
	}

	// Closing with nothing active is a no-op.
	a.Close()
}

func TestStreamingFlagTogglesAroundTurn(t *testing.T) {
	channel := newScriptedChannel()

	streamingChanges := make(chan bool, 4)
	a := New(
		WithChannelFactory(factoryFor(channel)),
		WithStreamingChangedCallback(func(streaming bool) { streamingChanges <- streaming }),
	)

	if _, err := a.StartTurn(context.Background(), "hello"); err != nil {
		t.Fatalf("turn failed to start: %v", err)
	}
	if got := <-streamingChanges; !got {
		t.Fatalf("expected streaming to turn on first")
	}

	channel.emit(events.NewMessageCompleted(strPtr("done")))
	a.AwaitTurn()

	select {
	case got := <-streamingChanges:
		if got {
			t.Fatalf("expected streaming to turn off after completion")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the streaming flag to turn off")
	}

	if a.IsStreaming() {
		t.Fatalf("expected IsStreaming to be false after the turn")
	}
}
