package aggregation

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/talentradar/activity-core/core/activity"
	"github.com/talentradar/activity-core/core/events"
	"github.com/talentradar/activity-core/core/stream"
)

// runTurn is the single event loop of one turn. Events are applied in
// exactly the order the transport delivers them; nothing is buffered or
// reordered. It is the only writer of the turn's activity log.
func (a *Aggregator) runTurn(ctx context.Context, turn *activeTurn) {
	defer close(turn.done)

	ctx, span := tracer.Start(ctx, "process turn")
	defer span.End()
	span.SetAttributes(attribute.String("turn.message_id", turn.messageID))

	contextWatch := withContextCancelHook(ctx, func() { _ = turn.channel.Close() })
	defer close(contextWatch)

	applied, dropped := 0, 0
	outcome := TurnCompleted
	var turnErr error

eventLoop:
	for event, err := range turn.channel.Events(ctx) {
		// Events that arrive after cancellation are dropped, never applied.
		if turn.cancelled.Load() {
			dropped++
			continue
		}

		if err != nil {
			if stream.IsSkippable(err) {
				dropped++
				span.AddEvent("dropped undecodable record")
				logger.WarnContext(ctx, "dropping undecodable record", "error", err)
				continue
			}
			outcome = TurnErrored
			turnErr = &TransportError{Err: err}
			break eventLoop
		}

		switch typedEvent := event.(type) {
		case events.MessageCompleted:
			if typedEvent.Content != nil {
				turn.setContent(*typedEvent.Content)
			}
			break eventLoop

		case events.MessageFailed:
			outcome = TurnErrored
			turnErr = errors.New(typedEvent.Reason)
			break eventLoop

		default:
			if err := turn.log.Upsert(event); err != nil {
				// Frozen targets and unsupported kinds are per-event
				// problems; the rest of the stream continues.
				dropped++
				logger.WarnContext(ctx, "dropping inapplicable event", "kind", event.Kind(), "error", err)
				continue
			}
			applied++
			a.emit(event)
			a.callbacks.onActivity(activity.Groups(turn.log.Items()))
		}
	}

	span.SetAttributes(
		attribute.Int("turn.applied_events", applied),
		attribute.Int("turn.dropped_events", dropped),
	)

	a.finaliseTurn(ctx, turn, outcome, turnErr)

	if turnErr != nil {
		span.RecordError(turnErr)
		span.SetStatus(codes.Error, turnErr.Error())
	}
}

func (a *Aggregator) finaliseTurn(ctx context.Context, turn *activeTurn, outcome TurnStatus, turnErr error) {
	_ = turn.channel.Close() // Ignored on purpose, may already be closed

	errorReason := ""
	if turnErr != nil {
		errorReason = turnErr.Error()
	}
	turn.finalise(outcome, errorReason)

	finalMessage := turn.snapshotMessage()
	if err := a.conversation.finaliseTurn(turn, finalMessage); err != nil {
		logger.WarnContext(ctx, "turn finalisation mismatch", "error", err)
	}

	if turnErr != nil {
		a.callbacks.onTurnError(turnErr)
	}
	a.callbacks.onStreamingChanged(false)
	a.callbacks.onTurnFinalised(finalMessage)
}
