package aggregation

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/talentradar/activity-core/core/activity"
	"github.com/talentradar/activity-core/core/stream"
)

// activeTurn is the streaming assistant message of the conversation. It owns
// the turn's activity log and its event channel; the turn's run loop is the
// only writer of the log.
type activeTurn struct {
	messageID string
	log       *activity.Log
	channel   stream.Channel

	mu          sync.Mutex
	status      TurnStatus
	errorReason string
	content     *string

	cancelled atomic.Bool
	done      chan struct{}
}

func newActiveTurn(channel stream.Channel) *activeTurn {
	return &activeTurn{
		messageID: uuid.NewString(),
		log:       activity.NewLog(),
		channel:   channel,
		status:    TurnStreaming,
		done:      make(chan struct{}),
	}
}

func (t *activeTurn) Status() TurnStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// setContent records the finalized plain text the backend sent with
// message_complete.
func (t *activeTurn) setContent(content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.content = &content
}

// cancel closes the channel and synchronously freezes the store. Any event
// still in flight is dropped by the run loop. Returns false if the turn was
// already cancelled or finalised.
func (t *activeTurn) cancel() bool {
	if !t.cancelled.CompareAndSwap(false, true) {
		return false
	}

	t.mu.Lock()
	if t.status != TurnStreaming {
		t.mu.Unlock()
		return false
	}
	t.status = TurnCancelled
	t.mu.Unlock()

	_ = t.channel.Close() // Ignored on purpose, the reader observes cancellation anyway
	t.log.Finalize(activity.FinalizeCancelled)
	return true
}

// finalise moves the turn into a terminal status. The first terminal status
// wins; a turn cancelled mid-stream stays cancelled.
func (t *activeTurn) finalise(status TurnStatus, errorReason string) {
	t.mu.Lock()
	if t.status != TurnStreaming {
		t.mu.Unlock()
		return
	}
	t.status = status
	t.errorReason = errorReason
	t.mu.Unlock()

	switch status {
	case TurnErrored:
		t.log.Finalize(activity.FinalizeErrored)
	case TurnCancelled:
		t.log.Finalize(activity.FinalizeCancelled)
	default:
		t.log.Finalize(activity.FinalizeCompleted)
	}
}

// snapshotMessage materializes the turn as a point-in-time message.
func (t *activeTurn) snapshotMessage() Message {
	t.mu.Lock()
	status := t.status
	errorReason := t.errorReason
	content := t.content
	t.mu.Unlock()

	message := Message{
		ID:          t.messageID,
		Role:        RoleAssistant,
		Activity:    t.log.Items(),
		IsStreaming: status == TurnStreaming,
		Status:      status,
		ErrorReason: errorReason,
	}
	if content != nil {
		message.Content = *content
	} else {
		message.Content = t.log.Text()
	}
	return message
}
