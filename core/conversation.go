package aggregation

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/talentradar/activity-core/core/activity"
)

var (
	// ErrTurnActive is returned when a new turn is requested while another
	// one is still streaming. At most one message per conversation may be
	// streaming at a time.
	ErrTurnActive = errors.New("a turn is already streaming")
	// ErrTurnIDMismatch reports that the turn being finalised is not the
	// conversation's active one.
	ErrTurnIDMismatch = errors.New("turn finalisation failed: turn IDs do not match")
)

// Role describes who a message is from.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TurnStatus is the lifecycle state of an assistant message. The only legal
// transitions are idle -> streaming -> {completed, cancelled, errored};
// streaming is never re-entered, a retried request is a new message.
type TurnStatus string

const (
	TurnIdle      TurnStatus = "idle"
	TurnStreaming TurnStatus = "streaming"
	TurnCompleted TurnStatus = "completed"
	TurnCancelled TurnStatus = "cancelled"
	TurnErrored   TurnStatus = "errored"
)

// Attachment is an opaque reference to a file sent with a user message. The
// engine never reads attachment contents.
type Attachment struct {
	Name      string
	MediaType string
}

// Message is one entry in a conversation. For assistant messages, Activity
// holds the aggregated items of the turn that produced it and Content the
// finalized plain text.
type Message struct {
	ID          string
	Role        Role
	Content     string
	Activity    []activity.Item
	IsStreaming bool
	Status      TurnStatus
	Attachments []Attachment

	// ErrorReason carries the message-level error banner text when Status
	// is TurnErrored.
	ErrorReason string
}

// Groups returns the render groups for the message's activity.
func (m Message) Groups() []activity.Group {
	return activity.Groups(m.Activity)
}

// ConversationSnapshot is a point-in-time view of conversation state.
type ConversationSnapshot struct {
	ID       string
	Messages []Message
}

// IsStreaming reports whether the snapshot holds a streaming message.
func (s ConversationSnapshot) IsStreaming() bool {
	for i := range s.Messages {
		if s.Messages[i].IsStreaming {
			return true
		}
	}
	return false
}

// conversation owns the per-conversation message list. It has exactly one
// writer, the aggregator driving it.
type conversation struct {
	mu sync.RWMutex

	id         string
	messages   []Message
	activeTurn *activeTurn
}

func newConversation() conversation {
	return conversation{id: uuid.NewString()}
}

// Snapshot returns a deep copy of the message history plus the streaming
// message materialized from the active turn, if any.
func (c *conversation) Snapshot() ConversationSnapshot {
	c.mu.RLock()
	messages := make([]Message, 0, len(c.messages)+1)
	copier.CopyWithOption(&messages, &c.messages, copier.Option{DeepCopy: true})
	turn := c.activeTurn
	c.mu.RUnlock()

	if turn != nil {
		messages = append(messages, turn.snapshotMessage())
	}

	return ConversationSnapshot{ID: c.id, Messages: messages}
}

func (c *conversation) active() *activeTurn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeTurn
}

func (c *conversation) isStreaming() bool {
	return c.active() != nil
}

// startTurn appends the triggering user message and installs the turn as the
// conversation's active one. It refuses while another turn is streaming.
func (c *conversation) startTurn(userMessage Message, turn *activeTurn) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeTurn != nil {
		return ErrTurnActive
	}

	c.messages = append(c.messages, userMessage)
	c.activeTurn = turn
	return nil
}

// finaliseTurn moves the turn's final message into the history and clears
// the active slot.
func (c *conversation) finaliseTurn(turn *activeTurn, finalMessage Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeTurn != turn {
		return ErrTurnIDMismatch
	}

	c.messages = append(c.messages, finalMessage)
	c.activeTurn = nil
	return nil
}

// replaceHistory swaps the message list wholesale, the only path that ever
// discards activity items. Refused while a turn is streaming.
func (c *conversation) replaceHistory(messages []Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeTurn != nil {
		return ErrTurnActive
	}

	replacement := make([]Message, 0, len(messages))
	copier.CopyWithOption(&replacement, &messages, copier.Option{DeepCopy: true})
	for i := range replacement {
		replacement[i].IsStreaming = false
	}
	c.messages = replacement
	return nil
}
