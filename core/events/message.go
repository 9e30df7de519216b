package events

const (
	// KindTextDelta identifies a streamed assistant prose chunk.
	KindTextDelta Kind = "message.text_delta"
	// KindReasoningDelta identifies a streamed model reasoning chunk.
	KindReasoningDelta Kind = "message.reasoning_delta"
	// KindMessageCompleted identifies successful turn completion.
	KindMessageCompleted Kind = "message.completed"
	// KindMessageFailed identifies a turn aborted by the backend.
	KindMessageFailed Kind = "message.failed"
)

// TextDelta carries one streamed chunk of assistant prose.
type TextDelta struct {
	Base
	Content string
}

// NewTextDelta creates a text delta event.
func NewTextDelta(content string) TextDelta {
	return TextDelta{Base: NewBase(KindTextDelta), Content: content}
}

// ReasoningDelta carries one streamed chunk of model reasoning.
type ReasoningDelta struct {
	Base
	Content string
}

// NewReasoningDelta creates a reasoning delta event.
func NewReasoningDelta(content string) ReasoningDelta {
	return ReasoningDelta{Base: NewBase(KindReasoningDelta), Content: content}
}

// MessageCompleted marks successful completion of the current turn. Content,
// when present, is the finalized plain text of the assistant message.
type MessageCompleted struct {
	Base
	Content *string
}

// NewMessageCompleted creates a message completed event.
func NewMessageCompleted(content *string) MessageCompleted {
	return MessageCompleted{Base: NewBase(KindMessageCompleted), Content: content}
}

// MessageFailed marks a turn aborted by the backend.
type MessageFailed struct {
	Base
	Reason string
}

// NewMessageFailed creates a message failed event.
func NewMessageFailed(reason string) MessageFailed {
	return MessageFailed{Base: NewBase(KindMessageFailed), Reason: reason}
}
