// Package stream decodes the wire event records emitted by the backend agent
// orchestrator and defines the channel abstraction the aggregation engine
// reads them from.
//
// Decoding is deliberately tolerant: a record with an unrecognized kind or a
// shape that fails validation is reported to the caller as a skippable
// error, never as a stream failure. The rest of the stream keeps flowing.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/talentradar/activity-core/core/events"
)

// ErrUnknownKind marks a record whose kind the engine does not recognize.
// Unknown kinds are expected as the backend evolves and must be skipped.
var ErrUnknownKind = errors.New("unknown event kind")

// MalformedEventError marks a record that failed to parse against its kind's
// expected shape. Callers drop the record with a diagnostic and continue.
type MalformedEventError struct {
	EventKind string
	Err       error
}

func (e *MalformedEventError) Error() string {
	if e.EventKind == "" {
		return fmt.Sprintf("malformed event: %v", e.Err)
	}
	return fmt.Sprintf("malformed %q event: %v", e.EventKind, e.Err)
}

func (e *MalformedEventError) Unwrap() error { return e.Err }

// IsSkippable reports whether err is a per-record decode problem that must
// not abort the stream.
func IsSkippable(err error) bool {
	var malformed *MalformedEventError
	return errors.Is(err, ErrUnknownKind) || errors.As(err, &malformed)
}

// Wire kinds emitted by the backend agent orchestrator.
const (
	wireTextDelta        = "text_delta"
	wireReasoningDelta   = "reasoning_delta"
	wireToolCallStart    = "tool_call_start"
	wireToolCallUpdate   = "tool_call_update"
	wireToolCallComplete = "tool_call_complete"
	wireSubAgentUpdate   = "sub_agent_update"
	wireChart            = "chart"
	wireCodeExecution    = "code_execution"
	wireCodeResult       = "code_result"
	wireAskUser          = "ask_user"
	wireMessageComplete  = "message_complete"
	wireError            = "error"
)

// Envelope is the flat wire record shape. Kind selects which payload fields
// are meaningful; everything else is ignored for that kind.
type Envelope struct {
	Kind string `json:"kind"`

	// text_delta, reasoning_delta, message_complete
	Content string `json:"content,omitempty"`

	// tool_call_* (callId is required)
	CallID     string  `json:"callId,omitempty"`
	ToolName   *string `json:"toolName,omitempty"`
	Arguments  *string `json:"arguments,omitempty"`
	Output     *string `json:"output,omitempty"`
	Error      *string `json:"error,omitempty"`
	IsComplete *bool   `json:"isComplete,omitempty"`

	// sub_agent_update (agent is required)
	Agent            string             `json:"agent,omitempty"`
	IsRunning        *bool              `json:"isRunning,omitempty"`
	ReasoningContent *string            `json:"reasoningContent,omitempty"`
	OutputPreview    *string            `json:"outputPreview,omitempty"`
	ToolCalls        []ToolCallEnvelope `json:"toolCalls,omitempty"`

	// chart
	Spec json.RawMessage `json:"spec,omitempty"`

	// code_execution, code_result
	Language string `json:"language,omitempty"`
	Code     string `json:"code,omitempty"`
	Outcome  string `json:"outcome,omitempty"`

	// ask_user
	Prompt  string   `json:"prompt,omitempty"`
	Options []string `json:"options,omitempty"`
}

// ToolCallEnvelope is a nested tool call record inside a sub_agent_update.
type ToolCallEnvelope struct {
	CallID     string  `json:"callId"`
	ToolName   *string `json:"toolName,omitempty"`
	Arguments  *string `json:"arguments,omitempty"`
	Output     *string `json:"output,omitempty"`
	Error      *string `json:"error,omitempty"`
	IsComplete *bool   `json:"isComplete,omitempty"`
}

// Decode parses one wire record into a typed event. It returns
// ErrUnknownKind for kinds the engine does not recognize and
// *MalformedEventError for records that fail validation; both are skippable
// per IsSkippable.
func Decode(data []byte) (events.Event, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &MalformedEventError{Err: err}
	}
	if envelope.Kind == "" {
		return nil, &MalformedEventError{Err: errors.New("missing kind")}
	}

	switch envelope.Kind {
	case wireTextDelta:
		return events.NewTextDelta(envelope.Content), nil

	case wireReasoningDelta:
		return events.NewReasoningDelta(envelope.Content), nil

	case wireToolCallStart:
		if envelope.CallID == "" {
			return nil, &MalformedEventError{EventKind: envelope.Kind, Err: errors.New("missing callId")}
		}
		var toolName, arguments string
		if envelope.ToolName != nil {
			toolName = *envelope.ToolName
		}
		if envelope.Arguments != nil {
			arguments = *envelope.Arguments
		}
		return events.NewToolCallStarted(envelope.CallID, toolName, arguments), nil

	case wireToolCallUpdate:
		if envelope.CallID == "" {
			return nil, &MalformedEventError{EventKind: envelope.Kind, Err: errors.New("missing callId")}
		}
		update := events.NewToolCallUpdated(envelope.CallID)
		update.ToolName = envelope.ToolName
		update.Arguments = envelope.Arguments
		update.Output = envelope.Output
		update.Error = envelope.Error
		update.IsComplete = envelope.IsComplete
		return update, nil

	case wireToolCallComplete:
		if envelope.CallID == "" {
			return nil, &MalformedEventError{EventKind: envelope.Kind, Err: errors.New("missing callId")}
		}
		return events.NewToolCallCompleted(envelope.CallID, envelope.Output, envelope.Error), nil

	case wireSubAgentUpdate:
		if envelope.Agent == "" {
			return nil, &MalformedEventError{EventKind: envelope.Kind, Err: errors.New("missing agent")}
		}
		update := events.NewSubAgentUpdated(envelope.Agent)
		update.IsRunning = envelope.IsRunning
		update.ReasoningContent = envelope.ReasoningContent
		update.OutputPreview = envelope.OutputPreview
		for _, toolCall := range envelope.ToolCalls {
			update.ToolCalls = append(update.ToolCalls, events.SubAgentToolCall{
				CallID:     toolCall.CallID,
				ToolName:   toolCall.ToolName,
				Arguments:  toolCall.Arguments,
				Output:     toolCall.Output,
				Error:      toolCall.Error,
				IsComplete: toolCall.IsComplete,
			})
		}
		return update, nil

	case wireChart:
		if len(envelope.Spec) == 0 {
			return nil, &MalformedEventError{EventKind: envelope.Kind, Err: errors.New("missing spec")}
		}
		return events.NewChartEmitted(string(envelope.Spec)), nil

	case wireCodeExecution:
		return events.NewCodeExecutionStarted(envelope.Language, envelope.Code), nil

	case wireCodeResult:
		var output string
		if envelope.Output != nil {
			output = *envelope.Output
		}
		return events.NewCodeResultEmitted(envelope.Outcome, output), nil

	case wireAskUser:
		if envelope.Prompt == "" {
			return nil, &MalformedEventError{EventKind: envelope.Kind, Err: errors.New("missing prompt")}
		}
		return events.NewUserInputRequested(envelope.Prompt, envelope.Options), nil

	case wireMessageComplete:
		var content *string
		if envelope.Content != "" {
			content = &envelope.Content
		}
		return events.NewMessageCompleted(content), nil

	case wireError:
		reason := "backend reported an error"
		if envelope.Error != nil && *envelope.Error != "" {
			reason = *envelope.Error
		}
		return events.NewMessageFailed(reason), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, envelope.Kind)
	}
}
