package events

const (
	// KindToolCallStarted identifies tool call execution start.
	KindToolCallStarted Kind = "tool_call.started"
	// KindToolCallUpdated identifies a partial update for a known call.
	KindToolCallUpdated Kind = "tool_call.updated"
	// KindToolCallCompleted identifies tool call completion.
	KindToolCallCompleted Kind = "tool_call.completed"
)

// ToolCallStarted marks start of tool execution.
type ToolCallStarted struct {
	Base
	CallID    string
	ToolName  string
	Arguments string
}

// NewToolCallStarted creates a tool call started event.
func NewToolCallStarted(callID, toolName, arguments string) ToolCallStarted {
	return ToolCallStarted{Base: NewBase(KindToolCallStarted), CallID: callID, ToolName: toolName, Arguments: arguments}
}

// ToolCallUpdated carries a partial update for the call identified by
// CallID. Nil fields are unchanged.
type ToolCallUpdated struct {
	Base
	CallID     string
	ToolName   *string
	Arguments  *string
	Output     *string
	Error      *string
	IsComplete *bool
}

// NewToolCallUpdated creates a tool call updated event.
func NewToolCallUpdated(callID string) ToolCallUpdated {
	return ToolCallUpdated{Base: NewBase(KindToolCallUpdated), CallID: callID}
}

// ToolCallCompleted marks the end of tool execution. Error, when set, scopes
// the failure to this call without aborting the rest of the turn.
type ToolCallCompleted struct {
	Base
	CallID string
	Output *string
	Error  *string
}

// NewToolCallCompleted creates a tool call completed event.
func NewToolCallCompleted(callID string, output, callErr *string) ToolCallCompleted {
	return ToolCallCompleted{Base: NewBase(KindToolCallCompleted), CallID: callID, Output: output, Error: callErr}
}
