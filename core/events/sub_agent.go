package events

// KindSubAgentUpdated identifies a sub-agent progress snapshot.
const KindSubAgentUpdated Kind = "sub_agent.updated"

// SubAgentToolCall is a tool call observed inside a sub-agent update. Nil
// fields are unchanged; records merge by CallID into the sub-agent's
// existing tool call list.
type SubAgentToolCall struct {
	CallID     string
	ToolName   *string
	Arguments  *string
	Output     *string
	Error      *string
	IsComplete *bool
}

// SubAgentUpdated carries a progress snapshot for the sub-agent instance
// identified by Agent. Nil optional fields are unchanged.
type SubAgentUpdated struct {
	Base
	Agent            string
	IsRunning        *bool
	ReasoningContent *string
	OutputPreview    *string
	ToolCalls        []SubAgentToolCall
}

// NewSubAgentUpdated creates a sub-agent updated event.
func NewSubAgentUpdated(agent string) SubAgentUpdated {
	return SubAgentUpdated{Base: NewBase(KindSubAgentUpdated), Agent: agent}
}
