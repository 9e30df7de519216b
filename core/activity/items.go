// Package activity holds the per-message activity log and the pure
// derivations computed from it (grouping, sub-agent state).
//
// An Item is one discrete unit of agent output observed during a turn. Items
// are created on first reference, merged in place by later events that carry
// the same identity, and frozen once their terminal condition holds.
package activity

// Kind discriminates the Item tagged union.
type Kind string

const (
	KindText          Kind = "text"
	KindTool          Kind = "tool"
	KindReasoning     Kind = "reasoning"
	KindSubAgent      Kind = "sub_agent"
	KindChart         Kind = "chart"
	KindCodeExecution Kind = "code_execution"
	KindCodeResult    Kind = "code_result"
	KindAskUser       Kind = "ask_user"
)

// Item is a single entry in the activity log. Exactly one payload pointer is
// set, matching Kind.
type Item struct {
	// ID is the stable identity key, assigned at first occurrence.
	ID string
	// Sequence is the ingestion-order stamp assigned by the log. It is
	// strictly increasing and gapless within one log and is never taken
	// from the wire.
	Sequence int
	Kind     Kind

	Text          *TextPayload
	Tool          *ToolCallRecord
	Reasoning     *ReasoningPayload
	SubAgent      *SubAgentPayload
	Chart         *ChartPayload
	CodeExecution *CodeExecutionPayload
	CodeResult    *CodeResultPayload
	AskUser       *AskUserPayload
}

// TextPayload carries a streamed chunk of assistant prose.
type TextPayload struct {
	Content string
}

// ReasoningPayload carries a streamed chunk of model reasoning.
type ReasoningPayload struct {
	Content string
}

// ToolCallRecord tracks one tool invocation. CallID is its identity; later
// events referencing the same CallID merge into the existing record.
type ToolCallRecord struct {
	CallID     string
	ToolName   string
	Arguments  string
	IsComplete bool
	Output     *string
	Error      *string

	// Interrupted marks a call that was still open when the turn was
	// cancelled. It is terminal and distinct from both completion and
	// error.
	Interrupted bool
}

// SubAgentPayload tracks the progress of one nested sub-agent instance.
//
// Identity is (Agent, first-seen sequence): a sub_agent event for an agent
// name whose current instance is already frozen starts a new instance rather
// than thawing the old one.
type SubAgentPayload struct {
	Agent            string
	IsRunning        bool
	ReasoningContent *string
	OutputPreview    *string
	ToolCalls        []ToolCallRecord

	Interrupted bool
}

// ChartPayload carries an opaque chart specification for the rendering
// surface. The engine never inspects it.
type ChartPayload struct {
	Spec string
}

type CodeExecutionPayload struct {
	Language string
	Code     string
}

type CodeResultPayload struct {
	Outcome string
	Output  string
}

// AskUserPayload is a request for user input raised mid-turn.
type AskUserPayload struct {
	Prompt  string
	Options []string
}

// IsTerminal reports whether the item's own terminal condition holds,
// independent of log-level finalization.
func (item *Item) IsTerminal() bool {
	switch item.Kind {
	case KindTool:
		return item.Tool != nil && (item.Tool.IsComplete || item.Tool.Interrupted)
	case KindSubAgent:
		return item.SubAgent != nil && !item.SubAgent.IsRunning
	default:
		return false
	}
}
