package activity

// State is the discrete progress state derived for a sub-agent item.
type State string

const (
	StatePending    State = "pending"
	StateThinking   State = "thinking"
	StateExecuting  State = "executing"
	StateOutputting State = "outputting"
	StateComplete   State = "complete"
	StateError      State = "error"
)

// IsTerminal reports whether the state admits no further progress.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateError
}

// ClassifySubAgent derives the progress state from the current snapshot of a
// sub-agent item. It is recomputed on every read rather than stored, so the
// displayed state can never diverge from the item's fields.
//
// While running, the precedence outputting > executing > thinking > pending
// decides the state whenever several conditions hold at once.
func ClassifySubAgent(payload *SubAgentPayload) State {
	if payload == nil {
		return StatePending
	}

	if !payload.IsRunning {
		for i := range payload.ToolCalls {
			if payload.ToolCalls[i].Error != nil {
				return StateError
			}
		}
		return StateComplete
	}

	if payload.OutputPreview != nil && *payload.OutputPreview != "" {
		return StateOutputting
	}
	for i := range payload.ToolCalls {
		if !payload.ToolCalls[i].IsComplete {
			return StateExecuting
		}
	}
	if payload.ReasoningContent != nil && *payload.ReasoningContent != "" {
		return StateThinking
	}
	return StatePending
}
