package activity

import "testing"

func TestClassifySubAgent(t *testing.T) {
	testCases := []struct {
		name     string
		payload  *SubAgentPayload
		expected State
	}{
		{name: "nil payload", payload: nil, expected: StatePending},
		{name: "fresh instance", payload: &SubAgentPayload{Agent: "seo", IsRunning: true}, expected: StatePending},
		{
			name: "reasoning only",
			payload: &SubAgentPayload{
				Agent: "seo", IsRunning: true,
				ReasoningContent: strPtr("Analyzing backlinks"),
			},
			expected: StateThinking,
		},
		{
			name: "incomplete tool call outranks reasoning",
			payload: &SubAgentPayload{
				Agent: "seo", IsRunning: true,
				ReasoningContent: strPtr("Analyzing backlinks"),
				ToolCalls:        []ToolCallRecord{{CallID: "t1"}},
			},
			expected: StateExecuting,
		},
		{
			name: "output preview outranks everything while running",
			payload: &SubAgentPayload{
				Agent: "seo", IsRunning: true,
				OutputPreview:    strPtr("x"),
				ReasoningContent: strPtr("y"),
				ToolCalls:        []ToolCallRecord{{CallID: "t1"}},
			},
			expected: StateOutputting,
		},
		{
			name: "completed tool calls fall back to thinking",
			payload: &SubAgentPayload{
				Agent: "seo", IsRunning: true,
				ReasoningContent: strPtr("Summarizing"),
				ToolCalls:        []ToolCallRecord{{CallID: "t1", IsComplete: true}},
			},
			expected: StateThinking,
		},
		{
			name:     "stopped without errors",
			payload:  &SubAgentPayload{Agent: "seo", IsRunning: false},
			expected: StateComplete,
		},
		{
			name: "stopped with a failed tool call",
			payload: &SubAgentPayload{
				Agent: "seo", IsRunning: false,
				ToolCalls: []ToolCallRecord{{CallID: "t1", IsComplete: true}, {CallID: "t2", Error: strPtr("timeout")}},
			},
			expected: StateError,
		},
		{
			name: "tool error is ignored while still running",
			payload: &SubAgentPayload{
				Agent: "seo", IsRunning: true,
				ToolCalls: []ToolCallRecord{{CallID: "t1", IsComplete: true, Error: strPtr("timeout")}},
			},
			expected: StatePending,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := ClassifySubAgent(testCase.payload); got != testCase.expected {
				t.Fatalf("expected state %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestStateIsTerminal(t *testing.T) {
	for state, terminal := range map[State]bool{
		StatePending:    false,
		StateThinking:   false,
		StateExecuting:  false,
		StateOutputting: false,
		StateComplete:   true,
		StateError:      true,
	} {
		if got := state.IsTerminal(); got != terminal {
			t.Fatalf("expected %q terminal=%t, got %t", state, terminal, got)
		}
	}
}
