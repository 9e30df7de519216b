// Package events defines the typed activity event contract.
//
// Events are the decoded, validated form of the wire records emitted by the
// backend agent orchestrator during one turn. Kinds are grouped by
// receiver-facing namespaces:
//
//   - message.*
//   - tool_call.*
//   - sub_agent.*
//   - artifact.*
//
// Semantics used across the package:
//
//   - Delta: append-only text piece emitted in stream order.
//   - Updated: mutable point-in-time snapshot that can change over time;
//     absent optional fields mean "unchanged", not "cleared".
//   - Completed/Failed: lifecycle boundary for the current turn.
//
// message events
//
//   - TextDelta (message.text_delta): streamed assistant prose chunk.
//   - ReasoningDelta (message.reasoning_delta): streamed model reasoning
//     chunk.
//   - MessageCompleted (message.completed): the turn finished successfully.
//   - MessageFailed (message.failed): the turn was aborted by the backend.
//
// tool_call events
//
//   - ToolCallStarted (tool_call.started): tool execution started.
//   - ToolCallUpdated (tool_call.updated): partial update for a known call.
//   - ToolCallCompleted (tool_call.completed): tool execution finished with
//     an output or an error.
//
// sub_agent events
//
//   - SubAgentUpdated (sub_agent.updated): progress snapshot for a nested
//     sub-agent instance, including its own tool calls.
//
// artifact events
//
//   - ChartEmitted (artifact.chart): opaque chart specification.
//   - CodeExecutionStarted (artifact.code_execution): code submitted to a
//     sandbox.
//   - CodeResultEmitted (artifact.code_result): sandbox execution result.
//   - UserInputRequested (artifact.ask_user): mid-turn request for user
//     input.
package events
