package activity

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/talentradar/activity-core/core/events"
)

var (
	// ErrLogFinalized is returned for any upsert after the log was frozen.
	ErrLogFinalized = errors.New("activity log already finalized")
	// ErrItemFrozen is returned when an event targets an item whose
	// terminal condition already holds.
	ErrItemFrozen = errors.New("activity item already frozen")
	// ErrUnsupportedEvent is returned for event types the log has no
	// upsert rule for (turn lifecycle events belong to the controller).
	ErrUnsupportedEvent = errors.New("event not supported by activity log")
)

// FinalizeReason describes why a log was frozen.
type FinalizeReason string

const (
	FinalizeCompleted FinalizeReason = "completed"
	FinalizeCancelled FinalizeReason = "cancelled"
	FinalizeErrored   FinalizeReason = "errored"
)

// Log is the per-message activity store. Events are applied in delivery
// order through Upsert; each application either appends a new item with the
// next sequence number or merges into the existing item with the same
// identity. Applying an identical event twice leaves the log unchanged after
// the first application.
//
// Log is safe for concurrent use, though during a turn it has exactly one
// writer (the turn's event loop).
type Log struct {
	mu    sync.RWMutex
	items []Item

	// toolIndex maps callId to the item index of its tool record.
	toolIndex map[string]int
	// subAgentIndex maps agent name to the item index of the current open
	// instance. A frozen instance is evicted so the next update starts a
	// fresh one.
	subAgentIndex map[string]int

	finalized bool
	reason    FinalizeReason
}

func NewLog() *Log {
	return &Log{
		toolIndex:     map[string]int{},
		subAgentIndex: map[string]int{},
	}
}

// Upsert applies one event to the log. Unknown or unsupported event types
// return ErrUnsupportedEvent; events targeting frozen items return
// ErrItemFrozen. Neither invalidates the log, callers are expected to skip
// and continue.
func (l *Log) Upsert(event events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.finalized {
		return ErrLogFinalized
	}

	switch typedEvent := event.(type) {
	case events.TextDelta:
		l.append(Item{Kind: KindText, Text: &TextPayload{Content: typedEvent.Content}})
	case events.ReasoningDelta:
		l.append(Item{Kind: KindReasoning, Reasoning: &ReasoningPayload{Content: typedEvent.Content}})
	case events.ToolCallStarted:
		return l.upsertToolCall(typedEvent.CallID, func(record *ToolCallRecord) {
			record.ToolName = typedEvent.ToolName
			record.Arguments = typedEvent.Arguments
		})
	case events.ToolCallUpdated:
		return l.upsertToolCall(typedEvent.CallID, func(record *ToolCallRecord) {
			mergeToolCall(record, typedEvent.ToolName, typedEvent.Arguments, typedEvent.Output, typedEvent.Error, typedEvent.IsComplete)
		})
	case events.ToolCallCompleted:
		isComplete := true
		return l.upsertToolCall(typedEvent.CallID, func(record *ToolCallRecord) {
			mergeToolCall(record, nil, nil, typedEvent.Output, typedEvent.Error, &isComplete)
		})
	case events.SubAgentUpdated:
		return l.upsertSubAgent(typedEvent)
	case events.ChartEmitted:
		l.append(Item{Kind: KindChart, Chart: &ChartPayload{Spec: typedEvent.Spec}})
	case events.CodeExecutionStarted:
		l.append(Item{Kind: KindCodeExecution, CodeExecution: &CodeExecutionPayload{Language: typedEvent.Language, Code: typedEvent.Code}})
	case events.CodeResultEmitted:
		l.append(Item{Kind: KindCodeResult, CodeResult: &CodeResultPayload{Outcome: typedEvent.Outcome, Output: typedEvent.Output}})
	case events.UserInputRequested:
		l.append(Item{Kind: KindAskUser, AskUser: &AskUserPayload{Prompt: typedEvent.Prompt, Options: typedEvent.Options}})
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedEvent, event)
	}

	return nil
}

// append stamps the next sequence number and a deterministic identity key
// derived from it, then stores the item. Deterministic identity keeps replay
// of the same event sequence bit-for-bit reproducible.
func (l *Log) append(item Item) *Item {
	item.Sequence = len(l.items) + 1
	if item.ID == "" {
		item.ID = fmt.Sprintf("%s-%d", item.Kind, item.Sequence)
	}
	l.items = append(l.items, item)
	return &l.items[len(l.items)-1]
}

// upsertToolCall resolves a tool call by callId. Resolution order: a
// top-level tool item, then a record nested in any sub-agent instance. A
// call seen for the first time while a sub-agent is running belongs to that
// sub-agent; otherwise it becomes a top-level tool item.
func (l *Log) upsertToolCall(callID string, apply func(*ToolCallRecord)) error {
	if callID == "" {
		return fmt.Errorf("%w: tool call event without callId", ErrUnsupportedEvent)
	}

	if index, ok := l.toolIndex[callID]; ok {
		item := &l.items[index]
		if item.IsTerminal() {
			return fmt.Errorf("%w: tool call %q", ErrItemFrozen, callID)
		}
		apply(item.Tool)
		return nil
	}

	for i := len(l.items) - 1; i >= 0; i-- {
		if l.items[i].Kind != KindSubAgent {
			continue
		}
		for j := range l.items[i].SubAgent.ToolCalls {
			record := &l.items[i].SubAgent.ToolCalls[j]
			if record.CallID != callID {
				continue
			}
			if l.items[i].IsTerminal() || record.IsComplete || record.Interrupted {
				return fmt.Errorf("%w: tool call %q", ErrItemFrozen, callID)
			}
			apply(record)
			return nil
		}
	}

	if index, ok := l.latestOpenSubAgent(); ok {
		record := l.items[index].SubAgent.toolCall(callID)
		apply(record)
		return nil
	}

	item := l.append(Item{ID: callID, Kind: KindTool, Tool: &ToolCallRecord{CallID: callID}})
	l.toolIndex[callID] = item.Sequence - 1
	apply(item.Tool)
	return nil
}

// latestOpenSubAgent returns the index of the most recently started
// sub-agent instance that is still running.
func (l *Log) latestOpenSubAgent() (int, bool) {
	latest, found := -1, false
	for _, index := range l.subAgentIndex {
		if index > latest {
			latest, found = index, true
		}
	}
	return latest, found
}

func (l *Log) upsertSubAgent(event events.SubAgentUpdated) error {
	if event.Agent == "" {
		return fmt.Errorf("%w: sub-agent event without agent name", ErrUnsupportedEvent)
	}

	index, ok := l.subAgentIndex[event.Agent]
	if ok && l.items[index].IsTerminal() {
		delete(l.subAgentIndex, event.Agent)
		ok = false
	}

	var item *Item
	if ok {
		item = &l.items[index]
	} else {
		// A purely terminal event with no open instance is a duplicate of
		// an already-applied stop, not a re-invocation. Minting an
		// instance for it would break idempotence.
		if isStop(event) && event.ReasoningContent == nil && event.OutputPreview == nil && len(event.ToolCalls) == 0 {
			return fmt.Errorf("%w: sub-agent %q", ErrItemFrozen, event.Agent)
		}
		item = l.append(Item{Kind: KindSubAgent, SubAgent: &SubAgentPayload{Agent: event.Agent, IsRunning: true}})
		item.ID = fmt.Sprintf("%s#%d", event.Agent, item.Sequence)
		l.subAgentIndex[event.Agent] = item.Sequence - 1
	}

	payload := item.SubAgent
	if event.ReasoningContent != nil {
		payload.ReasoningContent = event.ReasoningContent
	}
	if event.OutputPreview != nil {
		payload.OutputPreview = event.OutputPreview
	}
	for _, toolCall := range event.ToolCalls {
		if toolCall.CallID == "" {
			continue
		}
		record := payload.toolCall(toolCall.CallID)
		if record.IsComplete || record.Interrupted {
			continue
		}
		mergeToolCall(record, toolCall.ToolName, toolCall.Arguments, toolCall.Output, toolCall.Error, toolCall.IsComplete)
	}
	if isStop(event) {
		payload.IsRunning = false
		delete(l.subAgentIndex, event.Agent)
	}

	return nil
}

func isStop(event events.SubAgentUpdated) bool {
	return event.IsRunning != nil && !*event.IsRunning
}

// toolCall returns the record for callID, creating it at the end of the list
// on first reference.
func (p *SubAgentPayload) toolCall(callID string) *ToolCallRecord {
	for i := range p.ToolCalls {
		if p.ToolCalls[i].CallID == callID {
			return &p.ToolCalls[i]
		}
	}
	p.ToolCalls = append(p.ToolCalls, ToolCallRecord{CallID: callID})
	return &p.ToolCalls[len(p.ToolCalls)-1]
}

// mergeToolCall folds non-nil fields into the record, newest value wins.
func mergeToolCall(record *ToolCallRecord, toolName, arguments, output, callErr *string, isComplete *bool) {
	if toolName != nil {
		record.ToolName = *toolName
	}
	if arguments != nil {
		record.Arguments = *arguments
	}
	if output != nil {
		record.Output = output
	}
	if callErr != nil {
		record.Error = callErr
	}
	if isComplete != nil && *isComplete {
		record.IsComplete = true
	}
}

// Finalize freezes the log. Every still-open item becomes terminal; on
// cancellation, open tool calls and sub-agents are marked interrupted, which
// stays distinct from both completion and error. The first reason wins,
// repeated calls are no-ops.
func (l *Log) Finalize(reason FinalizeReason) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.finalized {
		return
	}
	l.finalized = true
	l.reason = reason

	interrupted := reason == FinalizeCancelled
	for i := range l.items {
		item := &l.items[i]
		switch item.Kind {
		case KindTool:
			if interrupted && !item.Tool.IsComplete {
				item.Tool.Interrupted = true
			}
		case KindSubAgent:
			if !item.SubAgent.IsRunning {
				continue
			}
			item.SubAgent.IsRunning = false
			if !interrupted {
				continue
			}
			item.SubAgent.Interrupted = true
			for j := range item.SubAgent.ToolCalls {
				if !item.SubAgent.ToolCalls[j].IsComplete {
					item.SubAgent.ToolCalls[j].Interrupted = true
				}
			}
		}
	}
	l.toolIndex = map[string]int{}
	l.subAgentIndex = map[string]int{}
}

// Finalized reports whether the log was frozen, and why.
func (l *Log) Finalized() (bool, FinalizeReason) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.finalized, l.reason
}

// Items returns a deep copy of the log in sequence order.
func (l *Log) Items() []Item {
	l.mu.RLock()
	defer l.mu.RUnlock()

	items := make([]Item, 0, len(l.items))
	copier.CopyWithOption(&items, &l.items, copier.Option{DeepCopy: true})
	return items
}

// Len returns the number of items in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Text returns the concatenated content of all text items, used as the
// finalized plain text of a message when the backend does not provide one.
func (l *Log) Text() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var builder strings.Builder
	for i := range l.items {
		if l.items[i].Kind == KindText {
			builder.WriteString(l.items[i].Text.Content)
		}
	}
	return builder.String()
}
