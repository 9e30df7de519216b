// Package format renders aggregated activity as a plain text transcript,
// for logs, terminals and test output.
package format

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/talentradar/activity-core/core/activity"
)

const (
	defaultWidth = 80
	// previewWidth caps one-line previews of arguments, outputs and chart
	// specs so a single record cannot flood the transcript.
	previewWidth = 48
)

type Renderer struct {
	width int
}

type RendererOption func(*Renderer)

// WithWidth sets the wrap width of prose blocks. Values below 20 are
// clamped.
func WithWidth(width int) RendererOption {
	return func(r *Renderer) {
		if width < 20 {
			width = 20
		}
		r.width = width
	}
}

func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{width: defaultWidth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Transcript renders groups in order, one block per group, separated by
// blank lines.
func (r *Renderer) Transcript(groups []activity.Group) string {
	blocks := make([]string, 0, len(groups))
	for _, group := range groups {
		if block := r.group(group); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (r *Renderer) group(group activity.Group) string {
	switch group.Kind {
	case activity.KindText:
		return r.wrap(group.Text())
	case activity.KindReasoning:
		return indent.String(r.wrap(group.Text()), 2)
	case activity.KindTool:
		lines := make([]string, 0, len(group.Items))
		for _, item := range group.Items {
			lines = append(lines, r.toolCall(*item.Tool))
		}
		return strings.Join(lines, "\n")
	case activity.KindSubAgent:
		lines := make([]string, 0, len(group.Items))
		for _, item := range group.Items {
			lines = append(lines, r.subAgent(item.SubAgent))
		}
		return strings.Join(lines, "\n")
	case activity.KindChart:
		return "[chart] " + preview(group.Items[0].Chart.Spec)
	case activity.KindCodeExecution, activity.KindCodeResult:
		lines := make([]string, 0, len(group.Items))
		for _, item := range group.Items {
			lines = append(lines, r.code(item))
		}
		return strings.Join(lines, "\n")
	case activity.KindAskUser:
		ask := group.Items[0].AskUser
		line := "? " + ask.Prompt
		if len(ask.Options) > 0 {
			line += " [" + strings.Join(ask.Options, " | ") + "]"
		}
		return r.wrap(line)
	}
	return ""
}

func (r *Renderer) toolCall(record activity.ToolCallRecord) string {
	line := fmt.Sprintf("> %s(%s)", record.ToolName, preview(record.Arguments))
	switch {
	case record.Interrupted:
		line += " interrupted"
	case record.Error != nil:
		line += " failed: " + preview(*record.Error)
	case record.IsComplete:
		if record.Output != nil {
			line += " -> " + preview(*record.Output)
		} else {
			line += " done"
		}
	default:
		line += " ..."
	}
	return line
}

func (r *Renderer) subAgent(payload *activity.SubAgentPayload) string {
	state := activity.ClassifySubAgent(payload)
	lines := []string{fmt.Sprintf("@ %s [%s]", payload.Agent, state)}
	if payload.ReasoningContent != nil && *payload.ReasoningContent != "" {
		lines = append(lines, indent.String(r.wrap(*payload.ReasoningContent), 2))
	}
	for _, record := range payload.ToolCalls {
		lines = append(lines, indent.String(r.toolCall(record), 2))
	}
	if payload.OutputPreview != nil && *payload.OutputPreview != "" {
		lines = append(lines, indent.String(r.wrap(*payload.OutputPreview), 2))
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) code(item activity.Item) string {
	if item.Kind == activity.KindCodeExecution {
		header := "$ " + item.CodeExecution.Language
		return header + "\n" + indent.String(item.CodeExecution.Code, 2)
	}

	result := item.CodeResult
	header := "= " + result.Outcome
	if result.Output == "" {
		return header
	}
	return header + "\n" + indent.String(result.Output, 2)
}

func (r *Renderer) wrap(text string) string {
	return strings.TrimSuffix(wordwrap.String(text, r.width), "\n")
}

// preview flattens text to one bounded line.
func preview(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	return truncate.StringWithTail(flat, previewWidth, "…")
}
