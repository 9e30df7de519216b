package activity

import (
	"slices"
	"strings"
)

// Group is a contiguous run of same-kind items rendered as one block.
type Group struct {
	Kind  Kind
	Items []Item
}

// groupable lists the kinds whose consecutive runs collapse into one group.
// Reasoning, chart and ask_user items never merge, each stays its own group.
var groupable = map[Kind]bool{
	KindText:          true,
	KindTool:          true,
	KindSubAgent:      true,
	KindCodeExecution: true,
	KindCodeResult:    true,
}

// Groups turns an item list into contiguous render groups with a single
// left-to-right pass over the items in sequence order. The function is pure:
// the same input always yields the same groups, so results can be memoized
// by the rendering surface.
func Groups(items []Item) []Group {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	slices.SortStableFunc(sorted, func(a, b Item) int { return a.Sequence - b.Sequence })

	var groups []Group
	for _, item := range sorted {
		if len(groups) > 0 {
			last := &groups[len(groups)-1]
			if last.Kind == item.Kind && groupable[item.Kind] {
				last.Items = append(last.Items, item)
				continue
			}
		}
		groups = append(groups, Group{Kind: item.Kind, Items: []Item{item}})
	}
	return groups
}

// Text concatenates the content of a text group. Joining consecutive chunks
// before markdown rendering avoids paragraph breaks mid-sentence.
func (g Group) Text() string {
	var builder strings.Builder
	for i := range g.Items {
		switch g.Kind {
		case KindText:
			builder.WriteString(g.Items[i].Text.Content)
		case KindReasoning:
			builder.WriteString(g.Items[i].Reasoning.Content)
		}
	}
	return builder.String()
}
