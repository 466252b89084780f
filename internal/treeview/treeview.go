// Package treeview renders the nodes of a tree and their statuses, as
// styled text for terminals and as flat snapshots for serialization.
package treeview

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/joeycumines/bteng/internal/bt"
)

// Styles controls how Render draws each part of a line. The zero value
// draws plain text.
type Styles struct {
	Name      lipgloss.Style
	Kind      lipgloss.Style
	Connector lipgloss.Style
	Status    map[bt.Status]lipgloss.Style
}

// DefaultStyles colors statuses the way behavior tree editors usually do.
func DefaultStyles() Styles {
	return Styles{
		Name:      lipgloss.NewStyle().Bold(true),
		Kind:      lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Connector: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Status: map[bt.Status]lipgloss.Style{
			bt.Idle:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			bt.Running: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
			bt.Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			bt.Failure: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
			bt.Skipped: lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true),
		},
	}
}

// Entry is one node of a Snapshot.
type Entry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Depth  int    `json:"depth"`
}

// Snapshot lists the nodes of t in depth-first pre-order. Like Tree.Walk,
// it must not run concurrently with a tick.
func Snapshot(t *bt.Tree) []Entry {
	var out []Entry
	t.Walk(func(n bt.Node, depth int) bool {
		out = append(out, Entry{
			ID:     n.ID(),
			Name:   n.Name(),
			Kind:   n.Kind().String(),
			Status: n.Status().String(),
			Depth:  depth,
		})
		return true
	})
	return out
}

// Render draws t as an indented tree, one node per line:
//
//	patrol [Control] RUNNING
//	├── battery ok [Condition] SUCCESS
//	└── move [Action] RUNNING
func Render(t *bt.Tree, styles Styles) string {
	var b strings.Builder
	render(&b, t.Root(), "", "", styles)
	return strings.TrimSuffix(b.String(), "\n")
}

func render(b *strings.Builder, n bt.Node, lead, childLead string, styles Styles) {
	if lead != "" {
		b.WriteString(styles.Connector.Render(lead))
	}
	b.WriteString(label(n, styles))
	b.WriteByte('\n')

	children := n.Children()
	for i, child := range children {
		if i == len(children)-1 {
			render(b, child, childLead+"└── ", childLead+"    ", styles)
		} else {
			render(b, child, childLead+"├── ", childLead+"│   ", styles)
		}
	}
}

func label(n bt.Node, styles Styles) string {
	status := n.Status()
	return styles.Name.Render(n.Name()) + " " +
		styles.Kind.Render("["+n.Kind().String()+"]") + " " +
		styles.Status[status].Render(status.String())
}
