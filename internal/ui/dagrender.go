package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/taskmaster/internal/dag"
)

// WaveRenderer draws dependency waves one line per node, with an arrow to
// each node that directly depends on it:
//
//	Wave 0: [1 setup] → [2 api]
//	                  → [3 db]
//	Wave 1: [2 api] → [4 ui]
type WaveRenderer struct {
	// Titles maps node ID to display title. Missing titles show the ID only.
	Titles map[string]string

	// StatusFunc returns a node's status ("done", "in-progress", ...). Nil
	// renders every node as pending.
	StatusFunc func(id string) string
}

// Render produces the wave listing. deps maps each node to its direct
// dependencies.
func (r *WaveRenderer) Render(waves []dag.Wave, deps map[string][]string) string {
	if len(waves) == 0 {
		return ""
	}

	// Reverse edges in wave order so arrows read top to bottom.
	children := make(map[string][]string)
	for _, w := range waves {
		for _, id := range w.NodeIDs {
			for _, dep := range deps[id] {
				children[dep] = append(children[dep], id)
			}
		}
	}

	var sb strings.Builder
	for _, w := range waves {
		label := fmt.Sprintf("Wave %d: ", w.Number)
		pad := strings.Repeat(" ", len(label))
		for i, id := range w.NodeIDs {
			if i == 0 {
				sb.WriteString(styleMuted.Render(label))
			} else {
				sb.WriteString(pad)
			}
			node := r.node(id)
			sb.WriteString(node)
			for ci, child := range children[id] {
				if ci > 0 {
					sb.WriteString("\n" + pad + strings.Repeat(" ", lipgloss.Width(node)))
				}
				sb.WriteString(" → " + r.node(child))
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (r *WaveRenderer) node(id string) string {
	text := "[" + id
	if title := r.Titles[id]; title != "" {
		text += " " + title
	}
	text += "]"

	status := "pending"
	if r.StatusFunc != nil {
		status = r.StatusFunc(id)
	}
	switch status {
	case "done", "completed":
		return styleSuccess.Render(text)
	case "in-progress":
		return styleWarn.Render(text)
	case "deferred", "cancelled":
		return styleMuted.Render(text)
	default:
		return styleID.Render(text)
	}
}

// Waves prints rendered waves.
func (p *Printer) Waves(r *WaveRenderer, waves []dag.Wave, deps map[string][]string) {
	if len(waves) == 0 {
		p.Infof("no tasks")
		return
	}
	fmt.Fprint(p.out, r.Render(waves, deps))
}
