package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/webflow/internal/dto"
)

// GraphOverlay contains execution state to highlight on the graph.
type GraphOverlay struct {
	VisitedStates []string
	CurrentState  string
}

// GenerateMermaid produces a Mermaid flowchart of a flow document.
// It applies semantic styling:
// - Start: ((Circle))
// - View: [/Parallelogram/]
// - Decision: {Rhombus}
// - Subflow: [[Subroutine]]
// - End: ([Stadium])
// - Action: [Rectangle]
// Global transitions are drawn from a "global" node, catch transitions as dotted edges.
func GenerateMermaid(def *dto.FlowDefinition, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	start := def.Start
	if start == "" && len(def.States) > 0 {
		start = def.States[0].ID
	}

	for _, s := range def.States {
		safeID := sanitizeMermaidID(s.ID)

		opener, closer := "[", "]"
		switch {
		case s.ID == start:
			opener, closer = "((", "))"
		case s.Kind() == dto.KindView:
			opener, closer = "[/", "/]"
		case s.Kind() == dto.KindDecision:
			opener, closer = "{", "}"
		case s.Kind() == dto.KindSubflow:
			opener, closer = "[[", "]]"
		case s.Kind() == dto.KindEnd:
			opener, closer = "([", "])"
		}

		label := s.ID
		if s.Kind() == dto.KindSubflow {
			label = fmt.Sprintf("%s <br/> %s", s.ID, s.Flow)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		for _, t := range s.Transitions {
			if t.To == "" {
				continue
			}
			writeEdge(&sb, safeID, t.To, edgeLabel(t.On, t.If), false)
		}
		for _, b := range s.If {
			writeEdge(&sb, safeID, b.Then, b.Test, false)
		}
		if s.Else != "" {
			writeEdge(&sb, safeID, s.Else, "else", false)
		}
		for _, c := range s.Catch {
			writeEdge(&sb, safeID, c.To, catchLabel(c.Error), true)
		}
	}

	if len(def.Global) > 0 || len(def.Catch) > 0 {
		sb.WriteString("    global{{\"global\"}}\n")
		for _, t := range def.Global {
			if t.To != "" {
				writeEdge(&sb, "global", t.To, edgeLabel(t.On, t.If), true)
			}
		}
		for _, c := range def.Catch {
			writeEdge(&sb, "global", c.To, catchLabel(c.Error), true)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps the highlight readable on light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedStates {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentState != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentState))
		}
	}

	return sb.String()
}

func writeEdge(sb *strings.Builder, from, to, label string, dotted bool) {
	safeTo := sanitizeMermaidID(to)
	arrow := "-->"
	if dotted {
		arrow = "-.->"
	}
	if label != "" {
		// Mermaid labels cannot contain double quotes.
		label = strings.ReplaceAll(label, "\"", "'")
		arrow = fmt.Sprintf("-- \"%s\" -->", label)
		if dotted {
			arrow = fmt.Sprintf("-. \"%s\" .->", label)
		}
	}
	fmt.Fprintf(sb, "    %s %s %s\n", from, arrow, safeTo)
}

func edgeLabel(on, cond string) string {
	if cond == "" {
		return on
	}
	return fmt.Sprintf("%s [%s]", on, cond)
}

func catchLabel(match string) string {
	if match == "" || match == "*" {
		return "⚡ error"
	}
	return "⚡ " + match
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
