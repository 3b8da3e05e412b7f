package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/webflow/internal/dto"
	"github.com/aretw0/webflow/internal/presentation/graph"
	"github.com/stretchr/testify/assert"
)

func bookingDefinition() *dto.FlowDefinition {
	return &dto.FlowDefinition{
		ID:     "booking",
		Global: []dto.Transition{{On: "cancel", To: "cancelled"}},
		Catch:  []dto.Catch{{Error: "*", To: "failed"}},
		States: []dto.State{
			{ID: "setup", Actions: []dto.Action{{Call: "init"}}, Transitions: []dto.Transition{{On: "success", To: "enter-details"}}},
			{ID: "enter-details", View: "details", Transitions: []dto.Transition{
				{On: "submit", To: "check", If: `flowScope.ok == "yes"`},
			}},
			{ID: "check", If: []dto.Branch{{Test: "nights > 7", Then: "payment"}}, Else: "done"},
			{ID: "payment", Flow: "pay", Transitions: []dto.Transition{{On: "paid", To: "done"}}},
			{ID: "done", Catch: []dto.Catch{{Error: "timeout", To: "failed"}}},
			{ID: "failed"},
			{ID: "cancelled"},
		},
	}
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		contains []string
	}{
		{
			name: "Shapes",
			contains: []string{
				`setup(("setup"))`,
				`enter_details[/"enter-details"/]`,
				`check{"check"}`,
				`payment[["payment <br/> pay"]]`,
				`done(["done"])`,
			},
		},
		{
			name: "Edges",
			contains: []string{
				`setup -- "success" --> enter_details`,
				`enter_details -- "submit [flowScope.ok == 'yes']" --> check`,
				`check -- "nights > 7" --> payment`,
				`check -- "else" --> done`,
				`done -. "⚡ timeout" .-> failed`,
			},
		},
		{
			name: "Global",
			contains: []string{
				`global{{"global"}}`,
				`global -. "cancel" .-> cancelled`,
				`global -. "⚡ error" .-> failed`,
			},
		},
	}

	out := graph.GenerateMermaid(bookingDefinition(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := graph.GenerateMermaid(bookingDefinition(), &graph.GraphOverlay{
		VisitedStates: []string{"setup", "setup", "enter-details"},
		CurrentState:  "check",
	})
	assert.Contains(t, out, "class setup visited;")
	assert.Contains(t, out, "class enter_details visited;")
	assert.Contains(t, out, "class check current;")
	assert.Equal(t, 1, strings.Count(out, "class setup visited;"))
}

