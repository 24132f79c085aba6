package testutil

import (
	"time"

	"github.com/Tatenda/fullstori/domain/graph"
	"github.com/Tatenda/fullstori/domain/timeline"
)

var fixtureTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// FixtureGraphState returns a small graph: the root plus one witness linked to it.
func FixtureGraphState() *graph.GraphState {
	return &graph.GraphState{
		Graph: &graph.Graph{
			ID:        "case-1",
			Name:      "Harbour Street",
			CreatedAt: fixtureTime,
			UpdatedAt: fixtureTime,
		},
		Nodes: []graph.NodeView{
			{
				ID:       "root-node",
				EntityID: "ent-root",
				Position: graph.Position{X: 0, Y: 0},
				Kind:     graph.KindRoot,
				Name:     "Victim",
				Role:     "Root",
				RoleID:   "role-root",
			},
			{
				ID:       "node-jane",
				EntityID: "ent-jane",
				Position: graph.Position{X: 300, Y: 150},
				Kind:     graph.KindCustom,
				Name:     "Jane Doe",
				Role:     "Witness",
				RoleID:   "role-witness",
			},
		},
		Edges: []graph.EdgeView{
			{ID: "edge-1", Source: "node-jane", Target: "root-node", Label: ptr("Witnessed")},
		},
	}
}

// FixtureSaveResult returns the result of saving FixtureGraphState.
func FixtureSaveResult() *graph.SaveGraphResult {
	return &graph.SaveGraphResult{GraphID: "case-1", RootNodeID: "root-node", Nodes: 2, Edges: 1}
}

// FixtureEvent returns a dated event between the fixture nodes.
func FixtureEvent() *timeline.Event {
	return &timeline.Event{
		ID:                 "ev-1",
		GraphID:            "case-1",
		Title:              "Jane sees the victim",
		Date:               ptr("2026-03-01"),
		EventTypeID:        "et-sighting",
		SourceNodeID:       ptr("node-jane"),
		TargetNodeID:       ptr("root-node"),
		ParticipantNodeIDs: []string{},
		CreatedAt:          fixtureTime,
		UpdatedAt:          fixtureTime,
	}
}
