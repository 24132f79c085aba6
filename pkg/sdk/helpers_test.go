package sdk_test

import (
	"time"

	"github.com/Tatenda/fullstori/pkg/sdk/graph"
)

var sdkSaveRequest = graph.SaveGraphRequest{
	Nodes: []graph.SaveNode{{ID: "root-node", EntityID: "ent-root", Position: &graph.Position{}}},
}

func sdkAutoSaveOptions() graph.AutoSaveOptions {
	return graph.AutoSaveOptions{Debounce: time.Hour}
}
