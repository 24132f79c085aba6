package graph

import (
	"fmt"
	"strings"

	"github.com/Tatenda/fullstori/pkg/apperror"
	"github.com/Tatenda/fullstori/pkg/mathutil"
)

// validateShape checks a save request without touching storage. The first
// violation is returned.
func validateShape(req SaveGraphRequest) error {
	nodeIDs := make(map[string]struct{}, len(req.Nodes))
	for i, n := range req.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		if strings.TrimSpace(n.ID) == "" {
			return apperror.NewValidation(field+".id", "node id is required")
		}
		if strings.TrimSpace(n.EntityID) == "" {
			return apperror.NewValidation(field+".entityId", fmt.Sprintf("node '%s' has no entity", n.ID))
		}
		if n.Position == nil {
			return apperror.NewValidation(field+".position", fmt.Sprintf("node '%s' has no position", n.ID))
		}
		if !mathutil.Finite(n.Position.X, n.Position.Y) {
			return apperror.NewValidation(field+".position", fmt.Sprintf("node '%s' position must be finite", n.ID))
		}
		if _, dup := nodeIDs[n.ID]; dup {
			return apperror.NewValidation(field+".id", fmt.Sprintf("duplicate node id '%s'", n.ID))
		}
		nodeIDs[n.ID] = struct{}{}
	}

	edgeIDs := make(map[string]struct{}, len(req.Edges))
	pairs := make(map[pair]string, len(req.Edges))
	for i, e := range req.Edges {
		field := fmt.Sprintf("edges[%d]", i)
		if strings.TrimSpace(e.ID) == "" {
			return apperror.NewValidation(field+".id", "edge id is required")
		}
		if e.Source == "" || e.Target == "" {
			return apperror.NewValidation(field, fmt.Sprintf("edge '%s' needs a source and a target", e.ID))
		}
		if e.Source == e.Target {
			return apperror.NewValidation(field, fmt.Sprintf("edge '%s' connects node '%s' to itself", e.ID, e.Source))
		}
		if _, dup := edgeIDs[e.ID]; dup {
			return apperror.NewValidation(field+".id", fmt.Sprintf("duplicate edge id '%s'", e.ID))
		}
		edgeIDs[e.ID] = struct{}{}

		p := pair{e.Source, e.Target}
		if other, dup := pairs[p]; dup {
			return apperror.NewValidation(field, fmt.Sprintf("edges '%s' and '%s' connect the same nodes", other, e.ID))
		}
		pairs[p] = e.ID
	}
	return nil
}

// checkEndpoints ensures every edge references a node of the request or the
// persisted root, which survives every save.
func checkEndpoints(req SaveGraphRequest, rootID string) error {
	present := make(map[string]struct{}, len(req.Nodes)+1)
	for _, n := range req.Nodes {
		present[n.ID] = struct{}{}
	}
	if rootID != "" {
		present[rootID] = struct{}{}
	}

	for _, e := range req.Edges {
		for _, end := range []string{e.Source, e.Target} {
			if _, ok := present[end]; !ok {
				return apperror.NewReferentialIntegrity(
					fmt.Sprintf("edge '%s' references unknown node '%s'", e.ID, end),
				).WithDetails(map[string]any{"edgeId": e.ID, "nodeId": end})
			}
		}
	}
	return nil
}

func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
