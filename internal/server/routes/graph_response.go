package routes

import (
	"stixgraph/pkg/graph"
	"stixgraph/pkg/stix"
)

// graphPayload is the wire form of a converted graph shared by the sync
// convert route and the feed graph route.
type graphPayload struct {
	EdgeMode    string            `json:"edge_mode"`
	Nodes       []*graph.Node     `json:"nodes"`
	Edges       []*graph.Edge     `json:"edges"`
	Diagnostics []stix.Diagnostic `json:"diagnostics"`
}

func newGraphPayload(g *graph.Graph, diags []stix.Diagnostic) graphPayload {
	if diags == nil {
		diags = []stix.Diagnostic{}
	}
	nodes := g.Nodes()
	edges := g.Edges()
	if edges == nil {
		edges = []*graph.Edge{}
	}
	return graphPayload{
		EdgeMode:    g.Mode().String(),
		Nodes:       nodes,
		Edges:       edges,
		Diagnostics: diags,
	}
}
