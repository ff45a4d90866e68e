package graph

// EdgeMode selects the graph topology produced by a conversion.
type EdgeMode int

const (
	// MultiEdge preserves every synthesized edge as a distinct parallel
	// edge between the same node pair.
	MultiEdge EdgeMode = iota
	// SingleEdge keeps at most one edge per ordered node pair; a later
	// edge between the same pair replaces the earlier one entirely.
	SingleEdge
)

func (m EdgeMode) String() string {
	if m == SingleEdge {
		return "single"
	}
	return "multi"
}

// ParseEdgeMode maps the wire names "multi" and "single" to an EdgeMode.
// Unknown values default to MultiEdge.
func ParseEdgeMode(s string) EdgeMode {
	if s == "single" {
		return SingleEdge
	}
	return MultiEdge
}

// Node is one entity in the converted graph.
//
// Placeholder nodes are created implicitly when an edge references an id no
// record has been seen for yet; they carry only the id until the real record
// arrives and upserts over them.
type Node struct {
	ID          string         `json:"id"`
	Kind        string         `json:"kind,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
	Placeholder bool           `json:"placeholder,omitempty"`
}

// Edge is one directed link between two node ids. The endpoints are not
// required to exist as nodes before the edge is inserted.
type Edge struct {
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	Label      string         `json:"label"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type nodePair struct {
	source string
	target string
}

// Graph is the assembled conversion target. It is not safe for concurrent
// mutation; the converter applies all writes from a single goroutine.
type Graph struct {
	mode  EdgeMode
	nodes map[string]*Node
	order []string
	edges []*Edge
	// byPair indexes edges by ordered endpoint pair for SingleEdge collapse.
	byPair map[nodePair]int
}

// NewGraph creates an empty graph with the given edge mode.
func NewGraph(mode EdgeMode) *Graph {
	return &Graph{
		mode:   mode,
		nodes:  make(map[string]*Node),
		byPair: make(map[nodePair]int),
	}
}

// Mode returns the graph's edge mode.
func (g *Graph) Mode() EdgeMode {
	return g.mode
}

// UpsertNode inserts or replaces the node with the given id. On collision
// the new properties replace the old ones wholesale; there is no per-field
// merge. The node stops being a placeholder once upserted.
func (g *Graph) UpsertNode(id, kind string, properties map[string]any) {
	existing, ok := g.nodes[id]
	if !ok {
		g.nodes[id] = &Node{ID: id, Kind: kind, Properties: properties}
		g.order = append(g.order, id)
		return
	}
	existing.Kind = kind
	existing.Properties = properties
	existing.Placeholder = false
}

// EnsureNode inserts an empty placeholder node if the id is unknown. An
// existing node, placeholder or not, is left untouched.
func (g *Graph) EnsureNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &Node{ID: id, Placeholder: true}
	g.order = append(g.order, id)
}

// InsertEdge applies the edge under the graph's edge mode. Both endpoints
// are materialized as placeholders if absent, so edge insertion never
// depends on record order. In SingleEdge mode an existing edge between the
// same ordered pair is replaced entirely by the new one.
func (g *Graph) InsertEdge(edge Edge) {
	g.EnsureNode(edge.SourceID)
	g.EnsureNode(edge.TargetID)

	if g.mode == SingleEdge {
		pair := nodePair{source: edge.SourceID, target: edge.TargetID}
		if idx, ok := g.byPair[pair]; ok {
			g.edges[idx] = &edge
			return
		}
		g.byPair[pair] = len(g.edges)
	}
	g.edges = append(g.edges, &edge)
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// HasNode reports whether a node with the given id exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// EdgeBetween returns the first edge with the given ordered endpoints,
// or nil. In SingleEdge mode this is the only such edge.
func (g *Graph) EdgeBetween(sourceID, targetID string) *Edge {
	if g.mode == SingleEdge {
		if idx, ok := g.byPair[nodePair{source: sourceID, target: targetID}]; ok {
			return g.edges[idx]
		}
		return nil
	}
	for _, edge := range g.edges {
		if edge.SourceID == sourceID && edge.TargetID == targetID {
			return edge
		}
	}
	return nil
}

// EdgesBetween returns every edge with the given ordered endpoints, in
// insertion order.
func (g *Graph) EdgesBetween(sourceID, targetID string) []*Edge {
	var out []*Edge
	for _, edge := range g.edges {
		if edge.SourceID == sourceID && edge.TargetID == targetID {
			out = append(out, edge)
		}
	}
	return out
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// NodeCount returns the number of nodes, placeholders included.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}
