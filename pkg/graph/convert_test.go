package graph

import (
	"context"
	"reflect"
	"testing"

	"stixgraph/pkg/stix"
)

func convertOne(t *testing.T, params NewConverterParams, bundles ...[]stix.RawRecord) (*Graph, []stix.Diagnostic) {
	t.Helper()
	g, diags, err := NewConverter(params).Convert(context.Background(), bundles)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	return g, diags
}

func TestEntityNodeFullFidelity(t *testing.T) {
	bundle := []stix.RawRecord{
		{
			"type":               "threat-actor",
			"id":                 "threat-actor--1",
			"name":               "Evil Corp",
			"aliases":            []any{"BadGuys", "Villains"},
			"threat_actor_types": []any{"criminal"},
			"sophistication":     "expert",
		},
	}

	g, diags := convertOne(t, NewConverterParams{IncludeObservables: true}, bundle)
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}

	node := g.Node("threat-actor--1")
	if node == nil {
		t.Fatal("entity node missing")
	}
	if node.Kind != "threat-actor" {
		t.Errorf("Kind = %q", node.Kind)
	}
	if node.Properties["id"] != "threat-actor--1" {
		t.Error("id field must be preserved in properties")
	}
	if node.Properties["name"] != "Evil Corp" || node.Properties["sophistication"] != "expert" {
		t.Error("scalar fields must carry over verbatim")
	}
	aliases, ok := node.Properties["aliases"].([]any)
	if !ok || !reflect.DeepEqual(aliases, []any{"BadGuys", "Villains"}) {
		t.Errorf("aliases = %v, want ordered list preserved", node.Properties["aliases"])
	}
}

func TestRelationshipCreatesPlaceholderEndpoints(t *testing.T) {
	bundle := []stix.RawRecord{
		{
			"type":              "relationship",
			"id":                "relationship--1",
			"relationship_type": "uses",
			"source_ref":        "threat-actor--a",
			"target_ref":        "malware--b",
		},
	}

	g, diags := convertOne(t, NewConverterParams{IncludeObservables: true}, bundle)
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}

	// The relationship record itself never becomes a node; only its two
	// endpoints are materialized as placeholders.
	if g.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d, want 2", g.NodeCount())
	}
	if g.HasNode("relationship--1") {
		t.Error("relationship record must not become a node")
	}
	if !g.Node("threat-actor--a").Placeholder || !g.Node("malware--b").Placeholder {
		t.Error("dangling endpoints should be placeholders")
	}

	edge := g.EdgeBetween("threat-actor--a", "malware--b")
	if edge == nil || edge.Label != "uses" {
		t.Fatalf("edge = %+v, want label 'uses'", edge)
	}
}

func TestRelationshipMayPrecedeItsEndpoints(t *testing.T) {
	bundle := []stix.RawRecord{
		{
			"type": "relationship", "id": "relationship--1",
			"relationship_type": "uses",
			"source_ref":        "threat-actor--a",
			"target_ref":        "malware--b",
		},
		{"type": "malware", "id": "malware--b", "name": "EvilLoader"},
	}

	g, _ := convertOne(t, NewConverterParams{IncludeObservables: true}, bundle)

	node := g.Node("malware--b")
	if node.Placeholder {
		t.Error("placeholder should be filled once the real record arrives")
	}
	if node.Properties["name"] != "EvilLoader" {
		t.Errorf("properties = %v", node.Properties)
	}
	if g.Node("threat-actor--a").Placeholder != true {
		t.Error("unreferenced endpoint stays a placeholder")
	}
}

func TestRelationshipMissingEndpointDropped(t *testing.T) {
	bundle := []stix.RawRecord{
		{
			"type": "relationship", "id": "relationship--1",
			"relationship_type": "uses",
			"source_ref":        "threat-actor--a",
		},
	}

	g, diags := convertOne(t, NewConverterParams{IncludeObservables: true}, bundle)
	if g.EdgeCount() != 0 {
		t.Errorf("EdgeCount() = %d, want 0", g.EdgeCount())
	}
	if len(diags) != 1 || diags[0].Reason != stix.ReasonMissingEndpoint {
		t.Errorf("diags = %v, want one missing-endpoint diagnostic", diags)
	}
}

func TestSightingBecomesNodePlusEdges(t *testing.T) {
	bundle := []stix.RawRecord{
		{
			"type":               "sighting",
			"id":                 "sighting--1",
			"count":              3,
			"sighting_of_ref":    "indicator--a",
			"where_sighted_refs": []any{"identity--b", "identity--c"},
			"observed_data_refs": []any{"observed-data--d"},
		},
	}

	g, diags := convertOne(t, NewConverterParams{IncludeObservables: true}, bundle)
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}

	sighting := g.Node("sighting--1")
	if sighting == nil || sighting.Placeholder {
		t.Fatal("sighting must become a real node")
	}
	if sighting.Properties["count"] != 3 {
		t.Error("sighting properties must carry over")
	}

	// 1 sighting_of + 2 seen_by + 1 observed.
	if g.EdgeCount() != 4 {
		t.Errorf("EdgeCount() = %d, want 4", g.EdgeCount())
	}
	if edge := g.EdgeBetween("sighting--1", "indicator--a"); edge == nil || edge.Label != "sighting_of" {
		t.Errorf("sighting_of edge = %+v", edge)
	}
}

func TestSuppressedOnlyBundleYieldsEmptyGraph(t *testing.T) {
	bundle := []stix.RawRecord{
		{"type": "marking-definition", "id": "marking-definition--1", "definition_type": "tlp"},
		{"type": "language-content", "id": "language-content--1"},
	}

	g, diags := convertOne(t, NewConverterParams{IncludeObservables: true}, bundle)
	if g.NodeCount() != 0 || g.EdgeCount() != 0 {
		t.Errorf("graph = %d nodes / %d edges, want empty", g.NodeCount(), g.EdgeCount())
	}
	if len(diags) != 0 {
		t.Errorf("suppression is silent, got diagnostics: %v", diags)
	}
}

func TestMalformedRecordsDroppedWithDiagnostics(t *testing.T) {
	bundle := []stix.RawRecord{
		{"id": "threat-actor--1", "name": "no type"},
		{"type": "threat-actor", "name": "no id"},
		{"type": "malware", "id": "malware--ok"},
	}

	g, diags := convertOne(t, NewConverterParams{IncludeObservables: true}, bundle)
	if g.NodeCount() != 1 {
		t.Errorf("NodeCount() = %d, want only the valid record", g.NodeCount())
	}
	if len(diags) != 2 {
		t.Fatalf("len(diags) = %d, want 2", len(diags))
	}
	if diags[0].Reason != stix.ReasonMissingType || diags[1].Reason != stix.ReasonMissingID {
		t.Errorf("diags = %v", diags)
	}
}

func TestObservableToggle(t *testing.T) {
	bundle := []stix.RawRecord{
		{"type": "threat-actor", "id": "threat-actor--1", "name": "Evil Corp"},
		{"type": "ipv4-addr", "id": "ipv4-addr--1", "value": "198.51.100.3"},
		{
			"type": "observed-data",
			"id":   "observed-data--1",
			"objects": map[string]any{
				"0": map[string]any{"type": "domain-name", "value": "bad.example"},
			},
		},
	}

	included, _ := convertOne(t, NewConverterParams{IncludeObservables: true}, bundle)
	excluded, _ := convertOne(t, NewConverterParams{IncludeObservables: false}, bundle)

	if !included.HasNode("observed-data--1--embedded-0") {
		t.Error("embedded observable should be promoted when inclusion is on")
	}
	if !included.HasNode("ipv4-addr--1") {
		t.Error("standalone observable should be a node when inclusion is on")
	}

	if excluded.HasNode("observed-data--1--embedded-0") {
		t.Error("embedded observable must not appear when inclusion is off")
	}
	if excluded.HasNode("ipv4-addr--1") {
		t.Error("standalone observable must be dropped when inclusion is off")
	}
	if !excluded.HasNode("observed-data--1") {
		t.Error("the observed-data record itself is a domain object and stays")
	}
	if excluded.NodeCount() >= included.NodeCount() {
		t.Errorf("excluded nodes = %d, included = %d; toggle must strictly reduce",
			excluded.NodeCount(), included.NodeCount())
	}
}

func TestCrossBundleMergeLastWriteWins(t *testing.T) {
	bundleA := []stix.RawRecord{
		{"type": "threat-actor", "id": "threat-actor--1", "name": "From A", "aliases": []any{"Alpha"}},
	}
	bundleB := []stix.RawRecord{
		{"type": "threat-actor", "id": "threat-actor--1", "name": "From B"},
	}

	ab, _ := convertOne(t, NewConverterParams{IncludeObservables: true}, bundleA, bundleB)
	ba, _ := convertOne(t, NewConverterParams{IncludeObservables: true}, bundleB, bundleA)

	// Merge order is not commutative: the later bundle's record replaces the
	// earlier one's wholesale. Swapping input order swaps the survivor.
	if ab.Node("threat-actor--1").Properties["name"] != "From B" {
		t.Error("A then B: B must win")
	}
	if _, ok := ab.Node("threat-actor--1").Properties["aliases"]; ok {
		t.Error("A then B: A's fields must not survive the replacement")
	}
	if ba.Node("threat-actor--1").Properties["name"] != "From A" {
		t.Error("B then A: A must win")
	}
	if _, ok := ba.Node("threat-actor--1").Properties["aliases"]; !ok {
		t.Error("B then A: A's whole record should be the survivor")
	}
}

func TestCrossBundleEdgesNeverDeduplicated(t *testing.T) {
	rel := stix.RawRecord{
		"type": "relationship", "id": "relationship--1",
		"relationship_type": "uses",
		"source_ref":        "threat-actor--a",
		"target_ref":        "malware--b",
	}

	multi, _ := convertOne(t, NewConverterParams{EdgeMode: MultiEdge, IncludeObservables: true},
		[]stix.RawRecord{rel}, []stix.RawRecord{rel})
	if multi.EdgeCount() != 2 {
		t.Errorf("MultiEdge: EdgeCount() = %d, want 2 parallel edges", multi.EdgeCount())
	}

	single, _ := convertOne(t, NewConverterParams{EdgeMode: SingleEdge, IncludeObservables: true},
		[]stix.RawRecord{rel}, []stix.RawRecord{rel})
	if single.EdgeCount() != 1 {
		t.Errorf("SingleEdge: EdgeCount() = %d, want 1 collapsed edge", single.EdgeCount())
	}
}

func TestSingleEdgeCollapseTakesLaterLabel(t *testing.T) {
	bundle := []stix.RawRecord{
		{
			"type": "relationship", "id": "relationship--1",
			"relationship_type": "uses",
			"source_ref":        "threat-actor--a",
			"target_ref":        "malware--b",
		},
		{
			"type": "relationship", "id": "relationship--2",
			"relationship_type": "authored",
			"source_ref":        "threat-actor--a",
			"target_ref":        "malware--b",
		},
	}

	g, _ := convertOne(t, NewConverterParams{EdgeMode: SingleEdge, IncludeObservables: true}, bundle)
	if g.EdgeCount() != 1 {
		t.Fatalf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
	edge := g.EdgeBetween("threat-actor--a", "malware--b")
	if edge.Label != "authored" {
		t.Errorf("label = %q, want the later record's relationship_type", edge.Label)
	}
	if edge.Attributes["id"] != "relationship--2" {
		t.Error("attributes must be the later record's, replaced wholesale")
	}
}

func TestConvertIsDeterministic(t *testing.T) {
	bundle := []stix.RawRecord{
		{"type": "threat-actor", "id": "threat-actor--1", "name": "Evil Corp"},
		{"type": "malware", "id": "malware--1", "name": "EvilLoader"},
		{
			"type": "relationship", "id": "relationship--1",
			"relationship_type": "uses",
			"source_ref":        "threat-actor--1",
			"target_ref":        "malware--1",
		},
		{
			"type": "sighting", "id": "sighting--1",
			"sighting_of_ref": "threat-actor--1",
		},
	}

	params := NewConverterParams{EdgeMode: MultiEdge, IncludeObservables: true}
	first, _ := convertOne(t, params, bundle)
	second, _ := convertOne(t, params, bundle)

	firstNodes := first.Nodes()
	secondNodes := second.Nodes()
	if len(firstNodes) != len(secondNodes) {
		t.Fatalf("node counts differ: %d vs %d", len(firstNodes), len(secondNodes))
	}
	for i := range firstNodes {
		if firstNodes[i].ID != secondNodes[i].ID {
			t.Errorf("node order differs at %d: %q vs %q", i, firstNodes[i].ID, secondNodes[i].ID)
		}
		if !reflect.DeepEqual(firstNodes[i].Properties, secondNodes[i].Properties) {
			t.Errorf("node %q properties differ", firstNodes[i].ID)
		}
	}

	firstEdges := first.Edges()
	secondEdges := second.Edges()
	if len(firstEdges) != len(secondEdges) {
		t.Fatalf("edge counts differ: %d vs %d", len(firstEdges), len(secondEdges))
	}
	for i := range firstEdges {
		if !reflect.DeepEqual(firstEdges[i], secondEdges[i]) {
			t.Errorf("edge %d differs: %+v vs %+v", i, firstEdges[i], secondEdges[i])
		}
	}
}

func TestOrderedFoldUnderParallelism(t *testing.T) {
	// Many bundles all rewriting the same node: whatever the scheduling,
	// the fold applies them in input order, so the last bundle wins.
	var bundles [][]stix.RawRecord
	for i := 0; i < 16; i++ {
		bundles = append(bundles, []stix.RawRecord{
			{"type": "campaign", "id": "campaign--1", "revision": i},
		})
	}

	for run := 0; run < 5; run++ {
		g, _ := convertOne(t, NewConverterParams{IncludeObservables: true, ParallelBundles: 8}, bundles...)
		if got := g.Node("campaign--1").Properties["revision"]; got != 15 {
			t.Fatalf("run %d: revision = %v, want 15 (last bundle wins)", run, got)
		}
	}
}

// A relationship whose own id collides with an entity id is carried without
// a warning: the relationship's id only ever lives on its edge. The source
// behavior leaves this case unspecified, so this pins the current choice.
func TestRelationshipIDCollidingWithEntityID(t *testing.T) {
	bundle := []stix.RawRecord{
		{"type": "campaign", "id": "campaign--1", "name": "Dust Storm"},
		{
			"type": "relationship", "id": "campaign--1",
			"relationship_type": "uses",
			"source_ref":        "threat-actor--a",
			"target_ref":        "malware--b",
		},
	}

	g, diags := convertOne(t, NewConverterParams{IncludeObservables: true}, bundle)
	if len(diags) != 0 {
		t.Errorf("no diagnostic expected, got %v", diags)
	}
	if g.Node("campaign--1").Properties["name"] != "Dust Storm" {
		t.Error("entity node must be untouched by the colliding relationship id")
	}
	edge := g.EdgeBetween("threat-actor--a", "malware--b")
	if edge == nil || edge.Attributes["id"] != "campaign--1" {
		t.Error("relationship id stays an edge attribute even when colliding")
	}
}

func TestConvertCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bundles := [][]stix.RawRecord{{{"type": "malware", "id": "malware--1"}}}
	_, _, err := NewConverter(NewConverterParams{}).Convert(ctx, bundles)
	if err == nil {
		t.Error("cancelled context should fail the conversion")
	}
}
