package graph

import (
	"fmt"

	"stixgraph/pkg/stix"
)

// Edge labels derived from the optional reference fields of a sighting.
const (
	labelSightingOf = "sighting_of"
	labelSeenBy     = "seen_by"
	labelObserved   = "observed"
)

// relationshipEdge synthesizes the single directed edge a relationship
// record describes. The relationship's own fields become edge attributes,
// minus the structural ones (type, source_ref, target_ref); its id stays an
// attribute so the edge remains traceable to the source record.
//
// A relationship missing either endpoint produces no edge and one
// diagnostic; the record never becomes a node either way.
func relationshipEdge(raw stix.RawRecord) (Edge, *stix.Diagnostic) {
	sourceRef := raw.StringField("source_ref")
	targetRef := raw.StringField("target_ref")

	if sourceRef == "" || targetRef == "" {
		missing := "source_ref"
		if sourceRef != "" {
			missing = "target_ref"
		}
		return Edge{}, &stix.Diagnostic{
			Reason:     stix.ReasonMissingEndpoint,
			RecordID:   raw.ID(),
			RecordType: raw.Type(),
			Message:    fmt.Sprintf("relationship has no %q field", missing),
		}
	}

	attrs := raw.Properties()
	delete(attrs, "type")
	delete(attrs, "source_ref")
	delete(attrs, "target_ref")

	return Edge{
		SourceID:   sourceRef,
		TargetID:   targetRef,
		Label:      raw.StringField("relationship_type"),
		Attributes: attrs,
	}, nil
}

// sightingEdges synthesizes the derived edges of a sighting record: one
// "sighting_of" edge when sighting_of_ref is present, one "seen_by" edge per
// where_sighted_refs entry, and one "observed" edge per observed_data_refs
// entry. A sighting with none of the three fields yields no edges; that is
// not an anomaly. The sighting's own node is upserted by the caller.
func sightingEdges(raw stix.RawRecord) []Edge {
	sightingID := raw.ID()
	var edges []Edge

	if ref := raw.StringField("sighting_of_ref"); ref != "" {
		edges = append(edges, derivedEdge(sightingID, ref, labelSightingOf))
	}
	for _, ref := range raw.StringListField("where_sighted_refs") {
		edges = append(edges, derivedEdge(sightingID, ref, labelSeenBy))
	}
	for _, ref := range raw.StringListField("observed_data_refs") {
		edges = append(edges, derivedEdge(sightingID, ref, labelObserved))
	}
	return edges
}

func derivedEdge(from, to, label string) Edge {
	return Edge{
		SourceID:   from,
		TargetID:   to,
		Label:      label,
		Attributes: map[string]any{"relationship_type": label},
	}
}
