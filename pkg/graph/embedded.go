package graph

import (
	"sort"

	"stixgraph/pkg/stix"
)

// embeddedIDSeparator joins a parent observed-data id with the local key of
// an embedded observable. The parent id is globally unique and local keys
// are unique within one parent, so the synthesized id is unique in the
// bundle.
const embeddedIDSeparator = "--embedded-"

// extractEmbedded promotes the observables nested inside a STIX 2.0
// observed-data record to standalone nodes. The legacy encoding stores them
// in an `objects` mapping keyed by short local strings; the newer encoding
// references standalone records instead and never populates that field, so
// this is a no-op for it.
//
// Keys are processed in sorted order so the synthesized node sequence is
// deterministic.
func extractEmbedded(raw stix.RawRecord) []Node {
	if raw.Type() != "observed-data" {
		return nil
	}
	embedded := raw.ObjectField("objects")
	if len(embedded) == 0 {
		return nil
	}

	parentID := raw.ID()
	keys := make([]string, 0, len(embedded))
	for key := range embedded {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var nodes []Node
	for _, key := range keys {
		record, ok := embedded[key].(map[string]any)
		if !ok {
			continue
		}
		inner := stix.RawRecord(record)
		if inner.Type() == "" {
			continue
		}

		props := inner.Properties()
		syntheticID := parentID + embeddedIDSeparator + key
		props["id"] = syntheticID

		nodes = append(nodes, Node{
			ID:         syntheticID,
			Kind:       inner.Type(),
			Properties: props,
		})
	}
	return nodes
}
