package stix

// Category is the behavioral class a record falls into during conversion.
// The set is closed; the record type vocabulary is not. Unrecognized types
// degrade to CategoryEntity so future or custom STIX types keep converting.
type Category int

const (
	// CategoryEntity records become exactly one graph node.
	CategoryEntity Category = iota
	// CategoryRelationship records become edges only, never a node.
	CategoryRelationship
	// CategorySighting records become one node plus derived edges.
	CategorySighting
	// CategorySuppressed records are dropped entirely.
	CategorySuppressed
	// CategoryMalformed records are missing "type" or "id" and are dropped
	// with a diagnostic.
	CategoryMalformed
)

func (c Category) String() string {
	switch c {
	case CategoryEntity:
		return "entity"
	case CategoryRelationship:
		return "relationship"
	case CategorySighting:
		return "sighting"
	case CategorySuppressed:
		return "suppressed"
	case CategoryMalformed:
		return "malformed"
	}
	return "unknown"
}

// suppressedTypes are dropped without a node or an edge.
var suppressedTypes = map[string]struct{}{
	"marking-definition": {},
	"language-content":   {},
}

// observableTypes are the STIX cyber-observable top-level types (SCOs).
// When observable inclusion is disabled these records are dropped uniformly,
// whichever wire-format generation encoded them.
var observableTypes = map[string]struct{}{
	"artifact":             {},
	"autonomous-system":    {},
	"directory":            {},
	"domain-name":          {},
	"email-addr":           {},
	"email-message":        {},
	"file":                 {},
	"ipv4-addr":            {},
	"ipv6-addr":            {},
	"mac-addr":             {},
	"mutex":                {},
	"network-traffic":      {},
	"process":              {},
	"software":             {},
	"url":                  {},
	"user-account":         {},
	"windows-registry-key": {},
	"x509-certificate":     {},
}

// IsObservableType reports whether the type tag names a standalone
// cyber-observable object.
func IsObservableType(recordType string) bool {
	_, ok := observableTypes[recordType]
	return ok
}

// ClassifyRecord determines the category of a raw record. It is total:
// every record gets a category, and only CategoryMalformed carries a
// diagnostic naming the missing field.
//
// The decision order matters: the malformed check precedes suppression so a
// record is never half-handled, and the relationship/sighting checks precede
// the generic entity fallback.
func ClassifyRecord(raw RawRecord) (Category, *Diagnostic) {
	recordType := raw.Type()
	recordID := raw.ID()

	if recordType == "" {
		return CategoryMalformed, &Diagnostic{
			Reason:     ReasonMissingType,
			RecordID:   recordID,
			RecordType: recordType,
			Message:    "record has no 'type' field",
		}
	}
	if recordID == "" {
		return CategoryMalformed, &Diagnostic{
			Reason:     ReasonMissingID,
			RecordID:   recordID,
			RecordType: recordType,
			Message:    "record has no 'id' field",
		}
	}

	if _, ok := suppressedTypes[recordType]; ok {
		return CategorySuppressed, nil
	}

	switch recordType {
	case "relationship":
		return CategoryRelationship, nil
	case "sighting":
		return CategorySighting, nil
	}

	return CategoryEntity, nil
}
