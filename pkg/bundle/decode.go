package bundle

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"

	"stixgraph/pkg/logger"
	"stixgraph/pkg/stix"
)

// ShapeError reports that an entire bundle could not be decoded as a record
// sequence. Unlike per-record diagnostics it is fatal: the conversion call
// fails and no partial graph is returned.
type ShapeError struct {
	// Source names the offending input (file path, S3 key, or "bundle[i]").
	Source   string
	Expected string
	Found    string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("bundle %s: expected %s, found %s", e.Source, e.Expected, e.Found)
}

// Decode parses one bundle's JSON text into its record sequence. The
// top-level value must be an object whose `objects` member is an array of
// objects; anything else is a ShapeError naming the source.
//
// Threat-intel feeds ship dirty JSON often enough that a failed parse gets
// one repair pass before giving up.
func Decode(source string, data []byte) ([]stix.RawRecord, error) {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(string(data))
		if repairErr != nil {
			return nil, &ShapeError{Source: source, Expected: "a JSON object", Found: fmt.Sprintf("unparseable JSON (%v)", err)}
		}
		if err := json.Unmarshal([]byte(repaired), &decoded); err != nil {
			return nil, &ShapeError{Source: source, Expected: "a JSON object", Found: fmt.Sprintf("unparseable JSON (%v)", err)}
		}
		logger.Warn("[Bundle] Repaired malformed JSON", "source", source)
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, &ShapeError{Source: source, Expected: "a JSON object", Found: typeName(decoded)}
	}

	return Records(source, obj)
}

// Records extracts the record sequence from an already-decoded bundle
// object. A bundle without an `objects` member is empty, not an error; an
// `objects` member that is not an array of objects is a ShapeError.
func Records(source string, obj map[string]any) ([]stix.RawRecord, error) {
	raw, ok := obj["objects"]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, &ShapeError{
			Source:   source,
			Expected: "an 'objects' array",
			Found:    typeName(raw),
		}
	}

	records := make([]stix.RawRecord, 0, len(list))
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, &ShapeError{
				Source:   source,
				Expected: "a sequence of objects",
				Found:    fmt.Sprintf("%s at index %d", typeName(entry), i),
			}
		}
		records = append(records, stix.RawRecord(m))
	}
	return records, nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case float64:
		return "a number"
	case string:
		return "a string"
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	}
	return fmt.Sprintf("%T", v)
}
