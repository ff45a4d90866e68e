package stix

import "testing"

func TestClassifyRecord(t *testing.T) {
	tests := []struct {
		name       string
		record     RawRecord
		want       Category
		wantReason DiagnosticReason
	}{
		{
			name:   "domain object",
			record: RawRecord{"type": "threat-actor", "id": "threat-actor--1"},
			want:   CategoryEntity,
		},
		{
			name:   "observable object",
			record: RawRecord{"type": "ipv4-addr", "id": "ipv4-addr--1"},
			want:   CategoryEntity,
		},
		{
			name:   "unknown custom type falls back to entity",
			record: RawRecord{"type": "x-acme-widget", "id": "x-acme-widget--1"},
			want:   CategoryEntity,
		},
		{
			name:   "attack custom type",
			record: RawRecord{"type": "x-mitre-tactic", "id": "x-mitre-tactic--1"},
			want:   CategoryEntity,
		},
		{
			name:   "relationship",
			record: RawRecord{"type": "relationship", "id": "relationship--1"},
			want:   CategoryRelationship,
		},
		{
			name:   "sighting",
			record: RawRecord{"type": "sighting", "id": "sighting--1"},
			want:   CategorySighting,
		},
		{
			name:   "marking definition suppressed",
			record: RawRecord{"type": "marking-definition", "id": "marking-definition--1"},
			want:   CategorySuppressed,
		},
		{
			name:   "language content suppressed",
			record: RawRecord{"type": "language-content", "id": "language-content--1"},
			want:   CategorySuppressed,
		},
		{
			name:       "missing type",
			record:     RawRecord{"id": "threat-actor--1"},
			want:       CategoryMalformed,
			wantReason: ReasonMissingType,
		},
		{
			name:       "missing id",
			record:     RawRecord{"type": "threat-actor"},
			want:       CategoryMalformed,
			wantReason: ReasonMissingID,
		},
		{
			name:       "missing type wins over suppression",
			record:     RawRecord{"id": "marking-definition--1"},
			want:       CategoryMalformed,
			wantReason: ReasonMissingType,
		},
		{
			name:       "empty record",
			record:     RawRecord{},
			want:       CategoryMalformed,
			wantReason: ReasonMissingType,
		},
		{
			name:       "non-string type treated as missing",
			record:     RawRecord{"type": 42, "id": "x--1"},
			want:       CategoryMalformed,
			wantReason: ReasonMissingType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diag := ClassifyRecord(tt.record)
			if got != tt.want {
				t.Errorf("ClassifyRecord() = %v, want %v", got, tt.want)
			}
			if tt.want == CategoryMalformed {
				if diag == nil {
					t.Fatal("expected a diagnostic for malformed record")
				}
				if diag.Reason != tt.wantReason {
					t.Errorf("diagnostic reason = %v, want %v", diag.Reason, tt.wantReason)
				}
			} else if diag != nil {
				t.Errorf("unexpected diagnostic: %v", diag)
			}
		})
	}
}

func TestIsObservableType(t *testing.T) {
	if !IsObservableType("ipv4-addr") {
		t.Error("ipv4-addr should be an observable type")
	}
	if !IsObservableType("windows-registry-key") {
		t.Error("windows-registry-key should be an observable type")
	}
	if IsObservableType("threat-actor") {
		t.Error("threat-actor should not be an observable type")
	}
	if IsObservableType("") {
		t.Error("empty type should not be an observable type")
	}
}

func TestRecordFieldAccess(t *testing.T) {
	record := RawRecord{
		"type":               "sighting",
		"id":                 "sighting--1",
		"count":              3,
		"where_sighted_refs": []any{"identity--a", "identity--b", 7},
		"objects":            map[string]any{"0": map[string]any{"type": "file"}},
	}

	if record.Type() != "sighting" {
		t.Errorf("Type() = %q", record.Type())
	}
	if record.StringField("count") != "" {
		t.Error("non-string field should read as empty string")
	}

	refs := record.StringListField("where_sighted_refs")
	if len(refs) != 2 || refs[0] != "identity--a" || refs[1] != "identity--b" {
		t.Errorf("StringListField() = %v", refs)
	}
	if record.StringListField("missing") != nil {
		t.Error("missing list field should be nil")
	}

	if record.ObjectField("objects") == nil {
		t.Error("objects field should read as a mapping")
	}
	if record.ObjectField("count") != nil {
		t.Error("scalar field should not read as a mapping")
	}
}

func TestPropertiesCopiesLists(t *testing.T) {
	record := RawRecord{
		"type":    "threat-actor",
		"id":      "threat-actor--1",
		"aliases": []any{"BadGuys", "Villains"},
	}

	props := record.Properties()
	aliases, ok := props["aliases"].([]any)
	if !ok || len(aliases) != 2 {
		t.Fatalf("aliases not preserved as list: %v", props["aliases"])
	}

	aliases[0] = "mutated"
	if record["aliases"].([]any)[0] != "BadGuys" {
		t.Error("mutating copied properties should not touch the record")
	}
}
