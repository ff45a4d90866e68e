package bundle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeBundle(t *testing.T) {
	data := []byte(`{
		"type": "bundle",
		"id": "bundle--1",
		"objects": [
			{"type": "threat-actor", "id": "threat-actor--1", "name": "Evil Corp"},
			{"type": "malware", "id": "malware--1", "malware_types": ["trojan"]}
		]
	}`)

	records, err := Decode("test.json", data)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].ID() != "threat-actor--1" || records[1].Type() != "malware" {
		t.Errorf("records = %v", records)
	}
}

func TestDecodeEmptyBundle(t *testing.T) {
	records, err := Decode("test.json", []byte(`{"type": "bundle", "id": "bundle--1"}`))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestDecodeShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "top level array", data: `[{"type": "bundle"}]`},
		{name: "top level string", data: `"bundle"`},
		{name: "objects not an array", data: `{"objects": {"0": {}}}`},
		{name: "non-object record", data: `{"objects": [{"type": "malware", "id": "malware--1"}, "oops"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode("feed.json", []byte(tt.data))
			var shapeErr *ShapeError
			if !errors.As(err, &shapeErr) {
				t.Fatalf("err = %v, want *ShapeError", err)
			}
			if shapeErr.Source != "feed.json" {
				t.Errorf("Source = %q, want the input name", shapeErr.Source)
			}
		})
	}
}

func TestDecodeRepairsDirtyJSON(t *testing.T) {
	// Trailing comma: invalid JSON, common in hand-edited feeds.
	data := []byte(`{"objects": [{"type": "malware", "id": "malware--1"},]}`)

	records, err := Decode("dirty.json", data)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(records) != 1 || records[0].ID() != "malware--1" {
		t.Errorf("records = %v", records)
	}
}

func TestFileAndDirSources(t *testing.T) {
	dir := t.TempDir()
	writeBundle := func(name, body string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	first := writeBundle("a.json", `{"objects": [{"type": "malware", "id": "malware--1"}]}`)
	writeBundle("b.json", `{"objects": [{"type": "tool", "id": "tool--1"}]}`)
	writeBundle("notes.txt", "not a bundle")

	ctx := context.Background()

	fromFile, err := FileSource{Path: first}.Bundles(ctx)
	if err != nil {
		t.Fatalf("FileSource error: %v", err)
	}
	if len(fromFile) != 1 || fromFile[0][0].ID() != "malware--1" {
		t.Errorf("FileSource bundles = %v", fromFile)
	}

	fromDir, err := DirSource{Path: dir}.Bundles(ctx)
	if err != nil {
		t.Fatalf("DirSource error: %v", err)
	}
	if len(fromDir) != 2 {
		t.Fatalf("DirSource found %d bundles, want 2 (.txt skipped)", len(fromDir))
	}
	// Lexical filename order keeps merge order stable.
	if fromDir[0][0].ID() != "malware--1" || fromDir[1][0].ID() != "tool--1" {
		t.Errorf("DirSource order = %v", fromDir)
	}
}

func TestResolveFlattensSourcesInOrder(t *testing.T) {
	ctx := context.Background()
	bundles, err := Resolve(ctx,
		JSONSource{Name: "feed", Bodies: [][]byte{[]byte(`{"objects": [{"type": "malware", "id": "malware--1"}]}`)}},
		JSONSource{Name: "feed2", Bodies: [][]byte{[]byte(`{"objects": [{"type": "tool", "id": "tool--1"}]}`)}},
	)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(bundles) != 2 || bundles[0][0].ID() != "malware--1" || bundles[1][0].ID() != "tool--1" {
		t.Errorf("bundles = %v", bundles)
	}
}
