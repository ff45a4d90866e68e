package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"stixgraph/pkg/logger"
	"stixgraph/pkg/stix"
)

// Source resolves to zero or more decoded bundles. Implementations load
// from disk, object storage, or memory; the conversion core only ever sees
// the record sequences.
type Source interface {
	Bundles(ctx context.Context) ([][]stix.RawRecord, error)
}

// FileSource reads a single bundle from a JSON file on disk.
type FileSource struct {
	Path string
}

func (s FileSource) Bundles(ctx context.Context) ([][]stix.RawRecord, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle file: %w", err)
	}
	records, err := Decode(s.Path, data)
	if err != nil {
		return nil, err
	}
	return [][]stix.RawRecord{records}, nil
}

// DirSource reads every .json file in a directory, non-recursive, in
// lexical filename order so merge order is stable across runs.
type DirSource struct {
	Path string
}

func (s DirSource) Bundles(ctx context.Context) ([][]stix.RawRecord, error) {
	entries, err := os.ReadDir(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(s.Path, entry.Name()))
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		logger.Warn("[Bundle] No .json files found in directory", "dir", s.Path)
		return nil, nil
	}

	bundles := make([][]stix.RawRecord, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read bundle file: %w", err)
		}
		records, err := Decode(path, data)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, records)
	}
	return bundles, nil
}

// JSONSource holds bundle JSON texts already in memory, one per bundle.
type JSONSource struct {
	// Name labels the source in ShapeErrors; defaults to "json".
	Name   string
	Bodies [][]byte
}

func (s JSONSource) Bundles(ctx context.Context) ([][]stix.RawRecord, error) {
	name := s.Name
	if name == "" {
		name = "json"
	}
	bundles := make([][]stix.RawRecord, 0, len(s.Bodies))
	for i, body := range s.Bodies {
		records, err := Decode(fmt.Sprintf("%s[%d]", name, i), body)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, records)
	}
	return bundles, nil
}

// RecordSource wraps record sequences that were decoded elsewhere.
type RecordSource struct {
	Records [][]stix.RawRecord
}

func (s RecordSource) Bundles(ctx context.Context) ([][]stix.RawRecord, error) {
	return s.Records, nil
}

// Resolve flattens multiple sources into one ordered bundle sequence.
// Source order is merge order.
func Resolve(ctx context.Context, sources ...Source) ([][]stix.RawRecord, error) {
	var all [][]stix.RawRecord
	for _, source := range sources {
		bundles, err := source.Bundles(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, bundles...)
	}
	return all, nil
}
