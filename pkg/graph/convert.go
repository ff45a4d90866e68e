package graph

import (
	"context"

	"golang.org/x/sync/errgroup"

	"stixgraph/pkg/logger"
	"stixgraph/pkg/stix"
)

// Converter turns decoded STIX bundles into one populated Graph.
//
// A Converter should be created using NewConverter and is safe to reuse
// across conversions; every Convert call builds a fresh graph.
type Converter struct {
	mode               EdgeMode
	includeObservables bool
	parallelBundles    int
}

// NewConverterParams defines the configuration for creating a Converter.
//
// EdgeMode selects between parallel-edge and collapse-on-conflict topology.
// IncludeObservables controls whether cyber-observable records (standalone
// or embedded) become nodes. ParallelBundles controls how many bundles are
// classified and synthesized concurrently.
type NewConverterParams struct {
	EdgeMode           EdgeMode
	IncludeObservables bool
	ParallelBundles    int
}

// NewConverter creates a Converter configured with the provided parameters.
func NewConverter(params NewConverterParams) *Converter {
	parallel := params.ParallelBundles
	if parallel <= 0 {
		parallel = 4
	}
	return &Converter{
		mode:               params.EdgeMode,
		includeObservables: params.IncludeObservables,
		parallelBundles:    parallel,
	}
}

// bundleResult holds the per-bundle partial output of the map phase. Node
// upserts and edge inserts keep their record order so last-write-wins stays
// well defined within the bundle.
type bundleResult struct {
	nodes       []Node
	edges       []Edge
	diagnostics []stix.Diagnostic
}

// Convert folds every bundle into one graph. Bundles are processed
// concurrently, but partial results are applied to the graph strictly in
// input order, so node collisions and SingleEdge collapses always resolve
// to the later bundle regardless of scheduling.
//
// Per-record anomalies never fail the call; they surface in the returned
// diagnostics. The only error path is context cancellation, in which case
// no partial graph is returned.
func (c *Converter) Convert(ctx context.Context, bundles [][]stix.RawRecord) (*Graph, []stix.Diagnostic, error) {
	results := make([]bundleResult, len(bundles))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.parallelBundles)

	for i, records := range bundles {
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				results[i] = c.convertBundle(records)
				return nil
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	g := NewGraph(c.mode)
	var diagnostics []stix.Diagnostic
	for _, result := range results {
		for _, node := range result.nodes {
			g.UpsertNode(node.ID, node.Kind, node.Properties)
		}
		for _, edge := range result.edges {
			g.InsertEdge(edge)
		}
		diagnostics = append(diagnostics, result.diagnostics...)
	}

	logger.Debug(
		"[Convert] Graph assembled",
		"bundles", len(bundles),
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"diagnostics", len(diagnostics),
	)

	return g, diagnostics, nil
}

func (c *Converter) convertBundle(records []stix.RawRecord) bundleResult {
	var result bundleResult

	for _, raw := range records {
		category, diag := stix.ClassifyRecord(raw)

		switch category {
		case stix.CategoryMalformed:
			logger.Warn("[Convert] Dropping malformed record", "reason", diag.Reason, "type", raw.Type(), "id", raw.ID())
			result.diagnostics = append(result.diagnostics, *diag)

		case stix.CategorySuppressed:
			continue

		case stix.CategoryRelationship:
			edge, diag := relationshipEdge(raw)
			if diag != nil {
				logger.Warn("[Convert] Dropping relationship without endpoints", "id", raw.ID())
				result.diagnostics = append(result.diagnostics, *diag)
				continue
			}
			result.edges = append(result.edges, edge)

		case stix.CategorySighting:
			result.nodes = append(result.nodes, Node{
				ID:         raw.ID(),
				Kind:       raw.Type(),
				Properties: raw.Properties(),
			})
			result.edges = append(result.edges, sightingEdges(raw)...)

		case stix.CategoryEntity:
			if !c.includeObservables && stix.IsObservableType(raw.Type()) {
				continue
			}
			result.nodes = append(result.nodes, Node{
				ID:         raw.ID(),
				Kind:       raw.Type(),
				Properties: raw.Properties(),
			})
			if c.includeObservables {
				result.nodes = append(result.nodes, extractEmbedded(raw)...)
			}
		}
	}

	return result
}
