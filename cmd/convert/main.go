package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"stixgraph/internal/util"
	"stixgraph/pkg/bundle"
	"stixgraph/pkg/graph"
	"stixgraph/pkg/logger"
	"stixgraph/pkg/logger/console"
	"stixgraph/pkg/stix"
)

// convert merges local bundle files into one graph and writes it as JSON to
// stdout. Useful for feeds that never go through the service.
func main() {
	edgeMode := flag.String("edge-mode", "multi", "edge topology: multi or single")
	noObservables := flag.Bool("no-observables", false, "drop cyber-observable records")
	flag.Parse()

	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	if flag.NArg() == 0 {
		logger.Fatal("No bundle files or directories given")
	}

	sources := make([]bundle.Source, 0, flag.NArg())
	for _, arg := range flag.Args() {
		info, err := os.Stat(arg)
		if err != nil {
			logger.Fatal("Cannot read input", "path", arg, "err", err)
		}
		if info.IsDir() {
			sources = append(sources, bundle.DirSource{Path: arg})
		} else {
			sources = append(sources, bundle.FileSource{Path: arg})
		}
	}

	ctx := context.Background()
	bundles, err := bundle.Resolve(ctx, sources...)
	if err != nil {
		logger.Fatal("Failed to decode bundles", "err", err)
	}

	converter := graph.NewConverter(graph.NewConverterParams{
		EdgeMode:           graph.ParseEdgeMode(*edgeMode),
		IncludeObservables: !*noObservables,
	})
	g, diags, err := converter.Convert(ctx, bundles)
	if err != nil {
		logger.Fatal("Conversion failed", "err", err)
	}

	for _, diag := range diags {
		logger.Warn("Diagnostic", "reason", diag.Reason, "record", diag.RecordID, "msg", diag.Message)
	}

	type output struct {
		EdgeMode string            `json:"edge_mode"`
		Nodes    []*graph.Node     `json:"nodes"`
		Edges    []*graph.Edge     `json:"edges"`
		Diags    []stix.Diagnostic `json:"diagnostics,omitempty"`
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output{
		EdgeMode: g.Mode().String(),
		Nodes:    g.Nodes(),
		Edges:    g.Edges(),
		Diags:    diags,
	}); err != nil {
		logger.Fatal("Failed to write graph", "err", err)
	}
}
