// =============================================================================
// verigraph - Main Entry Point
// =============================================================================
//
// This tool transforms elaborated hardware ASTs from "XML dumps" into a
// "navigable schematic," enabling structural review without expensive
// proprietary viewers.
//
// THE PIPELINE:
//   1. Decoder reads Verilator-style AST XML (vast)
//   2. Normalizer lowers the AST into the design IR (modules, nets, blocks)
//   3. Hierarchy resolver picks the top and builds the instance tree
//   4. Structural builder and bus aggregator shape the connectivity
//   5. Behavioral extractor lifts always blocks into labeled fragments
//   6. CUE validators enforce the fact-table and report contracts
//   7. OPA evaluates design rules against the fact tables
//   8. Emitter renders one DOT graph per hierarchy level
//
// WHEN INVESTIGATING A WRONG GRAPH:
//   Start at the beginning of the pipeline, not the end!
//   Decoder issues → Normalizer issues → Emitter issues
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/verigraph/verigraph/internal/config"
	"github.com/verigraph/verigraph/internal/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	switch cmd {
	case "init":
		runInit()
	case "-v", "--verbose":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(1)
		}
		runGraph(os.Args[2], nil, true, false)
	case "-j", "--json":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(1)
		}
		runGraph(os.Args[2], nil, false, true)
	case "-h", "--help", "help":
		printUsage()
	case "-c", "--config":
		if len(os.Args) < 4 {
			printUsage()
			os.Exit(1)
		}
		runGraphWithConfig(os.Args[2], os.Args[3])
	default:
		runGraph(cmd, nil, false, false)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: verigraph [command] [options] <path>

Commands:
  init              Create a verigraph.json configuration file
  <path>            Build graphs from AST XML files under the given path

Options:
  -v, --verbose     Enable verbose output
  -j, --json        Print the run report as JSON instead of text
  -c, --config      Specify config file: verigraph -c config.json <path>
  -h, --help        Show this help message

Configuration:
  verigraph looks for configuration in:
    1. ./verigraph.json
    2. ./.verigraph.json
    3. <path>/verigraph.json
    4. ~/.config/verigraph/config.json

  Run 'verigraph init' to create a default configuration file.`)
}

func runInit() {
	configPath := "verigraph.json"

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file %s already exists. Overwrite? [y/N]: ", configPath)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - AST XML input patterns")
	fmt.Println("  - Top module selection")
	fmt.Println("  - Output directory and graph format")
	fmt.Println("  - Design rule severities")
}

func runGraph(path string, cfg *config.Config, verbose, jsonOut bool) {
	if cfg == nil {
		// Load config from default locations
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Printf("Warning: Could not load config: %v (using defaults)\n", err)
			loaded = config.DefaultConfig()
		}
		cfg = loaded
	}

	p := pipeline.New(cfg)
	if verbose {
		p.Log = os.Stdout
	}

	result, err := p.Run(context.Background(), path, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := result.WriteFiles(cfg.Emit.OutDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing graphs: %v\n", err)
		os.Exit(1)
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Report); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to encode JSON output: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printReport(result, verbose)
}

func runGraphWithConfig(configPath, astPath string) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config %s: %v\n", configPath, err)
		os.Exit(1)
	}
	runGraph(astPath, cfg, false, false)
}

func printReport(result *pipeline.Result, verbose bool) {
	report := result.Report

	if len(report.Violations) > 0 {
		fmt.Printf("\n=== Rule Violations ===\n")
		for _, v := range report.Violations {
			icon := "ℹ"
			if v.Severity == "error" {
				icon = "✗"
			} else if v.Severity == "warning" {
				icon = "⚠"
			}
			fmt.Printf("%s [%s] %s:%d - %s\n", icon, v.Rule, v.Module, v.Line, v.Message)
		}
	}

	fmt.Printf("\n=== Rule Summary ===\n")
	fmt.Printf("  Errors:   %d\n", report.Summary.Errors)
	fmt.Printf("  Warnings: %d\n", report.Summary.Warnings)
	fmt.Printf("  Info:     %d\n", report.Summary.Info)

	fmt.Printf("\n=== Graph Summary ===\n")
	fmt.Printf("  Top:     %s\n", report.Top)
	fmt.Printf("  Inputs:  %d\n", len(report.Inputs))
	fmt.Printf("  Modules: %d\n", report.Modules)
	fmt.Printf("  Graphs:  %d\n", len(report.Files))
	for _, f := range report.Files {
		fmt.Printf("    %s\n", f)
	}

	if len(report.Diagnostics) > 0 {
		fmt.Printf("\n=== Diagnostics ===\n")
		for _, d := range report.Diagnostics {
			fmt.Printf("  [%s] %s: %s\n", d.Severity, d.Code, d.Message)
		}
	}

	if verbose && len(report.Timings) > 0 {
		fmt.Printf("\n=== Timing Summary ===\n")
		for _, t := range report.Timings {
			if t.Kind != "stage" {
				continue
			}
			fmt.Printf("  %-10s %.1fms\n", t.Phase+":", t.DurationMS)
		}
	}
}
