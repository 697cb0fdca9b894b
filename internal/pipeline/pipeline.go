// =============================================================================
// PIPELINE ENTRY POINT
// =============================================================================
//
// One run goes through fixed stages, each timed and each appending to the
// shared diagnostics bag instead of aborting:
//
//	scan      -> find AST XML inputs
//	decode    -> parse XML into generic element trees
//	normalize -> per-module IR (ports, nets, instances, raw blocks)
//	resolve   -> instance tree from the requested top, cycles truncated
//	structural-> net endpoints and inferred directions
//	buses     -> vector edges and scalar bit grouping
//	behavior  -> control-flow fragments, SSA names, classification
//	emit      -> one DOT document per hierarchy level
//	facts     -> relational tables, schema-validated
//	rules     -> OPA design-rule checks
//
// Only malformed input or a broken contract (schema violation, unknown top)
// stops the run. Everything else degrades to a diagnostic.
// =============================================================================

package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/verigraph/verigraph/internal/behavior"
	"github.com/verigraph/verigraph/internal/bus"
	"github.com/verigraph/verigraph/internal/config"
	"github.com/verigraph/verigraph/internal/emit"
	"github.com/verigraph/verigraph/internal/facts"
	"github.com/verigraph/verigraph/internal/hierarchy"
	"github.com/verigraph/verigraph/internal/ir"
	"github.com/verigraph/verigraph/internal/normalizer"
	"github.com/verigraph/verigraph/internal/rules"
	"github.com/verigraph/verigraph/internal/structural"
	"github.com/verigraph/verigraph/internal/validator"
	"github.com/verigraph/verigraph/internal/vast"
)

// Pipeline drives one full run.
type Pipeline struct {
	Config *config.Config
	// Log receives progress text; nil disables it.
	Log io.Writer
}

// Report is the machine-readable summary of one run, validated against the
// CUE report schema before it leaves the pipeline.
type Report struct {
	Top         string                `json:"top"`
	Inputs      []string              `json:"inputs"`
	Modules     int                   `json:"modules"`
	Files       []string              `json:"files"`
	Violations  []rules.Violation     `json:"violations"`
	Summary     rules.Summary         `json:"summary"`
	Diagnostics []facts.DiagnosticRow `json:"diagnostics"`
	Timings     []TimingEvent         `json:"timings"`
}

// Result carries everything one run produced.
type Result struct {
	Design     *ir.Design
	Resolution *hierarchy.Resolution
	Tables     facts.Tables
	Rules      *rules.Result
	// Files maps output file names to DOT content.
	Files  map[string]string
	Report Report
}

// New creates a pipeline around cfg. A nil cfg is loaded from the usual
// search paths on the first Run.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{Config: cfg}
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.Log != nil {
		fmt.Fprintf(p.Log, format+"\n", args...)
	}
}

// Run executes the pipeline. inputs overrides the configured globs when
// non-empty; rootPath anchors relative patterns and the timing output.
func (p *Pipeline) Run(ctx context.Context, rootPath string, inputs []string) (*Result, error) {
	runStart := time.Now()

	cfg := p.Config
	if cfg == nil {
		loaded, err := config.Load(rootPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		p.Config = cfg
	}

	timing := newTimingRecorder(runStart, resolveTimingPath(cfg.Analysis.TimingPath, rootPath))
	if err := timing.Err(); err != nil {
		p.logf("timing output disabled: %v", err)
	}
	defer timing.Close()

	stepStart := time.Now()
	if len(inputs) == 0 {
		resolved, err := cfg.ResolveInputs(rootPath)
		if err != nil {
			return nil, fmt.Errorf("resolve inputs: %w", err)
		}
		inputs = resolved
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no AST XML inputs found under %s", rootPath)
	}
	timing.RecordStage("scan", stepStart, "")
	p.logf("Found %d AST XML files", len(inputs))

	stepStart = time.Now()
	docs := make([]*vast.Document, 0, len(inputs))
	for _, path := range inputs {
		fileStart := time.Now()
		doc, err := decodeFile(path)
		if err != nil {
			timing.RecordFile("decode", path, "error", fileStart)
			return nil, err
		}
		docs = append(docs, doc)
		timing.RecordFile("decode", path, "ok", fileStart)
	}
	timing.RecordStage("decode", stepStart, "")

	var diags ir.Diagnostics

	stepStart = time.Now()
	norm := &normalizer.Normalizer{MaxParallel: cfg.Analysis.MaxParallelModules}
	design := norm.Normalize(docs, &diags)
	timing.RecordStage("normalize", stepStart, "")
	p.logf("Normalized %d modules", len(design.Modules))

	stepStart = time.Now()
	res, err := hierarchy.Resolve(design, cfg.Top, &diags)
	if err != nil {
		return nil, fmt.Errorf("resolving hierarchy: %w", err)
	}
	timing.RecordStage("resolve", stepStart, "")

	stepStart = time.Now()
	structural.Build(design, &diags)
	timing.RecordStage("structural", stepStart, "")

	stepStart = time.Now()
	bus.Aggregate(design, &diags)
	timing.RecordStage("buses", stepStart, "")

	stepStart = time.Now()
	ext := &behavior.Extractor{MaxParallel: cfg.Analysis.MaxParallelModules}
	ext.Extract(design, &diags)
	timing.RecordStage("behavior", stepStart, "")

	stepStart = time.Now()
	em := emit.New(p.basename(cfg, res))
	if cfg.Emit.Format != "" {
		em.Format = cfg.Emit.Format
	}
	if cfg.Emit.CollapseThreshold > 0 {
		em.CollapseThreshold = cfg.Emit.CollapseThreshold
	}
	if cfg.Emit.InterClusterDataFlow != nil {
		em.InterClusterDataFlow = *cfg.Emit.InterClusterDataFlow
	}
	files, err := em.Emit(design, res)
	if err != nil {
		return nil, fmt.Errorf("emitting graphs: %w", err)
	}
	timing.RecordStage("emit", stepStart, "")
	p.logf("Emitted %d graph files", len(files))

	diags.Sort()

	stepStart = time.Now()
	tables := facts.BuildTables(design, res, &diags)
	factsValidator, err := validator.NewFactsValidator()
	if err != nil {
		return nil, fmt.Errorf("init facts validator: %w", err)
	}
	if err := factsValidator.Validate(tables); err != nil {
		return nil, fmt.Errorf("fact tables invalid: %w", err)
	}
	timing.RecordStage("facts", stepStart, "")

	stepStart = time.Now()
	var engine *rules.Engine
	if cfg.Rules.Dir != "" {
		engine, err = rules.NewFromDir(cfg.Rules.Dir)
	} else {
		engine, err = rules.New()
	}
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	ruleResult, rulesStatus, err := p.evaluateRules(ctx, engine, cfg, rootPath, tables)
	if err != nil {
		return nil, fmt.Errorf("evaluating rules: %w", err)
	}
	ruleResult = dropDisabled(ruleResult, cfg)
	timing.RecordStage("rules", stepStart, rulesStatus)

	report := Report{
		Top:         topName(cfg, res),
		Inputs:      inputs,
		Modules:     len(design.Modules),
		Files:       sortedKeys(files),
		Violations:  ruleResult.Violations,
		Summary:     ruleResult.Summary,
		Diagnostics: tables.Diagnostics,
		Timings:     timing.Events(),
	}
	reportValidator, err := validator.New()
	if err != nil {
		return nil, fmt.Errorf("init report validator: %w", err)
	}
	if err := reportValidator.Validate(report); err != nil {
		return nil, fmt.Errorf("run report invalid: %w", err)
	}

	return &Result{
		Design:     design,
		Resolution: res,
		Tables:     tables,
		Rules:      ruleResult,
		Files:      files,
		Report:     report,
	}, nil
}

// evaluateRules runs the rule engine over tables. When a cache directory is
// configured and holds a snapshot from a compatible config, evaluation goes
// through the incremental path as a delta against that snapshot. Cache
// failures degrade to a full evaluation, never to an error.
func (p *Pipeline) evaluateRules(ctx context.Context, engine *rules.Engine, cfg *config.Config, rootPath string, tables facts.Tables) (*rules.Result, string, error) {
	cacheDir := resolveCacheDir(cfg, rootPath)
	if cacheDir == "" {
		result, err := engine.Evaluate(ctx, tables, cfg.SeverityOverrides())
		return result, "", err
	}

	cfgHash := configHash(cfg)
	inc := rules.NewIncremental(engine, cfg.SeverityOverrides())

	var result *rules.Result
	status := "cache_init"
	prev, ok, err := loadTablesCache(cacheDir, cfgHash)
	if err != nil {
		p.logf("Warning: %v (ignoring cache)", err)
		ok = false
	}
	if ok {
		if _, err := inc.Init(ctx, prev); err != nil {
			return nil, "", err
		}
		result, err = inc.Delta(ctx, facts.ComputeDelta(prev, tables))
		if err != nil {
			return nil, "", err
		}
		status = "cache_delta"
	} else {
		result, err = inc.Init(ctx, tables)
		if err != nil {
			return nil, "", err
		}
	}

	if err := saveTablesCache(cacheDir, cfgHash, tables); err != nil {
		p.logf("Warning: %v", err)
	}
	return result, status, nil
}

// WriteFiles writes every emitted DOT document under outDir.
func (r *Result) WriteFiles(outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	for _, name := range sortedKeys(r.Files) {
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, []byte(r.Files[name]), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

func decodeFile(path string) (*vast.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	doc, err := vast.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func (p *Pipeline) basename(cfg *config.Config, res *hierarchy.Resolution) string {
	if cfg.Emit.Basename != "" {
		return cfg.Emit.Basename
	}
	if len(res.Roots) > 0 {
		return res.Roots[0].ModuleName
	}
	return "design"
}

func topName(cfg *config.Config, res *hierarchy.Resolution) string {
	if cfg.Top != "" {
		return cfg.Top
	}
	if len(res.Roots) > 0 {
		return res.Roots[0].ModuleName
	}
	return ""
}

// dropDisabled removes violations for rules switched off in the config and
// recomputes the summary over what remains.
func dropDisabled(result *rules.Result, cfg *config.Config) *rules.Result {
	kept := make([]rules.Violation, 0, len(result.Violations))
	for _, v := range result.Violations {
		if cfg.IsRuleEnabled(v.Rule) {
			kept = append(kept, v)
		}
	}
	out := &rules.Result{Violations: kept}
	out.Summary.TotalViolations = len(kept)
	for _, v := range kept {
		switch v.Severity {
		case "error":
			out.Summary.Errors++
		case "warning":
			out.Summary.Warnings++
		case "info":
			out.Summary.Info++
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
