package rules

import (
	"context"
	"fmt"

	"github.com/verigraph/verigraph/internal/facts"
)

// Incremental wraps an Engine with snapshot state so callers can feed
// row-level deltas between runs instead of rebuilding the full fact set.
type Incremental struct {
	engine     *Engine
	severities map[string]string
	tables     facts.Tables
	ready      bool
}

// NewIncremental creates an incremental evaluator around engine.
func NewIncremental(engine *Engine, severities map[string]string) *Incremental {
	return &Incremental{engine: engine, severities: severities}
}

// Init loads a full snapshot and returns the current violations.
func (inc *Incremental) Init(ctx context.Context, tables facts.Tables) (*Result, error) {
	inc.tables = tables
	inc.ready = true
	return inc.engine.Evaluate(ctx, inc.tables, inc.severities)
}

// Delta applies an incremental update and returns the updated violations.
func (inc *Incremental) Delta(ctx context.Context, delta facts.Delta) (*Result, error) {
	if !inc.ready {
		return nil, fmt.Errorf("delta before init")
	}
	inc.tables = facts.ApplyDelta(inc.tables, delta)
	return inc.engine.Evaluate(ctx, inc.tables, inc.severities)
}

// Snapshot re-evaluates the current state without changes.
func (inc *Incremental) Snapshot(ctx context.Context) (*Result, error) {
	if !inc.ready {
		return nil, fmt.Errorf("snapshot before init")
	}
	return inc.engine.Evaluate(ctx, inc.tables, inc.severities)
}
