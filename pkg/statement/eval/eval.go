// Package eval walks formal statement expressions against a resolution
// context and produces verdicts with supporting evidence. Only formal
// statements are evaluated; semi-formal and informal ones short-circuit to
// "not evaluated". Nothing in this package is fatal: every error condition
// is data in the per-statement result.
package eval

import (
	"fmt"
	"slices"
	"sync"

	"vantage/pkg/errors"
	"vantage/pkg/graph"
	"vantage/pkg/graph/algo"
	"vantage/pkg/refs"
	"vantage/pkg/statement"
)

// Status is the verdict of one evaluation.
type Status string

const (
	StatusSatisfied    Status = "satisfied"
	StatusViolated     Status = "violated"
	StatusNotEvaluated Status = "not_evaluated"
)

// GroupPairing records one matched group pair in a correspondence or
// refinement check.
type GroupPairing struct {
	From string `json:"from"`
	To   string `json:"to"`
}

/// Evidence carries the facts behind a verdict: the resolved sets, the
// offending members or edges, group pairings and ambiguity notes.
type Evidence struct {
	Sets           map[string][]string `json:"sets,omitempty"`
	Offenders      []string            `json:"offenders,omitempty"`
	OffendingEdges []graph.Dependency  `json:"offending_edges,omitempty"`
	Pairings       []GroupPairing      `json:"pairings,omitempty"`
	Ambiguities    []string            `json:"ambiguities,omitempty"`
	Notes          []string            `json:"notes,omitempty"`
}

func (e *Evidence) addSet(name string, set map[string]struct{}) {
	if e.Sets == nil {
		e.Sets = make(map[string][]string)
	}
	e.Sets[name] = sortedKeys(set)
}

// Result is the per-statement outcome. Severity is only meaningful on
// violations: must-statements violate at error level, should-statements at
// warning level. Error holds evaluation faults local to this statement
// (unresolvable references, non-layer-backed operands).
type Result struct {
	StatementID string             `json:"statement_id,omitempty"`
	Status      Status             `json:"status"`
	Severity    statement.Severity `json:"severity,omitempty"`
	Evidence    Evidence           `json:"evidence"`
	Error       string             `json:"error,omitempty"`
}

// =============================================================================
// Entry Points
// =============================================================================

// Evaluate runs one statement against the memo's context. Non-formal
// statements return "not evaluated" without touching the graph.
func Evaluate(memo *refs.Memo, stmt statement.Statement) Result {
	result := evaluateStatement(memo, stmt)
	result.StatementID = stmt.ID
	return result
}

// EvaluateExpr runs a bare formal expression, outside any statement record.
func EvaluateExpr(memo *refs.Memo, expr statement.Expr, mod statement.Modifier) Result {
	return evaluateExpr(memo, expr, mod)
}

// EvaluateAll evaluates a batch against one shared resolution memo,
// isolating per-item failures. Results are returned in input order.
func EvaluateAll(ctx refs.Context, stmts []statement.Statement) []Result {
	memo := refs.NewMemo(ctx)
	results := make([]Result, len(stmts))
	for i, s := range stmts {
		results[i] = Evaluate(memo, s)
	}
	return results
}

// EvaluateAllParallel fans the batch out across goroutines, one per
// statement. Each goroutine gets its own memo (memos are single-threaded);
// results are joined in input order.
func EvaluateAllParallel(ctx refs.Context, stmts []statement.Statement) []Result {
	results := make([]Result, len(stmts))
	var wg sync.WaitGroup
	for i, s := range stmts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = Evaluate(refs.NewMemo(ctx), s)
		}()
	}
	wg.Wait()
	return results
}

// =============================================================================
// Dispatch
// =============================================================================

func evaluateStatement(memo *refs.Memo, stmt statement.Statement) Result {
	if !stmt.IsFormal() {
		return Result{
			Status:   StatusNotEvaluated,
			Evidence: Evidence{Notes: []string{fmt.Sprintf("statement is %s", stmt.Classification)}},
		}
	}
	return evaluateExpr(memo, stmt.Expr, stmt.Modifier)
}

func evaluateExpr(memo *refs.Memo, expr statement.Expr, mod statement.Modifier) Result {
	var result Result
	var err error

	switch e := expr.(type) {
	case statement.Existence:
		result, err = evalExistence(memo, e)
	case statement.Containment:
		result, err = evalContainment(memo, e)
	case statement.Exclusion:
		result, err = evalExclusion(memo, e)
	case statement.Cardinality:
		result, err = evalCardinality(memo, e)
	case statement.Coverage:
		result, err = evalCoverage(memo, e)
	case statement.Correspondence:
		result, err = evalCorrespondence(memo, e)
	case statement.Refinement:
		result, err = evalRefinement(memo, e)
	default:
		err = errors.New(errors.ErrCodeUnknownStatement, "no evaluator for %T", expr)
	}

	if err != nil {
		return Result{Status: StatusNotEvaluated, Error: err.Error()}
	}
	if result.Status == StatusViolated {
		result.Severity = mod.Severity()
	}
	return result
}

// =============================================================================
// Set-Based Types
// =============================================================================

func evalExistence(memo *refs.Memo, e statement.Existence) (Result, error) {
	set, err := memo.Resolve(e.Ref)
	if err != nil {
		return Result{}, err
	}
	result := Result{Status: StatusSatisfied}
	result.Evidence.addSet(e.Ref, set)
	if len(set) == 0 {
		result.Status = StatusViolated
		result.Evidence.Notes = []string{fmt.Sprintf("%s resolves to the empty set", e.Ref)}
	}
	return result, nil
}

func evalContainment(memo *refs.Memo, e statement.Containment) (Result, error) {
	subject, err := memo.Resolve(e.Subject)
	if err != nil {
		return Result{}, err
	}
	container, err := memo.Resolve(e.Container)
	if err != nil {
		return Result{}, err
	}

	result := Result{Status: StatusSatisfied}
	result.Evidence.addSet(e.Subject, subject)
	result.Evidence.addSet(e.Container, container)

	// empty subject is vacuously contained
	for member := range subject {
		if _, ok := container[member]; !ok {
			result.Evidence.Offenders = append(result.Evidence.Offenders, member)
		}
	}
	if len(result.Evidence.Offenders) > 0 {
		slices.Sort(result.Evidence.Offenders)
		result.Status = StatusViolated
	}
	return result, nil
}

func evalCardinality(memo *refs.Memo, e statement.Cardinality) (Result, error) {
	set, err := memo.Resolve(e.Ref)
	if err != nil {
		return Result{}, err
	}
	result := Result{Status: StatusSatisfied}
	result.Evidence.addSet(e.Ref, set)
	if !e.Op.Compare(len(set), e.Value) {
		result.Status = StatusViolated
		result.Evidence.Notes = []string{fmt.Sprintf("|%s| = %d, want %s %d", e.Ref, len(set), e.Op, e.Value)}
	}
	return result, nil
}

func evalExclusion(memo *refs.Memo, e statement.Exclusion) (Result, error) {
	subject, err := memo.Resolve(e.Subject)
	if err != nil {
		return Result{}, err
	}
	forbidden, err := memo.Resolve(e.Forbidden)
	if err != nil {
		return Result{}, err
	}

	g := memo.Context().Graph
	sources := liftToComponents(g, subject)
	targets := liftToComponents(g, forbidden)

	result := Result{Status: StatusSatisfied}
	result.Evidence.addSet(e.Subject, subject)
	result.Evidence.addSet(e.Forbidden, forbidden)

	if e.Transitive {
		for _, src := range sortedKeys(sources) {
			walk, err := algo.Traverse(g, src, algo.DirectionOut, 0, nil)
			if err != nil {
				continue // endpoint-only member with no component node
			}
			for _, reached := range walk.All() {
				if _, hit := targets[reached]; hit {
					result.Evidence.OffendingEdges = append(result.Evidence.OffendingEdges,
						graph.Dependency{Source: src, Target: reached})
				}
			}
		}
	} else {
		for _, src := range sortedKeys(sources) {
			for _, dst := range g.Children(src) {
				if _, hit := targets[dst]; hit {
					result.Evidence.OffendingEdges = append(result.Evidence.OffendingEdges,
						graph.Dependency{Source: src, Target: dst})
				}
			}
		}
	}

	if len(result.Evidence.OffendingEdges) > 0 {
		result.Status = StatusViolated
	}
	return result, nil
}

// liftToComponents maps a resolved entity set to component keys, replacing
// endpoint members by their owning component.
func liftToComponents(g *graph.Graph, set map[string]struct{}) map[string]struct{} {
	lifted := make(map[string]struct{}, len(set))
	for key := range set {
		if owner := g.Owner(key); owner != "" {
			lifted[owner] = struct{}{}
			continue
		}
		if _, ok := g.Component(key); ok {
			lifted[key] = struct{}{}
		}
	}
	return lifted
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
