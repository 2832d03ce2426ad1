package matcher

import (
	"fmt"

	"github.com/typeflow-dev/typeflow/abstract"
	"github.com/typeflow-dev/typeflow/typegraph"
)

// New creates a matcher over the given Program arena. Fresh Variables
// allocated while witnessing type-parameter instantiations are owned by that
// arena. Options may be supplied; otherwise defaults apply.
//
// Example:
//
//	program := typegraph.NewProgram()
//	root := program.NewCFGNode("root")
//	m := matcher.New(program)
//	res, err := m.MatchVarAgainstType(v, target, nil, root, nil)
//	if err != nil {
//	    log.Fatal(err) // contract violation, not a type mismatch
//	}
//	if !res.Matched() {
//	    fmt.Println(res.Mismatch)
//	}
func New(program *typegraph.Program, opts ...Options) *AbstractMatcher {
	// Use default options if none provided
	opt := DefaultOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	logger := opt.Logger
	if logger == nil {
		logger = NewLogger(ParseLogLevel(opt.LogLevel), opt.LogTimestampFormat, nil)
	}
	return &AbstractMatcher{
		program: program,
		opts:    opt,
		logger:  logger,
	}
}

// MatchVarAgainstType matches a variable against the target type at a node.
// Matching is conjunctive over the variable's bindings visible under view; a
// variable with no visible bindings matches vacuously (registering a bare
// type-parameter target with an empty variable). subst may be nil for a
// fresh attempt; it is never mutated.
//
// The returned error is non-nil only for contract violations
// (ErrInternalInconsistency); an ordinary incompatibility is reported in the
// result's Mismatch field.
func (m *AbstractMatcher) MatchVarAgainstType(v *typegraph.Variable, target abstract.Value, subst Substitutions, node *typegraph.CFGNode, view typegraph.View) (*MatchResult, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil variable", ErrInternalInconsistency)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: nil target type", ErrInternalInconsistency)
	}
	if subst == nil {
		subst = Substitutions{}
	}
	m.logger.Debugf("match variable %s against %s subst=%s",
		variableSummary(v, 3), valueSummary(target), subst.Summary())

	st := &matchState{visited: make(map[matchKey]bool)}
	out, mis, err := m.matchVar(st, v, target, subst, node, view)
	return m.finish(st, out, mis, err)
}

// MatchValueAgainstType matches a single binding against the target type at
// a node. See MatchVarAgainstType for the result conventions.
func (m *AbstractMatcher) MatchValueAgainstType(b *typegraph.Binding, target abstract.Value, subst Substitutions, node *typegraph.CFGNode, view typegraph.View) (*MatchResult, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: nil target type", ErrInternalInconsistency)
	}
	if subst == nil {
		subst = Substitutions{}
	}
	if b != nil {
		m.logger.Debugf("match value %s against %s subst=%s",
			valueSummaryOf(b.Data), valueSummary(target), subst.Summary())
	}

	st := &matchState{visited: make(map[matchKey]bool)}
	out, mis, err := m.matchValue(st, b, target, subst, node, view)
	return m.finish(st, out, mis, err)
}

// finish folds the internal triple into the exported result shape.
func (m *AbstractMatcher) finish(st *matchState, out Substitutions, mis *Mismatch, err error) (*MatchResult, error) {
	if err != nil {
		m.logger.Errorf("match aborted: %v", err)
		return nil, err
	}
	res := &MatchResult{Warnings: st.warnings}
	if mis != nil {
		res.Mismatch = mis
		m.logger.Debugf("mismatch: %s", mis)
		return res, nil
	}
	res.Subst = out
	m.logger.Debugf("matched subst=%s", out.Summary())
	return res, nil
}

func valueSummaryOf(data any) string {
	if v, ok := data.(abstract.Value); ok {
		return valueSummary(v)
	}
	return fmt.Sprintf("%T", data)
}
