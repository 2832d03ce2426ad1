// Package matcher implements the compatibility-matching core of the
// inference engine: deciding whether the values a variable may hold satisfy
// a formal type, and computing the type-parameter substitutions a successful
// match implies.
//
// Matching is a pure decision procedure over the typegraph substrate and the
// abstract value variants. It never mutates pre-existing graph state; the
// only allocations are fresh Variables wrapping witnessed instantiation
// values. Ordinary incompatibilities are returned as data (Mismatch);
// contract violations by the host (an unrecognized variant, a dangling
// binding) are returned as errors and must abort the analysis pass.
package matcher

import (
	"errors"
	"fmt"

	"github.com/typeflow-dev/typeflow/abstract"
	"github.com/typeflow-dev/typeflow/typegraph"
)

// ErrInternalInconsistency marks fatal contract violations. It is never
// returned for an ordinary type mismatch.
var ErrInternalInconsistency = errors.New("internal inconsistency")

// AbstractMatcher matches variables and bindings against formal types. One
// matcher serves one Program arena; it is not safe for concurrent use.
type AbstractMatcher struct {
	program *typegraph.Program
	opts    Options
	logger  Logger
}

// matchKey identifies one (source value, target type) pair on the current
// recursion path. Metaclasses can be, directly or transitively, instances of
// themselves; a pair already on the path is pruned instead of recursed into,
// which is what guarantees termination.
type matchKey struct {
	source abstract.Value
	target abstract.Value
}

// matchState carries the per-invocation cycle guard, depth counter, and
// collected warnings through the recursion.
type matchState struct {
	visited  map[matchKey]bool
	depth    int
	warnings []string
}

func (m *AbstractMatcher) warnf(st *matchState, format string, args ...any) {
	m.logger.Warnf(format, args...)
	if m.opts.EnableWarnings {
		st.warnings = append(st.warnings, fmt.Sprintf(format, args...))
	}
}

// matchVar matches every binding of v that is visible at node under view.
// Matching is conjunctive over the visible bindings: soundness requires that
// all reachable source values satisfy the target. Substitutions thread
// through the bindings, so a parameter accumulates every value unified
// against it within one pass.
func (m *AbstractMatcher) matchVar(st *matchState, v *typegraph.Variable, target abstract.Value, subst Substitutions, node *typegraph.CFGNode, view typegraph.View) (Substitutions, *Mismatch, error) {
	bindings := v.VisibleBindings(node, view)
	if len(bindings) == 0 {
		// No value can reach this point, so any constraint is vacuously
		// satisfied. A bare type parameter still gets registered, with an
		// empty variable recording that it was considered but never
		// witnessed.
		if tp, ok := target.(*abstract.TypeParameter); ok {
			fresh := m.program.NewVariable(tp.Name, nil, nil)
			return MergeSubstitutions(node, subst, Substitutions{tp.Name: fresh}), nil, nil
		}
		return subst, nil, nil
	}

	cur := subst
	for _, b := range bindings {
		next, mis, err := m.matchValue(st, b, target, cur, node, view)
		if err != nil {
			return nil, nil, err
		}
		if mis != nil {
			return nil, mis, nil
		}
		cur = next
	}
	return cur, nil, nil
}

// matchValue matches a single binding against the target after validating
// the binding's integrity.
func (m *AbstractMatcher) matchValue(st *matchState, b *typegraph.Binding, target abstract.Value, subst Substitutions, node *typegraph.CFGNode, view typegraph.View) (Substitutions, *Mismatch, error) {
	if b == nil {
		return nil, nil, fmt.Errorf("%w: nil binding", ErrInternalInconsistency)
	}
	if b.Variable == nil {
		return nil, nil, fmt.Errorf("%w: binding for %v has no owning variable", ErrInternalInconsistency, b.Data)
	}
	data, ok := b.Data.(abstract.Value)
	if !ok {
		return nil, nil, fmt.Errorf("%w: binding carries %T, not an abstract value", ErrInternalInconsistency, b.Data)
	}
	return m.matchData(st, data, target, subst, node, view)
}

// matchData is the recursive core, dispatching on the target variant.
func (m *AbstractMatcher) matchData(st *matchState, source, target abstract.Value, subst Substitutions, node *typegraph.CFGNode, view typegraph.View) (Substitutions, *Mismatch, error) {
	if st.depth >= m.opts.MaxDepth {
		return nil, nil, fmt.Errorf("%w: recursion depth %d exhausted matching %s against %s",
			ErrInternalInconsistency, m.opts.MaxDepth, valueSummary(source), valueSummary(target))
	}
	key := matchKey{source: source, target: target}
	if st.visited[key] {
		// Already on the current path: a cyclic metaclass reference.
		// Revisiting the pair cannot produce new evidence, so the branch is
		// pruned; an enclosing disjunction may still succeed elsewhere.
		return nil, &Mismatch{Value: source, Target: target, Reason: "cyclic value structure"}, nil
	}
	st.visited[key] = true
	st.depth++
	defer func() {
		delete(st.visited, key)
		st.depth--
	}()

	switch t := target.(type) {
	case *abstract.TypeParameter:
		// The sole mechanism by which generics acquire concrete type
		// arguments: the source value becomes the witness for t.
		return m.bindParameter(subst, t.Name, source, node), nil, nil

	case *abstract.Nothing:
		switch source.(type) {
		case *abstract.Empty, *abstract.Unsolvable, *abstract.Nothing:
			return subst, nil, nil
		}
		return nil, &Mismatch{Value: source, Target: target, Reason: "no concrete value satisfies the bottom type"}, nil

	case *abstract.Unsolvable, *abstract.Empty:
		// Top, and "nothing observed": both accept anything.
		return subst, nil, nil

	case *abstract.Union:
		// Disjunctive over the target's options. Options are tried in
		// stored order; only the succeeding option's substitutions are
		// returned.
		for _, opt := range t.Options {
			next, mis, err := m.matchData(st, source, opt, subst, node, view)
			if err != nil {
				return nil, nil, err
			}
			if mis == nil {
				return next, nil, nil
			}
		}
		return nil, &Mismatch{Value: source, Target: target, Reason: "no option of the union matched"}, nil

	case *abstract.Class, *abstract.ParameterizedClass:
		return m.matchAgainstClass(st, source, target, subst, node, view)

	default:
		return nil, nil, fmt.Errorf("%w: unrecognized target variant %T", ErrInternalInconsistency, target)
	}
}

// matchAgainstClass matches a source value against a concrete Class or
// ParameterizedClass target by dispatching on the source variant.
func (m *AbstractMatcher) matchAgainstClass(st *matchState, source, target abstract.Value, subst Substitutions, node *typegraph.CFGNode, view typegraph.View) (Substitutions, *Mismatch, error) {
	switch s := source.(type) {
	case *abstract.Empty, *abstract.Unsolvable:
		return subst, nil, nil

	case *abstract.Union:
		// Conjunctive over the source's options: every value the union may
		// stand for must satisfy the target.
		cur := subst
		for _, opt := range s.Options {
			next, mis, err := m.matchData(st, opt, target, cur, node, view)
			if err != nil {
				return nil, nil, err
			}
			if mis != nil {
				return nil, mis, nil
			}
			cur = next
		}
		return cur, nil, nil

	case *abstract.Class:
		return m.matchClassInstance(st, s, target, subst, node, view)

	case *abstract.ParameterizedClass:
		if s.Base == nil {
			return nil, nil, fmt.Errorf("%w: parameterized class without a base", ErrInternalInconsistency)
		}
		// A parameterized class object is an instance of whatever its base
		// is an instance of.
		return m.matchClassInstance(st, s.Base, target, subst, node, view)

	case *abstract.TypeParameter:
		// An unsolved parameter flowing in as a value carries no evidence
		// that it satisfies a concrete class constraint.
		return nil, &Mismatch{Value: source, Target: target, Reason: "unsolved type parameter as value"}, nil

	case *abstract.Nothing:
		return nil, &Mismatch{Value: source, Target: target, Reason: "bottom has no instances"}, nil

	default:
		return nil, nil, fmt.Errorf("%w: unrecognized source variant %T", ErrInternalInconsistency, source)
	}
}

// matchClassInstance decides whether the class object src counts as an
// instance of target (a Class or ParameterizedClass).
func (m *AbstractMatcher) matchClassInstance(st *matchState, src *abstract.Class, target abstract.Value, subst Substitutions, node *typegraph.CFGNode, view typegraph.View) (Substitutions, *Mismatch, error) {
	targetClass, targetParam := splitClassTarget(target)
	if targetClass == nil {
		return nil, nil, fmt.Errorf("%w: class target without a base class", ErrInternalInconsistency)
	}

	// Every class object is an instance of the metaclass root.
	if targetParam == nil && targetClass.IsMetaclassRoot() {
		return subst, nil, nil
	}

	// The root parameterized by a single bare parameter accepts any class
	// and witnesses the parameter with the class itself. This generalizes
	// "a class is an instance of its own type" without per-class cases.
	if targetParam != nil {
		if tp, ok := targetParam.IsMetaclassRootInstance(); ok {
			return m.bindParameter(subst, tp.Name, src, node), nil, nil
		}
	}

	// Otherwise the verdict comes from the source's metaclass variable.
	// The set may be statically ambiguous (several candidates); matching is
	// disjunctive, sound-for-one-possibility: any candidate that equals,
	// subclasses, or recursively matches the target decides the query.
	if src.Cls == nil {
		return nil, &Mismatch{Value: src, Target: target, Reason: "class has no metaclass beyond the root"}, nil
	}
	candidates := src.Cls.Bindings()
	ambiguous := len(candidates) > 1
	for _, cb := range candidates {
		mc, ok := cb.Data.(abstract.Value)
		if !ok {
			return nil, nil, fmt.Errorf("%w: metaclass binding carries %T, not an abstract value", ErrInternalInconsistency, cb.Data)
		}
		if mcClass, ok := mc.(*abstract.Class); ok && targetParam == nil {
			if classInMRO(mcClass, targetClass) {
				if ambiguous {
					m.warnf(st, "metaclass of %s is ambiguous (%s); matched %s via candidate %s",
						src.Name, variableSummary(src.Cls, 3), valueSummary(target), mcClass.Name)
				}
				return subst, nil, nil
			}
		}
		if mcClass, ok := mc.(*abstract.Class); ok && targetParam != nil {
			// Parameterized non-root target: accept on base subclassing and
			// widen over the parameters rather than reject soundly-matching
			// code we cannot check yet.
			if classInMRO(mcClass, targetClass) {
				m.warnf(st, "type parameters of %s not checked against metaclass %s", valueSummary(target), mcClass.Name)
				return subst, nil, nil
			}
		}
		// The candidate may itself match the target further up the
		// metaclass chain.
		next, mis, err := m.matchData(st, mc, target, subst, node, view)
		if err != nil {
			return nil, nil, err
		}
		if mis == nil {
			if ambiguous {
				m.warnf(st, "metaclass of %s is ambiguous (%s); matched %s via candidate %s",
					src.Name, variableSummary(src.Cls, 3), valueSummary(target), valueSummary(mc))
			}
			return next, nil, nil
		}
	}
	return nil, &Mismatch{Value: src, Target: target, Reason: "no metaclass candidate matches"}, nil
}

// splitClassTarget decomposes a class-like target into its base class and,
// when present, its parameterization.
func splitClassTarget(target abstract.Value) (*abstract.Class, *abstract.ParameterizedClass) {
	switch t := target.(type) {
	case *abstract.Class:
		return t, nil
	case *abstract.ParameterizedClass:
		return t.Base, t
	default:
		return nil, nil
	}
}

// classInMRO reports whether want appears in have's method resolution order.
func classInMRO(have, want *abstract.Class) bool {
	if want == nil {
		return false
	}
	for _, c := range have.MRO() {
		if c == want {
			return true
		}
	}
	return false
}

// bindParameter records witness as an instantiation of the named parameter
// at node, merging with any bindings the parameter has already accumulated
// in subst.
func (m *AbstractMatcher) bindParameter(subst Substitutions, name string, witness abstract.Value, node *typegraph.CFGNode) Substitutions {
	nv := m.program.NewVariable(name, nil, nil)
	if node != nil {
		nv.AddBinding(witness, node)
	} else {
		nv.AddBinding(witness)
	}
	return MergeSubstitutions(node, subst, Substitutions{name: nv})
}
