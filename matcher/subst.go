package matcher

import (
	"sort"
	"strings"

	"github.com/typeflow-dev/typeflow/typegraph"
)

// MergeSubstitutions combines two substitution maps key-wise. For a key both
// maps share, the two Variables are merged into a fresh Variable holding the
// concatenation of their Bindings (never replaced): within one conjunctive
// pass a type parameter accumulates every value unified against it. Keys
// present in only one map carry over unchanged. Neither input is mutated.
func MergeSubstitutions(node *typegraph.CFGNode, a, b Substitutions) Substitutions {
	out := make(Substitutions, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, vb := range b {
		va, ok := out[k]
		if !ok {
			out[k] = vb
			continue
		}
		merged := va.AssignToNewVariable(node)
		for _, bd := range vb.Bindings() {
			merged.AddBinding(bd.Data, bd.Origins()...)
		}
		out[k] = merged
	}
	return out
}

// Summary renders the substitution map as a compact deterministic one-liner
// for logs and debug output, e.g. {T: T{C}, U: U{}}.
func (s Substitutions) Summary() string {
	if len(s) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + variableSummary(s[k], 3)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
