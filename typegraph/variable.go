package typegraph

// Variable is a named, append-only ordered sequence of Bindings. It
// represents the set of values one program slot could hold. A Variable with
// zero Bindings means "no value reachable here", which is distinct from a
// Variable bound to an Empty value.
type Variable struct {
	program *Program

	ID   int
	Name string

	bindings []*Binding
}

// Binding attaches one value (opaque to this package) to a Variable at the
// nodes where it was introduced. Bindings are immutable after creation apart
// from AddOrigin, and the Variable back-reference is exact.
type Binding struct {
	// Data is the abstract value carried by this binding. The substrate
	// treats it as opaque; the matcher knows the concrete variant set.
	Data any

	// Variable is the owning variable. Never nil for a binding produced by
	// AddBinding; the matcher treats a nil back-reference as a contract
	// violation by the host.
	Variable *Variable

	origins []*CFGNode
}

// View pins exactly one Binding per Variable for a single match invocation,
// resolving path-sensitivity without the matcher branching over every
// combination of multi-valued variables.
type View map[*Variable]*Binding

// Bindings returns the variable's bindings in insertion order.
func (v *Variable) Bindings() []*Binding {
	return v.bindings
}

// AddBinding appends a binding for data introduced at the given origins.
// With no origins the binding is considered visible at every node.
func (v *Variable) AddBinding(data any, origins ...*CFGNode) *Binding {
	b := &Binding{
		Data:     data,
		Variable: v,
		origins:  append([]*CFGNode(nil), origins...),
	}
	v.bindings = append(v.bindings, b)
	return b
}

// AddOrigin records an additional node where the binding's value was
// witnessed.
func (b *Binding) AddOrigin(node *CFGNode) {
	b.origins = append(b.origins, node)
}

// Origins returns the nodes where this binding was introduced.
func (b *Binding) Origins() []*CFGNode {
	return b.origins
}

// IsVisible reports whether the binding can reach node: true when the
// binding has no recorded origins, or when any origin is node itself or an
// ancestor of node in the CFG.
func (b *Binding) IsVisible(node *CFGNode) bool {
	if len(b.origins) == 0 || node == nil {
		return true
	}
	for _, o := range b.origins {
		if o.reaches(node) {
			return true
		}
	}
	return false
}

// VisibleBindings returns the bindings a caller must consider for this
// variable at node: the binding pinned by view if the variable is pinned
// (and visible), otherwise all bindings visible at node.
func (v *Variable) VisibleBindings(node *CFGNode, view View) []*Binding {
	if view != nil {
		if b, ok := view[v]; ok {
			if b.IsVisible(node) {
				return []*Binding{b}
			}
			return nil
		}
	}
	var out []*Binding
	for _, b := range v.bindings {
		if b.IsVisible(node) {
			out = append(out, b)
		}
	}
	return out
}

// AssignToNewVariable copies this variable's bindings into a fresh variable
// whose bindings originate at where. The data payloads are shared; only the
// binding records are new.
func (v *Variable) AssignToNewVariable(where *CFGNode) *Variable {
	nv := v.program.NewVariable(v.Name, nil, nil)
	for _, b := range v.bindings {
		if where != nil {
			nv.AddBinding(b.Data, where)
		} else {
			nv.AddBinding(b.Data)
		}
	}
	return nv
}

// Program returns the arena that owns this variable.
func (v *Variable) Program() *Program {
	return v.program
}
