// Package typegraph is the graph substrate for the type-inference engine:
// an append-only arena of control-flow nodes, variables, and bindings.
//
// A Program owns every CFGNode and Variable created during one analysis
// pass. Entities are created once and never deleted; "updating" a value is
// always modeled as appending a new Binding. The control-flow graph is a
// DAG by construction (edges only connect to already-created nodes), so
// reachability is monotonic and cycle-free.
//
// No matching logic lives here; the matcher consumes this package through
// node creation, variable seeding, binding addition, and visibility queries.
package typegraph

// Program is the arena owning all CFG nodes and variables of one analysis
// pass. It is not safe for concurrent use; each analysis unit must own a
// disjoint Program.
type Program struct {
	// Entrypoint is the root CFG node, set by the host once created.
	Entrypoint *CFGNode

	nodes      []*CFGNode
	variables  []*Variable
	nextNodeID int
	nextVarID  int
}

// NewProgram creates an empty arena.
func NewProgram() *Program {
	return &Program{}
}

// CFGNodes returns every node created so far, in creation order.
func (p *Program) CFGNodes() []*CFGNode {
	return p.nodes
}

// Variables returns every variable created so far, in creation order.
func (p *Program) Variables() []*Variable {
	return p.variables
}

// NewCFGNode creates a node with the given name and optional predecessors.
// The first node created becomes the Entrypoint if none is set.
func (p *Program) NewCFGNode(name string, preds ...*CFGNode) *CFGNode {
	n := &CFGNode{
		program: p,
		ID:      p.nextNodeID,
		Name:    name,
	}
	p.nextNodeID++
	p.nodes = append(p.nodes, n)
	for _, pred := range preds {
		pred.ConnectTo(n)
	}
	if p.Entrypoint == nil {
		p.Entrypoint = n
	}
	return n
}

// NewVariable creates a variable, optionally seeded with initial values all
// originating at origin. values may be nil for an unseeded variable; origin
// may be nil, in which case the seeded bindings are visible everywhere.
func (p *Program) NewVariable(name string, values []any, origin *CFGNode) *Variable {
	v := &Variable{
		program: p,
		ID:      p.nextVarID,
		Name:    name,
	}
	p.nextVarID++
	p.variables = append(p.variables, v)
	for _, data := range values {
		if origin != nil {
			v.AddBinding(data, origin)
		} else {
			v.AddBinding(data)
		}
	}
	return v
}

// CFGNode is an immutable point in the control-flow graph. Edges are added
// with ConnectTo/ConnectNew; because an edge can only target a node that
// already exists elsewhere in the arena, well-behaved hosts produce a DAG.
type CFGNode struct {
	program *Program

	ID   int
	Name string

	incoming []*CFGNode
	outgoing []*CFGNode
}

// ConnectTo adds an edge n -> other.
func (n *CFGNode) ConnectTo(other *CFGNode) {
	n.outgoing = append(n.outgoing, other)
	other.incoming = append(other.incoming, n)
}

// ConnectNew creates a new node with the given name and an edge from n.
func (n *CFGNode) ConnectNew(name string) *CFGNode {
	return n.program.NewCFGNode(name, n)
}

// Incoming returns the predecessor nodes.
func (n *CFGNode) Incoming() []*CFGNode { return n.incoming }

// Outgoing returns the successor nodes.
func (n *CFGNode) Outgoing() []*CFGNode { return n.outgoing }

// reaches reports whether target is n or a (transitive) successor of n.
func (n *CFGNode) reaches(target *CFGNode) bool {
	if n == target {
		return true
	}
	seen := map[*CFGNode]bool{n: true}
	work := append([]*CFGNode(nil), n.outgoing...)
	for len(work) > 0 {
		next := work[len(work)-1]
		work = work[:len(work)-1]
		if next == target {
			return true
		}
		if seen[next] {
			continue
		}
		seen[next] = true
		work = append(work, next.outgoing...)
	}
	return false
}
