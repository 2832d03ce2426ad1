// Package abstract defines the closed set of abstract values the inference
// engine reasons about. The matcher dispatches exhaustively over these
// variants; the set is sealed so a new variant cannot silently bypass
// matching logic.
//
// Values are owned by the host's Program arena and treated as immutable by
// the matcher. A class's metaclass is a typegraph.Variable rather than a
// plain value: it may carry several candidate metaclasses at once, and any
// later reassignment is modeled as appending a binding.
package abstract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/typeflow-dev/typeflow/typegraph"
)

// BuiltinModule is the module tag carried by builtin classes, in particular
// the universal metaclass root.
const BuiltinModule = "__builtin__"

// MetaclassRootName is the name of the universal metaclass root: the class
// every class object is an instance of.
const MetaclassRootName = "type"

// Value is one abstract type or value. The variant set is closed: Class,
// ParameterizedClass, Union, TypeParameter, Empty, Nothing, Unsolvable.
type Value interface {
	fmt.Stringer

	// sealed prevents variants outside this package.
	sealed()
}

// Class is a (possibly user-defined) class object.
type Class struct {
	Name    string
	Bases   []*Class
	Members map[string]*typegraph.Variable

	// Cls is the metaclass variable. It may hold several candidate
	// metaclasses and may be nil, meaning the class is an instance of the
	// metaclass root and nothing more specific is known.
	Cls *typegraph.Variable

	// Module tags where the class was defined; builtin classes carry
	// BuiltinModule.
	Module string
}

// NewClass builds a class object. bases, members and cls may be nil.
func NewClass(name string, bases []*Class, members map[string]*typegraph.Variable, cls *typegraph.Variable) *Class {
	return &Class{
		Name:    name,
		Bases:   bases,
		Members: members,
		Cls:     cls,
	}
}

func (c *Class) sealed() {}

func (c *Class) String() string { return c.Name }

// IsMetaclassRoot reports whether c is the builtin universal metaclass root.
func (c *Class) IsMetaclassRoot() bool {
	return c.Name == MetaclassRootName && c.Module == BuiltinModule
}

// MRO returns the method resolution order of c: c itself followed by its
// bases in depth-first, left-to-right order with duplicates removed. The
// base graph is acyclic for any class the host can construct, but a seen
// set guards traversal anyway.
func (c *Class) MRO() []*Class {
	var out []*Class
	seen := make(map[*Class]bool)
	var walk func(*Class)
	walk = func(cl *Class) {
		if cl == nil || seen[cl] {
			return
		}
		seen[cl] = true
		out = append(out, cl)
		for _, b := range cl.Bases {
			walk(b)
		}
	}
	walk(c)
	return out
}

// ParameterizedClass is a generic class instantiated (or constrained) with
// type parameters, e.g. the metaclass root parameterized by a single bare
// TypeParameter.
type ParameterizedClass struct {
	Base   *Class
	Params map[string]Value

	// Module distinguishes a builtin generic root from user generics; when
	// empty the base class's module applies.
	Module string
}

// NewParameterizedClass builds a parameterized class over base.
func NewParameterizedClass(base *Class, params map[string]Value) *ParameterizedClass {
	return &ParameterizedClass{Base: base, Params: params}
}

func (p *ParameterizedClass) sealed() {}

func (p *ParameterizedClass) String() string {
	if len(p.Params) == 0 {
		return p.Base.Name + "[]"
	}
	parts := make([]string, 0, len(p.Params))
	for _, name := range sortedKeys(p.Params) {
		parts = append(parts, p.Params[name].String())
	}
	return p.Base.Name + "[" + strings.Join(parts, ", ") + "]"
}

// moduleTag returns the effective module of the parameterized class.
func (p *ParameterizedClass) moduleTag() string {
	if p.Module != "" {
		return p.Module
	}
	if p.Base != nil {
		return p.Base.Module
	}
	return ""
}

// IsMetaclassRootInstance reports whether p is the builtin metaclass root
// parameterized by exactly one bare type parameter, and returns that
// parameter.
func (p *ParameterizedClass) IsMetaclassRootInstance() (*TypeParameter, bool) {
	if p.Base == nil || p.Base.Name != MetaclassRootName || p.moduleTag() != BuiltinModule {
		return nil, false
	}
	if len(p.Params) != 1 {
		return nil, false
	}
	for _, v := range p.Params {
		if tp, ok := v.(*TypeParameter); ok {
			return tp, true
		}
	}
	return nil, false
}

// Union is a set of alternative values. Options keep their stored order but
// the set is semantically unordered.
type Union struct {
	Options []Value
}

// NewUnion builds a union over the given options.
func NewUnion(options []Value) *Union {
	return &Union{Options: options}
}

func (u *Union) sealed() {}

func (u *Union) String() string {
	parts := make([]string, len(u.Options))
	for i, o := range u.Options {
		parts[i] = o.String()
	}
	return "Union[" + strings.Join(parts, ", ") + "]"
}

// TypeParameter is a named placeholder in a generic type, solved during
// matching by binding it to a Variable of witnessed values.
type TypeParameter struct {
	Name string
}

// NewTypeParameter builds a type parameter with the given name.
func NewTypeParameter(name string) *TypeParameter {
	return &TypeParameter{Name: name}
}

func (t *TypeParameter) sealed() {}

func (t *TypeParameter) String() string { return t.Name }

// Empty means "nothing observed yet". It matches, and is matched by,
// everything: absence of evidence is not a type conflict.
type Empty struct{}

// NewEmpty builds the empty value.
func NewEmpty() *Empty { return &Empty{} }

func (e *Empty) sealed() {}

func (e *Empty) String() string { return "empty" }

// Nothing is the explicit bottom: provably no value can flow here. As a
// target it rejects every concrete value.
type Nothing struct{}

// NewNothing builds the bottom value.
func NewNothing() *Nothing { return &Nothing{} }

func (n *Nothing) sealed() {}

func (n *Nothing) String() string { return "nothing" }

// Unsolvable is the top value: it matches, and is matched by, everything.
// The engine widens to Unsolvable when it gives up on precision.
type Unsolvable struct{}

// NewUnsolvable builds the top value.
func NewUnsolvable() *Unsolvable { return &Unsolvable{} }

func (u *Unsolvable) sealed() {}

func (u *Unsolvable) String() string { return "unsolvable" }

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
