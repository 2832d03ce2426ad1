// Package scenario loads YAML descriptions of small typegraphs and match
// queries. Scenarios are a debugging and regression-test vehicle: they build
// a Program with a single root node, declare classes (with bases and
// metaclass candidates), seed variables, and list the matches to run.
//
// The format is versioned; loaders accept any 1.x document.
package scenario

import (
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/typeflow-dev/typeflow/abstract"
	"github.com/typeflow-dev/typeflow/typegraph"
)

// SupportedVersions is the semver range of scenario documents this loader
// understands.
const SupportedVersions = ">= 1.0.0, < 2.0.0"

// Document is the raw YAML shape of a scenario file.
type Document struct {
	Version   string     `yaml:"version"`
	Classes   []ClassDef `yaml:"classes"`
	Variables []VarDef   `yaml:"variables"`
	Queries   []QueryDef `yaml:"queries"`
}

// ClassDef declares one class.
type ClassDef struct {
	Name   string `yaml:"name"`
	Module string `yaml:"module"`
	// Bases are names of previously or later declared classes.
	Bases []string `yaml:"bases"`
	// Metaclass lists candidate metaclasses; more than one candidate models
	// static ambiguity.
	Metaclass []string `yaml:"metaclass"`
}

// VarDef declares one seeded variable.
type VarDef struct {
	Name string `yaml:"name"`
	// Bindings are value expressions, e.g. "C", "union(A, B)", "empty".
	Bindings []string `yaml:"bindings"`
}

// QueryDef declares one match to run.
type QueryDef struct {
	Name     string `yaml:"name"`
	Variable string `yaml:"variable"`
	// Target is a type expression, e.g. "M", "type[$T]", "union(A, nothing)".
	Target string `yaml:"target"`
	// Want is "match" or "mismatch"; empty means unchecked.
	Want string `yaml:"want"`
}

// Scenario is a loaded, runnable scenario.
type Scenario struct {
	Program   *typegraph.Program
	Root      *typegraph.CFGNode
	Classes   map[string]*abstract.Class
	Variables map[string]*typegraph.Variable
	Queries   []Query
}

// Query pairs a variable with the target to match it against.
type Query struct {
	Name     string
	Variable *typegraph.Variable
	Target   abstract.Value
	// Want is "" (unchecked), "match", or "mismatch".
	Want string
}

// LoadFile reads and builds a scenario from a YAML file.
func LoadFile(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Load(raw)
}

// Load builds a scenario from YAML bytes.
func Load(raw []byte) (*Scenario, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	if err := checkVersion(doc.Version); err != nil {
		return nil, err
	}
	return build(&doc)
}

func checkVersion(v string) error {
	if v == "" {
		return fmt.Errorf("scenario is missing a version")
	}
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("invalid scenario version %q: %w", v, err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return fmt.Errorf("invalid version constraint: %w", err)
	}
	if !constraint.Check(ver) {
		return fmt.Errorf("scenario version %s outside supported range %s", ver, SupportedVersions)
	}
	return nil
}

func build(doc *Document) (*Scenario, error) {
	s := &Scenario{
		Program:   typegraph.NewProgram(),
		Classes:   make(map[string]*abstract.Class),
		Variables: make(map[string]*typegraph.Variable),
	}
	s.Root = s.Program.NewCFGNode("root")

	// The builtin metaclass root is always available.
	root := abstract.NewClass(abstract.MetaclassRootName, nil, nil, nil)
	root.Module = abstract.BuiltinModule
	s.Classes[abstract.MetaclassRootName] = root

	// First pass creates the class objects so bases and metaclasses may
	// reference classes declared later in the document.
	for _, def := range doc.Classes {
		if def.Name == "" {
			return nil, fmt.Errorf("class with empty name")
		}
		if _, dup := s.Classes[def.Name]; dup {
			return nil, fmt.Errorf("duplicate class %q", def.Name)
		}
		c := abstract.NewClass(def.Name, nil, nil, nil)
		c.Module = def.Module
		s.Classes[def.Name] = c
	}

	// Second pass wires bases and metaclass candidate variables.
	for _, def := range doc.Classes {
		c := s.Classes[def.Name]
		for _, base := range def.Bases {
			bc, ok := s.Classes[base]
			if !ok {
				return nil, fmt.Errorf("class %q: unknown base %q", def.Name, base)
			}
			c.Bases = append(c.Bases, bc)
		}
		if len(def.Metaclass) > 0 {
			var candidates []any
			for _, name := range def.Metaclass {
				mc, ok := s.Classes[name]
				if !ok {
					return nil, fmt.Errorf("class %q: unknown metaclass %q", def.Name, name)
				}
				candidates = append(candidates, mc)
			}
			c.Cls = s.Program.NewVariable(def.Name+".cls", candidates, s.Root)
		}
	}

	for _, def := range doc.Variables {
		if def.Name == "" {
			return nil, fmt.Errorf("variable with empty name")
		}
		if _, dup := s.Variables[def.Name]; dup {
			return nil, fmt.Errorf("duplicate variable %q", def.Name)
		}
		v := s.Program.NewVariable(def.Name, nil, nil)
		for _, expr := range def.Bindings {
			val, err := s.ParseValue(expr)
			if err != nil {
				return nil, fmt.Errorf("variable %q: %w", def.Name, err)
			}
			v.AddBinding(val, s.Root)
		}
		s.Variables[def.Name] = v
	}

	for i, def := range doc.Queries {
		v, ok := s.Variables[def.Variable]
		if !ok {
			return nil, fmt.Errorf("query %d: unknown variable %q", i, def.Variable)
		}
		target, err := s.ParseValue(def.Target)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		switch def.Want {
		case "", "match", "mismatch":
		default:
			return nil, fmt.Errorf("query %d: want must be match or mismatch, got %q", i, def.Want)
		}
		name := def.Name
		if name == "" {
			name = fmt.Sprintf("%s vs %s", def.Variable, def.Target)
		}
		s.Queries = append(s.Queries, Query{
			Name:     name,
			Variable: v,
			Target:   target,
			Want:     def.Want,
		})
	}
	return s, nil
}

// ParseValue parses a value/type expression:
//
//	empty | nothing | unsolvable
//	$T                  type parameter
//	Name                class reference
//	Name[$T]            parameterized class (bare parameters only)
//	union(e1, e2, ...)  union of expressions
func (s *Scenario) ParseValue(expr string) (abstract.Value, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "":
		return nil, fmt.Errorf("empty value expression")
	case expr == "empty":
		return abstract.NewEmpty(), nil
	case expr == "nothing":
		return abstract.NewNothing(), nil
	case expr == "unsolvable":
		return abstract.NewUnsolvable(), nil
	case strings.HasPrefix(expr, "$"):
		name := expr[1:]
		if name == "" {
			return nil, fmt.Errorf("type parameter with empty name")
		}
		return abstract.NewTypeParameter(name), nil
	case strings.HasPrefix(expr, "union(") && strings.HasSuffix(expr, ")"):
		inner := expr[len("union(") : len(expr)-1]
		var options []abstract.Value
		for _, part := range splitTopLevel(inner) {
			opt, err := s.ParseValue(part)
			if err != nil {
				return nil, err
			}
			options = append(options, opt)
		}
		if len(options) == 0 {
			return nil, fmt.Errorf("union with no options in %q", expr)
		}
		return abstract.NewUnion(options), nil
	case strings.HasSuffix(expr, "]"):
		open := strings.Index(expr, "[")
		if open <= 0 {
			return nil, fmt.Errorf("malformed parameterized class %q", expr)
		}
		base, ok := s.Classes[expr[:open]]
		if !ok {
			return nil, fmt.Errorf("unknown class %q", expr[:open])
		}
		params := make(map[string]abstract.Value)
		for _, part := range splitTopLevel(expr[open+1 : len(expr)-1]) {
			part = strings.TrimSpace(part)
			if !strings.HasPrefix(part, "$") || len(part) < 2 {
				return nil, fmt.Errorf("parameterized class %q: only bare parameters like $T are supported", expr)
			}
			params[part[1:]] = abstract.NewTypeParameter(part[1:])
		}
		if len(params) == 0 {
			return nil, fmt.Errorf("parameterized class %q has no parameters", expr)
		}
		return abstract.NewParameterizedClass(base, params), nil
	default:
		c, ok := s.Classes[expr]
		if !ok {
			return nil, fmt.Errorf("unknown class %q", expr)
		}
		return c, nil
	}
}

// splitTopLevel splits on commas that are not nested inside parentheses or
// brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" {
		parts = append(parts, tail)
	}
	return parts
}
