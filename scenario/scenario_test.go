package scenario

import (
	"strings"
	"testing"

	"github.com/typeflow-dev/typeflow/abstract"
	"github.com/typeflow-dev/typeflow/matcher"
)

const sample = `
version: "1.0.0"
classes:
  - name: M
  - name: SubM
    bases: [M]
  - name: C
    metaclass: [SubM]
  - name: Ambiguous
    metaclass: [M, SubM]
variables:
  - name: c_var
    bindings: [C]
  - name: empty_var
    bindings: []
  - name: union_var
    bindings: ["union(C, Ambiguous)"]
queries:
  - name: c_is_instance_of_M
    variable: c_var
    target: M
    want: match
  - name: c_is_not_nothing
    variable: c_var
    target: nothing
    want: mismatch
  - name: empty_matches_anything
    variable: empty_var
    target: M
    want: match
  - name: union_instances_of_root
    variable: union_var
    target: "type[$T]"
    want: match
`

func TestLoadAndRun(t *testing.T) {
	s, err := Load([]byte(sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Queries) != 4 {
		t.Fatalf("Expected 4 queries, got %d", len(s.Queries))
	}

	opts := matcher.DefaultOptions()
	opts.Logger = matcher.NewNoopLogger()
	m := matcher.New(s.Program, opts)

	for _, q := range s.Queries {
		res, err := m.MatchVarAgainstType(q.Variable, q.Target, nil, s.Root, nil)
		if err != nil {
			t.Fatalf("%s: %v", q.Name, err)
		}
		switch q.Want {
		case "match":
			if !res.Matched() {
				t.Errorf("%s: expected match, got %s", q.Name, res)
			}
		case "mismatch":
			if res.Matched() {
				t.Errorf("%s: expected mismatch, got %s", q.Name, res)
			}
		}
	}
}

func TestBuiltinRootIsPredeclared(t *testing.T) {
	s, err := Load([]byte("version: \"1.2.3\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	root, ok := s.Classes["type"]
	if !ok {
		t.Fatalf("Expected builtin root class to be predeclared")
	}
	if !root.IsMetaclassRoot() {
		t.Errorf("Predeclared root should carry the builtin module tag")
	}
}

func TestVersionGate(t *testing.T) {
	tests := []struct {
		version string
		wantErr string
	}{
		{version: "1.0.0"},
		{version: "1.9.3"},
		{version: "2.0.0", wantErr: "outside supported range"},
		{version: "0.9.0", wantErr: "outside supported range"},
		{version: "banana", wantErr: "invalid scenario version"},
		{version: "", wantErr: "missing a version"},
	}
	for _, tt := range tests {
		doc := ""
		if tt.version != "" {
			doc = "version: \"" + tt.version + "\"\n"
		}
		_, err := Load([]byte(doc))
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("version %q: unexpected error %v", tt.version, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("version %q: expected error containing %q, got %v", tt.version, tt.wantErr, err)
		}
	}
}

func TestParseValue(t *testing.T) {
	s, err := Load([]byte("version: \"1.0.0\"\nclasses:\n  - name: A\n  - name: B\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		expr    string
		want    string // String() of the parsed value
		wantErr bool
	}{
		{expr: "A", want: "A"},
		{expr: "empty", want: "empty"},
		{expr: "nothing", want: "nothing"},
		{expr: "unsolvable", want: "unsolvable"},
		{expr: "$T", want: "T"},
		{expr: "union(A, B)", want: "Union[A, B]"},
		{expr: "union(A, union(B, nothing))", want: "Union[A, Union[B, nothing]]"},
		{expr: "type[$T]", want: "type[T]"},
		{expr: "Unknown", wantErr: true},
		{expr: "A[B]", wantErr: true},
		{expr: "union()", wantErr: true},
		{expr: "", wantErr: true},
		{expr: "$", wantErr: true},
	}
	for _, tt := range tests {
		got, err := s.ParseValue(tt.expr)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseValue(%q): expected error, got %s", tt.expr, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseValue(%q): %v", tt.expr, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseValue(%q) = %s, want %s", tt.expr, got, tt.want)
		}
	}
}

func TestAmbiguousMetaclassScenario(t *testing.T) {
	s, err := Load([]byte(sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	amb := s.Classes["Ambiguous"]
	if amb.Cls == nil || len(amb.Cls.Bindings()) != 2 {
		t.Fatalf("Expected two metaclass candidates for Ambiguous")
	}
	for _, b := range amb.Cls.Bindings() {
		if _, ok := b.Data.(*abstract.Class); !ok {
			t.Errorf("Metaclass candidate should be a class, got %T", b.Data)
		}
	}
}
