package abstract

import (
	"testing"

	"github.com/typeflow-dev/typeflow/typegraph"
)

func TestMetaclassRootDetection(t *testing.T) {
	root := NewClass("type", nil, nil, nil)
	root.Module = BuiltinModule
	if !root.IsMetaclassRoot() {
		t.Errorf("builtin 'type' should be the metaclass root")
	}

	userType := NewClass("type", nil, nil, nil)
	userType.Module = "usermod"
	if userType.IsMetaclassRoot() {
		t.Errorf("a user class named 'type' must not count as the root")
	}
}

func TestIsMetaclassRootInstance(t *testing.T) {
	root := NewClass("type", nil, nil, nil)
	root.Module = BuiltinModule

	tests := []struct {
		name   string
		pc     *ParameterizedClass
		want   bool
		wantTP string
	}{
		{
			name:   "root with single bare parameter",
			pc:     NewParameterizedClass(root, map[string]Value{"T": NewTypeParameter("T")}),
			want:   true,
			wantTP: "T",
		},
		{
			name: "root with concrete parameter",
			pc:   NewParameterizedClass(root, map[string]Value{"T": NewClass("C", nil, nil, nil)}),
			want: false,
		},
		{
			name: "root with two parameters",
			pc: NewParameterizedClass(root, map[string]Value{
				"T": NewTypeParameter("T"),
				"U": NewTypeParameter("U"),
			}),
			want: false,
		},
		{
			name: "non-root generic",
			pc: NewParameterizedClass(NewClass("list", nil, nil, nil),
				map[string]Value{"T": NewTypeParameter("T")}),
			want: false,
		},
	}
	for _, tt := range tests {
		tp, ok := tt.pc.IsMetaclassRootInstance()
		if ok != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, ok, tt.want)
			continue
		}
		if ok && tp.Name != tt.wantTP {
			t.Errorf("%s: got parameter %q, want %q", tt.name, tp.Name, tt.wantTP)
		}
	}
}

func TestParameterizedClassModuleFallsBackToBase(t *testing.T) {
	root := NewClass("type", nil, nil, nil)
	root.Module = BuiltinModule
	pc := NewParameterizedClass(root, map[string]Value{"T": NewTypeParameter("T")})
	// Module unset on the parameterized class itself: the base's tag applies.
	if _, ok := pc.IsMetaclassRootInstance(); !ok {
		t.Errorf("expected base module tag to apply when Module is unset")
	}
}

func TestMRO(t *testing.T) {
	a := NewClass("A", nil, nil, nil)
	b := NewClass("B", []*Class{a}, nil, nil)
	c := NewClass("C", []*Class{a}, nil, nil)
	d := NewClass("D", []*Class{b, c}, nil, nil)

	mro := d.MRO()
	want := []*Class{d, b, a, c}
	if len(mro) != len(want) {
		t.Fatalf("MRO length %d, want %d", len(mro), len(want))
	}
	for i := range want {
		if mro[i] != want[i] {
			t.Errorf("MRO[%d] = %s, want %s", i, mro[i].Name, want[i].Name)
		}
	}
}

func TestStringForms(t *testing.T) {
	p := typegraph.NewProgram()
	cls := p.NewVariable("cls", nil, nil)
	c := NewClass("C", nil, nil, cls)

	tests := []struct {
		v    Value
		want string
	}{
		{c, "C"},
		{NewUnion([]Value{c, NewNothing()}), "Union[C, nothing]"},
		{NewTypeParameter("T"), "T"},
		{NewEmpty(), "empty"},
		{NewNothing(), "nothing"},
		{NewUnsolvable(), "unsolvable"},
		{NewParameterizedClass(c, map[string]Value{"T": NewTypeParameter("T")}), "C[T]"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
