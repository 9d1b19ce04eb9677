package grammar

import (
	"testing"

	"github.com/maloki/goply/spec"
)

func build(t *testing.T, gspec *spec.GrammarSpec) *Grammar {
	t.Helper()
	b := &Builder{
		Spec: gspec,
	}
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestBuilder_ConfigErrors(t *testing.T) {
	tests := []struct {
		caption string
		spec    *spec.GrammarSpec
	}{
		{
			caption: "a token declared twice",
			spec: &spec.GrammarSpec{
				Tokens: []string{"A", "A"},
				Productions: []*spec.ProductionSpec{
					{LHS: "s", RHS: []string{"A"}},
				},
			},
		},
		{
			caption: "the error token name is reserved",
			spec: &spec.GrammarSpec{
				Tokens: []string{"error"},
				Productions: []*spec.ProductionSpec{
					{LHS: "s", RHS: []string{"error"}},
				},
			},
		},
		{
			caption: "a grammar with no productions",
			spec: &spec.GrammarSpec{
				Tokens: []string{"A"},
			},
		},
		{
			caption: "a token on a LHS",
			spec: &spec.GrammarSpec{
				Tokens: []string{"A"},
				Productions: []*spec.ProductionSpec{
					{LHS: "A", RHS: []string{}},
				},
			},
		},
		{
			caption: "an undefined symbol in a RHS",
			spec: &spec.GrammarSpec{
				Tokens: []string{"A"},
				Productions: []*spec.ProductionSpec{
					{LHS: "s", RHS: []string{"A", "t"}},
				},
			},
		},
		{
			caption: "the EOF symbol in a RHS",
			spec: &spec.GrammarSpec{
				Tokens: []string{"A"},
				Productions: []*spec.ProductionSpec{
					{LHS: "s", RHS: []string{"A", "$end"}},
				},
			},
		},
		{
			caption: "a duplicated production",
			spec: &spec.GrammarSpec{
				Tokens: []string{"A"},
				Productions: []*spec.ProductionSpec{
					{LHS: "s", RHS: []string{"A"}},
					{LHS: "s", RHS: []string{"A"}},
				},
			},
		},
		{
			caption: "an undefined start symbol",
			spec: &spec.GrammarSpec{
				Tokens: []string{"A"},
				Start:  "top",
				Productions: []*spec.ProductionSpec{
					{LHS: "s", RHS: []string{"A"}},
				},
			},
		},
		{
			caption: "infinite recursion with no terminal-producing base",
			spec: &spec.GrammarSpec{
				Tokens: []string{"A"},
				Productions: []*spec.ProductionSpec{
					{LHS: "s", RHS: []string{"A", "x"}},
					{LHS: "x", RHS: []string{"x", "A"}},
				},
			},
		},
		{
			caption: "a %prec override naming an unknown precedence",
			spec: &spec.GrammarSpec{
				Tokens: []string{"A"},
				Productions: []*spec.ProductionSpec{
					{LHS: "s", RHS: []string{"A"}, Prec: "UMINUS"},
				},
			},
		},
		{
			caption: "a terminal in two precedence levels",
			spec: &spec.GrammarSpec{
				Tokens: []string{"A"},
				Precedence: []*spec.PrecedenceLevel{
					{Assoc: spec.AssocLeft, Terminals: []string{"A"}},
					{Assoc: spec.AssocRight, Terminals: []string{"A"}},
				},
				Productions: []*spec.ProductionSpec{
					{LHS: "s", RHS: []string{"A"}},
				},
			},
		},
		{
			caption: "an invalid associativity",
			spec: &spec.GrammarSpec{
				Tokens: []string{"A"},
				Precedence: []*spec.PrecedenceLevel{
					{Assoc: "both", Terminals: []string{"A"}},
				},
				Productions: []*spec.ProductionSpec{
					{LHS: "s", RHS: []string{"A"}},
				},
			},
		},
		{
			caption: "a multi-character literal",
			spec: &spec.GrammarSpec{
				Tokens: []string{"A"},
				Productions: []*spec.ProductionSpec{
					{LHS: "s", RHS: []string{"A", "'=='"}},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			b := &Builder{
				Spec: tt.spec,
			}
			_, err := b.Build()
			if err == nil {
				t.Fatal("an error must occur")
			}
		})
	}
}

func TestBuilder_Warnings(t *testing.T) {
	g := build(t, &spec.GrammarSpec{
		Tokens: []string{"A", "B", "UNUSED"},
		Precedence: []*spec.PrecedenceLevel{
			{Assoc: spec.AssocLeft, Terminals: []string{"A", "DANGLING"}},
		},
		Productions: []*spec.ProductionSpec{
			{LHS: "s", RHS: []string{"A"}},
			{LHS: "island", RHS: []string{"B"}},
		},
	})

	warnings := g.Warnings()
	if len(warnings) != 3 {
		t.Fatalf("unexpected warning count; want: 3, got: %v (%v)", len(warnings), warnings)
	}
}

func TestBuilder_StartDefaultsToFirstProduction(t *testing.T) {
	g := build(t, &spec.GrammarSpec{
		Tokens: []string{"A", "B"},
		Productions: []*spec.ProductionSpec{
			{LHS: "top", RHS: []string{"inner"}},
			{LHS: "inner", RHS: []string{"A"}},
			{LHS: "inner", RHS: []string{"B"}},
		},
	})

	report := g.Report()
	aug := report.Productions[0]
	if len(aug.RHS) != 1 || aug.RHS[0] >= 0 {
		t.Fatalf("the augmented production must derive the start non-terminal; got: %v", aug.RHS)
	}
	startName := report.NonTerminals[aug.RHS[0]*-1].Name
	if startName != "top" {
		t.Fatalf("unexpected start symbol; want: top, got: %v", startName)
	}
}

func TestBuilder_LiteralTerminalsAreDistinct(t *testing.T) {
	// A named token PLUS and the literal '+' may coexist as distinct
	// terminals.
	g := build(t, &spec.GrammarSpec{
		Tokens: []string{"PLUS", "NUM"},
		Productions: []*spec.ProductionSpec{
			{LHS: "e", RHS: []string{"e", "PLUS", "NUM"}},
			{LHS: "e", RHS: []string{"e", "'+'", "NUM"}},
			{LHS: "e", RHS: []string{"NUM"}},
		},
	})

	named, ok := g.TerminalOf("PLUS")
	if !ok {
		t.Fatal("the PLUS terminal must be defined")
	}
	lit, ok := g.TerminalOf("+")
	if !ok {
		t.Fatal("the '+' literal terminal must be defined")
	}
	if named == lit {
		t.Fatal("a named terminal and a literal terminal for the same character must be distinct")
	}
	if name := g.TerminalName(lit); name != "'+'" {
		t.Fatalf("unexpected literal terminal name; want: '+', got: %v", name)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	gspec := &spec.GrammarSpec{
		Tokens: []string{"PLUS", "TIMES", "NUM", "LPAREN", "RPAREN"},
		Productions: []*spec.ProductionSpec{
			{LHS: "e", RHS: []string{"e", "PLUS", "t"}},
			{LHS: "e", RHS: []string{"t"}},
			{LHS: "t", RHS: []string{"t", "TIMES", "f"}},
			{LHS: "t", RHS: []string{"f"}},
			{LHS: "f", RHS: []string{"LPAREN", "e", "RPAREN"}},
			{LHS: "f", RHS: []string{"NUM"}},
		},
	}

	g1 := build(t, gspec)
	g2 := build(t, gspec)

	r1, r2 := g1.Report(), g2.Report()
	if len(r1.States) != len(r2.States) {
		t.Fatalf("state counts differ: %v vs %v", len(r1.States), len(r2.States))
	}
	for i := range r1.States {
		s1, s2 := r1.States[i], r2.States[i]
		if len(s1.Kernel) != len(s2.Kernel) || len(s1.Shift) != len(s2.Shift) || len(s1.Reduce) != len(s2.Reduce) || len(s1.GoTo) != len(s2.GoTo) {
			t.Fatalf("state %v differs between two builds of the same grammar", i)
		}
		for j := range s1.Kernel {
			if *s1.Kernel[j] != *s2.Kernel[j] {
				t.Fatalf("state %v kernel differs: %+v vs %+v", i, s1.Kernel[j], s2.Kernel[j])
			}
		}
	}
}
