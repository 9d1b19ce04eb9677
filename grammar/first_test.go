package grammar

import (
	"sort"
	"testing"

	"github.com/maloki/goply/spec"
)

type first struct {
	lhs     string
	symbols []string
	empty   bool
}

func TestGenFirstSet(t *testing.T) {
	tests := []struct {
		caption string
		spec    *spec.GrammarSpec
		first   []first
	}{
		{
			caption: "productions contain only non-empty productions",
			spec: &spec.GrammarSpec{
				Tokens: []string{"ADD", "MUL", "LPAREN", "RPAREN", "ID"},
				Productions: []*spec.ProductionSpec{
					{LHS: "expr", RHS: []string{"expr", "ADD", "term"}},
					{LHS: "expr", RHS: []string{"term"}},
					{LHS: "term", RHS: []string{"term", "MUL", "factor"}},
					{LHS: "term", RHS: []string{"factor"}},
					{LHS: "factor", RHS: []string{"LPAREN", "expr", "RPAREN"}},
					{LHS: "factor", RHS: []string{"ID"}},
				},
			},
			first: []first{
				{lhs: "expr'", symbols: []string{"LPAREN", "ID"}},
				{lhs: "expr", symbols: []string{"LPAREN", "ID"}},
				{lhs: "term", symbols: []string{"LPAREN", "ID"}},
				{lhs: "factor", symbols: []string{"LPAREN", "ID"}},
			},
		},
		{
			caption: "productions contain the empty start production",
			spec: &spec.GrammarSpec{
				Productions: []*spec.ProductionSpec{
					{LHS: "s", RHS: []string{}},
				},
			},
			first: []first{
				{lhs: "s'", symbols: []string{}, empty: true},
				{lhs: "s", symbols: []string{}, empty: true},
			},
		},
		{
			caption: "productions contain an empty production",
			spec: &spec.GrammarSpec{
				Tokens: []string{"BAR"},
				Productions: []*spec.ProductionSpec{
					{LHS: "s", RHS: []string{"foo", "BAR"}},
					{LHS: "foo", RHS: []string{}},
				},
			},
			first: []first{
				{lhs: "s'", symbols: []string{"BAR"}},
				{lhs: "s", symbols: []string{"BAR"}},
				{lhs: "foo", symbols: []string{}, empty: true},
			},
		},
		{
			caption: "a nullable leading non-terminal lets the next symbol through",
			spec: &spec.GrammarSpec{
				Tokens: []string{"A", "B"},
				Productions: []*spec.ProductionSpec{
					{LHS: "s", RHS: []string{"opt", "B"}},
					{LHS: "opt", RHS: []string{"A"}},
					{LHS: "opt", RHS: []string{}},
				},
			},
			first: []first{
				{lhs: "s", symbols: []string{"A", "B"}},
				{lhs: "opt", symbols: []string{"A"}, empty: true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			g := build(t, tt.spec)

			for _, want := range tt.first {
				sym, ok := g.symbolTable.nonTerminal(want.lhs)
				if !ok {
					t.Fatalf("non-terminal %v is not defined", want.lhs)
				}
				entry, ok := g.firsts.terms[sym]
				if !ok {
					t.Fatalf("a FIRST entry for %v was not found", want.lhs)
				}
				if nullable := g.firsts.nullable[sym]; nullable != want.empty {
					t.Fatalf("unexpected ε in FIRST(%v); want: %v, got: %v", want.lhs, want.empty, nullable)
				}

				var got []string
				for s := range entry {
					got = append(got, g.symbolTable.text(s))
				}
				sort.Strings(got)
				wantSyms := append([]string{}, want.symbols...)
				sort.Strings(wantSyms)
				if len(got) != len(wantSyms) {
					t.Fatalf("unexpected FIRST(%v); want: %v, got: %v", want.lhs, wantSyms, got)
				}
				for i := range got {
					if got[i] != wantSyms[i] {
						t.Fatalf("unexpected FIRST(%v); want: %v, got: %v", want.lhs, wantSyms, got)
					}
				}
			}
		})
	}
}
