package grammar

import (
	"testing"

	"github.com/maloki/goply/spec"
)

var exprSpec = &spec.GrammarSpec{
	Tokens: []string{"ADD", "MUL", "LPAREN", "RPAREN", "ID"},
	Productions: []*spec.ProductionSpec{
		{LHS: "expr", RHS: []string{"expr", "ADD", "term"}},
		{LHS: "expr", RHS: []string{"term"}},
		{LHS: "term", RHS: []string{"term", "MUL", "factor"}},
		{LHS: "term", RHS: []string{"factor"}},
		{LHS: "factor", RHS: []string{"LPAREN", "expr", "RPAREN"}},
		{LHS: "factor", RHS: []string{"ID"}},
	},
}

func TestGenLR0Automaton(t *testing.T) {
	g := build(t, exprSpec)

	// The canonical collection for the expression grammar has 12 states.
	if len(g.automaton.states) != 12 {
		t.Fatalf("unexpected state count; want: 12, got: %v", len(g.automaton.states))
	}

	initialState := g.automaton.states[g.automaton.initialState]
	if initialState.num != stateNumInitial {
		t.Fatalf("unexpected initial state number; want: %v, got: %v", stateNumInitial, initialState.num)
	}
	if len(initialState.items) != 1 || !initialState.items[0].initial {
		t.Fatalf("the initial state must have exactly the initial item as its kernel")
	}
}

// TestLR0Closure_Fixpoint checks the closure invariant: when A → α・Bβ is in
// the closure, every production of B contributes its dot-0 item.
func TestLR0Closure_Fixpoint(t *testing.T) {
	g := build(t, exprSpec)

	for _, state := range g.automaton.stateList {
		closure := genLR0Closure(state.kernel)
		inClosure := map[int]struct{}{}
		for _, item := range closure {
			inClosure[item.idx] = struct{}{}
		}
		for _, item := range closure {
			for _, prod := range item.after {
				if _, ok := inClosure[prod.items[0].idx]; !ok {
					t.Fatalf("state %v: the closure is not a fixpoint; production %v is missing", state.num, prod.num)
				}
			}
		}
	}
}

func TestGenLRItems_Links(t *testing.T) {
	g := build(t, exprSpec)

	for _, prod := range g.productions.all() {
		rhsLen := len(prod.rhs)
		if len(prod.items) != rhsLen+1 {
			t.Fatalf("production %v must have %v items, got %v", prod.num, rhsLen+1, len(prod.items))
		}
		for dot, item := range prod.items {
			if item.dot != dot {
				t.Fatalf("unexpected dot; want: %v, got: %v", dot, item.dot)
			}
			if dot < rhsLen {
				if item.next != prod.items[dot+1] {
					t.Fatal("the next link must point at the dot-advanced item")
				}
				if item.dottedSymbol != prod.rhs[dot] {
					t.Fatal("the dotted symbol must be the symbol right of the dot")
				}
				if item.dottedSymbol.isNonTerminal() && len(item.after) == 0 {
					t.Fatal("a non-terminal dotted symbol must carry its productions")
				}
			} else {
				if !item.reducible || item.next != nil {
					t.Fatal("the last item of the chain must be reducible with no next link")
				}
			}
			if dot > 0 {
				if item.before != prod.rhs[dot-1] {
					t.Fatal("the before link must name the symbol left of the dot")
				}
				if !item.kernel {
					t.Fatal("an item with the dot past 0 must be a kernel item")
				}
			}
		}
	}
}
