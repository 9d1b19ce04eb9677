package grammar

import (
	"sort"
	"unicode/utf8"

	"github.com/maloki/goply/spec"
)

// The following accessors are the read-only view the parsing engine drives
// the tables through. Action entries use a packed encoding: a negative value
// is a shift to state -v, a positive value is a reduce by production v-1
// (production 0 being the accept reduction), and 0 is an error.

func (g *Grammar) Name() string {
	return g.name
}

func (g *Grammar) InitialState() int {
	return g.ptab.initialState.Int()
}

func (g *Grammar) Action(state int, terminal int) int {
	e := g.ptab.actionTable[state*g.ptab.terminalCount+terminal]
	if e == actionEntryError {
		return 0
	}
	return int(e)
}

func (g *Grammar) GoTo(state int, lhs int) (int, bool) {
	next, ok := g.ptab.getGoTo(stateNum(state), lhs)
	return next.Int(), ok
}

// DefaultReduce reports the production a state reduces without consulting
// the lookahead, when the state is defaulted.
func (g *Grammar) DefaultReduce(state int) (int, bool) {
	d := g.ptab.defaultReduces[state]
	if d == 0 {
		return 0, false
	}
	return d - 1, true
}

func (g *Grammar) ErrorTrapperState(state int) bool {
	return g.ptab.errorTrapperStates[state] != 0
}

func (g *Grammar) StateCount() int {
	return g.ptab.stateCount
}

func (g *Grammar) TerminalCount() int {
	return g.ptab.terminalCount
}

func (g *Grammar) ProductionCount() int {
	return g.productions.count()
}

func (g *Grammar) StartProduction() int {
	return productionNumStart.Int()
}

func (g *Grammar) LHS(prod int) int {
	p, _ := g.productions.findByNum(productionNum(prod))
	return p.lhs.num()
}

func (g *Grammar) RHSLen(prod int) int {
	p, _ := g.productions.findByNum(productionNum(prod))
	return len(p.rhs)
}

func (g *Grammar) EOFTerminal() int {
	return termNumEOF
}

func (g *Grammar) ErrorTerminal() int {
	return g.errorSymbol.num()
}

// TerminalOf maps a token kind to its terminal number. A single-character
// kind that is not a declared token falls back to the character-literal
// terminal of the same character.
func (g *Grammar) TerminalOf(kind string) (int, bool) {
	if sym, ok := g.symbolTable.terminal(kind); ok {
		return sym.num(), true
	}
	if utf8.RuneCountInString(kind) == 1 {
		r, _ := utf8.DecodeRuneInString(kind)
		if sym, ok := g.symbolTable.literal(r); ok {
			return sym.num(), true
		}
	}
	return 0, false
}

func (g *Grammar) TerminalName(terminal int) string {
	return g.symbolTable.text(terminalSymbol(terminal))
}

func (g *Grammar) NonTerminalName(nonTerminal int) string {
	return g.symbolTable.text(nonTerminalSymbol(nonTerminal))
}

// ExpectedTerminals lists the terminal names a state would accept, for
// diagnostics. The error terminal is omitted: users cannot input it
// intentionally.
func (g *Grammar) ExpectedTerminals(state int) []string {
	var kinds []string
	for term := 0; term < g.ptab.terminalCount; term++ {
		if g.Action(state, term) == 0 {
			continue
		}
		if term == g.ErrorTerminal() {
			continue
		}
		kinds = append(kinds, g.TerminalName(term))
	}
	sort.Strings(kinds)
	return kinds
}

// Report returns the full description of the built grammar: the grammar
// listing, FIRST sets, and the per-state items, actions, gotos, and conflict
// annotations.
func (g *Grammar) Report() *spec.Report {
	return g.report
}

// Warnings lists the non-fatal diagnoses found while building: unreachable
// non-terminals, unused tokens, and unused precedence declarations.
func (g *Grammar) Warnings() []string {
	return g.warnings
}

// SRConflictCount reports how many shift/reduce conflicts were resolved
// while filling the table.
func (g *Grammar) SRConflictCount() int {
	return g.srCount
}

// RRConflictCount reports how many reduce/reduce conflicts were resolved
// while filling the table.
func (g *Grammar) RRConflictCount() int {
	return g.rrCount
}
