package grammar

import (
	"sort"

	"github.com/maloki/goply/spec"
)

type ActionType string

const (
	ActionTypeShift  = ActionType("shift")
	ActionTypeReduce = ActionType("reduce")
	ActionTypeError  = ActionType("error")
)

type actionEntry int

const (
	actionEntryEmpty = actionEntry(0)

	// actionEntryError marks a cell a nonassoc conflict resolved into an
	// explicit error. The parser treats it like an empty cell, but the
	// defaulted-state detection must not.
	actionEntryError = actionEntry(-1 << 30)
)

func newShiftActionEntry(state stateNum) actionEntry {
	return actionEntry(state * -1)
}

func newReduceActionEntry(prod productionNum) actionEntry {
	return actionEntry(int(prod) + 1)
}

func (e actionEntry) isEmpty() bool {
	return e == actionEntryEmpty
}

func (e actionEntry) describe() (ActionType, stateNum, productionNum) {
	if e == actionEntryEmpty || e == actionEntryError {
		return ActionTypeError, stateNumInitial, productionNumStart
	}
	if e < 0 {
		return ActionTypeShift, stateNum(e * -1), productionNumStart
	}
	return ActionTypeReduce, stateNumInitial, productionNum(int(e) - 1)
}

type goToEntry uint

const goToEntryEmpty = goToEntry(0)

func newGoToEntry(state stateNum) goToEntry {
	return goToEntry(state)
}

func (e goToEntry) describe() (stateNum, bool) {
	if e == goToEntryEmpty {
		return stateNumInitial, false
	}
	return stateNum(e), true
}

type conflictResolutionMethod int

func (m conflictResolutionMethod) Int() int {
	return int(m)
}

const (
	ResolvedByPrec      = conflictResolutionMethod(1)
	ResolvedByAssoc     = conflictResolutionMethod(2)
	ResolvedByShift     = conflictResolutionMethod(3)
	ResolvedByProdOrder = conflictResolutionMethod(4)
)

type conflict interface {
	conflict()
}

type shiftReduceConflict struct {
	state      stateNum
	sym        symbol
	nextState  stateNum
	prodNum    productionNum
	resolvedBy conflictResolutionMethod
}

func (c *shiftReduceConflict) conflict() {
}

type reduceReduceConflict struct {
	state      stateNum
	sym        symbol
	prodNum1   productionNum
	prodNum2   productionNum
	resolvedBy conflictResolutionMethod
}

func (c *reduceReduceConflict) conflict() {
}

var (
	_ conflict = &shiftReduceConflict{}
	_ conflict = &reduceReduceConflict{}
)

// parsingTable holds the frozen ACTION and GOTO tables. Missing ACTION
// entries are implicit errors.
type parsingTable struct {
	actionTable      []actionEntry
	goToTable        []goToEntry
	stateCount       int
	terminalCount    int
	nonTerminalCount int

	// defaultReduces[state] holds prod+1 when the state reduces that
	// production regardless of the lookahead, and 0 otherwise.
	defaultReduces []int

	// errorTrapperStates[state] is 1 when the state has an item of the
	// form A → α・error β.
	errorTrapperStates []int

	initialState stateNum
}

func (t *parsingTable) getAction(state stateNum, term int) (ActionType, stateNum, productionNum) {
	pos := state.Int()*t.terminalCount + term
	return t.actionTable[pos].describe()
}

func (t *parsingTable) getGoTo(state stateNum, nonTerm int) (stateNum, bool) {
	pos := state.Int()*t.nonTerminalCount + nonTerm
	return t.goToTable[pos].describe()
}

func (t *parsingTable) readAction(row int, col int) actionEntry {
	return t.actionTable[row*t.terminalCount+col]
}

func (t *parsingTable) writeAction(row int, col int, act actionEntry) {
	t.actionTable[row*t.terminalCount+col] = act
}

func (t *parsingTable) writeGoTo(state stateNum, sym symbol, nextState stateNum) {
	pos := state.Int()*t.nonTerminalCount + sym.num()
	t.goToTable[pos] = newGoToEntry(nextState)
}

type lrTableBuilder struct {
	automaton    *lr0Automaton
	prods        *productionSet
	termCount    int
	nonTermCount int
	symTab       *symbolTable
	prec         *precedenceTable

	conflicts []conflict
}

func (b *lrTableBuilder) build() (*parsingTable, error) {
	var ptab *parsingTable
	{
		initialState := b.automaton.states[b.automaton.initialState]
		stateCount := len(b.automaton.states)
		ptab = &parsingTable{
			actionTable:        make([]actionEntry, stateCount*b.termCount),
			goToTable:          make([]goToEntry, stateCount*b.nonTermCount),
			stateCount:         stateCount,
			terminalCount:      b.termCount,
			nonTerminalCount:   b.nonTermCount,
			defaultReduces:     make([]int, stateCount),
			errorTrapperStates: make([]int, stateCount),
			initialState:       initialState.num,
		}
	}

	for _, state := range b.automaton.stateList {
		if state.isErrorTrapper {
			ptab.errorTrapperStates[state.num] = 1
		}

		for sym, kID := range state.next {
			nextState := b.automaton.states[kID]
			if sym.isTerminal() {
				b.writeShiftAction(ptab, state.num, sym, nextState.num)
			} else {
				ptab.writeGoTo(state.num, sym, nextState.num)
			}
		}

		for _, item := range state.reducible {
			for a := range state.las[item] {
				b.writeReduceAction(ptab, state.num, a, item.prod.num)
			}
		}
	}

	b.detectDefaultedStates(ptab)

	return ptab, nil
}

// writeShiftAction writes a shift action to the parsing table, running
// conflict resolution when the cell already holds a reduce action.
func (b *lrTableBuilder) writeShiftAction(tab *parsingTable, state stateNum, sym symbol, nextState stateNum) {
	act := tab.readAction(state.Int(), sym.num())
	if !act.isEmpty() {
		ty, _, p := act.describe()
		if ty == ActionTypeReduce {
			act, method := b.resolveSRConflict(sym, p)
			b.conflicts = append(b.conflicts, &shiftReduceConflict{
				state:      state,
				sym:        sym,
				nextState:  nextState,
				prodNum:    p,
				resolvedBy: method,
			})
			switch act {
			case ActionTypeShift:
				tab.writeAction(state.Int(), sym.num(), newShiftActionEntry(nextState))
			case ActionTypeError:
				tab.writeAction(state.Int(), sym.num(), actionEntryError)
			}
			return
		}
	}
	tab.writeAction(state.Int(), sym.num(), newShiftActionEntry(nextState))
}

// writeReduceAction writes a reduce action to the parsing table. A
// shift/reduce conflict runs precedence resolution; a reduce/reduce conflict
// resolves toward the production declared earlier.
func (b *lrTableBuilder) writeReduceAction(tab *parsingTable, state stateNum, sym symbol, prod productionNum) {
	act := tab.readAction(state.Int(), sym.num())
	if !act.isEmpty() {
		ty, s, p := act.describe()
		switch ty {
		case ActionTypeReduce:
			if p == prod {
				return
			}

			b.conflicts = append(b.conflicts, &reduceReduceConflict{
				state:      state,
				sym:        sym,
				prodNum1:   p,
				prodNum2:   prod,
				resolvedBy: ResolvedByProdOrder,
			})
			if p < prod {
				tab.writeAction(state.Int(), sym.num(), newReduceActionEntry(p))
			} else {
				tab.writeAction(state.Int(), sym.num(), newReduceActionEntry(prod))
			}
		case ActionTypeShift:
			act, method := b.resolveSRConflict(sym, prod)
			b.conflicts = append(b.conflicts, &shiftReduceConflict{
				state:      state,
				sym:        sym,
				nextState:  s,
				prodNum:    prod,
				resolvedBy: method,
			})
			switch act {
			case ActionTypeReduce:
				tab.writeAction(state.Int(), sym.num(), newReduceActionEntry(prod))
			case ActionTypeError:
				tab.writeAction(state.Int(), sym.num(), actionEntryError)
			}
		}
		return
	}
	tab.writeAction(state.Int(), sym.num(), newReduceActionEntry(prod))
}

// resolveSRConflict resolves a shift/reduce conflict on a terminal. Without
// precedence on either side the shift wins silently; otherwise the higher
// level wins, and on ties the terminal's associativity decides: LEFT reduces,
// RIGHT shifts, NONASSOC forbids both.
func (b *lrTableBuilder) resolveSRConflict(sym symbol, prod productionNum) (ActionType, conflictResolutionMethod) {
	symPrec := b.prec.terminalLevel(sym.num())
	prodPrec := precNil
	if p, ok := b.prods.findByNum(prod); ok {
		prodPrec = p.precLevel
	}
	if symPrec == precNil && prodPrec == precNil {
		return ActionTypeShift, ResolvedByShift
	}
	if symPrec > prodPrec {
		return ActionTypeShift, ResolvedByPrec
	}
	if symPrec < prodPrec {
		return ActionTypeReduce, ResolvedByPrec
	}

	switch b.prec.terminalAssoc(sym.num()) {
	case assocTypeLeft:
		return ActionTypeReduce, ResolvedByAssoc
	case assocTypeRight:
		return ActionTypeShift, ResolvedByAssoc
	default:
		return ActionTypeError, ResolvedByAssoc
	}
}

// detectDefaultedStates finds the states whose only action is one and the
// same reduction. Those states reduce without consulting the lookahead.
// A state reducing the start production (accept) never defaults, and neither
// does one holding a nonassoc error entry.
func (b *lrTableBuilder) detectDefaultedStates(tab *parsingTable) {
	for state := 0; state < tab.stateCount; state++ {
		prod := productionNumStart
		count := 0
		defaultable := true
		for term := 0; term < tab.terminalCount; term++ {
			e := tab.readAction(state, term)
			if e.isEmpty() {
				continue
			}
			if e == actionEntryError {
				defaultable = false
				break
			}
			ty, _, p := e.describe()
			if ty != ActionTypeReduce || p == productionNumStart {
				defaultable = false
				break
			}
			if count > 0 && p != prod {
				defaultable = false
				break
			}
			prod = p
			count++
		}
		if defaultable && count > 0 {
			tab.defaultReduces[state] = int(prod) + 1
		}
	}
}

func (b *lrTableBuilder) genReport(tab *parsingTable, firsts *firstSet, warnings []string, name string) *spec.Report {
	terms := make([]*spec.Terminal, b.termCount)
	for _, sym := range b.symTab.terminalSymbols() {
		term := &spec.Terminal{
			Number:  sym.num(),
			Name:    b.symTab.text(sym),
			Literal: b.symTab.isLiteral(sym),
		}

		if level := b.prec.terminalLevel(sym.num()); level != precNil {
			term.Precedence = level
		}
		term.Associativity = assocText(b.prec.terminalAssoc(sym.num()))

		terms[sym.num()] = term
	}

	nonTerms := make([]*spec.NonTerminal, b.nonTermCount)
	for _, sym := range b.symTab.nonTerminalSymbols() {
		nonTerms[sym.num()] = &spec.NonTerminal{
			Number: sym.num(),
			Name:   b.symTab.text(sym),
		}
	}

	// Symbols are already signed the way the report encodes them, so RHS
	// entries are plain int conversions.
	prods := make([]*spec.Production, b.prods.count())
	for _, p := range b.prods.all() {
		rhs := make([]int, len(p.rhs))
		for i, e := range p.rhs {
			rhs[i] = int(e)
		}

		prod := &spec.Production{
			Number: p.num.Int(),
			LHS:    int(p.lhs),
			RHS:    rhs,
		}
		if p.precLevel != precNil {
			prod.Precedence = p.precLevel
		}
		prod.Associativity = assocText(p.precAssoc)

		prods[p.num.Int()] = prod
	}

	var fsts []*spec.First
	for _, sym := range b.symTab.nonTerminalSymbols() {
		entry, ok := firsts.terms[sym]
		if !ok {
			continue
		}
		f := &spec.First{
			NonTerminal: sym.num(),
			Empty:       firsts.nullable[sym],
		}
		for t := range entry {
			f.Terminals = append(f.Terminals, t.num())
		}
		sort.Ints(f.Terminals)
		fsts = append(fsts, f)
	}
	sort.Slice(fsts, func(i, j int) bool {
		return fsts[i].NonTerminal < fsts[j].NonTerminal
	})

	var states []*spec.State
	{
		srConflicts := map[stateNum][]*shiftReduceConflict{}
		rrConflicts := map[stateNum][]*reduceReduceConflict{}
		for _, con := range b.conflicts {
			switch c := con.(type) {
			case *shiftReduceConflict:
				srConflicts[c.state] = append(srConflicts[c.state], c)
			case *reduceReduceConflict:
				rrConflicts[c.state] = append(rrConflicts[c.state], c)
			}
		}

		states = make([]*spec.State, len(b.automaton.stateList))
		for _, s := range b.automaton.stateList {
			kernel := make([]*spec.Item, len(s.items))
			for i, item := range s.items {
				kernel[i] = &spec.Item{
					Production: item.prod.num.Int(),
					Dot:        item.dot,
				}
			}
			sort.Slice(kernel, func(i, j int) bool {
				if kernel[i].Production != kernel[j].Production {
					return kernel[i].Production < kernel[j].Production
				}
				return kernel[i].Dot < kernel[j].Dot
			})

			var shift []*spec.Transition
			var reduce []*spec.Reduce
			var goTo []*spec.Transition
			{
			TERMINALS_LOOP:
				for _, t := range b.symTab.terminalSymbols() {
					act, next, prod := tab.getAction(s.num, t.num())
					switch act {
					case ActionTypeShift:
						shift = append(shift, &spec.Transition{
							Symbol: t.num(),
							State:  next.Int(),
						})
					case ActionTypeReduce:
						for _, r := range reduce {
							if r.Production == prod.Int() {
								r.LookAhead = append(r.LookAhead, t.num())
								continue TERMINALS_LOOP
							}
						}
						reduce = append(reduce, &spec.Reduce{
							LookAhead:  []int{t.num()},
							Production: prod.Int(),
						})
					}
				}

				for _, n := range b.symTab.nonTerminalSymbols() {
					next, ok := tab.getGoTo(s.num, n.num())
					if ok {
						goTo = append(goTo, &spec.Transition{
							Symbol: n.num(),
							State:  next.Int(),
						})
					}
				}

				sort.Slice(shift, func(i, j int) bool {
					return shift[i].State < shift[j].State
				})
				sort.Slice(reduce, func(i, j int) bool {
					return reduce[i].Production < reduce[j].Production
				})
				sort.Slice(goTo, func(i, j int) bool {
					return goTo[i].State < goTo[j].State
				})
			}

			sr := []*spec.SRConflict{}
			rr := []*spec.RRConflict{}
			{
				for _, c := range srConflicts[s.num] {
					conflict := &spec.SRConflict{
						Symbol:     c.sym.num(),
						State:      c.nextState.Int(),
						Production: c.prodNum.Int(),
						ResolvedBy: c.resolvedBy.Int(),
					}

					ty, s, p := tab.getAction(s.num, c.sym.num())
					switch ty {
					case ActionTypeShift:
						n := s.Int()
						conflict.AdoptedState = &n
					case ActionTypeReduce:
						n := p.Int()
						conflict.AdoptedProduction = &n
					}

					sr = append(sr, conflict)
				}
				sort.Slice(sr, func(i, j int) bool {
					return sr[i].Symbol < sr[j].Symbol
				})

				for _, c := range rrConflicts[s.num] {
					conflict := &spec.RRConflict{
						Symbol:      c.sym.num(),
						Production1: c.prodNum1.Int(),
						Production2: c.prodNum2.Int(),
						ResolvedBy:  c.resolvedBy.Int(),
					}

					_, _, p := tab.getAction(s.num, c.sym.num())
					conflict.AdoptedProduction = p.Int()

					rr = append(rr, conflict)
				}
				sort.Slice(rr, func(i, j int) bool {
					return rr[i].Symbol < rr[j].Symbol
				})
			}

			st := &spec.State{
				Number:       s.num.Int(),
				Kernel:       kernel,
				Shift:        shift,
				Reduce:       reduce,
				GoTo:         goTo,
				ErrorTrapper: tab.errorTrapperStates[s.num] != 0,
				SRConflict:   sr,
				RRConflict:   rr,
			}
			if d := tab.defaultReduces[s.num]; d != 0 {
				n := d - 1
				st.DefaultReduce = &n
			}
			states[s.num.Int()] = st
		}
	}

	return &spec.Report{
		Name:         name,
		Terminals:    terms,
		NonTerminals: nonTerms,
		Productions:  prods,
		Firsts:       fsts,
		States:       states,
		Warnings:     warnings,
	}
}

func assocText(assoc assocType) string {
	switch assoc {
	case assocTypeLeft:
		return "l"
	case assocTypeRight:
		return "r"
	case assocTypeNonAssoc:
		return "n"
	}
	return ""
}
