package grammar

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	verr "github.com/maloki/goply/error"
	"github.com/maloki/goply/spec"
)

const (
	symbolNameEOF   = spec.SymbolNameEOF
	symbolNameError = spec.SymbolNameError
)

type assocType string

const (
	assocTypeNil      = assocType("")
	assocTypeLeft     = assocType(spec.AssocLeft)
	assocTypeRight    = assocType(spec.AssocRight)
	assocTypeNonAssoc = assocType(spec.AssocNonAssoc)
)

const (
	precNil = 0
	precMin = 1
)

// precedenceTable records the level and associativity of the terminals named
// in precedence declarations, keyed by terminal number. Levels start at 1;
// level 0 means none. Productions carry their own precedence (see
// production), so only terminals live here.
type precedenceTable struct {
	termLevel map[int]int
	termAssoc map[int]assocType
}

func (pt *precedenceTable) terminalLevel(num int) int {
	level, ok := pt.termLevel[num]
	if !ok {
		return precNil
	}

	return level
}

func (pt *precedenceTable) terminalAssoc(num int) assocType {
	assoc, ok := pt.termAssoc[num]
	if !ok {
		return assocTypeNil
	}

	return assoc
}

// Grammar is a frozen grammar with its LALR(1) parsing table. It is built
// once and never mutated afterward, so any number of parsing sessions may
// share it read-only.
type Grammar struct {
	name        string
	symbolTable *symbolTable
	productions *productionSet
	startSymbol symbol
	errorSymbol symbol
	precedence  *precedenceTable
	firsts      *firstSet
	automaton   *lr0Automaton
	ptab        *parsingTable
	report      *spec.Report
	warnings    []string
	srCount     int
	rrCount     int
}

type declaredPrec struct {
	assoc assocType
	level int
}

// Builder builds a Grammar from a GrammarSpec. All configuration problems
// are collected and reported together; construction fails when at least one
// occurred. Conflicts do not fail construction: they are resolved, counted,
// and reported.
type Builder struct {
	Spec *spec.GrammarSpec

	errs verr.SpecErrors
}

func (b *Builder) Build() (*Grammar, error) {
	symTab := newSymbolTable()

	tokens := b.checkTokens()
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	if len(b.Spec.Productions) == 0 {
		return nil, verr.SpecErrors{
			{Cause: fmt.Errorf("a grammar needs at least one production")},
		}
	}

	// Register the user terminals and the reserved error terminal. The
	// error terminal is registered first so that its number is stable.
	errSym := symTab.registerTerminal(symbolNameError)
	for _, t := range b.Spec.Tokens {
		symTab.registerTerminal(t)
	}

	// Every LHS is registered up front so that RHS entries can be
	// classified into terminals and non-terminals in one pass.
	startText := b.Spec.Start
	if startText == "" {
		startText = b.Spec.Productions[0].LHS
	}
	for _, p := range b.Spec.Productions {
		if p.LHS == "" {
			b.errs = append(b.errs, &verr.SpecError{
				Cause: fmt.Errorf("a production needs a LHS"),
				Row:   p.Row,
				Col:   p.Col,
			})
			continue
		}
		if _, isTok := tokens[p.LHS]; isTok || p.LHS == symbolNameError || p.LHS == symbolNameEOF {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  fmt.Errorf("a token cannot appear on a LHS: %v", p.LHS),
				Detail: p.LHS,
				Row:    p.Row,
				Col:    p.Col,
			})
			continue
		}
		symTab.registerNonTerminal(p.LHS)
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	prods := newProductionSet()
	prodBySpec := make([]*production, len(b.Spec.Productions))
	for i, p := range b.Spec.Productions {
		lhsSym, _ := symTab.nonTerminal(p.LHS)

		var rhs []symbol
		bad := false
		for _, e := range p.RHS {
			sym, err := b.resolveRHSSymbol(symTab, tokens, e, p)
			if err != nil {
				b.errs = append(b.errs, err)
				bad = true
				continue
			}
			rhs = append(rhs, sym)
		}
		if bad {
			continue
		}

		prod, added := prods.append(lhsSym, rhs)
		if !added {
			b.errs = append(b.errs, &verr.SpecError{
				Cause: fmt.Errorf("duplicated production: %v → %v", p.LHS, strings.Join(p.RHS, " ")),
				Row:   p.Row,
				Col:   p.Col,
			})
			continue
		}
		prodBySpec[i] = prod
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	// Augment the grammar: production 0 is S' → start.
	startSym, ok := symTab.nonTerminal(startText)
	if !ok {
		return nil, verr.SpecErrors{
			{Cause: fmt.Errorf("start symbol %v is not defined by any production", startText), Detail: startText},
		}
	}
	augStartSym := symTab.registerStart(startText + "'")
	prods.append(augStartSym, []symbol{startSym})

	pt, declPrec := b.genPrecedence(symTab, prodBySpec)
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	b.checkUndefinedSymbols(symTab, prods)
	b.checkTermination(symTab, prods)
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	var warnings []string
	warnings = append(warnings, b.findUnreachable(symTab, prods, augStartSym)...)
	warnings = append(warnings, b.findUnusedTerminals(symTab, prods)...)
	warnings = append(warnings, b.findUnusedPrecedence(symTab, prods, declPrec)...)

	fst := genFirstSet(prods)

	if _, err := genLRItems(prods); err != nil {
		return nil, err
	}

	automaton, err := genLR0Automaton(prods, augStartSym, errSym)
	if err != nil {
		return nil, err
	}

	if err := genLALR1LookAheads(automaton, fst); err != nil {
		return nil, err
	}

	tb := &lrTableBuilder{
		automaton:    automaton,
		prods:        prods,
		termCount:    symTab.terminalCount(),
		nonTermCount: symTab.nonTerminalCount(),
		symTab:       symTab,
		prec:         pt,
	}
	ptab, err := tb.build()
	if err != nil {
		return nil, err
	}

	srCount, rrCount := 0, 0
	for _, c := range tb.conflicts {
		switch c.(type) {
		case *shiftReduceConflict:
			srCount++
		case *reduceReduceConflict:
			rrCount++
		}
	}

	return &Grammar{
		name:        b.Spec.Name,
		symbolTable: symTab,
		productions: prods,
		startSymbol: augStartSym,
		errorSymbol: errSym,
		precedence:  pt,
		firsts:      fst,
		automaton:   automaton,
		ptab:        ptab,
		report:      tb.genReport(ptab, fst, warnings, b.Spec.Name),
		warnings:    warnings,
		srCount:     srCount,
		rrCount:     rrCount,
	}, nil
}

func (b *Builder) checkTokens() map[string]struct{} {
	tokens := map[string]struct{}{}
	for _, t := range b.Spec.Tokens {
		if t == symbolNameError || t == symbolNameEOF {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  fmt.Errorf("token name %v is reserved", t),
				Detail: t,
			})
			continue
		}
		if _, dup := tokens[t]; dup {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  fmt.Errorf("token %v is declared twice", t),
				Detail: t,
			})
			continue
		}
		tokens[t] = struct{}{}
	}
	return tokens
}

// resolveRHSSymbol classifies one RHS entry: the reserved error terminal, a
// single-quoted character literal, a declared token, or a non-terminal.
func (b *Builder) resolveRHSSymbol(symTab *symbolTable, tokens map[string]struct{}, e string, p *spec.ProductionSpec) (symbol, *verr.SpecError) {
	switch {
	case e == symbolNameError:
		sym, _ := symTab.terminal(symbolNameError)
		return sym, nil
	case e == symbolNameEOF:
		return symbolNil, &verr.SpecError{
			Cause: fmt.Errorf("the EOF symbol cannot appear in a RHS"),
			Row:   p.Row,
			Col:   p.Col,
		}
	case isLiteralText(e):
		ch, ok := literalRune(e)
		if !ok {
			return symbolNil, &verr.SpecError{
				Cause:  fmt.Errorf("a literal terminal must be a single character: %v", e),
				Detail: e,
				Row:    p.Row,
				Col:    p.Col,
			}
		}
		return symTab.registerLiteral(ch), nil
	default:
		if _, isTok := tokens[e]; isTok {
			sym, _ := symTab.terminal(e)
			return sym, nil
		}
		sym, ok := symTab.nonTerminal(e)
		if !ok {
			return symbolNil, &verr.SpecError{
				Cause:  fmt.Errorf("symbol %v is used, but it is neither a token nor defined by any production", e),
				Detail: e,
				Row:    p.Row,
				Col:    p.Col,
			}
		}
		return sym, nil
	}
}

func isLiteralText(e string) bool {
	return len(e) >= 3 && e[0] == '\'' && e[len(e)-1] == '\''
}

// literalRune extracts the character of a quoted literal like '+'.
func literalRune(e string) (rune, bool) {
	ch := e[1 : len(e)-1]
	if utf8.RuneCountInString(ch) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(ch)
	return r, true
}

// genPrecedence turns the ordered precedence declarations into the terminal
// precedence table and attaches each production's precedence, either from a
// %prec override or inherited from the rightmost terminal of its RHS.
// Terminals in a precedence declaration need not be declared tokens:
// fictitious terminals exist only to be named by %prec.
func (b *Builder) genPrecedence(symTab *symbolTable, prodBySpec []*production) (*precedenceTable, map[string]declaredPrec) {
	pt := &precedenceTable{
		termLevel: map[int]int{},
		termAssoc: map[int]assocType{},
	}
	declPrec := map[string]declaredPrec{}

	for i, level := range b.Spec.Precedence {
		precN := precMin + i

		var assocTy assocType
		switch level.Assoc {
		case spec.AssocLeft:
			assocTy = assocTypeLeft
		case spec.AssocRight:
			assocTy = assocTypeRight
		case spec.AssocNonAssoc:
			assocTy = assocTypeNonAssoc
		default:
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  fmt.Errorf("associativity must be either left, right, or nonassoc: %v", level.Assoc),
				Detail: level.Assoc,
			})
			continue
		}

		for _, t := range level.Terminals {
			if _, dup := declPrec[t]; dup {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  fmt.Errorf("terminal %v appears in multiple precedence levels", t),
					Detail: t,
				})
				continue
			}
			declPrec[t] = declaredPrec{assoc: assocTy, level: precN}

			var sym symbol
			var known bool
			if isLiteralText(t) {
				if ch, ok := literalRune(t); ok {
					sym, known = symTab.literal(ch)
				}
			} else {
				sym, known = symTab.terminal(t)
			}
			if known {
				pt.termLevel[sym.num()] = precN
				pt.termAssoc[sym.num()] = assocTy
			}
		}
	}

	for i, p := range b.Spec.Productions {
		prod := prodBySpec[i]
		if prod == nil {
			continue
		}

		if p.Prec != "" {
			dp, ok := declPrec[p.Prec]
			if !ok {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  fmt.Errorf("nothing is known about the precedence of %v", p.Prec),
					Detail: p.Prec,
					Row:    p.Row,
					Col:    p.Col,
				})
				continue
			}
			prod.precLevel = dp.level
			prod.precAssoc = dp.assoc
			continue
		}

		// Inherit from the rightmost terminal of the RHS.
		for j := len(prod.rhs) - 1; j >= 0; j-- {
			sym := prod.rhs[j]
			if !sym.isTerminal() {
				continue
			}
			if level, ok := pt.termLevel[sym.num()]; ok {
				prod.precLevel = level
				prod.precAssoc = pt.termAssoc[sym.num()]
			}
			break
		}
	}

	return pt, declPrec
}

func (b *Builder) checkUndefinedSymbols(symTab *symbolTable, prods *productionSet) {
	reported := map[symbol]struct{}{}
	for _, prod := range prods.all() {
		for _, sym := range prod.rhs {
			if !sym.isNonTerminal() {
				continue
			}
			if _, dup := reported[sym]; dup {
				continue
			}
			if _, ok := prods.findByLHS(sym); !ok {
				reported[sym] = struct{}{}
				text := symTab.text(sym)
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  fmt.Errorf("non-terminal %v is used, but no production defines it", text),
					Detail: text,
				})
			}
		}
	}
}

// checkTermination rejects non-terminals that cannot derive any terminal
// string: a production base case must exist, or every parse would recurse
// forever.
func (b *Builder) checkTermination(symTab *symbolTable, prods *productionSet) {
	terminates := map[symbol]bool{}
	for {
		changed := false
		for _, prod := range prods.all() {
			if terminates[prod.lhs] {
				continue
			}
			all := true
			for _, sym := range prod.rhs {
				if sym.isTerminal() {
					continue
				}
				if !terminates[sym] {
					all = false
					break
				}
			}
			if all {
				terminates[prod.lhs] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, sym := range symTab.nonTerminalSymbols() {
		if _, defined := prods.findByLHS(sym); !defined {
			continue
		}
		if !terminates[sym] {
			text := symTab.text(sym)
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  fmt.Errorf("infinite recursion detected: non-terminal %v never derives a terminal string", text),
				Detail: text,
			})
		}
	}
}

func (b *Builder) findUnreachable(symTab *symbolTable, prods *productionSet, start symbol) []string {
	reachable := map[symbol]struct{}{
		start: {},
	}
	frontier := []symbol{start}
	for len(frontier) > 0 {
		var next []symbol
		for _, sym := range frontier {
			ps, _ := prods.findByLHS(sym)
			for _, prod := range ps {
				for _, rhsSym := range prod.rhs {
					if !rhsSym.isNonTerminal() {
						continue
					}
					if _, ok := reachable[rhsSym]; ok {
						continue
					}
					reachable[rhsSym] = struct{}{}
					next = append(next, rhsSym)
				}
			}
		}
		frontier = next
	}

	var warnings []string
	for _, sym := range symTab.nonTerminalSymbols() {
		if sym.isStart() {
			continue
		}
		if _, ok := reachable[sym]; !ok {
			warnings = append(warnings, fmt.Sprintf("non-terminal %v is unreachable from the start symbol", symTab.text(sym)))
		}
	}
	return warnings
}

func (b *Builder) findUnusedTerminals(symTab *symbolTable, prods *productionSet) []string {
	used := map[symbol]struct{}{}
	for _, prod := range prods.all() {
		for _, sym := range prod.rhs {
			if sym.isTerminal() {
				used[sym] = struct{}{}
			}
		}
	}

	var warnings []string
	for _, sym := range symTab.terminalSymbols() {
		if sym.isEOF() || symTab.text(sym) == symbolNameError {
			continue
		}
		if _, ok := used[sym]; !ok {
			warnings = append(warnings, fmt.Sprintf("token %v is declared, but no production uses it", symTab.text(sym)))
		}
	}
	return warnings
}

func (b *Builder) findUnusedPrecedence(symTab *symbolTable, prods *productionSet, declPrec map[string]declaredPrec) []string {
	used := map[string]struct{}{}
	for _, p := range b.Spec.Productions {
		if p.Prec != "" {
			used[p.Prec] = struct{}{}
		}
	}
	for _, prod := range prods.all() {
		for _, sym := range prod.rhs {
			if sym.isTerminal() {
				used[symTab.text(sym)] = struct{}{}
			}
		}
	}

	var names []string
	for name := range declPrec {
		if _, ok := used[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	var warnings []string
	for _, name := range names {
		warnings = append(warnings, fmt.Sprintf("precedence is declared for %v, but nothing uses it", name))
	}
	return warnings
}
