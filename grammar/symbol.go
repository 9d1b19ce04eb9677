package grammar

import "fmt"

// symbol identifies a grammar symbol. Terminals are positive, non-terminals
// are negative, and zero is reserved as the nil symbol. The magnitude is the
// symbol's number within its class; numbers are dense, so they double as the
// row and column indexes of the parsing tables and as the signed symbol
// encoding of the report format.
type symbol int

const symbolNil = symbol(0)

// Terminal number 1 is the EOF terminal, and non-terminal number 1 is the
// augmented start symbol. Both slots are claimed before any user symbol is
// registered.
const (
	termNumEOF      = 1
	nonTermNumStart = 1
)

const (
	symbolEOF   = symbol(termNumEOF)
	symbolStart = symbol(-nonTermNumStart)
)

func terminalSymbol(num int) symbol {
	return symbol(num)
}

func nonTerminalSymbol(num int) symbol {
	return symbol(-num)
}

func (s symbol) isNil() bool {
	return s == symbolNil
}

func (s symbol) isTerminal() bool {
	return s > 0
}

func (s symbol) isNonTerminal() bool {
	return s < 0
}

func (s symbol) isEOF() bool {
	return s == symbolEOF
}

func (s symbol) isStart() bool {
	return s == symbolStart
}

// num returns the symbol's number within its class.
func (s symbol) num() int {
	if s < 0 {
		return int(-s)
	}
	return int(s)
}

func (s symbol) String() string {
	if s.isNil() {
		return "<nil>"
	}
	return fmt.Sprintf("%+d", int(s))
}

// symbolTable assigns numbers in the three namespaces a grammar draws
// symbols from: named terminals, character-literal terminals, and
// non-terminals. Literals are keyed by their rune, so a literal and a named
// terminal for the same character are distinct symbols; a literal's display
// text is the quoted character.
type symbolTable struct {
	terms    map[string]symbol
	lits     map[rune]symbol
	nonTerms map[string]symbol

	// termTexts and nonTermTexts are indexed by symbol number. Index 0 is
	// the nil padding; terminal 1 is EOF and non-terminal 1 is reserved
	// for the augmented start symbol until registerStart names it.
	termTexts    []string
	nonTermTexts []string

	litSyms map[symbol]struct{}
}

func newSymbolTable() *symbolTable {
	t := &symbolTable{
		terms:        map[string]symbol{},
		lits:         map[rune]symbol{},
		nonTerms:     map[string]symbol{},
		termTexts:    []string{"", symbolNameEOF},
		nonTermTexts: []string{"", ""},
		litSyms:      map[symbol]struct{}{},
	}
	t.terms[symbolNameEOF] = symbolEOF
	return t
}

func (t *symbolTable) registerTerminal(name string) symbol {
	if sym, ok := t.terms[name]; ok {
		return sym
	}
	sym := terminalSymbol(len(t.termTexts))
	t.terms[name] = sym
	t.termTexts = append(t.termTexts, name)
	return sym
}

func (t *symbolTable) registerLiteral(ch rune) symbol {
	if sym, ok := t.lits[ch]; ok {
		return sym
	}
	sym := terminalSymbol(len(t.termTexts))
	t.lits[ch] = sym
	t.termTexts = append(t.termTexts, "'"+string(ch)+"'")
	t.litSyms[sym] = struct{}{}
	return sym
}

func (t *symbolTable) registerNonTerminal(name string) symbol {
	if sym, ok := t.nonTerms[name]; ok {
		return sym
	}
	sym := nonTerminalSymbol(len(t.nonTermTexts))
	t.nonTerms[name] = sym
	t.nonTermTexts = append(t.nonTermTexts, name)
	return sym
}

// registerStart claims the reserved non-terminal slot for the augmented
// start symbol.
func (t *symbolTable) registerStart(name string) symbol {
	t.nonTerms[name] = symbolStart
	t.nonTermTexts[nonTermNumStart] = name
	return symbolStart
}

func (t *symbolTable) terminal(name string) (symbol, bool) {
	sym, ok := t.terms[name]
	return sym, ok
}

func (t *symbolTable) literal(ch rune) (symbol, bool) {
	sym, ok := t.lits[ch]
	return sym, ok
}

func (t *symbolTable) nonTerminal(name string) (symbol, bool) {
	sym, ok := t.nonTerms[name]
	return sym, ok
}

func (t *symbolTable) isLiteral(sym symbol) bool {
	_, ok := t.litSyms[sym]
	return ok
}

func (t *symbolTable) text(sym symbol) string {
	n := sym.num()
	switch {
	case sym.isTerminal() && n < len(t.termTexts):
		return t.termTexts[n]
	case sym.isNonTerminal() && n < len(t.nonTermTexts):
		return t.nonTermTexts[n]
	}
	return ""
}

func (t *symbolTable) terminalCount() int {
	return len(t.termTexts)
}

func (t *symbolTable) nonTerminalCount() int {
	return len(t.nonTermTexts)
}

func (t *symbolTable) terminalSymbols() []symbol {
	syms := make([]symbol, 0, len(t.termTexts)-1)
	for n := 1; n < len(t.termTexts); n++ {
		syms = append(syms, terminalSymbol(n))
	}
	return syms
}

func (t *symbolTable) nonTerminalSymbols() []symbol {
	syms := make([]symbol, 0, len(t.nonTermTexts)-1)
	for n := 1; n < len(t.nonTermTexts); n++ {
		syms = append(syms, nonTerminalSymbol(n))
	}
	return syms
}
