package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maloki/goply/lexer"
	"github.com/maloki/goply/spec"
)

// ErrSyntax is returned from a semantic action to raise a syntax error at
// the last symbol of the production. The error handler is not invoked; the
// last symbol is popped and the error terminal becomes the lookahead.
var ErrSyntax = errors.New("syntax error raised by a semantic action")

// ErrAborted is returned by Parse when error recovery failed for good: the
// input ended while the parser was still recovering. The collected syntax
// errors remain available through SyntaxErrors.
var ErrAborted = errors.New("parsing aborted")

// errorShiftWindow is how many tokens must be shifted after an error before
// the error handler is called again.
const errorShiftWindow = 3

// Grammar is the read-only view the engine drives the parsing tables
// through. Action entries use a packed encoding: a negative value is a shift
// to state -v, a positive value is a reduce by production v-1 (production 0
// being the accept reduction), and 0 is an error.
type Grammar interface {
	InitialState() int
	Action(state int, terminal int) int
	GoTo(state int, lhs int) (int, bool)
	DefaultReduce(state int) (int, bool)
	ErrorTrapperState(state int) bool
	ProductionCount() int
	StartProduction() int
	LHS(prod int) int
	RHSLen(prod int) int
	EOFTerminal() int
	ErrorTerminal() int
	TerminalOf(kind string) (int, bool)
	NonTerminalName(nonTerminal int) string
	ExpectedTerminals(state int) []string
}

// SyntaxError describes one syntax error the engine ran into. Token is nil
// when the input ended unexpectedly.
type SyntaxError struct {
	Token    *lexer.Token
	Line     int
	Offset   int
	Expected []string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	if e.Token == nil {
		fmt.Fprintf(&b, "syntax error: unexpected end of input")
	} else {
		fmt.Fprintf(&b, "syntax error: unexpected %v at line %v", e.Token.Kind, e.Line)
	}
	if len(e.Expected) > 0 {
		fmt.Fprintf(&b, "; expected: %v", strings.Join(e.Expected, ", "))
	}
	return b.String()
}

// ErrorHandler is called once per syntax error, outside the suppression
// window. tok is nil when the input ended unexpectedly. The handler may call
// ErrOK or Restart on the parser, and may return a replacement lookahead
// token.
type ErrorHandler func(p *Parser, tok *lexer.Token) *lexer.Token

type ParserOption func(p *Parser) error

// OnSyntaxError installs the error handler.
func OnSyntaxError(h ErrorHandler) ParserOption {
	return func(p *Parser) error {
		p.onSyntaxError = h
		return nil
	}
}

// TrackPositions makes reductions carry the source span of their RHS, from
// the first symbol's start to the last symbol's end. Terminal positions are
// always tracked.
func TrackPositions() ParserOption {
	return func(p *Parser) error {
		p.trackPositions = true
		return nil
	}
}

// DisableDefaultReduction makes every state consult the lookahead before
// reducing. Grammars relying on mid-rule actions need this: a defaulted
// reduction runs before the lookahead's own rule actions had a chance to
// fire.
func DisableDefaultReduction() ParserOption {
	return func(p *Parser) error {
		p.noDefaultReduce = true
		return nil
	}
}

type frame struct {
	state     int
	kind      string
	value     any
	line      int
	endLine   int
	offset    int
	endOffset int
}

// Parser is a table-driven shift-reduce parser. The grammar and its tables
// are shared read-only; the stack and the recovery state are per-instance,
// and each Parse call starts from a clean slate.
type Parser struct {
	gram    Grammar
	actions []SemanticAction

	onSyntaxError   ErrorHandler
	trackPositions  bool
	noDefaultReduce bool

	ts       TokenStream
	frames   []frame
	pushback []*lexer.Token
	synErrs  []*SyntaxError

	errorCount int
	errOK      bool
	restarted  bool
	lastLine   int
}

// New builds a parser over a frozen grammar. actions is aligned with the
// grammar's user productions: actions[i] runs when production i+1 is
// reduced. Entries may be nil; the production then reduces to a nil value.
func New(gram Grammar, actions []SemanticAction, opts ...ParserOption) (*Parser, error) {
	if len(actions) > gram.ProductionCount()-1 {
		return nil, fmt.Errorf("too many semantic actions; the grammar has %v productions", gram.ProductionCount()-1)
	}

	p := &Parser{
		gram:    gram,
		actions: actions,
	}
	for _, opt := range opts {
		err := opt(p)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Parse pulls tokens from the stream and returns the value the start symbol
// reduced to. Syntax errors go through the recovery machinery and are
// collected; Parse returns ErrAborted only when recovery failed for good.
// An error returned by a semantic action or by the token stream propagates
// unchanged and leaves the parser unusable until the next Parse call.
func (p *Parser) Parse(ts TokenStream) (any, error) {
	p.ts = ts
	p.frames = p.frames[:0]
	p.frames = append(p.frames, frame{state: p.gram.InitialState()})
	p.pushback = p.pushback[:0]
	p.synErrs = nil
	p.errorCount = 0
	p.errOK = false
	p.restarted = false
	p.lastLine = 1

	var lookahead *lexer.Token
	for {
		state := p.top().state

		if prod, ok := p.gram.DefaultReduce(state); ok && !p.noDefaultReduce {
			raised, err := p.reduce(prod)
			if err != nil {
				return nil, err
			}
			if raised {
				lookahead = p.raiseSyntaxError(lookahead)
			}
			continue
		}

		if lookahead == nil {
			tok, err := p.nextToken()
			if err != nil {
				return nil, err
			}
			lookahead = tok
		}

		act := 0
		if term, ok := p.gram.TerminalOf(lookahead.Kind); ok {
			act = p.gram.Action(state, term)
		}

		switch {
		case act < 0: // Shift
			p.shift(act*-1, lookahead)
			lookahead = nil
		case act > 0: // Reduce
			prod := act - 1
			if prod == p.gram.StartProduction() {
				return p.top().value, nil
			}
			raised, err := p.reduce(prod)
			if err != nil {
				return nil, err
			}
			if raised {
				lookahead = p.raiseSyntaxError(lookahead)
			}
		default: // Error
			var abort bool
			lookahead, abort = p.recover(lookahead)
			if abort {
				return nil, ErrAborted
			}
		}
	}
}

// ErrOK clears the error state: the suppression window ends immediately and
// the parser resumes as if no error had occurred. Intended for the error
// handler, and usable from a semantic action of an error production.
func (p *Parser) ErrOK() {
	p.errOK = true
	p.errorCount = 0
}

// Restart discards the whole stack and continues parsing from the initial
// state. Intended for the error handler.
func (p *Parser) Restart() {
	p.restarted = true
}

// SyntaxErrors lists the syntax errors found during the last Parse call.
func (p *Parser) SyntaxErrors() []*SyntaxError {
	return p.synErrs
}

func (p *Parser) nextToken() (*lexer.Token, error) {
	if n := len(p.pushback); n > 0 {
		tok := p.pushback[n-1]
		p.pushback = p.pushback[:n-1]
		return tok, nil
	}

	tok, err := p.ts.Next()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return &lexer.Token{
			Kind: spec.SymbolNameEOF,
			Line: p.lastLine,
		}, nil
	}
	p.lastLine = tok.Line
	return tok, nil
}

func (p *Parser) shift(nextState int, tok *lexer.Token) {
	if p.errorCount > 0 {
		p.errorCount--
	}

	end := tok.Offset
	if s, ok := tok.Value.(string); ok {
		end += len(s)
	}
	p.frames = append(p.frames, frame{
		state:     nextState,
		kind:      tok.Kind,
		value:     tok.Value,
		line:      tok.Line,
		endLine:   tok.Line,
		offset:    tok.Offset,
		endOffset: end,
	})
}

// reduce pops the production's RHS and pushes the GOTO state carrying the
// action's result. The RHS frames stay on the stack while the action runs so
// that negative indices can peek below the production. raised reports that
// the action returned ErrSyntax.
func (p *Parser) reduce(prod int) (raised bool, err error) {
	n := p.gram.RHSLen(prod)
	base := len(p.frames) - n

	c := &Context{
		p:    p,
		base: base,
		n:    n,
	}
	if p.trackPositions {
		if n > 0 {
			first, last := &p.frames[base], &p.frames[len(p.frames)-1]
			c.spanLine = first.line
			c.spanEndLine = last.endLine
			c.spanOffset = first.offset
			c.spanEndOffset = last.endOffset
		} else {
			prev := &p.frames[base-1]
			c.spanLine = prev.endLine
			c.spanEndLine = prev.endLine
			c.spanOffset = prev.endOffset
			c.spanEndOffset = prev.endOffset
		}
	}

	if act := p.actionFor(prod); act != nil {
		err := act(c)
		if err != nil {
			if errors.Is(err, ErrSyntax) {
				if n > 0 {
					p.frames = p.frames[:len(p.frames)-1]
				}
				return true, nil
			}
			return false, err
		}
	}

	lhs := p.gram.LHS(prod)
	p.frames = p.frames[:base]
	gotoState, ok := p.gram.GoTo(p.top().state, lhs)
	if !ok {
		return false, fmt.Errorf("GOTO entry not found; state: %v, non-terminal: %v", p.top().state, p.gram.NonTerminalName(lhs))
	}
	p.frames = append(p.frames, frame{
		state:     gotoState,
		kind:      p.gram.NonTerminalName(lhs),
		value:     c.result,
		line:      c.spanLine,
		endLine:   c.spanEndLine,
		offset:    c.spanOffset,
		endOffset: c.spanEndOffset,
	})

	return false, nil
}

func (p *Parser) actionFor(prod int) SemanticAction {
	i := prod - 1
	if i < 0 || i >= len(p.actions) {
		return nil
	}
	return p.actions[i]
}

// raiseSyntaxError enters recovery on behalf of a semantic action that
// returned ErrSyntax: the current lookahead is pushed back and the error
// terminal takes its place, as if the production's last symbol had failed to
// parse. The error handler is not invoked.
func (p *Parser) raiseSyntaxError(lookahead *lexer.Token) *lexer.Token {
	p.errorCount = errorShiftWindow
	p.errOK = false
	if lookahead != nil {
		p.pushback = append(p.pushback, lookahead)
	}
	top := p.top()
	return &lexer.Token{
		Kind:   spec.SymbolNameError,
		Line:   top.line,
		Offset: top.offset,
	}
}

// recover runs the yacc-style error recovery machinery and returns the next
// lookahead, or abort when the input ended while still recovering.
func (p *Parser) recover(lookahead *lexer.Token) (*lexer.Token, bool) {
	if p.errorCount == 0 {
		errTok := lookahead
		se := &SyntaxError{
			Line:     lookahead.Line,
			Offset:   lookahead.Offset,
			Expected: p.gram.ExpectedTerminals(p.top().state),
		}
		if lookahead.Kind == spec.SymbolNameEOF {
			errTok = nil
		} else {
			se.Token = lookahead
		}
		p.synErrs = append(p.synErrs, se)
		p.errorCount = errorShiftWindow

		if p.onSyntaxError != nil {
			p.errOK = false
			p.restarted = false
			rep := p.onSyntaxError(p, errTok)
			if p.errOK {
				// The handler cleared the error state; parsing resumes
				// with the same or the replacement lookahead.
				p.errOK = false
				p.errorCount = 0
				if rep != nil {
					return rep, false
				}
				return lookahead, false
			}
			if p.restarted {
				p.restarted = false
				p.frames = p.frames[:1]
				p.pushback = p.pushback[:0]
				return nil, false
			}
			if rep != nil {
				return rep, false
			}
		}
	} else {
		p.errorCount = errorShiftWindow
	}

	if len(p.frames) == 1 && lookahead.Kind != spec.SymbolNameEOF {
		// The stack unwound all the way without an error-trapping state.
		// Best effort: restart from the initial state and discard the
		// offending token.
		p.pushback = p.pushback[:0]
		return nil, false
	}

	if lookahead.Kind == spec.SymbolNameEOF {
		return nil, true
	}

	if lookahead.Kind != spec.SymbolNameError {
		if p.top().kind == spec.SymbolNameError {
			// The error terminal was already shifted; discard input
			// tokens until one can be shifted again.
			return nil, false
		}

		// The offending token is kept for a retry once the error
		// terminal has been shifted.
		p.pushback = append(p.pushback, lookahead)
		return &lexer.Token{
			Kind:   spec.SymbolNameError,
			Value:  lookahead,
			Line:   lookahead.Line,
			Offset: lookahead.Offset,
		}, false
	}

	// The error terminal itself cannot be shifted here: pop one frame and
	// retry one state further down.
	p.frames = p.frames[:len(p.frames)-1]
	return lookahead, false
}

func (p *Parser) top() *frame {
	return &p.frames[len(p.frames)-1]
}
