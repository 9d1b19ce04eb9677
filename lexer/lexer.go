package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type LexerOption func(l *Lexer) error

// Flags replaces the default compile flag set. The default is FlagVerbose
// alone; an override must re-include it to keep verbose behavior.
func Flags(flags CompileFlag) LexerOption {
	return func(l *Lexer) error {
		l.flags = flags
		return nil
	}
}

// Lexer scans an input string against the master patterns built from a
// RuleSet. The compiled patterns are immutable and shared between clones;
// the cursor, the line counter, and the state stack are per-instance.
type Lexer struct {
	masters  map[string]*masterPattern
	states   map[string]*stateInfo
	literals string
	onError  ErrorHook
	onEOF    EOFHook
	flags    CompileFlag

	src        string
	pos        int
	line       int
	stateStack []string

	moreBuf    string
	moreLine   int
	moreOffset int

	// UserState carries arbitrary user data into rule actions. Clones
	// share it; see Clone.
	UserState any
}

// NewLexer builds a lexer from a rule set. All configuration problems are
// fatal and reported before any scanning begins.
func NewLexer(rs *RuleSet, opts ...LexerOption) (*Lexer, error) {
	l := &Lexer{
		literals:   rs.Literals,
		onError:    rs.OnError,
		onEOF:      rs.OnEOF,
		flags:      FlagVerbose,
		line:       1,
		stateStack: []string{StateInitial},
	}
	for _, opt := range opts {
		err := opt(l)
		if err != nil {
			return nil, err
		}
	}

	kinds, errs := rs.checkTokens()
	states, serrs := rs.resolveStates()
	errs = append(errs, serrs...)
	if len(errs) > 0 {
		return nil, errs
	}

	masters, merrs := assembleMasters(rs, states, kinds, l.flags)
	if len(merrs) > 0 {
		return nil, merrs
	}

	l.masters = masters
	l.states = states

	return l, nil
}

// Feed resets the cursor to the start of input and the state stack to
// INITIAL. The line counter is left alone; reset it with SetLine when a new
// source begins.
func (l *Lexer) Feed(input string) {
	l.src = input
	l.pos = 0
	l.stateStack = l.stateStack[:0]
	l.stateStack = append(l.stateStack, StateInitial)
	l.moreBuf = ""
}

// Next returns the next token, or nil at the end of the input once the EOF
// hook declined to provide more.
func (l *Lexer) Next() (*Token, error) {
	for {
		if l.pos >= len(l.src) {
			if l.onEOF != nil {
				if more := l.onEOF(l); more != "" {
					l.src += more
					continue
				}
			}
			return nil, nil
		}

		state := l.State()
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if strings.ContainsRune(l.states[state].ignore, r) {
			l.pos += size
			continue
		}

		m, ok := l.masters[state]
		if !ok {
			return nil, fmt.Errorf("lexer is in undefined state %v", state)
		}
		loc := m.re.FindStringSubmatchIndex(l.src[l.pos:])
		if loc == nil {
			if strings.ContainsRune(l.literals, r) {
				tok := &Token{
					Kind:   string(r),
					Value:  string(r),
					Line:   l.line,
					Offset: l.pos,
				}
				l.pos += size
				return tok, nil
			}

			if l.onError == nil {
				return nil, fmt.Errorf("no rule matches at line %v, offset %v", l.line, l.pos)
			}
			tok := &Token{
				Kind:   reservedKindError,
				Value:  l.src[l.pos:],
				Line:   l.line,
				Offset: l.pos,
			}
			before := l.pos
			if emitted := l.onError(l, tok); emitted != nil {
				return emitted, nil
			}
			if l.pos == before {
				return nil, fmt.Errorf("scanning error at line %v, offset %v: the error hook did not advance the cursor", l.line, l.pos)
			}
			continue
		}

		g := m.winner(loc)
		text := l.src[l.pos : l.pos+loc[1]]
		line, offset := l.line, l.pos
		if l.moreBuf != "" {
			text = l.moreBuf + text
			line, offset = l.moreLine, l.moreOffset
			l.moreBuf = ""
		}
		tok := &Token{
			Kind:   g.kind,
			Value:  text,
			Line:   line,
			Offset: offset,
		}
		l.pos += loc[1]

		if g.action == nil {
			return tok, nil
		}
		emitted, err := g.action(l, tok)
		if err != nil {
			return nil, err
		}
		if emitted == nil {
			continue
		}
		return emitted, nil
	}
}

// Skip advances the cursor by n bytes without producing a token.
func (l *Lexer) Skip(n int) {
	l.pos += n
}

// More keeps the current match so that it is prepended to the next token's
// text. The action that called More usually discards its token by returning
// nil.
func (l *Lexer) More(tok *Token) {
	if l.moreBuf == "" {
		l.moreLine = tok.Line
		l.moreOffset = tok.Offset
	}
	l.moreBuf += tok.Text()
}

// State returns the name of the active lexer state.
func (l *Lexer) State() string {
	return l.stateStack[len(l.stateStack)-1]
}

// Begin replaces the active state.
func (l *Lexer) Begin(state string) error {
	if _, ok := l.states[state]; !ok {
		return fmt.Errorf("undefined lexer state %v", state)
	}
	l.stateStack[len(l.stateStack)-1] = state
	return nil
}

// PushState enters a state, remembering the previous one.
func (l *Lexer) PushState(state string) error {
	if _, ok := l.states[state]; !ok {
		return fmt.Errorf("undefined lexer state %v", state)
	}
	l.stateStack = append(l.stateStack, state)
	return nil
}

// PopState returns to the state active before the matching PushState.
func (l *Lexer) PopState() error {
	if len(l.stateStack) <= 1 {
		return fmt.Errorf("cannot pop the initial lexer state")
	}
	l.stateStack = l.stateStack[:len(l.stateStack)-1]
	return nil
}

// Line returns the current line number. The lexer never advances it on its
// own; rule actions do, via AddLines or SetLine.
func (l *Lexer) Line() int {
	return l.line
}

func (l *Lexer) SetLine(n int) {
	l.line = n
}

func (l *Lexer) AddLines(n int) {
	l.line += n
}

// Offset returns the absolute cursor position.
func (l *Lexer) Offset() int {
	return l.pos
}

// Rest returns the unscanned remainder of the input.
func (l *Lexer) Rest() string {
	return l.src[l.pos:]
}

// Clone returns a lexer sharing the compiled master patterns but with an
// independent cursor, line counter, and state stack. UserState is copied as
// is: when it holds a pointer, the clone shares the pointed-to data.
func (l *Lexer) Clone() *Lexer {
	c := *l
	c.stateStack = make([]string, len(l.stateStack))
	copy(c.stateStack, l.stateStack)
	return &c
}
