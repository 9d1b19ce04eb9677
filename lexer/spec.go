package lexer

import (
	"fmt"

	verr "github.com/maloki/goply/error"
)

// StateInitial is the name of the default lexer state. Rules that name no
// state belong to it.
const StateInitial = "INITIAL"

const (
	reservedKindError = "error"
	reservedKindEOF   = "$end"
)

type StateMode string

const (
	// StateInclusive makes a state fall back to the INITIAL rules: the
	// state's master pattern contains its own rules followed by the INITIAL
	// rules.
	StateInclusive = StateMode("inclusive")

	// StateExclusive restricts a state to its own rules only.
	StateExclusive = StateMode("exclusive")
)

type StateDef struct {
	Name string
	Mode StateMode
}

// Action runs when a rule matched. The lexer passes itself and the freshly
// built token. The action may reassign Kind and Value, change the lexer
// state, or call Skip/More. Returning a nil token discards the match and
// scanning continues.
type Action func(l *Lexer, tok *Token) (*Token, error)

// Rule binds a token kind to a regular expression. Rules with an action are
// tried in declaration order before all plain-pattern rules; plain-pattern
// rules are ordered by decreasing pattern length so that, say, `==` cannot
// be shadowed by `=`.
type Rule struct {
	Kind    string
	Pattern string
	Action  Action

	// States lists the lexer states the rule belongs to. An empty list
	// means INITIAL.
	States []string
}

// ErrorHook is called when no rule matches at the cursor. tok.Value holds the
// unmatched remainder of the input. The hook must advance the cursor (usually
// via Lexer.Skip) or return a token of its own; otherwise scanning aborts.
type ErrorHook func(l *Lexer, tok *Token) *Token

// EOFHook is called when the cursor reaches the end of the input. A non-empty
// return value is appended to the input and scanning continues. Line numbers
// are never reset by a refill.
type EOFHook func(l *Lexer) string

// RuleSet is the materialized lexical specification a Lexer is built from.
// How the rules were discovered is the surrounding program's concern.
type RuleSet struct {
	// Tokens declares every token kind a rule may produce.
	Tokens []string

	// Literals declares single-character terminals. They are tried only
	// after every named pattern failed, and yield a token whose kind is
	// the character itself.
	Literals string

	Rules []Rule

	// Ignore maps a state name to characters skipped silently in that
	// state. Inclusive states without an entry inherit the INITIAL set.
	Ignore map[string]string

	States []StateDef

	OnError ErrorHook
	OnEOF   EOFHook
}

type stateInfo struct {
	mode   StateMode
	ignore string
}

// resolveStates validates the state declarations and returns the full state
// map including INITIAL.
func (rs *RuleSet) resolveStates() (map[string]*stateInfo, verr.SpecErrors) {
	var errs verr.SpecErrors

	states := map[string]*stateInfo{
		StateInitial: {mode: StateInclusive},
	}
	for _, sd := range rs.States {
		if sd.Name == "" {
			errs = append(errs, &verr.SpecError{
				Cause: fmt.Errorf("a state name must not be empty"),
			})
			continue
		}
		if _, declared := states[sd.Name]; declared && sd.Name != StateInitial {
			errs = append(errs, &verr.SpecError{
				Cause:  fmt.Errorf("state %v is declared twice", sd.Name),
				Detail: sd.Name,
			})
			continue
		}
		if sd.Mode != StateInclusive && sd.Mode != StateExclusive {
			errs = append(errs, &verr.SpecError{
				Cause:  fmt.Errorf("state %v must be either inclusive or exclusive", sd.Name),
				Detail: string(sd.Mode),
			})
			continue
		}
		states[sd.Name] = &stateInfo{mode: sd.Mode}
	}

	for name, chars := range rs.Ignore {
		info, ok := states[name]
		if !ok {
			errs = append(errs, &verr.SpecError{
				Cause:  fmt.Errorf("ignore characters are defined for undeclared state %v", name),
				Detail: name,
			})
			continue
		}
		info.ignore = chars
	}
	// Inclusive states fall back to the INITIAL ignore set.
	if ini, ok := states[StateInitial]; ok {
		for name, info := range states {
			if name == StateInitial || info.mode != StateInclusive {
				continue
			}
			if _, explicit := rs.Ignore[name]; !explicit {
				info.ignore = ini.ignore
			}
		}
	}

	return states, errs
}

func (rs *RuleSet) checkTokens() (map[string]struct{}, verr.SpecErrors) {
	var errs verr.SpecErrors

	kinds := map[string]struct{}{}
	for _, t := range rs.Tokens {
		if t == reservedKindError || t == reservedKindEOF {
			errs = append(errs, &verr.SpecError{
				Cause:  fmt.Errorf("token name %v is reserved", t),
				Detail: t,
			})
			continue
		}
		if _, dup := kinds[t]; dup {
			errs = append(errs, &verr.SpecError{
				Cause:  fmt.Errorf("token %v is declared twice", t),
				Detail: t,
			})
			continue
		}
		kinds[t] = struct{}{}
	}

	return kinds, errs
}
