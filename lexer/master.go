package lexer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	verr "github.com/maloki/goply/error"
)

// CompileFlag selects how rule patterns are compiled. The default is
// FlagVerbose alone; a caller overriding the flags replaces the whole set and
// must re-include FlagVerbose explicitly to keep it.
type CompileFlag uint

const (
	// FlagVerbose ignores unescaped whitespace and #-comments inside
	// patterns, outside character classes.
	FlagVerbose CompileFlag = 1 << iota

	FlagCaseInsensitive
	FlagDotAll
	FlagMultiLine
)

// masterGroup ties one alternative of a master pattern to its rule. subexp is
// the index of the named capture group wrapping the rule's pattern.
type masterGroup struct {
	subexp int
	kind   string
	action Action
}

// masterPattern is the single compiled pattern for one lexer state. Each rule
// is wrapped in a named capture group, so one match locates the next token
// and the winning group identifies its kind.
type masterPattern struct {
	re     *regexp.Regexp
	groups []*masterGroup
}

// winner returns the group that captured in the given submatch index vector.
// The alternation is leftmost-first, so exactly one top-level group captures;
// the first one found is it.
func (m *masterPattern) winner(loc []int) *masterGroup {
	for _, g := range m.groups {
		if loc[2*g.subexp] >= 0 {
			return g
		}
	}
	return nil
}

type compiledRule struct {
	kind    string
	pattern string // after verbose stripping
	action  Action
	subexps int // capture groups inside the pattern itself
	declIdx int
}

// assembleMasters builds one master pattern per lexer state, honoring the
// ordering discipline: action rules in declaration order, then plain rules by
// decreasing pattern length, then (at scan time) literals.
func assembleMasters(rs *RuleSet, states map[string]*stateInfo, kinds map[string]struct{}, flags CompileFlag) (map[string]*masterPattern, verr.SpecErrors) {
	var errs verr.SpecErrors

	perState := map[string][]*compiledRule{}
	seen := map[string]map[string]struct{}{} // state → kinds declared there
	for i := range rs.Rules {
		r := &rs.Rules[i]

		if _, declared := kinds[r.Kind]; !declared {
			errs = append(errs, &verr.SpecError{
				Cause:  fmt.Errorf("rule is defined for undeclared token %v", r.Kind),
				Detail: r.Kind,
			})
			continue
		}

		cr, err := compileRule(r, flags)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cr.declIdx = i

		ruleStates := r.States
		if len(ruleStates) == 0 {
			ruleStates = []string{StateInitial}
		}
		bad := false
		for _, name := range ruleStates {
			if _, ok := states[name]; !ok {
				errs = append(errs, &verr.SpecError{
					Cause:  fmt.Errorf("rule %v names undeclared state %v", r.Kind, name),
					Detail: name,
				})
				bad = true
			}
		}
		if bad {
			continue
		}
		for _, name := range ruleStates {
			if seen[name] == nil {
				seen[name] = map[string]struct{}{}
			}
			if _, dup := seen[name][r.Kind]; dup {
				errs = append(errs, &verr.SpecError{
					Cause:  fmt.Errorf("token %v has multiple rules in state %v", r.Kind, name),
					Detail: r.Kind,
				})
				continue
			}
			seen[name][r.Kind] = struct{}{}
			perState[name] = append(perState[name], cr)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	masters := map[string]*masterPattern{}
	for name, info := range states {
		ruleList := orderRules(perState[name])
		if info.mode == StateInclusive && name != StateInitial {
			ruleList = append(ruleList, orderRules(perState[StateInitial])...)
		}
		if len(ruleList) == 0 {
			errs = append(errs, &verr.SpecError{
				Cause:  fmt.Errorf("state %v has no rules", name),
				Detail: name,
			})
			continue
		}

		m, err := compileMaster(ruleList, flags)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		masters[name] = m
	}
	if len(errs) > 0 {
		return nil, errs
	}

	return masters, nil
}

// orderRules applies the per-state ordering: rules carrying an action first,
// in declaration order, then plain rules sorted by decreasing pattern length.
func orderRules(rules []*compiledRule) []*compiledRule {
	var withAction, plain []*compiledRule
	for _, r := range rules {
		if r.action != nil {
			withAction = append(withAction, r)
		} else {
			plain = append(plain, r)
		}
	}
	sort.SliceStable(withAction, func(i, j int) bool {
		return withAction[i].declIdx < withAction[j].declIdx
	})
	sort.SliceStable(plain, func(i, j int) bool {
		return len(plain[i].pattern) > len(plain[j].pattern)
	})
	return append(withAction, plain...)
}

func compileRule(r *Rule, flags CompileFlag) (*compiledRule, *verr.SpecError) {
	if r.Pattern == "" {
		return nil, &verr.SpecError{
			Cause:  fmt.Errorf("rule for token %v has no pattern", r.Kind),
			Detail: r.Kind,
		}
	}

	pat := r.Pattern
	if flags&FlagVerbose != 0 {
		pat = stripVerbose(pat)
	}

	re, err := regexp.Compile(flagPrefix(flags) + pat)
	if err != nil {
		return nil, &verr.SpecError{
			Cause:  fmt.Errorf("invalid regular expression for token %v: %v", r.Kind, err),
			Detail: r.Pattern,
		}
	}
	if re.MatchString("") {
		return nil, &verr.SpecError{
			Cause:  fmt.Errorf("regular expression for token %v matches the empty string", r.Kind),
			Detail: r.Pattern,
		}
	}

	return &compiledRule{
		kind:    r.Kind,
		pattern: pat,
		action:  r.Action,
		subexps: re.NumSubexp(),
	}, nil
}

func compileMaster(rules []*compiledRule, flags CompileFlag) (*masterPattern, *verr.SpecError) {
	var b strings.Builder
	b.WriteString(flagPrefix(flags))
	b.WriteString(`\A(?:`)
	groups := make([]*masterGroup, len(rules))
	subexp := 1
	for i, r := range rules {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "(?P<%v>%v)", r.kind, r.pattern)
		groups[i] = &masterGroup{
			subexp: subexp,
			kind:   r.kind,
			action: r.action,
		}
		subexp += 1 + r.subexps
	}
	b.WriteByte(')')

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, &verr.SpecError{
			Cause: fmt.Errorf("failed to combine the patterns: %v", err),
		}
	}

	return &masterPattern{
		re:     re,
		groups: groups,
	}, nil
}

func flagPrefix(flags CompileFlag) string {
	var fs []byte
	if flags&FlagCaseInsensitive != 0 {
		fs = append(fs, 'i')
	}
	if flags&FlagDotAll != 0 {
		fs = append(fs, 's')
	}
	if flags&FlagMultiLine != 0 {
		fs = append(fs, 'm')
	}
	if len(fs) == 0 {
		return ""
	}
	return "(?" + string(fs) + ")"
}

// stripVerbose removes unescaped whitespace and #-comments from a pattern.
// The host engine has no verbose mode of its own, so the equivalent behavior
// is synthesized before compiling. Character classes and escapes are kept
// intact.
func stripVerbose(pat string) string {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(pat); i++ {
		c := pat[i]
		switch {
		case c == '\\' && i+1 < len(pat):
			b.WriteByte(c)
			b.WriteByte(pat[i+1])
			i++
		case inClass:
			b.WriteByte(c)
			if c == ']' {
				inClass = false
			}
		case c == '[':
			b.WriteByte(c)
			inClass = true
		case c == '#':
			for i+1 < len(pat) && pat[i+1] != '\n' {
				i++
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			// dropped
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
