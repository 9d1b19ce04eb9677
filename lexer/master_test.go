package lexer

import (
	"strings"
	"testing"
)

func TestStripVerbose(t *testing.T) {
	tests := []struct {
		caption string
		pattern string
		want    string
	}{
		{
			caption: "unescaped whitespace is dropped",
			pattern: `\d+ (\. \d+)?`,
			want:    `\d+(\.\d+)?`,
		},
		{
			caption: "comments run to the end of the line",
			pattern: "\\d+  # digits\n\\.",
			want:    `\d+\.`,
		},
		{
			caption: "whitespace inside a character class is kept",
			pattern: `[ \t]+`,
			want:    `[ \t]+`,
		},
		{
			caption: "escaped whitespace is kept",
			pattern: `a\ b`,
			want:    `a\ b`,
		},
		{
			caption: "a hash inside a character class is not a comment",
			pattern: `[#x] y`,
			want:    `[#x]y`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			got := stripVerbose(tt.pattern)
			if got != tt.want {
				t.Fatalf("unexpected pattern; want: %v, got: %v", tt.want, got)
			}
		})
	}
}

func TestAssembleMasters_Ordering(t *testing.T) {
	// The rule for EQ must not be masked by the shorter ASSIGN rule, and
	// the action rules must come first in declaration order.
	rs := &RuleSet{
		Tokens: []string{"ID", "NUMBER", "ASSIGN", "EQ"},
		Rules: []Rule{
			{Kind: "ID", Pattern: `[A-Za-z_]\w*`, Action: func(l *Lexer, tok *Token) (*Token, error) {
				return tok, nil
			}},
			{Kind: "ASSIGN", Pattern: `=`},
			{Kind: "EQ", Pattern: `==`},
			{Kind: "NUMBER", Pattern: `\d+`},
		},
		Ignore: map[string]string{StateInitial: " "},
	}
	l, err := NewLexer(rs)
	if err != nil {
		t.Fatal(err)
	}

	m := l.masters[StateInitial]
	var kinds []string
	for _, g := range m.groups {
		kinds = append(kinds, g.kind)
	}
	want := []string{"ID", "NUMBER", "EQ", "ASSIGN"}
	if strings.Join(kinds, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected rule order; want: %v, got: %v", want, kinds)
	}

	l.Feed("a == 1")
	var seq []string
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatal(err)
		}
		if tok == nil {
			break
		}
		seq = append(seq, tok.Kind)
	}
	wantSeq := []string{"ID", "EQ", "NUMBER"}
	if strings.Join(seq, " ") != strings.Join(wantSeq, " ") {
		t.Fatalf("unexpected token sequence; want: %v, got: %v", wantSeq, seq)
	}
}

func TestAssembleMasters_GroupIndexes(t *testing.T) {
	// Patterns containing their own capture groups must not throw off the
	// winning-group bookkeeping.
	rs := &RuleSet{
		Tokens: []string{"FLOAT", "INT"},
		Rules: []Rule{
			{Kind: "FLOAT", Pattern: `(\d+)\.(\d+)`},
			{Kind: "INT", Pattern: `\d+`},
		},
		Ignore: map[string]string{StateInitial: " "},
	}
	l, err := NewLexer(rs)
	if err != nil {
		t.Fatal(err)
	}

	l.Feed("12.5 7")
	tok, err := l.Next()
	if err != nil {
		t.Fatal(err)
	}
	if tok.Kind != "FLOAT" || tok.Value != "12.5" {
		t.Fatalf("unexpected token; want: FLOAT %#v, got: %v %#v", "12.5", tok.Kind, tok.Value)
	}
	tok, err = l.Next()
	if err != nil {
		t.Fatal(err)
	}
	if tok.Kind != "INT" || tok.Value != "7" {
		t.Fatalf("unexpected token; want: INT %#v, got: %v %#v", "7", tok.Kind, tok.Value)
	}
}

func TestNewLexer_ConfigErrors(t *testing.T) {
	tests := []struct {
		caption string
		ruleSet *RuleSet
	}{
		{
			caption: "duplicated token declaration",
			ruleSet: &RuleSet{
				Tokens: []string{"NUMBER", "NUMBER"},
				Rules: []Rule{
					{Kind: "NUMBER", Pattern: `\d+`},
				},
			},
		},
		{
			caption: "reserved token name",
			ruleSet: &RuleSet{
				Tokens: []string{"error"},
				Rules: []Rule{
					{Kind: "error", Pattern: `x`},
				},
			},
		},
		{
			caption: "rule for an undeclared token",
			ruleSet: &RuleSet{
				Tokens: []string{"NUMBER"},
				Rules: []Rule{
					{Kind: "NUMBER", Pattern: `\d+`},
					{Kind: "ID", Pattern: `\w+`},
				},
			},
		},
		{
			caption: "pattern that does not compile",
			ruleSet: &RuleSet{
				Tokens: []string{"NUMBER"},
				Rules: []Rule{
					{Kind: "NUMBER", Pattern: `(\d+`},
				},
			},
		},
		{
			caption: "pattern matching the empty string",
			ruleSet: &RuleSet{
				Tokens: []string{"NUMBER"},
				Rules: []Rule{
					{Kind: "NUMBER", Pattern: `\d*`},
				},
			},
		},
		{
			caption: "two rules for one token in one state",
			ruleSet: &RuleSet{
				Tokens: []string{"NUMBER"},
				Rules: []Rule{
					{Kind: "NUMBER", Pattern: `\d+`},
					{Kind: "NUMBER", Pattern: `[0-9]+`},
				},
			},
		},
		{
			caption: "rule names an undeclared state",
			ruleSet: &RuleSet{
				Tokens: []string{"NUMBER"},
				Rules: []Rule{
					{Kind: "NUMBER", Pattern: `\d+`, States: []string{"comment"}},
				},
			},
		},
		{
			caption: "ignore set for an undeclared state",
			ruleSet: &RuleSet{
				Tokens: []string{"NUMBER"},
				Rules: []Rule{
					{Kind: "NUMBER", Pattern: `\d+`},
				},
				Ignore: map[string]string{"comment": " "},
			},
		},
		{
			caption: "state declared with an invalid mode",
			ruleSet: &RuleSet{
				Tokens: []string{"NUMBER"},
				Rules: []Rule{
					{Kind: "NUMBER", Pattern: `\d+`},
				},
				States: []StateDef{
					{Name: "comment", Mode: StateMode("both")},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, err := NewLexer(tt.ruleSet)
			if err == nil {
				t.Fatal("an error must occur")
			}
		})
	}
}
