package spec

// Reserved symbol names. The error terminal drives the parser's recovery
// machinery; the EOF terminal marks the end of the input. Neither may be
// declared by a grammar.
const (
	SymbolNameError = "error"
	SymbolNameEOF   = "$end"
)

const (
	AssocLeft     = "left"
	AssocRight    = "right"
	AssocNonAssoc = "nonassoc"
)

// PrecedenceLevel declares one precedence level. Levels are listed from
// lowest to highest; every terminal in a level shares its associativity.
// A terminal here need not be a declared token: fictitious terminals exist
// only to be named by a %prec override.
type PrecedenceLevel struct {
	Assoc     string   `json:"assoc"`
	Terminals []string `json:"terminals"`
}

// ProductionSpec is one grammar production. RHS entries name declared tokens,
// nonterminals (anything appearing as some LHS), the reserved error terminal,
// or single-quoted character literals like `'+'`. A character literal is a
// terminal of its own, distinct from any named token for the same character.
type ProductionSpec struct {
	LHS string   `json:"lhs"`
	RHS []string `json:"rhs"`

	// Prec names a terminal whose precedence the production assumes,
	// overriding the default taken from the rightmost terminal of the RHS.
	Prec string `json:"prec,omitempty"`

	// Row and Col locate the production in whatever source the
	// surrounding layer read it from. Used only in diagnostics.
	Row int `json:"row,omitempty"`
	Col int `json:"col,omitempty"`
}

// GrammarSpec is the materialized grammar description a parser is built
// from. Semantic actions are not part of the record: the parsing engine
// receives them positionally, aligned with Productions.
type GrammarSpec struct {
	Name   string   `json:"name,omitempty"`
	Tokens []string `json:"tokens"`

	// Start names the start nonterminal. It defaults to the LHS of the
	// first production.
	Start string `json:"start,omitempty"`

	Precedence  []*PrecedenceLevel `json:"precedence,omitempty"`
	Productions []*ProductionSpec  `json:"productions"`
}
