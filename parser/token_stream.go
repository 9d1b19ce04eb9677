package parser

import "github.com/maloki/goply/lexer"

// TokenStream supplies tokens to the parsing engine. Next returns nil at the
// end of the input; the engine synthesizes the EOF terminal from it.
// *lexer.Lexer satisfies the interface.
type TokenStream interface {
	Next() (*lexer.Token, error)
}
