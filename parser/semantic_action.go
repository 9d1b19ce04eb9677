package parser

import "fmt"

// SemanticAction runs when a production is reduced. Returning ErrSyntax
// raises a syntax error at the last symbol of the production without
// invoking the error handler; any other non-nil error aborts the parse and
// propagates to the caller unchanged.
type SemanticAction func(c *Context) error

// Context is the read-write view over the symbols of the production being
// reduced. Index 0 is the result slot, indices 1..Len() are the RHS symbols,
// and negative indices peek at the values already on the stack to the left
// of the production, which embedded mid-rule actions use.
type Context struct {
	p    *Parser
	base int
	n    int

	result any

	spanLine      int
	spanEndLine   int
	spanOffset    int
	spanEndOffset int
}

// Len returns the number of symbols in the production's RHS.
func (c *Context) Len() int {
	return c.n
}

// Get returns the value of a symbol. Get(0) is the current result.
func (c *Context) Get(i int) any {
	if i == 0 {
		return c.result
	}
	return c.frame(i).value
}

// SetResult assigns the value the production reduces to.
func (c *Context) SetResult(v any) {
	c.result = v
}

func (c *Context) Result() any {
	return c.result
}

// Line returns the starting line of a symbol. Line(0) is the starting line
// of the whole production (meaningful when position tracking is enabled).
func (c *Context) Line(i int) int {
	if i == 0 {
		return c.spanLine
	}
	return c.frame(i).line
}

func (c *Context) EndLine(i int) int {
	if i == 0 {
		return c.spanEndLine
	}
	return c.frame(i).endLine
}

// Offset returns the starting input offset of a symbol. Offset(0) is the
// starting offset of the whole production.
func (c *Context) Offset(i int) int {
	if i == 0 {
		return c.spanOffset
	}
	return c.frame(i).offset
}

func (c *Context) EndOffset(i int) int {
	if i == 0 {
		return c.spanEndOffset
	}
	return c.frame(i).endOffset
}

func (c *Context) frame(i int) *frame {
	var idx int
	if i > 0 {
		if i > c.n {
			panic(fmt.Sprintf("symbol index %v is out of range; the production has %v symbols", i, c.n))
		}
		idx = c.base + i - 1
	} else {
		idx = c.base + i
		if idx < 1 {
			panic(fmt.Sprintf("symbol index %v reaches below the bottom of the stack", i))
		}
	}
	return &c.p.frames[idx]
}
