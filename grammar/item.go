package grammar

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// lrItem is a production with a dot position. Items are allocated once per
// grammar in an arena and addressed by index, so the cyclic links between
// items and productions carry no ownership: every state and kernel refers to
// the same interned item objects.
//
// E → E + T
//
// Dot | Dotted Symbol | Item
// ----+---------------+------------
// 0   | E             | E →・E + T
// 1   | +             | E → E・+ T
// 2   | T             | E → E +・T
// 3   | Nil           | E → E + T・
type lrItem struct {
	idx  int
	prod *production
	dot  int

	// dottedSymbol is the symbol immediately right of the dot, or nil for
	// a reducible item.
	dottedSymbol symbol

	// before is the symbol immediately left of the dot, or nil at dot 0.
	before symbol

	// next is the item with the dot advanced by one, or nil.
	next *lrItem

	// after lists the productions of the dotted symbol when it is a
	// non-terminal. Closures expand through these links.
	after []*production

	// When initial is true, the item is S' →・S.
	initial bool

	// When reducible is true, the item looks like E → E + T・.
	reducible bool

	// When kernel is true, the item is a kernel item.
	kernel bool
}

type itemArena struct {
	items []*lrItem
}

// genLRItems builds the per-production item chains for every production and
// interns them in an arena.
func genLRItems(prods *productionSet) (*itemArena, error) {
	arena := &itemArena{}
	for _, prod := range prods.all() {
		if prod == nil {
			return nil, fmt.Errorf("production numbers must be dense")
		}

		rhsLen := len(prod.rhs)
		chain := make([]*lrItem, rhsLen+1)
		for dot := 0; dot <= rhsLen; dot++ {
			item := &lrItem{
				idx:  len(arena.items),
				prod: prod,
				dot:  dot,
			}
			if dot < rhsLen {
				item.dottedSymbol = prod.rhs[dot]
				if item.dottedSymbol.isNonTerminal() {
					ps, ok := prods.findByLHS(item.dottedSymbol)
					if !ok {
						return nil, fmt.Errorf("no production is defined for a non-terminal: %v", item.dottedSymbol)
					}
					item.after = ps
				}
			}
			if dot > 0 {
				item.before = prod.rhs[dot-1]
			}
			item.initial = prod.lhs.isStart() && dot == 0
			item.reducible = dot == rhsLen
			item.kernel = item.initial || dot > 0

			arena.items = append(arena.items, item)
			chain[dot] = item
		}
		for dot := 0; dot < rhsLen; dot++ {
			chain[dot].next = chain[dot+1]
		}
		prod.items = chain
	}

	return arena, nil
}

type kernelID string

type kernel struct {
	id    kernelID
	items []*lrItem
}

// newKernel dedupes and sorts the items by arena index. Item identity is
// cheap because items are interned, so the kernel ID is just the joined
// index list.
func newKernel(items []*lrItem) (*kernel, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("a kernel needs at least one item")
	}

	uniq := map[int]*lrItem{}
	for _, item := range items {
		if !item.kernel {
			return nil, fmt.Errorf("not a kernel item: %v (dot: %v)", item.prod.num, item.dot)
		}
		uniq[item.idx] = item
	}
	sorted := make([]*lrItem, 0, len(uniq))
	for _, item := range uniq {
		sorted = append(sorted, item)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].idx < sorted[j].idx
	})

	var b strings.Builder
	for i, item := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(item.idx))
	}

	return &kernel{
		id:    kernelID(b.String()),
		items: sorted,
	}, nil
}

type stateNum int

const stateNumInitial = stateNum(0)

func (n stateNum) Int() int {
	return int(n)
}

func (n stateNum) String() string {
	return strconv.Itoa(int(n))
}

func (n stateNum) next() stateNum {
	return stateNum(n + 1)
}

type lrState struct {
	*kernel
	num  stateNum
	next map[symbol]kernelID

	// reducible lists the items the state may reduce by: the reducible
	// kernel items plus the closure items of empty productions.
	reducible []*lrItem

	// las holds the LALR(1) lookahead sets, keyed by interned item. The
	// keys are the kernel items and the reducible closure items.
	las map[*lrItem]map[symbol]struct{}

	// isErrorTrapper is true when an item has the dot in front of the
	// error symbol.
	isErrorTrapper bool
}
