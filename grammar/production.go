package grammar

import (
	"strconv"
	"strings"
)

type productionNum int

const productionNumStart = productionNum(0)

func (n productionNum) Int() int {
	return int(n)
}

// production is one grammar rule. Productions are numbered densely in
// declaration order with the augmented rule S' → start always number 0, so
// the number also orders reduce/reduce conflict resolution. The precedence
// level and associativity are attached at build time, inherited from the
// rightmost terminal of the RHS or forced by a %prec override; level 0
// means none.
type production struct {
	num productionNum
	lhs symbol
	rhs []symbol

	precLevel int
	precAssoc assocType

	// items is the production's LR-item chain, one item per dot position,
	// attached by genLRItems.
	items []*lrItem
}

// productionKey encodes the symbol sequence of an alternative. Symbols are
// signed numbers, so the joined form is unambiguous.
func productionKey(lhs symbol, rhs []symbol) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(lhs)))
	b.WriteByte(':')
	for i, sym := range rhs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(sym)))
	}
	return b.String()
}

// productionSet owns the productions of one grammar, numbered densely.
// Slot 0 stays reserved for the augmented rule until it is appended.
type productionSet struct {
	byNum []*production
	byLHS map[symbol][]*production
	keys  map[string]struct{}
}

func newProductionSet() *productionSet {
	return &productionSet{
		byNum: make([]*production, 1),
		byLHS: map[symbol][]*production{},
		keys:  map[string]struct{}{},
	}
}

// append numbers and registers an alternative. It reports false for a
// duplicate.
func (ps *productionSet) append(lhs symbol, rhs []symbol) (*production, bool) {
	key := productionKey(lhs, rhs)
	if _, dup := ps.keys[key]; dup {
		return nil, false
	}
	ps.keys[key] = struct{}{}

	prod := &production{
		lhs: lhs,
		rhs: rhs,
	}
	if lhs.isStart() {
		prod.num = productionNumStart
		ps.byNum[productionNumStart] = prod
	} else {
		prod.num = productionNum(len(ps.byNum))
		ps.byNum = append(ps.byNum, prod)
	}
	ps.byLHS[lhs] = append(ps.byLHS[lhs], prod)

	return prod, true
}

func (ps *productionSet) findByNum(num productionNum) (*production, bool) {
	if int(num) >= len(ps.byNum) || ps.byNum[num] == nil {
		return nil, false
	}
	return ps.byNum[num], true
}

func (ps *productionSet) findByLHS(lhs symbol) ([]*production, bool) {
	if lhs.isNil() {
		return nil, false
	}

	prods, ok := ps.byLHS[lhs]
	return prods, ok
}

func (ps *productionSet) all() []*production {
	return ps.byNum
}

func (ps *productionSet) count() int {
	return len(ps.byNum)
}
