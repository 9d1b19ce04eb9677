package grammar

import "fmt"

type stateAndItem struct {
	state *lrState
	item  *lrItem
}

type propagation struct {
	src  stateAndItem
	dest []stateAndItem
}

// genLALR1LookAheads attaches LALR(1) lookahead sets to every reducible item
// of the LR(0) automaton using the discover-spontaneous/propagate method:
// the closure of each kernel item annotated with a fresh sentinel yields the
// spontaneously generated lookaheads and the propagation edges, then the
// edges are iterated to a fixpoint.
func genLALR1LookAheads(lr0 *lr0Automaton, first *firstSet) error {
	// The look-ahead of the initial item [S' →・S] is the EOF symbol.
	iniState := lr0.states[lr0.initialState]
	iniState.las[iniState.items[0]][symbolEOF] = struct{}{}

	var props []*propagation
	for _, state := range lr0.stateList {
		for _, kItem := range state.items {
			closure := genLALR1Closure(kItem, first)

			var dests []stateAndItem
			for _, cItem := range closure {
				if cItem.item.reducible {
					// The source item's own lookaheads live in the
					// kernel entry already; a self edge would be a no-op.
					if cItem.item == kItem {
						continue
					}

					tgt, ok := state.las[cItem.item]
					if !ok {
						return fmt.Errorf("reducible item not found; state: %v, production: %v", state.num, cItem.item.prod.num)
					}
					for a := range cItem.las {
						tgt[a] = struct{}{}
					}
					if cItem.prop {
						dests = append(dests, stateAndItem{state: state, item: cItem.item})
					}
					continue
				}

				nextState, ok := lr0.states[state.next[cItem.item.dottedSymbol]]
				if !ok {
					return fmt.Errorf("a transition was not found; state: %v, symbol: %v", state.num, cItem.item.dottedSymbol)
				}
				succ := cItem.item.next

				if cItem.prop {
					dests = append(dests, stateAndItem{state: nextState, item: succ})
				} else {
					tgt, ok := nextState.las[succ]
					if !ok {
						return fmt.Errorf("kernel item not found; state: %v", nextState.num)
					}
					for a := range cItem.las {
						tgt[a] = struct{}{}
					}
				}
			}
			if len(dests) == 0 {
				continue
			}

			props = append(props, &propagation{
				src:  stateAndItem{state: state, item: kItem},
				dest: dests,
			})
		}
	}

	propagateLookAhead(props)

	return nil
}

// la1Item annotates an interned LR(0) item with either concrete lookahead
// symbols or the propagation sentinel.
type la1Item struct {
	item *lrItem
	las  map[symbol]struct{}
	prop bool
}

func genLALR1Closure(srcItem *lrItem, first *firstSet) []*la1Item {
	src := &la1Item{
		item: srcItem,
		prop: true,
	}
	items := []*la1Item{src}
	knownItems := map[int]map[symbol]struct{}{}
	knownItemsProp := map[int]struct{}{
		srcItem.idx: {},
	}
	uncheckedItems := []*la1Item{src}
	for len(uncheckedItems) > 0 {
		nextUncheckedItems := []*la1Item{}
		for _, item := range uncheckedItems {
			if len(item.item.after) == 0 {
				continue
			}

			fstTerms, fstNullable := first.after(item.item)

			for _, prod := range item.item.after {
				headItem := prod.items[0]

				for a := range fstTerms {
					if known := knownItems[headItem.idx]; known != nil {
						if _, exist := known[a]; exist {
							continue
						}
					}
					newItem := &la1Item{
						item: headItem,
						las:  map[symbol]struct{}{a: {}},
					}
					items = append(items, newItem)
					if knownItems[headItem.idx] == nil {
						knownItems[headItem.idx] = map[symbol]struct{}{}
					}
					knownItems[headItem.idx][a] = struct{}{}
					nextUncheckedItems = append(nextUncheckedItems, newItem)
				}

				if !fstNullable {
					continue
				}

				// β is nullable, so the source item's lookaheads flow
				// through: concrete ones spread now, the sentinel records
				// a propagation edge.
				for a := range item.las {
					if known := knownItems[headItem.idx]; known != nil {
						if _, exist := known[a]; exist {
							continue
						}
					}
					newItem := &la1Item{
						item: headItem,
						las:  map[symbol]struct{}{a: {}},
					}
					items = append(items, newItem)
					if knownItems[headItem.idx] == nil {
						knownItems[headItem.idx] = map[symbol]struct{}{}
					}
					knownItems[headItem.idx][a] = struct{}{}
					nextUncheckedItems = append(nextUncheckedItems, newItem)
				}
				if item.prop {
					if _, exist := knownItemsProp[headItem.idx]; !exist {
						newItem := &la1Item{
							item: headItem,
							prop: true,
						}
						items = append(items, newItem)
						knownItemsProp[headItem.idx] = struct{}{}
						nextUncheckedItems = append(nextUncheckedItems, newItem)
					}
				}
			}
		}
		uncheckedItems = nextUncheckedItems
	}

	return items
}

func propagateLookAhead(props []*propagation) {
	for {
		changed := false
		for _, prop := range props {
			srcLas := prop.src.state.las[prop.src.item]
			for _, dest := range prop.dest {
				destLas := dest.state.las[dest.item]
				for a := range srcLas {
					if _, ok := destLas[a]; ok {
						continue
					}
					destLas[a] = struct{}{}
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
}
