package grammar

// firstSet records, for every non-terminal, the terminals its derivations
// can begin with and whether it derives the empty string.
type firstSet struct {
	terms    map[symbol]map[symbol]struct{}
	nullable map[symbol]bool
}

// genFirstSet computes FIRST with a dependency-driven worklist: when the
// entry of a non-terminal grows, only the productions whose RHS mentions it
// are rescanned, instead of sweeping the whole grammar to a fixpoint.
func genFirstSet(prods *productionSet) *firstSet {
	f := &firstSet{
		terms:    map[symbol]map[symbol]struct{}{},
		nullable: map[symbol]bool{},
	}
	for _, prod := range prods.all() {
		if f.terms[prod.lhs] == nil {
			f.terms[prod.lhs] = map[symbol]struct{}{}
		}
	}

	dependents := map[symbol][]*production{}
	for _, prod := range prods.all() {
		for _, sym := range prod.rhs {
			if sym.isNonTerminal() {
				dependents[sym] = append(dependents[sym], prod)
			}
		}
	}

	queue := append([]*production{}, prods.all()...)
	queued := make(map[productionNum]bool, len(queue))
	for _, prod := range queue {
		queued[prod.num] = true
	}
	for len(queue) > 0 {
		prod := queue[0]
		queue = queue[1:]
		queued[prod.num] = false

		if !f.scan(prod) {
			continue
		}
		for _, dep := range dependents[prod.lhs] {
			if !queued[dep.num] {
				queued[dep.num] = true
				queue = append(queue, dep)
			}
		}
	}

	return f
}

// scan folds one production into FIRST(lhs) and reports whether the entry
// grew. The RHS contributes up to and including its first non-nullable
// symbol; a fully nullable RHS makes the LHS nullable.
func (f *firstSet) scan(prod *production) bool {
	entry := f.terms[prod.lhs]
	changed := false
	for _, sym := range prod.rhs {
		if sym.isTerminal() {
			if _, ok := entry[sym]; !ok {
				entry[sym] = struct{}{}
				changed = true
			}
			return changed
		}

		for t := range f.terms[sym] {
			if _, ok := entry[t]; !ok {
				entry[t] = struct{}{}
				changed = true
			}
		}
		if !f.nullable[sym] {
			return changed
		}
	}
	if !f.nullable[prod.lhs] {
		f.nullable[prod.lhs] = true
		changed = true
	}
	return changed
}

// after returns FIRST of the RHS remainder following the item's dotted
// symbol, plus whether that remainder is nullable. The remainder is walked
// through the item chain itself: each successor item's dotted symbol is the
// next RHS symbol. This is the lookahead source of the LALR(1) closure.
func (f *firstSet) after(item *lrItem) (map[symbol]struct{}, bool) {
	terms := map[symbol]struct{}{}
	for it := item.next; it != nil && !it.reducible; it = it.next {
		sym := it.dottedSymbol
		if sym.isTerminal() {
			terms[sym] = struct{}{}
			return terms, false
		}

		for t := range f.terms[sym] {
			terms[t] = struct{}{}
		}
		if !f.nullable[sym] {
			return terms, false
		}
	}
	return terms, true
}
