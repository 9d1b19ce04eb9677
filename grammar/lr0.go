package grammar

import (
	"fmt"
	"sort"
)

type lr0Automaton struct {
	initialState kernelID
	states       map[kernelID]*lrState
	stateList    []*lrState
}

func genLR0Automaton(prods *productionSet, startSym symbol, errSym symbol) (*lr0Automaton, error) {
	if !startSym.isStart() {
		return nil, fmt.Errorf("passed symbol is not a start symbol")
	}

	automaton := &lr0Automaton{
		states: map[kernelID]*lrState{},
	}

	currentState := stateNumInitial
	knownKernels := map[kernelID]struct{}{}
	uncheckedKernels := []*kernel{}

	// Generate an initial kernel.
	{
		prods, _ := prods.findByLHS(startSym)
		initialItem := prods[0].items[0]

		k, err := newKernel([]*lrItem{initialItem})
		if err != nil {
			return nil, err
		}

		automaton.initialState = k.id
		knownKernels[k.id] = struct{}{}
		uncheckedKernels = append(uncheckedKernels, k)
	}

	for len(uncheckedKernels) > 0 {
		nextUncheckedKernels := []*kernel{}
		for _, k := range uncheckedKernels {
			state, neighbours, err := genStateAndNeighbourKernels(k, errSym)
			if err != nil {
				return nil, err
			}
			state.num = currentState
			currentState = currentState.next()

			automaton.states[state.id] = state
			automaton.stateList = append(automaton.stateList, state)

			for _, k := range neighbours {
				if _, known := knownKernels[k.id]; known {
					continue
				}
				knownKernels[k.id] = struct{}{}
				nextUncheckedKernels = append(nextUncheckedKernels, k)
			}
		}
		uncheckedKernels = nextUncheckedKernels
	}

	return automaton, nil
}

func genStateAndNeighbourKernels(k *kernel, errSym symbol) (*lrState, []*kernel, error) {
	items := genLR0Closure(k)
	neighbours, err := genNeighbourKernels(items)
	if err != nil {
		return nil, nil, err
	}

	next := map[symbol]kernelID{}
	kernels := []*kernel{}
	for _, n := range neighbours {
		next[n.symbol] = n.kernel.id
		kernels = append(kernels, n.kernel)
	}

	var reducible []*lrItem
	las := map[*lrItem]map[symbol]struct{}{}
	isErrorTrapper := false
	for _, item := range items {
		if item.dottedSymbol == errSym {
			isErrorTrapper = true
		}

		if item.reducible {
			reducible = append(reducible, item)
			las[item] = map[symbol]struct{}{}
		}
	}
	for _, item := range k.items {
		if _, ok := las[item]; !ok {
			las[item] = map[symbol]struct{}{}
		}
	}

	return &lrState{
		kernel:         k,
		next:           next,
		reducible:      reducible,
		las:            las,
		isErrorTrapper: isErrorTrapper,
	}, kernels, nil
}

// genLR0Closure expands a kernel to its closure: when A → α・Bβ is in the
// set and B → γ is a production, B →・γ is in the set. The expansion walks
// the precomputed after links, and item interning makes the known-set a
// plain index check.
func genLR0Closure(k *kernel) []*lrItem {
	items := []*lrItem{}
	knownItems := map[int]struct{}{}
	uncheckedItems := []*lrItem{}
	for _, item := range k.items {
		items = append(items, item)
		knownItems[item.idx] = struct{}{}
		uncheckedItems = append(uncheckedItems, item)
	}
	for len(uncheckedItems) > 0 {
		nextUncheckedItems := []*lrItem{}
		for _, item := range uncheckedItems {
			for _, prod := range item.after {
				headItem := prod.items[0]
				if _, exist := knownItems[headItem.idx]; exist {
					continue
				}
				items = append(items, headItem)
				knownItems[headItem.idx] = struct{}{}
				nextUncheckedItems = append(nextUncheckedItems, headItem)
			}
		}
		uncheckedItems = nextUncheckedItems
	}

	return items
}

type neighbourKernel struct {
	symbol symbol
	kernel *kernel
}

func genNeighbourKernels(items []*lrItem) ([]*neighbourKernel, error) {
	kItemMap := map[symbol][]*lrItem{}
	for _, item := range items {
		if item.dottedSymbol.isNil() {
			continue
		}
		kItemMap[item.dottedSymbol] = append(kItemMap[item.dottedSymbol], item.next)
	}

	nextSyms := []symbol{}
	for sym := range kItemMap {
		nextSyms = append(nextSyms, sym)
	}
	sort.Slice(nextSyms, func(i, j int) bool {
		return nextSyms[i] < nextSyms[j]
	})

	kernels := []*neighbourKernel{}
	for _, sym := range nextSyms {
		k, err := newKernel(kItemMap[sym])
		if err != nil {
			return nil, err
		}
		kernels = append(kernels, &neighbourKernel{
			symbol: sym,
			kernel: k,
		})
	}

	return kernels, nil
}
