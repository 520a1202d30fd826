package mir

// Dominators computes each block's immediate dominator via the
// Cooper/Harvey/Kennedy iterative algorithm ("A Simple, Fast Dominance
// Algorithm", Rice University, 2001) — the same algorithm the
// dominance-frontier literature cited by the iterated-dominance-
// frontier step (spec.md §4.8 step 1) builds on. The entry block is
// its own immediate dominator.
func Dominators(body *Body) map[BlockID]BlockID {
	preds := body.predecessors()
	postorder, postNum := postorderNumbering(body)

	entry := BlockID(0)
	idom := make(map[BlockID]BlockID, len(body.Blocks))
	idom[entry] = entry

	changed := true
	for changed {
		changed = false
		// Reverse postorder, skipping the entry block.
		for i := len(postorder) - 1; i >= 0; i-- {
			b := postorder[i]
			if b == entry {
				continue
			}
			var newIdom BlockID
			found := false
			for _, p := range preds[b] {
				if _, ok := idom[p]; !ok {
					continue
				}
				if !found {
					newIdom = p
					found = true
					continue
				}
				newIdom = intersect(idom, postNum, newIdom, p)
			}
			if !found {
				continue
			}
			if cur, ok := idom[b]; !ok || cur != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	return idom
}

func intersect(idom map[BlockID]BlockID, postNum map[BlockID]int, a, b BlockID) BlockID {
	for a != b {
		for postNum[a] < postNum[b] {
			a = idom[a]
		}
		for postNum[b] < postNum[a] {
			b = idom[b]
		}
	}
	return a
}

// postorderNumbering returns a postorder block list and each block's
// index within it (higher number = finished later in the depth-first
// walk, so the entry block gets the highest number, per the CHK
// algorithm's convention).
func postorderNumbering(body *Body) ([]BlockID, map[BlockID]int) {
	visited := make(map[BlockID]bool, len(body.Blocks))
	var order []BlockID

	var visit func(b BlockID)
	visit = func(b BlockID) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range body.successors(b) {
			visit(s)
		}
		order = append(order, b)
	}
	visit(BlockID(0))

	num := make(map[BlockID]int, len(order))
	for i, b := range order {
		num[b] = i
	}
	return order, num
}

// DominanceFrontier computes each block's dominance frontier: the set
// of blocks where its dominance "stops" — blocks it dominates a
// predecessor of, but does not itself strictly dominate.
func DominanceFrontier(body *Body, idom map[BlockID]BlockID) map[BlockID][]BlockID {
	preds := body.predecessors()
	df := make(map[BlockID][]BlockID, len(body.Blocks))

	for i := range body.Blocks {
		b := BlockID(i)
		ps := preds[b]
		if len(ps) < 2 {
			continue
		}
		for _, p := range ps {
			runner := p
			for runner != idom[b] {
				df[runner] = appendUnique(df[runner], b)
				runner = idom[runner]
			}
		}
	}
	return df
}

func appendUnique(xs []BlockID, x BlockID) []BlockID {
	for _, e := range xs {
		if e == x {
			return xs
		}
	}
	return append(xs, x)
}

// IteratedDominanceFrontier closes a set of definition blocks under
// the dominance-frontier relation: DF, then DF of everything just
// added, until no new block is produced (spec.md §4.8 step 1).
func IteratedDominanceFrontier(df map[BlockID][]BlockID, defBlocks []BlockID) map[BlockID]bool {
	result := make(map[BlockID]bool)
	worklist := append([]BlockID(nil), defBlocks...)
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, d := range df[b] {
			if !result[d] {
				result[d] = true
				worklist = append(worklist, d)
			}
		}
	}
	return result
}
