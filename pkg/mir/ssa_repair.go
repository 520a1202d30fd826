package mir

import (
	"fmt"
	"sort"
)

// defSite pairs a definition's location with the fresh local it was
// renamed to (the last site of a violating local keeps the original
// name, per spec.md §4.8 step 2).
type defSite struct {
	loc   Location
	local Local
}

// RepairSSA restores single-static-definition form across every local
// that a prior transform gave more than one definition, following
// spec.md §4.8's four-step algorithm: find violations, compute each
// one's iterated dominance frontier, allocate block parameters where
// needed, then rewrite the body in one pass. It is idempotent —
// already-SSA bodies (no local with >1 definition) round-trip
// unchanged.
func RepairSSA(body *Body) error {
	sites := collectDefSites(body)
	idom := Dominators(body)
	df := DominanceFrontier(body, idom)

	violated := make([]Local, 0, len(sites))
	for local := range sites {
		violated = append(violated, local)
	}
	sort.Slice(violated, func(i, j int) bool { return violated[i] < violated[j] })

	for _, local := range violated {
		locs := sites[local]
		if len(locs) < 2 {
			continue
		}
		if err := repairOne(body, local, locs, idom, df); err != nil {
			return fmt.Errorf("mir: repair local %d: %w", local, err)
		}
	}
	return nil
}

// collectDefSites walks every statement and block parameter,
// recording each local's definition locations in block/statement
// order.
func collectDefSites(body *Body) map[Local][]Location {
	sites := make(map[Local][]Location)
	for bi, block := range body.Blocks {
		for _, p := range block.Params {
			sites[p] = append(sites[p], Location{Block: BlockID(bi), StatementIndex: -1})
		}
		for si, stmt := range block.Statements {
			sites[stmt.Dest] = append(sites[stmt.Dest], Location{Block: BlockID(bi), StatementIndex: si})
		}
	}
	return sites
}

func repairOne(body *Body, local Local, locs []Location, idom map[BlockID]BlockID, df map[BlockID][]BlockID) error {
	defBlocks := make([]BlockID, 0, len(locs))
	blockFor := make(map[Location]bool, len(locs))
	for _, l := range locs {
		defBlocks = append(defBlocks, l.Block)
		blockFor[l] = true
	}
	idf := IteratedDominanceFrontier(df, defBlocks)

	// Step 2: fresh locals for every def except the last; the last
	// keeps the original name.
	fresh := make([]defSite, len(locs))
	for i, l := range locs[:len(locs)-1] {
		fresh[i] = defSite{loc: l, local: body.NewLocal()}
	}
	fresh[len(locs)-1] = defSite{loc: locs[len(locs)-1], local: local}

	freshByLoc := make(map[Location]Local, len(fresh))
	for _, f := range fresh {
		freshByLoc[f.loc] = f.local
	}

	// Step 3: allocate a block parameter at every IDF block that
	// doesn't already begin with a definition of local.
	params := make(map[BlockID]Local, len(idf))
	for b := range idf {
		if existing, ok := freshByLoc[Location{Block: b, StatementIndex: -1}]; ok {
			params[b] = existing
			continue
		}
		newLocal := body.NewLocal()
		body.Blocks[b].Params = append(body.Blocks[b].Params, newLocal)
		params[b] = newLocal
	}

	liveOut := make(map[BlockID]Local)
	var findBottom func(b BlockID) (Local, error)
	var findTop func(b BlockID) (Local, error)

	findTop = func(b BlockID) (Local, error) {
		if p, ok := params[b]; ok {
			return p, nil
		}
		parent, ok := idom[b]
		if !ok || parent == b {
			return 0, fmt.Errorf("no reaching definition reaches block %d", b)
		}
		return findBottom(parent)
	}

	findBottom = func(b BlockID) (Local, error) {
		if v, ok := liveOut[b]; ok {
			return v, nil
		}
		lastInBlock := Local(-1)
		lastIdx := -1
		for _, f := range fresh {
			if f.loc.Block == b && f.loc.StatementIndex > lastIdx {
				lastIdx = f.loc.StatementIndex
				lastInBlock = f.local
			}
		}
		if lastInBlock >= 0 {
			liveOut[b] = lastInBlock
			return lastInBlock, nil
		}
		if p, ok := params[b]; ok {
			liveOut[b] = p
			return p, nil
		}
		v, err := findTop(b)
		if err != nil {
			return 0, err
		}
		liveOut[b] = v
		return v, nil
	}

	// Step 4: single rewrite pass.
	for bi := range body.Blocks {
		b := BlockID(bi)
		var current Local
		if p, ok := params[b]; ok {
			current = p
		} else {
			v, err := findTop(b)
			if err != nil {
				// No use in this block reaches across a join that needs
				// the value; only an error if the block actually uses
				// local before any def of its own, checked below.
				current = -1
				_ = v
			} else {
				current = v
			}
		}

		block := &body.Blocks[bi]
		for si := range block.Statements {
			stmt := &block.Statements[si]
			for ui, use := range stmt.Reads {
				if use == local {
					if current < 0 {
						return fmt.Errorf("use of local %d before any definition in block %d", local, b)
					}
					stmt.Reads[ui] = current
				}
			}
			if fl, ok := freshByLoc[Location{Block: b, StatementIndex: si}]; ok {
				stmt.Dest = fl
				current = fl
			}
		}

		if block.Terminator.CondSet && block.Terminator.Cond == local {
			if current < 0 {
				return fmt.Errorf("use of local %d before any definition in block %d terminator", local, b)
			}
			block.Terminator.Cond = current
		}

		for ti := range block.Terminator.Targets {
			target := &block.Terminator.Targets[ti]
			if p, ok := params[target.Block]; ok {
				liveOutVal := current
				if liveOutVal < 0 {
					v, err := findBottom(b)
					if err != nil {
						return err
					}
					liveOutVal = v
				}
				_ = p
				target.Args = append(target.Args, liveOutVal)
			}
		}
	}

	return nil
}
