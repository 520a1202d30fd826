// Package mir implements a minimal mid-level IR body representation
// and the SSA-repair transform pass (C9): restoring single-static-
// definition form after a transform (here, a small non-recursive
// function inliner) has introduced multiple definitions of the same
// local, following the iterated-dominance-frontier reconstruction
// algorithm spec.md §4.8 describes.
package mir

// BlockID identifies a basic block. Block 0 is always the body's
// entry block.
type BlockID int

// Local identifies an SSA local variable (including block
// parameters, which are locals defined at block entry).
type Local int

// Location pinpoints a statement (or, with StatementIndex == -1, a
// block's own parameter binding) within a body.
type Location struct {
	Block          BlockID
	StatementIndex int
}

// Statement is a single assignment `Dest := <uses Reads>`. Reads lists
// every local the right-hand side consumes; callers needing richer
// expressions compose them externally and flatten their operand locals
// into Reads, since the repair pass only needs def/use facts, not
// expression shape.
type Statement struct {
	Dest  Local
	Reads []Local
	// Call is set when this statement's Dest is the result of invoking
	// another function; Reads still carries its argument locals so
	// ordinary def/use analysis (including SSA repair) needs no special
	// case for it.
	Call *Call
}

// Call names a callee and the locals passed as its arguments.
type Call struct {
	Callee string
	Args   []Local
}

// TerminatorKind discriminates how a block exits.
type TerminatorKind int

const (
	TermReturn TerminatorKind = iota
	TermGoto
	TermBranch
)

// Target is one successor edge, carrying the arguments passed to the
// successor's block parameters. Repair appends to Args when it
// allocates a new parameter on the target block.
type Target struct {
	Block BlockID
	Args  []Local
}

// Terminator ends a block's statement list.
type Terminator struct {
	Kind    TerminatorKind
	Cond    Local // meaningful only for TermBranch; 0 (the zero Local) also a valid id, so CondSet discriminates
	CondSet bool
	Targets []Target
}

// BasicBlock is a straight-line statement list ending in a
// Terminator, plus the block parameters (phi-equivalents) it has
// accumulated — initially the function's own, later augmented by SSA
// repair.
type BasicBlock struct {
	Params     []Local
	Statements []Statement
	Terminator Terminator
}

// Body is one function's MIR: its blocks (index 0 is the entry block),
// the count of locals allocated so far, its ordered parameter locals,
// and (for single-block, TermReturn bodies that Inline can splice) the
// local holding its return value.
type Body struct {
	Blocks      []BasicBlock
	NumLocals   int
	Params      []Local
	ReturnLocal Local
}

// NewLocal allocates and returns a fresh local id.
func (b *Body) NewLocal() Local {
	id := Local(b.NumLocals)
	b.NumLocals++
	return id
}

func (b *Body) successors(id BlockID) []BlockID {
	term := b.Blocks[id].Terminator
	out := make([]BlockID, 0, len(term.Targets))
	for _, t := range term.Targets {
		out = append(out, t.Block)
	}
	return out
}

// predecessors computes the full predecessor map once, used by both
// dominance computation and SSA repair.
func (b *Body) predecessors() map[BlockID][]BlockID {
	preds := make(map[BlockID][]BlockID, len(b.Blocks))
	for i := range b.Blocks {
		preds[BlockID(i)] = nil
	}
	for i := range b.Blocks {
		for _, s := range b.successors(BlockID(i)) {
			preds[s] = append(preds[s], BlockID(i))
		}
	}
	return preds
}

