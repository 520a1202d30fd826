package mir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashintel/hash-sub007/pkg/mir"
)

// violatedDiamond builds the diamond CFG with local 0 ("x") defined
// differently on each arm and read at the join block — a textbook SSA
// violation RepairSSA must resolve with a single block parameter.
func violatedDiamond() *mir.Body {
	return &mir.Body{
		NumLocals: 3,
		Blocks: []mir.BasicBlock{
			{Terminator: mir.Terminator{Kind: mir.TermBranch, Cond: 1, CondSet: true, Targets: []mir.Target{{Block: 1}, {Block: 2}}}},
			{
				Statements: []mir.Statement{{Dest: 0}},
				Terminator: mir.Terminator{Kind: mir.TermGoto, Targets: []mir.Target{{Block: 3}}},
			},
			{
				Statements: []mir.Statement{{Dest: 0}},
				Terminator: mir.Terminator{Kind: mir.TermGoto, Targets: []mir.Target{{Block: 3}}},
			},
			{
				Statements: []mir.Statement{{Dest: 2, Reads: []mir.Local{0}}},
				Terminator: mir.Terminator{Kind: mir.TermReturn},
			},
		},
	}
}

func defSitesOf(body *mir.Body, local mir.Local) int {
	count := 0
	for _, block := range body.Blocks {
		for _, p := range block.Params {
			if p == local {
				count++
			}
		}
		for _, s := range block.Statements {
			if s.Dest == local {
				count++
			}
		}
	}
	return count
}

func TestRepairSSAInsertsBlockParameterAtJoin(t *testing.T) {
	body := violatedDiamond()
	require.NoError(t, mir.RepairSSA(body))

	require.Len(t, body.Blocks[3].Params, 1)
	newParam := body.Blocks[3].Params[0]

	assert.Equal(t, []mir.Local{newParam}, body.Blocks[3].Statements[0].Reads, "the join block's read of x must target the new block parameter")

	arm1Def := body.Blocks[1].Statements[0].Dest
	arm2Def := body.Blocks[2].Statements[0].Dest
	assert.NotEqual(t, arm1Def, arm2Def, "each arm's definition must be renamed to a distinct local")

	require.Len(t, body.Blocks[1].Terminator.Targets[0].Args, 1)
	require.Len(t, body.Blocks[2].Terminator.Targets[0].Args, 1)
	assert.Equal(t, arm1Def, body.Blocks[1].Terminator.Targets[0].Args[0])
	assert.Equal(t, arm2Def, body.Blocks[2].Terminator.Targets[0].Args[0])
}

func TestRepairSSAProducesExactlyOneDefPerLocal(t *testing.T) {
	body := violatedDiamond()
	require.NoError(t, mir.RepairSSA(body))

	seen := make(map[mir.Local]bool)
	for _, block := range body.Blocks {
		for _, p := range block.Params {
			assert.False(t, seen[p], "local %d defined more than once", p)
			seen[p] = true
		}
		for _, s := range block.Statements {
			assert.False(t, seen[s.Dest], "local %d defined more than once", s.Dest)
			seen[s.Dest] = true
		}
	}
}

func TestRepairSSAIsIdempotent(t *testing.T) {
	body := violatedDiamond()
	require.NoError(t, mir.RepairSSA(body))

	numLocalsAfterFirst := body.NumLocals
	paramsAfterFirst := append([]mir.Local(nil), body.Blocks[3].Params...)

	require.NoError(t, mir.RepairSSA(body))

	assert.Equal(t, numLocalsAfterFirst, body.NumLocals, "a second repair pass must allocate nothing new")
	assert.Equal(t, paramsAfterFirst, body.Blocks[3].Params)
}
