package mir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashintel/hash-sub007/pkg/mir"
)

// doubleLocal is `fn double(n) -> n2 { n2 := n }` — a trivial
// single-block, straight-line callee: local 0 is its parameter, local
// 1 (computed from it) is its return value.
func doubleLocal() *mir.Body {
	return &mir.Body{
		NumLocals:   2,
		Params:      []mir.Local{0},
		ReturnLocal: 1,
		Blocks: []mir.BasicBlock{
			{
				Statements: []mir.Statement{{Dest: 1, Reads: []mir.Local{0}}},
				Terminator: mir.Terminator{Kind: mir.TermReturn},
			},
		},
	}
}

// callerCallingTwice is `fn main() { r := double(a); ...; r := double(b) }`
// — two call sites writing to the same caller-level local r, which
// inlining will turn into a genuine SSA violation.
func callerCallingTwice() (*mir.Program, *mir.Body) {
	caller := &mir.Body{
		NumLocals: 3, // 0=a, 1=b, 2=r
		Blocks: []mir.BasicBlock{
			{
				Statements: []mir.Statement{
					{Dest: 2, Reads: []mir.Local{0}, Call: &mir.Call{Callee: "double", Args: []mir.Local{0}}},
					{Dest: 2, Reads: []mir.Local{1}, Call: &mir.Call{Callee: "double", Args: []mir.Local{1}}},
				},
				Terminator: mir.Terminator{Kind: mir.TermReturn},
			},
		},
	}
	prog := &mir.Program{Functions: map[string]*mir.Body{
		"double": doubleLocal(),
		"main":   caller,
	}}
	return prog, caller
}

func TestInlineStraightLineCallsSplicesCalleeBody(t *testing.T) {
	prog, caller := callerCallingTwice()
	require.NoError(t, mir.InlineStraightLineCalls(prog, "main"))

	assert.Len(t, caller.Blocks[0].Statements, 2, "each call site becomes one spliced assignment")
	for _, s := range caller.Blocks[0].Statements {
		assert.Nil(t, s.Call, "an inlined call site no longer carries Call metadata")
	}
}

func TestInliningTwiceIntoSameLocalCreatesSSAViolationThenRepaired(t *testing.T) {
	prog, caller := callerCallingTwice()
	require.NoError(t, mir.InlineStraightLineCalls(prog, "main"))

	defs := 0
	for _, s := range caller.Blocks[0].Statements {
		if s.Dest == 2 {
			defs++
		}
	}
	require.Equal(t, 2, defs, "both inlined call sites still target the caller's original result local")

	require.NoError(t, mir.RepairSSA(caller))

	seen := make(map[mir.Local]bool)
	for _, block := range caller.Blocks {
		for _, s := range block.Statements {
			assert.False(t, seen[s.Dest], "local %d defined more than once after repair", s.Dest)
			seen[s.Dest] = true
		}
	}
}

func TestInlineRefusesRecursiveCallee(t *testing.T) {
	recursive := &mir.Body{
		NumLocals: 1,
		Params:    []mir.Local{0},
		Blocks: []mir.BasicBlock{
			{
				Statements: []mir.Statement{{Dest: 0, Call: &mir.Call{Callee: "fact", Args: []mir.Local{0}}}},
				Terminator: mir.Terminator{Kind: mir.TermReturn},
			},
		},
	}
	caller := &mir.Body{
		NumLocals: 2,
		Blocks: []mir.BasicBlock{
			{
				Statements: []mir.Statement{{Dest: 1, Reads: []mir.Local{0}, Call: &mir.Call{Callee: "fact", Args: []mir.Local{0}}}},
				Terminator: mir.Terminator{Kind: mir.TermReturn},
			},
		},
	}
	prog := &mir.Program{Functions: map[string]*mir.Body{"fact": recursive, "main": caller}}

	require.NoError(t, mir.InlineStraightLineCalls(prog, "main"))

	require.Len(t, caller.Blocks[0].Statements, 1)
	assert.NotNil(t, caller.Blocks[0].Statements[0].Call, "a call to a recursive function must be left un-inlined")
}
