package mir

import "fmt"

// Program is the set of function bodies a call can target, keyed by
// name.
type Program struct {
	Functions map[string]*Body
}

// callees lists every name a body's Call statements invoke, in
// statement-scan order, duplicates included.
func callees(body *Body) []string {
	var out []string
	for _, block := range body.Blocks {
		for _, stmt := range block.Statements {
			if stmt.Call != nil {
				out = append(out, stmt.Call.Callee)
			}
		}
	}
	return out
}

// isRecursive reports whether name is reachable from itself through
// the program's call graph — a self-call, or a call cycle through any
// number of intermediate functions.
func isRecursive(p *Program, name string) bool {
	visited := make(map[string]bool)
	var visit func(cur string) bool
	visit = func(cur string) bool {
		for _, callee := range callees(p.Functions[cur]) {
			if callee == name {
				return true
			}
			if visited[callee] {
				continue
			}
			visited[callee] = true
			if p.Functions[callee] != nil && visit(callee) {
				return true
			}
		}
		return false
	}
	return visit(name)
}

// InlineStraightLineCalls replaces every call in callerName's body
// to a single-block, TermReturn callee with that callee's statements,
// substituting its declared Params for the call's argument locals and
// the call's Dest for its ReturnLocal. Calls to a callee that
// participates in a recursion cycle (including direct self-calls) are
// left untouched — the source this pass is grounded on makes the same
// choice, since inlining a recursive call can't terminate.
//
// A body's own locals are never renumbered; the callee's locals are
// spliced in as fresh numbers, so this pass alone cannot introduce an
// SSA violation on its own — it only does when, as intended here, two
// separate call sites are both inlined into the same destination
// local, which RepairSSA is then run to fix.
func InlineStraightLineCalls(p *Program, callerName string) error {
	body, ok := p.Functions[callerName]
	if !ok {
		return fmt.Errorf("mir: unknown function %q", callerName)
	}

	for bi := range body.Blocks {
		block := &body.Blocks[bi]
		var rewritten []Statement
		for _, stmt := range block.Statements {
			if stmt.Call == nil {
				rewritten = append(rewritten, stmt)
				continue
			}
			callee, ok := p.Functions[stmt.Call.Callee]
			if !ok || len(callee.Blocks) != 1 || callee.Blocks[0].Terminator.Kind != TermReturn {
				rewritten = append(rewritten, stmt)
				continue
			}
			if isRecursive(p, stmt.Call.Callee) || stmt.Call.Callee == callerName {
				rewritten = append(rewritten, stmt)
				continue
			}

			spliced, err := spliceCallee(body, callee, stmt)
			if err != nil {
				return err
			}
			rewritten = append(rewritten, spliced...)
		}
		block.Statements = rewritten
	}
	return nil
}

// spliceCallee copies callee's statements into the caller with fresh
// local ids, binding its Params to the call's argument locals
// (call.Reads) and redirecting every definition of callee's
// ReturnLocal to call.Dest.
func spliceCallee(caller *Body, callee *Body, call Statement) ([]Statement, error) {
	if len(callee.Params) != len(call.Reads) {
		return nil, fmt.Errorf("mir: call to %q passes %d args, wants %d", call.Call.Callee, len(call.Reads), len(callee.Params))
	}

	remap := make(map[Local]Local, callee.NumLocals)
	for i, p := range callee.Params {
		remap[p] = call.Reads[i]
	}
	localFor := func(l Local) Local {
		if r, ok := remap[l]; ok {
			return r
		}
		fresh := caller.NewLocal()
		remap[l] = fresh
		return fresh
	}

	out := make([]Statement, 0, len(callee.Blocks[0].Statements))
	for _, stmt := range callee.Blocks[0].Statements {
		dest := localFor(stmt.Dest)
		if stmt.Dest == callee.ReturnLocal {
			dest = call.Dest
		}
		reads := make([]Local, len(stmt.Reads))
		for i, r := range stmt.Reads {
			reads[i] = localFor(r)
		}
		var calleeCall *Call
		if stmt.Call != nil {
			calleeCall = &Call{Callee: stmt.Call.Callee, Args: append([]Local(nil), reads...)}
		}
		out = append(out, Statement{Dest: dest, Reads: reads, Call: calleeCall})
	}
	return out, nil
}
