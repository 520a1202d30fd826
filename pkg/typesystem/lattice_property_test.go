//go:build property
// +build property

package typesystem_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/hashintel/hash-sub007/pkg/typesystem"
)

// primitiveGen builds a small closed universe of primitive handles so
// the generated algebraic laws exercise Join/Meet over genuinely
// distinct lattice elements rather than always hitting the Never/
// Unknown fast paths.
func primitiveGen(in *typesystem.Interner) gopter.Gen {
	names := []string{"string", "number", "boolean", "null"}
	handles := make([]typesystem.Handle, len(names))
	for i, n := range names {
		handles[i] = in.Primitive(n)
	}
	return gen.OneConstOf(toInterfaceSlice(handles)...)
}

func toInterfaceSlice(hs []typesystem.Handle) []interface{} {
	out := make([]interface{}, len(hs))
	for i, h := range hs {
		out[i] = h
	}
	return out
}

func TestLatticeAlgebraicLaws(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	in := typesystem.NewInterner()
	l := typesystem.NewLattice(in)
	hg := primitiveGen(in)

	properties.Property("join is commutative", prop.ForAll(
		func(a, b typesystem.Handle) bool {
			return l.Join(a, b) == l.Join(b, a)
		},
		hg, hg,
	))

	properties.Property("meet is commutative", prop.ForAll(
		func(a, b typesystem.Handle) bool {
			return l.Meet(a, b) == l.Meet(b, a)
		},
		hg, hg,
	))

	properties.Property("join is idempotent", prop.ForAll(
		func(a typesystem.Handle) bool {
			return l.Join(a, a) == a
		},
		hg,
	))

	properties.Property("meet is idempotent", prop.ForAll(
		func(a typesystem.Handle) bool {
			return l.Meet(a, a) == a
		},
		hg,
	))

	properties.Property("absorption: a join (a meet b) == a", prop.ForAll(
		func(a, b typesystem.Handle) bool {
			return l.Join(a, l.Meet(a, b)) == a
		},
		hg, hg,
	))

	properties.Property("absorption: a meet (a join b) == a", prop.ForAll(
		func(a, b typesystem.Handle) bool {
			return l.Meet(a, l.Join(a, b)) == a
		},
		hg, hg,
	))

	properties.Property("never is the join identity", prop.ForAll(
		func(a typesystem.Handle) bool {
			return l.Join(a, typesystem.HandleNever) == a
		},
		hg,
	))

	properties.Property("unknown is the meet identity", prop.ForAll(
		func(a typesystem.Handle) bool {
			return l.Meet(a, typesystem.HandleUnknown) == a
		},
		hg,
	))

	properties.TestingRun(t)
}
