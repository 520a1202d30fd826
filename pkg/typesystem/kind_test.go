package typesystem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hashintel/hash-sub007/pkg/typesystem"
)

func TestInternDedupsStructurallyEqualNodes(t *testing.T) {
	in := typesystem.NewInterner()

	a := in.Primitive("string")
	b := in.Primitive("string")
	assert.Equal(t, a, b)

	c := in.Primitive("number")
	assert.NotEqual(t, a, c)
}

func TestFixedHandlesAreNeverAndUnknown(t *testing.T) {
	in := typesystem.NewInterner()
	assert.Equal(t, typesystem.KindNever, in.Get(typesystem.HandleNever).Kind)
	assert.Equal(t, typesystem.KindUnknown, in.Get(typesystem.HandleUnknown).Kind)
}

func TestTupleInterningRespectsElementOrder(t *testing.T) {
	in := typesystem.NewInterner()
	s := in.Primitive("string")
	n := in.Primitive("number")

	t1 := in.Tuple(s, n)
	t2 := in.Tuple(n, s)
	assert.NotEqual(t, t1, t2)

	t3 := in.Tuple(s, n)
	assert.Equal(t, t1, t3)
}

func TestOpaqueWrapsDistinctInnerHandles(t *testing.T) {
	in := typesystem.NewInterner()
	s := in.Primitive("string")
	n := in.Primitive("number")

	o1 := in.Opaque("EntityId", s)
	o2 := in.Opaque("EntityId", n)
	assert.NotEqual(t, o1, o2)
}
