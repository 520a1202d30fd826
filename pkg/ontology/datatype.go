package ontology

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Conversion is one `to: expression(value)` entry on a data type: a
// CEL expression that maps a numeric value of this type into the
// numeric representation of the target base URL.
type Conversion struct {
	To         BaseURL
	Expression string

	program cel.Program
}

var conversionEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(cel.Variable("value", cel.DoubleType))
})

// Compile compiles the conversion's CEL expression. Evaluate calls it
// on first use if it has not run yet; DataType.Compile runs it for
// every conversion it holds.
func (c *Conversion) Compile() error {
	env, err := conversionEnv()
	if err != nil {
		return fmt.Errorf("ontology: conversion env: %w", err)
	}
	ast, issues := env.Compile(c.Expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("ontology: conversion %q: %w", c.Expression, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return fmt.Errorf("ontology: conversion %q program: %w", c.Expression, err)
	}
	c.program = prg
	return nil
}

// Evaluate runs the compiled conversion against a numeric value.
func (c *Conversion) Evaluate(value float64) (float64, error) {
	if c.program == nil {
		if err := c.Compile(); err != nil {
			return 0, err
		}
	}
	out, _, err := c.program.Eval(map[string]any{"value": value})
	if err != nil {
		return 0, fmt.Errorf("ontology: conversion eval: %w", err)
	}
	f, ok := out.Value().(float64)
	if !ok {
		return 0, fmt.Errorf("ontology: conversion %q did not return a number", c.Expression)
	}
	return f, nil
}

// DataType is a constraint schema over JSON scalars, with zero or more
// conversions to other data types. Abstract data types cannot be
// used directly to type a value (spec.md §3).
type DataType struct {
	ID          VersionedURL
	Title       string
	Description string
	Abstract    bool

	// RawSchema is the JSON Schema source (draft 2020-12) constraining
	// instances of this type — kept alongside the compiled form for
	// hashing and round-tripping (spec.md §8).
	RawSchema   []byte
	Conversions map[BaseURL]*Conversion

	compiled *jsonschema.Schema
}

// Compile compiles the data type's JSON Schema and every conversion
// expression. Must succeed before the type is used for validation.
func (d *DataType) Compile() error {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	schemaURL := fmt.Sprintf("https://graphd.local/datatype/%s.schema.json", strings.ReplaceAll(string(d.ID.BaseURL), "/", "_"))
	if err := c.AddResource(schemaURL, strings.NewReader(string(d.RawSchema))); err != nil {
		return fmt.Errorf("ontology: data type %s: schema load: %w", d.ID, err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("ontology: data type %s: schema compile: %w", d.ID, err)
	}
	d.compiled = compiled

	for target, conv := range d.Conversions {
		if err := conv.Compile(); err != nil {
			return fmt.Errorf("ontology: data type %s: conversion to %s: %w", d.ID, target, err)
		}
	}
	return nil
}

// ValidateScalar checks a decoded JSON scalar against the compiled
// constraint schema.
func (d *DataType) ValidateScalar(value any) error {
	if d.compiled == nil {
		if err := d.Compile(); err != nil {
			return err
		}
	}
	return d.compiled.Validate(value)
}

// DataTypeLookup resolves parent/child relationships between data
// types, consulted by the validation engine (spec.md §4.3) when a
// value's declared data type differs from the schema's.
type DataTypeLookup interface {
	// IsParentOf reports whether candidate is an ancestor of child
	// along the data type's own-subtype chain (not the multi-type
	// all-of chain entity types use).
	IsParentOf(ctx context.Context, candidate, child VersionedURL) (bool, error)
}
