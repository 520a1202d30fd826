package policy

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"
)

// PolicyID identifies a stored policy.
type PolicyID uuid.UUID

func (id PolicyID) String() string { return uuid.UUID(id).String() }

// Effect is a policy's verdict when its principal/action/resource
// constraints all match.
type Effect string

const (
	EffectPermit Effect = "permit"
	EffectForbid Effect = "forbid"
)

// PrincipalConstraintKind discriminates a policy's principal
// constraint, distinguishing the two ways a constraint can fail to
// name any actor: genuinely unconstrained (a null principal — applies
// to everyone) versus an explicit empty match (applies to nobody),
// per SPEC_FULL.md §12.
type PrincipalConstraintKind int

const (
	PrincipalUnconstrained PrincipalConstraintKind = iota
	PrincipalNone
	PrincipalActor
	PrincipalActorType
	PrincipalRole
	PrincipalTeam
)

// PrincipalConstraint is a policy's principal-matching predicate.
type PrincipalConstraint struct {
	Kind      PrincipalConstraintKind
	ActorID   ActorID
	ActorType ActorType
	RoleID    RoleID
	TeamID    TeamID
}

// Matches reports whether actor (with its expanded team/role closure)
// satisfies the constraint.
func (c PrincipalConstraint) Matches(actor Actor, expandedTeams []TeamID) bool {
	switch c.Kind {
	case PrincipalUnconstrained:
		return true
	case PrincipalNone:
		return false
	case PrincipalActor:
		return ActorID(actor.ID) == c.ActorID
	case PrincipalActorType:
		return actor.Type == c.ActorType
	case PrincipalRole:
		if c.ActorType != "" && actor.Type != c.ActorType {
			return false
		}
		for _, r := range actor.RoleIDs {
			if r == c.RoleID {
				return true
			}
		}
		return false
	case PrincipalTeam:
		if c.ActorType != "" && actor.Type != c.ActorType {
			return false
		}
		for _, t := range expandedTeams {
			if t == c.TeamID {
				return true
			}
		}
		return false
	default:
		return false
	}
}

var resourceConstraintEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(cel.Variable("resource", cel.MapType(cel.StringType, cel.DynType)))
})

// EntityResourceConstraint is a compiled CEL structural predicate over
// a resource's attributes — the Go rendering of spec.md §4.5's
// `All { filters }` resource constraint.
type EntityResourceConstraint struct {
	Expression string

	program cel.Program
}

// Compile compiles the constraint's CEL expression.
func (c *EntityResourceConstraint) Compile() error {
	env, err := resourceConstraintEnv()
	if err != nil {
		return fmt.Errorf("policy: resource constraint env: %w", err)
	}
	ast, issues := env.Compile(c.Expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("policy: resource constraint %q: %w", c.Expression, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return fmt.Errorf("policy: resource constraint %q program: %w", c.Expression, err)
	}
	c.program = prg
	return nil
}

// Matches evaluates the constraint against a resource's attribute map.
func (c *EntityResourceConstraint) Matches(ctx context.Context, resource map[string]any) (bool, error) {
	if c.program == nil {
		if err := c.Compile(); err != nil {
			return false, err
		}
	}
	out, _, err := c.program.ContextEval(ctx, map[string]any{"resource": resource})
	if err != nil {
		return false, fmt.Errorf("policy: resource constraint eval: %w", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policy: resource constraint %q did not return a bool", c.Expression)
	}
	return b, nil
}

// Policy is one permit/forbid rule: a principal constraint, the action
// it applies to ("*" matches any action), an effect, and an optional
// resource constraint (nil matches any resource).
type Policy struct {
	ID        PolicyID
	Effect    Effect
	Principal PrincipalConstraint
	Action    string
	Resource  *EntityResourceConstraint
}

func (p *Policy) matchesAction(action string) bool {
	return p.Action == "*" || p.Action == action
}
