package policy_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashintel/hash-sub007/pkg/policy"
)

func newTeamID() policy.TeamID   { return policy.TeamID(uuid.New()) }
func newRoleID() policy.RoleID   { return policy.RoleID(uuid.New()) }
func newActorID() policy.ActorID { return policy.ActorID(uuid.New()) }
func newPolicyID() policy.PolicyID { return policy.PolicyID(uuid.New()) }

func TestExpandActorTeamsWalksAncestorChain(t *testing.T) {
	store := policy.NewMemoryStore()
	grandparent := newTeamID()
	parent := newTeamID()
	child := newTeamID()
	store.AddTeam(&policy.Team{ID: grandparent, Name: "org"})
	store.AddTeam(&policy.Team{ID: parent, Name: "division", Parent: &grandparent})
	store.AddTeam(&policy.Team{ID: child, Name: "squad", Parent: &parent})

	actor := policy.Actor{ID: newActorID(), Type: policy.ActorUser, TeamIDs: []policy.TeamID{child}}
	expanded := policy.ExpandActorTeams(store, actor)

	assert.ElementsMatch(t, []policy.TeamID{child, parent, grandparent}, expanded)
}

func TestGetPoliciesForActorMatchesRoleAndActorType(t *testing.T) {
	store := policy.NewMemoryStore()
	team := newTeamID()
	role := newRoleID()
	store.AddTeam(&policy.Team{ID: team, Name: "eng"})
	store.AddRole(&policy.Role{ID: role, TeamID: team, Name: "editor"})

	rolePolicy := &policy.Policy{ID: newPolicyID(), Effect: policy.EffectPermit, Action: "update_entity", Principal: policy.PrincipalConstraint{Kind: policy.PrincipalRole, RoleID: role}}
	actorTypePolicy := &policy.Policy{ID: newPolicyID(), Effect: policy.EffectForbid, Action: "update_entity", Principal: policy.PrincipalConstraint{Kind: policy.PrincipalActorType, ActorType: policy.ActorMachine}}
	store.AddPolicy(rolePolicy)
	store.AddPolicy(actorTypePolicy)

	engine := policy.NewEngine(store)
	actor := policy.Actor{ID: newActorID(), Type: policy.ActorUser, RoleIDs: []policy.RoleID{role}}
	applicable := engine.GetPoliciesForActor(actor, "update_entity")

	require.Len(t, applicable, 1)
	_, ok := applicable[rolePolicy.ID]
	assert.True(t, ok)
}

func TestGetPoliciesForActorScopesRoleByActorType(t *testing.T) {
	store := policy.NewMemoryStore()
	team := newTeamID()
	role := newRoleID()
	store.AddTeam(&policy.Team{ID: team, Name: "eng"})
	store.AddRole(&policy.Role{ID: role, TeamID: team, Name: "editor"})

	// Role(role, machine): only applies to actors of the "machine" type,
	// even though a human actor also carries the role.
	scopedPolicy := &policy.Policy{
		ID:     newPolicyID(),
		Effect: policy.EffectPermit,
		Action: "update_entity",
		Principal: policy.PrincipalConstraint{
			Kind: policy.PrincipalRole, RoleID: role, ActorType: policy.ActorMachine,
		},
	}
	store.AddPolicy(scopedPolicy)

	engine := policy.NewEngine(store)

	human := policy.Actor{ID: newActorID(), Type: policy.ActorUser, RoleIDs: []policy.RoleID{role}}
	assert.Empty(t, engine.GetPoliciesForActor(human, "update_entity"))

	machine := policy.Actor{ID: newActorID(), Type: policy.ActorMachine, RoleIDs: []policy.RoleID{role}}
	applicable := engine.GetPoliciesForActor(machine, "update_entity")
	require.Len(t, applicable, 1)
	_, ok := applicable[scopedPolicy.ID]
	assert.True(t, ok)
}

func TestEvaluateDeniesWhenForbidMatches(t *testing.T) {
	store := policy.NewMemoryStore()
	store.AddPolicy(&policy.Policy{ID: newPolicyID(), Effect: policy.EffectPermit, Action: "*", Principal: policy.PrincipalConstraint{Kind: policy.PrincipalUnconstrained}})
	store.AddPolicy(&policy.Policy{ID: newPolicyID(), Effect: policy.EffectForbid, Action: "delete_entity", Principal: policy.PrincipalConstraint{Kind: policy.PrincipalUnconstrained}})

	engine := policy.NewEngine(store)
	actor := policy.Actor{ID: newActorID(), Type: policy.ActorUser}
	decision, err := engine.Evaluate(context.Background(), actor, "delete_entity", nil)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	require.NotNil(t, decision.MatchedDeny)
}

func TestEvaluateAllowsOnPermitWithNoForbid(t *testing.T) {
	store := policy.NewMemoryStore()
	p := &policy.Policy{ID: newPolicyID(), Effect: policy.EffectPermit, Action: "read_entity", Principal: policy.PrincipalConstraint{Kind: policy.PrincipalUnconstrained}}
	store.AddPolicy(p)

	engine := policy.NewEngine(store)
	actor := policy.Actor{ID: newActorID(), Type: policy.ActorUser}
	decision, err := engine.Evaluate(context.Background(), actor, "read_entity", nil)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	require.NotNil(t, decision.MatchedPermit)
	assert.Equal(t, p.ID, *decision.MatchedPermit)
}

func TestEvaluateDeniesByDefaultWithNoMatchingPolicy(t *testing.T) {
	store := policy.NewMemoryStore()
	engine := policy.NewEngine(store)
	actor := policy.Actor{ID: newActorID(), Type: policy.ActorUser}
	decision, err := engine.Evaluate(context.Background(), actor, "read_entity", nil)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestPrincipalConstraintNoneMatchesNobody(t *testing.T) {
	store := policy.NewMemoryStore()
	store.AddPolicy(&policy.Policy{ID: newPolicyID(), Effect: policy.EffectPermit, Action: "read_entity", Principal: policy.PrincipalConstraint{Kind: policy.PrincipalNone}})

	engine := policy.NewEngine(store)
	actor := policy.Actor{ID: newActorID(), Type: policy.ActorUser}
	applicable := engine.GetPoliciesForActor(actor, "read_entity")
	assert.Empty(t, applicable)
}

func TestResourceConstraintFiltersPolicyMatch(t *testing.T) {
	store := policy.NewMemoryStore()
	store.AddPolicy(&policy.Policy{
		ID: newPolicyID(), Effect: policy.EffectPermit, Action: "read_entity",
		Principal: policy.PrincipalConstraint{Kind: policy.PrincipalUnconstrained},
		Resource:  &policy.EntityResourceConstraint{Expression: `resource["archived"] == false`},
	})

	engine := policy.NewEngine(store)
	actor := policy.Actor{ID: newActorID(), Type: policy.ActorUser}

	allowed, err := engine.Evaluate(context.Background(), actor, "read_entity", map[string]any{"archived": false})
	require.NoError(t, err)
	assert.True(t, allowed.Allowed)

	denied, err := engine.Evaluate(context.Background(), actor, "read_entity", map[string]any{"archived": true})
	require.NoError(t, err)
	assert.False(t, denied.Allowed)
}

func TestBatchEvaluateRunsChecksConcurrently(t *testing.T) {
	store := policy.NewMemoryStore()
	store.AddPolicy(&policy.Policy{ID: newPolicyID(), Effect: policy.EffectPermit, Action: "read_entity", Principal: policy.PrincipalConstraint{Kind: policy.PrincipalUnconstrained}})
	engine := policy.NewEngine(store)

	actor := policy.Actor{ID: newActorID(), Type: policy.ActorUser}
	checks := make([]policy.Check, 8)
	for i := range checks {
		checks[i] = policy.Check{Actor: actor, Action: "read_entity"}
	}

	decisions, err := engine.BatchEvaluate(context.Background(), checks, 4)
	require.NoError(t, err)
	require.Len(t, decisions, 8)
	for _, d := range decisions {
		assert.True(t, d.Allowed)
	}
}
