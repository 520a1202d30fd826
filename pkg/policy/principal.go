// Package policy implements the Cedar-style permit/forbid policy
// engine (C7): a Team/Role/Actor principal hierarchy, policy lookup
// with transitive team/role expansion, and permit/forbid decision
// evaluation with structural resource-constraint predicates.
package policy

import "github.com/google/uuid"

// ActorType discriminates the three kinds of principal spec.md §4.5's
// actor-type-scoped policies match against.
type ActorType string

const (
	ActorUser    ActorType = "user"
	ActorMachine ActorType = "machine"
	ActorAI      ActorType = "ai"
)

// TeamID identifies a team (a named grouping of roles).
type TeamID uuid.UUID

func (id TeamID) String() string { return uuid.UUID(id).String() }

// RoleID identifies a role (a unit of authority a team grants).
type RoleID uuid.UUID

func (id RoleID) String() string { return uuid.UUID(id).String() }

// ActorID identifies a principal.
type ActorID uuid.UUID

func (id ActorID) String() string { return uuid.UUID(id).String() }

// Team is a named grouping of roles; Parent is the immediate
// containing team, if any — subteam containment is transitive (spec.md
// §4.5: "the teams containing those roles (and all ancestor teams)").
type Team struct {
	ID     TeamID
	Name   string
	Parent *TeamID
}

// Role belongs to exactly one team.
type Role struct {
	ID     RoleID
	TeamID TeamID
	Name   string
}

// Actor is a principal: its own type, the roles directly assigned to
// it, and the teams it directly belongs to (independent of role
// assignment — an actor can be a team member without holding any role
// in that team).
type Actor struct {
	ID      ActorID
	Type    ActorType
	RoleIDs []RoleID
	TeamIDs []TeamID
}

// PrincipalHierarchy resolves the team/role graph `get_policies_for_actor`
// walks. Membership queries are closed-world: an unknown id has no
// ancestors and no roles (spec.md §4.5).
type PrincipalHierarchy interface {
	Team(id TeamID) (*Team, bool)
	Role(id RoleID) (*Role, bool)
}

// AncestorTeams returns every team transitively containing team id,
// id itself included, via Team.Parent chains.
func AncestorTeams(h PrincipalHierarchy, id TeamID) []TeamID {
	out := []TeamID{id}
	seen := map[TeamID]bool{id: true}
	cur := id
	for {
		team, ok := h.Team(cur)
		if !ok || team.Parent == nil {
			return out
		}
		parent := *team.Parent
		if seen[parent] {
			return out // cycle guard; closed-world, fails closed by stopping expansion
		}
		seen[parent] = true
		out = append(out, parent)
		cur = parent
	}
}

// ExpandActorTeams computes every team id relevant to actor: its
// direct memberships, the teams owning its directly-assigned roles,
// and every ancestor of each, per spec.md §4.5.
func ExpandActorTeams(h PrincipalHierarchy, actor Actor) []TeamID {
	set := make(map[TeamID]struct{})
	for _, t := range actor.TeamIDs {
		for _, a := range AncestorTeams(h, t) {
			set[a] = struct{}{}
		}
	}
	for _, rID := range actor.RoleIDs {
		role, ok := h.Role(rID)
		if !ok {
			continue
		}
		for _, a := range AncestorTeams(h, role.TeamID) {
			set[a] = struct{}{}
		}
	}
	out := make([]TeamID, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return out
}
