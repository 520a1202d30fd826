package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/hashintel/hash-sub007/pkg/ontology"
	"github.com/hashintel/hash-sub007/pkg/policy"
)

// PolicyBundle is the YAML-loadable seed for a fresh deployment's
// principal hierarchy and policy set, mirroring the teacher's
// RegionalProfile YAML-profile pattern (pkg/config/profile_loader.go)
// but for graphd's Cedar-style policy engine (spec.md §4.5) instead
// of regional compliance profiles.
type PolicyBundle struct {
	Teams    []TeamSeed    `yaml:"teams"`
	Roles    []RoleSeed    `yaml:"roles"`
	Actors   []ActorSeed   `yaml:"actors"`
	Policies []PolicySeed  `yaml:"policies"`
	Entities []EntityTypeSeed `yaml:"entity_types"`
}

// TeamSeed is one YAML team entry; Parent is the parent team's name,
// empty for a root team.
type TeamSeed struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent,omitempty"`
}

// RoleSeed is one YAML role entry, naming the team it belongs to.
type RoleSeed struct {
	Name string `yaml:"name"`
	Team string `yaml:"team"`
}

// ActorSeed is one YAML actor entry.
type ActorSeed struct {
	Name  string   `yaml:"name"`
	Type  string   `yaml:"type"` // "user" | "machine" | "ai"
	Roles []string `yaml:"roles,omitempty"`
	Teams []string `yaml:"teams,omitempty"`
}

// PolicySeed is one YAML permit/forbid rule.
type PolicySeed struct {
	Effect    string `yaml:"effect"` // "permit" | "forbid"
	Action    string `yaml:"action"`
	Principal struct {
		Kind      string `yaml:"kind"` // "unconstrained" | "none" | "actor" | "actor_type" | "role" | "team"
		Actor     string `yaml:"actor,omitempty"`
		ActorType string `yaml:"actor_type,omitempty"`
		Role      string `yaml:"role,omitempty"`
		Team      string `yaml:"team,omitempty"`
	} `yaml:"principal"`
	Resource string `yaml:"resource,omitempty"` // CEL expression, empty matches any resource
}

// EntityTypeSeed is one YAML entity-type definition used to bootstrap
// the ontology store at deployment time.
type EntityTypeSeed struct {
	BaseURL     string   `yaml:"base_url"`
	Version     int      `yaml:"version"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description,omitempty"`
	IsLink      bool     `yaml:"is_link,omitempty"`
	AllOf       []string `yaml:"all_of,omitempty"` // base URLs, always resolved at their latest seeded version
}

// LoadPolicyBundle reads and parses a YAML policy bundle from path.
func LoadPolicyBundle(path string) (*PolicyBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: load policy bundle %q: %w", path, err)
	}
	var bundle PolicyBundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("config: parse policy bundle %q: %w", path, err)
	}
	return &bundle, nil
}

// Resolved is the bundle's YAML-friendly names resolved into the
// policy engine's opaque ID types, ready to hand to a
// policy.PrincipalHierarchy-backed store.
type Resolved struct {
	Teams    []policy.Team
	Roles    []policy.Role
	Actors   []policy.Actor
	Policies []policy.Policy

	teamIDs  map[string]policy.TeamID
	roleIDs  map[string]policy.RoleID
	actorIDs map[string]policy.ActorID
}

// Resolve turns a PolicyBundle's names into concrete, ID-addressed
// domain objects. Names are scoped per-bundle — a team or role named
// in one bundle has no relationship to a same-named entry in another.
func (b *PolicyBundle) Resolve() (*Resolved, error) {
	r := &Resolved{
		teamIDs:  make(map[string]policy.TeamID, len(b.Teams)),
		roleIDs:  make(map[string]policy.RoleID, len(b.Roles)),
		actorIDs: make(map[string]policy.ActorID, len(b.Actors)),
	}

	for _, t := range b.Teams {
		r.teamIDs[t.Name] = policy.TeamID(uuid.New())
	}
	for _, t := range b.Teams {
		team := policy.Team{ID: r.teamIDs[t.Name], Name: t.Name}
		if t.Parent != "" {
			parentID, ok := r.teamIDs[t.Parent]
			if !ok {
				return nil, fmt.Errorf("config: team %q names unknown parent %q", t.Name, t.Parent)
			}
			team.Parent = &parentID
		}
		r.Teams = append(r.Teams, team)
	}

	for _, rs := range b.Roles {
		teamID, ok := r.teamIDs[rs.Team]
		if !ok {
			return nil, fmt.Errorf("config: role %q names unknown team %q", rs.Name, rs.Team)
		}
		id := policy.RoleID(uuid.New())
		r.roleIDs[rs.Name] = id
		r.Roles = append(r.Roles, policy.Role{ID: id, TeamID: teamID, Name: rs.Name})
	}

	for _, as := range b.Actors {
		actorType, err := parseActorType(as.Type)
		if err != nil {
			return nil, fmt.Errorf("config: actor %q: %w", as.Name, err)
		}
		id := policy.ActorID(uuid.New())
		r.actorIDs[as.Name] = id
		actor := policy.Actor{ID: id, Type: actorType}
		for _, roleName := range as.Roles {
			roleID, ok := r.roleIDs[roleName]
			if !ok {
				return nil, fmt.Errorf("config: actor %q names unknown role %q", as.Name, roleName)
			}
			actor.RoleIDs = append(actor.RoleIDs, roleID)
		}
		for _, teamName := range as.Teams {
			teamID, ok := r.teamIDs[teamName]
			if !ok {
				return nil, fmt.Errorf("config: actor %q names unknown team %q", as.Name, teamName)
			}
			actor.TeamIDs = append(actor.TeamIDs, teamID)
		}
		r.Actors = append(r.Actors, actor)
	}

	for i, ps := range b.Policies {
		p, err := r.resolvePolicy(ps)
		if err != nil {
			return nil, fmt.Errorf("config: policy[%d]: %w", i, err)
		}
		r.Policies = append(r.Policies, p)
	}

	return r, nil
}

func (r *Resolved) resolvePolicy(ps PolicySeed) (policy.Policy, error) {
	effect, err := parseEffect(ps.Effect)
	if err != nil {
		return policy.Policy{}, err
	}

	constraint, err := r.resolvePrincipalConstraint(ps.Principal.Kind, ps.Principal.Actor, ps.Principal.ActorType, ps.Principal.Role, ps.Principal.Team)
	if err != nil {
		return policy.Policy{}, err
	}

	p := policy.Policy{
		ID:        policy.PolicyID(uuid.New()),
		Effect:    effect,
		Principal: constraint,
		Action:    ps.Action,
	}
	if ps.Resource != "" {
		p.Resource = &policy.EntityResourceConstraint{Expression: ps.Resource}
		if err := p.Resource.Compile(); err != nil {
			return policy.Policy{}, fmt.Errorf("resource constraint: %w", err)
		}
	}
	return p, nil
}

func (r *Resolved) resolvePrincipalConstraint(kind, actor, actorType, role, team string) (policy.PrincipalConstraint, error) {
	switch kind {
	case "unconstrained", "":
		return policy.PrincipalConstraint{Kind: policy.PrincipalUnconstrained}, nil
	case "none":
		return policy.PrincipalConstraint{Kind: policy.PrincipalNone}, nil
	case "actor":
		id, ok := r.actorIDs[actor]
		if !ok {
			return policy.PrincipalConstraint{}, fmt.Errorf("principal names unknown actor %q", actor)
		}
		return policy.PrincipalConstraint{Kind: policy.PrincipalActor, ActorID: id}, nil
	case "actor_type":
		at, err := parseActorType(actorType)
		if err != nil {
			return policy.PrincipalConstraint{}, err
		}
		return policy.PrincipalConstraint{Kind: policy.PrincipalActorType, ActorType: at}, nil
	case "role":
		id, ok := r.roleIDs[role]
		if !ok {
			return policy.PrincipalConstraint{}, fmt.Errorf("principal names unknown role %q", role)
		}
		at, err := parseOptionalActorType(actorType)
		if err != nil {
			return policy.PrincipalConstraint{}, err
		}
		return policy.PrincipalConstraint{Kind: policy.PrincipalRole, RoleID: id, ActorType: at}, nil
	case "team":
		id, ok := r.teamIDs[team]
		if !ok {
			return policy.PrincipalConstraint{}, fmt.Errorf("principal names unknown team %q", team)
		}
		at, err := parseOptionalActorType(actorType)
		if err != nil {
			return policy.PrincipalConstraint{}, err
		}
		return policy.PrincipalConstraint{Kind: policy.PrincipalTeam, TeamID: id, ActorType: at}, nil
	default:
		return policy.PrincipalConstraint{}, fmt.Errorf("unknown principal kind %q", kind)
	}
}

func parseEffect(s string) (policy.Effect, error) {
	switch s {
	case "permit":
		return policy.EffectPermit, nil
	case "forbid":
		return policy.EffectForbid, nil
	default:
		return "", fmt.Errorf("unknown policy effect %q", s)
	}
}

// parseOptionalActorType parses a role/team principal's optional
// actor-type scope (spec.md §3's `Role(id, T?)` / `Team(id, T?)`); an
// empty string leaves the constraint unscoped by actor type.
func parseOptionalActorType(s string) (policy.ActorType, error) {
	if s == "" {
		return "", nil
	}
	return parseActorType(s)
}

func parseActorType(s string) (policy.ActorType, error) {
	switch s {
	case "user":
		return policy.ActorUser, nil
	case "machine":
		return policy.ActorMachine, nil
	case "ai":
		return policy.ActorAI, nil
	default:
		return "", fmt.Errorf("unknown actor type %q", s)
	}
}

// ResolveEntityTypes turns the bundle's entity-type seeds into
// ontology.EntityType values, keyed by base URL at the seeded
// version — the caller is expected to hand these to create_ontology
// (pkg/store) in dependency order (AllOf parents before children).
func (b *PolicyBundle) ResolveEntityTypes() (map[string]*ontology.EntityType, error) {
	out := make(map[string]*ontology.EntityType, len(b.Entities))
	versions := make(map[string]int, len(b.Entities))
	for _, e := range b.Entities {
		versions[e.BaseURL] = e.Version
	}
	for _, e := range b.Entities {
		et := &ontology.EntityType{
			ID:          ontology.VersionedURL{BaseURL: ontology.BaseURL(e.BaseURL), Version: e.Version},
			Title:       e.Title,
			Description: e.Description,
			IsLink:      e.IsLink,
			Properties:  map[ontology.BaseURL]ontology.PropertyDef{},
			Links:       map[ontology.BaseURL]ontology.LinkDestinations{},
		}
		for _, parentBase := range e.AllOf {
			parentVersion, ok := versions[parentBase]
			if !ok {
				return nil, fmt.Errorf("config: entity type %q names unknown AllOf parent %q", e.BaseURL, parentBase)
			}
			et.AllOf = append(et.AllOf, ontology.VersionedURL{BaseURL: ontology.BaseURL(parentBase), Version: parentVersion})
		}
		out[e.BaseURL] = et
	}
	return out, nil
}
