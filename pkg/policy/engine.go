package policy

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Store resolves the team/role/policy graph an Engine evaluates
// against. An in-memory implementation suffices for one process; a
// tenant-scoped Redis-backed Cache (cache.go) sits in front of it.
type Store interface {
	PrincipalHierarchy
	// PoliciesByActionOrWildcard returns every policy whose Action is
	// either action or "*", in a stable order.
	PoliciesByActionOrWildcard(action string) []*Policy
}

// MemoryStore is an in-memory Store, grounded on the teacher's
// in-memory authz.Engine (a map-backed graph guarded by a mutex).
type MemoryStore struct {
	teams    map[TeamID]*Team
	roles    map[RoleID]*Role
	policies []*Policy
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{teams: make(map[TeamID]*Team), roles: make(map[RoleID]*Role)}
}

func (s *MemoryStore) AddTeam(t *Team)   { s.teams[t.ID] = t }
func (s *MemoryStore) AddRole(r *Role)   { s.roles[r.ID] = r }
func (s *MemoryStore) AddPolicy(p *Policy) { s.policies = append(s.policies, p) }

func (s *MemoryStore) Team(id TeamID) (*Team, bool) { t, ok := s.teams[id]; return t, ok }
func (s *MemoryStore) Role(id RoleID) (*Role, bool) { r, ok := s.roles[id]; return r, ok }

func (s *MemoryStore) PoliciesByActionOrWildcard(action string) []*Policy {
	out := make([]*Policy, 0, len(s.policies))
	for _, p := range s.policies {
		if p.matchesAction(action) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// Engine evaluates permit/forbid decisions against a Store.
type Engine struct {
	store Store
}

// NewEngine builds an Engine backed by store.
func NewEngine(store Store) *Engine { return &Engine{store: store} }

// GetPoliciesForActor returns every policy (keyed by id) whose
// principal constraint matches actor, expanding its roles and the
// teams (and ancestor teams) those roles and its direct memberships
// belong to, per spec.md §4.5. Membership is closed-world: an unknown
// actor id still receives globally-unconstrained and
// actor-type-matching policies, since neither requires a lookup.
func (e *Engine) GetPoliciesForActor(actor Actor, action string) map[PolicyID]*Policy {
	expandedTeams := ExpandActorTeams(e.store, actor)
	candidates := e.store.PoliciesByActionOrWildcard(action)

	out := make(map[PolicyID]*Policy, len(candidates))
	for _, p := range candidates {
		if p.Principal.Matches(actor, expandedTeams) {
			out[p.ID] = p
		}
	}
	return out
}

// Decision is the outcome of Evaluate.
type Decision struct {
	Allowed      bool
	MatchedDeny  *PolicyID
	MatchedPermit *PolicyID
}

// Evaluate implements spec.md §4.5's decision rule: gather every
// policy applicable to (actor, action), filter by resource constraint,
// deny if any Forbid matches, else allow if any Permit matches, else
// deny.
func (e *Engine) Evaluate(ctx context.Context, actor Actor, action string, resource map[string]any) (Decision, error) {
	applicable := e.GetPoliciesForActor(actor, action)

	ids := make([]PolicyID, 0, len(applicable))
	for id := range applicable {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var permitted *PolicyID
	for _, id := range ids {
		p := applicable[id]
		if p.Resource != nil {
			matched, err := p.Resource.Matches(ctx, resource)
			if err != nil {
				return Decision{}, err
			}
			if !matched {
				continue
			}
		}
		switch p.Effect {
		case EffectForbid:
			pid := p.ID
			return Decision{Allowed: false, MatchedDeny: &pid}, nil
		case EffectPermit:
			if permitted == nil {
				pid := p.ID
				permitted = &pid
			}
		}
	}

	if permitted != nil {
		return Decision{Allowed: true, MatchedPermit: permitted}, nil
	}
	return Decision{Allowed: false}, nil
}

// Check is one probe in a BatchEvaluate call.
type Check struct {
	Actor    Actor
	Action   string
	Resource map[string]any
}

// BatchEvaluate evaluates many independent checks concurrently,
// grounded on the teacher's SwarmPDP.EvaluateBatch (bounded parallel
// fan-out, deterministic result ordering) but expressed with
// errgroup.Group.SetLimit instead of a hand-rolled semaphore channel.
func (e *Engine) BatchEvaluate(ctx context.Context, checks []Check, maxParallel int) ([]Decision, error) {
	decisions := make([]Decision, len(checks))
	g, gCtx := errgroup.WithContext(ctx)
	if maxParallel > 0 {
		g.SetLimit(maxParallel)
	}
	for i, c := range checks {
		i, c := i, c
		g.Go(func() error {
			d, err := e.Evaluate(gCtx, c.Actor, c.Action, c.Resource)
			if err != nil {
				return err
			}
			decisions[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return decisions, nil
}
