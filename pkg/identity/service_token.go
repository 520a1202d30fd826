package identity

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hashintel/hash-sub007/pkg/policy"
)

// ServiceClaims is the JWT claim set a Machine or Ai actor's service
// token carries: a standard registered claim set plus the actor's
// type, so verification alone is enough to build a policy.Actor
// reference without a separate principal lookup.
type ServiceClaims struct {
	jwt.RegisteredClaims
	ActorType string `json:"actor_type"`
}

// IssueServiceToken signs a service token for actorID/actorType that
// expires at the given time (ttl is an absolute expiry, not a duration).
func IssueServiceToken(ks KeySet, actorID policy.ActorID, actorType policy.ActorType, ttl jwt.NumericDate) (string, error) {
	claims := ServiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			ExpiresAt: &ttl,
		},
		ActorType: string(actorType),
	}
	return ks.Sign(context.Background(), claims)
}

// VerifyServiceToken verifies tokenString's signature via ks and
// decodes its subject/actor-type into a policy.ActorID/ActorType
// pair. A Machine or Ai actor presenting an expired, malformed, or
// unverifiable token is rejected outright — there is no unverified
// fallback, unlike the teacher's SSO MVP path.
func VerifyServiceToken(ks KeySet, tokenString string) (policy.ActorID, policy.ActorType, error) {
	var claims ServiceClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, ks.KeyFunc())
	if err != nil {
		return policy.ActorID{}, "", fmt.Errorf("identity: verify service token: %w", err)
	}
	if !token.Valid {
		return policy.ActorID{}, "", fmt.Errorf("identity: service token failed validation")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return policy.ActorID{}, "", fmt.Errorf("identity: service token subject %q is not a UUID: %w", claims.Subject, err)
	}

	actorType, err := parseActorType(claims.ActorType)
	if err != nil {
		return policy.ActorID{}, "", fmt.Errorf("identity: service token: %w", err)
	}
	if actorType != policy.ActorMachine && actorType != policy.ActorAI {
		return policy.ActorID{}, "", fmt.Errorf("identity: service tokens may only assert machine or ai actor types, got %q", actorType)
	}

	return policy.ActorID(id), actorType, nil
}

func parseActorType(s string) (policy.ActorType, error) {
	switch policy.ActorType(s) {
	case policy.ActorUser, policy.ActorMachine, policy.ActorAI:
		return policy.ActorType(s), nil
	default:
		return "", fmt.Errorf("unknown actor type %q", s)
	}
}
