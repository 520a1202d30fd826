package identity_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashintel/hash-sub007/pkg/identity"
	"github.com/hashintel/hash-sub007/pkg/policy"
)

func TestIssueAndVerifyServiceToken_RoundTrips(t *testing.T) {
	ks, err := identity.NewInMemoryKeySet()
	require.NoError(t, err)

	actorID := policy.ActorID(uuid.New())
	ttl := jwt.NewNumericDate(time.Now().Add(time.Hour))
	token, err := identity.IssueServiceToken(ks, actorID, policy.ActorMachine, *ttl)
	require.NoError(t, err)

	gotID, gotType, err := identity.VerifyServiceToken(ks, token)
	require.NoError(t, err)
	assert.Equal(t, actorID, gotID)
	assert.Equal(t, policy.ActorMachine, gotType)
}

func TestVerifyServiceToken_RejectsExpiredToken(t *testing.T) {
	ks, err := identity.NewInMemoryKeySet()
	require.NoError(t, err)

	actorID := policy.ActorID(uuid.New())
	expired := jwt.NewNumericDate(time.Now().Add(-time.Hour))
	token, err := identity.IssueServiceToken(ks, actorID, policy.ActorAI, *expired)
	require.NoError(t, err)

	_, _, err = identity.VerifyServiceToken(ks, token)
	assert.Error(t, err)
}

func TestVerifyServiceToken_RejectsUserActorType(t *testing.T) {
	ks, err := identity.NewInMemoryKeySet()
	require.NoError(t, err)

	actorID := policy.ActorID(uuid.New())
	ttl := jwt.NewNumericDate(time.Now().Add(time.Hour))
	token, err := identity.IssueServiceToken(ks, actorID, policy.ActorUser, *ttl)
	require.NoError(t, err)

	_, _, err = identity.VerifyServiceToken(ks, token)
	assert.Error(t, err)
}

func TestVerifyServiceToken_RejectsTokenFromUnknownKey(t *testing.T) {
	ks1, err := identity.NewInMemoryKeySet()
	require.NoError(t, err)
	ks2, err := identity.NewInMemoryKeySet()
	require.NoError(t, err)

	actorID := policy.ActorID(uuid.New())
	ttl := jwt.NewNumericDate(time.Now().Add(time.Hour))
	token, err := identity.IssueServiceToken(ks1, actorID, policy.ActorMachine, *ttl)
	require.NoError(t, err)

	_, _, err = identity.VerifyServiceToken(ks2, token)
	assert.Error(t, err)
}

func TestKeySet_RotateKeepsOldKeysVerifiable(t *testing.T) {
	ks, err := identity.NewInMemoryKeySet()
	require.NoError(t, err)

	actorID := policy.ActorID(uuid.New())
	ttl := jwt.NewNumericDate(time.Now().Add(time.Hour))
	token, err := identity.IssueServiceToken(ks, actorID, policy.ActorMachine, *ttl)
	require.NoError(t, err)

	require.NoError(t, ks.Rotate())

	_, _, err = identity.VerifyServiceToken(ks, token)
	assert.NoError(t, err)
}
