package submitauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintVerify_RoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.Mint("sandbox_g1", "g1", time.Minute)
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "sandbox_g1", claims.ContainerKey)
	assert.Equal(t, "g1", claims.ChatKey)
	assert.Equal(t, "sandbox_g1", claims.Subject)
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	minter := NewTokenService("secret-a")
	verifier := NewTokenService("secret-b")

	token, err := minter.Mint("sandbox_g1", "g1", time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.Mint("sandbox_g1", "g1", -time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.Error(t, err)
}

func TestVerify_RejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret")

	_, err := svc.Verify("not-a-jwt")
	assert.Error(t, err)
}
