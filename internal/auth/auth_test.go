package auth_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-ledger/internal/auth"
)

const testOwner = "277a995786d08939d43de937d2f054d7a460f2e7"

func newTestAuth() *auth.Auth {
	return auth.New(testOwner, "test-jwt-secret", "callback-secret")
}

func TestIsOwner(t *testing.T) {
	a := newTestAuth()

	assert.True(t, a.IsOwner(testOwner))
	assert.False(t, a.IsOwner("someone-else"))
	assert.False(t, a.IsOwner(""))
}

func TestOwnerRequestRoundTrip(t *testing.T) {
	a := newTestAuth()

	token, err := a.IssueToken(testOwner)
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/invoke", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	addr, err := a.CallerAddress(r)
	require.NoError(t, err)
	assert.Equal(t, testOwner, addr)
	assert.True(t, a.IsOwnerRequest(r))
}

func TestNonOwnerToken(t *testing.T) {
	a := newTestAuth()

	token, err := a.IssueToken("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/invoke", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	assert.False(t, a.IsOwnerRequest(r))
}

func TestTokenSignedWithWrongSecretRejected(t *testing.T) {
	a := newTestAuth()
	forger := auth.New(testOwner, "other-secret", "")

	token, err := forger.IssueToken(testOwner)
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/invoke", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	assert.False(t, a.IsOwnerRequest(r))
}

func TestMissingOrMalformedHeader(t *testing.T) {
	a := newTestAuth()

	r := httptest.NewRequest("POST", "/invoke", nil)
	_, err := a.CallerAddress(r)
	assert.Error(t, err)

	r.Header.Set("Authorization", "Basic abc")
	_, err = a.CallerAddress(r)
	assert.Error(t, err)
}

func TestFromTokenService(t *testing.T) {
	a := newTestAuth()

	r := httptest.NewRequest("POST", "/callbacks/token-transfer", nil)
	assert.False(t, a.FromTokenService(r))

	r.Header.Set(auth.CallbackSecretHeader, "wrong")
	assert.False(t, a.FromTokenService(r))

	r.Header.Set(auth.CallbackSecretHeader, "callback-secret")
	assert.True(t, a.FromTokenService(r))
}

func TestEmptyCallbackSecretNeverMatches(t *testing.T) {
	a := auth.New(testOwner, "s", "")

	r := httptest.NewRequest("POST", "/callbacks/token-transfer", nil)
	r.Header.Set(auth.CallbackSecretHeader, "")
	assert.False(t, a.FromTokenService(r))
}
