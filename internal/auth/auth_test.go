package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(ttl time.Duration) *SessionManager {
	return &SessionManager{secret: []byte("test-signing-secret"), ttl: ttl}
}

func TestTokenRoundTrip(t *testing.T) {
	sm := testManager(time.Hour)

	token, err := sm.IssueToken("alice", "user")
	require.NoError(t, err)

	ident, err := sm.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", ident.Username)
	assert.Equal(t, "user", ident.Role)
}

func TestTokenCarriesAdminRole(t *testing.T) {
	sm := testManager(time.Hour)

	token, err := sm.IssueToken("root", "admin")
	require.NoError(t, err)

	ident, err := sm.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", ident.Role)
}

func TestExpiredTokenRejected(t *testing.T) {
	sm := testManager(-time.Minute)

	token, err := sm.IssueToken("alice", "user")
	require.NoError(t, err)

	_, err = sm.VerifyToken(token)
	assert.Error(t, err)
}

func TestTamperedTokenRejected(t *testing.T) {
	sm := testManager(time.Hour)

	token, err := sm.IssueToken("alice", "user")
	require.NoError(t, err)

	// Flip a character in the payload segment.
	tampered := []byte(token)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}
	_, err = sm.VerifyToken(string(tampered))
	assert.Error(t, err)
}

func TestTokenSignedWithDifferentSecretRejected(t *testing.T) {
	token, err := testManager(time.Hour).IssueToken("alice", "user")
	require.NoError(t, err)

	other := &SessionManager{secret: []byte("another-secret"), ttl: time.Hour}
	_, err = other.VerifyToken(token)
	assert.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	sm := testManager(time.Hour)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := sm.VerifyToken(tok)
		assert.Error(t, err, "token %q", tok)
	}
}
