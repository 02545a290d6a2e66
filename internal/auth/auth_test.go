package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	in := Session{ID: "sid-1", UserID: 42, Username: "alice"}

	tok, err := GenerateSessionToken(in, secret, time.Hour)
	require.NoError(t, err)

	out, err := ParseSessionToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.True(t, out.Authenticated())
}

func TestSessionToken_Anonymous(t *testing.T) {
	t.Parallel()

	tok, err := GenerateSessionToken(Session{ID: "sid-2"}, []byte("k"), time.Hour)
	require.NoError(t, err)

	out, err := ParseSessionToken(tok, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "sid-2", out.ID)
	assert.False(t, out.Authenticated())
}

func TestSessionToken_Rejected(t *testing.T) {
	t.Parallel()

	good, err := GenerateSessionToken(Session{ID: "s", UserID: 1}, []byte("right"), time.Hour)
	require.NoError(t, err)
	expired, err := GenerateSessionToken(Session{ID: "s", UserID: 1}, []byte("right"), -time.Second)
	require.NoError(t, err)
	noSID, err := GenerateSessionToken(Session{UserID: 1}, []byte("right"), time.Hour)
	require.NoError(t, err)

	for name, tc := range map[string]struct {
		token  string
		secret string
	}{
		"wrong secret": {good, "wrong"},
		"expired":      {expired, "right"},
		"malformed":    {"not.a.jwt", "right"},
		"missing sid":  {noSID, "right"},
	} {
		_, err := ParseSessionToken(tc.token, []byte(tc.secret))
		assert.Error(t, err, name)
	}
}

func TestPasswordHash(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPasswordHash("s3cret", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
	assert.False(t, CheckPasswordHash("s3cret", "not-a-bcrypt-hash"))

	other, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "hashes must be salted")
}

func TestGenerateOTP_SixDigits(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, code, 100000)
		assert.LessOrEqual(t, code, 999999)
	}
}

func TestPendingStore(t *testing.T) {
	t.Parallel()

	p, err := NewPendingStore(2)
	require.NoError(t, err)

	_, ok := p.Get("a")
	assert.False(t, ok)

	p.Put("a", PendingRegistration{Username: "alice", Code: 111111})
	p.Put("a", PendingRegistration{Username: "alice", Code: 222222})
	got, ok := p.Get("a")
	require.True(t, ok)
	assert.Equal(t, 222222, got.Code, "a new submission replaces the pending one")

	p.Delete("a")
	_, ok = p.Get("a")
	assert.False(t, ok)
}

func TestPendingStore_EvictsOldest(t *testing.T) {
	t.Parallel()

	p, err := NewPendingStore(2)
	require.NoError(t, err)

	p.Put("a", PendingRegistration{Username: "a"})
	p.Put("b", PendingRegistration{Username: "b"})
	p.Put("c", PendingRegistration{Username: "c"})

	_, ok := p.Get("a")
	assert.False(t, ok)
	_, ok = p.Get("c")
	assert.True(t, ok)
}
