package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/prompt-relay/internal/auth"
	"gwi.com/prompt-relay/internal/common"
	"gwi.com/prompt-relay/internal/logging"
)

func newTestAuthService(t *testing.T) (*AuthService, *fakeUsers, *fakeMailer) {
	t.Helper()

	pending, err := auth.NewPendingStore(16)
	require.NoError(t, err)
	users := &fakeUsers{}
	mailer := &fakeMailer{}
	return NewAuthService(users, pending, mailer, logging.Discard()), users, mailer
}

func TestAuth_RegisterVerifyLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, users, mailer := newTestAuthService(t)

	require.NoError(t, svc.Register(ctx, "sid", "alice", "a@x.com", "pw"))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "a@x.com", mailer.sent[0].to)
	assert.True(t, svc.HasPending("sid"))
	assert.Empty(t, users.users)

	user, err := svc.VerifyOTP(ctx, "sid", mailer.sent[0].code)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "pw", user.PasswordHash)
	assert.False(t, svc.HasPending("sid"))

	got, err := svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestAuth_RegisterDuplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, users, mailer := newTestAuthService(t)
	_, err := users.CreateUser(ctx, "alice", "a@x.com", "hash")
	require.NoError(t, err)

	for name, tc := range map[string][2]string{
		"both":     {"alice", "a@x.com"},
		"username": {"alice", "other@x.com"},
		"email":    {"bob", "a@x.com"},
	} {
		err := svc.Register(ctx, "sid-"+name, tc[0], tc[1], "pw")
		assert.ErrorIs(t, err, common.ErrUserExists, name)
		assert.False(t, svc.HasPending("sid-"+name), name)
	}
	assert.Empty(t, mailer.sent)
	assert.Len(t, users.users, 1)
}

func TestAuth_RegisterMissingFields(t *testing.T) {
	t.Parallel()
	svc, _, mailer := newTestAuthService(t)

	assert.ErrorIs(t, svc.Register(context.Background(), "sid", "  ", "a@x.com", "pw"), common.ErrMissingFields)
	assert.ErrorIs(t, svc.Register(context.Background(), "sid", "alice", "a@x.com", ""), common.ErrMissingFields)
	assert.Empty(t, mailer.sent)
}

func TestAuth_RegisterMailFailureKeepsNothing(t *testing.T) {
	t.Parallel()
	svc, _, mailer := newTestAuthService(t)
	mailer.err = errors.New("smtp down")

	err := svc.Register(context.Background(), "sid", "alice", "a@x.com", "pw")
	assert.EqualError(t, err, "smtp down")
	assert.False(t, svc.HasPending("sid"))
}

func TestAuth_WrongCodeRetriesForever(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, users, _ := newTestAuthService(t)
	svc.generateOTP = func() (int, error) { return 123456, nil }

	require.NoError(t, svc.Register(ctx, "sid", "alice", "a@x.com", "pw"))

	for i := 0; i < 10; i++ {
		_, err := svc.VerifyOTP(ctx, "sid", 654321)
		assert.ErrorIs(t, err, common.ErrInvalidOTP)
	}
	assert.True(t, svc.HasPending("sid"))
	assert.Empty(t, users.users)

	_, err := svc.VerifyOTP(ctx, "sid", 123456)
	require.NoError(t, err)
	assert.Len(t, users.users, 1)

	_, err = svc.VerifyOTP(ctx, "sid", 123456)
	assert.ErrorIs(t, err, common.ErrNoPendingRegistration)
}

func TestAuth_NewRegistrationReplacesCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newTestAuthService(t)

	codes := []int{111111, 222222}
	svc.generateOTP = func() (int, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	require.NoError(t, svc.Register(ctx, "sid", "alice", "a@x.com", "pw"))
	require.NoError(t, svc.Register(ctx, "sid", "alice2", "a2@x.com", "pw"))

	_, err := svc.VerifyOTP(ctx, "sid", 111111)
	assert.ErrorIs(t, err, common.ErrInvalidOTP)

	user, err := svc.VerifyOTP(ctx, "sid", 222222)
	require.NoError(t, err)
	assert.Equal(t, "alice2", user.Username)
}

func TestAuth_VerifyScopedToSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, mailer := newTestAuthService(t)

	require.NoError(t, svc.Register(ctx, "sid-a", "alice", "a@x.com", "pw"))

	_, err := svc.VerifyOTP(ctx, "sid-b", mailer.sent[0].code)
	assert.ErrorIs(t, err, common.ErrNoPendingRegistration)
}

func TestAuth_LoginGenericFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, users, _ := newTestAuthService(t)
	hash, err := auth.HashPassword("right")
	require.NoError(t, err)
	_, err = users.CreateUser(ctx, "alice", "a@x.com", hash)
	require.NoError(t, err)

	_, errUnknown := svc.Login(ctx, "nobody", "right")
	_, errWrong := svc.Login(ctx, "alice", "wrong")

	assert.ErrorIs(t, errUnknown, common.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, common.ErrInvalidCredentials)
	assert.Equal(t, errUnknown, errWrong)
}
