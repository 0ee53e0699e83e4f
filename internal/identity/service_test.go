package identity_test

import (
	"context"
	"testing"
	"time"

	"zipchat/internal/config"
	"zipchat/internal/identity"
	"zipchat/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *identity.Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = []byte("test-secret")
	cfg.JWT.ExpiresIn = time.Hour
	return identity.NewService(store.NewMemoryStore(), cfg)
}

func TestRegisterAndResolveToken(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &identity.Credentials{Username: "alice", Passcode: "hunter2"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Empty(t, resp.User.PasscodeHash)

	user, err := svc.GetUserFromToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)
	assert.Equal(t, "alice", user.Username)
}

func TestLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &identity.Credentials{Username: "alice", Passcode: "hunter2"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &identity.Credentials{Username: "alice", Passcode: "hunter2"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	_, err = svc.Login(ctx, &identity.Credentials{Username: "alice", Passcode: "wrong"})
	assert.Error(t, err)

	_, err = svc.Login(ctx, &identity.Credentials{Username: "nobody", Passcode: "hunter2"})
	assert.Error(t, err)
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	cases := []identity.Credentials{
		{Username: "", Passcode: "hunter2"},
		{Username: "al", Passcode: "hunter2"},
		{Username: "alice has spaces", Passcode: "hunter2"},
		{Username: "alice", Passcode: "short"},
	}
	for _, creds := range cases {
		_, err := svc.Register(ctx, &creds)
		assert.Error(t, err, "credentials %+v should be rejected", creds)
	}
}

func TestInvalidToken(t *testing.T) {
	svc := newService(t)

	_, err := svc.GetUserFromToken(context.Background(), "not-a-token")
	assert.Error(t, err)
}
