package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
)

func stubInputs(t *testing.T, username string, password []byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return username, nil }
	getPassword = func(_ io.Writer) ([]byte, error) { return append([]byte(nil), password...), nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

type fakeAuth struct {
	regUser string
	regPass []byte
	regErr  error

	onlineUser string
	onlineErr  error

	offlineUser string
	offlinePass []byte
	offlineErr  error

	logoutCalled bool
	logoutErr    error
}

func (f *fakeAuth) Register(_ context.Context, user string, pass []byte) error {
	f.regUser, f.regPass = user, append([]byte(nil), pass...)
	return f.regErr
}
func (f *fakeAuth) OnlineLogin(_ context.Context, user string, _ []byte) error {
	f.onlineUser = user
	return f.onlineErr
}
func (f *fakeAuth) OfflineLogin(_ context.Context, user string, pass []byte) error {
	f.offlineUser, f.offlinePass = user, append([]byte(nil), pass...)
	return f.offlineErr
}
func (f *fakeAuth) Logout(context.Context) error {
	f.logoutCalled = true
	return f.logoutErr
}
func (f *fakeAuth) Ping(context.Context) error { return nil }
func (f *fakeAuth) SaveTokens(context.Context, string, string) error { return nil }
func (f *fakeAuth) Close(context.Context) error { return nil }
func (f *fakeAuth) ClearOfflineData(context.Context) error { return nil }

func newAuthApp(f *fakeAuth) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{authService: f, sync: &fakeSync{reconciled: 2}, session: &fakeIdentity{}, out: &out}, &out
}

func TestRegister_Success(t *testing.T) {
	f := &fakeAuth{}
	a, out := newAuthApp(f)
	stubInputs(t, "alice", []byte("secret"))

	require.NoError(t, a.Register(context.Background()))
	assert.Equal(t, "alice", f.regUser)
	assert.Equal(t, "secret", string(f.regPass))
	assert.Contains(t, out.String(), "Registered")
}

func TestRegister_ErrorPropagates(t *testing.T) {
	a, _ := newAuthApp(&fakeAuth{regErr: errors.New("taken")})
	stubInputs(t, "alice", []byte("secret"))
	require.Error(t, a.Register(context.Background()))
}

func TestLogin_Online(t *testing.T) {
	f := &fakeAuth{}
	a, out := newAuthApp(f)
	stubInputs(t, "alice", []byte("pw"))

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, "alice", f.onlineUser)
	assert.Empty(t, f.offlineUser, "offline login not attempted")
	assert.Contains(t, out.String(), "online")
	assert.Contains(t, out.String(), "Re-queued 2 unsynced records.")
}

func TestLogin_FallsBackToOfflineWhenUnavailable(t *testing.T) {
	f := &fakeAuth{onlineErr: fmt.Errorf("get salt error: %w", client.ErrUnavailable)}
	a, out := newAuthApp(f)
	stubInputs(t, "alice", []byte("pw"))

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, "alice", f.offlineUser)
	assert.Equal(t, "pw", string(f.offlinePass))
	assert.Contains(t, out.String(), "offline")
}

func TestLogin_OfflineFailure(t *testing.T) {
	f := &fakeAuth{onlineErr: client.ErrUnavailable, offlineErr: client.ErrUnauthorized}
	a, _ := newAuthApp(f)
	stubInputs(t, "alice", []byte("pw"))

	err := a.Login(context.Background())
	require.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestLogin_RejectedOnlineDoesNotTryOffline(t *testing.T) {
	f := &fakeAuth{onlineErr: fmt.Errorf("login error: %w", client.ErrUnauthorized)}
	a, _ := newAuthApp(f)
	stubInputs(t, "alice", []byte("pw"))

	require.ErrorIs(t, a.Login(context.Background()), client.ErrUnauthorized)
	assert.Empty(t, f.offlineUser)
}

func TestLogout(t *testing.T) {
	f := &fakeAuth{}
	a, _ := newAuthApp(f)
	require.NoError(t, a.Logout(context.Background()))
	assert.True(t, f.logoutCalled)

	f.logoutErr = errors.New("io")
	require.Error(t, a.Logout(context.Background()))
}
