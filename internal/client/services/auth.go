// Package services contains application services for the fintrack client.
// This file defines the authentication service: online/offline login,
// register, logout, liveness probe, and housekeeping of local auth metadata.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fintrack/internal/client/store"
	"github.com/dmitrijs2005/fintrack/internal/cryptox"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - OnlineLogin: authenticate against the server and persist offline auth data.
//   - OfflineLogin: verify credentials against locally cached data.
//   - Register: create a new user on the server.
//   - Logout: end the session and forget the API tokens.
//   - Ping: check server liveness.
//   - SaveTokens: persist a refreshed token pair.
//   - Close: release underlying client resources.
//   - ClearOfflineData: wipe locally cached auth metadata.
//
// Both logins open the shared Session on success.
type AuthService interface {
	OfflineLogin(ctx context.Context, username string, password []byte) error
	OnlineLogin(ctx context.Context, username string, password []byte) error
	Register(ctx context.Context, username string, password []byte) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	SaveTokens(ctx context.Context, access, refresh string) error
	Close(ctx context.Context) error
	ClearOfflineData(ctx context.Context) error
}

type authService struct {
	client  client.Client
	store   *store.Store
	session *Session
}

func NewAuthService(client client.Client, st *store.Store, session *Session) AuthService {
	return &authService{client: client, store: st, session: session}
}

// OfflineLogin derives the verifier from the password and the locally stored
// salt and compares it with the stored verifier. On success the stored
// tokens are handed to the client so queued work can sync once the server is
// reachable again.
func (a *authService) OfflineLogin(ctx context.Context, username string, password []byte) error {
	saved, err := metadata.LoadSession(ctx, a.store.Metadata(nil))
	if err != nil {
		return err
	}

	if !saved.Complete() {
		return ErrLocalDataNotAvailable
	}
	if saved.Username != username {
		return client.ErrUnauthorized
	}

	masterKey := cryptox.DeriveMasterKey(password, saved.Salt)
	if !cryptox.VerifierMatches(saved.Verifier, cryptox.MakeVerifier(masterKey)) {
		return client.ErrUnauthorized
	}

	a.client.SetTokens(saved.AccessToken, saved.RefreshToken)
	a.session.set(saved.UserID, username, false)
	return nil
}

// OnlineLogin authenticates against the server and saves what offline login
// needs (username, user id, salt, verifier) together with the tokens.
func (a *authService) OnlineLogin(ctx context.Context, username string, password []byte) error {
	salt, err := a.client.GetSalt(ctx, username)
	if err != nil {
		return fmt.Errorf("get salt error: %w", err)
	}

	verifier := cryptox.MakeVerifier(cryptox.DeriveMasterKey(password, salt))

	userID, err := a.client.Login(ctx, username, verifier)
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	access, refresh := a.client.Tokens()
	err = metadata.SaveSession(ctx, a.store.Metadata(nil), metadata.Session{
		Username:     username,
		UserID:       userID,
		Salt:         salt,
		Verifier:     verifier,
		AccessToken:  access,
		RefreshToken: refresh,
	})
	if err != nil {
		return fmt.Errorf("offline data saving error: %w", err)
	}

	a.session.set(userID, username, true)
	return nil
}

// Register creates a new account on the server with a fresh random salt.
func (a *authService) Register(ctx context.Context, username string, password []byte) error {
	salt, err := cryptox.NewSalt()
	if err != nil {
		return err
	}
	verifier := cryptox.MakeVerifier(cryptox.DeriveMasterKey(password, salt))

	return a.client.Register(ctx, username, salt, verifier)
}

// Logout forgets the tokens and closes the session. Offline login data and
// local records stay, so the user can log in again without the server.
func (a *authService) Logout(ctx context.Context) error {
	a.client.SetTokens("", "")
	a.session.clear()

	return metadata.ForgetTokens(ctx, a.store.Metadata(nil))
}

func (a *authService) SaveTokens(ctx context.Context, access, refresh string) error {
	return metadata.SetStrings(ctx, a.store.Metadata(nil), map[string]string{
		metadata.KeyAccessToken:  access,
		metadata.KeyRefreshToken: refresh,
	})
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

// ClearOfflineData wipes locally cached auth metadata.
func (a *authService) ClearOfflineData(ctx context.Context) error {
	a.session.clear()
	return a.store.Metadata(nil).Clear(ctx)
}
