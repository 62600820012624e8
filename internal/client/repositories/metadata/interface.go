// Package metadata stores small key/value facts about the local session in
// the metadata table: who is logged in, their salt and verifier for offline
// login, the current API tokens and when the queue last drained.
package metadata

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
)

// Well-known keys.
const (
	KeyUsername     = "username"
	KeyUserID       = "user_id"
	KeySalt         = "salt"
	KeyVerifier     = "verifier"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyLastSyncAt   = "last_sync_at"
)

// Repository is a byte-valued key/value store. Get returns (nil, nil) for
// absent keys; GetMany leaves them out of the map.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMany(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}

// GetString reads key as a string; absent keys yield "".
func GetString(ctx context.Context, r Repository, key string) (string, error) {
	v, err := r.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// SetStrings writes several string values in one statement.
func SetStrings(ctx context.Context, r Repository, values map[string]string) error {
	raw := make(map[string][]byte, len(values))
	for k, v := range values {
		raw[k] = []byte(v)
	}
	return r.SetMany(ctx, raw)
}

// Session is what offline login needs, plus the last known tokens.
type Session struct {
	Username     string
	UserID       string
	Salt         []byte
	Verifier     []byte
	AccessToken  string
	RefreshToken string
}

// Complete reports whether offline login is possible with s.
func (s Session) Complete() bool {
	return s.Username != "" && s.UserID != "" && len(s.Salt) > 0 && len(s.Verifier) > 0
}

// LoadSession reads the session keys. Missing keys leave zero fields.
func LoadSession(ctx context.Context, r Repository) (Session, error) {
	m, err := r.GetMany(ctx, KeyUsername, KeyUserID, KeySalt, KeyVerifier, KeyAccessToken, KeyRefreshToken)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Username:     string(m[KeyUsername]),
		UserID:       string(m[KeyUserID]),
		Salt:         m[KeySalt],
		Verifier:     m[KeyVerifier],
		AccessToken:  string(m[KeyAccessToken]),
		RefreshToken: string(m[KeyRefreshToken]),
	}, nil
}

// SaveSession writes every session key at once.
func SaveSession(ctx context.Context, r Repository, s Session) error {
	return r.SetMany(ctx, map[string][]byte{
		KeyUsername:     []byte(s.Username),
		KeyUserID:       []byte(s.UserID),
		KeySalt:         s.Salt,
		KeyVerifier:     s.Verifier,
		KeyAccessToken:  []byte(s.AccessToken),
		KeyRefreshToken: []byte(s.RefreshToken),
	})
}

// ForgetTokens drops both tokens and keeps the offline login data.
func ForgetTokens(ctx context.Context, r Repository) error {
	return r.Delete(ctx, KeyAccessToken, KeyRefreshToken)
}

// LastSyncAt returns when the queue last drained cleanly. ok is false when
// it never has or the stored value is unreadable.
func LastSyncAt(ctx context.Context, r Repository) (t time.Time, ok bool, err error) {
	v, err := r.Get(ctx, KeyLastSyncAt)
	if err != nil || len(v) == 0 {
		return time.Time{}, false, err
	}
	t, perr := models.ParseTime(string(v))
	if perr != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

func SetLastSyncAt(ctx context.Context, r Repository, t time.Time) error {
	return r.Set(ctx, KeyLastSyncAt, []byte(models.FormatTime(t)))
}
