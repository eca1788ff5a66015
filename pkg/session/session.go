// Package session keeps workspace credentials for the CLI and the server.
//
// A [Session] is one access token plus the bot and workspace it belongs
// to. [FileStore], [RedisStore] and [MongoStore] implement [Store]; the
// CLI wraps a FileStore in a [CLIStore] holding its single login.
//
// A [StateStore] issues the single-use state tokens that tie an OAuth
// callback to the browser that started it.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
)

// ErrInvalidState reports an unknown, expired or reused state token.
var ErrInvalidState = errors.New("invalid or expired state token")

// Lifetimes.
const (
	DefaultTTL      = 7 * 24 * time.Hour
	DefaultStateTTL = 10 * time.Minute

	// CLITTL keeps a CLI login until logout.
	CLITTL = 10 * 365 * 24 * time.Hour
)

// Session is one workspace connection.
type Session struct {
	ID            string    `json:"id" bson:"_id"`
	AccessToken   string    `json:"access_token" bson:"access_token"`
	BotID         string    `json:"bot_id,omitempty" bson:"bot_id,omitempty"`
	WorkspaceID   string    `json:"workspace_id,omitempty" bson:"workspace_id,omitempty"`
	WorkspaceName string    `json:"workspace_name,omitempty" bson:"workspace_name,omitempty"`
	ExpiresAt     time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

func (s *Session) IsExpired() bool { return time.Now().After(s.ExpiresAt) }

// UserID is "notion:<bot id>", or "" without a bot. Cache keys are scoped
// by it.
func (s *Session) UserID() string {
	if s == nil || s.BotID == "" {
		return ""
	}
	return "notion:" + s.BotID
}

// Store persists sessions. Get returns nil, nil for missing and expired
// sessions; Delete of a missing session is not an error.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Set(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id string) error
	// Cleanup drops expired sessions. Backends with native expiry do
	// nothing.
	Cleanup(ctx context.Context) error
	Close() error
}

// StateStore issues OAuth state tokens. Validate consumes the token.
type StateStore interface {
	Generate(ctx context.Context, ttl time.Duration) (string, error)
	Validate(ctx context.Context, state string) (bool, error)
	Cleanup(ctx context.Context) error
	Close() error
}

// GenerateID returns a random session id of 26 base32 characters.
func GenerateID() (string, error) {
	return rand.Text(), nil
}

// GenerateState returns a random OAuth state token.
func GenerateState() (string, error) {
	return rand.Text(), nil
}

// New creates a session for accessToken that expires after ttl.
func New(accessToken, botID string, ttl time.Duration) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:          id,
		AccessToken: accessToken,
		BotID:       botID,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}, nil
}

// FromToken creates a session from an OAuth code exchange.
func FromToken(tok *notion.Token, ttl time.Duration) (*Session, error) {
	sess, err := New(tok.AccessToken, tok.BotID, ttl)
	if err != nil {
		return nil, err
	}
	sess.WorkspaceID, sess.WorkspaceName = tok.WorkspaceID, tok.WorkspaceName
	return sess, nil
}
