package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileStore keeps one JSON file per session under a directory. The
// directory and its files are private to the user, since they hold
// integration tokens.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates dir with mode 0700 and returns a store on it.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("session dir is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// validID rejects ids that could escape the directory. Server session ids
// come from cookies.
func validID(id string) bool {
	return id != "" && len(id) <= 128 && !strings.ContainsAny(id, `/\.`)
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// read loads the session at path. Expired sessions are removed and
// returned as nil.
func (s *FileStore) read(path string, now time.Time) (*Session, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", filepath.Base(path), err)
	}
	if now.After(sess.ExpiresAt) {
		_ = os.Remove(path)
		return nil, nil
	}
	return &sess, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*Session, error) {
	if !validID(id) {
		return nil, nil
	}
	// Expired entries are removed during the read, so take the write lock.
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(s.path(id), time.Now())
}

// Set writes through a temporary file so a crash never leaves a half
// written token behind.
func (s *FileStore) Set(ctx context.Context, sess *Session) error {
	if !validID(sess.ID) {
		return fmt.Errorf("invalid session id %q", sess.ID)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return os.Rename(tmp.Name(), s.path(sess.ID))
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// Cleanup removes expired session files. Unreadable files are left alone.
func (s *FileStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return err
	}
	now := time.Now()
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, _ = s.read(path, now)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)

// CLIStore holds the single login of the CLI as notion.json in a
// [FileStore].
type CLIStore struct {
	files *FileStore
}

const cliSessionID = "notion"

// NewCLIStore opens the CLI login store in dir.
func NewCLIStore(dir string) (*CLIStore, error) {
	files, err := NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	return &CLIStore{files: files}, nil
}

// GetSession returns the login, or nil when logged out or expired.
func (c *CLIStore) GetSession(ctx context.Context) (*Session, error) {
	return c.files.Get(ctx, cliSessionID)
}

// SaveSession stores sess as the login, replacing its id.
func (c *CLIStore) SaveSession(ctx context.Context, sess *Session) error {
	sess.ID = cliSessionID
	return c.files.Set(ctx, sess)
}

func (c *CLIStore) DeleteSession(ctx context.Context) error {
	return c.files.Delete(ctx, cliSessionID)
}

// Path returns the login file.
func (c *CLIStore) Path() string { return c.files.path(cliSessionID) }
