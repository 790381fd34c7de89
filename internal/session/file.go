package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/tidwall/gjson"
)

// FileSession reads the session document the desktop client writes on sign-in:
//
//	{"token": "...", "user": {"id": "...", "name": "...", "role": "user|admin"}}
//
// Without Watch every call re-reads the file. While Watch runs, the parsed
// session is cached and refreshed on file system events.
type FileSession struct {
	path string

	mu       sync.RWMutex
	watching bool
	cached   Session
	cacheErr error
}

func NewFileSession(path string) *FileSession {
	return &FileSession{path: path}
}

func (f *FileSession) Current(ctx context.Context) (Session, error) {
	f.mu.RLock()
	if f.watching {
		defer f.mu.RUnlock()
		return f.cached, f.cacheErr
	}
	f.mu.RUnlock()

	return f.read()
}

func (f *FileSession) IsExempt(ctx context.Context) (bool, error) {
	return isExempt(ctx, f)
}

func (f *FileSession) Token(ctx context.Context) (string, error) {
	return token(ctx, f)
}

func (f *FileSession) read() (Session, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session file: %w", err)
	}
	return parseSession(data)
}

func parseSession(data []byte) (Session, error) {
	if len(data) == 0 {
		return Session{}, ErrNoSession
	}
	if !gjson.ValidBytes(data) {
		return Session{}, fmt.Errorf("%w: session file is not valid JSON", ErrNoSession)
	}

	doc := gjson.ParseBytes(data)
	s := Session{
		Token: doc.Get("token").String(),
		User: User{
			ID:   doc.Get("user.id").String(),
			Name: doc.Get("user.name").String(),
			Role: doc.Get("user.role").String(),
		},
	}
	if s.User.ID == "" {
		return Session{}, ErrNoSession
	}
	return s, nil
}

func (f *FileSession) reload() {
	s, err := f.read()

	f.mu.Lock()
	previous := f.cached
	f.cached, f.cacheErr = s, err
	f.mu.Unlock()

	switch {
	case err != nil && !errors.Is(err, ErrNoSession):
		slog.Warn("Failed to reload session", "path", f.path, "error", err)
	case previous.User.ID != s.User.ID:
		slog.Info("Signed-in user changed", "user_id", s.User.ID)
	case previous.User.Role != s.User.Role:
		slog.Info("Session role changed", "user_id", s.User.ID, "role", s.User.Role)
	}
}

// Watch caches the session and reloads it whenever the file changes, until
// ctx is cancelled. The parent directory is watched so editors that replace
// the file by rename are picked up.
func (f *FileSession) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	f.reload()
	f.mu.Lock()
	f.watching = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.watching = false
		f.mu.Unlock()
	}()

	target := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				f.reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Session watcher error", "error", err)
		}
	}
}
