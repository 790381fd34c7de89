package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
	"translator/internal/models"

	"github.com/google/uuid"
)

// InboxEntry is one line of the inbox file.
type InboxEntry struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// InboxNotifier appends notifications as JSON lines to a file the desktop UI
// tails. With an empty path notifications are only logged.
type InboxNotifier struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewInboxNotifier(path string) *InboxNotifier {
	return &InboxNotifier{path: path, now: time.Now}
}

func (i *InboxNotifier) Notify(ctx context.Context, n models.LocalNotification) error {
	entry := InboxEntry{
		ID:        uuid.NewString(),
		Title:     n.Title,
		Body:      n.Body,
		Metadata:  n.Metadata,
		CreatedAt: i.now().UTC(),
	}

	slog.InfoContext(ctx, "Local notification",
		"id", entry.ID,
		"title", entry.Title,
		"type", n.Metadata["type"])

	if i.path == "" {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	line = append(line, '\n')

	i.mu.Lock()
	defer i.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(i.path), 0700); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}
	f, err := os.OpenFile(i.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open inbox: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to inbox: %w", err)
	}
	return f.Close()
}
