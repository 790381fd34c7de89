package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// jsonSchemaVersion identifies the on-disk document layout.
const jsonSchemaVersion = 1

// JSONStore implements Store with a single JSON document on disk. The document
// is cached in memory and re-read whenever the file's modification time or size
// differs from the last read, so edits made by another process are picked up.
// An edit that keeps both is not detected.
type JSONStore struct {
	filePath     string
	mu           sync.RWMutex
	data         *JSONData
	lastModified time.Time
	lastSize     int64
	closed       bool
}

// JSONData represents the structure of data stored in JSON format
type JSONData struct {
	SchemaVersion int               `json:"schema_version"`
	WrittenAt     time.Time         `json:"written_at"`
	Entries       map[string]string `json:"entries"`
}

// NewJSONStore creates a new JSON-based store. A missing file is created empty;
// an unreadable document is moved aside to <path>.corrupt and replaced.
func NewJSONStore(filePath string) (*JSONStore, error) {
	if filePath == "" {
		return nil, errors.New("path is required for JSON storage")
	}

	store := &JSONStore{
		filePath: filePath,
	}

	// Initialize with empty data if file doesn't exist
	if err := store.ensureFileExists(); err != nil {
		return nil, fmt.Errorf("failed to ensure file exists: %w", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.loadLocked(); err != nil {
		if !errors.Is(err, errCorruptDocument) {
			return nil, fmt.Errorf("failed to load initial data: %w", err)
		}
		if err := store.quarantineLocked(err); err != nil {
			return nil, err
		}
	}

	return store, nil
}

var errCorruptDocument = errors.New("corrupt JSON document")

// ensureFileExists creates the JSON file with empty data if it doesn't exist
func (j *JSONStore) ensureFileExists() error {
	if _, err := os.Stat(j.filePath); errors.Is(err, fs.ErrNotExist) {
		// Create directory if it doesn't exist
		if err := os.MkdirAll(filepath.Dir(j.filePath), 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return j.saveData(newJSONData())
	} else if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	return nil
}

func newJSONData() *JSONData {
	return &JSONData{
		SchemaVersion: jsonSchemaVersion,
		Entries:       map[string]string{},
	}
}

// loadLocked refreshes the cache when the file changed since the last read.
// The caller holds the write lock.
func (j *JSONStore) loadLocked() error {
	info, err := os.Stat(j.filePath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	// If the file hasn't changed, keep the cache. A restored backup may carry
	// an older mtime, so any difference counts.
	if j.data != nil && info.ModTime().Equal(j.lastModified) && info.Size() == j.lastSize {
		return nil
	}

	fileData, err := os.ReadFile(j.filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var data JSONData
	if err := json.Unmarshal(fileData, &data); err != nil {
		return fmt.Errorf("%w: %v", errCorruptDocument, err)
	}
	if data.SchemaVersion != jsonSchemaVersion {
		return fmt.Errorf("%w: unsupported schema version %d", errCorruptDocument, data.SchemaVersion)
	}
	if data.Entries == nil {
		data.Entries = map[string]string{}
	}

	j.data = &data
	j.lastModified = info.ModTime()
	j.lastSize = info.Size()
	return nil
}

func (j *JSONStore) quarantineLocked(cause error) error {
	aside := j.filePath + ".corrupt"
	slog.Warn("JSON store document unreadable, starting empty",
		"path", j.filePath,
		"moved_to", aside,
		"error", cause)

	if err := os.Rename(j.filePath, aside); err != nil {
		return fmt.Errorf("failed to move corrupt document aside: %w", err)
	}

	data := newJSONData()
	if err := j.saveData(data); err != nil {
		return err
	}
	j.data = data
	return j.touchLocked()
}

func (j *JSONStore) touchLocked() error {
	info, err := os.Stat(j.filePath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	j.lastModified = info.ModTime()
	j.lastSize = info.Size()
	return nil
}

// saveData writes the document to a temporary file in the same directory and
// renames it over the original, so readers never observe a partial write.
func (j *JSONStore) saveData(data *JSONData) error {
	data.WrittenAt = time.Now().UTC()

	fileData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(j.filePath), filepath.Base(j.filePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if _, err := tmp.Write(fileData); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpName, j.filePath); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

func (j *JSONStore) Get(ctx context.Context, key string) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return "", ErrClosed
	}
	if err := j.loadLocked(); err != nil {
		return "", err
	}

	value, ok := j.data.Entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (j *JSONStore) Set(ctx context.Context, key, value string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrClosed
	}
	if err := j.loadLocked(); err != nil {
		return err
	}

	next := &JSONData{
		SchemaVersion: jsonSchemaVersion,
		Entries:       make(map[string]string, len(j.data.Entries)+1),
	}
	for k, v := range j.data.Entries {
		next.Entries[k] = v
	}
	next.Entries[key] = value

	// The cache only advances once the document is on disk.
	if err := j.saveData(next); err != nil {
		return err
	}
	j.data = next
	return j.touchLocked()
}

// Ping checks that the document is still readable.
func (j *JSONStore) Ping(ctx context.Context) error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return ErrClosed
	}
	if _, err := os.Stat(j.filePath); err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	return nil
}

func (j *JSONStore) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.closed = true
	return nil
}
