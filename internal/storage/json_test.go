package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStore(t *testing.T) {
	s, err := NewJSONStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	defer s.Close()

	testStoreContract(t, s)
}

func TestNewJSONStore_RequiresPath(t *testing.T) {
	_, err := NewJSONStore("")
	assert.Error(t, err)
}

func TestNewJSONStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on Windows")
	}
	filePath := filepath.Join(t.TempDir(), "subdir", "state.json")

	s, err := NewJSONStore(filePath)
	require.NoError(t, err)
	defer s.Close()

	// Directory must be traversable by owner only.
	dirInfo, err := os.Stat(filepath.Dir(filePath))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())

	// Data file must be readable/writable by owner only, including after a rewrite.
	require.NoError(t, s.Set(context.Background(), "k", "v"))
	fileInfo, err := os.Stat(filePath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fileInfo.Mode().Perm())
}

func TestJSONStore_PersistsAcrossReopen(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	first, err := NewJSONStore(filePath)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "translation_rate_limit", "payload"))
	require.NoError(t, first.Close())

	second, err := NewJSONStore(filePath)
	require.NoError(t, err)
	defer second.Close()

	value, err := second.Get(ctx, "translation_rate_limit")
	require.NoError(t, err)
	assert.Equal(t, "payload", value)
}

func TestJSONStore_DocumentLayout(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "state.json")
	s, err := NewJSONStore(filePath)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "k", "v"))

	raw, err := os.ReadFile(filePath)
	require.NoError(t, err)

	var doc JSONData
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 1, doc.SchemaVersion)
	assert.Equal(t, map[string]string{"k": "v"}, doc.Entries)
	assert.False(t, doc.WrittenAt.IsZero())

	// No temp files left behind
	matches, err := filepath.Glob(filePath + ".tmp-*")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestJSONStore_PicksUpExternalEdits(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "state.json")
	s, err := NewJSONStore(filePath)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", "old"))

	doc := `{"schema_version":1,"entries":{"k":"external"}}`
	require.NoError(t, os.WriteFile(filePath, []byte(doc), 0600))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(filePath, future, future))

	value, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "external", value)
}

func TestJSONStore_PicksUpExternalEditsWithoutNewerMtime(t *testing.T) {
	tests := []struct {
		name  string
		mtime func(cached time.Time) time.Time
	}{
		{name: "older mtime", mtime: func(cached time.Time) time.Time { return cached.Add(-time.Hour) }},
		{name: "same mtime", mtime: func(cached time.Time) time.Time { return cached }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := filepath.Join(t.TempDir(), "state.json")
			s, err := NewJSONStore(filePath)
			require.NoError(t, err)
			defer s.Close()
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "k", "old"))

			info, err := os.Stat(filePath)
			require.NoError(t, err)

			doc := `{"schema_version":1,"entries":{"k":"restored from backup"}}`
			require.NoError(t, os.WriteFile(filePath, []byte(doc), 0600))
			mtime := tt.mtime(info.ModTime())
			require.NoError(t, os.Chtimes(filePath, mtime, mtime))

			value, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "restored from backup", value)
		})
	}
}

func TestNewJSONStore_QuarantinesCorruptDocument(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{not json"},
		{name: "unknown schema", content: `{"schema_version":99,"entries":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := filepath.Join(t.TempDir(), "state.json")
			require.NoError(t, os.WriteFile(filePath, []byte(tt.content), 0600))

			s, err := NewJSONStore(filePath)
			require.NoError(t, err)
			defer s.Close()

			_, err = s.Get(context.Background(), "translation_rate_limit")
			assert.ErrorIs(t, err, ErrNotFound)

			aside, err := os.ReadFile(filePath + ".corrupt")
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(aside))
		})
	}
}

func TestJSONStore_Closed(t *testing.T) {
	s, err := NewJSONStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ctx := context.Background()
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set(ctx, "k", "v"), ErrClosed)
}
