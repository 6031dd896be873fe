package storage

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T) (*LocalStorage, string) {
	tempDir := t.TempDir()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	storage, err := NewLocalStorage(&LocalStorageConfig{
		BasePath: tempDir,
	}, logger)
	require.NoError(t, err)

	return storage, tempDir
}

func TestLocalStorage_SaveUpload(t *testing.T) {
	storage, _ := setupTestStorage(t)
	ctx := context.Background()

	fileID := "upload-123"
	filename := "checkouts.csv"
	content := []byte("to_produce,village_symbol\nDNA,OCA\n")

	metadata, err := storage.SaveUpload(ctx, fileID, filename, bytes.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, fileID, metadata.ID)
	assert.Equal(t, filename, metadata.OriginalName)
	assert.Equal(t, int64(len(content)), metadata.Size)
	assert.Len(t, metadata.Hash, 64, "sha256 hex digest")
	assert.Equal(t, "text/csv", metadata.ContentType)
	assert.NotZero(t, metadata.CreatedAt)

	_, err = os.Stat(metadata.StoredPath)
	assert.NoError(t, err)
}

func TestLocalStorage_SaveUpload_SanitizesFilename(t *testing.T) {
	storage, basePath := setupTestStorage(t)
	ctx := context.Background()

	metadata, err := storage.SaveUpload(ctx, "upload-456", "../../etc/checkouts.csv", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	expected := filepath.Join(basePath, "uploads", "upload-456", "checkouts.csv")
	assert.Equal(t, expected, metadata.StoredPath)
}

func TestLocalStorage_GetUpload(t *testing.T) {
	storage, _ := setupTestStorage(t)
	ctx := context.Background()

	fileID := "upload-789"
	filename := "checkouts.xlsx"
	content := []byte("workbook bytes")

	_, err := storage.SaveUpload(ctx, fileID, filename, bytes.NewReader(content))
	require.NoError(t, err)

	reader, err := storage.GetUpload(ctx, fileID, filename)
	require.NoError(t, err)
	defer reader.Close()

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(reader)
	require.NoError(t, err)
	assert.Equal(t, content, buf.Bytes())
}

func TestLocalStorage_GetUpload_NotFound(t *testing.T) {
	storage, _ := setupTestStorage(t)

	_, err := storage.GetUpload(context.Background(), "missing", "nope.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLocalStorage_DeleteUpload(t *testing.T) {
	storage, basePath := setupTestStorage(t)
	ctx := context.Background()

	fileID := "delete-me"
	_, err := storage.SaveUpload(ctx, fileID, "checkouts.csv", bytes.NewReader([]byte("test")))
	require.NoError(t, err)

	uploadDir := filepath.Join(basePath, "uploads", fileID)
	_, err = os.Stat(uploadDir)
	require.NoError(t, err)

	require.NoError(t, storage.DeleteUpload(ctx, fileID))

	_, err = os.Stat(uploadDir)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorage_CleanupOldFiles(t *testing.T) {
	storage, basePath := setupTestStorage(t)
	ctx := context.Background()

	oldDir := filepath.Join(basePath, "uploads", "old-upload")
	require.NoError(t, os.MkdirAll(oldDir, 0755))

	twoHoursAgo := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldDir, twoHoursAgo, twoHoursAgo))

	recentDir := filepath.Join(basePath, "uploads", "recent-upload")
	require.NoError(t, os.MkdirAll(recentDir, 0755))

	require.NoError(t, storage.CleanupOldFiles(ctx, 1*time.Hour))

	_, err := os.Stat(oldDir)
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(recentDir)
	assert.NoError(t, err)
}

func TestLocalStorage_HashConsistency(t *testing.T) {
	storage, _ := setupTestStorage(t)
	ctx := context.Background()

	content := []byte("same spreadsheet, submitted twice")

	meta1, err := storage.SaveUpload(ctx, "upload-1", "a.csv", bytes.NewReader(content))
	require.NoError(t, err)

	meta2, err := storage.SaveUpload(ctx, "upload-2", "b.csv", bytes.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, meta1.Hash, meta2.Hash, "deduplication keys on content, not name")
}

func TestLocalStorage_GetContentType(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
	}{
		{"file.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"file.xls", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"file.csv", "text/csv"},
		{"file.unknown", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.contentType, getContentType(tt.filename))
		})
	}
}
