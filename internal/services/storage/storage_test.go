package storage_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"invoice-manager-backend/internal/services/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeToken(t *testing.T) {
	assert.Equal(t, "user-example.com", storage.SanitizeToken("user@example.com"))
	assert.Equal(t, "my-invoice_2024.pdf", storage.SanitizeToken("my invoice_2024.pdf"))
	assert.Equal(t, "a-b-c", storage.SanitizeToken("a/b\\c"))
}

func TestAllocateCreatesDirectoriesAndMarkers(t *testing.T) {
	root := filepath.Join(t.TempDir(), "invoices")
	svc := storage.NewService(root)

	path, err := svc.Allocate("user@example.com", "invoice.pdf")
	require.NoError(t, err)

	// directories are created lazily, each with its deny-all marker
	rootMarker, err := os.ReadFile(filepath.Join(root, ".htaccess"))
	require.NoError(t, err)
	assert.Contains(t, string(rootMarker), "deny from all")

	customerDir := filepath.Join(root, "user-example.com")
	_, err = os.ReadFile(filepath.Join(customerDir, ".htaccess"))
	require.NoError(t, err)

	// the returned path lives in the customer directory and is still free
	assert.True(t, strings.HasPrefix(path, customerDir))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAllocateSameSecondGetsDistinctNames(t *testing.T) {
	root := t.TempDir()
	fixed := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	svc := storage.NewServiceWithClock(root, func() time.Time { return fixed })

	first, err := svc.Allocate("user@example.com", "invoice.pdf")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(first, []byte("a"), 0o644))

	second, err := svc.Allocate("user@example.com", "invoice.pdf")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(second, []byte("b"), 0o644))

	third, err := svc.Allocate("user@example.com", "invoice.pdf")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, second, third)
	assert.Contains(t, first, "invoice_2024-03-15_10-30-00.pdf")
	assert.Contains(t, second, "invoice_2024-03-15_10-30-00_1.pdf")
	assert.Contains(t, third, "invoice_2024-03-15_10-30-00_2.pdf")
}

func TestAllocateHandlesTrailingSlashRoot(t *testing.T) {
	root := t.TempDir() + "/"
	svc := storage.NewService(root)

	path, err := svc.Allocate("user@example.com", "invoice.pdf")
	require.NoError(t, err)
	assert.NotContains(t, path, "//")
}

func TestAllocateFailsWhenRootIsNotADirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(root, []byte("not a directory"), 0o644))

	svc := storage.NewService(root)
	_, err := svc.Allocate("user@example.com", "invoice.pdf")
	assert.ErrorIs(t, err, storage.ErrDirectoryCreate)
}
