package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Each managed directory carries a deny-all marker so the web server never
// lists or serves invoice files directly.
const (
	markerFileName = ".htaccess"
	markerContent  = "Options -Indexes\ndeny from all\n"
)

// ErrDirectoryCreate distinguishes an unwritable storage root from a
// rejected file: the former needs an operator, not a resubmission.
var ErrDirectoryCreate = errors.New("storage directory could not be created")

// Service computes collision-free storage locations under a root upload
// directory, one subdirectory per customer email.
type Service struct {
	rootDir string
	now     func() time.Time
}

func NewService(rootDir string) *Service {
	return NewServiceWithClock(rootDir, time.Now)
}

// NewServiceWithClock fixes the timestamp source, for tests.
func NewServiceWithClock(rootDir string, now func() time.Time) *Service {
	return &Service{
		rootDir: strings.TrimRight(rootDir, "/"),
		now:     now,
	}
}

// Allocate returns the absolute path a new upload for this customer should
// be written to. The customer directory is created lazily; the returned
// path is guaranteed not to exist yet.
func (s *Service) Allocate(customerEmail, originalName string) (string, error) {
	customerDir, err := s.ensureCustomerDir(customerEmail)
	if err != nil {
		return "", err
	}
	return joinPath(customerDir, s.uniqueFileName(customerDir, originalName)), nil
}

func (s *Service) ensureCustomerDir(customerEmail string) (string, error) {
	if err := ensureDir(s.rootDir); err != nil {
		return "", err
	}
	customerDir := joinPath(s.rootDir, SanitizeToken(customerEmail))
	if err := ensureDir(customerDir); err != nil {
		return "", err
	}
	return customerDir, nil
}

// ensureDir lazily creates dir and drops the deny-all marker on first
// creation. Idempotent.
func ensureDir(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDirectoryCreate, dir, err)
	}
	if err := os.WriteFile(joinPath(dir, markerFileName), []byte(markerContent), 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDirectoryCreate, dir, err)
	}
	return nil
}

// uniqueFileName builds base_YYYY-MM-DD_HH-MM-SS.ext, appending _1, _2, ...
// while the candidate already exists in dir.
func (s *Service) uniqueFileName(dir, originalName string) string {
	ext := filepath.Ext(originalName)
	base := SanitizeToken(strings.TrimSuffix(filepath.Base(originalName), ext))
	stamp := s.now().Format("2006-01-02_15-04-05")

	name := base + "_" + stamp + ext
	for counter := 1; exists(joinPath(dir, name)); counter++ {
		name = fmt.Sprintf("%s_%s_%d%s", base, stamp, counter, ext)
	}
	return name
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SanitizeToken reduces a string to a filesystem-safe token: letters,
// digits, dot, dash and underscore survive, everything else becomes a dash.
func SanitizeToken(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// joinPath concatenates defensively so trailing-slash configuration never
// produces double or missing separators.
func joinPath(dir, name string) string {
	return strings.TrimRight(dir, "/") + "/" + strings.TrimLeft(name, "/")
}
