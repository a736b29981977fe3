package infrastructure

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/yourusername/streamline-go/internal/domain"
	"go.uber.org/zap"
)

const (
	claimDirName = ".claims"

	// maxStemLength leaves room for the collision suffix and extension under the 255 byte limit
	maxStemLength = 200
)

// FSArtifactStore implements domain.ArtifactStore on a single scratch directory
type FSArtifactStore struct {
	root     string
	claimDir string
	logger   *zap.Logger

	mu    sync.Mutex
	stale map[string]struct{}
}

// NewFSArtifactStore creates the scratch root and its claim area if absent
func NewFSArtifactStore(root string, logger *zap.Logger) (*FSArtifactStore, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve downloads directory: %w", err)
	}
	claimDir := filepath.Join(absRoot, claimDirName)
	if err := os.MkdirAll(claimDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create downloads directory: %w", err)
	}

	return &FSArtifactStore{
		root:     absRoot,
		claimDir: claimDir,
		logger:   logger,
		stale:    make(map[string]struct{}),
	}, nil
}

// Root returns the absolute scratch directory
func (s *FSArtifactStore) Root() string {
	return s.root
}

// SanitizeTitle turns an untrusted title into a filename stem.
// Only letters, digits, spaces and underscores survive; spaces become underscores.
func SanitizeTitle(title string) string {
	var sb strings.Builder
	sb.Grow(len(title))
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' {
			sb.WriteRune(r)
		}
	}

	stem := strings.TrimRight(sb.String(), " ")
	stem = strings.ReplaceAll(stem, " ", "_")
	if stem == "" {
		return "untitled"
	}
	return truncateToBytes(stem, maxStemLength)
}

func truncateToBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}

// Reserve exclusively creates name in the root
func (s *FSArtifactStore) Reserve(name string) (*os.File, error) {
	return s.ReserveIn(s.root, name)
}

// ReserveIn exclusively creates name inside dir, which must be the root or a reserved directory
func (s *FSArtifactStore) ReserveIn(dir, name string) (*os.File, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := s.checkDir(dir); err != nil {
		return nil, err
	}

	candidate := name
	for attempt := 0; attempt < 8; attempt++ {
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("failed to create %s: %w", candidate, err)
		}
		candidate = withSuffix(name)
	}
	return nil, fmt.Errorf("failed to reserve unique name for %s", name)
}

// ReserveDir creates a unique directory in the root
func (s *FSArtifactStore) ReserveDir(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	candidate := name
	for attempt := 0; attempt < 8; attempt++ {
		dir := filepath.Join(s.root, candidate)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to create directory %s: %w", candidate, err)
		}
		candidate = withSuffix(name)
	}
	return "", fmt.Errorf("failed to reserve unique directory for %s", name)
}

// withSuffix inserts a short random suffix before the extension
func withSuffix(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%s%s", stem, uuid.New().String()[:8], ext)
}

// Package zips dir into {dir}.zip in the root. The directory is removed on every path.
func (s *FSArtifactStore) Package(dir string) (artifact *domain.Artifact, err error) {
	if err := s.checkDir(dir); err != nil {
		return nil, err
	}
	if filepath.Clean(dir) == s.root {
		return nil, fmt.Errorf("%w: cannot package the store root", domain.ErrInvalidRequest)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			s.logger.Warn("Failed to remove packaged directory",
				zap.String("dir", dir),
				zap.Error(rmErr))
		}
	}()

	out, err := s.Reserve(filepath.Base(dir) + ".zip")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.Discard(out.Name())
		}
	}()

	if err := writeZip(out, dir); err != nil {
		out.Close()
		return nil, fmt.Errorf("failed to zip %s: %w", filepath.Base(dir), err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}

	return s.Stat(out.Name())
}

func writeZip(w io.Writer, dir string) error {
	zw := zip.NewWriter(w)

	// WalkDir visits entries in lexical order, which keeps the archive deterministic
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(entry, f)
		return err
	})
	if err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Stat describes a written file as an artifact
func (s *FSArtifactStore) Stat(path string) (*domain.Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}
	return &domain.Artifact{
		Name: filepath.Base(path),
		Path: path,
		Size: info.Size(),
	}, nil
}

// Discard removes a partially written file or an abandoned reserved directory
func (s *FSArtifactStore) Discard(path string) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		s.logger.Warn("Refusing to discard path outside the store", zap.String("path", path))
		return
	}
	if err := os.RemoveAll(path); err != nil {
		s.logger.Warn("Failed to discard partial file",
			zap.String("path", path),
			zap.Error(err))
	}
}

// Exists reports whether a deliverable artifact with the given name is in the root
func (s *FSArtifactStore) Exists(name string) bool {
	if validateName(name) != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(s.root, name))
	return err == nil && info.Mode().IsRegular()
}

// Delete removes an artifact from the root
func (s *FSArtifactStore) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrArtifactNotFound
	}
	return err
}

// Claim renames the artifact into the claim area. Only one caller can win the rename.
func (s *FSArtifactStore) Claim(name string) (*domain.Artifact, error) {
	s.retryStale()

	if !s.Exists(name) {
		return nil, domain.ErrArtifactNotFound
	}

	// Only the extension is kept so long artifact names still fit the 255 byte limit
	claimed := filepath.Join(s.claimDir, uuid.New().String()+filepath.Ext(name))
	if err := os.Rename(filepath.Join(s.root, name), claimed); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to claim %s: %w", name, err)
	}

	artifact, err := s.Stat(claimed)
	if err != nil {
		return nil, err
	}
	artifact.Name = name
	return artifact, nil
}

// Release deletes a claimed artifact. Failed deletions are retried on the next claim.
func (s *FSArtifactStore) Release(artifact *domain.Artifact) {
	if artifact == nil {
		return
	}
	if err := os.Remove(artifact.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Failed to delete delivered artifact, will retry",
			zap.String("name", artifact.Name),
			zap.Error(err))
		s.mu.Lock()
		s.stale[artifact.Path] = struct{}{}
		s.mu.Unlock()
	}
}

func (s *FSArtifactStore) retryStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path := range s.stale {
		if err := os.Remove(path); err == nil || errors.Is(err, fs.ErrNotExist) {
			delete(s.stale, path)
		}
	}
}

// Sweep removes everything left in the root by a previous run
func (s *FSArtifactStore) Sweep() (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("failed to read downloads directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		path := filepath.Join(s.root, entry.Name())
		if entry.Name() == claimDirName {
			claims, err := os.ReadDir(path)
			if err != nil {
				return removed, fmt.Errorf("failed to read claim area: %w", err)
			}
			for _, c := range claims {
				if err := os.RemoveAll(filepath.Join(path, c.Name())); err != nil {
					return removed, err
				}
				removed++
			}
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		removed++
	}

	s.logger.Info("Swept downloads directory",
		zap.String("root", s.root),
		zap.Int("removed", removed))
	return removed, nil
}

// checkDir ensures dir is the root or a direct child of it
func (s *FSArtifactStore) checkDir(dir string) error {
	clean := filepath.Clean(dir)
	if clean == s.root {
		return nil
	}
	if filepath.Dir(clean) != s.root || validateName(filepath.Base(clean)) != nil {
		return fmt.Errorf("%w: directory %s is outside the store", domain.ErrInvalidRequest, dir)
	}
	return nil
}

// validateName rejects anything that is not a plain visible file name
func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") ||
		strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: bad artifact name %q", domain.ErrInvalidRequest, name)
	}
	return nil
}
