// Package adapter contains the infrastructure adapters of the playvars CLI.
package adapter

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	m "playvars.dev/pkg/playvars/internal/model"
)

// recursiveSuffix marks a root that should be walked with all its sub-dirs.
const recursiveSuffix = "/..."

// DiscoverOptions selects which files under a root count as templates.
type DiscoverOptions struct {
	// Extensions lists accepted file extensions, dot included.
	Extensions []string
	// SkipDirs drops every directory whose path contains one of the entries.
	SkipDirs []string
	// SkipSuffixes drops every directory whose name ends with one of the entries.
	SkipSuffixes []string
}

// TemplateFSAdapter abstracts the filesystem operations the domain layer
// needs to discover and read templates, so the workflow can be tested
// without touching the disk.
//
//nolint:interfacebloat // A richer interface keeps workflow logic decoupled from os/fs.
type TemplateFSAdapter interface {
	// Walk traverses the provided root path. When recursive is false the
	// implementation should limit itself to the root directory (no sub-dirs).
	Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// HashFile returns the SHA-256 fingerprint of the file at path.
	HashFile(path m.Path) (string, error)

	// FileInfo returns metadata for a path so the domain can check existence or
	// distinguish between files and directories when necessary.
	FileInfo(path m.Path) (os.FileInfo, error)

	// GetChannel discovers the templates under roots and streams them with
	// their hash. A root ending in "/..." is walked recursively, a plain
	// directory only at its top level and a file is taken as is. The error
	// channel yields at most one error.
	GetChannel(ctx context.Context, roots []m.Path, threads int, opts DiscoverOptions) (<-chan m.Source, <-chan error)

	// RelPath returns the relative path from base to target.
	RelPath(base, target m.Path) (m.Path, error)

	// JoinPath joins path elements into a single path.
	JoinPath(elem ...string) m.Path
}

// FilepathWalkFunc mirrors the callback shape used by filepath.Walk.
type FilepathWalkFunc func(path string, info os.FileInfo, err error) error

// LocalTemplateFSAdapter implements TemplateFSAdapter on the local disk.
type LocalTemplateFSAdapter struct{}

// NewLocalTemplateFSAdapter constructs a LocalTemplateFSAdapter.
func NewLocalTemplateFSAdapter() *LocalTemplateFSAdapter {
	return &LocalTemplateFSAdapter{}
}

// Walk iterates over files under root, optionally descending into subdirectories.
func (a *LocalTemplateFSAdapter) Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error {
	rootStr := string(root)

	return filepath.Walk(rootStr, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fn(path, info, err)
		}

		if info.IsDir() && !recursive && path != rootStr {
			return filepath.SkipDir
		}

		return fn(path, info, nil)
	})
}

// ReadFile loads file contents from disk.
func (a *LocalTemplateFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// HashFile returns the SHA-256 hash of the file at the provided path.
func (a *LocalTemplateFSAdapter) HashFile(path m.Path) (string, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalTemplateFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// GetChannel streams the templates found under roots.
func (a *LocalTemplateFSAdapter) GetChannel(ctx context.Context, roots []m.Path, threads int, opts DiscoverOptions) (<-chan m.Source, <-chan error) {
	if threads < 1 {
		threads = 1
	}

	sources := make(chan m.Source, threads)
	errs := make(chan error, 1)

	go func() {
		defer close(sources)
		defer close(errs)

		seen := map[m.Path]struct{}{}

		emit := func(path m.Path) error {
			if _, ok := seen[path]; ok {
				return nil
			}

			seen[path] = struct{}{}

			hash, err := a.HashFile(path)
			if err != nil {
				return fmt.Errorf("hash %s: %w", path, err)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case sources <- m.Source{Origin: &m.File{Path: path, Hash: hash}}:
			}

			return nil
		}

		for _, root := range roots {
			if err := a.discover(root, opts, emit); err != nil {
				slog.Error("Failed to discover templates", "root", root, "error", err)
				errs <- err

				return
			}
		}
	}()

	return sources, errs
}

func (a *LocalTemplateFSAdapter) discover(root m.Path, opts DiscoverOptions, emit func(m.Path) error) error {
	rootStr, recursive := splitRecursive(string(root))

	info, err := a.FileInfo(m.Path(rootStr))
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}

	if !info.IsDir() {
		return emit(m.Path(rootStr))
	}

	return a.Walk(m.Path(rootStr), recursive, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != rootStr && skipDir(path, opts) {
				slog.Debug("skipping directory", "path", path)
				return filepath.SkipDir
			}

			return nil
		}

		if !hasExtension(path, opts.Extensions) {
			return nil
		}

		return emit(m.Path(path))
	})
}

func splitRecursive(root string) (string, bool) {
	if root == "..." {
		return ".", true
	}

	if strings.HasSuffix(root, recursiveSuffix) {
		trimmed := strings.TrimSuffix(root, recursiveSuffix)
		if trimmed == "" {
			trimmed = "/"
		}

		return trimmed, true
	}

	return root, false
}

func skipDir(path string, opts DiscoverOptions) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return true
	}

	for _, part := range opts.SkipDirs {
		if part != "" && strings.Contains(filepath.ToSlash(path), part) {
			return true
		}
	}

	for _, suffix := range opts.SkipSuffixes {
		if suffix != "" && strings.HasSuffix(name, suffix) {
			return true
		}
	}

	return false
}

func hasExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	for _, want := range extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}

	return false
}

// RelPath returns the relative path from base to target.
func (a *LocalTemplateFSAdapter) RelPath(base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", err
	}

	return m.Path(rel), nil
}

// JoinPath joins path elements into a single path.
func (a *LocalTemplateFSAdapter) JoinPath(elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
