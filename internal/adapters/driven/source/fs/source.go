// Package fs provides a filesystem document source.
// It walks a root directory for supported files and can watch for
// changes via fsnotify.
package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// DefaultMaxFileBytes is the default per-file size limit.
const DefaultMaxFileBytes = 10 << 20 // 10 MB

// mimeTypes maps supported file extensions to MIME types.
// Files with other extensions are skipped.
var mimeTypes = map[string]string{
	".txt": "text/plain",
	".md":  "text/markdown",
	".pdf": "application/pdf",
}

// Source reads documents from a local directory tree.
type Source struct {
	root         string
	maxFileBytes int64

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// New creates a filesystem source rooted at the given directory.
// maxFileBytes bounds individual file size; zero uses the default.
func New(root string, maxFileBytes int64) *Source {
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}
	return &Source{
		root:         root,
		maxFileBytes: maxFileBytes,
	}
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "filesystem"
}

// Capabilities returns what this source supports.
func (s *Source) Capabilities() driven.SourceCapabilities {
	return driven.SourceCapabilities{
		SupportsWatch: true,
	}
}

// Validate checks the root path exists and is a readable directory.
func (s *Source) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrSourceUnavailable, s.root)
	}

	// Readability check: opening the directory is enough.
	f, err := os.Open(s.root)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	return f.Close()
}

// Fetch walks the root directory and streams supported files.
// Per-file errors are reported without terminating the walk.
func (s *Source) Fetch(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				errs <- fmt.Errorf("walk %s: %w", path, err)
				return nil
			}

			if d.IsDir() {
				if isHidden(d.Name()) && path != s.root {
					return filepath.SkipDir
				}
				return nil
			}
			if isHidden(d.Name()) || !s.supported(path) {
				return nil
			}

			doc, err := s.readFile(path)
			if err != nil {
				errs <- err
				return nil
			}

			select {
			case docs <- *doc:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errs <- err
		}
	}()

	return docs, errs
}

// Watch emits change events for supported files until the context is
// cancelled. Subdirectories created while watching are picked up.
func (s *Source) Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the whole tree; fsnotify is not recursive by itself.
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if isHidden(d.Name()) && path != s.root {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", s.root, err)
	}

	s.mu.Lock()
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.watcher = watcher
	s.mu.Unlock()

	changes := make(chan domain.RawDocumentChange)

	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				s.handleEvent(ctx, watcher, event, changes)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("filesystem watch error: %v", err)
			}
		}
	}()

	return changes, nil
}

// Close releases the watcher if one is active.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		err := s.watcher.Close()
		s.watcher = nil
		return err
	}
	return nil
}

// handleEvent translates one fsnotify event into a change, if relevant.
func (s *Source) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event, changes chan<- domain.RawDocumentChange) {
	switch {
	case event.Op.Has(fsnotify.Create):
		// New directories need their own watch.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !isHidden(filepath.Base(event.Name)) {
				if err := watcher.Add(event.Name); err != nil {
					logger.Warn("watch new directory %s: %v", event.Name, err)
				}
			}
			return
		}
		s.emitUpsert(ctx, event.Name, changes)

	case event.Op.Has(fsnotify.Write):
		s.emitUpsert(ctx, event.Name, changes)

	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		if !s.supported(event.Name) {
			return
		}
		change := domain.RawDocumentChange{
			Type:     domain.ChangeDeleted,
			Document: domain.RawDocument{URI: event.Name},
		}
		select {
		case changes <- change:
		case <-ctx.Done():
		}
	}
}

// emitUpsert reads a changed file and emits an upsert change.
func (s *Source) emitUpsert(ctx context.Context, path string, changes chan<- domain.RawDocumentChange) {
	if isHidden(filepath.Base(path)) || !s.supported(path) {
		return
	}

	doc, err := s.readFile(path)
	if err != nil {
		logger.Warn("read changed file %s: %v", path, err)
		return
	}

	select {
	case changes <- domain.RawDocumentChange{Type: domain.ChangeUpserted, Document: *doc}:
	case <-ctx.Done():
	}
}

// readFile loads one file into a RawDocument, enforcing the size limit.
func (s *Source) readFile(path string) (*domain.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > s.maxFileBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidInput, path, s.maxFileBytes)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	name := filepath.Base(path)

	return &domain.RawDocument{
		URI:      path,
		Title:    strings.TrimSuffix(name, filepath.Ext(name)),
		Content:  content,
		MIMEType: mimeTypes[ext],
		Metadata: map[string]any{
			"extension": strings.TrimPrefix(ext, "."),
			"size":      info.Size(),
			"modified":  info.ModTime(),
		},
	}, nil
}

// supported reports whether the file extension is ingestible.
func (s *Source) supported(path string) bool {
	_, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// isHidden reports whether a file or directory name is dot-prefixed.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
