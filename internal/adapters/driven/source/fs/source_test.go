package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func collect(t *testing.T, docs <-chan domain.RawDocument, errs <-chan error) []domain.RawDocument {
	t.Helper()
	var out []domain.RawDocument
	for docs != nil || errs != nil {
		select {
		case doc, ok := <-docs:
			if !ok {
				docs = nil
				continue
			}
			out = append(out, doc)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			t.Errorf("unexpected fetch error: %v", err)
		case <-time.After(5 * time.Second):
			t.Fatal("fetch timed out")
		}
	}
	return out
}

func TestNew(t *testing.T) {
	src := New("/tmp/docs", 0)

	require.NotNil(t, src)
	assert.Equal(t, "filesystem", src.Type())
	assert.Equal(t, int64(DefaultMaxFileBytes), src.maxFileBytes)

	var _ driven.DocumentSource = src
}

func TestSource_Capabilities(t *testing.T) {
	src := New("/tmp/docs", 0)

	caps := src.Capabilities()

	assert.True(t, caps.SupportsWatch)
	assert.False(t, caps.RequiresAuth)
}

func TestSource_Validate(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		src := New(t.TempDir(), 0)
		assert.NoError(t, src.Validate(context.Background()))
	})

	t.Run("missing directory", func(t *testing.T) {
		src := New(filepath.Join(t.TempDir(), "nope"), 0)
		err := src.Validate(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	})

	t.Run("path is a file", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "file.txt", "hello")

		src := New(path, 0)
		err := src.Validate(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	})

	t.Run("cancelled context", func(t *testing.T) {
		src := New(t.TempDir(), 0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := src.Validate(ctx)
		assert.Equal(t, context.Canceled, err)
	})
}

func TestSource_Fetch(t *testing.T) {
	t.Run("streams supported files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "notes.txt", "plain text")
		writeFile(t, dir, "guide.md", "# Guide")
		writeFile(t, dir, "image.png", "not a document")
		writeFile(t, dir, "sub/deep.md", "nested")

		src := New(dir, 0)
		docCh, errCh := src.Fetch(context.Background())
		docs := collect(t, docCh, errCh)

		require.Len(t, docs, 3)
		byName := make(map[string]domain.RawDocument)
		for _, doc := range docs {
			byName[filepath.Base(doc.URI)] = doc
		}
		assert.Contains(t, byName, "notes.txt")
		assert.Contains(t, byName, "guide.md")
		assert.Contains(t, byName, "deep.md")
		assert.NotContains(t, byName, "image.png")
	})

	t.Run("populates document fields", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "notes.txt", "plain text")

		src := New(dir, 0)
		docCh, errCh := src.Fetch(context.Background())
		docs := collect(t, docCh, errCh)

		require.Len(t, docs, 1)
		doc := docs[0]
		assert.Equal(t, path, doc.URI)
		assert.Equal(t, "notes", doc.Title)
		assert.Equal(t, []byte("plain text"), doc.Content)
		assert.Equal(t, "text/plain", doc.MIMEType)
		assert.Equal(t, "txt", doc.Metadata["extension"])
	})

	t.Run("detects MIME types by extension", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.txt", "x")
		writeFile(t, dir, "b.md", "x")
		writeFile(t, dir, "c.pdf", "x")

		src := New(dir, 0)
		docCh, errCh := src.Fetch(context.Background())
		docs := collect(t, docCh, errCh)

		mimes := make(map[string]string)
		for _, doc := range docs {
			mimes[filepath.Base(doc.URI)] = doc.MIMEType
		}
		assert.Equal(t, "text/plain", mimes["a.txt"])
		assert.Equal(t, "text/markdown", mimes["b.md"])
		assert.Equal(t, "application/pdf", mimes["c.pdf"])
	})

	t.Run("skips hidden files and directories", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "visible.md", "x")
		writeFile(t, dir, ".hidden.md", "x")
		writeFile(t, dir, ".git/config.md", "x")

		src := New(dir, 0)
		docCh, errCh := src.Fetch(context.Background())
		docs := collect(t, docCh, errCh)

		require.Len(t, docs, 1)
		assert.Equal(t, "visible.md", filepath.Base(docs[0].URI))
	})

	t.Run("reports oversized files without stopping", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "big.txt", "0123456789")
		writeFile(t, dir, "small.txt", "ok")

		src := New(dir, 5)
		docs, errs := src.Fetch(context.Background())

		var got []domain.RawDocument
		var fetchErrs []error
		for docs != nil || errs != nil {
			select {
			case doc, ok := <-docs:
				if !ok {
					docs = nil
					continue
				}
				got = append(got, doc)
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				fetchErrs = append(fetchErrs, err)
			case <-time.After(5 * time.Second):
				t.Fatal("fetch timed out")
			}
		}

		require.Len(t, got, 1)
		assert.Equal(t, "small.txt", filepath.Base(got[0].URI))
		require.Len(t, fetchErrs, 1)
		assert.ErrorIs(t, fetchErrs[0], domain.ErrInvalidInput)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		dir := t.TempDir()
		for i := 0; i < 20; i++ {
			writeFile(t, dir, filepath.Join("d", "f"+string(rune('a'+i))+".txt"), "x")
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		src := New(dir, 0)
		docs, errs := src.Fetch(ctx)

		count := 0
		for range docs {
			count++
		}
		for range errs {
		}
		assert.Zero(t, count)
	})
}

func TestSource_Watch(t *testing.T) {
	t.Run("emits upsert on file creation", func(t *testing.T) {
		dir := t.TempDir()
		src := New(dir, 0)
		defer src.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := src.Watch(ctx)
		require.NoError(t, err)

		writeFile(t, dir, "new.md", "# New")

		select {
		case change := <-changes:
			assert.Equal(t, domain.ChangeUpserted, change.Type)
			assert.Equal(t, "new.md", filepath.Base(change.Document.URI))
			assert.Equal(t, []byte("# New"), change.Document.Content)
		case <-time.After(5 * time.Second):
			t.Fatal("no change event received")
		}
	})

	t.Run("emits delete on file removal", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "doomed.txt", "bye")

		src := New(dir, 0)
		defer src.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := src.Watch(ctx)
		require.NoError(t, err)

		require.NoError(t, os.Remove(path))

		deadline := time.After(5 * time.Second)
		for {
			select {
			case change := <-changes:
				if change.Type != domain.ChangeDeleted {
					continue
				}
				assert.Equal(t, path, change.Document.URI)
				return
			case <-deadline:
				t.Fatal("no delete event received")
			}
		}
	})

	t.Run("ignores unsupported files", func(t *testing.T) {
		dir := t.TempDir()
		src := New(dir, 0)
		defer src.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := src.Watch(ctx)
		require.NoError(t, err)

		writeFile(t, dir, "binary.bin", "xx")

		select {
		case change := <-changes:
			t.Fatalf("unexpected change for unsupported file: %+v", change)
		case <-time.After(500 * time.Millisecond):
		}
	})

	t.Run("closes channel on context cancellation", func(t *testing.T) {
		dir := t.TempDir()
		src := New(dir, 0)
		defer src.Close()

		ctx, cancel := context.WithCancel(context.Background())

		changes, err := src.Watch(ctx)
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-changes:
			assert.False(t, ok, "channel should be closed")
		case <-time.After(5 * time.Second):
			t.Fatal("channel did not close after cancellation")
		}
	})

	t.Run("fails on missing root", func(t *testing.T) {
		src := New(filepath.Join(t.TempDir(), "nope"), 0)

		_, err := src.Watch(context.Background())
		assert.Error(t, err)
	})
}

func TestSource_Close(t *testing.T) {
	t.Run("close without watch", func(t *testing.T) {
		src := New(t.TempDir(), 0)
		assert.NoError(t, src.Close())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		src := New(t.TempDir(), 0)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_, err := src.Watch(ctx)
		require.NoError(t, err)

		assert.NoError(t, src.Close())
		assert.NoError(t, src.Close())
	})
}
