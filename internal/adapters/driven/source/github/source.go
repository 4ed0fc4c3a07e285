// Package github provides a GitHub repository document source.
// It ingests the markdown files of a repository via the GitHub API,
// optionally authenticated with a personal access token.
package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxFileBytes is the default per-file size limit.
	DefaultMaxFileBytes = 10 << 20 // 10 MB
)

// defaultPatterns selects markdown files only.
var defaultPatterns = []string{"*.md", "*.markdown"}

// Config holds configuration for the GitHub source.
type Config struct {
	// Owner is the repository owner (required).
	Owner string

	// Repo is the repository name (required).
	Repo string

	// Branch is the git ref to read. Empty uses the default branch.
	Branch string

	// Token is a personal access token. Empty uses anonymous access,
	// which only works for public repositories at a much lower rate limit.
	Token string

	// FilePatterns are glob patterns matched against file names and
	// paths. Empty selects markdown files.
	FilePatterns []string

	// MaxFileBytes bounds individual file size (default: 10MB).
	MaxFileBytes int64
}

// Source reads markdown documents from a GitHub repository.
type Source struct {
	gh       *gh.Client
	owner    string
	repo     string
	branch   string
	patterns []string
	maxBytes int64
	limiter  *rateLimiter
}

// New creates a GitHub source for one repository.
func New(ctx context.Context, cfg Config) *Source {
	patterns := cfg.FilePatterns
	if len(patterns) == 0 {
		patterns = defaultPatterns
	}
	maxBytes := cfg.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	var client *gh.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		tc := oauth2.NewClient(ctx, ts)
		tc.Timeout = DefaultTimeout
		client = gh.NewClient(tc)
	} else {
		client = gh.NewClient(nil)
	}

	return &Source{
		gh:       client,
		owner:    cfg.Owner,
		repo:     cfg.Repo,
		branch:   cfg.Branch,
		patterns: patterns,
		maxBytes: maxBytes,
		limiter:  newRateLimiter(),
	}
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "github"
}

// Capabilities returns what this source supports.
func (s *Source) Capabilities() driven.SourceCapabilities {
	return driven.SourceCapabilities{
		RequiresAuth:         false, // anonymous works for public repos
		SupportsRateLimiting: true,
	}
}

// Validate checks the repository exists and is reachable.
func (s *Source) Validate(ctx context.Context) error {
	if s.owner == "" || s.repo == "" {
		return fmt.Errorf("%w: github source needs owner and repo", domain.ErrInvalidConfig)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	_, resp, err := s.gh.Repositories.Get(ctx, s.owner, s.repo)
	s.updateRateLimit(resp)
	if err != nil {
		return fmt.Errorf("%w: %s/%s: %w", domain.ErrSourceUnavailable, s.owner, s.repo, err)
	}
	return nil
}

// Fetch streams matching files from the repository tree.
// Per-file errors are reported without terminating the stream.
func (s *Source) Fetch(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		branch := s.branch
		if branch == "" {
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			repo, resp, err := s.gh.Repositories.Get(ctx, s.owner, s.repo)
			s.updateRateLimit(resp)
			if err != nil {
				errs <- fmt.Errorf("get repository: %w", err)
				return
			}
			branch = repo.GetDefaultBranch()
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		tree, resp, err := s.gh.Git.GetTree(ctx, s.owner, s.repo, branch, true)
		s.updateRateLimit(resp)
		if err != nil {
			errs <- fmt.Errorf("get tree: %w", err)
			return
		}

		for _, entry := range tree.Entries {
			if ctx.Err() != nil {
				return
			}
			if entry.GetType() != "blob" {
				continue
			}

			path := entry.GetPath()
			if !s.matches(path) {
				continue
			}
			if int64(entry.GetSize()) > s.maxBytes {
				errs <- fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidInput, path, s.maxBytes)
				continue
			}

			content, err := s.fetchBlob(ctx, entry.GetSHA())
			if err != nil {
				errs <- fmt.Errorf("fetch %s: %w", path, err)
				continue
			}

			doc := domain.RawDocument{
				URI:      fmt.Sprintf("github://%s/%s/blob/%s/%s", s.owner, s.repo, branch, path),
				Title:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
				Content:  content,
				MIMEType: "text/markdown",
				Metadata: map[string]any{
					"owner":  s.owner,
					"repo":   s.repo,
					"branch": branch,
					"path":   path,
					"sha":    entry.GetSHA(),
					"html_url": fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s",
						s.owner, s.repo, branch, path),
				},
			}

			select {
			case docs <- doc:
			case <-ctx.Done():
				return
			}
		}
	}()

	return docs, errs
}

// Watch is not supported; the GitHub API has no push channel here.
func (s *Source) Watch(_ context.Context) (<-chan domain.RawDocumentChange, error) {
	return nil, fmt.Errorf("%w: github source does not support watch", domain.ErrUnsupportedType)
}

// Close releases resources. The underlying HTTP client needs none.
func (s *Source) Close() error {
	return nil
}

// fetchBlob retrieves and decodes one blob by SHA.
func (s *Source) fetchBlob(ctx context.Context, sha string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	blob, resp, err := s.gh.Git.GetBlob(ctx, s.owner, s.repo, sha)
	s.updateRateLimit(resp)
	if err != nil {
		return nil, err
	}

	if blob.GetEncoding() == "base64" {
		raw := strings.ReplaceAll(blob.GetContent(), "\n", "")
		return base64.StdEncoding.DecodeString(raw)
	}
	return []byte(blob.GetContent()), nil
}

// matches checks a path against the configured glob patterns.
// Patterns are tried against both the base name and the full path.
func (s *Source) matches(path string) bool {
	for _, pattern := range s.patterns {
		if ok, err := filepath.Match(pattern, filepath.Base(path)); err == nil && ok {
			return true
		}
		if ok, err := filepath.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// updateRateLimit feeds response headers into the limiter.
func (s *Source) updateRateLimit(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	s.limiter.UpdateFromResponse(resp.Response)
}
