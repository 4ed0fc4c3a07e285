package github

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		src := New(context.Background(), Config{Owner: "octo", Repo: "docs"})

		require.NotNil(t, src)
		assert.Equal(t, "github", src.Type())
		assert.Equal(t, defaultPatterns, src.patterns)
		assert.Equal(t, int64(DefaultMaxFileBytes), src.maxBytes)
	})

	t.Run("custom patterns and limit", func(t *testing.T) {
		src := New(context.Background(), Config{
			Owner:        "octo",
			Repo:         "docs",
			FilePatterns: []string{"docs/*.md"},
			MaxFileBytes: 1024,
		})

		assert.Equal(t, []string{"docs/*.md"}, src.patterns)
		assert.Equal(t, int64(1024), src.maxBytes)
	})

	t.Run("token builds authenticated client", func(t *testing.T) {
		src := New(context.Background(), Config{Owner: "octo", Repo: "docs", Token: "ghp_test"})
		require.NotNil(t, src.gh)
	})
}

func TestSource_Capabilities(t *testing.T) {
	src := New(context.Background(), Config{Owner: "octo", Repo: "docs"})

	caps := src.Capabilities()

	assert.False(t, caps.SupportsWatch)
	assert.True(t, caps.SupportsRateLimiting)
}

func TestSource_Validate_MissingRepo(t *testing.T) {
	src := New(context.Background(), Config{})

	err := src.Validate(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestSource_Watch_Unsupported(t *testing.T) {
	src := New(context.Background(), Config{Owner: "octo", Repo: "docs"})

	_, err := src.Watch(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestSource_Close(t *testing.T) {
	src := New(context.Background(), Config{Owner: "octo", Repo: "docs"})
	assert.NoError(t, src.Close())
}

func TestSource_Matches(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{"markdown by default", nil, "README.md", true},
		{"nested markdown by default", nil, "docs/guide/setup.md", true},
		{"markdown long extension", nil, "notes.markdown", true},
		{"source file rejected", nil, "main.go", false},
		{"image rejected", nil, "logo.png", false},
		{"full path pattern", []string{"docs/*"}, "docs/setup.md", true},
		{"full path pattern misses nested", []string{"docs/*"}, "other/setup.md", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := New(context.Background(), Config{
				Owner:        "octo",
				Repo:         "docs",
				FilePatterns: tt.patterns,
			})
			assert.Equal(t, tt.want, src.matches(tt.path))
		})
	}
}

func TestRateLimiter_UpdateFromResponse(t *testing.T) {
	limiter := newRateLimiter()

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set(headerRateRemaining, "42")
	resp.Header.Set(headerRateLimit, "5000")
	resp.Header.Set(headerRateReset, "1700000000")

	limiter.UpdateFromResponse(resp)

	assert.Equal(t, 42, limiter.Remaining())
	assert.Equal(t, 5000, limiter.limit)
	assert.Equal(t, time.Unix(1700000000, 0), limiter.resetTime)
}

func TestRateLimiter_IgnoresInvalidHeaders(t *testing.T) {
	limiter := newRateLimiter()

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set(headerRateRemaining, "not-a-number")

	limiter.UpdateFromResponse(resp)

	assert.Equal(t, githubRateLimit, limiter.Remaining())
}

func TestRateLimiter_Wait_CancelledContext(t *testing.T) {
	limiter := newRateLimiter()

	// Force the reset-wait path: near-exhausted quota, reset in the future.
	limiter.mu.Lock()
	limiter.remaining = 1
	limiter.resetTime = time.Now().Add(time.Hour)
	limiter.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.Error(t, err)
}
