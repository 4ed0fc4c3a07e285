package normalisers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches raw documents to the highest-priority normaliser
// claiming their MIME type.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates an empty normaliser registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers = append(r.normalisers, normaliser)
}

// Normalise transforms a raw document using the best matching normaliser.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	normaliser := r.lookup(raw.MIMEType)
	if normaliser == nil {
		return nil, fmt.Errorf("%w: no normaliser registered for %q", domain.ErrUnsupportedType, raw.MIMEType)
	}
	return normaliser.Normalise(ctx, raw)
}

// SupportedMIMETypes returns all MIME types that can be normalised, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, n := range r.normalisers {
		for _, mt := range n.SupportedMIMETypes() {
			seen[mt] = struct{}{}
		}
	}

	types := make([]string, 0, len(seen))
	for mt := range seen {
		types = append(types, mt)
	}
	sort.Strings(types)
	return types
}

// lookup returns the highest-priority normaliser for a MIME type,
// or nil when none claims it.
func (r *Registry) lookup(mimeType string) driven.Normaliser {
	mt := canonicalMIME(mimeType)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best driven.Normaliser
	for _, n := range r.normalisers {
		if !claims(n, mt) {
			continue
		}
		if best == nil || n.Priority() > best.Priority() {
			best = n
		}
	}
	return best
}

func claims(n driven.Normaliser, mimeType string) bool {
	for _, mt := range n.SupportedMIMETypes() {
		if mt == mimeType {
			return true
		}
	}
	return false
}

// canonicalMIME strips parameters such as "; charset=utf-8" and
// lowercases the media type.
func canonicalMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
