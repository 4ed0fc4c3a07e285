package normalisers

import (
	"github.com/custodia-labs/docent/internal/normalisers/markdown"
	"github.com/custodia-labs/docent/internal/normalisers/pdf"
	"github.com/custodia-labs/docent/internal/normalisers/plaintext"
)

// RegisterDefaults registers all built-in normalisers with the registry.
// Call this during application initialisation.
func RegisterDefaults(r *Registry) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(pdf.New())
}
