package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
)

func TestNormaliser_SupportedMIMETypes(t *testing.T) {
	n := New()
	assert.Equal(t, []string{"application/pdf"}, n.SupportedMIMETypes())
}

func TestNormaliser_Priority(t *testing.T) {
	n := New()
	assert.Equal(t, 50, n.Priority())
}

func TestNormaliser_Normalise_NilDocument(t *testing.T) {
	n := New()

	_, err := n.Normalise(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormaliser_Normalise_NotAPDF(t *testing.T) {
	n := New()

	_, err := n.Normalise(context.Background(), &domain.RawDocument{
		URI:      "/tmp/fake.pdf",
		Content:  []byte("this is not a pdf"),
		MIMEType: "application/pdf",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormaliser_Normalise_EmptyContent(t *testing.T) {
	n := New()

	_, err := n.Normalise(context.Background(), &domain.RawDocument{
		URI:      "/tmp/empty.pdf",
		MIMEType: "application/pdf",
	})

	assert.Error(t, err)
}

func TestCleanPageText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses space runs", "a    b\tc", "a b\tc"},
		{"drops blank lines", "one\n\n\ntwo\n", "one\ntwo"},
		{"normalises CRLF", "one\r\ntwo", "one\ntwo"},
		{"trims line whitespace", "  padded  \n next ", "padded\nnext"},
		{"empty input", "   \n  \n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanPageText(tt.in))
		})
	}
}

func TestExtractTitle(t *testing.T) {
	t.Run("prefers title hint", func(t *testing.T) {
		raw := &domain.RawDocument{URI: "/docs/report_q3.pdf", Title: "Q3 Report"}
		assert.Equal(t, "Q3 Report", extractTitle(raw))
	})

	t.Run("derives from URI", func(t *testing.T) {
		raw := &domain.RawDocument{URI: "/docs/annual-report_2025.pdf"}
		assert.Equal(t, "annual report 2025", extractTitle(raw))
	})
}
